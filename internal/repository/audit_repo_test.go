package repository_test

import (
	"context"
	"errors"
	"testing"

	"taxengine/internal/model"
	"taxengine/internal/repository"
	"taxengine/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepository_ListFiltersByAction(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewAuditRepository(testutil.NewDB(t))

	for _, action := range []string{model.ActionCalculateTax, model.ActionCalculateTax, model.ActionScheduleReminder} {
		require.NoError(t, repo.Log(ctx, &model.AuditLog{UserRef: "alice", Action: action}))
	}

	all, total, err := repo.List(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	calcs, total, err := repo.List(ctx, model.ActionCalculateTax, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, calcs, 1)
	assert.Equal(t, model.ActionCalculateTax, calcs[0].Action)
}

func TestTransactionManager_RollsBack(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	tm := repository.NewTransactionManager(db)
	repo := repository.NewAuditRepository(db)

	boom := errors.New("boom")
	err := tm.RunInTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, repo.Log(txCtx, &model.AuditLog{Action: model.ActionPublishTaxPolicy}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, total, err := repo.List(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestTransactionManager_NestedCallsJoinOuterTx(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	tm := repository.NewTransactionManager(db)
	repo := repository.NewAuditRepository(db)

	assert.False(t, repository.InTx(ctx))
	err := tm.RunInTx(ctx, func(outer context.Context) error {
		assert.True(t, repository.InTx(outer))
		require.NoError(t, tm.RunInTx(outer, func(inner context.Context) error {
			return repo.Log(inner, &model.AuditLog{Action: model.ActionPublishTaxPolicy})
		}))
		return errors.New("abort outer")
	})
	assert.EqualError(t, err, "abort outer")

	_, total, err := repo.List(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total, "inner work rolls back with the outer transaction")
}
