package repository_test

import (
	"context"
	"testing"
	"time"

	"taxengine/internal/model"
	"taxengine/internal/repository"
	"taxengine/internal/tax"
	"taxengine/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func personalSchedule(version, from string, to *time.Time) *model.RateSchedule {
	return &model.RateSchedule{
		Role:          model.RolePersonal,
		PolicyVersion: version,
		EffectiveFrom: day(from),
		EffectiveTo:   to,
		LevyBasis:     model.LevyBasisPreRelief,
		TertiaryMode:  model.TertiaryAdditive,
		Bands: []model.RateBand{
			{Position: 2, LowerBound: decimal.NewFromInt(800000), UpperBound: ptr("3000000"), Rate: decimal.RequireFromString("0.15")},
			{Position: 1, LowerBound: decimal.Zero, UpperBound: ptr("800000"), Rate: decimal.Zero},
			{Position: 3, LowerBound: decimal.NewFromInt(3000000), Rate: decimal.RequireFromString("0.18")},
		},
	}
}

func TestScheduleRepository_GetSchedule(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewScheduleRepository(testutil.NewDB(t))
	require.NoError(t, repo.CreateSchedule(ctx, personalSchedule("2025", "2025-01-01", nil)))

	got, err := repo.GetSchedule(ctx, model.RolePersonal, "2025")
	require.NoError(t, err)
	require.Len(t, got.Bands, 3)
	for i, b := range got.Bands {
		assert.Equal(t, i+1, b.Position, "bands come back in position order")
	}
	assert.True(t, got.Bands[1].Rate.Equal(decimal.RequireFromString("0.15")))
	assert.True(t, got.Bands[2].Unbounded())
	require.NoError(t, model.ValidateSchedule(got))

	_, err = repo.GetSchedule(ctx, model.RolePersonal, "1999")
	assert.ErrorIs(t, err, tax.ErrScheduleNotFound)
}

func TestScheduleRepository_ActiveVersion(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewScheduleRepository(testutil.NewDB(t))
	end2025 := day("2025-12-31")
	require.NoError(t, repo.CreateSchedule(ctx, personalSchedule("2025", "2025-01-01", &end2025)))
	require.NoError(t, repo.CreateSchedule(ctx, personalSchedule("2026", "2026-01-01", nil)))

	tests := []struct {
		asOf string
		want string
	}{
		{"2025-01-01", "2025"},
		{"2025-12-31", "2025"},
		{"2026-01-01", "2026"},
		{"2030-06-15", "2026"},
	}
	for _, tt := range tests {
		version, err := repo.GetActiveVersion(ctx, model.RolePersonal, day(tt.asOf))
		require.NoError(t, err, tt.asOf)
		assert.Equal(t, tt.want, version, tt.asOf)
	}

	_, err := repo.GetActiveVersion(ctx, model.RolePersonal, day("2024-12-31"))
	assert.ErrorIs(t, err, tax.ErrNoApplicableSchedule)

	_, err = repo.GetActiveVersion(ctx, model.RoleCompany, day("2025-06-01"))
	assert.ErrorIs(t, err, tax.ErrNoApplicableSchedule)
}

func TestScheduleRepository_OverlapAndClose(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewScheduleRepository(testutil.NewDB(t))
	open := personalSchedule("2025", "2025-01-01", nil)
	require.NoError(t, repo.CreateSchedule(ctx, open))

	overlapping, err := repo.FindOverlapping(ctx, model.RolePersonal, day("2026-01-01"), nil)
	require.NoError(t, err)
	require.Len(t, overlapping, 1)
	assert.Equal(t, open.ID, overlapping[0].ID)

	require.NoError(t, repo.CloseSchedule(ctx, open.ID, day("2025-12-31")))
	assert.ErrorIs(t, repo.CloseSchedule(ctx, open.ID, day("2025-11-30")), model.ErrInvalidSchedule)

	overlapping, err = repo.FindOverlapping(ctx, model.RolePersonal, day("2026-01-01"), nil)
	require.NoError(t, err)
	assert.Empty(t, overlapping)

	to := day("2025-03-31")
	overlapping, err = repo.FindOverlapping(ctx, model.RolePersonal, day("2024-06-01"), &to)
	require.NoError(t, err)
	assert.Len(t, overlapping, 1)

	exists, err := repo.VersionExists(ctx, "2025")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.VersionExists(ctx, "2099")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestScheduleRepository_LeviesAndCategories(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewScheduleRepository(testutil.NewDB(t))

	exists, err := repo.VersionExists(ctx, "2025")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.CreateLevyRules(ctx, []model.LevyRule{
		{PolicyVersion: "2025", Name: "zeta", ThresholdAmount: decimal.NewFromInt(100), RateBelow: decimal.Zero, RateAtOrAbove: decimal.Zero, AppliesTo: "company"},
		{PolicyVersion: "2025", Name: "development_levy", ThresholdAmount: decimal.NewFromInt(5000000), RateBelow: decimal.RequireFromString("0.02"), RateAtOrAbove: decimal.RequireFromString("0.04"), AppliesTo: "personal,trader"},
	}))
	require.NoError(t, repo.CreateVATCategories(ctx, []model.VATCategory{
		{PolicyVersion: "2025", CategoryKey: "food", IsExempt: true},
		{PolicyVersion: "2025", CategoryKey: "other"},
	}))
	require.NoError(t, repo.CreateLevyRules(ctx, nil))

	rules, err := repo.GetLevyRules(ctx, "2025")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "development_levy", rules[0].Name)
	assert.True(t, rules[0].RateBelow.Equal(decimal.RequireFromString("0.02")))

	categories, err := repo.GetVATCategories(ctx, "2025")
	require.NoError(t, err)
	assert.Len(t, categories, 2)

	err = repo.CreateVATCategories(ctx, []model.VATCategory{{PolicyVersion: "2025", CategoryKey: "food"}})
	assert.Error(t, err, "category keys are unique per version")

	none, err := repo.GetLevyRules(ctx, "2026")
	require.NoError(t, err)
	assert.Empty(t, none)

	exists, err = repo.VersionExists(ctx, "2025")
	require.NoError(t, err)
	assert.True(t, exists, "levy rules alone claim the version")
}

func TestScheduleRepository_ListAndCount(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewScheduleRepository(testutil.NewDB(t))
	end2025 := day("2025-12-31")
	require.NoError(t, repo.CreateSchedule(ctx, personalSchedule("2025", "2025-01-01", &end2025)))
	require.NoError(t, repo.CreateSchedule(ctx, personalSchedule("2026", "2026-01-01", nil)))

	page, total, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, page, 1)
	assert.Equal(t, "2026", page[0].PolicyVersion)
	assert.Len(t, page[0].Bands, 3)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
