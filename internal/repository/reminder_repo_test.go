package repository_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"taxengine/internal/model"
	"taxengine/internal/repository"
	"taxengine/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReminder(owner, due, notificationID string) *model.Reminder {
	return &model.Reminder{
		OwnerRef:       owner,
		DueDate:        day(due),
		Message:        "file returns",
		TaxType:        "paye",
		NotificationID: notificationID,
	}
}

func TestReminderRepository_CreateRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReminderRepository(testutil.NewDB(t))

	require.NoError(t, repo.Create(ctx, newReminder("alice", "2026-03-31", "n-1")))

	err := repo.Create(ctx, newReminder("bob", "2026-04-30", "n-1"))
	assert.ErrorIs(t, err, repository.ErrDuplicateNotification)

	got, err := repo.FindByNotificationID(ctx, "n-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.OwnerRef)

	_, err = repo.FindByNotificationID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrReminderNotFound)
}

func TestReminderRepository_ListUnreadSortedByDueDate(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReminderRepository(testutil.NewDB(t))

	require.NoError(t, repo.Create(ctx, newReminder("alice", "2026-06-30", "late")))
	require.NoError(t, repo.Create(ctx, newReminder("alice", "2026-01-31", "early")))
	require.NoError(t, repo.Create(ctx, newReminder("alice", "2026-03-31", "middle")))
	require.NoError(t, repo.Create(ctx, newReminder("bob", "2026-02-28", "other-owner")))

	unread, err := repo.ListUnread(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, unread, 3)
	assert.Equal(t, "early", unread[0].NotificationID)
	assert.Equal(t, "middle", unread[1].NotificationID)
	assert.Equal(t, "late", unread[2].NotificationID)
}

func TestReminderRepository_MarkReadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReminderRepository(testutil.NewDB(t))

	require.NoError(t, repo.Create(ctx, newReminder("alice", "2026-01-31", "a")))
	require.NoError(t, repo.Create(ctx, newReminder("alice", "2026-02-28", "b")))

	updated, err := repo.MarkRead(ctx, "alice", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	updated, err = repo.MarkRead(ctx, "alice", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated)

	unread, err := repo.ListUnread(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "b", unread[0].NotificationID)

	count, err := repo.CountUnread(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestReminderRepository_MarkReadScopedToOwner(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReminderRepository(testutil.NewDB(t))
	require.NoError(t, repo.Create(ctx, newReminder("alice", "2026-01-31", "a")))

	updated, err := repo.MarkRead(ctx, "mallory", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated)

	updated, err = repo.MarkRead(ctx, "", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated, "an empty owner matches nobody")

	updated, err = repo.MarkRead(ctx, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated)

	count, err := repo.CountUnread(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestReminderRepository_ConcurrentMarkReadCountsOnce(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReminderRepository(testutil.NewDB(t))
	require.NoError(t, repo.Create(ctx, newReminder("alice", "2026-01-31", "a")))
	require.NoError(t, repo.Create(ctx, newReminder("alice", "2026-02-28", "b")))

	var total atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := repo.MarkRead(ctx, "alice", []string{"a", "b"})
			assert.NoError(t, err)
			total.Add(n)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(2), total.Load())
}

func TestReminderRepository_DueAndSent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReminderRepository(testutil.NewDB(t))
	require.NoError(t, repo.Create(ctx, newReminder("alice", "2026-01-31", "jan")))
	require.NoError(t, repo.Create(ctx, newReminder("alice", "2026-02-28", "feb")))
	require.NoError(t, repo.Create(ctx, newReminder("alice", "2026-03-31", "mar")))

	due, err := repo.ListDue(ctx, day("2026-02-28"))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "jan", due[0].NotificationID)

	marked, err := repo.MarkSent(ctx, "jan", day("2026-02-01"))
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = repo.MarkSent(ctx, "jan", day("2026-02-02"))
	require.NoError(t, err)
	assert.False(t, marked)

	_, err = repo.MarkSent(ctx, "missing", day("2026-02-02"))
	assert.ErrorIs(t, err, repository.ErrReminderNotFound)

	due, err = repo.ListDue(ctx, day("2026-02-28"))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "feb", due[0].NotificationID)
}
