package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taxengine/internal/model"

	"gorm.io/gorm"
)

// ErrDuplicateNotification is returned when a reminder reuses an existing notification id
var ErrDuplicateNotification = errors.New("duplicate notification")

var ErrReminderNotFound = errors.New("reminder not found")

type ReminderRepository interface {
	Create(ctx context.Context, reminder *model.Reminder) error
	FindByNotificationID(ctx context.Context, notificationID string) (*model.Reminder, error)
	ListUnread(ctx context.Context, ownerRef string) ([]model.Reminder, error)
	CountUnread(ctx context.Context, ownerRef string) (int64, error)
	MarkRead(ctx context.Context, ownerRef string, notificationIDs []string) (int64, error)
	ListDue(ctx context.Context, asOf time.Time) ([]model.Reminder, error)
	MarkSent(ctx context.Context, notificationID string, at time.Time) (bool, error)
}

type reminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) ReminderRepository {
	return &reminderRepository{db: db}
}

// Create checks for the notification id and inserts in one transaction. The unique
// index still backs this up against a concurrent insert.
func (r *reminderRepository) Create(ctx context.Context, reminder *model.Reminder) error {
	err := GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Reminder{}).
			Where("notification_id = ?", reminder.NotificationID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateNotification, reminder.NotificationID)
		}
		return tx.Create(reminder).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", ErrDuplicateNotification, reminder.NotificationID)
	}
	return err
}

func (r *reminderRepository) FindByNotificationID(ctx context.Context, notificationID string) (*model.Reminder, error) {
	var reminder model.Reminder
	if err := GetDB(ctx, r.db).First(&reminder, "notification_id = ?", notificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrReminderNotFound, notificationID)
		}
		return nil, err
	}
	return &reminder, nil
}

// ListUnread returns the owner's unread reminders, earliest due first
func (r *reminderRepository) ListUnread(ctx context.Context, ownerRef string) ([]model.Reminder, error) {
	var reminders []model.Reminder
	err := GetDB(ctx, r.db).
		Where("owner_ref = ? AND read_status = ?", ownerRef, false).
		Order("due_date ASC, created_at ASC").
		Find(&reminders).Error
	return reminders, err
}

func (r *reminderRepository) CountUnread(ctx context.Context, ownerRef string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Reminder{}).
		Where("owner_ref = ? AND read_status = ?", ownerRef, false).
		Count(&count).Error
	return count, err
}

// MarkRead flips read_status on the owner's unread reminders among notificationIDs.
// The read_status guard makes it a compare-and-swap: already-read rows are untouched
// and concurrent callers never both count the same row.
func (r *reminderRepository) MarkRead(ctx context.Context, ownerRef string, notificationIDs []string) (int64, error) {
	if ownerRef == "" || len(notificationIDs) == 0 {
		return 0, nil
	}
	res := GetDB(ctx, r.db).Model(&model.Reminder{}).
		Where("owner_ref = ? AND notification_id IN ? AND read_status = ?", ownerRef, notificationIDs, false).
		Update("read_status", true)
	return res.RowsAffected, res.Error
}

// ListDue returns unsent reminders due on or before asOf
func (r *reminderRepository) ListDue(ctx context.Context, asOf time.Time) ([]model.Reminder, error) {
	var reminders []model.Reminder
	err := GetDB(ctx, r.db).
		Where("sent_at IS NULL AND due_date <= ?", asOf).
		Order("due_date ASC").
		Find(&reminders).Error
	return reminders, err
}

// MarkSent stamps sent_at once. It reports false when the reminder was already sent.
func (r *reminderRepository) MarkSent(ctx context.Context, notificationID string, at time.Time) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Reminder{}).
		Where("notification_id = ? AND sent_at IS NULL", notificationID).
		Update("sent_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByNotificationID(ctx, notificationID); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}
