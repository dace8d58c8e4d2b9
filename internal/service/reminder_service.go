package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taxengine/internal/logger"
	"taxengine/internal/model"
	"taxengine/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// --- DTOs ---

type ScheduleReminderRequest struct {
	DueDate        string `json:"due_date" binding:"required"` // YYYY-MM-DD
	Message        string `json:"message" binding:"required"`
	TaxType        string `json:"tax_type"`
	NotificationID string `json:"notification_id"` // optional; generated when empty
}

type MarkReadRequest struct {
	NotificationIDs []string `json:"notification_ids" binding:"required,min=1"`
}

type ReminderResponse struct {
	ID             string  `json:"id"`
	OwnerRef       string  `json:"owner_ref"`
	DueDate        string  `json:"due_date"`
	Message        string  `json:"message"`
	TaxType        string  `json:"tax_type,omitempty"`
	NotificationID string  `json:"notification_id"`
	SentAt         *string `json:"sent_at"`
	ReadStatus     bool    `json:"read_status"`
	CreatedAt      string  `json:"created_at"`
}

type MarkReadResponse struct {
	Updated     int64 `json:"updated"`
	UnreadCount int64 `json:"unread_count"`
}

// --- Interface ---

type ReminderService interface {
	Schedule(ctx context.Context, ownerRef string, req ScheduleReminderRequest) (ReminderResponse, error)
	ListUnread(ctx context.Context, ownerRef string) ([]ReminderResponse, error)
	UnreadCount(ctx context.Context, ownerRef string) (int64, error)
	MarkRead(ctx context.Context, ownerRef string, notificationIDs []string) (MarkReadResponse, error)
	ListDue(ctx context.Context, asOf time.Time) ([]ReminderResponse, error)
	MarkSent(ctx context.Context, notificationID string) (bool, error)
}

// Notifier pushes unread-count changes to an owner's live connections
type Notifier interface {
	NotifyUnreadCount(ownerRef string, count int64)
}

type reminderService struct {
	repo     repository.ReminderRepository
	audit    repository.AuditRepository
	notifier Notifier
	now      func() time.Time
}

func NewReminderService(repo repository.ReminderRepository, audit repository.AuditRepository, notifier Notifier) ReminderService {
	return &reminderService{repo: repo, audit: audit, notifier: notifier, now: time.Now}
}

// --- Implementation ---

func (s *reminderService) Schedule(ctx context.Context, ownerRef string, req ScheduleReminderRequest) (ReminderResponse, error) {
	if strings.TrimSpace(ownerRef) == "" {
		return ReminderResponse{}, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Message) == "" {
		return ReminderResponse{}, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	dueDate, err := time.Parse(dateLayout, req.DueDate)
	if err != nil {
		return ReminderResponse{}, fmt.Errorf("%w: invalid due_date format (expected YYYY-MM-DD)", ErrInvalidInput)
	}

	reminder := model.Reminder{
		OwnerRef:       ownerRef,
		DueDate:        dueDate,
		Message:        strings.TrimSpace(req.Message),
		TaxType:        req.TaxType,
		NotificationID: lo.Ternary(req.NotificationID == "", uuid.NewString(), strings.TrimSpace(req.NotificationID)),
	}

	if err := s.repo.Create(ctx, &reminder); err != nil {
		return ReminderResponse{}, err
	}

	logger.L.Info("reminder scheduled", "owner", ownerRef, "notification_id", reminder.NotificationID, "due_date", req.DueDate)
	writeAuditLog(ctx, s.audit, ownerRef, model.ActionScheduleReminder, reminder.NotificationID, reminder.Message, req)
	s.pushUnreadCount(ctx, ownerRef)

	return toReminderResponse(reminder), nil
}

func (s *reminderService) ListUnread(ctx context.Context, ownerRef string) ([]ReminderResponse, error) {
	if ownerRef == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	reminders, err := s.repo.ListUnread(ctx, ownerRef)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reminders: %w", err)
	}
	return lo.Map(reminders, func(r model.Reminder, _ int) ReminderResponse { return toReminderResponse(r) }), nil
}

func (s *reminderService) UnreadCount(ctx context.Context, ownerRef string) (int64, error) {
	if ownerRef == "" {
		return 0, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	return s.repo.CountUnread(ctx, ownerRef)
}

// MarkRead is idempotent: ids that are unknown, already read, or owned by someone else are skipped
func (s *reminderService) MarkRead(ctx context.Context, ownerRef string, notificationIDs []string) (MarkReadResponse, error) {
	if ownerRef == "" {
		return MarkReadResponse{}, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	ids := lo.Uniq(lo.Compact(lo.Map(notificationIDs, func(id string, _ int) string { return strings.TrimSpace(id) })))

	updated, err := s.repo.MarkRead(ctx, ownerRef, ids)
	if err != nil {
		return MarkReadResponse{}, fmt.Errorf("failed to mark reminders read: %w", err)
	}

	count, err := s.repo.CountUnread(ctx, ownerRef)
	if err != nil {
		return MarkReadResponse{}, fmt.Errorf("failed to count unread reminders: %w", err)
	}

	if updated > 0 {
		writeAuditLog(ctx, s.audit, ownerRef, model.ActionMarkRemindersRead, "", fmt.Sprintf("%d reminders", updated), ids)
		s.notifier.NotifyUnreadCount(ownerRef, count)
	}

	return MarkReadResponse{Updated: updated, UnreadCount: count}, nil
}

func (s *reminderService) ListDue(ctx context.Context, asOf time.Time) ([]ReminderResponse, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	// due dates are calendar days, so anything due on asOf's date counts
	end := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 23, 59, 59, 0, time.UTC)
	reminders, err := s.repo.ListDue(ctx, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due reminders: %w", err)
	}
	return lo.Map(reminders, func(r model.Reminder, _ int) ReminderResponse { return toReminderResponse(r) }), nil
}

// MarkSent records delivery once; it reports false when the reminder had already been sent
func (s *reminderService) MarkSent(ctx context.Context, notificationID string) (bool, error) {
	marked, err := s.repo.MarkSent(ctx, notificationID, s.now().UTC())
	if err != nil {
		return false, err
	}
	if marked {
		writeAuditLog(ctx, s.audit, "", model.ActionMarkReminderSent, notificationID, "", nil)
	}
	return marked, nil
}

func (s *reminderService) pushUnreadCount(ctx context.Context, ownerRef string) {
	count, err := s.repo.CountUnread(ctx, ownerRef)
	if err != nil {
		logger.L.Warn("failed to count unread reminders", "owner", ownerRef, "error", err)
		return
	}
	s.notifier.NotifyUnreadCount(ownerRef, count)
}

func toReminderResponse(r model.Reminder) ReminderResponse {
	resp := ReminderResponse{
		ID:             r.ID.String(),
		OwnerRef:       r.OwnerRef,
		DueDate:        r.DueDate.Format(dateLayout),
		Message:        r.Message,
		TaxType:        r.TaxType,
		NotificationID: r.NotificationID,
		ReadStatus:     r.ReadStatus,
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
	}
	if r.SentAt != nil {
		sent := r.SentAt.Format(time.RFC3339)
		resp.SentAt = &sent
	}
	return resp
}
