package service

import (
	"context"

	"taxengine/internal/model"
	"taxengine/internal/repository"

	"github.com/samber/lo"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserRef    string `json:"user_ref"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, action string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs returns one page of audit entries, newest first, optionally filtered by action
func (s *auditService) GetAuditLogs(ctx context.Context, action string, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.repo.List(ctx, action, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := lo.Map(logs, func(l model.AuditLog, _ int) AuditLogResponse {
		return AuditLogResponse{
			ID:         l.ID.String(),
			UserRef:    lo.Ternary(l.UserRef == "", "System", l.UserRef),
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		}
	})

	return res, total, nil
}
