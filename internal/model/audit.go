package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCalculateTax     = "CALCULATE_TAX"
	ActionSummarizeTax     = "SUMMARIZE_TAX"
	ActionPublishTaxPolicy = "PUBLISH_TAX_POLICY"

	ActionScheduleReminder  = "SCHEDULE_REMINDER"
	ActionMarkRemindersRead = "MARK_REMINDERS_READ"
	ActionMarkReminderSent  = "MARK_REMINDER_SENT"
)

// AuditLog tracks Who, What, and When for computations and policy changes
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserRef    string    `gorm:"type:varchar(100);index" json:"user_ref"` // empty for automated callers
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string    `gorm:"type:varchar(64);index" json:"entity_id"`
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string    `gorm:"type:text" json:"details"` // serialized JSON payload
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
