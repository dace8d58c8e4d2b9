package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reminder is a scheduled tax reminder. NotificationID is the delivery dedup key;
// ReadStatus only ever moves from false to true.
type Reminder struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerRef       string     `gorm:"type:varchar(100);not null;index" json:"owner_ref"`
	DueDate        time.Time  `gorm:"not null;index" json:"due_date"`
	Message        string     `gorm:"type:text;not null" json:"message"`
	TaxType        string     `gorm:"type:varchar(20)" json:"tax_type"`
	NotificationID string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"notification_id"`
	SentAt         *time.Time `gorm:"index" json:"sent_at"`
	ReadStatus     bool       `gorm:"not null;default:false;index" json:"read_status"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (r *Reminder) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
