package database

import (
	"taxengine/internal/logger"
	"taxengine/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		logger.L.Warn("failed to auto-migrate models", "error", err)
	}

	return db, nil
}

// Migrate creates or updates the tables for every persisted model
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.RateSchedule{},
		&model.RateBand{},
		&model.LevyRule{},
		&model.VATCategory{},
		&model.Reminder{},
		&model.AuditLog{},
	)
}
