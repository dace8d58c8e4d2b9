package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taxengine/internal/model"
	"taxengine/internal/tax"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScheduleRepository is the gorm-backed rate schedule store. The read methods satisfy
// tax.ScheduleStore; the write methods back policy publishing.
type ScheduleRepository interface {
	tax.ScheduleStore

	CreateSchedule(ctx context.Context, schedule *model.RateSchedule) error
	CreateLevyRules(ctx context.Context, rules []model.LevyRule) error
	CreateVATCategories(ctx context.Context, categories []model.VATCategory) error
	VersionExists(ctx context.Context, policyVersion string) (bool, error)
	FindOverlapping(ctx context.Context, role string, from time.Time, to *time.Time) ([]model.RateSchedule, error)
	CloseSchedule(ctx context.Context, id uuid.UUID, effectiveTo time.Time) error
	FindActive(ctx context.Context, role string, asOf time.Time) (*model.RateSchedule, error)
	List(ctx context.Context, page, limit int) ([]model.RateSchedule, int64, error)
	Count(ctx context.Context) (int64, error)
}

type scheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func orderedBands(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *scheduleRepository) GetSchedule(ctx context.Context, role, policyVersion string) (*model.RateSchedule, error) {
	var schedule model.RateSchedule
	err := GetDB(ctx, r.db).
		Preload("Bands", orderedBands).
		Where("role = ? AND policy_version = ?", role, policyVersion).
		First(&schedule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s %s", tax.ErrScheduleNotFound, role, policyVersion)
		}
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepository) GetActiveVersion(ctx context.Context, role string, asOf time.Time) (string, error) {
	schedule, err := r.FindActive(ctx, role, asOf)
	if err != nil {
		return "", err
	}
	return schedule.PolicyVersion, nil
}

// FindActive returns the schedule in effect for role on asOf. The latest effective_from wins.
func (r *scheduleRepository) FindActive(ctx context.Context, role string, asOf time.Time) (*model.RateSchedule, error) {
	asOf = tax.DateOnly(asOf)
	var schedule model.RateSchedule
	err := GetDB(ctx, r.db).
		Preload("Bands", orderedBands).
		Where("role = ? AND effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", role, asOf, asOf).
		Order("effective_from DESC").
		First(&schedule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s on %s", tax.ErrNoApplicableSchedule, role, asOf.Format("2006-01-02"))
		}
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepository) GetLevyRules(ctx context.Context, policyVersion string) ([]model.LevyRule, error) {
	var rules []model.LevyRule
	if err := GetDB(ctx, r.db).Where("policy_version = ?", policyVersion).Order("name ASC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *scheduleRepository) GetVATCategories(ctx context.Context, policyVersion string) ([]model.VATCategory, error) {
	var categories []model.VATCategory
	if err := GetDB(ctx, r.db).Where("policy_version = ?", policyVersion).Order("category_key ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// CreateSchedule inserts the schedule with its bands
func (r *scheduleRepository) CreateSchedule(ctx context.Context, schedule *model.RateSchedule) error {
	return GetDB(ctx, r.db).Create(schedule).Error
}

func (r *scheduleRepository) CreateLevyRules(ctx context.Context, rules []model.LevyRule) error {
	if len(rules) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&rules).Error
}

func (r *scheduleRepository) CreateVATCategories(ctx context.Context, categories []model.VATCategory) error {
	if len(categories) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&categories).Error
}

// VersionExists reports whether any schedule, levy rule or VAT category carries policyVersion
func (r *scheduleRepository) VersionExists(ctx context.Context, policyVersion string) (bool, error) {
	db := GetDB(ctx, r.db)
	for _, m := range []interface{}{&model.RateSchedule{}, &model.LevyRule{}, &model.VATCategory{}} {
		var count int64
		if err := db.Model(m).Where("policy_version = ?", policyVersion).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

// FindOverlapping returns the schedules for role whose effective range intersects [from, to]
func (r *scheduleRepository) FindOverlapping(ctx context.Context, role string, from time.Time, to *time.Time) ([]model.RateSchedule, error) {
	var schedules []model.RateSchedule
	query := GetDB(ctx, r.db).Where("role = ?", role)

	if to != nil {
		// existing.from <= new.to AND (existing.to IS NULL OR existing.to >= new.from)
		query = query.Where("effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", *to, from)
	} else {
		query = query.Where("(effective_to IS NULL OR effective_to >= ?)", from)
	}

	if err := query.Order("effective_from ASC").Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

// CloseSchedule sets effective_to on an open-ended schedule; it is the only mutation a
// published schedule allows.
func (r *scheduleRepository) CloseSchedule(ctx context.Context, id uuid.UUID, effectiveTo time.Time) error {
	res := GetDB(ctx, r.db).Model(&model.RateSchedule{}).
		Where("id = ? AND effective_to IS NULL", id).
		Update("effective_to", effectiveTo)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: schedule %s is already closed", model.ErrInvalidSchedule, id)
	}
	return nil
}

func (r *scheduleRepository) List(ctx context.Context, page, limit int) ([]model.RateSchedule, int64, error) {
	var schedules []model.RateSchedule
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.RateSchedule{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Bands", orderedBands).
		Order("effective_from desc, role asc").
		Offset(offset).Limit(limit).
		Find(&schedules).Error; err != nil {
		return nil, 0, err
	}

	return schedules, total, nil
}

func (r *scheduleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.RateSchedule{}).Count(&count).Error
	return count, err
}
