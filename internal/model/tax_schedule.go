package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaxpayerRole enum constants
const (
	RolePersonal = "personal"
	RoleTrader   = "trader"
	RoleCompany  = "company"
	RoleVAT      = "vat"
)

// LevyBasis controls which PAYE amount a levy is charged on
const (
	LevyBasisPreRelief  = "pre_relief"
	LevyBasisPostRelief = "post_relief"
)

// TertiaryMode controls how the tertiary education tax relates to the headline CIT rate
const (
	TertiaryAdditive = "additive"
	TertiaryIncluded = "included"
)

// VATFallbackCategory is always a valid, non-exempt category
const VATFallbackCategory = "other"

// ValidRoles lists every role a schedule may be published for
var ValidRoles = []string{RolePersonal, RoleTrader, RoleCompany, RoleVAT}

// IsValidRole reports whether role is a known taxpayer role
func IsValidRole(role string) bool {
	return lo.Contains(ValidRoles, role)
}

// RateSchedule is one role's published bands for a policy version.
// Published schedules are immutable; only EffectiveTo may be closed when a later version supersedes it.
type RateSchedule struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Role          string     `gorm:"type:varchar(20);not null;uniqueIndex:idx_schedule_role_version" json:"role"`
	PolicyVersion string     `gorm:"type:varchar(40);not null;uniqueIndex:idx_schedule_role_version" json:"policy_version"`
	EffectiveFrom time.Time  `gorm:"type:date;not null;index" json:"effective_from"`
	EffectiveTo   *time.Time `gorm:"type:date;index" json:"effective_to"` // nullable = open-ended
	Description   string     `gorm:"type:text" json:"description"`

	// PAYE parameters (personal schedules)
	ReliefCeiling *decimal.Decimal `gorm:"type:decimal(18,4)" json:"relief_ceiling"` // nil = no relief
	ReliefAmount  decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0" json:"relief_amount"`
	LevyBasis     string           `gorm:"type:varchar(20);not null;default:'pre_relief'" json:"levy_basis"`

	// CIT parameters (company schedules)
	SizeClasses       string          `gorm:"type:varchar(100)" json:"size_classes"` // ordered smallest first, comma separated
	TertiaryRate      decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"tertiary_rate"`
	TertiaryAboveSize string          `gorm:"type:varchar(20)" json:"tertiary_above_size"` // empty = every size
	TertiaryMode      string          `gorm:"type:varchar(20);not null;default:'additive'" json:"tertiary_mode"`

	Bands     []RateBand `gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE" json:"bands"`
	CreatedAt time.Time  `json:"created_at"`
}

func (s *RateSchedule) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Sizes returns the ordered business size classes, smallest first
func (s *RateSchedule) Sizes() []string {
	return splitList(s.SizeClasses)
}

// Covers reports whether the schedule is in effect on date
func (s *RateSchedule) Covers(date time.Time) bool {
	if date.Before(s.EffectiveFrom) {
		return false
	}
	return s.EffectiveTo == nil || !date.After(*s.EffectiveTo)
}

// RateBand is one marginal bracket. UpperBound nil marks the unbounded final band.
type RateBand struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	ScheduleID  uuid.UUID        `gorm:"type:uuid;not null;index" json:"schedule_id"`
	Position    int              `gorm:"not null" json:"position"`
	LowerBound  decimal.Decimal  `gorm:"type:decimal(18,4);not null" json:"lower_bound"`
	UpperBound  *decimal.Decimal `gorm:"type:decimal(18,4)" json:"upper_bound"`
	Rate        decimal.Decimal  `gorm:"type:decimal(10,4);not null" json:"rate"` // e.g. 0.15 = 15%
	Description string           `gorm:"type:text" json:"description"`
}

func (b *RateBand) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Unbounded reports whether the band has no ceiling
func (b RateBand) Unbounded() bool {
	return b.UpperBound == nil
}

// LevyRule is a two-tier flat surcharge on the full amount
type LevyRule struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PolicyVersion   string          `gorm:"type:varchar(40);not null;index" json:"policy_version"`
	Name            string          `gorm:"type:varchar(100);not null" json:"name"`
	ThresholdAmount decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"threshold_amount"`
	RateBelow       decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"rate_below"`
	RateAtOrAbove   decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"rate_at_or_above"`
	AppliesTo       string          `gorm:"type:varchar(100);not null" json:"applies_to"` // comma separated roles
	CreatedAt       time.Time       `json:"created_at"`
}

func (l *LevyRule) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Roles returns the roles the levy applies to
func (l *LevyRule) Roles() []string {
	return splitList(l.AppliesTo)
}

// AppliesToRole reports whether the levy is charged for role
func (l *LevyRule) AppliesToRole(role string) bool {
	return lo.Contains(l.Roles(), role)
}

// VATCategory classifies a transaction category as exempt or taxable for one policy version
type VATCategory struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PolicyVersion string    `gorm:"type:varchar(40);not null;uniqueIndex:idx_vat_version_key" json:"policy_version"`
	CategoryKey   string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_vat_version_key" json:"category_key"`
	IsExempt      bool      `gorm:"not null;default:false" json:"is_exempt"`
	Description   string    `gorm:"type:text" json:"description"`
}

func (c *VATCategory) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// NormalizeCategoryKey lowercases and trims a category key
func NormalizeCategoryKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return lo.Compact(lo.Map(strings.Split(s, ","), func(p string, _ int) string {
		return strings.TrimSpace(p)
	}))
}
