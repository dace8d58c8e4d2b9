package tax

import (
	"fmt"

	"taxengine/internal/model"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// PersonalPolicy is the PAYE view of a personal schedule
type PersonalPolicy struct {
	Version       string
	Bands         []model.RateBand
	ReliefCeiling *decimal.Decimal
	ReliefAmount  decimal.Decimal
	LevyBasis     string
}

func NewPersonalPolicy(s *model.RateSchedule) (PersonalPolicy, error) {
	if err := expectRole(s, model.RolePersonal); err != nil {
		return PersonalPolicy{}, err
	}
	return PersonalPolicy{
		Version:       s.PolicyVersion,
		Bands:         s.Bands,
		ReliefCeiling: s.ReliefCeiling,
		ReliefAmount:  s.ReliefAmount,
		LevyBasis:     s.LevyBasis,
	}, nil
}

// TaxableIncome applies the rent relief when amount is at or below the relief ceiling
func (p PersonalPolicy) TaxableIncome(amount decimal.Decimal) (decimal.Decimal, bool) {
	if p.ReliefCeiling == nil || p.ReliefAmount.IsZero() || amount.GreaterThan(*p.ReliefCeiling) {
		return amount, false
	}
	return decimal.Max(decimal.Zero, amount.Sub(p.ReliefAmount)), true
}

// CompanyPolicy is the CIT view of a company schedule
type CompanyPolicy struct {
	Version           string
	Bands             []model.RateBand
	Sizes             []string
	TertiaryRate      decimal.Decimal
	TertiaryAboveSize string
	TertiaryMode      string
}

func NewCompanyPolicy(s *model.RateSchedule) (CompanyPolicy, error) {
	if err := expectRole(s, model.RoleCompany); err != nil {
		return CompanyPolicy{}, err
	}
	return CompanyPolicy{
		Version:           s.PolicyVersion,
		Bands:             s.Bands,
		Sizes:             s.Sizes(),
		TertiaryRate:      s.TertiaryRate,
		TertiaryAboveSize: s.TertiaryAboveSize,
		TertiaryMode:      s.TertiaryMode,
	}, nil
}

// ResolveSize validates the business size against the schedule's size classes.
// Schedules without size classes accept (and ignore) any size.
func (p CompanyPolicy) ResolveSize(size string) (string, error) {
	if len(p.Sizes) == 0 {
		return size, nil
	}
	if size == "" {
		return "", fmt.Errorf("%w: %s is required (one of %v)", ErrMissingDiscriminator, DiscBusinessSize, p.Sizes)
	}
	if !lo.Contains(p.Sizes, size) {
		return "", fmt.Errorf("%w: %s '%s' is not one of %v", ErrMissingDiscriminator, DiscBusinessSize, size, p.Sizes)
	}
	return size, nil
}

// QualifiesForSimplifiedReturn reports whether turnover falls inside the leading zero-rate bands
func (p CompanyPolicy) QualifiesForSimplifiedReturn(turnover decimal.Decimal) bool {
	for _, band := range p.Bands {
		if !band.Rate.IsZero() {
			return false
		}
		if band.Unbounded() || turnover.LessThanOrEqual(*band.UpperBound) {
			return true
		}
	}
	return false
}

// TertiaryApplies reports whether size sits above the configured tertiary tier
func (p CompanyPolicy) TertiaryApplies(size string) bool {
	if !p.TertiaryRate.IsPositive() {
		return false
	}
	if p.TertiaryAboveSize == "" {
		return true
	}
	return lo.IndexOf(p.Sizes, size) > lo.IndexOf(p.Sizes, p.TertiaryAboveSize)
}

// VATPolicy holds the standard rate carried by the vat schedule's single band
type VATPolicy struct {
	Version      string
	StandardRate decimal.Decimal
}

func NewVATPolicy(s *model.RateSchedule) (VATPolicy, error) {
	if err := expectRole(s, model.RoleVAT); err != nil {
		return VATPolicy{}, err
	}
	return VATPolicy{Version: s.PolicyVersion, StandardRate: s.Bands[0].Rate}, nil
}

func expectRole(s *model.RateSchedule, role string) error {
	if s == nil {
		return fmt.Errorf("%w: %s", ErrScheduleNotFound, role)
	}
	if s.Role != role {
		return fmt.Errorf("%w: expected a %s schedule, got %s", model.ErrInvalidSchedule, role, s.Role)
	}
	return model.ValidateSchedule(s)
}

