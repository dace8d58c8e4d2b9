package model

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ErrInvalidSchedule is returned when published records break the band or category invariants
var ErrInvalidSchedule = errors.New("invalid rate schedule")

// ValidateBands checks that bands are ascending, contiguous from zero, non-overlapping,
// with rates in [0,1] and an unbounded final band.
func ValidateBands(bands []RateBand) error {
	if len(bands) == 0 {
		return fmt.Errorf("%w: at least one band is required", ErrInvalidSchedule)
	}
	one := decimal.NewFromInt(1)
	expectedLower := decimal.Zero
	for i, b := range bands {
		if !b.LowerBound.Equal(expectedLower) {
			return fmt.Errorf("%w: band %d starts at %s, expected %s", ErrInvalidSchedule, i+1, b.LowerBound.String(), expectedLower.String())
		}
		if b.Rate.IsNegative() || b.Rate.GreaterThan(one) {
			return fmt.Errorf("%w: band %d rate %s outside [0,1]", ErrInvalidSchedule, i+1, b.Rate.String())
		}
		last := i == len(bands)-1
		if b.UpperBound == nil {
			if !last {
				return fmt.Errorf("%w: only the final band may be unbounded (band %d)", ErrInvalidSchedule, i+1)
			}
			continue
		}
		if last {
			return fmt.Errorf("%w: final band must be unbounded", ErrInvalidSchedule)
		}
		if !b.UpperBound.GreaterThan(b.LowerBound) {
			return fmt.Errorf("%w: band %d upper bound %s must exceed lower bound %s", ErrInvalidSchedule, i+1, b.UpperBound.String(), b.LowerBound.String())
		}
		expectedLower = *b.UpperBound
	}
	return nil
}

// ValidateSchedule checks role-specific parameters on top of the band invariants
func ValidateSchedule(s *RateSchedule) error {
	if !IsValidRole(s.Role) {
		return fmt.Errorf("%w: unknown role '%s'", ErrInvalidSchedule, s.Role)
	}
	if s.PolicyVersion == "" {
		return fmt.Errorf("%w: policy version is required", ErrInvalidSchedule)
	}
	if s.EffectiveTo != nil && s.EffectiveTo.Before(s.EffectiveFrom) {
		return fmt.Errorf("%w: effective_to precedes effective_from", ErrInvalidSchedule)
	}
	if err := ValidateBands(s.Bands); err != nil {
		return err
	}

	switch s.Role {
	case RolePersonal:
		if s.LevyBasis != LevyBasisPreRelief && s.LevyBasis != LevyBasisPostRelief {
			return fmt.Errorf("%w: levy basis must be %s or %s", ErrInvalidSchedule, LevyBasisPreRelief, LevyBasisPostRelief)
		}
		if s.ReliefAmount.IsNegative() || (s.ReliefCeiling != nil && s.ReliefCeiling.IsNegative()) {
			return fmt.Errorf("%w: relief values must be non-negative", ErrInvalidSchedule)
		}
	case RoleCompany, RoleTrader:
		if s.TertiaryMode != TertiaryAdditive && s.TertiaryMode != TertiaryIncluded {
			return fmt.Errorf("%w: tertiary mode must be %s or %s", ErrInvalidSchedule, TertiaryAdditive, TertiaryIncluded)
		}
		if s.TertiaryRate.IsNegative() || s.TertiaryRate.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: tertiary rate outside [0,1]", ErrInvalidSchedule)
		}
		if s.TertiaryAboveSize != "" && !lo.Contains(s.Sizes(), s.TertiaryAboveSize) {
			return fmt.Errorf("%w: tertiary tier '%s' is not a size class", ErrInvalidSchedule, s.TertiaryAboveSize)
		}
		if dups := lo.FindDuplicates(s.Sizes()); len(dups) > 0 {
			return fmt.Errorf("%w: duplicate size class '%s'", ErrInvalidSchedule, dups[0])
		}
	case RoleVAT:
		if len(s.Bands) != 1 {
			return fmt.Errorf("%w: a vat schedule has exactly one band holding the standard rate", ErrInvalidSchedule)
		}
	}
	return nil
}

// ValidateLevyRule checks threshold and rate ranges
func ValidateLevyRule(l *LevyRule) error {
	one := decimal.NewFromInt(1)
	if l.Name == "" {
		return fmt.Errorf("%w: levy name is required", ErrInvalidSchedule)
	}
	if l.ThresholdAmount.IsNegative() {
		return fmt.Errorf("%w: levy '%s' threshold must be >= 0", ErrInvalidSchedule, l.Name)
	}
	for _, r := range []decimal.Decimal{l.RateBelow, l.RateAtOrAbove} {
		if r.IsNegative() || r.GreaterThan(one) {
			return fmt.Errorf("%w: levy '%s' rate %s outside [0,1]", ErrInvalidSchedule, l.Name, r.String())
		}
	}
	roles := l.Roles()
	if len(roles) == 0 {
		return fmt.Errorf("%w: levy '%s' applies to no role", ErrInvalidSchedule, l.Name)
	}
	if unknown, ok := lo.Find(roles, func(r string) bool { return !IsValidRole(r) }); ok {
		return fmt.Errorf("%w: levy '%s' names unknown role '%s'", ErrInvalidSchedule, l.Name, unknown)
	}
	return nil
}

// ValidateVATCategories checks key uniqueness and that the fallback category is non-exempt
func ValidateVATCategories(categories []VATCategory) error {
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		key := NormalizeCategoryKey(c.CategoryKey)
		if key == "" {
			return fmt.Errorf("%w: empty vat category key", ErrInvalidSchedule)
		}
		if seen[key] {
			return fmt.Errorf("%w: duplicate vat category '%s'", ErrInvalidSchedule, key)
		}
		seen[key] = true
		if key == VATFallbackCategory && c.IsExempt {
			return fmt.Errorf("%w: '%s' must not be exempt", ErrInvalidSchedule, VATFallbackCategory)
		}
	}
	return nil
}

