package tax

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Regime selects the computation pipeline
type Regime string

const (
	RegimePAYE          Regime = "paye"
	RegimeSmallBusiness Regime = "small_business"
	RegimeCIT           Regime = "cit"
	RegimeVAT           Regime = "vat"
)

// Discriminator keys understood by ParseRequest
const (
	DiscBusinessSize     = "business_size"
	DiscVATCategory      = "vat_category"
	DiscBusinessClaimant = "is_business_claimant"
)

// TaxRequest is the untyped entry request. ParseRequest narrows it to a regime-specific variant.
type TaxRequest struct {
	Regime         Regime
	Amount         decimal.Decimal
	AsOf           time.Time
	Discriminators map[string]string
}

// Request is one of PAYERequest, BusinessRequest or VATRequest
type Request interface {
	regime() Regime
}

type PAYERequest struct {
	Amount decimal.Decimal
	AsOf   time.Time
}

// BusinessRequest covers both small_business and cit. BusinessSize is validated
// against the resolved schedule, since only the schedule knows its size classes.
type BusinessRequest struct {
	Regime       Regime
	Amount       decimal.Decimal
	AsOf         time.Time
	BusinessSize string
}

type VATRequest struct {
	Amount           decimal.Decimal
	AsOf             time.Time
	Category         string
	BusinessClaimant bool
}

func (PAYERequest) regime() Regime       { return RegimePAYE }
func (r BusinessRequest) regime() Regime { return r.Regime }
func (VATRequest) regime() Regime        { return RegimeVAT }

// ParseRequest validates the amount and discriminators and returns the regime variant
func ParseRequest(req TaxRequest) (Request, error) {
	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.AsOf.IsZero() {
		return nil, fmt.Errorf("%w: as-of date is required", ErrMissingDiscriminator)
	}
	asOf := DateOnly(req.AsOf)

	switch req.Regime {
	case RegimePAYE:
		return PAYERequest{Amount: req.Amount, AsOf: asOf}, nil
	case RegimeSmallBusiness, RegimeCIT:
		return BusinessRequest{
			Regime:       req.Regime,
			Amount:       req.Amount,
			AsOf:         asOf,
			BusinessSize: strings.ToLower(strings.TrimSpace(req.Discriminators[DiscBusinessSize])),
		}, nil
	case RegimeVAT:
		category := strings.TrimSpace(req.Discriminators[DiscVATCategory])
		if category == "" {
			return nil, fmt.Errorf("%w: %s is required for vat", ErrMissingDiscriminator, DiscVATCategory)
		}
		claimant := false
		if raw := strings.TrimSpace(req.Discriminators[DiscBusinessClaimant]); raw != "" {
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %s must be true or false, got '%s'", ErrMissingDiscriminator, DiscBusinessClaimant, raw)
			}
			claimant = parsed
		}
		return VATRequest{Amount: req.Amount, AsOf: asOf, Category: category, BusinessClaimant: claimant}, nil
	}
	return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedRegime, req.Regime)
}

// ValidateAmount rejects negative amounts
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s is negative", ErrInvalidAmount, amount.String())
	}
	return nil
}

// ParseAmount parses a decimal string amount
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: '%s' is not a number", ErrInvalidAmount, s)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// AmountFromFloat converts a float input, rejecting NaN and infinities
func AmountFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: non-finite value", ErrInvalidAmount)
	}
	d := decimal.NewFromFloat(f)
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// DateOnly truncates t to midnight UTC of its calendar date
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
