package tax

import "errors"

// Error taxonomy of the engine. Every error is recoverable by the caller.
var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrNoApplicableSchedule = errors.New("no applicable schedule")
	ErrScheduleNotFound     = errors.New("schedule not found")
	ErrScheduleUnavailable  = errors.New("schedule unavailable")
	ErrMissingDiscriminator = errors.New("missing discriminator")
	ErrUnknownVATCategory   = errors.New("unknown vat category")
	ErrUnsupportedRegime    = errors.New("unsupported regime")
)
