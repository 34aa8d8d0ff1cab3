package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValuationResult is the payout range shown on the results screen.
type ValuationResult struct {
	NPV                   decimal.Decimal  `json:"npv"`
	MinPayout             decimal.Decimal  `json:"min_payout"`
	MaxPayout             decimal.Decimal  `json:"max_payout"`
	FamilyProtectionValue *decimal.Decimal `json:"family_protection_value,omitempty"`
	CalculatedAt          time.Time        `json:"calculated_at"`
}

type ValuationErrorKind string

const (
	// ErrorKindInput means the form could not be mapped to a service request.
	ErrorKindInput ValuationErrorKind = "input"
	// ErrorKindService covers transport failures, timeouts and service-side errors.
	ErrorKindService ValuationErrorKind = "service"
	// ErrorKindThreshold is the "No Offers Available" business rejection.
	ErrorKindThreshold ValuationErrorKind = "threshold"
)

// ValuationError is what the review screen shows when calculate did not
// produce a usable result.
type ValuationError struct {
	Kind        ValuationErrorKind `json:"kind"`
	Message     string             `json:"message"`
	Suggestions []string           `json:"suggestions,omitempty"`
}

func (e *ValuationError) Error() string {
	return string(e.Kind) + ": " + e.Message
}
