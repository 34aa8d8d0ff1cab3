package valuation

import (
	"github.com/shopspring/decimal"

	"lcp-engine/internal/model"
)

// CashFlow is one dated payment in the normalized schedule.
type CashFlow struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// Applicant carries the profile, lifestyle and health answers the service
// prices mortality from.
type Applicant struct {
	AgeRange      model.AgeRange `json:"age_range"`
	Gender        string         `json:"gender"`
	BodyFrame     string         `json:"body_frame"`
	Weight        string         `json:"weight"`
	Smoker        string         `json:"smoker"`
	HealthRating  string         `json:"health_rating"`
	CardiacRating string         `json:"cardiac_rating"`
}

// Input is the request contract of the valuation service. Recurring and
// lump-sum structures both arrive as a plain cash-flow schedule.
type Input struct {
	PaymentMode           model.PaymentMode `json:"payment_mode"`
	AnnualIncreasePercent int               `json:"annual_increase_percent"`
	Schedule              []CashFlow        `json:"schedule"`
	TotalNominal          decimal.Decimal   `json:"total_nominal"`
	Applicant             Applicant         `json:"applicant"`
}

// Output is the valuation service's answer.
type Output struct {
	NPV                   decimal.Decimal  `json:"npv"`
	MinPayout             decimal.Decimal  `json:"min_payout"`
	MaxPayout             decimal.Decimal  `json:"max_payout"`
	FamilyProtectionValue *decimal.Decimal `json:"family_protection_value,omitempty"`
}
