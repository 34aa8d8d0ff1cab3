package model

// StepID identifies one screen of the calculator flow.
type StepID string

const (
	StepPayment StepID = "payment"
	StepLumpSum StepID = "lump_sum"
	StepProfile StepID = "profile"
	StepHealth  StepID = "health"
	StepDates   StepID = "dates"
	StepReview  StepID = "review"
	StepResults StepID = "results"
)

// ParseStepID maps a raw identifier onto a known step.
func ParseStepID(s string) (StepID, bool) {
	switch id := StepID(s); id {
	case StepPayment, StepLumpSum, StepProfile, StepHealth, StepDates, StepReview, StepResults:
		return id, true
	}
	return "", false
}
