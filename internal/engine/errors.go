package engine

import (
	"errors"
	"fmt"

	"lcp-engine/internal/model"
)

var (
	ErrUnknownStep         = errors.New("unknown step")
	ErrStepMismatch        = errors.New("step is not the current step")
	ErrInvalidPayload      = errors.New("invalid step data")
	ErrNoPreviousStep      = errors.New("no previous step")
	ErrStepNotOnPath       = errors.New("step is not on the active path")
	ErrNotOnReview         = errors.New("flow is not on the review step")
	ErrNotOnResults        = errors.New("flow is not on the results step")
	ErrCalculationInFlight = errors.New("calculation already in progress")
	ErrStaleCalculation    = errors.New("calculation result discarded after navigation")
)

// ValidationFailure is returned by Advance when the submitted data has at
// least one blocking message. The flow has not moved.
type ValidationFailure struct {
	Step     model.StepID
	Messages []model.ValidationMessage
}

func (e *ValidationFailure) Error() string {
	crit := model.Critical(e.Messages)
	if len(crit) == 1 {
		return fmt.Sprintf("%s: %s", e.Step, crit[0].Message)
	}
	return fmt.Sprintf("%s: %d validation errors", e.Step, len(crit))
}
