// Package engine holds the calculator flow's state machine. A Flow owns the
// collected form, the current step and the outcome of the last valuation, and
// is the only thing allowed to change them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	json "github.com/goccy/go-json"

	"lcp-engine/internal/model"
	"lcp-engine/internal/steps"
)

// Valuator prices a complete form. It returns a *model.ValuationError for
// every failure the user can act on.
type Valuator interface {
	Valuate(ctx context.Context, form model.FormData) (model.ValuationResult, error)
}

type Flow struct {
	mu       sync.Mutex
	registry *steps.Registry
	valuator Valuator
	log      *slog.Logger

	current model.StepID
	form    model.FormData
	result  *model.ValuationResult
	valErr  *model.ValuationError
	// editing is set when a step was opened from review; submitting it
	// returns to review instead of walking the rest of the path.
	editing bool

	calculating bool
	generation  uint64
}

func New(registry *steps.Registry, valuator Valuator, log *slog.Logger) *Flow {
	if log == nil {
		log = slog.Default()
	}
	return &Flow{
		registry: registry,
		valuator: valuator,
		log:      log,
		current:  registry.First(),
	}
}

// Start resets the flow to the first step with an empty form.
func (f *Flow) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.registry.First()
	f.form = model.FormData{}
	f.result = nil
	f.valErr = nil
	f.editing = false
	f.invalidate()
}

// UpdateSection merges partial data into the sections the current step edits
// without validating it. It does not move the flow. Only the step on screen
// can be updated, so a payment mode change never strands the flow off its
// path; the inactive branch's data is dropped as soon as the mode changes.
func (f *Flow) UpdateSection(step model.StepID, partial json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	h, ok := f.registry.Get(step)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStep, step)
	}
	if step != f.current {
		return fmt.Errorf("%w: updating %s, current %s", ErrStepMismatch, step, f.current)
	}
	if step == model.StepReview || step == model.StepResults {
		return fmt.Errorf("%w: %s is not a data step", ErrStepMismatch, step)
	}
	next := f.form.Clone()
	if err := h.Decode(&next, partial); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if step == model.StepPayment {
		next.DropInactiveBranch()
	}
	f.form = next
	// Any edit invalidates a restored outcome.
	f.clearOutcome()
	return nil
}

// Advance validates data for the current step and, if nothing blocks, commits
// it and moves to the resolved next step. Entering review also requires the
// whole active branch to be valid. Warnings are returned on success too.
func (f *Flow) Advance(step model.StepID, data json.RawMessage) ([]model.ValidationMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	h, ok := f.registry.Get(step)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStep, step)
	}
	if step != f.current {
		return nil, fmt.Errorf("%w: submitted %s, current %s", ErrStepMismatch, step, f.current)
	}
	if step == model.StepReview || step == model.StepResults {
		return nil, fmt.Errorf("%w: %s is not a data step", ErrStepMismatch, step)
	}

	candidate := f.form.Clone()
	if err := h.Decode(&candidate, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if step == model.StepPayment {
		candidate.DropInactiveBranch()
	}

	msgs := f.registry.Validate(step, candidate)
	if model.HasCritical(msgs) {
		return msgs, &ValidationFailure{Step: step, Messages: msgs}
	}

	next := h.Next(candidate)
	if f.editing && f.complete(candidate) {
		next = model.StepReview
	}
	if next == model.StepReview {
		all := f.registry.ValidateAll(candidate)
		if model.HasCritical(all) {
			return all, &ValidationFailure{Step: step, Messages: all}
		}
	}

	f.form = candidate
	f.log.Debug("step advanced", "from", step, "to", next, "editing", f.editing)
	f.current = next
	if next == model.StepReview {
		f.editing = false
	}
	return msgs, nil
}

// GoBack moves to the previous step of the realized path. Data is kept.
func (f *Flow) GoBack() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current == model.StepResults {
		return fmt.Errorf("%w: use back to review from results", ErrNoPreviousStep)
	}
	prev, ok := f.registry.Previous(f.current, f.form)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPreviousStep, f.current)
	}
	if f.current == model.StepReview {
		f.clearOutcome()
	}
	f.log.Debug("step back", "from", f.current, "to", prev)
	f.current = prev
	f.editing = false
	return nil
}

// EditFrom jumps from review straight to an earlier step, keeping all data.
func (f *Flow) EditFrom(step model.StepID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.registry.Get(step); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStep, step)
	}
	if f.current != model.StepReview {
		return ErrNotOnReview
	}
	if step == model.StepReview || step == model.StepResults || !f.registry.OnPath(step, f.form) {
		return fmt.Errorf("%w: %s", ErrStepNotOnPath, step)
	}
	f.clearOutcome()
	f.current = step
	f.editing = true
	f.log.Debug("editing step from review", "step", step)
	return nil
}

// Calculate values the form from review. A second call while one is pending
// returns ErrCalculationInFlight and does not reach the service. If the user
// navigates while the call is pending, its outcome is dropped and
// ErrStaleCalculation is returned. Valuation failures are stored on the flow
// and returned; the flow stays on review.
func (f *Flow) Calculate(ctx context.Context) error {
	f.mu.Lock()
	if f.calculating {
		f.mu.Unlock()
		return ErrCalculationInFlight
	}
	if f.current != model.StepReview {
		f.mu.Unlock()
		return ErrNotOnReview
	}
	f.calculating = true
	f.result = nil
	f.valErr = nil
	gen := f.generation
	form := f.form.Clone()
	f.mu.Unlock()

	res, err := f.valuator.Valuate(ctx, form)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.generation {
		f.log.Warn("discarding stale valuation", "generation", gen, "current_generation", f.generation)
		return ErrStaleCalculation
	}
	f.calculating = false

	if err != nil {
		var ve *model.ValuationError
		if !errors.As(err, &ve) {
			ve = &model.ValuationError{Kind: model.ErrorKindService, Message: err.Error()}
		}
		f.valErr = ve
		return ve
	}
	f.result = &res
	f.current = model.StepResults
	return nil
}

// BackToReview leaves results for review, discarding the valuation outcome.
func (f *Flow) BackToReview() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != model.StepResults {
		return ErrNotOnResults
	}
	f.clearOutcome()
	f.current = model.StepReview
	return nil
}

// complete reports whether every section on the candidate's branch is valid.
func (f *Flow) complete(form model.FormData) bool {
	return !model.HasCritical(f.registry.ValidateAll(form))
}

// clearOutcome drops the valuation outcome and orphans any pending call.
// Callers hold mu.
func (f *Flow) clearOutcome() {
	f.result = nil
	f.valErr = nil
	f.invalidate()
}

func (f *Flow) invalidate() {
	f.generation++
	f.calculating = false
}
