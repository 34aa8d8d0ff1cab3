// Package steps is the declarative table behind the calculator flow: which
// sections each step edits, how it is validated and where it leads.
package steps

import (
	"lcp-engine/internal/datepolicy"
	"lcp-engine/internal/model"
)

var (
	lumpSumPath   = []model.StepID{model.StepPayment, model.StepLumpSum, model.StepProfile, model.StepHealth, model.StepReview, model.StepResults}
	recurringPath = []model.StepID{model.StepPayment, model.StepDates, model.StepProfile, model.StepHealth, model.StepReview, model.StepResults}
)

type Registry struct {
	policy   datepolicy.Policy
	handlers map[model.StepID]StepHandler
}

func NewRegistry(policy datepolicy.Policy) *Registry {
	r := &Registry{policy: policy}
	r.handlers = map[model.StepID]StepHandler{
		model.StepPayment: &PaymentHandler{},
		model.StepLumpSum: &LumpSumHandler{policy: policy},
		model.StepProfile: &ProfileHandler{},
		model.StepHealth:  &HealthHandler{},
		model.StepDates:   &DatesHandler{policy: policy},
		model.StepReview:  &ReviewHandler{registry: r},
		model.StepResults: &ResultsHandler{},
	}
	return r
}

func (r *Registry) Get(id model.StepID) (StepHandler, bool) {
	h, ok := r.handlers[id]
	return h, ok
}

// Policy is the date policy the validators were built with.
func (r *Registry) Policy() datepolicy.Policy {
	return r.policy
}

// First is where every flow begins.
func (r *Registry) First() model.StepID {
	return model.StepPayment
}

// Path is the realized step sequence for the form's payment mode. Before a
// mode is chosen the recurring branch is assumed.
func (r *Registry) Path(form model.FormData) []model.StepID {
	if form.IsLumpSum() {
		return lumpSumPath
	}
	return recurringPath
}

// OnPath reports whether step belongs to the form's active branch.
func (r *Registry) OnPath(step model.StepID, form model.FormData) bool {
	return r.indexOf(step, form) >= 0
}

// Previous is the step before step on the active branch.
func (r *Registry) Previous(step model.StepID, form model.FormData) (model.StepID, bool) {
	i := r.indexOf(step, form)
	if i <= 0 {
		return "", false
	}
	return r.Path(form)[i-1], true
}

// StepNumber gives 1-based progress. The branch not taken is left out of the
// total, so both payment modes count the same number of steps. Steps off the
// active branch report 0.
func (r *Registry) StepNumber(step model.StepID, form model.FormData) (current, total int) {
	path := r.Path(form)
	return r.indexOf(step, form) + 1, len(path)
}

// Validate runs one step's validator and tags each message with the step.
func (r *Registry) Validate(step model.StepID, form model.FormData) []model.ValidationMessage {
	h, ok := r.handlers[step]
	if !ok {
		return nil
	}
	return tag(step, h.Validate(form))
}

// ValidateAll checks every data step on the active branch.
func (r *Registry) ValidateAll(form model.FormData) []model.ValidationMessage {
	var msgs []model.ValidationMessage
	for _, step := range r.Path(form) {
		if step == model.StepReview || step == model.StepResults {
			break
		}
		msgs = append(msgs, r.Validate(step, form)...)
	}
	return msgs
}

func (r *Registry) indexOf(step model.StepID, form model.FormData) int {
	for i, s := range r.Path(form) {
		if s == step {
			return i
		}
	}
	return -1
}

func tag(step model.StepID, msgs []model.ValidationMessage) []model.ValidationMessage {
	for i := range msgs {
		if msgs[i].Step == "" {
			msgs[i].Step = step
		}
	}
	return msgs
}
