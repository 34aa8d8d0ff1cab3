package engine

import (
	"time"

	"lcp-engine/internal/model"
)

// Progress is the 1-based position of the current step on the active branch.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// State is everything a renderer needs to draw the current screen.
type State struct {
	CurrentStep model.StepID           `json:"current_step"`
	FormData    model.FormData         `json:"form_data"`
	Result      *model.ValuationResult `json:"result,omitempty"`
	Error       *model.ValuationError  `json:"error,omitempty"`
	Progress    Progress               `json:"progress"`
	Path        []model.StepID         `json:"path"`
	Calculating bool                   `json:"calculating"`
	Editing     bool                   `json:"editing"`
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, total := f.registry.StepNumber(f.current, f.form)
	st := State{
		CurrentStep: f.current,
		FormData:    f.form.Clone(),
		Progress:    Progress{Current: cur, Total: total},
		Path:        append([]model.StepID(nil), f.registry.Path(f.form)...),
		Calculating: f.calculating,
		Editing:     f.editing,
	}
	if f.result != nil {
		r := *f.result
		st.Result = &r
	}
	if f.valErr != nil {
		e := *f.valErr
		st.Error = &e
	}
	return st
}

// StepNumber is the current step's progress.
func (f *Flow) StepNumber() (current, total int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registry.StepNumber(f.current, f.form)
}

// Snapshot is the persisted form of a flow. A pending calculation is not part
// of it; a restored flow is never calculating.
type Snapshot struct {
	CurrentStep model.StepID           `json:"current_step"`
	FormData    model.FormData         `json:"form_data"`
	Result      *model.ValuationResult `json:"result,omitempty"`
	Error       *model.ValuationError  `json:"error,omitempty"`
	Editing     bool                   `json:"editing,omitempty"`
	SavedAt     time.Time              `json:"saved_at"`
}

func (f *Flow) Snapshot() Snapshot {
	st := f.State()
	return Snapshot{
		CurrentStep: st.CurrentStep,
		FormData:    st.FormData,
		Result:      st.Result,
		Error:       st.Error,
		Editing:     st.Editing,
		SavedAt:     time.Now().UTC(),
	}
}

// Restore replaces the flow's state with a snapshot. An unknown step, or a
// results step without a result, restarts at review or the first step.
func (f *Flow) Restore(s Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidate()
	f.form = s.FormData.Clone()
	f.result = s.Result
	f.valErr = s.Error
	f.editing = s.Editing
	f.current = s.CurrentStep

	switch {
	case !f.registry.OnPath(f.current, f.form):
		f.current = f.registry.First()
		f.result, f.valErr, f.editing = nil, nil, false
	case f.current == model.StepResults && f.result == nil:
		f.current = model.StepReview
	}
}
