package steps

import (
	json "github.com/goccy/go-json"

	"lcp-engine/internal/model"
)

// ReviewHandler guards entry to the review screen: every section on the
// active branch must be complete and valid.
type ReviewHandler struct {
	registry *Registry
}

func (h *ReviewHandler) DataKeys() []string { return nil }

func (h *ReviewHandler) Decode(form *model.FormData, data json.RawMessage) error { return nil }

func (h *ReviewHandler) Validate(form model.FormData) []model.ValidationMessage {
	return h.registry.ValidateAll(form)
}

func (h *ReviewHandler) Next(form model.FormData) model.StepID {
	return model.StepResults
}

type ResultsHandler struct{}

func (h *ResultsHandler) DataKeys() []string { return nil }

func (h *ResultsHandler) Decode(form *model.FormData, data json.RawMessage) error { return nil }

func (h *ResultsHandler) Validate(form model.FormData) []model.ValidationMessage { return nil }

func (h *ResultsHandler) Next(form model.FormData) model.StepID { return model.StepResults }
