package steps

import (
	json "github.com/goccy/go-json"

	"lcp-engine/internal/model"
)

// HealthHandler edits both the health answers and the weight band; the screen
// submits them as one flat object.
type HealthHandler struct{}

func (h *HealthHandler) DataKeys() []string { return []string{"health", "lifestyle"} }

func (h *HealthHandler) Decode(form *model.FormData, data json.RawMessage) error {
	if form.Health == nil {
		form.Health = &model.HealthData{}
	}
	if form.Lifestyle == nil {
		form.Lifestyle = &model.LifestyleData{}
	}
	if err := decodeInto(data, form.Health); err != nil {
		return err
	}
	return decodeInto(data, form.Lifestyle)
}

func (h *HealthHandler) Validate(form model.FormData) []model.ValidationMessage {
	msgs := fieldMessages(form.Health, "health")
	return append(msgs, fieldMessages(form.Lifestyle, "lifestyle")...)
}

func (h *HealthHandler) Next(form model.FormData) model.StepID {
	return model.StepReview
}
