package steps

import (
	json "github.com/goccy/go-json"

	"lcp-engine/internal/model"
)

type ProfileHandler struct{}

func (h *ProfileHandler) DataKeys() []string { return []string{"profile"} }

func (h *ProfileHandler) Decode(form *model.FormData, data json.RawMessage) error {
	if form.Profile == nil {
		form.Profile = &model.ProfileData{}
	}
	return decodeInto(data, form.Profile)
}

func (h *ProfileHandler) Validate(form model.FormData) []model.ValidationMessage {
	return fieldMessages(form.Profile, "profile")
}

func (h *ProfileHandler) Next(form model.FormData) model.StepID {
	return model.StepHealth
}
