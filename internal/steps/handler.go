package steps

import (
	json "github.com/goccy/go-json"

	"lcp-engine/internal/model"
)

// StepHandler defines the contract for every step of the flow. Each step
// decodes the data its screen submits, checks it, and names the step that
// follows.
type StepHandler interface {
	// DataKeys lists the FormData sections the step edits.
	DataKeys() []string
	// Decode merges submitted data into the step's sections. Fields absent
	// from data keep their current values.
	Decode(form *model.FormData, data json.RawMessage) error
	// Validate checks the step's sections in the context of the whole form.
	Validate(form model.FormData) []model.ValidationMessage
	// Next resolves the following step from the current form.
	Next(form model.FormData) model.StepID
}

func critical(field, code, message string) model.ValidationMessage {
	return model.ValidationMessage{Field: field, Level: model.LevelCritical, Code: code, Message: message}
}

func warning(field, code, message string) model.ValidationMessage {
	return model.ValidationMessage{Field: field, Level: model.LevelWarning, Code: code, Message: message}
}

// decodeInto unmarshals data over an existing section value. Empty data is a
// no-op so callers can re-validate without resubmitting.
func decodeInto(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
