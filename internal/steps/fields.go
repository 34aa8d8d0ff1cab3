package steps

import (
	"lcp-engine/internal/model"
	"lcp-engine/internal/validate"
)

// fieldMessages turns struct-tag violations into blocking messages. A missing
// selection and an unknown option get different codes so the UI can tell an
// untouched control from a tampered one.
func fieldMessages(section any, name string) []model.ValidationMessage {
	issues := validate.Fields(section)
	if len(issues) == 0 {
		return nil
	}
	msgs := make([]model.ValidationMessage, 0, len(issues))
	for _, is := range issues {
		field := is.Field
		if field == "section" {
			field = name
		}
		code := "INVALID_SELECTION"
		switch is.Rule {
		case "required":
			code = "MISSING_SELECTION"
			if is.Field == "section" {
				code = "SECTION_INCOMPLETE"
			}
		case "min", "max":
			code = "OUT_OF_RANGE"
		}
		msgs = append(msgs, critical(field, code, is.Message))
	}
	return msgs
}
