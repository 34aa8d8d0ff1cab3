package model

// ValidationMessage is a single finding produced while checking a step's data.
// CRITICAL messages block the step from advancing; WARNING messages are shown
// next to the field but let the user continue.
type ValidationMessage struct {
	Step    StepID `json:"step,omitempty"`
	Field   string `json:"field,omitempty"`
	Level   string `json:"level"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	LevelCritical = "CRITICAL"
	LevelWarning  = "WARNING"
)

// HasCritical reports whether any message blocks advancing.
func HasCritical(msgs []ValidationMessage) bool {
	for _, m := range msgs {
		if m.Level == LevelCritical {
			return true
		}
	}
	return false
}

// Critical returns only the blocking messages.
func Critical(msgs []ValidationMessage) []ValidationMessage {
	var out []ValidationMessage
	for _, m := range msgs {
		if m.Level == LevelCritical {
			out = append(out, m)
		}
	}
	return out
}
