// Package validate holds the pure field checks shared by the step validators
// and the live-validation endpoints. None of them perform I/O, so they are
// cheap enough to run on every keystroke.
package validate

// Result is the outcome of a single check.
type Result struct {
	IsValid bool   `json:"is_valid"`
	Error   string `json:"error,omitempty"`
}

func ok() Result { return Result{IsValid: true} }

func fail(msg string) Result { return Result{Error: msg} }
