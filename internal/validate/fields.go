package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldIssue is one failed struct-tag rule, keyed by the field's JSON name.
type FieldIssue struct {
	Field   string
	Rule    string
	Message string
}

var fieldValidator = newFieldValidator()

func newFieldValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Fields runs the `validate` struct tags of a section and reports every
// violated rule. A nil pointer section yields a single "section" issue.
func Fields(section any) []FieldIssue {
	if rv := reflect.ValueOf(section); !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return []FieldIssue{{Field: "section", Rule: "required", Message: "This section has not been completed"}}
	}
	err := fieldValidator.Struct(section)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldIssue{{Field: "section", Rule: "invalid", Message: err.Error()}}
	}
	issues := make([]FieldIssue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, FieldIssue{Field: fe.Field(), Rule: fe.Tag(), Message: describe(fe)})
	}
	return issues
}

func describe(fe validator.FieldError) string {
	label := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Please select a %s", label)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", label, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", label)
}
