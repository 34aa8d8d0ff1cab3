package steps

import (
	"strings"

	json "github.com/goccy/go-json"

	"lcp-engine/internal/datepolicy"
	"lcp-engine/internal/model"
	"lcp-engine/internal/validate"
)

// DatesHandler collects the recurring schedule's start and end dates. Like the
// lump-sum step it runs before the profile, so the end date is first held to
// the loosest horizon and re-checked against the age band on entry to review.
type DatesHandler struct {
	policy datepolicy.Policy
}

func (h *DatesHandler) DataKeys() []string { return []string{"date_range"} }

func (h *DatesHandler) Decode(form *model.FormData, data json.RawMessage) error {
	if form.DateRange == nil {
		form.DateRange = &model.DateRangeData{}
	}
	return decodeInto(data, form.DateRange)
}

func (h *DatesHandler) Validate(form model.FormData) []model.ValidationMessage {
	dr := form.DateRange
	if dr == nil {
		return []model.ValidationMessage{critical("date_range", "SECTION_INCOMPLETE", "Please select a start and end date")}
	}

	var msgs []model.ValidationMessage
	if res := validate.DateRangeWithAge(h.policy, dr.StartDate, dr.EndDate, form.AgeRange()); !res.IsValid {
		field := "end_date"
		if _, ok := validate.ParseDate(dr.StartDate); !ok {
			field = "start_date"
		}
		msgs = append(msgs, critical(field, "INVALID_DATE_RANGE", res.Error))
	} else if validate.BeforeMinStart(h.policy, dr.StartDate) {
		msgs = append(msgs, warning("start_date", "DATE_BEFORE_MIN_START",
			"Payments usually start no earlier than "+validate.FormatDate(h.policy.MinStartDate())))
	}

	if strings.TrimSpace(dr.PaymentAmount) != "" {
		if res := validate.PaymentAmount(dr.PaymentAmount); !res.IsValid {
			msgs = append(msgs, critical("payment_amount", "INVALID_PAYMENT_AMOUNT", res.Error))
		}
	}
	return msgs
}

func (h *DatesHandler) Next(form model.FormData) model.StepID {
	return model.StepProfile
}
