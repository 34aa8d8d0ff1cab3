package steps

import (
	"fmt"

	json "github.com/goccy/go-json"

	"lcp-engine/internal/datepolicy"
	"lcp-engine/internal/model"
	"lcp-engine/internal/validate"
)

// LumpSumHandler collects the one-time payments. It runs before the profile
// step, so payment dates are first checked against the loosest horizon and
// re-checked against the applicant's age band when the review is entered.
type LumpSumHandler struct {
	policy datepolicy.Policy
}

func (h *LumpSumHandler) DataKeys() []string { return []string{"lump_sums"} }

// Decode replaces the payment list; a partial list is not meaningful.
func (h *LumpSumHandler) Decode(form *model.FormData, data json.RawMessage) error {
	if len(data) == 0 {
		return nil
	}
	var payments []model.LumpSumPayment
	if err := json.Unmarshal(data, &payments); err != nil {
		return err
	}
	form.LumpSums = payments
	return nil
}

func (h *LumpSumHandler) Validate(form model.FormData) []model.ValidationMessage {
	var msgs []model.ValidationMessage
	n := len(form.LumpSums)
	if n == 0 || n > model.MaxLumpSumPayments {
		return append(msgs, critical("lump_sums", "INVALID_LUMP_SUM_COUNT",
			fmt.Sprintf("Enter between 1 and %d lump-sum payments", model.MaxLumpSumPayments)))
	}

	seen := make(map[string]int, n)
	for i, p := range form.LumpSums {
		prefix := fmt.Sprintf("lump_sums[%d]", i)
		if res := validate.PaymentAmount(p.Amount); !res.IsValid {
			msgs = append(msgs, critical(prefix+".amount", "INVALID_PAYMENT_AMOUNT", res.Error))
		}
		res := validate.PaymentDate(h.policy, p.PaymentDate, form.AgeRange())
		if !res.IsValid {
			msgs = append(msgs, critical(prefix+".payment_date", "INVALID_PAYMENT_DATE", res.Error))
			continue
		}
		if j, dup := seen[p.PaymentDate]; dup {
			msgs = append(msgs, critical(prefix+".payment_date", "DUPLICATE_PAYMENT_DATE",
				fmt.Sprintf("Payment %d has the same date as payment %d", i+1, j+1)))
		}
		seen[p.PaymentDate] = i
		if validate.BeforeMinStart(h.policy, p.PaymentDate) {
			msgs = append(msgs, warning(prefix+".payment_date", "DATE_BEFORE_MIN_START",
				"Payments usually start no earlier than "+validate.FormatDate(h.policy.MinStartDate())))
		}
	}
	return msgs
}

func (h *LumpSumHandler) Next(form model.FormData) model.StepID {
	return model.StepProfile
}
