package valuation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lcp-engine/internal/model"
	"lcp-engine/internal/validate"
)

var hundred = decimal.NewFromInt(100)

// ToInput reshapes the collected form into the service contract. Anything the
// active branch needs but lacks comes back as an input ValuationError.
func ToInput(form model.FormData) (Input, error) {
	if form.Payment == nil || form.Payment.PaymentMode == "" {
		return Input{}, inputError("Payment details are missing")
	}
	applicant, err := applicantFrom(form)
	if err != nil {
		return Input{}, err
	}

	in := Input{
		PaymentMode:           form.Payment.PaymentMode,
		AnnualIncreasePercent: form.Payment.AnnualIncreasePercent,
		Applicant:             applicant,
	}

	switch {
	case form.IsLumpSum():
		in.AnnualIncreasePercent = 0
		in.Schedule, err = lumpSumSchedule(form.LumpSums)
	case form.Mode().IsRecurring():
		in.Schedule, err = recurringSchedule(form.Payment, form.DateRange)
	default:
		err = inputError(fmt.Sprintf("Unsupported payment mode %q", form.Payment.PaymentMode))
	}
	if err != nil {
		return Input{}, err
	}

	in.TotalNominal = decimal.Zero
	for _, cf := range in.Schedule {
		in.TotalNominal = in.TotalNominal.Add(cf.Amount)
	}
	return in, nil
}

func applicantFrom(form model.FormData) (Applicant, error) {
	var missing []string
	if form.Profile == nil {
		missing = append(missing, "profile")
	}
	if form.Lifestyle == nil {
		missing = append(missing, "lifestyle")
	}
	if form.Health == nil {
		missing = append(missing, "health")
	}
	if len(missing) > 0 {
		return Applicant{}, inputError("Missing sections: " + strings.Join(missing, ", "))
	}
	return Applicant{
		AgeRange:      form.Profile.AgeRange,
		Gender:        form.Profile.Gender,
		BodyFrame:     form.Profile.BodyFrame,
		Weight:        form.Lifestyle.Weight,
		Smoker:        form.Health.Smoker,
		HealthRating:  form.Health.HealthRating,
		CardiacRating: form.Health.CardiacRating,
	}, nil
}

func lumpSumSchedule(payments []model.LumpSumPayment) ([]CashFlow, error) {
	if len(payments) == 0 {
		return nil, inputError("At least one lump-sum payment is required")
	}
	out := make([]CashFlow, 0, len(payments))
	for i, p := range payments {
		amt, err := validate.ParseAmount(p.Amount)
		if err != nil {
			return nil, inputError(fmt.Sprintf("Lump-sum payment %d has an invalid amount", i+1))
		}
		d, ok := validate.ParseDate(p.PaymentDate)
		if !ok {
			return nil, inputError(fmt.Sprintf("Lump-sum payment %d has an invalid date", i+1))
		}
		out = append(out, CashFlow{Date: validate.FormatDate(d), Amount: amt})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// recurringSchedule expands a periodic structure into one flow per period,
// stepping the amount up by the annual increase on every anniversary of the
// start date. The date-range amount takes precedence over the payment-step one.
func recurringSchedule(p *model.PaymentData, dr *model.DateRangeData) ([]CashFlow, error) {
	if dr == nil {
		return nil, inputError("Payment start and end dates are missing")
	}
	start, ok := validate.ParseDate(dr.StartDate)
	if !ok {
		return nil, inputError("Payment start date is invalid")
	}
	end, ok := validate.ParseDate(dr.EndDate)
	if !ok || !end.After(start) {
		return nil, inputError("Payment end date is invalid")
	}

	raw := p.Amount
	if strings.TrimSpace(dr.PaymentAmount) != "" {
		raw = dr.PaymentAmount
	}
	base, err := validate.ParseAmount(raw)
	if err != nil || !base.IsPositive() {
		return nil, inputError("Payment amount is missing or invalid")
	}

	period := p.PaymentMode.PeriodMonths()
	growth := decimal.NewFromInt(1).Add(decimal.NewFromInt(int64(p.AnnualIncreasePercent)).Div(hundred))

	var out []CashFlow
	for k := 0; ; k++ {
		d := addMonthsClamped(start, k*period)
		if d.After(end) {
			break
		}
		years := yearsBetween(start, d)
		amt := base.Mul(growth.Pow(decimal.NewFromInt(int64(years)))).Round(2)
		out = append(out, CashFlow{Date: validate.FormatDate(d), Amount: amt})
	}
	return out, nil
}

// addMonthsClamped moves n months ahead, pinning the day to the target month's
// last day so a schedule starting on the 31st stays at month end.
func addMonthsClamped(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func yearsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	if to.Month() < from.Month() || (to.Month() == from.Month() && to.Day() < from.Day()) {
		years--
	}
	return years
}

func inputError(msg string) *model.ValuationError {
	return &model.ValuationError{Kind: model.ErrorKindInput, Message: msg}
}
