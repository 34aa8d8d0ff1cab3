package validate

import (
	"fmt"
	"strings"
	"time"

	"lcp-engine/internal/datepolicy"
	"lcp-engine/internal/model"
)

const dateLayout = "2006-01-02"

// ParseDate parses a "YYYY-MM-DD" calendar date without going through the
// layout parser, rejecting impossible days such as 2025-02-31.
func ParseDate(s string) (time.Time, bool) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return time.Time{}, false
	}
	for i, c := range []byte(s) {
		if i == 4 || i == 7 {
			continue
		}
		if c < '0' || c > '9' {
			return time.Time{}, false
		}
	}
	y := int(s[0]-'0')*1000 + int(s[1]-'0')*100 + int(s[2]-'0')*10 + int(s[3]-'0')
	m := time.Month(int(s[5]-'0')*10 + int(s[6]-'0'))
	d := int(s[8]-'0')*10 + int(s[9]-'0')
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate is the inverse of ParseDate.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// DateRangeWithAge checks a schedule's start and end dates together: the end
// must be at least six months after the start and no later than the maximum
// end date for the applicant's age band.
func DateRangeWithAge(p datepolicy.Policy, start, end string, age model.AgeRange) Result {
	if strings.TrimSpace(start) == "" {
		return fail("Please select a start date")
	}
	s, valid := ParseDate(start)
	if !valid {
		return fail("Start date is not a valid date")
	}
	if strings.TrimSpace(end) == "" {
		return fail("Please select an end date")
	}
	e, valid := ParseDate(end)
	if !valid {
		return fail("End date is not a valid date")
	}
	if !e.After(s) {
		return fail("End date must be after the start date")
	}
	if e.Before(s.AddDate(0, datepolicy.MinPeriodMonths, 0)) {
		return fail(fmt.Sprintf("Payment period must be at least %d months", datepolicy.MinPeriodMonths))
	}
	if limit := p.MaxEndDate(age); e.After(limit) {
		if age == "" {
			return fail(fmt.Sprintf("End date exceeds the %d-year maximum term (latest allowed end date is %s)",
				datepolicy.MaxYearsOverall, FormatDate(limit)))
		}
		return fail(fmt.Sprintf("End date exceeds the %d-year maximum term for age range %s (latest allowed end date is %s)",
			datepolicy.MaxYearsByAge(age), age, FormatDate(limit)))
	}
	return ok()
}

// PaymentDate checks a single lump-sum payment date. An empty age band uses
// the loosest cap since the profile has not been entered yet.
func PaymentDate(p datepolicy.Policy, date string, age model.AgeRange) Result {
	if strings.TrimSpace(date) == "" {
		return fail("Please select a payment date")
	}
	d, valid := ParseDate(date)
	if !valid {
		return fail("Payment date is not a valid date")
	}
	if !d.After(p.Today()) {
		return fail("Payment date must be in the future")
	}
	limit, years := p.MaxEndDate(age), datepolicy.MaxYearsByAge(age)
	if d.After(limit) {
		if age == "" {
			return fail(fmt.Sprintf("Payment date exceeds the %d-year maximum term (latest allowed date is %s)", years, FormatDate(limit)))
		}
		return fail(fmt.Sprintf("Payment date exceeds the %d-year maximum term for age range %s (latest allowed date is %s)",
			years, age, FormatDate(limit)))
	}
	return ok()
}

// BeforeMinStart reports whether a well-formed date falls before the earliest
// start date the date pickers offer.
func BeforeMinStart(p datepolicy.Policy, date string) bool {
	d, valid := ParseDate(date)
	return valid && d.Before(p.MinStartDate())
}
