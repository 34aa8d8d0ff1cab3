// Package datepolicy computes the calendar bounds a payment schedule must fit
// inside. Both the live date pickers and the final validators read their limits
// from here.
package datepolicy

import (
	"time"

	"lcp-engine/internal/model"
)

const (
	// MinStartMonths is the earliest a schedule may begin, counted from today.
	MinStartMonths = 3
	// ReferenceMonths offsets the anchor used for every maximum-date calculation.
	ReferenceMonths = 6
	// MinPeriodMonths is the shortest allowed schedule span.
	MinPeriodMonths = 6
)

// Policy evaluates date bounds against a clock.
type Policy struct {
	now func() time.Time
}

// New returns a Policy reading the given clock. A nil clock means time.Now.
func New(now func() time.Time) Policy {
	if now == nil {
		now = time.Now
	}
	return Policy{now: now}
}

// Default reads the wall clock.
func Default() Policy {
	return New(time.Now)
}

// Today is the current calendar day at UTC midnight.
func (p Policy) Today() time.Time {
	return truncateDay(p.clock()())
}

// BaseReferenceDate is today plus six months. Maximum end dates are measured
// from here rather than from today so the minimum contract horizon holds.
func (p Policy) BaseReferenceDate() time.Time {
	return p.Today().AddDate(0, ReferenceMonths, 0)
}

// MinStartDate is today plus three months, regardless of age.
func (p Policy) MinStartDate() time.Time {
	return p.Today().AddDate(0, MinStartMonths, 0)
}

// MaxEndDate is the latest end date offered to an applicant in the given band.
func (p Policy) MaxEndDate(age model.AgeRange) time.Time {
	return p.BaseReferenceDate().AddDate(MaxYearsByAge(age), 0, 0)
}

// MaxYearsOverall is the cap when the age band is not known yet.
const MaxYearsOverall = 30

// MaxYearsByAge is the longest contract horizon offered to an age band: 30
// years up to 50, 25 years for 51-56 and 20 years for 57-65. A missing band
// gets MaxYearsOverall; the dates are checked again once the profile exists.
func MaxYearsByAge(age model.AgeRange) int {
	switch age {
	case model.Age51to56:
		return 25
	case model.Age57to65:
		return 20
	default:
		return MaxYearsOverall
	}
}

// MaxEndDateUnknownAge is the loosest bound, used before the profile exists.
func (p Policy) MaxEndDateUnknownAge() time.Time {
	return p.BaseReferenceDate().AddDate(MaxYearsOverall, 0, 0)
}

func (p Policy) clock() func() time.Time {
	if p.now == nil {
		return time.Now
	}
	return p.now
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
