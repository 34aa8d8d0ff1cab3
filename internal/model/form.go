package model

// PaymentMode is how the settlement pays out.
type PaymentMode string

const (
	ModeMonthly   PaymentMode = "Monthly"
	ModeQuarterly PaymentMode = "Quarterly"
	ModeSemi      PaymentMode = "Semi"
	ModeLumpSum   PaymentMode = "LumpSum"
)

// IsRecurring reports whether the mode is a periodic schedule.
func (m PaymentMode) IsRecurring() bool {
	return m == ModeMonthly || m == ModeQuarterly || m == ModeSemi
}

// PeriodMonths is the spacing between recurring payments. Zero for lump sums.
func (m PaymentMode) PeriodMonths() int {
	switch m {
	case ModeMonthly:
		return 1
	case ModeQuarterly:
		return 3
	case ModeSemi:
		return 6
	}
	return 0
}

// AgeRange is one of the six applicant age bands.
type AgeRange string

const (
	Age18to25 AgeRange = "18-25"
	Age26to35 AgeRange = "26-35"
	Age36to45 AgeRange = "36-45"
	Age46to50 AgeRange = "46-50"
	Age51to56 AgeRange = "51-56"
	Age57to65 AgeRange = "57-65"
)

var AgeRanges = []AgeRange{Age18to25, Age26to35, Age36to45, Age46to50, Age51to56, Age57to65}

// MaxLumpSumPayments bounds the number of one-time payments in a lump-sum structure.
const MaxLumpSumPayments = 10

type PaymentData struct {
	PaymentMode           PaymentMode `json:"payment_mode" validate:"required,oneof=Monthly Quarterly Semi LumpSum"`
	Amount                string      `json:"amount,omitempty"`
	AnnualIncreasePercent int         `json:"annual_increase_percent" validate:"min=0,max=6"`
}

type LumpSumPayment struct {
	Amount      string `json:"amount" validate:"required"`
	PaymentDate string `json:"payment_date" validate:"required"`
}

type ProfileData struct {
	AgeRange  AgeRange `json:"age_range" validate:"required,oneof=18-25 26-35 36-45 46-50 51-56 57-65"`
	Gender    string   `json:"gender" validate:"required,oneof=Male Female"`
	BodyFrame string   `json:"body_frame" validate:"required,oneof=Small Medium Large"`
}

type LifestyleData struct {
	Weight string `json:"weight" validate:"required,oneof=Underweight Normal Overweight Obesity SevereObesity"`
}

type HealthData struct {
	Smoker        string `json:"smoker" validate:"required,oneof=Yes No"`
	HealthRating  string `json:"health_rating" validate:"required,oneof=Great Normal Fair Below"`
	CardiacRating string `json:"cardiac_rating" validate:"required,oneof=Normal Medicated High Unsure"`
}

type DateRangeData struct {
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	PaymentAmount string `json:"payment_amount,omitempty"`
}

// FormData is the aggregate of every section the user has filled in so far.
// A nil section has not been entered yet.
type FormData struct {
	Payment   *PaymentData     `json:"payment,omitempty"`
	LumpSums  []LumpSumPayment `json:"lump_sums,omitempty"`
	Profile   *ProfileData     `json:"profile,omitempty"`
	Lifestyle *LifestyleData   `json:"lifestyle,omitempty"`
	Health    *HealthData      `json:"health,omitempty"`
	DateRange *DateRangeData   `json:"date_range,omitempty"`
}

// Mode returns the selected payment mode, or "" before the payment step.
func (f FormData) Mode() PaymentMode {
	if f.Payment == nil {
		return ""
	}
	return f.Payment.PaymentMode
}

// IsLumpSum reports whether the lump-sum branch is active.
func (f FormData) IsLumpSum() bool {
	return f.Mode() == ModeLumpSum
}

// AgeRange returns the applicant's band, or "" when the profile is missing.
func (f FormData) AgeRange() AgeRange {
	if f.Profile == nil {
		return ""
	}
	return f.Profile.AgeRange
}

// Clone returns a deep copy so a candidate edit can be validated without
// touching the committed form.
func (f FormData) Clone() FormData {
	out := FormData{}
	if f.Payment != nil {
		p := *f.Payment
		out.Payment = &p
	}
	if f.LumpSums != nil {
		out.LumpSums = append([]LumpSumPayment(nil), f.LumpSums...)
	}
	if f.Profile != nil {
		p := *f.Profile
		out.Profile = &p
	}
	if f.Lifestyle != nil {
		l := *f.Lifestyle
		out.Lifestyle = &l
	}
	if f.Health != nil {
		h := *f.Health
		out.Health = &h
	}
	if f.DateRange != nil {
		d := *f.DateRange
		out.DateRange = &d
	}
	return out
}

// DropInactiveBranch clears whichever of DateRange/LumpSums does not belong to
// the selected mode, so at most one of them is ever populated.
func (f *FormData) DropInactiveBranch() {
	switch {
	case f.IsLumpSum():
		f.DateRange = nil
	case f.Mode().IsRecurring():
		f.LumpSums = nil
	}
}
