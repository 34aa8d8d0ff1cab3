package validate

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var (
	MinPaymentAmount = decimal.NewFromInt(100)
	MaxPaymentAmount = decimal.NewFromInt(10_000_000)
)

// PaymentAmount accepts amounts from $100 to $10,000,000 inclusive.
func PaymentAmount(amount string) Result {
	s := strings.TrimSpace(amount)
	if s == "" {
		return fail("Please enter a payment amount")
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return fail("Payment amount must be a number")
	}
	switch {
	case !v.IsPositive():
		return fail("Payment amount must be greater than zero")
	case v.LessThan(MinPaymentAmount):
		return fail("Minimum payment amount is $" + FormatUSD(MinPaymentAmount))
	case v.GreaterThan(MaxPaymentAmount):
		return fail("Maximum payment amount is $" + FormatUSD(MaxPaymentAmount))
	}
	return ok()
}

// ParseAmount parses an amount that has already passed PaymentAmount.
func ParseAmount(amount string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(amount))
}

// FormatUSD renders a dollar value with thousands separators and cents.
func FormatUSD(v decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", v.Round(2).InexactFloat64())
}
