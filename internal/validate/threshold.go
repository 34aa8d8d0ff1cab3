package validate

import "github.com/shopspring/decimal"

// MinimumOffer is the smallest maximum payout worth presenting as an offer.
var MinimumOffer = decimal.NewFromInt(10_000)

// OfferThreshold rejects valuations whose maximum payout is under MinimumOffer.
// The error text is shown as-is on the "No Offers Available" screen.
func OfferThreshold(maxPayout decimal.Decimal) Result {
	if maxPayout.LessThan(MinimumOffer) {
		return fail("No offers available: the estimated maximum payout of $" + FormatUSD(maxPayout) +
			" is below our $" + FormatUSD(MinimumOffer) + " minimum offer.")
	}
	return ok()
}
