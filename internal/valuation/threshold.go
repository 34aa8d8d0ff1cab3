package valuation

import (
	"lcp-engine/internal/model"
	"lcp-engine/internal/validate"
)

// Remediations are offered whenever a valuation falls under the minimum offer.
var Remediations = []string{
	"Increase the payment amount",
	"Extend the payment date range",
	"Add more lump-sum payments",
	"Contact a settlement specialist to review your options",
}

// FromOutput maps the service answer onto a result, unless the maximum payout
// is under the minimum offer. Such a valuation is returned as a threshold
// ValuationError even though the service call itself succeeded.
func FromOutput(out Output) (model.ValuationResult, error) {
	if out.MaxPayout.LessThan(out.MinPayout) {
		return model.ValuationResult{}, &model.ValuationError{
			Kind:    model.ErrorKindService,
			Message: "The valuation service returned an inconsistent payout range",
		}
	}
	if res := validate.OfferThreshold(out.MaxPayout); !res.IsValid {
		return model.ValuationResult{}, &model.ValuationError{
			Kind:        model.ErrorKindThreshold,
			Message:     res.Error,
			Suggestions: append([]string(nil), Remediations...),
		}
	}
	result := model.ValuationResult{
		NPV:       out.NPV,
		MinPayout: out.MinPayout,
		MaxPayout: out.MaxPayout,
	}
	if out.FamilyProtectionValue != nil {
		v := *out.FamilyProtectionValue
		result.FamilyProtectionValue = &v
	}
	return result, nil
}
