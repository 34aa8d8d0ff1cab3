package handler

import (
	"slices"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"lcp-engine/internal/datepolicy"
	"lcp-engine/internal/model"
	"lcp-engine/internal/validate"
)

type amountRequest struct {
	Amount string `json:"amount"`
}

type datesRequest struct {
	StartDate string         `json:"start_date"`
	EndDate   string         `json:"end_date"`
	AgeRange  model.AgeRange `json:"age_range"`
}

type datesResponse struct {
	validate.Result
	BeforeMinStart bool `json:"before_min_start"`
}

type sanitizeRequest struct {
	Value string `json:"value"`
}

type boundsResponse struct {
	Today             string         `json:"today"`
	MinStartDate      string         `json:"min_start_date"`
	BaseReferenceDate string         `json:"base_reference_date"`
	MaxEndDate        string         `json:"max_end_date"`
	MaxYears          int            `json:"max_years"`
	AgeRange          model.AgeRange `json:"age_range,omitempty"`
}

func decodeBody(ctx *fasthttp.RequestCtx, v any) bool {
	if err := json.Unmarshal(ctx.PostBody(), v); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func knownAgeRange(age model.AgeRange) bool {
	return slices.Contains(model.AgeRanges, age)
}

func (h *Handler) validateAmount(ctx *fasthttp.RequestCtx) {
	var req amountRequest
	if !decodeBody(ctx, &req) {
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, validate.PaymentAmount(req.Amount))
}

func (h *Handler) validateDates(ctx *fasthttp.RequestCtx) {
	var req datesRequest
	if !decodeBody(ctx, &req) {
		return
	}
	if req.AgeRange != "" && !knownAgeRange(req.AgeRange) {
		writeError(ctx, fasthttp.StatusBadRequest, "Unknown age range: "+string(req.AgeRange))
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, datesResponse{
		Result:         validate.DateRangeWithAge(h.policy, req.StartDate, req.EndDate, req.AgeRange),
		BeforeMinStart: validate.BeforeMinStart(h.policy, req.StartDate),
	})
}

func (h *Handler) sanitize(ctx *fasthttp.RequestCtx) {
	var req sanitizeRequest
	if !decodeBody(ctx, &req) {
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, sanitizeRequest{Value: validate.SanitizeNumericInput(req.Value)})
}

// bounds returns the date picker limits. Without an age range the loosest
// cap applies.
func (h *Handler) bounds(ctx *fasthttp.RequestCtx) {
	age := model.AgeRange(ctx.QueryArgs().Peek("age_range"))
	resp := boundsResponse{
		Today:             validate.FormatDate(h.policy.Today()),
		MinStartDate:      validate.FormatDate(h.policy.MinStartDate()),
		BaseReferenceDate: validate.FormatDate(h.policy.BaseReferenceDate()),
		MaxEndDate:        validate.FormatDate(h.policy.MaxEndDateUnknownAge()),
		MaxYears:          datepolicy.MaxYearsOverall,
	}
	if age != "" {
		if !knownAgeRange(age) {
			writeError(ctx, fasthttp.StatusBadRequest, "Unknown age range: "+string(age))
			return
		}
		resp.AgeRange = age
		resp.MaxEndDate = validate.FormatDate(h.policy.MaxEndDate(age))
		resp.MaxYears = datepolicy.MaxYearsByAge(age)
	}
	writeJSON(ctx, fasthttp.StatusOK, resp)
}
