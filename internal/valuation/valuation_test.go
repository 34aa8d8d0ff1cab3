package valuation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"lcp-engine/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func applicantSections(form *model.FormData) {
	form.Profile = &model.ProfileData{AgeRange: model.Age36to45, Gender: "Female", BodyFrame: "Medium"}
	form.Lifestyle = &model.LifestyleData{Weight: "Normal"}
	form.Health = &model.HealthData{Smoker: "No", HealthRating: "Normal", CardiacRating: "Normal"}
}

func recurringForm(mode model.PaymentMode, start, end, amount string, increase int) model.FormData {
	form := model.FormData{
		Payment:   &model.PaymentData{PaymentMode: mode, Amount: amount, AnnualIncreasePercent: increase},
		DateRange: &model.DateRangeData{StartDate: start, EndDate: end},
	}
	applicantSections(&form)
	return form
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestToInputMonthlyWithAnnualIncrease(t *testing.T) {
	in, err := ToInput(recurringForm(model.ModeMonthly, "2025-01-15", "2026-03-15", "1000", 3))
	require.NoError(t, err)

	require.Len(t, in.Schedule, 15)
	assert.Equal(t, "2025-01-15", in.Schedule[0].Date)
	assert.Equal(t, "2026-03-15", in.Schedule[14].Date)
	assert.True(t, in.Schedule[11].Amount.Equal(dec("1000")))
	assert.True(t, in.Schedule[12].Amount.Equal(dec("1030")))
	assert.True(t, in.TotalNominal.Equal(dec("15090")), in.TotalNominal.String())
	assert.Equal(t, model.Age36to45, in.Applicant.AgeRange)
	assert.Equal(t, "Normal", in.Applicant.Weight)
}

func TestToInputQuarterlyAndSemi(t *testing.T) {
	in, err := ToInput(recurringForm(model.ModeQuarterly, "2025-01-01", "2025-12-31", "500", 0))
	require.NoError(t, err)
	dates := make([]string, 0, len(in.Schedule))
	for _, cf := range in.Schedule {
		dates = append(dates, cf.Date)
	}
	assert.Equal(t, []string{"2025-01-01", "2025-04-01", "2025-07-01", "2025-10-01"}, dates)

	in, err = ToInput(recurringForm(model.ModeSemi, "2025-01-31", "2026-01-31", "500", 0))
	require.NoError(t, err)
	require.Len(t, in.Schedule, 3)
	assert.Equal(t, "2025-07-31", in.Schedule[1].Date)
}

func TestToInputClampsMonthEnd(t *testing.T) {
	in, err := ToInput(recurringForm(model.ModeMonthly, "2025-01-31", "2025-04-30", "500", 0))
	require.NoError(t, err)
	require.Len(t, in.Schedule, 4)
	assert.Equal(t, "2025-02-28", in.Schedule[1].Date)
	assert.Equal(t, "2025-03-31", in.Schedule[2].Date)
}

func TestToInputPrefersDateRangeAmount(t *testing.T) {
	form := recurringForm(model.ModeQuarterly, "2025-01-01", "2025-06-30", "1000", 0)
	form.DateRange.PaymentAmount = "750"
	in, err := ToInput(form)
	require.NoError(t, err)
	assert.True(t, in.Schedule[0].Amount.Equal(dec("750")))
}

func TestToInputLumpSumSorted(t *testing.T) {
	form := model.FormData{
		Payment: &model.PaymentData{PaymentMode: model.ModeLumpSum, AnnualIncreasePercent: 4},
		LumpSums: []model.LumpSumPayment{
			{Amount: "25000", PaymentDate: "2030-06-01"},
			{Amount: "10000.50", PaymentDate: "2027-01-01"},
		},
		DateRange: &model.DateRangeData{StartDate: "2025-01-01", EndDate: "2026-01-01"},
	}
	applicantSections(&form)

	in, err := ToInput(form)
	require.NoError(t, err)
	require.Len(t, in.Schedule, 2)
	assert.Equal(t, "2027-01-01", in.Schedule[0].Date)
	assert.True(t, in.TotalNominal.Equal(dec("35000.50")))
	assert.Zero(t, in.AnnualIncreasePercent)
}

func TestToInputRejectsMissingFields(t *testing.T) {
	cases := map[string]model.FormData{
		"no payment": {},
		"no profile": {Payment: &model.PaymentData{PaymentMode: model.ModeMonthly, Amount: "100"}},
	}
	noDates := recurringForm(model.ModeMonthly, "", "", "1000", 0)
	noDates.DateRange = nil
	cases["no dates"] = noDates
	cases["bad amount"] = recurringForm(model.ModeMonthly, "2025-01-01", "2026-01-01", "lots", 0)
	cases["end before start"] = recurringForm(model.ModeMonthly, "2026-01-01", "2025-01-01", "1000", 0)
	lump := recurringForm(model.ModeLumpSum, "", "", "", 0)
	cases["no lump sums"] = lump

	for name, form := range cases {
		_, err := ToInput(form)
		var ve *model.ValuationError
		require.ErrorAs(t, err, &ve, name)
		assert.Equal(t, model.ErrorKindInput, ve.Kind, name)
	}
}

func TestFromOutputBelowThreshold(t *testing.T) {
	_, err := FromOutput(Output{NPV: dec("9000"), MinPayout: dec("6000"), MaxPayout: dec("8000")})

	var ve *model.ValuationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, model.ErrorKindThreshold, ve.Kind)
	assert.Contains(t, ve.Message, "$8,000.00")
	assert.Len(t, ve.Suggestions, 4)
}

func TestFromOutputPassThrough(t *testing.T) {
	fpv := dec("42000")
	res, err := FromOutput(Output{NPV: dec("150000"), MinPayout: dec("90000"), MaxPayout: dec("110000"), FamilyProtectionValue: &fpv})
	require.NoError(t, err)
	assert.True(t, res.MaxPayout.Equal(dec("110000")))
	require.NotNil(t, res.FamilyProtectionValue)
	assert.True(t, res.FamilyProtectionValue.Equal(fpv))

	res, err = FromOutput(Output{NPV: dec("15000"), MinPayout: dec("10000"), MaxPayout: dec("10000")})
	require.NoError(t, err)
	assert.Nil(t, res.FamilyProtectionValue)

	_, err = FromOutput(Output{MinPayout: dec("20000"), MaxPayout: dec("15000")})
	var ve *model.ValuationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, model.ErrorKindService, ve.Kind)
}

func TestAdapterValuate(t *testing.T) {
	form := recurringForm(model.ModeMonthly, "2025-01-01", "2030-01-01", "2000", 2)

	var calls atomic.Int32
	ok := NewAdapter(ServiceFunc(func(ctx context.Context, in Input) (Output, error) {
		calls.Add(1)
		assert.Len(t, in.Schedule, 61)
		return Output{NPV: dec("100000"), MinPayout: dec("70000"), MaxPayout: dec("85000")}, nil
	}), quietLogger())
	res, err := ok.Valuate(context.Background(), form)
	require.NoError(t, err)
	assert.True(t, res.MinPayout.Equal(dec("70000")))
	assert.False(t, res.CalculatedAt.IsZero())
	assert.EqualValues(t, 1, calls.Load())

	failing := NewAdapter(ServiceFunc(func(ctx context.Context, in Input) (Output, error) {
		return Output{}, errors.New("connection refused")
	}), quietLogger())
	_, err = failing.Valuate(context.Background(), form)
	var ve *model.ValuationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, model.ErrorKindService, ve.Kind)
	assert.Equal(t, ServiceFailureMessage, ve.Message)

	_, err = NewAdapter(nil, nil).Valuate(context.Background(), form)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, model.ErrorKindService, ve.Kind)

	_, err = ok.Valuate(context.Background(), model.FormData{})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, model.ErrorKindInput, ve.Kind)
	assert.EqualValues(t, 1, calls.Load(), "invalid input never reaches the service")
}

func serveInMemory(t *testing.T, handler fasthttp.RequestHandler) *HTTPService {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go srv.Serve(ln) //nolint:errcheck
	t.Cleanup(func() { ln.Close() })
	return NewHTTPService("http://valuation.test/", WithTimeout(2*time.Second), WithDialer(func(string) (net.Conn, error) {
		return ln.Dial()
	}))
}

func TestHTTPServiceCalculate(t *testing.T) {
	svc := serveInMemory(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/valuations" || !ctx.IsPost() {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		var in Input
		if err := json.Unmarshal(ctx.PostBody(), &in); err != nil || len(in.Schedule) == 0 {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			ctx.SetBodyString(`{"message":"schedule is required"}`)
			return
		}
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"npv":"120000.55","min_payout":80000,"max_payout":"95000"}`)
	})

	in, err := ToInput(recurringForm(model.ModeQuarterly, "2025-01-01", "2027-01-01", "3000", 0))
	require.NoError(t, err)

	out, err := svc.Calculate(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, out.NPV.Equal(dec("120000.55")))
	assert.True(t, out.MinPayout.Equal(dec("80000")))
	assert.Nil(t, out.FamilyProtectionValue)

	_, err = svc.Calculate(context.Background(), Input{})
	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, fasthttp.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "schedule is required", se.Message)
}

func TestHTTPServiceCanceledContext(t *testing.T) {
	svc := serveInMemory(t, func(ctx *fasthttp.RequestCtx) {
		t.Error("request should not be sent")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Calculate(ctx, Input{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPServiceUnreachable(t *testing.T) {
	svc := NewHTTPService("http://valuation.test", WithTimeout(200*time.Millisecond), WithDialer(func(string) (net.Conn, error) {
		return nil, errors.New("dial refused")
	}))
	_, err := svc.Calculate(context.Background(), Input{})
	require.Error(t, err)
	var se *ServiceError
	assert.False(t, errors.As(err, &se))
}
