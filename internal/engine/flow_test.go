package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"lcp-engine/internal/datepolicy"
	"lcp-engine/internal/jsonpatch"
	"lcp-engine/internal/model"
	"lcp-engine/internal/steps"
	"lcp-engine/internal/valuation"
)

var testNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

type stubValuator struct {
	calls atomic.Int32
	fn    func(ctx context.Context, form model.FormData) (model.ValuationResult, error)
}

func (s *stubValuator) Valuate(ctx context.Context, form model.FormData) (model.ValuationResult, error) {
	s.calls.Add(1)
	return s.fn(ctx, form)
}

func okValuator() *stubValuator {
	return &stubValuator{fn: func(context.Context, model.FormData) (model.ValuationResult, error) {
		return model.ValuationResult{
			NPV:       decimal.NewFromInt(120000),
			MinPayout: decimal.NewFromInt(80000),
			MaxPayout: decimal.NewFromInt(95000),
		}, nil
	}}
}

func newTestFlow(v Valuator) *Flow {
	registry := steps.NewRegistry(datepolicy.New(func() time.Time { return testNow }))
	return New(registry, v, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mustAdvance(t *testing.T, f *Flow, step model.StepID, data string) {
	t.Helper()
	if _, err := f.Advance(step, json.RawMessage(data)); err != nil {
		t.Fatalf("advance %s: %v", step, err)
	}
}

const (
	monthlyPayment = `{"payment_mode":"Monthly","amount":"2000"}`
	youngProfile   = `{"age_range":"18-25","gender":"Female","body_frame":"Medium"}`
	goodHealth     = `{"smoker":"No","health_rating":"Great","cardiac_rating":"Normal","weight":"Normal"}`
	scenarioDates  = `{"start_date":"2025-01-01","end_date":"2025-12-31"}`
)

// walkToReview fills a recurring-mode form and lands on review.
func walkToReview(t *testing.T, f *Flow) {
	t.Helper()
	mustAdvance(t, f, model.StepPayment, monthlyPayment)
	mustAdvance(t, f, model.StepDates, scenarioDates)
	mustAdvance(t, f, model.StepProfile, youngProfile)
	mustAdvance(t, f, model.StepHealth, goodHealth)
	if got := f.State().CurrentStep; got != model.StepReview {
		t.Fatalf("expected review, got %s", got)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	f := newTestFlow(okValuator())
	f.Start()
	f.Start()

	st := f.State()
	if st.CurrentStep != model.StepPayment {
		t.Fatalf("expected payment, got %s", st.CurrentStep)
	}
	if st.FormData.Payment != nil || st.Result != nil || st.Error != nil {
		t.Fatal("expected empty state after start")
	}
}

func TestRecurringScenarioReachesReview(t *testing.T) {
	f := newTestFlow(okValuator())
	for _, mode := range []string{"Monthly", "Quarterly", "Semi"} {
		g := newTestFlow(okValuator())
		mustAdvance(t, g, model.StepPayment, `{"payment_mode":"`+mode+`","amount":"2000"}`)
		if got := g.State().CurrentStep; got != model.StepDates {
			t.Fatalf("%s: expected dates after payment, got %s", mode, got)
		}
	}

	mustAdvance(t, f, model.StepPayment, monthlyPayment)
	if got := f.State().Progress.Current; got != 2 {
		t.Fatalf("expected dates to be step 2, got %d", got)
	}
	mustAdvance(t, f, model.StepDates, scenarioDates)
	if f.State().CurrentStep != model.StepProfile {
		t.Fatalf("expected profile after dates, got %s", f.State().CurrentStep)
	}
	mustAdvance(t, f, model.StepProfile, youngProfile)
	mustAdvance(t, f, model.StepHealth, goodHealth)

	st := f.State()
	if st.CurrentStep != model.StepReview {
		t.Fatalf("expected review, got %s", st.CurrentStep)
	}
	if st.Progress.Current != 5 || st.Progress.Total != 6 {
		t.Fatalf("unexpected progress %+v", st.Progress)
	}
}

func TestLumpSumBranch(t *testing.T) {
	f := newTestFlow(okValuator())
	mustAdvance(t, f, model.StepPayment, `{"payment_mode":"LumpSum"}`)
	if got := f.State().CurrentStep; got != model.StepLumpSum {
		t.Fatalf("expected lump_sum, got %s", got)
	}
	mustAdvance(t, f, model.StepLumpSum, `[{"amount":"50000","payment_date":"2030-01-01"},{"amount":"75000","payment_date":"2035-01-01"}]`)
	mustAdvance(t, f, model.StepProfile, youngProfile)
	mustAdvance(t, f, model.StepHealth, goodHealth)

	st := f.State()
	if st.CurrentStep != model.StepReview {
		t.Fatalf("expected review, got %s", st.CurrentStep)
	}
	for _, s := range st.Path {
		if s == model.StepDates {
			t.Fatal("dates must not be on the lump-sum path")
		}
	}

	if err := f.GoBack(); err != nil {
		t.Fatal(err)
	}
	if err := f.GoBack(); err != nil {
		t.Fatal(err)
	}
	if err := f.GoBack(); err != nil {
		t.Fatal(err)
	}
	if got := f.State().CurrentStep; got != model.StepLumpSum {
		t.Fatalf("expected lump_sum, got %s", got)
	}
	if err := f.GoBack(); err != nil {
		t.Fatal(err)
	}
	if got := f.State().CurrentStep; got != model.StepPayment {
		t.Fatalf("expected payment, got %s", got)
	}
	if err := f.GoBack(); !errors.Is(err, ErrNoPreviousStep) {
		t.Fatalf("expected ErrNoPreviousStep, got %v", err)
	}
	if len(f.State().FormData.LumpSums) != 2 {
		t.Fatal("back navigation must keep lump sums")
	}
}

func TestAdvanceValidationFailureDoesNotMoveOrMerge(t *testing.T) {
	f := newTestFlow(okValuator())
	msgs, err := f.Advance(model.StepPayment, json.RawMessage(`{"payment_mode":"Monthly","amount":"50"}`))

	var vf *ValidationFailure
	if !errors.As(err, &vf) {
		t.Fatalf("expected ValidationFailure, got %v", err)
	}
	if len(msgs) != 1 || msgs[0].Code != "INVALID_PAYMENT_AMOUNT" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	st := f.State()
	if st.CurrentStep != model.StepPayment {
		t.Fatalf("flow moved to %s", st.CurrentStep)
	}
	if st.FormData.Payment != nil {
		t.Fatal("invalid data must not be merged")
	}
}

func TestAdvanceRejectsWrongStep(t *testing.T) {
	f := newTestFlow(okValuator())
	if _, err := f.Advance(model.StepProfile, json.RawMessage(youngProfile)); !errors.Is(err, ErrStepMismatch) {
		t.Fatalf("expected ErrStepMismatch, got %v", err)
	}
	if _, err := f.Advance("bogus", nil); !errors.Is(err, ErrUnknownStep) {
		t.Fatalf("expected ErrUnknownStep, got %v", err)
	}
	if _, err := f.Advance(model.StepPayment, json.RawMessage(`{"payment_mode":`)); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestAgeCapBlocksReview(t *testing.T) {
	f := newTestFlow(okValuator())
	mustAdvance(t, f, model.StepPayment, monthlyPayment)

	today := datepolicy.New(func() time.Time { return testNow }).Today()
	dates := `{"start_date":"` + today.AddDate(0, 4, 0).Format("2006-01-02") +
		`","end_date":"` + today.AddDate(21, 6, 0).Format("2006-01-02") + `"}`
	// Without an age band the 30-year horizon applies.
	mustAdvance(t, f, model.StepDates, dates)
	mustAdvance(t, f, model.StepProfile, `{"age_range":"57-65","gender":"Male","body_frame":"Large"}`)

	msgs, err := f.Advance(model.StepHealth, json.RawMessage(goodHealth))
	var vf *ValidationFailure
	if !errors.As(err, &vf) {
		t.Fatalf("expected the 20-year cap to block review, got %v", err)
	}
	if len(msgs) != 1 || msgs[0].Step != model.StepDates || msgs[0].Field != "end_date" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	st := f.State()
	if st.CurrentStep != model.StepHealth || st.FormData.Health != nil {
		t.Fatalf("flow must stay on health without committing, got %s", st.CurrentStep)
	}
}

func TestUpdateSectionMergesWithoutValidating(t *testing.T) {
	f := newTestFlow(okValuator())
	if err := f.UpdateSection(model.StepPayment, json.RawMessage(`{"payment_mode":"Quarterly"}`)); err != nil {
		t.Fatal(err)
	}
	if err := f.UpdateSection(model.StepPayment, json.RawMessage(`{"amount":"5"}`)); err != nil {
		t.Fatal(err)
	}
	st := f.State()
	if st.FormData.Payment.PaymentMode != model.ModeQuarterly || st.FormData.Payment.Amount != "5" {
		t.Fatalf("unexpected payment %+v", st.FormData.Payment)
	}
	if st.CurrentStep != model.StepPayment {
		t.Fatal("update must not move the flow")
	}
	if _, err := f.Advance(model.StepPayment, json.RawMessage(`{"amount":"500"}`)); err != nil {
		t.Fatalf("advance with merged data: %v", err)
	}
}

func TestUpdateSectionOnlyEditsCurrentStep(t *testing.T) {
	f := newTestFlow(okValuator())
	mustAdvance(t, f, model.StepPayment, monthlyPayment)
	before := f.State()

	err := f.UpdateSection(model.StepPayment, json.RawMessage(`{"payment_mode":"LumpSum"}`))
	if !errors.Is(err, ErrStepMismatch) {
		t.Fatalf("expected ErrStepMismatch, got %v", err)
	}
	st := f.State()
	if st.CurrentStep != model.StepDates || st.Progress != before.Progress {
		t.Fatalf("flow moved: %+v", st.Progress)
	}
	if ops, _ := jsonpatch.Changes(before.FormData, st.FormData); len(ops) != 0 {
		t.Fatalf("rejected update changed the form: %+v", ops)
	}
	if err := f.GoBack(); err != nil {
		t.Fatalf("back navigation broken after rejected update: %v", err)
	}
}

func TestUpdateSectionModeChangeDropsInactiveBranch(t *testing.T) {
	f := newTestFlow(okValuator())
	mustAdvance(t, f, model.StepPayment, monthlyPayment)
	mustAdvance(t, f, model.StepDates, scenarioDates)
	if err := f.GoBack(); err != nil {
		t.Fatal(err)
	}
	if err := f.GoBack(); err != nil {
		t.Fatal(err)
	}

	if err := f.UpdateSection(model.StepPayment, json.RawMessage(`{"payment_mode":"LumpSum"}`)); err != nil {
		t.Fatal(err)
	}
	st := f.State()
	if st.FormData.DateRange != nil {
		t.Fatal("date range must be dropped once lump sum is selected")
	}
	if st.CurrentStep != model.StepPayment || st.Progress.Current != 1 {
		t.Fatalf("unexpected position %s %+v", st.CurrentStep, st.Progress)
	}
	if st.Path[1] != model.StepLumpSum {
		t.Fatalf("expected lump-sum path, got %v", st.Path)
	}
}

func TestUpdateSectionRejectedOnResults(t *testing.T) {
	f := newTestFlow(okValuator())
	walkToReview(t, f)
	if err := f.Calculate(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, step := range []model.StepID{model.StepPayment, model.StepResults, model.StepReview} {
		if err := f.UpdateSection(step, json.RawMessage(`{"amount":"9000000"}`)); !errors.Is(err, ErrStepMismatch) {
			t.Fatalf("%s: expected ErrStepMismatch, got %v", step, err)
		}
	}
	st := f.State()
	if st.FormData.Payment.Amount != "2000" {
		t.Fatalf("form changed under a displayed result: %s", st.FormData.Payment.Amount)
	}
	if st.CurrentStep != model.StepResults || st.Result == nil {
		t.Fatal("result must stay consistent with the form it was computed from")
	}
}

func TestEditFromPreservesOtherSections(t *testing.T) {
	f := newTestFlow(okValuator())
	walkToReview(t, f)
	before := f.State().FormData

	if err := f.EditFrom(model.StepProfile); err != nil {
		t.Fatal(err)
	}
	mustAdvance(t, f, model.StepProfile, `{"body_frame":"Small"}`)

	st := f.State()
	if st.CurrentStep != model.StepReview {
		t.Fatalf("editing a complete form should return to review, got %s", st.CurrentStep)
	}
	ops, err := jsonpatch.Changes(before, st.FormData)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 || ops[0].Path != "/profile/body_frame" {
		t.Fatalf("expected only body_frame to change, got %+v", ops)
	}
	for _, section := range []string{"/payment", "/health", "/lifestyle", "/date_range"} {
		if jsonpatch.Touches(ops, section) {
			t.Fatalf("%s changed", section)
		}
	}
}

func TestEditFromGuards(t *testing.T) {
	f := newTestFlow(okValuator())
	if err := f.EditFrom(model.StepPayment); !errors.Is(err, ErrNotOnReview) {
		t.Fatalf("expected ErrNotOnReview, got %v", err)
	}
	walkToReview(t, f)
	if err := f.EditFrom(model.StepLumpSum); !errors.Is(err, ErrStepNotOnPath) {
		t.Fatalf("expected ErrStepNotOnPath, got %v", err)
	}
}

func TestSwitchingModeFromReviewDropsInactiveBranch(t *testing.T) {
	f := newTestFlow(okValuator())
	walkToReview(t, f)

	if err := f.EditFrom(model.StepPayment); err != nil {
		t.Fatal(err)
	}
	mustAdvance(t, f, model.StepPayment, `{"payment_mode":"LumpSum"}`)
	st := f.State()
	if st.CurrentStep != model.StepLumpSum {
		t.Fatalf("expected lump_sum, got %s", st.CurrentStep)
	}
	if st.FormData.DateRange != nil {
		t.Fatal("date range must be dropped when switching to lump sum")
	}
	mustAdvance(t, f, model.StepLumpSum, `[{"amount":"20000","payment_date":"2031-05-01"}]`)
	if got := f.State().CurrentStep; got != model.StepReview {
		t.Fatalf("expected review after completing the new branch, got %s", got)
	}
}

func TestCalculateSuccessAndBackToReview(t *testing.T) {
	v := okValuator()
	f := newTestFlow(v)
	walkToReview(t, f)

	if err := f.Calculate(context.Background()); err != nil {
		t.Fatal(err)
	}
	st := f.State()
	if st.CurrentStep != model.StepResults || st.Result == nil || st.Error != nil {
		t.Fatalf("unexpected state after calculate: %+v", st)
	}
	if err := f.GoBack(); !errors.Is(err, ErrNoPreviousStep) {
		t.Fatalf("expected results to have no back edge, got %v", err)
	}

	formBefore := st.FormData
	if err := f.BackToReview(); err != nil {
		t.Fatal(err)
	}
	st = f.State()
	if st.CurrentStep != model.StepReview || st.Result != nil {
		t.Fatal("back to review must discard the result")
	}
	ops, _ := jsonpatch.Changes(formBefore, st.FormData)
	if len(ops) != 0 {
		t.Fatalf("back to review changed the form: %+v", ops)
	}
	if err := f.BackToReview(); !errors.Is(err, ErrNotOnResults) {
		t.Fatalf("expected ErrNotOnResults, got %v", err)
	}
}

func TestCalculateBelowThresholdStaysOnReview(t *testing.T) {
	svc := valuation.ServiceFunc(func(context.Context, valuation.Input) (valuation.Output, error) {
		return valuation.Output{
			NPV:       decimal.NewFromInt(9000),
			MinPayout: decimal.NewFromInt(6000),
			MaxPayout: decimal.NewFromInt(8000),
		}, nil
	})
	f := newTestFlow(valuation.NewAdapter(svc, slog.New(slog.NewTextHandler(io.Discard, nil))))
	walkToReview(t, f)

	err := f.Calculate(context.Background())
	var ve *model.ValuationError
	if !errors.As(err, &ve) || ve.Kind != model.ErrorKindThreshold {
		t.Fatalf("expected threshold error, got %v", err)
	}
	st := f.State()
	if st.CurrentStep != model.StepReview {
		t.Fatalf("expected review, got %s", st.CurrentStep)
	}
	if st.Result != nil || st.Error == nil || len(st.Error.Suggestions) == 0 {
		t.Fatalf("expected threshold error with suggestions, got %+v", st.Error)
	}
}

func TestCalculateServiceErrorIsRetryable(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	v := &stubValuator{fn: func(ctx context.Context, form model.FormData) (model.ValuationResult, error) {
		if fail.Load() {
			return model.ValuationResult{}, &model.ValuationError{Kind: model.ErrorKindService, Message: "down"}
		}
		return okValuator().fn(ctx, form)
	}}
	f := newTestFlow(v)
	walkToReview(t, f)

	if err := f.Calculate(context.Background()); err == nil {
		t.Fatal("expected service error")
	}
	if st := f.State(); st.Error == nil || st.Error.Kind != model.ErrorKindService || st.CurrentStep != model.StepReview {
		t.Fatalf("unexpected state %+v", st)
	}

	fail.Store(false)
	if err := f.Calculate(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if st := f.State(); st.Error != nil || st.CurrentStep != model.StepResults {
		t.Fatalf("retry should clear the error, got %+v", st)
	}
}

func TestCalculateRequiresReview(t *testing.T) {
	v := okValuator()
	f := newTestFlow(v)
	if err := f.Calculate(context.Background()); !errors.Is(err, ErrNotOnReview) {
		t.Fatalf("expected ErrNotOnReview, got %v", err)
	}
	if v.calls.Load() != 0 {
		t.Fatal("service must not be called")
	}
}

func TestConcurrentCalculateCallsServiceOnce(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	v := &stubValuator{fn: func(ctx context.Context, form model.FormData) (model.ValuationResult, error) {
		close(entered)
		<-release
		return okValuator().fn(ctx, form)
	}}
	f := newTestFlow(v)
	walkToReview(t, f)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstErr = f.Calculate(context.Background())
	}()
	<-entered

	if !f.State().Calculating {
		t.Fatal("expected calculating flag while the call is pending")
	}
	if err := f.Calculate(context.Background()); !errors.Is(err, ErrCalculationInFlight) {
		t.Fatalf("expected ErrCalculationInFlight, got %v", err)
	}
	close(release)
	wg.Wait()

	if firstErr != nil {
		t.Fatal(firstErr)
	}
	if n := v.calls.Load(); n != 1 {
		t.Fatalf("expected exactly one service call, got %d", n)
	}
	if f.State().CurrentStep != model.StepResults {
		t.Fatal("expected results")
	}
}

func TestStaleCalculationIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	v := &stubValuator{fn: func(ctx context.Context, form model.FormData) (model.ValuationResult, error) {
		close(entered)
		<-release
		return okValuator().fn(ctx, form)
	}}
	f := newTestFlow(v)
	walkToReview(t, f)

	done := make(chan error, 1)
	go func() { done <- f.Calculate(context.Background()) }()
	<-entered

	if err := f.EditFrom(model.StepHealth); err != nil {
		t.Fatal(err)
	}
	close(release)

	if err := <-done; !errors.Is(err, ErrStaleCalculation) {
		t.Fatalf("expected ErrStaleCalculation, got %v", err)
	}
	st := f.State()
	if st.CurrentStep != model.StepHealth || st.Result != nil || st.Calculating {
		t.Fatalf("stale result leaked into state: %+v", st)
	}
}

func TestSnapshotRestore(t *testing.T) {
	f := newTestFlow(okValuator())
	walkToReview(t, f)
	if err := f.Calculate(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap := f.Snapshot()

	g := newTestFlow(okValuator())
	g.Restore(snap)
	st := g.State()
	if st.CurrentStep != model.StepResults || st.Result == nil {
		t.Fatalf("unexpected restored state %+v", st)
	}

	snap.Result = nil
	g.Restore(snap)
	if got := g.State().CurrentStep; got != model.StepReview {
		t.Fatalf("results without a result should restore to review, got %s", got)
	}

	snap.CurrentStep = model.StepLumpSum
	g.Restore(snap)
	if got := g.State().CurrentStep; got != model.StepPayment {
		t.Fatalf("off-path step should restart, got %s", got)
	}
}
