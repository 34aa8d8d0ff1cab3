package valuation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lcp-engine/internal/model"
)

// ServiceFailureMessage is what the review screen shows for transport or
// service failures; the underlying error is only logged.
const ServiceFailureMessage = "We could not complete your valuation right now. Please try again."

// Adapter runs a form through mapping, the service and the threshold policy.
type Adapter struct {
	service Service
	log     *slog.Logger
	now     func() time.Time
}

func NewAdapter(service Service, log *slog.Logger) *Adapter {
	if service == nil {
		service = Unavailable{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{service: service, log: log, now: time.Now}
}

// Valuate returns a result or a *model.ValuationError; it never returns any
// other error type.
func (a *Adapter) Valuate(ctx context.Context, form model.FormData) (model.ValuationResult, error) {
	in, err := ToInput(form)
	if err != nil {
		return model.ValuationResult{}, err
	}

	started := a.now()
	out, err := a.service.Calculate(ctx, in)
	if err != nil {
		a.log.Error("valuation service call failed",
			"error", err,
			"payment_mode", in.PaymentMode,
			"cash_flows", len(in.Schedule))
		var ve *model.ValuationError
		if errors.As(err, &ve) {
			return model.ValuationResult{}, ve
		}
		return model.ValuationResult{}, &model.ValuationError{Kind: model.ErrorKindService, Message: ServiceFailureMessage}
	}

	res, err := FromOutput(out)
	if err != nil {
		a.log.Info("valuation rejected",
			"error", err,
			"max_payout", out.MaxPayout.String())
		return model.ValuationResult{}, err
	}
	res.CalculatedAt = a.now()
	a.log.Info("valuation completed",
		"payment_mode", in.PaymentMode,
		"cash_flows", len(in.Schedule),
		"max_payout", res.MaxPayout.String(),
		"duration_ms", a.now().Sub(started).Milliseconds())
	return res, nil
}
