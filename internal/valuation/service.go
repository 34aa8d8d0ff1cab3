// Package valuation connects the flow to the external valuation service: it
// maps the collected form into the service contract, calls the service and
// applies the minimum-offer policy to what comes back.
package valuation

import (
	"context"
	"errors"
	"fmt"
)

// Service prices a normalized payout schedule.
type Service interface {
	Calculate(ctx context.Context, in Input) (Output, error)
}

// ServiceFunc lets a plain function act as a Service.
type ServiceFunc func(ctx context.Context, in Input) (Output, error)

func (f ServiceFunc) Calculate(ctx context.Context, in Input) (Output, error) {
	return f(ctx, in)
}

// ErrServiceUnavailable is returned when no valuation service is configured.
var ErrServiceUnavailable = errors.New("valuation service unavailable")

// Unavailable fails every call. It stands in when no service URL is set so
// the rest of the flow still works.
type Unavailable struct{}

func (Unavailable) Calculate(ctx context.Context, in Input) (Output, error) {
	return Output{}, ErrServiceUnavailable
}

// ServiceError is a non-2xx answer from the valuation service.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("valuation service returned %d: %s", e.StatusCode, e.Message)
}
