// Package handler exposes calculator sessions and the live-validation helpers
// over HTTP.
package handler

import (
	"errors"
	"log/slog"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"lcp-engine/internal/datepolicy"
	"lcp-engine/internal/engine"
	"lcp-engine/internal/jsonpatch"
	"lcp-engine/internal/model"
	"lcp-engine/internal/session"
)

type Handler struct {
	sessions *session.Manager
	policy   datepolicy.Policy
	log      *slog.Logger
}

func New(sessions *session.Manager, policy datepolicy.Policy, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{sessions: sessions, policy: policy, log: log}
}

// Handle is the fasthttp entry point.
func (h *Handler) Handle(ctx *fasthttp.RequestCtx) {
	path := strings.Trim(string(ctx.Path()), "/")
	parts := strings.Split(path, "/")

	switch parts[0] {
	case "sessions":
		h.routeSession(ctx, parts[1:])
	case "validate":
		if len(parts) != 2 {
			writeError(ctx, fasthttp.StatusNotFound, "Not found")
			return
		}
		if !requireMethod(ctx, fasthttp.MethodPost) {
			return
		}
		switch parts[1] {
		case "amount":
			h.validateAmount(ctx)
		case "dates":
			h.validateDates(ctx)
		default:
			writeError(ctx, fasthttp.StatusNotFound, "Not found")
		}
	case "sanitize":
		if requireMethod(ctx, fasthttp.MethodPost) {
			h.sanitize(ctx)
		}
	case "bounds":
		if requireMethod(ctx, fasthttp.MethodGet) {
			h.bounds(ctx)
		}
	case "healthz":
		writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
	default:
		writeError(ctx, fasthttp.StatusNotFound, "Not found")
	}
}

func requireMethod(ctx *fasthttp.RequestCtx, method string) bool {
	if string(ctx.Method()) == method {
		return true
	}
	writeError(ctx, fasthttp.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// stateResponse is returned by every session endpoint. Changes is the JSON
// patch from the form before the request to the form after it.
type stateResponse struct {
	SessionID string                    `json:"session_id"`
	State     engine.State              `json:"state"`
	Messages  []model.ValidationMessage `json:"messages,omitempty"`
	Changes   []jsonpatch.Op            `json:"changes,omitempty"`
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		ctx.ResetBody()
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"status":500,"message":"Failed to encode response"}`)
	}
}

func writeError(ctx *fasthttp.RequestCtx, status int, message string) {
	writeJSON(ctx, status, model.ErrorResponse{
		Status:  status,
		Message: message,
	})
}

// writeFlowError maps engine and session errors onto HTTP statuses.
func writeFlowError(ctx *fasthttp.RequestCtx, err error) {
	var vf *engine.ValidationFailure
	if errors.As(err, &vf) {
		writeJSON(ctx, fasthttp.StatusUnprocessableEntity, model.ErrorResponse{
			Status:   fasthttp.StatusUnprocessableEntity,
			Message:  "Please correct the highlighted fields",
			Messages: vf.Messages,
		})
		return
	}
	writeError(ctx, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, engine.ErrUnknownStep):
		return fasthttp.StatusNotFound
	case errors.Is(err, engine.ErrInvalidPayload):
		return fasthttp.StatusBadRequest
	case errors.Is(err, engine.ErrStepMismatch),
		errors.Is(err, engine.ErrNoPreviousStep),
		errors.Is(err, engine.ErrStepNotOnPath),
		errors.Is(err, engine.ErrNotOnReview),
		errors.Is(err, engine.ErrNotOnResults),
		errors.Is(err, engine.ErrCalculationInFlight),
		errors.Is(err, engine.ErrStaleCalculation):
		return fasthttp.StatusConflict
	}
	return fasthttp.StatusInternalServerError
}

// valuationStatus is the status for a calculate call whose outcome is a
// stored valuation error.
func valuationStatus(ve *model.ValuationError) int {
	if ve.Kind == model.ErrorKindService {
		return fasthttp.StatusBadGateway
	}
	return fasthttp.StatusUnprocessableEntity
}
