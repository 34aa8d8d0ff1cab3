package handler

import (
	"errors"

	"github.com/valyala/fasthttp"

	"lcp-engine/internal/engine"
	"lcp-engine/internal/jsonpatch"
	"lcp-engine/internal/model"
)

// flowOp is one state-changing call on a flow. It may return messages to
// pass back alongside the state.
type flowOp func(flow *engine.Flow) ([]model.ValidationMessage, error)

func (h *Handler) routeSession(ctx *fasthttp.RequestCtx, parts []string) {
	method := string(ctx.Method())

	switch len(parts) {
	case 0:
		if requireMethod(ctx, fasthttp.MethodPost) {
			h.createSession(ctx)
		}
		return
	case 1:
		switch method {
		case fasthttp.MethodGet:
			h.getSession(ctx, parts[0])
		case fasthttp.MethodDelete:
			h.deleteSession(ctx, parts[0])
		default:
			writeError(ctx, fasthttp.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	id, action := parts[0], parts[1]
	if len(parts) == 2 {
		if !requireMethod(ctx, fasthttp.MethodPost) {
			return
		}
		switch action {
		case "start":
			h.mutate(ctx, id, func(f *engine.Flow) ([]model.ValidationMessage, error) {
				f.Start()
				return nil, nil
			})
		case "back":
			h.mutate(ctx, id, func(f *engine.Flow) ([]model.ValidationMessage, error) {
				return nil, f.GoBack()
			})
		case "review":
			h.mutate(ctx, id, func(f *engine.Flow) ([]model.ValidationMessage, error) {
				return nil, f.BackToReview()
			})
		case "calculate":
			h.calculate(ctx, id)
		default:
			writeError(ctx, fasthttp.StatusNotFound, "Not found")
		}
		return
	}

	if len(parts) != 3 {
		writeError(ctx, fasthttp.StatusNotFound, "Not found")
		return
	}
	step, ok := model.ParseStepID(parts[2])
	if !ok {
		writeError(ctx, fasthttp.StatusNotFound, "Unknown step: "+parts[2])
		return
	}
	body := append([]byte(nil), ctx.PostBody()...)

	switch action {
	case "sections":
		if requireMethod(ctx, fasthttp.MethodPatch) {
			h.mutate(ctx, id, func(f *engine.Flow) ([]model.ValidationMessage, error) {
				return nil, f.UpdateSection(step, body)
			})
		}
	case "steps":
		if requireMethod(ctx, fasthttp.MethodPost) {
			h.mutate(ctx, id, func(f *engine.Flow) ([]model.ValidationMessage, error) {
				return f.Advance(step, body)
			})
		}
	case "edit":
		if requireMethod(ctx, fasthttp.MethodPost) {
			h.mutate(ctx, id, func(f *engine.Flow) ([]model.ValidationMessage, error) {
				return nil, f.EditFrom(step)
			})
		}
	default:
		writeError(ctx, fasthttp.StatusNotFound, "Not found")
	}
}

func (h *Handler) createSession(ctx *fasthttp.RequestCtx) {
	id, flow, err := h.sessions.Create(ctx)
	if err != nil {
		h.log.Error("create session failed", "error", err)
		writeError(ctx, fasthttp.StatusInternalServerError, "Could not create session")
		return
	}
	writeJSON(ctx, fasthttp.StatusCreated, stateResponse{SessionID: id, State: flow.State()})
}

func (h *Handler) getSession(ctx *fasthttp.RequestCtx, id string) {
	flow, err := h.sessions.Get(ctx, id)
	if err != nil {
		writeFlowError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, stateResponse{SessionID: id, State: flow.State()})
}

func (h *Handler) deleteSession(ctx *fasthttp.RequestCtx, id string) {
	if err := h.sessions.Delete(ctx, id); err != nil {
		writeFlowError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// mutate runs op against the session's flow, persists the result and replies
// with the new state and the form changes.
func (h *Handler) mutate(ctx *fasthttp.RequestCtx, id string, op flowOp) {
	flow, err := h.sessions.Get(ctx, id)
	if err != nil {
		writeFlowError(ctx, err)
		return
	}
	before := flow.State().FormData

	msgs, err := op(flow)
	if err != nil {
		writeFlowError(ctx, err)
		return
	}
	if err := h.sessions.Save(ctx, id, flow); err != nil {
		h.log.Error("save session failed", "session", id, "error", err)
		writeError(ctx, fasthttp.StatusInternalServerError, "Could not save session")
		return
	}
	h.respond(ctx, fasthttp.StatusOK, id, flow, before, msgs)
}

// calculate differs from mutate in that a valuation failure is still a state
// change worth persisting: the error is shown on review.
func (h *Handler) calculate(ctx *fasthttp.RequestCtx, id string) {
	flow, err := h.sessions.Get(ctx, id)
	if err != nil {
		writeFlowError(ctx, err)
		return
	}
	before := flow.State().FormData

	status := fasthttp.StatusOK
	err = flow.Calculate(ctx)
	var ve *model.ValuationError
	switch {
	case err == nil:
	case errors.As(err, &ve):
		status = valuationStatus(ve)
	default:
		writeFlowError(ctx, err)
		return
	}
	if err := h.sessions.Save(ctx, id, flow); err != nil {
		h.log.Error("save session failed", "session", id, "error", err)
		writeError(ctx, fasthttp.StatusInternalServerError, "Could not save session")
		return
	}
	h.respond(ctx, status, id, flow, before, nil)
}

func (h *Handler) respond(ctx *fasthttp.RequestCtx, status int, id string, flow *engine.Flow, before model.FormData, msgs []model.ValidationMessage) {
	st := flow.State()
	changes, err := jsonpatch.Changes(before, st.FormData)
	if err != nil {
		h.log.Warn("form diff failed", "session", id, "error", err)
	}
	writeJSON(ctx, status, stateResponse{
		SessionID: id,
		State:     st,
		Messages:  msgs,
		Changes:   changes,
	})
}
