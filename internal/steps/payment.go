package steps

import (
	json "github.com/goccy/go-json"

	"lcp-engine/internal/model"
	"lcp-engine/internal/validate"
)

type PaymentHandler struct{}

func (h *PaymentHandler) DataKeys() []string { return []string{"payment"} }

func (h *PaymentHandler) Decode(form *model.FormData, data json.RawMessage) error {
	if form.Payment == nil {
		form.Payment = &model.PaymentData{}
	}
	return decodeInto(data, form.Payment)
}

func (h *PaymentHandler) Validate(form model.FormData) []model.ValidationMessage {
	msgs := fieldMessages(form.Payment, "payment")
	if form.Payment == nil {
		return msgs
	}
	if form.Payment.PaymentMode.IsRecurring() {
		if res := validate.PaymentAmount(form.Payment.Amount); !res.IsValid {
			msgs = append(msgs, critical("amount", "INVALID_PAYMENT_AMOUNT", res.Error))
		}
	}
	return msgs
}

func (h *PaymentHandler) Next(form model.FormData) model.StepID {
	if form.IsLumpSum() {
		return model.StepLumpSum
	}
	return model.StepDates
}
