package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"practice-server/internal/models"
)

// Processor event types
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentCanceled  = "payment.canceled"
	EventPaymentFailed    = "payment.failed"
)

// WebhookEvent is the processor's notification envelope
type WebhookEvent struct {
	Event  string        `json:"event"`
	ID     string        `json:"id"`
	Object WebhookObject `json:"object"`
}

// WebhookObject is the payment the event refers to
type WebhookObject struct {
	ID                  string               `json:"id"`
	Status              string               `json:"status"`
	Amount              *WebhookAmount       `json:"amount,omitempty"`
	CancellationDetails *CancellationDetails `json:"cancellation_details,omitempty"`
}

type WebhookAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type CancellationDetails struct {
	Party  string `json:"party,omitempty"`
	Reason string `json:"reason"`
}

// ParseWebhookEvent decodes and validates a webhook body
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var evt WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := evt.Validate(); err != nil {
		return nil, err
	}
	return &evt, nil
}

// Validate checks the fields the handler relies on
func (e *WebhookEvent) Validate() error {
	switch {
	case strings.TrimSpace(e.ID) == "":
		return fmt.Errorf("%w: missing event id", ErrMalformedEvent)
	case strings.TrimSpace(e.Event) == "":
		return fmt.Errorf("%w: missing event type", ErrMalformedEvent)
	case strings.TrimSpace(e.Object.ID) == "":
		return fmt.Errorf("%w: missing payment id", ErrMalformedEvent)
	}
	if e.Object.Amount != nil {
		if _, err := decimal.NewFromString(e.Object.Amount.Value); err != nil {
			return fmt.Errorf("%w: amount %q: %v", ErrMalformedEvent, e.Object.Amount.Value, err)
		}
	}
	return nil
}

// TargetStatus maps the event type to the payment status it announces.
// ok is false for event types this service does not act on.
func (e *WebhookEvent) TargetStatus() (status models.PaymentStatus, ok bool) {
	switch e.Event {
	case EventPaymentSucceeded:
		return models.PaymentSucceeded, true
	case EventPaymentCanceled:
		return models.PaymentCanceled, true
	case EventPaymentFailed:
		return models.PaymentFailed, true
	}
	return "", false
}

// amount returns the reported amount, if any. Validate has already parsed it.
func (e *WebhookEvent) amount() (*decimal.Decimal, string) {
	if e.Object.Amount == nil {
		return nil, ""
	}
	v, err := decimal.NewFromString(e.Object.Amount.Value)
	if err != nil {
		return nil, ""
	}
	return &v, e.Object.Amount.Currency
}

func (e *WebhookEvent) cancellationReason() string {
	if e.Object.CancellationDetails == nil {
		return ""
	}
	return e.Object.CancellationDetails.Reason
}
