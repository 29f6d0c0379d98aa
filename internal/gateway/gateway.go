// Package gateway talks to the external payment processor.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// Gateway creates payments at the processor
type Gateway interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatedPayment, error)
}

// CreatePaymentRequest is what the processor needs to open a payment.
// IdempotenceKey is forwarded so a retried call returns the same payment.
type CreatePaymentRequest struct {
	IdempotenceKey string
	AppointmentID  string
	Amount         decimal.Decimal
	Currency       string
	Description    string
	ReturnURL      string
}

// CreatedPayment is the processor's answer
type CreatedPayment struct {
	ProviderPaymentID string
	Status            string
	ConfirmationURL   string
}
