package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the provider-side state of a payment
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentCanceled  PaymentStatus = "canceled"
	PaymentFailed    PaymentStatus = "failed"
)

// ErrInvalidTransition is returned when a payment status change is not allowed
var ErrInvalidTransition = errors.New("invalid payment status transition")

// IsTerminal reports whether the status can no longer change
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentSucceeded || s == PaymentCanceled || s == PaymentFailed
}

// Valid reports whether s is a known status
func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s.IsTerminal()
}

// Payment is one payment attempt for an appointment.
// ProviderPaymentID and IdempotencyKey are unique; the provider id never
// changes once assigned. Succeeded is sticky.
type Payment struct {
	BaseModel
	AppointmentID      string          `gorm:"size:36;index;not null" json:"appointmentId"`
	ProviderPaymentID  string          `gorm:"size:64;uniqueIndex;not null" json:"providerPaymentId"`
	IdempotencyKey     string          `gorm:"size:255;uniqueIndex;not null" json:"-"`
	Status             PaymentStatus   `gorm:"size:20;index;not null;default:'pending'" json:"status"`
	Amount             decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency           string          `gorm:"size:3;not null" json:"currency"`
	ConfirmationURL    string          `gorm:"size:1024" json:"confirmationUrl"`
	CancellationReason string          `gorm:"size:255" json:"cancellationReason,omitempty"`
	ConfirmedAt        *time.Time      `json:"confirmedAt,omitempty"`
}

// NewPayment builds a pending payment for a freshly created provider payment
func NewPayment(appointmentID, providerPaymentID, idempotencyKey string, amount decimal.Decimal, currency, confirmationURL string) (*Payment, error) {
	switch {
	case appointmentID == "":
		return nil, errors.New("payment requires an appointment")
	case providerPaymentID == "":
		return nil, errors.New("payment requires a provider payment id")
	case idempotencyKey == "":
		return nil, errors.New("payment requires an idempotency key")
	case amount.IsNegative():
		return nil, fmt.Errorf("payment amount must not be negative: %s", amount)
	}
	return &Payment{
		AppointmentID:     appointmentID,
		ProviderPaymentID: providerPaymentID,
		IdempotencyKey:    idempotencyKey,
		Status:            PaymentPending,
		Amount:            amount,
		Currency:          currency,
		ConfirmationURL:   confirmationURL,
	}, nil
}

// PaymentTransition describes a status change requested by the provider
type PaymentTransition struct {
	To                 PaymentStatus
	Amount             *decimal.Decimal
	Currency           string
	CancellationReason string
	At                 time.Time
}

// CheckTransition validates moving from the current status to t.To.
// Only pending payments may change, and only into a terminal status.
func (p *Payment) CheckTransition(t PaymentTransition) error {
	if p.Status != PaymentPending {
		return fmt.Errorf("%w: payment %s is already %s", ErrInvalidTransition, p.ID, p.Status)
	}
	if !t.To.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, t.To)
	}
	return nil
}

// Apply mutates the in-memory payment. Persistence goes through the
// conditional update in the repository; Apply keeps the struct in sync.
func (p *Payment) Apply(t PaymentTransition) error {
	if err := p.CheckTransition(t); err != nil {
		return err
	}
	p.Status = t.To
	switch t.To {
	case PaymentSucceeded:
		at := t.At
		p.ConfirmedAt = &at
		if t.Amount != nil {
			p.Amount = *t.Amount
		}
		if t.Currency != "" {
			p.Currency = t.Currency
		}
	case PaymentCanceled, PaymentFailed:
		p.CancellationReason = t.CancellationReason
	}
	return nil
}
