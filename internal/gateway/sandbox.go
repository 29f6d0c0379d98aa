package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Sandbox is an in-process processor for local development.
// It derives the payment id from the idempotence key, so repeated calls
// with the same key return the same payment like the real processor does.
type Sandbox struct {
	checkoutURL string
	logger      *zap.Logger
}

var _ Gateway = (*Sandbox)(nil)

func NewSandbox(appURL string, logger *zap.Logger) *Sandbox {
	return &Sandbox{
		checkoutURL: strings.TrimRight(appURL, "/") + "/sandbox/checkout",
		logger:      logger,
	}
}

func (s *Sandbox) CreatePayment(_ context.Context, req CreatePaymentRequest) (*CreatedPayment, error) {
	if req.IdempotenceKey == "" {
		return nil, fmt.Errorf("create payment: idempotence key is required")
	}
	sum := sha256.Sum256([]byte(req.IdempotenceKey))
	id := "sbx_" + hex.EncodeToString(sum[:12])

	s.logger.Debug("sandbox payment created",
		zap.String("appointment_id", req.AppointmentID),
		zap.String("provider_payment_id", id),
	)

	return &CreatedPayment{
		ProviderPaymentID: id,
		Status:            "pending",
		ConfirmationURL:   s.checkoutURL + "?payment_id=" + id,
	}, nil
}
