package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"practice-server/internal/models"
	"practice-server/internal/repository"
)

// WebhookResult is the outcome reported back to the processor.
// All three values mean "stop retrying".
type WebhookResult string

const (
	WebhookOK        WebhookResult = "ok"
	WebhookDuplicate WebhookResult = "duplicate"
	WebhookIgnored   WebhookResult = "ignored"
)

// Confirmer confirms an appointment after its payment succeeded
type Confirmer interface {
	ConfirmAfterPayment(ctx context.Context, appointmentID string) (ConfirmationOutcome, error)
}

// WebhookService applies processor notifications to payments.
// The ledger insert and the payment update share one transaction, so a
// failed delivery leaves no ledger entry and the processor's retry is
// processed normally.
type WebhookService struct {
	tx        repository.Transactor
	ledger    WebhookLedger
	payments  PaymentStore
	confirmer Confirmer
	logger    *zap.Logger
	now       func() time.Time
}

func NewWebhookService(
	tx repository.Transactor,
	ledger WebhookLedger,
	payments PaymentStore,
	confirmer Confirmer,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		tx:        tx,
		ledger:    ledger,
		payments:  payments,
		confirmer: confirmer,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// HandleWebhook deduplicates the event, guards the sticky succeeded state
// and applies the transition. A payment that has just succeeded triggers
// the appointment confirmation after the transaction commits.
func (s *WebhookService) HandleWebhook(ctx context.Context, evt *WebhookEvent) (result WebhookResult, err error) {
	ctx, span := tracer.Start(ctx, "WebhookService.HandleWebhook", trace.WithAttributes(
		attribute.String("webhook.event_id", evt.ID),
		attribute.String("webhook.event", evt.Event),
		attribute.String("payment.provider_id", evt.Object.ID),
	))
	defer func() {
		span.SetAttributes(attribute.String("webhook.result", string(result)))
		endSpan(span, err)
	}()

	if err := evt.Validate(); err != nil {
		return "", err
	}

	log := s.logger.With(
		zap.String("event_id", evt.ID),
		zap.String("event", evt.Event),
		zap.String("provider_payment_id", evt.Object.ID),
	)

	var succeeded *models.Payment
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		recorded, err := s.ledger.Record(ctx, &models.WebhookEvent{
			EventID:           evt.ID,
			EventType:         evt.Event,
			ProviderPaymentID: evt.Object.ID,
			ReceivedAt:        s.now(),
		})
		if err != nil {
			return err
		}
		if !recorded {
			result = WebhookDuplicate
			return nil
		}

		target, known := evt.TargetStatus()
		if !known {
			result = WebhookIgnored
			return nil
		}

		payment, err := s.payments.FindByProviderPaymentID(ctx, evt.Object.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: provider payment %s", ErrPaymentNotFound, evt.Object.ID)
			}
			return fmt.Errorf("load payment %s: %w", evt.Object.ID, err)
		}

		if payment.Status == models.PaymentSucceeded && target != models.PaymentSucceeded {
			log.Warn("stale event after success ignored",
				zap.String("payment_id", payment.ID),
			)
			result = WebhookIgnored
			return nil
		}
		if payment.Status.IsTerminal() {
			log.Info("payment already final",
				zap.String("payment_id", payment.ID),
				zap.String("status", string(payment.Status)),
			)
			result = WebhookIgnored
			return nil
		}

		amount, currency := evt.amount()
		if amount != nil && (!amount.Equal(payment.Amount) || currency != payment.Currency) {
			log.Warn("reported amount differs from requested amount",
				zap.String("payment_id", payment.ID),
				zap.String("requested", payment.Amount.StringFixed(2)+" "+payment.Currency),
				zap.String("reported", amount.StringFixed(2)+" "+currency),
			)
		}

		applied, err := s.payments.ApplyTransition(ctx, payment, models.PaymentTransition{
			To:                 target,
			Amount:             amount,
			Currency:           currency,
			CancellationReason: evt.cancellationReason(),
			At:                 s.now(),
		})
		if err != nil {
			return err
		}
		if !applied {
			// a concurrent delivery moved the payment first
			result = WebhookIgnored
			return nil
		}

		result = WebhookOK
		if payment.Status == models.PaymentSucceeded {
			succeeded = payment
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	log.Info("webhook handled", zap.String("result", string(result)))

	if succeeded != nil {
		// The payment is committed as succeeded. A failed confirmation is
		// picked up by the reconciliation sweep.
		if _, err := s.confirmer.ConfirmAfterPayment(ctx, succeeded.AppointmentID); err != nil {
			log.Error("confirmation after payment failed",
				zap.String("payment_id", succeeded.ID),
				zap.String("appointment_id", succeeded.AppointmentID),
				zap.Error(err),
			)
		}
	}

	return result, nil
}

// PruneLedger removes ledger entries older than retention
func (s *WebhookService) PruneLedger(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	n, err := s.ledger.PruneBefore(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("pruned webhook ledger", zap.Int64("deleted", n), zap.Duration("retention", retention))
	}
	return n, nil
}
