package services

import (
	"context"

	"go.uber.org/zap"
)

const reconcileBatchSize = 100

// Reconciler re-drives confirmations for payments that succeeded while
// their appointment stayed unconfirmed, e.g. after a crash between the
// payment commit and the confirmation.
type Reconciler struct {
	payments  PaymentStore
	confirmer Confirmer
	logger    *zap.Logger
}

func NewReconciler(payments PaymentStore, confirmer Confirmer, logger *zap.Logger) *Reconciler {
	return &Reconciler{payments: payments, confirmer: confirmer, logger: logger}
}

// Sweep confirms up to one batch of stuck appointments and returns how
// many this call confirmed
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	payments, err := r.payments.ListSucceededAwaitingConfirmation(ctx, reconcileBatchSize)
	if err != nil {
		return 0, err
	}

	confirmed := 0
	seen := make(map[string]struct{}, len(payments))
	for _, payment := range payments {
		if _, ok := seen[payment.AppointmentID]; ok {
			continue
		}
		seen[payment.AppointmentID] = struct{}{}

		outcome, err := r.confirmer.ConfirmAfterPayment(ctx, payment.AppointmentID)
		if err != nil {
			r.logger.Error("reconcile confirmation failed",
				zap.String("appointment_id", payment.AppointmentID),
				zap.String("payment_id", payment.ID),
				zap.Error(err),
			)
			continue
		}
		if outcome == ConfirmationDone {
			confirmed++
		}
	}

	if confirmed > 0 {
		r.logger.Info("reconciled appointments", zap.Int("confirmed", confirmed))
	}
	return confirmed, nil
}
