package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"practice-server/internal/models"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error)
	FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (*models.Payment, error)
	FindLatestSucceededForAppointment(ctx context.Context, appointmentID string) (*models.Payment, error)
	ApplyTransition(ctx context.Context, payment *models.Payment, transition models.PaymentTransition) (bool, error)
	ListSucceededAwaitingConfirmation(ctx context.Context, limit int) ([]models.Payment, error)
	Count(ctx context.Context, idempotencyKey string) (int64, error)
}

type PaymentRepositoryImpl struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepositoryImpl {
	return &PaymentRepositoryImpl{db: db}
}

// Create inserts a pending payment. A unique violation on the idempotency
// key or the provider id is reported as ErrDuplicateKey.
func (r *PaymentRepositoryImpl) Create(ctx context.Context, payment *models.Payment) error {
	if err := conn(ctx, r.db).Create(payment).Error; err != nil {
		if IsDuplicateKey(err) {
			return fmt.Errorf("create payment for key %q: %w", payment.IdempotencyKey, ErrDuplicateKey)
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (r *PaymentRepositoryImpl) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *PaymentRepositoryImpl) FindByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error) {
	return r.findOne(ctx, "idempotency_key = ?", key)
}

func (r *PaymentRepositoryImpl) FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (*models.Payment, error) {
	return r.findOne(ctx, "provider_payment_id = ?", providerPaymentID)
}

// FindLatestSucceededForAppointment returns the most recently confirmed
// succeeded payment of the appointment
func (r *PaymentRepositoryImpl) FindLatestSucceededForAppointment(ctx context.Context, appointmentID string) (*models.Payment, error) {
	var payment models.Payment
	err := conn(ctx, r.db).
		Where("appointment_id = ? AND status = ?", appointmentID, models.PaymentSucceeded).
		Order("confirmed_at DESC").
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

func (r *PaymentRepositoryImpl) findOne(ctx context.Context, query string, args ...any) (*models.Payment, error) {
	var payment models.Payment
	if err := conn(ctx, r.db).Where(query, args...).First(&payment).Error; err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

// ApplyTransition writes the transition only while the row is still pending.
// It reports whether this call changed the row; on true, payment is updated
// in memory as well.
func (r *PaymentRepositoryImpl) ApplyTransition(ctx context.Context, payment *models.Payment, transition models.PaymentTransition) (bool, error) {
	next := *payment
	next.Status = models.PaymentPending
	if err := next.Apply(transition); err != nil {
		return false, err
	}

	updates := map[string]any{
		"status":     next.Status,
		"updated_at": time.Now().UTC(),
	}
	switch next.Status {
	case models.PaymentSucceeded:
		updates["confirmed_at"] = next.ConfirmedAt
		updates["amount"] = next.Amount
		updates["currency"] = next.Currency
	default:
		updates["cancellation_reason"] = next.CancellationReason
	}

	res := conn(ctx, r.db).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", payment.ID, models.PaymentPending).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("update payment %s to %s: %w", payment.ID, next.Status, res.Error)
	}
	if res.RowsAffected != 1 {
		return false, nil
	}

	next.UpdatedAt = updates["updated_at"].(time.Time)
	*payment = next
	return true, nil
}

// ListSucceededAwaitingConfirmation finds succeeded payments whose
// appointment has not been confirmed yet
func (r *PaymentRepositoryImpl) ListSucceededAwaitingConfirmation(ctx context.Context, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := conn(ctx, r.db).
		Model(&models.Payment{}).
		Joins("JOIN appointments ON appointments.id = payments.appointment_id").
		Where("payments.status = ?", models.PaymentSucceeded).
		Where("appointments.status IN ?", []models.AppointmentStatus{models.StatusPendingPayment, models.StatusPaid}).
		Order("payments.confirmed_at ASC").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("list succeeded payments awaiting confirmation: %w", err)
	}
	return payments, nil
}

// Count returns the number of payment rows holding the idempotency key
func (r *PaymentRepositoryImpl) Count(ctx context.Context, idempotencyKey string) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&models.Payment{}).Where("idempotency_key = ?", idempotencyKey).Count(&n).Error
	return n, err
}
