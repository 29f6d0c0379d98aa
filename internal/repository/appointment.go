package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"practice-server/internal/models"
)

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *models.Appointment) error
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	MarkPaidIfPending(ctx context.Context, id string) (bool, error)
	ConfirmIfPending(ctx context.Context, id string) (bool, error)
	AttachClientUser(ctx context.Context, id, clientID string) error
}

type AppointmentRepositoryImpl struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepositoryImpl {
	return &AppointmentRepositoryImpl{db: db}
}

// Create stores a new appointment. Booking normally happens elsewhere;
// this exists for seeding and tests.
func (r *AppointmentRepositoryImpl) Create(ctx context.Context, appointment *models.Appointment) error {
	if appointment.Status == "" {
		appointment.Status = models.StatusPendingPayment
	}
	if err := conn(ctx, r.db).Create(appointment).Error; err != nil {
		if IsDuplicateKey(err) {
			return fmt.Errorf("create appointment: %w", ErrDuplicateKey)
		}
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// FindByID loads an appointment together with its client, if any
func (r *AppointmentRepositoryImpl) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	var appointment models.Appointment
	err := conn(ctx, r.db).Preload("Client").First(&appointment, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &appointment, nil
}

// MarkPaidIfPending moves pending_payment -> paid.
// It reports false when the row was not in pending_payment.
func (r *AppointmentRepositoryImpl) MarkPaidIfPending(ctx context.Context, id string) (bool, error) {
	return r.compareAndSwapStatus(ctx, id, models.StatusPaid, models.StatusPendingPayment)
}

// ConfirmIfPending moves paid or pending_payment -> confirmed.
// It reports false when another writer got there first or the
// appointment left the payable states.
func (r *AppointmentRepositoryImpl) ConfirmIfPending(ctx context.Context, id string) (bool, error) {
	return r.compareAndSwapStatus(ctx, id, models.StatusConfirmed, models.StatusPaid, models.StatusPendingPayment)
}

func (r *AppointmentRepositoryImpl) compareAndSwapStatus(ctx context.Context, id string, to models.AppointmentStatus, from ...models.AppointmentStatus) (bool, error) {
	res := conn(ctx, r.db).
		Model(&models.Appointment{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("update appointment %s status to %s: %w", id, to, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// AttachClientUser links a registered client to the appointment.
// Re-attaching the same client is a no-op; replacing a different one is a conflict.
func (r *AppointmentRepositoryImpl) AttachClientUser(ctx context.Context, id, clientID string) error {
	db := conn(ctx, r.db)

	var client models.Client
	if err := db.Select("id").First(&client, "id = ?", clientID).Error; err != nil {
		return fmt.Errorf("client %s: %w", clientID, notFound(err))
	}

	res := db.Model(&models.Appointment{}).
		Where("id = ? AND (client_id IS NULL OR client_id = ?)", id, clientID).
		Updates(map[string]any{
			"client_id":  clientID,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("attach client to appointment %s: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var appointment models.Appointment
	if err := db.Select("id", "client_id").First(&appointment, "id = ?", id).Error; err != nil {
		return fmt.Errorf("appointment %s: %w", id, notFound(err))
	}
	if appointment.ClientID != nil && *appointment.ClientID == clientID {
		return nil
	}
	return fmt.Errorf("appointment %s already belongs to another client: %w", id, ErrConflict)
}
