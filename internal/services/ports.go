package services

import (
	"context"
	"time"

	"practice-server/internal/events"
	"practice-server/internal/models"
	"practice-server/internal/notifier"
)

// AppointmentStore is the part of the appointment repository the
// orchestrators need
type AppointmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	MarkPaidIfPending(ctx context.Context, id string) (bool, error)
	ConfirmIfPending(ctx context.Context, id string) (bool, error)
}

// PaymentStore persists payment aggregates
type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error)
	FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (*models.Payment, error)
	FindLatestSucceededForAppointment(ctx context.Context, appointmentID string) (*models.Payment, error)
	ApplyTransition(ctx context.Context, payment *models.Payment, transition models.PaymentTransition) (bool, error)
	ListSucceededAwaitingConfirmation(ctx context.Context, limit int) ([]models.Payment, error)
}

// WebhookLedger remembers processed event ids
type WebhookLedger interface {
	Record(ctx context.Context, event *models.WebhookEvent) (bool, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ServiceCatalog resolves the price of a service offering
type ServiceCatalog interface {
	FindByID(ctx context.Context, id string) (*models.ServiceOffering, error)
}

// EventPublisher emits domain events
type EventPublisher interface {
	PublishAppointmentConfirmed(ctx context.Context, evt events.AppointmentConfirmed) error
}

// Notifier sends client notifications
type Notifier interface {
	SendConfirmation(ctx context.Context, msg notifier.ConfirmationEmail) error
}

// Tracker records analytics facts
type Tracker interface {
	TrackBookingConfirmed(ctx context.Context, appointment *models.Appointment) error
}
