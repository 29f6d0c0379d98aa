package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"practice-server/internal/models"
	"practice-server/internal/repository"
)

// Fixture bundles the rows most tests need
type Fixture struct {
	Service     *models.ServiceOffering
	Client      *models.Client
	Appointment *models.Appointment
}

// FixtureOption tweaks the seeded appointment
type FixtureOption func(*models.Appointment)

// WithoutClient seeds an appointment with no client attached
func WithoutClient() FixtureOption {
	return func(a *models.Appointment) { a.ClientID = nil }
}

// WithStatus seeds the appointment in the given status
func WithStatus(status models.AppointmentStatus) FixtureOption {
	return func(a *models.Appointment) { a.Status = status }
}

// Seed creates a service offering, a client and a pending_payment appointment
func Seed(t testing.TB, db *gorm.DB, opts ...FixtureOption) *Fixture {
	t.Helper()
	ctx := context.Background()

	service := &models.ServiceOffering{
		Title:           "Initial consultation",
		Price:           decimal.RequireFromString("150.00"),
		Currency:        "RUB",
		DurationMinutes: 50,
	}
	require.NoError(t, repository.NewServiceOfferingRepository(db).Create(ctx, service))

	client := &models.Client{
		Email:     "client-" + uuid.NewString() + "@example.com",
		FirstName: "Anna",
		LastName:  "Petrova",
	}
	require.NoError(t, repository.NewClientRepository(db).Create(ctx, client))

	startsAt := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Minute)
	appointment := &models.Appointment{
		ServiceID: service.ID,
		ClientID:  &client.ID,
		StartsAt:  startsAt,
		EndsAt:    startsAt.Add(50 * time.Minute),
		Timezone:  "Europe/Moscow",
		Format:    models.FormatOnline,
		Status:    models.StatusPendingPayment,
	}
	for _, opt := range opts {
		opt(appointment)
	}
	require.NoError(t, repository.NewAppointmentRepository(db).Create(ctx, appointment))

	return &Fixture{Service: service, Client: client, Appointment: appointment}
}

// ReloadAppointment reads the appointment row again
func ReloadAppointment(t testing.TB, db *gorm.DB, id string) *models.Appointment {
	t.Helper()
	var appointment models.Appointment
	require.NoError(t, db.First(&appointment, "id = ?", id).Error)
	return &appointment
}

// ReloadPayment reads the payment row again
func ReloadPayment(t testing.TB, db *gorm.DB, id string) *models.Payment {
	t.Helper()
	var payment models.Payment
	require.NoError(t, db.First(&payment, "id = ?", id).Error)
	return &payment
}
