package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"practice-server/internal/events"
	"practice-server/internal/models"
	"practice-server/internal/notifier"
	"practice-server/internal/repository"
)

// ConfirmationOutcome tells what a confirmation attempt did
type ConfirmationOutcome string

const (
	// ConfirmationDone means this call performed the confirmed transition
	// and dispatched the side effects.
	ConfirmationDone ConfirmationOutcome = "confirmed"
	// ConfirmationAlreadyDone means another call confirmed it, or the
	// appointment left the payable states; nothing was dispatched.
	ConfirmationAlreadyDone ConfirmationOutcome = "already_confirmed"
	// ConfirmationNotEligible means no succeeded payment exists yet.
	ConfirmationNotEligible ConfirmationOutcome = "not_eligible"
)

// ConfirmationService drives pending_payment -> paid -> confirmed once a
// payment succeeded. Both steps are conditional updates, so redundant or
// concurrent calls collapse into one transition and one dispatch.
type ConfirmationService struct {
	appointments AppointmentStore
	payments     PaymentStore
	catalog      ServiceCatalog
	publisher    EventPublisher
	tracker      Tracker
	notifier     Notifier
	logger       *zap.Logger
	now          func() time.Time
}

func NewConfirmationService(
	appointments AppointmentStore,
	payments PaymentStore,
	catalog ServiceCatalog,
	publisher EventPublisher,
	tracker Tracker,
	n Notifier,
	logger *zap.Logger,
) *ConfirmationService {
	return &ConfirmationService{
		appointments: appointments,
		payments:     payments,
		catalog:      catalog,
		publisher:    publisher,
		tracker:      tracker,
		notifier:     n,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *ConfirmationService) ConfirmAfterPayment(ctx context.Context, appointmentID string) (outcome ConfirmationOutcome, err error) {
	ctx, span := tracer.Start(ctx, "ConfirmationService.ConfirmAfterPayment", trace.WithAttributes(
		attribute.String("appointment.id", appointmentID),
	))
	defer func() {
		span.SetAttributes(attribute.String("confirmation.outcome", string(outcome)))
		endSpan(span, err)
	}()

	log := s.logger.With(zap.String("appointment_id", appointmentID))

	appointment, err := s.appointments.FindByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrAppointmentNotFound, appointmentID)
		}
		return "", fmt.Errorf("load appointment %s: %w", appointmentID, err)
	}
	if appointment.Status == models.StatusConfirmed {
		return ConfirmationAlreadyDone, nil
	}

	payment, err := s.payments.FindLatestSucceededForAppointment(ctx, appointmentID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn("confirmation requested without a succeeded payment")
		return ConfirmationNotEligible, nil
	}
	if err != nil {
		return "", fmt.Errorf("load succeeded payment for %s: %w", appointmentID, err)
	}

	if appointment.Status == models.StatusPendingPayment {
		if _, err := s.appointments.MarkPaidIfPending(ctx, appointmentID); err != nil {
			return "", err
		}
	}

	confirmed, err := s.appointments.ConfirmIfPending(ctx, appointmentID)
	if err != nil {
		return "", err
	}
	if !confirmed {
		if appointment.IsTerminal() {
			log.Warn("succeeded payment for a closed appointment",
				zap.String("payment_id", payment.ID),
				zap.String("status", string(appointment.Status)),
			)
		} else {
			log.Info("appointment confirmed by a concurrent call")
		}
		return ConfirmationAlreadyDone, nil
	}

	appointment.Status = models.StatusConfirmed
	log.Info("appointment confirmed", zap.String("payment_id", payment.ID))

	s.dispatch(ctx, appointment, payment, log)
	return ConfirmationDone, nil
}

// dispatch runs the side effects of a confirmation. They are independent
// and best effort: a failure is logged and the rest still run.
func (s *ConfirmationService) dispatch(ctx context.Context, appointment *models.Appointment, payment *models.Payment, log *zap.Logger) {
	data := events.AppointmentConfirmedData{
		AppointmentID: appointment.ID,
		ServiceID:     appointment.ServiceID,
		PaymentID:     payment.ID,
		StartsAt:      appointment.StartsAt,
		EndsAt:        appointment.EndsAt,
		Timezone:      appointment.Timezone,
	}
	if appointment.ClientID != nil {
		data.ClientID = *appointment.ClientID
	}
	if appointment.LeadID != nil {
		data.LeadID = *appointment.LeadID
	}
	if err := s.publisher.PublishAppointmentConfirmed(ctx, events.NewAppointmentConfirmed(data, s.now())); err != nil {
		log.Error("publish appointment confirmed failed", zap.Error(err))
	}

	if err := s.tracker.TrackBookingConfirmed(ctx, appointment); err != nil {
		log.Error("track booking confirmed failed", zap.Error(err))
	}

	if appointment.Client == nil || appointment.Client.Email == "" {
		log.Info("no contact address on file, confirmation email skipped")
		return
	}
	msg := notifier.ConfirmationEmail{
		DedupKey:      "appointment-confirmed:" + appointment.ID,
		Template:      "appointment_confirmed",
		To:            appointment.Client.Email,
		Name:          appointment.Client.FullName(),
		Subject:       "Your appointment is confirmed",
		AppointmentID: appointment.ID,
		StartsAt:      appointment.StartsAt,
		EndsAt:        appointment.EndsAt,
		Timezone:      appointment.Timezone,
		When:          notifier.HumanTimeRange(appointment.StartsAt, appointment.EndsAt, appointment.Timezone),
	}
	if offering, err := s.catalog.FindByID(ctx, appointment.ServiceID); err == nil {
		msg.ServiceTitle = offering.Title
	}
	if err := s.notifier.SendConfirmation(ctx, msg); err != nil {
		log.Error("send confirmation email failed", zap.Error(err))
	}
}
