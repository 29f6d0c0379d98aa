package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"practice-server/internal/gateway"
	"practice-server/internal/models"
	"practice-server/internal/repository"
)

// PaymentService creates payments for appointments. Creation is idempotent
// per client request id: retries and concurrent duplicates converge on one
// payment row and one processor payment.
type PaymentService struct {
	appointments AppointmentStore
	catalog      ServiceCatalog
	payments     PaymentStore
	gateway      gateway.Gateway
	returnURL    string
	logger       *zap.Logger
}

func NewPaymentService(
	appointments AppointmentStore,
	catalog ServiceCatalog,
	payments PaymentStore,
	gw gateway.Gateway,
	returnURL string,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		appointments: appointments,
		catalog:      catalog,
		payments:     payments,
		gateway:      gw,
		returnURL:    returnURL,
		logger:       logger,
	}
}

// CreatePaymentResult carries the payment and whether this call created it
type CreatePaymentResult struct {
	Payment *models.Payment
	Created bool
}

// CreatePayment returns the payment bound to clientRequestID, creating it
// at the processor first if the key is new. No row is written when the
// processor call fails.
func (s *PaymentService) CreatePayment(ctx context.Context, appointmentID, clientRequestID string) (res *CreatePaymentResult, err error) {
	ctx, span := tracer.Start(ctx, "PaymentService.CreatePayment", trace.WithAttributes(
		attribute.String("appointment.id", appointmentID),
	))
	defer func() { endSpan(span, err) }()

	appointmentID = strings.TrimSpace(appointmentID)
	clientRequestID = strings.TrimSpace(clientRequestID)
	if appointmentID == "" || clientRequestID == "" {
		return nil, fmt.Errorf("%w: appointment id and client request id are required", ErrInvalidRequest)
	}

	existing, err := s.findByKey(ctx, clientRequestID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.replay(existing, appointmentID)
	}

	appointment, err := s.appointments.FindByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAppointmentNotFound, appointmentID)
		}
		return nil, fmt.Errorf("load appointment %s: %w", appointmentID, err)
	}
	if appointment.Status != models.StatusPendingPayment {
		return nil, fmt.Errorf("%w: appointment %s is %s", ErrAppointmentNotPayable, appointmentID, appointment.Status)
	}

	offering, err := s.catalog.FindByID(ctx, appointment.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("load service offering %s: %w", appointment.ServiceID, err)
	}

	created, err := s.gateway.CreatePayment(ctx, gateway.CreatePaymentRequest{
		IdempotenceKey: clientRequestID,
		AppointmentID:  appointment.ID,
		Amount:         offering.Price,
		Currency:       offering.Currency,
		Description:    fmt.Sprintf("%s, %s", offering.Title, appointment.StartsAt.UTC().Format("2006-01-02 15:04 UTC")),
		ReturnURL:      s.returnURL,
	})
	if err != nil {
		s.logger.Warn("gateway payment creation failed",
			zap.String("appointment_id", appointment.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	payment, err := models.NewPayment(appointment.ID, created.ProviderPaymentID, clientRequestID, offering.Price, offering.Currency, created.ConfirmationURL)
	if err != nil {
		return nil, err
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return nil, fmt.Errorf("store payment: %w", err)
		}
		// A concurrent caller with the same key inserted first.
		winner, findErr := s.findByKey(ctx, clientRequestID)
		if findErr != nil {
			return nil, findErr
		}
		if winner == nil {
			return nil, fmt.Errorf("store payment: %w", err)
		}
		s.logger.Info("payment creation lost race, returning winner",
			zap.String("appointment_id", appointmentID),
			zap.String("payment_id", winner.ID),
		)
		return s.replay(winner, appointmentID)
	}

	s.logger.Info("payment created",
		zap.String("appointment_id", appointment.ID),
		zap.String("payment_id", payment.ID),
		zap.String("provider_payment_id", payment.ProviderPaymentID),
	)
	span.SetAttributes(attribute.String("payment.id", payment.ID))

	return &CreatePaymentResult{Payment: payment, Created: true}, nil
}

func (s *PaymentService) findByKey(ctx context.Context, key string) (*models.Payment, error) {
	payment, err := s.payments.FindByIdempotencyKey(ctx, key)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("find payment by idempotency key: %w", err)
	}
	return payment, nil
}

func (s *PaymentService) replay(payment *models.Payment, appointmentID string) (*CreatePaymentResult, error) {
	if payment.AppointmentID != appointmentID {
		return nil, fmt.Errorf("%w: key belongs to appointment %s", ErrIdempotencyKeyReused, payment.AppointmentID)
	}
	return &CreatePaymentResult{Payment: payment, Created: false}, nil
}
