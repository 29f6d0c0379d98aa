package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"practice-server/internal/events"
	"practice-server/internal/gateway"
	"practice-server/internal/models"
	"practice-server/internal/notifier"
	"practice-server/internal/repository"
	"practice-server/internal/services"
	"practice-server/internal/testutil"
)

var errUnavailable = errors.New("unavailable")

// fakeGateway mimics the processor: the same idempotence key yields the
// same provider payment
type fakeGateway struct {
	mu    sync.Mutex
	calls int
	keys  map[string]string
	err   error
}

func (g *fakeGateway) CreatePayment(_ context.Context, req gateway.CreatePaymentRequest) (*gateway.CreatedPayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	if g.keys == nil {
		g.keys = map[string]string{}
	}
	id, ok := g.keys[req.IdempotenceKey]
	if !ok {
		id = fmt.Sprintf("prov-%d", len(g.keys)+1)
		g.keys[req.IdempotenceKey] = id
	}
	return &gateway.CreatedPayment{
		ProviderPaymentID: id,
		Status:            "pending",
		ConfirmationURL:   "https://pay.example/" + id,
	}, nil
}

func (g *fakeGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.AppointmentConfirmed
	err    error
}

func (p *fakePublisher) PublishAppointmentConfirmed(_ context.Context, evt events.AppointmentConfirmed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *fakePublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notifier.ConfirmationEmail
	err  error
}

func (n *fakeNotifier) SendConfirmation(_ context.Context, msg notifier.ConfirmationEmail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *fakeNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fakeTracker struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (t *fakeTracker) TrackBookingConfirmed(context.Context, *models.Appointment) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	return t.err
}

func (t *fakeTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// harness wires the services against a sqlite database
type harness struct {
	db           *gorm.DB
	appointments *repository.AppointmentRepositoryImpl
	payments     *repository.PaymentRepositoryImpl
	ledger       *repository.WebhookEventRepositoryImpl
	gateway      *fakeGateway
	publisher    *fakePublisher
	notifier     *fakeNotifier
	tracker      *fakeTracker

	paymentService      *services.PaymentService
	webhookService      *services.WebhookService
	confirmationService *services.ConfirmationService
	reconciler          *services.Reconciler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	logger := zap.NewNop()

	h := &harness{
		db:           db,
		appointments: repository.NewAppointmentRepository(db),
		payments:     repository.NewPaymentRepository(db),
		ledger:       repository.NewWebhookEventRepository(db),
		gateway:      &fakeGateway{},
		publisher:    &fakePublisher{},
		notifier:     &fakeNotifier{},
		tracker:      &fakeTracker{},
	}
	catalog := repository.NewServiceOfferingRepository(db)

	h.confirmationService = services.NewConfirmationService(h.appointments, h.payments, catalog, h.publisher, h.tracker, h.notifier, logger)
	h.paymentService = services.NewPaymentService(h.appointments, catalog, h.payments, h.gateway, "https://app.example/return", logger)
	h.webhookService = services.NewWebhookService(repository.NewTransactor(db), h.ledger, h.payments, h.confirmationService, logger)
	h.reconciler = services.NewReconciler(h.payments, h.confirmationService, logger)
	return h
}

func succeededEvent(eventID, providerID string) *services.WebhookEvent {
	return &services.WebhookEvent{
		Event: services.EventPaymentSucceeded,
		ID:    eventID,
		Object: services.WebhookObject{
			ID:     providerID,
			Status: "succeeded",
			Amount: &services.WebhookAmount{Value: "150.00", Currency: "RUB"},
		},
	}
}

func canceledEvent(eventID, providerID string) *services.WebhookEvent {
	return &services.WebhookEvent{
		Event: services.EventPaymentCanceled,
		ID:    eventID,
		Object: services.WebhookObject{
			ID:                  providerID,
			Status:              "canceled",
			CancellationDetails: &services.CancellationDetails{Party: "yoo_money", Reason: "expired_on_confirmation"},
		},
	}
}
