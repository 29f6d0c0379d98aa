package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"practice-server/internal/models"
	"practice-server/internal/services"
	"practice-server/internal/testutil"
)

func createPayment(t *testing.T, h *harness, fx *testutil.Fixture, key string) *models.Payment {
	t.Helper()
	res, err := h.paymentService.CreatePayment(context.Background(), fx.Appointment.ID, key)
	require.NoError(t, err)
	return res.Payment
}

func TestWebhookSucceededConfirmsAppointment(t *testing.T) {
	h := newHarness(t)
	fx := testutil.Seed(t, h.db)
	payment := createPayment(t, h, fx, "req-1")

	result, err := h.webhookService.HandleWebhook(context.Background(), succeededEvent("evt-1", payment.ProviderPaymentID))
	require.NoError(t, err)
	assert.Equal(t, services.WebhookOK, result)

	stored := testutil.ReloadPayment(t, h.db, payment.ID)
	assert.Equal(t, models.PaymentSucceeded, stored.Status)
	assert.NotNil(t, stored.ConfirmedAt)
	assert.Equal(t, models.StatusConfirmed, testutil.ReloadAppointment(t, h.db, fx.Appointment.ID).Status)

	assert.Equal(t, 1, h.publisher.Count())
	assert.Equal(t, 1, h.tracker.Count())
	require.Equal(t, 1, h.notifier.Count())
	assert.Equal(t, "appointment-confirmed:"+fx.Appointment.ID, h.notifier.sent[0].DedupKey)
	assert.Equal(t, fx.Client.Email, h.notifier.sent[0].To)
	assert.Equal(t, fx.Service.Title, h.notifier.sent[0].ServiceTitle)
}

func TestWebhookDuplicateEventID(t *testing.T) {
	h := newHarness(t)
	fx := testutil.Seed(t, h.db)
	payment := createPayment(t, h, fx, "req-1")
	ctx := context.Background()

	evt := succeededEvent("evt-1", payment.ProviderPaymentID)
	result, err := h.webhookService.HandleWebhook(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, services.WebhookOK, result)

	result, err = h.webhookService.HandleWebhook(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, services.WebhookDuplicate, result)

	assert.Equal(t, 1, h.publisher.Count())
	assert.Equal(t, 1, h.notifier.Count())
}

func TestWebhookConcurrentDuplicates(t *testing.T) {
	h := newHarness(t)
	fx := testutil.Seed(t, h.db)
	payment := createPayment(t, h, fx, "req-1")

	const deliveries = 10
	results := make([]services.WebhookResult, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := h.webhookService.HandleWebhook(context.Background(), succeededEvent("evt-1", payment.ProviderPaymentID))
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, r := range results {
		if r == services.WebhookOK {
			ok++
		} else {
			assert.Equal(t, services.WebhookDuplicate, r)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, h.publisher.Count())
	assert.Equal(t, 1, h.tracker.Count())
	assert.Equal(t, 1, h.notifier.Count())
}

func TestWebhookSuccessIsSticky(t *testing.T) {
	h := newHarness(t)
	fx := testutil.Seed(t, h.db)
	payment := createPayment(t, h, fx, "req-1")
	ctx := context.Background()

	_, err := h.webhookService.HandleWebhook(ctx, succeededEvent("evt-1", payment.ProviderPaymentID))
	require.NoError(t, err)

	result, err := h.webhookService.HandleWebhook(ctx, canceledEvent("evt-2", payment.ProviderPaymentID))
	require.NoError(t, err)
	assert.Equal(t, services.WebhookIgnored, result)

	stored := testutil.ReloadPayment(t, h.db, payment.ID)
	assert.Equal(t, models.PaymentSucceeded, stored.Status)
	assert.Empty(t, stored.CancellationReason)
	assert.Equal(t, models.StatusConfirmed, testutil.ReloadAppointment(t, h.db, fx.Appointment.ID).Status)
}

func TestWebhookSucceededAgainWithNewEventID(t *testing.T) {
	h := newHarness(t)
	fx := testutil.Seed(t, h.db)
	payment := createPayment(t, h, fx, "req-1")
	ctx := context.Background()

	_, err := h.webhookService.HandleWebhook(ctx, succeededEvent("evt-1", payment.ProviderPaymentID))
	require.NoError(t, err)

	result, err := h.webhookService.HandleWebhook(ctx, succeededEvent("evt-2", payment.ProviderPaymentID))
	require.NoError(t, err)
	assert.Equal(t, services.WebhookIgnored, result)
	assert.Equal(t, 1, h.publisher.Count())
}

func TestWebhookCanceledLeavesAppointmentPending(t *testing.T) {
	h := newHarness(t)
	fx := testutil.Seed(t, h.db)
	payment := createPayment(t, h, fx, "req-1")

	result, err := h.webhookService.HandleWebhook(context.Background(), canceledEvent("evt-1", payment.ProviderPaymentID))
	require.NoError(t, err)
	assert.Equal(t, services.WebhookOK, result)

	stored := testutil.ReloadPayment(t, h.db, payment.ID)
	assert.Equal(t, models.PaymentCanceled, stored.Status)
	assert.Equal(t, "expired_on_confirmation", stored.CancellationReason)
	assert.Equal(t, models.StatusPendingPayment, testutil.ReloadAppointment(t, h.db, fx.Appointment.ID).Status)
	assert.Zero(t, h.publisher.Count())
}

func TestWebhookUnknownEventTypeIgnored(t *testing.T) {
	h := newHarness(t)
	fx := testutil.Seed(t, h.db)
	payment := createPayment(t, h, fx, "req-1")
	ctx := context.Background()

	evt := &services.WebhookEvent{
		Event:  "refund.succeeded",
		ID:     "evt-r",
		Object: services.WebhookObject{ID: payment.ProviderPaymentID},
	}
	result, err := h.webhookService.HandleWebhook(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, services.WebhookIgnored, result)

	result, err = h.webhookService.HandleWebhook(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, services.WebhookDuplicate, result)

	assert.Equal(t, models.PaymentPending, testutil.ReloadPayment(t, h.db, payment.ID).Status)
}

func TestWebhookUnknownPaymentRollsBackLedger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.webhookService.HandleWebhook(ctx, succeededEvent("evt-1", "prov-missing"))
	require.ErrorIs(t, err, services.ErrPaymentNotFound)

	// the failed delivery left no ledger entry, so the retry is processed again
	_, err = h.webhookService.HandleWebhook(ctx, succeededEvent("evt-1", "prov-missing"))
	require.ErrorIs(t, err, services.ErrPaymentNotFound)
}

func TestWebhookRejectsMalformedEvent(t *testing.T) {
	h := newHarness(t)

	_, err := h.webhookService.HandleWebhook(context.Background(), &services.WebhookEvent{Event: services.EventPaymentSucceeded})
	assert.ErrorIs(t, err, services.ErrMalformedEvent)
}

func TestWebhookConfirmationFailureStillAcknowledged(t *testing.T) {
	h := newHarness(t)
	fx := testutil.Seed(t, h.db)
	payment := createPayment(t, h, fx, "req-1")
	h.publisher.err = errUnavailable
	h.notifier.err = errUnavailable

	result, err := h.webhookService.HandleWebhook(context.Background(), succeededEvent("evt-1", payment.ProviderPaymentID))
	require.NoError(t, err)
	assert.Equal(t, services.WebhookOK, result)

	// side effect failures do not undo the confirmation or stop the others
	assert.Equal(t, models.StatusConfirmed, testutil.ReloadAppointment(t, h.db, fx.Appointment.ID).Status)
	assert.Equal(t, 1, h.tracker.Count())
	assert.Equal(t, 1, h.notifier.Count())
}

func TestPruneLedger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.webhookService.HandleWebhook(ctx, &services.WebhookEvent{
		Event: "refund.succeeded", ID: "evt-1", Object: services.WebhookObject{ID: "x"},
	})
	require.NoError(t, err)

	n, err := h.webhookService.PruneLedger(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n, "zero retention disables pruning")

	n, err = h.webhookService.PruneLedger(ctx, -1)
	require.NoError(t, err)
	assert.Zero(t, n)
}
