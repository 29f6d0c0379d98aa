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

func TestBookingPaidThenLateCancelKeepsConfirmation(t *testing.T) {
	h := newHarness(t)
	fx := testutil.Seed(t, h.db)
	ctx := context.Background()

	created, err := h.paymentService.CreatePayment(ctx, fx.Appointment.ID, "k1")
	require.NoError(t, err)
	providerID := created.Payment.ProviderPaymentID

	result, err := h.webhookService.HandleWebhook(ctx, succeededEvent("evt-success", providerID))
	require.NoError(t, err)
	assert.Equal(t, services.WebhookOK, result)
	assert.Equal(t, models.PaymentSucceeded, testutil.ReloadPayment(t, h.db, created.Payment.ID).Status)
	assert.Equal(t, models.StatusConfirmed, testutil.ReloadAppointment(t, h.db, fx.Appointment.ID).Status)
	assert.Equal(t, 1, h.publisher.Count())

	result, err = h.webhookService.HandleWebhook(ctx, canceledEvent("evt-cancel", providerID))
	require.NoError(t, err)
	assert.Equal(t, services.WebhookIgnored, result)
	assert.Equal(t, models.PaymentSucceeded, testutil.ReloadPayment(t, h.db, created.Payment.ID).Status)
	assert.Equal(t, models.StatusConfirmed, testutil.ReloadAppointment(t, h.db, fx.Appointment.ID).Status)
	assert.Equal(t, 1, h.publisher.Count())
}

func TestConcurrentCreateThenDoubleDelivery(t *testing.T) {
	h := newHarness(t)
	fx := testutil.Seed(t, h.db)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 2)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := h.paymentService.CreatePayment(ctx, fx.Appointment.ID, "k2")
			if assert.NoError(t, err) {
				ids[i] = res.Payment.ID
			}
		}(i)
	}
	wg.Wait()
	require.NotEmpty(t, ids[0])
	assert.Equal(t, ids[0], ids[1])

	n, err := h.payments.Count(ctx, "k2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	payment := testutil.ReloadPayment(t, h.db, ids[0])
	evt := succeededEvent("evt-once", payment.ProviderPaymentID)

	result, err := h.webhookService.HandleWebhook(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, services.WebhookOK, result)
	assert.Equal(t, 1, h.publisher.Count())

	result, err = h.webhookService.HandleWebhook(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, services.WebhookDuplicate, result)
	assert.Equal(t, 1, h.publisher.Count())
}
