package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"practice-server/internal/models"
	"practice-server/internal/testutil"
)

func TestReconcilerConfirmsStuckAppointments(t *testing.T) {
	h := newHarness(t)
	stuck := testutil.Seed(t, h.db)
	pending := testutil.Seed(t, h.db)
	markSucceeded(t, h, createPayment(t, h, stuck, "req-stuck"))
	createPayment(t, h, pending, "req-pending")

	confirmed, err := h.reconciler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, confirmed)
	assert.Equal(t, models.StatusConfirmed, testutil.ReloadAppointment(t, h.db, stuck.Appointment.ID).Status)
	assert.Equal(t, models.StatusPendingPayment, testutil.ReloadAppointment(t, h.db, pending.Appointment.ID).Status)
	assert.Equal(t, 1, h.publisher.Count())

	confirmed, err = h.reconciler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, confirmed)
	assert.Equal(t, 1, h.publisher.Count())
}
