package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(url string, retries int) *YooKassaClient {
	return NewYooKassaClient(ClientConfig{
		BaseURL:    url,
		ShopID:     "shop-1",
		SecretKey:  "secret",
		MaxRetries: retries,
		RetryDelay: time.Millisecond,
	}, zap.NewNop())
}

func testRequest() CreatePaymentRequest {
	return CreatePaymentRequest{
		IdempotenceKey: "req-1",
		AppointmentID:  "appt-1",
		Amount:         decimal.RequireFromString("150"),
		Currency:       "RUB",
		Description:    "Initial consultation",
		ReturnURL:      "https://app.example/return",
	}
}

func TestCreatePaymentSendsCredentialsAndKey(t *testing.T) {
	var got PaymentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments", r.URL.Path)
		assert.Equal(t, "req-1", r.Header.Get("Idempotence-Key"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "shop-1", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(PaymentResponse{
			ID:     "prov-1",
			Status: "pending",
			Confirmation: &Confirmation{
				Type:            "redirect",
				ConfirmationURL: "https://pay.example/prov-1",
			},
		})
	}))
	defer srv.Close()

	created, err := newTestClient(srv.URL, 0).CreatePayment(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "prov-1", created.ProviderPaymentID)
	assert.Equal(t, "https://pay.example/prov-1", created.ConfirmationURL)

	assert.Equal(t, "150.00", got.Amount.Value)
	assert.Equal(t, "RUB", got.Amount.Currency)
	assert.True(t, got.Capture)
	assert.Equal(t, "redirect", got.Confirmation.Type)
	assert.Equal(t, "appt-1", got.Metadata["appointment_id"])
}

func TestCreatePaymentRetriesServerErrorsWithSameKey(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-1", r.Header.Get("Idempotence-Key"))
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(PaymentResponse{ID: "prov-1", Status: "pending"})
	}))
	defer srv.Close()

	created, err := newTestClient(srv.URL, 2).CreatePayment(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "prov-1", created.ProviderPaymentID)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestCreatePaymentDoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","code":"invalid_request"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).CreatePayment(context.Background(), testRequest())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestCreatePaymentGivesUpAfterRetries(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 1).CreatePayment(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(2), attempts.Load())
}

func TestCreatePaymentRequiresKey(t *testing.T) {
	req := testRequest()
	req.IdempotenceKey = ""
	_, err := newTestClient("http://127.0.0.1:0", 0).CreatePayment(context.Background(), req)
	assert.Error(t, err)
}

func TestSandboxIsDeterministicPerKey(t *testing.T) {
	sb := NewSandbox("http://localhost:3001/", zap.NewNop())
	ctx := context.Background()

	a, err := sb.CreatePayment(ctx, testRequest())
	require.NoError(t, err)
	b, err := sb.CreatePayment(ctx, testRequest())
	require.NoError(t, err)
	assert.Equal(t, a.ProviderPaymentID, b.ProviderPaymentID)
	assert.Equal(t, "http://localhost:3001/sandbox/checkout?payment_id="+a.ProviderPaymentID, a.ConfirmationURL)

	other := testRequest()
	other.IdempotenceKey = "req-2"
	c, err := sb.CreatePayment(ctx, other)
	require.NoError(t, err)
	assert.NotEqual(t, a.ProviderPaymentID, c.ProviderPaymentID)
}
