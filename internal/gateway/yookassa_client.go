package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ClientConfig contains configuration for the YooKassa client
type ClientConfig struct {
	BaseURL        string
	ShopID         string
	SecretKey      string
	MaxRetries     int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
}

// YooKassaClient handles communication with the YooKassa API
type YooKassaClient struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Gateway = (*YooKassaClient)(nil)

// NewYooKassaClient creates a new YooKassa API client
func NewYooKassaClient(config ClientConfig, logger *zap.Logger) *YooKassaClient {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 500 * time.Millisecond
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 15 * time.Second
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &YooKassaClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		logger: logger,
	}
}

// CreatePayment opens a redirect payment with immediate capture
func (c *YooKassaClient) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatedPayment, error) {
	if req.IdempotenceKey == "" {
		return nil, errors.New("create payment: idempotence key is required")
	}

	payload := PaymentRequest{
		Amount: Amount{
			Value:    req.Amount.StringFixed(2),
			Currency: req.Currency,
		},
		Capture: true,
		Confirmation: Confirmation{
			Type:      "redirect",
			ReturnURL: req.ReturnURL,
		},
		Description: req.Description,
		Metadata:    map[string]string{"appointment_id": req.AppointmentID},
	}

	c.logger.Info("creating payment",
		zap.String("appointment_id", req.AppointmentID),
		zap.String("amount", payload.Amount.Value),
		zap.String("currency", req.Currency),
	)

	var paymentResp PaymentResponse
	if err := c.makeRequest(ctx, http.MethodPost, "/payments", req.IdempotenceKey, payload, &paymentResp); err != nil {
		c.logger.Error("failed to create payment",
			zap.String("appointment_id", req.AppointmentID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("create payment failed: %w", err)
	}
	if paymentResp.ID == "" {
		return nil, errors.New("create payment failed: response without payment id")
	}

	created := &CreatedPayment{
		ProviderPaymentID: paymentResp.ID,
		Status:            paymentResp.Status,
	}
	if paymentResp.Confirmation != nil {
		created.ConfirmationURL = paymentResp.Confirmation.ConfirmationURL
	}

	c.logger.Info("payment created successfully",
		zap.String("appointment_id", req.AppointmentID),
		zap.String("provider_payment_id", created.ProviderPaymentID),
	)

	return created, nil
}

// makeRequest performs the HTTP request with auth headers and retries.
// The same idempotence key is sent on every attempt.
func (c *YooKassaClient) makeRequest(ctx context.Context, method, endpoint, idempotenceKey string, payload, out any) error {
	url := c.config.BaseURL + endpoint

	var payloadBytes []byte
	if payload != nil {
		var err error
		payloadBytes, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload failed: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Info("retrying request",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
		}

		var body io.Reader
		if payloadBytes != nil {
			body = bytes.NewReader(payloadBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return fmt.Errorf("create request failed: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Idempotence-Key", idempotenceKey)
		req.SetBasicAuth(c.config.ShopID, c.config.SecretKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if ctx.Err() != nil {
				return lastErr
			}
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response failed: %w", err)
			continue
		}

		// Don't retry on client errors (4xx)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		}
		if resp.StatusCode >= 500 {
			lastErr = &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decode response failed: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// APIError represents an error returned by the YooKassa API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yookassa API error (status %d): %s", e.StatusCode, e.Message)
}
