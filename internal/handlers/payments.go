package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"practice-server/internal/models"
	"practice-server/internal/services"
	"practice-server/internal/utils"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// PaymentCreator is the payment creation use case
type PaymentCreator interface {
	CreatePayment(ctx context.Context, appointmentID, clientRequestID string) (*services.CreatePaymentResult, error)
}

// PaymentReader loads payments by internal id
type PaymentReader interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
}

// PaymentHandler handles payment related requests.
type PaymentHandler struct {
	creator PaymentCreator
	reader  PaymentReader
	logger  *zap.Logger
}

func NewPaymentHandler(creator PaymentCreator, reader PaymentReader, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{creator: creator, reader: reader, logger: logger}
}

// CreatePaymentRequest represents the request body for starting a payment.
type CreatePaymentRequest struct {
	AppointmentID   string `json:"appointmentId" binding:"required,uuid"`
	ClientRequestID string `json:"clientRequestId" binding:"omitempty,max=255"`
}

// PaymentResponse is what the booking UI needs to redirect the client
type PaymentResponse struct {
	ID              string               `json:"id"`
	AppointmentID   string               `json:"appointmentId"`
	Status          models.PaymentStatus `json:"status"`
	Amount          string               `json:"amount"`
	Currency        string               `json:"currency"`
	ConfirmationURL string               `json:"confirmationUrl"`
}

func newPaymentResponse(p *models.Payment) PaymentResponse {
	return PaymentResponse{
		ID:              p.ID,
		AppointmentID:   p.AppointmentID,
		Status:          p.Status,
		Amount:          p.Amount.StringFixed(2),
		Currency:        p.Currency,
		ConfirmationURL: p.ConfirmationURL,
	}
}

// CreatePayment starts a payment for an appointment. Repeating the call with
// the same client request id returns the same payment with 200.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	key := strings.TrimSpace(req.ClientRequestID)
	if key == "" {
		key = strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	}
	if key == "" {
		utils.BadRequest(c, "clientRequestId or "+IdempotencyKeyHeader+" header is required")
		return
	}

	res, err := h.creator.CreatePayment(c.Request.Context(), req.AppointmentID, key)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if res.Created {
		utils.Created(c, "Payment created", newPaymentResponse(res.Payment))
		return
	}
	c.JSON(http.StatusOK, utils.ResponseData{
		Status:  http.StatusOK,
		Message: "Payment already exists",
		Data:    newPaymentResponse(res.Payment),
	})
}

// GetPayment returns a payment by its internal id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.reader.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.Success(c, "Payment fetched successfully", newPaymentResponse(payment))
}
