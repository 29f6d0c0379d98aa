package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"practice-server/internal/services"
	"practice-server/internal/utils"
)

// SandboxHandler stands in for the processor's checkout page when the
// sandbox gateway is active. Completing a checkout delivers the matching
// webhook through the regular processing path.
type SandboxHandler struct {
	processor WebhookProcessor
	logger    *zap.Logger
}

func NewSandboxHandler(processor WebhookProcessor, logger *zap.Logger) *SandboxHandler {
	return &SandboxHandler{processor: processor, logger: logger}
}

// Checkout settles a sandbox payment. outcome is succeeded (default),
// canceled or failed.
func (h *SandboxHandler) Checkout(c *gin.Context) {
	providerID := c.Query("payment_id")
	if providerID == "" {
		utils.BadRequest(c, "payment_id is required")
		return
	}

	evt := &services.WebhookEvent{
		ID:     "sbx_evt_" + uuid.NewString(),
		Object: services.WebhookObject{ID: providerID},
	}
	switch c.DefaultQuery("outcome", "succeeded") {
	case "succeeded":
		evt.Event = services.EventPaymentSucceeded
		evt.Object.Status = "succeeded"
	case "canceled":
		evt.Event = services.EventPaymentCanceled
		evt.Object.Status = "canceled"
		evt.Object.CancellationDetails = &services.CancellationDetails{Party: "payment_network", Reason: "sandbox_canceled"}
	case "failed":
		evt.Event = services.EventPaymentFailed
		evt.Object.Status = "failed"
	default:
		utils.BadRequest(c, "outcome must be succeeded, canceled or failed")
		return
	}

	result, err := h.processor.HandleWebhook(c.Request.Context(), evt)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result, "eventId": evt.ID})
}
