package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"practice-server/internal/services"
	"practice-server/internal/utils"
)

const maxWebhookBody = 1 << 20

// WebhookProcessor applies a processor notification
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, evt *services.WebhookEvent) (services.WebhookResult, error)
}

// WebhookHandler receives payment processor notifications.
type WebhookHandler struct {
	processor WebhookProcessor
	logger    *zap.Logger
}

func NewWebhookHandler(processor WebhookProcessor, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{processor: processor, logger: logger}
}

// HandlePaymentEvent answers 200 for every outcome the processor should not
// retry, 400 for bodies it should not retry either, and 500 when storage
// failed so the delivery is retried.
func (h *WebhookHandler) HandlePaymentEvent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.BadRequest(c, "unreadable body")
		return
	}

	evt, err := services.ParseWebhookEvent(body)
	if err != nil {
		h.logger.Warn("malformed webhook", zap.Error(err))
		utils.BadRequest(c, err.Error())
		return
	}

	result, err := h.processor.HandleWebhook(c.Request.Context(), evt)
	if err != nil {
		if errors.Is(err, services.ErrMalformedEvent) {
			utils.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("webhook processing failed",
			zap.String("event_id", evt.ID),
			zap.String("event", evt.Event),
			zap.Error(err),
		)
		utils.InternalServerError(c, "webhook processing failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}
