package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"practice-server/internal/repository"
	"practice-server/internal/services"
	"practice-server/internal/utils"
)

// respondError maps domain errors to HTTP statuses. Unknown errors are
// logged and answered with 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidRequest), errors.Is(err, services.ErrMalformedEvent):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrAppointmentNotFound),
		errors.Is(err, services.ErrPaymentNotFound),
		errors.Is(err, repository.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, services.ErrAppointmentNotPayable),
		errors.Is(err, services.ErrIdempotencyKeyReused),
		errors.Is(err, repository.ErrConflict):
		utils.Conflict(c, err.Error())
	case errors.Is(err, services.ErrGateway):
		utils.BadGateway(c, err.Error())
	default:
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		utils.InternalServerError(c, "internal error")
	}
}
