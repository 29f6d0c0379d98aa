package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"practice-server/internal/models"
	"practice-server/internal/services"
	"practice-server/internal/utils"
)

// AppointmentStore is the appointment persistence the handler needs
type AppointmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	AttachClientUser(ctx context.Context, id, clientID string) error
}

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	appointments AppointmentStore
	confirmer    services.Confirmer
	logger       *zap.Logger
}

func NewAppointmentHandler(appointments AppointmentStore, confirmer services.Confirmer, logger *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments, confirmer: confirmer, logger: logger}
}

// AppointmentResponse exposes the appointment with its client, if any
type AppointmentResponse struct {
	*models.Appointment
	Client *models.Client `json:"client,omitempty"`
}

// GetAppointmentByID handles fetching a single appointment by its ID.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appointment, err := h.appointments.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.Success(c, "Appointment fetched successfully", AppointmentResponse{
		Appointment: appointment,
		Client:      appointment.Client,
	})
}

// AttachClientRequest represents the request body for linking a client.
type AttachClientRequest struct {
	ClientID string `json:"clientId" binding:"required,uuid"`
}

// AttachClient links a registered client to an appointment booked as a lead
func (h *AppointmentHandler) AttachClient(c *gin.Context) {
	var req AttachClientRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.appointments.AttachClientUser(ctx, id, req.ClientID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	appointment, err := h.appointments.FindByID(ctx, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.Success(c, "Client attached", AppointmentResponse{
		Appointment: appointment,
		Client:      appointment.Client,
	})
}

// ConfirmAppointment re-drives the confirmation of a paid appointment
func (h *AppointmentHandler) ConfirmAppointment(c *gin.Context) {
	id := c.Param("id")
	outcome, err := h.confirmer.ConfirmAfterPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if outcome == services.ConfirmationNotEligible {
		utils.Conflict(c, "appointment has no succeeded payment")
		return
	}
	utils.Success(c, "Confirmation processed", gin.H{
		"appointmentId": id,
		"outcome":       outcome,
	})
}
