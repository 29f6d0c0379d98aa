package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"practice-server/internal/handlers"
	"practice-server/internal/middleware"
	"practice-server/internal/models"
)

// Handlers groups the HTTP handlers the router wires
type Handlers struct {
	Payments     *handlers.PaymentHandler
	Webhooks     *handlers.WebhookHandler
	Appointments *handlers.AppointmentHandler
	// Sandbox is nil unless the sandbox gateway is active
	Sandbox *handlers.SandboxHandler
}

// Options carries the settings the router needs
type Options struct {
	JWTSecret     string
	WebhookSecret string
	Logger        *zap.Logger
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, h Handlers, opts Options) {
	public := router.Group("/api/v1")
	{
		// booking UI, unauthenticated
		public.POST("/payments", h.Payments.CreatePayment)

		public.POST("/webhooks/payments",
			middleware.WebhookSignature(opts.WebhookSecret, opts.Logger),
			h.Webhooks.HandlePaymentEvent,
		)
	}

	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(opts.JWTSecret))
	{
		private.GET("/payments/:id", h.Payments.GetPayment)

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.GET("/:id", h.Appointments.GetAppointmentByID)

			adminRoutes := appointmentRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.PATCH("/:id/client", h.Appointments.AttachClient)
				adminRoutes.POST("/:id/confirm", h.Appointments.ConfirmAppointment)
			}
		}
	}

	if h.Sandbox != nil {
		router.GET("/sandbox/checkout", h.Sandbox.Checkout)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
