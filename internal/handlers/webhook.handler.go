package handlers

import (
	"spruce/internal/app"
	"spruce/internal/logger"

	paymentController "spruce/internal/controllers/payments"

	"github.com/gofiber/fiber/v2"
)

type WebhookHandler struct {
	Handler
	controller paymentController.PaymentControllerInterface
}

type gatewayWebhookPayload struct {
	HoldID string `json:"holdId"`
	Event  string `json:"event"`
}

func NewWebhookHandler(app app.App, router fiber.Router) *WebhookHandler {
	log := logger.New("handlers").File("webhook_handler")
	return &WebhookHandler{
		controller: app.Controllers.Payment,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *WebhookHandler) Register() {
	webhooks := h.router.Group("/webhooks", h.middleware.RequireWebhookSecret())

	webhooks.Post("/payments", h.paymentEvent)
}

// paymentEvent reconciles local state from a gateway notification. The
// gateway's view wins, so we re-fetch the hold rather than trusting the
// payload's status.
func (h *WebhookHandler) paymentEvent(c *fiber.Ctx) error {
	log := h.log.Function("paymentEvent")

	var payload gatewayWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	appointment, err := h.controller.SyncHold(c.UserContext(), payload.HoldID)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("gateway webhook processed",
		"holdID", payload.HoldID,
		"event", payload.Event,
		"appointmentID", appointment.ID,
	)
	return c.JSON(fiber.Map{"appointment": appointment})
}
