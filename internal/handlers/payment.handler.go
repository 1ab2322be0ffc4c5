package handlers

import (
	"context"

	"spruce/internal/app"
	"spruce/internal/handlers/middleware"
	"spruce/internal/logger"
	"spruce/internal/models"
	"spruce/internal/services"

	paymentController "spruce/internal/controllers/payments"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type PaymentHandler struct {
	Handler
	controller paymentController.PaymentControllerInterface
}

type appointmentRequest struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
}

type completeJobRequest struct {
	AppointmentID uuid.UUID  `json:"appointmentId"`
	CleanerID     *uuid.UUID `json:"cleanerId,omitempty"`
}

func NewPaymentHandler(app app.App, router fiber.Router) *PaymentHandler {
	log := logger.New("handlers").File("payment_handler")
	return &PaymentHandler{
		controller: app.Controllers.Payment,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *PaymentHandler) Register() {
	payments := h.router.Group("/payments", h.middleware.RequireAuth())

	payments.Post("/authorize", h.paymentAction(h.controller.Authorize))
	payments.Post("/capture", h.paymentAction(h.controller.Capture))
	payments.Post("/pre-pay", h.paymentAction(h.controller.PrePay))
	payments.Post("/retry-payment", h.paymentAction(h.controller.Retry))
	payments.Post("/cancel-or-refund", h.paymentAction(h.controller.CancelOrRefund))
	// Kept as an alias; cancellation and refund share one decision path that
	// inspects the live hold.
	payments.Post("/refund", h.paymentAction(h.controller.CancelOrRefund))
	payments.Post("/approve-job", h.paymentAction(h.controller.ApproveJob))
	payments.Post("/complete-job", h.completeJob)
	payments.Post("/decline-job", h.declineJob)
}

type paymentOperation func(
	ctx context.Context,
	user *models.User,
	appointmentID uuid.UUID,
) (*services.PaymentResult, error)

// paymentAction wraps the operations that share the parse-authorize-respond
// shape.
func (h *PaymentHandler) paymentAction(operation paymentOperation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		log := h.log.Function("paymentAction")

		user := middleware.GetUser(c)
		request, err := parseAppointmentRequest(c)
		if err != nil {
			return respondError(c, log, err)
		}

		result, err := operation(c.UserContext(), user, request.AppointmentID)
		if err != nil {
			return respondError(c, log, err)
		}

		return c.JSON(fiber.Map{
			"appointment":     result.Appointment,
			"holdId":          result.HoldID,
			"refunded":        result.Refunded,
			"feeCharged":      result.FeeCharged,
			"payoutsReleased": result.PayoutsReleased,
		})
	}
}

func parseAppointmentRequest(c *fiber.Ctx) (*appointmentRequest, error) {
	var request appointmentRequest
	if err := c.BodyParser(&request); err != nil {
		return nil, services.NewDomainError(services.ErrValidation, "Invalid request body")
	}
	if request.AppointmentID == uuid.Nil {
		return nil, services.NewDomainError(services.ErrValidation, "appointmentId is required")
	}
	return &request, nil
}

func (h *PaymentHandler) completeJob(c *fiber.Ctx) error {
	log := h.log.Function("completeJob")

	user := middleware.GetUser(c)

	var request completeJobRequest
	if err := c.BodyParser(&request); err != nil {
		return respondError(c, log,
			services.NewDomainError(services.ErrValidation, "Invalid request body"))
	}
	if request.AppointmentID == uuid.Nil {
		return respondError(c, log,
			services.NewDomainError(services.ErrValidation, "appointmentId is required"))
	}

	appointment, err := h.controller.CompleteJob(
		c.UserContext(),
		user,
		request.AppointmentID,
		paymentController.CompleteJobRequest{CleanerID: request.CleanerID},
	)
	if err != nil {
		return respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"appointment": appointment})
}

func (h *PaymentHandler) declineJob(c *fiber.Ctx) error {
	log := h.log.Function("declineJob")

	user := middleware.GetUser(c)
	request, err := parseAppointmentRequest(c)
	if err != nil {
		return respondError(c, log, err)
	}

	appointment, err := h.controller.DeclineJob(c.UserContext(), user, request.AppointmentID)
	if err != nil {
		return respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"appointment": appointment})
}
