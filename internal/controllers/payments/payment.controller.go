package paymentController

import (
	"context"

	"spruce/internal/logger"
	. "spruce/internal/models"
	"spruce/internal/services"

	"github.com/google/uuid"
)

// paymentService is the slice of services.PaymentService this controller
// needs.
type paymentService interface {
	GetAppointment(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error)
	Authorize(ctx context.Context, appointmentID uuid.UUID) (*services.PaymentResult, error)
	Capture(ctx context.Context, appointmentID uuid.UUID) (*services.PaymentResult, error)
	PrePay(ctx context.Context, appointmentID uuid.UUID) (*services.PaymentResult, error)
	RetryPayment(ctx context.Context, appointmentID uuid.UUID) (*services.PaymentResult, error)
	CancelOrRefund(ctx context.Context, appointmentID uuid.UUID) (*services.PaymentResult, error)
	CompleteJob(
		ctx context.Context,
		appointmentID uuid.UUID,
		cleanerID uuid.UUID,
	) (*Appointment, error)
	ApproveJob(ctx context.Context, appointmentID uuid.UUID) (*services.PaymentResult, error)
	DeclineJob(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error)
	SyncHold(ctx context.Context, holdID string) (*Appointment, error)
}

type PaymentController struct {
	paymentService paymentService
}

type CompleteJobRequest struct {
	CleanerID *uuid.UUID `json:"cleanerId,omitempty"`
}

type PaymentControllerInterface interface {
	Authorize(
		ctx context.Context,
		user *User,
		appointmentID uuid.UUID,
	) (*services.PaymentResult, error)
	Capture(
		ctx context.Context,
		user *User,
		appointmentID uuid.UUID,
	) (*services.PaymentResult, error)
	PrePay(
		ctx context.Context,
		user *User,
		appointmentID uuid.UUID,
	) (*services.PaymentResult, error)
	Retry(
		ctx context.Context,
		user *User,
		appointmentID uuid.UUID,
	) (*services.PaymentResult, error)
	CancelOrRefund(
		ctx context.Context,
		user *User,
		appointmentID uuid.UUID,
	) (*services.PaymentResult, error)
	CompleteJob(
		ctx context.Context,
		user *User,
		appointmentID uuid.UUID,
		request CompleteJobRequest,
	) (*Appointment, error)
	ApproveJob(
		ctx context.Context,
		user *User,
		appointmentID uuid.UUID,
	) (*services.PaymentResult, error)
	DeclineJob(ctx context.Context, user *User, appointmentID uuid.UUID) (*Appointment, error)
	SyncHold(ctx context.Context, holdID string) (*Appointment, error)
}

func New(service services.Service) PaymentControllerInterface {
	return &PaymentController{
		paymentService: service.Payment,
	}
}

// authorizeClient restricts payment operations to the appointment's client
// or an admin. Cleaners never move client money.
func (c *PaymentController) authorizeClient(
	ctx context.Context,
	user *User,
	appointmentID uuid.UUID,
) error {
	if user.IsAdmin() {
		return nil
	}
	appointment, err := c.paymentService.GetAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appointment.ClientID != user.ID {
		return services.NewDomainError(
			services.ErrUnauthorized,
			"You do not have access to this appointment",
		)
	}
	return nil
}

func (c *PaymentController) Authorize(
	ctx context.Context,
	user *User,
	appointmentID uuid.UUID,
) (*services.PaymentResult, error) {
	if err := c.authorizeClient(ctx, user, appointmentID); err != nil {
		return nil, err
	}
	return c.paymentService.Authorize(ctx, appointmentID)
}

func (c *PaymentController) Capture(
	ctx context.Context,
	user *User,
	appointmentID uuid.UUID,
) (*services.PaymentResult, error) {
	if err := c.authorizeClient(ctx, user, appointmentID); err != nil {
		return nil, err
	}
	return c.paymentService.Capture(ctx, appointmentID)
}

func (c *PaymentController) PrePay(
	ctx context.Context,
	user *User,
	appointmentID uuid.UUID,
) (*services.PaymentResult, error) {
	if err := c.authorizeClient(ctx, user, appointmentID); err != nil {
		return nil, err
	}
	return c.paymentService.PrePay(ctx, appointmentID)
}

func (c *PaymentController) Retry(
	ctx context.Context,
	user *User,
	appointmentID uuid.UUID,
) (*services.PaymentResult, error) {
	if err := c.authorizeClient(ctx, user, appointmentID); err != nil {
		return nil, err
	}
	return c.paymentService.RetryPayment(ctx, appointmentID)
}

func (c *PaymentController) CancelOrRefund(
	ctx context.Context,
	user *User,
	appointmentID uuid.UUID,
) (*services.PaymentResult, error) {
	log := logger.NewWithContext(ctx, "paymentController").Function("CancelOrRefund")

	if err := c.authorizeClient(ctx, user, appointmentID); err != nil {
		return nil, err
	}

	result, err := c.paymentService.CancelOrRefund(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	log.Info("appointment cancelled",
		"appointmentID", appointmentID,
		"refunded", result.Refunded,
		"feeCharged", result.FeeCharged,
	)
	return result, nil
}

func (c *PaymentController) CompleteJob(
	ctx context.Context,
	user *User,
	appointmentID uuid.UUID,
	request CompleteJobRequest,
) (*Appointment, error) {
	cleanerID := user.ID
	if user.IsAdmin() && request.CleanerID != nil {
		cleanerID = *request.CleanerID
	} else if !user.IsCleaner() && !user.IsAdmin() {
		return nil, services.NewDomainError(
			services.ErrUnauthorized,
			"Only the assigned cleaner can submit completion",
		)
	}
	return c.paymentService.CompleteJob(ctx, appointmentID, cleanerID)
}

func (c *PaymentController) ApproveJob(
	ctx context.Context,
	user *User,
	appointmentID uuid.UUID,
) (*services.PaymentResult, error) {
	if err := c.authorizeClient(ctx, user, appointmentID); err != nil {
		return nil, err
	}
	return c.paymentService.ApproveJob(ctx, appointmentID)
}

func (c *PaymentController) DeclineJob(
	ctx context.Context,
	user *User,
	appointmentID uuid.UUID,
) (*Appointment, error) {
	if err := c.authorizeClient(ctx, user, appointmentID); err != nil {
		return nil, err
	}
	return c.paymentService.DeclineJob(ctx, appointmentID)
}

// SyncHold reconciles local payment state from a gateway webhook. Webhooks
// authenticate with a shared secret, not a user session.
func (c *PaymentController) SyncHold(ctx context.Context, holdID string) (*Appointment, error) {
	if holdID == "" {
		return nil, services.NewDomainError(services.ErrValidation, "holdId is required")
	}
	return c.paymentService.SyncHold(ctx, holdID)
}
