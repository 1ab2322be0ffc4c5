package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"spruce/config"
	"spruce/internal/events"
	"spruce/internal/gateway"
	"spruce/internal/logger"
	. "spruce/internal/models"
	"spruce/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentResult reports a payment operation back to the transport layer.
type PaymentResult struct {
	Appointment     *Appointment `json:"appointment"`
	HoldID          string       `json:"holdId,omitempty"`
	Refunded        bool         `json:"refunded"`
	FeeCharged      bool         `json:"feeCharged"`
	PayoutsReleased int64        `json:"payoutsReleased,omitempty"`
}

// PaymentService drives the payment state machine:
// pending -> authorized -> captured -> refunded|canceled, with failed
// recoverable through an explicit retry. Local payment status is written only
// after the gateway call's result is known.
type PaymentService struct {
	repos   repositories.Repository
	tx      TransactionRunner
	gateway gateway.PaymentGateway
	billing *BillingService
	payouts *PayoutService
	events  *events.EventBus
	config  config.Config
	now     func() time.Time
	log     logger.Logger
}

func NewPaymentService(
	repos repositories.Repository,
	tx TransactionRunner,
	gw gateway.PaymentGateway,
	billing *BillingService,
	payouts *PayoutService,
	eventBus *events.EventBus,
	config config.Config,
) *PaymentService {
	return &PaymentService{
		repos:   repos,
		tx:      tx,
		gateway: gw,
		billing: billing,
		payouts: payouts,
		events:  eventBus,
		config:  config,
		now:     time.Now,
		log:     logger.New("paymentService"),
	}
}

func (s *PaymentService) getAppointment(
	ctx context.Context,
	tx *gorm.DB,
	appointmentID uuid.UUID,
) (*Appointment, error) {
	appointment, err := s.repos.Appointment.GetByID(ctx, tx, appointmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewDomainError(ErrNotFound, "Appointment not found")
		}
		return nil, err
	}
	return appointment, nil
}

func (s *PaymentService) loadAppointment(
	ctx context.Context,
	appointmentID uuid.UUID,
) (*Appointment, error) {
	var appointment *Appointment
	err := s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		appointment, err = s.getAppointment(ctx, tx, appointmentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return appointment, nil
}

// GetAppointment loads one appointment with its home and assignments, for
// ownership checks and display.
func (s *PaymentService) GetAppointment(
	ctx context.Context,
	appointmentID uuid.UUID,
) (*Appointment, error) {
	return s.loadAppointment(ctx, appointmentID)
}

// Authorize places a hold for the appointment's price. No money moves until
// capture.
func (s *PaymentService) Authorize(
	ctx context.Context,
	appointmentID uuid.UUID,
) (*PaymentResult, error) {
	log := s.log.Function("Authorize")

	appointment, err := s.loadAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if appointment.WasCancelled {
		return nil, NewDomainError(ErrConflict, "Appointment is cancelled")
	}
	if appointment.Paid {
		return nil, NewDomainError(ErrConflict, "Appointment already paid")
	}
	if appointment.PaymentHoldID != "" {
		return nil, NewDomainError(ErrConflict, "Payment hold already exists")
	}

	hold, err := s.gateway.CreateHold(ctx, appointment.PriceCents(), appointment.ClientID.String())
	if err != nil {
		if errors.Is(err, gateway.ErrDeclined) {
			return nil, NewDomainError(ErrGateway, "payment declined")
		}
		_ = log.Err("gateway hold creation failed", err, "appointmentID", appointmentID)
		return nil, NewDomainError(ErrGateway, "payment gateway unavailable")
	}

	err = s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		appointment.PaymentStatus = PaymentAuthorized
		appointment.PaymentHoldID = hold.ID
		if raw, err := json.Marshal(hold); err == nil {
			appointment.GatewayPayload = datatypes.JSON(raw)
		}
		return s.repos.Appointment.Update(ctx, tx, appointment)
	})
	if err != nil {
		// Hold exists at the gateway with no local record; needs operator
		// reconciliation.
		return nil, log.Err("hold created at gateway but local update failed", err,
			"appointmentID", appointmentID, "holdID", hold.ID)
	}

	return &PaymentResult{Appointment: appointment, HoldID: hold.ID}, nil
}

// Capture charges an authorized hold. Preconditions reject with specific
// messages rather than a generic failure.
func (s *PaymentService) Capture(
	ctx context.Context,
	appointmentID uuid.UUID,
) (*PaymentResult, error) {
	return s.capture(ctx, appointmentID, false)
}

// PrePay is the homeowner capturing before job completion. It is the same
// charge path but remembers the manual action.
func (s *PaymentService) PrePay(
	ctx context.Context,
	appointmentID uuid.UUID,
) (*PaymentResult, error) {
	return s.capture(ctx, appointmentID, true)
}

// RetryPayment re-attempts a previously failed capture against the existing
// hold. It never creates a new hold.
func (s *PaymentService) RetryPayment(
	ctx context.Context,
	appointmentID uuid.UUID,
) (*PaymentResult, error) {
	appointment, err := s.loadAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if appointment.PaymentStatus != PaymentFailed {
		return nil, NewDomainError(ErrConflict, "Payment is not in a failed state")
	}

	return s.capture(ctx, appointmentID, false)
}

func (s *PaymentService) capture(
	ctx context.Context,
	appointmentID uuid.UUID,
	manually bool,
) (*PaymentResult, error) {
	log := s.log.Function("capture")

	appointment, err := s.loadAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if appointment.WasCancelled {
		return nil, NewDomainError(ErrConflict, "Appointment is cancelled")
	}
	if appointment.Paid {
		return nil, NewDomainError(ErrConflict, "Appointment already paid")
	}
	if appointment.PaymentHoldID == "" {
		return nil, NewDomainError(ErrValidation, "Cannot charge without a payment hold")
	}
	if len(appointment.Assignments) == 0 {
		return nil, NewDomainError(ErrValidation, "Cannot charge without a cleaner assigned")
	}

	hold, err := s.gateway.CaptureHold(ctx, appointment.PaymentHoldID)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrDeclined):
			s.markFailed(ctx, appointment.ID, "capture declined")
			return nil, NewDomainError(ErrGateway, "payment declined")
		case errors.Is(err, gateway.ErrHoldNotFound):
			return nil, NewDomainError(ErrNotFound, "Payment hold not found")
		default:
			s.markFailed(ctx, appointment.ID, "gateway unavailable")
			return nil, NewDomainError(ErrGateway, "payment gateway unavailable")
		}
	}

	if err := s.applyCapture(ctx, appointment, hold, manually); err != nil {
		// Money moved at the gateway; the local books did not follow. The
		// webhook sync or an operator retry settles it.
		return nil, log.Err("captured at gateway but local update failed", err,
			"appointmentID", appointmentID, "holdID", hold.ID)
	}

	_ = s.events.Publish(events.PAYMENTS_CHANNEL, events.Event{
		Type:   events.PAYMENT_CAPTURED,
		UserID: &appointment.ClientID,
		Data: map[string]any{
			"appointmentId": appointment.ID.String(),
			"holdId":        hold.ID,
			"manual":        manually,
		},
	})

	return &PaymentResult{Appointment: appointment, HoldID: hold.ID}, nil
}

// applyCapture records a successful gateway capture: appointment paid, ledger
// debited, payouts held, all in one transaction.
func (s *PaymentService) applyCapture(
	ctx context.Context,
	appointment *Appointment,
	hold *gateway.Hold,
	manually bool,
) error {
	return s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		current, err := s.getAppointment(ctx, tx, appointment.ID)
		if err != nil {
			return err
		}
		if current.Paid {
			// A concurrent capture or webhook got here first.
			*appointment = *current
			return nil
		}

		current.Paid = true
		current.PaymentStatus = PaymentCaptured
		if manually {
			current.ManuallyPaid = true
		}
		if raw, err := json.Marshal(hold); err == nil {
			current.GatewayPayload = datatypes.JSON(raw)
		}

		if err := s.repos.Appointment.Update(ctx, tx, current); err != nil {
			return err
		}

		if err := s.billing.Debit(ctx, tx, current.ClientID, current.Price); err != nil {
			return err
		}

		if _, err := s.payouts.MarkHeld(ctx, tx, current.ID); err != nil {
			return err
		}

		*appointment = *current
		return nil
	})
}

// markFailed records a gateway failure after the result is known. Failed is
// recoverable via RetryPayment.
func (s *PaymentService) markFailed(ctx context.Context, appointmentID uuid.UUID, reason string) {
	log := s.log.Function("markFailed")

	err := s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		appointment, err := s.getAppointment(ctx, tx, appointmentID)
		if err != nil {
			return err
		}
		if appointment.Paid {
			return nil
		}
		appointment.PaymentStatus = PaymentFailed
		return s.repos.Appointment.Update(ctx, tx, appointment)
	})
	if err != nil {
		log.Warn("failed to record payment failure", "appointmentID", appointmentID, "error", err)
		return
	}

	_ = s.events.Publish(events.PAYMENTS_CHANNEL, events.Event{
		Type: events.PAYMENT_FAILED,
		Data: map[string]any{
			"appointmentId": appointmentID.String(),
			"reason":        reason,
		},
	})
}

// CancelOrRefund cancels an appointment, inspecting the live hold to decide
// between cancelling the hold and issuing a refund. An appointment within the
// cancellation window is charged the fixed late fee.
func (s *PaymentService) CancelOrRefund(
	ctx context.Context,
	appointmentID uuid.UUID,
) (*PaymentResult, error) {
	log := s.log.Function("CancelOrRefund")

	appointment, err := s.loadAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if appointment.WasCancelled {
		return nil, NewDomainError(ErrConflict, "Appointment already cancelled")
	}
	if appointment.Completed {
		return nil, NewDomainError(ErrConflict, "Cannot cancel a completed appointment")
	}

	refunded := false
	finalStatus := PaymentCanceled

	if appointment.PaymentHoldID != "" {
		hold, err := s.gateway.RetrieveHold(ctx, appointment.PaymentHoldID)
		if err != nil {
			if errors.Is(err, gateway.ErrHoldNotFound) {
				return nil, NewDomainError(ErrNotFound, "Payment hold not found")
			}
			return nil, NewDomainError(ErrGateway, "payment gateway unavailable")
		}

		switch hold.Status {
		case gateway.HoldRequiresCapture:
			if _, err := s.gateway.CancelHold(ctx, appointment.PaymentHoldID); err != nil {
				return nil, NewDomainError(ErrGateway, "payment gateway unavailable")
			}
		case gateway.HoldCaptured:
			if _, err := s.gateway.Refund(ctx, appointment.PaymentHoldID); err != nil {
				return nil, NewDomainError(ErrGateway, "payment gateway unavailable")
			}
			refunded = true
			finalStatus = PaymentRefunded
		default:
			return nil, NewDomainError(ErrConflict, "Payment hold already closed")
		}
	}

	feeCharged := false
	now := s.now()

	err = s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		current, err := s.getAppointment(ctx, tx, appointment.ID)
		if err != nil {
			return err
		}
		if current.WasCancelled {
			return NewDomainError(ErrConflict, "Appointment already cancelled")
		}

		current.WasCancelled = true
		current.CancelledAt = &now
		current.PaymentStatus = finalStatus

		if err := s.repos.Appointment.Update(ctx, tx, current); err != nil {
			return err
		}

		// The creation-time credit is reversed only if the appointment was
		// never captured; a captured one was already debited at capture.
		if !current.Paid {
			if err := s.billing.Debit(ctx, tx, current.ClientID, current.Price); err != nil {
				return err
			}
		}

		if err := s.payouts.DeleteForAppointment(ctx, tx, current.ID); err != nil {
			return err
		}

		if s.withinCancellationWindow(current.Date, now) {
			fee := decimal.NewFromFloat(s.config.CancellationFee)
			if err := s.billing.ChargeCancellationFee(ctx, tx, current.ClientID, fee); err != nil {
				return err
			}
			feeCharged = true
		}

		*appointment = *current
		return nil
	})
	if err != nil {
		if refunded {
			// Refund went out but the local cancel did not commit.
			return nil, log.Err("refunded at gateway but local update failed", err,
				"appointmentID", appointmentID)
		}
		return nil, err
	}

	_ = s.events.Publish(events.APPOINTMENTS_CHANNEL, events.Event{
		Type:   events.APPOINTMENT_CANCELLED,
		UserID: &appointment.ClientID,
		Data: map[string]any{
			"appointmentId": appointment.ID.String(),
			"refunded":      refunded,
			"feeCharged":    feeCharged,
		},
	})
	if refunded {
		_ = s.events.Publish(events.PAYMENTS_CHANNEL, events.Event{
			Type:   events.PAYMENT_REFUNDED,
			UserID: &appointment.ClientID,
			Data:   map[string]any{"appointmentId": appointment.ID.String()},
		})
	}

	return &PaymentResult{
		Appointment: appointment,
		Refunded:    refunded,
		FeeCharged:  feeCharged,
	}, nil
}

// withinCancellationWindow reports whether the appointment starts within the
// late-fee window. The boundary day is inclusive: exactly seven days out is
// still charged.
func (s *PaymentService) withinCancellationWindow(date time.Time, now time.Time) bool {
	window := time.Duration(s.config.CancellationWindow) * 24 * time.Hour
	return !date.After(now.Add(window))
}

// CompleteJob is the cleaner half of two-step completion: it moves the
// appointment to submitted after the photo gate. The home's designated
// preferred cleaner may submit without photos; anyone else needs at least one
// before and one after photo.
func (s *PaymentService) CompleteJob(
	ctx context.Context,
	appointmentID uuid.UUID,
	cleanerID uuid.UUID,
) (*Appointment, error) {
	log := s.log.Function("CompleteJob")

	var appointment *Appointment

	err := s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		current, err := s.getAppointment(ctx, tx, appointmentID)
		if err != nil {
			return err
		}

		if current.WasCancelled {
			return NewDomainError(ErrConflict, "Cannot complete a cancelled appointment")
		}
		if current.Completed {
			return NewDomainError(ErrConflict, "Job already completed")
		}
		if current.CompletionStatus == CompletionSubmitted {
			return NewDomainError(ErrConflict, "Completion already submitted")
		}

		assigned := false
		for _, assignment := range current.Assignments {
			if assignment.CleanerID == cleanerID {
				assigned = true
				break
			}
		}
		if !assigned {
			return NewDomainError(ErrUnauthorized, "Cleaner is not assigned to this appointment")
		}

		if !current.Home.IsPreferredCleaner(cleanerID) {
			before, err := s.repos.Appointment.CountPhotos(ctx, tx, current.ID, PhotoBefore)
			if err != nil {
				return err
			}
			if before == 0 {
				return &MissingPhotosError{Kind: PhotoBefore}
			}

			after, err := s.repos.Appointment.CountPhotos(ctx, tx, current.ID, PhotoAfter)
			if err != nil {
				return err
			}
			if after == 0 {
				return &MissingPhotosError{Kind: PhotoAfter}
			}
		}

		now := s.now()
		current.CompletionStatus = CompletionSubmitted
		current.CompletionSubmittedAt = &now

		if err := s.repos.Appointment.Update(ctx, tx, current); err != nil {
			return err
		}

		appointment = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("completion submitted", "appointmentID", appointmentID, "cleanerID", cleanerID)
	return appointment, nil
}

// ApproveJob is the homeowner half of two-step completion: it finalizes a
// submitted job, capturing payment if it has not been captured yet and
// releasing the cleaner payouts.
func (s *PaymentService) ApproveJob(
	ctx context.Context,
	appointmentID uuid.UUID,
) (*PaymentResult, error) {
	return s.finalizeCompletion(ctx, appointmentID, CompletionApproved)
}

// DeclineJob rejects a submitted completion, sending the job back to the
// cleaner.
func (s *PaymentService) DeclineJob(
	ctx context.Context,
	appointmentID uuid.UUID,
) (*Appointment, error) {
	var appointment *Appointment

	err := s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		current, err := s.getAppointment(ctx, tx, appointmentID)
		if err != nil {
			return err
		}
		if current.Completed {
			return NewDomainError(ErrConflict, "Job already completed")
		}
		if current.CompletionStatus != CompletionSubmitted {
			return NewDomainError(ErrConflict, "Job has not been submitted for approval")
		}

		current.CompletionStatus = CompletionDeclined
		if err := s.repos.Appointment.Update(ctx, tx, current); err != nil {
			return err
		}

		appointment = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	return appointment, nil
}

func (s *PaymentService) finalizeCompletion(
	ctx context.Context,
	appointmentID uuid.UUID,
	status CompletionStatus,
) (*PaymentResult, error) {
	log := s.log.Function("finalizeCompletion")

	appointment, err := s.loadAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if appointment.Completed {
		return nil, NewDomainError(ErrConflict, "Job already completed")
	}
	if appointment.CompletionStatus != CompletionSubmitted {
		return nil, NewDomainError(ErrConflict, "Job has not been submitted for approval")
	}

	// Capture rides along with approval when the payment is still open.
	var hold *gateway.Hold
	if !appointment.Paid && appointment.PaymentHoldID != "" {
		hold, err = s.gateway.CaptureHold(ctx, appointment.PaymentHoldID)
		if err != nil {
			switch {
			case errors.Is(err, gateway.ErrDeclined):
				s.markFailed(ctx, appointment.ID, "capture declined on approval")
				return nil, NewDomainError(ErrGateway, "payment declined")
			case errors.Is(err, gateway.ErrHoldNotFound):
				return nil, NewDomainError(ErrNotFound, "Payment hold not found")
			default:
				return nil, NewDomainError(ErrGateway, "payment gateway unavailable")
			}
		}
	}

	var released int64

	err = s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		current, err := s.getAppointment(ctx, tx, appointment.ID)
		if err != nil {
			return err
		}
		if current.Completed {
			return NewDomainError(ErrConflict, "Job already completed")
		}

		current.Completed = true
		current.CompletionStatus = status

		if hold != nil && !current.Paid {
			current.Paid = true
			current.PaymentStatus = PaymentCaptured
			if raw, err := json.Marshal(hold); err == nil {
				current.GatewayPayload = datatypes.JSON(raw)
			}
			if err := s.billing.Debit(ctx, tx, current.ClientID, current.Price); err != nil {
				return err
			}
		}

		if err := s.repos.Appointment.Update(ctx, tx, current); err != nil {
			return err
		}

		released, err = s.payouts.Release(ctx, tx, current.ID)
		if err != nil {
			return err
		}

		*appointment = *current
		return nil
	})
	if err != nil {
		if hold != nil {
			return nil, log.Err("captured at gateway but local completion failed", err,
				"appointmentID", appointmentID, "holdID", hold.ID)
		}
		return nil, err
	}

	_ = s.events.Publish(events.PAYMENTS_CHANNEL, events.Event{
		Type:   events.JOB_COMPLETED,
		UserID: &appointment.ClientID,
		Data: map[string]any{
			"appointmentId": appointment.ID.String(),
			"status":        string(status),
		},
	})
	if released > 0 {
		_ = s.events.Publish(events.PAYMENTS_CHANNEL, events.Event{
			Type: events.PAYOUT_RELEASED,
			Data: map[string]any{
				"appointmentId": appointment.ID.String(),
				"payouts":       released,
			},
		})
	}

	return &PaymentResult{Appointment: appointment, PayoutsReleased: released}, nil
}

// AutoApproveDue finalizes submitted jobs older than the configured approval
// window. Each appointment is isolated; one failure never stops the sweep.
func (s *PaymentService) AutoApproveDue(ctx context.Context) (approved int, failed int, err error) {
	log := s.log.Function("AutoApproveDue")

	cutoff := s.now().Add(-time.Duration(s.config.AutoApproveHours) * time.Hour)

	var due []*Appointment
	err = s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		due, err = s.repos.Appointment.GetSubmittedBefore(ctx, tx, cutoff)
		return err
	})
	if err != nil {
		return 0, 0, err
	}

	for _, appointment := range due {
		if _, err := s.finalizeCompletion(ctx, appointment.ID, CompletionAutoApproved); err != nil {
			failed++
			log.Warn("auto-approval failed",
				"appointmentID", appointment.ID, "error", err)
			continue
		}
		approved++
	}

	if approved > 0 || failed > 0 {
		log.Info("auto-approval sweep finished", "approved", approved, "failed", failed)
	}

	return approved, failed, nil
}

// SyncHold reconciles local state with a gateway webhook for the given hold.
// It is safe to call for holds the appointment already reflects.
func (s *PaymentService) SyncHold(ctx context.Context, holdID string) (*Appointment, error) {
	log := s.log.Function("SyncHold")

	hold, err := s.gateway.RetrieveHold(ctx, holdID)
	if err != nil {
		if errors.Is(err, gateway.ErrHoldNotFound) {
			return nil, NewDomainError(ErrNotFound, "Payment hold not found")
		}
		return nil, NewDomainError(ErrGateway, "payment gateway unavailable")
	}

	var appointment *Appointment
	err = s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		appointment, err = s.repos.Appointment.GetByHoldID(ctx, tx, holdID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewDomainError(ErrNotFound, "Appointment not found")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if hold.Status == gateway.HoldCaptured && !appointment.Paid {
		log.Info("webhook reports capture not reflected locally, reconciling",
			"appointmentID", appointment.ID, "holdID", holdID)

		if err := s.applyCapture(ctx, appointment, hold, false); err != nil {
			return nil, err
		}

		_ = s.events.Publish(events.PAYMENTS_CHANNEL, events.Event{
			Type:   events.PAYMENT_CAPTURED,
			UserID: &appointment.ClientID,
			Data: map[string]any{
				"appointmentId": appointment.ID.String(),
				"holdId":        holdID,
				"source":        "webhook",
			},
		})
	}

	return appointment, nil
}
