package services

import (
	"context"
	"time"

	"spruce/config"
	"spruce/internal/logger"
	. "spruce/internal/models"
	"spruce/internal/repositories"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PayoutService owns the cleaner earnings lifecycle. Rows start pending, move
// to held when the payment captures, and to completed when the job is
// approved. A cancellation before capture deletes the rows outright.
type PayoutService struct {
	repos     repositories.Repository
	incentive *IncentiveService
	config    config.Config
	log       logger.Logger
}

func NewPayoutService(
	repos repositories.Repository,
	incentive *IncentiveService,
	config config.Config,
) *PayoutService {
	return &PayoutService{
		repos:     repos,
		incentive: incentive,
		config:    config,
		log:       logger.New("payoutService"),
	}
}

// splitCents divides a price evenly across cleaners. Remainder cents go one
// each to the earliest assignees, so the split is deterministic for a given
// assignment order.
func splitCents(totalCents int64, parts int) []int64 {
	shares := make([]int64, parts)
	base := totalCents / int64(parts)
	remainder := totalCents % int64(parts)

	for i := range shares {
		shares[i] = base
		if int64(i) < remainder {
			shares[i]++
		}
	}

	return shares
}

// CreateForAppointment creates one pending payout per assigned cleaner,
// splitting the appointment price and applying the platform fee per share.
// Cleaners are processed in assignment creation order.
func (s *PayoutService) CreateForAppointment(
	ctx context.Context,
	tx *gorm.DB,
	appointment *Appointment,
	cleanerIDs []uuid.UUID,
	now time.Time,
) ([]*Payout, error) {
	log := logger.NewWithContext(ctx, "payoutService").Function("CreateForAppointment")

	if len(cleanerIDs) == 0 {
		return nil, nil
	}

	shares := splitCents(appointment.PriceCents(), len(cleanerIDs))

	payouts := make([]*Payout, 0, len(cleanerIDs))
	for i, cleanerID := range cleanerIDs {
		breakdown, err := s.incentive.CleanerFee(
			ctx, tx, cleanerID, shares[i], s.config.PlatformFeePercent, now,
		)
		if err != nil {
			return nil, err
		}

		payouts = append(payouts, &Payout{
			AppointmentID:    appointment.ID,
			CleanerID:        cleanerID,
			AmountCents:      breakdown.NetCents,
			PlatformFeeCents: breakdown.FeeCents,
			StandardFeeCents: breakdown.StandardFeeCents,
			IncentiveApplied: breakdown.IncentiveApplied,
			Status:           PayoutPending,
		})
	}

	if err := s.repos.Payout.CreateAll(ctx, tx, payouts); err != nil {
		return nil, err
	}

	log.Debug("created payouts",
		"appointmentID", appointment.ID,
		"cleaners", len(payouts),
	)

	return payouts, nil
}

// MarkHeld moves an appointment's pending payouts to held after a successful
// capture.
func (s *PayoutService) MarkHeld(
	ctx context.Context,
	tx *gorm.DB,
	appointmentID uuid.UUID,
) (int64, error) {
	return s.repos.Payout.UpdateStatusByAppointment(
		ctx, tx, appointmentID,
		[]PayoutStatus{PayoutPending}, PayoutHeld,
	)
}

// Release moves payouts to completed on job approval. Pending rows are
// included so an approval that captures payment in the same step releases in
// one transition.
func (s *PayoutService) Release(
	ctx context.Context,
	tx *gorm.DB,
	appointmentID uuid.UUID,
) (int64, error) {
	return s.repos.Payout.UpdateStatusByAppointment(
		ctx, tx, appointmentID,
		[]PayoutStatus{PayoutPending, PayoutHeld}, PayoutCompleted,
	)
}

// DeleteForAppointment removes payout rows when a cancellation or refund
// takes the appointment off the books. A refunded job earns nothing.
func (s *PayoutService) DeleteForAppointment(
	ctx context.Context,
	tx *gorm.DB,
	appointmentID uuid.UUID,
) error {
	return s.repos.Payout.DeleteByAppointment(ctx, tx, appointmentID)
}
