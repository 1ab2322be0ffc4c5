package services

import (
	"context"
	"errors"

	"spruce/internal/logger"
	. "spruce/internal/models"
	"spruce/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BillingService is the ledger facade. Every appointment lifecycle change is
// paired with exactly one credit or debit; totalDue stays the sum of both
// buckets because the repository applies deltas in one atomic row update.
type BillingService struct {
	repos repositories.Repository
	tx    TransactionRunner
	log   logger.Logger
}

func NewBillingService(repos repositories.Repository, tx TransactionRunner) *BillingService {
	return &BillingService{
		repos: repos,
		tx:    tx,
		log:   logger.New("billingService"),
	}
}

// Credit adds an appointment's price to the client's appointmentDue, creating
// the ledger row on first use.
func (s *BillingService) Credit(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
	amount decimal.Decimal,
) error {
	if amount.Sign() <= 0 {
		return NewDomainError(ErrValidation, "credit amount must be positive")
	}

	_, err := s.repos.Bill.ApplyDelta(ctx, tx, userID, amount, decimal.Zero)
	return err
}

// Debit removes an appointment's price from appointmentDue. Debiting a user
// with no ledger row is a no-op; balances clamp at zero.
func (s *BillingService) Debit(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
	amount decimal.Decimal,
) error {
	if amount.Sign() <= 0 {
		return NewDomainError(ErrValidation, "debit amount must be positive")
	}

	_, err := s.repos.Bill.ApplyDelta(ctx, tx, userID, amount.Neg(), decimal.Zero)
	return err
}

// ChargeCancellationFee adds a late-cancellation fee to the fee bucket.
func (s *BillingService) ChargeCancellationFee(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
	fee decimal.Decimal,
) error {
	if fee.Sign() <= 0 {
		return nil
	}

	log := s.log.Function("ChargeCancellationFee")
	log.Info("charging cancellation fee", "userID", userID, "fee", fee)

	_, err := s.repos.Bill.ApplyDelta(ctx, tx, userID, decimal.Zero, fee)
	return err
}

// GetBill returns a user's current balance; a user with no ledger activity
// gets a zero bill rather than a not-found.
func (s *BillingService) GetBill(ctx context.Context, userID uuid.UUID) (*UserBill, error) {
	var bill *UserBill

	err := s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		found, err := s.repos.Bill.GetByUser(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				bill = &UserBill{
					UserID:          userID,
					AppointmentDue:  decimal.Zero,
					CancellationFee: decimal.Zero,
					TotalDue:        decimal.Zero,
				}
				return nil
			}
			return err
		}
		bill = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	return bill, nil
}
