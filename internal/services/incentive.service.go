package services

import (
	"context"
	"errors"
	"math"
	"time"

	"spruce/internal/logger"
	. "spruce/internal/models"
	"spruce/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CleanerEligibility is the outcome of evaluating the new-cleaner incentive
// for one cleaner. FeeReductionPercent is a fraction in [0,1]; 1.0 waives the
// platform fee entirely.
type CleanerEligibility struct {
	Eligible            bool    `json:"eligible"`
	RemainingJobs       int     `json:"remainingJobs"`
	FeeReductionPercent float64 `json:"feeReductionPercent"`
}

type HomeownerEligibility struct {
	Eligible        bool    `json:"eligible"`
	DiscountPercent float64 `json:"discountPercent"`
}

// FeeBreakdown is the platform-fee computation for one payout share.
// StandardFeeCents is the pre-incentive fee, kept for audit.
type FeeBreakdown struct {
	FeeCents         int64 `json:"feeCents"`
	NetCents         int64 `json:"netCents"`
	StandardFeeCents int64 `json:"standardFeeCents"`
	IncentiveApplied bool  `json:"incentiveApplied"`
}

type IncentiveService struct {
	repos repositories.Repository
	log   logger.Logger
}

func NewIncentiveService(repos repositories.Repository) *IncentiveService {
	return &IncentiveService{
		repos: repos,
		log:   logger.New("incentiveService"),
	}
}

// ActiveConfig returns the single active incentive config, or nil when none
// has been seeded. A missing config disables all incentives.
func (s *IncentiveService) ActiveConfig(
	ctx context.Context,
	tx *gorm.DB,
) (*IncentiveConfig, error) {
	config, err := s.repos.Incentive.GetActive(ctx, tx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return config, nil
}

// CleanerEligibility evaluates the new-cleaner onboarding incentive. Only
// accounts younger than the configured window qualify, and only until they
// have banked the configured number of completed jobs.
func (s *IncentiveService) CleanerEligibility(
	ctx context.Context,
	tx *gorm.DB,
	cleanerID uuid.UUID,
	now time.Time,
) (CleanerEligibility, error) {
	log := s.log.Function("CleanerEligibility")

	none := CleanerEligibility{}

	config, err := s.ActiveConfig(ctx, tx)
	if err != nil {
		return none, err
	}
	if config == nil || !config.CleanerEnabled {
		return none, nil
	}

	cleaner, err := s.repos.User.GetByID(ctx, tx, cleanerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return none, nil
		}
		return none, err
	}

	if cleaner.AccountAgeDays(now) > config.CleanerEligibleDays {
		return none, nil
	}

	completed, err := s.repos.Payout.CountCompletedByCleaner(ctx, tx, cleanerID)
	if err != nil {
		return none, err
	}

	if completed >= int64(config.CleanerMaxJobs) {
		return none, nil
	}

	log.Debug("cleaner incentive eligible",
		"cleanerID", cleanerID,
		"completed", completed,
		"maxJobs", config.CleanerMaxJobs,
	)

	return CleanerEligibility{
		Eligible:            true,
		RemainingJobs:       config.CleanerMaxJobs - int(completed),
		FeeReductionPercent: config.CleanerFeeReduction,
	}, nil
}

// HomeownerEligibility evaluates the first-cleanings discount for a client.
func (s *IncentiveService) HomeownerEligibility(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
) (HomeownerEligibility, error) {
	none := HomeownerEligibility{}

	config, err := s.ActiveConfig(ctx, tx)
	if err != nil {
		return none, err
	}
	if config == nil || !config.HomeownerEnabled {
		return none, nil
	}

	completed, err := s.repos.Appointment.CountCompletedByClient(ctx, tx, userID)
	if err != nil {
		return none, err
	}

	if completed >= int64(config.HomeownerMaxCleanings) {
		return none, nil
	}

	return HomeownerEligibility{
		Eligible:        true,
		DiscountPercent: config.HomeownerDiscount,
	}, nil
}

// CleanerFee computes the platform fee on a gross payout share. With an
// active incentive the effective fee percent is
// standard*(1-feeReductionPercent). Cents round half away from zero.
func (s *IncentiveService) CleanerFee(
	ctx context.Context,
	tx *gorm.DB,
	cleanerID uuid.UUID,
	grossCents int64,
	standardFeePercent float64,
	now time.Time,
) (FeeBreakdown, error) {
	standardFee := roundCents(float64(grossCents) * standardFeePercent)

	eligibility, err := s.CleanerEligibility(ctx, tx, cleanerID, now)
	if err != nil {
		return FeeBreakdown{}, err
	}

	fee := standardFee
	if eligibility.Eligible {
		effective := standardFeePercent * (1 - eligibility.FeeReductionPercent)
		fee = roundCents(float64(grossCents) * effective)
	}

	return FeeBreakdown{
		FeeCents:         fee,
		NetCents:         grossCents - fee,
		StandardFeeCents: standardFee,
		IncentiveApplied: eligibility.Eligible,
	}, nil
}

// HomeownerPrice applies the homeowner discount to a quoted price, rounded to
// two decimals half away from zero. The second return reports whether a
// discount applied.
func (s *IncentiveService) HomeownerPrice(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
	original decimal.Decimal,
) (decimal.Decimal, bool, error) {
	eligibility, err := s.HomeownerEligibility(ctx, tx, userID)
	if err != nil {
		return original, false, err
	}

	if !eligibility.Eligible || eligibility.DiscountPercent <= 0 {
		return original, false, nil
	}

	multiplier := decimal.NewFromFloat(1 - eligibility.DiscountPercent)
	return original.Mul(multiplier).Round(2), true, nil
}

func roundCents(amount float64) int64 {
	return int64(math.Round(amount))
}
