package repositories

import (
	"context"
	"errors"
	"time"

	"spruce/internal/database"
	"spruce/internal/logger"
	. "spruce/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	USER_BILL_CACHE_PREFIX = "user_bill"
	USER_BILL_CACHE_EXPIRY = 1 * time.Hour
)

type BillRepository interface {
	GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*UserBill, error)
	ApplyDelta(
		ctx context.Context,
		tx *gorm.DB,
		userID uuid.UUID,
		appointmentDelta decimal.Decimal,
		feeDelta decimal.Decimal,
	) (*UserBill, error)
}

type billRepository struct {
	cache database.CacheClient
}

func NewBillRepository(cache database.CacheClient) BillRepository {
	return &billRepository{
		cache: cache,
	}
}

func (r *billRepository) GetByUser(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
) (*UserBill, error) {
	log := logger.NewWithContext(ctx, "billRepository").Function("GetByUser")

	var cached UserBill
	found, err := database.NewCacheBuilder(r.cache, userID).
		WithContext(ctx).
		WithHash(USER_BILL_CACHE_PREFIX).
		Get(&cached)
	if err != nil {
		log.Warn("failed to get user bill from cache", "userID", userID, "error", err)
	}

	if found {
		return &cached, nil
	}

	var bill UserBill
	if err := tx.WithContext(ctx).First(&bill, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, log.Err("failed to get user bill", err, "userID", userID)
	}

	err = database.NewCacheBuilder(r.cache, userID).
		WithContext(ctx).
		WithHash(USER_BILL_CACHE_PREFIX).
		WithStruct(bill).
		WithTTL(USER_BILL_CACHE_EXPIRY).
		Set()
	if err != nil {
		log.Warn("failed to set user bill in cache", "userID", userID, "error", err)
	}

	return &bill, nil
}

// ApplyDelta mutates appointmentDue, cancellationFee and totalDue as one
// atomic row update. A missing row is created for a positive delta and
// silently skipped for a pure debit, per the ledger contract.
func (r *billRepository) ApplyDelta(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
	appointmentDelta decimal.Decimal,
	feeDelta decimal.Decimal,
) (*UserBill, error) {
	log := logger.NewWithContext(ctx, "billRepository").Function("ApplyDelta")

	var bill UserBill
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&bill, "user_id = ?", userID).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, log.Err("failed to lock user bill", err, "userID", userID)
		}

		totalDelta := appointmentDelta.Add(feeDelta)
		if totalDelta.Sign() <= 0 {
			// Debit against a user with no ledger row is not an error.
			log.Debug("skipping debit for missing bill", "userID", userID)
			return nil, nil
		}

		bill = UserBill{
			UserID:          userID,
			AppointmentDue:  decimal.Max(appointmentDelta, decimal.Zero),
			CancellationFee: decimal.Max(feeDelta, decimal.Zero),
		}
		bill.TotalDue = bill.AppointmentDue.Add(bill.CancellationFee)

		if err := tx.WithContext(ctx).Create(&bill).Error; err != nil {
			return nil, log.Err("failed to create user bill", err, "userID", userID)
		}

		r.invalidate(ctx, userID, log)
		return &bill, nil
	}

	bill.AppointmentDue = bill.AppointmentDue.Add(appointmentDelta)
	if bill.AppointmentDue.Sign() < 0 {
		bill.AppointmentDue = decimal.Zero
	}
	bill.CancellationFee = bill.CancellationFee.Add(feeDelta)
	if bill.CancellationFee.Sign() < 0 {
		bill.CancellationFee = decimal.Zero
	}
	bill.TotalDue = bill.AppointmentDue.Add(bill.CancellationFee)

	if err := tx.WithContext(ctx).
		Model(&UserBill{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"appointment_due":  bill.AppointmentDue,
			"cancellation_fee": bill.CancellationFee,
			"total_due":        bill.TotalDue,
		}).Error; err != nil {
		return nil, log.Err("failed to apply bill delta", err, "userID", userID)
	}

	r.invalidate(ctx, userID, log)
	return &bill, nil
}

func (r *billRepository) invalidate(ctx context.Context, userID uuid.UUID, log logger.Logger) {
	err := database.NewCacheBuilder(r.cache, userID).
		WithContext(ctx).
		WithHash(USER_BILL_CACHE_PREFIX).
		Delete()
	if err != nil {
		log.Warn("failed to invalidate user bill cache", "userID", userID, "error", err)
	}
}
