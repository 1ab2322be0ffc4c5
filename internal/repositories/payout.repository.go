package repositories

import (
	"context"

	"spruce/internal/logger"
	. "spruce/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PayoutRepository interface {
	CreateAll(ctx context.Context, tx *gorm.DB, payouts []*Payout) error
	GetByAppointment(
		ctx context.Context,
		tx *gorm.DB,
		appointmentID uuid.UUID,
	) ([]*Payout, error)
	DeleteByAppointment(ctx context.Context, tx *gorm.DB, appointmentID uuid.UUID) error
	UpdateStatusByAppointment(
		ctx context.Context,
		tx *gorm.DB,
		appointmentID uuid.UUID,
		from []PayoutStatus,
		to PayoutStatus,
	) (int64, error)
	CountCompletedByCleaner(
		ctx context.Context,
		tx *gorm.DB,
		cleanerID uuid.UUID,
	) (int64, error)
}

type payoutRepository struct{}

func NewPayoutRepository() PayoutRepository {
	return &payoutRepository{}
}

func (r *payoutRepository) CreateAll(
	ctx context.Context,
	tx *gorm.DB,
	payouts []*Payout,
) error {
	log := logger.NewWithContext(ctx, "payoutRepository").Function("CreateAll")

	if len(payouts) == 0 {
		return nil
	}

	if err := tx.WithContext(ctx).Create(payouts).Error; err != nil {
		return log.Err("failed to create payouts", err, "count", len(payouts))
	}

	return nil
}

func (r *payoutRepository) GetByAppointment(
	ctx context.Context,
	tx *gorm.DB,
	appointmentID uuid.UUID,
) ([]*Payout, error) {
	log := logger.NewWithContext(ctx, "payoutRepository").Function("GetByAppointment")

	var payouts []*Payout
	if err := tx.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("created_at ASC").
		Find(&payouts).Error; err != nil {
		return nil, log.Err("failed to get payouts", err, "appointmentID", appointmentID)
	}

	return payouts, nil
}

// DeleteByAppointment removes payout rows outright; used when an appointment
// is cancelled before capture and no earnings history exists yet.
func (r *payoutRepository) DeleteByAppointment(
	ctx context.Context,
	tx *gorm.DB,
	appointmentID uuid.UUID,
) error {
	log := logger.NewWithContext(ctx, "payoutRepository").Function("DeleteByAppointment")

	if err := tx.WithContext(ctx).
		Delete(&Payout{}, "appointment_id = ?", appointmentID).Error; err != nil {
		return log.Err("failed to delete payouts", err, "appointmentID", appointmentID)
	}

	return nil
}

func (r *payoutRepository) UpdateStatusByAppointment(
	ctx context.Context,
	tx *gorm.DB,
	appointmentID uuid.UUID,
	from []PayoutStatus,
	to PayoutStatus,
) (int64, error) {
	log := logger.NewWithContext(ctx, "payoutRepository").Function("UpdateStatusByAppointment")

	result := tx.WithContext(ctx).
		Model(&Payout{}).
		Where("appointment_id = ? AND status IN ?", appointmentID, from).
		Update("status", to)
	if result.Error != nil {
		return 0, log.Err(
			"failed to update payout status",
			result.Error,
			"appointmentID", appointmentID,
			"to", to,
		)
	}

	return result.RowsAffected, nil
}

func (r *payoutRepository) CountCompletedByCleaner(
	ctx context.Context,
	tx *gorm.DB,
	cleanerID uuid.UUID,
) (int64, error) {
	log := logger.NewWithContext(ctx, "payoutRepository").Function("CountCompletedByCleaner")

	var count int64
	if err := tx.WithContext(ctx).
		Model(&Payout{}).
		Where("cleaner_id = ? AND status = ?", cleanerID, PayoutCompleted).
		Count(&count).Error; err != nil {
		return 0, log.Err("failed to count completed payouts", err, "cleanerID", cleanerID)
	}

	return count, nil
}
