package repositories

import (
	"context"
	"errors"
	"time"

	"spruce/internal/logger"
	. "spruce/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ScheduleRepository interface {
	Create(ctx context.Context, tx *gorm.DB, schedule *RecurringSchedule) error
	GetByID(ctx context.Context, tx *gorm.DB, scheduleID uuid.UUID) (*RecurringSchedule, error)
	Update(ctx context.Context, tx *gorm.DB, schedule *RecurringSchedule) error
	GetActive(ctx context.Context, tx *gorm.DB) ([]*RecurringSchedule, error)
	AdvanceCursor(
		ctx context.Context,
		tx *gorm.DB,
		scheduleID uuid.UUID,
		cursor time.Time,
	) error
	SetNextScheduledDate(
		ctx context.Context,
		tx *gorm.DB,
		scheduleID uuid.UUID,
		next *time.Time,
	) error
}

type scheduleRepository struct{}

func NewScheduleRepository() ScheduleRepository {
	return &scheduleRepository{}
}

func (r *scheduleRepository) Create(
	ctx context.Context,
	tx *gorm.DB,
	schedule *RecurringSchedule,
) error {
	log := logger.NewWithContext(ctx, "scheduleRepository").Function("Create")

	if err := tx.WithContext(ctx).Create(schedule).Error; err != nil {
		return log.Err("failed to create recurring schedule", err)
	}

	return nil
}

func (r *scheduleRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	scheduleID uuid.UUID,
) (*RecurringSchedule, error) {
	log := logger.NewWithContext(ctx, "scheduleRepository").Function("GetByID")

	var schedule RecurringSchedule
	if err := tx.WithContext(ctx).
		Preload("Home").
		First(&schedule, "id = ?", scheduleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, log.Err("failed to get recurring schedule", err, "scheduleID", scheduleID)
	}

	return &schedule, nil
}

func (r *scheduleRepository) Update(
	ctx context.Context,
	tx *gorm.DB,
	schedule *RecurringSchedule,
) error {
	log := logger.NewWithContext(ctx, "scheduleRepository").Function("Update")

	if err := tx.WithContext(ctx).Save(schedule).Error; err != nil {
		return log.Err("failed to update recurring schedule", err, "scheduleID", schedule.ID)
	}

	return nil
}

func (r *scheduleRepository) GetActive(
	ctx context.Context,
	tx *gorm.DB,
) ([]*RecurringSchedule, error) {
	log := logger.NewWithContext(ctx, "scheduleRepository").Function("GetActive")

	var schedules []*RecurringSchedule
	if err := tx.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&schedules).Error; err != nil {
		return nil, log.Err("failed to get active schedules", err)
	}

	return schedules, nil
}

// AdvanceCursor moves lastGeneratedDate forward only; a stale cursor write
// never overwrites a newer one.
func (r *scheduleRepository) AdvanceCursor(
	ctx context.Context,
	tx *gorm.DB,
	scheduleID uuid.UUID,
	cursor time.Time,
) error {
	log := logger.NewWithContext(ctx, "scheduleRepository").Function("AdvanceCursor")

	if err := tx.WithContext(ctx).
		Model(&RecurringSchedule{}).
		Where("id = ? AND (last_generated_date IS NULL OR last_generated_date < ?)", scheduleID, cursor).
		Update("last_generated_date", cursor).Error; err != nil {
		return log.Err("failed to advance generation cursor", err, "scheduleID", scheduleID)
	}

	return nil
}

func (r *scheduleRepository) SetNextScheduledDate(
	ctx context.Context,
	tx *gorm.DB,
	scheduleID uuid.UUID,
	next *time.Time,
) error {
	log := logger.NewWithContext(ctx, "scheduleRepository").Function("SetNextScheduledDate")

	if err := tx.WithContext(ctx).
		Model(&RecurringSchedule{}).
		Where("id = ?", scheduleID).
		Update("next_scheduled_date", next).Error; err != nil {
		return log.Err("failed to set next scheduled date", err, "scheduleID", scheduleID)
	}

	return nil
}
