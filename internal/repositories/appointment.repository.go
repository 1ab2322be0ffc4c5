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

type AppointmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, appointment *Appointment) error
	GetByID(ctx context.Context, tx *gorm.DB, appointmentID uuid.UUID) (*Appointment, error)
	GetByHoldID(ctx context.Context, tx *gorm.DB, holdID string) (*Appointment, error)
	Update(ctx context.Context, tx *gorm.DB, appointment *Appointment) error
	Delete(ctx context.Context, tx *gorm.DB, appointmentID uuid.UUID) error
	ExistsByHomeAndDate(
		ctx context.Context,
		tx *gorm.DB,
		homeID uuid.UUID,
		date time.Time,
	) (bool, error)
	GetFutureUnpaidBySchedule(
		ctx context.Context,
		tx *gorm.DB,
		scheduleID uuid.UUID,
		from time.Time,
	) ([]*Appointment, error)
	GetFuturePaidCountBySchedule(
		ctx context.Context,
		tx *gorm.DB,
		scheduleID uuid.UUID,
		from time.Time,
	) (int64, error)
	GetSubmittedBefore(
		ctx context.Context,
		tx *gorm.DB,
		cutoff time.Time,
	) ([]*Appointment, error)
	CountCompletedByClient(
		ctx context.Context,
		tx *gorm.DB,
		clientID uuid.UUID,
	) (int64, error)

	CreateAssignment(ctx context.Context, tx *gorm.DB, assignment *EmployeeAssignment) error
	GetAssignments(
		ctx context.Context,
		tx *gorm.DB,
		appointmentID uuid.UUID,
	) ([]*EmployeeAssignment, error)
	DeleteAssignments(ctx context.Context, tx *gorm.DB, appointmentID uuid.UUID) error

	CountPhotos(
		ctx context.Context,
		tx *gorm.DB,
		appointmentID uuid.UUID,
		kind PhotoKind,
	) (int64, error)
}

type appointmentRepository struct{}

func NewAppointmentRepository() AppointmentRepository {
	return &appointmentRepository{}
}

func (r *appointmentRepository) Create(
	ctx context.Context,
	tx *gorm.DB,
	appointment *Appointment,
) error {
	log := logger.NewWithContext(ctx, "appointmentRepository").Function("Create")

	if err := tx.WithContext(ctx).Create(appointment).Error; err != nil {
		return log.Err("failed to create appointment", err, "homeID", appointment.HomeID)
	}

	return nil
}

func (r *appointmentRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	appointmentID uuid.UUID,
) (*Appointment, error) {
	log := logger.NewWithContext(ctx, "appointmentRepository").Function("GetByID")

	var appointment Appointment
	if err := tx.WithContext(ctx).
		Preload("Home").
		Preload("Home.PreferredCleaner").
		Preload("Assignments", func(db *gorm.DB) *gorm.DB {
			return db.Order("employee_assignments.created_at ASC")
		}).
		First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, log.Err("failed to get appointment", err, "appointmentID", appointmentID)
	}

	return &appointment, nil
}

// GetByHoldID resolves a gateway webhook's hold reference back to the local
// appointment.
func (r *appointmentRepository) GetByHoldID(
	ctx context.Context,
	tx *gorm.DB,
	holdID string,
) (*Appointment, error) {
	log := logger.NewWithContext(ctx, "appointmentRepository").Function("GetByHoldID")

	var appointment Appointment
	if err := tx.WithContext(ctx).
		Preload("Home").
		First(&appointment, "payment_hold_id = ?", holdID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, log.Err("failed to get appointment by hold", err, "holdID", holdID)
	}

	return &appointment, nil
}

func (r *appointmentRepository) Update(
	ctx context.Context,
	tx *gorm.DB,
	appointment *Appointment,
) error {
	log := logger.NewWithContext(ctx, "appointmentRepository").Function("Update")

	if err := tx.WithContext(ctx).Save(appointment).Error; err != nil {
		return log.Err("failed to update appointment", err, "appointmentID", appointment.ID)
	}

	return nil
}

func (r *appointmentRepository) Delete(
	ctx context.Context,
	tx *gorm.DB,
	appointmentID uuid.UUID,
) error {
	log := logger.NewWithContext(ctx, "appointmentRepository").Function("Delete")

	if err := tx.WithContext(ctx).
		Delete(&Appointment{}, "id = ?", appointmentID).Error; err != nil {
		return log.Err("failed to delete appointment", err, "appointmentID", appointmentID)
	}

	return nil
}

// ExistsByHomeAndDate is the generation idempotency check: one appointment per
// home per calendar day. Cancelled appointments count as a match; a date the
// client cancelled must not be silently re-materialized by a later generation
// pass. Reconciled (soft-deleted) rows do not count.
func (r *appointmentRepository) ExistsByHomeAndDate(
	ctx context.Context,
	tx *gorm.DB,
	homeID uuid.UUID,
	date time.Time,
) (bool, error) {
	log := logger.NewWithContext(ctx, "appointmentRepository").Function("ExistsByHomeAndDate")

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var count int64
	if err := tx.WithContext(ctx).
		Model(&Appointment{}).
		Where("home_id = ? AND date >= ? AND date < ?", homeID, dayStart, dayEnd).
		Count(&count).Error; err != nil {
		return false, log.Err("failed to check appointment existence", err, "homeID", homeID)
	}

	return count > 0, nil
}

func (r *appointmentRepository) GetFutureUnpaidBySchedule(
	ctx context.Context,
	tx *gorm.DB,
	scheduleID uuid.UUID,
	from time.Time,
) ([]*Appointment, error) {
	log := logger.NewWithContext(ctx, "appointmentRepository").Function("GetFutureUnpaidBySchedule")

	var appointments []*Appointment
	if err := tx.WithContext(ctx).
		Where(
			"recurring_schedule_id = ? AND date >= ? AND paid = ? AND completed = ? AND was_cancelled = ?",
			scheduleID, from, false, false, false,
		).
		Order("date ASC").
		Find(&appointments).Error; err != nil {
		return nil, log.Err("failed to get future unpaid appointments", err, "scheduleID", scheduleID)
	}

	return appointments, nil
}

func (r *appointmentRepository) GetFuturePaidCountBySchedule(
	ctx context.Context,
	tx *gorm.DB,
	scheduleID uuid.UUID,
	from time.Time,
) (int64, error) {
	log := logger.NewWithContext(ctx, "appointmentRepository").Function("GetFuturePaidCountBySchedule")

	var count int64
	if err := tx.WithContext(ctx).
		Model(&Appointment{}).
		Where(
			"recurring_schedule_id = ? AND date >= ? AND paid = ? AND was_cancelled = ?",
			scheduleID, from, true, false,
		).
		Count(&count).Error; err != nil {
		return 0, log.Err("failed to count paid appointments", err, "scheduleID", scheduleID)
	}

	return count, nil
}

// GetSubmittedBefore returns appointments waiting on homeowner approval whose
// submission is older than the cutoff; the auto-approval sweep consumes them.
func (r *appointmentRepository) GetSubmittedBefore(
	ctx context.Context,
	tx *gorm.DB,
	cutoff time.Time,
) ([]*Appointment, error) {
	log := logger.NewWithContext(ctx, "appointmentRepository").Function("GetSubmittedBefore")

	var appointments []*Appointment
	if err := tx.WithContext(ctx).
		Where(
			"completion_status = ? AND completion_submitted_at IS NOT NULL AND completion_submitted_at <= ?",
			CompletionSubmitted, cutoff,
		).
		Order("completion_submitted_at ASC").
		Find(&appointments).Error; err != nil {
		return nil, log.Err("failed to get submitted appointments", err)
	}

	return appointments, nil
}

func (r *appointmentRepository) CountCompletedByClient(
	ctx context.Context,
	tx *gorm.DB,
	clientID uuid.UUID,
) (int64, error) {
	log := logger.NewWithContext(ctx, "appointmentRepository").Function("CountCompletedByClient")

	var count int64
	if err := tx.WithContext(ctx).
		Model(&Appointment{}).
		Where("client_id = ? AND completed = ?", clientID, true).
		Count(&count).Error; err != nil {
		return 0, log.Err("failed to count completed appointments", err, "clientID", clientID)
	}

	return count, nil
}

func (r *appointmentRepository) CreateAssignment(
	ctx context.Context,
	tx *gorm.DB,
	assignment *EmployeeAssignment,
) error {
	log := logger.NewWithContext(ctx, "appointmentRepository").Function("CreateAssignment")

	if err := tx.WithContext(ctx).Create(assignment).Error; err != nil {
		return log.Err("failed to create assignment", err, "appointmentID", assignment.AppointmentID)
	}

	return nil
}

func (r *appointmentRepository) GetAssignments(
	ctx context.Context,
	tx *gorm.DB,
	appointmentID uuid.UUID,
) ([]*EmployeeAssignment, error) {
	log := logger.NewWithContext(ctx, "appointmentRepository").Function("GetAssignments")

	var assignments []*EmployeeAssignment
	if err := tx.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("created_at ASC").
		Find(&assignments).Error; err != nil {
		return nil, log.Err("failed to get assignments", err, "appointmentID", appointmentID)
	}

	return assignments, nil
}

func (r *appointmentRepository) DeleteAssignments(
	ctx context.Context,
	tx *gorm.DB,
	appointmentID uuid.UUID,
) error {
	log := logger.NewWithContext(ctx, "appointmentRepository").Function("DeleteAssignments")

	if err := tx.WithContext(ctx).
		Delete(&EmployeeAssignment{}, "appointment_id = ?", appointmentID).Error; err != nil {
		return log.Err("failed to delete assignments", err, "appointmentID", appointmentID)
	}

	return nil
}

func (r *appointmentRepository) CountPhotos(
	ctx context.Context,
	tx *gorm.DB,
	appointmentID uuid.UUID,
	kind PhotoKind,
) (int64, error) {
	log := logger.NewWithContext(ctx, "appointmentRepository").Function("CountPhotos")

	var count int64
	if err := tx.WithContext(ctx).
		Model(&AppointmentPhoto{}).
		Where("appointment_id = ? AND kind = ?", appointmentID, kind).
		Count(&count).Error; err != nil {
		return 0, log.Err("failed to count photos", err, "appointmentID", appointmentID, "kind", kind)
	}

	return count, nil
}
