package scheduleController

import (
	"context"
	"time"

	"spruce/internal/logger"
	. "spruce/internal/models"
	"spruce/internal/services"

	"github.com/google/uuid"
)

// scheduleService is the slice of services.ScheduleService this controller
// needs.
type scheduleService interface {
	GetSchedule(ctx context.Context, scheduleID uuid.UUID) (*RecurringSchedule, error)
	CreateSchedule(
		ctx context.Context,
		req services.CreateScheduleRequest,
	) (*RecurringSchedule, *services.GenerateResult, error)
	Edit(
		ctx context.Context,
		scheduleID uuid.UUID,
		req services.UpdateScheduleRequest,
	) (*services.ReconcileResult, error)
	Pause(
		ctx context.Context,
		scheduleID uuid.UUID,
		until *time.Time,
		reason string,
	) (*services.ReconcileResult, error)
	Resume(ctx context.Context, scheduleID uuid.UUID) (*services.ReconcileResult, error)
	Deactivate(ctx context.Context, scheduleID uuid.UUID) (*services.ReconcileResult, error)
}

type ScheduleController struct {
	scheduleService scheduleService
}

type PauseRequest struct {
	Until  *time.Time `json:"until,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

type ScheduleControllerInterface interface {
	Create(
		ctx context.Context,
		user *User,
		request services.CreateScheduleRequest,
	) (*RecurringSchedule, *services.GenerateResult, error)
	Get(ctx context.Context, user *User, scheduleID uuid.UUID) (*RecurringSchedule, error)
	Edit(
		ctx context.Context,
		user *User,
		scheduleID uuid.UUID,
		request services.UpdateScheduleRequest,
	) (*services.ReconcileResult, error)
	Pause(
		ctx context.Context,
		user *User,
		scheduleID uuid.UUID,
		request PauseRequest,
	) (*services.ReconcileResult, error)
	Resume(ctx context.Context, user *User, scheduleID uuid.UUID) (*services.ReconcileResult, error)
	Deactivate(
		ctx context.Context,
		user *User,
		scheduleID uuid.UUID,
	) (*services.ReconcileResult, error)
}

func New(service services.Service) ScheduleControllerInterface {
	return &ScheduleController{
		scheduleService: service.Schedule,
	}
}

// canManage limits schedule mutations to the owning cleaner, the client the
// schedule serves, and admins.
func canManage(user *User, schedule *RecurringSchedule) bool {
	if user.IsAdmin() {
		return true
	}
	return user.ID == schedule.CleanerID || user.ID == schedule.ClientID
}

func (c *ScheduleController) authorize(
	ctx context.Context,
	user *User,
	scheduleID uuid.UUID,
) (*RecurringSchedule, error) {
	schedule, err := c.scheduleService.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !canManage(user, schedule) {
		return nil, services.NewDomainError(
			services.ErrUnauthorized,
			"You do not have access to this schedule",
		)
	}
	return schedule, nil
}

func (c *ScheduleController) Create(
	ctx context.Context,
	user *User,
	request services.CreateScheduleRequest,
) (*RecurringSchedule, *services.GenerateResult, error) {
	log := logger.NewWithContext(ctx, "scheduleController").Function("Create")

	if !user.IsAdmin() {
		if !user.IsCleaner() {
			return nil, nil, services.NewDomainError(
				services.ErrUnauthorized,
				"Only cleaners can create recurring schedules",
			)
		}
		// Cleaners always create schedules for themselves.
		request.CleanerID = user.ID
	}

	schedule, generated, err := c.scheduleService.CreateSchedule(ctx, request)
	if err != nil {
		return nil, nil, err
	}

	log.Info("recurring schedule created",
		"scheduleID", schedule.ID,
		"cleanerID", schedule.CleanerID,
		"created", generated.Created,
	)
	return schedule, generated, nil
}

func (c *ScheduleController) Get(
	ctx context.Context,
	user *User,
	scheduleID uuid.UUID,
) (*RecurringSchedule, error) {
	return c.authorize(ctx, user, scheduleID)
}

func (c *ScheduleController) Edit(
	ctx context.Context,
	user *User,
	scheduleID uuid.UUID,
	request services.UpdateScheduleRequest,
) (*services.ReconcileResult, error) {
	if _, err := c.authorize(ctx, user, scheduleID); err != nil {
		return nil, err
	}
	return c.scheduleService.Edit(ctx, scheduleID, request)
}

func (c *ScheduleController) Pause(
	ctx context.Context,
	user *User,
	scheduleID uuid.UUID,
	request PauseRequest,
) (*services.ReconcileResult, error) {
	if _, err := c.authorize(ctx, user, scheduleID); err != nil {
		return nil, err
	}
	return c.scheduleService.Pause(ctx, scheduleID, request.Until, request.Reason)
}

func (c *ScheduleController) Resume(
	ctx context.Context,
	user *User,
	scheduleID uuid.UUID,
) (*services.ReconcileResult, error) {
	if _, err := c.authorize(ctx, user, scheduleID); err != nil {
		return nil, err
	}
	return c.scheduleService.Resume(ctx, scheduleID)
}

func (c *ScheduleController) Deactivate(
	ctx context.Context,
	user *User,
	scheduleID uuid.UUID,
) (*services.ReconcileResult, error) {
	if _, err := c.authorize(ctx, user, scheduleID); err != nil {
		return nil, err
	}
	return c.scheduleService.Deactivate(ctx, scheduleID)
}
