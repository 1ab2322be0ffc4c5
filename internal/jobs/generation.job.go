package jobs

import (
	"context"

	"spruce/internal/events"
	"spruce/internal/logger"
	. "spruce/internal/models"
	"spruce/internal/services"

	"github.com/google/uuid"
)

// ScheduleLocker is the advisory-lock surface the generation batch needs;
// database.DB provides the valkey-backed implementation.
type ScheduleLocker interface {
	AcquireScheduleLock(ctx context.Context, scheduleID uuid.UUID) (bool, error)
	ReleaseScheduleLock(ctx context.Context, scheduleID uuid.UUID) error
}

// ScheduleGenerator is what the batch needs from the schedule service.
type ScheduleGenerator interface {
	ActiveSchedules(ctx context.Context) ([]*RecurringSchedule, error)
	Generate(
		ctx context.Context,
		schedule *RecurringSchedule,
		horizonWeeks int,
	) (*services.GenerateResult, error)
}

// ScheduleDetail is the per-schedule line of a batch summary.
type ScheduleDetail struct {
	ScheduleID          string `json:"scheduleId"`
	AppointmentsCreated int    `json:"appointmentsCreated"`
	Skipped             int    `json:"skipped"`
	Error               string `json:"error,omitempty"`
}

// Summary reports one full generation batch.
type Summary struct {
	SchedulesProcessed  int              `json:"schedulesProcessed"`
	AppointmentsCreated int              `json:"appointmentsCreated"`
	Skipped             int              `json:"skipped"`
	Errors              int              `json:"errors"`
	Details             []ScheduleDetail `json:"details"`
}

// GenerationJob walks every active recurring schedule and materializes its
// appointment horizon. Each schedule is isolated: a failure is recorded in
// the summary and the batch moves on.
type GenerationJob struct {
	scheduleService ScheduleGenerator
	locks           ScheduleLocker
	eventBus        *events.EventBus
	schedule        services.Schedule
	log             logger.Logger
}

func NewGenerationJob(
	scheduleService ScheduleGenerator,
	locks ScheduleLocker,
	eventBus *events.EventBus,
	schedule services.Schedule,
) *GenerationJob {
	log := logger.New("generationJob")
	log.Info("Creating new appointment generation job", "schedule", schedule)

	return &GenerationJob{
		scheduleService: scheduleService,
		locks:           locks,
		eventBus:        eventBus,
		schedule:        schedule,
		log:             log,
	}
}

func (j *GenerationJob) Name() string {
	return "AppointmentGeneration"
}

func (j *GenerationJob) Schedule() services.Schedule {
	return j.schedule
}

func (j *GenerationJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")

	summary, err := j.Run(ctx)
	if err != nil {
		return log.Err("generation batch failed", err)
	}

	log.Info("Generation batch completed",
		"schedulesProcessed", summary.SchedulesProcessed,
		"appointmentsCreated", summary.AppointmentsCreated,
		"skipped", summary.Skipped,
		"errors", summary.Errors,
	)
	return nil
}

// Run executes one batch and returns its summary. It is also the entry point
// for the on-demand trigger route.
func (j *GenerationJob) Run(ctx context.Context) (*Summary, error) {
	log := j.log.Function("Run")

	schedules, err := j.scheduleService.ActiveSchedules(ctx)
	if err != nil {
		return nil, log.Err("failed to list active schedules", err)
	}

	summary := &Summary{}

	for _, schedule := range schedules {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		detail := ScheduleDetail{ScheduleID: schedule.ID.String()}

		acquired, err := j.locks.AcquireScheduleLock(ctx, schedule.ID)
		if err != nil {
			log.Warn("failed to acquire schedule lock, skipping",
				"scheduleID", schedule.ID, "error", err)
			acquired = false
		}
		if !acquired {
			detail.Error = "schedule locked by another run"
			summary.Details = append(summary.Details, detail)
			continue
		}

		result, err := j.scheduleService.Generate(ctx, schedule, 0)
		if releaseErr := j.locks.ReleaseScheduleLock(ctx, schedule.ID); releaseErr != nil {
			log.Warn("failed to release schedule lock",
				"scheduleID", schedule.ID, "error", releaseErr)
		}

		summary.SchedulesProcessed++

		if err != nil {
			// One malformed schedule never stops the fleet.
			summary.Errors++
			detail.Error = err.Error()
			_ = log.Err("schedule generation failed", err, "scheduleID", schedule.ID)
		}
		if result != nil {
			detail.AppointmentsCreated = len(result.Created)
			detail.Skipped = result.Skipped
			summary.AppointmentsCreated += len(result.Created)
			summary.Skipped += result.Skipped
		}

		summary.Details = append(summary.Details, detail)
	}

	_ = j.eventBus.Publish(events.SCHEDULES_CHANNEL, events.Event{
		Type: events.GENERATION_COMPLETED,
		Data: map[string]any{
			"schedulesProcessed":  summary.SchedulesProcessed,
			"appointmentsCreated": summary.AppointmentsCreated,
			"skipped":             summary.Skipped,
			"errors":              summary.Errors,
		},
	})

	return summary, nil
}
