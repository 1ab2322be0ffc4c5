package jobs

import (
	"spruce/config"
	"spruce/internal/logger"
	"spruce/internal/services"
)

const (
	Hourly = services.Hourly
	Daily  = services.Daily
	Weekly = services.Weekly
)

// RegisterAllJobs wires the recurring jobs into the scheduler and returns the
// generation job so the app can run it once at startup and expose it on the
// on-demand route.
func RegisterAllJobs(
	schedulerService *services.SchedulerService,
	config config.Config,
	service services.Service,
	locks ScheduleLocker,
) (*GenerationJob, error) {
	log := logger.New("jobs").Function("RegisterAllJobs")
	log.Info("Registering jobs")

	generationJob := NewGenerationJob(service.Schedule, locks, service.EventBus, Weekly)
	if err := schedulerService.AddJob(generationJob); err != nil {
		return nil, log.Err("failed to register appointment generation job", err)
	}
	log.Info("Registered appointment generation job", "schedule", "weekly")

	autoApprovalJob := NewAutoApprovalJob(service.Payment, Hourly)
	if err := schedulerService.AddJob(autoApprovalJob); err != nil {
		return nil, log.Err("failed to register auto-approval job", err)
	}
	log.Info("Registered auto-approval job", "schedule", "hourly")

	return generationJob, nil
}
