package jobs

import (
	"context"

	"spruce/internal/logger"
	"spruce/internal/services"
)

// CompletionApprover is what the sweep needs from the payment service.
type CompletionApprover interface {
	AutoApproveDue(ctx context.Context) (approved int, failed int, err error)
}

// AutoApprovalJob finalizes submitted completions the homeowner never acted
// on within the approval window.
type AutoApprovalJob struct {
	paymentService CompletionApprover
	schedule       services.Schedule
	log            logger.Logger
}

func NewAutoApprovalJob(
	paymentService CompletionApprover,
	schedule services.Schedule,
) *AutoApprovalJob {
	log := logger.New("autoApprovalJob")
	log.Info("Creating new auto-approval job", "schedule", schedule)

	return &AutoApprovalJob{
		paymentService: paymentService,
		schedule:       schedule,
		log:            log,
	}
}

func (j *AutoApprovalJob) Name() string {
	return "CompletionAutoApproval"
}

func (j *AutoApprovalJob) Schedule() services.Schedule {
	return j.schedule
}

func (j *AutoApprovalJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")

	approved, failed, err := j.paymentService.AutoApproveDue(ctx)
	if err != nil {
		return log.Err("auto-approval sweep failed", err)
	}

	if approved > 0 || failed > 0 {
		log.Info("Auto-approval sweep completed", "approved", approved, "failed", failed)
	}
	return nil
}
