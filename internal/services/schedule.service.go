package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"spruce/config"
	"spruce/internal/events"
	"spruce/internal/logger"
	. "spruce/internal/models"
	"spruce/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CreateScheduleRequest struct {
	CleanerID  uuid.UUID       `json:"cleanerId"`
	ClientID   uuid.UUID       `json:"clientId"`
	HomeID     uuid.UUID       `json:"homeId"`
	Frequency  Frequency       `json:"frequency"`
	DayOfWeek  int             `json:"dayOfWeek"`
	TimeWindow string          `json:"timeWindow"`
	Price      decimal.Decimal `json:"price"`
	StartDate  time.Time       `json:"startDate"`
	EndDate    *time.Time      `json:"endDate"`
}

// UpdateScheduleRequest carries an edit; nil fields are left unchanged.
type UpdateScheduleRequest struct {
	Frequency  *Frequency       `json:"frequency"`
	DayOfWeek  *int             `json:"dayOfWeek"`
	TimeWindow *string          `json:"timeWindow"`
	Price      *decimal.Decimal `json:"price"`
	EndDate    *time.Time       `json:"endDate"`
}

// ReconcileResult reports what a pause, edit or deactivation did to the
// schedule's future appointments.
type ReconcileResult struct {
	CancelledAppointments   int `json:"cancelledAppointments"`
	SkippedPaidAppointments int `json:"skippedPaidAppointments"`
	NewAppointmentsCreated  int `json:"newAppointmentsCreated"`
}

// GenerateResult reports one generation pass over one schedule.
type GenerateResult struct {
	Created []*Appointment `json:"created"`
	Skipped int            `json:"skipped"`
}

// ScheduleService materializes appointments from recurring schedules and
// keeps the ledger and payouts consistent through pause, edit and
// deactivation.
type ScheduleService struct {
	repos     repositories.Repository
	tx        TransactionRunner
	billing   *BillingService
	payouts   *PayoutService
	incentive *IncentiveService
	events    *events.EventBus
	config    config.Config
	now       func() time.Time
	log       logger.Logger
}

func NewScheduleService(
	repos repositories.Repository,
	tx TransactionRunner,
	billing *BillingService,
	payouts *PayoutService,
	incentive *IncentiveService,
	eventBus *events.EventBus,
	config config.Config,
) *ScheduleService {
	return &ScheduleService{
		repos:     repos,
		tx:        tx,
		billing:   billing,
		payouts:   payouts,
		incentive: incentive,
		events:    eventBus,
		config:    config,
		now:       time.Now,
		log:       logger.New("scheduleService"),
	}
}

func (s *ScheduleService) horizonWeeks(frequency Frequency) int {
	switch frequency {
	case FrequencyBiweekly:
		return s.config.HorizonWeeksBiweekly
	case FrequencyMonthly:
		return s.config.HorizonWeeksMonthly
	default:
		return s.config.HorizonWeeksWeekly
	}
}

func (s *ScheduleService) validateCreate(req CreateScheduleRequest) error {
	if !req.Frequency.Valid() {
		return NewDomainError(ErrValidation, "frequency must be weekly, biweekly or monthly")
	}
	if req.DayOfWeek < 0 || req.DayOfWeek > 6 {
		return NewDomainError(ErrValidation, "dayOfWeek must be between 0 (Sunday) and 6")
	}
	if req.Price.Sign() <= 0 {
		return NewDomainError(ErrValidation, "price must be positive")
	}
	if req.StartDate.IsZero() {
		return NewDomainError(ErrValidation, "startDate is required")
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return NewDomainError(ErrValidation, "endDate must not be before startDate")
	}
	return nil
}

// CreateSchedule validates, persists and immediately generates the first
// horizon of appointments.
func (s *ScheduleService) CreateSchedule(
	ctx context.Context,
	req CreateScheduleRequest,
) (*RecurringSchedule, *GenerateResult, error) {
	log := s.log.Function("CreateSchedule")

	if err := s.validateCreate(req); err != nil {
		return nil, nil, err
	}

	schedule := &RecurringSchedule{
		CleanerID:  req.CleanerID,
		ClientID:   req.ClientID,
		HomeID:     req.HomeID,
		Frequency:  req.Frequency,
		DayOfWeek:  req.DayOfWeek,
		TimeWindow: req.TimeWindow,
		Price:      req.Price,
		StartDate:  dateOnly(req.StartDate),
		EndDate:    req.EndDate,
		IsActive:   true,
	}

	err := s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		home, err := s.repos.Home.GetByID(ctx, tx, req.HomeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewDomainError(ErrNotFound, "home not found")
			}
			return err
		}
		if home.OwnerID != req.ClientID {
			return NewDomainError(ErrUnauthorized, "home does not belong to this client")
		}

		cleaner, err := s.repos.User.GetByID(ctx, tx, req.CleanerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewDomainError(ErrNotFound, "cleaner not found")
			}
			return err
		}
		if !cleaner.IsCleaner() {
			return NewDomainError(ErrValidation, "assigned user is not a cleaner")
		}

		return s.repos.Schedule.Create(ctx, tx, schedule)
	})
	if err != nil {
		return nil, nil, err
	}

	result, err := s.Generate(ctx, schedule, 0)
	if err != nil {
		// The schedule row is committed; the next batch run picks it up.
		log.Warn("initial generation failed after schedule create",
			"scheduleID", schedule.ID, "error", err)
		return schedule, &GenerateResult{}, nil
	}

	return schedule, result, nil
}

// Generate materializes occurrences up to the horizon. Each occurrence is
// created in its own transaction together with its assignment, payout, ledger
// credit and cursor advance, so a crash mid-run resumes cleanly. An existing
// appointment on the same home and date is skipped without touching the
// ledger or payouts.
func (s *ScheduleService) Generate(
	ctx context.Context,
	schedule *RecurringSchedule,
	horizonWeeks int,
) (*GenerateResult, error) {
	log := s.log.Function("Generate")

	if !schedule.IsActive {
		return &GenerateResult{}, nil
	}

	if horizonWeeks <= 0 {
		horizonWeeks = s.horizonWeeks(schedule.Frequency)
	}

	today := dateOnly(s.now())
	horizonEnd := today.AddDate(0, 0, horizonWeeks*7)

	// The cursor is exclusive: nothing on or before lastGeneratedDate is ever
	// created again. A fresh schedule starts the day before its start date so
	// the first occurrence is included.
	after := dateOnly(schedule.StartDate).AddDate(0, 0, -1)
	if schedule.LastGeneratedDate != nil && schedule.LastGeneratedDate.After(after) {
		after = dateOnly(*schedule.LastGeneratedDate)
	}

	result := &GenerateResult{}

	for _, date := range occurrencesBetween(schedule, after, horizonEnd) {
		if schedule.PausedOn(date) {
			result.Skipped++
			continue
		}

		var created *Appointment
		err := s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
			exists, err := s.repos.Appointment.ExistsByHomeAndDate(ctx, tx, schedule.HomeID, date)
			if err != nil {
				return err
			}
			if exists {
				created = nil
				return nil
			}

			appointment, err := s.createOccurrence(ctx, tx, schedule, date)
			if err != nil {
				return err
			}
			created = appointment
			return nil
		})
		if err != nil {
			return result, log.Err("failed to generate occurrence", err,
				"scheduleID", schedule.ID, "date", date)
		}

		if created == nil {
			result.Skipped++
			continue
		}

		result.Created = append(result.Created, created)
		cursor := date
		schedule.LastGeneratedDate = &cursor

		_ = s.events.Publish(events.APPOINTMENTS_CHANNEL, events.Event{
			Type:   events.APPOINTMENT_CREATED,
			UserID: &schedule.ClientID,
			Data: map[string]any{
				"appointmentId": created.ID.String(),
				"scheduleId":    schedule.ID.String(),
				"date":          date.Format(time.DateOnly),
			},
		})
	}

	if err := s.refreshNextScheduledDate(ctx, schedule, today); err != nil {
		return result, err
	}

	log.Info("generation pass finished",
		"scheduleID", schedule.ID,
		"created", len(result.Created),
		"skipped", result.Skipped,
	)

	return result, nil
}

func (s *ScheduleService) createOccurrence(
	ctx context.Context,
	tx *gorm.DB,
	schedule *RecurringSchedule,
	date time.Time,
) (*Appointment, error) {
	price, _, err := s.incentive.HomeownerPrice(ctx, tx, schedule.ClientID, schedule.Price)
	if err != nil {
		return nil, err
	}

	appointment := &Appointment{
		HomeID:              schedule.HomeID,
		ClientID:            schedule.ClientID,
		Date:                date,
		TimeWindow:          schedule.TimeWindow,
		Price:               price,
		CompletionStatus:    CompletionInProgress,
		PaymentStatus:       PaymentPending,
		RecurringScheduleID: &schedule.ID,
	}

	if err := s.repos.Appointment.Create(ctx, tx, appointment); err != nil {
		return nil, err
	}

	assignment := &EmployeeAssignment{
		AppointmentID: appointment.ID,
		CleanerID:     schedule.CleanerID,
	}
	if err := s.repos.Appointment.CreateAssignment(ctx, tx, assignment); err != nil {
		return nil, err
	}

	if err := s.billing.Credit(ctx, tx, schedule.ClientID, price); err != nil {
		return nil, err
	}

	now := s.now()
	if _, err := s.payouts.CreateForAppointment(
		ctx, tx, appointment, []uuid.UUID{schedule.CleanerID}, now,
	); err != nil {
		return nil, err
	}

	if err := s.repos.Schedule.AdvanceCursor(ctx, tx, schedule.ID, date); err != nil {
		return nil, err
	}

	return appointment, nil
}

// refreshNextScheduledDate recomputes from today regardless of whether the
// pass created anything.
func (s *ScheduleService) refreshNextScheduledDate(
	ctx context.Context,
	schedule *RecurringSchedule,
	today time.Time,
) error {
	var next *time.Time
	if schedule.IsActive {
		if n := nextOccurrenceAfter(schedule, today); !n.IsZero() {
			next = &n
		}
	}
	schedule.NextScheduledDate = next

	return s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return s.repos.Schedule.SetNextScheduledDate(ctx, tx, schedule.ID, next)
	})
}

// reconcile removes the schedule's future unpaid appointments along with
// their assignments, payouts and ledger credit. Paid appointments are never
// auto-deleted; they are counted so the caller can warn the user.
func (s *ScheduleService) reconcile(
	ctx context.Context,
	tx *gorm.DB,
	schedule *RecurringSchedule,
) (cancelled int, skippedPaid int, err error) {
	today := dateOnly(s.now())

	appointments, err := s.repos.Appointment.GetFutureUnpaidBySchedule(ctx, tx, schedule.ID, today)
	if err != nil {
		return 0, 0, err
	}

	for _, appointment := range appointments {
		if !appointment.Deletable() {
			continue
		}

		if err := s.repos.Appointment.DeleteAssignments(ctx, tx, appointment.ID); err != nil {
			return cancelled, 0, err
		}
		if err := s.payouts.DeleteForAppointment(ctx, tx, appointment.ID); err != nil {
			return cancelled, 0, err
		}
		if err := s.billing.Debit(ctx, tx, appointment.ClientID, appointment.Price); err != nil {
			return cancelled, 0, err
		}
		if err := s.repos.Appointment.Delete(ctx, tx, appointment.ID); err != nil {
			return cancelled, 0, err
		}

		cancelled++
	}

	paid, err := s.repos.Appointment.GetFuturePaidCountBySchedule(ctx, tx, schedule.ID, today)
	if err != nil {
		return cancelled, 0, err
	}

	return cancelled, int(paid), nil
}

// Pause suspends generation and cancels the schedule's future unpaid
// appointments. A nil until pauses indefinitely.
func (s *ScheduleService) Pause(
	ctx context.Context,
	scheduleID uuid.UUID,
	until *time.Time,
	reason string,
) (*ReconcileResult, error) {
	log := s.log.Function("Pause")

	result := &ReconcileResult{}
	var schedule *RecurringSchedule

	err := s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		schedule, err = s.getSchedule(ctx, tx, scheduleID)
		if err != nil {
			return err
		}

		schedule.IsPaused = true
		schedule.PausedUntil = until
		schedule.PauseReason = reason

		meta := map[string]any{
			"pausedAt": s.now().Format(time.RFC3339),
			"reason":   reason,
		}
		if until != nil {
			meta["until"] = until.Format(time.DateOnly)
		}
		if raw, err := json.Marshal(meta); err == nil {
			schedule.PauseMeta = datatypes.JSON(raw)
		}

		if err := s.repos.Schedule.Update(ctx, tx, schedule); err != nil {
			return err
		}

		cancelled, skippedPaid, err := s.reconcile(ctx, tx, schedule)
		if err != nil {
			return err
		}
		result.CancelledAppointments = cancelled
		result.SkippedPaidAppointments = skippedPaid
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.events.Publish(events.SCHEDULES_CHANNEL, events.Event{
		Type:   events.SCHEDULE_PAUSED,
		UserID: &schedule.ClientID,
		Data: map[string]any{
			"scheduleId": schedule.ID.String(),
			"reason":     reason,
		},
	})

	log.Info("schedule paused",
		"scheduleID", scheduleID,
		"cancelled", result.CancelledAppointments,
		"skippedPaid", result.SkippedPaidAppointments,
	)

	return result, nil
}

// Resume clears the pause and regenerates the horizon.
func (s *ScheduleService) Resume(
	ctx context.Context,
	scheduleID uuid.UUID,
) (*ReconcileResult, error) {
	var schedule *RecurringSchedule

	err := s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		schedule, err = s.getSchedule(ctx, tx, scheduleID)
		if err != nil {
			return err
		}

		schedule.IsPaused = false
		schedule.PausedUntil = nil
		schedule.PauseReason = ""
		schedule.PauseMeta = nil

		// Pause reconciliation removed appointments behind the cursor; start
		// over and let the existence check skip whatever survived.
		schedule.LastGeneratedDate = nil

		return s.repos.Schedule.Update(ctx, tx, schedule)
	})
	if err != nil {
		return nil, err
	}

	generated, err := s.Generate(ctx, schedule, 0)
	if err != nil {
		return nil, err
	}

	return &ReconcileResult{NewAppointmentsCreated: len(generated.Created)}, nil
}

// Edit applies rule changes, cancels now-stale future unpaid appointments,
// resets the generation cursor and regenerates under the new rule unless the
// schedule is paused.
func (s *ScheduleService) Edit(
	ctx context.Context,
	scheduleID uuid.UUID,
	req UpdateScheduleRequest,
) (*ReconcileResult, error) {
	log := s.log.Function("Edit")

	if req.Frequency != nil && !req.Frequency.Valid() {
		return nil, NewDomainError(ErrValidation, "frequency must be weekly, biweekly or monthly")
	}
	if req.DayOfWeek != nil && (*req.DayOfWeek < 0 || *req.DayOfWeek > 6) {
		return nil, NewDomainError(ErrValidation, "dayOfWeek must be between 0 (Sunday) and 6")
	}
	if req.Price != nil && req.Price.Sign() <= 0 {
		return nil, NewDomainError(ErrValidation, "price must be positive")
	}

	result := &ReconcileResult{}
	var schedule *RecurringSchedule

	err := s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		schedule, err = s.getSchedule(ctx, tx, scheduleID)
		if err != nil {
			return err
		}

		if req.Frequency != nil {
			schedule.Frequency = *req.Frequency
		}
		if req.DayOfWeek != nil {
			schedule.DayOfWeek = *req.DayOfWeek
		}
		if req.TimeWindow != nil {
			schedule.TimeWindow = *req.TimeWindow
		}
		if req.Price != nil {
			schedule.Price = *req.Price
		}
		if req.EndDate != nil {
			if req.EndDate.Before(schedule.StartDate) {
				return NewDomainError(ErrValidation, "endDate must not be before startDate")
			}
			schedule.EndDate = req.EndDate
		}

		cancelled, skippedPaid, err := s.reconcile(ctx, tx, schedule)
		if err != nil {
			return err
		}
		result.CancelledAppointments = cancelled
		result.SkippedPaidAppointments = skippedPaid

		// Cursor reset: the next pass starts over from startDate under the
		// new rule.
		schedule.LastGeneratedDate = nil

		return s.repos.Schedule.Update(ctx, tx, schedule)
	})
	if err != nil {
		return nil, err
	}

	if !schedule.IsPaused {
		generated, err := s.Generate(ctx, schedule, 0)
		if err != nil {
			return nil, err
		}
		result.NewAppointmentsCreated = len(generated.Created)
	}

	log.Info("schedule edited",
		"scheduleID", scheduleID,
		"cancelled", result.CancelledAppointments,
		"created", result.NewAppointmentsCreated,
	)

	return result, nil
}

// Deactivate retires the schedule and cancels its future unpaid
// appointments. Paid appointments stay on the calendar.
func (s *ScheduleService) Deactivate(
	ctx context.Context,
	scheduleID uuid.UUID,
) (*ReconcileResult, error) {
	log := s.log.Function("Deactivate")

	result := &ReconcileResult{}
	var schedule *RecurringSchedule

	err := s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		schedule, err = s.getSchedule(ctx, tx, scheduleID)
		if err != nil {
			return err
		}

		schedule.IsActive = false
		schedule.NextScheduledDate = nil

		if err := s.repos.Schedule.Update(ctx, tx, schedule); err != nil {
			return err
		}

		cancelled, skippedPaid, err := s.reconcile(ctx, tx, schedule)
		if err != nil {
			return err
		}
		result.CancelledAppointments = cancelled
		result.SkippedPaidAppointments = skippedPaid
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.events.Publish(events.SCHEDULES_CHANNEL, events.Event{
		Type:   events.SCHEDULE_DEACTIVATED,
		UserID: &schedule.ClientID,
		Data: map[string]any{
			"scheduleId": schedule.ID.String(),
		},
	})

	log.Info("schedule deactivated",
		"scheduleID", scheduleID,
		"cancelled", result.CancelledAppointments,
		"skippedPaid", result.SkippedPaidAppointments,
	)

	return result, nil
}

// GetSchedule loads one schedule for ownership checks and display.
func (s *ScheduleService) GetSchedule(
	ctx context.Context,
	scheduleID uuid.UUID,
) (*RecurringSchedule, error) {
	var schedule *RecurringSchedule
	err := s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		schedule, err = s.getSchedule(ctx, tx, scheduleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

// ActiveSchedules lists the schedules the generation batch iterates.
func (s *ScheduleService) ActiveSchedules(ctx context.Context) ([]*RecurringSchedule, error) {
	var schedules []*RecurringSchedule
	err := s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		schedules, err = s.repos.Schedule.GetActive(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (s *ScheduleService) getSchedule(
	ctx context.Context,
	tx *gorm.DB,
	scheduleID uuid.UUID,
) (*RecurringSchedule, error) {
	schedule, err := s.repos.Schedule.GetByID(ctx, tx, scheduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewDomainError(ErrNotFound, "schedule not found")
		}
		return nil, err
	}
	return schedule, nil
}
