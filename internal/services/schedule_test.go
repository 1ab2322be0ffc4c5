package services

import (
	"context"
	"errors"
	"testing"
	"time"

	. "spruce/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createWeeklySchedule seeds a homeowner, cleaner and home, then creates a
// weekly Monday schedule starting on the test clock's Monday. With the
// default four-week horizon that generates five appointments.
func createWeeklySchedule(t *testing.T, env *testEnv) (*RecurringSchedule, *GenerateResult, *User, *User) {
	t.Helper()

	homeowner := env.addUser(RoleHomeowner)
	cleaner := env.addUser(RoleCleaner)
	home := env.addHome(homeowner, nil)

	schedule, result, err := env.schedule.CreateSchedule(context.Background(), CreateScheduleRequest{
		CleanerID: cleaner.ID,
		ClientID:  homeowner.ID,
		HomeID:    home.ID,
		Frequency: FrequencyWeekly,
		DayOfWeek: 1, // Monday
		Price:     decimal.NewFromFloat(100),
		StartDate: env.now,
	})
	require.NoError(t, err)
	require.NotNil(t, schedule)

	return schedule, result, homeowner, cleaner
}

func (e *testEnv) appointmentDue(t *testing.T, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	bill, err := e.billing.GetBill(context.Background(), userID)
	require.NoError(t, err)
	return bill.AppointmentDue
}

func TestCreateScheduleGeneratesHorizon(t *testing.T) {
	env := newTestEnv()
	schedule, result, homeowner, cleaner := createWeeklySchedule(t, env)

	require.Len(t, result.Created, 5)
	assert.Equal(t, 0, result.Skipped)

	// Cursor sits on the last generated occurrence.
	stored := env.store.schedules[schedule.ID]
	require.NotNil(t, stored.LastGeneratedDate)
	assert.Equal(t, date(2026, 3, 30), *stored.LastGeneratedDate)

	// Next occurrence is always recomputed from today.
	require.NotNil(t, stored.NextScheduledDate)
	assert.Equal(t, date(2026, 3, 9), *stored.NextScheduledDate)

	// One assignment and one pending payout per appointment.
	assert.Len(t, env.store.assignments, 5)
	require.Len(t, env.store.payouts, 5)
	for _, payout := range env.store.payouts {
		assert.Equal(t, PayoutPending, payout.Status)
		assert.Equal(t, cleaner.ID, payout.CleanerID)
	}

	// Ledger carries the full horizon.
	assert.True(t, env.appointmentDue(t, homeowner.ID).Equal(decimal.NewFromFloat(500)))
}

func TestGenerateIsIdempotent(t *testing.T) {
	env := newTestEnv()
	schedule, _, homeowner, _ := createWeeklySchedule(t, env)

	stored := env.store.schedules[schedule.ID]
	again, err := env.schedule.Generate(context.Background(), stored, 0)
	require.NoError(t, err)

	assert.Empty(t, again.Created)
	assert.Len(t, env.store.appointments, 5)
	assert.True(t, env.appointmentDue(t, homeowner.ID).Equal(decimal.NewFromFloat(500)))
}

func TestGenerateSkipsExistingAppointmentWithoutLedgerTouch(t *testing.T) {
	env := newTestEnv()
	schedule, _, homeowner, _ := createWeeklySchedule(t, env)

	// Simulate a second overlapping run that lost the cursor: reset it and
	// regenerate. Every date already exists, so nothing is created and the
	// ledger is untouched.
	stored := env.store.schedules[schedule.ID]
	stored.LastGeneratedDate = nil

	result, err := env.schedule.Generate(context.Background(), stored, 0)
	require.NoError(t, err)

	assert.Empty(t, result.Created)
	assert.Equal(t, 5, result.Skipped)
	assert.Len(t, env.store.appointments, 5)
	assert.True(t, env.appointmentDue(t, homeowner.ID).Equal(decimal.NewFromFloat(500)))
}

func TestCursorNeverDecreases(t *testing.T) {
	env := newTestEnv()
	schedule, _, _, _ := createWeeklySchedule(t, env)
	ctx := context.Background()

	stored := env.store.schedules[schedule.ID]
	cursor := *stored.LastGeneratedDate

	// A stale write with an older date is ignored.
	require.NoError(t, env.repos.Schedule.AdvanceCursor(ctx, nil, schedule.ID, cursor.AddDate(0, 0, -7)))
	assert.Equal(t, cursor, *env.store.schedules[schedule.ID].LastGeneratedDate)

	// Another pass can only move it forward.
	_, err := env.schedule.Generate(ctx, stored, 0)
	require.NoError(t, err)
	assert.False(t, env.store.schedules[schedule.ID].LastGeneratedDate.Before(cursor))
}

func TestGenerateSkipsPausedDates(t *testing.T) {
	env := newTestEnv()
	homeowner := env.addUser(RoleHomeowner)
	cleaner := env.addUser(RoleCleaner)
	home := env.addHome(homeowner, nil)

	pausedUntil := date(2026, 3, 15)
	schedule := &RecurringSchedule{
		CleanerID:   cleaner.ID,
		ClientID:    homeowner.ID,
		HomeID:      home.ID,
		Frequency:   FrequencyWeekly,
		DayOfWeek:   1,
		Price:       decimal.NewFromFloat(100),
		StartDate:   date(2026, 3, 2),
		IsActive:    true,
		IsPaused:    true,
		PausedUntil: &pausedUntil,
	}
	require.NoError(t, env.repos.Schedule.Create(context.Background(), nil, schedule))

	result, err := env.schedule.Generate(context.Background(), schedule, 0)
	require.NoError(t, err)

	// March 2 and 9 fall inside the pause window; 16, 23 and 30 are created.
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, result.Created, 3)
	assert.Equal(t, date(2026, 3, 16), dateOnly(result.Created[0].Date))
}

func TestPauseReconciliation(t *testing.T) {
	env := newTestEnv()
	schedule, result, homeowner, _ := createWeeklySchedule(t, env)
	require.Len(t, result.Created, 5)

	// Two of the five get paid out of band.
	for _, appointment := range result.Created[:2] {
		stored := env.store.appointments[appointment.ID]
		stored.Paid = true
		require.NoError(t, env.billing.Debit(context.Background(), nil, homeowner.ID, stored.Price))
	}

	outcome, err := env.schedule.Pause(context.Background(), schedule.ID, nil, "vacation")
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.CancelledAppointments)
	assert.Equal(t, 2, outcome.SkippedPaidAppointments)

	// Paid appointments survive; unpaid ones and their payouts are gone.
	assert.Len(t, env.store.appointments, 2)
	assert.Len(t, env.store.payouts, 2)
	assert.Len(t, env.store.assignments, 2)

	// Ledger invariant: appointmentDue equals the sum of unpaid prices (zero).
	assert.True(t, env.appointmentDue(t, homeowner.ID).IsZero())

	stored := env.store.schedules[schedule.ID]
	assert.True(t, stored.IsPaused)
	assert.Equal(t, "vacation", stored.PauseReason)
	assert.NotEmpty(t, stored.PauseMeta)
}

func TestEditResetsCursorAndRegenerates(t *testing.T) {
	env := newTestEnv()
	schedule, _, homeowner, _ := createWeeklySchedule(t, env)

	newDay := 3 // Wednesday
	outcome, err := env.schedule.Edit(context.Background(), schedule.ID, UpdateScheduleRequest{
		DayOfWeek: &newDay,
	})
	require.NoError(t, err)

	// All five Monday appointments were unpaid and go away; four Wednesdays
	// fit inside the four-week horizon.
	assert.Equal(t, 5, outcome.CancelledAppointments)
	assert.Equal(t, 4, outcome.NewAppointmentsCreated)

	for _, appointment := range env.store.appointments {
		assert.Equal(t, time.Wednesday, appointment.Date.Weekday())
	}

	// Ledger follows the replacement appointments.
	assert.True(t, env.appointmentDue(t, homeowner.ID).Equal(decimal.NewFromFloat(400)))
}

func TestEditWhilePausedDoesNotRegenerate(t *testing.T) {
	env := newTestEnv()
	schedule, _, _, _ := createWeeklySchedule(t, env)

	_, err := env.schedule.Pause(context.Background(), schedule.ID, nil, "")
	require.NoError(t, err)

	price := decimal.NewFromFloat(150)
	outcome, err := env.schedule.Edit(context.Background(), schedule.ID, UpdateScheduleRequest{
		Price: &price,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, outcome.NewAppointmentsCreated)
	assert.Empty(t, env.store.appointments)
}

func TestDeactivateCancelsFutureUnpaid(t *testing.T) {
	env := newTestEnv()
	schedule, result, homeowner, _ := createWeeklySchedule(t, env)
	require.Len(t, result.Created, 5)

	outcome, err := env.schedule.Deactivate(context.Background(), schedule.ID)
	require.NoError(t, err)

	assert.Equal(t, 5, outcome.CancelledAppointments)
	assert.Equal(t, 0, outcome.SkippedPaidAppointments)
	assert.Empty(t, env.store.appointments)
	assert.Empty(t, env.store.payouts)
	assert.True(t, env.appointmentDue(t, homeowner.ID).IsZero())

	stored := env.store.schedules[schedule.ID]
	assert.False(t, stored.IsActive)
	assert.Nil(t, stored.NextScheduledDate)

	// A retired schedule generates nothing.
	generated, err := env.schedule.Generate(context.Background(), stored, 0)
	require.NoError(t, err)
	assert.Empty(t, generated.Created)
}

func TestResumeRegenerates(t *testing.T) {
	env := newTestEnv()
	schedule, _, _, _ := createWeeklySchedule(t, env)

	_, err := env.schedule.Pause(context.Background(), schedule.ID, nil, "travel")
	require.NoError(t, err)
	assert.Empty(t, env.store.appointments)

	outcome, err := env.schedule.Resume(context.Background(), schedule.ID)
	require.NoError(t, err)

	assert.Equal(t, 5, outcome.NewAppointmentsCreated)
	stored := env.store.schedules[schedule.ID]
	assert.False(t, stored.IsPaused)
	assert.Empty(t, stored.PauseReason)
}

func TestCreateScheduleValidation(t *testing.T) {
	env := newTestEnv()
	homeowner := env.addUser(RoleHomeowner)
	cleaner := env.addUser(RoleCleaner)
	home := env.addHome(homeowner, nil)
	ctx := context.Background()

	base := CreateScheduleRequest{
		CleanerID: cleaner.ID,
		ClientID:  homeowner.ID,
		HomeID:    home.ID,
		Frequency: FrequencyWeekly,
		DayOfWeek: 1,
		Price:     decimal.NewFromFloat(100),
		StartDate: env.now,
	}

	bad := base
	bad.Frequency = "daily"
	_, _, err := env.schedule.CreateSchedule(ctx, bad)
	assert.True(t, errors.Is(err, ErrValidation))

	bad = base
	bad.DayOfWeek = 7
	_, _, err = env.schedule.CreateSchedule(ctx, bad)
	assert.True(t, errors.Is(err, ErrValidation))

	bad = base
	bad.Price = decimal.Zero
	_, _, err = env.schedule.CreateSchedule(ctx, bad)
	assert.True(t, errors.Is(err, ErrValidation))

	bad = base
	bad.HomeID = uuid.New()
	_, _, err = env.schedule.CreateSchedule(ctx, bad)
	assert.True(t, errors.Is(err, ErrNotFound))

	// A home owned by someone else is rejected.
	other := env.addUser(RoleHomeowner)
	otherHome := env.addHome(other, nil)
	bad = base
	bad.HomeID = otherHome.ID
	_, _, err = env.schedule.CreateSchedule(ctx, bad)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	// A homeowner cannot be the assigned cleaner.
	bad = base
	bad.CleanerID = other.ID
	_, _, err = env.schedule.CreateSchedule(ctx, bad)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestEditDoesNotRecreateCancelledDate(t *testing.T) {
	env := newTestEnv()
	schedule, _, homeowner, _ := createWeeklySchedule(t, env)
	ctx := context.Background()

	var first *Appointment
	for _, appointment := range env.store.appointments {
		if appointment.Date.Equal(date(2026, 3, 2)) {
			first = appointment
		}
	}
	require.NotNil(t, first)

	// Cancelling today's occurrence falls inside the window, so the fee is
	// charged alongside the credit reversal.
	cancelled, err := env.payment.CancelOrRefund(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.FeeCharged)

	price := decimal.NewFromFloat(120)
	outcome, err := env.schedule.Edit(ctx, schedule.ID, UpdateScheduleRequest{
		Price: &price,
	})
	require.NoError(t, err)

	// The cursor reset regenerates from startDate, but the client-cancelled
	// date stays cancelled: only the four remaining Mondays are replaced.
	assert.Equal(t, 4, outcome.CancelledAppointments)
	assert.Equal(t, 4, outcome.NewAppointmentsCreated)

	onCancelledDay := 0
	for _, appointment := range env.store.appointments {
		if appointment.Date.Equal(date(2026, 3, 2)) {
			onCancelledDay++
			assert.True(t, appointment.WasCancelled)
		}
	}
	assert.Equal(t, 1, onCancelledDay)

	// Ledger carries the four replacement appointments only.
	assert.True(t, env.appointmentDue(t, homeowner.ID).Equal(decimal.NewFromFloat(480)))
}

func TestEditRejectsEndDateBeforeStartDate(t *testing.T) {
	env := newTestEnv()
	schedule, _, _, _ := createWeeklySchedule(t, env)

	endDate := env.now.AddDate(0, 0, -1)
	_, err := env.schedule.Edit(context.Background(), schedule.ID, UpdateScheduleRequest{
		EndDate: &endDate,
	})
	assert.True(t, errors.Is(err, ErrValidation))

	// The rejected edit leaves the schedule and its appointments untouched.
	assert.Len(t, env.store.appointments, 5)
	assert.Nil(t, env.store.schedules[schedule.ID].EndDate)
}
