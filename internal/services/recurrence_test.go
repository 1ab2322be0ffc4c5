package services

import (
	"testing"
	"time"

	. "spruce/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFirstOccurrence(t *testing.T) {
	// 2026-03-02 is a Monday.
	schedule := &RecurringSchedule{
		Frequency: FrequencyWeekly,
		DayOfWeek: 3, // Wednesday
		StartDate: date(2026, 3, 2),
	}

	assert.Equal(t, date(2026, 3, 4), firstOccurrence(schedule))

	// Start date already on the right weekday.
	schedule.DayOfWeek = 1
	assert.Equal(t, date(2026, 3, 2), firstOccurrence(schedule))

	// Weekday earlier in the week wraps to the next one.
	schedule.DayOfWeek = 0 // Sunday
	assert.Equal(t, date(2026, 3, 8), firstOccurrence(schedule))
}

func TestNextOccurrenceAfter(t *testing.T) {
	schedule := &RecurringSchedule{
		Frequency: FrequencyWeekly,
		DayOfWeek: 1,
		StartDate: date(2026, 3, 2),
	}

	assert.Equal(t, date(2026, 3, 2), nextOccurrenceAfter(schedule, date(2026, 2, 1)))
	assert.Equal(t, date(2026, 3, 9), nextOccurrenceAfter(schedule, date(2026, 3, 2)))
	assert.Equal(t, date(2026, 3, 9), nextOccurrenceAfter(schedule, date(2026, 3, 5)))

	schedule.Frequency = FrequencyBiweekly
	assert.Equal(t, date(2026, 3, 16), nextOccurrenceAfter(schedule, date(2026, 3, 2)))

	schedule.Frequency = FrequencyMonthly
	assert.Equal(t, date(2026, 3, 30), nextOccurrenceAfter(schedule, date(2026, 3, 2)))
}

func TestNextOccurrenceAfterRespectsEndDate(t *testing.T) {
	end := date(2026, 3, 10)
	schedule := &RecurringSchedule{
		Frequency: FrequencyWeekly,
		DayOfWeek: 1,
		StartDate: date(2026, 3, 2),
		EndDate:   &end,
	}

	assert.Equal(t, date(2026, 3, 9), nextOccurrenceAfter(schedule, date(2026, 3, 2)))
	assert.True(t, nextOccurrenceAfter(schedule, date(2026, 3, 9)).IsZero())
}

func TestOccurrencesBetween(t *testing.T) {
	schedule := &RecurringSchedule{
		Frequency: FrequencyWeekly,
		DayOfWeek: 1,
		StartDate: date(2026, 3, 2),
	}

	dates := occurrencesBetween(schedule, date(2026, 3, 1), date(2026, 3, 30))
	require.Len(t, dates, 5)
	assert.Equal(t, date(2026, 3, 2), dates[0])
	assert.Equal(t, date(2026, 3, 30), dates[4])

	// Biweekly stays anchored to the first occurrence.
	schedule.Frequency = FrequencyBiweekly
	dates = occurrencesBetween(schedule, date(2026, 3, 1), date(2026, 4, 30))
	require.Len(t, dates, 5)
	assert.Equal(t, date(2026, 3, 2), dates[0])
	assert.Equal(t, date(2026, 3, 16), dates[1])
	assert.Equal(t, date(2026, 4, 27), dates[4])

	// Lower bound is exclusive.
	dates = occurrencesBetween(schedule, date(2026, 3, 2), date(2026, 3, 31))
	require.NotEmpty(t, dates)
	assert.Equal(t, date(2026, 3, 16), dates[0])
}

func TestOccurrencesAllLandOnScheduledWeekday(t *testing.T) {
	for _, frequency := range []Frequency{FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly} {
		schedule := &RecurringSchedule{
			Frequency: frequency,
			DayOfWeek: 4, // Thursday
			StartDate: date(2026, 3, 2),
		}

		dates := occurrencesBetween(schedule, date(2026, 3, 1), date(2026, 9, 1))
		require.NotEmpty(t, dates, "frequency %s", frequency)
		for _, d := range dates {
			assert.Equal(t, time.Thursday, d.Weekday(), "frequency %s", frequency)
		}
	}
}
