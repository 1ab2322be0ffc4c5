package services

import (
	"time"

	. "spruce/internal/models"
)

// Recurrence stepping. Monthly schedules run on a fixed four-week cadence so
// every occurrence lands on the schedule's day of week; calendar-month
// arithmetic would drift off it.
const (
	weeklyIntervalDays   = 7
	biweeklyIntervalDays = 14
	monthlyIntervalDays  = 28
)

func intervalDays(frequency Frequency) int {
	switch frequency {
	case FrequencyBiweekly:
		return biweeklyIntervalDays
	case FrequencyMonthly:
		return monthlyIntervalDays
	default:
		return weeklyIntervalDays
	}
}

// dateOnly truncates a timestamp to midnight UTC. All occurrence math runs on
// whole days.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// firstOccurrence returns the earliest date on or after the schedule's start
// date that falls on its day of week. The whole recurrence is anchored here.
func firstOccurrence(schedule *RecurringSchedule) time.Time {
	start := dateOnly(schedule.StartDate)
	offset := (schedule.DayOfWeek - int(start.Weekday()) + 7) % 7
	return start.AddDate(0, 0, offset)
}

// nextOccurrenceAfter returns the first occurrence strictly after the given
// date, or the zero time when the schedule's end date cuts the series off.
func nextOccurrenceAfter(schedule *RecurringSchedule, after time.Time) time.Time {
	after = dateOnly(after)
	first := firstOccurrence(schedule)

	var next time.Time
	if first.After(after) {
		next = first
	} else {
		interval := intervalDays(schedule.Frequency)
		elapsed := int(after.Sub(first).Hours() / 24)
		steps := elapsed/interval + 1
		next = first.AddDate(0, 0, steps*interval)
	}

	if schedule.EndDate != nil && next.After(dateOnly(*schedule.EndDate)) {
		return time.Time{}
	}

	return next
}

// occurrencesBetween lists occurrences strictly after `after` and on or
// before `until`, in order.
func occurrencesBetween(schedule *RecurringSchedule, after, until time.Time) []time.Time {
	until = dateOnly(until)

	var dates []time.Time
	for cursor := after; ; {
		next := nextOccurrenceAfter(schedule, cursor)
		if next.IsZero() || next.After(until) {
			break
		}
		dates = append(dates, next)
		cursor = next
	}

	return dates
}
