package calendar

import (
	"context"
	"time"
)

const DateLayout = "2006-01-02"

type Holiday struct {
	ID         string
	LocationID string
	Date       time.Time
	Name       string
}

type HolidayRepository interface {
	// ListDates returns the holiday dates of a location within [start, end].
	ListDates(ctx context.Context, locationID string, start, end time.Time) ([]time.Time, error)
}

// Civil truncates t to its calendar date in UTC. All calendar arithmetic is on
// civil dates.
func Civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WorkingDays lists the dates in [start, end] that are neither holidays nor
// weekoffs. start after end yields nothing.
func WorkingDays(start, end time.Time, holidays []time.Time, weekoffs []time.Weekday) []time.Time {
	start, end = Civil(start), Civil(end)
	if start.After(end) {
		return nil
	}

	off := make(map[time.Weekday]bool, len(weekoffs))
	for _, d := range weekoffs {
		off[d] = true
	}
	closed := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		closed[Civil(h).Format(DateLayout)] = true
	}

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if off[d.Weekday()] || closed[d.Format(DateLayout)] {
			continue
		}
		days = append(days, d)
	}
	return days
}

// CountWorkingDays is len(WorkingDays(...)).
func CountWorkingDays(start, end time.Time, holidays []time.Time, weekoffs []time.Weekday) int {
	return len(WorkingDays(start, end, holidays, weekoffs))
}
