package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/calendar"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
)

type calendarServiceImpl struct {
	holidays calendar.HolidayRepository
}

func NewCalendarService(holidays calendar.HolidayRepository) calendar.Service {
	return &calendarServiceImpl{holidays: holidays}
}

// WorkingDays implements calendar.Service. Employees without a location have
// no holidays, only weekoffs.
func (s *calendarServiceImpl) WorkingDays(ctx context.Context, emp employee.Employee, start, end time.Time) (int, error) {
	start, end = calendar.Civil(start), calendar.Civil(end)
	if start.After(end) {
		return 0, nil
	}

	var holidays []time.Time
	if emp.LocationID != nil && *emp.LocationID != "" {
		var err error
		holidays, err = s.holidays.ListDates(ctx, *emp.LocationID, start, end)
		if err != nil {
			return 0, fmt.Errorf("list holidays: %w", err)
		}
	}
	return calendar.CountWorkingDays(start, end, holidays, emp.WeekoffDays()), nil
}
