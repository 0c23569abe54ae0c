package calendar

import (
	"context"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
)

type Service interface {
	// WorkingDays counts the employee's working days in [start, end], using the
	// holidays of the employee's location and the employee's weekoffs.
	WorkingDays(ctx context.Context, emp employee.Employee, start, end time.Time) (int, error)
}
