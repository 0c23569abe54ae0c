package attendance

import "github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"

var (
	ErrAttendanceNotFound = apperror.NotFound("Attendance not found")
	ErrHoursExceeded      = apperror.Validation("Total hours for a day cannot exceed 8")
	ErrMonthlyDaysLimit   = apperror.Precondition("Monthly limit of 20 days across all projects would be exceeded")
)
