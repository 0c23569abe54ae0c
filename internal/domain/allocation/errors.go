package allocation

import "github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"

var (
	ErrAllocationNotFound   = apperror.NotFound("Allocation not found")
	ErrAllocatedBelowUsed   = apperror.Precondition("Allocated days cannot be lower than days already consumed")
	ErrInvalidImportFile    = apperror.Validation("Import file must be a CSV with Employee ID, Employee Name, Project, Account and month columns")
	ErrNoMonthColumns       = apperror.Validation("Import file has no month columns")
	ErrAllocationManageOnly = apperror.Forbidden("HR or Admin role required to manage allocations")
)
