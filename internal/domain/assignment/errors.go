package assignment

import "github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"

var (
	ErrSelfAssignment = apperror.Validation("An employee cannot be assigned as their own manager or HR")
	ErrUnknownMember  = apperror.Validation("Assigned managers and HRs must be existing active employees")
	ErrNotHRMember    = apperror.Validation("HR assignments must reference employees with the HR role")
)
