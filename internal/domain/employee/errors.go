package employee

import "github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"

var (
	ErrEmployeeNotFound        = apperror.NotFound("Employee not found")
	ErrOnboardingNotFound      = apperror.NotFound("Onboarding record not found")
	ErrRoleOverrideNotFound    = apperror.NotFound("Role override not found")
	ErrCompanyEmailExists      = apperror.Conflict("Company email is already assigned to another employee")
	ErrEmployeeCodeExists      = apperror.Conflict("Employee ID is already assigned to another employee")
	ErrExternalSubjectExists   = apperror.Conflict("External account is already linked to another employee")
	ErrOnboardingAlreadyClosed = apperror.Conflict("Onboarding has already been processed")
	ErrInvalidAssignee         = apperror.Validation("Assigned managers and HRs must be existing employees other than the employee")
	ErrHRAccessRequired        = apperror.Forbidden("HR access required")
	ErrAdminAccessRequired     = apperror.Forbidden("Admin access required")
)
