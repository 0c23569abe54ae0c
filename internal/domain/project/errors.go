package project

import "github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"

var (
	ErrProjectNotFound  = apperror.NotFound("Project not found")
	ErrProjectExists    = apperror.Conflict("A project with this name already exists for the account")
	ErrReservedMissing  = apperror.New(apperror.KindInternal, "Reserved In-House or Unassigned project row is missing")
	ErrReservedReadOnly = apperror.Conflict("Reserved projects cannot be modified")
	ErrNotAssigned      = apperror.Precondition("You are not assigned to this project")
)
