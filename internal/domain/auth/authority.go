package auth

import (
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"
)

// Authority describes what an actor may do for a subject.
type Authority struct {
	MayApproveAsManager bool
	MayApproveAsHR      bool
	MayActAsSuperHR     bool
	IsSelf              bool
}

// Decision is the result of an authorization predicate.
type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision { return Decision{Allowed: true} }

func Deny(reason string) Decision { return Decision{Reason: reason} }

// Err converts a denial into a ForbiddenError.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperror.Forbidden(d.Reason)
}

// CanActAsManager allows an assigned manager who is not the subject.
func CanActAsManager(a Authority) Decision {
	if a.IsSelf {
		return Deny(ErrSelfApproval.Message)
	}
	if !a.MayApproveAsManager {
		return Deny("You are not an assigned manager of this employee")
	}
	return Allow()
}

// CanActAsHR allows an assigned HR, or any Super-HR, who is not the subject.
func CanActAsHR(a Authority) Decision {
	if a.IsSelf {
		return Deny(ErrSelfApproval.Message)
	}
	if !a.MayApproveAsHR && !a.MayActAsSuperHR {
		return Deny("You are not an assigned HR of this employee")
	}
	return Allow()
}

// CanActAsAccountManager allows any Account Manager other than the subject.
func CanActAsAccountManager(actor employee.Employee, a Authority) Decision {
	if a.IsSelf {
		return Deny(ErrSelfApproval.Message)
	}
	if actor.Role != employee.RoleAccountManager {
		return Deny("Account Manager role required")
	}
	return Allow()
}

// CanViewSubject allows the subject, its approvers and Super-HR.
func CanViewSubject(a Authority) Decision {
	if a.IsSelf || a.MayApproveAsManager || a.MayApproveAsHR || a.MayActAsSuperHR {
		return Allow()
	}
	return Deny("You do not have access to this employee's records")
}

// HasRole reports whether the actor holds one of roles. Admin passes every check.
func HasRole(actor employee.Employee, roles ...employee.Role) bool {
	if actor.Role == employee.RoleAdmin {
		return true
	}
	for _, r := range roles {
		if actor.Role == r {
			return true
		}
	}
	return false
}

// IsSuperHR reports whether the actor is an HR with the Super-HR flag.
func IsSuperHR(actor employee.Employee) bool {
	return actor.Role == employee.RoleHR && actor.SuperHR
}
