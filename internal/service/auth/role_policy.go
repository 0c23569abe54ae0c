package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
)

// RolePolicy decides the role of an externally provisioned account. An entry
// in the override table always wins over the job-title heuristics.
type RolePolicy struct {
	overrides employee.RoleOverrideRepository
}

func NewRolePolicy(overrides employee.RoleOverrideRepository) RolePolicy {
	return RolePolicy{overrides: overrides}
}

// Resolve returns the role and Super-HR flag for an account. overridden is
// true when the answer came from the override table.
func (p RolePolicy) Resolve(ctx context.Context, email, subject string, jobTitle, department *string) (role employee.Role, superHR bool, overridden bool, err error) {
	if p.overrides != nil {
		o, err := p.overrides.Find(ctx, strings.ToLower(email), subject)
		if err != nil {
			return "", false, false, fmt.Errorf("find role override: %w", err)
		}
		if o != nil {
			return o.Role, o.Role == employee.RoleHR && o.SuperHR, true, nil
		}
	}
	return RoleFromTitle(deref(jobTitle), deref(department)), false, false, nil
}

// RoleFromTitle maps directory job title and department strings to a role.
// Admin and Super-HR are never granted heuristically.
func RoleFromTitle(jobTitle, department string) employee.Role {
	title := strings.ToLower(strings.TrimSpace(jobTitle))
	dept := strings.ToLower(strings.TrimSpace(department))

	switch {
	case strings.Contains(title, "account manager"), strings.Contains(title, "accounts manager"):
		return employee.RoleAccountManager
	case containsWord(title, "hr"), strings.Contains(title, "human resource"),
		strings.Contains(title, "people operations"), strings.Contains(title, "talent acquisition"),
		strings.Contains(title, "recruiter"):
		return employee.RoleHR
	case strings.Contains(title, "it admin"), strings.Contains(title, "system administrator"),
		strings.Contains(title, "systems administrator"), strings.Contains(title, "it support"),
		strings.Contains(title, "helpdesk"):
		return employee.RoleITAdmin
	case strings.Contains(title, "manager"), containsWord(title, "lead"), strings.Contains(title, "head of"),
		strings.Contains(title, "director"), strings.Contains(title, "vp "), strings.HasPrefix(title, "vp"):
		return employee.RoleManager
	}

	switch {
	case containsWord(dept, "hr"), strings.Contains(dept, "human resource"):
		return employee.RoleHR
	case dept == "it", strings.Contains(dept, "it operations"), strings.Contains(dept, "information technology"):
		return employee.RoleITAdmin
	}
	return employee.RoleEmployee
}

func containsWord(s, word string) bool {
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if f == word {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
