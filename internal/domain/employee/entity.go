package employee

import (
	"strings"
	"time"
)

type Role string

const (
	RoleEmployee       Role = "Employee"
	RoleManager        Role = "Manager"
	RoleHR             Role = "HR"
	RoleAccountManager Role = "Account Manager"
	RoleITAdmin        Role = "IT Admin"
	RoleAdmin          Role = "Admin"
)

// AllRoles lists every role accepted at the boundary.
func AllRoles() []Role {
	return []Role{RoleEmployee, RoleManager, RoleHR, RoleAccountManager, RoleITAdmin, RoleAdmin}
}

// ParseRole accepts the canonical spelling case-insensitively.
func ParseRole(s string) (Role, bool) {
	for _, r := range AllRoles() {
		if strings.EqualFold(strings.TrimSpace(s), string(r)) {
			return r, true
		}
	}
	return "", false
}

type AuthProvider string

const (
	AuthProviderLocal     AuthProvider = "local"
	AuthProviderMicrosoft AuthProvider = "microsoft"
)

type OnboardingStatus string

const (
	OnboardingStatusPending  OnboardingStatus = "pending"
	OnboardingStatusApproved OnboardingStatus = "approved"
	OnboardingStatusRejected OnboardingStatus = "rejected"
)

type LoginStatus string

const (
	LoginStatusActive   LoginStatus = "active"
	LoginStatusInactive LoginStatus = "inactive"
)

type EmploymentType string

const (
	EmploymentTypeFullTime   EmploymentType = "full_time"
	EmploymentTypeContract   EmploymentType = "contract"
	EmploymentTypeInternship EmploymentType = "internship"
)

type Employee struct {
	ID               string
	EmployeeCode     string // company-issued employee id, used by allocation imports
	Name             string
	Email            string // login email
	CompanyEmail     *string
	Role             Role
	SuperHR          bool
	LocationID       *string
	LocationName     *string
	OnboardingStatus OnboardingStatus
	LoginStatus      LoginStatus
	EmploymentType   EmploymentType
	DateOfJoining    *time.Time
	AuthProvider     AuthProvider
	ExternalSubject  *string
	JobTitle         *string
	Department       *string
	Weekoffs         []string
	PasswordHash     *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsActive reports whether the employee may authenticate.
func (e Employee) IsActive() bool {
	return e.LoginStatus == LoginStatusActive
}

// ContactEmail prefers the company mailbox over the login email.
func (e Employee) ContactEmail() string {
	if e.CompanyEmail != nil && *e.CompanyEmail != "" {
		return *e.CompanyEmail
	}
	return e.Email
}

// WeekoffDays returns the employee's weekly days off, defaulting to
// Saturday and Sunday.
func (e Employee) WeekoffDays() []time.Weekday {
	days := ParseWeekdays(e.Weekoffs)
	if len(days) == 0 {
		return []time.Weekday{time.Saturday, time.Sunday}
	}
	return days
}

// ParseWeekdays converts weekday names ("Saturday", "sat"), ignoring anything unrecognised.
func ParseWeekdays(names []string) []time.Weekday {
	var days []time.Weekday
	seen := make(map[time.Weekday]bool)
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		for d := time.Sunday; d <= time.Saturday; d++ {
			name := strings.ToLower(d.String())
			if n == name || (len(n) == 3 && strings.HasPrefix(name, n)) {
				if !seen[d] {
					days = append(days, d)
					seen[d] = true
				}
				break
			}
		}
	}
	return days
}

// Onboarding is the HR-owned staging record that becomes an Employee on approval.
type Onboarding struct {
	ID             string
	EmployeeCode   string
	Name           string
	Email          string
	CompanyEmail   *string
	Role           Role
	SuperHR        bool
	LocationID     *string
	EmploymentType EmploymentType
	DateOfJoining  *time.Time
	Weekoffs       []string
	ManagerIDs     []string
	HRIDs          []string
	Status         OnboardingStatus
	CreatedBy      string
	EmployeeID     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RoleOverride pins the role of an externally provisioned account.
type RoleOverride struct {
	ID        string
	Email     *string
	Subject   *string
	Role      Role
	SuperHR   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
