package employee

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/pkg/validator"
)

type EmployeeFilter struct {
	Role   *Role
	Search *string
	Page   int
	Limit  int
}

func (f *EmployeeFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
}

type CreateOnboardingRequest struct {
	EmployeeCode   string   `json:"employee_code"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	CompanyEmail   *string  `json:"company_email,omitempty"`
	Role           string   `json:"role"`
	SuperHR        bool     `json:"super_hr"`
	LocationID     *string  `json:"location_id,omitempty"`
	EmploymentType string   `json:"employment_type"`
	DateOfJoining  *string  `json:"date_of_joining,omitempty"`
	Weekoffs       []string `json:"weekoffs,omitempty"`
	ManagerIDs     []string `json:"manager_ids"`
	HRIDs          []string `json:"hr_ids"`

	// populated by Validate
	ParsedRole          Role       `json:"-"`
	ParsedDateOfJoining *time.Time `json:"-"`
}

func (r *CreateOnboardingRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeCode) {
		errs = append(errs, validator.ValidationError{Field: "employee_code", Message: "employee_code is required"})
	}
	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{Field: "name", Message: "name is required"})
	} else if len(r.Name) > 255 {
		errs = append(errs, validator.ValidationError{Field: "name", Message: "name must not exceed 255 characters"})
	}
	if !validator.IsValidEmail(r.Email) {
		errs = append(errs, validator.ValidationError{Field: "email", Message: "email must be a valid email address"})
	}
	if r.CompanyEmail != nil && *r.CompanyEmail != "" && !validator.IsValidEmail(*r.CompanyEmail) {
		errs = append(errs, validator.ValidationError{Field: "company_email", Message: "company_email must be a valid email address"})
	}

	role, ok := ParseRole(r.Role)
	if !ok {
		errs = append(errs, validator.ValidationError{Field: "role", Message: "role must be one of Employee, Manager, HR, Account Manager, IT Admin, Admin"})
	}
	r.ParsedRole = role
	if r.SuperHR && ok && role != RoleHR {
		errs = append(errs, validator.ValidationError{Field: "super_hr", Message: "super_hr is only valid for the HR role"})
	}

	switch EmploymentType(r.EmploymentType) {
	case EmploymentTypeFullTime, EmploymentTypeContract, EmploymentTypeInternship:
	case "":
		r.EmploymentType = string(EmploymentTypeFullTime)
	default:
		errs = append(errs, validator.ValidationError{Field: "employment_type", Message: "employment_type must be one of full_time, contract, internship"})
	}

	if r.DateOfJoining != nil && *r.DateOfJoining != "" {
		d, ok := validator.IsValidDate(*r.DateOfJoining)
		if !ok {
			errs = append(errs, validator.ValidationError{Field: "date_of_joining", Message: "date_of_joining must be in YYYY-MM-DD format"})
		} else {
			r.ParsedDateOfJoining = &d
		}
	}

	if len(r.Weekoffs) > 0 && len(ParseWeekdays(r.Weekoffs)) != len(r.Weekoffs) {
		errs = append(errs, validator.ValidationError{Field: "weekoffs", Message: "weekoffs must be weekday names"})
	}

	for _, id := range append(append([]string{}, r.ManagerIDs...), r.HRIDs...) {
		if validator.IsEmpty(id) {
			errs = append(errs, validator.ValidationError{Field: "assignments", Message: "manager_ids and hr_ids must not contain empty values"})
			break
		}
	}

	if len(errs) > 0 {
		return errs
	}
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.CompanyEmail != nil {
		lowered := strings.ToLower(strings.TrimSpace(*r.CompanyEmail))
		r.CompanyEmail = &lowered
	}
	return nil
}

type ReplaceAssignmentsRequest struct {
	ManagerIDs *[]string `json:"manager_ids,omitempty"`
	HRIDs      *[]string `json:"hr_ids,omitempty"`
}

func (r *ReplaceAssignmentsRequest) Validate() error {
	var errs validator.ValidationErrors
	if r.ManagerIDs == nil && r.HRIDs == nil {
		errs = append(errs, validator.ValidationError{Field: "manager_ids", Message: "manager_ids or hr_ids is required"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type UpsertRoleOverrideRequest struct {
	Email   *string `json:"email,omitempty"`
	Subject *string `json:"subject,omitempty"`
	Role    string  `json:"role"`
	SuperHR bool    `json:"super_hr"`

	ParsedRole Role `json:"-"`
}

func (r *UpsertRoleOverrideRequest) Validate() error {
	var errs validator.ValidationErrors
	hasEmail := r.Email != nil && !validator.IsEmpty(*r.Email)
	hasSubject := r.Subject != nil && !validator.IsEmpty(*r.Subject)
	if !hasEmail && !hasSubject {
		errs = append(errs, validator.ValidationError{Field: "email", Message: "email or subject is required"})
	}
	if hasEmail && !validator.IsValidEmail(*r.Email) {
		errs = append(errs, validator.ValidationError{Field: "email", Message: "email must be a valid email address"})
	}
	role, ok := ParseRole(r.Role)
	if !ok {
		errs = append(errs, validator.ValidationError{Field: "role", Message: "role is not recognised"})
	}
	r.ParsedRole = role
	if r.SuperHR && ok && role != RoleHR {
		errs = append(errs, validator.ValidationError{Field: "super_hr", Message: "super_hr is only valid for the HR role"})
	}
	if len(errs) > 0 {
		return errs
	}
	if hasEmail {
		lowered := strings.ToLower(strings.TrimSpace(*r.Email))
		r.Email = &lowered
	} else {
		r.Email = nil
	}
	if !hasSubject {
		r.Subject = nil
	}
	return nil
}

type EmployeeResponse struct {
	ID               string     `json:"id"`
	EmployeeCode     string     `json:"employee_code"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	CompanyEmail     *string    `json:"company_email,omitempty"`
	Role             string     `json:"role"`
	SuperHR          bool       `json:"super_hr"`
	LocationID       *string    `json:"location_id,omitempty"`
	LocationName     *string    `json:"location_name,omitempty"`
	OnboardingStatus string     `json:"onboarding_status"`
	LoginStatus      string     `json:"login_status"`
	EmploymentType   string     `json:"employment_type"`
	DateOfJoining    *time.Time `json:"date_of_joining,omitempty"`
	AuthProvider     string     `json:"auth_provider"`
	JobTitle         *string    `json:"job_title,omitempty"`
	Department       *string    `json:"department,omitempty"`
	Weekoffs         []string   `json:"weekoffs"`
}

func NewEmployeeResponse(e Employee) EmployeeResponse {
	weekoffs := make([]string, 0, 2)
	for _, d := range e.WeekoffDays() {
		weekoffs = append(weekoffs, d.String())
	}
	return EmployeeResponse{
		ID:               e.ID,
		EmployeeCode:     e.EmployeeCode,
		Name:             e.Name,
		Email:            e.Email,
		CompanyEmail:     e.CompanyEmail,
		Role:             string(e.Role),
		SuperHR:          e.SuperHR,
		LocationID:       e.LocationID,
		LocationName:     e.LocationName,
		OnboardingStatus: string(e.OnboardingStatus),
		LoginStatus:      string(e.LoginStatus),
		EmploymentType:   string(e.EmploymentType),
		DateOfJoining:    e.DateOfJoining,
		AuthProvider:     string(e.AuthProvider),
		JobTitle:         e.JobTitle,
		Department:       e.Department,
		Weekoffs:         weekoffs,
	}
}

type ListEmployeeResponse struct {
	TotalCount int64              `json:"total_count"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	Employees  []EmployeeResponse `json:"employees"`
}

type OnboardingResponse struct {
	ID             string     `json:"id"`
	EmployeeCode   string     `json:"employee_code"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	CompanyEmail   *string    `json:"company_email,omitempty"`
	Role           string     `json:"role"`
	SuperHR        bool       `json:"super_hr"`
	LocationID     *string    `json:"location_id,omitempty"`
	EmploymentType string     `json:"employment_type"`
	DateOfJoining  *time.Time `json:"date_of_joining,omitempty"`
	ManagerIDs     []string   `json:"manager_ids"`
	HRIDs          []string   `json:"hr_ids"`
	Status         string     `json:"status"`
	EmployeeID     *string    `json:"employee_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func NewOnboardingResponse(o Onboarding) OnboardingResponse {
	return OnboardingResponse{
		ID:             o.ID,
		EmployeeCode:   o.EmployeeCode,
		Name:           o.Name,
		Email:          o.Email,
		CompanyEmail:   o.CompanyEmail,
		Role:           string(o.Role),
		SuperHR:        o.SuperHR,
		LocationID:     o.LocationID,
		EmploymentType: string(o.EmploymentType),
		DateOfJoining:  o.DateOfJoining,
		ManagerIDs:     nonNil(o.ManagerIDs),
		HRIDs:          nonNil(o.HRIDs),
		Status:         string(o.Status),
		EmployeeID:     o.EmployeeID,
		CreatedAt:      o.CreatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
