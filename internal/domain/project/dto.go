package project

import (
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/pkg/validator"
)

type CreateProjectRequest struct {
	Name      string  `json:"name"`
	Account   string  `json:"account"`
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`

	Start *time.Time `json:"-"`
	End   *time.Time `json:"-"`
}

func (r *CreateProjectRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{Field: "name", Message: "name is required"})
	}
	if validator.IsEmpty(r.Account) {
		errs = append(errs, validator.ValidationError{Field: "account", Message: "account is required"})
	}
	if r.StartDate != nil {
		if d, ok := validator.IsValidDate(*r.StartDate); ok {
			r.Start = &d
		} else {
			errs = append(errs, validator.ValidationError{Field: "start_date", Message: "start_date must be in YYYY-MM-DD format"})
		}
	}
	if r.EndDate != nil {
		if d, ok := validator.IsValidDate(*r.EndDate); ok {
			r.End = &d
		} else {
			errs = append(errs, validator.ValidationError{Field: "end_date", Message: "end_date must be in YYYY-MM-DD format"})
		}
	}
	if r.Start != nil && r.End != nil && r.Start.After(*r.End) {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "end_date must not be before start_date"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type AssignEmployeesRequest struct {
	EmployeeIDs []string `json:"employee_ids"`
}

func (r *AssignEmployeesRequest) Validate() error {
	var errs validator.ValidationErrors
	for _, id := range r.EmployeeIDs {
		if validator.IsEmpty(id) {
			errs = append(errs, validator.ValidationError{Field: "employee_ids", Message: "employee_ids must not contain empty values"})
			break
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ProjectResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Account   string     `json:"account"`
	Status    string     `json:"status"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Reserved  bool       `json:"reserved"`
}

func NewProjectResponses(list []Project, reserved Reserved) []ProjectResponse {
	out := make([]ProjectResponse, 0, len(list))
	for _, p := range list {
		out = append(out, NewProjectResponse(p, reserved))
	}
	return out
}

func NewProjectResponse(p Project, reserved Reserved) ProjectResponse {
	return ProjectResponse{
		ID:        p.ID,
		Name:      p.Name,
		Account:   p.Account,
		Status:    string(p.Status),
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Reserved:  reserved.Exempt(p.ID),
	}
}
