package leave

import (
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/calendar"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/validator"
)

type SubmitLeaveRequest struct {
	LeaveType string `json:"leave_type"`
	Reason    string `json:"reason"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	Category Category  `json:"-"`
	Start    time.Time `json:"-"`
	End      time.Time `json:"-"`
}

func (r *SubmitLeaveRequest) Validate() error {
	var errs validator.ValidationErrors

	category, ok := NormalizeCategory(r.LeaveType)
	if !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "leave_type",
			Message: "leave_type must be one of Sick Leave, Casual Leave, Annual Leave, Maternity Leave, Paternity Leave",
		})
	}
	r.Category = category

	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{Field: "reason", Message: "reason is required"})
	} else if len(r.Reason) > 1000 {
		errs = append(errs, validator.ValidationError{Field: "reason", Message: "reason must not exceed 1000 characters"})
	}

	start, startOK := validator.IsValidDate(r.StartDate)
	if !startOK {
		errs = append(errs, validator.ValidationError{Field: "start_date", Message: "start_date must be in YYYY-MM-DD format"})
	}
	end, endOK := validator.IsValidDate(r.EndDate)
	if !endOK {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "end_date must be in YYYY-MM-DD format"})
	}
	if startOK && endOK && start.After(end) {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "end_date must not be before start_date"})
	}
	r.Start, r.End = start, end

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type LeaveRequestFilter struct {
	Status *OverallStatus
	Page   int
	Limit  int
}

func (f *LeaveRequestFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
}

type SetBalanceRequest struct {
	Sick      *int `json:"sick_leaves,omitempty"`
	Casual    *int `json:"casual_leaves,omitempty"`
	Annual    *int `json:"annual_leaves,omitempty"`
	Maternity *int `json:"maternity_leaves,omitempty"`
	Paternity *int `json:"paternity_leaves,omitempty"`
}

func (r *SetBalanceRequest) Validate() error {
	var errs validator.ValidationErrors
	fields := []struct {
		name  string
		value *int
	}{
		{"sick_leaves", r.Sick},
		{"casual_leaves", r.Casual},
		{"annual_leaves", r.Annual},
		{"maternity_leaves", r.Maternity},
		{"paternity_leaves", r.Paternity},
	}
	set := 0
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		set++
		if *f.value < 0 {
			errs = append(errs, validator.ValidationError{Field: f.name, Message: f.name + " must not be negative"})
		}
	}
	if set == 0 {
		errs = append(errs, validator.ValidationError{Field: "balance", Message: "at least one counter is required"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Apply overwrites the counters present in the request.
func (r SetBalanceRequest) Apply(b Balance) Balance {
	if r.Sick != nil {
		b.Sick = *r.Sick
	}
	if r.Casual != nil {
		b.Casual = *r.Casual
	}
	if r.Annual != nil {
		b.Annual = *r.Annual
	}
	if r.Maternity != nil {
		b.Maternity = *r.Maternity
	}
	if r.Paternity != nil {
		b.Paternity = *r.Paternity
	}
	return b
}

type WorkingDaysRequest struct {
	EmployeeID *string `json:"employee_id,omitempty"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`

	Start time.Time `json:"-"`
	End   time.Time `json:"-"`
}

func (r *WorkingDaysRequest) Validate() error {
	var errs validator.ValidationErrors
	start, ok := validator.IsValidDate(r.StartDate)
	if !ok {
		errs = append(errs, validator.ValidationError{Field: "start_date", Message: "start_date must be in YYYY-MM-DD format"})
	}
	end, ok2 := validator.IsValidDate(r.EndDate)
	if !ok2 {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "end_date must be in YYYY-MM-DD format"})
	}
	r.Start, r.End = start, end
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type WorkingDaysResponse struct {
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	WorkingDays int    `json:"working_days"`
}

type LeaveRequestResponse struct {
	ID             string     `json:"id"`
	EmployeeID     string     `json:"employee_id"`
	EmployeeName   string     `json:"employee_name,omitempty"`
	LeaveType      string     `json:"leave_type"`
	Reason         string     `json:"reason"`
	StartDate      string     `json:"start_date"`
	EndDate        string     `json:"end_date"`
	WorkingDays    int        `json:"working_days"`
	ManagerStatus  string     `json:"manager_status"`
	HRStatus       string     `json:"hr_status"`
	OverallStatus  string     `json:"overall_status"`
	ManagerReason  *string    `json:"manager_reason,omitempty"`
	ManagerActedAt *time.Time `json:"manager_acted_at,omitempty"`
	HRReason       *string    `json:"hr_reason,omitempty"`
	HRActedAt      *time.Time `json:"hr_acted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func NewLeaveRequestResponse(lr LeaveRequest) LeaveRequestResponse {
	resp := LeaveRequestResponse{
		ID:             lr.ID,
		EmployeeID:     lr.EmployeeID,
		LeaveType:      string(lr.Category),
		Reason:         lr.Reason,
		StartDate:      lr.StartDate.Format(calendar.DateLayout),
		EndDate:        lr.EndDate.Format(calendar.DateLayout),
		WorkingDays:    lr.WorkingDays,
		ManagerStatus:  string(lr.ManagerStatus),
		HRStatus:       string(lr.HRStatus),
		OverallStatus:  string(lr.OverallStatus),
		ManagerReason:  lr.ManagerReason,
		ManagerActedAt: lr.ManagerActedAt,
		HRReason:       lr.HRReason,
		HRActedAt:      lr.HRActedAt,
		CreatedAt:      lr.CreatedAt,
		UpdatedAt:      lr.UpdatedAt,
	}
	if lr.EmployeeName != nil {
		resp.EmployeeName = *lr.EmployeeName
	}
	return resp
}

func NewLeaveRequestResponses(requests []LeaveRequest) []LeaveRequestResponse {
	out := make([]LeaveRequestResponse, 0, len(requests))
	for _, lr := range requests {
		out = append(out, NewLeaveRequestResponse(lr))
	}
	return out
}

type ListLeaveRequestResponse struct {
	TotalCount    int64                  `json:"total_count"`
	Page          int                    `json:"page"`
	Limit         int                    `json:"limit"`
	LeaveRequests []LeaveRequestResponse `json:"leave_requests"`
}

type BalanceResponse struct {
	EmployeeID string    `json:"employee_id"`
	Sick       int       `json:"sick_leaves"`
	Casual     int       `json:"casual_leaves"`
	Annual     int       `json:"annual_leaves"`
	Maternity  int       `json:"maternity_leaves"`
	Paternity  int       `json:"paternity_leaves"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewBalanceResponse(b Balance) BalanceResponse {
	return BalanceResponse{
		EmployeeID: b.EmployeeID,
		Sick:       b.Sick,
		Casual:     b.Casual,
		Annual:     b.Annual,
		Maternity:  b.Maternity,
		Paternity:  b.Paternity,
		UpdatedAt:  b.UpdatedAt,
	}
}
