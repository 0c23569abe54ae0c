package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/calendar"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type SubtaskInput struct {
	ProjectID  string           `json:"project_id"`
	Subtask    string           `json:"subtask"`
	Hours      decimal.Decimal  `json:"hours"`
	DaysWorked *decimal.Decimal `json:"days_worked,omitempty"`
}

type PostRequest struct {
	Date     string         `json:"date"`
	Action   string         `json:"action"`
	Subtasks []SubtaskInput `json:"subtasks"`

	ParsedDate   time.Time `json:"-"`
	ParsedAction Action    `json:"-"`
}

// Validate checks the action, the per-subtask and day hour caps, and duplicate
// (project, subtask) pairs.
func (r *PostRequest) Validate() error {
	var errs validator.ValidationErrors

	d, ok := validator.IsValidDate(r.Date)
	if !ok {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "date must be in YYYY-MM-DD format"})
	}
	r.ParsedDate = d

	action, ok := ParseAction(r.Action)
	if !ok {
		errs = append(errs, validator.ValidationError{Field: "action", Message: "action must be one of Present, WFH, Leave"})
	}
	r.ParsedAction = action

	total := decimal.Zero
	seen := make(map[string]bool)
	for i, s := range r.Subtasks {
		field := fmt.Sprintf("subtasks[%d]", i)
		if validator.IsEmpty(s.ProjectID) {
			errs = append(errs, validator.ValidationError{Field: field + ".project_id", Message: "project_id is required"})
		}
		if s.Hours.IsNegative() || s.Hours.GreaterThan(MaxHoursPerDay) {
			errs = append(errs, validator.ValidationError{Field: field + ".hours", Message: "hours must be between 0 and 8"})
		}
		if s.DaysWorked != nil && (s.DaysWorked.IsNegative() || s.DaysWorked.GreaterThan(decimal.NewFromInt(1))) {
			errs = append(errs, validator.ValidationError{Field: field + ".days_worked", Message: "days_worked must be between 0 and 1"})
		}
		key := s.ProjectID + "\x00" + strings.ToLower(strings.TrimSpace(s.Subtask))
		if seen[key] {
			errs = append(errs, validator.ValidationError{Field: field + ".subtask", Message: "each project and subtask pair may appear once"})
		}
		seen[key] = true
		total = total.Add(s.Hours)
	}

	if len(errs) > 0 {
		return errs
	}
	if total.GreaterThan(MaxHoursPerDay) {
		return ErrHoursExceeded
	}
	return nil
}

// Entries converts the subtasks, defaulting days_worked to hours/8.
func (r PostRequest) Entries() []Entry {
	entries := make([]Entry, 0, len(r.Subtasks))
	for _, s := range r.Subtasks {
		days := DefaultDaysWorked(s.Hours)
		if s.DaysWorked != nil {
			days = *s.DaysWorked
		}
		entries = append(entries, Entry{
			ProjectID:  s.ProjectID,
			Subtask:    strings.TrimSpace(s.Subtask),
			Hours:      s.Hours,
			DaysWorked: days,
		})
	}
	return entries
}

type BulkPostRequest struct {
	Days []PostRequest `json:"days"`
}

func (r *BulkPostRequest) Validate() error {
	var errs validator.ValidationErrors
	if len(r.Days) == 0 {
		errs = append(errs, validator.ValidationError{Field: "days", Message: "days are required"})
	} else if len(r.Days) > 31 {
		errs = append(errs, validator.ValidationError{Field: "days", Message: "at most 31 days can be posted at once"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type DayResult struct {
	Date       string              `json:"date"`
	Success    bool                `json:"success"`
	Error      string              `json:"error,omitempty"`
	Attendance *AttendanceResponse `json:"attendance,omitempty"`
}

type BulkPostResponse struct {
	Results   []DayResult `json:"results"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

type EntryResponse struct {
	ProjectID   string          `json:"project_id"`
	ProjectName *string         `json:"project_name,omitempty"`
	Subtask     string          `json:"subtask"`
	Hours       decimal.Decimal `json:"hours"`
	DaysWorked  decimal.Decimal `json:"days_worked"`
}

type AttendanceResponse struct {
	ID         string          `json:"id,omitempty"`
	EmployeeID string          `json:"employee_id"`
	Date       string          `json:"date"`
	DayOfWeek  string          `json:"day_of_week"`
	Action     string          `json:"action,omitempty"`
	TotalHours decimal.Decimal `json:"total_hours"`
	Entries    []EntryResponse `json:"subtasks"`
}

func NewAttendanceResponse(a Attendance) AttendanceResponse {
	resp := AttendanceResponse{
		ID:         a.ID,
		EmployeeID: a.EmployeeID,
		Date:       a.Date.Format(calendar.DateLayout),
		DayOfWeek:  a.DayOfWeek,
		Action:     string(a.Action),
		TotalHours: a.TotalHours,
		Entries:    make([]EntryResponse, 0, len(a.Entries)),
	}
	for _, e := range a.Entries {
		resp.Entries = append(resp.Entries, EntryResponse{
			ProjectID:   e.ProjectID,
			ProjectName: e.ProjectName,
			Subtask:     e.Subtask,
			Hours:       e.Hours,
			DaysWorked:  e.DaysWorked,
		})
	}
	return resp
}

type WeeklyResponse struct {
	EmployeeID string               `json:"employee_id"`
	WeekStart  string               `json:"week_start"`
	WeekEnd    string               `json:"week_end"`
	TotalHours decimal.Decimal      `json:"total_hours"`
	TotalDays  decimal.Decimal      `json:"total_days"`
	Days       []AttendanceResponse `json:"days"`
}

type ProjectDailyResponse struct {
	Date        string          `json:"date"`
	ProjectID   string          `json:"project_id"`
	ProjectName string          `json:"project_name"`
	Hours       decimal.Decimal `json:"hours"`
	DaysWorked  decimal.Decimal `json:"days_worked"`
}
