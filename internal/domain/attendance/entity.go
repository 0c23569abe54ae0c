package attendance

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionPresent Action = "Present"
	ActionWFH     Action = "WFH"
	ActionLeave   Action = "Leave"
)

func ParseAction(s string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "present":
		return ActionPresent, true
	case "wfh", "work from home":
		return ActionWFH, true
	case "leave":
		return ActionLeave, true
	}
	return "", false
}

// MaxHoursPerDay caps both each subtask and the day total.
var MaxHoursPerDay = decimal.NewFromInt(8)

type Attendance struct {
	ID         string
	EmployeeID string
	Date       time.Time
	DayOfWeek  string
	Action     Action
	TotalHours decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Entries []Entry
}

// Entry is one (project, subtask) line of a day.
type Entry struct {
	ID           string
	AttendanceID string
	ProjectID    string
	ProjectName  *string
	Subtask      string
	Hours        decimal.Decimal
	DaysWorked   decimal.Decimal
}

// DaysByProject sums days worked per project.
func DaysByProject(entries []Entry) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, e := range entries {
		out[e.ProjectID] = out[e.ProjectID].Add(e.DaysWorked)
	}
	return out
}

// DefaultDaysWorked derives days from hours on an 8-hour day.
func DefaultDaysWorked(hours decimal.Decimal) decimal.Decimal {
	return hours.Div(MaxHoursPerDay).Round(2)
}

// DailyProjectRow is one (date, project) total for the breakdown query.
type DailyProjectRow struct {
	Date        time.Time
	ProjectID   string
	ProjectName string
	Hours       decimal.Decimal
	DaysWorked  decimal.Decimal
}
