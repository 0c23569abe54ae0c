package attendance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/assignment"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/calendar"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/project"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/validator"
	authservice "github.com/cmlabs-hris/hrms-engine/internal/service/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/service/servicetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAttendance struct {
	mu   sync.Mutex
	rows map[string]attendance.Attendance // employee|date
	seq  int
}

func newFakeAttendance() *fakeAttendance {
	return &fakeAttendance{rows: map[string]attendance.Attendance{}}
}

func dayKey(employeeID string, date time.Time) string {
	return employeeID + "|" + date.Format(calendar.DateLayout)
}

func (f *fakeAttendance) GetByEmployeeDate(_ context.Context, employeeID string, date time.Time) (*attendance.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[dayKey(employeeID, date)]
	if !ok {
		return nil, nil
	}
	a.Entries = append([]attendance.Entry(nil), a.Entries...)
	return &a, nil
}

func (f *fakeAttendance) Upsert(_ context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := dayKey(a.EmployeeID, a.Date)
	if existing, ok := f.rows[key]; ok {
		a.ID, a.Entries = existing.ID, existing.Entries
	} else {
		f.seq++
		a.ID = fmt.Sprintf("att-%d", f.seq)
	}
	f.rows[key] = a
	return a, nil
}

func (f *fakeAttendance) ReplaceEntries(_ context.Context, attendanceID string, entries []attendance.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, a := range f.rows {
		if a.ID == attendanceID {
			a.Entries = append([]attendance.Entry(nil), entries...)
			f.rows[k] = a
			return nil
		}
	}
	return attendance.ErrAttendanceNotFound
}

func (f *fakeAttendance) ListRange(_ context.Context, employeeID string, start, end time.Time) ([]attendance.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []attendance.Attendance
	for _, a := range f.rows {
		if a.EmployeeID == employeeID && !a.Date.Before(start) && !a.Date.After(end) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (f *fakeAttendance) SumDaysInRange(ctx context.Context, employeeID string, start, end, exclude time.Time) (decimal.Decimal, error) {
	list, _ := f.ListRange(ctx, employeeID, start, end)
	total := decimal.Zero
	for _, a := range list {
		if a.Date.Equal(exclude) {
			continue
		}
		for _, e := range a.Entries {
			total = total.Add(e.DaysWorked)
		}
	}
	return total, nil
}

func (f *fakeAttendance) DailyProjects(ctx context.Context, employeeID string, start, end time.Time) ([]attendance.DailyProjectRow, error) {
	list, _ := f.ListRange(ctx, employeeID, start, end)
	var out []attendance.DailyProjectRow
	for _, a := range list {
		for _, e := range a.Entries {
			name := ""
			if e.ProjectName != nil {
				name = *e.ProjectName
			}
			out = append(out, attendance.DailyProjectRow{Date: a.Date, ProjectID: e.ProjectID, ProjectName: name, Hours: e.Hours, DaysWorked: e.DaysWorked})
		}
	}
	return out, nil
}

type fixture struct {
	svc         attendance.AttendanceService
	rows        *fakeAttendance
	allocations *servicetest.Allocations
	projects    *servicetest.Projects

	dev, manager, other employee.Employee
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		dev:     employee.Employee{ID: "dev", Name: "Dian", Role: employee.RoleEmployee},
		manager: employee.Employee{ID: "mgr", Name: "Maya", Role: employee.RoleManager},
		other:   employee.Employee{ID: "other", Name: "Oka", Role: employee.RoleEmployee},
	}
	employees := servicetest.NewEmployees(f.dev, f.manager, f.other)
	registry := servicetest.NewRegistry(employees)
	registry.Assign(assignment.RelationManager, f.dev.ID, f.manager.ID)

	f.projects = servicetest.NewProjects(
		project.Project{ID: "p1", Name: "Apollo", Account: "Acme"},
		project.Project{ID: "p2", Name: "Gemini", Account: "Acme"},
		project.Project{ID: "p3", Name: "Mercury", Account: "Acme"},
	)
	ctx := context.Background()
	require.NoError(t, f.projects.Assign(ctx, f.dev.ID, "p1"))
	require.NoError(t, f.projects.Assign(ctx, f.dev.ID, "p2"))

	f.allocations = servicetest.NewAllocations(employees)
	f.allocations.Seed(f.dev.ID, "p1", "2025-11", "10", "0")
	f.allocations.Seed(f.dev.ID, "p2", "2025-11", "10", "0")

	f.rows = newFakeAttendance()
	f.svc = NewAttendanceService(
		servicetest.Tx{},
		f.rows,
		f.allocations,
		f.projects,
		employees,
		authservice.NewAuthorityResolver(registry),
		nil,
	)
	return f
}

func (f *fixture) consumed(t *testing.T, projectID string) string {
	t.Helper()
	row, ok := f.allocations.Row(f.dev.ID, projectID, "2025-11")
	require.True(t, ok)
	return row.ConsumedDays.String()
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func post(date string, subtasks ...attendance.SubtaskInput) attendance.PostRequest {
	return attendance.PostRequest{Date: date, Action: "Present", Subtasks: subtasks}
}

func TestPostConsumesAllocations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Post(ctx, f.dev, post("2025-11-25",
		attendance.SubtaskInput{ProjectID: "p1", Subtask: "api", Hours: dec("4"), DaysWorked: decPtr("0.5")},
		attendance.SubtaskInput{ProjectID: "p2", Subtask: "ui", Hours: dec("4"), DaysWorked: decPtr("0.5")},
	))
	require.NoError(t, err)
	assert.Equal(t, "8", resp.TotalHours.String())
	assert.Equal(t, "Tuesday", resp.DayOfWeek)
	assert.Len(t, resp.Entries, 2)

	assert.Equal(t, "0.5", f.consumed(t, "p1"))
	assert.Equal(t, "0.5", f.consumed(t, "p2"))
}

func TestRepostAppliesDifference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Post(ctx, f.dev, post("2025-11-25",
		attendance.SubtaskInput{ProjectID: "p1", Subtask: "api", Hours: dec("8")},
	))
	require.NoError(t, err)
	assert.Equal(t, "1", f.consumed(t, "p1"))

	_, err = f.svc.Post(ctx, f.dev, post("2025-11-25",
		attendance.SubtaskInput{ProjectID: "p1", Subtask: "api", Hours: dec("2")},
		attendance.SubtaskInput{ProjectID: "p2", Subtask: "ui", Hours: dec("6")},
	))
	require.NoError(t, err)
	assert.Equal(t, "0.25", f.consumed(t, "p1"))
	assert.Equal(t, "0.75", f.consumed(t, "p2"))

	daily, err := f.svc.Daily(ctx, f.dev, "", "2025-11-25")
	require.NoError(t, err)
	assert.Len(t, daily.Entries, 2)
}

func TestRepostSamePayloadKeepsConsumed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := post("2025-11-25",
		attendance.SubtaskInput{ProjectID: "p1", Subtask: "api", Hours: dec("4"), DaysWorked: decPtr("0.5")},
		attendance.SubtaskInput{ProjectID: "p2", Subtask: "ui", Hours: dec("4"), DaysWorked: decPtr("0.5")},
	)
	for i := 0; i < 2; i++ {
		_, err := f.svc.Post(ctx, f.dev, req)
		require.NoError(t, err)
		assert.Equal(t, "0.5", f.consumed(t, "p1"))
		assert.Equal(t, "0.5", f.consumed(t, "p2"))
	}

	daily, err := f.svc.Daily(ctx, f.dev, "", "2025-11-25")
	require.NoError(t, err)
	assert.Len(t, daily.Entries, 2)
}

func TestPostHourBoundaries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Post(ctx, f.dev, post("2025-11-24",
		attendance.SubtaskInput{ProjectID: "p1", Subtask: "a", Hours: dec("4")},
		attendance.SubtaskInput{ProjectID: "p2", Subtask: "b", Hours: dec("4.01")},
	))
	assert.ErrorIs(t, err, attendance.ErrHoursExceeded)

	_, err = f.svc.Post(ctx, f.dev, post("2025-11-24",
		attendance.SubtaskInput{ProjectID: "p1", Subtask: "a", Hours: dec("8.01")},
	))
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "subtasks[0].hours: hours must be between 0 and 8", err.Error())

	day, err := f.rows.GetByEmployeeDate(ctx, f.dev.ID, servicetest.Date("2025-11-24"))
	require.NoError(t, err)
	assert.Nil(t, day)

	resp, err := f.svc.Post(ctx, f.dev, post("2025-11-24",
		attendance.SubtaskInput{ProjectID: "p1", Subtask: "a", Hours: dec("3.99")},
		attendance.SubtaskInput{ProjectID: "p2", Subtask: "b", Hours: dec("4.01")},
	))
	require.NoError(t, err)
	assert.Equal(t, "8", resp.TotalHours.String())

	resp, err = f.svc.Post(ctx, f.dev, post("2025-11-25",
		attendance.SubtaskInput{ProjectID: "p1", Subtask: "a", Hours: dec("8")},
	))
	require.NoError(t, err)
	assert.Equal(t, "8", resp.TotalHours.String())
}

func TestPostRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Post(ctx, f.dev, post("2025-11-25",
		attendance.SubtaskInput{ProjectID: "p1", Subtask: "a", Hours: dec("5")},
		attendance.SubtaskInput{ProjectID: "p2", Subtask: "b", Hours: dec("4")},
	))
	assert.ErrorIs(t, err, attendance.ErrHoursExceeded)

	_, err = f.svc.Post(ctx, f.dev, post("2025-11-25",
		attendance.SubtaskInput{ProjectID: "p3", Subtask: "a", Hours: dec("4")},
	))
	assert.Equal(t, apperror.KindPrecondition, apperror.KindOf(err))

	f.allocations.Seed(f.dev.ID, "p1", "2025-11", "1", "0.75")
	_, err = f.svc.Post(ctx, f.dev, post("2025-11-26",
		attendance.SubtaskInput{ProjectID: "p1", Subtask: "a", Hours: dec("4")},
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Allocation exceeded for November 2025 on project Apollo")
	assert.Equal(t, "0.75", f.consumed(t, "p1"))

	day, err := f.rows.GetByEmployeeDate(ctx, f.dev.ID, servicetest.Date("2025-11-26"))
	require.NoError(t, err)
	assert.Nil(t, day, "a rejected posting writes nothing")
}

func TestReservedProjectsSkipAllocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Post(ctx, f.dev, post("2025-11-25",
		attendance.SubtaskInput{ProjectID: servicetest.UnassignedID, Subtask: "support", Hours: dec("8")},
	))
	require.NoError(t, err)
}

func TestMonthlyDayLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Twenty full days on the Unassigned project fill the month.
	start := servicetest.Date("2025-11-01")
	for i := 0; i < 20; i++ {
		date := start.AddDate(0, 0, i).Format(calendar.DateLayout)
		_, err := f.svc.Post(ctx, f.dev, post(date,
			attendance.SubtaskInput{ProjectID: servicetest.UnassignedID, Subtask: "ops", Hours: dec("8")},
		))
		require.NoError(t, err, date)
	}

	_, err := f.svc.Post(ctx, f.dev, post("2025-11-28",
		attendance.SubtaskInput{ProjectID: "p1", Subtask: "api", Hours: dec("4")},
	))
	assert.ErrorIs(t, err, attendance.ErrMonthlyDaysLimit)

	// Re-posting an existing day does not count that day twice.
	_, err = f.svc.Post(ctx, f.dev, post("2025-11-01",
		attendance.SubtaskInput{ProjectID: servicetest.UnassignedID, Subtask: "ops", Hours: dec("8")},
	))
	require.NoError(t, err)
}

func TestMonthlyDayBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := servicetest.Date("2025-11-01")
	for i := 0; i < 20; i++ {
		date := start.AddDate(0, 0, i).Format(calendar.DateLayout)
		_, err := f.svc.Post(ctx, f.dev, post(date,
			attendance.SubtaskInput{ProjectID: servicetest.UnassignedID, Subtask: "ops", Hours: dec("8"), DaysWorked: decPtr("1")},
		))
		require.NoError(t, err, "day %d of 20 is within the limit", i+1)
	}

	_, err := f.svc.Post(ctx, f.dev, post("2025-11-21",
		attendance.SubtaskInput{ProjectID: servicetest.UnassignedID, Subtask: "ops", Hours: dec("0.08"), DaysWorked: decPtr("0.01")},
	))
	assert.ErrorIs(t, err, attendance.ErrMonthlyDaysLimit)

	day, err := f.rows.GetByEmployeeDate(ctx, f.dev.ID, servicetest.Date("2025-11-21"))
	require.NoError(t, err)
	assert.Nil(t, day)
}

func TestPostBulkContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.PostBulk(ctx, f.dev, attendance.BulkPostRequest{Days: []attendance.PostRequest{
		post("2025-11-24", attendance.SubtaskInput{ProjectID: "p1", Subtask: "api", Hours: dec("8")}),
		post("2025-11-25", attendance.SubtaskInput{ProjectID: "p3", Subtask: "api", Hours: dec("8")}),
		post("2025-11-26", attendance.SubtaskInput{ProjectID: "p2", Subtask: "ui", Hours: dec("8")}),
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Results, 3)
	assert.True(t, resp.Results[0].Success)
	assert.False(t, resp.Results[1].Success)
	assert.Contains(t, resp.Results[1].Error, "Mercury")
	assert.True(t, resp.Results[2].Success)

	assert.Equal(t, "1", f.consumed(t, "p1"))
	assert.Equal(t, "1", f.consumed(t, "p2"))
}

func TestQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Post(ctx, f.dev, post("2025-11-25",
		attendance.SubtaskInput{ProjectID: "p1", Subtask: "api", Hours: dec("6")},
	))
	require.NoError(t, err)

	week, err := f.svc.Weekly(ctx, f.manager, f.dev.ID, "2025-11-24")
	require.NoError(t, err)
	assert.Len(t, week.Days, 7)
	assert.Equal(t, "6", week.TotalHours.String())
	assert.Equal(t, "0.75", week.TotalDays.String())
	assert.Equal(t, "2025-11-30", week.WeekEnd)

	_, err = f.svc.Weekly(ctx, f.dev, "", "2025-11-25")
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = f.svc.Weekly(ctx, f.other, f.dev.ID, "2025-11-24")
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	rows, err := f.svc.ProjectDaily(ctx, f.dev, "", "2025-11")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Apollo", rows[0].ProjectName)

	_, err = f.svc.Daily(ctx, f.dev, "", "2025-11-27")
	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)
}
