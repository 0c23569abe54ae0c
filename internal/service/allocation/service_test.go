package allocation

import (
	"context"
	"strings"
	"testing"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/allocation"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/assignment"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/project"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"
	authservice "github.com/cmlabs-hris/hrms-engine/internal/service/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/service/servicetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc         allocation.AllocationService
	employees   *servicetest.Employees
	allocations *servicetest.Allocations
	projects    *servicetest.Projects

	hr, manager, dev, other employee.Employee
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		hr:      employee.Employee{ID: "hr", EmployeeCode: "HR-1", Name: "Hana", Role: employee.RoleHR},
		manager: employee.Employee{ID: "mgr", EmployeeCode: "MG-1", Name: "Maya", Role: employee.RoleManager},
		dev:     employee.Employee{ID: "dev", EmployeeCode: "CM-001", Name: "Dian", Role: employee.RoleEmployee},
		other:   employee.Employee{ID: "other", EmployeeCode: "CM-002", Name: "Oka", Role: employee.RoleEmployee},
	}
	employees := servicetest.NewEmployees(f.hr, f.manager, f.dev, f.other)
	f.employees = employees
	registry := servicetest.NewRegistry(employees)
	registry.Assign(assignment.RelationManager, f.dev.ID, f.manager.ID)

	f.projects = servicetest.NewProjects(project.Project{ID: "p1", Name: "Apollo", Account: "Acme"})
	f.allocations = servicetest.NewAllocations(employees)
	f.svc = NewAllocationService(
		servicetest.Tx{},
		f.allocations,
		f.projects,
		employees,
		authservice.NewAuthorityResolver(registry),
		nil,
		Options{ImportConcurrency: 2},
	)
	return f
}

func (f *fixture) allocated(t *testing.T, employeeID, projectID, month string) string {
	t.Helper()
	row, ok := f.allocations.Row(employeeID, projectID, month)
	require.True(t, ok)
	return row.AllocatedDays.String()
}

func TestImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	file := strings.Join([]string{
		"Employee ID,Employee Name,Project,Account,Nov-2025,December 2025",
		"CM-001,Dian,Apollo,Acme,10,-",
		"CM-001,Dian,Gemini,Acme,5.5,8",
		"CM-404,Ghost,Apollo,Acme,3,3",
		"CM-002,Oka,Apollo,Acme,abc,2",
		"CM-002,Oka,Apollo,Acme,,",
	}, "\n")

	result, err := f.svc.Import(ctx, f.hr, strings.NewReader(file))
	require.NoError(t, err)
	assert.Equal(t, 5, result.Processed)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 3, result.Skipped)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 4, result.Errors[0].Line)
	assert.Contains(t, result.Errors[0].Message, "CM-404")
	assert.Equal(t, 5, result.Errors[1].Line)
	assert.Equal(t, "2025-11", result.Errors[1].Month)

	assert.Equal(t, "10", f.allocated(t, "dev", "p1", "2025-11"))
	_, ok := f.allocations.Row("dev", "p1", "2025-12")
	assert.False(t, ok, "a dash cell must not create a row")

	gemini, err := f.projects.GetByNameAccount(ctx, "Gemini", "Acme")
	require.NoError(t, err, "missing projects are created")
	assert.Equal(t, "5.5", f.allocated(t, "dev", gemini.ID, "2025-11"))
	assert.Equal(t, "8", f.allocated(t, "dev", gemini.ID, "2025-12"))

	assigned, err := f.projects.IsAssigned(ctx, "dev", gemini.ID)
	require.NoError(t, err)
	assert.True(t, assigned)

	_, ok = f.allocations.Row("other", "p1", "2025-12")
	assert.False(t, ok, "a failed line writes nothing")
}

func TestReimportKeepsConsumedDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.allocations.Seed("dev", "p1", "2025-11", "10", "3")

	file := "Employee ID,Employee Name,Project,Account,Nov-2025\nCM-001,Dian,Apollo,Acme,12\n"
	for i := 0; i < 2; i++ {
		result, err := f.svc.Import(ctx, f.hr, strings.NewReader(file))
		require.NoError(t, err)
		assert.Equal(t, 1, result.Succeeded)
		assert.Empty(t, result.Errors)
	}

	row, ok := f.allocations.Row("dev", "p1", "2025-11")
	require.True(t, ok)
	assert.Equal(t, "12", row.AllocatedDays.String())
	assert.Equal(t, "3", row.ConsumedDays.String())
}

func TestImportRejectsBadFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Import(ctx, f.hr, strings.NewReader("Name,Project\nx,y"))
	assert.ErrorIs(t, err, allocation.ErrInvalidImportFile)

	_, err = f.svc.Import(ctx, f.hr, strings.NewReader("Employee ID,Employee Name,Project,Account,Notes\n"))
	assert.ErrorIs(t, err, allocation.ErrNoMonthColumns)

	_, err = f.svc.Import(ctx, f.dev, strings.NewReader("Employee ID,Project,Account,2025-11\n"))
	assert.ErrorIs(t, err, allocation.ErrAllocationManageOnly)
}

func TestSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.allocations.Seed("dev", "p1", "2025-11", "10", "4")

	summary, err := f.svc.Save(ctx, f.hr, "dev", "2025-11", allocation.SaveRequest{Allocations: []allocation.SaveEntry{
		{ProjectID: "p1", Days: decimal.NewFromInt(6)},
		{ProjectID: servicetest.InHouseID, Days: decimal.NewFromInt(14)},
	}})
	require.NoError(t, err)
	assert.Equal(t, "20", summary.TotalAllocated.String())
	assert.Equal(t, "4", summary.TotalConsumed.String())
	assert.Len(t, summary.Allocations, 2)

	row, _ := f.allocations.Row("dev", "p1", "2025-11")
	assert.Equal(t, "4", row.ConsumedDays.String(), "consumed days survive a save")

	_, err = f.svc.Save(ctx, f.hr, "dev", "2025-11", allocation.SaveRequest{Allocations: []allocation.SaveEntry{
		{ProjectID: "p1", Days: decimal.NewFromInt(3)},
	}})
	assert.ErrorIs(t, err, allocation.ErrAllocatedBelowUsed)

	_, err = f.svc.Save(ctx, f.hr, "dev", "Nov", allocation.SaveRequest{})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = f.svc.Save(ctx, f.manager, "dev", "2025-11", allocation.SaveRequest{})
	assert.ErrorIs(t, err, allocation.ErrAllocationManageOnly)
}

func TestCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.allocations.Seed("dev", "p1", "2025-11", "10", "9.5")
	date := servicetest.Date("2025-11-25")

	probe := func(projectID, delta string) allocation.CheckResult {
		res, err := f.svc.Check(ctx, f.dev, allocation.CheckRequest{
			ProjectID:  projectID,
			ParsedDate: date,
			Delta:      decimal.RequireFromString(delta),
		})
		require.NoError(t, err)
		return res
	}

	assert.True(t, probe("p1", "0.5").OK)

	exceeded := probe("p1", "1")
	assert.False(t, exceeded.OK)
	assert.Contains(t, exceeded.Reason, "Allocation exceeded for November 2025 on project Apollo")

	assert.True(t, probe(servicetest.UnassignedID, "1").OK)
	assert.False(t, probe("missing", "1").OK)

	// Another employee's ledger needs authority over them.
	_, err := f.svc.Check(ctx, f.other, allocation.CheckRequest{EmployeeID: &f.dev.ID, ProjectID: "p1", ParsedDate: date, Delta: decimal.NewFromInt(1)})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestGrantDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.allocations.Seed("dev", servicetest.InHouseID, "2025-11", "12", "2")

	res, err := f.svc.GrantDefaults(ctx, "2025-11")
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Affected)

	row, ok := f.allocations.Row("dev", servicetest.InHouseID, "2025-11")
	require.True(t, ok)
	assert.Equal(t, "20", row.AllocatedDays.String())
	assert.Equal(t, "2", row.ConsumedDays.String())

	res, err = f.svc.GrantDefaults(ctx, "2025-11")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Affected)

	f.projects.Missing = true
	_, err = f.svc.GrantDefaults(ctx, "2025-12")
	assert.ErrorIs(t, err, project.ErrReservedMissing)
}

func TestGrantDefaultsCoversInactiveEmployees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.employees.Put(employee.Employee{ID: "gone", EmployeeCode: "CM-009", Name: "Gita", Role: employee.RoleEmployee, LoginStatus: employee.LoginStatusInactive})

	res, err := f.svc.GrantDefaults(ctx, "2025-11")
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Affected)
	assert.Equal(t, "20", f.allocated(t, "gone", servicetest.InHouseID, "2025-11"))
}

func TestSummaryVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.allocations.Seed("dev", "p1", "2025-11", "10", "1")

	_, err := f.svc.Summary(ctx, f.manager, "dev", "2025-11")
	require.NoError(t, err)

	_, err = f.svc.Summary(ctx, f.other, "dev", "2025-11")
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	own, err := f.svc.Summary(ctx, f.dev, "", "2025-11")
	require.NoError(t, err)
	assert.Equal(t, "9", own.Allocations[0].RemainingDays.String())
}
