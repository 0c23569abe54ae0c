package project

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/assignment"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/project"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"
	authservice "github.com/cmlabs-hris/hrms-engine/internal/service/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/service/servicetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	hr      = employee.Employee{ID: "hr", Name: "Hana", Role: employee.RoleHR}
	manager = employee.Employee{ID: "mgr", Name: "Maya", Role: employee.RoleManager}
	dev     = employee.Employee{ID: "dev", Name: "Dian", Role: employee.RoleEmployee}
	other   = employee.Employee{ID: "other", Name: "Oka", Role: employee.RoleEmployee}
)

func newService(t *testing.T) (project.ProjectService, *servicetest.Projects) {
	t.Helper()
	employees := servicetest.NewEmployees(hr, manager, dev, other)
	registry := servicetest.NewRegistry(employees)
	registry.Assign(assignment.RelationManager, dev.ID, manager.ID)
	projects := servicetest.NewProjects(project.Project{ID: "proj-apollo", Name: "Apollo", Account: "Acme"})
	return NewProjectService(servicetest.Tx{}, projects, employees, authservice.NewAuthorityResolver(registry)), projects
}

func TestCreateProject(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, hr, project.CreateProjectRequest{Name: " Gemini ", Account: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "Gemini", created.Name)
	assert.Equal(t, "active", created.Status)

	_, err = svc.Create(ctx, hr, project.CreateProjectRequest{Name: "apollo", Account: "ACME"})
	assert.ErrorIs(t, err, project.ErrProjectExists)

	_, err = svc.Create(ctx, manager, project.CreateProjectRequest{Name: "Mercury", Account: "Acme"})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestListMarksReserved(t *testing.T) {
	svc, _ := newService(t)

	list, err := svc.List(context.Background(), dev, nil)
	require.NoError(t, err)
	require.Len(t, list, 3)

	reserved := map[string]bool{}
	for _, p := range list {
		reserved[p.ID] = p.Reserved
	}
	assert.True(t, reserved[servicetest.InHouseID])
	assert.True(t, reserved[servicetest.UnassignedID])
	assert.False(t, reserved["proj-apollo"])
}

func TestReplaceEmployees(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	ids, err := svc.ReplaceEmployees(ctx, hr, "proj-apollo", project.AssignEmployeesRequest{EmployeeIDs: []string{"dev", "other", "dev"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"dev", "other"}, ids)

	ids, err = svc.ReplaceEmployees(ctx, hr, "proj-apollo", project.AssignEmployeesRequest{EmployeeIDs: []string{"other"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, ids)

	_, err = svc.ReplaceEmployees(ctx, hr, servicetest.InHouseID, project.AssignEmployeesRequest{EmployeeIDs: []string{"dev"}})
	assert.ErrorIs(t, err, project.ErrReservedReadOnly)

	_, err = svc.ReplaceEmployees(ctx, hr, "proj-apollo", project.AssignEmployeesRequest{EmployeeIDs: []string{"ghost"}})
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)

	_, err = svc.ReplaceEmployees(ctx, dev, "proj-apollo", project.AssignEmployeesRequest{})
	assert.ErrorIs(t, err, employee.ErrHRAccessRequired)
}

func TestProjectsForEmployee(t *testing.T) {
	svc, projects := newService(t)
	ctx := context.Background()
	require.NoError(t, projects.Assign(ctx, dev.ID, "proj-apollo"))

	mine, err := svc.Mine(ctx, dev)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Apollo", mine[0].Name)

	viaManager, err := svc.ForEmployee(ctx, manager, dev.ID)
	require.NoError(t, err)
	assert.Len(t, viaManager, 1)

	_, err = svc.ForEmployee(ctx, other, dev.ID)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}
