package postgresql_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/assignment"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-engine/internal/repository/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDB *TestDatabaseSetup

func TestMain(m *testing.M) {
	setup, ok, err := NewTestDatabase()
	if !ok {
		fmt.Println("TEST_DATABASE_URL not set, skipping postgres integration tests")
		os.Exit(0)
	}
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	testDB = setup
	code := m.Run()
	testDB.Close()
	os.Exit(code)
}

func resetTables(t *testing.T) {
	t.Helper()
	require.NoError(t, testDB.TruncateAllTables(context.Background()))
}

func createEmployee(t *testing.T, ctx context.Context, code string, role employee.Role) employee.Employee {
	t.Helper()
	repo := postgresql.NewEmployeeRepository(testDB.DB)
	emp, err := repo.Create(ctx, employee.Employee{
		EmployeeCode:     code,
		Name:             "Employee " + code,
		Email:            code + "@example.com",
		Role:             role,
		OnboardingStatus: employee.OnboardingStatusApproved,
		LoginStatus:      employee.LoginStatusActive,
		EmploymentType:   employee.EmploymentTypeFullTime,
		AuthProvider:     employee.AuthProviderLocal,
	})
	require.NoError(t, err)
	return emp
}

func TestEmployeeRepository_UniqueConstraints(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := postgresql.NewEmployeeRepository(testDB.DB)

	first := createEmployee(t, ctx, "E-001", employee.RoleEmployee)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, []string{"Saturday", "Sunday"}, first.Weekoffs)

	t.Run("duplicate employee code", func(t *testing.T) {
		_, err := repo.Create(ctx, employee.Employee{
			EmployeeCode:     "E-001",
			Name:             "Someone Else",
			Email:            "else@example.com",
			Role:             employee.RoleEmployee,
			OnboardingStatus: employee.OnboardingStatusApproved,
			LoginStatus:      employee.LoginStatusActive,
			EmploymentType:   employee.EmploymentTypeFullTime,
			AuthProvider:     employee.AuthProviderLocal,
		})
		assert.ErrorIs(t, err, employee.ErrEmployeeCodeExists)
	})

	t.Run("email is case insensitive", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, "E-001@EXAMPLE.COM")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
	})

	t.Run("missing employee", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "0190f5a0-0000-7000-8000-000000000000")
		assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)
	})
}

func TestBalanceRepository_DebitFloorsAtZero(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := postgresql.NewBalanceRepository(testDB.DB)
	emp := createEmployee(t, ctx, "E-100", employee.RoleEmployee)

	require.NoError(t, repo.Init(ctx, emp.ID))
	require.NoError(t, repo.Init(ctx, emp.ID), "init is idempotent")

	_, err := repo.Set(ctx, leave.Balance{EmployeeID: emp.ID, Sick: 2, Annual: 10})
	require.NoError(t, err)

	require.NoError(t, repo.Debit(ctx, emp.ID, leave.CategorySick, 5))
	require.NoError(t, repo.Debit(ctx, emp.ID, leave.CategoryAnnual, 3))

	got, err := repo.Get(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Sick)
	assert.Equal(t, 7, got.Annual)

	err = repo.Debit(ctx, createEmployee(t, ctx, "E-101", employee.RoleEmployee).ID, leave.CategorySick, 1)
	assert.ErrorIs(t, err, leave.ErrBalanceNotFound)
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	tx := postgresql.NewTxManager(testDB.DB)
	repo := postgresql.NewEmployeeRepository(testDB.DB)
	boom := errors.New("boom")

	var createdID string
	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		emp := createEmployee(t, ctx, "E-200", employee.RoleEmployee)
		createdID = emp.ID
		// Nested calls join the outer transaction.
		return tx.WithinTransaction(ctx, func(ctx context.Context) error {
			return boom
		})
	})
	require.ErrorIs(t, err, boom)

	_, err = repo.GetByID(ctx, createdID)
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)
}

func TestAssignmentRegistry_Replace(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	registry := postgresql.NewAssignmentRegistry(testDB.DB)

	emp := createEmployee(t, ctx, "E-300", employee.RoleEmployee)
	m1 := createEmployee(t, ctx, "M-300", employee.RoleManager)
	m2 := createEmployee(t, ctx, "M-301", employee.RoleManager)
	hr := createEmployee(t, ctx, "H-300", employee.RoleHR)

	require.NoError(t, registry.Replace(ctx, assignment.RelationManager, emp.ID, []string{m1.ID, m2.ID}))
	require.NoError(t, registry.Replace(ctx, assignment.RelationHR, emp.ID, []string{hr.ID}))

	managers, err := registry.ManagersOf(ctx, emp.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{m1.ID, m2.ID}, assignment.IDs(managers))

	ok, err := registry.IsHROf(ctx, hr.ID, emp.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, registry.Replace(ctx, assignment.RelationManager, emp.ID, []string{m2.ID}))
	ok, err = registry.IsManagerOf(ctx, m1.ID, emp.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	reportees, err := registry.EmployeesManagedBy(ctx, m2.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{emp.ID}, assignment.IDs(reportees))
}

func TestProjectRepository_ReservedRowsAreSeeded(t *testing.T) {
	reserved, err := postgresql.NewProjectRepository(testDB.DB).Reserved(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, reserved.InHouseID)
	assert.NotEmpty(t, reserved.UnassignedID)
	assert.NotEqual(t, reserved.InHouseID, reserved.UnassignedID)
}
