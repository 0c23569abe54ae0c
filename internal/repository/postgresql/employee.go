package postgresql

import (
	"context"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const employeeColumns = `
	e.id, e.employee_code, e.name, e.email, e.company_email, e.role, e.super_hr,
	e.location_id, l.name, e.onboarding_status, e.login_status, e.employment_type,
	e.date_of_joining, e.auth_provider, e.external_subject, e.job_title, e.department,
	e.weekoffs, e.password_hash, e.created_at, e.updated_at`

const employeeFrom = `FROM employees e LEFT JOIN locations l ON l.id = e.location_id`

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var e employee.Employee
	err := row.Scan(
		&e.ID,
		&e.EmployeeCode,
		&e.Name,
		&e.Email,
		&e.CompanyEmail,
		&e.Role,
		&e.SuperHR,
		&e.LocationID,
		&e.LocationName,
		&e.OnboardingStatus,
		&e.LoginStatus,
		&e.EmploymentType,
		&e.DateOfJoining,
		&e.AuthProvider,
		&e.ExternalSubject,
		&e.JobTitle,
		&e.Department,
		&e.Weekoffs,
		&e.PasswordHash,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}

func (r *employeeRepositoryImpl) getOne(ctx context.Context, where string, arg interface{}) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf("SELECT %s %s WHERE %s", employeeColumns, employeeFrom, where)
	e, err := scanEmployee(q.QueryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("get employee: %w", err)
	}
	return e, nil
}

// Create implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) Create(ctx context.Context, emp employee.Employee) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	weekoffs := emp.Weekoffs
	if weekoffs == nil {
		weekoffs = []string{"Saturday", "Sunday"}
	}

	query := `
		INSERT INTO employees (
			id, employee_code, name, email, company_email, role, super_hr,
			location_id, onboarding_status, login_status, employment_type,
			date_of_joining, auth_provider, external_subject, job_title, department,
			weekoffs, password_hash, created_at, updated_at
		) VALUES (
			uuidv7(), $1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, NOW(), NOW()
		) RETURNING id, created_at, updated_at
	`
	err := q.QueryRow(ctx, query,
		emp.EmployeeCode, emp.Name, emp.Email, emp.CompanyEmail, emp.Role, emp.SuperHR,
		emp.LocationID, emp.OnboardingStatus, emp.LoginStatus, emp.EmploymentType,
		emp.DateOfJoining, emp.AuthProvider, emp.ExternalSubject, emp.JobTitle, emp.Department,
		weekoffs, emp.PasswordHash,
	).Scan(&emp.ID, &emp.CreatedAt, &emp.UpdatedAt)
	if err != nil {
		return employee.Employee{}, mapEmployeeUniqueError(err)
	}
	emp.Weekoffs = weekoffs
	return emp, nil
}

func mapEmployeeUniqueError(err error) error {
	switch uniqueConstraint(err) {
	case "employees_company_email_key", "employees_email_key":
		return employee.ErrCompanyEmailExists
	case "employees_employee_code_key":
		return employee.ErrEmployeeCodeExists
	case "employees_external_subject_key":
		return employee.ErrExternalSubjectExists
	}
	return fmt.Errorf("create employee: %w", err)
}

// GetByID implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	return r.getOne(ctx, "e.id = $1", id)
}

// GetByEmail implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByEmail(ctx context.Context, email string) (employee.Employee, error) {
	return r.getOne(ctx, "e.email = $1", email)
}

// GetByCompanyEmail implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByCompanyEmail(ctx context.Context, email string) (employee.Employee, error) {
	return r.getOne(ctx, "e.company_email = $1", email)
}

// GetByExternalSubject implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByExternalSubject(ctx context.Context, subject string) (employee.Employee, error) {
	return r.getOne(ctx, "e.external_subject = $1", subject)
}

// GetByEmployeeCode implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByEmployeeCode(ctx context.Context, code string) (employee.Employee, error) {
	return r.getOne(ctx, "lower(e.employee_code) = lower($1)", strings.TrimSpace(code))
}

// UpdateExternalProfile refreshes the fields an identity provider owns.
func (r *employeeRepositoryImpl) UpdateExternalProfile(ctx context.Context, emp employee.Employee) error {
	q := GetQuerier(ctx, r.db)
	query := `
		UPDATE employees
		SET name = $2, company_email = $3, external_subject = $4, auth_provider = $5,
			job_title = $6, department = $7, role = $8, super_hr = $9, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := q.Exec(ctx, query,
		emp.ID, emp.Name, emp.CompanyEmail, emp.ExternalSubject, emp.AuthProvider,
		emp.JobTitle, emp.Department, emp.Role, emp.SuperHR,
	)
	if err != nil {
		return mapEmployeeUniqueError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// List implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) List(ctx context.Context, filter employee.EmployeeFilter) ([]employee.Employee, int64, error) {
	q := GetQuerier(ctx, r.db)
	filter.Normalize()

	conditions := []string{"TRUE"}
	args := []interface{}{}
	argIdx := 1

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("e.role = $%d", argIdx))
		args = append(args, *filter.Role)
		argIdx++
	}
	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(e.name ILIKE $%d OR e.email ILIKE $%d OR e.employee_code ILIKE $%d)", argIdx, argIdx, argIdx))
		args = append(args, "%"+*filter.Search+"%")
		argIdx++
	}
	whereClause := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM employees e WHERE %s", whereClause)
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count employees: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s %s
		WHERE %s
		ORDER BY e.name ASC
		LIMIT $%d OFFSET $%d
	`, employeeColumns, employeeFrom, whereClause, argIdx, argIdx+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		employees = append(employees, e)
	}
	return employees, total, rows.Err()
}

// ListIDs implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) ListIDs(ctx context.Context) ([]string, error) {
	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, `SELECT id FROM employees ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LockForUpdate implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) LockForUpdate(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)
	var locked string
	err := q.QueryRow(ctx, `SELECT id FROM employees WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if isNoRows(err) {
			return employee.ErrEmployeeNotFound
		}
		return err
	}
	return nil
}

type onboardingRepositoryImpl struct {
	db *database.DB
}

func NewOnboardingRepository(db *database.DB) employee.OnboardingRepository {
	return &onboardingRepositoryImpl{db: db}
}

const onboardingColumns = `
	id, employee_code, name, email, company_email, role, super_hr, location_id,
	employment_type, date_of_joining, weekoffs, manager_ids::text[], hr_ids::text[], status,
	created_by, employee_id, created_at, updated_at`

func scanOnboarding(row pgx.Row) (employee.Onboarding, error) {
	var o employee.Onboarding
	err := row.Scan(
		&o.ID, &o.EmployeeCode, &o.Name, &o.Email, &o.CompanyEmail, &o.Role, &o.SuperHR, &o.LocationID,
		&o.EmploymentType, &o.DateOfJoining, &o.Weekoffs, &o.ManagerIDs, &o.HRIDs, &o.Status,
		&o.CreatedBy, &o.EmployeeID, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

// Create implements employee.OnboardingRepository.
func (r *onboardingRepositoryImpl) Create(ctx context.Context, o employee.Onboarding) (employee.Onboarding, error) {
	q := GetQuerier(ctx, r.db)
	query := `
		INSERT INTO employee_onboardings (
			id, employee_code, name, email, company_email, role, super_hr, location_id,
			employment_type, date_of_joining, weekoffs, manager_ids, hr_ids, status, created_by,
			created_at, updated_at
		) VALUES (
			uuidv7(), $1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11::uuid[], $12::uuid[], 'pending', $13,
			NOW(), NOW()
		) RETURNING id, status, created_at, updated_at
	`
	err := q.QueryRow(ctx, query,
		o.EmployeeCode, o.Name, o.Email, o.CompanyEmail, o.Role, o.SuperHR, o.LocationID,
		o.EmploymentType, o.DateOfJoining, nonNilStrings(o.Weekoffs), nonNilStrings(o.ManagerIDs), nonNilStrings(o.HRIDs), o.CreatedBy,
	).Scan(&o.ID, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return employee.Onboarding{}, fmt.Errorf("create onboarding: %w", err)
	}
	return o, nil
}

// GetByIDForUpdate implements employee.OnboardingRepository.
func (r *onboardingRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string) (employee.Onboarding, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf("SELECT %s FROM employee_onboardings WHERE id = $1 FOR UPDATE", onboardingColumns)
	o, err := scanOnboarding(q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return employee.Onboarding{}, employee.ErrOnboardingNotFound
		}
		return employee.Onboarding{}, err
	}
	return o, nil
}

// List implements employee.OnboardingRepository.
func (r *onboardingRepositoryImpl) List(ctx context.Context, status *employee.OnboardingStatus) ([]employee.Onboarding, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf("SELECT %s FROM employee_onboardings WHERE ($1::text IS NULL OR status = $1) ORDER BY created_at DESC", onboardingColumns)
	rows, err := q.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []employee.Onboarding
	for rows.Next() {
		o, err := scanOnboarding(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// MarkProcessed implements employee.OnboardingRepository.
func (r *onboardingRepositoryImpl) MarkProcessed(ctx context.Context, id string, status employee.OnboardingStatus, employeeID *string) error {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `
		UPDATE employee_onboardings
		SET status = $2, employee_id = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, status, employeeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrOnboardingAlreadyClosed
	}
	return nil
}

type roleOverrideRepositoryImpl struct {
	db *database.DB
}

func NewRoleOverrideRepository(db *database.DB) employee.RoleOverrideRepository {
	return &roleOverrideRepositoryImpl{db: db}
}

// Find returns the override matching subject first, then email; nil when none.
func (r *roleOverrideRepositoryImpl) Find(ctx context.Context, email string, subject string) (*employee.RoleOverride, error) {
	q := GetQuerier(ctx, r.db)
	query := `
		SELECT id, email, subject, role, super_hr, created_at, updated_at
		FROM role_overrides
		WHERE ($2 <> '' AND subject = $2) OR ($1 <> '' AND email = $1)
		ORDER BY (subject = $2) DESC NULLS LAST
		LIMIT 1
	`
	var o employee.RoleOverride
	err := q.QueryRow(ctx, query, email, subject).Scan(&o.ID, &o.Email, &o.Subject, &o.Role, &o.SuperHR, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// List implements employee.RoleOverrideRepository.
func (r *roleOverrideRepositoryImpl) List(ctx context.Context) ([]employee.RoleOverride, error) {
	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, `
		SELECT id, email, subject, role, super_hr, created_at, updated_at
		FROM role_overrides ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []employee.RoleOverride
	for rows.Next() {
		var o employee.RoleOverride
		if err := rows.Scan(&o.ID, &o.Email, &o.Subject, &o.Role, &o.SuperHR, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// Upsert implements employee.RoleOverrideRepository. Overrides are keyed by
// email when present, otherwise by subject.
func (r *roleOverrideRepositoryImpl) Upsert(ctx context.Context, o employee.RoleOverride) (employee.RoleOverride, error) {
	q := GetQuerier(ctx, r.db)
	conflict := "(email)"
	if o.Email == nil {
		conflict = "(subject)"
	}
	query := fmt.Sprintf(`
		INSERT INTO role_overrides (id, email, subject, role, super_hr, created_at, updated_at)
		VALUES (uuidv7(), $1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT %s DO UPDATE
		SET subject = COALESCE(EXCLUDED.subject, role_overrides.subject),
			email = COALESCE(EXCLUDED.email, role_overrides.email),
			role = EXCLUDED.role, super_hr = EXCLUDED.super_hr, updated_at = NOW()
		RETURNING id, email, subject, created_at, updated_at
	`, conflict)
	err := q.QueryRow(ctx, query, o.Email, o.Subject, o.Role, o.SuperHR).
		Scan(&o.ID, &o.Email, &o.Subject, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return employee.RoleOverride{}, err
	}
	return o, nil
}

// Delete implements employee.RoleOverrideRepository.
func (r *roleOverrideRepositoryImpl) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `DELETE FROM role_overrides WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrRoleOverrideNotFound
	}
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
