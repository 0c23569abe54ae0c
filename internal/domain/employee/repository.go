package employee

import "context"

type EmployeeRepository interface {
	Create(ctx context.Context, emp Employee) (Employee, error)
	GetByID(ctx context.Context, id string) (Employee, error)
	GetByEmail(ctx context.Context, email string) (Employee, error)
	GetByCompanyEmail(ctx context.Context, email string) (Employee, error)
	GetByExternalSubject(ctx context.Context, subject string) (Employee, error)
	GetByEmployeeCode(ctx context.Context, code string) (Employee, error)
	UpdateExternalProfile(ctx context.Context, emp Employee) error
	List(ctx context.Context, filter EmployeeFilter) ([]Employee, int64, error)
	// ListIDs returns every employee id, inactive ones included.
	ListIDs(ctx context.Context) ([]string, error)
	// LockForUpdate takes a row lock on the employee, serialising per-employee ledgers.
	LockForUpdate(ctx context.Context, id string) error
}

type OnboardingRepository interface {
	Create(ctx context.Context, o Onboarding) (Onboarding, error)
	GetByIDForUpdate(ctx context.Context, id string) (Onboarding, error)
	List(ctx context.Context, status *OnboardingStatus) ([]Onboarding, error)
	MarkProcessed(ctx context.Context, id string, status OnboardingStatus, employeeID *string) error
}

type RoleOverrideRepository interface {
	Find(ctx context.Context, email string, subject string) (*RoleOverride, error)
	List(ctx context.Context) ([]RoleOverride, error)
	Upsert(ctx context.Context, o RoleOverride) (RoleOverride, error)
	Delete(ctx context.Context, id string) error
}
