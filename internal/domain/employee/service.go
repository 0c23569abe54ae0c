package employee

import "context"

// Service covers onboarding, employee lookup and role overrides. The actor is
// always the authenticated employee making the call.
type Service interface {
	CreateOnboarding(ctx context.Context, actor Employee, req CreateOnboardingRequest) (OnboardingResponse, error)
	ListOnboarding(ctx context.Context, actor Employee, status *OnboardingStatus) ([]OnboardingResponse, error)
	ApproveOnboarding(ctx context.Context, actor Employee, onboardingID string) (EmployeeResponse, error)
	RejectOnboarding(ctx context.Context, actor Employee, onboardingID string) error

	GetEmployee(ctx context.Context, actor Employee, id string) (EmployeeResponse, error)
	ListEmployees(ctx context.Context, actor Employee, filter EmployeeFilter) (ListEmployeeResponse, error)

	ListRoleOverrides(ctx context.Context, actor Employee) ([]RoleOverride, error)
	UpsertRoleOverride(ctx context.Context, actor Employee, req UpsertRoleOverrideRequest) (RoleOverride, error)
	DeleteRoleOverride(ctx context.Context, actor Employee, id string) error
}
