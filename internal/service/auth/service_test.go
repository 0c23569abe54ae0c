package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/assignment"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/oauth"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

const testSecret = "test-secret-key-for-jwt"

type fakeTx struct{}

func (fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeEmployees struct {
	employee.EmployeeRepository
	mu   sync.Mutex
	byID map[string]employee.Employee
	seq  int
}

func newFakeEmployees(emps ...employee.Employee) *fakeEmployees {
	f := &fakeEmployees{byID: map[string]employee.Employee{}}
	for _, e := range emps {
		f.byID[e.ID] = e
	}
	return f
}

func (f *fakeEmployees) find(match func(employee.Employee) bool) (employee.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.byID {
		if match(e) {
			return e, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (f *fakeEmployees) GetByID(_ context.Context, id string) (employee.Employee, error) {
	return f.find(func(e employee.Employee) bool { return e.ID == id })
}

func (f *fakeEmployees) GetByEmail(_ context.Context, email string) (employee.Employee, error) {
	return f.find(func(e employee.Employee) bool { return strings.EqualFold(e.Email, email) })
}

func (f *fakeEmployees) GetByCompanyEmail(_ context.Context, email string) (employee.Employee, error) {
	return f.find(func(e employee.Employee) bool {
		return e.CompanyEmail != nil && strings.EqualFold(*e.CompanyEmail, email)
	})
}

func (f *fakeEmployees) GetByExternalSubject(_ context.Context, subject string) (employee.Employee, error) {
	return f.find(func(e employee.Employee) bool { return e.ExternalSubject != nil && *e.ExternalSubject == subject })
}

func (f *fakeEmployees) Create(_ context.Context, emp employee.Employee) (employee.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	emp.ID = "new-" + string(rune('0'+f.seq))
	f.byID[emp.ID] = emp
	return emp, nil
}

func (f *fakeEmployees) UpdateExternalProfile(_ context.Context, emp employee.Employee) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[emp.ID] = emp
	return nil
}

type fakeBalances struct {
	leave.BalanceRepository
	inited []string
}

func (f *fakeBalances) Init(_ context.Context, employeeID string) error {
	f.inited = append(f.inited, employeeID)
	return nil
}

type fakeOverrides struct {
	employee.RoleOverrideRepository
	byEmail map[string]employee.RoleOverride
}

func (f *fakeOverrides) Find(_ context.Context, email, _ string) (*employee.RoleOverride, error) {
	if o, ok := f.byEmail[email]; ok {
		return &o, nil
	}
	return nil, nil
}

type memorySessions struct {
	mu   sync.Mutex
	byID map[string]session.Session
}

func (m *memorySessions) Create(_ context.Context, s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[s.ID] = s
	return nil
}

func (m *memorySessions) Get(_ context.Context, id string) (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return s, nil
}

func (m *memorySessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

type fakeMicrosoft struct {
	profile     oauth.MicrosoftProfile
	exchangeErr error
}

func (f *fakeMicrosoft) GenerateNonce() (string, error) { return "nonce", nil }

func (f *fakeMicrosoft) AuthCodeURL(state string) string {
	return "https://login.microsoftonline.com/authorize?state=" + state
}

func (f *fakeMicrosoft) Exchange(ctx context.Context, _ string) (*oauth2.Token, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &oauth2.Token{AccessToken: "graph-token"}, nil
}

func (f *fakeMicrosoft) Profile(context.Context, *oauth2.Token) (oauth.MicrosoftProfile, error) {
	return f.profile, nil
}

type fixture struct {
	svc       auth.AuthService
	jwt       jwt.Service
	employees *fakeEmployees
	balances  *fakeBalances
	sessions  *memorySessions
	microsoft *fakeMicrosoft
}

func newFixture(t *testing.T, overrides map[string]employee.RoleOverride, emps ...employee.Employee) fixture {
	t.Helper()
	jwtService, err := jwt.NewJWTService(testSecret, "1h")
	require.NoError(t, err)

	f := fixture{
		jwt:       jwtService,
		employees: newFakeEmployees(emps...),
		balances:  &fakeBalances{},
		sessions:  &memorySessions{byID: map[string]session.Session{}},
		microsoft: &fakeMicrosoft{},
	}
	f.svc = NewAuthService(fakeTx{}, f.employees, f.balances,
		NewRolePolicy(&fakeOverrides{byEmail: overrides}),
		jwtService, f.microsoft, f.sessions, Options{SessionTTL: time.Hour, OutboundTimeout: time.Second})
	return f
}

func strPtr(s string) *string { return &s }

func localEmployee(t *testing.T, id, email, password string) employee.Employee {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return employee.Employee{
		ID:           id,
		Name:         "Local " + id,
		Email:        email,
		Role:         employee.RoleEmployee,
		LoginStatus:  employee.LoginStatusActive,
		AuthProvider: employee.AuthProviderLocal,
		PasswordHash: strPtr(string(hash)),
	}
}

func claimsOf(t *testing.T, j jwt.Service, token string) map[string]interface{} {
	t.Helper()
	decoded, err := j.JWTAuth().Decode(token)
	require.NoError(t, err)
	claims, err := decoded.AsMap(context.Background())
	require.NoError(t, err)
	return claims
}

func TestAuthService_Login_Success(t *testing.T) {
	f := newFixture(t, nil, localEmployee(t, "e1", "alice@example.com", "password123"))

	resp, err := f.svc.Login(context.Background(), auth.LoginRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Employee", resp.Role)
	assert.Equal(t, "e1", resp.Actor.ID)

	claims := claimsOf(t, f.jwt, resp.AccessToken)
	assert.Equal(t, "alice@example.com", claims["sub"])
	assert.Equal(t, jwt.TokenTypeAccess, claims["type"])
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	f := newFixture(t, nil, localEmployee(t, "e1", "alice@example.com", "password123"))

	_, err := f.svc.Login(context.Background(), auth.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Login(context.Background(), auth.LoginRequest{Email: "nobody@example.com", Password: "x"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestAuthService_Login_Inactive(t *testing.T) {
	emp := localEmployee(t, "e1", "alice@example.com", "password123")
	emp.LoginStatus = employee.LoginStatusInactive
	f := newFixture(t, nil, emp)

	_, err := f.svc.Login(context.Background(), auth.LoginRequest{Email: "alice@example.com", Password: "password123"})
	assert.ErrorIs(t, err, auth.ErrInactiveAccount)
}

func TestAuthService_Resolve_Subject(t *testing.T) {
	f := newFixture(t, nil, localEmployee(t, "e1", "alice@example.com", "password123"))
	resp, err := f.svc.Login(context.Background(), auth.LoginRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	actor, err := f.svc.Resolve(context.Background(), resp.AccessToken, claimsOf(t, f.jwt, resp.AccessToken))
	require.NoError(t, err)
	assert.Equal(t, "e1", actor.Employee.ID)
	assert.Empty(t, actor.SessionID)
}

func TestAuthService_Resolve_Rejections(t *testing.T) {
	f := newFixture(t, nil, localEmployee(t, "e1", "alice@example.com", "password123"))
	ctx := context.Background()

	_, err := f.svc.Resolve(ctx, "", nil)
	assert.ErrorIs(t, err, auth.ErrMissingToken)

	_, err = f.svc.Resolve(ctx, "tok", map[string]interface{}{"type": jwt.TokenTypeOAuthState})
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = f.svc.Resolve(ctx, "tok", map[string]interface{}{"type": jwt.TokenTypeAccess, "sub": "ghost@example.com"})
	assert.ErrorIs(t, err, auth.ErrUnknownSubject)

	_, err = f.svc.Resolve(ctx, "tok", map[string]interface{}{"type": jwt.TokenTypeAccess, "sid": "missing"})
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestAuthService_MicrosoftAuthURL(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.svc.MicrosoftAuthURL(context.Background())
	require.NoError(t, err)
	assert.Contains(t, resp.AuthURL, resp.State)

	nonce, err := f.jwt.ValidateOAuthState(resp.State)
	require.NoError(t, err)
	assert.Equal(t, "nonce", nonce)
}

func TestAuthService_MicrosoftCallback_ProvisionsNewEmployee(t *testing.T) {
	f := newFixture(t, nil)
	f.microsoft.profile = oauth.MicrosoftProfile{
		ID:          "ms-subject-1",
		DisplayName: "Maya Manager",
		Mail:        strPtr("Maya@Corp.com"),
		JobTitle:    strPtr("Engineering Manager"),
	}
	state, err := f.jwt.GenerateOAuthState("n")
	require.NoError(t, err)

	resp, err := f.svc.MicrosoftCallback(context.Background(), auth.MicrosoftCallbackRequest{Code: "code", State: state})
	require.NoError(t, err)
	assert.Equal(t, "Manager", resp.Role)
	assert.Len(t, f.balances.inited, 1)

	claims := claimsOf(t, f.jwt, resp.AccessToken)
	sid, ok := claims["sid"].(string)
	require.True(t, ok)
	_, hasSub := claims["sub"]
	assert.False(t, hasSub)

	actor, err := f.svc.Resolve(context.Background(), resp.AccessToken, claims)
	require.NoError(t, err)
	assert.Equal(t, sid, actor.SessionID)
	assert.Equal(t, "maya@corp.com", actor.Employee.ContactEmail())
}

func TestAuthService_MicrosoftCallback_OverrideWins(t *testing.T) {
	overrides := map[string]employee.RoleOverride{
		"hana@corp.com": {Role: employee.RoleHR, SuperHR: true},
	}
	f := newFixture(t, overrides)
	f.microsoft.profile = oauth.MicrosoftProfile{
		ID:       "ms-subject-2",
		Mail:     strPtr("hana@corp.com"),
		JobTitle: strPtr("Software Engineer"),
	}
	state, err := f.jwt.GenerateOAuthState("n")
	require.NoError(t, err)

	resp, err := f.svc.MicrosoftCallback(context.Background(), auth.MicrosoftCallbackRequest{Code: "code", State: state})
	require.NoError(t, err)
	assert.Equal(t, "HR", resp.Role)
	assert.True(t, resp.SuperHR)
}

func TestAuthService_MicrosoftCallback_LinksExistingEmployee(t *testing.T) {
	existing := localEmployee(t, "e9", "omar@corp.com", "pw")
	existing.Role = employee.RoleAccountManager
	f := newFixture(t, nil, existing)
	f.microsoft.profile = oauth.MicrosoftProfile{
		ID:                "ms-subject-3",
		UserPrincipalName: "omar@corp.com",
		JobTitle:          strPtr("Developer"),
	}
	state, err := f.jwt.GenerateOAuthState("n")
	require.NoError(t, err)

	resp, err := f.svc.MicrosoftCallback(context.Background(), auth.MicrosoftCallbackRequest{Code: "code", State: state})
	require.NoError(t, err)
	assert.Equal(t, "e9", resp.Actor.ID)
	assert.Equal(t, "Account Manager", resp.Role, "existing role is kept without an override")
	assert.Empty(t, f.balances.inited)

	linked, err := f.employees.GetByExternalSubject(context.Background(), "ms-subject-3")
	require.NoError(t, err)
	assert.Equal(t, employee.AuthProviderMicrosoft, linked.AuthProvider)
}

func TestAuthService_MicrosoftCallback_Failures(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.MicrosoftCallback(ctx, auth.MicrosoftCallbackRequest{Code: "code", State: "garbage"})
	assert.ErrorIs(t, err, auth.ErrInvalidState)

	state, err := f.jwt.GenerateOAuthState("n")
	require.NoError(t, err)
	f.microsoft.exchangeErr = errors.New("idp down")
	_, err = f.svc.MicrosoftCallback(ctx, auth.MicrosoftCallbackRequest{Code: "code", State: state})
	assert.Equal(t, apperror.KindGateway, apperror.KindOf(err))

	f.microsoft.exchangeErr = nil
	f.microsoft.profile = oauth.MicrosoftProfile{ID: "ms-subject-4"}
	_, err = f.svc.MicrosoftCallback(ctx, auth.MicrosoftCallbackRequest{Code: "code", State: state})
	assert.ErrorIs(t, err, auth.ErrProfileIncomplete)
}

func TestAuthService_MicrosoftDisabled(t *testing.T) {
	jwtService, err := jwt.NewJWTService(testSecret, "1h")
	require.NoError(t, err)
	svc := NewAuthService(fakeTx{}, newFakeEmployees(), &fakeBalances{}, NewRolePolicy(nil), jwtService, nil,
		&memorySessions{byID: map[string]session.Session{}}, Options{})

	_, err = svc.MicrosoftAuthURL(context.Background())
	assert.ErrorIs(t, err, auth.ErrProviderDisabled)
}

func TestAuthService_Logout(t *testing.T) {
	f := newFixture(t, nil)
	f.microsoft.profile = oauth.MicrosoftProfile{ID: "ms-subject-5", Mail: strPtr("lee@corp.com")}
	state, err := f.jwt.GenerateOAuthState("n")
	require.NoError(t, err)
	resp, err := f.svc.MicrosoftCallback(context.Background(), auth.MicrosoftCallbackRequest{Code: "code", State: state})
	require.NoError(t, err)

	claims := claimsOf(t, f.jwt, resp.AccessToken)
	actor, err := f.svc.Resolve(context.Background(), resp.AccessToken, claims)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), actor))
	assert.Empty(t, f.sessions.byID)

	_, err = f.svc.Resolve(context.Background(), resp.AccessToken, claims)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)
}

func TestRoleFromTitle(t *testing.T) {
	tests := []struct {
		title, dept string
		want        employee.Role
	}{
		{"Senior Account Manager", "", employee.RoleAccountManager},
		{"HR Business Partner", "", employee.RoleHR},
		{"Human Resources Generalist", "", employee.RoleHR},
		{"IT Admin", "", employee.RoleITAdmin},
		{"Engineering Manager", "Engineering", employee.RoleManager},
		{"Tech Lead", "", employee.RoleManager},
		{"Software Engineer", "Engineering", employee.RoleEmployee},
		{"Analyst", "HR", employee.RoleHR},
		{"Chrome Engineer", "", employee.RoleEmployee},
		{"", "", employee.RoleEmployee},
	}
	for _, tt := range tests {
		t.Run(tt.title+"/"+tt.dept, func(t *testing.T) {
			assert.Equal(t, tt.want, RoleFromTitle(tt.title, tt.dept))
		})
	}
}

type fakeRegistry struct {
	assignment.Registry
	managers map[string]string // employee -> manager
	hrs      map[string]string // employee -> hr
}

func (f fakeRegistry) IsManagerOf(_ context.Context, managerID, employeeID string) (bool, error) {
	return f.managers[employeeID] == managerID, nil
}

func (f fakeRegistry) IsHROf(_ context.Context, hrID, employeeID string) (bool, error) {
	return f.hrs[employeeID] == hrID, nil
}

func TestAuthorityOver(t *testing.T) {
	r := NewAuthorityResolver(fakeRegistry{
		managers: map[string]string{"emp": "mgr"},
		hrs:      map[string]string{"emp": "hr"},
	})
	ctx := context.Background()

	a, err := r.AuthorityOver(ctx, employee.Employee{ID: "mgr", Role: employee.RoleManager}, "emp")
	require.NoError(t, err)
	assert.True(t, a.MayApproveAsManager)
	assert.NoError(t, auth.CanActAsManager(a).Err())
	assert.Error(t, auth.CanActAsHR(a).Err())

	a, err = r.AuthorityOver(ctx, employee.Employee{ID: "hr", Role: employee.RoleHR}, "emp")
	require.NoError(t, err)
	assert.True(t, a.MayApproveAsHR)

	a, err = r.AuthorityOver(ctx, employee.Employee{ID: "other-hr", Role: employee.RoleHR, SuperHR: true}, "emp")
	require.NoError(t, err)
	assert.False(t, a.MayApproveAsHR)
	assert.NoError(t, auth.CanActAsHR(a).Err())

	a, err = r.AuthorityOver(ctx, employee.Employee{ID: "emp", Role: employee.RoleHR, SuperHR: true}, "emp")
	require.NoError(t, err)
	assert.True(t, a.IsSelf)
	assert.ErrorIs(t, auth.CanActAsHR(a).Err(), auth.ErrSelfApproval)
}
