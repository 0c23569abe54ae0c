package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/oauth"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/session"
	"golang.org/x/crypto/bcrypt"
)

type AuthServiceImpl struct {
	tx database.Transactor
	employee.EmployeeRepository
	balances  leave.BalanceRepository
	roles     RolePolicy
	jwt       jwt.Service
	microsoft oauth.MicrosoftService // nil when Microsoft sign-in is not configured
	sessions  session.Store

	sessionTTL      time.Duration
	outboundTimeout time.Duration
	now             func() time.Time
}

type Options struct {
	SessionTTL      time.Duration
	OutboundTimeout time.Duration
}

func NewAuthService(
	tx database.Transactor,
	employeeRepository employee.EmployeeRepository,
	balanceRepository leave.BalanceRepository,
	roles RolePolicy,
	jwtService jwt.Service,
	microsoft oauth.MicrosoftService,
	sessions session.Store,
	opts Options,
) auth.AuthService {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = jwtService.AccessTTL()
	}
	if opts.OutboundTimeout <= 0 {
		opts.OutboundTimeout = 10 * time.Second
	}
	return &AuthServiceImpl{
		tx:                 tx,
		EmployeeRepository: employeeRepository,
		balances:           balanceRepository,
		roles:              roles,
		jwt:                jwtService,
		microsoft:          microsoft,
		sessions:           sessions,
		sessionTTL:         opts.SessionTTL,
		outboundTimeout:    opts.OutboundTimeout,
		now:                time.Now,
	}
}

// Login implements auth.AuthService.
func (a *AuthServiceImpl) Login(ctx context.Context, req auth.LoginRequest) (auth.TokenResponse, error) {
	emp, err := a.findByAnyEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return auth.TokenResponse{}, auth.ErrInvalidCredentials
		}
		return auth.TokenResponse{}, err
	}

	if emp.PasswordHash == nil {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*emp.PasswordHash), []byte(req.Password)); err != nil {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}
	if !emp.IsActive() {
		return auth.TokenResponse{}, auth.ErrInactiveAccount
	}

	token, expiresAt, err := a.jwt.GenerateAccessToken(jwt.Subject{Email: emp.ContactEmail()})
	if err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to create access token: %w", err)
	}

	slog.Info("employee signed in", "employee_id", emp.ID, "provider", employee.AuthProviderLocal)
	return a.tokenResponse(emp, token, expiresAt), nil
}

// MicrosoftAuthURL implements auth.AuthService.
func (a *AuthServiceImpl) MicrosoftAuthURL(ctx context.Context) (auth.AuthURLResponse, error) {
	if a.microsoft == nil {
		return auth.AuthURLResponse{}, auth.ErrProviderDisabled
	}
	nonce, err := a.microsoft.GenerateNonce()
	if err != nil {
		return auth.AuthURLResponse{}, fmt.Errorf("failed to generate nonce: %w", err)
	}
	state, err := a.jwt.GenerateOAuthState(nonce)
	if err != nil {
		return auth.AuthURLResponse{}, fmt.Errorf("failed to sign state: %w", err)
	}
	return auth.AuthURLResponse{AuthURL: a.microsoft.AuthCodeURL(state), State: state}, nil
}

// MicrosoftCallback implements auth.AuthService. The IdP round trips happen
// before the provisioning transaction is opened.
func (a *AuthServiceImpl) MicrosoftCallback(ctx context.Context, req auth.MicrosoftCallbackRequest) (auth.TokenResponse, error) {
	if a.microsoft == nil {
		return auth.TokenResponse{}, auth.ErrProviderDisabled
	}
	if _, err := a.jwt.ValidateOAuthState(req.State); err != nil {
		return auth.TokenResponse{}, auth.ErrInvalidState
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, a.outboundTimeout)
	token, err := a.microsoft.Exchange(exchangeCtx, req.Code)
	cancel()
	if err != nil {
		return auth.TokenResponse{}, apperror.Gateway(err, "Microsoft sign-in failed")
	}

	profileCtx, cancel := context.WithTimeout(ctx, a.outboundTimeout)
	profile, err := a.microsoft.Profile(profileCtx, token)
	cancel()
	if err != nil {
		return auth.TokenResponse{}, apperror.Gateway(err, "Could not load Microsoft profile")
	}

	email := strings.ToLower(strings.TrimSpace(profile.Email()))
	if email == "" || profile.ID == "" {
		return auth.TokenResponse{}, auth.ErrProfileIncomplete
	}

	var (
		emp  employee.Employee
		sess session.Session
	)
	err = a.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		emp, err = a.provision(txCtx, profile, email)
		if err != nil {
			return err
		}
		if !emp.IsActive() {
			return auth.ErrInactiveAccount
		}
		sess = session.New(emp.ID, string(employee.AuthProviderMicrosoft), a.sessionTTL, a.now())
		if err := a.sessions.Create(txCtx, sess); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		return nil
	})
	if err != nil {
		return auth.TokenResponse{}, err
	}

	accessToken, expiresAt, err := a.jwt.GenerateAccessToken(jwt.Subject{SessionID: sess.ID})
	if err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to create access token: %w", err)
	}

	slog.Info("employee signed in", "employee_id", emp.ID, "provider", employee.AuthProviderMicrosoft)
	return a.tokenResponse(emp, accessToken, expiresAt), nil
}

// provision links the profile to an existing employee (by subject, then by
// email) or creates a new one. Existing employees keep their role unless an
// override says otherwise.
func (a *AuthServiceImpl) provision(ctx context.Context, profile oauth.MicrosoftProfile, email string) (employee.Employee, error) {
	role, superHR, overridden, err := a.roles.Resolve(ctx, email, profile.ID, profile.JobTitle, profile.Department)
	if err != nil {
		return employee.Employee{}, err
	}

	emp, err := a.GetByExternalSubject(ctx, profile.ID)
	if errors.Is(err, employee.ErrEmployeeNotFound) {
		emp, err = a.findByAnyEmail(ctx, email)
	}
	switch {
	case err == nil:
		emp.Name = nonEmpty(profile.DisplayName, emp.Name)
		emp.CompanyEmail = &email
		emp.ExternalSubject = &profile.ID
		emp.AuthProvider = employee.AuthProviderMicrosoft
		emp.JobTitle = profile.JobTitle
		emp.Department = profile.Department
		if overridden {
			emp.Role, emp.SuperHR = role, superHR
		}
		if err := a.UpdateExternalProfile(ctx, emp); err != nil {
			return employee.Employee{}, err
		}
		return emp, nil
	case !errors.Is(err, employee.ErrEmployeeNotFound):
		return employee.Employee{}, err
	}

	emp, err = a.Create(ctx, employee.Employee{
		EmployeeCode:     "MS-" + profile.ID,
		Name:             nonEmpty(profile.DisplayName, email),
		Email:            email,
		CompanyEmail:     &email,
		Role:             role,
		SuperHR:          superHR,
		OnboardingStatus: employee.OnboardingStatusApproved,
		LoginStatus:      employee.LoginStatusActive,
		EmploymentType:   employee.EmploymentTypeFullTime,
		AuthProvider:     employee.AuthProviderMicrosoft,
		ExternalSubject:  &profile.ID,
		JobTitle:         profile.JobTitle,
		Department:       profile.Department,
	})
	if err != nil {
		return employee.Employee{}, err
	}
	if err := a.balances.Init(ctx, emp.ID); err != nil {
		return employee.Employee{}, fmt.Errorf("failed to initialise leave balance: %w", err)
	}
	slog.Info("provisioned employee from Microsoft", "employee_id", emp.ID, "role", emp.Role, "override", overridden)
	return emp, nil
}

// Resolve implements auth.AuthService.
func (a *AuthServiceImpl) Resolve(ctx context.Context, token string, claims map[string]interface{}) (auth.Actor, error) {
	if token == "" {
		return auth.Actor{}, auth.ErrMissingToken
	}
	if a.jwt.IsTokenRevoked(token) {
		return auth.Actor{}, auth.ErrTokenRevoked
	}
	if t, _ := claims["type"].(string); t != jwt.TokenTypeAccess {
		return auth.Actor{}, auth.ErrInvalidToken
	}

	actor := auth.Actor{Token: token}
	var (
		emp employee.Employee
		err error
	)
	if sid, _ := claims["sid"].(string); sid != "" {
		sess, serr := a.sessions.Get(ctx, sid)
		if serr != nil {
			if errors.Is(serr, session.ErrNotFound) {
				return auth.Actor{}, auth.ErrSessionNotFound
			}
			return auth.Actor{}, fmt.Errorf("failed to load session: %w", serr)
		}
		actor.SessionID = sess.ID
		emp, err = a.GetByID(ctx, sess.EmployeeID)
	} else if sub, _ := claims["sub"].(string); sub != "" {
		emp, err = a.findByAnyEmail(ctx, sub)
	} else {
		return auth.Actor{}, auth.ErrInvalidToken
	}
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return auth.Actor{}, auth.ErrUnknownSubject
		}
		return auth.Actor{}, err
	}
	if !emp.IsActive() {
		return auth.Actor{}, auth.ErrInactiveAccount
	}

	actor.Employee = emp
	return actor, nil
}

// Logout implements auth.AuthService.
func (a *AuthServiceImpl) Logout(ctx context.Context, actor auth.Actor) error {
	if actor.SessionID != "" {
		if err := a.sessions.Delete(ctx, actor.SessionID); err != nil && !errors.Is(err, session.ErrNotFound) {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}
	if actor.Token != "" {
		a.jwt.RevokeToken(actor.Token, a.now().Add(a.jwt.AccessTTL()))
	}
	return nil
}

// findByAnyEmail looks an address up as company email first, then as login email.
func (a *AuthServiceImpl) findByAnyEmail(ctx context.Context, email string) (employee.Employee, error) {
	emp, err := a.GetByCompanyEmail(ctx, email)
	if errors.Is(err, employee.ErrEmployeeNotFound) {
		return a.GetByEmail(ctx, email)
	}
	return emp, err
}

func (a *AuthServiceImpl) tokenResponse(emp employee.Employee, token string, expiresAt int64) auth.TokenResponse {
	return auth.TokenResponse{
		AccessToken:          token,
		AccessTokenExpiresIn: expiresAt,
		Role:                 string(emp.Role),
		SuperHR:              emp.SuperHR,
		Actor:                auth.NewActorSummary(emp),
	}
}

func nonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
