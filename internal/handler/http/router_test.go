package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/approval"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/jwt"
	authService "github.com/cmlabs-hris/hrms-engine/internal/service/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/service/servicetest"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	handlerTestSecret    = "test-secret-key-for-jwt"
	handlerTestAccessExp = "1h"
	handlerTestPassword  = "password123"
)

// stubLeave answers the leave routes the tests exercise.
type stubLeave struct {
	leave.LeaveService
	submitErr error
	acted     []string
}

func (s *stubLeave) Submit(_ context.Context, actor employee.Employee, req leave.SubmitLeaveRequest) (leave.LeaveRequestResponse, error) {
	if s.submitErr != nil {
		return leave.LeaveRequestResponse{}, s.submitErr
	}
	return leave.LeaveRequestResponse{ID: "lr-1", EmployeeID: actor.ID, LeaveType: string(req.Category)}, nil
}

func (s *stubLeave) ActAsManager(_ context.Context, actor employee.Employee, id string, req approval.ActRequest) (leave.LeaveRequestResponse, error) {
	s.acted = append(s.acted, actor.ID+":"+id+":"+string(req.Parsed))
	return leave.LeaveRequestResponse{ID: id}, nil
}

type testServer struct {
	router *chi.Mux
	leave  *stubLeave
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(handlerTestPassword), bcrypt.MinCost)
	require.NoError(t, err)
	hashStr := string(hash)

	employees := servicetest.NewEmployees(
		employee.Employee{ID: "emp", Name: "Dian", Email: "dian@example.com", Role: employee.RoleEmployee, PasswordHash: &hashStr},
		employee.Employee{ID: "adm", Name: "Ari", Email: "ari@example.com", Role: employee.RoleAdmin, PasswordHash: &hashStr},
		employee.Employee{ID: "off", Name: "Oka", Email: "oka@example.com", Role: employee.RoleEmployee, PasswordHash: &hashStr, LoginStatus: employee.LoginStatusInactive},
	)

	jwtSvc, err := jwt.NewJWTService(handlerTestSecret, handlerTestAccessExp)
	require.NoError(t, err)

	authSvc := authService.NewAuthService(
		servicetest.Tx{}, employees, servicetest.NewBalances(), authService.NewRolePolicy(nil),
		jwtSvc, nil, nil, authService.Options{},
	)

	stub := &stubLeave{}
	h := Handlers{
		Auth:         NewAuthHandler(authSvc),
		Employee:     NewEmployeeHandler(nil, nil),
		Leave:        NewLeaveHandler(stub),
		Expense:      NewExpenseHandler(nil),
		Software:     NewSoftwareHandler(nil),
		Attendance:   NewAttendanceHandler(nil),
		Allocation:   NewAllocationHandler(nil, nil),
		Notification: NewNotificationHandler(nil),
	}
	router := NewRouter(jwtSvc, authSvc, h, RouterOptions{
		AppName:        "hrms-engine-test",
		Env:            "test",
		AllowedOrigins: []string{"http://localhost:3000"},
		Gatherer:       prometheus.NewRegistry(),
	})
	return &testServer{router: router, leave: stub}
}

func (s *testServer) do(t *testing.T, method, path, authorization string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp map[string]interface{}
	if w.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	}
	return w, resp
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	w, resp := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": handlerTestPassword})
	require.Equal(t, http.StatusOK, w.Code, resp)
	data := resp["data"].(map[string]interface{})
	token, _ := data["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func errorCode(resp map[string]interface{}) string {
	e, _ := resp["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}

func TestLoginAndMeAcceptBothHeaderForms(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "Dian@Example.com")

	for _, header := range []string{"Bearer " + token, token} {
		w, resp := s.do(t, http.MethodGet, "/api/v1/auth/me", header, nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := resp["data"].(map[string]interface{})
		assert.Equal(t, "emp", data["id"])
		assert.Equal(t, "Employee", data["role"])
	}
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "dian@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(resp))

	w, resp = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "oka@example.com", "password": handlerTestPassword})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(resp))

	w, resp = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(resp))
	details := resp["error"].(map[string]interface{})["details"].(map[string]interface{})
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
}

func TestProtectedRoutesNeedAValidToken(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(resp))

	w, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", "Bearer not.a.jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "dian@example.com")

	w, _ := s.do(t, http.MethodPost, "/api/v1/auth/logout", "Bearer "+token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := s.do(t, http.MethodGet, "/api/v1/auth/me", "Bearer "+token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token has been revoked", resp["error"].(map[string]interface{})["message"])
}

func TestRoleGuards(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "dian@example.com")

	w, resp := s.do(t, http.MethodGet, "/api/v1/onboarding", "Bearer "+token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(resp))

	w, _ = s.do(t, http.MethodGet, "/api/v1/role-overrides", "Bearer "+token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/allocations/grant-defaults", "Bearer "+token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLeaveRoutesMapErrorsAndPassTheActor(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "dian@example.com")
	body := map[string]string{"leave_type": "Casual", "reason": "family", "start_date": "2025-11-24", "end_date": "2025-11-27"}

	w, resp := s.do(t, http.MethodPost, "/api/v1/leave/requests", "Bearer "+token, body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Casual Leave", resp["data"].(map[string]interface{})["leave_type"])

	s.leave.submitErr = leave.ErrNoManagerAssigned
	w, resp = s.do(t, http.MethodPost, "/api/v1/leave/requests", "Bearer "+token, body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "PRECONDITION_FAILED", errorCode(resp))

	s.leave.submitErr = leave.ErrOverlappingLeave
	w, _ = s.do(t, http.MethodPost, "/api/v1/leave/requests", "Bearer "+token, body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/leave/requests/lr-9/manager-action", "Bearer "+token, map[string]string{"action": "approved"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"emp:lr-9:Approve"}, s.leave.acted)

	w, resp = s.do(t, http.MethodPost, "/api/v1/leave/requests/lr-9/manager-action", "Bearer "+token, map[string]string{"action": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(resp))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
