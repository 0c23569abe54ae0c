package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/handler/http/response"
)

type AuthHandler interface {
	Login(w http.ResponseWriter, r *http.Request)
	MicrosoftAuthURL(w http.ResponseWriter, r *http.Request)
	MicrosoftCallback(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
}

type AuthHandlerImpl struct {
	authService auth.AuthService
}

// Login implements AuthHandler.
func (a *AuthHandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq auth.LoginRequest
	if !decodeAndValidate(w, r, "Login", &loginReq) {
		return
	}

	tokenResponse, err := a.authService.Login(r.Context(), loginReq)
	if err != nil {
		slog.Error("Login service error", "error", err)
		response.HandleError(w, err)
		return
	}

	slog.Info("User logged in", "employee_id", tokenResponse.Actor.ID)
	response.SuccessWithMessage(w, "Login successful", tokenResponse)
}

// MicrosoftAuthURL implements AuthHandler.
func (a *AuthHandlerImpl) MicrosoftAuthURL(w http.ResponseWriter, r *http.Request) {
	res, err := a.authService.MicrosoftAuthURL(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, res)
}

// MicrosoftCallback implements AuthHandler.
func (a *AuthHandlerImpl) MicrosoftCallback(w http.ResponseWriter, r *http.Request) {
	var req auth.MicrosoftCallbackRequest
	if !decodeAndValidate(w, r, "MicrosoftCallback", &req) {
		return
	}

	tokenResponse, err := a.authService.MicrosoftCallback(r.Context(), req)
	if err != nil {
		slog.Error("MicrosoftCallback service error", "error", err)
		response.HandleError(w, err)
		return
	}

	slog.Info("User signed in with Microsoft", "employee_id", tokenResponse.Actor.ID)
	response.SuccessWithMessage(w, "Login successful", tokenResponse)
}

// Me implements AuthHandler.
func (a *AuthHandlerImpl) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		response.HandleError(w, auth.ErrMissingToken)
		return
	}
	response.Success(w, auth.NewActorSummary(actor.Employee))
}

// Logout implements AuthHandler.
func (a *AuthHandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		response.HandleError(w, auth.ErrMissingToken)
		return
	}

	if err := a.authService.Logout(r.Context(), actor); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Logout successful", nil)
}

func NewAuthHandler(authService auth.AuthService) AuthHandler {
	return &AuthHandlerImpl{
		authService: authService,
	}
}
