package auth

import (
	"strings"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/validator"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	var errs validator.ValidationErrors

	// Email
	if validator.IsEmpty(r.Email) {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "email is required",
		})
	} else if len(r.Email) > 254 {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "email must not exceed 254 characters",
		})
	} else if !validator.IsValidEmail(r.Email) {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "email must be a valid email address",
		})
	}

	// Password
	if validator.IsEmpty(r.Password) {
		errs = append(errs, validator.ValidationError{
			Field:   "password",
			Message: "password is required",
		})
	} else if len(r.Password) > 255 {
		errs = append(errs, validator.ValidationError{
			Field:   "password",
			Message: "password must not exceed 255 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return nil
}

type MicrosoftCallbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

func (r *MicrosoftCallbackRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.Code) {
		errs = append(errs, validator.ValidationError{Field: "code", Message: "code is required"})
	}
	if validator.IsEmpty(r.State) {
		errs = append(errs, validator.ValidationError{Field: "state", Message: "state is required"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type AuthURLResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

// ActorSummary is what the frontend needs to render role-aware screens.
type ActorSummary struct {
	ID           string  `json:"id"`
	EmployeeCode string  `json:"employee_code"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	CompanyEmail *string `json:"company_email,omitempty"`
	Role         string  `json:"role"`
	SuperHR      bool    `json:"super_hr"`
	AuthProvider string  `json:"auth_provider"`
}

func NewActorSummary(e employee.Employee) ActorSummary {
	return ActorSummary{
		ID:           e.ID,
		EmployeeCode: e.EmployeeCode,
		Name:         e.Name,
		Email:        e.Email,
		CompanyEmail: e.CompanyEmail,
		Role:         string(e.Role),
		SuperHR:      e.SuperHR,
		AuthProvider: string(e.AuthProvider),
	}
}

type TokenResponse struct {
	AccessToken          string       `json:"access_token"`
	AccessTokenExpiresIn int64        `json:"access_token_expires_in"`
	Role                 string       `json:"role"`
	SuperHR              bool         `json:"super_hr"`
	Actor                ActorSummary `json:"actor"`
}
