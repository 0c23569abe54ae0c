package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/approval"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/handler/http/response"
)

// validatable is implemented by every request DTO.
type validatable interface {
	Validate() error
}

// currentEmployee returns the resolved actor's employee record. It writes
// 401 and returns false when the route is not behind AuthRequired.
func currentEmployee(w http.ResponseWriter, r *http.Request) (employee.Employee, bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		response.HandleError(w, auth.ErrMissingToken)
		return employee.Employee{}, false
	}
	return actor.Employee, true
}

// decodeAndValidate decodes a JSON body into req and validates it.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, op string, req validatable) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		slog.Error(op+" decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return false
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return false
	}
	return true
}

// getIntQueryParam gets an int query parameter with a default value
func getIntQueryParam(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

// getBoolQueryParam gets a bool query parameter with a default value
func getBoolQueryParam(r *http.Request, key string, defaultVal bool) bool {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1"
}

func optionalQuery(r *http.Request, key string) *string {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil
	}
	return &val
}

func actedMessage(action approval.Action) string {
	if action == approval.ActionApprove {
		return "approved successfully"
	}
	return "rejected successfully"
}

// subjectID is the ?employee_id the caller asks about, defaulting to self.
func subjectID(r *http.Request, self string) string {
	if id := r.URL.Query().Get("employee_id"); id != "" {
		return id
	}
	return self
}
