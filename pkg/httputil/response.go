package httputil

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Meet-BS/form-scanner-poc/internal/domain"
)

// Response is the standard API envelope: success flag, data or error, and
// a response timestamp.
type Response struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *Error    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Error represents an API error
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// JSON writes a JSON success response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := Response{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	json.NewEncoder(w).Encode(resp)
}

// JSONError writes a JSON error response
func JSONError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now().UTC(),
	}

	json.NewEncoder(w).Encode(resp)
}

// ErrorFromDomain converts an application error to an HTTP response.
func ErrorFromDomain(w http.ResponseWriter, err error) {
	if appErr, ok := domain.AsAppError(err); ok {
		JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Metadata)
		return
	}

	JSONError(w, http.StatusInternalServerError, domain.ErrCodeInternal, "Internal server error", nil)
}

// DecodeJSON decodes JSON from request body
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return domain.ErrValidation("body", "request body is required")
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		return domain.ErrValidation("body", "invalid JSON: "+err.Error())
	}

	return nil
}
