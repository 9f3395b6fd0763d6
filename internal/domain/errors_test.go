package domain

import (
	"errors"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeFetch,
				Message: "fetch failed: 404 Not Found",
			},
			want: "[FETCH_ERROR] fetch failed: 404 Not Found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeTimeout,
				Message: "fetch timed out",
				Cause:   errors.New("context deadline exceeded"),
			},
			want: "[TIMEOUT_ERROR] fetch timed out: context deadline exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("inner error")
	err := NewError("TEST", "outer error", http.StatusBadGateway).WithCause(inner)

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestAppError_Is(t *testing.T) {
	a := ErrFetch("https://example.com", 404, "Not Found")
	b := ErrFetch("https://other.com", 500, "Internal Server Error")
	c := ErrTimeout("https://example.com", errors.New("deadline"))

	if !errors.Is(a, b) {
		t.Error("errors with the same code should match via errors.Is")
	}
	if errors.Is(a, c) {
		t.Error("errors with different codes should not match")
	}
}

func TestNewError(t *testing.T) {
	err := NewError(ErrCodeUpstream, "model endpoint down", http.StatusBadGateway)

	if err.Code != ErrCodeUpstream {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeUpstream)
	}
	if err.HTTPStatus != http.StatusBadGateway {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusBadGateway)
	}
	if err.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestErrFetch(t *testing.T) {
	err := ErrFetch("https://example.com/page", 503, "Service Unavailable")

	if err.Code != ErrCodeFetch {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeFetch)
	}
	if err.HTTPStatus != http.StatusBadGateway {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusBadGateway)
	}
	if err.Metadata["url"] != "https://example.com/page" {
		t.Errorf("Metadata[url] = %v", err.Metadata["url"])
	}
	if err.Metadata["status"] != 503 {
		t.Errorf("Metadata[status] = %v, want 503", err.Metadata["status"])
	}
}

func TestErrTimeout(t *testing.T) {
	cause := errors.New("context deadline exceeded")
	err := ErrTimeout("https://slow.example.com", cause)

	if err.Code != ErrCodeTimeout {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeTimeout)
	}
	if err.HTTPStatus != http.StatusGatewayTimeout {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusGatewayTimeout)
	}
	if !errors.Is(err, cause) {
		t.Error("should wrap the cause")
	}
}

func TestErrUpstream(t *testing.T) {
	err := ErrUpstream(429, `{"error": "quota"}`)

	if err.Code != ErrCodeUpstream {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeUpstream)
	}
	if err.Metadata["http_status"] != 429 {
		t.Errorf("Metadata[http_status] = %v, want 429", err.Metadata["http_status"])
	}
	if err.Metadata["body"] != `{"error": "quota"}` {
		t.Errorf("Metadata[body] = %v", err.Metadata["body"])
	}
}

func TestErrUnparsableReply(t *testing.T) {
	err := ErrUnparsableReply("I'm sorry, I can't do that")

	if err.Code != ErrCodeUnparsableReply {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeUnparsableReply)
	}
	if err.Metadata["raw_text"] != "I'm sorry, I can't do that" {
		t.Errorf("Metadata[raw_text] = %v", err.Metadata["raw_text"])
	}
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("htmlContent", "htmlContent is required")

	if err.Code != ErrCodeValidation {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeValidation)
	}
	if err.HTTPStatus != http.StatusBadRequest {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusBadRequest)
	}
	if err.Metadata["field"] != "htmlContent" {
		t.Errorf("Metadata[field] = %v, want htmlContent", err.Metadata["field"])
	}
}

func TestErrInternal_DefaultMessage(t *testing.T) {
	err := ErrInternal("")
	if err.Message != "Internal server error" {
		t.Errorf("Message = %q", err.Message)
	}

	err2 := ErrInternal("custom message")
	if err2.Message != "custom message" {
		t.Errorf("Message = %q, want custom message", err2.Message)
	}
}

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"fetch error", ErrFetch("u", 404, "Not Found"), http.StatusBadGateway},
		{"timeout error", ErrTimeout("u", nil), http.StatusGatewayTimeout},
		{"validation error", ErrValidation("f", "m"), http.StatusBadRequest},
		{"extraction failure", ErrExtractionFailed(errors.New("x")), http.StatusUnprocessableEntity},
		{"non-app error", errors.New("random"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetHTTPStatus(tt.err); got != tt.wantStatus {
				t.Errorf("GetHTTPStatus() = %d, want %d", got, tt.wantStatus)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	err := ErrMalformedReply("no candidate text")

	if !IsCode(err, ErrCodeMalformedReply) {
		t.Error("IsCode should match the error's code")
	}
	if IsCode(err, ErrCodeUnparsableReply) {
		t.Error("IsCode should not match a different code")
	}
	if IsCode(errors.New("random"), ErrCodeMalformedReply) {
		t.Error("IsCode should not match a non-app error")
	}
}

func TestIsCode_Wrapped(t *testing.T) {
	inner := ErrUnparsableReply("garbage")
	wrapped := ErrExtractionFailed(inner)

	// AsAppError finds the outermost AppError.
	if !IsCode(wrapped, ErrCodeExtractionFailed) {
		t.Error("IsCode should see the outer code")
	}
	if !errors.Is(wrapped, inner) {
		t.Error("the inner error should still be reachable via errors.Is")
	}
}
