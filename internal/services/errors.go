package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/coursex/internal/shared"
)

// APIError is a classified request failure.
type APIError struct {
	Kind    error           // One of the shared request sentinels
	Status  int             // HTTP status, 0 for transport failures
	Message string          // Human-readable message
	Details json.RawMessage // Raw error body when it was JSON
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.Kind }

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// kindForStatus maps a non-2xx status to its sentinel.
func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return shared.ErrUnauthorized
	case status == http.StatusNotFound:
		return shared.ErrNotFound
	case status == http.StatusRequestTimeout:
		return shared.ErrTimeout
	case status >= 400 && status < 500:
		return shared.ErrValidation
	default:
		return shared.ErrService
	}
}

// newStatusError builds an [APIError] from a non-2xx response body.
//
// FastAPI reports errors as {"detail": "..."} or, for validation failures, {"detail": [...]}.
func newStatusError(status int, body []byte) *APIError {
	apiErr := &APIError{
		Kind:    kindForStatus(status),
		Status:  status,
		Message: fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status)),
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}
	apiErr.Details = json.RawMessage(body)

	detail := strings.TrimSpace(string(payload.Detail))
	if detail == "" || detail == "null" {
		return apiErr
	}

	var msg string
	if err := json.Unmarshal(payload.Detail, &msg); err == nil {
		apiErr.Message = msg
	} else {
		apiErr.Message = detail
	}
	return apiErr
}

// outcome names err for metrics labels.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, shared.ErrTimeout):
		return "timeout"
	case errors.Is(err, shared.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	case errors.Is(err, shared.ErrValidation):
		return "validation"
	case errors.Is(err, shared.ErrService):
		return "service"
	default:
		return "canceled"
	}
}
