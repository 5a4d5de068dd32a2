package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const fallbackDetail = "API request failed"

// Error is returned for every non-2xx response.
type Error struct {
	StatusCode int
	Detail     string
	// Body is the raw response body, kept for field-level validation errors.
	Body []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
}

func newError(statusCode int, body []byte) *Error {
	apiErr := &Error{
		StatusCode: statusCode,
		Detail:     fallbackDetail,
		Body:       body,
	}

	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		apiErr.Detail = payload.Detail
	}

	return apiErr
}

// FieldErrors decodes a DRF validation body ({"field": ["msg", ...]}).
// Returns nil when the body has another shape.
func (e *Error) FieldErrors() map[string][]string {
	var fieldErrs map[string][]string
	if err := json.Unmarshal(e.Body, &fieldErrs); err != nil {
		return nil
	}
	return fieldErrs
}

func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

func IsUnauthorized(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
