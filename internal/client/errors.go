package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/sonance/internal/shared"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// APIError is a non-2xx API response.
type APIError struct {
	Status int
	Method string
	Path   string
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Detail)
}

// Unwrap lets callers match the status class with errors.Is.
func (e *APIError) Unwrap() []error {
	errs := []error{shared.ErrAPIRequest}
	switch e.Status {
	case http.StatusNotFound:
		errs = append(errs, shared.ErrNotFound)
	case http.StatusUnauthorized:
		errs = append(errs, shared.ErrNotAuthenticated)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		errs = append(errs, shared.ErrServiceUnavailable)
	}
	return errs
}

// CheckResponse returns nil for 2xx responses and an [*APIError] otherwise.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode, Detail: ParseDetail(body)}
	if resp.Request != nil {
		apiErr.Method = resp.Request.Method
		apiErr.Path = resp.Request.URL.Path
	}
	return apiErr
}

// ParseDetail extracts the human-readable message from an error body.
//
// {"detail": "..."} yields the string; a structured detail (validation errors) is returned as compact JSON;
// anything else is returned as trimmed text.
func ParseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		var s string
		if err := json.Unmarshal(envelope.Detail, &s); err == nil {
			return s
		}
		return string(envelope.Detail)
	}
	return strings.TrimSpace(string(body))
}
