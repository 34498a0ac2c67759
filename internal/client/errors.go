package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for the failure classes callers branch on. Use errors.Is;
// the concrete error usually carries more detail.
var (
	// ErrNotFound is reported for a 404 from the store.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is reported when an update carried a stale version.
	ErrVersionConflict = errors.New("version conflict")

	// ErrValidation is reported for input rejected before any request is sent.
	ErrValidation = errors.New("validation failed")
)

// ValidationError is a client-detected problem with a request. It is never
// sent over the wire.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StatusError is a non-2xx response from the store. Body holds the raw
// response text.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: store returned %d: %s", e.Method, e.Path, e.StatusCode, e.Message())
}

// Message returns the server-provided detail when the body is a JSON error
// object, else the trimmed body, else the status text.
func (e *StatusError) Message() string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil && body.Detail != nil {
		if s, ok := body.Detail.(string); ok {
			return s
		}
		b, _ := json.Marshal(body.Detail)
		return string(b)
	}
	if msg := strings.TrimSpace(e.Body); msg != "" {
		return msg
	}
	return http.StatusText(e.StatusCode)
}

// Is maps 404 to ErrNotFound and a 409 answer to PATCH to ErrVersionConflict.
// A 409 from any other call stays a generic failure.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrVersionConflict:
		return e.StatusCode == http.StatusConflict && e.Method == http.MethodPatch
	}
	return false
}
