package assistant

import (
	"errors"

	"github.com/unpuzzle-ai/usagekit/pkg/throttle"
)

// Package-level error definitions for assistant operations.
var (
	// ErrRateLimited indicates the request was denied by a usage quota.
	// Callers should surface an upgrade prompt, never retry silently.
	ErrRateLimited = errors.New("assistant.errors.rate_limited")

	// ErrFeatureUnavailable indicates the plan lacks the requested agent type.
	ErrFeatureUnavailable = errors.New("assistant.errors.feature_unavailable")

	// ErrTransport wraps network-layer failures from the live backend path.
	// Retrying is at the caller's discretion; the facade never retries.
	ErrTransport = errors.New("assistant.errors.transport_failure")

	// ErrEmptyMessage and ErrEmptyUserID guard request validation.
	ErrEmptyMessage = errors.New("assistant.errors.empty_message")
	ErrEmptyUserID  = errors.New("assistant.errors.empty_user_id")
)

// RateLimitError carries the admission metadata of a denied request so the
// caller can render the quota state and an upgrade prompt. It matches both
// ErrRateLimited and, for feature denials, ErrFeatureUnavailable via
// errors.Is.
type RateLimitError struct {
	Message string
	Details throttle.RateLimitDetails
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrRateLimited.Error()
}

func (e *RateLimitError) Unwrap() []error {
	if e.Details.Reason == string(throttle.DenyFeature) {
		return []error{ErrRateLimited, ErrFeatureUnavailable}
	}
	return []error{ErrRateLimited}
}

// newRateLimitError maps a local deny decision into the same error the
// remote path produces from a 429 response.
func newRateLimitError(d throttle.Decision) *RateLimitError {
	body := throttle.NewRateLimitBody(d)
	return &RateLimitError{
		Message: body.Message,
		Details: body.Details,
	}
}
