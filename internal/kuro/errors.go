package kuro

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials is returned by callers that pre-check profile
// configuration; the client itself never sees an empty credential.
var ErrMissingCredentials = errors.New("missing credentials")

// TransportError covers network and HTTP-layer failures. These are not
// retried beyond the upstream retry budget.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport error: %v", e.Err)
	}
	return fmt.Sprintf("transport error: unexpected status %d", e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UpstreamError is a well-formed response carrying a non-success status code.
type UpstreamError struct {
	Code    int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream rejected request (code %d): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("upstream rejected request (code %d)", e.Code)
}

// MalformedResponseError means the response matched no known envelope or
// payload shape.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %s", e.Reason)
}
