package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Completion failure kinds. Every provider error wraps exactly one of these.
var (
	ErrTimeout       = errors.New("completion timed out")
	ErrRateLimited   = errors.New("completion rate limited")
	ErrTransport     = errors.New("completion transport error")
	ErrAuth          = errors.New("completion authentication failed")
	ErrBadRequest    = errors.New("completion request rejected")
	ErrEmptyResponse = errors.New("completion response empty")
)

// ServiceError carries the provider, HTTP status and failure kind of a call
type ServiceError struct {
	Provider string
	Status   int // 0 when no response was received
	Kind     error
	Err      error
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause
func (e *ServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Classify wraps err from provider into the failure taxonomy using the HTTP
// status when one was received. Caller cancellation is returned unchanged.
func Classify(provider string, status int, err error) error {
	if err != nil && errors.Is(err, context.Canceled) {
		return err
	}
	return &ServiceError{Provider: provider, Status: status, Kind: kindOf(status, err), Err: err}
}

func kindOf(status int, err error) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuth
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrTimeout
	case status >= 500:
		return ErrTransport
	case status >= 400:
		return ErrBadRequest
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return ErrTransport
}

// IsRetryable reports whether a failed call may succeed on a second attempt
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransport)
}
