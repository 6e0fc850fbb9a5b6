package farmsession

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrSessionExpired is an exported constant or variable used by the session manager.
	ErrSessionExpired = errors.New("session expired")
	// ErrNoRefreshToken is an exported constant or variable used by the session manager.
	ErrNoRefreshToken = errors.New("no refresh token available")
	// ErrNoSession is an exported constant or variable used by the session manager.
	ErrNoSession = errors.New("no active session")
	// ErrAuthTransient is an exported constant or variable used by the session manager.
	ErrAuthTransient = errors.New("transient authentication failure")
	// ErrInvalidCredentials is an exported constant or variable used by the session manager.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPermissionDenied is an exported constant or variable used by the session manager.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrManagerClosed is an exported constant or variable used by the session manager.
	ErrManagerClosed = errors.New("session manager closed")
)

// ErrorKind defines a public type used by farmsession APIs.
//
// ErrorKind instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ErrorKind uint8

const (
	// KindUnknown is an exported constant or variable used by the session manager.
	KindUnknown ErrorKind = iota
	// KindNetwork is an exported constant or variable used by the session manager.
	KindNetwork
	// KindTimeout is an exported constant or variable used by the session manager.
	KindTimeout
	// KindAuthentication is an exported constant or variable used by the session manager.
	KindAuthentication
	// KindAuthorization is an exported constant or variable used by the session manager.
	KindAuthorization
	// KindValidation is an exported constant or variable used by the session manager.
	KindValidation
	// KindNotFound is an exported constant or variable used by the session manager.
	KindNotFound
	// KindRateLimit is an exported constant or variable used by the session manager.
	KindRateLimit
	// KindServer is an exported constant or variable used by the session manager.
	KindServer
)

// String describes the string operation and its observable behavior.
//
// String does not mutate shared global state and can be used concurrently.
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindRateLimit:
		return "rate_limit"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// APIError defines a public type used by farmsession APIs.
//
// APIError carries the classified outcome of a backend call: its kind, the
// HTTP status when one was received, a user-facing message, and whether the
// call site may retry it.
type APIError struct {
	Kind      ErrorKind
	Status    int
	Message   string
	Retryable bool
	cause     error
}

// Error describes the error operation and its observable behavior.
//
// Error does not mutate shared global state and can be used concurrently.
func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap describes the unwrap operation and its observable behavior.
//
// Unwrap does not mutate shared global state and can be used concurrently.
func (e *APIError) Unwrap() error {
	return e.cause
}

// IsRetryable describes the isretryable operation and its observable behavior.
//
// IsRetryable reports whether err is an APIError the call site may retry with
// backoff. Non-APIError values are never retryable.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return false
}

func classifyStatus(status int, message string) *APIError {
	if message == "" {
		message = defaultMessage(status)
	}

	switch {
	case status == 401:
		return &APIError{Kind: KindAuthentication, Status: status, Message: message, cause: ErrInvalidCredentials}
	case status == 403:
		return &APIError{Kind: KindAuthorization, Status: status, Message: message, cause: ErrPermissionDenied}
	case status == 404:
		return &APIError{Kind: KindNotFound, Status: status, Message: message}
	case status == 408:
		return &APIError{Kind: KindTimeout, Status: status, Message: message, Retryable: true}
	case status == 429:
		return &APIError{Kind: KindRateLimit, Status: status, Message: message, Retryable: true}
	case status >= 400 && status < 500:
		return &APIError{Kind: KindValidation, Status: status, Message: message}
	case status >= 500:
		return &APIError{Kind: KindServer, Status: status, Message: message, Retryable: true}
	default:
		return &APIError{Kind: KindUnknown, Status: status, Message: message}
	}
}

func classifyTransport(err error) *APIError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{Kind: KindTimeout, Message: "request timed out", Retryable: true, cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &APIError{Kind: KindTimeout, Message: "request timed out", Retryable: true, cause: err}
		}
		return &APIError{Kind: KindNetwork, Message: "network error", Retryable: true, cause: err}
	}

	// url.Error wrapping a dial/connection failure lands here.
	return &APIError{Kind: KindNetwork, Message: "request failed", Retryable: true, cause: err}
}

func defaultMessage(status int) string {
	switch {
	case status == 401:
		return "authentication required"
	case status == 403:
		return "you do not have permission to perform this action"
	case status == 404:
		return "resource not found"
	case status == 429:
		return "too many requests, please slow down"
	case status >= 500:
		return "the server is having trouble, please try again"
	default:
		return "request failed"
	}
}
