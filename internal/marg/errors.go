package marg

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is a non-2xx response from the backend. The Detail field holds
// whatever of the response body was captured; it is best-effort only.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %d", e.Code)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Detail)
}

// IsPermanent reports whether a delivery error is permanently unfixable by
// retrying. Only HTTP client errors qualify; network failures, timeouts, and
// 5xx responses are transient.
func IsPermanent(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.Code >= 400 && statusErr.Code < 500
}

// IsAuthFailure reports whether a delivery error is an authentication or
// authorization rejection.
func IsAuthFailure(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.Code == http.StatusUnauthorized || statusErr.Code == http.StatusForbidden
}

// Reason renders a human-readable failure reason for notifications. Response
// body detail is not guaranteed to survive into the message.
func Reason(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "not authorized"
		case http.StatusNotFound:
			return "no longer exists on the server"
		default:
			return "rejected by the server"
		}
	}
	return "delivery failed"
}
