package connection

import (
	"errors"
	"fmt"
)

// The service reports failures with conventional HTTP status codes (the RPC
// transport carries the same codes in its error frames). They are mapped to
// the typed errors below at the transport boundary so callers never branch on
// raw status codes. Anything that prevented the call from completing at all
// becomes a TransientError.

// AuthorizationError means the caller identity is missing or not permitted to
// perform the operation. Authorization is enforced entirely server-side.
type AuthorizationError struct {
	Op  string
	Msg string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s: not authorized: %s", e.Op, e.Msg)
}

// BusinessRuleError means the service refused the operation because it would
// violate a server-side rule (review gating, ball-passing constraints, and so
// on). Code carries the machine-readable rule identifier when the service
// provides one.
type BusinessRuleError struct {
	Op   string
	Code string
	Msg  string
}

func (e *BusinessRuleError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: rejected (%s): %s", e.Op, e.Code, e.Msg)
	}
	return fmt.Sprintf("%s: rejected: %s", e.Op, e.Msg)
}

// NotFoundError means the referenced record does not exist server-side at
// call time.
type NotFoundError struct {
	Op  string
	Msg string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: not found: %s", e.Op, e.Msg)
}

// TransientError wraps any failure to complete the remote call: connection
// refused, timeout, interrupted response. There is no automatic retry; retry
// is a caller decision.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFoundError anywhere in its chain.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAuthorization reports whether err is an AuthorizationError anywhere in
// its chain.
func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

// statusError converts a non-2xx service reply into the typed taxonomy.
func statusError(op string, status int, code, msg string) error {
	switch {
	case status == 401 || status == 403:
		return &AuthorizationError{Op: op, Msg: msg}
	case status == 404:
		return &NotFoundError{Op: op, Msg: msg}
	case status >= 400 && status < 500:
		return &BusinessRuleError{Op: op, Code: code, Msg: msg}
	default:
		return &TransientError{Op: op, Err: fmt.Errorf("server error %d: %s", status, msg)}
	}
}
