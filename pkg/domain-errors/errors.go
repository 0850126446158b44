// Package domainerrors is the closed error taxonomy surfaced by the DOI
// registrar. Callers branch on Kind, never on concrete error types per
// operation.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind string

const (
	// KindConfiguration covers tenant/credential misconfiguration. Never retried.
	KindConfiguration Kind = "configuration"
	// KindNotDraft is a business precondition violation: the DOI left draft state.
	KindNotDraft Kind = "not_draft"
	// KindUpstream means the registry answered with a non-success status.
	KindUpstream Kind = "upstream_api"
	// KindTransport covers network failures and timeouts.
	KindTransport Kind = "transport"
	// KindNotFound means the addressed record does not exist.
	KindNotFound Kind = "not_found"
	// KindInvalidInput covers malformed identifiers and arguments.
	KindInvalidInput Kind = "invalid_input"
	// KindInternal is anything else.
	KindInternal Kind = "internal"
)

// Error carries a Kind plus the upstream status code when there is one.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Upstream records a rejected registry call. The response body is kept as the message.
func Upstream(statusCode int, message string) *Error {
	return &Error{Kind: KindUpstream, StatusCode: statusCode, Message: message}
}

// OperationError annotates an error with the lifecycle operation, tenant and
// DOI it failed on. It does not change the kind of the wrapped error.
type OperationError struct {
	Op     string
	Tenant string
	Doi    string
	Err    error
}

func (e *OperationError) Error() string {
	if e.Doi != "" {
		return fmt.Sprintf("%s [tenant=%s doi=%s]: %v", e.Op, e.Tenant, e.Doi, e.Err)
	}
	return fmt.Sprintf("%s [tenant=%s]: %v", e.Op, e.Tenant, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// WithOperation wraps err with operation context. nil stays nil.
func WithOperation(err error, op, tenant, doi string) error {
	if err == nil {
		return nil
	}
	return &OperationError{Op: op, Tenant: tenant, Doi: doi, Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HasKind reports whether err carries the given kind.
func HasKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// StatusCode returns the upstream status code carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// IsRetryable reports whether a caller may reasonably retry the operation.
// Transport failures and upstream 5xx/429 qualify; configuration and
// precondition failures never do.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTransport:
		return true
	case KindUpstream:
		code := StatusCode(err)
		return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
	default:
		return false
	}
}
