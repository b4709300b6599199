// Package errors defines the typed error used across the service. Each Code
// carries the HTTP status and exposure rules the response writer applies.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
	// CodeUpstreamRejected marks a request the ledger backend refused with a 4xx.
	CodeUpstreamRejected Code = "UPSTREAM_REJECTED"
)

// Metadata is the response policy for a code. Retryable codes hide the
// internal message behind PublicMessage.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	retryable   = true
	withDetails = true
)

var metadataByCode = map[Code]Metadata{
	CodeValidation:       {http.StatusBadRequest, false, "validation failed", withDetails},
	CodeUnauthorized:     {http.StatusUnauthorized, false, "authentication required", false},
	CodeForbidden:        {http.StatusForbidden, false, "access denied", false},
	CodeNotFound:         {http.StatusNotFound, false, "resource not found", false},
	CodeConflict:         {http.StatusConflict, false, "conflict detected", false},
	CodeStateConflict:    {http.StatusUnprocessableEntity, false, "state transition disallowed", withDetails},
	CodeIdempotency:      {http.StatusConflict, false, "idempotency key reused", withDetails},
	CodeRateLimit:        {http.StatusTooManyRequests, false, "rate limit exceeded", false},
	CodeInternal:         {http.StatusInternalServerError, retryable, "internal server error", false},
	CodeDependency:       {http.StatusServiceUnavailable, retryable, "dependency unavailable", withDetails},
	CodeUpstreamRejected: {http.StatusUnprocessableEntity, false, "request rejected by ledger", withDetails},
}

// MetadataFor falls back to the internal error policy for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to err. A nil err yields a plain New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the client visible details and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	default:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether any *Error in err's chain carries code.
func IsCode(err error, code Code) bool {
	for err != nil {
		typed := As(err)
		if typed == nil {
			return false
		}
		if typed.code == code {
			return true
		}
		err = typed.cause
	}
	return false
}

// CodeOf returns the code of err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// IsRetryable reports whether the client may retry the request that failed
// with err. Untyped errors count as internal.
func IsRetryable(err error) bool {
	return MetadataFor(CodeOf(err)).Retryable
}
