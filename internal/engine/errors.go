package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while planning or running a
// query.
//
// Runtime errors include:
//   - Unknown service: FROM names a service that was never registered
//   - Unknown query: a named query that was never registered
//   - Parse failure: a clause does not parse (wraps sqlparse.ParseError)
//   - Compile failure: the parsed query has no SQL rendering
//
// The cause, when there is one, stays reachable through errors.Is and
// errors.As.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Service names the service the query reads, when known.
	Service string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownService indicates the FROM clause names no registered service.
	ErrCodeUnknownService RuntimeErrorCode = "UNKNOWN_SERVICE"

	// ErrCodeUnknownQuery indicates a named query that is not registered.
	ErrCodeUnknownQuery RuntimeErrorCode = "UNKNOWN_QUERY"

	// ErrCodeParseFailed indicates a clause of the statement does not parse.
	ErrCodeParseFailed RuntimeErrorCode = "PARSE_FAILED"

	// ErrCodeCompileFailed indicates the parsed query cannot be rendered as SQL.
	ErrCodeCompileFailed RuntimeErrorCode = "COMPILE_FAILED"

	// ErrCodeInvalidSpec indicates a service or query definition failed validation.
	ErrCodeInvalidSpec RuntimeErrorCode = "INVALID_SPEC"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Service != "" {
		msg += fmt.Sprintf(" (service=%s)", e.Service)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// HasCode reports whether err is, or wraps, a RuntimeError with code.
func HasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

func newUnknownServiceError(service string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownService,
		Message: fmt.Sprintf("no service named %q", service),
		Service: service,
	}
}

func newParseError(service, clause string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeParseFailed,
		Message: fmt.Sprintf("invalid %s clause", clause),
		Service: service,
		Err:     err,
	}
}
