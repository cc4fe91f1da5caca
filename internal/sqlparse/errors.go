package sqlparse

import (
	"errors"
	"fmt"
)

// ErrParse matches every *ParseError through errors.Is.
var ErrParse = errors.New("sql parse error")

// ParseError reports a malformed clause.
//
// Message is meant to be shown verbatim to whoever submitted the query.
// Clause is the fragment being parsed and Pos the byte offset of the
// failure within it.
type ParseError struct {
	Message string
	Clause  string
	Pos     int
}

func (e *ParseError) Error() string {
	if e.Clause == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (at offset %d in %q)", e.Message, e.Pos, e.Clause)
}

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func newParseError(clause string, pos int, format string, args ...any) *ParseError {
	return &ParseError{
		Message: fmt.Sprintf(format, args...),
		Clause:  clause,
		Pos:     pos,
	}
}
