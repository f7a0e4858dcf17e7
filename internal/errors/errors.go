package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a notecomb error code.
type ErrorCode string

const (
	ErrQuerySyntax    ErrorCode = "QUERY_SYNTAX"    // malformed boolean tag query; fatal
	ErrSourceRead     ErrorCode = "SOURCE_READ"     // one note could not be read; per-file warning
	ErrOutputWrite    ErrorCode = "OUTPUT_WRITE"    // final output write failed; fatal
	ErrNoMatches      ErrorCode = "NO_MATCHES"      // query matched nothing; nothing written
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // bad parameters
	ErrNotFound       ErrorCode = "NOT_FOUND"       // notes dir or note file missing
	ErrInternal       ErrorCode = "INTERNAL"        // unexpected internal error
)

// NotecombError represents a structured error with code, status, and details.
type NotecombError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *NotecombError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewQuerySyntax creates a fatal error for a malformed query string.
// pos is the byte position of the offending token in the query.
func NewQuerySyntax(msg string, pos int) *NotecombError {
	return &NotecombError{
		Code:    ErrQuerySyntax,
		Status:  400,
		Message: fmt.Sprintf("invalid query at position %d: %s", pos, msg),
		Details: map[string]any{"position": pos},
	}
}

// NewSourceRead creates a non-fatal error for a note that could not be read.
// Compilation continues without that file's contribution.
func NewSourceRead(path string, err error) *NotecombError {
	return &NotecombError{
		Code:    ErrSourceRead,
		Status:  422,
		Message: fmt.Sprintf("could not read %s: %v", path, err),
		Details: map[string]any{"path": path},
	}
}

// NewOutputWrite creates a fatal error for a failed output write.
func NewOutputWrite(path string, err error) *NotecombError {
	return &NotecombError{
		Code:    ErrOutputWrite,
		Status:  500,
		Message: fmt.Sprintf("could not write %s: %v", path, err),
		Details: map[string]any{"path": path},
	}
}

// NewNoMatches creates an error for a query that matched no content.
// Distinct from a write failure: there was simply nothing to compile.
func NewNoMatches(query string) *NotecombError {
	return &NotecombError{
		Code:    ErrNoMatches,
		Status:  404,
		Message: fmt.Sprintf("no content found matching query: %s", query),
		Details: map[string]any{"query": query},
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *NotecombError {
	return &NotecombError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing notes directory or file.
func NewNotFound(identifier string) *NotecombError {
	return &NotecombError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *NotecombError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &NotecombError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) a NotecombError with the given code.
func Is(err error, code ErrorCode) bool {
	var nErr *NotecombError
	if stderrors.As(err, &nErr) {
		return nErr.Code == code
	}
	return false
}
