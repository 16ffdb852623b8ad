package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

type Kind int

const (
	KindDependency Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "dependency"
	}
}

// Error is the error every service operation returns. Message is safe to show
// to clients; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies err. Errors that did not come from this package are dependency failures.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindDependency
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return "Internal server error"
}

func validationError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func authenticationError(msg string) *Error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

func authorizationError(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func notFoundError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflictError(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// dependencyError wraps a database or collaborator failure. The message carries
// a redacted cause only.
func dependencyError(action string, err error) *Error {
	return &Error{Kind: KindDependency, Message: action + ": " + redact(err), Err: err}
}

const mysqlDuplicateEntry = 1062

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

func redact(err error) string {
	var me *mysql.MySQLError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, mysql.ErrInvalidConn):
		return "database unavailable"
	case errors.As(err, &me):
		return fmt.Sprintf("database error %d", me.Number)
	default:
		return "internal error"
	}
}
