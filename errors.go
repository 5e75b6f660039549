package odbc

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure reported by this package.
type ErrorKind int

const (
	// GeneralError is a failure with no more specific classification.
	GeneralError ErrorKind = iota

	// DatabaseError means the driver or the database rejected the operation.
	DatabaseError

	// InvalidType means the requested Go kind cannot be produced from the column.
	InvalidType

	// IndexOutOfRange means the column index or name does not exist.
	IndexOutOfRange

	// NullAccess means the cell is SQL NULL. Typed accessors never surface it.
	NullAccess

	// ProgrammingError means the API was misused.
	ProgrammingError

	// UnexpectedNull means a native call returned no handle and no error.
	UnexpectedNull
)

var kindNames = [...]string{
	GeneralError:     "general error",
	DatabaseError:    "database error",
	InvalidType:      "invalid type",
	IndexOutOfRange:  "index out of range",
	NullAccess:       "null access",
	ProgrammingError: "programming error",
	UnexpectedNull:   "unexpected null handle",
}

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
	return kindNames[k]
}

var (
	// ErrGeneral matches any GeneralError.
	ErrGeneral = &Error{Kind: GeneralError}

	// ErrDatabase matches any DatabaseError.
	ErrDatabase = &Error{Kind: DatabaseError}

	// ErrInvalidType matches any InvalidType error.
	ErrInvalidType = &Error{Kind: InvalidType}

	// ErrIndexOutOfRange matches any IndexOutOfRange error.
	ErrIndexOutOfRange = &Error{Kind: IndexOutOfRange}

	// ErrNullAccess matches any NullAccess error.
	ErrNullAccess = &Error{Kind: NullAccess}

	// ErrProgramming matches any ProgrammingError.
	ErrProgramming = &Error{Kind: ProgrammingError}

	// ErrUnexpectedNull matches any UnexpectedNull error.
	ErrUnexpectedNull = &Error{Kind: UnexpectedNull}
)

// Error is the single error type returned by this package.
type Error struct {
	Kind ErrorKind

	// Op names the operation that failed, e.g. "open" or "bind".
	Op string

	// Message is the driver's message text when one was reported.
	Message string

	// SQLState is the five character SQLSTATE for database errors.
	SQLState string

	// Err is the underlying native error, if any.
	Err error
}

func (e *Error) Error() string {
	msg := "odbc: "
	if e.Op != "" {
		msg += e.Op + ": "
	}
	msg += e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.SQLState != "" {
		msg += " [" + e.SQLState + "]"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind. The package
// sentinels carry no message, so errors.Is(err, ErrInvalidType) matches any
// InvalidType error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// KindOf returns the kind of err, or GeneralError if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return GeneralError
}

// DriverError is returned by native implementations for failures reported by
// a driver or the database behind it.
type DriverError struct {
	State      string
	NativeCode int
	Message    string
}

func (e *DriverError) Error() string {
	if e.NativeCode != 0 {
		return fmt.Sprintf("[%s] %s (%d)", e.State, e.Message, e.NativeCode)
	}
	return fmt.Sprintf("[%s] %s", e.State, e.Message)
}

// SQLState returns the five character SQLSTATE.
func (e *DriverError) SQLState() string { return e.State }

type sqlStater interface {
	SQLState() string
}

// newError builds an *Error with a formatted message.
func newError(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// translate classifies a native error. It returns nil for a nil error.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		if e.Op != "" {
			return e
		}
		c := *e
		c.Op = op
		return &c
	}

	var de *DriverError
	if errors.As(err, &de) {
		return &Error{Kind: DatabaseError, Op: op, Message: de.Message, SQLState: de.State, Err: err}
	}

	var st sqlStater
	if errors.As(err, &st) {
		return &Error{Kind: DatabaseError, Op: op, Message: err.Error(), SQLState: st.SQLState(), Err: err}
	}

	return &Error{Kind: GeneralError, Op: op, Message: err.Error(), Err: err}
}

func unexpectedNull(op, what string) *Error {
	return newError(UnexpectedNull, op, "driver returned no %s and no error", what)
}
