package sqlite

import (
	"fmt"

	odbc "github.com/lebje/go-odbc"
)

var errClosed = &odbc.DriverError{State: "08003", Message: "connection or statement is closed"}

// Error is a failed SQLite call.
type Error struct {
	rc  int
	msg string
}

func (err *Error) Error() string {
	return fmt.Sprintf("sqlite3: %s [%d]", err.msg, err.rc)
}

// Code returns the extended result code.
func (err *Error) Code() int { return err.rc }

// SQLState maps the primary result code onto the closest SQLSTATE class.
func (err *Error) SQLState() string {
	switch err.rc & 0xff {
	case 7: // SQLITE_NOMEM
		return "HY001"
	case 5, 6: // SQLITE_BUSY, SQLITE_LOCKED
		return "HYT00"
	case 14: // SQLITE_CANTOPEN
		return "08001"
	case 18: // SQLITE_TOOBIG
		return "22001"
	case 19: // SQLITE_CONSTRAINT
		return "23000"
	case 20: // SQLITE_MISMATCH
		return "22018"
	case 25: // SQLITE_RANGE
		return "07009"
	default:
		return "HY000"
	}
}

func (c *Conn) codeError(rc int) error {
	if c.db != nil {
		return &Error{rc, c.backend.ErrMsg(c.db)}
	}
	return &Error{rc, c.backend.ErrStr(rc)}
}
