// Package sqlite is a native SQLite driver for the odbc driver manager.
package sqlite

import (
	"strconv"
	"strings"
	"time"
	"unsafe"

	odbc "github.com/lebje/go-odbc"
	"github.com/lebje/go-odbc/internal/sqltext"
)

// Conn is one open SQLite database.
type Conn struct {
	db unsafe.Pointer

	backend Backend
	path    string
}

var _ odbc.NativeConn = (*Conn)(nil)

// Open opens the database file at path, creating it if needed. ":memory:"
// opens a private in-memory database.
func Open(path string, backend Backend) (*Conn, error) {
	c := &Conn{
		path:    path,
		backend: backend,
	}
	uri := "file:" + path
	if path == ":memory:" {
		uri = "file::memory:"
	}
	flags := backend.OpenReadWrite() | backend.OpenCreate() | backend.OpenNoMutex() | backend.OpenURI()
	var db unsafe.Pointer
	if rc := backend.OpenV2(c.cstr(uri), unsafe.Pointer(&db), flags, nil); rc != backend.ResultOk() {
		// sqlite3_open_v2 may hand out a handle even on failure; it still
		// has to be closed.
		err := c.codeError(rc)
		if db != nil {
			backend.CloseV2(db)
		}
		return nil, err
	}
	c.db = db
	backend.ExtendedResultCodes(db, 1)
	return c, nil
}

func (c *Conn) cstr(s string) unsafe.Pointer {
	return c.backend.CharPtr(c.backend.StringData(s + "\x00"))
}

// Connected reports whether the database handle is open.
func (c *Conn) Connected() bool { return c.db != nil }

func (c *Conn) DBMSName() (string, error) { return "SQLite", nil }

func (c *Conn) DBMSVersion() (string, error) {
	return c.scalar("SELECT sqlite_version()")
}

// DatabaseName returns the path the database was opened with.
func (c *Conn) DatabaseName() (string, error) { return c.path, nil }

// scalar runs query and returns the first column of the first row as text.
func (c *Conn) scalar(query string) (string, error) {
	var stmt unsafe.Pointer
	if rc := c.backend.PrepareV2(c.db, c.cstr(query), unsafe.Pointer(&stmt)); rc != c.backend.ResultOk() {
		return "", c.codeError(rc)
	}
	defer c.backend.Finalize(stmt)

	switch rc := c.backend.Step(stmt); rc {
	case c.backend.ResultRow():
		return c.backend.ColumnText(stmt, 0), nil
	case c.backend.ResultDone():
		return "", nil
	default:
		return "", c.codeError(rc)
	}
}

// Prepare compiles query, which must hold a single statement. The timeout
// is not forwarded: the backend exposes no busy handler.
func (c *Conn) Prepare(query string, _ time.Duration) (odbc.NativeStmt, error) {
	if c.db == nil {
		return nil, errClosed
	}
	if sqltext.MultipleStatements(query) {
		return nil, &odbc.DriverError{State: "42000", Message: "cannot prepare more than one statement"}
	}
	var stmt unsafe.Pointer
	if rc := c.backend.PrepareV2(c.db, c.cstr(query), unsafe.Pointer(&stmt)); rc != c.backend.ResultOk() {
		return nil, c.codeError(rc)
	}
	if stmt == nil {
		// empty or comment-only SQL compiles to no statement
		return nil, &odbc.DriverError{State: "42000", Message: "no SQL statement in " + strings.TrimSpace(query)}
	}
	return &Stmt{
		stmt:    stmt,
		conn:    c,
		nparams: sqltext.CountMarkers(query),
	}, nil
}

// Exec runs every statement in query.
func (c *Conn) Exec(query string, _ time.Duration) error {
	if c.db == nil {
		return errClosed
	}
	if rc := c.backend.Exec(c.db, c.cstr(query)); rc != c.backend.ResultOk() {
		return c.codeError(rc)
	}
	return nil
}

// Disconnect closes the database. Calling it again is a no-op.
func (c *Conn) Disconnect() error {
	if db := c.db; db != nil {
		c.db = nil
		if rc := c.backend.CloseV2(db); rc != c.backend.ResultOk() {
			return c.codeError(rc)
		}
	}
	return nil
}

// changes returns the rows modified by the last DML statement.
func (c *Conn) changes() int64 {
	s, err := c.scalar("SELECT changes()")
	if err != nil {
		return -1
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return -1
	}
	return n
}
