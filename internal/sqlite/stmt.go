package sqlite

import (
	"fmt"
	"time"
	"unsafe"

	odbc "github.com/lebje/go-odbc"
)

// emptyText backs zero-length text binds; sqlite3_bind_text treats a nil
// pointer as NULL.
const emptyText = "\x00"

// Stmt is a prepared SQLite statement. Parameter indexes are 0-based here
// and shifted to SQLite's 1-based numbering on bind.
type Stmt struct {
	stmt    unsafe.Pointer
	conn    *Conn
	nparams int

	// keep holds bound text so the buffers stay reachable until the
	// statement is reset or finalised.
	keep  map[int]string
	bound map[int]bool
}

var _ odbc.NativeStmt = (*Stmt)(nil)

func (s *Stmt) NumParams() int { return s.nparams }

func (s *Stmt) Bind(index int, v odbc.Value) error {
	if s.stmt == nil {
		return errClosed
	}
	b := s.conn.backend
	i := index + 1

	var rc int
	switch v.Kind() {
	case odbc.KindNull:
		rc = b.BindNull(s.stmt, i)
	case odbc.KindInt16, odbc.KindInt32, odbc.KindInt64, odbc.KindUint16, odbc.KindBool:
		rc = b.BindInt64(s.stmt, i, v.Int())
	case odbc.KindFloat32, odbc.KindFloat64:
		rc = b.BindDouble(s.stmt, i, v.Float())
	case odbc.KindString:
		rc = s.bindText(i, v.Str())
	case odbc.KindBytes:
		rc = s.bindText(i, string(v.Bytes()))
	case odbc.KindDate:
		rc = s.bindText(i, v.Date().String())
	case odbc.KindTime:
		rc = s.bindText(i, v.Time().String())
	case odbc.KindTimestamp:
		rc = s.bindText(i, v.Timestamp().String())
	default:
		return &odbc.DriverError{State: "HY003", Message: fmt.Sprintf("unsupported value kind %v", v.Kind())}
	}
	if rc != b.ResultOk() {
		return s.conn.codeError(rc)
	}
	if s.bound == nil {
		s.bound = make(map[int]bool)
	}
	s.bound[index] = true
	return nil
}

func (s *Stmt) bindText(i int, text string) int {
	if s.keep == nil {
		s.keep = make(map[int]string)
	}
	n := len(text)
	if n == 0 {
		text = emptyText
	}
	s.keep[i] = text
	return s.conn.backend.BindText(s.stmt, i, s.conn.backend.CharPtr(s.conn.backend.StringData(text)), n)
}

// Execute runs the statement. Statements without result columns run to
// completion and report the number of changed rows; queries return a
// forward-only cursor positioned before its first row.
func (s *Stmt) Execute(_ time.Duration) (odbc.NativeCursor, error) {
	if s.stmt == nil {
		return nil, errClosed
	}
	b := s.conn.backend

	// Slots the caller satisfied without a bind carry empty binary data.
	for i := 0; i < s.nparams; i++ {
		if !s.bound[i] {
			if rc := s.bindText(i+1, ""); rc != b.ResultOk() {
				return nil, s.conn.codeError(rc)
			}
		}
	}

	if b.ColumnCount(s.stmt) == 0 {
		for {
			rc := b.Step(s.stmt)
			if rc == b.ResultRow() {
				continue
			}
			if rc == b.ResultDone() {
				break
			}
			err := s.conn.codeError(rc)
			b.Reset(s.stmt)
			return nil, err
		}
		if rc := b.Reset(s.stmt); rc != b.ResultOk() {
			return nil, s.conn.codeError(rc)
		}
		s.clear()
		return &Cursor{affected: s.conn.changes(), done: true}, nil
	}

	n := b.ColumnCount(s.stmt)
	cols := make([]odbc.ColumnDesc, n)
	for i := range cols {
		cols[i] = odbc.ColumnDesc{Name: b.ColumnName(s.stmt, i), Nullable: true}
	}
	cur := &Cursor{s: s, cols: cols, affected: -1}
	if err := cur.step(); err != nil {
		b.Reset(s.stmt)
		s.clear()
		return nil, err
	}
	return cur, nil
}

func (s *Stmt) clear() {
	s.keep = nil
	s.bound = nil
}

// Close finalises the statement.
func (s *Stmt) Close() error {
	if s.stmt == nil {
		return nil
	}
	rc := s.conn.backend.Finalize(s.stmt)
	s.stmt = nil
	s.clear()
	if rc != s.conn.backend.ResultOk() {
		return s.conn.codeError(rc)
	}
	return nil
}
