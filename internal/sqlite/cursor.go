package sqlite

import (
	"fmt"

	odbc "github.com/lebje/go-odbc"
	"github.com/lebje/go-odbc/internal/rowset"
)

// Cursor steps a statement forward. SQLite cannot count rows up front and
// cannot scroll, so RowCount is always -1 and only FetchNext is accepted.
//
// The cursor runs one step ahead of the caller: a row is copied out when it
// is fetched and the statement is stepped again, so AtEnd turns true as soon
// as the last row is returned.
type Cursor struct {
	s        *Stmt
	cols     []odbc.ColumnDesc
	row      []odbc.Value
	pos      int64
	onRow    bool
	pending  bool // the statement holds a row not yet fetched
	done     bool
	err      error
	affected int64
}

var _ odbc.NativeCursor = (*Cursor)(nil)

// step advances the statement and records whether a row is waiting.
func (c *Cursor) step() error {
	b := c.s.conn.backend
	switch rc := b.Step(c.s.stmt); rc {
	case b.ResultRow():
		c.pending = true
	case b.ResultDone():
		c.pending = false
		c.done = true
	default:
		c.pending = false
		return c.s.conn.codeError(rc)
	}
	return nil
}

func (c *Cursor) Columns() []odbc.ColumnDesc { return c.cols }

func (c *Cursor) Fetch(o odbc.Orientation, _ int64) (bool, error) {
	if o != odbc.FetchNext {
		return false, rowset.ErrFetchType
	}
	if err := c.err; err != nil {
		c.err = nil
		c.onRow = false
		return false, err
	}
	if !c.pending {
		if c.onRow || c.pos == 0 {
			c.pos++
		}
		c.onRow = false
		c.row = nil
		return false, nil
	}

	row, err := c.readRow()
	if err != nil {
		c.onRow = false
		return false, err
	}
	c.row = row
	c.pos++
	c.onRow = true
	// a failing look-ahead surfaces on the next fetch
	c.err = c.step()
	return true, nil
}

// readRow copies the current row out of the statement. Column types follow
// each row's storage classes; a NULL keeps the column's previous type.
func (c *Cursor) readRow() ([]odbc.Value, error) {
	b := c.s.conn.backend
	st := c.s.stmt
	row := make([]odbc.Value, len(c.cols))
	for i := range c.cols {
		switch t := b.ColumnType(st, i); t {
		case b.ResultNull():
			row[i] = odbc.Null()
		case typeInteger:
			c.cols[i].Type, c.cols[i].TypeName = odbc.TypeBigInt, "INTEGER"
			row[i] = odbc.Int64(b.ColumnInt64(st, i))
		case typeFloat:
			c.cols[i].Type, c.cols[i].TypeName = odbc.TypeDouble, "REAL"
			row[i] = odbc.Float64(b.ColumnDouble(st, i))
		case typeText:
			c.cols[i].Type, c.cols[i].TypeName = odbc.TypeVarChar, "TEXT"
			s, err := c.text(i)
			if err != nil {
				return nil, err
			}
			row[i] = odbc.String(s)
		case typeBlob:
			c.cols[i].Type, c.cols[i].TypeName = odbc.TypeLongVarBinary, "BLOB"
			s, err := c.text(i)
			if err != nil {
				return nil, err
			}
			row[i] = odbc.Bytes([]byte(s))
		default:
			return nil, &odbc.DriverError{State: "HY000", Message: fmt.Sprintf("unknown column type %d", t)}
		}
	}
	return row, nil
}

// text reads ColumnBytes bytes of column i. A value the backend hands back
// shorter than that was cut at an embedded NUL; it is reported instead of
// being returned truncated.
func (c *Cursor) text(i int) (string, error) {
	b := c.s.conn.backend
	s := b.ColumnText(c.s.stmt, i)
	n := b.ColumnBytes(c.s.stmt, i)
	if len(s) < n {
		return "", &odbc.DriverError{
			State:   "01004",
			Message: fmt.Sprintf("column %d holds %d bytes, %d readable before a NUL byte", i, n, len(s)),
		}
	}
	return s[:n], nil
}

func (c *Cursor) Position() int64 { return c.pos }

func (c *Cursor) AtEnd() bool { return c.done }

func (c *Cursor) RowCount() int64 { return -1 }

func (c *Cursor) AffectedRows() int64 { return c.affected }

func (c *Cursor) Cell(i int) (odbc.Value, error) {
	if !c.onRow {
		return odbc.Value{}, &odbc.DriverError{State: "24000", Message: "invalid cursor state"}
	}
	if i < 0 || i >= len(c.row) {
		return odbc.Value{}, &odbc.DriverError{State: "07009", Message: fmt.Sprintf("invalid descriptor index %d", i)}
	}
	return c.row[i], nil
}

// Close resets the statement so it can run again.
func (c *Cursor) Close() error {
	if c.s == nil {
		return nil
	}
	s := c.s
	c.s = nil
	c.onRow = false
	c.row = nil
	if s.stmt == nil {
		return nil
	}
	rc := s.conn.backend.Reset(s.stmt)
	s.clear()
	if rc != s.conn.backend.ResultOk() {
		return s.conn.codeError(rc)
	}
	return nil
}
