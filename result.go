package odbc

import (
	"strconv"
	"strings"
)

// Column addresses a result column either by 0-based index or by name.
type Column struct {
	index  int
	name   string
	byName bool
}

// Col addresses the column at the 0-based index i.
func Col(i int) Column { return Column{index: i} }

// Named addresses the column called name.
func Named(name string) Column { return Column{name: name, byName: true} }

func (c Column) String() string {
	if c.byName {
		return strconv.Quote(c.name)
	}
	return strconv.Itoa(c.index)
}

// Result is the cursor over the rows produced by one Statement execution.
// Column accessors are only valid while the cursor is positioned on a row.
type Result struct {
	stmt  *Statement
	h     handle[NativeCursor]
	onRow bool
}

func newResult(s *Statement, nc NativeCursor) *Result {
	return &Result{stmt: s, h: newHandle("result", nc, NativeCursor.Close)}
}

// Statement returns the statement that produced the result.
func (r *Result) Statement() *Statement { return r.stmt }

func (r *Result) move(op string, o Orientation, offset int64) (bool, error) {
	nc, err := r.h.get(op)
	if err != nil {
		return false, err
	}
	ok, err := nc.Fetch(o, offset)
	if err != nil {
		r.onRow = false
		return false, translate(op, err)
	}
	r.onRow = ok
	return ok, nil
}

// Next advances to the next row and reports whether there is one.
func (r *Result) Next() (bool, error) { return r.move("next", FetchNext, 0) }

// Previous moves back one row.
func (r *Result) Previous() (bool, error) { return r.move("previous", FetchPrior, 0) }

// First moves to the first row.
func (r *Result) First() (bool, error) { return r.move("first", FetchFirst, 0) }

// Last moves to the last row.
func (r *Result) Last() (bool, error) { return r.move("last", FetchLast, 0) }

// MoveTo moves to the 1-based row. Negative rows count back from the end.
func (r *Result) MoveTo(row int64) (bool, error) { return r.move("move", FetchAbsolute, row) }

// Skip moves n rows forward, or backwards when n is negative.
func (r *Result) Skip(n int64) (bool, error) { return r.move("skip", FetchRelative, n) }

// AffectedRows returns the number of rows changed by a DML statement. ok is
// false when the driver did not report a count.
func (r *Result) AffectedRows() (n int64, ok bool) {
	nc, err := r.h.get("affected rows")
	if err != nil {
		return 0, false
	}
	n = nc.AffectedRows()
	return n, n >= 0
}

// RowCount returns the number of rows in the result. ok is false when the
// driver cannot tell, which is common for forward-only cursors.
func (r *Result) RowCount() (n int64, ok bool) {
	nc, err := r.h.get("row count")
	if err != nil {
		return 0, false
	}
	n = nc.RowCount()
	return n, n >= 0
}

// Position returns the 1-based current row, 0 before the first row.
func (r *Result) Position() int64 {
	nc, err := r.h.get("position")
	if err != nil {
		return 0
	}
	return nc.Position()
}

// AtEnd reports whether no row follows the current one. It turns true as
// the last row is reached and stays true past it.
func (r *Result) AtEnd() bool {
	nc, err := r.h.get("at end")
	if err != nil {
		return true
	}
	return nc.AtEnd()
}

// Columns describes the result columns.
func (r *Result) Columns() ([]ColumnDesc, error) {
	nc, err := r.h.get("columns")
	if err != nil {
		return nil, err
	}
	cols := nc.Columns()
	out := make([]ColumnDesc, len(cols))
	copy(out, cols)
	return out, nil
}

// ColumnCount returns the number of result columns.
func (r *Result) ColumnCount() int {
	nc, err := r.h.get("column count")
	if err != nil {
		return 0
	}
	return len(nc.Columns())
}

// ColumnIndex returns the 0-based index of the column called name. An exact
// match wins over a case-insensitive one.
func (r *Result) ColumnIndex(name string) (int, error) {
	const op = "column index"
	nc, err := r.h.get(op)
	if err != nil {
		return 0, err
	}
	return indexOf(op, nc.Columns(), name)
}

func indexOf(op string, cols []ColumnDesc, name string) (int, error) {
	fold := -1
	for i, c := range cols {
		if c.Name == name {
			return i, nil
		}
		if fold < 0 && strings.EqualFold(c.Name, name) {
			fold = i
		}
	}
	if fold >= 0 {
		return fold, nil
	}
	return 0, newError(IndexOutOfRange, op, "no column named %q", name)
}

// ColumnName returns the name of the column at the 0-based index i.
func (r *Result) ColumnName(i int) (string, error) {
	const op = "column name"
	nc, err := r.h.get(op)
	if err != nil {
		return "", err
	}
	cols := nc.Columns()
	if i < 0 || i >= len(cols) {
		return "", newError(IndexOutOfRange, op, "column %d out of range, result has %d columns", i, len(cols))
	}
	return cols[i].Name, nil
}

func (r *Result) describe(op string, col Column) (NativeCursor, int, ColumnDesc, error) {
	nc, err := r.h.get(op)
	if err != nil {
		return nil, 0, ColumnDesc{}, err
	}
	cols := nc.Columns()
	i := col.index
	if col.byName {
		if i, err = indexOf(op, cols, col.name); err != nil {
			return nil, 0, ColumnDesc{}, err
		}
	} else if i < 0 || i >= len(cols) {
		return nil, 0, ColumnDesc{}, newError(IndexOutOfRange, op, "column %d out of range, result has %d columns", i, len(cols))
	}
	return nc, i, cols[i], nil
}

// DataType returns the SQL type of col.
func (r *Result) DataType(col Column) (DataType, error) {
	_, _, d, err := r.describe("data type", col)
	return d.Type, err
}

// DataTypeName returns the data source specific type name of col.
func (r *Result) DataTypeName(col Column) (string, error) {
	_, _, d, err := r.describe("data type name", col)
	if err != nil {
		return "", err
	}
	if d.TypeName == "" {
		return d.Type.String(), nil
	}
	return d.TypeName, nil
}

// cell reads col from the current row. A NULL cell is reported as a
// NullAccess error so the typed accessors can turn it into an absent value.
func (r *Result) cell(op string, col Column) (Value, ColumnDesc, error) {
	nc, i, d, err := r.describe(op, col)
	if err != nil {
		return Value{}, d, err
	}
	if !r.onRow {
		return Value{}, d, newError(ProgrammingError, op, "cursor is not positioned on a row")
	}
	v, err := nc.Cell(i)
	if err != nil {
		return Value{}, d, translate(op, err)
	}
	if v.kind == KindNull {
		return Value{}, d, &Error{Kind: NullAccess, Op: op, Message: "column " + col.String() + " is null"}
	}
	return v, d, nil
}

// IsNull reports whether col is SQL NULL in the current row.
func (r *Result) IsNull(col Column) (bool, error) {
	_, _, err := r.cell("is null", col)
	if err == nil {
		return false, nil
	}
	if KindOf(err) == NullAccess {
		return true, nil
	}
	return false, err
}

// Close releases the cursor. For results returned by Connection.Execute the
// implicit statement is released as well.
func (r *Result) Close() error {
	if !r.h.alive() {
		return nil
	}
	r.stmt.results.remove(r)
	err := r.close()
	if r.stmt.implicit {
		if serr := r.stmt.Close(); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}

func (r *Result) close() error {
	r.onRow = false
	return translate("close result", r.h.release())
}
