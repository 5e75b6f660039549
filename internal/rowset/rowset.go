// Package rowset implements a materialised, scrollable cursor.
package rowset

import (
	"fmt"

	odbc "github.com/lebje/go-odbc"
)

// ErrFetchType is returned by forward-only sets for any orientation other
// than FetchNext.
var ErrFetchType = &odbc.DriverError{State: "HY106", Message: "fetch type out of range"}

// Set holds every row of a result in memory. pos is 0 before the first row
// and len(rows)+1 after the last one.
type Set struct {
	cols        []odbc.ColumnDesc
	rows        [][]odbc.Value
	pos         int64
	affected    int64
	forwardOnly bool
	hideCount   bool
	closed      bool
}

type Option func(*Set)

// ForwardOnly rejects every orientation other than FetchNext.
func ForwardOnly() Option { return func(s *Set) { s.forwardOnly = true } }

// HideRowCount makes RowCount report -1, as drivers without a row count do.
func HideRowCount() Option { return func(s *Set) { s.hideCount = true } }

// Affected sets the DML row count reported by AffectedRows.
func Affected(n int64) Option { return func(s *Set) { s.affected = n } }

// New returns a Set positioned before the first row. AffectedRows defaults
// to -1.
func New(cols []odbc.ColumnDesc, rows [][]odbc.Value, opts ...Option) *Set {
	s := &Set{cols: cols, rows: rows, affected: -1}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Set) Columns() []odbc.ColumnDesc { return s.cols }

func (s *Set) n() int64 { return int64(len(s.rows)) }

func (s *Set) Fetch(o odbc.Orientation, offset int64) (bool, error) {
	if s.closed {
		return false, &odbc.DriverError{State: "24000", Message: "invalid cursor state"}
	}
	if s.forwardOnly && o != odbc.FetchNext {
		return false, ErrFetchType
	}

	n := s.n()
	var target int64
	switch o {
	case odbc.FetchNext:
		target = s.pos + 1
	case odbc.FetchPrior:
		target = s.pos - 1
	case odbc.FetchFirst:
		target = 1
	case odbc.FetchLast:
		target = n
	case odbc.FetchAbsolute:
		target = offset
		if offset < 0 {
			target = n + offset + 1
			if target < 1 {
				target = 0
			}
		}
	case odbc.FetchRelative:
		target = s.pos + offset
	default:
		return false, &odbc.DriverError{State: "HY106", Message: fmt.Sprintf("fetch type %v out of range", o)}
	}

	switch {
	case n == 0:
		if o == odbc.FetchPrior {
			s.pos = 0
		} else {
			s.pos = 1
		}
		return false, nil
	case target < 1:
		s.pos = 0
		return false, nil
	case target > n:
		s.pos = n + 1
		return false, nil
	}
	s.pos = target
	return true, nil
}

// Position returns the 1-based row, 0 before the first row.
func (s *Set) Position() int64 {
	if s.pos > s.n() {
		return s.n() + 1
	}
	return s.pos
}

// AtEnd reports whether no row follows the current one: true on the last
// row, past it, and for an empty set.
func (s *Set) AtEnd() bool { return s.pos >= s.n() }

func (s *Set) RowCount() int64 {
	if s.hideCount {
		return -1
	}
	return s.n()
}

func (s *Set) AffectedRows() int64 { return s.affected }

func (s *Set) Cell(i int) (odbc.Value, error) {
	if s.pos < 1 || s.pos > s.n() {
		return odbc.Value{}, &odbc.DriverError{State: "24000", Message: "invalid cursor state"}
	}
	row := s.rows[s.pos-1]
	if i < 0 || i >= len(row) {
		return odbc.Value{}, &odbc.DriverError{State: "07009", Message: fmt.Sprintf("invalid descriptor index %d", i)}
	}
	return row[i], nil
}

// Close drops the rows.
func (s *Set) Close() error {
	s.closed = true
	s.rows = nil
	s.pos = 0
	return nil
}

var _ odbc.NativeCursor = (*Set)(nil)
