package odbc_test

import (
	"errors"
	"math"
	"reflect"
	"testing"

	odbc "github.com/lebje/go-odbc"
	"github.com/lebje/go-odbc/odbctest"
)

const fixtureQuery = "SELECT id, name, value, flag, created FROM fixture ORDER BY id"

var fixtureColumns = []odbc.ColumnDesc{
	{Name: "id", Type: odbc.TypeInteger, TypeName: "int4", Size: 4},
	{Name: "name", Type: odbc.TypeVarChar, TypeName: "varchar", Size: 32, Nullable: true},
	{Name: "value", Type: odbc.TypeDouble, TypeName: "float8", Size: 8, Nullable: true},
	{Name: "flag", Type: odbc.TypeBit, Nullable: true},
	{Name: "created", Type: odbc.TypeDate, TypeName: "date", Nullable: true},
}

func fixtureRows() [][]odbc.Value {
	day := func(d int) odbc.Value { return odbc.DateValue(odbc.Date{Year: 2024, Month: 3, Day: d}) }
	return [][]odbc.Value{
		{odbc.Int32(1), odbc.String("alpha"), odbc.Float64(1.5), odbc.Bool(true), day(1)},
		{odbc.Int32(2), odbc.String("beta"), odbc.Null(), odbc.Bool(false), day(2)},
		{odbc.Int32(3), odbc.Null(), odbc.Float64(-2.25), odbc.Null(), odbc.Null()},
		{odbc.Int32(4), odbc.String("40000"), odbc.Float64(1e10), odbc.Bool(true), day(4)},
	}
}

func fixtureConfig() odbctest.Config {
	return odbctest.Config{
		Queries: map[string]odbctest.Rowset{
			fixtureQuery:                   {Columns: fixtureColumns, Rows: fixtureRows()},
			"SELECT * FROM fixture LIMIT 0": {Columns: fixtureColumns},
			"SELECT * FROM stream":          {Columns: fixtureColumns, Rows: fixtureRows(), ForwardOnly: true, HideRowCount: true},
			"UPDATE fixture SET flag = 1":   {Affected: 3},
		},
	}
}

func fixture(t *testing.T) (*odbc.Result, *odbctest.Manager) {
	t.Helper()
	c, m := connect(t, fixtureConfig())
	r, err := c.Execute(fixtureQuery, 0)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	return r, m
}

func TestFixtureScan(t *testing.T) {
	t.Parallel()

	r, _ := fixture(t)
	if n, ok := r.RowCount(); !ok || n != 4 {
		t.Errorf("RowCount() = %d, %v", n, ok)
	}
	if _, ok := r.AffectedRows(); ok {
		t.Error("a query reports affected rows")
	}

	var ids []int32
	var names []string
	var nullValues int
	for {
		ok, err := r.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		if got, want := r.AtEnd(), r.Position() == 4; got != want {
			t.Errorf("AtEnd() = %v on row %d", got, r.Position())
		}
		id, err := r.Int32(odbc.Named("id"))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id.V)
		name, err := r.String(odbc.Col(1))
		if err != nil {
			t.Fatal(err)
		}
		if name.Valid {
			names = append(names, name.V)
		}
		value, err := r.Float64(odbc.Named("VALUE"))
		if err != nil {
			t.Fatal(err)
		}
		if !value.Valid {
			nullValues++
		}
	}

	if len(ids) != 4 || ids[0] != 1 || ids[3] != 4 {
		t.Errorf("ids = %v", ids)
	}
	if len(names) != 3 {
		t.Errorf("names = %v", names)
	}
	if nullValues != 1 {
		t.Errorf("%d NULL values, want 1", nullValues)
	}
	if !r.AtEnd() || r.Position() != 5 {
		t.Errorf("after scan AtEnd() = %v, Position() = %d", r.AtEnd(), r.Position())
	}
	if ok, err := r.Next(); ok || err != nil {
		t.Errorf("Next past the end = %v, %v", ok, err)
	}
}

func TestNavigation(t *testing.T) {
	t.Parallel()

	r, _ := fixture(t)

	steps := []struct {
		name   string
		move   func() (bool, error)
		ok     bool
		pos    int64
		atEnd  bool
		wantID int32
	}{
		{"last", r.Last, true, 4, true, 4},
		{"previous", r.Previous, true, 3, false, 3},
		{"first", r.First, true, 1, false, 1},
		{"previous before first", r.Previous, false, 0, false, 0},
		{"next from before first", r.Next, true, 1, false, 1},
		{"move to 3", func() (bool, error) { return r.MoveTo(3) }, true, 3, false, 3},
		{"move to -1", func() (bool, error) { return r.MoveTo(-1) }, true, 4, true, 4},
		{"skip -2", func() (bool, error) { return r.Skip(-2) }, true, 2, false, 2},
		{"skip past end", func() (bool, error) { return r.Skip(10) }, false, 5, true, 0},
		{"move to 0", func() (bool, error) { return r.MoveTo(0) }, false, 0, false, 0},
	}

	for _, st := range steps {
		ok, err := st.move()
		if err != nil {
			t.Fatalf("%s: %v", st.name, err)
		}
		if ok != st.ok || r.Position() != st.pos || r.AtEnd() != st.atEnd {
			t.Fatalf("%s: ok = %v, pos = %d, atEnd = %v; want %v, %d, %v",
				st.name, ok, r.Position(), r.AtEnd(), st.ok, st.pos, st.atEnd)
		}
		id, err := r.Int32(odbc.Col(0))
		if !st.ok {
			if !errors.Is(err, odbc.ErrProgramming) {
				t.Fatalf("%s: read off row = %v, want ProgrammingError", st.name, err)
			}
			continue
		}
		if err != nil || id.V != st.wantID {
			t.Fatalf("%s: id = %v, %v, want %d", st.name, id, err, st.wantID)
		}
	}
}

func TestAccessorBeforeFirstRow(t *testing.T) {
	t.Parallel()

	r, _ := fixture(t)
	if _, err := r.String(odbc.Col(1)); !errors.Is(err, odbc.ErrProgramming) {
		t.Errorf("read before Next = %v", err)
	}
	if _, err := r.IsNull(odbc.Col(1)); !errors.Is(err, odbc.ErrProgramming) {
		t.Errorf("IsNull before Next = %v", err)
	}
}

func TestEmptyResult(t *testing.T) {
	t.Parallel()

	c, _ := connect(t, fixtureConfig())
	r, err := c.Execute("SELECT * FROM fixture LIMIT 0", 0)
	if err != nil {
		t.Fatal(err)
	}
	if r.ColumnCount() != 5 {
		t.Errorf("ColumnCount() = %d", r.ColumnCount())
	}
	if n, ok := r.RowCount(); !ok || n != 0 {
		t.Errorf("RowCount() = %d, %v", n, ok)
	}
	if !r.AtEnd() {
		t.Error("empty result not at end before Next")
	}
	if ok, err := r.Next(); ok || err != nil {
		t.Fatalf("Next() = %v, %v", ok, err)
	}
	if !r.AtEnd() {
		t.Error("empty result not at end after Next")
	}
}

func TestDirectAndPreparedResultsMatch(t *testing.T) {
	t.Parallel()

	c, _ := connect(t, fixtureConfig())
	direct, err := c.Execute(fixtureQuery, 0)
	if err != nil {
		t.Fatal(err)
	}
	s, err := c.Prepare(fixtureQuery, 0)
	if err != nil {
		t.Fatal(err)
	}
	prepared, err := s.Execute(0)
	if err != nil {
		t.Fatal(err)
	}

	dc, _ := direct.Columns()
	pc, _ := prepared.Columns()
	if !reflect.DeepEqual(dc, pc) {
		t.Errorf("columns differ:\n%v\n%v", dc, pc)
	}
	dn, dok := direct.RowCount()
	pn, pok := prepared.RowCount()
	if dn != pn || dok != pok {
		t.Errorf("RowCount() = %d, %v direct, %d, %v prepared", dn, dok, pn, pok)
	}

	for row := 1; ; row++ {
		dmore, err := direct.Next()
		if err != nil {
			t.Fatal(err)
		}
		pmore, err := prepared.Next()
		if err != nil {
			t.Fatal(err)
		}
		if dmore != pmore {
			t.Fatalf("row %d: Next() = %v direct, %v prepared", row, dmore, pmore)
		}
		if !dmore {
			break
		}
		for i := range dc {
			dv, _ := direct.Value(odbc.Col(i))
			pv, _ := prepared.Value(odbc.Col(i))
			if !reflect.DeepEqual(dv, pv) {
				t.Errorf("row %d col %d: %v direct, %v prepared", row, i, dv, pv)
			}
		}
	}
}

func TestForwardOnly(t *testing.T) {
	t.Parallel()

	c, _ := connect(t, fixtureConfig())
	r, err := c.Execute("SELECT * FROM stream", 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.RowCount(); ok {
		t.Error("RowCount() known for a streaming cursor")
	}
	if ok, err := r.Next(); !ok || err != nil {
		t.Fatalf("Next() = %v, %v", ok, err)
	}
	_, err = r.Previous()
	var e *odbc.Error
	if !errors.As(err, &e) || e.Kind != odbc.DatabaseError || e.SQLState != "HY106" {
		t.Errorf("Previous() = %v, want DatabaseError HY106", err)
	}
}

func TestAffectedRows(t *testing.T) {
	t.Parallel()

	c, _ := connect(t, fixtureConfig())
	r, err := c.Execute("UPDATE fixture SET flag = 1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := r.AffectedRows(); !ok || n != 3 {
		t.Errorf("AffectedRows() = %d, %v", n, ok)
	}
	if r.ColumnCount() != 0 {
		t.Errorf("ColumnCount() = %d", r.ColumnCount())
	}
}

func TestMetadata(t *testing.T) {
	t.Parallel()

	r, _ := fixture(t)

	cols, err := r.Columns()
	if err != nil || len(cols) != 5 {
		t.Fatalf("Columns() = %v, %v", cols, err)
	}
	cols[0].Name = "mutated"
	if name, _ := r.ColumnName(0); name != "id" {
		t.Error("Columns() exposes internal state")
	}

	if i, err := r.ColumnIndex("Created"); err != nil || i != 4 {
		t.Errorf("ColumnIndex(Created) = %d, %v", i, err)
	}
	if _, err := r.ColumnIndex("missing"); !errors.Is(err, odbc.ErrIndexOutOfRange) {
		t.Errorf("ColumnIndex(missing) = %v", err)
	}
	if _, err := r.ColumnName(5); !errors.Is(err, odbc.ErrIndexOutOfRange) {
		t.Errorf("ColumnName(5) = %v", err)
	}

	if dt, err := r.DataType(odbc.Named("value")); err != nil || dt != odbc.TypeDouble {
		t.Errorf("DataType(value) = %v, %v", dt, err)
	}
	if name, err := r.DataTypeName(odbc.Col(0)); err != nil || name != "int4" {
		t.Errorf("DataTypeName(0) = %q, %v", name, err)
	}
	// Without a driver type name the SQL type name is used.
	if name, err := r.DataTypeName(odbc.Named("flag")); err != nil || name != "BIT" {
		t.Errorf("DataTypeName(flag) = %q, %v", name, err)
	}
}

func TestAccessorIndexErrors(t *testing.T) {
	t.Parallel()

	r, _ := fixture(t)
	if _, err := r.Next(); err != nil {
		t.Fatal(err)
	}
	for _, col := range []odbc.Column{odbc.Col(-1), odbc.Col(5), odbc.Named("nope")} {
		if _, err := r.Int64(col); !errors.Is(err, odbc.ErrIndexOutOfRange) {
			t.Errorf("Int64(%v) = %v, want IndexOutOfRange", col, err)
		}
	}
}

func TestNullCells(t *testing.T) {
	t.Parallel()

	r, _ := fixture(t)
	if ok, err := r.MoveTo(3); !ok || err != nil {
		t.Fatal(ok, err)
	}

	if null, err := r.IsNull(odbc.Named("name")); err != nil || !null {
		t.Errorf("IsNull(name) = %v, %v", null, err)
	}
	if null, err := r.IsNull(odbc.Named("id")); err != nil || null {
		t.Errorf("IsNull(id) = %v, %v", null, err)
	}
	if v, err := r.Date(odbc.Named("created")); err != nil || v.Valid {
		t.Errorf("Date(created) = %v, %v, want NULL", v, err)
	}
	if v, err := r.Bool(odbc.Named("flag")); err != nil || v.Valid {
		t.Errorf("Bool(flag) = %v, %v, want NULL", v, err)
	}
	if v, err := r.Value(odbc.Named("name")); err != nil || !v.IsNull() {
		t.Errorf("Value(name) = %v, %v, want NULL", v, err)
	}
}

func TestConversions(t *testing.T) {
	t.Parallel()

	r, _ := fixture(t)
	if _, err := r.MoveTo(4); err != nil {
		t.Fatal(err)
	}

	t.Run("numeric text", func(t *testing.T) {
		n, err := r.Int32(odbc.Named("name"))
		if err != nil || n.V != 40000 {
			t.Errorf("Int32(name) = %v, %v", n, err)
		}
		if _, err := r.Int16(odbc.Named("name")); !errors.Is(err, odbc.ErrInvalidType) {
			t.Errorf("Int16 overflow = %v, want InvalidType", err)
		}
		d, err := r.Decimal(odbc.Named("name"))
		if err != nil || d.V.String() != "40000" {
			t.Errorf("Decimal(name) = %v, %v", d, err)
		}
	})

	t.Run("double", func(t *testing.T) {
		f, err := r.Float32(odbc.Named("value"))
		if err != nil || f.V != 1e10 {
			t.Errorf("Float32(value) = %v, %v", f, err)
		}
		if _, err := r.Int32(odbc.Named("value")); !errors.Is(err, odbc.ErrInvalidType) {
			t.Errorf("Int32(1e10) = %v, want InvalidType", err)
		}
		n, err := r.Int64(odbc.Named("value"))
		if err != nil || n.V != 1e10 {
			t.Errorf("Int64(value) = %v, %v", n, err)
		}
		s, err := r.String(odbc.Named("value"))
		if err != nil || s.V != "1e+10" {
			t.Errorf("String(value) = %v, %v", s, err)
		}
	})

	t.Run("bit", func(t *testing.T) {
		b, err := r.Bool(odbc.Named("flag"))
		if err != nil || !b.V {
			t.Errorf("Bool(flag) = %v, %v", b, err)
		}
		n, err := r.Uint16(odbc.Named("flag"))
		if err != nil || n.V != 1 {
			t.Errorf("Uint16(flag) = %v, %v", n, err)
		}
		s, err := r.String(odbc.Named("flag"))
		if err != nil || s.V != "1" {
			t.Errorf("String(flag) = %v, %v", s, err)
		}
	})

	t.Run("date", func(t *testing.T) {
		d, err := r.Date(odbc.Named("created"))
		if err != nil || d.V != (odbc.Date{Year: 2024, Month: 3, Day: 4}) {
			t.Errorf("Date(created) = %v, %v", d, err)
		}
		ts, err := r.Timestamp(odbc.Named("created"))
		if err != nil || ts.V.Date != d.V || ts.V.Hour != 0 {
			t.Errorf("Timestamp(created) = %v, %v", ts, err)
		}
		s, err := r.String(odbc.Named("created"))
		if err != nil || s.V != "2024-03-04" {
			t.Errorf("String(created) = %v, %v", s, err)
		}
		if _, err := r.Time(odbc.Named("created")); !errors.Is(err, odbc.ErrInvalidType) {
			t.Errorf("Time(date) = %v, want InvalidType", err)
		}
		if _, err := r.Float64(odbc.Named("created")); !errors.Is(err, odbc.ErrInvalidType) {
			t.Errorf("Float64(date) = %v, want InvalidType", err)
		}
	})

	t.Run("bytes", func(t *testing.T) {
		b, err := r.Bytes(odbc.Named("name"))
		if err != nil || string(b.V) != "40000" {
			t.Errorf("Bytes(name) = %v, %v", b, err)
		}
		b.V[0] = 'x'
		again, _ := r.Bytes(odbc.Named("name"))
		if string(again.V) != "40000" {
			t.Error("Bytes result aliases the cell")
		}
		if _, err := r.Bytes(odbc.Named("id")); !errors.Is(err, odbc.ErrInvalidType) {
			t.Errorf("Bytes(id) = %v, want InvalidType", err)
		}
	})
}

func TestIntegerRanges(t *testing.T) {
	t.Parallel()

	q := "SELECT ?"
	tt := []struct {
		name    string
		in      odbc.Value
		int16OK bool
		u16OK   bool
	}{
		{"small", odbc.Int64(12), true, true},
		{"negative", odbc.Int64(-1), true, false},
		{"max int16", odbc.Int64(math.MaxInt16), true, true},
		{"above int16", odbc.Int64(math.MaxInt16 + 1), false, true},
		{"max uint16", odbc.Int64(math.MaxUint16), false, true},
		{"above uint16", odbc.Int64(math.MaxUint16 + 1), false, false},
	}

	c, _ := connect(t, odbctest.Config{})
	s, err := c.Prepare(q, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if err := s.Reset(); err != nil {
				t.Fatal(err)
			}
			r, err := s.ExecuteWith(0, tc.in)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := r.Next(); err != nil {
				t.Fatal(err)
			}
			_, err = r.Int16(odbc.Col(0))
			if (err == nil) != tc.int16OK {
				t.Errorf("Int16(%v) error = %v", tc.in, err)
			}
			_, err = r.Uint16(odbc.Col(0))
			if (err == nil) != tc.u16OK {
				t.Errorf("Uint16(%v) error = %v", tc.in, err)
			}
		})
	}
}

func TestImplicitStatementClosedWithResult(t *testing.T) {
	t.Parallel()

	c, m := connect(t, fixtureConfig())
	r, err := c.Execute(fixtureQuery, 0)
	if err != nil {
		t.Fatal(err)
	}
	if c.OpenStatements() != 1 {
		t.Fatalf("OpenStatements() = %d", c.OpenStatements())
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if c.OpenStatements() != 0 || m.Live("statement") != 0 || m.Live("cursor") != 0 {
		t.Error("closing the result left the implicit statement open")
	}
	if r.Statement().OpenResults() != 0 {
		t.Error("statement still lists the result")
	}
}

func TestImplicitStatementClosedOnExecuteError(t *testing.T) {
	t.Parallel()

	c, m := connect(t, fixtureConfig())
	m.Fail(odbctest.OpExecute, &odbc.DriverError{State: "42P01", Message: "relation does not exist"})
	if _, err := c.Execute("SELECT * FROM missing", 0); odbc.KindOf(err) != odbc.DatabaseError {
		t.Fatalf("Execute = %v", err)
	}
	if c.OpenStatements() != 0 || m.Live("statement") != 0 {
		t.Error("failed Execute left the implicit statement open")
	}
}

func TestFetchFailure(t *testing.T) {
	t.Parallel()

	r, m := fixture(t)
	if _, err := r.Next(); err != nil {
		t.Fatal(err)
	}
	m.Fail(odbctest.OpFetch, errors.New("connection reset"))
	if _, err := r.Next(); odbc.KindOf(err) != odbc.GeneralError {
		t.Errorf("Next = %v, want GeneralError", err)
	}
	if _, err := r.Int32(odbc.Col(0)); !errors.Is(err, odbc.ErrProgramming) {
		t.Errorf("read after failed fetch = %v, want ProgrammingError", err)
	}
}
