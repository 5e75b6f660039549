package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	odbc "github.com/lebje/go-odbc"
	"github.com/lebje/go-odbc/internal/rowset"
	"github.com/lebje/go-odbc/internal/sqltext"
)

// pgxConn is a native PostgreSQL connection over pgx.
type pgxConn struct {
	conn *pgx.Conn
	seq  int
}

var _ odbc.NativeConn = (*pgxConn)(nil)

func openPgx(ctx context.Context, attrs Attributes) (odbc.NativeConn, error) {
	cfg, err := pgx.ParseConfig(pgConnString(attrs))
	if err != nil {
		return nil, &odbc.DriverError{State: "08001", Message: err.Error()}
	}
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, pgxError(err)
	}
	return &pgxConn{conn: conn}, nil
}

// pgxError keeps server errors, which carry their own SQLSTATE, and maps
// connection failures to 08001.
func pgxError(err error) error {
	if err == nil {
		return nil
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe
	}
	if pgconn.Timeout(err) {
		return &odbc.DriverError{State: "HYT00", Message: err.Error()}
	}
	var ce *pgconn.ConnectError
	if errors.As(err, &ce) {
		return &odbc.DriverError{State: "08001", Message: err.Error()}
	}
	return err
}

func (c *pgxConn) Connected() bool {
	return c.conn != nil && !c.conn.IsClosed()
}

func (c *pgxConn) DBMSName() (string, error) { return "PostgreSQL", nil }

func (c *pgxConn) DBMSVersion() (string, error) {
	if c.conn == nil {
		return "", errDisconnected
	}
	return c.conn.PgConn().ParameterStatus("server_version"), nil
}

func (c *pgxConn) DatabaseName() (string, error) {
	if c.conn == nil {
		return "", errDisconnected
	}
	return c.conn.Config().Database, nil
}

func (c *pgxConn) Prepare(query string, timeout time.Duration) (odbc.NativeStmt, error) {
	if c.conn == nil {
		return nil, errDisconnected
	}
	ctx, cancel := withTimeout(timeout)
	defer cancel()

	c.seq++
	name := fmt.Sprintf("odbc_stmt_%d", c.seq)
	sd, err := c.conn.Prepare(ctx, name, sqltext.Numbered(query))
	if err != nil {
		return nil, pgxError(err)
	}
	n := len(sd.ParamOIDs)
	return &pgxStmt{
		conn:  c,
		name:  name,
		args:  make([]any, n),
		bound: make([]bool, n),
	}, nil
}

// Exec runs query over the simple protocol so it may hold several
// statements.
func (c *pgxConn) Exec(query string, timeout time.Duration) error {
	if c.conn == nil {
		return errDisconnected
	}
	ctx, cancel := withTimeout(timeout)
	defer cancel()
	if _, err := c.conn.Exec(ctx, query); err != nil {
		return pgxError(err)
	}
	return nil
}

func (c *pgxConn) Disconnect() error {
	if c.conn == nil {
		return nil
	}
	ctx, cancel := withTimeout(5 * time.Second)
	defer cancel()
	err := c.conn.Close(ctx)
	c.conn = nil
	return err
}

type pgxStmt struct {
	conn  *pgxConn
	name  string
	args  []any
	bound []bool
}

var _ odbc.NativeStmt = (*pgxStmt)(nil)

func (s *pgxStmt) NumParams() int { return len(s.args) }

func (s *pgxStmt) Bind(index int, v odbc.Value) error {
	if index < 0 || index >= len(s.args) {
		return &odbc.DriverError{State: "07009", Message: fmt.Sprintf("invalid parameter number %d", index)}
	}
	s.args[index] = pgArg(v)
	s.bound[index] = true
	return nil
}

func pgArg(v odbc.Value) any {
	switch v.Kind() {
	case odbc.KindInt16:
		return int16(v.Int())
	case odbc.KindInt32, odbc.KindUint16:
		return int32(v.Int())
	case odbc.KindFloat32:
		return float32(v.Float())
	case odbc.KindDate:
		d := v.Date()
		return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	case odbc.KindTime:
		t := v.Time()
		us := (int64(t.Hour)*3600 + int64(t.Minute)*60 + int64(t.Second)) * 1e6
		return pgtype.Time{Microseconds: us, Valid: true}
	}
	return argOf(v)
}

// Execute runs the prepared statement and reads every row into a
// scrollable rowset.
func (s *pgxStmt) Execute(timeout time.Duration) (odbc.NativeCursor, error) {
	c := s.conn.conn
	if c == nil || s.name == "" {
		return nil, errDisconnected
	}
	ctx, cancel := withTimeout(timeout)
	defer cancel()

	args := make([]any, len(s.args))
	for i := range s.args {
		if s.bound[i] {
			args[i] = s.args[i]
		} else {
			args[i] = []byte{}
		}
		s.args[i], s.bound[i] = nil, false
	}

	rows, err := c.Query(ctx, s.name, args...)
	if err != nil {
		return nil, pgxError(err)
	}
	defer rows.Close()

	tm := c.TypeMap()
	fields := rows.FieldDescriptions()
	cols := make([]odbc.ColumnDesc, len(fields))
	for i, f := range fields {
		name := fmt.Sprintf("oid%d", f.DataTypeOID)
		if t, ok := tm.TypeForOID(f.DataTypeOID); ok {
			name = t.Name
		}
		cols[i] = odbc.ColumnDesc{Name: f.Name, Type: sqlType(name), TypeName: name, Nullable: true}
		if f.DataTypeSize > 0 {
			cols[i].Size = int(f.DataTypeSize)
		}
	}

	var data [][]odbc.Value
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, pgxError(err)
		}
		row := make([]odbc.Value, len(vals))
		for i, v := range vals {
			if row[i], err = pgxValue(cols[i].Type, v); err != nil {
				return nil, err
			}
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, pgxError(err)
	}
	if len(fields) == 0 {
		return rowset.New(nil, nil, rowset.Affected(rows.CommandTag().RowsAffected())), nil
	}
	return rowset.New(cols, data), nil
}

// pgxValue converts the pgtype values that cellValue does not know.
func pgxValue(t odbc.DataType, v any) (odbc.Value, error) {
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid {
			return odbc.Null(), nil
		}
		dv, err := x.Value()
		if err != nil {
			return odbc.Value{}, err
		}
		s, _ := dv.(string)
		if d, err := canonicalDecimal(s); err == nil {
			s = d
		}
		return odbc.String(s), nil
	case pgtype.Time:
		if !x.Valid {
			return odbc.Null(), nil
		}
		sec := x.Microseconds / 1e6
		return odbc.TimeValue(odbc.Time{Hour: int(sec / 3600), Minute: int(sec / 60 % 60), Second: int(sec % 60)}), nil
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return odbc.Value{}, err
		}
		return odbc.String(string(b)), nil
	}
	return cellValue(t, v)
}

// Close deallocates the server-side statement.
func (s *pgxStmt) Close() error {
	if s.name == "" {
		return nil
	}
	name := s.name
	s.name = ""
	c := s.conn.conn
	if c == nil {
		return nil
	}
	ctx, cancel := withTimeout(5 * time.Second)
	defer cancel()
	return pgxError(c.Deallocate(ctx, name))
}
