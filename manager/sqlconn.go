package manager

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	odbc "github.com/lebje/go-odbc"
	"github.com/lebje/go-odbc/internal/rowset"
	"github.com/lebje/go-odbc/internal/sqltext"
)

// dialect holds what differs between the database/sql backed drivers.
type dialect struct {
	name          string
	versionQuery  string
	databaseQuery string

	// numbered rewrites '?' markers to $1, $2, ...
	numbered bool

	// driverError turns a driver specific error into an *odbc.DriverError,
	// or returns err unchanged.
	driverError func(err error) error
}

// sqlConn is a native connection over one pinned database/sql connection.
type sqlConn struct {
	db      *sql.DB
	conn    *sql.Conn
	dialect *dialect
}

var _ odbc.NativeConn = (*sqlConn)(nil)

// openSQL opens driverName with dsn and pins a single connection so session
// state survives between statements.
func openSQL(ctx context.Context, driverName, dsn string, d *dialect) (*sqlConn, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, d.driverError(err)
	}
	db.SetMaxOpenConns(1)
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, d.driverError(err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return nil, d.driverError(err)
	}
	return &sqlConn{db: db, conn: conn, dialect: d}, nil
}

func withTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}

func (c *sqlConn) Connected() bool {
	if c.conn == nil {
		return false
	}
	ctx, cancel := withTimeout(5 * time.Second)
	defer cancel()
	return c.conn.PingContext(ctx) == nil
}

func (c *sqlConn) DBMSName() (string, error) { return c.dialect.name, nil }

func (c *sqlConn) DBMSVersion() (string, error) { return c.scalar(c.dialect.versionQuery) }

func (c *sqlConn) DatabaseName() (string, error) { return c.scalar(c.dialect.databaseQuery) }

func (c *sqlConn) scalar(query string) (string, error) {
	if c.conn == nil {
		return "", errDisconnected
	}
	var s sql.NullString
	if err := c.conn.QueryRowContext(context.Background(), query).Scan(&s); err != nil {
		return "", c.dialect.driverError(err)
	}
	return s.String, nil
}

func (c *sqlConn) text(query string) string {
	if c.dialect.numbered {
		return sqltext.Numbered(query)
	}
	return query
}

func (c *sqlConn) Prepare(query string, timeout time.Duration) (odbc.NativeStmt, error) {
	if c.conn == nil {
		return nil, errDisconnected
	}
	ctx, cancel := withTimeout(timeout)
	defer cancel()
	st, err := c.conn.PrepareContext(ctx, c.text(query))
	if err != nil {
		return nil, c.dialect.driverError(err)
	}
	n := sqltext.CountMarkers(query)
	return &sqlStmt{
		conn:  c,
		stmt:  st,
		query: query,
		args:  make([]any, n),
		bound: make([]bool, n),
	}, nil
}

func (c *sqlConn) Exec(query string, timeout time.Duration) error {
	if c.conn == nil {
		return errDisconnected
	}
	ctx, cancel := withTimeout(timeout)
	defer cancel()
	if _, err := c.conn.ExecContext(ctx, query); err != nil {
		return c.dialect.driverError(err)
	}
	return nil
}

func (c *sqlConn) Disconnect() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	if cerr := c.db.Close(); err == nil {
		err = cerr
	}
	c.conn, c.db = nil, nil
	if err != nil {
		return c.dialect.driverError(err)
	}
	return nil
}

type sqlStmt struct {
	conn  *sqlConn
	stmt  *sql.Stmt
	query string
	args  []any
	bound []bool
}

var _ odbc.NativeStmt = (*sqlStmt)(nil)

func (s *sqlStmt) NumParams() int { return len(s.args) }

func (s *sqlStmt) Bind(index int, v odbc.Value) error {
	if index < 0 || index >= len(s.args) {
		return &odbc.DriverError{State: "07009", Message: fmt.Sprintf("invalid parameter number %d", index)}
	}
	s.args[index] = argOf(v)
	s.bound[index] = true
	return nil
}

// Execute runs the statement. Row-returning statements are read completely
// into a scrollable rowset; the rest report their affected row count.
func (s *sqlStmt) Execute(timeout time.Duration) (odbc.NativeCursor, error) {
	if s.stmt == nil {
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
	}
	defer s.clear()

	if !sqltext.ReturnsRows(s.query) {
		res, err := s.stmt.ExecContext(ctx, args...)
		if err != nil {
			return nil, s.conn.dialect.driverError(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = -1
		}
		return rowset.New(nil, nil, rowset.Affected(n)), nil
	}

	rows, err := s.stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, s.conn.dialect.driverError(err)
	}
	defer rows.Close()
	set, err := readRows(rows)
	if err != nil {
		return nil, s.conn.dialect.driverError(err)
	}
	return set, nil
}

func (s *sqlStmt) clear() {
	for i := range s.args {
		s.args[i] = nil
		s.bound[i] = false
	}
}

func (s *sqlStmt) Close() error {
	if s.stmt == nil {
		return nil
	}
	err := s.stmt.Close()
	s.stmt = nil
	if err != nil {
		return s.conn.dialect.driverError(err)
	}
	return nil
}

// readRows drains rows into a rowset.
func readRows(rows *sql.Rows) (*rowset.Set, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	cols := make([]odbc.ColumnDesc, len(types))
	for i, ct := range types {
		nullable, ok := ct.Nullable()
		size, _ := ct.Length()
		cols[i] = odbc.ColumnDesc{
			Name:     ct.Name(),
			Type:     sqlType(ct.DatabaseTypeName()),
			TypeName: ct.DatabaseTypeName(),
			Size:     int(size),
			Nullable: nullable || !ok,
		}
	}

	var data [][]odbc.Value
	raw := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make([]odbc.Value, len(cols))
		for i, v := range raw {
			if row[i], err = cellValue(cols[i].Type, v); err != nil {
				return nil, err
			}
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rowset.New(cols, data), nil
}

var errDisconnected = &odbc.DriverError{State: "08003", Message: "connection not open"}
