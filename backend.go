package odbc

import "time"

// DriverManager is the native driver manager this package drives. Every
// method is a blocking call; timeouts are forwarded to the driver.
type DriverManager interface {
	ListDrivers() ([]Driver, error)
	ListDataSources() ([]DataSourceInfo, error)

	// Connect returns a live connection. It must not return a connection
	// together with a non-nil error unless the connection still needs to be
	// released by the caller.
	Connect(target Target, timeout time.Duration) (NativeConn, error)
}

// NativeConn is one live session with a data source.
type NativeConn interface {
	Connected() bool
	DBMSName() (string, error)
	DBMSVersion() (string, error)
	DatabaseName() (string, error)

	Prepare(query string, timeout time.Duration) (NativeStmt, error)

	// Exec runs query without parameters and without producing a cursor.
	// Drivers accept several statements separated by ';' where the data
	// source supports it.
	Exec(query string, timeout time.Duration) error

	Disconnect() error
}

// NativeStmt is a prepared statement.
type NativeStmt interface {
	// NumParams returns the number of parameter markers, or -1 if unknown.
	NumParams() int

	// Bind binds v to the 0-based parameter index. Implementations must copy
	// string and byte payloads they keep beyond the call.
	Bind(index int, v Value) error

	Execute(timeout time.Duration) (NativeCursor, error)
	Close() error
}

// NativeCursor is the row cursor produced by one execution.
type NativeCursor interface {
	Columns() []ColumnDesc

	// Fetch moves the cursor and reports whether it landed on a row.
	// offset is used by FetchAbsolute and FetchRelative.
	Fetch(o Orientation, offset int64) (bool, error)

	// Position returns the 1-based current row, 0 before the first row.
	Position() int64
	AtEnd() bool

	// RowCount returns the number of rows, or -1 if the driver cannot tell.
	RowCount() int64

	// AffectedRows returns the rows changed by DML, or -1 if not applicable.
	AffectedRows() int64

	// Cell returns the value of column i in the current row. SQL NULL is
	// reported as a KindNull value.
	Cell(i int) (Value, error)

	Close() error
}
