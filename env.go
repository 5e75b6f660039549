package odbc

import (
	"time"
)

// ConnectMode selects how a Target describes the data source.
type ConnectMode int

const (
	// ModeConnectionString passes a raw ODBC connection string, e.g.
	//
	//	Driver={PostgreSQL};Server=localhost;Port=5432;Database=postgres;UID=postgres;
	ModeConnectionString ConnectMode = iota + 1

	// ModeDataSource connects through a data source name plus credentials.
	ModeDataSource
)

// Target describes the data source a Connection is opened against.
type Target struct {
	Mode ConnectMode

	// ConnectionString is used with ModeConnectionString.
	ConnectionString string

	// DSN, Username and Password are used with ModeDataSource.
	DSN      string
	Username string
	Password string
}

// ConnectionString returns a Target for a raw ODBC connection string.
func ConnectionString(s string) Target {
	return Target{Mode: ModeConnectionString, ConnectionString: s}
}

// DataSource returns a Target for a data source name and credentials.
func DataSource(dsn, username, password string) Target {
	return Target{Mode: ModeDataSource, DSN: dsn, Username: username, Password: password}
}

func (t Target) String() string {
	switch t.Mode {
	case ModeConnectionString:
		return "connection string"
	case ModeDataSource:
		return "data source " + t.DSN
	}
	return "invalid target"
}

// Environment owns the driver manager and every Connection opened through
// it. Closing the Environment disconnects all of them.
type Environment struct {
	dm    DriverManager
	conns registry
}

// NewEnvironment returns an Environment backed by dm.
func NewEnvironment(dm DriverManager) *Environment {
	return &Environment{dm: dm}
}

// Drivers lists the drivers known to the driver manager.
func (e *Environment) Drivers() ([]Driver, error) {
	d, err := e.dm.ListDrivers()
	return d, translate("list drivers", err)
}

// DataSources lists the data sources known to the driver manager.
func (e *Environment) DataSources() ([]DataSourceInfo, error) {
	d, err := e.dm.ListDataSources()
	return d, translate("list data sources", err)
}

// Open connects to target. The returned Connection is fully connected; on
// failure no native handle is left behind. Failures are never retried.
func (e *Environment) Open(target Target, timeout time.Duration) (*Connection, error) {
	const op = "open"
	switch target.Mode {
	case ModeConnectionString:
		if target.ConnectionString == "" {
			return nil, newError(ProgrammingError, op, "empty connection string")
		}
	case ModeDataSource:
		if target.DSN == "" {
			return nil, newError(ProgrammingError, op, "empty data source name")
		}
	default:
		return nil, newError(ProgrammingError, op, "invalid connection mode %d", target.Mode)
	}

	nc, err := e.dm.Connect(target, timeout)
	if err != nil {
		if nc != nil {
			_ = nc.Disconnect()
		}
		return nil, translate(op, err)
	}
	if nc == nil {
		return nil, unexpectedNull(op, "connection")
	}

	c := &Connection{
		env:     e,
		target:  target,
		timeout: timeout,
		h:       newHandle("connection", nc, NativeConn.Disconnect),
	}
	e.conns.add(c)
	return c, nil
}

// OpenConnections returns the number of connections not yet disconnected.
func (e *Environment) OpenConnections() int { return e.conns.len() }

// Close disconnects every open Connection.
func (e *Environment) Close() error {
	return e.conns.closeAll()
}
