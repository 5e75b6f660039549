package odbc_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	odbc "github.com/lebje/go-odbc"
	"github.com/lebje/go-odbc/odbctest"
)

const connStr = "Driver={MockDB};Server=localhost;Database=mock;"

func newEnv(t *testing.T, conf odbctest.Config) (*odbc.Environment, *odbctest.Manager) {
	t.Helper()
	m := odbctest.New(conf)
	env := odbc.NewEnvironment(m)
	t.Cleanup(func() {
		if err := env.Close(); err != nil {
			t.Errorf("closing environment: %v", err)
		}
		if n := m.DoubleFrees(); n != 0 {
			t.Errorf("%d native handles released twice", n)
		}
	})
	return env, m
}

func connect(t *testing.T, conf odbctest.Config) (*odbc.Connection, *odbctest.Manager) {
	t.Helper()
	env, m := newEnv(t, conf)
	c, err := env.Open(odbc.ConnectionString(connStr), 5*time.Second)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return c, m
}

func TestOpen(t *testing.T) {
	t.Parallel()

	conf := odbctest.Config{
		DataSources: []odbc.DataSourceInfo{{Name: "mock", Driver: "MockDB"}},
		DBMSName:    "MockDB",
		DBMSVersion: "12.04.0000",
		Database:    "inventory",
	}

	tt := []struct {
		name   string
		target odbc.Target
	}{
		{"connection string", odbc.ConnectionString(connStr)},
		{"data source", odbc.DataSource("mock", "scott", "tiger")},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			env, m := newEnv(t, conf)
			c, err := env.Open(tc.target, time.Second)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			if !c.Connected() {
				t.Error("not connected after open")
			}
			if c.Target().Password != "" {
				t.Error("Target() leaks the password")
			}
			if c.Timeout() != time.Second {
				t.Errorf("Timeout() = %v", c.Timeout())
			}
			if name, err := c.DBMSName(); err != nil || name != "MockDB" {
				t.Errorf("DBMSName() = %q, %v", name, err)
			}
			if v, err := c.DBMSVersion(); err != nil || v != "12.04.0000" {
				t.Errorf("DBMSVersion() = %q, %v", v, err)
			}
			if db, err := c.DatabaseName(); err != nil || db != "inventory" {
				t.Errorf("DatabaseName() = %q, %v", db, err)
			}
			if env.OpenConnections() != 1 || m.Live("connection") != 1 {
				t.Errorf("open connections = %d, live = %d", env.OpenConnections(), m.Live("connection"))
			}
		})
	}
}

func TestOpenInvalidTarget(t *testing.T) {
	t.Parallel()

	tt := []struct {
		name   string
		target odbc.Target
	}{
		{"empty connection string", odbc.ConnectionString("")},
		{"empty dsn", odbc.DataSource("", "u", "p")},
		{"zero target", odbc.Target{}},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			env, m := newEnv(t, odbctest.Config{})
			_, err := env.Open(tc.target, 0)
			if !errors.Is(err, odbc.ErrProgramming) {
				t.Errorf("open = %v, want ProgrammingError", err)
			}
			if m.Count(odbctest.OpConnect) != 0 {
				t.Error("driver manager called for an invalid target")
			}
		})
	}
}

func TestOpenUnknownDataSource(t *testing.T) {
	t.Parallel()

	env, m := newEnv(t, odbctest.Config{})
	_, err := env.Open(odbc.DataSource("nope", "", ""), 0)

	var e *odbc.Error
	if !errors.As(err, &e) || e.Kind != odbc.DatabaseError || e.SQLState != "IM002" {
		t.Fatalf("open = %v, want DatabaseError IM002", err)
	}
	if m.Count(odbctest.OpConnect) != 1 {
		t.Errorf("connect attempted %d times, want exactly 1", m.Count(odbctest.OpConnect))
	}
	if env.OpenConnections() != 0 {
		t.Error("failed open registered a connection")
	}
}

func TestOpenReleasesHandleOnError(t *testing.T) {
	t.Parallel()

	env, m := newEnv(t, odbctest.Config{})
	m.LeakOnConnectError()
	m.Fail(odbctest.OpConnect, &odbc.DriverError{State: "08001", Message: "unable to connect"})

	_, err := env.Open(odbc.ConnectionString(connStr), 0)
	if odbc.KindOf(err) != odbc.DatabaseError {
		t.Fatalf("open = %v, want DatabaseError", err)
	}
	if m.Live("connection") != 0 || m.Released("connection") != 1 {
		t.Errorf("live = %d, released = %d", m.Live("connection"), m.Released("connection"))
	}
}

func TestOpenNilHandle(t *testing.T) {
	t.Parallel()

	env, m := newEnv(t, odbctest.Config{})
	m.ReturnNil(odbctest.OpConnect)

	_, err := env.Open(odbc.ConnectionString(connStr), 0)
	if !errors.Is(err, odbc.ErrUnexpectedNull) {
		t.Errorf("open = %v, want UnexpectedNull", err)
	}
}

func TestOpenNonDatabaseFailure(t *testing.T) {
	t.Parallel()

	env, m := newEnv(t, odbctest.Config{})
	m.Fail(odbctest.OpConnect, errors.New("out of handles"))

	_, err := env.Open(odbc.ConnectionString(connStr), 0)
	if odbc.KindOf(err) != odbc.GeneralError {
		t.Errorf("open = %v, want GeneralError", err)
	}
}

func TestDBMSNameIsCached(t *testing.T) {
	t.Parallel()

	c, m := connect(t, odbctest.Config{})
	for i := 0; i < 3; i++ {
		if _, err := c.DBMSName(); err != nil {
			t.Fatal(err)
		}
		if _, err := c.DatabaseName(); err != nil {
			t.Fatal(err)
		}
	}
	if n := m.Count(odbctest.OpDBMSName); n != 1 {
		t.Errorf("dbms name queried %d times, want 1", n)
	}
	if n := m.Count(odbctest.OpDatabase); n != 3 {
		t.Errorf("database name queried %d times, want 3", n)
	}
}

func TestDisconnectCascades(t *testing.T) {
	t.Parallel()

	c, m := connect(t, odbctest.Config{})

	s1, err := c.Prepare("SELECT ?", 0)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := c.Prepare("UPDATE t SET a = 1", 0)
	if err != nil {
		t.Fatal(err)
	}
	r, err := s1.ExecuteArgs(0, 7)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if c.Connected() {
		t.Error("still connected")
	}
	for _, kind := range []string{"connection", "statement", "cursor"} {
		if n := m.Live(kind); n != 0 {
			t.Errorf("%d %s handles still live", n, kind)
		}
	}

	// Statements close newest first, each after its own results; the
	// connection goes last.
	var order []string
	for _, call := range m.Calls() {
		switch call.Op {
		case odbctest.OpCloseCursor, odbctest.OpCloseStmt, odbctest.OpDisconnect:
			order = append(order, call.Op+" "+call.Query)
		}
	}
	want := []string{
		"close statement UPDATE t SET a = 1",
		"close cursor ",
		"close statement SELECT ?",
		"disconnect ",
	}
	if len(order) != len(want) {
		t.Fatalf("release order = %q, want %q", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("release order = %q, want %q", order, want)
		}
	}

	// Everything reachable from the closed connection now fails cleanly.
	if _, err := r.Next(); !errors.Is(err, odbc.ErrProgramming) {
		t.Errorf("Next after disconnect = %v", err)
	}
	if err := s2.Bind(0, odbc.Int32(1)); !errors.Is(err, odbc.ErrProgramming) {
		t.Errorf("Bind after disconnect = %v", err)
	}
	if _, err := c.Prepare("SELECT 1", 0); !errors.Is(err, odbc.ErrProgramming) {
		t.Errorf("Prepare after disconnect = %v", err)
	}
	if _, err := c.DBMSName(); !errors.Is(err, odbc.ErrProgramming) {
		t.Errorf("DBMSName after disconnect = %v", err)
	}

	// Closing again is a no-op.
	if err := r.Close(); err != nil {
		t.Error(err)
	}
	if err := s1.Close(); err != nil {
		t.Error(err)
	}
	if err := c.Disconnect(); err != nil {
		t.Error(err)
	}
	if m.Count(odbctest.OpDisconnect) != 1 {
		t.Errorf("disconnect called %d times", m.Count(odbctest.OpDisconnect))
	}
}

func TestEnvironmentCloseDisconnectsAll(t *testing.T) {
	t.Parallel()

	m := odbctest.New(odbctest.Config{})
	env := odbc.NewEnvironment(m)
	for i := 0; i < 3; i++ {
		c, err := env.Open(odbc.ConnectionString(connStr), 0)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := c.Prepare("SELECT 1", 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := env.Close(); err != nil {
		t.Fatal(err)
	}
	if env.OpenConnections() != 0 || m.Live("connection") != 0 || m.Live("statement") != 0 {
		t.Errorf("left open: %d connections, %d statements", m.Live("connection"), m.Live("statement"))
	}
	if m.DoubleFrees() != 0 {
		t.Errorf("%d double frees", m.DoubleFrees())
	}
}

func TestConcurrentConnections(t *testing.T) {
	t.Parallel()

	env, m := newEnv(t, odbctest.Config{})

	const workers, rounds = 8, 200
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				c, err := env.Open(odbc.ConnectionString(connStr), 0)
				if err != nil {
					errs <- err
					return
				}
				if _, err := c.DBMSName(); err != nil {
					errs <- err
					return
				}
				if err := c.Disconnect(); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	if n := env.OpenConnections(); n != 0 {
		t.Errorf("OpenConnections() = %d", n)
	}
	if n := m.Released("connection"); n != workers*rounds {
		t.Errorf("released %d connections, want %d", n, workers*rounds)
	}
}

func TestDisconnectReportsChildErrors(t *testing.T) {
	t.Parallel()

	c, m := connect(t, odbctest.Config{})
	if _, err := c.Prepare("SELECT 1", 0); err != nil {
		t.Fatal(err)
	}
	m.Fail(odbctest.OpCloseStmt, &odbc.DriverError{State: "HY000", Message: "busy"})

	err := c.Disconnect()
	if odbc.KindOf(err) != odbc.DatabaseError {
		t.Errorf("disconnect = %v, want DatabaseError", err)
	}
	if m.Live("connection") != 0 || m.Live("statement") != 0 {
		t.Error("handles kept after a failing child close")
	}
}

func TestJustExecute(t *testing.T) {
	t.Parallel()

	c, m := connect(t, odbctest.Config{})
	if err := c.JustExecute("CREATE TABLE t (a int)", time.Second); err != nil {
		t.Fatal(err)
	}
	if err := c.JustExecute("", 0); !errors.Is(err, odbc.ErrProgramming) {
		t.Errorf("empty query = %v", err)
	}
	m.Fail(odbctest.OpExec, &odbc.DriverError{State: "42S01", Message: "table exists"})
	err := c.JustExecute("CREATE TABLE t (a int)", 0)
	var e *odbc.Error
	if !errors.As(err, &e) || e.SQLState != "42S01" {
		t.Errorf("failing exec = %v, want SQLSTATE 42S01", err)
	}
	if m.Live("statement") != 0 {
		t.Error("JustExecute left a statement behind")
	}
}

func TestListings(t *testing.T) {
	t.Parallel()

	env, _ := newEnv(t, odbctest.Config{
		Drivers:     []odbc.Driver{{Name: "MockDB", Attributes: []odbc.Attribute{{Keyword: "setup", Value: "none"}}}},
		DataSources: []odbc.DataSourceInfo{{Name: "mock", Driver: "MockDB"}},
	})
	drivers, err := env.Drivers()
	if err != nil || len(drivers) != 1 || drivers[0].Name != "MockDB" {
		t.Errorf("Drivers() = %v, %v", drivers, err)
	}
	sources, err := env.DataSources()
	if err != nil || len(sources) != 1 || sources[0].Driver != "MockDB" {
		t.Errorf("DataSources() = %v, %v", sources, err)
	}
}
