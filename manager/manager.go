// Package manager is a pure-Go ODBC driver manager. It resolves data source
// names, parses connection strings and routes them to the registered
// drivers: PostgreSQL through pgx or lib/pq, MySQL, and SQLite.
package manager

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	odbc "github.com/lebje/go-odbc"
)

// Opener connects a driver with the resolved connection attributes. ctx
// carries the login timeout.
type Opener func(ctx context.Context, attrs Attributes) (odbc.NativeConn, error)

// DataSourceConf configures one data source name.
type DataSourceConf struct {
	Name       string            `json:"name"`
	Driver     string            `json:"driver"`
	Attributes map[string]string `json:"attributes"`
}

// Conf configures a Manager.
type Conf struct {
	DataSources []DataSourceConf `json:"data_sources"`

	// Logger receives connect and disconnect events. Defaults to the
	// standard logger.
	Logger *log.Logger `json:"-"`

	// NoBuiltins skips registering the built-in drivers.
	NoBuiltins bool `json:"no_builtins"`
}

type driver struct {
	name  string
	attrs Attributes
	open  Opener
}

type dataSource struct {
	name   string
	driver string
	attrs  Attributes
}

// Manager implements odbc.DriverManager.
type Manager struct {
	log *log.Logger

	mu      sync.RWMutex
	drivers map[string]*driver
	sources map[string]*dataSource
}

var _ odbc.DriverManager = (*Manager)(nil)

// New returns a Manager with the built-in drivers and the configured data
// sources.
func New(conf *Conf) (*Manager, error) {
	if conf == nil {
		conf = &Conf{}
	}
	m := &Manager{
		log:     conf.Logger,
		drivers: make(map[string]*driver),
		sources: make(map[string]*dataSource),
	}
	if m.log == nil {
		m.log = log.Default()
	}
	if !conf.NoBuiltins {
		registerBuiltins(m)
	}
	for _, ds := range conf.DataSources {
		if err := m.AddDataSource(ds); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Register adds or replaces the driver called name. Driver names are
// matched case-insensitively.
func (m *Manager) Register(name string, attrs Attributes, open Opener) {
	if attrs == nil {
		attrs = make(Attributes)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[strings.ToLower(name)] = &driver{name: name, attrs: attrs.clone(), open: open}
}

// AddDataSource adds or replaces a data source name.
func (m *Manager) AddDataSource(ds DataSourceConf) error {
	if ds.Name == "" {
		return fmt.Errorf("data source without a name")
	}
	if ds.Driver == "" {
		return fmt.Errorf("data source %q has no driver", ds.Name)
	}
	attrs := make(Attributes, len(ds.Attributes))
	for k, v := range ds.Attributes {
		attrs.Set(k, v)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[strings.ToLower(ds.Name)] = &dataSource{name: ds.Name, driver: ds.Driver, attrs: attrs}
	return nil
}

// ListDrivers returns the registered drivers sorted by name.
func (m *Manager) ListDrivers() ([]odbc.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]odbc.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		out = append(out, odbc.Driver{Name: d.name, Attributes: d.attrs.list()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListDataSources returns the configured data sources sorted by name.
func (m *Manager) ListDataSources() ([]odbc.DataSourceInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]odbc.DataSourceInfo, 0, len(m.sources))
	for _, ds := range m.sources {
		out = append(out, odbc.DataSourceInfo{Name: ds.name, Driver: ds.driver})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// resolve turns target into a driver and the full attribute set the driver
// is opened with. Attributes given in a connection string override those of
// the data source it names.
func (m *Manager) resolve(target odbc.Target) (*driver, Attributes, error) {
	attrs := make(Attributes)
	switch target.Mode {
	case odbc.ModeConnectionString:
		cs, err := ParseConnString(target.ConnectionString)
		if err != nil {
			return nil, nil, &odbc.DriverError{State: "08001", Message: err.Error()}
		}
		if dsn := cs.Get("DSN"); dsn != "" && cs.Get("DRIVER") == "" {
			ds, err := m.dataSource(dsn)
			if err != nil {
				return nil, nil, err
			}
			attrs.merge(ds.attrs)
			attrs.Set("driver", ds.driver)
		}
		attrs.merge(cs)
	case odbc.ModeDataSource:
		ds, err := m.dataSource(target.DSN)
		if err != nil {
			return nil, nil, err
		}
		attrs.merge(ds.attrs)
		attrs.Set("driver", ds.driver)
		attrs.Set("dsn", ds.name)
		if target.Username != "" {
			attrs.Set("uid", target.Username)
		}
		if target.Password != "" {
			attrs.Set("pwd", target.Password)
		}
	default:
		return nil, nil, &odbc.DriverError{State: "HY110", Message: fmt.Sprintf("invalid connection mode %d", target.Mode)}
	}

	name := attrs.Get("DRIVER")
	if name == "" {
		return nil, nil, &odbc.DriverError{State: "IM002", Message: "data source name not found and no default driver specified"}
	}
	m.mu.RLock()
	d, ok := m.drivers[strings.ToLower(name)]
	m.mu.RUnlock()
	if !ok {
		return nil, nil, &odbc.DriverError{State: "IM002", Message: fmt.Sprintf("driver %q is not registered", name)}
	}
	return d, attrs, nil
}

func (m *Manager) dataSource(name string) (*dataSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds, ok := m.sources[strings.ToLower(name)]
	if !ok {
		return nil, &odbc.DriverError{State: "IM002", Message: fmt.Sprintf("data source name %q not found", name)}
	}
	return ds, nil
}

// Connect resolves target and opens the driver within timeout. A zero
// timeout waits indefinitely.
func (m *Manager) Connect(target odbc.Target, timeout time.Duration) (odbc.NativeConn, error) {
	d, attrs, err := m.resolve(target)
	if err != nil {
		m.log.Printf("[WARN] cannot resolve %s: %v", target, err)
		return nil, err
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	nc, err := d.open(ctx, attrs)
	if err != nil {
		m.log.Printf("[WARN] `%s` connect failed (%s): %v", d.name, attrs, err)
		return nil, err
	}
	m.log.Printf("[INFO] `%s` connected (%s)", d.name, attrs)
	return &loggedConn{NativeConn: nc, driver: d.name, log: m.log}, nil
}

// loggedConn logs the end of the session.
type loggedConn struct {
	odbc.NativeConn
	driver string
	log    *log.Logger
}

func (c *loggedConn) Disconnect() error {
	if err := c.NativeConn.Disconnect(); err != nil {
		c.log.Printf("[WARN] Failed to disconnect `%s`: %v", c.driver, err)
		return err
	}
	c.log.Printf("[INFO] `%s` disconnected", c.driver)
	return nil
}
