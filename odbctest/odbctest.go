package odbctest

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	odbc "github.com/lebje/go-odbc"
	"github.com/lebje/go-odbc/internal/rowset"
	"github.com/lebje/go-odbc/internal/sqltext"
)

// Operations that accept injected failures and nil handles.
const (
	OpConnect     = "connect"
	OpDisconnect  = "disconnect"
	OpDBMSName    = "dbms name"
	OpDBMSVersion = "dbms version"
	OpDatabase    = "database name"
	OpPrepare     = "prepare"
	OpExec        = "exec"
	OpBind        = "bind"
	OpExecute     = "execute"
	OpCloseStmt   = "close statement"
	OpFetch       = "fetch"
	OpCell        = "cell"
	OpCloseCursor = "close cursor"
)

// Rowset is the canned result of a query.
type Rowset struct {
	// Columns describes the result columns. A nil Columns makes the result
	// a DML result.
	Columns []odbc.ColumnDesc
	Rows [][]odbc.Value
	// Affected is reported by AffectedRows. Zero means unknown (-1) unless
	// Columns is nil.
	Affected int64
	// ForwardOnly rejects scrolling with SQLSTATE HY106.
	ForwardOnly bool
	// HideRowCount makes RowCount unknown.
	HideRowCount bool
}

// Call captures one native call observed by the mock.
type Call struct {
	Op string
	// Query is the SQL text for prepare, exec and execute.
	Query string
	// Index is the parameter or column index for bind and cell.
	Index int
	// Value is the bound value for bind.
	Value odbc.Value
	// Timeout is the timeout passed with the call.
	Timeout time.Duration
}

// Config controls construction of a Manager.
type Config struct {
	// Drivers is returned by ListDrivers.
	Drivers []odbc.Driver
	// DataSources is returned by ListDataSources. Connecting in data source
	// mode to a name not listed fails with SQLSTATE IM002.
	DataSources []odbc.DataSourceInfo

	// DBMSName, DBMSVersion and Database are reported by connections.
	DBMSName    string
	DBMSVersion string
	Database    string

	// Queries maps SQL text to its result. Queries not listed echo their
	// bound parameters as a single row with columns p0, p1, ...; without
	// parameters they succeed as DML with no affected rows.
	Queries map[string]Rowset
}

// Manager implements odbc.DriverManager in memory. It is safe for
// concurrent use.
type Manager struct {
	conf Config

	mu       sync.Mutex
	calls    []Call
	fail     map[string]error
	nils     map[string]bool
	leak     bool
	live     map[string]int
	released map[string]int
	double   int
}

var _ odbc.DriverManager = (*Manager)(nil)

func New(conf Config) *Manager {
	if conf.DBMSName == "" {
		conf.DBMSName = "MockDB"
	}
	if conf.DBMSVersion == "" {
		conf.DBMSVersion = "01.00.0000"
	}
	if conf.Database == "" {
		conf.Database = "mock"
	}
	return &Manager{
		conf:     conf,
		fail:     make(map[string]error),
		nils:     make(map[string]bool),
		live:     make(map[string]int),
		released: make(map[string]int),
	}
}

// Fail makes every later call of op return err. A nil err clears it.
func (m *Manager) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = err
}

// ReturnNil makes connect, prepare or execute succeed without a handle.
func (m *Manager) ReturnNil(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nils[op] = true
}

// LeakOnConnectError makes a failing connect hand out a connection along
// with its error, as some drivers do.
func (m *Manager) LeakOnConnectError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leak = true
}

// Calls returns a copy of the recorded calls.
func (m *Manager) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Count returns how many times op was called.
func (m *Manager) Count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Live returns the number of unreleased native handles of a kind:
// "connection", "statement" or "cursor".
func (m *Manager) Live(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live[kind]
}

// Released returns the number of native handles of a kind released so far.
func (m *Manager) Released(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released[kind]
}

// DoubleFrees returns how many times an already released handle was
// released again.
func (m *Manager) DoubleFrees() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.double
}

// record logs c and reports whether a nil handle was requested for its op
// along with the failure injected for it, if any.
func (m *Manager) record(c Call) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	return m.nils[c.Op], m.fail[c.Op]
}

func (m *Manager) acquire(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live[kind]++
}

// release reports false for a double free.
func (m *Manager) release(kind string, done *bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if *done {
		m.double++
		return false
	}
	*done = true
	m.live[kind]--
	m.released[kind]++
	return true
}

func (m *Manager) ListDrivers() ([]odbc.Driver, error) {
	return m.conf.Drivers, nil
}

func (m *Manager) ListDataSources() ([]odbc.DataSourceInfo, error) {
	return m.conf.DataSources, nil
}

func (m *Manager) Connect(target odbc.Target, timeout time.Duration) (odbc.NativeConn, error) {
	null, err := m.record(Call{Op: OpConnect, Query: target.String(), Timeout: timeout})
	if null {
		return nil, nil
	}
	if err == nil && target.Mode == odbc.ModeDataSource && !m.knownDSN(target.DSN) {
		err = &odbc.DriverError{State: "IM002", Message: fmt.Sprintf("data source name %q not found", target.DSN)}
	}
	if err != nil {
		m.mu.Lock()
		leak := m.leak
		m.mu.Unlock()
		if leak {
			m.acquire("connection")
			return &conn{m: m, live: true}, err
		}
		return nil, err
	}
	m.acquire("connection")
	return &conn{m: m, live: true}, nil
}

func (m *Manager) knownDSN(name string) bool {
	for _, ds := range m.conf.DataSources {
		if strings.EqualFold(ds.Name, name) {
			return true
		}
	}
	return false
}

type conn struct {
	m        *Manager
	live     bool
	released bool
}

func (c *conn) Connected() bool { return c.live }

func (c *conn) DBMSName() (string, error) {
	if _, err := c.m.record(Call{Op: OpDBMSName}); err != nil {
		return "", err
	}
	return c.m.conf.DBMSName, nil
}

func (c *conn) DBMSVersion() (string, error) {
	if _, err := c.m.record(Call{Op: OpDBMSVersion}); err != nil {
		return "", err
	}
	return c.m.conf.DBMSVersion, nil
}

func (c *conn) DatabaseName() (string, error) {
	if _, err := c.m.record(Call{Op: OpDatabase}); err != nil {
		return "", err
	}
	return c.m.conf.Database, nil
}

func (c *conn) Prepare(query string, timeout time.Duration) (odbc.NativeStmt, error) {
	null, err := c.m.record(Call{Op: OpPrepare, Query: query, Timeout: timeout})
	if err != nil {
		return nil, err
	}
	if null {
		return nil, nil
	}
	n := sqltext.CountMarkers(query)
	c.m.acquire("statement")
	return &stmt{m: c.m, query: query, params: make([]odbc.Value, n), bound: make([]bool, n)}, nil
}

func (c *conn) Exec(query string, timeout time.Duration) error {
	_, err := c.m.record(Call{Op: OpExec, Query: query, Timeout: timeout})
	return err
}

func (c *conn) Disconnect() error {
	_, err := c.m.record(Call{Op: OpDisconnect})
	c.live = false
	c.m.release("connection", &c.released)
	return err
}

type stmt struct {
	m        *Manager
	query    string
	params   []odbc.Value
	bound    []bool
	released bool
}

func (s *stmt) NumParams() int { return len(s.params) }

func (s *stmt) Bind(index int, v odbc.Value) error {
	if _, err := s.m.record(Call{Op: OpBind, Index: index, Value: v}); err != nil {
		return err
	}
	if index < 0 || index >= len(s.params) {
		return &odbc.DriverError{State: "07009", Message: "invalid parameter number " + strconv.Itoa(index)}
	}
	s.params[index] = v
	s.bound[index] = true
	return nil
}

func (s *stmt) Execute(timeout time.Duration) (odbc.NativeCursor, error) {
	null, err := s.m.record(Call{Op: OpExecute, Query: s.query, Timeout: timeout})
	if err != nil {
		return nil, err
	}
	if null {
		return nil, nil
	}

	rs, ok := s.m.conf.Queries[s.query]
	if !ok {
		rs = s.echo()
	}
	var opts []rowset.Option
	switch {
	case rs.Columns == nil:
		opts = append(opts, rowset.Affected(rs.Affected))
	case rs.Affected != 0:
		opts = append(opts, rowset.Affected(rs.Affected))
	}
	if rs.ForwardOnly {
		opts = append(opts, rowset.ForwardOnly())
	}
	if rs.HideRowCount {
		opts = append(opts, rowset.HideRowCount())
	}
	s.m.acquire("cursor")
	return &cursor{Set: rowset.New(rs.Columns, rs.Rows, opts...), m: s.m}, nil
}

// echo returns the bound parameters as one row. Slots satisfied without a
// native bind read as empty binary data.
func (s *stmt) echo() Rowset {
	if len(s.params) == 0 {
		return Rowset{}
	}
	cols := make([]odbc.ColumnDesc, len(s.params))
	row := make([]odbc.Value, len(s.params))
	for i, v := range s.params {
		if !s.bound[i] {
			v = odbc.Bytes(nil)
		}
		row[i] = v
		cols[i] = odbc.ColumnDesc{Name: "p" + strconv.Itoa(i), Type: dataType(v.Kind()), Nullable: true}
	}
	return Rowset{Columns: cols, Rows: [][]odbc.Value{row}}
}

func dataType(k odbc.Kind) odbc.DataType {
	switch k {
	case odbc.KindInt16, odbc.KindUint16:
		return odbc.TypeSmallInt
	case odbc.KindInt32:
		return odbc.TypeInteger
	case odbc.KindInt64:
		return odbc.TypeBigInt
	case odbc.KindFloat32:
		return odbc.TypeReal
	case odbc.KindFloat64:
		return odbc.TypeDouble
	case odbc.KindBool:
		return odbc.TypeBit
	case odbc.KindDate:
		return odbc.TypeDate
	case odbc.KindTime:
		return odbc.TypeTime
	case odbc.KindTimestamp:
		return odbc.TypeTimestamp
	case odbc.KindBytes:
		return odbc.TypeVarBinary
	}
	return odbc.TypeVarChar
}

func (s *stmt) Close() error {
	_, err := s.m.record(Call{Op: OpCloseStmt, Query: s.query})
	s.m.release("statement", &s.released)
	return err
}

type cursor struct {
	*rowset.Set
	m        *Manager
	released bool
}

func (c *cursor) Fetch(o odbc.Orientation, offset int64) (bool, error) {
	if _, err := c.m.record(Call{Op: OpFetch, Index: int(o)}); err != nil {
		return false, err
	}
	return c.Set.Fetch(o, offset)
}

func (c *cursor) Cell(i int) (odbc.Value, error) {
	if _, err := c.m.record(Call{Op: OpCell, Index: i}); err != nil {
		return odbc.Value{}, err
	}
	return c.Set.Cell(i)
}

func (c *cursor) Close() error {
	_, err := c.m.record(Call{Op: OpCloseCursor})
	c.m.release("cursor", &c.released)
	if cerr := c.Set.Close(); err == nil {
		err = cerr
	}
	return err
}
