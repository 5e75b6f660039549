package odbc

import (
	"errors"
	"time"
)

// Connection is one live session with a data source. It is not safe for
// concurrent use; independent Connections may be used from different
// goroutines.
type Connection struct {
	env     *Environment
	target  Target
	timeout time.Duration
	h       handle[NativeConn]
	stmts   registry

	dbmsName    string
	dbmsVersion string
}

// Target returns the target the connection was opened with, without the
// password.
func (c *Connection) Target() Target {
	t := c.target
	t.Password = ""
	return t
}

// Timeout returns the login timeout the connection was opened with.
func (c *Connection) Timeout() time.Duration { return c.timeout }

// Connected reports whether the session is live.
func (c *Connection) Connected() bool {
	nc, err := c.h.get("connected")
	if err != nil {
		return false
	}
	return nc.Connected()
}

// DBMSName returns the name of the database product.
func (c *Connection) DBMSName() (string, error) {
	if c.dbmsName != "" && c.h.alive() {
		return c.dbmsName, nil
	}
	nc, err := c.h.get("dbms name")
	if err != nil {
		return "", err
	}
	name, err := nc.DBMSName()
	if err != nil {
		return "", translate("dbms name", err)
	}
	c.dbmsName = name
	return name, nil
}

// DBMSVersion returns the version of the database product.
func (c *Connection) DBMSVersion() (string, error) {
	if c.dbmsVersion != "" && c.h.alive() {
		return c.dbmsVersion, nil
	}
	nc, err := c.h.get("dbms version")
	if err != nil {
		return "", err
	}
	v, err := nc.DBMSVersion()
	if err != nil {
		return "", translate("dbms version", err)
	}
	c.dbmsVersion = v
	return v, nil
}

// DatabaseName returns the current database. It is read on every call since
// the session may switch databases.
func (c *Connection) DatabaseName() (string, error) {
	nc, err := c.h.get("database name")
	if err != nil {
		return "", err
	}
	name, err := nc.DatabaseName()
	return name, translate("database name", err)
}

// Prepare creates a Statement for query. Parameters are bound afterwards.
func (c *Connection) Prepare(query string, timeout time.Duration) (*Statement, error) {
	const op = "prepare"
	nc, err := c.h.get(op)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return nil, newError(ProgrammingError, op, "empty query")
	}

	ns, err := nc.Prepare(query, timeout)
	if err != nil {
		if ns != nil {
			_ = ns.Close()
		}
		return nil, translate(op, err)
	}
	if ns == nil {
		return nil, unexpectedNull(op, "statement")
	}

	s := newStatement(c, ns, query, timeout)
	c.stmts.add(s)
	return s, nil
}

// Execute runs query without parameters and returns its cursor. The Result
// owns the implicit statement and releases it on Close.
func (c *Connection) Execute(query string, timeout time.Duration) (*Result, error) {
	s, err := c.Prepare(query, timeout)
	if err != nil {
		return nil, err
	}
	s.implicit = true
	r, err := s.Execute(timeout)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return r, nil
}

// JustExecute runs query for its side effects only.
func (c *Connection) JustExecute(query string, timeout time.Duration) error {
	const op = "execute"
	nc, err := c.h.get(op)
	if err != nil {
		return err
	}
	if query == "" {
		return newError(ProgrammingError, op, "empty query")
	}
	return translate(op, nc.Exec(query, timeout))
}

// OpenStatements returns the number of statements not yet closed.
func (c *Connection) OpenStatements() int { return c.stmts.len() }

// Disconnect closes every open Statement and then the session. Calling it
// again is a no-op.
func (c *Connection) Disconnect() error {
	if !c.h.alive() {
		return nil
	}
	c.env.conns.remove(c)
	return c.close()
}

// Close is Disconnect.
func (c *Connection) Close() error { return c.Disconnect() }

func (c *Connection) close() error {
	if !c.h.alive() {
		return nil
	}
	childErr := c.stmts.closeAll()
	if err := c.h.release(); err != nil {
		return errors.Join(childErr, translate("disconnect", err))
	}
	return childErr
}
