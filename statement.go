package odbc

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

type stmtState int

const (
	stmtCreated stmtState = iota
	stmtExecuted
)

// slot is one parameter marker. Empty byte slices are recorded as bound
// without reaching the native statement.
type slot struct {
	bound bool
	value Value
}

// Statement is a prepared SQL text bound to one Connection.
//
// A Statement is single-use per execute cycle: after Execute, binding or
// executing again requires Reset, which closes open results and clears every
// parameter slot.
type Statement struct {
	conn    *Connection
	h       handle[NativeStmt]
	query   string
	timeout time.Duration
	slots   []slot
	nparams int
	state   stmtState
	results registry

	// implicit statements are created by Connection.Execute and released
	// together with their Result.
	implicit bool
}

func newStatement(c *Connection, ns NativeStmt, query string, timeout time.Duration) *Statement {
	s := &Statement{
		conn:    c,
		h:       newHandle("statement", ns, NativeStmt.Close),
		query:   query,
		timeout: timeout,
		nparams: ns.NumParams(),
	}
	if s.nparams > 0 {
		s.slots = make([]slot, s.nparams)
	}
	return s
}

// Query returns the SQL text the statement was prepared with.
func (s *Statement) Query() string { return s.query }

// NumParams returns the number of parameter markers, or -1 if the driver
// cannot report it.
func (s *Statement) NumParams() int { return s.nparams }

// Bind binds v to the 0-based parameter index.
func (s *Statement) Bind(index int, v Value) error {
	const op = "bind"
	ns, err := s.h.get(op)
	if err != nil {
		return err
	}
	if s.state == stmtExecuted {
		return newError(ProgrammingError, op, "statement already executed; call Reset before binding")
	}
	if index < 0 {
		return newError(ProgrammingError, op, "negative parameter index %d", index)
	}
	if s.nparams >= 0 && index >= s.nparams {
		return newError(ProgrammingError, op, "parameter index %d out of range, statement has %d parameters", index, s.nparams)
	}
	for index >= len(s.slots) {
		s.slots = append(s.slots, slot{})
	}

	// Zero-length buffers are rejected by some drivers; the slot counts as
	// bound and the driver sees an empty binary value.
	if v.kind == KindBytes && len(v.b) == 0 {
		s.slots[index] = slot{bound: true, value: v}
		return nil
	}

	if err := ns.Bind(index, v); err != nil {
		return translate(op, err)
	}
	s.slots[index] = slot{bound: true, value: v}
	return nil
}

// BindNull binds SQL NULL to the 0-based parameter index.
func (s *Statement) BindNull(index int) error {
	return s.Bind(index, Null())
}

// BindAny converts x with ValueOf and binds it.
func (s *Statement) BindAny(index int, x any) error {
	v, err := ValueOf(x)
	if err != nil {
		return err
	}
	return s.Bind(index, v)
}

// Bound returns the value bound to index and whether the slot is bound.
func (s *Statement) Bound(index int) (Value, bool) {
	if index < 0 || index >= len(s.slots) {
		return Value{}, false
	}
	return s.slots[index].value, s.slots[index].bound
}

// Execute runs the statement with the parameters bound so far. Every
// parameter marker must have been bound, explicit nulls included.
func (s *Statement) Execute(timeout time.Duration) (*Result, error) {
	const op = "execute"
	ns, err := s.h.get(op)
	if err != nil {
		return nil, err
	}
	if s.state == stmtExecuted {
		return nil, newError(ProgrammingError, op, "statement already executed; call Reset before executing again")
	}
	if missing := s.unbound(); len(missing) > 0 {
		return nil, newError(ProgrammingError, op, "unbound parameters %s", strings.Join(missing, ", "))
	}

	nc, err := ns.Execute(timeout)
	if err != nil {
		if nc != nil {
			_ = nc.Close()
		}
		return nil, translate(op, err)
	}
	if nc == nil {
		return nil, unexpectedNull(op, "result")
	}

	s.state = stmtExecuted
	r := newResult(s, nc)
	s.results.add(r)
	return r, nil
}

// ExecuteWith binds values to the parameters 0..len(values)-1 and executes.
// Binding a slot that was already bound with Bind is an error.
func (s *Statement) ExecuteWith(timeout time.Duration, values ...Value) (*Result, error) {
	for i, v := range values {
		if i < len(s.slots) && s.slots[i].bound {
			return nil, newError(ProgrammingError, "execute", "parameter %d is already bound", i)
		}
		if err := s.Bind(i, v); err != nil {
			return nil, err
		}
	}
	return s.Execute(timeout)
}

// ExecuteArgs converts args with ValueOf and calls ExecuteWith.
func (s *Statement) ExecuteArgs(timeout time.Duration, args ...any) (*Result, error) {
	values := make([]Value, len(args))
	for i, a := range args {
		v, err := ValueOf(a)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return s.ExecuteWith(timeout, values...)
}

func (s *Statement) unbound() []string {
	var missing []string
	for i, sl := range s.slots {
		if !sl.bound {
			missing = append(missing, strconv.Itoa(i))
		}
	}
	return missing
}

// Reset closes open results and clears every parameter slot so the
// statement can be bound and executed again.
func (s *Statement) Reset() error {
	if _, err := s.h.get("reset"); err != nil {
		return err
	}
	err := s.results.closeAll()
	for i := range s.slots {
		s.slots[i] = slot{}
	}
	if s.nparams < 0 {
		s.slots = nil
	}
	s.state = stmtCreated
	return err
}

// OpenResults returns the number of results not yet closed.
func (s *Statement) OpenResults() int { return s.results.len() }

// Close closes open results and releases the statement. Calling it again is
// a no-op.
func (s *Statement) Close() error {
	if !s.h.alive() {
		return nil
	}
	s.conn.stmts.remove(s)
	return s.close()
}

func (s *Statement) close() error {
	if !s.h.alive() {
		return nil
	}
	childErr := s.results.closeAll()
	if err := s.h.release(); err != nil {
		return errors.Join(childErr, translate("close statement", err))
	}
	return childErr
}
