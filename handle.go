package odbc

import (
	"errors"
	"sync"
)

// handle is the single owner of one native resource. The native value is
// only reachable through get, which fails once the handle was released.
type handle[T any] struct {
	native T
	live   bool
	what   string
	free   func(T) error
}

func newHandle[T any](what string, native T, free func(T) error) handle[T] {
	return handle[T]{native: native, live: true, what: what, free: free}
}

func (h *handle[T]) get(op string) (T, error) {
	if !h.live {
		var zero T
		return zero, newError(ProgrammingError, op, "%s is closed", h.what)
	}
	return h.native, nil
}

func (h *handle[T]) alive() bool { return h.live }

// release frees the native resource exactly once. The reference is dropped
// before the free call so a failing free cannot be retried on a dead handle.
func (h *handle[T]) release() error {
	if !h.live {
		return nil
	}
	native := h.native
	var zero T
	h.native = zero
	h.live = false
	return h.free(native)
}

type closer interface {
	close() error
}

// registry tracks the open children of an owner in creation order. The
// Environment's registry is shared by Connections living on different
// goroutines, so it is locked.
type registry struct {
	mu   sync.Mutex
	open []closer
}

func (r *registry) add(c closer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = append(r.open, c)
}

func (r *registry) remove(c closer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, o := range r.open {
		if o == c {
			r.open = append(r.open[:i], r.open[i+1:]...)
			return
		}
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open)
}

// closeAll closes children newest first. Children remove themselves from the
// registry while closing, so the slice is detached before iterating.
func (r *registry) closeAll() error {
	r.mu.Lock()
	open := r.open
	r.open = nil
	r.mu.Unlock()

	var errs []error
	for i := len(open) - 1; i >= 0; i-- {
		if err := open[i].close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
