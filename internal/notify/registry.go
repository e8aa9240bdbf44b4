// Package notify implements the observer registry and the asynchronous event
// dispatcher shared by every facet.
//
// A Registry holds the set of observers for one facet. A Dispatcher delivers
// an event to a snapshot of that set on the shared work queue, so the
// producer (a poll loop or a hardware callback) never runs observer code and
// never holds the registry lock while observers run.
//
// Observers are compared by identity. Use pointer types (or other comparable
// values) as observers; an observer whose dynamic type is not comparable
// (a map, slice or func) panics on registration.
package notify

import "sync"

// Logger defines the logging interface used by the notify package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is a thread-safe, duplicate-free, ordered set of observers.
//
// The registry keeps an observer reachable for as long as it is registered;
// a Snapshot keeps its members reachable for as long as the snapshot is held,
// even if they are unregistered meanwhile.
type Registry[O comparable] struct {
	mu        sync.Mutex
	observers []O
}

// NewRegistry creates an empty Registry.
func NewRegistry[O comparable]() *Registry[O] {
	return &Registry[O]{}
}

// Register adds o to the registry.
//
// Returns:
//   - error: ErrAlreadyRegistered if o is already present (the registry is
//     unchanged), ErrNilObserver if o is the zero value
func (r *Registry[O]) Register(o O) error {
	var zero O
	if o == zero {
		return ErrNilObserver
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(o) >= 0 {
		return ErrAlreadyRegistered
	}
	r.observers = append(r.observers, o)
	return nil
}

// Unregister removes o from the registry, preserving the order of the rest.
//
// Returns:
//   - error: ErrNotFound if o is not registered
func (r *Registry[O]) Unregister(o O) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(o)
	if i < 0 {
		return ErrNotFound
	}

	// Build a new slice so snapshots already handed out are never mutated.
	next := make([]O, 0, len(r.observers)-1)
	next = append(next, r.observers[:i]...)
	next = append(next, r.observers[i+1:]...)
	r.observers = next
	return nil
}

// Snapshot returns a copy of the registered observers in registration order.
// The caller owns the returned slice.
func (r *Registry[O]) Snapshot() []O {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]O, len(r.observers))
	copy(out, r.observers)
	return out
}

// Len returns the number of registered observers.
func (r *Registry[O]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.observers)
}

// Contains reports whether o is registered.
func (r *Registry[O]) Contains(o O) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.indexOf(o) >= 0
}

// indexOf must be called with r.mu held.
func (r *Registry[O]) indexOf(o O) int {
	for i, existing := range r.observers {
		if existing == o {
			return i
		}
	}
	return -1
}
