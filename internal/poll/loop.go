// Package poll turns a stateless hardware query into edge-triggered change
// notifications.
//
// A Loop samples a value on a fixed interval (or early, when signalled),
// remembers the last observed value, and calls OnChange exactly once per
// observed change. Identical consecutive readings never produce a callback.
package poll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Logger defines the logging interface used by Loop.
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

// State is the lifecycle state of a Loop.
type State int32

const (
	StateStopped State = iota
	StateRunning
	StateStopRequested
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateStopRequested:
		return "stop_requested"
	default:
		return "unknown"
	}
}

// Config describes what a Loop polls and what it does on change.
type Config[T comparable] struct {
	// Name identifies the loop in log entries (for example "decoder" or "HDMI0.signal").
	Name string

	// Interval is the wait between samples. Required.
	Interval time.Duration

	// Initial is the last observed value before the first sample.
	Initial T

	// Query reads the current value. It receives a context that is cancelled
	// when the loop stops. Required.
	Query func(ctx context.Context) (T, error)

	// Equal compares two readings. Defaults to ==.
	Equal func(a, b T) bool

	// OnChange runs on the loop goroutine after the last observed value has
	// been updated. It should only hand the change off (for example to a
	// dispatcher) and must not call Stop.
	OnChange func(prev, next T)

	Logger Logger
}

// Loop is a background poller with a Stopped -> Running -> StopRequested ->
// Stopped lifecycle. A stopped Loop may be started again.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Loop[T comparable] struct {
	cfg    Config[T]
	logger Logger

	mu     sync.Mutex
	state  State
	last   T
	stop   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc

	signal chan struct{}

	queries  atomic.Uint64
	changes  atomic.Uint64
	failures atomic.Uint64
}

// New validates cfg and returns a stopped Loop.
func New[T comparable](cfg Config[T]) (*Loop[T], error) {
	if cfg.Query == nil {
		return nil, errors.New("poll: query function is required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poll: interval must be positive")
	}
	if cfg.Equal == nil {
		cfg.Equal = func(a, b T) bool { return a == b }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Loop[T]{
		cfg:    cfg,
		logger: logger,
		last:   cfg.Initial,
		signal: make(chan struct{}, 1),
	}, nil
}

// Start launches the polling goroutine if the loop is Stopped.
//
// Returns:
//   - bool: true if this call started the loop. False means it was already
//     running, or a concurrent Stop has not finished yet; in the latter case
//     the loop ends up Stopped and Start must be called again.
func (l *Loop[T]) Start() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateStopped {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.state = StateRunning
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	l.cancel = cancel

	go l.run(ctx, l.stop, l.done)
	l.logger.Debug("poll loop started", "loop", l.cfg.Name, "interval", l.cfg.Interval)
	return true
}

// Signal wakes the loop so it samples now instead of at the end of the
// current interval. It never blocks and does not change state.
func (l *Loop[T]) Signal() {
	select {
	case l.signal <- struct{}{}:
	default:
	}
}

// Stop requests the loop to exit and waits until its goroutine has returned.
// An in-flight Query sees its context cancelled. Calling Stop on a stopped
// loop returns immediately.
func (l *Loop[T]) Stop() {
	l.mu.Lock()
	switch l.state {
	case StateStopped:
		l.mu.Unlock()
		return
	case StateRunning:
		l.state = StateStopRequested
		close(l.stop)
		l.cancel()
	}
	done := l.done
	l.mu.Unlock()

	<-done

	l.mu.Lock()
	if l.done == done {
		l.state = StateStopped
	}
	l.mu.Unlock()
	l.logger.Debug("poll loop stopped", "loop", l.cfg.Name)
}

// State returns the current lifecycle state.
func (l *Loop[T]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Last returns the last observed value.
func (l *Loop[T]) Last() T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// Stats returns how many queries ran, how many changes were reported, and how
// many queries failed.
func (l *Loop[T]) Stats() (queries, changes, failures uint64) {
	return l.queries.Load(), l.changes.Load(), l.failures.Load()
}

func (l *Loop[T]) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(l.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-l.signal:
			timer.Stop()
		case <-timer.C:
		}

		select {
		case <-stop:
			return
		default:
		}

		l.sample(ctx)
		timer.Reset(l.cfg.Interval)
	}
}

func (l *Loop[T]) sample(ctx context.Context) {
	l.queries.Add(1)

	v, err := l.cfg.Query(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		l.failures.Add(1)
		l.logger.Error("poll query failed, keeping last value", "loop", l.cfg.Name, "error", err)
		return
	}

	l.mu.Lock()
	prev := l.last
	if l.cfg.Equal(prev, v) {
		l.mu.Unlock()
		return
	}
	l.last = v
	l.mu.Unlock()

	l.changes.Add(1)
	l.logger.Debug("poll value changed", "loop", l.cfg.Name, "prev", prev, "next", v)
	if l.cfg.OnChange != nil {
		l.cfg.OnChange(prev, v)
	}
}
