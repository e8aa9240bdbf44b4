// Package workqueue provides the shared task queue that event dispatch runs on.
//
// A Queue runs submitted tasks one at a time on a single worker goroutine, in
// submission order. Producers (poll loops, hardware callbacks) never block on
// task execution: Submit only appends to an unbounded FIFO.
package workqueue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Logger defines the logging interface used by the Queue.
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

// Queue is a single-worker FIFO task queue.
//
// Thread Safety:
//   - Submit, Pending and Stop are safe for concurrent use.
//   - Tasks run sequentially; a task must not block waiting on another task.
type Queue struct {
	mu      sync.Mutex
	tasks   []func()
	started bool
	stopped bool

	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	processed atomic.Uint64
	panics    atomic.Uint64

	logger Logger
}

// New creates a Queue. Tasks may be submitted before Start; they run once
// the worker starts.
func New(logger Logger) *Queue {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Queue{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Start launches the worker goroutine. Calling Start more than once, or after
// Stop, has no effect.
func (q *Queue) Start() {
	q.mu.Lock()
	if q.started || q.stopped {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	go q.run()
}

// Submit appends task to the queue. The task runs on the worker goroutine.
//
// Returns:
//   - error: ErrStopped if Stop has been called; the task is not queued
func (q *Queue) Submit(task func()) error {
	if task == nil {
		return fmt.Errorf("workqueue: nil task")
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrStopped
	}
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of queued tasks not yet started.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Processed returns the number of tasks that have finished (including those that panicked).
func (q *Queue) Processed() uint64 {
	return q.processed.Load()
}

// Panics returns the number of tasks that panicked.
func (q *Queue) Panics() uint64 {
	return q.panics.Load()
}

// Stop rejects further submissions, lets the worker drain every task already
// queued, and waits for it to exit or for ctx to end.
//
// If the queue was never started, queued tasks are discarded.
//
// Returns:
//   - error: ctx.Err() if the drain did not finish in time
func (q *Queue) Stop(ctx context.Context) error {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.stopped = true
		started := q.started
		dropped := len(q.tasks)
		if !started {
			q.tasks = nil
		}
		q.mu.Unlock()

		if !started {
			if dropped > 0 {
				q.logger.Warn("work queue stopped before start, dropping tasks", "dropped", dropped)
			}
			close(q.done)
			return
		}

		select {
		case q.wake <- struct{}{}:
		default:
		}
	})

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		q.logger.Warn("work queue drain timed out", "pending", q.Pending())
		return fmt.Errorf("stopping work queue: %w", ctx.Err())
	}
}

func (q *Queue) run() {
	defer close(q.done)

	for {
		q.mu.Lock()
		batch := q.tasks
		q.tasks = nil
		stopped := q.stopped
		q.mu.Unlock()

		for _, task := range batch {
			q.execute(task)
		}

		if len(batch) > 0 {
			continue
		}
		if stopped {
			return
		}
		<-q.wake
	}
}

func (q *Queue) execute(task func()) {
	defer func() {
		q.processed.Add(1)
		if r := recover(); r != nil {
			q.panics.Add(1)
			q.logger.Error("work queue task panicked", "panic", r)
		}
	}()
	task()
}
