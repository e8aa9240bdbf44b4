package audit

import (
	"context"
	"sync"
	"time"
)

// queueSize is the buffer size of the Writer's channel. Entries beyond this
// are dropped (best-effort) so recording never blocks a request or command.
const queueSize = 256

// writeTimeout bounds a single insert.
const writeTimeout = 5 * time.Second

// Logger defines the logging interface used by the audit package.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AttributeRecorder is told about every setting that changed.
type AttributeRecorder interface {
	AttributeChanged(facet, target, attribute string, value any)
}

// Writer records changes asynchronously. Entries are written serially by a
// single goroutine, which suits SQLite's single-writer model.
//
// Thread Safety:
//   - Record and the recorders returned by Recorder are safe for concurrent use.
type Writer struct {
	repo   Repository
	logger Logger
	ch     chan *Change

	mu      sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
}

// NewWriter creates a Writer. Nothing is written until Start.
func NewWriter(repo Repository, logger Logger) *Writer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Writer{
		repo:   repo,
		logger: logger,
		ch:     make(chan *Change, queueSize),
		done:   make(chan struct{}),
	}
}

// Start launches the drain goroutine.
func (w *Writer) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.closed {
		return
	}
	w.started = true
	go w.drain()
}

// Close stops accepting entries, writes everything still queued and waits
// for the drain goroutine to exit.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	started := w.started
	close(w.ch)
	w.mu.Unlock()

	if started {
		<-w.done
	}
}

// Record enqueues c. If the queue is full or the Writer is closed the entry
// is dropped and a warning is logged.
func (w *Writer) Record(c *Change) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	select {
	case w.ch <- c:
	default:
		w.logger.Warn("change history queue full, dropping entry",
			"facet", c.Facet,
			"attribute", c.Attribute,
		)
	}
}

// Recorder returns an AttributeRecorder that records changes from source
// and then forwards them to next, if next is non-nil.
func (w *Writer) Recorder(source string, next AttributeRecorder) AttributeRecorder {
	return &recorder{w: w, source: source, next: next}
}

func (w *Writer) drain() {
	defer close(w.done)
	for c := range w.ch {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := w.repo.Create(ctx, c); err != nil {
			w.logger.Error("change history write failed",
				"facet", c.Facet,
				"target", c.Target,
				"attribute", c.Attribute,
				"error", err,
			)
		}
		cancel()
	}
}

type recorder struct {
	w      *Writer
	source string
	next   AttributeRecorder
}

func (r *recorder) AttributeChanged(facet, target, attribute string, value any) {
	r.w.Record(&Change{
		Facet:     facet,
		Target:    target,
		Attribute: attribute,
		Value:     value,
		Source:    r.source,
		CreatedAt: time.Now().UTC(),
	})
	if r.next != nil {
		r.next.AttributeChanged(facet, target, attribute, value)
	}
}
