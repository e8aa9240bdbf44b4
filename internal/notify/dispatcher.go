package notify

import (
	"fmt"
	"sync/atomic"
)

// Event is one notification for observers of type O.
//
// Deliver calls the observer method matching the event kind. Kind names the
// event in logs and in remote republishing (for example "hotplug").
type Event[O any] interface {
	Kind() string
	Deliver(O)
}

// Submitter schedules a task for asynchronous execution in FIFO order.
// *workqueue.Queue satisfies it.
type Submitter interface {
	Submit(task func()) error
}

// Dispatcher fans events out to a Registry's observers on a Submitter.
//
// Thread Safety:
//   - Dispatch is safe for concurrent use. Events dispatched from the same
//     goroutine are delivered in dispatch order.
type Dispatcher[O comparable] struct {
	name     string
	registry *Registry[O]
	queue    Submitter
	logger   Logger

	dispatched atomic.Uint64
	dropped    atomic.Uint64
	failures   atomic.Uint64
}

// NewDispatcher creates a Dispatcher for registry that runs deliveries on queue.
//
// Parameters:
//   - name: Facet name used in log entries
//   - registry: Observers to deliver to
//   - queue: Shared work queue
//   - logger: Logger, or nil for none
func NewDispatcher[O comparable](name string, registry *Registry[O], queue Submitter, logger Logger) *Dispatcher[O] {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher[O]{
		name:     name,
		registry: registry,
		queue:    queue,
		logger:   logger,
	}
}

// Registry returns the registry this dispatcher delivers to.
func (d *Dispatcher[O]) Registry() *Registry[O] {
	return d.registry
}

// Dispatch schedules delivery of ev to every observer registered when the
// delivery task runs. It never blocks on observer code.
//
// If the queue no longer accepts work (shutdown), the event is dropped and
// a warning logged.
func (d *Dispatcher[O]) Dispatch(ev Event[O]) {
	err := d.queue.Submit(func() { d.deliver(ev) })
	if err != nil {
		d.dropped.Add(1)
		d.logger.Warn("event dropped", "facet", d.name, "kind", ev.Kind(), "error", err)
		return
	}
	d.dispatched.Add(1)
}

func (d *Dispatcher[O]) deliver(ev Event[O]) {
	observers := d.registry.Snapshot()
	d.logger.Debug("delivering event", "facet", d.name, "kind", ev.Kind(), "observers", len(observers))

	for _, o := range observers {
		d.deliverOne(ev, o)
	}
}

// deliverOne isolates a single observer so its panic cannot stop the fan-out.
func (d *Dispatcher[O]) deliverOne(ev Event[O], o O) {
	defer func() {
		if r := recover(); r != nil {
			d.failures.Add(1)
			d.logger.Error("observer failed",
				"facet", d.name,
				"kind", ev.Kind(),
				"observer", describe(o),
				"panic", r,
			)
		}
	}()
	ev.Deliver(o)
}

// Stats reports how many events were scheduled, dropped at shutdown, and how
// many observer deliveries failed.
func (d *Dispatcher[O]) Stats() (dispatched, dropped, failures uint64) {
	return d.dispatched.Load(), d.dropped.Load(), d.failures.Load()
}

// Named lets an observer choose how it is identified in logs.
type Named interface {
	ObserverName() string
}

func describe(o any) string {
	if n, ok := o.(Named); ok {
		return n.ObserverName()
	}
	return fmt.Sprintf("%T", o)
}
