package notify

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-devicesettings/internal/workqueue"
)

// ============================================================================
// Test observer and event
// ============================================================================

type observer interface {
	OnValue(v int)
}

type recorder struct {
	mu     sync.Mutex
	values []int
	panics bool
}

func (r *recorder) OnValue(v int) {
	if r.panics {
		panic("observer failure")
	}
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
}

func (r *recorder) got() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.values...)
}

type valueEvent int

func (valueEvent) Kind() string         { return "value" }
func (e valueEvent) Deliver(o observer) { o.OnValue(int(e)) }

func newQueue(t *testing.T) *workqueue.Queue {
	t.Helper()
	q := workqueue.New(nil)
	q.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		q.Stop(ctx) //nolint:errcheck // Test cleanup
	})
	return q
}

// drain waits until every task submitted so far has run.
func drain(t *testing.T, q *workqueue.Queue) {
	t.Helper()
	done := make(chan struct{})
	if err := q.Submit(func() { close(done) }); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queue did not drain")
	}
}

// ============================================================================
// Registry
// ============================================================================

func TestRegistry_RegisterUnregister(t *testing.T) {
	r := NewRegistry[observer]()
	a, b := &recorder{}, &recorder{}

	if err := r.Register(a); err != nil {
		t.Fatalf("Register(a) error = %v", err)
	}
	if err := r.Register(a); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("second Register(a) error = %v, want ErrAlreadyRegistered", err)
	}
	if err := r.Register(b); err != nil {
		t.Fatalf("Register(b) error = %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}

	if err := r.Unregister(a); err != nil {
		t.Fatalf("Unregister(a) error = %v", err)
	}
	if err := r.Unregister(a); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Unregister(a) error = %v, want ErrNotFound", err)
	}
	if r.Contains(a) || !r.Contains(b) {
		t.Error("Contains() disagrees with registrations")
	}
}

func TestRegistry_RejectsNil(t *testing.T) {
	r := NewRegistry[observer]()
	if err := r.Register(nil); !errors.Is(err, ErrNilObserver) {
		t.Errorf("Register(nil) error = %v, want ErrNilObserver", err)
	}
}

func TestRegistry_SnapshotIsIndependent(t *testing.T) {
	r := NewRegistry[observer]()
	a, b, c := &recorder{}, &recorder{}, &recorder{}
	for _, o := range []observer{a, b, c} {
		_ = r.Register(o) //nolint:errcheck // Distinct observers
	}

	snap := r.Snapshot()
	_ = r.Unregister(b) //nolint:errcheck // Registered above

	if len(snap) != 3 || snap[0] != a || snap[1] != b || snap[2] != c {
		t.Errorf("snapshot changed after Unregister: %v", snap)
	}
	if got := r.Snapshot(); len(got) != 2 || got[0] != a || got[1] != c {
		t.Errorf("Snapshot() after Unregister = %v, want [a c]", got)
	}
}

func TestRegistry_NeverHoldsDuplicates(t *testing.T) {
	r := NewRegistry[observer]()
	pool := make([]*recorder, 8)
	for i := range pool {
		pool[i] = &recorder{}
	}
	registered := make(map[*recorder]bool)

	rng := rand.New(rand.NewSource(42))
	for range 2000 {
		o := pool[rng.Intn(len(pool))]
		if rng.Intn(2) == 0 {
			err := r.Register(o)
			if registered[o] != errors.Is(err, ErrAlreadyRegistered) {
				t.Fatalf("Register() error = %v with registered=%v", err, registered[o])
			}
			registered[o] = true
		} else {
			err := r.Unregister(o)
			if registered[o] == errors.Is(err, ErrNotFound) {
				t.Fatalf("Unregister() error = %v with registered=%v", err, registered[o])
			}
			delete(registered, o)
		}

		snap := r.Snapshot()
		if len(snap) != len(registered) {
			t.Fatalf("Snapshot() size = %d, want %d", len(snap), len(registered))
		}
		seen := make(map[observer]bool)
		for _, s := range snap {
			if seen[s] {
				t.Fatal("Snapshot() contains a duplicate")
			}
			seen[s] = true
		}
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry[observer]()
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := &recorder{}
			for range 100 {
				_ = r.Register(o) //nolint:errcheck // Exercising races
				r.Snapshot()
				_ = r.Unregister(o) //nolint:errcheck // Exercising races
			}
		}()
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Errorf("Len() = %d after balanced register/unregister, want 0", r.Len())
	}
}

// ============================================================================
// Dispatcher
// ============================================================================

func TestDispatcher_DeliversToAllInOrder(t *testing.T) {
	q := newQueue(t)
	r := NewRegistry[observer]()
	d := NewDispatcher("test", r, q, nil)

	a, b := &recorder{}, &recorder{}
	_ = r.Register(a) //nolint:errcheck // Fresh registry
	_ = r.Register(b) //nolint:errcheck // Fresh registry

	for i := 1; i <= 5; i++ {
		d.Dispatch(valueEvent(i))
	}
	drain(t, q)

	for _, rec := range []*recorder{a, b} {
		got := rec.got()
		if len(got) != 5 {
			t.Fatalf("observer received %v, want 5 events", got)
		}
		for i, v := range got {
			if v != i+1 {
				t.Errorf("event %d = %d, want %d", i, v, i+1)
			}
		}
	}
}

func TestDispatcher_FailingObserverDoesNotStopFanOut(t *testing.T) {
	q := newQueue(t)
	r := NewRegistry[observer]()
	d := NewDispatcher("test", r, q, nil)

	const n = 5
	recs := make([]*recorder, n)
	for i := range recs {
		recs[i] = &recorder{panics: i == 2}
		_ = r.Register(recs[i]) //nolint:errcheck // Distinct observers
	}

	d.Dispatch(valueEvent(7))
	drain(t, q)

	for i, rec := range recs {
		if i == 2 {
			continue
		}
		if got := rec.got(); len(got) != 1 || got[0] != 7 {
			t.Errorf("observer %d received %v, want [7]", i, got)
		}
	}
	if _, _, failures := d.Stats(); failures != 1 {
		t.Errorf("failures = %d, want 1", failures)
	}
}

func TestDispatcher_SnapshotTakenAtDelivery(t *testing.T) {
	q := workqueue.New(nil) // not started: deliveries wait
	r := NewRegistry[observer]()
	d := NewDispatcher("test", r, q, nil)

	early, late := &recorder{}, &recorder{}
	_ = r.Register(early) //nolint:errcheck // Fresh registry

	d.Dispatch(valueEvent(1))
	_ = r.Register(late)    //nolint:errcheck // Fresh observer
	_ = r.Unregister(early) //nolint:errcheck // Registered above

	q.Start()
	drain(t, q)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = q.Stop(ctx) //nolint:errcheck // Drained above

	if len(early.got()) != 0 {
		t.Error("observer unregistered before delivery still received the event")
	}
	if len(late.got()) != 1 {
		t.Error("observer registered before delivery missed the event")
	}
}

func TestDispatcher_DropsAfterQueueStop(t *testing.T) {
	q := workqueue.New(nil)
	q.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	r := NewRegistry[observer]()
	rec := &recorder{}
	_ = r.Register(rec) //nolint:errcheck // Fresh registry
	d := NewDispatcher("test", r, q, nil)

	d.Dispatch(valueEvent(1))

	dispatched, dropped, _ := d.Stats()
	if dispatched != 0 || dropped != 1 {
		t.Errorf("Stats() = (%d, %d), want (0, 1)", dispatched, dropped)
	}
	if len(rec.got()) != 0 {
		t.Error("event delivered after queue stop")
	}
}

// An observer may unregister itself from inside its callback without deadlock.
type selfRemover struct {
	r     *Registry[observer]
	calls int
}

func (s *selfRemover) OnValue(int) {
	s.calls++
	_ = s.r.Unregister(s) //nolint:errcheck // Registered by the test
}

func TestDispatcher_ObserverMayUnregisterDuringDelivery(t *testing.T) {
	q := newQueue(t)
	r := NewRegistry[observer]()
	d := NewDispatcher("test", r, q, nil)

	s := &selfRemover{r: r}
	_ = r.Register(s) //nolint:errcheck // Fresh registry

	d.Dispatch(valueEvent(1))
	d.Dispatch(valueEvent(2))
	drain(t, q)

	if s.calls != 1 {
		t.Errorf("calls = %d, want 1", s.calls)
	}
}
