package diagnostics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-devicesettings/internal/hal"
	"github.com/nerrad567/gray-logic-devicesettings/internal/hal/sim"
	"github.com/nerrad567/gray-logic-devicesettings/internal/notify"
	"github.com/nerrad567/gray-logic-devicesettings/internal/workqueue"
)

type recorder struct {
	mu       sync.Mutex
	statuses []hal.DecoderStatus
}

func (r *recorder) OnAVDecoderStatusChanged(s hal.DecoderStatus) {
	r.mu.Lock()
	r.statuses = append(r.statuses, s)
	r.mu.Unlock()
}

func (r *recorder) got() []hal.DecoderStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]hal.DecoderStatus(nil), r.statuses...)
}

type fixture struct {
	platform *sim.Platform
	queue    *workqueue.Queue
	svc      *Service
}

func newFixture(t *testing.T, interval time.Duration) *fixture {
	t.Helper()
	f := &fixture{platform: sim.New(1, nil), queue: workqueue.New(nil)}
	f.queue.Start()

	svc, err := New(Options{Decoder: f.platform, Queue: f.queue, PollInterval: interval})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.svc = svc

	t.Cleanup(func() {
		svc.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		f.queue.Stop(ctx) //nolint:errcheck // Test cleanup
	})
	return f
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("New() without decoder and queue: expected error")
	}
}

func TestService_NotifiesOnChangeOnly(t *testing.T) {
	f := newFixture(t, 10*time.Millisecond)
	rec := &recorder{}
	if err := f.svc.Register(rec); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	f.svc.Start()

	// Idle is the initial observed value: no event however often it is sampled
	time.Sleep(50 * time.Millisecond)
	if len(rec.got()) != 0 {
		t.Fatalf("events while idle: %v", rec.got())
	}

	f.platform.SetDecoderStatus(hal.DecoderActive)
	waitFor(t, func() bool { return len(rec.got()) == 1 })

	f.platform.SetDecoderStatus(hal.DecoderPaused)
	waitFor(t, func() bool { return len(rec.got()) == 2 })

	time.Sleep(50 * time.Millisecond)
	got := rec.got()
	if len(got) != 2 || got[0] != hal.DecoderActive || got[1] != hal.DecoderPaused {
		t.Errorf("events = %v, want [ACTIVE PAUSED]", got)
	}
	if f.svc.LastObserved() != hal.DecoderPaused {
		t.Errorf("LastObserved() = %v, want PAUSED", f.svc.LastObserved())
	}
}

func TestService_RefreshSamplesImmediately(t *testing.T) {
	f := newFixture(t, time.Hour)
	rec := &recorder{}
	_ = f.svc.Register(rec) //nolint:errcheck // Fresh registry
	f.svc.Start()

	f.platform.SetDecoderStatus(hal.DecoderActive)
	f.svc.Refresh()

	waitFor(t, func() bool { return len(rec.got()) == 1 })
}

func TestService_RegisterTwice(t *testing.T) {
	f := newFixture(t, time.Hour)
	rec := &recorder{}

	if err := f.svc.Register(rec); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := f.svc.Register(rec); !errors.Is(err, notify.ErrAlreadyRegistered) {
		t.Errorf("second Register() error = %v, want ErrAlreadyRegistered", err)
	}
	if err := f.svc.Unregister(rec); err != nil {
		t.Errorf("Unregister() error = %v", err)
	}
	if err := f.svc.Unregister(rec); !errors.Is(err, notify.ErrNotFound) {
		t.Errorf("second Unregister() error = %v, want ErrNotFound", err)
	}
}

func TestService_GetAVDecoderStatusFallsBack(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()

	f.platform.SetDecoderStatus(hal.DecoderActive)
	if got := f.svc.GetAVDecoderStatus(ctx); got != hal.DecoderActive {
		t.Fatalf("GetAVDecoderStatus() = %v, want ACTIVE", got)
	}

	f.platform.Fail(sim.OpDecoderStatus, errors.New("decoder offline"))
	f.platform.SetDecoderStatus(hal.DecoderPaused)
	if got := f.svc.GetAVDecoderStatus(ctx); got != hal.DecoderActive {
		t.Errorf("GetAVDecoderStatus() during failure = %v, want cached ACTIVE", got)
	}
}

func TestService_CloseJoinsPollLoop(t *testing.T) {
	f := newFixture(t, time.Millisecond)
	f.svc.Start()
	if !f.svc.Running() {
		t.Fatal("Running() = false after Start")
	}

	done := make(chan struct{})
	go func() {
		f.svc.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close() did not return")
	}
	if f.svc.Running() {
		t.Error("Running() = true after Close")
	}
}
