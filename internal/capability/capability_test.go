package capability

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nerrad567/gray-logic-devicesettings/internal/persist"
)

// ============================================================================
// Test hardware port
// ============================================================================

// fakePort is a thread-safe hardware attribute with failure injection.
type fakePort[T any] struct {
	mu       sync.Mutex
	value    T
	readErr  error
	writeErr error
	writes   []T
}

func (p *fakePort[T]) read(context.Context) (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		var zero T
		return zero, p.readErr
	}
	return p.value, nil
}

func (p *fakePort[T]) write(_ context.Context, v T) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return p.writeErr
	}
	p.value = v
	p.writes = append(p.writes, v)
	return nil
}

func (p *fakePort[T]) set(v T) {
	p.mu.Lock()
	p.value = v
	p.mu.Unlock()
}

func (p *fakePort[T]) failReads(err error) {
	p.mu.Lock()
	p.readErr = err
	p.mu.Unlock()
}

func (p *fakePort[T]) failWrites(err error) {
	p.mu.Lock()
	p.writeErr = err
	p.mu.Unlock()
}

func (p *fakePort[T]) writeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.writes)
}

var errBus = errors.New("i2c bus error")

// ============================================================================
// Codecs
// ============================================================================

func TestBoolCodec(t *testing.T) {
	if BoolCodec.Encode(true) != "TRUE" || BoolCodec.Encode(false) != "FALSE" {
		t.Error("BoolCodec.Encode must produce TRUE/FALSE")
	}
	for in, want := range map[string]bool{"TRUE": true, "false": false, " True ": true} {
		got, err := BoolCodec.Decode(in)
		if err != nil || got != want {
			t.Errorf("Decode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := BoolCodec.Decode("yes"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Decode(yes) error = %v, want ErrInvalidValue", err)
	}
}

func TestEnumCodec(t *testing.T) {
	type version int
	codec := EnumCodec(map[version]string{14: "HDMI_EDID_VER_14", 20: "HDMI_EDID_VER_20"})

	if codec.Encode(20) != "HDMI_EDID_VER_20" {
		t.Errorf("Encode(20) = %q", codec.Encode(20))
	}
	v, err := codec.Decode("HDMI_EDID_VER_14")
	if err != nil || v != 14 {
		t.Errorf("Decode() = %v, %v; want 14", v, err)
	}
	if _, err := codec.Decode("HDMI_EDID_VER_21"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Decode(unknown) error = %v, want ErrInvalidValue", err)
	}
}

// ============================================================================
// Gated
// ============================================================================

type gatedFixture struct {
	port  *fakePort[bool]
	store *persist.MemoryStore
	open  atomic.Bool
	g     *Gated[bool]
}

func newGatedFixture(t *testing.T) *gatedFixture {
	t.Helper()
	f := &gatedFixture{port: &fakePort[bool]{}, store: persist.NewMemoryStore()}
	g, err := NewGated(GatedConfig[bool]{
		Key:     "HDMI0.edidallmEnable",
		Default: false,
		Codec:   BoolCodec,
		Gate:    f.open.Load,
		Write:   f.port.write,
		Store:   f.store,
	})
	if err != nil {
		t.Fatalf("NewGated() error = %v", err)
	}
	f.g = g
	return f
}

func TestNewGated_Validation(t *testing.T) {
	store := persist.NewMemoryStore()
	write := func(context.Context, bool) error { return nil }
	gate := func() bool { return true }

	cases := map[string]GatedConfig[bool]{
		"no key":   {Codec: BoolCodec, Gate: gate, Write: write, Store: store},
		"no gate":  {Key: "k", Codec: BoolCodec, Write: write, Store: store},
		"no write": {Key: "k", Codec: BoolCodec, Gate: gate, Store: store},
		"no store": {Key: "k", Codec: BoolCodec, Gate: gate, Write: write},
		"no codec": {Key: "k", Gate: gate, Write: write, Store: store},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewGated(cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGated_SetGateClosed(t *testing.T) {
	f := newGatedFixture(t)
	ctx := context.Background()

	err := f.g.Set(ctx, true)
	if !errors.Is(err, ErrGateClosed) {
		t.Fatalf("Set() error = %v, want ErrGateClosed", err)
	}
	if f.g.Get() {
		t.Error("cached value changed despite closed gate")
	}
	if _, ok := f.store.Lookup("HDMI0.edidallmEnable"); ok {
		t.Error("value persisted despite closed gate")
	}
	if f.port.writeCount() != 0 {
		t.Error("hardware written despite closed gate")
	}
}

func TestGated_SetHardwareFailure(t *testing.T) {
	f := newGatedFixture(t)
	f.open.Store(true)
	f.port.failWrites(errBus)

	err := f.g.Set(context.Background(), true)
	if !errors.Is(err, ErrHardware) || !errors.Is(err, errBus) {
		t.Fatalf("Set() error = %v, want ErrHardware wrapping the cause", err)
	}
	if errors.Is(err, ErrGateClosed) {
		t.Error("hardware failure conflated with closed gate")
	}
	if f.g.Get() {
		t.Error("cached value changed despite hardware failure")
	}
	if f.store.SetCalls() != 0 {
		t.Error("storage written despite hardware failure")
	}
}

func TestGated_SetSuccess(t *testing.T) {
	f := newGatedFixture(t)
	f.open.Store(true)

	if err := f.g.Set(context.Background(), true); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !f.g.Get() {
		t.Error("Get() = false after successful Set(true)")
	}
	if v, _ := f.store.Lookup("HDMI0.edidallmEnable"); v != "TRUE" {
		t.Errorf("persisted value = %q, want TRUE", v)
	}
}

func TestGated_PersistFailureStillCaches(t *testing.T) {
	f := newGatedFixture(t)
	f.open.Store(true)
	f.store.FailWrites(errors.New("read-only filesystem"))

	if err := f.g.Set(context.Background(), true); err != nil {
		t.Fatalf("Set() error = %v, want nil (durability warning only)", err)
	}
	if !f.g.Get() {
		t.Error("cache not updated after successful hardware write")
	}
}

func TestGated_LoadFromPersistence(t *testing.T) {
	tests := []struct {
		name    string
		stored  string
		readErr error
		want    bool
	}{
		{name: "stored true", stored: "TRUE", want: true},
		{name: "missing key uses default"},
		{name: "storage unavailable uses default", readErr: errors.New("db locked")},
		{name: "garbage uses default", stored: "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGatedFixture(t)
			ctx := context.Background()
			if tt.stored != "" {
				_ = f.store.SetProperty(ctx, "HDMI0.edidallmEnable", tt.stored) //nolint:errcheck // Memory store
			}
			f.store.FailReads(tt.readErr)

			if got := f.g.LoadFromPersistence(ctx); got != tt.want {
				t.Errorf("LoadFromPersistence() = %v, want %v", got, tt.want)
			}
			if got := f.g.Get(); got != tt.want {
				t.Errorf("Get() = %v, want %v", got, tt.want)
			}
			if f.port.writeCount() != 0 {
				t.Error("loading touched hardware")
			}
		})
	}
}

func TestGated_Reassert(t *testing.T) {
	f := newGatedFixture(t)
	ctx := context.Background()
	_ = f.store.SetProperty(ctx, "HDMI0.edidallmEnable", "TRUE") //nolint:errcheck // Memory store
	f.g.LoadFromPersistence(ctx)
	setsBefore := f.store.SetCalls()

	if err := f.g.Reassert(ctx); !errors.Is(err, ErrGateClosed) {
		t.Errorf("Reassert() with gate closed error = %v, want ErrGateClosed", err)
	}

	f.open.Store(true)
	if err := f.g.Reassert(ctx); err != nil {
		t.Fatalf("Reassert() error = %v", err)
	}
	if f.port.writeCount() != 1 || !f.port.value {
		t.Error("cached value not written to hardware")
	}
	if f.store.SetCalls() != setsBefore {
		t.Error("Reassert() wrote to storage")
	}

	f.port.failWrites(errBus)
	if err := f.g.Reassert(ctx); !errors.Is(err, ErrHardware) {
		t.Errorf("Reassert() error = %v, want ErrHardware", err)
	}
}

func TestGated_ConcurrentSetAndGet(t *testing.T) {
	f := newGatedFixture(t)
	f.open.Store(true)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = f.g.Set(ctx, i%2 == 0) //nolint:errcheck // Gate open, port healthy
		}()
		go func() {
			defer wg.Done()
			f.g.Get()
		}()
	}
	wg.Wait()

	// Cache, hardware and storage agree on the last writer
	want := f.g.Get()
	if f.port.value != want {
		t.Errorf("hardware = %v, cache = %v", f.port.value, want)
	}
	if v, _ := f.store.Lookup("HDMI0.edidallmEnable"); v != BoolCodec.Encode(want) {
		t.Errorf("storage = %q, cache = %v", v, want)
	}
}

// ============================================================================
// Cached
// ============================================================================

func TestNewCached_Validation(t *testing.T) {
	if _, err := NewCached(CachedConfig[int]{}); err == nil {
		t.Error("NewCached() without name: expected error")
	}
	store := persist.NewMemoryStore()
	if _, err := NewCached(CachedConfig[int]{Name: "x", Store: store, Codec: IntCodec}); err == nil {
		t.Error("NewCached() with store but no key: expected error")
	}
	if _, err := NewCached(CachedConfig[int]{Name: "x", Store: store, Key: "k"}); err == nil {
		t.Error("NewCached() with store but no codec: expected error")
	}
}

func TestCached_GetFallsBackOnReadFailure(t *testing.T) {
	port := &fakePort[int]{value: 40}
	c, err := NewCached(CachedConfig[int]{Name: "brightness", Default: 100, Read: port.read, Write: port.write})
	if err != nil {
		t.Fatalf("NewCached() error = %v", err)
	}
	ctx := context.Background()

	if got := c.Get(ctx); got != 40 {
		t.Fatalf("Get() = %d, want 40", got)
	}

	port.failReads(errBus)
	port.set(90)
	for range 3 {
		if got := c.Get(ctx); got != 40 {
			t.Errorf("Get() during read failure = %d, want cached 40", got)
		}
	}

	port.failReads(nil)
	if got := c.Get(ctx); got != 90 {
		t.Errorf("Get() after recovery = %d, want 90", got)
	}
}

func TestCached_GetBeforeAnyReadReturnsDefault(t *testing.T) {
	port := &fakePort[int]{readErr: errBus}
	c, _ := NewCached(CachedConfig[int]{Name: "brightness", Default: 100, Read: port.read}) //nolint:errcheck // Valid config

	if got := c.Get(context.Background()); got != 100 {
		t.Errorf("Get() = %d, want default 100", got)
	}
}

func TestCached_Set(t *testing.T) {
	port := &fakePort[int]{}
	c, _ := NewCached(CachedConfig[int]{ //nolint:errcheck // Valid config
		Name:  "brightness",
		Write: port.write,
		Validate: func(v int) error {
			if v < 0 || v > 100 {
				return errors.New("out of range")
			}
			return nil
		},
	})
	ctx := context.Background()

	if err := c.Set(ctx, 55); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if c.Cached() != 55 {
		t.Errorf("Cached() = %d, want 55", c.Cached())
	}

	if err := c.Set(ctx, 101); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Set(101) error = %v, want ErrInvalidValue", err)
	}

	port.failWrites(errBus)
	if err := c.Set(ctx, 70); !errors.Is(err, ErrHardware) {
		t.Errorf("Set() error = %v, want ErrHardware", err)
	}
	if c.Cached() != 55 {
		t.Errorf("Cached() = %d after failed writes, want 55", c.Cached())
	}
}

func TestCached_ReadOverlappingSetKeepsWrittenValue(t *testing.T) {
	port := &fakePort[int]{value: 10}
	sampled := make(chan struct{})
	release := make(chan struct{})
	read := func(ctx context.Context) (int, error) {
		v, err := port.read(ctx)
		close(sampled)
		<-release
		return v, err
	}
	c, _ := NewCached(CachedConfig[int]{Name: "brightness", Read: read, Write: port.write}) //nolint:errcheck // Valid config
	ctx := context.Background()

	got := make(chan int, 1)
	go func() { got <- c.Get(ctx) }()

	<-sampled
	if err := c.Set(ctx, 50); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	close(release)

	if v := <-got; v != 50 {
		t.Errorf("overlapping Get() = %d, want written 50", v)
	}
	if c.Cached() != 50 {
		t.Errorf("Cached() = %d after overlapping read, want 50", c.Cached())
	}
}

func TestCached_ReadOnly(t *testing.T) {
	c, _ := NewCached(CachedConfig[string]{Name: "status", Default: "IDLE"}) //nolint:errcheck // Valid config
	if err := c.Set(context.Background(), "ACTIVE"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Set() error = %v, want ErrReadOnly", err)
	}
	if got := c.Get(context.Background()); got != "IDLE" {
		t.Errorf("Get() without read path = %q, want IDLE", got)
	}
}

func TestCached_Persistence(t *testing.T) {
	port := &fakePort[int]{}
	store := persist.NewMemoryStore()
	newAttr := func() *Cached[int] {
		c, err := NewCached(CachedConfig[int]{
			Name:    "FPD.power.brightness",
			Default: 100,
			Write:   port.write,
			Store:   store,
			Key:     "FPD.power.brightness",
			Codec:   IntCodec,
		})
		if err != nil {
			t.Fatalf("NewCached() error = %v", err)
		}
		return c
	}
	ctx := context.Background()

	c := newAttr()
	if !c.Persistent() {
		t.Fatal("Persistent() = false")
	}
	if got := c.LoadFromPersistence(ctx); got != 100 {
		t.Errorf("LoadFromPersistence() on empty store = %d, want default 100", got)
	}

	if err := c.Set(ctx, 20); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, ok := store.Lookup("FPD.power.brightness"); ok {
		t.Error("Set() persisted; only SetPersistent should")
	}

	if err := c.SetPersistent(ctx, 30); err != nil {
		t.Fatalf("SetPersistent() error = %v", err)
	}
	if v, _ := store.Lookup("FPD.power.brightness"); v != "30" {
		t.Errorf("persisted = %q, want 30", v)
	}

	// A fresh attribute (restart) picks the persisted value up
	if got := newAttr().LoadFromPersistence(ctx); got != 30 {
		t.Errorf("LoadFromPersistence() after restart = %d, want 30", got)
	}

	port.failWrites(errBus)
	if err := c.SetPersistent(ctx, 80); !errors.Is(err, ErrHardware) {
		t.Errorf("SetPersistent() error = %v, want ErrHardware", err)
	}
	if v, _ := store.Lookup("FPD.power.brightness"); v != "30" {
		t.Errorf("persisted = %q after failed write, want 30", v)
	}
}
