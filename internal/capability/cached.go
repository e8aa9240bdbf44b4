package capability

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-devicesettings/internal/persist"
)

// CachedConfig describes a Cached attribute. Only Name is required; an
// attribute without Read is served from the cache, one without Write is
// read-only. Setting Store enables persistence, which then needs Key and
// Codec as well.
type CachedConfig[T comparable] struct {
	// Name identifies the attribute in logs, for example "HDMI1.allmStatus".
	Name string

	Default T

	Read  ReadFunc[T]
	Write WriteFunc[T]

	// Validate rejects values before any hardware write.
	Validate func(T) error

	Store persist.Store
	Key   string
	Codec Codec[T]

	Logger Logger
}

// Cached is a hardware attribute with read-through-with-fallback semantics.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Writers are serialised;
//     readers never wait on hardware writes.
type Cached[T comparable] struct {
	cfg    CachedConfig[T]
	logger Logger

	writeMu sync.Mutex

	mu    sync.RWMutex
	value T
	// gen counts cache writes by Set and LoadFromPersistence. A hardware
	// read only lands in the cache if gen has not moved since it started.
	gen uint64
}

// NewCached validates cfg and returns a Cached holding cfg.Default.
func NewCached[T comparable](cfg CachedConfig[T]) (*Cached[T], error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("capability: cached attribute needs a name")
	}
	if cfg.Store != nil && (cfg.Key == "" || cfg.Codec.Encode == nil || cfg.Codec.Decode == nil) {
		return nil, fmt.Errorf("capability: %s: persistence needs a key and codec", cfg.Name)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Cached[T]{
		cfg:    cfg,
		logger: logger,
		value:  cfg.Default,
	}, nil
}

// Name returns the attribute name.
func (c *Cached[T]) Name() string {
	return c.cfg.Name
}

// Persistent reports whether the attribute is backed by storage.
func (c *Cached[T]) Persistent() bool {
	return c.cfg.Store != nil
}

// Get reads the attribute from hardware and caches it. If the read fails,
// the failure is logged and the previous cached value returned; the caller
// sees no error.
//
// A read that overlaps a successful Set is discarded in favour of the
// written value, so the cache never goes back to what hardware held before
// the write.
func (c *Cached[T]) Get(ctx context.Context) T {
	if c.cfg.Read == nil {
		return c.Cached()
	}

	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	v, err := c.cfg.Read(ctx)
	if err != nil {
		cached := c.Cached()
		c.logger.Error("hardware read failed, returning cached value",
			"attribute", c.cfg.Name, "cached", cached, "error", err)
		return cached
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		c.logger.Debug("stale hardware read discarded", "attribute", c.cfg.Name, "read", v, "cached", c.value)
		return c.value
	}
	c.value = v
	return v
}

// Cached returns the cached value without touching hardware.
func (c *Cached[T]) Cached() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set writes v to hardware and, only on success, caches it.
//
// Returns:
//   - error: ErrInvalidValue if Validate rejects v, ErrReadOnly if there is no
//     write path, ErrHardware if the write fails
func (c *Cached[T]) Set(ctx context.Context, v T) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.set(ctx, v)
}

// SetPersistent is Set followed by saving v to storage. A storage failure is
// logged as a durability warning and not returned.
func (c *Cached[T]) SetPersistent(ctx context.Context, v T) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.set(ctx, v); err != nil {
		return err
	}
	if c.cfg.Store != nil {
		savePersisted(ctx, c.cfg.Store, c.cfg.Key, c.cfg.Codec, v, c.logger)
	}
	return nil
}

func (c *Cached[T]) set(ctx context.Context, v T) error {
	if c.cfg.Validate != nil {
		if err := c.cfg.Validate(v); err != nil {
			return fmt.Errorf("%s: %w: %w", c.cfg.Name, ErrInvalidValue, err)
		}
	}
	if c.cfg.Write == nil {
		return fmt.Errorf("%s: %w", c.cfg.Name, ErrReadOnly)
	}

	if err := c.cfg.Write(ctx, v); err != nil {
		c.logger.Error("hardware write failed", "attribute", c.cfg.Name, "value", v, "error", err)
		return fmt.Errorf("%s: %w: %w", c.cfg.Name, ErrHardware, err)
	}

	c.store(v)
	return nil
}

func (c *Cached[T]) store(v T) {
	c.mu.Lock()
	c.value = v
	c.gen++
	c.mu.Unlock()
}

// LoadFromPersistence initialises the cache from storage, falling back to
// the default. Attributes without storage keep their current value.
//
// Returns:
//   - T: The value now cached
func (c *Cached[T]) LoadFromPersistence(ctx context.Context) T {
	if c.cfg.Store == nil {
		return c.Cached()
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	v := loadPersisted(ctx, c.cfg.Store, c.cfg.Key, c.cfg.Codec, c.cfg.Default, c.logger)
	c.store(v)
	return v
}
