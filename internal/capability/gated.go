package capability

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-devicesettings/internal/persist"
)

// GatedConfig describes a Gated attribute.
type GatedConfig[T comparable] struct {
	// Key is the persistent storage key, for example "HDMI0.edidallmEnable".
	Key string

	// Default is used until LoadFromPersistence succeeds, and whenever it fails.
	Default T

	Codec Codec[T]

	// Gate reports whether writes are currently allowed. It is called with
	// the attribute's write lock held and must not call back into this Gated.
	Gate func() bool

	Write WriteFunc[T]
	Store persist.Store

	Logger Logger
}

// Gated is a hardware-writable attribute whose writes are only legal while a
// precondition holds.
//
// Thread Safety:
//   - Get is safe for concurrent use and never blocks on I/O.
//   - Set and Reassert are serialised with each other.
type Gated[T comparable] struct {
	cfg    GatedConfig[T]
	logger Logger

	// writeMu serialises Set and Reassert across hardware and storage I/O.
	writeMu sync.Mutex

	mu    sync.RWMutex
	value T
}

// NewGated validates cfg and returns a Gated holding cfg.Default.
func NewGated[T comparable](cfg GatedConfig[T]) (*Gated[T], error) {
	switch {
	case cfg.Key == "":
		return nil, errors.New("capability: gated attribute needs a key")
	case cfg.Gate == nil:
		return nil, fmt.Errorf("capability: %s: gate is required", cfg.Key)
	case cfg.Write == nil:
		return nil, fmt.Errorf("capability: %s: write function is required", cfg.Key)
	case cfg.Store == nil:
		return nil, fmt.Errorf("capability: %s: store is required", cfg.Key)
	case cfg.Codec.Encode == nil || cfg.Codec.Decode == nil:
		return nil, fmt.Errorf("capability: %s: codec is required", cfg.Key)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Gated[T]{
		cfg:    cfg,
		logger: logger,
		value:  cfg.Default,
	}, nil
}

// Key returns the persistent storage key.
func (g *Gated[T]) Key() string {
	return g.cfg.Key
}

// LoadFromPersistence initialises the cache from storage, or from the
// default when storage has no readable value. It does not touch hardware.
//
// Returns:
//   - T: The value now cached
func (g *Gated[T]) LoadFromPersistence(ctx context.Context) T {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	v := loadPersisted(ctx, g.cfg.Store, g.cfg.Key, g.cfg.Codec, g.cfg.Default, g.logger)

	g.mu.Lock()
	g.value = v
	g.mu.Unlock()
	return v
}

// Get returns the cached value. It never touches hardware or storage.
func (g *Gated[T]) Get() T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.value
}

// Set writes v to hardware if the gate is open, then persists and caches it.
//
// Returns:
//   - error: ErrGateClosed if the gate is closed, ErrHardware (wrapping the
//     cause) if the hardware write fails. In both cases nothing changes.
//     A persistence failure after a successful write is logged, not returned.
func (g *Gated[T]) Set(ctx context.Context, v T) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	if !g.cfg.Gate() {
		g.logger.Info("write rejected, gate closed", "key", g.cfg.Key, "value", v)
		return fmt.Errorf("%s: %w", g.cfg.Key, ErrGateClosed)
	}

	if err := g.cfg.Write(ctx, v); err != nil {
		g.logger.Error("hardware write failed", "key", g.cfg.Key, "value", v, "error", err)
		return fmt.Errorf("%s: %w: %w", g.cfg.Key, ErrHardware, err)
	}

	savePersisted(ctx, g.cfg.Store, g.cfg.Key, g.cfg.Codec, v, g.logger)

	g.mu.Lock()
	g.value = v
	g.mu.Unlock()
	return nil
}

// Reassert pushes the cached value to hardware again, for use after the
// gate reopens. Storage is not touched.
//
// Returns:
//   - error: ErrGateClosed if the gate is closed, ErrHardware if the write fails
func (g *Gated[T]) Reassert(ctx context.Context) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	if !g.cfg.Gate() {
		return fmt.Errorf("%s: %w", g.cfg.Key, ErrGateClosed)
	}

	v := g.Get()
	if err := g.cfg.Write(ctx, v); err != nil {
		g.logger.Error("hardware re-assert failed", "key", g.cfg.Key, "value", v, "error", err)
		return fmt.Errorf("%s: %w: %w", g.cfg.Key, ErrHardware, err)
	}
	g.logger.Debug("cached value re-asserted", "key", g.cfg.Key, "value", v)
	return nil
}
