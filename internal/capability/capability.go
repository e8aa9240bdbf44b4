// Package capability manages writable hardware attributes with an in-memory
// cache, optional persistence and, for gated attributes, a write precondition.
//
// Two shapes are provided:
//
//   - Gated: a cache-only getter and a setter that is rejected with
//     ErrGateClosed unless a precondition holds (for example "EDID version is
//     2.0" for the ALLM and VRR support bits). Accepted values are persisted
//     and can be re-asserted to hardware later.
//   - Cached: a read-through getter that falls back to the last good value
//     when the hardware read fails, and a setter that only updates the cache
//     after a successful hardware write.
//
// Hardware and storage calls are made without holding the cache lock, so a
// slow write never blocks readers.
package capability

import (
	"context"
	"errors"

	"github.com/nerrad567/gray-logic-devicesettings/internal/persist"
)

// Logger defines the logging interface used by capabilities.
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

// ReadFunc reads an attribute from hardware.
type ReadFunc[T any] func(ctx context.Context) (T, error)

// WriteFunc writes an attribute to hardware.
type WriteFunc[T any] func(ctx context.Context, v T) error

// loadPersisted reads key from store and decodes it, falling back to def on
// any failure. It never returns an error: a missing or unreadable value is
// logged and the default used.
func loadPersisted[T any](ctx context.Context, store persist.Store, key string, codec Codec[T], def T, logger Logger) T {
	raw, err := store.GetProperty(ctx, key)
	if err != nil {
		if errors.Is(err, persist.ErrPropertyNotFound) {
			logger.Info("no persisted value, using default", "key", key, "default", def)
		} else {
			logger.Warn("persisted value unavailable, using default", "key", key, "default", def, "error", err)
		}
		return def
	}

	v, err := codec.Decode(raw)
	if err != nil {
		logger.Warn("persisted value unreadable, using default", "key", key, "raw", raw, "error", err)
		return def
	}
	return v
}

// savePersisted stores v under key. A failure is a durability warning only:
// the hardware already holds the value and the cache is still updated.
func savePersisted[T any](ctx context.Context, store persist.Store, key string, codec Codec[T], v T, logger Logger) {
	if err := store.SetProperty(ctx, key, codec.Encode(v)); err != nil {
		logger.Warn("value applied but not persisted, it will not survive a restart",
			"key", key, "value", v, "error", err)
	}
}
