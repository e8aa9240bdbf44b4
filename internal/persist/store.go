// Package persist provides the persistent property store that device
// settings survive restarts in.
//
// Keys are attribute-and-port scoped strings such as "HDMI0.edidversion" or
// "FPD.power.brightness". Values are opaque strings; encoding is the caller's
// concern (see the capability package codecs).
package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Store is the persistent storage collaborator used by capabilities.
type Store interface {
	GetProperty(ctx context.Context, key string) (string, error)
	SetProperty(ctx context.Context, key, value string) error
}

// SQLiteStore keeps properties in the properties table created by the
// embedded migrations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open, migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetProperty returns the stored value for key.
//
// Returns:
//   - string: The stored value
//   - error: ErrPropertyNotFound if the key has never been set, or a wrapped
//     driver error if storage is unavailable
func (s *SQLiteStore) GetProperty(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM properties WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrPropertyNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("reading property %s: %w", key, err)
	}
	return value, nil
}

// SetProperty inserts or replaces the value stored for key.
func (s *SQLiteStore) SetProperty(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO properties (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing property %s: %w", key, err)
	}
	return nil
}

// Properties returns every stored key/value pair.
func (s *SQLiteStore) Properties(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM properties ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	defer rows.Close()

	props := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		props[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating properties: %w", err)
	}
	return props, nil
}

// MemoryStore is an in-process Store, used by tests and by the simulated
// platform when no database is configured. Failures can be injected to
// exercise durability handling.
type MemoryStore struct {
	mu       sync.Mutex
	props    map[string]string
	getErr   error
	setErr   error
	setCalls int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{props: make(map[string]string)}
}

// GetProperty returns the value for key, or the injected read failure.
func (m *MemoryStore) GetProperty(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.props[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrPropertyNotFound, key)
	}
	return v, nil
}

// SetProperty stores value under key, or returns the injected write failure.
func (m *MemoryStore) SetProperty(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	m.props[key] = value
	return nil
}

// Lookup returns the raw stored value without going through failure injection.
func (m *MemoryStore) Lookup(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.props[key]
	return v, ok
}

// SetCalls returns how many SetProperty calls have been made.
func (m *MemoryStore) SetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setCalls
}

// FailReads makes subsequent GetProperty calls return err (nil clears it).
func (m *MemoryStore) FailReads(err error) {
	m.mu.Lock()
	m.getErr = err
	m.mu.Unlock()
}

// FailWrites makes subsequent SetProperty calls return err (nil clears it).
func (m *MemoryStore) FailWrites(err error) {
	m.mu.Lock()
	m.setErr = err
	m.mu.Unlock()
}
