// Package audit records the history of setting changes made through the
// HTTP API or MQTT commands, and provides paginated access to it.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Change sources.
const (
	SourceAPI  = "api"
	SourceMQTT = "mqtt"
)

// Page size bounds for List.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// timeLayout is fixed-width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Change is a single recorded setting change.
type Change struct {
	ID        string    `json:"id"`
	Facet     string    `json:"facet"`
	Target    string    `json:"target,omitempty"`
	Attribute string    `json:"attribute"`
	Value     any       `json:"value"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter controls which changes to return.
type Filter struct {
	Facet     string // optional: filter by facet (hdmiin, fpd)
	Target    string // optional: filter by port or indicator
	Attribute string // optional: filter by attribute name
	Limit     int    // default 50, max 200
	Offset    int    // pagination offset
}

// ListResult contains the paginated change history.
type ListResult struct {
	Changes []Change `json:"changes"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// Repository defines the interface for change history operations.
type Repository interface {
	Create(ctx context.Context, c *Change) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores changes in the setting_changes table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new change history repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a change. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, c *Change) error {
	if c.ID == "" {
		c.ID = "chg-" + uuid.NewString()[:8]
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	value, err := json.Marshal(c.Value)
	if err != nil {
		return fmt.Errorf("marshalling change value: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO setting_changes (id, facet, target, attribute, value, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Facet, nullableString(c.Target), c.Attribute,
		string(value), c.Source,
		c.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting setting change: %w", err)
	}

	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns changes matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) { //nolint:gocognit // dynamic query builder: WHERE clause assembly from filter fields
	if filter.Limit <= 0 {
		filter.Limit = DefaultLimit
	}
	if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.Facet != "" {
		conditions = append(conditions, "facet = ?")
		args = append(args, filter.Facet)
	}
	if filter.Target != "" {
		conditions = append(conditions, "target = ?")
		args = append(args, filter.Target)
	}
	if filter.Attribute != "" {
		conditions = append(conditions, "attribute = ?")
		args = append(args, filter.Attribute)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM setting_changes %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting setting changes: %w", err)
	}

	// rowid breaks ties between changes recorded in the same instant.
	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, facet, target, attribute, value, source, created_at FROM setting_changes %s ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying setting changes: %w", err)
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var c Change
		var target sql.NullString
		var value, createdAt string

		if err := rows.Scan(&c.ID, &c.Facet, &target, &c.Attribute, &value, &c.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning setting change: %w", err)
		}
		if target.Valid {
			c.Target = target.String
		}
		if err := json.Unmarshal([]byte(value), &c.Value); err != nil {
			return nil, fmt.Errorf("decoding value of change %s: %w", c.ID, err)
		}

		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing change timestamp %q: %w", createdAt, err)
		}
		c.CreatedAt = t

		changes = append(changes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating setting changes: %w", err)
	}

	return &ListResult{
		Changes: changes,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
