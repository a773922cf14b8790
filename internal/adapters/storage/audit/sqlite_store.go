package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"frontporch/internal/adapters/storage"
	domain "frontporch/internal/domain/audit"
)

// dateLayout is fixed-width so timestamps sort as text.
const dateLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectColumns = `SELECT id, timestamp, action, actor, resource_id, description, ip_address FROM audit_event`

// SQLiteStore implements the audit Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new audit event store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists an audit event.
// PRE: event passes Validate
// POST: Event is persisted
func (s *SQLiteStore) Save(ctx context.Context, event domain.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_event (id, timestamp, action, actor, resource_id, description, ip_address)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp.UTC().Format(dateLayout), string(event.Action), event.Actor,
		event.ResourceID, event.Description, event.IPAddress)
	return err
}

// List returns the newest events matching filter.
// PRE: limit > 0
// POST: Returns at most limit events, newest first
func (s *SQLiteStore) List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error) {
	var where []string
	var args []any
	match := func(cond string, arg any) {
		where = append(where, cond)
		args = append(args, arg)
	}
	if filter.Action != "" {
		match("action = ?", string(filter.Action))
	}
	if filter.Actor != "" {
		match("actor = ?", filter.Actor)
	}
	if filter.ResourceID != "" {
		match("resource_id = ?", filter.ResourceID)
	}
	if !filter.Since.IsZero() {
		match("timestamp >= ?", filter.Since.UTC().Format(dateLayout))
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// scanEvents reads rows produced by selectColumns.
func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		var (
			e     domain.Event
			stamp string
		)
		if err := rows.Scan(&e.ID, &stamp, &e.Action, &e.Actor, &e.ResourceID, &e.Description, &e.IPAddress); err != nil {
			return nil, err
		}
		ts, err := time.Parse(dateLayout, stamp)
		if err != nil {
			return nil, fmt.Errorf("audit event %s: bad timestamp %q: %w", e.ID, stamp, err)
		}
		e.Timestamp = ts
		events = append(events, e)
	}
	return events, rows.Err()
}
