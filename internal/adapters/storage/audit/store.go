package audit

import (
	"context"
	"time"

	domain "frontporch/internal/domain/audit"
)

// Store defines the interface for audit event persistence.
type Store interface {
	// Save persists an audit event.
	// PRE: event passes Validate
	// POST: Event is persisted
	Save(ctx context.Context, event domain.Event) error

	// List returns audit events matching filter, newest first.
	// PRE: limit > 0
	// POST: Returns at most limit events ordered by timestamp desc
	List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error)
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Action     domain.Action
	Actor      string
	ResourceID string
	Since      time.Time
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
