package projections

import (
	"context"

	auditStore "frontporch/internal/adapters/storage/audit"
	"frontporch/internal/domain/audit"
)

// DefaultActivityLimit is how many events the dashboard shows.
const DefaultActivityLimit = 20

// GetRecentActivityDeps holds dependencies for GetRecentActivity.
type GetRecentActivityDeps struct {
	AuditStore AuditLister
}

// QueryGetRecentActivity lists the latest admin actions, newest first.
// PRE: limit > 0, or 0 for DefaultActivityLimit
// POST: Returns nil without error when no audit store is configured
func QueryGetRecentActivity(ctx context.Context, deps GetRecentActivityDeps, limit int) ([]audit.Event, error) {
	if deps.AuditStore == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	return deps.AuditStore.List(ctx, auditStore.Filter{}, limit)
}
