package projections

import (
	"context"
	"testing"
	"time"

	auditStore "frontporch/internal/adapters/storage/audit"
	"frontporch/internal/domain/audit"
)

// mockAuditLister is an in-memory mock for AuditLister.
type mockAuditLister struct {
	events    []audit.Event
	lastLimit int
}

func (m *mockAuditLister) List(_ context.Context, _ auditStore.Filter, limit int) ([]audit.Event, error) {
	m.lastLimit = limit
	if len(m.events) > limit {
		return m.events[:limit], nil
	}
	return m.events, nil
}

// TestQueryGetRecentActivity verifies the default limit and the unconfigured case.
func TestQueryGetRecentActivity(t *testing.T) {
	ctx := context.Background()

	events, err := QueryGetRecentActivity(ctx, GetRecentActivityDeps{}, 5)
	if err != nil || events != nil {
		t.Errorf("no store: events=%v err=%v", events, err)
	}

	lister := &mockAuditLister{events: []audit.Event{
		audit.NewEvent("frontporchadmin", audit.ActionLogin, time.Now()),
	}}
	events, err = QueryGetRecentActivity(ctx, GetRecentActivityDeps{AuditStore: lister}, 0)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if lister.lastLimit != DefaultActivityLimit {
		t.Errorf("limit = %d, want %d", lister.lastLimit, DefaultActivityLimit)
	}
	if len(events) != 1 || events[0].Action != audit.ActionLogin {
		t.Errorf("events = %+v", events)
	}
}
