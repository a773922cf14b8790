package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"frontporch/internal/domain/signup"
	"frontporch/internal/domain/snapshot"
)

// SignupLister lists every stored signup.
type SignupLister interface {
	ListAll(ctx context.Context) ([]signup.Signup, error)
}

// ExportSnapshotDeps holds dependencies for ExportSnapshot.
type ExportSnapshotDeps struct {
	SignupStore SignupLister
	Now         func() time.Time
}

// ExecuteExportSnapshot builds the versioned JSON backup of all signups.
// PRE: none
// POST: Returned document lists every signup exactly once
func ExecuteExportSnapshot(ctx context.Context, deps ExportSnapshotDeps) (snapshot.Document, error) {
	all, err := deps.SignupStore.ListAll(ctx)
	if err != nil {
		return snapshot.Document{}, err
	}
	doc := snapshot.NewDocument(all, clock(deps.Now))
	slog.Info("restore_event", "event", "exported", "count", len(doc.Signups))
	return doc, nil
}
