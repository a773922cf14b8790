package orchestrators

import (
	"context"
	"log/slog"

	"frontporch/internal/domain/audit"
)

// AuditRecorder persists admin activity.
type AuditRecorder interface {
	Save(ctx context.Context, event audit.Event) error
}

// RecordAudit saves event to recorder. A nil recorder is a no-op.
// Failures are logged and never fail the action being audited.
// PRE: event passes Validate
// POST: event is stored, or an internal_error is logged
func RecordAudit(ctx context.Context, recorder AuditRecorder, event audit.Event) {
	if recorder == nil {
		return
	}
	if err := recorder.Save(ctx, event); err != nil {
		slog.Error("internal_error", "where", "audit", "action", event.Action, "actor", event.Actor, "error", err)
	}
}
