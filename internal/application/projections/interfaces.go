package projections

import (
	"context"

	auditStore "frontporch/internal/adapters/storage/audit"
	"frontporch/internal/domain/audit"
	domainSignup "frontporch/internal/domain/signup"
)

// SignupStore interface for signup queries.
type SignupStore interface {
	ListAll(ctx context.Context) ([]domainSignup.Signup, error)
}

// AuditLister defines the audit store interface needed by projections.
type AuditLister interface {
	List(ctx context.Context, filter auditStore.Filter, limit int) ([]audit.Event, error)
}
