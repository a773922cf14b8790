package account

import (
	"context"

	domain "frontporch/internal/domain/account"
)

// Store persists Admin state.
type Store interface {
	GetByUsername(ctx context.Context, username string) (domain.Admin, error)
	Save(ctx context.Context, value domain.Admin) error
	Count(ctx context.Context) (int, error)
}
