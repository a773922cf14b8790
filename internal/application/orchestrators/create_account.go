package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"frontporch/internal/domain/account"
)

// AdminStoreForSeed defines the store interface needed by SeedAdmin.
type AdminStoreForSeed interface {
	GetByUsername(ctx context.Context, username string) (account.Admin, error)
	Save(ctx context.Context, a account.Admin) error
}

// SeedAdminDeps holds dependencies for SeedAdmin.
type SeedAdminDeps struct {
	AdminStore AdminStoreForSeed
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteSeedAdmin creates the configured admin if no admin with that username exists.
// An existing admin keeps its current password.
// PRE: Database is migrated
// POST: An admin named username exists; reports whether it was created now
func ExecuteSeedAdmin(ctx context.Context, deps SeedAdminDeps, username, password string) (bool, error) {
	username = strings.TrimSpace(username)

	_, err := deps.AdminStore.GetByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, account.ErrAccountNotFound) {
		return false, err
	}

	genID := deps.GenerateID
	if genID == nil {
		genID = uuid.NewString
	}
	admin := account.Admin{
		ID:        genID(),
		Username:  username,
		CreatedAt: clock(deps.Now),
	}
	if err := admin.Validate(); err != nil {
		return false, err
	}
	if err := admin.SetPassword(password); err != nil {
		return false, err
	}
	if err := deps.AdminStore.Save(ctx, admin); err != nil {
		return false, err
	}

	slog.Info("auth_event", "event", "admin_seeded", "username", username)
	return true, nil
}
