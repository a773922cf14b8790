package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"frontporch/internal/adapters/session"
	"frontporch/internal/domain/account"
)

// AdminStoreForLogin defines the store interface needed by AdminLogin.
type AdminStoreForLogin interface {
	GetByUsername(ctx context.Context, username string) (account.Admin, error)
}

// AdminLoginInput carries input for the login orchestrator.
type AdminLoginInput struct {
	Username string
	Password string
}

// AdminLoginResult carries the result of a successful login.
type AdminLoginResult struct {
	Token    string
	Username string
}

// AdminLoginDeps holds dependencies for AdminLogin.
type AdminLoginDeps struct {
	AdminStore AdminStoreForLogin
	Sessions   session.Store
	NewToken   func() (string, error)
	Now        func() time.Time
}

// ErrAuthFailure is returned for any rejected login; it does not say which part was wrong.
var ErrAuthFailure = errors.New("invalid username or password")

// ExecuteAdminLogin verifies credentials and opens a session.
// PRE: none
// POST: On success a new token maps to the admin's username; on failure nothing is stored
func ExecuteAdminLogin(ctx context.Context, input AdminLoginInput, deps AdminLoginDeps) (AdminLoginResult, error) {
	if input.Username == "" || input.Password == "" {
		slog.Info("auth_event", "event", "login_failed", "username", input.Username, "reason", "missing_field")
		return AdminLoginResult{}, ErrAuthFailure
	}

	admin, err := deps.AdminStore.GetByUsername(ctx, input.Username)
	if errors.Is(err, account.ErrAccountNotFound) {
		account.BurnPasswordCheck(input.Password)
		slog.Info("auth_event", "event", "login_failed", "username", input.Username, "reason", "not_found")
		return AdminLoginResult{}, ErrAuthFailure
	}
	if err != nil {
		return AdminLoginResult{}, fmt.Errorf("load admin: %w", err)
	}

	if err := admin.CheckPassword(input.Password); err != nil {
		slog.Info("auth_event", "event", "login_failed", "username", input.Username, "reason", "wrong_password")
		return AdminLoginResult{}, ErrAuthFailure
	}

	newToken := deps.NewToken
	if newToken == nil {
		newToken = session.NewToken
	}
	token, err := newToken()
	if err != nil {
		return AdminLoginResult{}, fmt.Errorf("mint session token: %w", err)
	}
	if err := deps.Sessions.Put(ctx, token, session.Session{
		Username:  admin.Username,
		CreatedAt: clock(deps.Now),
	}); err != nil {
		return AdminLoginResult{}, fmt.Errorf("store session: %w", err)
	}

	slog.Info("auth_event", "event", "login_success", "username", admin.Username)
	return AdminLoginResult{Token: token, Username: admin.Username}, nil
}

// AdminLogoutDeps holds dependencies for AdminLogout.
type AdminLogoutDeps struct {
	Sessions session.Store
}

// ExecuteAdminLogout ends a session. Unknown or empty tokens are ignored.
// PRE: none
// POST: token no longer resolves to a session
func ExecuteAdminLogout(ctx context.Context, token string, deps AdminLogoutDeps) error {
	if token == "" {
		return nil
	}
	s, ok, err := deps.Sessions.Get(ctx, token)
	if err != nil {
		return err
	}
	if err := deps.Sessions.Delete(ctx, token); err != nil {
		return err
	}
	if ok {
		slog.Info("auth_event", "event", "logout", "username", s.Username)
	}
	return nil
}
