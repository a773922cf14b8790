package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"frontporch/internal/adapters/session"
	"frontporch/internal/domain/account"
)

// --- Mock admin store ---

type mockAdminStore struct {
	admins map[string]account.Admin
	saves  int
	getErr error
}

func newMockAdminStore() *mockAdminStore {
	return &mockAdminStore{admins: make(map[string]account.Admin)}
}

func (m *mockAdminStore) GetByUsername(_ context.Context, username string) (account.Admin, error) {
	if m.getErr != nil {
		return account.Admin{}, m.getErr
	}
	a, ok := m.admins[username]
	if !ok {
		return account.Admin{}, fmt.Errorf("admin %q: %w", username, account.ErrAccountNotFound)
	}
	return a, nil
}

func (m *mockAdminStore) Save(_ context.Context, a account.Admin) error {
	m.saves++
	m.admins[a.Username] = a
	return nil
}

func seededAdminStore(t *testing.T, username, password string) *mockAdminStore {
	t.Helper()
	store := newMockAdminStore()
	a := account.Admin{ID: "admin-1", Username: username}
	if err := a.SetPassword(password); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	store.admins[username] = a
	return store
}

// TestExecuteAdminLogin_Success verifies a token is minted and stored.
func TestExecuteAdminLogin_Success(t *testing.T) {
	sessions := session.NewMemoryStore()
	deps := AdminLoginDeps{
		AdminStore: seededAdminStore(t, "frontporchadmin", "toomanymugs"),
		Sessions:   sessions,
		NewToken:   func() (string, error) { return "tok-123", nil },
		Now:        fixedNow,
	}

	res, err := ExecuteAdminLogin(context.Background(), AdminLoginInput{Username: "frontporchadmin", Password: "toomanymugs"}, deps)
	if err != nil {
		t.Fatalf("ExecuteAdminLogin: %v", err)
	}
	if res.Token != "tok-123" || res.Username != "frontporchadmin" {
		t.Errorf("result = %+v", res)
	}
	s, ok, _ := sessions.Get(context.Background(), "tok-123")
	if !ok || s.Username != "frontporchadmin" || !s.CreatedAt.Equal(fixedNow()) {
		t.Errorf("stored session = %+v, ok=%v", s, ok)
	}
}

// TestExecuteAdminLogin_DefaultToken verifies the real token generator is used by default.
func TestExecuteAdminLogin_DefaultToken(t *testing.T) {
	sessions := session.NewMemoryStore()
	deps := AdminLoginDeps{AdminStore: seededAdminStore(t, "admin", "pw"), Sessions: sessions}

	res, err := ExecuteAdminLogin(context.Background(), AdminLoginInput{Username: "admin", Password: "pw"}, deps)
	if err != nil {
		t.Fatalf("ExecuteAdminLogin: %v", err)
	}
	if len(res.Token) != 64 {
		t.Errorf("token length = %d, want 64", len(res.Token))
	}
}

// TestExecuteAdminLogin_Failures verifies every rejection is ErrAuthFailure and stores nothing.
func TestExecuteAdminLogin_Failures(t *testing.T) {
	tests := []struct {
		name  string
		input AdminLoginInput
	}{
		{"wrong password", AdminLoginInput{Username: "frontporchadmin", Password: "wrong"}},
		{"unknown user", AdminLoginInput{Username: "someone", Password: "toomanymugs"}},
		{"empty password", AdminLoginInput{Username: "frontporchadmin"}},
		{"empty username", AdminLoginInput{Password: "toomanymugs"}},
	}
	store := seededAdminStore(t, "frontporchadmin", "toomanymugs")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := session.NewMemoryStore()
			res, err := ExecuteAdminLogin(context.Background(), tt.input, AdminLoginDeps{AdminStore: store, Sessions: sessions})
			if !errors.Is(err, ErrAuthFailure) {
				t.Errorf("err = %v, want ErrAuthFailure", err)
			}
			if res.Token != "" {
				t.Errorf("token = %q, want empty", res.Token)
			}
			if sessions.Len() != 0 {
				t.Errorf("sessions stored = %d, want 0", sessions.Len())
			}
		})
	}
}

// TestExecuteAdminLogin_StoreError verifies storage failures are not reported as bad credentials.
func TestExecuteAdminLogin_StoreError(t *testing.T) {
	store := newMockAdminStore()
	store.getErr = errors.New("disk on fire")
	_, err := ExecuteAdminLogin(context.Background(), AdminLoginInput{Username: "a", Password: "b"},
		AdminLoginDeps{AdminStore: store, Sessions: session.NewMemoryStore()})
	if err == nil || errors.Is(err, ErrAuthFailure) {
		t.Errorf("err = %v, want a non-auth error", err)
	}
}

// TestExecuteAdminLogout verifies logout removes the mapping and tolerates unknown tokens.
func TestExecuteAdminLogout(t *testing.T) {
	ctx := context.Background()
	sessions := session.NewMemoryStore()
	sessions.Put(ctx, "tok", session.Session{Username: "admin"})
	deps := AdminLogoutDeps{Sessions: sessions}

	if err := ExecuteAdminLogout(ctx, "tok", deps); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok, _ := sessions.Get(ctx, "tok"); ok {
		t.Error("session still resolves after logout")
	}
	if err := ExecuteAdminLogout(ctx, "tok", deps); err != nil {
		t.Errorf("second logout: %v", err)
	}
	if err := ExecuteAdminLogout(ctx, "", deps); err != nil {
		t.Errorf("empty token logout: %v", err)
	}
}

// TestExecuteSeedAdmin verifies seeding happens once and hashes the password.
func TestExecuteSeedAdmin(t *testing.T) {
	store := newMockAdminStore()
	deps := SeedAdminDeps{AdminStore: store, GenerateID: func() string { return "id-1" }, Now: fixedNow}
	ctx := context.Background()

	created, err := ExecuteSeedAdmin(ctx, deps, "frontporchadmin", "toomanymugs")
	if err != nil || !created {
		t.Fatalf("first seed = %v, %v; want true, nil", created, err)
	}
	a := store.admins["frontporchadmin"]
	if a.ID != "id-1" || a.PasswordHash == "toomanymugs" {
		t.Errorf("seeded admin = %+v", a)
	}
	if err := a.CheckPassword("toomanymugs"); err != nil {
		t.Errorf("CheckPassword: %v", err)
	}

	created, err = ExecuteSeedAdmin(ctx, deps, "frontporchadmin", "different")
	if err != nil || created {
		t.Errorf("second seed = %v, %v; want false, nil", created, err)
	}
	if store.saves != 1 {
		t.Errorf("saves = %d, want 1", store.saves)
	}
}

// TestExecuteSeedAdmin_RejectsEmptyPassword verifies the admin is never stored without a password.
func TestExecuteSeedAdmin_RejectsEmptyPassword(t *testing.T) {
	store := newMockAdminStore()
	_, err := ExecuteSeedAdmin(context.Background(), SeedAdminDeps{AdminStore: store}, "admin", "")
	if !errors.Is(err, account.ErrEmptyPassword) {
		t.Errorf("err = %v, want ErrEmptyPassword", err)
	}
	if store.saves != 0 {
		t.Errorf("saves = %d, want 0", store.saves)
	}
}
