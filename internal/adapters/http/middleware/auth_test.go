package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"frontporch/internal/adapters/session"
)

type failingSessionStore struct{}

func (failingSessionStore) Put(context.Context, string, session.Session) error { return nil }
func (failingSessionStore) Get(context.Context, string) (session.Session, bool, error) {
	return session.Session{}, false, errors.New("redis unreachable")
}
func (failingSessionStore) Delete(context.Context, string) error { return nil }

func sessionProbe(got *session.Session, found *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, *found = GetSessionFromContext(r.Context())
	})
}

// TestAuth_ResolvesCookie verifies a known token puts the session in context.
func TestAuth_ResolvesCookie(t *testing.T) {
	store := session.NewMemoryStore()
	store.Put(context.Background(), "tok", session.Session{Username: "frontporchadmin"})

	var got session.Session
	var found bool
	handler := Auth(store)(sessionProbe(&got, &found))

	req := httptest.NewRequest("GET", "/admin", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tok"})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !found || got.Username != "frontporchadmin" {
		t.Errorf("session = %+v found = %v", got, found)
	}
}

// TestAuth_UnknownOrMissingCookie verifies requests pass through without a session.
func TestAuth_UnknownOrMissingCookie(t *testing.T) {
	tests := []struct {
		name   string
		store  session.Store
		cookie string
	}{
		{"no cookie", session.NewMemoryStore(), ""},
		{"unknown token", session.NewMemoryStore(), "forged"},
		{"store error", failingSessionStore{}, "tok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got session.Session
			var found bool
			handler := Auth(tt.store)(sessionProbe(&got, &found))
			req := httptest.NewRequest("GET", "/admin", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if found {
				t.Errorf("session found = %+v, want none", got)
			}
			if rr.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", rr.Code)
			}
		})
	}
}

// TestRequireAdmin verifies unauthenticated requests are redirected to the login page.
func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/admin/delete_signup", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/admin" {
		t.Errorf("unauthenticated = %d %q, want 303 /admin", rr.Code, rr.Header().Get("Location"))
	}

	req := httptest.NewRequest("POST", "/admin/delete_signup", nil)
	req = req.WithContext(ContextWithSession(req.Context(), session.Session{Username: "a"}))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", rr.Code)
	}
}

// TestSessionCookie verifies cookie attributes.
func TestSessionCookie(t *testing.T) {
	rr := httptest.NewRecorder()
	SetSessionCookie(rr, "tok", false)
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != SessionCookieName || c.Value != "tok" || !c.HttpOnly || c.SameSite != http.SameSiteLaxMode || c.MaxAge != 0 {
		t.Errorf("cookie = %+v", c)
	}

	rr = httptest.NewRecorder()
	ClearSessionCookie(rr, true)
	c = rr.Result().Cookies()[0]
	if c.MaxAge >= 0 || c.Value != "" || !c.Secure {
		t.Errorf("cleared cookie = %+v", c)
	}
}
