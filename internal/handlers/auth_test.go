package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/infotechopyra0-del/occult369-sub000/internal/auth"
)

func newAuthTestServer() *Server {
	return &Server{
		JWT: &auth.Manager{
			Secret:     []byte("test-secret"),
			AccessTTL:  15 * time.Minute,
			RefreshTTL: time.Hour,
			Issuer:     "occult369",
		},
		Log: slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil)),
	}
}

func TestRefreshWithoutCookie(t *testing.T) {
	s := newAuthTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	rec := httptest.NewRecorder()
	s.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	s := newAuthTestServer()

	// An access token planted in the refresh cookie must not mint a
	// fresh session.
	token, err := s.JWT.NewAccessToken("user-1", "user")
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: token})
	rec := httptest.NewRecorder()
	s.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for access token on refresh, got %d", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Value != "" {
			t.Fatalf("no session cookies should be set, got %s", c.Name)
		}
	}
}
