package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/infotechopyra0-del/occult369-sub000/internal/auth"
)

func testManager() *auth.Manager {
	return &auth.Manager{
		Secret:     []byte("test-secret"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: time.Hour,
		Issuer:     "occult369",
	}
}

func protectedHandler(manager *auth.Manager, gate func(http.Handler) http.Handler) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return Authenticate(manager)(gate(inner))
}

func TestRequireAdminWithoutToken(t *testing.T) {
	handler := protectedHandler(testManager(), RequireAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAdminWithUserRole(t *testing.T) {
	manager := testManager()
	handler := protectedHandler(manager, RequireAdmin)

	token, err := manager.NewAccessToken("user-1", "user")
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-admin, got %d", rec.Code)
	}
}

func TestRequireAdminWithAdminRole(t *testing.T) {
	manager := testManager()
	handler := protectedHandler(manager, RequireAdmin)

	token, err := manager.NewAccessToken("admin-1", "admin")
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
	manager := testManager()
	handler := protectedHandler(manager, RequireAuth)

	token, err := manager.NewRefreshToken("user-1", "admin")
	if err != nil {
		t.Fatalf("NewRefreshToken error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders/user", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for refresh token on access path, got %d", rec.Code)
	}
}

func TestRequireAuthPassesClaims(t *testing.T) {
	manager := testManager()
	var gotUserID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Fatalf("expected claims in context")
		}
		gotUserID = claims.UserID()
	})
	handler := Authenticate(manager)(RequireAuth(inner))

	token, err := manager.NewAccessToken("user-7", "user")
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders/user", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotUserID != "user-7" {
		t.Fatalf("expected user-7, got %q", gotUserID)
	}
}
