package auth

import (
	"testing"
	"time"
)

func newTestManager() *Manager {
	return &Manager{
		Secret:     []byte("test-secret"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Issuer:     "occult369",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager()

	token, err := m.NewAccessToken("user-1", "admin")
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if claims.UserID() != "user-1" {
		t.Fatalf("expected subject user-1, got %q", claims.UserID())
	}
	if claims.Role != "admin" {
		t.Fatalf("expected role admin, got %q", claims.Role)
	}
	if claims.TokenType != TokenTypeAccess {
		t.Fatalf("expected access token type, got %q", claims.TokenType)
	}
}

func TestRefreshTokenCarriesItsType(t *testing.T) {
	m := newTestManager()

	token, err := m.NewRefreshToken("user-1", "user")
	if err != nil {
		t.Fatalf("NewRefreshToken error: %v", err)
	}
	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if claims.TokenType != TokenTypeRefresh {
		t.Fatalf("expected refresh token type, got %q", claims.TokenType)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	m := newTestManager()
	token, err := m.NewAccessToken("user-1", "user")
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}

	other := newTestManager()
	other.Secret = []byte("other-secret")
	if _, err := other.Parse(token); err == nil {
		t.Fatalf("expected parse error with wrong secret")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	m := newTestManager()
	m.AccessTTL = -1 * time.Minute

	token, err := m.NewAccessToken("user-1", "user")
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}
	if _, err := m.Parse(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if err := ComparePassword(hash, "s3cret-pass"); err != nil {
		t.Fatalf("ComparePassword error: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Fatalf("expected mismatch error")
	}
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}
