package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	if !rl.Allow("1.2.3.4:/api/contact") {
		t.Fatalf("first request should pass")
	}
	if !rl.Allow("1.2.3.4:/api/contact") {
		t.Fatalf("second request should pass")
	}
	if rl.Allow("1.2.3.4:/api/contact") {
		t.Fatalf("third request should be limited")
	}
	if !rl.Allow("5.6.7.8:/api/contact") {
		t.Fatalf("other client should not be limited")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)

	if !rl.Allow("key") {
		t.Fatalf("first request should pass")
	}
	if rl.Allow("key") {
		t.Fatalf("second request should be limited")
	}

	time.Sleep(15 * time.Millisecond)
	if !rl.Allow("key") {
		t.Fatalf("request after window reset should pass")
	}
}
