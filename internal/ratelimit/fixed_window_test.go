package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestFixedWindowLimiterEnforcesLimit(t *testing.T) {
	r := miniredis.RunT(t)
	l, err := New(r.Addr(), "", 2, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	if !l.Allow("login:1.2.3.4") {
		t.Fatalf("first request should be allowed")
	}
	if !l.Allow("login:1.2.3.4") {
		t.Fatalf("second request should be allowed")
	}
	if l.Allow("login:1.2.3.4") {
		t.Fatalf("third request should be blocked")
	}
	// Separate keys do not share quota.
	if !l.Allow("login:5.6.7.8") {
		t.Fatalf("different key should be allowed")
	}
}

func TestFixedWindowLimiterNilAllows(t *testing.T) {
	var l *FixedWindowLimiter
	if !l.Allow("anything") {
		t.Fatalf("nil limiter must allow")
	}
}

func TestNewValidatesArguments(t *testing.T) {
	if _, err := New("", "", 5, time.Minute); err == nil {
		t.Fatalf("expected missing addr to fail")
	}
	if _, err := New("localhost:6379", "", 0, time.Minute); err == nil {
		t.Fatalf("expected zero limit to fail")
	}
	if _, err := New("localhost:6379", "", 5, 0); err == nil {
		t.Fatalf("expected zero window to fail")
	}
}
