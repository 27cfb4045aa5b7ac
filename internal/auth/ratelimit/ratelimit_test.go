package ratelimit

import (
	"testing"
	"time"
)

func TestAllowConsumesTokens(t *testing.T) {
	l := New(time.Hour)

	for i := 0; i < 3; i++ {
		if !l.Allow("key-a", 3) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("key-a", 3) {
		t.Error("fourth request should be blocked")
	}
}

func TestAllowIsPerKey(t *testing.T) {
	l := New(time.Hour)

	if !l.Allow("key-a", 1) {
		t.Fatal("first request for key-a should be allowed")
	}
	if l.Allow("key-a", 1) {
		t.Error("second request for key-a should be blocked")
	}
	if !l.Allow("key-b", 1) {
		t.Error("key-b should have its own bucket")
	}
}

func TestAllowUnlimitedForNonPositiveLimit(t *testing.T) {
	l := New(time.Hour)

	for i := 0; i < 100; i++ {
		if !l.Allow("key-a", 0) {
			t.Fatal("zero limit should never block")
		}
	}
}

func TestResetRestoresCapacity(t *testing.T) {
	l := New(time.Hour)

	l.Allow("key-a", 1)
	if l.Allow("key-a", 1) {
		t.Fatal("bucket should be empty")
	}

	l.Reset("key-a")
	if !l.Allow("key-a", 1) {
		t.Error("reset should restore capacity")
	}
}

func TestTokensRefillOverTime(t *testing.T) {
	l := New(100 * time.Millisecond)

	if !l.Allow("key-a", 1) {
		t.Fatal("first request should be allowed")
	}
	if l.Allow("key-a", 1) {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(150 * time.Millisecond)
	if !l.Allow("key-a", 1) {
		t.Error("token should have refilled after the window elapsed")
	}
}
