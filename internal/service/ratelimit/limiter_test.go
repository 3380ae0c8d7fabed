package ratelimit

import "testing"

func TestAllowConsumesTokens(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("k", 3, 0) {
			t.Fatalf("request %d should pass within capacity", i)
		}
	}
	if l.Allow("k", 3, 0) {
		t.Fatalf("capacity exhausted, request should be denied")
	}
}

func TestAllowIsPerKey(t *testing.T) {
	l := New()
	if !l.Allow("a", 1, 0) {
		t.Fatalf("first request for a should pass")
	}
	if !l.Allow("b", 1, 0) {
		t.Fatalf("keys must not share buckets")
	}
	if l.Allow("a", 1, 0) {
		t.Fatalf("a is exhausted")
	}
}
