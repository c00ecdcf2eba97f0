package handlers

import "testing"

func TestUserLimiter(t *testing.T) {
	l := NewUserLimiter(0.001, 1)
	if !l.Allow("a") {
		t.Fatal("first call denied")
	}
	if l.Allow("a") {
		t.Fatal("burst exceeded")
	}
	if !l.Allow("b") {
		t.Fatal("users share a bucket")
	}

	off := NewUserLimiter(0, 0)
	for i := 0; i < 10; i++ {
		if !off.Allow("a") {
			t.Fatal("disabled limiter denied")
		}
	}
}
