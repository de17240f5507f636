package http

import "testing"

func TestRateLimiterCapsMessages(t *testing.T) {
	r := newRateLimiter(3)
	defer r.stop()

	for i := 0; i < 3; i++ {
		if !r.allow() {
			t.Fatalf("message %d should be allowed", i)
		}
	}
	if r.allow() {
		t.Fatal("fourth message should be rejected")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	r := newRateLimiter(0)
	defer r.stop()

	for i := 0; i < 100; i++ {
		if !r.allow() {
			t.Fatal("disabled limiter must always allow")
		}
	}
}
