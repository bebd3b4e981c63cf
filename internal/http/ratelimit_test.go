package http

import "testing"

func TestRateLimiterAllow(t *testing.T) {
	rl := newRateLimiter(3)
	defer rl.stop()

	for i := 0; i < 3; i++ {
		allowed, _ := rl.allow("user-1")
		if !allowed {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
	}

	allowed, retryAfter := rl.allow("user-1")
	if allowed {
		t.Fatal("fourth request allowed, want denied")
	}
	if retryAfter < 1 || retryAfter > 61 {
		t.Errorf("retryAfter = %d, want within the one-minute window", retryAfter)
	}

	// A different key has its own budget.
	if allowed, _ := rl.allow("user-2"); !allowed {
		t.Error("separate key denied")
	}
}
