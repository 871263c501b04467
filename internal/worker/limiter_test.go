package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "convert"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// Different service has its own bucket
	if err := limiter.Wait(ctx, "llm"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	start := time.Now()
	err := limiter.WaitWithDelay(ctx, "convert", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}

	duration := time.Since(start)
	if duration < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", duration)
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "convert"); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Burst of 1 is consumed, immediate allow must fail
	if limiter.Allow("convert") {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}

	if !limiter.Allow("llm") {
		t.Errorf("expected allow for other service")
	}
}

func TestLimiter_SetServiceRate(t *testing.T) {
	limiter := NewLimiter(10, 10)

	limiter.SetServiceRate("llm", 0.1, 1)

	if !limiter.Allow("llm") {
		t.Errorf("first request should pass")
	}

	if limiter.Allow("llm") {
		t.Errorf("second request should fail")
	}

	if !limiter.Allow("convert") {
		t.Errorf("other service should pass")
	}
}
