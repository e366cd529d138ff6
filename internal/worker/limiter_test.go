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
	if l2.defaultBurst != 1 {
		t.Errorf("expected default burst 1 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_PerKey(t *testing.T) {
	limiter := NewLimiter(0.001, 1)

	if !limiter.Allow("ollama") {
		t.Fatal("first call should be allowed")
	}
	if limiter.Allow("ollama") {
		t.Error("second call should wait for the bucket to refill")
	}
	// Another backend has its own bucket
	if !limiter.Allow("tesseract") {
		t.Error("separate key should be allowed")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("tesseract") {
			t.Fatalf("call %d was limited", i)
		}
	}
}

func TestLimiter_SetRate(t *testing.T) {
	limiter := NewLimiter(0, 1)
	limiter.SetRate("openai", 0.001, 1)

	if !limiter.Allow("openai") {
		t.Fatal("first call should be allowed")
	}
	if limiter.Allow("openai") {
		t.Error("custom rate was not applied")
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	_ = limiter.Allow("ollama")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, "ollama"); err == nil {
		t.Error("expected wait to fail when the context ends first")
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	start := time.Now()
	if err := limiter.WaitWithDelay(ctx, "ollama", 50*time.Millisecond); err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}
	if d := time.Since(start); d < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", d)
	}
}
