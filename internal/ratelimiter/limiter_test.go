package ratelimiter

import (
	"context"
	"testing"
	"time"
)

func TestProviderLimiters_IndependentBuckets(t *testing.T) {
	pl := New(1)
	ctx := context.Background()

	if err := pl.Wait(ctx, "openai"); err != nil {
		t.Fatal(err)
	}
	// A different provider has its own full bucket.
	start := time.Now()
	if err := pl.Wait(ctx, "stability"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("second provider waited %s, expected no wait", elapsed)
	}
}

func TestProviderLimiters_CancelledWhileWaiting(t *testing.T) {
	pl := New(1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := pl.Wait(ctx, "openai"); err != nil {
		t.Fatal(err)
	}
	if err := pl.Wait(ctx, "openai"); err == nil {
		t.Fatal("expected error when the next token is further away than the deadline")
	}
}

func TestProviderLimiters_Disabled(t *testing.T) {
	pl := New(0)
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		if err := pl.Wait(ctx, "openai"); err != nil {
			t.Fatal(err)
		}
	}
}
