package eutils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSleepPacer_Waits(t *testing.T) {
	p := SleepPacer{Interval: 30 * time.Millisecond}
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("expected at least 90ms for 3 waits, got %v", elapsed)
	}
}

func TestSleepPacer_Cancelled(t *testing.T) {
	p := SleepPacer{Interval: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRatePacer_SpacesCalls(t *testing.T) {
	p := NewRatePacer(30 * time.Millisecond)
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// The first token is available immediately.
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("expected at least 50ms for 3 calls, got %v", elapsed)
	}
}

func TestRatePacer_ZeroIntervalIsUnlimited(t *testing.T) {
	p := NewRatePacer(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("expected no pacing, took %v", elapsed)
	}
}

func TestNoPacer(t *testing.T) {
	var p Pacer = NoPacer{}
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}
