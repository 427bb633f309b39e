package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultConfig(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	cfg := Config{
		Enabled:      true,
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_ExhaustsAttemptsAndWrapsCause(t *testing.T) {
	cfg := Config{
		Enabled:      true,
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}

	cause := errors.New("device busy")
	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return cause
	})
	if err == nil {
		t.Fatal("Retry() = nil, want error")
	}
	if !errors.Is(err, cause) {
		t.Errorf("error chain should contain cause, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", calls)
	}
}

func TestRetry_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return errors.New("nope")
	})
	if err == nil {
		t.Fatal("Retry() = nil, want error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 when disabled", calls)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, DefaultConfig(), func() error {
		return errors.New("never succeeds")
	})
	if err == nil {
		t.Fatal("Retry() = nil, want context error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}
