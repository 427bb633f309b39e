package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

func failingCall() error { return errors.New("dependency down") }
func okCall() error      { return nil }

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	cb := New(Config{
		FailureThreshold:    3,
		SuccessThreshold:    1,
		Timeout:             time.Minute,
		MaxRequestsHalfOpen: 1,
	})

	for i := 0; i < 3; i++ {
		if err := cb.Execute(failingCall); err == nil {
			t.Fatal("expected failure to propagate")
		}
	}

	if cb.State() != StateOpen {
		t.Fatalf("expected open after threshold, got %s", cb.State())
	}

	// Open circuit rejects without invoking the call.
	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected rejection while open")
	}
	if called {
		t.Fatal("call must not run while circuit is open")
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New(Config{
		FailureThreshold:    2,
		SuccessThreshold:    1,
		Timeout:             time.Minute,
		MaxRequestsHalfOpen: 1,
	})

	cb.Execute(failingCall)
	cb.Execute(okCall)
	cb.Execute(failingCall)

	if cb.State() != StateClosed {
		t.Fatalf("expected closed, got %s", cb.State())
	}
}

func TestHalfOpenProbeClosesCircuit(t *testing.T) {
	cb := New(Config{
		FailureThreshold:    1,
		SuccessThreshold:    1,
		Timeout:             10 * time.Millisecond,
		MaxRequestsHalfOpen: 1,
	})

	cb.Execute(failingCall)
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	time.Sleep(20 * time.Millisecond)

	if err := cb.Execute(okCall); err != nil {
		t.Fatalf("expected probe to be allowed, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after successful probe, got %s", cb.State())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := New(Config{
		FailureThreshold:    1,
		SuccessThreshold:    2,
		Timeout:             10 * time.Millisecond,
		MaxRequestsHalfOpen: 2,
	})

	cb.Execute(failingCall)
	time.Sleep(20 * time.Millisecond)

	cb.Execute(failingCall)
	if cb.State() != StateOpen {
		t.Fatalf("expected reopen after failed probe, got %s", cb.State())
	}
}
