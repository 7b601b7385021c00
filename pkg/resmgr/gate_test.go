package resmgr

import (
	"testing"
	"time"

	"github.com/willmurnane/tabletrm/pkg/rmstats"
)

func TestCommitHoldGateStartsReleased(t *testing.T) {
	g := NewCommitHoldGate(nil, nil, nil)
	if g.Held() {
		t.Error("a fresh gate should start released")
	}
	if err := g.WaitUntilCommitsEnabled(time.Second); err != nil {
		t.Errorf("WaitUntilCommitsEnabled() on a released gate error = %v, want nil", err)
	}
}

func TestCommitHoldGateSetIsIdempotent(t *testing.T) {
	stats := rmstats.NewCollector()
	g := NewCommitHoldGate(nil, nil, stats)

	g.Set(true)
	g.Set(true)
	g.Set(true)

	if got := stats.Snapshot()[rmstats.EventCommitsHeld]; got != 1 {
		t.Errorf("EventCommitsHeld count = %d, want 1 (Set should be idempotent)", got)
	}
}

func TestCommitHoldGateHoldTime(t *testing.T) {
	clockVal := int64(1000)
	g := NewCommitHoldGate(func() int64 { return clockVal }, nil, nil)

	if got := g.HoldTime(); got != 0 {
		t.Errorf("HoldTime() before any hold = %v, want 0", got)
	}

	g.Set(true)
	clockVal = 1500
	if got := g.HoldTime(); got != 500*time.Millisecond {
		t.Errorf("HoldTime() = %v, want 500ms", got)
	}

	g.Set(false)
	if got := g.HoldTime(); got != 0 {
		t.Errorf("HoldTime() after release = %v, want 0", got)
	}
}

func TestCommitHoldGateWaitReleasesOnSet(t *testing.T) {
	g := NewCommitHoldGate(nil, nil, nil)
	g.Set(true)

	done := make(chan error, 1)
	go func() { done <- g.WaitUntilCommitsEnabled(5 * time.Second) }()

	time.Sleep(20 * time.Millisecond)
	g.Set(false)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WaitUntilCommitsEnabled() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitUntilCommitsEnabled() never returned after the gate released")
	}
}

func TestCommitHoldGateWaitTimesOut(t *testing.T) {
	stats := rmstats.NewCollector()
	g := NewCommitHoldGate(nil, nil, stats)
	g.Set(true)

	err := g.WaitUntilCommitsEnabled(50 * time.Millisecond)
	if err != ErrHoldTimeout {
		t.Errorf("WaitUntilCommitsEnabled() error = %v, want ErrHoldTimeout", err)
	}
	if got := stats.Snapshot()[rmstats.EventHoldTimeout]; got != 1 {
		t.Errorf("EventHoldTimeout count = %d, want 1", got)
	}
}

func TestCommitHoldGateReengageAfterRelease(t *testing.T) {
	g := NewCommitHoldGate(nil, nil, nil)
	g.Set(true)
	g.Set(false)
	g.Set(true)

	// The releaseCh from the first hold must have been replaced; a second
	// wait should still block until the new hold clears.
	done := make(chan error, 1)
	go func() { done <- g.WaitUntilCommitsEnabled(5 * time.Second) }()

	select {
	case <-done:
		t.Fatal("WaitUntilCommitsEnabled() returned before the second hold was released")
	case <-time.After(50 * time.Millisecond):
	}

	g.Set(false)
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WaitUntilCommitsEnabled() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitUntilCommitsEnabled() never returned after the second release")
	}
}
