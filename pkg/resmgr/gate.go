package resmgr

import (
	"sync"
	"time"

	"github.com/willmurnane/tabletrm/pkg/common/log"
	"github.com/willmurnane/tabletrm/pkg/rmstats"
	"github.com/willmurnane/tabletrm/pkg/tablet"
)

// CommitHoldGate is the write-side back-pressure valve the memory
// controller's guard task engages when aggregate memory crosses the hold
// threshold. Callers on the write path block in
// WaitUntilCommitsEnabled until the gate releases or rpc.timeout elapses.
type CommitHoldGate struct {
	clock tablet.Clock
	log   log.Logger
	stats rmstats.Collector

	mu        sync.Mutex
	held      bool
	heldSince int64
	releaseCh chan struct{}
}

// NewCommitHoldGate constructs a released gate.
func NewCommitHoldGate(clock tablet.Clock, logger log.Logger, stats rmstats.Collector) *CommitHoldGate {
	if clock == nil {
		clock = tablet.Clock(defaultClock)
	}
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	if stats == nil {
		stats = rmstats.Noop{}
	}
	return &CommitHoldGate{
		clock:     clock,
		log:       logger,
		stats:     stats,
		releaseCh: make(chan struct{}),
	}
}

func defaultClock() int64 { return time.Now().UnixMilli() }

// Set engages or releases the hold. It is idempotent: calling Set(true)
// while already held, or Set(false) while already released, is a no-op.
func (g *CommitHoldGate) Set(hold bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if hold == g.held {
		return
	}
	g.held = hold
	if hold {
		g.heldSince = g.clock()
		g.stats.Track(rmstats.EventCommitsHeld)
		g.log.Info("resmgr: commits held")
		return
	}

	elapsed := g.clock() - g.heldSince
	g.log.Info("resmgr: commits released after %.2fs", float64(elapsed)/1000.0)
	g.stats.Track(rmstats.EventCommitsReleased)
	close(g.releaseCh)
	g.releaseCh = make(chan struct{})
}

// Held reports whether commits are currently held.
func (g *CommitHoldGate) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

// HoldTime returns how long commits have been continuously held, or zero if
// they are not currently held.
func (g *CommitHoldGate) HoldTime() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.held {
		return 0
	}
	return time.Duration(g.clock()-g.heldSince) * time.Millisecond
}

// WaitUntilCommitsEnabled blocks until the gate releases, polling at least
// once per second so a spurious wakeup or a hold that clears between polls
// is never missed, and returns ErrHoldTimeout once rpcTimeout elapses while
// still held.
func (g *CommitHoldGate) WaitUntilCommitsEnabled(rpcTimeout time.Duration) error {
	g.mu.Lock()
	if !g.held {
		g.mu.Unlock()
		return nil
	}
	ch := g.releaseCh
	g.mu.Unlock()

	deadline := time.Now().Add(rpcTimeout)
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ch:
			g.mu.Lock()
			stillHeld := g.held
			ch = g.releaseCh
			g.mu.Unlock()
			if !stillHeld {
				return nil
			}
		case <-ticker.C:
			if time.Now().After(deadline) {
				g.stats.Track(rmstats.EventHoldTimeout)
				return ErrHoldTimeout
			}
		}
	}
}
