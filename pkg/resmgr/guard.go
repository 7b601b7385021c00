package resmgr

import (
	"github.com/willmurnane/tabletrm/pkg/rmconfig"
	"github.com/willmurnane/tabletrm/pkg/tablet"
)

// guardHoldFraction is the ceiling fraction the guard task compares fresh
// aggregate memory against to drive the commit-hold gate: above it the gate
// engages, at or below it the gate is released. guardAggregateGapFraction is
// a separate, lower fraction: once the last-known total crossed it, the
// guard re-aggregates on every report even if the minimum gap hasn't
// elapsed, so it starts watching closely before the gate actually needs to
// engage.
const (
	guardHoldFraction         = 0.95
	guardAggregateGapFraction = 0.90
	guardMinAggregateGap      = 50 // milliseconds
)

// runGuard drains the report channel, keeps the latest report per tablet,
// and periodically re-aggregates total memory to drive the commit-hold gate.
// It never returns except on shutdown.
func (m *Manager) runGuard() {
	defer m.wg.Done()

	var lastAggTime int64
	var lastTotal int64

	for {
		select {
		case <-m.stopCh:
			return
		case first, ok := <-m.reportCh:
			if !ok {
				return
			}
			lastAggTime, lastTotal = m.guardIteration(first, lastAggTime, lastTotal)
		}
	}
}

func (m *Manager) guardIteration(first tablet.Report, lastAggTime, lastTotal int64) (newAggTime, newTotal int64) {
	newAggTime, newTotal = lastAggTime, lastTotal
	defer func() {
		if rec := recover(); rec != nil {
			m.log.Error("resmgr: guard iteration panicked: %v", rec)
		}
	}()

	m.upsertReport(first)
drain:
	for {
		select {
		case r, ok := <-m.reportCh:
			if !ok {
				break drain
			}
			m.upsertReport(r)
		default:
			break drain
		}
	}

	now := m.clock()
	maxMem := m.cfg.Int(rmconfig.PropMaxMem, 0)
	stale := now-lastAggTime > guardMinAggregateGap
	nearCeiling := maxMem > 0 && float64(lastTotal) > guardAggregateGapFraction*float64(maxMem)
	if !m.gate.Held() && !stale && !nearCeiling {
		return
	}

	total := m.aggregateTotal()
	newTotal = total
	newAggTime = now

	if maxMem <= 0 {
		return
	}
	m.gate.Set(float64(total) > guardHoldFraction*float64(maxMem))
	return
}

func (m *Manager) upsertReport(r tablet.Report) {
	m.reportsMu.Lock()
	m.reports[r.ID] = r
	m.reportsMu.Unlock()
}

func (m *Manager) aggregateTotal() int64 {
	m.reportsMu.Lock()
	defer m.reportsMu.Unlock()
	var total int64
	for _, r := range m.reports {
		total += r.TotalBytes()
	}
	return total
}
