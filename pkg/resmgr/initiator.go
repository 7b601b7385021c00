package resmgr

import (
	"time"

	"github.com/willmurnane/tabletrm/pkg/rmstats"
	"github.com/willmurnane/tabletrm/pkg/tablet"
)

// initiatorInterval is how long the initiator sleeps between passes over the
// memory policy.
const initiatorInterval = 250 * time.Millisecond

// runInitiator asks the memory policy which tablets to minor-compact and
// tells them to, once every initiatorInterval. It never returns except on
// shutdown.
func (m *Manager) runInitiator() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		default:
		}

		m.initiatorIteration()

		select {
		case <-time.After(initiatorInterval):
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) initiatorIteration() {
	defer func() {
		if rec := recover(); rec != nil {
			m.log.Error("resmgr: initiator iteration panicked: %v", rec)
		}
	}()

	snapshot := m.snapshotReports()
	if len(snapshot) == 0 {
		return
	}

	reports := make([]tablet.Report, 0, len(snapshot))
	for _, r := range snapshot {
		reports = append(reports, r)
	}

	recommended := m.policy.Recommend(reports)
	for _, id := range recommended {
		rep, ok := snapshot[id]
		if !ok {
			m.log.Warn("resmgr: memory policy recommended unknown tablet %s", id)
			continue
		}
		m.compactOne(id, rep)
	}
}

func (m *Manager) compactOne(id tablet.ID, rep tablet.Report) {
	t := rep.Tablet()
	if t == nil {
		return
	}

	m.stats.Track(rmstats.EventMinorCompactSent)
	if t.InitiateMinorCompaction(tablet.MinorCompactSystem) {
		return
	}

	if !t.IsClosed() {
		m.stats.Track(rmstats.EventMinorCompactSkip)
		m.log.Debug("resmgr: %s declined minor compaction", id)
		return
	}

	// Closed: prune the stale report, but only if it is still the same
	// Tablet instance we just called — a newer tablet may already have
	// re-registered under the same ID.
	m.reportsMu.Lock()
	if latest, ok := m.reports[id]; ok && latest.Tablet() == t {
		delete(m.reports, id)
		m.stats.Track(rmstats.EventStaleReportPruned)
	}
	m.reportsMu.Unlock()
}

func (m *Manager) snapshotReports() map[tablet.ID]tablet.Report {
	m.reportsMu.Lock()
	defer m.reportsMu.Unlock()
	out := make(map[tablet.ID]tablet.Report, len(m.reports))
	for id, r := range m.reports {
		out[id] = r
	}
	return out
}
