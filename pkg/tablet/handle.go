package tablet

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/willmurnane/tabletrm/pkg/compactstrat"
	"github.com/willmurnane/tabletrm/pkg/rmconfig"
	"github.com/willmurnane/tabletrm/pkg/rmstats"
)

// defaultIdleThreshold is used when a table has no explicit
// table.majc.compactall.idletime override.
const defaultIdleThreshold = 1 * time.Hour

// Clock returns the current time in epoch milliseconds. It exists so tests
// can advance time deterministically instead of
// sleeping.
type Clock func() int64

func systemClock() int64 { return time.Now().UnixMilli() }

// Backref is the non-owning handle a Handle uses to reach back into the
// resource manager that created it. It is
// satisfied by *resmgr.Manager.
type Backref interface {
	// Lock and Unlock acquire and release the manager-wide lock Close needs
	// to take before its own, in a fixed global order.
	Lock()
	Unlock()

	// PublishReport enqueues a report on the memory controller's report
	// channel.
	PublishReport(r Report)

	// NotifyClosed tells the memory controller and the memory policy that
	// this extent has unloaded. Close calls it while holding Lock.
	NotifyClosed(id ID)
}

// FileManager is the collaborator that reserves on-disk scan files for a
// tablet; its implementation is out of scope for this module.
type FileManager interface {
	NewScanFileManager(id ID) (ScanFileManager, error)
}

// ScanFileManager represents a tablet's reserved set of open scan files.
type ScanFileManager interface {
	Close() error
}

// Handle is the lightweight, per-tablet resource object a tablet holds for
// its lifetime. The two size atomics are updated
// independently and never under a shared lock: see UpdateMemory.
type Handle struct {
	id           ID
	tableConf    *rmconfig.TableSource
	manager      Backref
	clock        Clock
	stats        rmstats.Collector
	creationTime int64

	lastReportedSize     atomic.Int64
	lastReportedMincSize atomic.Int64
	lastReportedCommit   atomic.Int64

	mu                sync.Mutex
	closed            atomic.Bool
	openFilesReserved atomic.Bool
}

// Option configures a Handle at construction using the functional-options
// style used throughout this module (see pkg/common/log.LoggerOption).
type Option func(*Handle)

// WithClock overrides the handle's notion of "now"; used by tests.
func WithClock(c Clock) Option {
	return func(h *Handle) { h.clock = c }
}

// WithStats attaches a counters collector; defaults to a no-op collector.
func WithStats(s rmstats.Collector) Option {
	return func(h *Handle) { h.stats = s }
}

// NewHandle constructs a Handle for id, scoped to tableConf, dispatching
// back through manager.
func NewHandle(id ID, tableConf *rmconfig.TableSource, manager Backref, opts ...Option) *Handle {
	h := &Handle{
		id:        id,
		tableConf: tableConf,
		manager:   manager,
		clock:     systemClock,
		stats:     rmstats.Noop{},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.creationTime = h.clock()
	return h
}

// ID returns the tablet's identity.
func (h *Handle) ID() ID { return h.id }

// TableConfig returns the table-scoped configuration view.
func (h *Handle) TableConfig() *rmconfig.TableSource { return h.tableConf }

// CreationTime returns the epoch-millisecond time the handle was created.
func (h *Handle) CreationTime() int64 { return h.creationTime }

// Closed reports whether Close has already succeeded on this handle.
func (h *Handle) Closed() bool { return h.closed.Load() }

// OpenFilesReserved reports whether a scan file reservation is outstanding.
func (h *Handle) OpenFilesReserved() bool { return h.openFilesReserved.Load() }

// LastCommitTimeMillis returns the last time a commit grew this tablet's
// memory footprint, or zero if none has ever been reported.
func (h *Handle) LastCommitTimeMillis() int64 { return h.lastReportedCommit.Load() }

// ImportedFiles records that a bulk import just landed: it counts as recent
// activity for idle adjudication even though it did not flow through
// UpdateMemory.
func (h *Handle) ImportedFiles() {
	h.lastReportedCommit.Store(h.clock())
}

// UpdateMemory implements the report-throttling rule. It is called on the
// write-hot path, so the two atomics are read and compare-and-swapped
// independently rather than under a shared lock — deliberately
// non-transactional, trading a small chance of a redundant or slightly
// stale report for never blocking a writer.
func (h *Handle) UpdateMemory(t Tablet, size, mincSize int64) {
	report := false

	lastMinc := h.lastReportedMincSize.Load()
	boundaryCrossed := (lastMinc == 0) != (mincSize == 0)
	if boundaryCrossed && h.lastReportedMincSize.CompareAndSwap(lastMinc, mincSize) {
		report = true
	}

	lastSize := h.lastReportedSize.Load()
	totalSize := size + mincSize
	delta := totalSize - lastSize
	now := h.clock()
	lastCommit := h.lastReportedCommit.Load()
	if (delta > 32000 || delta < 0 || now-lastCommit > 1000) && h.lastReportedSize.CompareAndSwap(lastSize, totalSize) {
		if delta > 0 {
			h.lastReportedCommit.Store(now)
		}
		report = true
	}

	if !report {
		h.stats.Track(rmstats.EventReportDropped)
		return
	}

	h.stats.Track(rmstats.EventReportPublished)
	h.manager.PublishReport(NewReport(h.id, size, mincSize, h.lastReportedCommit.Load(), t))
}

// NeedsMajorCompaction adjudicates whether a major compaction should run now.
func (h *Handle) NeedsMajorCompaction(files map[string]compactstrat.FileInfo, reason compactstrat.Reason) bool {
	if h.closed.Load() {
		return false
	}

	if reason == compactstrat.ReasonUser {
		return true
	}

	if reason == compactstrat.ReasonIdle {
		idleThreshold := h.tableConf.Duration(rmconfig.PropMajcCompactAllIdleTime, defaultIdleThreshold)

		lastCommit := h.lastReportedCommit.Load()
		idleSince := lastCommit
		if lastCommit == 0 {
			idleSince = h.creationTime
		}

		idleTime := time.Duration(h.clock()-idleSince) * time.Millisecond
		if idleTime < idleThreshold {
			return false
		}
	}

	strategyName := h.tableConf.String(rmconfig.PropCompactionStrategyClass, "default")
	strategy, err := compactstrat.New(strategyName)
	if err != nil {
		return false
	}
	if err := strategy.Init(h.tableConf.StrategyOptions()); err != nil {
		return false
	}

	ok, err := strategy.ShouldCompact(compactstrat.Request{
		Extent: h.id.String(),
		Reason: reason,
		Files:  files,
	})
	if err != nil {
		// StrategyIOError: swallowed, conservative false.
		return false
	}
	return ok
}

// NewScanFileManager reserves a tablet's scan files, delegating the actual reservation to fm.
func (h *Handle) NewScanFileManager(fm FileManager) (ScanFileManager, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed.Load() {
		return nil, ErrAlreadyClosed
	}

	sfm, err := fm.NewScanFileManager(h.id)
	if err != nil {
		return nil, err
	}
	h.openFilesReserved.Store(true)
	return sfm, nil
}

// ReleaseScanFiles clears the open-files-reserved flag once a
// ScanFileManager obtained from NewScanFileManager has been closed.
func (h *Handle) ReleaseScanFiles() {
	h.openFilesReserved.Store(false)
}

// Close permanently closes the handle. Locks are acquired in
// the fixed order manager, then handle, to avoid deadlocking against any
// other site that does the same.
func (h *Handle) Close() error {
	h.manager.Lock()
	defer h.manager.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed.Load() {
		return ErrAlreadyClosed
	}
	if h.openFilesReserved.Load() {
		return ErrOpenFilesStillReserved
	}

	h.manager.NotifyClosed(h.id)
	h.closed.Store(true)
	return nil
}
