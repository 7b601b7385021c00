package tablet

import (
	"sync"
	"testing"

	"github.com/willmurnane/tabletrm/pkg/compactstrat"
	"github.com/willmurnane/tabletrm/pkg/rmconfig"
)

// fakeBackref is a minimal Backref that records what a Handle sends it.
// managerMu stands in for the manager-wide lock; mu only guards the
// recorded calls, since Close calls NotifyClosed while holding managerMu.
type fakeBackref struct {
	managerMu sync.Mutex
	mu        sync.Mutex
	reports   []Report
	closedIDs []ID
}

func (f *fakeBackref) Lock()   { f.managerMu.Lock() }
func (f *fakeBackref) Unlock() { f.managerMu.Unlock() }

func (f *fakeBackref) PublishReport(r Report) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, r)
}

func (f *fakeBackref) NotifyClosed(id ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closedIDs = append(f.closedIDs, id)
}

func (f *fakeBackref) reportCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

func (f *fakeBackref) lastReport() Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reports[len(f.reports)-1]
}

// fakeTablet is a minimal Tablet used as the callback target of a Report.
type fakeTablet struct {
	id     ID
	closed bool
}

func (t *fakeTablet) InitiateMinorCompaction(MinorCompactionReason) bool { return true }
func (t *fakeTablet) IsClosed() bool                                     { return t.closed }
func (t *fakeTablet) Extent() ID                                         { return t.id }

func fixedClock(ms int64) Clock {
	return func() int64 { return ms }
}

func TestUpdateMemoryLargeDeltaReports(t *testing.T) {
	back := &fakeBackref{}
	h := NewHandle(ID{Table: "t"}, rmconfig.NewTableSource(rmconfig.NewSource(), "t"), back, WithClock(fixedClock(0)))
	ft := &fakeTablet{id: h.ID()}

	h.UpdateMemory(ft, 40000, 0)

	if back.reportCount() != 1 {
		t.Fatalf("reportCount() = %d, want 1", back.reportCount())
	}
	if got := back.lastReport().MemTableBytes; got != 40000 {
		t.Errorf("MemTableBytes = %d, want 40000", got)
	}
}

func TestUpdateMemorySmallDeltaWithinWindowSuppressed(t *testing.T) {
	back := &fakeBackref{}
	h := NewHandle(ID{Table: "t"}, rmconfig.NewTableSource(rmconfig.NewSource(), "t"), back, WithClock(fixedClock(0)))
	ft := &fakeTablet{id: h.ID()}

	h.UpdateMemory(ft, 40000, 0)
	h.UpdateMemory(ft, 40500, 0) // delta 500, same instant: no report expected

	if back.reportCount() != 1 {
		t.Fatalf("reportCount() = %d, want 1 (second small update should be suppressed)", back.reportCount())
	}
}

func TestUpdateMemorySmallDeltaAfterTimeoutReports(t *testing.T) {
	back := &fakeBackref{}
	clock := int64(0)
	h := NewHandle(ID{Table: "t"}, rmconfig.NewTableSource(rmconfig.NewSource(), "t"), back, WithClock(func() int64 { return clock }))
	ft := &fakeTablet{id: h.ID()}

	h.UpdateMemory(ft, 40000, 0)
	clock = 1500 // more than a second since the last commit report
	h.UpdateMemory(ft, 40500, 0)

	if back.reportCount() != 2 {
		t.Fatalf("reportCount() = %d, want 2 (staleness should force a report)", back.reportCount())
	}
}

func TestUpdateMemoryNegativeDeltaAlwaysReports(t *testing.T) {
	back := &fakeBackref{}
	h := NewHandle(ID{Table: "t"}, rmconfig.NewTableSource(rmconfig.NewSource(), "t"), back, WithClock(fixedClock(0)))
	ft := &fakeTablet{id: h.ID()}

	h.UpdateMemory(ft, 40000, 0)
	h.UpdateMemory(ft, 1000, 0) // shrink: minor compaction flushed memory out

	if back.reportCount() != 2 {
		t.Fatalf("reportCount() = %d, want 2 (a shrinking size should always report)", back.reportCount())
	}
}

func TestUpdateMemoryMincBoundaryAlwaysReports(t *testing.T) {
	back := &fakeBackref{}
	h := NewHandle(ID{Table: "t"}, rmconfig.NewTableSource(rmconfig.NewSource(), "t"), back, WithClock(fixedClock(0)))
	ft := &fakeTablet{id: h.ID()}

	h.UpdateMemory(ft, 100, 0)
	if back.reportCount() != 0 {
		t.Fatalf("reportCount() = %d, want 0 before any boundary crossing or large delta", back.reportCount())
	}

	h.UpdateMemory(ft, 100, 200) // mincSize crosses 0 -> nonzero
	if back.reportCount() != 1 {
		t.Fatalf("reportCount() = %d, want 1 after crossing the minor-compact boundary", back.reportCount())
	}

	h.UpdateMemory(ft, 100, 0) // crosses back
	if back.reportCount() != 2 {
		t.Fatalf("reportCount() = %d, want 2 after crossing back", back.reportCount())
	}
}

func TestNeedsMajorCompactionClosedIsFalse(t *testing.T) {
	back := &fakeBackref{}
	h := NewHandle(ID{Table: "t"}, rmconfig.NewTableSource(rmconfig.NewSource(), "t"), back, WithClock(fixedClock(0)))
	if err := h.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if h.NeedsMajorCompaction(nil, compactstrat.ReasonUser) {
		t.Error("a closed handle should never need a major compaction")
	}
}

func TestNeedsMajorCompactionUserReasonUnconditional(t *testing.T) {
	back := &fakeBackref{}
	h := NewHandle(ID{Table: "t"}, rmconfig.NewTableSource(rmconfig.NewSource(), "t"), back, WithClock(fixedClock(0)))
	if !h.NeedsMajorCompaction(nil, compactstrat.ReasonUser) {
		t.Error("a user-requested compaction should be unconditional")
	}
}

func TestNeedsMajorCompactionIdleThreshold(t *testing.T) {
	back := &fakeBackref{}
	clock := int64(0)
	tableConf := rmconfig.NewTableSource(rmconfig.NewSource(), "t")
	h := NewHandle(ID{Table: "t"}, tableConf, back, WithClock(func() int64 { return clock }))

	// Enough files for the default strategy's 15-file threshold, so only the
	// idle check decides the outcome.
	files := map[string]compactstrat.FileInfo{}
	for i := 0; i < 20; i++ {
		files[string(rune('a'+i))] = compactstrat.FileInfo{}
	}

	if h.NeedsMajorCompaction(files, compactstrat.ReasonIdle) {
		t.Error("should not need a compaction before the idle threshold elapses")
	}

	clock = int64((1 * 60 * 60 * 1000) + 1) // just past the default 1h idle threshold
	if !h.NeedsMajorCompaction(files, compactstrat.ReasonIdle) {
		t.Error("should need a compaction once idle past the threshold with enough files for the strategy")
	}
}

func TestNeedsMajorCompactionDefaultStrategyFileCount(t *testing.T) {
	back := &fakeBackref{}
	h := NewHandle(ID{Table: "t"}, rmconfig.NewTableSource(rmconfig.NewSource(), "t"), back, WithClock(fixedClock(0)))

	few := map[string]compactstrat.FileInfo{"a": {}, "b": {}}
	if h.NeedsMajorCompaction(few, compactstrat.ReasonSystem) {
		t.Error("few files should not trigger the default strategy")
	}

	many := map[string]compactstrat.FileInfo{}
	for i := 0; i < 20; i++ {
		many[string(rune('a'+i))] = compactstrat.FileInfo{}
	}
	if !h.NeedsMajorCompaction(many, compactstrat.ReasonSystem) {
		t.Error("20 files should trigger the default strategy's 15-file threshold")
	}
}

func TestHandleDoubleCloseFailsAndNotifiesBackrefOnce(t *testing.T) {
	back := &fakeBackref{}
	id := ID{Table: "t"}
	h := NewHandle(id, rmconfig.NewTableSource(rmconfig.NewSource(), "t"), back, WithClock(fixedClock(0)))

	if err := h.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := h.Close(); err != ErrAlreadyClosed {
		t.Errorf("second Close() error = %v, want ErrAlreadyClosed", err)
	}
	if len(back.closedIDs) != 1 || back.closedIDs[0] != id {
		t.Errorf("NotifyClosed calls = %v, want exactly one call with %v", back.closedIDs, id)
	}
}

func TestHandleCloseRefusesWithOpenFiles(t *testing.T) {
	back := &fakeBackref{}
	h := NewHandle(ID{Table: "t"}, rmconfig.NewTableSource(rmconfig.NewSource(), "t"), back, WithClock(fixedClock(0)))

	fm := fakeFileManager{}
	if _, err := h.NewScanFileManager(fm); err != nil {
		t.Fatalf("NewScanFileManager() error = %v", err)
	}

	if err := h.Close(); err != ErrOpenFilesStillReserved {
		t.Errorf("Close() error = %v, want ErrOpenFilesStillReserved", err)
	}

	h.ReleaseScanFiles()
	if err := h.Close(); err != nil {
		t.Errorf("Close() after release error = %v, want nil", err)
	}
}

type fakeFileManager struct{}

func (fakeFileManager) NewScanFileManager(ID) (ScanFileManager, error) {
	return fakeScanFileManager{}, nil
}

type fakeScanFileManager struct{}

func (fakeScanFileManager) Close() error { return nil }
