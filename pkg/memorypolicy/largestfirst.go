package memorypolicy

import (
	"sort"
	"sync"

	"github.com/willmurnane/tabletrm/pkg/rmconfig"
	"github.com/willmurnane/tabletrm/pkg/tablet"
)

// compactionThreshold is the fraction of the memory ceiling at which the
// policy starts recommending minor compactions, deliberately lower than the
// commit-hold gate's 95% so flushing has a chance to relieve
// pressure before writers are throttled.
const compactionThreshold = 0.8

// LargestFirst recommends the tablets with the most memtable bytes first,
// stopping once enough memory would be freed to fall back under
// compactionThreshold. It is the default MemoryManager.
type LargestFirst struct {
	mu     sync.Mutex
	maxMem int64
}

// NewLargestFirst constructs a LargestFirst policy. Call Init before first
// use so maxMem is populated.
func NewLargestFirst() *LargestFirst {
	return &LargestFirst{}
}

func (m *LargestFirst) Init(cfg *rmconfig.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxMem = cfg.Int(rmconfig.PropMaxMem, 512*1024*1024)
	return nil
}

// Recommend implements MemoryManager.
func (m *LargestFirst) Recommend(reports []tablet.Report) []tablet.ID {
	if len(reports) == 0 {
		return nil
	}

	m.mu.Lock()
	maxMem := m.maxMem
	m.mu.Unlock()

	var total int64
	for _, r := range reports {
		total += r.TotalBytes()
	}

	threshold := int64(compactionThreshold * float64(maxMem))
	if total < threshold {
		return nil
	}

	sorted := make([]tablet.Report, len(reports))
	copy(sorted, reports)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TotalBytes() > sorted[j].TotalBytes()
	})

	target := total - threshold
	var freed int64
	var ids []tablet.ID
	for _, r := range sorted {
		if r.MinorCompactingBytes > 0 {
			// Already flushing; compacting it again would not help.
			continue
		}
		if r.MemTableBytes == 0 {
			continue
		}
		ids = append(ids, r.ID)
		freed += r.MemTableBytes
		if freed >= target {
			break
		}
	}
	return ids
}

// TabletClosed is a no-op: LargestFirst keeps no per-tablet state.
func (m *LargestFirst) TabletClosed(id tablet.ID) {}

var _ MemoryManager = (*LargestFirst)(nil)
