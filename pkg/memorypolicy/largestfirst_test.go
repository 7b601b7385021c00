package memorypolicy

import (
	"testing"

	"github.com/willmurnane/tabletrm/pkg/rmconfig"
	"github.com/willmurnane/tabletrm/pkg/tablet"
)

func newInitializedPolicy(t *testing.T, maxMem int64) *LargestFirst {
	t.Helper()
	p := NewLargestFirst()
	cfg := rmconfig.NewSource()
	cfg.SetInt(rmconfig.PropMaxMem, maxMem)
	if err := p.Init(cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return p
}

func TestRecommendBelowThresholdReturnsNothing(t *testing.T) {
	p := newInitializedPolicy(t, 1000)
	reports := []tablet.Report{
		{ID: tablet.ID{Table: "a"}, MemTableBytes: 100},
		{ID: tablet.ID{Table: "b"}, MemTableBytes: 100},
	}
	if got := p.Recommend(reports); got != nil {
		t.Errorf("Recommend() = %v, want nil below threshold", got)
	}
}

func TestRecommendPicksLargestFirst(t *testing.T) {
	p := newInitializedPolicy(t, 1000)
	reports := []tablet.Report{
		{ID: tablet.ID{Table: "small"}, MemTableBytes: 100},
		{ID: tablet.ID{Table: "big"}, MemTableBytes: 700},
		{ID: tablet.ID{Table: "medium"}, MemTableBytes: 300},
	}
	// total = 1100 > 800 (80% of 1000); target to free = 300
	got := p.Recommend(reports)
	if len(got) == 0 {
		t.Fatal("Recommend() returned nothing, expected at least one tablet")
	}
	if got[0].Table != "big" {
		t.Errorf("Recommend()[0] = %v, want the largest tablet first", got[0])
	}
}

func TestRecommendSkipsAlreadyFlushing(t *testing.T) {
	p := newInitializedPolicy(t, 1000)
	reports := []tablet.Report{
		{ID: tablet.ID{Table: "flushing"}, MemTableBytes: 900, MinorCompactingBytes: 900},
		{ID: tablet.ID{Table: "eligible"}, MemTableBytes: 200},
	}
	got := p.Recommend(reports)
	for _, id := range got {
		if id.Table == "flushing" {
			t.Error("Recommend() should never re-recommend a tablet already flushing")
		}
	}
}

func TestRecommendEmptyInput(t *testing.T) {
	p := newInitializedPolicy(t, 1000)
	if got := p.Recommend(nil); got != nil {
		t.Errorf("Recommend(nil) = %v, want nil", got)
	}
}

func TestTabletClosedIsNoop(t *testing.T) {
	p := newInitializedPolicy(t, 1000)
	// Should not panic and requires no prior state.
	p.TabletClosed(tablet.ID{Table: "a"})
}
