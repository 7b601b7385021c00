// Command rmdemo wires a resmgr.Manager end to end against a handful of
// synthetic tablets, prints periodic pool and commit-hold statistics, and
// shuts down cleanly on SIGINT. It exists to exercise the manager the way an
// embedding tablet server would, without needing a real storage engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/willmurnane/tabletrm/pkg/common/log"
	"github.com/willmurnane/tabletrm/pkg/compactstrat"
	"github.com/willmurnane/tabletrm/pkg/dispatcher"
	"github.com/willmurnane/tabletrm/pkg/resmgr"
	"github.com/willmurnane/tabletrm/pkg/rmconfig"
	"github.com/willmurnane/tabletrm/pkg/rmtrace"
	"github.com/willmurnane/tabletrm/pkg/tablet"
)

var (
	maxMem     = flag.Int64("maxmem", 64*1024*1024, "tserv.maxmem in bytes")
	numTablets = flag.Int("tablets", 8, "number of synthetic user tablets to simulate")
	pretty     = flag.Bool("trace", false, "pretty-print spans to stdout")
)

// fakeTablet is a synthetic Tablet used only by this demo: it always accepts
// a minor compaction and resets its own memtable size when asked.
type fakeTablet struct {
	id      tablet.ID
	manager *resmgr.Manager
	size    *int64
}

func (t *fakeTablet) InitiateMinorCompaction(reason tablet.MinorCompactionReason) bool {
	*t.size = 0
	return true
}

func (t *fakeTablet) IsClosed() bool { return false }

func (t *fakeTablet) Extent() tablet.ID { return t.id }

func majorCompactionTask(h *tablet.Handle) dispatcher.MajorCompactionTask {
	return dispatcher.MajorCompactionTask{
		Rank: 3,
		Run: func(ctx context.Context) {
			// A real tablet server would rewrite files here; the demo only
			// needs the routing decision to be exercised.
		},
	}
}

func main() {
	flag.Parse()

	logger := log.GetDefaultLogger()

	cfg := rmconfig.WithDefaults()
	cfg.SetInt(rmconfig.PropMaxMem, *maxMem)

	tracer, err := rmtrace.New(rmtrace.Config{ServiceName: "rmdemo", Enabled: *pretty})
	if err != nil {
		logger.Error("rmdemo: building tracer: %v", err)
		os.Exit(1)
	}

	mgr, err := resmgr.New(cfg, resmgr.WithLogger(logger), resmgr.WithTracer(tracer))
	if err != nil {
		logger.Error("rmdemo: %v", err)
		os.Exit(1)
	}

	tableConf := rmconfig.NewTableSource(cfg, "demo_table")
	tableConf.SetString(rmconfig.PropCompactionStrategyClass, "default")

	handles := make([]*tablet.Handle, *numTablets)
	sizes := make([]*int64, *numTablets)
	for i := range handles {
		id := tablet.ID{Table: "demo_table", StartRow: fmt.Sprintf("row%03d", i), EndRow: fmt.Sprintf("row%03d", i+1)}
		handles[i] = mgr.CreateHandle(id, tableConf)
		sizes[i] = new(int64)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	report := time.NewTicker(2 * time.Second)
	defer report.Stop()

	logger.Info("rmdemo: simulating writes against %d tablets, tserv.maxmem=%d", *numTablets, *maxMem)

	for {
		select {
		case <-stop:
			logger.Info("rmdemo: shutting down")
			mgr.Close()
			return
		case <-ticker.C:
			i := rand.Intn(*numTablets)
			*sizes[i] += int64(rand.Intn(200000))
			ft := &fakeTablet{id: handles[i].ID(), manager: mgr, size: sizes[i]}
			handles[i].UpdateMemory(ft, *sizes[i], 0)

			if handles[i].NeedsMajorCompaction(map[string]compactstrat.FileInfo{
				"a": {Size: 1}, "b": {Size: 1}, "c": {Size: 1},
			}, compactstrat.ReasonSystem) {
				mgr.Dispatcher().ExecuteMajorCompaction(handles[i].ID(), majorCompactionTask(handles[i]))
			}
		case <-report.C:
			logger.Info("rmdemo: commits held=%v hold_time=%s", mgr.HoldTime() > 0, mgr.HoldTime())
		}
	}
}
