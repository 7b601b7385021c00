// Package dispatcher is the public submission surface of the resource
// manager. Every routing
// decision here is a pure switch on activity × tablet kind; the pools
// themselves live in package respool.
package dispatcher

import (
	"context"

	"github.com/willmurnane/tabletrm/pkg/common/log"
	"github.com/willmurnane/tabletrm/pkg/respool"
	"github.com/willmurnane/tabletrm/pkg/tablet"
)

// Pool names are routing contracts;
// resmgr registers exactly these names at startup.
const (
	PoolMinorCompact     = "minor-compact"
	PoolMajorCompact     = "major-compact"
	PoolMetaMajorCompact = "meta-major-compact"
	PoolRootMajorCompact = "root-major-compact"
	PoolSplit            = "split"
	PoolMetaSplit        = "meta-split"
	PoolMigrate          = "migrate"
	PoolMetaMigrate      = "meta-migrate"
	PoolAssignment       = "assignment"
	PoolMetaAssignment   = "meta-assignment"
	PoolReadAhead        = "read-ahead"
	PoolMetaReadAhead    = "meta-read-ahead"
)

// MajorCompactionTask bundles a unit of major-compaction work with the rank
// the submitter computed at enqueue time.
type MajorCompactionTask struct {
	Run  func(context.Context)
	Rank int
}

// Dispatcher routes each background action to exactly one pool, or runs it
// inline for the root tablet.
type Dispatcher struct {
	registry *respool.Registry
	log      log.Logger
}

// New constructs a Dispatcher fronting registry.
func New(registry *respool.Registry, logger log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Dispatcher{registry: registry, log: logger}
}

// ExecuteSplit routes a split task: ignored with a warning for the root
// tablet, meta-split for metadata tablets, split otherwise.
func (d *Dispatcher) ExecuteSplit(id tablet.ID, task func(context.Context)) {
	switch id.Kind() {
	case tablet.Root:
		d.log.Warn("dispatcher: saw request to split root tablet, ignoring")
	case tablet.Metadata:
		d.submit(PoolMetaSplit, task, 0)
	default:
		d.submit(PoolSplit, task, 0)
	}
}

// ExecuteMajorCompaction routes a major-compaction task to root-major-compact,
// meta-major-compact, or the priority-ordered major-compact pool.
func (d *Dispatcher) ExecuteMajorCompaction(id tablet.ID, task MajorCompactionTask) {
	switch id.Kind() {
	case tablet.Root:
		d.submit(PoolRootMajorCompact, task.Run, task.Rank)
	case tablet.Metadata:
		d.submit(PoolMetaMajorCompact, task.Run, task.Rank)
	default:
		d.submit(PoolMajorCompact, task.Run, task.Rank)
	}
}

// ExecuteReadAhead runs read-ahead inline for the root tablet — the root is
// unique and unpartitionable and must never wait behind a queue — and routes
// metadata/user tablets to their pools otherwise.
func (d *Dispatcher) ExecuteReadAhead(id tablet.ID, task func(context.Context)) {
	switch id.Kind() {
	case tablet.Root:
		task(context.Background())
	case tablet.Metadata:
		d.submit(PoolMetaReadAhead, task, 0)
	default:
		d.submit(PoolReadAhead, task, 0)
	}
}

// ExecuteMinorCompaction always routes to the minor-compact pool: the tablet
// server controls concurrency here regardless of tablet kind.
func (d *Dispatcher) ExecuteMinorCompaction(task func(context.Context)) {
	d.submit(PoolMinorCompact, task, 0)
}

// AddAssignment routes a user-tablet assignment task.
func (d *Dispatcher) AddAssignment(task func(context.Context)) {
	d.submit(PoolAssignment, task, 0)
}

// AddMetadataAssignment routes a metadata-tablet assignment task.
func (d *Dispatcher) AddMetadataAssignment(task func(context.Context)) {
	d.submit(PoolMetaAssignment, task, 0)
}

// AddMigration runs migration inline for the root tablet and routes
// metadata/user tablets to their pools otherwise.
func (d *Dispatcher) AddMigration(id tablet.ID, task func(context.Context)) {
	switch id.Kind() {
	case tablet.Root:
		task(context.Background())
	case tablet.Metadata:
		d.submit(PoolMetaMigrate, task, 0)
	default:
		d.submit(PoolMigrate, task, 0)
	}
}

func (d *Dispatcher) submit(poolName string, task func(context.Context), rank int) {
	pool, err := d.registry.Pool(poolName)
	if err != nil {
		d.log.Error("dispatcher: %v", err)
		return
	}
	if err := pool.Submit(task, rank); err != nil {
		d.log.Error("dispatcher: submitting to %s: %v", poolName, err)
	}
}
