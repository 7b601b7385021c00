// Package resmgr is the top-level tablet-server resource manager: it wires
// the pool registry, the memory controller, the commit-hold gate, and the
// two block caches into a single facade a tablet server embeds.
package resmgr

import (
	"fmt"
	"sync"
	"time"

	"github.com/willmurnane/tabletrm/pkg/blockcache"
	"github.com/willmurnane/tabletrm/pkg/common/log"
	"github.com/willmurnane/tabletrm/pkg/dispatcher"
	"github.com/willmurnane/tabletrm/pkg/memorypolicy"
	"github.com/willmurnane/tabletrm/pkg/respool"
	"github.com/willmurnane/tabletrm/pkg/rmconfig"
	"github.com/willmurnane/tabletrm/pkg/rmstats"
	"github.com/willmurnane/tabletrm/pkg/rmtrace"
	"github.com/willmurnane/tabletrm/pkg/tablet"
)

// reportQueueDepth is a soft cap on the memory controller's report channel.
// The channel behaves as though unbounded in normal operation; this cap only
// prevents a truly runaway producer from growing the queue without bound, at
// the cost of dropping the incoming report while the channel is full (see
// PublishReport).
const reportQueueDepth = 8192

// Manager is the resource manager a tablet server embeds for its lifetime.
// It satisfies tablet.Backref through its embedded mutex and the
// PublishReport/NotifyClosed methods below, giving every tablet.Handle it
// creates a narrow, non-owning view of itself.
type Manager struct {
	sync.Mutex // the manager-wide lock tablet.Backref.Lock/Unlock exposes

	cfg        *rmconfig.Source
	registry   *respool.Registry
	dispatcher *dispatcher.Dispatcher
	dataCache  *blockcache.Cache
	indexCache *blockcache.Cache
	policy     memorypolicy.MemoryManager
	gate       *CommitHoldGate

	clock tablet.Clock
	log   log.Logger
	stats rmstats.Collector
	trace rmtrace.Telemetry

	reportCh  chan tablet.Report
	reportsMu sync.Mutex
	reports   map[tablet.ID]tablet.Report

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithLogger overrides the manager's logger.
func WithLogger(l log.Logger) Option { return func(m *Manager) { m.log = l } }

// WithStats attaches a counters collector.
func WithStats(s rmstats.Collector) Option { return func(m *Manager) { m.stats = s } }

// WithTracer attaches a tracing provider; the pool registry's tracing
// decorator uses it to propagate submission-time spans.
func WithTracer(t rmtrace.Telemetry) Option { return func(m *Manager) { m.trace = t } }

// WithClock overrides the manager's notion of "now"; used by tests.
func WithClock(c tablet.Clock) Option { return func(m *Manager) { m.clock = c } }

// New constructs a Manager: it validates the configured memory footprint,
// builds the two block caches, registers the fixed pool catalogue, and
// starts the memory controller's guard and initiator goroutines.
func New(cfg *rmconfig.Source, opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:      cfg,
		clock:    tablet.Clock(defaultClock),
		log:      log.GetDefaultLogger(),
		stats:    rmstats.Noop{},
		trace:    rmtrace.NewNoop(),
		reportCh: make(chan tablet.Report, reportQueueDepth),
		reports:  make(map[tablet.ID]tablet.Report),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := validateStartup(cfg, m.log); err != nil {
		return nil, err
	}

	dataCache, err := blockcache.New(cfg.Int(rmconfig.PropDataCacheSize, 0), cfg.Int(rmconfig.PropDefaultBlockSize, 64*1024), m.stats)
	if err != nil {
		return nil, fmt.Errorf("resmgr: building data cache: %w", err)
	}
	indexCache, err := blockcache.New(cfg.Int(rmconfig.PropIndexCacheSize, 0), cfg.Int(rmconfig.PropDefaultBlockSize, 64*1024), m.stats)
	if err != nil {
		return nil, fmt.Errorf("resmgr: building index cache: %w", err)
	}
	m.dataCache = dataCache
	m.indexCache = indexCache

	policy, err := memorypolicy.New(cfg.String(rmconfig.PropMemMgmtClass, "largest-first"))
	if err != nil {
		return nil, fmt.Errorf("resmgr: building memory policy: %w", err)
	}
	if err := policy.Init(cfg); err != nil {
		return nil, fmt.Errorf("resmgr: initializing memory policy: %w", err)
	}
	m.policy = policy

	m.registry = respool.NewRegistry(cfg, m.trace, m.stats, m.log)
	if err := registerPools(m.registry, cfg); err != nil {
		return nil, fmt.Errorf("resmgr: registering pools: %w", err)
	}
	m.dispatcher = dispatcher.New(m.registry, m.log)

	m.gate = NewCommitHoldGate(m.clock, m.log, m.stats)

	m.wg.Add(2)
	go m.runGuard()
	go m.runInitiator()

	return m, nil
}

// Dispatcher returns the routing surface tablets submit background work
// through.
func (m *Manager) Dispatcher() *dispatcher.Dispatcher { return m.dispatcher }

// DataCache returns the shared data-block cache.
func (m *Manager) DataCache() *blockcache.Cache { return m.dataCache }

// IndexCache returns the shared index-block cache.
func (m *Manager) IndexCache() *blockcache.Cache { return m.indexCache }

// HoldTime reports how long commits have been continuously held, zero if
// they are not currently held.
func (m *Manager) HoldTime() time.Duration { return m.gate.HoldTime() }

// WaitUntilCommitsEnabled blocks the caller until the commit-hold gate
// releases or general.rpc.timeout elapses.
func (m *Manager) WaitUntilCommitsEnabled() error {
	timeout := m.cfg.Duration(rmconfig.PropRPCTimeout, 120*time.Second)
	return m.gate.WaitUntilCommitsEnabled(timeout)
}

// CreateHandle builds a tablet.Handle bound back to this manager.
func (m *Manager) CreateHandle(id tablet.ID, tableConf *rmconfig.TableSource) *tablet.Handle {
	return tablet.NewHandle(id, tableConf, m, tablet.WithClock(m.clock), tablet.WithStats(m.stats))
}

// StopSplits shuts down the split and meta-split pools, refusing any tablet
// server the chance to split further.
func (m *Manager) StopSplits() {
	m.registry.ShutdownNamed(dispatcher.PoolSplit, dispatcher.PoolMetaSplit)
}

// StopNormalAssignments shuts down the user-tablet assignment pool, leaving
// metadata assignment running so the catalog can still make progress.
func (m *Manager) StopNormalAssignments() {
	m.registry.ShutdownNamed(dispatcher.PoolAssignment)
}

// StopMetadataAssignments shuts down the metadata-tablet assignment pool.
func (m *Manager) StopMetadataAssignments() {
	m.registry.ShutdownNamed(dispatcher.PoolMetaAssignment)
}

// Close shuts down every pool, stops the memory controller, and releases
// the block caches. It takes no lock of its own. Only the first call does
// any work; later calls return immediately.
func (m *Manager) Close() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.registry.ShutdownAll()
		m.wg.Wait()
		m.dataCache.Purge()
		m.indexCache.Purge()
	})
}

// PublishReport implements tablet.Backref. It never blocks: if the report
// channel is momentarily full the report is dropped, since a newer report
// for the same tablet supersedes it anyway.
func (m *Manager) PublishReport(r tablet.Report) {
	select {
	case m.reportCh <- r:
	default:
		m.stats.Track(rmstats.EventReportDropped)
		m.log.Warn("resmgr: report channel full, dropping report for %s", r.ID)
	}
}

// NotifyClosed implements tablet.Backref: it removes the tablet's report
// and tells the memory policy to drop any bookkeeping keyed by this ID.
func (m *Manager) NotifyClosed(id tablet.ID) {
	m.reportsMu.Lock()
	delete(m.reports, id)
	m.reportsMu.Unlock()
	m.policy.TabletClosed(id)
}

var _ tablet.Backref = (*Manager)(nil)
