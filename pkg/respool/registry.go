package respool

import (
	"fmt"
	"sync"
	"time"

	"github.com/willmurnane/tabletrm/pkg/common/log"
	"github.com/willmurnane/tabletrm/pkg/rmconfig"
	"github.com/willmurnane/tabletrm/pkg/rmstats"
	"github.com/willmurnane/tabletrm/pkg/rmtrace"
)

const (
	resizeInitialDelay = 1 * time.Second
	resizeInterval     = 10 * time.Second
	shutdownPollEvery  = 60 * time.Second
)

// Registry is a named mapping of pool-id → bounded worker pool. It enforces unique names and, for pools whose Spec names a
// SizeProperty, keeps their concurrency limit in sync with live
// configuration on a periodic poll.
type Registry struct {
	cfg    *rmconfig.Source
	tracer rmtrace.Telemetry
	stats  rmstats.Collector
	log    log.Logger

	mu    sync.RWMutex
	pools map[string]*Pool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRegistry constructs an empty Registry. cfg is polled by the resize
// loop; tracer backs every pool's submission-time span; stats and logger may
// be nil, in which case a no-op collector and the package default logger are
// used.
func NewRegistry(cfg *rmconfig.Source, tracer rmtrace.Telemetry, stats rmstats.Collector, logger log.Logger) *Registry {
	if stats == nil {
		stats = rmstats.Noop{}
	}
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	if tracer == nil {
		tracer = rmtrace.NewNoop()
	}
	return &Registry{
		cfg:    cfg,
		tracer: tracer,
		stats:  stats,
		log:    logger,
		pools:  make(map[string]*Pool),
		stopCh: make(chan struct{}),
	}
}

// Register adds a new pool, failing if the name is already taken. If spec.SizeProperty is non-empty, a background task keeps the
// pool's live worker limit in sync with that config property every
// resizeInterval, after an initial resizeInitialDelay.
func (r *Registry) Register(spec Spec) (*Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pools[spec.Name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePool, spec.Name)
	}

	pool := newPool(spec, r.tracer)
	r.pools[spec.Name] = pool

	if spec.SizeProperty != "" {
		r.wg.Add(1)
		go r.resizeLoop(pool)
	}

	return pool, nil
}

// Pool looks up a previously registered pool by name.
func (r *Registry) Pool(name string) (*Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPool, name)
	}
	return p, nil
}

func (r *Registry) resizeLoop(pool *Pool) {
	defer r.wg.Done()

	timer := time.NewTimer(resizeInitialDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-r.stopCh:
		return
	}

	ticker := time.NewTicker(resizeInterval)
	defer ticker.Stop()
	for {
		r.resizeOnce(pool)
		select {
		case <-ticker.C:
		case <-r.stopCh:
			return
		}
	}
}

// resizeOnce reads the pool's configured size and applies it if changed.
// Any failure (a malformed property, a panic from a misbehaving Source) is
// logged and swallowed; the loop continues.
func (r *Registry) resizeOnce(pool *Pool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("respool: resize of %s panicked: %v", pool.Name(), rec)
			r.stats.Track(rmstats.EventPoolResizeFailed)
		}
	}()

	want := int(r.cfg.Int(pool.spec.SizeProperty, int64(pool.MaxWorkers())))
	if want != pool.MaxWorkers() {
		r.log.Info("respool: changing %s max workers to %d", pool.Name(), want)
		pool.SetMaxWorkers(want)
		r.stats.Track(rmstats.EventPoolResized)
	}
}

// ShutdownAll shuts down every registered pool and waits for each to drain,
// logging progress every shutdownPollEvery.
func (r *Registry) ShutdownAll() {
	r.ShutdownNamed(r.names()...)
	close(r.stopCh)
	r.wg.Wait()
}

// ShutdownNamed shuts down and drains only the named pools, used by
// resmgr.Manager's StopSplits/StopNormalAssignments/StopMetadataAssignments.
func (r *Registry) ShutdownNamed(names ...string) {
	pools := make([]*Pool, 0, len(names))
	for _, name := range names {
		p, err := r.Pool(name)
		if err != nil {
			continue
		}
		p.Shutdown()
		pools = append(pools, p)
	}

	for i, p := range pools {
		for !p.AwaitTermination(shutdownPollEvery) {
			r.log.Info("respool: waiting for pool %s to shut down", names[i])
		}
	}
}

func (r *Registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.pools))
	for name := range r.pools {
		out = append(out, name)
	}
	return out
}
