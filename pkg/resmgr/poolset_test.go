package resmgr

import (
	"testing"

	"github.com/willmurnane/tabletrm/pkg/dispatcher"
	"github.com/willmurnane/tabletrm/pkg/respool"
	"github.com/willmurnane/tabletrm/pkg/rmconfig"
	"github.com/willmurnane/tabletrm/pkg/rmstats"
	"github.com/willmurnane/tabletrm/pkg/rmtrace"
)

func TestRegisterPoolsCoversFullCatalogue(t *testing.T) {
	cfg := rmconfig.WithDefaults()
	reg := respool.NewRegistry(cfg, rmtrace.NewNoop(), rmstats.Noop{}, nil)
	defer reg.ShutdownAll()

	if err := registerPools(reg, cfg); err != nil {
		t.Fatalf("registerPools() error = %v", err)
	}

	names := []string{
		dispatcher.PoolMinorCompact, dispatcher.PoolMajorCompact,
		dispatcher.PoolMetaMajorCompact, dispatcher.PoolRootMajorCompact,
		dispatcher.PoolSplit, dispatcher.PoolMetaSplit,
		dispatcher.PoolMigrate, dispatcher.PoolMetaMigrate,
		dispatcher.PoolAssignment, dispatcher.PoolMetaAssignment,
		dispatcher.PoolReadAhead, dispatcher.PoolMetaReadAhead,
	}
	for _, name := range names {
		if _, err := reg.Pool(name); err != nil {
			t.Errorf("Pool(%s) error = %v, want it registered", name, err)
		}
	}
}

func TestRegisterPoolsSizesFromConfig(t *testing.T) {
	cfg := rmconfig.WithDefaults()
	cfg.SetInt(rmconfig.PropMincMaxConcurrent, 9)
	reg := respool.NewRegistry(cfg, rmtrace.NewNoop(), rmstats.Noop{}, nil)
	defer reg.ShutdownAll()

	if err := registerPools(reg, cfg); err != nil {
		t.Fatalf("registerPools() error = %v", err)
	}

	p, err := reg.Pool(dispatcher.PoolMinorCompact)
	if err != nil {
		t.Fatalf("Pool() error = %v", err)
	}
	if got := p.MaxWorkers(); got != 9 {
		t.Errorf("MaxWorkers() = %d, want 9 from configured minc.maxconcurrent", got)
	}
}

func TestRegisterPoolsMajorCompactUsesPriorityDiscipline(t *testing.T) {
	cfg := rmconfig.WithDefaults()
	reg := respool.NewRegistry(cfg, rmtrace.NewNoop(), rmstats.Noop{}, nil)
	defer reg.ShutdownAll()

	if err := registerPools(reg, cfg); err != nil {
		t.Fatalf("registerPools() error = %v", err)
	}
	p, err := reg.Pool(dispatcher.PoolMajorCompact)
	if err != nil {
		t.Fatalf("Pool() error = %v", err)
	}
	if p.Spec().Discipline != respool.Priority {
		t.Errorf("major-compact discipline = %v, want Priority", p.Spec().Discipline)
	}
}
