package resmgr

import (
	"time"

	"github.com/willmurnane/tabletrm/pkg/dispatcher"
	"github.com/willmurnane/tabletrm/pkg/respool"
	"github.com/willmurnane/tabletrm/pkg/rmconfig"
)

// registerPools wires the fixed pool catalogue the resource manager exposes.
// Names must match dispatcher's routing constants exactly.
func registerPools(reg *respool.Registry, cfg *rmconfig.Source) error {
	specs := []respool.Spec{
		{
			Name:         dispatcher.PoolMinorCompact,
			Max:          int(cfg.Int(rmconfig.PropMincMaxConcurrent, 4)),
			Discipline:   respool.FIFO,
			SizeProperty: rmconfig.PropMincMaxConcurrent,
		},
		{
			Name:         dispatcher.PoolMajorCompact,
			Max:          int(cfg.Int(rmconfig.PropMajcMaxConcurrent, 3)),
			Discipline:   respool.Priority,
			SizeProperty: rmconfig.PropMajcMaxConcurrent,
		},
		{
			Name:       dispatcher.PoolMetaMajorCompact,
			Min:        0,
			Max:        1,
			KeepAlive:  300 * time.Second,
			Discipline: respool.FIFO,
		},
		{
			Name:       dispatcher.PoolRootMajorCompact,
			Min:        0,
			Max:        1,
			KeepAlive:  300 * time.Second,
			Discipline: respool.FIFO,
		},
		{
			Name:       dispatcher.PoolSplit,
			Max:        1,
			Discipline: respool.FIFO,
		},
		{
			Name:       dispatcher.PoolMetaSplit,
			Min:        0,
			Max:        1,
			KeepAlive:  60 * time.Second,
			Discipline: respool.FIFO,
		},
		{
			Name:         dispatcher.PoolMigrate,
			Max:          int(cfg.Int(rmconfig.PropMigrateMaxConcurrent, 1)),
			Discipline:   respool.FIFO,
			SizeProperty: rmconfig.PropMigrateMaxConcurrent,
		},
		{
			Name:       dispatcher.PoolMetaMigrate,
			Min:        0,
			Max:        1,
			KeepAlive:  60 * time.Second,
			Discipline: respool.FIFO,
		},
		{
			Name:       dispatcher.PoolAssignment,
			Max:        1,
			Discipline: respool.FIFO,
		},
		{
			Name:       dispatcher.PoolMetaAssignment,
			Min:        0,
			Max:        1,
			KeepAlive:  60 * time.Second,
			Discipline: respool.FIFO,
		},
		{
			Name:         dispatcher.PoolReadAhead,
			Max:          int(cfg.Int(rmconfig.PropReadAheadMaxConcurrent, 16)),
			Discipline:   respool.FIFO,
			SizeProperty: rmconfig.PropReadAheadMaxConcurrent,
		},
		{
			Name:         dispatcher.PoolMetaReadAhead,
			Max:          int(cfg.Int(rmconfig.PropMetaReadAheadMaxConcurrent, 8)),
			Discipline:   respool.FIFO,
			SizeProperty: rmconfig.PropMetaReadAheadMaxConcurrent,
		},
	}

	for _, spec := range specs {
		if _, err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}
