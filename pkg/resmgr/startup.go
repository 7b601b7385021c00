package resmgr

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/willmurnane/tabletrm/pkg/common/log"
	"github.com/willmurnane/tabletrm/pkg/rmconfig"
)

// validateStartup checks that the configured native-map, data-cache, and
// index-cache sizes can plausibly fit in the process's memory. Go has no
// hard heap ceiling to check against, so the runtime's soft memory limit
// (GOMEMLIMIT, math.MaxInt64 when unset) stands in as the closest analogue,
// and ms.HeapInuse as the memory already in use. The limit is soft, so a
// passing check is advisory rather than a hard guarantee.
func validateStartup(cfg *rmconfig.Source, logger log.Logger) error {
	nativeMap := cfg.Bool(rmconfig.PropNativeMapEnabled, false)
	maxMem := cfg.Int(rmconfig.PropMaxMem, 0)
	dataCache := cfg.Int(rmconfig.PropDataCacheSize, 0)
	indexCache := cfg.Int(rmconfig.PropIndexCacheSize, 0)

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	heapCeiling := debug.SetMemoryLimit(-1)
	inUse := int64(ms.HeapInuse)

	// Summed as float64 so three large sizes cannot overflow into a negative
	// total that slips under the ceiling.
	if !nativeMap && float64(maxMem)+float64(dataCache)+float64(indexCache) > float64(heapCeiling) {
		return fmt.Errorf("%w: maxmem=%d datacache=%d indexcache=%d exceed the %d-byte memory limit",
			ErrCacheConfiguration, maxMem, dataCache, indexCache, heapCeiling)
	}

	if !nativeMap && maxMem > heapCeiling-inUse {
		logger.Warn("resmgr: tserv.maxmem (%d) may not fit alongside the block caches without the native in-memory map", maxMem)
	}

	// A resource manager restart is a natural point to reclaim whatever the
	// previous cache generation was holding before sizing the new one.
	runtime.GC()
	return nil
}
