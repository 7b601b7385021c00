// Package rmconfig is a live configuration handle for the resource manager:
// a mutex-guarded struct with typed accessors. Only pool sizes are hot
// reconfigurable; values here are read on demand and may change under a
// caller's feet between two calls, by design.
package rmconfig

import (
	"sync"
	"time"
)

// Property names the core reads live. Names are dotted strings, kept as
// untyped string constants rather than an enum so operators can add
// table-scoped overrides without a code change.
const (
	PropMaxMem                     = "tserv.maxmem"
	PropNativeMapEnabled           = "tserv.nativemap.enabled"
	PropDefaultBlockSize           = "tserv.default.blocksize"
	PropDataCacheSize              = "tserv.datacache.size"
	PropIndexCacheSize             = "tserv.indexcache.size"
	PropScanMaxOpenFiles           = "tserv.scan.max.openfiles"
	PropMincMaxConcurrent          = "minc.maxconcurrent"
	PropMajcMaxConcurrent          = "majc.maxconcurrent"
	PropMigrateMaxConcurrent       = "migrate.maxconcurrent"
	PropReadAheadMaxConcurrent     = "readahead.maxconcurrent"
	PropMetaReadAheadMaxConcurrent = "metadata.readahead.maxconcurrent"
	PropRPCTimeout                 = "general.rpc.timeout"
	PropMemMgmtClass               = "tserv.memory.manager"

	// Table-scoped properties, read from a TableSource.
	PropCompactionStrategyClass = "table.compaction.strategy"
	PropMajcCompactAllIdleTime  = "table.majc.compactall.idletime"
)

// Source is a live, in-memory handle to server-wide configuration. It never
// loads or persists anything itself — callers seed it with NewSource and
// mutate it with SetInt/SetBool/SetDuration, typically from an RPC handler
// or a config file watcher that lives outside this module.
type Source struct {
	mu        sync.RWMutex
	ints      map[string]int64
	bools     map[string]bool
	durations map[string]time.Duration
	strings   map[string]string
}

// NewSource returns an empty Source. Use WithDefaults for a Source
// pre-populated with the values a fresh tablet server would ship with.
func NewSource() *Source {
	return &Source{
		ints:      make(map[string]int64),
		bools:     make(map[string]bool),
		durations: make(map[string]time.Duration),
		strings:   make(map[string]string),
	}
}

// WithDefaults returns a Source pre-populated with conservative defaults
// for every property this module reads.
func WithDefaults() *Source {
	s := NewSource()
	s.SetInt(PropMaxMem, 512*1024*1024)
	s.SetBool(PropNativeMapEnabled, false)
	s.SetInt(PropDefaultBlockSize, 64*1024)
	s.SetInt(PropDataCacheSize, 128*1024*1024)
	s.SetInt(PropIndexCacheSize, 64*1024*1024)
	s.SetInt(PropScanMaxOpenFiles, 100)
	s.SetInt(PropMincMaxConcurrent, 4)
	s.SetInt(PropMajcMaxConcurrent, 3)
	s.SetInt(PropMigrateMaxConcurrent, 1)
	s.SetInt(PropReadAheadMaxConcurrent, 16)
	s.SetInt(PropMetaReadAheadMaxConcurrent, 8)
	s.SetDuration(PropRPCTimeout, 120*time.Second)
	s.SetString(PropMemMgmtClass, "largest-first")
	return s
}

// Int returns the current value of an integer property, or def if unset.
func (s *Source) Int(name string, def int64) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.ints[name]; ok {
		return v
	}
	return def
}

// SetInt sets an integer property. Safe to call concurrently with readers,
// including from the pool registry's periodic resize task.
func (s *Source) SetInt(name string, v int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ints[name] = v
}

// Bool returns the current value of a boolean property, or def if unset.
func (s *Source) Bool(name string, def bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.bools[name]; ok {
		return v
	}
	return def
}

// SetBool sets a boolean property.
func (s *Source) SetBool(name string, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bools[name] = v
}

// Duration returns the current value of a duration property, or def if unset.
func (s *Source) Duration(name string, def time.Duration) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.durations[name]; ok {
		return v
	}
	return def
}

// SetDuration sets a duration property.
func (s *Source) SetDuration(name string, v time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations[name] = v
}

// String returns the current value of a string property, or def if unset.
func (s *Source) String(name string, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.strings[name]; ok {
		return v
	}
	return def
}

// SetString sets a string property.
func (s *Source) SetString(name string, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strings[name] = v
}

// TableSource is a per-table configuration view. Compaction-strategy and
// idle-time properties are scoped per table; a TableSource layers
// table-specific overrides on top of a shared server Source without
// mutating it.
type TableSource struct {
	server     *Source
	table      string
	overrides  *Source
}

// NewTableSource returns a TableSource named table, backed by server for any
// property not explicitly overridden.
func NewTableSource(server *Source, table string) *TableSource {
	return &TableSource{server: server, table: table, overrides: NewSource()}
}

// Table returns the table name this source is scoped to.
func (t *TableSource) Table() string { return t.table }

// SetString overrides a string property for this table only.
func (t *TableSource) SetString(name, v string) { t.overrides.SetString(name, v) }

// SetDuration overrides a duration property for this table only.
func (t *TableSource) SetDuration(name string, v time.Duration) { t.overrides.SetDuration(name, v) }

// String reads a table-scoped string property, falling back to the server
// default and finally to def.
func (t *TableSource) String(name, def string) string {
	if v, ok := t.overrides.lookupString(name); ok {
		return v
	}
	return t.server.String(name, def)
}

// Duration reads a table-scoped duration property, falling back the same way.
func (t *TableSource) Duration(name string, def time.Duration) time.Duration {
	if v, ok := t.overrides.lookupDuration(name); ok {
		return v
	}
	return t.server.Duration(name, def)
}

// StrategyOptions returns the compaction strategy's freeform key/value
// options for this table.
func (t *TableSource) StrategyOptions() map[string]string {
	t.overrides.mu.RLock()
	defer t.overrides.mu.RUnlock()
	out := make(map[string]string, len(t.overrides.strings))
	for k, v := range t.overrides.strings {
		out[k] = v
	}
	return out
}

func (s *Source) lookupString(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.strings[name]
	return v, ok
}

func (s *Source) lookupDuration(name string) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.durations[name]
	return v, ok
}
