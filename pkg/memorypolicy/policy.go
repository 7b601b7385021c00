// Package memorypolicy defines the pluggable MemoryManager collaborator
// and a name→constructor registry, deliberately avoiding any dynamic code
// loading.
package memorypolicy

import (
	"fmt"
	"sync"

	"github.com/willmurnane/tabletrm/pkg/rmconfig"
	"github.com/willmurnane/tabletrm/pkg/tablet"
)

// MemoryManager decides which tablets should minor-compact given the
// current memory-usage snapshot. It is
// constructed from a config class name and may be stateful across calls,
// even though Recommend should behave as a pure function of its input for
// testability.
type MemoryManager interface {
	// Init is called once at startup with the live server configuration.
	Init(cfg *rmconfig.Source) error

	// Recommend returns, in priority order, the tablets that should be
	// minor-compacted right now. An empty result means "do nothing."
	Recommend(reports []tablet.Report) []tablet.ID

	// TabletClosed notifies the policy that a tablet has unloaded, so any
	// internal bookkeeping keyed by tablet.ID can be dropped.
	TabletClosed(id tablet.ID)
}

// Constructor builds a fresh MemoryManager.
type Constructor func() MemoryManager

var (
	mu       sync.RWMutex
	registry = map[string]Constructor{
		"largest-first": func() MemoryManager { return NewLargestFirst() },
	}
)

// Register adds or replaces a named MemoryManager constructor.
func Register(name string, ctor Constructor) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = ctor
}

// New builds the MemoryManager registered under name.
func New(name string) (MemoryManager, error) {
	mu.RLock()
	ctor, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("memorypolicy: unknown memory manager %q", name)
	}
	return ctor(), nil
}
