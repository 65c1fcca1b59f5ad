// Package store provides the configuration stores that back template resolution:
// a concurrent in-memory store and a file loader that fills it.
package store

import (
	"sort"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// Memory is a concurrent map of template id to raw definition.
// Replace swaps the whole set at once, so readers never see a half-loaded store.
type Memory struct {
	defs    atomic.Pointer[xsync.MapOf[string, map[string]any]]
	version atomic.Uint64
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	m := &Memory{}
	m.defs.Store(xsync.NewMapOf[string, map[string]any]())
	return m
}

// NewMemoryFrom creates a store holding defs.
func NewMemoryFrom(defs map[string]map[string]any) *Memory {
	m := NewMemory()
	m.Replace(defs, 1)
	return m
}

// Get returns a shallow copy of the raw definition, or nil.
func (m *Memory) Get(id string) map[string]any {
	raw, ok := m.defs.Load().Load(id)
	if !ok {
		return nil
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}

// Put adds or replaces one definition.
func (m *Memory) Put(id string, raw map[string]any) {
	m.defs.Load().Store(id, raw)
	m.version.Add(1)
}

// Delete removes one definition.
func (m *Memory) Delete(id string) {
	m.defs.Load().Delete(id)
	m.version.Add(1)
}

// Replace swaps in a complete definition set tagged with version.
// Identical content should carry an identical version so caches stay warm.
func (m *Memory) Replace(defs map[string]map[string]any, version uint64) {
	next := xsync.NewMapOf[string, map[string]any]()
	for id, raw := range defs {
		next.Store(id, raw)
	}
	m.defs.Store(next)
	m.version.Store(version)
}

// Version changes whenever the content changes.
func (m *Memory) Version() uint64 {
	return m.version.Load()
}

// Len returns the number of ids.
func (m *Memory) Len() int {
	return m.defs.Load().Size()
}

// IDs returns all ids sorted.
func (m *Memory) IDs() []string {
	ids := make([]string, 0, m.Len())
	m.defs.Load().Range(func(id string, _ map[string]any) bool {
		ids = append(ids, id)
		return true
	})
	sort.Strings(ids)
	return ids
}
