// Package memtable implements the in-memory write stage (spec.md §4.G
// Memtable) and the deferred-flush policy (spec.md §4.H Flush
// Controller) built on top of it.
package memtable

import (
	"sync"

	"pagekv/internal/domain"
)

// Memtable is the ordered multiset described in spec.md §3/§4.G: keys
// map to (value, opKind, seq) and a later Add for an existing key
// shadows — but does not overwrite — the earlier entry.
type Memtable struct {
	mu   sync.RWMutex
	list *skipList
	seq  uint64
}

// NewMemtable creates an empty memtable.
func NewMemtable() *Memtable {
	return &Memtable{list: newSkipList(18, 0.5)}
}

// Add inserts a new entry. op is Write for a normal put, Delete for a
// tombstone; either way the entry shadows all earlier entries for key.
func (m *Memtable) Add(key domain.Key, value []byte, op domain.OpKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.list.insert(domain.Record{Key: key, Value: value, Op: op}, m.seq)
}

// Get returns the most recently added record for key.
func (m *Memtable) Get(key domain.Key) (domain.Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.list.latest(key)
}

// ApproximateMemoryUsage estimates the memtable's resident size in
// bytes, the quantity compared against memtableFlushThreshold (spec.md
// §4.H).
func (m *Memtable) ApproximateMemoryUsage() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.list.approximateMemoryUsage()
}

// Len returns the number of entries currently held (including shadowed
// ones — every Add call, never collapsed).
func (m *Memtable) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.list.len()
}

// Iterator yields every entry in ascending (Key, then insertion order)
// order via fn, matching spec.md §4.G's "iterator yielding entries in
// ascending key then ascending seq".
func (m *Memtable) Iterator(fn func(rec domain.Record, seq uint64)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.list.forEach(fn)
}
