// Package buffer implements the buffer manager (spec.md §4.B): it fixes
// (pins) and unfixes physical pages, returning frames, and enforces
// shared/exclusive latch mode on each fix.
package buffer

import (
	"container/list"
	"sync"

	"github.com/rs/zerolog/log"
)

// Manager is the buffer pool. It owns a bounded set of frames backed by
// a Store, evicting the least-recently-used unpinned frame when the pool
// is full and a miss needs a slot.
type Manager struct {
	mu       sync.Mutex
	store    Store
	frames   map[PageID]*Frame
	lru      *list.List // least-recently-used unpinned frames, front = oldest
	capacity int
}

// NewManager creates a buffer manager over store with room for at most
// capacity resident frames.
func NewManager(store Store, capacity int) *Manager {
	if capacity <= 0 {
		capacity = 1
	}
	return &Manager{
		store:    store,
		frames:   make(map[PageID]*Frame),
		lru:      list.New(),
		capacity: capacity,
	}
}

// Store returns the backing page store, e.g. so the loader can allocate
// new pages directly.
func (m *Manager) Store() Store {
	return m.store
}

// Fix pins the frame for id, loading it from the store if necessary, and
// returns nil if the page no longer exists (a reorg renumbered it).
// Callers must treat a nil result as "retry via the model".
func (m *Manager) Fix(id PageID, exclusive bool) *Pin {
	m.mu.Lock()
	f, ok := m.frames[id]
	if !ok {
		data, exists, err := m.store.ReadPage(id)
		if err != nil || !exists {
			m.mu.Unlock()
			if err != nil {
				log.Error().Err(err).Uint64("page_id", uint64(id)).Msg("buffer: read page failed")
			}
			return nil
		}
		f = &Frame{id: id, data: data}
		m.frames[id] = f
		m.evictIfNeededLocked()
	}
	f.mu.Lock()
	if f.pinCount == 0 && f.lruElem != nil {
		m.lru.Remove(f.lruElem)
		f.lruElem = nil
	}
	f.pinCount++
	f.mu.Unlock()
	m.mu.Unlock()

	if exclusive {
		f.latch.Lock()
	} else {
		f.latch.RLock()
	}
	return &Pin{Frame: f, exclusive: exclusive}
}

// Unfix releases a pin acquired by Fix. isDirty is OR-accumulated into
// the frame's dirty bit: once a frame is marked dirty it stays dirty
// until it is written back.
func (m *Manager) Unfix(p *Pin, isDirty bool) {
	if p == nil {
		return
	}
	f := p.Frame
	if p.exclusive {
		f.latch.Unlock()
	} else {
		f.latch.RUnlock()
	}

	m.mu.Lock()
	f.mu.Lock()
	if isDirty {
		f.dirty = true
	}
	f.pinCount--
	if f.pinCount == 0 {
		f.lruElem = m.lru.PushBack(f)
	}
	f.mu.Unlock()
	m.evictIfNeededLocked()
	m.mu.Unlock()
}

// evictIfNeededLocked evicts unpinned frames, oldest first, until the
// pool is back within capacity. Dirty frames are written back before
// eviction. Callers must hold m.mu.
func (m *Manager) evictIfNeededLocked() {
	for len(m.frames) > m.capacity && m.lru.Len() > 0 {
		front := m.lru.Front()
		f := front.Value.(*Frame)
		m.lru.Remove(front)
		f.lruElem = nil
		if f.dirty {
			if err := m.store.WritePage(f.id, f.data); err != nil {
				log.Error().Err(err).Uint64("page_id", uint64(f.id)).Msg("buffer: evict write-back failed")
				continue
			}
		}
		delete(m.frames, f.id)
	}
}

// FlushDirty writes back every currently-dirty frame, pinned or not,
// without evicting it. Engine.Close calls it to persist any frame still
// dirty at shutdown.
func (m *Manager) FlushDirty() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.frames {
		f.mu.Lock()
		dirty := f.dirty
		data := f.data
		f.mu.Unlock()
		if !dirty {
			continue
		}
		if err := m.store.WritePage(f.id, data); err != nil {
			return err
		}
		f.mu.Lock()
		f.dirty = false
		f.mu.Unlock()
	}
	return nil
}

// Resident reports how many frames are currently in the pool, for tests
// and introspection.
func (m *Manager) Resident() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}
