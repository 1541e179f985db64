// Package segment implements the segment index (spec.md §4.E) and the
// per-segment lock manager (spec.md §4.F) that guards reorganization.
package segment

import (
	"sync"

	"github.com/google/uuid"
)

// Mode is one of the three segment-lock modes.
type Mode int

const (
	Read Mode = iota
	Write
	Reorg
)

// state tracks who currently holds a segment's lock. Only one mode can
// be held at a time except for Read, which is shared among any number
// of holders — matching the compatibility matrix in spec.md §4.F, where
// the only compatible pairing is Read-with-Read.
type state struct {
	mu      sync.Mutex
	mode    Mode
	readers int
	held    bool
}

// LockManager grants Read/Write/Reorg latches per segment id. Acquisition
// is wait-free at the TryAcquireSegmentLock call; callers absorb
// contention themselves via Backoff, since the lock manager never blocks
// — spec.md §9 is explicit that a blocking mutex must not be substituted
// here, because SegmentIndex needs to drop its own latch between
// attempts.
type LockManager struct {
	mu     sync.Mutex
	states map[uuid.UUID]*state
}

func NewLockManager() *LockManager {
	return &LockManager{states: make(map[uuid.UUID]*state)}
}

func (m *LockManager) stateFor(id uuid.UUID) *state {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[id]
	if !ok {
		s = &state{}
		m.states[id] = s
	}
	return s
}

// TryAcquireSegmentLock attempts to grant mode on segment id without
// blocking, returning false immediately on conflict.
func (m *LockManager) TryAcquireSegmentLock(id uuid.UUID, mode Mode) bool {
	s := m.stateFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.held {
		s.held = true
		s.mode = mode
		if mode == Read {
			s.readers = 1
		}
		return true
	}
	if mode == Read && s.mode == Read {
		s.readers++
		return true
	}
	return false
}

// ReleaseSegmentLock releases one holder of mode on segment id.
func (m *LockManager) ReleaseSegmentLock(id uuid.UUID, mode Mode) {
	s := m.stateFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.held || s.mode != mode {
		return
	}
	if mode == Read {
		s.readers--
		if s.readers > 0 {
			return
		}
	}
	s.held = false
	s.readers = 0
}
