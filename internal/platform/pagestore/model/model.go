// Package model defines the learned-model interface the storage engine
// consumes (spec.md §6) and a simple linear reference implementation
// used by the bulk loader and by tests. The learned index's own
// estimation/search strategy is an external collaborator out of this
// module's scope; this package only carries the narrow seam the core
// talks to.
package model

import (
	"sort"
	"sync"

	"pagekv/internal/domain"
	"pagekv/internal/platform/pagestore/buffer"
)

// Model maps keys to physical page ids. KeyToNextPageID must reflect
// concurrent reorganization as it happens: it always answers "the
// strictly-greater existing base key's page id at query time", never a
// cached answer (spec.md §9).
type Model interface {
	KeyToPageID(key domain.Key) (buffer.PageID, bool)
	KeyToNextPageID(key domain.Key) (buffer.PageID, bool)
	KeyToSegmentBase(key domain.Key) domain.Key

	// KnownPageIDs returns every page id the model currently holds a
	// breakpoint for. The flush controller uses this to advance a page's
	// deferral count even on cycles where the page receives no writes
	// (spec.md §4.H step 2 iterates every page, not only pages touched
	// by the cycle being drained).
	KnownPageIDs() []buffer.PageID

	// Update installs or replaces the page id for base, and Remove drops
	// a breakpoint entirely. The bulk loader calls these to install the
	// initial layout; a segment rewrite calls them to repoint base keys
	// at the fresh pages it produced and drop the ones it retired.
	Update(base domain.Key, page buffer.PageID)
	Remove(base domain.Key)
}

// breakpoint is one (base key -> page id) mapping known to Linear.
type breakpoint struct {
	base domain.Key
	page buffer.PageID
}

// Linear is a reference Model: it holds a sorted slice of (base key,
// page id) breakpoints and resolves a key to the page whose base is the
// greatest one not exceeding it — the predecessor lookup a real learned
// index approximates in O(1) model inference plus a small local search.
// Here the "inference" step is a binary search, but callers interact
// with it only through Model, so swapping in an actual learned model
// later needs no change at the call sites.
type Linear struct {
	mu    sync.RWMutex
	order []breakpoint
}

// NewLinear builds an empty Linear model.
func NewLinear() *Linear {
	return &Linear{}
}

// Update installs or replaces the page id for base. Callers are
// expected to call Update whenever a base page is created or a segment
// reorganization changes which base keys exist, keeping the model
// consistent with the segment index.
func (l *Linear) Update(base domain.Key, page buffer.PageID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := sort.Search(len(l.order), func(i int) bool { return !l.order[i].base.Less(base) })
	if i < len(l.order) && l.order[i].base == base {
		l.order[i].page = page
		return
	}
	l.order = append(l.order, breakpoint{})
	copy(l.order[i+1:], l.order[i:])
	l.order[i] = breakpoint{base: base, page: page}
}

// Remove drops the breakpoint at base, if any.
func (l *Linear) Remove(base domain.Key) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := sort.Search(len(l.order), func(i int) bool { return !l.order[i].base.Less(base) })
	if i < len(l.order) && l.order[i].base == base {
		l.order = append(l.order[:i], l.order[i+1:]...)
	}
}

// KeyToPageID returns the page id of the greatest base key not
// exceeding key.
func (l *Linear) KeyToPageID(key domain.Key) (buffer.PageID, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := sort.Search(len(l.order), func(i int) bool { return key.Less(l.order[i].base) })
	if i == 0 {
		return buffer.InvalidPageID, false
	}
	return l.order[i-1].page, true
}

// KeyToNextPageID returns the page id of the least base key strictly
// greater than key.
func (l *Linear) KeyToNextPageID(key domain.Key) (buffer.PageID, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := sort.Search(len(l.order), func(i int) bool { return key.Less(l.order[i].base) })
	if i >= len(l.order) {
		return buffer.InvalidPageID, false
	}
	return l.order[i].page, true
}

// KnownPageIDs returns every page id currently installed, in ascending
// base-key order.
func (l *Linear) KnownPageIDs() []buffer.PageID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]buffer.PageID, len(l.order))
	for i, bp := range l.order {
		out[i] = bp.page
	}
	return out
}

// KeyToSegmentBase returns the greatest base key not exceeding key, or
// the zero key if the model has no breakpoint at or below it.
func (l *Linear) KeyToSegmentBase(key domain.Key) domain.Key {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := sort.Search(len(l.order), func(i int) bool { return key.Less(l.order[i].base) })
	if i == 0 {
		return domain.Key{}
	}
	return l.order[i-1].base
}
