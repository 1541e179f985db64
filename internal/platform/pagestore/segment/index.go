package segment

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"pagekv/internal/domain"
	"pagekv/internal/platform/pagestore/buffer"
)

// DefaultBackoffSaturate is the exponent Index-driven backoff loops use
// when a caller constructs an Index without a configured value (spec.md
// §5: "the given design uses 12").
const DefaultBackoffSaturate = 12

// Info is the descriptor spec.md §3 calls SegmentInfo: (id, pageCount,
// hasOverflow), plus the physical page id of the segment's first page so
// callers can start walking its overflow chains.
type Info struct {
	ID          uuid.UUID
	BasePageID  buffer.PageID
	PageCount   int
	HasOverflow bool
}

// Entry is one resolved lookup: the segment responsible for
// [Lower, Upper) together with its descriptor. Upper is domain.MaxKey
// standing in for +infinity when there is no successor segment.
type Entry struct {
	Lower domain.Key
	Upper domain.Key
	Info  Info
}

type entryRecord struct {
	lower domain.Key
	info  Info
}

// Index is the segment index (spec.md §4.E): an ordered mapping from a
// segment's lower bound key to its descriptor, backed by a
// mutex-guarded sorted slice searched with sort.Search — the same
// binary-searchable technique the corpus's block-based sorted-table
// readers use for their block index, adapted here to support the
// inserts and removals that segment rewrites require.
type Index struct {
	mu              sync.RWMutex
	entries         []entryRecord
	locks           *LockManager
	backoffSaturate uint32
}

// NewIndex creates an empty segment index guarded by lockMgr. backoffSaturate
// is the exponent (spec.md §5, option `backoffSaturate`) every backoff loop
// driven by this Index saturates at; pass DefaultBackoffSaturate absent a
// configured value.
func NewIndex(lockMgr *LockManager, backoffSaturate uint32) *Index {
	return &Index{locks: lockMgr, backoffSaturate: backoffSaturate}
}

// Insert adds or replaces the segment starting at lower. It is used by
// the loader during initial construction and by reorgs installing the
// rewritten segments; both must hold the relevant Reorg locks (or, for
// the loader, run before the index is published) before calling this.
func (idx *Index) Insert(lower domain.Key, info Info) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	i := idx.floorIndexLocked(lower)
	if i >= 0 && idx.entries[i].lower == lower {
		idx.entries[i].info = info
		return
	}
	pos := idx.ceilIndexLocked(lower)
	idx.entries = append(idx.entries, entryRecord{})
	copy(idx.entries[pos+1:], idx.entries[pos:])
	idx.entries[pos] = entryRecord{lower: lower, info: info}
}

// Remove deletes the segment starting at lower. Used by reorgs that
// replace a group of segments with a different set of boundaries.
func (idx *Index) Remove(lower domain.Key) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	i := idx.floorIndexLocked(lower)
	if i < 0 || idx.entries[i].lower != lower {
		return
	}
	idx.entries = append(idx.entries[:i], idx.entries[i+1:]...)
}

// floorIndexLocked returns the index of the greatest entry with
// lower <= key, or -1 if none. Callers must hold idx.mu.
func (idx *Index) floorIndexLocked(key domain.Key) int {
	i := sort.Search(len(idx.entries), func(j int) bool {
		return key.Less(idx.entries[j].lower)
	})
	return i - 1
}

// ceilIndexLocked returns the index of the first entry with
// lower >= key (len(entries) if none). Callers must hold idx.mu.
func (idx *Index) ceilIndexLocked(key domain.Key) int {
	return sort.Search(len(idx.entries), func(j int) bool {
		return !idx.entries[j].lower.Less(key)
	})
}

func (idx *Index) entryAtLocked(i int) Entry {
	e := Entry{Lower: idx.entries[i].lower, Info: idx.entries[i].info}
	if i+1 < len(idx.entries) {
		e.Upper = idx.entries[i+1].lower
	} else {
		e.Upper = domain.MaxKey
	}
	return e
}

// SegmentForKey resolves the segment responsible for key under a shared
// latch.
func (idx *Index) SegmentForKey(key domain.Key) (Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	i := idx.floorIndexLocked(key)
	if i < 0 {
		return Entry{}, false
	}
	return idx.entryAtLocked(i), true
}

// SegmentForKeyWithLock resolves the segment for key and additionally
// acquires its segment lock in mode, retrying with randomized
// exponential backoff on contention. The index latch is never held
// across a backoff wait (spec.md §4.E).
func (idx *Index) SegmentForKeyWithLock(ctx context.Context, key domain.Key, mode Mode) (Entry, error) {
	backoff := NewBackoff(idx.backoffSaturate)
	for {
		idx.mu.RLock()
		i := idx.floorIndexLocked(key)
		if i < 0 {
			idx.mu.RUnlock()
			return Entry{}, domain.NewError(domain.KindInvalidArgument, "no segment covers key")
		}
		entry := idx.entryAtLocked(i)
		granted := idx.locks.TryAcquireSegmentLock(entry.Info.ID, mode)
		idx.mu.RUnlock()
		if granted {
			return entry, nil
		}
		if err := backoff.Wait(ctx); err != nil {
			return Entry{}, err
		}
	}
}

// NextSegmentForKey returns the segment strictly after key's segment, or
// ok=false at +infinity.
func (idx *Index) NextSegmentForKey(key domain.Key) (Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	i := idx.ceilIndexLocked(nextKey(key))
	if i >= len(idx.entries) {
		return Entry{}, false
	}
	return idx.entryAtLocked(i), true
}

// NextSegmentForKeyWithLock is NextSegmentForKey plus a segment lock
// acquisition, with the same backoff/latch-dropping discipline as
// SegmentForKeyWithLock.
func (idx *Index) NextSegmentForKeyWithLock(ctx context.Context, key domain.Key, mode Mode) (Entry, bool, error) {
	backoff := NewBackoff(idx.backoffSaturate)
	for {
		idx.mu.RLock()
		i := idx.ceilIndexLocked(nextKey(key))
		if i >= len(idx.entries) {
			idx.mu.RUnlock()
			return Entry{}, false, nil
		}
		entry := idx.entryAtLocked(i)
		granted := idx.locks.TryAcquireSegmentLock(entry.Info.ID, mode)
		idx.mu.RUnlock()
		if granted {
			return entry, true, nil
		}
		if err := backoff.Wait(ctx); err != nil {
			return Entry{}, false, err
		}
	}
}

// SetSegmentOverflow toggles the hasOverflow hint on the segment
// covering key, under an exclusive index latch.
func (idx *Index) SetSegmentOverflow(key domain.Key, overflow bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	i := idx.floorIndexLocked(key)
	if i < 0 {
		return
	}
	idx.entries[i].info.HasOverflow = overflow
}

// GetSegmentBoundsFor returns the [lower, upperExclusive) range of the
// segment covering key.
func (idx *Index) GetSegmentBoundsFor(key domain.Key) (domain.Key, domain.Key, bool) {
	e, ok := idx.SegmentForKey(key)
	if !ok {
		return domain.Key{}, domain.Key{}, false
	}
	return e.Lower, e.Upper, true
}

// GetSizeFootprint estimates the index's memory footprint in bytes.
func (idx *Index) GetSizeFootprint() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	const perEntry = domain.KeySize + 16 /* uuid */ + 8 /* base page id */ + 8 /* page count */ + 1
	return uint64(len(idx.entries) * perEntry)
}

// GetNumEntries returns the number of segments currently indexed.
func (idx *Index) GetNumEntries() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Snapshot returns every segment entry in ascending lower-bound order,
// for diagnostics (internal/platform/debug.Dump).
func (idx *Index) Snapshot() []Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]Entry, len(idx.entries))
	for i := range idx.entries {
		out[i] = idx.entryAtLocked(i)
	}
	return out
}

// FindAndLockRewriteRegion identifies the adjacent segments to rewrite
// as a group starting from segmentBase, and locks them in Reorg mode
// (spec.md §4.E). It returns an empty slice, with no error, if a
// concurrent reorg invalidated the region between discovery and
// revalidation — the caller must retry. It returns
// domain.ErrInvalidArgument if segmentBase does not name an existing
// segment's lower bound (spec.md §9(ii)).
func (idx *Index) FindAndLockRewriteRegion(ctx context.Context, segmentBase domain.Key, searchRadius int) ([]Entry, error) {
	idx.mu.RLock()
	i := idx.floorIndexLocked(segmentBase)
	if i < 0 || idx.entries[i].lower != segmentBase {
		idx.mu.RUnlock()
		return nil, domain.NewError(domain.KindInvalidArgument, "segmentBase does not name an existing segment")
	}

	collected := []Entry{idx.entryAtLocked(i)}

	for j, checked := i-1, 0; j >= 0 && checked < searchRadius; j, checked = j-1, checked+1 {
		if !idx.entries[j].info.HasOverflow {
			break
		}
		collected = append(collected, idx.entryAtLocked(j))
	}
	for j, checked := i+1, 0; j < len(idx.entries) && checked < searchRadius; j, checked = j+1, checked+1 {
		if !idx.entries[j].info.HasOverflow {
			break
		}
		collected = append(collected, idx.entryAtLocked(j))
	}
	idx.mu.RUnlock()

	sort.Slice(collected, func(a, b int) bool {
		return collected[a].Lower.Less(collected[b].Lower)
	})

	// Acquire Reorg locks in ascending lower order without holding the
	// index latch, since this may take a while under contention
	// (spec.md §4.E step 3; the ordering rule is what keeps concurrent
	// reorgs deadlock-free, spec.md §5).
	backoff := NewBackoff(idx.backoffSaturate)
	for k, e := range collected {
		backoff.Reset()
		for {
			if idx.locks.TryAcquireSegmentLock(e.Info.ID, Reorg) {
				break
			}
			if err := backoff.Wait(ctx); err != nil {
				releaseAll(idx.locks, collected[:k])
				return nil, err
			}
		}
	}

	// Revalidate: the collected lowers must still appear as consecutive
	// entries in the index (spec.md §8 property 8).
	idx.mu.RLock()
	start := idx.floorIndexLocked(collected[0].Lower)
	valid := start >= 0 && idx.entries[start].lower == collected[0].Lower
	if valid {
		for k, e := range collected {
			pos := start + k
			if pos >= len(idx.entries) || idx.entries[pos].lower != e.Lower {
				valid = false
				break
			}
		}
	}
	idx.mu.RUnlock()

	if !valid {
		releaseAll(idx.locks, collected)
		return nil, nil
	}
	return collected, nil
}

// ReleaseRewriteRegion releases the Reorg locks FindAndLockRewriteRegion
// acquired for region. Callers must call this once they are done with a
// region it returned, whether or not the rewrite succeeded.
func (idx *Index) ReleaseRewriteRegion(region []Entry) {
	releaseAll(idx.locks, region)
}

func releaseAll(locks *LockManager, entries []Entry) {
	for _, e := range entries {
		locks.ReleaseSegmentLock(e.Info.ID, Reorg)
	}
}

// nextKey returns the smallest key strictly greater than key, saturating
// at domain.MaxKey (which can never itself be a segment lower bound in
// practice, since it is reserved to mean +infinity).
func nextKey(key domain.Key) domain.Key {
	next := key
	for i := len(next) - 1; i >= 0; i-- {
		if next[i] < 0xFF {
			next[i]++
			return next
		}
		next[i] = 0
	}
	return domain.MaxKey
}
