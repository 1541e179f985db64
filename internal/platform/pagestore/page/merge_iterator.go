package page

import "pagekv/internal/domain"

// MergeIterator produces a key-ordered stream over every record in a
// Chain (spec.md §4.D). Each page in the chain is already internally
// sorted; records are not globally sorted across the chain, so the
// iterator maintains one sub-cursor per page and repeatedly selects the
// smallest current key. Ties are broken in favor of the later page in
// the chain, since overflow pages hold newer writes than the base page
// and earlier overflow pages hold newer writes than the ones before
// them.
//
// MergeIterator is read-only: it does not fix, unfix, or otherwise
// manage the lifetime of the pins behind chain.
type MergeIterator struct {
	chain   *Chain
	cursors []int
}

// NewMergeIterator builds an iterator over chain. If seekKey is non-nil,
// every sub-cursor starts at the first record with Key >= *seekKey;
// otherwise every sub-cursor starts at its page's first record.
func NewMergeIterator(chain *Chain, seekKey *domain.Key) *MergeIterator {
	cursors := make([]int, len(chain.Pages))
	for i, pg := range chain.Pages {
		if seekKey != nil {
			cursors[i] = pg.SeekIndex(*seekKey)
		}
	}
	return &MergeIterator{chain: chain, cursors: cursors}
}

// Valid reports whether any sub-cursor still has records left.
func (it *MergeIterator) Valid() bool {
	return it.selected() != -1
}

// selected returns the index, within chain.Pages, of the sub-cursor that
// currently holds the smallest key (ties broken toward the later page).
func (it *MergeIterator) selected() int {
	best := -1
	for i, pg := range it.chain.Pages {
		if it.cursors[i] >= len(pg.Records) {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		cmp := pg.Records[it.cursors[i]].Key.Compare(
			it.chain.Pages[best].Records[it.cursors[best]].Key)
		if cmp < 0 || (cmp == 0 && i > best) {
			best = i
		}
	}
	return best
}

// Record returns the record the iterator currently points at. Valid()
// must be true.
func (it *MergeIterator) Record() domain.Record {
	i := it.selected()
	return it.chain.Pages[i].Records[it.cursors[i]]
}

// Key is a convenience accessor equivalent to Record().Key.
func (it *MergeIterator) Key() domain.Key {
	return it.Record().Key
}

// Next advances past the current key. If more than one page holds a
// record for that key, every matching sub-cursor is advanced so the
// shadowed, older copies are never yielded.
func (it *MergeIterator) Next() {
	i := it.selected()
	if i == -1 {
		return
	}
	key := it.chain.Pages[i].Records[it.cursors[i]].Key
	for j, pg := range it.chain.Pages {
		if it.cursors[j] < len(pg.Records) && pg.Records[it.cursors[j]].Key == key {
			it.cursors[j]++
		}
	}
}
