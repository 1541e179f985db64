package engine

import (
	"errors"

	"pagekv/internal/domain"
	"pagekv/internal/platform/pagestore/page"
	"pagekv/internal/platform/pagestore/segment"
)

// GetRange produces up to n records whose keys are >= startKey, in
// ascending order, reading only the flushed page layer (spec.md §4.I).
// It stays correct across a concurrent reorganization by always keeping
// either the previous or the current chain pinned, so a lower-boundary
// key used to requery the model can never be reorganized away beneath
// the scan.
func (e *Engine) GetRange(startKey domain.Key, n int) ([]domain.Record, error) {
	out := make([]domain.Record, 0, n)
	if n <= 0 {
		return out, nil
	}

	pid, ok := e.mdl.KeyToPageID(startKey)
	if !ok {
		return out, nil
	}

	var previous *page.Chain
	first := true

	for {
		var current *page.Chain
		for {
			chain, err := e.fixChainOrRetry(pid, false)
			if err == nil {
				current = chain
				break
			}
			if !errors.Is(err, segment.ErrRetry) {
				if previous != nil {
					previous.Unpin(e.mgr, false)
				}
				return out, err
			}

			// The base page was renumbered; requery the model. previous
			// stays pinned throughout, so its lower-boundary key is still
			// guaranteed resolvable.
			if first {
				pid, ok = e.mdl.KeyToPageID(startKey)
			} else {
				pid, ok = e.mdl.KeyToNextPageID(previous.Base().LowerBoundary)
			}
			if !ok {
				if previous != nil {
					previous.Unpin(e.mgr, false)
				}
				return out, nil
			}
		}

		if previous != nil {
			previous.Unpin(e.mgr, false)
		}

		var seek *domain.Key
		if first {
			k := startKey
			seek = &k
		}
		it := page.NewMergeIterator(current, seek)
		for it.Valid() && len(out) < n {
			rec := it.Record()
			if !rec.IsDelete() {
				out = append(out, rec)
			}
			it.Next()
		}

		if len(out) >= n {
			current.Unpin(e.mgr, false)
			return out, nil
		}

		nextPid, hasNext := e.mdl.KeyToNextPageID(current.Base().LowerBoundary)
		previous = current
		first = false
		if !hasNext {
			previous.Unpin(e.mgr, false)
			return out, nil
		}
		pid = nextPid
	}
}
