package engine

import (
	"context"

	"github.com/rs/zerolog/log"

	"pagekv/internal/domain"
	"pagekv/internal/platform/pagestore/loader"
	"pagekv/internal/platform/pagestore/page"
	"pagekv/internal/platform/pagestore/segment"
)

// MaybeReorg looks for one segment flagged HasOverflow and, if it finds
// one, rewrites its reorg region into fresh pages and segments (spec.md
// §2: "flush-now entries ... may trigger segment reorganization through
// E+F"; §4.E's FindAndLockRewriteRegion plus the Non-goals line "pages
// ... rewritten into new segments"). It is a no-op if no segment is
// currently flagged, or if the discovered region is invalidated before
// its locks could be confirmed — the next call (on a later flush cycle)
// retries.
func (e *Engine) MaybeReorg(ctx context.Context) error {
	segLower, ok := e.firstOverflowingSegment()
	if !ok {
		return nil
	}

	region, err := e.idx.FindAndLockRewriteRegion(ctx, segLower, e.cfg.ReorgSearchRadius)
	if err != nil {
		return err
	}
	if len(region) == 0 {
		return nil
	}
	defer e.idx.ReleaseRewriteRegion(region)

	log.Info().Int("segments", len(region)).Msg("engine: rewriting reorg region")

	records, bases, err := e.collectRegionRecords(region)
	if err != nil {
		return err
	}

	for _, entry := range region {
		e.idx.Remove(entry.Lower)
	}
	for _, base := range bases {
		e.mdl.Remove(base)
	}

	return loader.LayoutRecords(ctx, e.mgr.Store(), e.mdl, e.idx, records, e.cfg)
}

func (e *Engine) firstOverflowingSegment() (domain.Key, bool) {
	for _, entry := range e.idx.Snapshot() {
		if entry.Info.HasOverflow {
			return entry.Lower, true
		}
	}
	return domain.Key{}, false
}

// collectRegionRecords walks every chain covering region, from its
// lowest segment's lower bound up to (but not including) its highest
// segment's upper bound, merge-reading live records off each chain in
// the same key order GetRange does. It returns every surviving record
// and every page base key it visited, so the caller can drop those
// breakpoints once their pages have been superseded.
func (e *Engine) collectRegionRecords(region []segment.Entry) ([]domain.Record, []domain.Key, error) {
	lower := region[0].Lower
	upper := region[len(region)-1].Upper

	pid, ok := e.mdl.KeyToPageID(lower)
	if !ok {
		return nil, nil, nil
	}

	var records []domain.Record
	var bases []domain.Key

	for {
		chain, fixed := page.FixOverflowChain(e.mgr, e.latches, pid, false, true)
		if !fixed {
			return nil, nil, domain.WrapError(domain.KindIOError, "reorg: region page missing mid-rewrite", nil)
		}
		base := chain.Base().LowerBoundary
		if upper != domain.MaxKey && !base.Less(upper) {
			chain.Unpin(e.mgr, false)
			break
		}
		bases = append(bases, base)

		it := page.NewMergeIterator(chain, nil)
		for it.Valid() {
			rec := it.Record()
			if !rec.IsDelete() {
				records = append(records, rec)
			}
			it.Next()
		}

		nextPid, hasNext := e.mdl.KeyToNextPageID(base)
		chain.Unpin(e.mgr, false)
		if !hasNext {
			break
		}
		pid = nextPid
	}

	return records, bases, nil
}
