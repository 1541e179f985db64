package memtable

import (
	"context"
	"sync"

	"pagekv/internal/domain"
	"pagekv/internal/platform/pagestore/buffer"
	"pagekv/internal/platform/pagestore/model"
	"pagekv/internal/platform/pagestore/page"
	"pagekv/internal/platform/pagestore/segment"
)

// FlushController implements the deferred-I/O policy (spec.md §4.H): it
// owns the active memtable that writes land in, and periodically drains
// it, choosing per page whether enough has accumulated to justify one
// physical write (a "flush") or whether the entries should simply ride
// along into the next memtable generation for another round of
// deferral. memtableEntriesForPage and pageDeferralCount persist across
// cycles — a page's counters are only reset once it is actually
// flushed, never merely because a cycle passed it over.
type FlushController struct {
	mgr     *buffer.Manager
	latches *page.LatchTable
	mdl     model.Model
	idx     *segment.Index

	ioThreshold  int
	maxDeferrals int

	mu             sync.Mutex
	active         *Memtable
	entriesForPage map[buffer.PageID]int
	deferralCount  map[buffer.PageID]int
}

// NewFlushController creates a controller with an empty active memtable.
// ioThreshold is the number of deferred entries for a page that forces a
// flush; maxDeferrals bounds how many consecutive cycles a page may be
// passed over regardless of how few entries it has accumulated. idx is
// the segment index materializePage reports real overflow into, keeping
// SegmentInfo.HasOverflow (spec.md §3) in sync with the write path.
func NewFlushController(mgr *buffer.Manager, latches *page.LatchTable, mdl model.Model, idx *segment.Index, ioThreshold, maxDeferrals int) *FlushController {
	return &FlushController{
		mgr:            mgr,
		latches:        latches,
		mdl:            mdl,
		idx:            idx,
		ioThreshold:    ioThreshold,
		maxDeferrals:   maxDeferrals,
		active:         NewMemtable(),
		entriesForPage: make(map[buffer.PageID]int),
		deferralCount:  make(map[buffer.PageID]int),
	}
}

// Add routes a write to whichever memtable is currently active. Safe to
// call concurrently with RunCycle: a cycle in progress swaps the active
// pointer before draining, so writers never block on drain I/O.
func (fc *FlushController) Add(key domain.Key, value []byte, op domain.OpKind) {
	fc.currentActive().Add(key, value, op)
}

// Get looks up key in the currently active memtable. Entries already
// drained into a flush are visible through the page layer instead, not
// through the controller.
func (fc *FlushController) Get(key domain.Key) (domain.Record, bool) {
	return fc.currentActive().Get(key)
}

// ApproximateMemoryUsage reports the active memtable's resident size,
// the quantity compared against memtableFlushThreshold by the caller
// that decides when to invoke RunCycle.
func (fc *FlushController) ApproximateMemoryUsage() int {
	return fc.currentActive().ApproximateMemoryUsage()
}

func (fc *FlushController) currentActive() *Memtable {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.active
}

func (fc *FlushController) swapActive() *Memtable {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	draining := fc.active
	fc.active = NewMemtable()
	return draining
}

// RunCycle drains the current active memtable once, per spec.md §4.H:
// each entry's destination page is scored against the page's persisted
// counters, entries for pages that haven't crossed a threshold are
// carried forward into the next memtable generation, and entries for
// pages that have are materialized with one write per page. The fresh
// memtable created for the next generation also absorbs concurrent
// writers for the remainder of the cycle.
func (fc *FlushController) RunCycle(ctx context.Context) error {
	draining := fc.swapActive()

	flushJobs := make(map[buffer.PageID][]domain.Record)

	draining.Iterator(func(rec domain.Record, seq uint64) {
		pid, ok := fc.mdl.KeyToPageID(rec.Key)
		if !ok {
			// No page exists for this key range yet (e.g. ahead of the
			// first bulk load); carry it forward untouched.
			fc.Add(rec.Key, rec.Value, rec.Op)
			return
		}

		fc.mu.Lock()
		shouldFlush := fc.entriesForPage[pid] >= fc.ioThreshold || fc.deferralCount[pid] >= fc.maxDeferrals
		if !shouldFlush {
			fc.entriesForPage[pid]++
		}
		fc.mu.Unlock()

		if shouldFlush {
			flushJobs[pid] = append(flushJobs[pid], rec)
		} else {
			fc.Add(rec.Key, rec.Value, rec.Op)
		}
	})

	for pid, recs := range flushJobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fc.materializePage(pid, recs); err != nil {
			return err
		}
		fc.mu.Lock()
		fc.entriesForPage[pid] = 0
		fc.deferralCount[pid] = 0
		fc.mu.Unlock()
	}

	// spec.md §4.H step 2 scores every known page, not only pages touched
	// by this cycle's memtable, so an idle page still accumulates
	// deferral staleness and eventually crosses maxDeferrals.
	fc.mu.Lock()
	for _, pid := range fc.mdl.KnownPageIDs() {
		if _, flushed := flushJobs[pid]; !flushed {
			fc.deferralCount[pid]++
		}
	}
	fc.mu.Unlock()
	return nil
}

// Shutdown performs the unconditional final pass described in spec.md
// §4.H: every page with any outstanding deferred entries is flushed
// regardless of its counters.
func (fc *FlushController) Shutdown(ctx context.Context) error {
	draining := fc.swapActive()

	flushJobs := make(map[buffer.PageID][]domain.Record)
	var unplaced []domain.Record

	draining.Iterator(func(rec domain.Record, seq uint64) {
		pid, ok := fc.mdl.KeyToPageID(rec.Key)
		if !ok {
			unplaced = append(unplaced, rec)
			return
		}
		flushJobs[pid] = append(flushJobs[pid], rec)
	})

	for pid, recs := range flushJobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fc.materializePage(pid, recs); err != nil {
			return err
		}
		fc.mu.Lock()
		fc.entriesForPage[pid] = 0
		fc.deferralCount[pid] = 0
		fc.mu.Unlock()
	}

	if len(unplaced) > 0 {
		active := fc.currentActive()
		for _, rec := range unplaced {
			active.Add(rec.Key, rec.Value, rec.Op)
		}
	}
	return nil
}

// materializePage performs the single logical write for page pid,
// applying recs (already in ascending key-then-seq order, so a later
// entry for the same key correctly overwrites an earlier one) to the
// page's overflow chain and persisting every page touched.
func (fc *FlushController) materializePage(pid buffer.PageID, recs []domain.Record) error {
	chain, ok := page.FixOverflowChain(fc.mgr, fc.latches, pid, true, false)
	if !ok {
		return domain.WrapError(domain.KindNotFound, "flush target page missing; model is stale", nil)
	}
	defer chain.Unpin(fc.mgr, false)

	pageSize := fc.mgr.Store().PageSize()
	touchedIdx := make(map[int]bool)

	for _, rec := range recs {
		tailIdx := len(chain.Pages) - 1
		tail := chain.Pages[tailIdx]

		idx := tail.SeekIndex(rec.Key)
		hadOld := idx < len(tail.Records) && tail.Records[idx].Key == rec.Key
		var old domain.Record
		if hadOld {
			old = tail.Records[idx]
		}

		tail.Put(rec)
		if tail.Fits(pageSize) {
			touchedIdx[tailIdx] = true
			continue
		}

		if hadOld {
			tail.Records[idx] = old
		} else {
			tail.Records = append(tail.Records[:idx], tail.Records[idx+1:]...)
		}
		touchedIdx[tailIdx] = true
		if err := page.AppendOverflow(fc.mgr, chain, chain.Base().LowerBoundary, rec); err != nil {
			return err
		}
		touchedIdx[len(chain.Pages)-1] = true
		if fc.idx != nil {
			fc.idx.SetSegmentOverflow(chain.Base().LowerBoundary, true)
		}
	}

	for idx := range touchedIdx {
		pin, pg := chain.Pins[idx], chain.Pages[idx]
		buf := pin.Frame.Data()
		if pg.EncodedSize() > len(buf) {
			return domain.NewError(domain.KindInvalidArgument, "page contents exceed fixed page size")
		}
		for i := range buf {
			buf[i] = 0
		}
		if err := pg.Encode(buf); err != nil {
			return err
		}
		if err := fc.mgr.Store().WritePage(pin.Frame.PageID(), buf); err != nil {
			return err
		}
	}
	return nil
}
