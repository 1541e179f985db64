package page

import (
	"sync"

	"pagekv/internal/domain"
	"pagekv/internal/platform/pagestore/buffer"
)

// Chain is a pinned overflow chain: a base page plus every overflow page
// reachable from it, in link order. Position 0 is always the base page.
// All frames in a returned Chain stay pinned until the caller calls
// Unpin (spec.md §4.C invariant).
type Chain struct {
	Pins  []*buffer.Pin
	Pages []*Page

	latches *LatchTable
	latch   *sync.Mutex // non-nil while this chain still holds the chain latch
}

// Base returns the chain's base page.
func (c *Chain) Base() *Page {
	return c.Pages[0]
}

// Unpin releases every frame in the chain. isDirty is applied to every
// frame; callers that only dirtied some pages should unfix pins
// individually instead of going through Chain.
func (c *Chain) Unpin(mgr *buffer.Manager, isDirty bool) {
	for _, p := range c.Pins {
		mgr.Unfix(p, isDirty)
	}
	c.ReleaseLatch()
}

// ReleaseLatch releases the per-chain bookkeeping latch if this Chain is
// still holding it (see FixOverflowChain's unlockBeforeReturning
// parameter). It is a no-op if the latch was already released or was
// never held by this Chain.
func (c *Chain) ReleaseLatch() {
	if c.latch != nil {
		c.latch.Unlock()
		c.latch = nil
	}
}

// LatchTable hands out one mutex per base PageID, used to serialize
// structural mutation of a chain (e.g. appending a new overflow page)
// against concurrent readers and writers of the same chain.
type LatchTable struct {
	mu      sync.Mutex
	latches map[buffer.PageID]*sync.Mutex
}

func NewLatchTable() *LatchTable {
	return &LatchTable{latches: make(map[buffer.PageID]*sync.Mutex)}
}

func (t *LatchTable) get(id buffer.PageID) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.latches[id]
	if !ok {
		l = &sync.Mutex{}
		t.latches[id] = l
	}
	return l
}

// FixOverflowChain fixes the base page baseID and every overflow page it
// points to, in order, returning the pinned chain. It returns (nil,
// false) if the base page could not be fixed, signalling that a reorg
// renumbered it and the caller must requery the model (spec.md §4.C).
//
// If unlockBeforeReturning is false, the chain's per-base latch is left
// held on return (accessible via chain.ReleaseLatch) so the caller can
// perform further bookkeeping — e.g. appending a new overflow page —
// atomically with respect to other chain mutators.
func FixOverflowChain(mgr *buffer.Manager, latches *LatchTable, baseID buffer.PageID, exclusive bool, unlockBeforeReturning bool) (*Chain, bool) {
	latch := latches.get(baseID)
	latch.Lock()

	basePin := mgr.Fix(baseID, exclusive)
	if basePin == nil {
		latch.Unlock()
		return nil, false
	}
	basePage, err := DecodePage(basePin.Frame.Data())
	if err != nil {
		mgr.Unfix(basePin, false)
		latch.Unlock()
		return nil, false
	}

	chain := &Chain{
		Pins:    []*buffer.Pin{basePin},
		Pages:   []*Page{basePage},
		latches: latches,
		latch:   latch,
	}

	next := basePage.NextOverflow
	for next.IsValid() {
		pin := mgr.Fix(next, exclusive)
		if pin == nil {
			chain.Unpin(mgr, false)
			return nil, false
		}
		pg, derr := DecodePage(pin.Frame.Data())
		if derr != nil {
			mgr.Unfix(pin, false)
			chain.Unpin(mgr, false)
			return nil, false
		}
		chain.Pins = append(chain.Pins, pin)
		chain.Pages = append(chain.Pages, pg)
		next = pg.NextOverflow
	}

	if unlockBeforeReturning {
		chain.ReleaseLatch()
	}
	return chain, true
}

// AppendOverflow allocates a new overflow page holding rec, links it
// onto the tail of chain, and writes the updated tail-page pointer back
// to its frame. The caller must be holding the chain's latch (i.e. must
// have called FixOverflowChain with unlockBeforeReturning=false) and
// must hold an exclusive fix on every page in chain.
func AppendOverflow(mgr *buffer.Manager, chain *Chain, lower domain.Key, rec domain.Record) error {
	store := mgr.Store()
	newID, err := store.AllocatePage()
	if err != nil {
		return err
	}
	newPage := NewPage(lower)
	newPage.Put(rec)

	tailIdx := len(chain.Pages) - 1
	chain.Pages[tailIdx].NextOverflow = newID
	if err := encodeInto(chain.Pins[tailIdx], chain.Pages[tailIdx]); err != nil {
		return err
	}

	newPin := mgr.Fix(newID, true)
	if newPin == nil {
		return domain.NewError(domain.KindIOError, "could not fix freshly allocated overflow page")
	}
	if err := encodeInto(newPin, newPage); err != nil {
		mgr.Unfix(newPin, false)
		return err
	}
	chain.Pins = append(chain.Pins, newPin)
	chain.Pages = append(chain.Pages, newPage)
	return nil
}

func encodeInto(pin *buffer.Pin, p *Page) error {
	buf := pin.Frame.Data()
	if p.EncodedSize() > len(buf) {
		return domain.NewError(domain.KindInvalidArgument, "page contents exceed fixed page size")
	}
	for i := range buf {
		buf[i] = 0
	}
	return p.Encode(buf)
}
