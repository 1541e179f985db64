package memtable

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagekv/internal/domain"
	"pagekv/internal/platform/pagestore/buffer"
	"pagekv/internal/platform/pagestore/model"
	"pagekv/internal/platform/pagestore/page"
	"pagekv/internal/platform/pagestore/segment"
)

const testPageSize = 4096

func newTestFlushController(t *testing.T, ioThreshold, maxDeferrals int) (*FlushController, buffer.Store, buffer.PageID, *model.Linear) {
	store := buffer.NewMemStore(testPageSize)
	baseID, err := store.AllocatePage()
	require.NoError(t, err)

	base := page.NewPage(domain.KeyFromUint64(0))
	buf := make([]byte, testPageSize)
	require.NoError(t, base.Encode(buf))
	require.NoError(t, store.WritePage(baseID, buf))

	mgr := buffer.NewManager(store, 10)
	mdl := model.NewLinear()
	mdl.Update(domain.KeyFromUint64(0), baseID)
	fc := NewFlushController(mgr, page.NewLatchTable(), mdl, nil, ioThreshold, maxDeferrals)
	return fc, store, baseID, mdl
}

func readPage(t *testing.T, store buffer.Store, id buffer.PageID) *page.Page {
	data, ok, err := store.ReadPage(id)
	require.NoError(t, err)
	require.True(t, ok)
	pg, err := page.DecodePage(data)
	require.NoError(t, err)
	return pg
}

func TestFlushControllerDefersBelowThreshold(t *testing.T) {
	fc, store, baseID, _ := newTestFlushController(t, 3, 10)

	fc.Add(domain.KeyFromUint64(1), []byte("a"), domain.OpWrite)
	fc.Add(domain.KeyFromUint64(2), []byte("b"), domain.OpWrite)

	require.NoError(t, fc.RunCycle(context.Background()))

	pg := readPage(t, store, baseID)
	assert.Empty(t, pg.Records, "below-threshold entries must not be materialized")

	rec, ok := fc.Get(domain.KeyFromUint64(1))
	require.True(t, ok, "deferred entries are carried into the next memtable generation")
	assert.Equal(t, []byte("a"), rec.Value)
}

func TestFlushControllerFlushesOnceThresholdCrossed(t *testing.T) {
	fc, store, baseID, _ := newTestFlushController(t, 3, 10)

	fc.Add(domain.KeyFromUint64(1), []byte("a"), domain.OpWrite)
	fc.Add(domain.KeyFromUint64(2), []byte("b"), domain.OpWrite)
	fc.Add(domain.KeyFromUint64(3), []byte("c"), domain.OpWrite)

	require.NoError(t, fc.RunCycle(context.Background())) // counters reach the threshold
	require.NoError(t, fc.RunCycle(context.Background())) // this round materializes them

	pg := readPage(t, store, baseID)
	assert.Len(t, pg.Records, 3)

	_, ok := fc.Get(domain.KeyFromUint64(1))
	assert.False(t, ok, "a flushed entry no longer lives in the memtable")
}

func TestFlushControllerMaxDeferralsForcesFlush(t *testing.T) {
	fc, store, baseID, _ := newTestFlushController(t, 100, 1)

	fc.Add(domain.KeyFromUint64(1), []byte("a"), domain.OpWrite)
	require.NoError(t, fc.RunCycle(context.Background())) // deferred once; deferralCount becomes 1
	require.NoError(t, fc.RunCycle(context.Background())) // deferralCount >= maxDeferrals, forces a flush

	pg := readPage(t, store, baseID)
	assert.Len(t, pg.Records, 1)
}

func TestFlushControllerShutdownFlushesEverythingOutstanding(t *testing.T) {
	fc, store, baseID, _ := newTestFlushController(t, 100, 100)

	fc.Add(domain.KeyFromUint64(1), []byte("a"), domain.OpWrite)
	fc.Add(domain.KeyFromUint64(2), []byte("b"), domain.OpWrite)

	require.NoError(t, fc.Shutdown(context.Background()))

	pg := readPage(t, store, baseID)
	assert.Len(t, pg.Records, 2)
}

func TestFlushControllerIdlePageAccumulatesDeferralAcrossEmptyCycles(t *testing.T) {
	fc, store, baseID, _ := newTestFlushController(t, 100, 2)

	// Two cycles with nothing to drain for baseID: its deferral count
	// must still advance even though the page is never "touched" by
	// either cycle's memtable iteration.
	require.NoError(t, fc.RunCycle(context.Background()))
	require.NoError(t, fc.RunCycle(context.Background()))

	// The very first entry after the idle gap now forces an immediate
	// flush, since deferralCount already reached maxDeferrals.
	fc.Add(domain.KeyFromUint64(1), []byte("a"), domain.OpWrite)
	require.NoError(t, fc.RunCycle(context.Background()))

	pg := readPage(t, store, baseID)
	assert.Len(t, pg.Records, 1, "accumulated deferral count from idle cycles must force the next entry to flush immediately")
}

func TestFlushControllerMaterializeReportsOverflowToSegmentIndex(t *testing.T) {
	const tinyPageSize = 96
	store := buffer.NewMemStore(tinyPageSize)
	baseID, err := store.AllocatePage()
	require.NoError(t, err)

	base := page.NewPage(domain.KeyFromUint64(0))
	buf := make([]byte, tinyPageSize)
	require.NoError(t, base.Encode(buf))
	require.NoError(t, store.WritePage(baseID, buf))

	mgr := buffer.NewManager(store, 10)
	mdl := model.NewLinear()
	mdl.Update(domain.KeyFromUint64(0), baseID)

	idx := segment.NewIndex(segment.NewLockManager(), segment.DefaultBackoffSaturate)
	idx.Insert(domain.KeyFromUint64(0), segment.Info{ID: uuid.New(), BasePageID: baseID, PageCount: 1})

	fc := NewFlushController(mgr, page.NewLatchTable(), mdl, idx, 1, 1)

	// tinyPageSize leaves room for only a couple of small records before a
	// page.Page refuses to Fit another one, forcing materializePage onto
	// the AppendOverflow path.
	for i := uint64(1); i <= 5; i++ {
		fc.Add(domain.KeyFromUint64(i), []byte("some value that takes up space"), domain.OpWrite)
	}
	require.NoError(t, fc.RunCycle(context.Background()))
	require.NoError(t, fc.RunCycle(context.Background()))

	e, ok := idx.SegmentForKey(domain.KeyFromUint64(0))
	require.True(t, ok)
	assert.True(t, e.Info.HasOverflow, "a real flush-triggered overflow must mark the owning segment")
}

func TestFlushControllerCarriesEntriesWithNoModelledPage(t *testing.T) {
	store := buffer.NewMemStore(testPageSize)
	mgr := buffer.NewManager(store, 10)
	mdl := model.NewLinear() // no breakpoints installed yet
	fc := NewFlushController(mgr, page.NewLatchTable(), mdl, nil, 1, 1)

	fc.Add(domain.KeyFromUint64(999), []byte("orphan"), domain.OpWrite)
	require.NoError(t, fc.RunCycle(context.Background()))

	rec, ok := fc.Get(domain.KeyFromUint64(999))
	require.True(t, ok, "a key outside every known breakpoint must survive the cycle, not be dropped")
	assert.Equal(t, []byte("orphan"), rec.Value)
}
