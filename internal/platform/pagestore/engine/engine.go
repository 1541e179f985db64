// Package engine wires the buffer manager, segment index, memtable, and
// flush controller into the single façade the rest of the codebase
// talks to (spec.md §6's "External Interfaces").
package engine

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"pagekv/internal/domain"
	"pagekv/internal/platform/config"
	"pagekv/internal/platform/pagestore/buffer"
	"pagekv/internal/platform/pagestore/memtable"
	"pagekv/internal/platform/pagestore/model"
	"pagekv/internal/platform/pagestore/page"
	"pagekv/internal/platform/pagestore/segment"
)

// Engine is the storage engine façade: one Model, one Loader-built
// SegmentIndex, one buffer.Manager, one segment.LockManager (owned by
// the index), and one memtable.FlushController, exposing Get/Put/Delete/
// GetRange/Flush/Close.
type Engine struct {
	cfg     config.Config
	mgr     *buffer.Manager
	latches *page.LatchTable
	idx     *segment.Index
	mdl     model.Model
	flush   *memtable.FlushController
}

// New creates an Engine over already-built storage (typically produced
// by loader.Linear.Build).
func New(cfg config.Config, idx *segment.Index, mgr *buffer.Manager, mdl model.Model) *Engine {
	latches := page.NewLatchTable()
	return &Engine{
		cfg:     cfg,
		mgr:     mgr,
		latches: latches,
		idx:     idx,
		mdl:     mdl,
		flush:   memtable.NewFlushController(mgr, latches, mdl, idx, cfg.IOThreshold, cfg.MaxDeferrals),
	}
}

// Get returns the value for key, or domain.ErrNotFound if it has no
// live record (never written, or shadowed by a tombstone).
func (e *Engine) Get(key domain.Key) ([]byte, error) {
	if rec, ok := e.flush.Get(key); ok {
		if rec.IsDelete() {
			return nil, domain.ErrNotFound
		}
		return rec.Value, nil
	}

	rec, err := e.getFromPages(key)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.IsDelete() {
		return nil, domain.ErrNotFound
	}
	return rec.Value, nil
}

func (e *Engine) getFromPages(key domain.Key) (*domain.Record, error) {
	pid, ok := e.mdl.KeyToPageID(key)
	if !ok {
		return nil, nil
	}

	for {
		chain, err := e.fixChainOrRetry(pid, false)
		if errors.Is(err, segment.ErrRetry) {
			pid, ok = e.mdl.KeyToPageID(key)
			if !ok {
				return nil, nil
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		it := page.NewMergeIterator(chain, &key)
		var result *domain.Record
		if it.Valid() && it.Key() == key {
			rec := it.Record()
			result = &rec
		}
		chain.Unpin(e.mgr, false)
		return result, nil
	}
}

// fixChainOrRetry wraps page.FixOverflowChain, translating a missed fix
// into segment.ErrRetry so callers can requery the model in a uniform
// loop instead of branching on a bare boolean.
func (e *Engine) fixChainOrRetry(pid buffer.PageID, exclusive bool) (*page.Chain, error) {
	chain, ok := page.FixOverflowChain(e.mgr, e.latches, pid, exclusive, true)
	if !ok {
		return nil, segment.ErrRetry
	}
	return chain, nil
}

// Put inserts or overwrites key's value.
func (e *Engine) Put(key domain.Key, value []byte) error {
	e.flush.Add(key, value, domain.OpWrite)
	return e.maybeFlush()
}

// Delete records a tombstone for key.
func (e *Engine) Delete(key domain.Key) error {
	e.flush.Add(key, nil, domain.OpDelete)
	return e.maybeFlush()
}

// maybeFlush triggers a flush cycle once the active memtable crosses
// memtableFlushThreshold (spec.md §6).
func (e *Engine) maybeFlush() error {
	if e.flush.ApproximateMemoryUsage() < e.cfg.MemtableFlushThreshold {
		return nil
	}
	log.Debug().Int("threshold", e.cfg.MemtableFlushThreshold).Msg("engine: memtable threshold crossed, running flush cycle")
	if err := e.flush.RunCycle(context.Background()); err != nil {
		return err
	}
	return e.MaybeReorg(context.Background())
}

// Flush manually triggers one flush cycle, followed by a reorg check
// (spec.md §2's flush-then-maybe-reorg data flow through E+F).
func (e *Engine) Flush() error {
	log.Debug().Msg("engine: manual flush requested")
	if err := e.flush.RunCycle(context.Background()); err != nil {
		return err
	}
	return e.MaybeReorg(context.Background())
}

// Close performs the unconditional shutdown flush pass, a final reorg
// check, and persists any pages still dirty in the buffer pool.
func (e *Engine) Close() error {
	log.Info().Msg("engine: closing, running shutdown flush pass")
	if err := e.flush.Shutdown(context.Background()); err != nil {
		return err
	}
	if err := e.MaybeReorg(context.Background()); err != nil {
		return err
	}
	return e.mgr.FlushDirty()
}

// SegmentIndex exposes the underlying segment index, e.g. for
// diagnostics or for a reorg driver built on top of the engine.
func (e *Engine) SegmentIndex() *segment.Index {
	return e.idx
}
