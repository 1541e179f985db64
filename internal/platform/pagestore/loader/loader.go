// Package loader implements the bulk loader (spec.md §6 "consumed by
// the bulk loader") that lays out an initial, sorted key set into pages
// and segments so the storage engine is runnable end to end without
// waiting on an external learned-model trainer. LayoutRecords is also
// the layout algorithm a segment reorg uses to rewrite a region's live
// records into fresh pages and segments (spec.md §4.E / Non-goals:
// "pages... rewritten into new segments").
package loader

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"pagekv/internal/domain"
	"pagekv/internal/platform/config"
	"pagekv/internal/platform/pagestore/buffer"
	"pagekv/internal/platform/pagestore/model"
	"pagekv/internal/platform/pagestore/page"
	"pagekv/internal/platform/pagestore/segment"
)

// pagesPerSegment bounds how many pages the reference loader groups
// under one segment, giving SegmentInfo.PageCount something other than
// 1 to exercise reorg-region discovery (spec.md §4.E) against freshly
// loaded data.
const pagesPerSegment = 4

// recordOverheadEstimate and pageHeaderOverheadEstimate mirror page's
// own unexported sizing constants closely enough to plan page fill
// without requiring the loader to actually encode a trial page per key;
// actual records carry a value, so pageFillPct leaves headroom for it.
const (
	recordOverheadEstimate     = domain.KeySize + 4 + 1
	pageHeaderOverheadEstimate = domain.KeySize + 8 + 4
)

// defaultBufferCapacity is the frame-count ceiling for the buffer
// manager a freshly loaded store starts with.
const defaultBufferCapacity = 256

// Loader builds the initial on-disk layout and in-memory indexes for a
// sorted key population.
type Loader interface {
	Build(ctx context.Context, keys []domain.Key, cfg config.Config) (*segment.Index, *buffer.Manager, model.Model, error)
}

// Linear is the reference Loader: it lays out keys into fixed-size
// pages and groups pagesPerSegment pages under each segment, installing
// a Model breakpoint per page and a segment.Index entry per segment.
type Linear struct{}

// NewLinear creates the reference bulk loader.
func NewLinear() *Linear { return &Linear{} }

// Build implements Loader.
func (l *Linear) Build(ctx context.Context, keys []domain.Key, cfg config.Config) (*segment.Index, *buffer.Manager, model.Model, error) {
	sorted := make([]domain.Key, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	store := buffer.NewMemStore(cfg.PageSize)
	mgr := buffer.NewManager(store, defaultBufferCapacity)
	mdl := model.NewLinear()
	idx := segment.NewIndex(segment.NewLockManager(), uint32(cfg.BackoffSaturate))

	records := make([]domain.Record, len(sorted))
	for i, k := range sorted {
		records[i] = domain.Record{Key: k, Op: domain.OpWrite}
	}

	if err := LayoutRecords(ctx, store, mdl, idx, records, cfg); err != nil {
		return nil, nil, nil, err
	}
	return idx, mgr, mdl, nil
}

// RecordsPerPage estimates how many records a page sized cfg.PageSize
// can hold at cfg.PageFillPct, the same sizing formula the reference
// loader has always planned its pages with.
func RecordsPerPage(cfg config.Config) int {
	recordsPerPage := int(float64(cfg.PageSize)*cfg.PageFillPct-pageHeaderOverheadEstimate) / recordOverheadEstimate
	if recordsPerPage < 1 {
		recordsPerPage = 1
	}
	return recordsPerPage
}

// LayoutRecords packs records (already sorted ascending by key) into
// fixed-size pages grouped pagesPerSegment-at-a-time under fresh
// segments, installing a Model breakpoint per page and a segment.Index
// entry per segment as it goes. It is shared by the initial bulk load
// and by a segment reorg's rewrite step, so both produce the same
// physical shape from a sorted record set.
func LayoutRecords(ctx context.Context, store buffer.Store, mdl model.Model, idx *segment.Index, records []domain.Record, cfg config.Config) error {
	recordsPerPage := RecordsPerPage(cfg)

	for i := 0; i < len(records); {
		if err := ctx.Err(); err != nil {
			return err
		}

		segLower := records[i].Key
		var segBase buffer.PageID
		pagesInSegment := 0

		for pagesInSegment < pagesPerSegment && i < len(records) {
			end := i + recordsPerPage
			if end > len(records) {
				end = len(records)
			}
			pageRecords := records[i:end]

			pg := page.NewPage(pageRecords[0].Key)
			for _, rec := range pageRecords {
				pg.Put(rec)
			}

			pid, err := store.AllocatePage()
			if err != nil {
				return err
			}
			buf := make([]byte, cfg.PageSize)
			if err := pg.Encode(buf); err != nil {
				return err
			}
			if err := store.WritePage(pid, buf); err != nil {
				return err
			}

			mdl.Update(pageRecords[0].Key, pid)
			if pagesInSegment == 0 {
				segBase = pid
			}
			pagesInSegment++
			i = end
		}

		idx.Insert(segLower, segment.Info{
			ID:         uuid.New(),
			BasePageID: segBase,
			PageCount:  pagesInSegment,
		})
	}

	return nil
}
