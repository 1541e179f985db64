// Package page implements the on-disk page format, the overflow chain
// abstraction built on top of the buffer manager, and the page merge
// iterator used by range scans (spec.md §3 "Page"/"OverflowChain" and
// §4.C/§4.D).
package page

import (
	"encoding/binary"
	"sort"

	"pagekv/internal/domain"
	"pagekv/internal/platform/pagestore/buffer"
)

// recordHeaderSize is the per-record fixed overhead: an 8-byte key, a
// 4-byte value length, and a 1-byte op-kind, matching spec.md §6's
// "fixed-width key, length-prefixed value, op-kind byte" page format.
const recordHeaderSize = domain.KeySize + 4 + 1

// pageHeaderSize accounts for the lower-boundary key, the next-overflow
// pointer, and the record count that precede the record array.
const pageHeaderSize = domain.KeySize + 8 + 4

// Page is the decoded, in-memory form of one physical page: a sorted run
// of records plus the lower boundary key it is responsible for and a
// pointer to the next overflow page in its chain (invalid if none).
type Page struct {
	LowerBoundary domain.Key
	NextOverflow  buffer.PageID
	Records       []domain.Record // sorted ascending by Key
}

// NewPage creates an empty page responsible for lower.
func NewPage(lower domain.Key) *Page {
	return &Page{LowerBoundary: lower, NextOverflow: buffer.InvalidPageID}
}

// EncodedSize returns the number of bytes Encode would need.
func (p *Page) EncodedSize() int {
	size := pageHeaderSize
	for _, r := range p.Records {
		size += recordHeaderSize + len(r.Value)
	}
	return size
}

// Fits reports whether p's current contents fit within a page of
// pageSize bytes.
func (p *Page) Fits(pageSize int) bool {
	return p.EncodedSize() <= pageSize
}

// Encode serializes p into buf, which must be at least EncodedSize()
// bytes; any remainder is left untouched (the caller is expected to have
// zeroed a fresh page-sized buffer).
func (p *Page) Encode(buf []byte) error {
	if len(buf) < p.EncodedSize() {
		return domain.NewError(domain.KindInvalidArgument, "buffer too small to encode page")
	}
	off := 0
	copy(buf[off:off+domain.KeySize], p.LowerBoundary[:])
	off += domain.KeySize
	binary.BigEndian.PutUint64(buf[off:off+8], uint64(p.NextOverflow))
	off += 8
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(p.Records)))
	off += 4
	for _, r := range p.Records {
		copy(buf[off:off+domain.KeySize], r.Key[:])
		off += domain.KeySize
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(r.Value)))
		off += 4
		copy(buf[off:off+len(r.Value)], r.Value)
		off += len(r.Value)
		buf[off] = byte(r.Op)
		off++
	}
	return nil
}

// DecodePage parses a previously-encoded page out of data.
func DecodePage(data []byte) (*Page, error) {
	if len(data) < pageHeaderSize {
		return nil, domain.WrapError(domain.KindCorruption, "page too short", nil)
	}
	p := &Page{}
	off := 0
	copy(p.LowerBoundary[:], data[off:off+domain.KeySize])
	off += domain.KeySize
	p.NextOverflow = buffer.PageID(binary.BigEndian.Uint64(data[off : off+8]))
	off += 8
	n := binary.BigEndian.Uint32(data[off : off+4])
	off += 4

	p.Records = make([]domain.Record, 0, n)
	for i := uint32(0); i < n; i++ {
		if off+recordHeaderSize > len(data) {
			return nil, domain.WrapError(domain.KindCorruption, "truncated record header", nil)
		}
		var rec domain.Record
		copy(rec.Key[:], data[off:off+domain.KeySize])
		off += domain.KeySize
		valLen := binary.BigEndian.Uint32(data[off : off+4])
		off += 4
		if off+int(valLen)+1 > len(data) {
			return nil, domain.WrapError(domain.KindCorruption, "truncated record value", nil)
		}
		rec.Value = make([]byte, valLen)
		copy(rec.Value, data[off:off+int(valLen)])
		off += int(valLen)
		rec.Op = domain.OpKind(data[off])
		off++
		p.Records = append(p.Records, rec)
	}
	return p, nil
}

// Put inserts or overwrites (by key) a record, keeping Records sorted.
// A later Put for an existing key shadows the earlier one, matching the
// memtable's last-writer-wins semantics once entries are flushed down.
func (p *Page) Put(rec domain.Record) {
	i := sort.Search(len(p.Records), func(j int) bool {
		return !p.Records[j].Key.Less(rec.Key)
	})
	if i < len(p.Records) && p.Records[i].Key == rec.Key {
		p.Records[i] = rec
		return
	}
	p.Records = append(p.Records, domain.Record{})
	copy(p.Records[i+1:], p.Records[i:])
	p.Records[i] = rec
}

// SeekIndex returns the index of the first record with Key >= key.
func (p *Page) SeekIndex(key domain.Key) int {
	return sort.Search(len(p.Records), func(j int) bool {
		return !p.Records[j].Key.Less(key)
	})
}
