package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagekv/internal/domain"
)

func chainFromPages(pages ...*Page) *Chain {
	return &Chain{Pages: pages}
}

func TestMergeIteratorOrdersAcrossPages(t *testing.T) {
	base := NewPage(domain.KeyFromUint64(0))
	base.Put(domain.Record{Key: domain.KeyFromUint64(10), Value: []byte("base-10")})
	base.Put(domain.Record{Key: domain.KeyFromUint64(30), Value: []byte("base-30")})

	overflow := NewPage(domain.KeyFromUint64(0))
	overflow.Put(domain.Record{Key: domain.KeyFromUint64(20), Value: []byte("ovf-20")})

	chain := chainFromPages(base, overflow)
	it := NewMergeIterator(chain, nil)

	var keys []uint64
	for it.Valid() {
		keys = append(keys, it.Key().Uint64())
		it.Next()
	}
	assert.Equal(t, []uint64{10, 20, 30}, keys)
}

func TestMergeIteratorTieBreaksTowardLaterPage(t *testing.T) {
	base := NewPage(domain.KeyFromUint64(0))
	base.Put(domain.Record{Key: domain.KeyFromUint64(10), Value: []byte("old")})

	overflow := NewPage(domain.KeyFromUint64(0))
	overflow.Put(domain.Record{Key: domain.KeyFromUint64(10), Value: []byte("new")})

	chain := chainFromPages(base, overflow)
	it := NewMergeIterator(chain, nil)

	require.True(t, it.Valid())
	assert.Equal(t, "new", string(it.Record().Value))
	it.Next()
	assert.False(t, it.Valid())
}

func TestMergeIteratorSeek(t *testing.T) {
	base := NewPage(domain.KeyFromUint64(0))
	for _, k := range []uint64{10, 20, 30, 40} {
		base.Put(domain.Record{Key: domain.KeyFromUint64(k), Value: []byte("v")})
	}
	seek := domain.KeyFromUint64(25)
	it := NewMergeIterator(chainFromPages(base), &seek)

	var keys []uint64
	for it.Valid() {
		keys = append(keys, it.Key().Uint64())
		it.Next()
	}
	assert.Equal(t, []uint64{30, 40}, keys)
}
