package memtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagekv/internal/domain"
)

func TestMemtableAddAndGet(t *testing.T) {
	m := NewMemtable()
	m.Add(domain.KeyFromUint64(1), []byte("a"), domain.OpWrite)

	rec, ok := m.Get(domain.KeyFromUint64(1))
	require.True(t, ok)
	assert.Equal(t, []byte("a"), rec.Value)
	assert.False(t, rec.IsDelete())
}

func TestMemtableLaterAddShadowsEarlier(t *testing.T) {
	m := NewMemtable()
	m.Add(domain.KeyFromUint64(1), []byte("a"), domain.OpWrite)
	m.Add(domain.KeyFromUint64(1), []byte("b"), domain.OpWrite)

	rec, ok := m.Get(domain.KeyFromUint64(1))
	require.True(t, ok)
	assert.Equal(t, []byte("b"), rec.Value)
	assert.Equal(t, 2, m.Len(), "earlier entry is shadowed, not overwritten in place")
}

func TestMemtableDeleteIsATombstone(t *testing.T) {
	m := NewMemtable()
	m.Add(domain.KeyFromUint64(1), []byte("a"), domain.OpWrite)
	m.Add(domain.KeyFromUint64(1), nil, domain.OpDelete)

	rec, ok := m.Get(domain.KeyFromUint64(1))
	require.True(t, ok)
	assert.True(t, rec.IsDelete())
}

func TestMemtableGetMissingKey(t *testing.T) {
	m := NewMemtable()
	_, ok := m.Get(domain.KeyFromUint64(1))
	assert.False(t, ok)
}

func TestMemtableIteratorOrdersByKeyThenSeq(t *testing.T) {
	m := NewMemtable()
	m.Add(domain.KeyFromUint64(2), []byte("x"), domain.OpWrite)
	m.Add(domain.KeyFromUint64(1), []byte("y"), domain.OpWrite)
	m.Add(domain.KeyFromUint64(1), []byte("z"), domain.OpWrite)

	var keys []uint64
	var seqs []uint64
	m.Iterator(func(rec domain.Record, seq uint64) {
		keys = append(keys, rec.Key.Uint64())
		seqs = append(seqs, seq)
	})

	assert.Equal(t, []uint64{1, 1, 2}, keys)
	assert.Equal(t, []uint64{2, 3, 1}, seqs)
}

func TestMemtableApproximateMemoryUsageGrows(t *testing.T) {
	m := NewMemtable()
	before := m.ApproximateMemoryUsage()
	m.Add(domain.KeyFromUint64(1), []byte("some value"), domain.OpWrite)
	assert.Greater(t, m.ApproximateMemoryUsage(), before)
}
