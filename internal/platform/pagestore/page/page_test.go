package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagekv/internal/domain"
)

func TestPageEncodeDecodeRoundTrip(t *testing.T) {
	p := NewPage(domain.KeyFromUint64(10))
	p.Put(domain.Record{Key: domain.KeyFromUint64(20), Value: []byte("v20"), Op: domain.OpWrite})
	p.Put(domain.Record{Key: domain.KeyFromUint64(10), Value: []byte("v10"), Op: domain.OpWrite})

	buf := make([]byte, 256)
	require.NoError(t, p.Encode(buf))

	decoded, err := DecodePage(buf)
	require.NoError(t, err)
	assert.Equal(t, domain.KeyFromUint64(10), decoded.LowerBoundary)
	require.Len(t, decoded.Records, 2)
	assert.Equal(t, domain.KeyFromUint64(10), decoded.Records[0].Key)
	assert.Equal(t, domain.KeyFromUint64(20), decoded.Records[1].Key)
	assert.Equal(t, "v10", string(decoded.Records[0].Value))
}

func TestPagePutShadowsExistingKey(t *testing.T) {
	p := NewPage(domain.KeyFromUint64(0))
	p.Put(domain.Record{Key: domain.KeyFromUint64(5), Value: []byte("old"), Op: domain.OpWrite})
	p.Put(domain.Record{Key: domain.KeyFromUint64(5), Value: []byte("new"), Op: domain.OpWrite})

	require.Len(t, p.Records, 1)
	assert.Equal(t, "new", string(p.Records[0].Value))
}

func TestPageSeekIndex(t *testing.T) {
	p := NewPage(domain.KeyFromUint64(0))
	for _, k := range []uint64{10, 20, 30} {
		p.Put(domain.Record{Key: domain.KeyFromUint64(k), Value: []byte("v")})
	}
	assert.Equal(t, 1, p.SeekIndex(domain.KeyFromUint64(15)))
	assert.Equal(t, 0, p.SeekIndex(domain.KeyFromUint64(10)))
	assert.Equal(t, 3, p.SeekIndex(domain.KeyFromUint64(31)))
}
