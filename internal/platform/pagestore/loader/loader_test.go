package loader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagekv/internal/domain"
	"pagekv/internal/platform/config"
	"pagekv/internal/platform/pagestore/page"
)

func testConfig() config.Config {
	return config.Config{
		PageSize:    512,
		PageFillPct: 0.5,
	}
}

func keysRange(n int) []domain.Key {
	keys := make([]domain.Key, n)
	for i := 0; i < n; i++ {
		keys[i] = domain.KeyFromUint64(uint64(i))
	}
	return keys
}

func TestLoaderBuildCoversEveryKey(t *testing.T) {
	keys := keysRange(200)
	idx, mgr, mdl, err := NewLinear().Build(context.Background(), keys, testConfig())
	require.NoError(t, err)

	for _, k := range keys {
		pid, ok := mdl.KeyToPageID(k)
		require.True(t, ok, "key %v should resolve to a page", k.Uint64())

		pin := mgr.Fix(pid, false)
		require.NotNil(t, pin)
		pg, err := page.DecodePage(pin.Frame.Data())
		require.NoError(t, err)
		mgr.Unfix(pin, false)

		found := false
		for _, rec := range pg.Records {
			if rec.Key == k {
				found = true
				break
			}
		}
		assert.True(t, found, "key %v should be present on its modelled page", k.Uint64())
	}

	_, ok := idx.SegmentForKey(domain.KeyFromUint64(0))
	assert.True(t, ok)
}

func TestLoaderBuildGroupsPagesIntoSegments(t *testing.T) {
	keys := keysRange(500)
	idx, _, _, err := NewLinear().Build(context.Background(), keys, testConfig())
	require.NoError(t, err)

	e, ok := idx.SegmentForKey(domain.KeyFromUint64(0))
	require.True(t, ok)
	assert.Greater(t, e.Info.PageCount, 1, "enough keys should fill more than one page per segment")
}

func TestLoaderBuildEmptyKeySet(t *testing.T) {
	idx, mgr, mdl, err := NewLinear().Build(context.Background(), nil, testConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, idx.GetNumEntries())
	assert.NotNil(t, mgr)
	assert.NotNil(t, mdl)
}

func TestLoaderBuildRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, _, err := NewLinear().Build(ctx, keysRange(10), testConfig())
	assert.Error(t, err)
}
