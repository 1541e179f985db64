package debug

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"pagekv/internal/domain"
	"pagekv/internal/platform/pagestore/buffer"
	"pagekv/internal/platform/pagestore/segment"
)

func TestDumpWritesNonEmptyOutput(t *testing.T) {
	var buf bytes.Buffer
	Dump(&buf, struct{ A int }{A: 1})
	assert.NotEmpty(t, buf.String())
	assert.Contains(t, buf.String(), "A:")
}

func TestDumpSegmentIndexIncludesEveryEntry(t *testing.T) {
	locks := segment.NewLockManager()
	idx := segment.NewIndex(locks, segment.DefaultBackoffSaturate)
	idx.Insert(domain.KeyFromUint64(0), segment.Info{ID: uuid.New(), BasePageID: buffer.PageID(1), PageCount: 4})
	idx.Insert(domain.KeyFromUint64(100), segment.Info{ID: uuid.New(), BasePageID: buffer.PageID(5), PageCount: 4})

	var buf bytes.Buffer
	DumpSegmentIndex(&buf, idx)

	out := buf.String()
	assert.Contains(t, out, "PageCount")
	assert.Contains(t, out, "BasePageID")
}

func TestSdumpReturnsString(t *testing.T) {
	out := Sdump(42)
	assert.Contains(t, out, "42")
}
