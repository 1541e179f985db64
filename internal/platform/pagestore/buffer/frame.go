package buffer

import (
	"container/list"
	"sync"
)

// Frame is one buffer-pool slot: a pinned or unpinned in-memory copy of a
// physical page. The pin count is the reference: a frame with pinCount >
// 0 can never be chosen for eviction.
type Frame struct {
	id       PageID
	data     []byte
	latch    sync.RWMutex
	mu       sync.Mutex // guards pinCount/dirty/lruElem, owned by the Manager
	pinCount int
	dirty    bool
	lruElem  *list.Element
}

// PageID returns the identity of the page this frame holds.
func (f *Frame) PageID() PageID {
	return f.id
}

// Data exposes the frame's raw page bytes. Callers holding an exclusive
// fix may mutate the slice in place; callers holding a shared fix must
// not.
func (f *Frame) Data() []byte {
	return f.data
}

// Pin is a single matched Fix/Unfix pair. The same underlying Frame may
// be fixed more than once (by the same or different callers); each Fix
// call returns a distinct Pin so that Unfix releases exactly the latch
// mode that was acquired.
type Pin struct {
	Frame     *Frame
	exclusive bool
}
