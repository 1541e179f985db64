// Package domain holds the core types shared by every layer of the
// page-grouped storage engine: keys, records, and the error kinds
// components use to signal failure.
package domain

import "encoding/binary"

// KeySize is the fixed width, in bytes, of every key in the engine. Keys
// are compared as big-endian unsigned integers, so byte-wise comparison
// of two Keys already yields the correct ordering.
const KeySize = 8

// Key is a fixed-width unsigned integer key, stored big-endian so that
// lexicographic byte comparison matches numeric comparison.
type Key [KeySize]byte

// KeyFromUint64 encodes an unsigned integer as a Key.
func KeyFromUint64(v uint64) Key {
	var k Key
	binary.BigEndian.PutUint64(k[:], v)
	return k
}

// Uint64 decodes the Key back into an unsigned integer.
func (k Key) Uint64() uint64 {
	return binary.BigEndian.Uint64(k[:])
}

// Less reports whether k sorts strictly before other.
func (k Key) Less(other Key) bool {
	for i := 0; i < KeySize; i++ {
		if k[i] != other[i] {
			return k[i] < other[i]
		}
	}
	return false
}

// Compare returns -1, 0, or 1 as k is less than, equal to, or greater
// than other.
func (k Key) Compare(other Key) int {
	for i := 0; i < KeySize; i++ {
		if k[i] != other[i] {
			if k[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// MaxKey is the largest representable Key, used to stand in for +infinity
// as the upper bound of the last segment in the index.
var MaxKey = func() Key {
	var k Key
	for i := range k {
		k[i] = 0xFF
	}
	return k
}()
