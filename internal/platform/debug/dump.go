// Package debug holds diagnostics helpers for inspecting engine state
// from tests and ad-hoc tooling. None of it sits on the engine's hot
// path.
package debug

import (
	"io"

	"github.com/davecgh/go-spew/spew"

	"pagekv/internal/platform/pagestore/segment"
)

// config mirrors spew's defaults with method/pointer-address noise
// turned off, since dumps are read by humans comparing segment layouts.
var config = spew.ConfigState{
	Indent:                  "  ",
	DisableMethods:          true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Dump pretty-prints v to w using go-spew, one value per call.
func Dump(w io.Writer, v interface{}) {
	config.Fdump(w, v)
}

// DumpSegmentIndex dumps every segment entry currently held by idx, in
// ascending lower-bound order.
func DumpSegmentIndex(w io.Writer, idx *segment.Index) {
	config.Fdump(w, idx.Snapshot())
}

// Sdump returns v's dump as a string, for embedding in error messages
// or test failure output.
func Sdump(v interface{}) string {
	return config.Sdump(v)
}
