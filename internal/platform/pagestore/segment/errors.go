package segment

import "errors"

// ErrRetry signals that a page or segment lookup failed transiently
// because a concurrent reorganization renumbered the target, and the
// caller must requery the model or index and try again. It is an
// internal-only control-flow signal and must never cross the engine's
// public API boundary (spec.md §7).
var ErrRetry = errors.New("segment: retry, page or segment was reorganized")
