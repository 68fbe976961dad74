package glowmap

import "errors"

// Sentinel errors for glowmap.
var (
	// ErrNotReady is returned by cell operations before a non-empty
	// snapshot has been set.
	ErrNotReady = errors.New("glowmap: no coverage data")

	// ErrInvalidCell is returned when a cell lies outside the tier range
	// or the snapshot's period range.
	ErrInvalidCell = errors.New("glowmap: cell outside grid")
)
