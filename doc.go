// Package glowmap renders a coverage heatmap as a field of soft glow
// blobs and animates it when data changes or a cell is selected.
//
// # Overview
//
// The grid has one column per period (a year) and one row per importance
// tier (1..10). Each non-empty cell becomes a radial gradient blob whose
// brightness encodes how many tracked and untracked records it holds.
// Blobs are screen-blended into an off-screen buffer, blurred, and
// composited onto a gg drawing context clipped to the grid.
//
// # Quick Start
//
//	e := glowmap.New(800, 480)
//	e.SetSnapshot(&glowmap.Snapshot{Cells: cells})
//
//	dc := gg.NewContext(800, 480)
//	e.Render(dc)
//	_ = dc.SavePNG("coverage.png")
//
// # Animation
//
// Cells whose counts increase between snapshots fade from an alert color
// to the steady color over FadeDuration. The selected cell emits
// expanding ripple rings around a pulsing dot. Both are driven by one
// AnimationClock that runs only while something animates: hosts call
// Engine.Tick at their frame rate while the WithAnimationFunc callback
// reports the clock as running.
//
// # Coordinate System
//
// All geometry is in surface pixels with the origin at the top-left.
// Pointer positions arrive in host units together with a scale factor
// (surface pixels per host unit), as reported by HiDPI displays.
//
// # Concurrency
//
// An Engine belongs to one goroutine. See internal/host for a runtime
// loop that serializes snapshots, pointer events and clock ticks.
package glowmap

// Version information
const (
	// Version is the current version of the module.
	Version = "0.3.0"
)
