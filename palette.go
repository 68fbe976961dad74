package glowmap

import "github.com/gogpu/gg"

// Palette holds the colors used by the engine.
type Palette struct {
	Background gg.RGBA // surface fill behind the grid
	Steady     gg.RGBA // blob color of settled cells
	Alert      gg.RGBA // blob color right after a cell's counts increased
	Ripple     gg.RGBA // ripple rings and epicenter dot
	Hover      gg.RGBA // hover outline
	Label      gg.RGBA // axis and legend text
	GridLine   gg.RGBA // grid rectangle border
}

// DefaultPalette returns the dark theme palette: a green steady glow with
// a purple alert color.
func DefaultPalette() Palette {
	return Palette{
		Background: gg.Hex("#0b0f14"),
		Steady:     gg.Hex("#2fe38a"),
		Alert:      gg.Hex("#a35bff"),
		Ripple:     gg.Hex("#e8f6ff"),
		Hover:      gg.RGBA2(1, 1, 1, 0.85),
		Label:      gg.Hex("#8b98a5"),
		GridLine:   gg.RGBA2(1, 1, 1, 0.08),
	}
}

// BlobColor returns the blob color for a cell whose fade has progressed
// by p in [0, 1]. Cells without a live fade use the steady color.
func (p Palette) BlobColor(progress float64, fading bool) gg.RGBA {
	if !fading {
		return p.Steady
	}
	progress = min(max(progress, 0), 1)
	return p.Alert.Lerp(p.Steady, progress)
}
