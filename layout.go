package glowmap

import "math"

// Insets are the surface margins around the grid rectangle, in surface
// pixels. The left margin holds tier labels, the bottom one period
// labels and the right one the coverage legend.
type Insets struct {
	Left, Top, Right, Bottom float64
}

// DefaultInsets returns the margins used when none are configured.
func DefaultInsets() Insets {
	return Insets{Left: 44, Top: 12, Right: 84, Bottom: 30}
}

// Rect is an axis-aligned rectangle in surface pixels.
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether (x, y) lies in the half-open rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Layout maps grid cells to surface pixels and back. Row 0 is the top
// row and holds MaxTier; column 0 holds the grid's first period.
//
// A Layout is a value computed from the current surface size and grid,
// so a resize can never leave hit testing on stale dimensions.
type Layout struct {
	Grid      Rect
	Columns   int
	Rows      int
	MinPeriod int
	StepX     float64 // cell width plus padding
	StepY     float64 // cell height plus padding
	CellW     float64
	CellH     float64
	Padding   float64
}

// NewLayout computes the layout of a grid with the given number of
// period columns on a width x height surface. The grid rectangle is
// snapped to whole pixels.
func NewLayout(width, height, columns, minPeriod int, insets Insets, padding float64) Layout {
	l := Layout{
		Columns:   max(columns, 1),
		Rows:      TierCount,
		MinPeriod: minPeriod,
		Padding:   math.Max(padding, 0),
	}
	gx := math.Round(insets.Left)
	gy := math.Round(insets.Top)
	gw := math.Floor(float64(width) - insets.Right - gx)
	gh := math.Floor(float64(height) - insets.Bottom - gy)
	if gw <= 0 || gh <= 0 {
		return l
	}
	l.Grid = Rect{X: gx, Y: gy, W: gw, H: gh}
	l.StepX = gw / float64(l.Columns)
	l.StepY = gh / float64(l.Rows)
	l.CellW = math.Max(l.StepX-l.Padding, 1)
	l.CellH = math.Max(l.StepY-l.Padding, 1)
	return l
}

// Valid reports whether the layout has a drawable grid.
func (l Layout) Valid() bool {
	return !l.Grid.Empty()
}

// Column returns the column index of period.
func (l Layout) Column(period int) int { return period - l.MinPeriod }

// Row returns the row index of tier.
func (l Layout) Row(tier int) int { return MaxTier - tier }

// CellRect returns the pixel rectangle of the cell at k.
func (l Layout) CellRect(k CellKey) Rect {
	return Rect{
		X: l.Grid.X + float64(l.Column(k.Period))*l.StepX,
		Y: l.Grid.Y + float64(l.Row(k.Tier))*l.StepY,
		W: l.CellW,
		H: l.CellH,
	}
}

// CellCenter returns the pixel center of the cell at k.
func (l Layout) CellCenter(k CellKey) (x, y float64) {
	r := l.CellRect(k)
	return r.X + r.W/2, r.Y + r.H/2
}

// CellSize returns the larger of the cell width and height.
func (l Layout) CellSize() float64 {
	return math.Max(l.CellW, l.CellH)
}

// HitTest maps a pointer position in host coordinates to a cell. scale
// is the surface pixels per host unit; values <= 0 mean 1. Positions
// outside the grid rectangle report no cell; in-bounds positions are
// floored per axis and clamped to the valid index range.
func (l Layout) HitTest(x, y, scale float64) (CellKey, bool) {
	if !l.Valid() {
		return CellKey{}, false
	}
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = 1
	}
	px, py := x*scale, y*scale
	if !l.Grid.Contains(px, py) {
		return CellKey{}, false
	}
	col := int(math.Floor((px - l.Grid.X) / l.StepX))
	row := int(math.Floor((py - l.Grid.Y) / l.StepY))
	col = min(max(col, 0), l.Columns-1)
	row = min(max(row, 0), l.Rows-1)
	return CellKey{Period: l.MinPeriod + col, Tier: MaxTier - row}, true
}
