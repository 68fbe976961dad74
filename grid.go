package glowmap

import (
	"math"
	"slices"
)

// Grid is a normalized, read-only view of a Snapshot: a lookup keyed by
// (period, tier) plus the metadata used for layout and normalization.
//
// A Grid built from a nil or empty snapshot is not ready; the engine
// draws a placeholder instead of the heatmap.
type Grid struct {
	cells map[CellKey]Cell
	keys  []CellKey

	minPeriod    int
	maxPeriod    int
	maxTracked   int64
	maxUntracked int64
}

// NewGrid normalizes s. Cells with a tier outside [MinTier, MaxTier] are
// dropped; for duplicate keys the last cell wins.
func NewGrid(s *Snapshot) *Grid {
	g := &Grid{
		cells:        make(map[CellKey]Cell),
		maxTracked:   1,
		maxUntracked: 1,
	}
	if s == nil {
		return g
	}

	first := true
	for _, c := range s.Cells {
		if !validTier(c.Tier) {
			Logger().Debug("glowmap: dropping cell outside tier range",
				"period", c.Period, "tier", c.Tier)
			continue
		}
		c = c.sanitized()
		k := c.Key()
		if _, dup := g.cells[k]; !dup {
			g.keys = append(g.keys, k)
		}
		g.cells[k] = c

		if first {
			g.minPeriod, g.maxPeriod = c.Period, c.Period
			first = false
		} else {
			g.minPeriod = min(g.minPeriod, c.Period)
			g.maxPeriod = max(g.maxPeriod, c.Period)
		}
		g.maxTracked = max(g.maxTracked, c.TrackedRecords)
		g.maxUntracked = max(g.maxUntracked, c.UntrackedRecords)
	}

	slices.SortFunc(g.keys, func(a, b CellKey) int {
		if a.Period != b.Period {
			return a.Period - b.Period
		}
		return a.Tier - b.Tier
	})
	return g
}

// Ready reports whether the grid has at least one cell.
func (g *Grid) Ready() bool {
	return g != nil && len(g.keys) > 0
}

// MinPeriod returns the first period of the grid.
func (g *Grid) MinPeriod() int { return g.minPeriod }

// MaxPeriod returns the last period of the grid (inclusive).
func (g *Grid) MaxPeriod() int { return g.maxPeriod }

// MaxTracked returns the largest tracked record count, floored at 1.
func (g *Grid) MaxTracked() int64 { return g.maxTracked }

// MaxUntracked returns the largest untracked record count, floored at 1.
func (g *Grid) MaxUntracked() int64 { return g.maxUntracked }

// Columns returns the number of periods spanned, at least 1 when ready.
func (g *Grid) Columns() int {
	if !g.Ready() {
		return 0
	}
	return g.maxPeriod - g.minPeriod + 1
}

// Len returns the number of cells in the grid.
func (g *Grid) Len() int {
	if g == nil {
		return 0
	}
	return len(g.keys)
}

// Cell returns the cell at (period, tier), if the snapshot had one.
func (g *Grid) Cell(period, tier int) (Cell, bool) {
	if g == nil {
		return Cell{}, false
	}
	c, ok := g.cells[CellKey{Period: period, Tier: tier}]
	return c, ok
}

// Contains reports whether (period, tier) lies inside the grid's axes,
// regardless of whether the snapshot has data for it.
func (g *Grid) Contains(k CellKey) bool {
	return g.Ready() && validTier(k.Tier) && k.Period >= g.minPeriod && k.Period <= g.maxPeriod
}

// Cells returns all cells in (period, tier) order.
func (g *Grid) Cells() []Cell {
	if g == nil {
		return nil
	}
	out := make([]Cell, 0, len(g.keys))
	for _, k := range g.keys {
		out = append(out, g.cells[k])
	}
	return out
}

// Intensity returns the normalized glow intensity of c in [0, 1].
func (g *Grid) Intensity(c Cell) float64 {
	return Intensity(c.TrackedRecords, c.UntrackedRecords, g.maxTracked, g.maxUntracked)
}

// Intensity combines tracked and untracked record counts into a glow
// intensity. Each share is square-rooted so that small counts stay
// visibly distinct from zero.
func Intensity(tracked, untracked, maxTracked, maxUntracked int64) float64 {
	maxTracked = max(maxTracked, 1)
	maxUntracked = max(maxUntracked, 1)
	t := math.Sqrt(math.Min(1, float64(max(tracked, 0))/float64(maxTracked)))
	u := math.Sqrt(math.Min(1, float64(max(untracked, 0))/float64(maxUntracked)))
	return 0.5*t + 0.5*u
}
