package glowmap

// recordCounts is the shadow entry kept per cell between snapshots.
type recordCounts struct {
	tracked   int64
	untracked int64
}

// UpdateDetector diffs successive grids to find cells whose record counts
// increased. It keeps a private shadow copy of the previous counts; the
// snapshots themselves are never modified.
type UpdateDetector struct {
	shadow map[CellKey]recordCounts
}

// Detect returns the keys of cells in g that should start (or refresh) a
// fade, then replaces the shadow copy with g's counts.
//
// A cell is reported when a previous shadow copy exists and either count
// grew, or the cell is non-empty and had no shadow entry. The first ready
// grid only primes the shadow copy. Grids that are not ready leave the
// shadow untouched so the next real snapshot diffs against the last one.
func (d *UpdateDetector) Detect(g *Grid) []CellKey {
	if !g.Ready() {
		return nil
	}

	var increased []CellKey
	if d.shadow != nil {
		for _, c := range g.Cells() {
			prev, seen := d.shadow[c.Key()]
			switch {
			case !seen:
				if !c.Empty() {
					increased = append(increased, c.Key())
				}
			case c.TrackedRecords > prev.tracked || c.UntrackedRecords > prev.untracked:
				increased = append(increased, c.Key())
			}
		}
	}

	next := make(map[CellKey]recordCounts, g.Len())
	for _, c := range g.Cells() {
		next[c.Key()] = recordCounts{tracked: c.TrackedRecords, untracked: c.UntrackedRecords}
	}
	d.shadow = next
	return increased
}

// Primed reports whether a shadow copy exists.
func (d *UpdateDetector) Primed() bool {
	return d.shadow != nil
}

// Reset forgets the shadow copy.
func (d *UpdateDetector) Reset() {
	d.shadow = nil
}
