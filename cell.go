package glowmap

import (
	"fmt"
	"strconv"
	"strings"
)

// Tier axis bounds. The tier range does not depend on the snapshot.
const (
	MinTier   = 1
	MaxTier   = 10
	TierCount = MaxTier - MinTier + 1
)

// CellKey identifies one (period, tier) grid cell.
type CellKey struct {
	Period int
	Tier   int
}

// String returns "period/tier".
func (k CellKey) String() string {
	return fmt.Sprintf("%d/%d", k.Period, k.Tier)
}

// ParseCellKey parses the "period/tier" form produced by String.
func ParseCellKey(s string) (CellKey, error) {
	ps, ts, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return CellKey{}, fmt.Errorf("glowmap: cell %q: want period/tier", s)
	}
	period, err := strconv.Atoi(ps)
	if err != nil {
		return CellKey{}, fmt.Errorf("glowmap: cell %q: bad period: %w", s, err)
	}
	tier, err := strconv.Atoi(ts)
	if err != nil {
		return CellKey{}, fmt.Errorf("glowmap: cell %q: bad tier: %w", s, err)
	}
	return CellKey{Period: period, Tier: tier}, nil
}

// Cell is one coverage grid entry.
type Cell struct {
	Period            int   `json:"period" yaml:"period" toml:"period"`
	Tier              int   `json:"tier" yaml:"tier" toml:"tier"`
	TrackedRecords    int64 `json:"tracked_records" yaml:"tracked_records" toml:"tracked_records"`
	UntrackedRecords  int64 `json:"untracked_records" yaml:"untracked_records" toml:"untracked_records"`
	TrackedEntities   int64 `json:"tracked_entities" yaml:"tracked_entities" toml:"tracked_entities"`
	UntrackedEntities int64 `json:"untracked_entities" yaml:"untracked_entities" toml:"untracked_entities"`
}

// Key returns the cell's grid key.
func (c Cell) Key() CellKey {
	return CellKey{Period: c.Period, Tier: c.Tier}
}

// Empty reports whether the cell has no records at all.
// Empty cells are never rendered.
func (c Cell) Empty() bool {
	return c.TrackedRecords == 0 && c.UntrackedRecords == 0
}

// Coverage returns the tracked share of all records in [0, 1].
func (c Cell) Coverage() float64 {
	total := c.TrackedRecords + c.UntrackedRecords
	if total <= 0 {
		return 0
	}
	return float64(c.TrackedRecords) / float64(total)
}

// sanitized returns a copy with negative counts clamped to zero.
func (c Cell) sanitized() Cell {
	c.TrackedRecords = max(c.TrackedRecords, 0)
	c.UntrackedRecords = max(c.UntrackedRecords, 0)
	c.TrackedEntities = max(c.TrackedEntities, 0)
	c.UntrackedEntities = max(c.UntrackedEntities, 0)
	return c
}

// Snapshot is the full coverage grid at one point in time.
// A Snapshot is replaced wholesale and never mutated by glowmap.
type Snapshot struct {
	Cells []Cell `json:"cells" yaml:"cells" toml:"cells"`
}

// validTier reports whether tier lies on the fixed tier axis.
func validTier(tier int) bool {
	return tier >= MinTier && tier <= MaxTier
}
