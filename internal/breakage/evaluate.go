// Package breakage implements the bond-breaking decision procedure: given a
// relaxed snapshot of the network, it selects every bond whose current
// length exceeds its type's breaking threshold.
package breakage

import (
	"math"

	"github.com/michaelsouza/springnet/internal/thresholds"
)

// Snapshot is a read-only view of the engine's state between relaxations.
// It is rebuilt at the start of every avalanche iteration and discarded
// after one evaluation pass.
type Snapshot struct {
	Positions [][3]float64 // indexed by local atom slot
	Tags      []int64      // global identity per local slot
	BondTypes []int32      // current type per bond slot
	BondAtoms [][2]int64   // global tag pair per bond slot
	XPeriod   float64      // box width along x
	XPeriodic bool         // whether x uses minimum-image wrapping
}

// Evaluate returns the indices of all bonds that must break, in ascending
// order. It is a pure function of the snapshot and table: positions are
// fixed for the duration of one pass, so breaking bond i never changes the
// criterion for bond j.
//
// A bond is skipped when its type is <= 1 (broken or unbreakable), when its
// type has no threshold entry, or when either endpoint tag does not resolve
// in the snapshot. Unresolved tags are expected for ghost atoms in
// distributed layouts and are never an error.
func Evaluate(snap Snapshot, table *thresholds.Table) []int {
	// The engine's local ordering is unstable across relaxations, so the
	// tag map is rebuilt on every pass rather than cached.
	local := make(map[int64]int, len(snap.Tags))
	for i, tag := range snap.Tags {
		local[tag] = i
	}

	var marked []int
	for i, bondType := range snap.BondTypes {
		if bondType <= 1 {
			continue
		}
		breakLen, tracked := table.Lookup(int(bondType))
		if !tracked {
			continue
		}

		idx1, ok1 := local[snap.BondAtoms[i][0]]
		idx2, ok2 := local[snap.BondAtoms[i][1]]
		if !ok1 || !ok2 {
			continue
		}

		dx := snap.Positions[idx1][0] - snap.Positions[idx2][0]
		dy := snap.Positions[idx1][1] - snap.Positions[idx2][1]

		// Minimum image convention along x; y is shrink-wrapped and
		// never corrected. Round-to-nearest picks the closer image.
		if snap.XPeriodic && snap.XPeriod > 0 {
			dx -= snap.XPeriod * math.Round(dx/snap.XPeriod)
		}

		if math.Sqrt(dx*dx+dy*dy) > breakLen {
			marked = append(marked, i)
		}
	}
	return marked
}
