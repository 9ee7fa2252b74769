package breakage

import (
	"reflect"
	"strings"
	"testing"

	"github.com/michaelsouza/springnet/internal/thresholds"
)

func mustTable(t *testing.T, entries string) *thresholds.Table {
	t.Helper()
	table, err := thresholds.Parse(strings.NewReader(entries))
	if err != nil {
		t.Fatalf("parsing table: %v", err)
	}
	return table
}

// twoAtomSnapshot builds a snapshot with one bond of the given type joining
// atoms at x1 and x2 on the x axis.
func twoAtomSnapshot(bondType int32, x1, x2, period float64, periodic bool) Snapshot {
	return Snapshot{
		Positions: [][3]float64{{x1, 0, 0}, {x2, 0, 0}},
		Tags:      []int64{101, 102},
		BondTypes: []int32{bondType},
		BondAtoms: [][2]int64{{101, 102}},
		XPeriod:   period,
		XPeriodic: periodic,
	}
}

func TestEvaluate_MarksOverstretchedBond(t *testing.T) {
	table := mustTable(t, "2 1.5\n")
	snap := twoAtomSnapshot(2, 0, 1.6, 100, true)

	got := Evaluate(snap, table)
	if !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("Evaluate = %v, want [0]", got)
	}
}

func TestEvaluate_BondAtThresholdSurvives(t *testing.T) {
	table := mustTable(t, "2 1.5\n")
	snap := twoAtomSnapshot(2, 0, 1.5, 100, true)

	if got := Evaluate(snap, table); len(got) != 0 {
		t.Errorf("Evaluate = %v, want empty (dist == threshold is not a break)", got)
	}
}

func TestEvaluate_MinimumImage(t *testing.T) {
	// Atoms at x=0.1 and x=L-0.1 across a periodic boundary of width L=10:
	// true separation is 0.2, not 9.8.
	table := mustTable(t, "2 1.5\n")

	snap := twoAtomSnapshot(2, 0.1, 9.9, 10, true)
	if got := Evaluate(snap, table); len(got) != 0 {
		t.Errorf("periodic: Evaluate = %v, want empty (nearest image is 0.2 apart)", got)
	}

	// Without periodicity the same geometry is a 9.8 stretch and breaks.
	snap.XPeriodic = false
	if got := Evaluate(snap, table); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("non-periodic: Evaluate = %v, want [0]", got)
	}
}

func TestEvaluate_SkipsBrokenAndUnbreakable(t *testing.T) {
	table := mustTable(t, "2 1.5\n")
	for _, bondType := range []int32{0, 1} {
		snap := twoAtomSnapshot(bondType, 0, 50, 1000, true)
		if got := Evaluate(snap, table); len(got) != 0 {
			t.Errorf("type %d: Evaluate = %v, want empty", bondType, got)
		}
	}
}

func TestEvaluate_UntrackedTypeNeverBreaks(t *testing.T) {
	table := mustTable(t, "2 1.5\n")
	snap := twoAtomSnapshot(9, 0, 50, 1000, true)
	if got := Evaluate(snap, table); len(got) != 0 {
		t.Errorf("Evaluate = %v, want empty (type 9 has no threshold)", got)
	}
}

func TestEvaluate_SkipsUnresolvedTags(t *testing.T) {
	table := mustTable(t, "2 1.5\n")
	snap := twoAtomSnapshot(2, 0, 50, 1000, true)
	snap.BondAtoms[0][1] = 999 // ghost atom not in this snapshot

	if got := Evaluate(snap, table); len(got) != 0 {
		t.Errorf("Evaluate = %v, want empty (unresolved tag is skipped)", got)
	}
}

func TestEvaluate_IgnoresZ(t *testing.T) {
	table := mustTable(t, "2 1.5\n")
	snap := twoAtomSnapshot(2, 0, 1.0, 100, true)
	snap.Positions[1][2] = 50 // planar model: z never enters the distance

	if got := Evaluate(snap, table); len(got) != 0 {
		t.Errorf("Evaluate = %v, want empty (z displacement ignored)", got)
	}
}

func TestEvaluate_EndToEndScenario(t *testing.T) {
	// Three bonds after relaxation: type 2 stretched to 1.6 (> 1.5, breaks),
	// type 1 at 5.0 (unbreakable, skipped), type 3 at 1.9 (< 2.0, survives).
	table := mustTable(t, "2 1.5\n3 2.0\n")
	snap := Snapshot{
		Positions: [][3]float64{
			{0, 0, 0}, {1.6, 0, 0},
			{10, 0, 0}, {15, 0, 0},
			{20, 0, 0}, {21.9, 0, 0},
		},
		Tags:      []int64{1, 2, 3, 4, 5, 6},
		BondTypes: []int32{2, 1, 3},
		BondAtoms: [][2]int64{{1, 2}, {3, 4}, {5, 6}},
		XPeriod:   1000,
		XPeriodic: true,
	}

	got := Evaluate(snap, table)
	if !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("Evaluate = %v, want [0]", got)
	}
}

func TestEvaluate_OrderIndependent(t *testing.T) {
	// Two overstretched bonds sharing an atom: both are marked in one pass
	// because positions are fixed for the duration of the evaluation.
	table := mustTable(t, "2 1.0\n3 1.0\n")
	snap := Snapshot{
		Positions: [][3]float64{{0, 0, 0}, {2, 0, 0}, {4, 0, 0}},
		Tags:      []int64{1, 2, 3},
		BondTypes: []int32{2, 3},
		BondAtoms: [][2]int64{{1, 2}, {2, 3}},
		XPeriod:   1000,
		XPeriodic: true,
	}

	got := Evaluate(snap, table)
	if !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("Evaluate = %v, want [0 1]", got)
	}
}
