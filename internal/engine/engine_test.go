package engine

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/michaelsouza/springnet/internal/solver"
)

// writeTestData writes a minimal data file: atoms as (tag, type, x, y),
// bonds as (type, a, b), with unit-stiffness rest-length-1 coefficients for
// every referenced bond type.
func writeTestData(t *testing.T, atoms [][4]float64, bonds [][3]int, lo, hi [3]float64) string {
	t.Helper()

	types := map[int]bool{}
	for _, b := range bonds {
		if b[0] > 0 {
			types[b[0]] = true
		}
	}
	maxType := 1
	for typ := range types {
		if typ > maxType {
			maxType = typ
		}
	}

	content := fmt.Sprintf("LAMMPS data file for test network\n\n%d atoms\n%d bonds\n\n3 atom types\n%d bond types\n\n",
		len(atoms), len(bonds), maxType)
	content += fmt.Sprintf("%g %g xlo xhi\n%g %g ylo yhi\n%g %g zlo zhi\n\n",
		lo[0], hi[0], lo[1], hi[1], lo[2], hi[2])
	content += "Masses\n\n1 1.0\n2 1.0\n3 1.0\n\nBond Coeffs\n\n"
	for typ := 1; typ <= maxType; typ++ {
		content += fmt.Sprintf("%d 1.0 1.0\n", typ)
	}
	content += "\nAtoms # id molecule-id type x y z\n\n"
	for i, a := range atoms {
		content += fmt.Sprintf("%d 1 %d %g %g 0.0\n", i+1, int(a[0]), a[1], a[2])
	}
	content += "\nBonds # id type p1 p2\n\n"
	for i, b := range bonds {
		content += fmt.Sprintf("%d %d %d %d\n", i+1, b[0], b[1], b[2])
	}

	path := filepath.Join(t.TempDir(), "test.data")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// atoms: [4]float64 is (type, x, y, unused)
func setupEngine(t *testing.T, atoms [][4]float64, bonds [][3]int, lo, hi [3]float64) *Engine {
	t.Helper()
	path := writeTestData(t, atoms, bonds, lo, hi)

	e := New()
	cmds := []string{
		"units lj",
		"dimension 2",
		"boundary p s p",
		"atom_style bond",
		"bond_style harmonic",
		"pair_style none",
		"read_data " + path,
	}
	for _, cmd := range cmds {
		if err := e.Command(cmd); err != nil {
			t.Fatalf("setup command %q failed: %v", cmd, err)
		}
	}
	return e
}

func TestAccessorsBeforeReadData(t *testing.T) {
	e := New()
	if _, err := e.Positions(); !errors.Is(err, solver.ErrUnavailable) {
		t.Errorf("Positions before read_data: err = %v, want ErrUnavailable", err)
	}
	if _, err := e.BondTypes(); !errors.Is(err, solver.ErrUnavailable) {
		t.Errorf("BondTypes before read_data: err = %v, want ErrUnavailable", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	e := New()
	err := e.Command("run 1000")
	var cmdErr *solver.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("unknown command: err = %v, want CommandError", err)
	}
}

func TestReadData(t *testing.T) {
	e := setupEngine(t,
		[][4]float64{{2, 0, 0}, {1, 1, 0}, {3, 2, 0}},
		[][3]int{{1, 1, 2}, {2, 2, 3}},
		[3]float64{-1, -1, -1}, [3]float64{3, 1, 1})

	if e.AtomCount() != 3 || e.BondCount() != 2 {
		t.Fatalf("counts = %d atoms, %d bonds; want 3, 2", e.AtomCount(), e.BondCount())
	}

	tags, err := e.Tags()
	if err != nil {
		t.Fatal(err)
	}
	if tags[0] != 1 || tags[2] != 3 {
		t.Errorf("tags = %v", tags)
	}

	bondTypes, err := e.BondTypes()
	if err != nil {
		t.Fatal(err)
	}
	if bondTypes[0] != 1 || bondTypes[1] != 2 {
		t.Errorf("bond types = %v", bondTypes)
	}

	lo, hi, err := e.Box()
	if err != nil {
		t.Fatal(err)
	}
	if lo[0] != -1 || hi[0] != 3 {
		t.Errorf("x bounds = %g..%g, want -1..3", lo[0], hi[0])
	}
}

func TestBox_ShrinkWrappedY(t *testing.T) {
	e := setupEngine(t,
		[][4]float64{{1, 0, -2}, {1, 0, 5}},
		nil,
		[3]float64{-1, -1, -1}, [3]float64{1, 1, 1})

	lo, hi, err := e.Box()
	if err != nil {
		t.Fatal(err)
	}
	if lo[1] != -2 || hi[1] != 5 {
		t.Errorf("shrink-wrapped y bounds = %g..%g, want -2..5", lo[1], hi[1])
	}
}

func TestGroupAndDisplace(t *testing.T) {
	e := setupEngine(t,
		[][4]float64{{2, 0, 0}, {1, 1, 0}, {3, 2, 0}},
		nil,
		[3]float64{-1, -1, -1}, [3]float64{3, 1, 1})

	if err := e.Command("group top_atoms type 3"); err != nil {
		t.Fatal(err)
	}
	if err := e.Command("displace_atoms top_atoms move 0 0.5 0"); err != nil {
		t.Fatal(err)
	}

	pos, err := e.Positions()
	if err != nil {
		t.Fatal(err)
	}
	if pos[2][1] != 0.5 {
		t.Errorf("top atom y = %g, want 0.5", pos[2][1])
	}
	if pos[0][1] != 0 || pos[1][1] != 0 {
		t.Errorf("other atoms moved: %v", pos)
	}
}

func TestDisplace_UnknownGroup(t *testing.T) {
	e := setupEngine(t, [][4]float64{{1, 0, 0}}, nil,
		[3]float64{-1, -1, -1}, [3]float64{1, 1, 1})
	if err := e.Command("displace_atoms nobody move 0 1 0"); err == nil {
		t.Error("displace of unknown group succeeded, want error")
	}
}

func TestFixUnfix(t *testing.T) {
	e := setupEngine(t, [][4]float64{{2, 0, 0}}, nil,
		[3]float64{-1, -1, -1}, [3]float64{1, 1, 1})

	if err := e.Command("group bottom_atoms type 2"); err != nil {
		t.Fatal(err)
	}
	if err := e.Command("fix 1 bottom_atoms setforce 0.0 0.0 0.0"); err != nil {
		t.Fatal(err)
	}
	if err := e.Command("unfix 1"); err != nil {
		t.Fatal(err)
	}
	if err := e.Command("unfix 1"); err == nil {
		t.Error("double unfix succeeded, want error")
	}
}

func TestMinimize_RelaxesStretchedBond(t *testing.T) {
	// Two mobile atoms 2.0 apart with rest length 1.0.
	e := setupEngine(t,
		[][4]float64{{1, 0, 0}, {1, 2, 0}},
		[][3]int{{2, 1, 2}},
		[3]float64{-10, -10, -1}, [3]float64{10, 10, 1})

	if err := e.Command("minimize 1.0e-8 1.0e-8 1000 10000"); err != nil {
		t.Fatal(err)
	}

	pos, _ := e.Positions()
	dist := math.Abs(pos[0][0] - pos[1][0])
	if math.Abs(dist-1.0) > 1e-3 {
		t.Errorf("post-relaxation distance = %g, want ~1.0", dist)
	}
}

func TestMinimize_PinnedAtomsStayPut(t *testing.T) {
	e := setupEngine(t,
		[][4]float64{{2, 0, 0}, {2, 2, 0}},
		[][3]int{{2, 1, 2}},
		[3]float64{-10, -10, -1}, [3]float64{10, 10, 1})

	if err := e.Command("group bottom_atoms type 2"); err != nil {
		t.Fatal(err)
	}
	if err := e.Command("fix 1 bottom_atoms setforce 0.0 0.0 0.0"); err != nil {
		t.Fatal(err)
	}
	if err := e.Command("minimize 1.0e-8 1.0e-8 1000 10000"); err != nil {
		t.Fatal(err)
	}

	pos, _ := e.Positions()
	if pos[0][0] != 0 || pos[1][0] != 2 {
		t.Errorf("pinned atoms moved: %v", pos)
	}
}

func TestMinimize_BrokenBondExertsNoForce(t *testing.T) {
	e := setupEngine(t,
		[][4]float64{{1, 0, 0}, {1, 2, 0}},
		[][3]int{{2, 1, 2}},
		[3]float64{-10, -10, -1}, [3]float64{10, 10, 1})

	if err := e.SetBondType(0, 0); err != nil {
		t.Fatal(err)
	}
	if err := e.Command("minimize 1.0e-8 1.0e-8 1000 10000"); err != nil {
		t.Fatal(err)
	}

	pos, _ := e.Positions()
	if pos[0][0] != 0 || pos[1][0] != 2 {
		t.Errorf("atoms moved despite broken bond: %v", pos)
	}
}

func TestMinimize_PeriodicImage(t *testing.T) {
	// Atoms at x=0.5 and x=9.5 in a 10-wide periodic box, bonded with rest
	// length 1.0: the nearest image separation is already 1.0, so the
	// configuration is at equilibrium and must not move.
	e := setupEngine(t,
		[][4]float64{{1, 0.5, 0}, {1, 9.5, 0}},
		[][3]int{{2, 1, 2}},
		[3]float64{0, -10, -1}, [3]float64{10, 10, 1})

	if err := e.Command("minimize 1.0e-8 1.0e-8 1000 10000"); err != nil {
		t.Fatal(err)
	}

	pos, _ := e.Positions()
	if math.Abs(pos[0][0]-0.5) > 1e-6 || math.Abs(pos[1][0]-9.5) > 1e-6 {
		t.Errorf("atoms at equilibrium across the boundary moved: %v", pos)
	}
}

func TestSetBondType_OutOfRange(t *testing.T) {
	e := setupEngine(t, [][4]float64{{1, 0, 0}}, nil,
		[3]float64{-1, -1, -1}, [3]float64{1, 1, 1})
	if err := e.SetBondType(5, 0); err == nil {
		t.Error("SetBondType out of range succeeded, want error")
	}
}
