// Package engine provides an in-process molecular-statics engine for 2D
// harmonic spring networks. It implements the solver.Solver boundary and
// understands exactly the script vocabulary the strain driver emits, so a
// full fracture run works without an external minimizer.
package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/michaelsouza/springnet/internal/solver"
)

// Engine holds the authoritative atom/bond state for one run. It is not
// safe for concurrent use; the driver issues one operation at a time.
type Engine struct {
	units     string
	dimension int
	boundary  [3]string
	atomStyle string
	bondStyle string
	pairStyle string
	minStyle  string

	atoms  []Atom
	bonds  []Bond
	coeffs map[int32]BondCoeff
	lo, hi [3]float64

	groups map[string][]int  // group name -> atom indices
	pins   map[string]string // fix id -> pinned group name

	tagIndex map[int64]int
}

// New creates an engine with no state loaded. A read_data command must run
// before any accessor is usable.
func New() *Engine {
	return &Engine{
		dimension: 3,
		boundary:  [3]string{"p", "p", "p"},
		minStyle:  "cg",
		groups:    make(map[string][]int),
		pins:      make(map[string]string),
	}
}

// Command executes a single script command.
func (e *Engine) Command(cmd string) error {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return e.fail(cmd, "empty command")
	}

	switch fields[0] {
	case "units":
		if len(fields) != 2 {
			return e.fail(cmd, "expected: units <style>")
		}
		e.units = fields[1]
	case "dimension":
		n, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil || (n != 2 && n != 3) {
			return e.fail(cmd, "dimension must be 2 or 3")
		}
		e.dimension = n
	case "boundary":
		if len(fields) != 4 {
			return e.fail(cmd, "expected: boundary <x> <y> <z>")
		}
		copy(e.boundary[:], fields[1:])
	case "atom_style":
		if len(fields) != 2 || fields[1] != "bond" {
			return e.fail(cmd, "only atom_style bond is supported")
		}
		e.atomStyle = fields[1]
	case "bond_style":
		if len(fields) != 2 || fields[1] != "harmonic" {
			return e.fail(cmd, "only bond_style harmonic is supported")
		}
		e.bondStyle = fields[1]
	case "pair_style":
		if len(fields) != 2 || fields[1] != "none" {
			return e.fail(cmd, "only pair_style none is supported")
		}
		e.pairStyle = fields[1]
	case "read_data":
		if len(fields) != 2 {
			return e.fail(cmd, "expected: read_data <file>")
		}
		return e.readData(cmd, fields[1])
	case "group":
		return e.defineGroup(cmd, fields)
	case "fix":
		return e.addFix(cmd, fields)
	case "unfix":
		if len(fields) != 2 {
			return e.fail(cmd, "expected: unfix <id>")
		}
		if _, ok := e.pins[fields[1]]; !ok {
			return e.fail(cmd, "unknown fix id "+fields[1])
		}
		delete(e.pins, fields[1])
	case "thermo", "thermo_style":
		// Output cadence settings; nothing to do in-process.
	case "min_style":
		if len(fields) != 2 {
			return e.fail(cmd, "expected: min_style <style>")
		}
		e.minStyle = fields[1]
	case "minimize":
		return e.runMinimize(cmd, fields)
	case "displace_atoms":
		return e.displaceAtoms(cmd, fields)
	default:
		return e.fail(cmd, "unknown command "+fields[0])
	}
	return nil
}

func (e *Engine) fail(cmd, msg string) error {
	return &solver.CommandError{Cmd: cmd, Msg: msg}
}

func (e *Engine) readData(cmd, path string) error {
	d, err := readDataFile(path)
	if err != nil {
		return e.fail(cmd, err.Error())
	}
	e.atoms = d.atoms
	e.bonds = d.bonds
	e.coeffs = d.coeffs
	e.lo = d.lo
	e.hi = d.hi

	e.tagIndex = make(map[int64]int, len(e.atoms))
	for i, a := range e.atoms {
		e.tagIndex[a.Tag] = i
	}

	for _, b := range e.bonds {
		if b.Type > 0 {
			if _, ok := e.coeffs[b.Type]; !ok {
				return e.fail(cmd, fmt.Sprintf("bond type %d has no coefficients", b.Type))
			}
		}
	}
	return nil
}

func (e *Engine) defineGroup(cmd string, fields []string) error {
	if len(fields) < 4 || fields[2] != "type" {
		return e.fail(cmd, "expected: group <name> type <t>...")
	}
	if e.atoms == nil {
		return e.fail(cmd, "no data loaded")
	}

	want := make(map[int]bool, len(fields)-3)
	for _, f := range fields[3:] {
		t, err := strconv.Atoi(f)
		if err != nil {
			return e.fail(cmd, "bad atom type "+f)
		}
		want[t] = true
	}

	var members []int
	for i, a := range e.atoms {
		if want[a.Type] {
			members = append(members, i)
		}
	}
	e.groups[fields[1]] = members
	return nil
}

func (e *Engine) addFix(cmd string, fields []string) error {
	// Only "fix <id> <group> setforce 0 0 0" pins are supported; that is
	// the whole fix surface the driver uses.
	if len(fields) != 7 || fields[3] != "setforce" {
		return e.fail(cmd, "expected: fix <id> <group> setforce 0 0 0")
	}
	for _, f := range fields[4:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || v != 0 {
			return e.fail(cmd, "only setforce 0 0 0 is supported")
		}
	}
	group := fields[2]
	if _, ok := e.groups[group]; !ok {
		return e.fail(cmd, "unknown group "+group)
	}
	e.pins[fields[1]] = group
	return nil
}

func (e *Engine) displaceAtoms(cmd string, fields []string) error {
	if len(fields) != 6 || fields[2] != "move" {
		return e.fail(cmd, "expected: displace_atoms <group> move <dx> <dy> <dz>")
	}
	members, ok := e.groups[fields[1]]
	if !ok {
		return e.fail(cmd, "unknown group "+fields[1])
	}

	var d [3]float64
	for i, f := range fields[3:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return e.fail(cmd, "bad displacement "+f)
		}
		d[i] = v
	}

	for _, i := range members {
		e.atoms[i].Pos[0] += d[0]
		e.atoms[i].Pos[1] += d[1]
		e.atoms[i].Pos[2] += d[2]
	}
	return nil
}

func (e *Engine) runMinimize(cmd string, fields []string) error {
	if len(fields) != 5 {
		return e.fail(cmd, "expected: minimize <etol> <ftol> <maxiter> <maxeval>")
	}
	if e.atoms == nil {
		return e.fail(cmd, "no data loaded")
	}

	etol, err1 := strconv.ParseFloat(fields[1], 64)
	ftol, err2 := strconv.ParseFloat(fields[2], 64)
	maxIter, err3 := strconv.Atoi(fields[3])
	maxEval, err4 := strconv.Atoi(fields[4])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return e.fail(cmd, "bad minimize arguments")
	}

	e.minimize(etol, ftol, maxIter, maxEval)
	return nil
}

// pinnedSet returns the indices of all atoms currently held by a setforce
// pin.
func (e *Engine) pinnedSet() map[int]bool {
	pinned := make(map[int]bool)
	for _, group := range e.pins {
		for _, i := range e.groups[group] {
			pinned[i] = true
		}
	}
	return pinned
}

// xPeriodic reports whether the x axis wraps.
func (e *Engine) xPeriodic() bool {
	return e.boundary[0] == "p"
}

// Positions implements solver.Solver.
func (e *Engine) Positions() ([][3]float64, error) {
	if e.atoms == nil {
		return nil, fmt.Errorf("positions: %w", solver.ErrUnavailable)
	}
	out := make([][3]float64, len(e.atoms))
	for i, a := range e.atoms {
		out[i] = a.Pos
	}
	return out, nil
}

// Tags implements solver.Solver.
func (e *Engine) Tags() ([]int64, error) {
	if e.atoms == nil {
		return nil, fmt.Errorf("tags: %w", solver.ErrUnavailable)
	}
	out := make([]int64, len(e.atoms))
	for i, a := range e.atoms {
		out[i] = a.Tag
	}
	return out, nil
}

// BondTypes implements solver.Solver.
func (e *Engine) BondTypes() ([]int32, error) {
	if e.bonds == nil {
		return nil, fmt.Errorf("bond types: %w", solver.ErrUnavailable)
	}
	out := make([]int32, len(e.bonds))
	for i, b := range e.bonds {
		out[i] = b.Type
	}
	return out, nil
}

// BondAtoms implements solver.Solver.
func (e *Engine) BondAtoms() ([][2]int64, error) {
	if e.bonds == nil {
		return nil, fmt.Errorf("bond atoms: %w", solver.ErrUnavailable)
	}
	out := make([][2]int64, len(e.bonds))
	for i, b := range e.bonds {
		out[i] = [2]int64{b.A, b.B}
	}
	return out, nil
}

// Box implements solver.Solver. Shrink-wrapped axes follow the current atom
// extent; periodic and fixed axes keep the data-file bounds.
func (e *Engine) Box() (lo, hi [3]float64, err error) {
	if e.atoms == nil {
		return lo, hi, fmt.Errorf("box bounds: %w", solver.ErrUnavailable)
	}
	lo, hi = e.lo, e.hi
	for axis := 0; axis < 3; axis++ {
		if e.boundary[axis] != "s" || len(e.atoms) == 0 {
			continue
		}
		min, max := e.atoms[0].Pos[axis], e.atoms[0].Pos[axis]
		for _, a := range e.atoms[1:] {
			if a.Pos[axis] < min {
				min = a.Pos[axis]
			}
			if a.Pos[axis] > max {
				max = a.Pos[axis]
			}
		}
		lo[axis], hi[axis] = min, max
	}
	return lo, hi, nil
}

// AtomCount implements solver.Solver.
func (e *Engine) AtomCount() int { return len(e.atoms) }

// BondCount implements solver.Solver.
func (e *Engine) BondCount() int { return len(e.bonds) }

// SetBondType implements solver.Solver.
func (e *Engine) SetBondType(i int, t int32) error {
	if e.bonds == nil {
		return fmt.Errorf("bond types: %w", solver.ErrUnavailable)
	}
	if i < 0 || i >= len(e.bonds) {
		return fmt.Errorf("bond index %d out of range [0,%d)", i, len(e.bonds))
	}
	e.bonds[i].Type = t
	return nil
}

// Close implements solver.Solver.
func (e *Engine) Close() error {
	e.atoms = nil
	e.bonds = nil
	e.groups = make(map[string][]int)
	e.pins = make(map[string]string)
	return nil
}
