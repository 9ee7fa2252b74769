// Package solver defines the narrow boundary between the strain-step driver
// and the molecular-statics engine that relaxes the network. The driver
// issues one logical operation at a time and reads the engine's per-atom and
// per-bond arrays between relaxations; it never caches them across calls,
// since ownership and ordering can change after every relaxation.
package solver

import (
	"errors"
	"fmt"
)

// Solver is the live engine handle. Implementations hold the authoritative
// atom/bond state; all slices returned by the accessors are valid only until
// the next state-mutating call.
type Solver interface {
	// Command executes a single engine script command.
	Command(cmd string) error

	// Positions returns per-atom coordinates indexed by local atom slot.
	Positions() ([][3]float64, error)

	// Tags returns the global atom identity for each local slot. Tags are
	// stable across relaxations; local ordering is not.
	Tags() ([]int64, error)

	// BondTypes returns the current type of each bond. Type 0 marks a
	// broken bond, type 1 an unbreakable one.
	BondTypes() ([]int32, error)

	// BondAtoms returns the pair of global tags joined by each bond.
	BondAtoms() ([][2]int64, error)

	// Box returns the lower and upper simulation box bounds per axis.
	Box() (lo, hi [3]float64, err error)

	AtomCount() int
	BondCount() int

	// SetBondType commits a bond type change into the engine's live state.
	// Setting type 0 removes the bond from all future energy and force
	// contributions without deleting it.
	SetBondType(i int, t int32) error

	Close() error
}

// ErrUnavailable is wrapped when required per-atom or per-bond arrays could
// not be obtained from the engine. This indicates an unrecoverable mismatch
// between driver and engine state and is never retried.
var ErrUnavailable = errors.New("solver data unavailable")

// CommandError reports a script command the engine rejected. Engine state
// after a failed command is undefined, so the run aborts.
type CommandError struct {
	Cmd string
	Msg string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("solver command %q failed: %s", e.Cmd, e.Msg)
}
