// Package avalanche implements the inner relax/evaluate/break loop: after a
// strain increment, the network is relaxed, overstretched bonds are severed,
// and the cycle repeats until an iteration breaks nothing.
package avalanche

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/michaelsouza/springnet/internal/breakage"
	"github.com/michaelsouza/springnet/internal/config"
	"github.com/michaelsouza/springnet/internal/logging"
	"github.com/michaelsouza/springnet/internal/solver"
	"github.com/michaelsouza/springnet/internal/thresholds"
)

// ErrNotConverged is returned when a cascade exceeds the configured
// iteration safety cutoff.
var ErrNotConverged = errors.New("avalanche did not converge")

// BreakEvent records one severed bond for observers.
type BreakEvent struct {
	Iteration int
	BondIndex int
	BondType  int32
}

// Result summarizes one avalanche: the full relax/break sequence following
// a single strain increment.
type Result struct {
	// TotalBroken is the number of bonds severed during this avalanche.
	TotalBroken int

	// Iterations is the number of relaxations performed. An elastic step
	// that breaks nothing still performs exactly one.
	Iterations int

	// PerIteration holds the broken count of each iteration; the final
	// entry is always zero (the stabilizing pass).
	PerIteration []int

	// Events lists every severed bond in commit order.
	Events []BreakEvent
}

// Loop drives one avalanche at a time against a live solver handle.
type Loop struct {
	solver    solver.Solver
	table     *thresholds.Table
	solverCfg config.SolverConfig
	maxIter   int // 0 = unbounded
	logger    *slog.Logger
	trace     *logging.TraceLogger
}

// New creates an avalanche loop. The trace logger may be nil.
func New(s solver.Solver, table *thresholds.Table, cfg *config.Config, logger *slog.Logger, trace *logging.TraceLogger) *Loop {
	return &Loop{
		solver:    s,
		table:     table,
		solverCfg: cfg.Solver,
		maxIter:   cfg.Avalanche.MaxIterations,
		logger:    logger,
		trace:     trace,
	}
}

// Run performs relax/evaluate/break cycles until a pass breaks zero bonds,
// and returns the totals for this strain step. There is no iteration bound
// unless a safety cutoff was configured; each relaxation is individually
// bounded by the minimizer's own caps.
func (l *Loop) Run(ctx context.Context, step int) (Result, error) {
	var res Result

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if l.maxIter > 0 && res.Iterations >= l.maxIter {
			return res, fmt.Errorf("step %d: %w after %d iterations (%d bonds broken)",
				step, ErrNotConverged, res.Iterations, res.TotalBroken)
		}
		iter := res.Iterations

		// Relaxing.
		relaxStart := time.Now()
		for _, cmd := range solver.MinimizeCommands(l.solverCfg.MinStyle,
			l.solverCfg.EnergyTol, l.solverCfg.ForceTol,
			l.solverCfg.MaxIter, l.solverCfg.MaxEval) {
			if err := l.solver.Command(cmd); err != nil {
				return res, fmt.Errorf("step %d iteration %d: relaxing: %w", step, iter, err)
			}
		}
		l.logger.Debug("relaxation complete",
			"step", step, "iteration", iter, "duration", time.Since(relaxStart))

		// Evaluating: a fresh snapshot every iteration.
		evalStart := time.Now()
		snap, err := l.fetchSnapshot()
		if err != nil {
			return res, fmt.Errorf("step %d iteration %d: evaluating: %w", step, iter, err)
		}
		marked := breakage.Evaluate(snap, l.table)

		// Breaking: every commit lands before the next relaxation.
		for _, bond := range marked {
			bondType := snap.BondTypes[bond]
			if err := l.solver.SetBondType(bond, 0); err != nil {
				return res, fmt.Errorf("step %d iteration %d: breaking bond %d: %w", step, iter, bond, err)
			}
			res.Events = append(res.Events, BreakEvent{
				Iteration: iter,
				BondIndex: bond,
				BondType:  bondType,
			})
			l.trace.Log(map[string]any{
				"step":      step,
				"iteration": iter,
				"bond":      bond,
				"bond_type": bondType,
			})
		}

		res.Iterations++
		res.TotalBroken += len(marked)
		res.PerIteration = append(res.PerIteration, len(marked))
		l.logger.Info("avalanche iteration",
			"step", step, "iteration", iter,
			"broken", len(marked), "duration", time.Since(evalStart))

		if len(marked) == 0 {
			// Stable.
			return res, nil
		}
	}
}

// fetchSnapshot gathers the per-atom and per-bond arrays for one evaluation
// pass. Any missing array aborts the run; the error names every array that
// could not be obtained.
func (l *Loop) fetchSnapshot() (breakage.Snapshot, error) {
	var snap breakage.Snapshot
	var missing []string

	positions, err := l.solver.Positions()
	if err != nil {
		missing = append(missing, "positions")
	}
	tags, err := l.solver.Tags()
	if err != nil {
		missing = append(missing, "tags")
	}
	bondTypes, err := l.solver.BondTypes()
	if err != nil {
		missing = append(missing, "bond types")
	}
	bondAtoms, err := l.solver.BondAtoms()
	if err != nil {
		missing = append(missing, "bond atoms")
	}
	lo, hi, err := l.solver.Box()
	if err != nil {
		missing = append(missing, "box bounds")
	}

	if len(missing) > 0 {
		return snap, fmt.Errorf("missing %s: %w", strings.Join(missing, ", "), solver.ErrUnavailable)
	}

	snap.Positions = positions
	snap.Tags = tags
	snap.BondTypes = bondTypes
	snap.BondAtoms = bondAtoms
	snap.XPeriod = hi[0] - lo[0]
	snap.XPeriodic = l.solverCfg.XPeriodic()
	return snap, nil
}
