// Package strain implements the outer loading loop: apply a displacement
// increment to the top boundary row, hold it, let the avalanche run out,
// release, repeat.
package strain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/michaelsouza/springnet/internal/avalanche"
	"github.com/michaelsouza/springnet/internal/config"
	"github.com/michaelsouza/springnet/internal/solver"
)

// TopGroup is the atom group receiving the strain increments.
const TopGroup = "top_atoms"

// pinFixID is the fix holding the top group during relaxation. Fix 1 is
// the permanent bottom-row pin installed at setup.
const pinFixID = "2"

// StepResult summarizes one strain step and its avalanche.
type StepResult struct {
	Step       int
	Broken     int
	Cumulative int64
	Iterations int
	Duration   time.Duration
	Events     []avalanche.BreakEvent
}

// Scheduler drives the strain-step loop against a live solver handle.
type Scheduler struct {
	solver   solver.Solver
	loop     *avalanche.Loop
	schedule config.ScheduleConfig
	logger   *slog.Logger

	// OnStep, when non-nil, observes every completed step (results
	// recording). An observer error is fatal to the run.
	OnStep func(ctx context.Context, res StepResult) error
}

// New creates a scheduler.
func New(s solver.Solver, loop *avalanche.Loop, schedule config.ScheduleConfig, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		solver:   s,
		loop:     loop,
		schedule: schedule,
		logger:   logger,
	}
}

// Run executes the full loading schedule and returns the cumulative broken
// bond count. Each step's outcome is accepted as-is: zero breaks is a
// normal elastic step, and any solver command failure aborts the whole run
// with no retry, since engine state after a failed command is undefined.
func (s *Scheduler) Run(ctx context.Context) (int64, error) {
	var cumulative int64

	for step := 0; step < s.schedule.Steps; step++ {
		stepStart := time.Now()
		s.logger.Info("strain step", "step", step+1, "total", s.schedule.Steps)

		// Cumulative displacement: relative to the current position.
		if err := s.solver.Command(solver.DisplaceCommand(TopGroup, 0, s.schedule.Increment, 0)); err != nil {
			return cumulative, fmt.Errorf("step %d: displacing top group: %w", step, err)
		}
		if err := s.solver.Command(solver.PinCommand(pinFixID, TopGroup)); err != nil {
			return cumulative, fmt.Errorf("step %d: pinning top group: %w", step, err)
		}

		res, err := s.loop.Run(ctx, step)
		if err != nil {
			return cumulative, err
		}
		cumulative += int64(res.TotalBroken)

		if err := s.solver.Command(solver.UnpinCommand(pinFixID)); err != nil {
			return cumulative, fmt.Errorf("step %d: releasing top group: %w", step, err)
		}

		stepRes := StepResult{
			Step:       step,
			Broken:     res.TotalBroken,
			Cumulative: cumulative,
			Iterations: res.Iterations,
			Duration:   time.Since(stepStart),
			Events:     res.Events,
		}
		if s.OnStep != nil {
			if err := s.OnStep(ctx, stepRes); err != nil {
				return cumulative, fmt.Errorf("step %d: recording results: %w", step, err)
			}
		}

		s.logger.Info("strain step finished",
			"step", step+1,
			"broken", res.TotalBroken,
			"cumulative", cumulative,
			"iterations", res.Iterations,
			"duration", stepRes.Duration)
	}

	return cumulative, nil
}
