// Package simulation provides a scenario harness for full fracture runs:
// generate a network, load it into the in-process engine, drive the strain
// schedule, and collect every step outcome for assertions.
package simulation

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/michaelsouza/springnet/internal/avalanche"
	"github.com/michaelsouza/springnet/internal/config"
	"github.com/michaelsouza/springnet/internal/engine"
	"github.com/michaelsouza/springnet/internal/logging"
	"github.com/michaelsouza/springnet/internal/network"
	"github.com/michaelsouza/springnet/internal/solver"
	"github.com/michaelsouza/springnet/internal/strain"
	"github.com/michaelsouza/springnet/internal/thresholds"
)

// Scenario defines one complete fracture experiment.
type Scenario struct {
	Name string

	// Network generation.
	Size       int
	Matrix     int
	BondLength float64
	Seed       int64

	// ThresholdOverride, when positive, replaces every generated breaking
	// length. Use this to force a guaranteed-elastic or guaranteed-
	// fracturing run regardless of the RNG.
	ThresholdOverride float64

	// Loading schedule.
	Steps     int
	Increment float64

	// MaxIterations bounds each avalanche; 0 keeps the unbounded default.
	MaxIterations int
}

// Outcome collects everything a scenario produced.
type Outcome struct {
	Cumulative int64
	Steps      []strain.StepResult
	Solver     solver.Solver
}

// Runner executes scenarios against a sandboxed working directory.
type Runner struct {
	t *testing.T
}

// NewRunner creates a simulation runner.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{t: t}
}

// Run executes the scenario and returns the collected results.
func (r *Runner) Run(sc Scenario) Outcome {
	r.t.Helper()

	net, err := network.Generate(network.Params{
		Size:       sc.Size,
		Matrix:     sc.Matrix,
		BondLength: sc.BondLength,
		Seed:       sc.Seed,
	})
	if err != nil {
		r.t.Fatalf("%s: generating network: %v", sc.Name, err)
	}
	if sc.ThresholdOverride > 0 {
		for i := range net.Thresholds {
			net.Thresholds[i].Length = sc.ThresholdOverride
		}
	}

	dir := r.t.TempDir()
	dataPath := filepath.Join(dir, "network.data")
	thresholdsPath := filepath.Join(dir, "thresholds.dat")
	r.writeFile(dataPath, net.WriteData)
	r.writeFile(thresholdsPath, net.WriteThresholds)

	table, err := thresholds.Load(thresholdsPath)
	if err != nil {
		r.t.Fatalf("%s: loading thresholds: %v", sc.Name, err)
	}

	eng := engine.New()
	for _, cmd := range solver.SetupCommands(dataPath) {
		if err := eng.Command(cmd); err != nil {
			r.t.Fatalf("%s: setup command failed: %v", sc.Name, err)
		}
	}
	r.t.Cleanup(func() { eng.Close() })

	cfg := config.Default()
	cfg.Schedule.Steps = sc.Steps
	cfg.Schedule.Increment = sc.Increment
	cfg.Avalanche.MaxIterations = sc.MaxIterations

	logger := logging.NewLogger("info", io.Discard)
	loop := avalanche.New(eng, table, cfg, logger, nil)
	sched := strain.New(eng, loop, cfg.Schedule, logger)

	var outcome Outcome
	sched.OnStep = func(ctx context.Context, res strain.StepResult) error {
		outcome.Steps = append(outcome.Steps, res)
		return nil
	}

	cumulative, err := sched.Run(context.Background())
	if err != nil {
		r.t.Fatalf("%s: run failed: %v", sc.Name, err)
	}
	outcome.Cumulative = cumulative
	outcome.Solver = eng
	return outcome
}

func (r *Runner) writeFile(path string, write func(io.Writer) error) {
	r.t.Helper()
	f, err := os.Create(path)
	if err != nil {
		r.t.Fatalf("creating %s: %v", path, err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		r.t.Fatalf("writing %s: %v", path, err)
	}
}
