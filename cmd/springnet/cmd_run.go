package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/michaelsouza/springnet/internal/avalanche"
	"github.com/michaelsouza/springnet/internal/config"
	"github.com/michaelsouza/springnet/internal/engine"
	"github.com/michaelsouza/springnet/internal/logging"
	"github.com/michaelsouza/springnet/internal/results"
	"github.com/michaelsouza/springnet/internal/solver"
	"github.com/michaelsouza/springnet/internal/strain"
	"github.com/michaelsouza/springnet/internal/thresholds"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a strain-controlled fracture simulation",
		Long: `Run a quasi-static fracture simulation over a spring network.

The network geometry comes from a LAMMPS-format data file and the
per-bond-type breaking lengths from a thresholds file. Each strain step
displaces the top boundary by the increment, relaxes to mechanical
equilibrium, and breaks every over-stretched bond until the avalanche
settles.

Example:
  springnet run --data N12_Lmat4.data --thresholds N12_Lmat4_breaking_thresholds.dat --steps 20 --increment 0.1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataFile, _ := cmd.Flags().GetString("data")
			thresholdsFile, _ := cmd.Flags().GetString("thresholds")
			setupScript, _ := cmd.Flags().GetString("setup")
			dbPath, _ := cmd.Flags().GetString("db")
			configPath, _ := cmd.Flags().GetString("config")
			tracePath, _ := cmd.Flags().GetString("trace")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("steps") {
				cfg.Schedule.Steps, _ = cmd.Flags().GetInt("steps")
			}
			if cmd.Flags().Changed("increment") {
				cfg.Schedule.Increment, _ = cmd.Flags().GetFloat64("increment")
			}
			if cmd.Flags().Changed("max-iterations") {
				cfg.Avalanche.MaxIterations, _ = cmd.Flags().GetInt("max-iterations")
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)
			trace := logging.NewTraceLogger(tracePath, cfg.Logging.Level)
			defer trace.Close()

			table, err := thresholds.Load(thresholdsFile)
			if err != nil {
				return fmt.Errorf("loading thresholds: %w", err)
			}

			setup := solver.SetupCommands(dataFile)
			if setupScript != "" {
				setup, err = solver.LoadScript(setupScript)
				if err != nil {
					return fmt.Errorf("loading setup script: %w", err)
				}
			}

			eng := engine.New()
			defer eng.Close()
			for _, c := range setup {
				if err := eng.Command(c); err != nil {
					return fmt.Errorf("setup: %w", err)
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			loop := avalanche.New(eng, table, cfg, logger, trace)
			sched := strain.New(eng, loop, cfg.Schedule, logger)

			var store *results.Store
			var runID string
			if dbPath != "" {
				store, err = results.Open(dbPath)
				if err != nil {
					return fmt.Errorf("opening results store: %w", err)
				}
				defer store.Close()

				runID, err = store.CreateRun(ctx, dataFile, thresholdsFile, cfg.Schedule.Steps, cfg.Schedule.Increment)
				if err != nil {
					return fmt.Errorf("creating run record: %w", err)
				}
				sched.OnStep = func(ctx context.Context, res strain.StepResult) error {
					return store.RecordStep(ctx, runID, stepRecord(res), eventRecords(res))
				}
			}

			start := time.Now()
			logger.Info("starting run",
				"data", dataFile,
				"thresholds", thresholdsFile,
				"atoms", eng.AtomCount(),
				"bonds", eng.BondCount(),
				"steps", cfg.Schedule.Steps,
				"increment", cfg.Schedule.Increment)

			cumulative, runErr := sched.Run(ctx)
			elapsed := time.Since(start)

			if store != nil {
				if err := store.FinishRun(ctx, runID, cumulative); err != nil {
					logger.Error("finishing run record", "error", err)
				}
			}
			if runErr != nil {
				return runErr
			}

			if jsonOut {
				out := map[string]any{
					"steps":        cfg.Schedule.Steps,
					"increment":    cfg.Schedule.Increment,
					"total_broken": cumulative,
					"duration":     elapsed.String(),
				}
				if runID != "" {
					out["run_id"] = runID
				}
				json.NewEncoder(os.Stdout).Encode(out)
			} else {
				fmt.Printf("Run complete: %d strain steps, %d bonds broken (%s)\n",
					cfg.Schedule.Steps, cumulative, elapsed.Round(time.Millisecond))
				if runID != "" {
					fmt.Printf("Recorded as run %s\n", runID)
				}
			}

			return nil
		},
	}

	cmd.Flags().String("data", "", "Network data file in LAMMPS format (required)")
	cmd.Flags().String("thresholds", "", "Breaking-thresholds file (required)")
	cmd.Flags().Int("steps", 10, "Number of strain steps")
	cmd.Flags().Float64("increment", 0.1, "Top-boundary y displacement per step")
	cmd.Flags().Int("max-iterations", 0, "Avalanche safety cutoff per step (0 = unbounded)")
	cmd.Flags().String("setup", "", "Custom setup script replacing the built-in commands")
	cmd.Flags().String("db", "", "SQLite file to record results to")
	cmd.Flags().String("config", "", "Config file (YAML)")
	cmd.Flags().String("trace", "springnet-trace.jsonl", "Break-event trace file (written at debug level and below)")
	cmd.Flags().String("log-level", "", "Log level: info, debug, or trace")
	cmd.MarkFlagRequired("data")
	cmd.MarkFlagRequired("thresholds")

	return cmd
}

func stepRecord(res strain.StepResult) results.StepRecord {
	return results.StepRecord{
		Step:       res.Step,
		Broken:     res.Broken,
		Cumulative: res.Cumulative,
		Iterations: res.Iterations,
		Duration:   res.Duration,
	}
}

func eventRecords(res strain.StepResult) []results.EventRecord {
	events := make([]results.EventRecord, 0, len(res.Events))
	for _, ev := range res.Events {
		events = append(events, results.EventRecord{
			Step:      res.Step,
			Iteration: ev.Iteration,
			BondIndex: ev.BondIndex,
			BondType:  int(ev.BondType),
		})
	}
	return events
}
