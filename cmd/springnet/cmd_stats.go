package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/michaelsouza/springnet/internal/results"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show recorded run statistics",
		Long: `Show statistics from a results database.

Without --run, lists all recorded runs. With --run, prints the avalanche
size distribution and totals for that run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			runID, _ := cmd.Flags().GetString("run")
			jsonOut, _ := cmd.Flags().GetBool("json")

			store, err := results.Open(dbPath)
			if err != nil {
				return fmt.Errorf("opening results store: %w", err)
			}
			defer store.Close()

			ctx := context.Background()

			if runID == "" {
				return listRuns(ctx, store, jsonOut)
			}
			return showRun(ctx, store, runID, jsonOut)
		},
	}

	cmd.Flags().String("db", "", "SQLite results file (required)")
	cmd.Flags().String("run", "", "Run ID to summarize")
	cmd.MarkFlagRequired("db")

	return cmd
}

func listRuns(ctx context.Context, store *results.Store, jsonOut bool) error {
	runs, err := store.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if jsonOut {
		json.NewEncoder(os.Stdout).Encode(map[string]any{
			"runs":  runs,
			"count": len(runs),
		})
		return nil
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	fmt.Printf("Recorded runs (%d):\n\n", len(runs))
	for _, r := range runs {
		status := "running"
		if r.FinishedAt != nil {
			status = fmt.Sprintf("finished, %d broken", r.TotalBroken)
		}
		fmt.Printf("  %s  %s  steps=%d inc=%g  (%s)\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Steps, r.Increment, status)
	}
	return nil
}

func showRun(ctx context.Context, store *results.Store, runID string, jsonOut bool) error {
	sum, err := store.Summarize(ctx, runID)
	if err != nil {
		return err
	}

	if jsonOut {
		sizes := make(map[string]int, len(sum.SizeCounts))
		for size, count := range sum.SizeCounts {
			sizes[fmt.Sprintf("%d", size)] = count
		}
		json.NewEncoder(os.Stdout).Encode(map[string]any{
			"run":            sum.Run.ID,
			"data":           sum.Run.DataFile,
			"thresholds":     sum.Run.ThresholdsFile,
			"steps_recorded": sum.StepsRecorded,
			"total_broken":   sum.TotalBroken,
			"max_avalanche":  sum.MaxAvalanche,
			"mean_avalanche": sum.MeanAvalanche,
			"size_counts":    sizes,
		})
		return nil
	}

	fmt.Printf("Run: %s\n", sum.Run.ID)
	fmt.Printf("  Data:       %s\n", sum.Run.DataFile)
	fmt.Printf("  Thresholds: %s\n", sum.Run.ThresholdsFile)
	fmt.Printf("  Started:    %s\n", sum.Run.StartedAt.Format(time.RFC3339))
	if sum.Run.FinishedAt != nil {
		fmt.Printf("  Finished:   %s\n", sum.Run.FinishedAt.Format(time.RFC3339))
	}
	fmt.Println()
	fmt.Printf("Steps recorded: %d\n", sum.StepsRecorded)
	fmt.Printf("Total broken:   %d\n", sum.TotalBroken)
	fmt.Printf("Max avalanche:  %d\n", sum.MaxAvalanche)
	fmt.Printf("Mean avalanche: %.2f\n", sum.MeanAvalanche)

	if len(sum.SizeCounts) > 0 {
		fmt.Println("\nAvalanche size distribution:")
		for _, size := range sum.Sizes() {
			fmt.Printf("  size %3d: %d\n", size, sum.SizeCounts[size])
		}
	}
	return nil
}
