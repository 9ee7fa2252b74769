package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "springnet",
		Short: "Quasi-static fracture simulation for 2D spring networks",
		Long: `springnet drives quasi-static fracture simulations of two-dimensional
spring networks under uniaxial strain.

Each strain step displaces the top boundary, relaxes the network to
mechanical equilibrium, and breaks every bond stretched past its
threshold, repeating until the avalanche settles. Results can be
recorded to SQLite for later analysis.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	// Add subcommands
	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newGenerateCmd(),
		newStatsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]string{"version": version})
			} else {
				fmt.Printf("springnet version %s\n", version)
			}
		},
	}
}
