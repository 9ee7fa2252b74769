package solver

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// SetupCommands builds the canonical setup sequence for a sheared spring
// network: 2D harmonic bond system, periodic in x, shrink-wrapped in y,
// with the bottom row pinned and the top row grouped for pulling.
func SetupCommands(dataFile string) []string {
	return []string{
		"units lj",
		"dimension 2",
		"boundary p s p",
		"atom_style bond",
		"bond_style harmonic",
		"pair_style none",
		"read_data " + dataFile,
		"group bottom_atoms type 2",
		"group top_atoms type 3",
		"group mobile_atoms type 1",
		"fix 1 bottom_atoms setforce 0.0 0.0 0.0",
		"thermo 1",
		"thermo_style custom step pe press pyy",
	}
}

// LoadScript reads an external setup script: one command per meaningful
// line, '#' full-line comments and blank lines skipped. Used in place of
// SetupCommands when the engine configuration differs from the built-in
// single-process defaults.
func LoadScript(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening setup script: %w", err)
	}
	defer f.Close()

	var cmds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmds = append(cmds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading setup script: %w", err)
	}
	if len(cmds) == 0 {
		return nil, fmt.Errorf("setup script %s contains no commands", path)
	}
	return cmds, nil
}

// DisplaceCommand moves a group rigidly by (dx, dy, dz) relative to its
// current position.
func DisplaceCommand(group string, dx, dy, dz float64) string {
	return fmt.Sprintf("displace_atoms %s move %g %g %g", group, dx, dy, dz)
}

// PinCommand holds a group's net force at zero under the given fix ID.
func PinCommand(fixID, group string) string {
	return fmt.Sprintf("fix %s %s setforce 0.0 0.0 0.0", fixID, group)
}

// UnpinCommand releases a fix.
func UnpinCommand(fixID string) string {
	return "unfix " + fixID
}

// MinimizeCommands builds the relax-to-minimum command pair.
func MinimizeCommands(style string, etol, ftol float64, maxIter, maxEval int) []string {
	return []string{
		"min_style " + style,
		fmt.Sprintf("minimize %g %g %d %d", etol, ftol, maxIter, maxEval),
	}
}
