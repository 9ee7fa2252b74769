// Package thresholds loads the per-bond-type breaking lengths that drive
// the fracture criterion. The file format matches the generator's output:
// one "<bondType> <breakLength>" pair per line, '#' starts a full-line
// comment, blank lines are ignored.
package thresholds

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNoEntries is returned when a thresholds file yields zero valid records.
var ErrNoEntries = errors.New("no valid threshold entries")

// Table maps a bond type to its breaking length. Bond types 0 (broken) and
// 1 (unbreakable) never appear as keys. Immutable after load.
type Table struct {
	breakLen map[int]float64
}

// Load reads a thresholds file from disk.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening thresholds file: %w", err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return t, nil
}

// Parse reads threshold records from r. Lines that do not parse as exactly
// an integer/float pair are skipped, matching the original driver's
// tolerance for stray formatting. Returns ErrNoEntries if nothing parses.
func Parse(r io.Reader) (*Table, error) {
	breakLen := make(map[int]float64)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var bondType int
		var length float64
		if n, err := fmt.Sscanf(line, "%d %g", &bondType, &length); err != nil || n != 2 {
			continue
		}
		breakLen[bondType] = length
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading thresholds: %w", err)
	}

	if len(breakLen) == 0 {
		return nil, ErrNoEntries
	}
	return &Table{breakLen: breakLen}, nil
}

// Lookup returns the breaking length for a bond type, and whether the type
// is tracked at all. Untracked types are never broken.
func (t *Table) Lookup(bondType int) (float64, bool) {
	length, ok := t.breakLen[bondType]
	return length, ok
}

// Len reports the number of tracked bond types.
func (t *Table) Len() int {
	return len(t.breakLen)
}
