package thresholds

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	input := `# Bond Type, Breaking Length
2 1.500000
3 2.000000

17 1.083241
`
	table, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if table.Len() != 3 {
		t.Errorf("Len() = %d, want 3", table.Len())
	}

	tests := []struct {
		bondType int
		want     float64
		tracked  bool
	}{
		{2, 1.5, true},
		{3, 2.0, true},
		{17, 1.083241, true},
		{4, 0, false},
		{0, 0, false},
		{1, 0, false},
	}
	for _, tt := range tests {
		got, ok := table.Lookup(tt.bondType)
		if ok != tt.tracked {
			t.Errorf("Lookup(%d) tracked = %v, want %v", tt.bondType, ok, tt.tracked)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("Lookup(%d) = %g, want %g", tt.bondType, got, tt.want)
		}
	}
}

func TestParse_SkipsMalformedLines(t *testing.T) {
	input := `2 1.5
not a record
3.14 backwards
4 2.25
`
	table, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (malformed lines skipped)", table.Len())
	}
}

func TestParse_CommentsOnlyIsError(t *testing.T) {
	input := `# just a header

# and another comment
`
	_, err := Parse(strings.NewReader(input))
	if !errors.Is(err, ErrNoEntries) {
		t.Errorf("Parse of comment-only input: err = %v, want ErrNoEntries", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thresholds.dat")
	if err := os.WriteFile(path, []byte("2 1.1\n3 1.2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.dat"))
	if err == nil {
		t.Fatal("Load of missing file succeeded, want error")
	}
}
