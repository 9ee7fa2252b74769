package solver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupCommands(t *testing.T) {
	cmds := SetupCommands("network.data")

	want := []string{
		"units lj",
		"boundary p s p",
		"read_data network.data",
		"group top_atoms type 3",
		"fix 1 bottom_atoms setforce 0.0 0.0 0.0",
	}
	joined := strings.Join(cmds, "\n")
	for _, w := range want {
		if !strings.Contains(joined, w) {
			t.Errorf("SetupCommands missing %q", w)
		}
	}
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setup.in")
	content := `# custom engine setup
units lj
dimension 2

read_data net.data
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cmds, err := LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript failed: %v", err)
	}
	want := []string{"units lj", "dimension 2", "read_data net.data"}
	if len(cmds) != len(want) {
		t.Fatalf("got %d commands, want %d: %v", len(cmds), len(want), cmds)
	}
	for i := range want {
		if cmds[i] != want[i] {
			t.Errorf("cmds[%d] = %q, want %q", i, cmds[i], want[i])
		}
	}
}

func TestLoadScript_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.in")
	if err := os.WriteFile(path, []byte("# nothing here\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScript(path); err == nil {
		t.Error("LoadScript of comment-only script succeeded, want error")
	}
}

func TestCommandBuilders(t *testing.T) {
	if got := DisplaceCommand("top_atoms", 0, 0.1, 0); got != "displace_atoms top_atoms move 0 0.1 0" {
		t.Errorf("DisplaceCommand = %q", got)
	}
	if got := PinCommand("2", "top_atoms"); got != "fix 2 top_atoms setforce 0.0 0.0 0.0" {
		t.Errorf("PinCommand = %q", got)
	}
	if got := UnpinCommand("2"); got != "unfix 2" {
		t.Errorf("UnpinCommand = %q", got)
	}

	cmds := MinimizeCommands("cg", 1e-5, 1e-7, 1000, 10000)
	if cmds[0] != "min_style cg" {
		t.Errorf("MinimizeCommands[0] = %q", cmds[0])
	}
	if cmds[1] != "minimize 1e-05 1e-07 1000 10000" {
		t.Errorf("MinimizeCommands[1] = %q", cmds[1])
	}
}
