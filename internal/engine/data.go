package engine

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Atom is one particle of the network.
type Atom struct {
	Tag  int64 // global identity from the data file
	Mol  int
	Type int
	Pos  [3]float64
}

// Bond joins two atoms by their global tags.
type Bond struct {
	Type int32
	A, B int64
}

// BondCoeff holds the harmonic parameters for one bond type:
// E = K * (r - R0)^2.
type BondCoeff struct {
	K  float64
	R0 float64
}

// dataFile is the parsed content of a LAMMPS-format data file.
type dataFile struct {
	atoms  []Atom
	bonds  []Bond
	coeffs map[int32]BondCoeff
	lo, hi [3]float64
}

// readDataFile parses the subset of the LAMMPS data format the network
// generator emits: header counts, box bounds, Masses, Bond Coeffs, Atoms
// (id molecule-id type x y z) and Bonds (id type a b). Unrecognized
// sections are skipped.
func readDataFile(path string) (*dataFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening data file: %w", err)
	}
	defer f.Close()

	d := &dataFile{coeffs: make(map[int32]BondCoeff)}
	var nAtoms, nBonds int

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	// First line is a free-form title.
	if !scanner.Scan() {
		return nil, fmt.Errorf("data file %s is empty", path)
	}

	section := ""
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		if line == "" {
			continue
		}

		if name, ok := sectionName(line); ok {
			section = name
			continue
		}

		var err error
		switch section {
		case "":
			err = parseHeaderLine(d, line, &nAtoms, &nBonds)
		case "Masses":
			// Unit masses throughout; parsed only to validate shape.
			var id int
			var m float64
			_, err = fmt.Sscanf(line, "%d %g", &id, &m)
		case "Bond Coeffs":
			var id int32
			var k, r0 float64
			if _, err = fmt.Sscanf(line, "%d %g %g", &id, &k, &r0); err == nil {
				d.coeffs[id] = BondCoeff{K: k, R0: r0}
			}
		case "Atoms":
			var a Atom
			if _, err = fmt.Sscanf(line, "%d %d %d %g %g %g",
				&a.Tag, &a.Mol, &a.Type, &a.Pos[0], &a.Pos[1], &a.Pos[2]); err == nil {
				d.atoms = append(d.atoms, a)
			}
		case "Bonds":
			var id int
			var b Bond
			if _, err = fmt.Sscanf(line, "%d %d %d %d", &id, &b.Type, &b.A, &b.B); err == nil {
				d.bonds = append(d.bonds, b)
			}
		default:
			// Unknown section body, skip.
		}
		if err != nil {
			return nil, fmt.Errorf("%s:%d: parsing %s entry %q: %w", path, lineNo, sectionLabel(section), line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading data file: %w", err)
	}

	if len(d.atoms) != nAtoms {
		return nil, fmt.Errorf("data file %s declares %d atoms, found %d", path, nAtoms, len(d.atoms))
	}
	if len(d.bonds) != nBonds {
		return nil, fmt.Errorf("data file %s declares %d bonds, found %d", path, nBonds, len(d.bonds))
	}
	return d, nil
}

func parseHeaderLine(d *dataFile, line string, nAtoms, nBonds *int) error {
	fields := strings.Fields(line)
	switch {
	case len(fields) == 2 && fields[1] == "atoms":
		return scanInt(fields[0], nAtoms)
	case len(fields) == 2 && fields[1] == "bonds":
		return scanInt(fields[0], nBonds)
	case len(fields) == 3 && fields[1] == "atom" && fields[2] == "types":
		return nil
	case len(fields) == 3 && fields[1] == "bond" && fields[2] == "types":
		return nil
	case len(fields) == 4 && fields[2] == "xlo" && fields[3] == "xhi":
		return scanBounds(fields, &d.lo[0], &d.hi[0])
	case len(fields) == 4 && fields[2] == "ylo" && fields[3] == "yhi":
		return scanBounds(fields, &d.lo[1], &d.hi[1])
	case len(fields) == 4 && fields[2] == "zlo" && fields[3] == "zhi":
		return scanBounds(fields, &d.lo[2], &d.hi[2])
	}
	return fmt.Errorf("unrecognized header line")
}

func scanInt(s string, out *int) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*out = n
	return nil
}

func scanBounds(fields []string, lo, hi *float64) error {
	l, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return err
	}
	h, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return err
	}
	*lo, *hi = l, h
	return nil
}

// sectionName reports whether a line introduces a body section.
func sectionName(line string) (string, bool) {
	switch line {
	case "Masses", "Bond Coeffs", "Atoms", "Bonds", "Velocities", "Pair Coeffs":
		return line, true
	}
	return "", false
}

func sectionLabel(section string) string {
	if section == "" {
		return "header"
	}
	return section
}

// stripComment removes a trailing '#' comment and surrounding whitespace.
func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}
