package network

import (
	"bufio"
	"fmt"
	"io"
	"math"
)

// boxBuffer pads the simulation box around the outermost atoms.
const boxBuffer = 1.0

// WriteData writes the network as a LAMMPS data file: unit masses, unit
// stiffness, rest length l0 for every bond type.
func (n *Network) WriteData(w io.Writer) error {
	bw := bufio.NewWriter(w)

	xlo, xhi := math.Inf(1), math.Inf(-1)
	ylo, yhi := math.Inf(1), math.Inf(-1)
	for _, node := range n.Nodes {
		xlo = math.Min(xlo, node.X)
		xhi = math.Max(xhi, node.X)
		ylo = math.Min(ylo, node.Y)
		yhi = math.Max(yhi, node.Y)
	}

	numBondTypes := 1 + len(n.Thresholds)

	fmt.Fprintf(bw, "LAMMPS data file for spring network (N=%d)\n\n", n.Size)
	fmt.Fprintf(bw, "%d atoms\n%d bonds\n\n", len(n.Nodes), len(n.Bonds))
	fmt.Fprintf(bw, "3 atom types\n%d bond types\n\n", numBondTypes)
	fmt.Fprintf(bw, "%.6f %.6f xlo xhi\n", xlo-boxBuffer, xhi+boxBuffer)
	fmt.Fprintf(bw, "%.6f %.6f ylo yhi\n", ylo-boxBuffer, yhi+boxBuffer)
	fmt.Fprintf(bw, "%.6f %.6f zlo zhi\n\n", -1.0, 1.0)

	fmt.Fprintf(bw, "Masses\n\n1 1.0\n2 1.0\n3 1.0\n\n")

	fmt.Fprintf(bw, "Bond Coeffs\n\n")
	for t := 1; t <= numBondTypes; t++ {
		fmt.Fprintf(bw, "%d 1.0 %g\n", t, n.BondLength)
	}
	bw.WriteString("\n")

	fmt.Fprintf(bw, "Atoms # id molecule-id type x y z\n\n")
	for _, node := range n.Nodes {
		fmt.Fprintf(bw, "%d 1 %d %.6f %.6f 0.0\n", node.ID+1, node.Type, node.X, node.Y)
	}
	bw.WriteString("\n")

	fmt.Fprintf(bw, "Bonds # id type p1 p2\n\n")
	for i, b := range n.Bonds {
		fmt.Fprintf(bw, "%d %d %d %d\n", i+1, b.Type, b.A+1, b.B+1)
	}

	return bw.Flush()
}

// WriteThresholds writes the breaking-length table in the format the
// thresholds loader reads back.
func (n *Network) WriteThresholds(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# Bond Type, Breaking Length\n")
	for _, th := range n.Thresholds {
		fmt.Fprintf(bw, "%d %.6f\n", th.Type, th.Length)
	}

	return bw.Flush()
}
