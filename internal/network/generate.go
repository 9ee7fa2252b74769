// Package network generates triangular spring-network topologies for
// fracture runs: a lattice of unit springs with an unbreakable skeleton
// every few rows and columns, where each breakable bond carries a unique
// type and a random breaking length.
package network

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Params controls network generation.
type Params struct {
	// Size is the lattice dimension (Size x Size nodes).
	Size int

	// Matrix is the spacing of the unbreakable skeleton: every Matrix-th
	// row and column is reinforced. 0 disables the skeleton.
	Matrix int

	// BondLength is the rest length l0 of every spring.
	BondLength float64

	// Seed seeds the threshold RNG so networks are reproducible.
	Seed int64
}

// Atom type assignments: the bottom row is pinned, the top row is pulled.
const (
	AtomMobile = 1
	AtomBottom = 2
	AtomTop    = 3
)

// Node is one lattice site.
type Node struct {
	ID       int // zero-based; written to the data file as ID+1
	Row, Col int
	X, Y     float64
	Type     int
}

// Bond joins two nodes. Unbreakable bonds share type 1; each breakable
// bond gets its own type >= 2 so it can carry an individual threshold.
type Bond struct {
	Type int
	A, B int // node IDs
}

// Threshold assigns a breaking length to a breakable bond type.
type Threshold struct {
	Type   int
	Length float64
}

// Network is a generated topology ready to be written out.
type Network struct {
	Size       int
	Nodes      []Node
	Bonds      []Bond
	Thresholds []Threshold
	BondLength float64
}

// Generate builds a triangular Size x Size lattice, periodic in x. Breaking
// lengths are drawn as l0 * (1 + U(0,1)), giving every breakable spring a
// breaking strain between 0 and 100%.
func Generate(p Params) (*Network, error) {
	if p.Size < 2 {
		return nil, fmt.Errorf("lattice size must be at least 2, got %d", p.Size)
	}
	if p.Matrix < 0 {
		return nil, fmt.Errorf("matrix spacing must be non-negative, got %d", p.Matrix)
	}
	l0 := p.BondLength
	if l0 <= 0 {
		return nil, fmt.Errorf("bond length must be positive, got %g", p.BondLength)
	}

	n := p.Size
	net := &Network{Size: n, BondLength: l0}

	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			nodeType := AtomMobile
			switch j {
			case 0:
				nodeType = AtomBottom
			case n - 1:
				nodeType = AtomTop
			}
			net.Nodes = append(net.Nodes, Node{
				ID:   j*n + i,
				Row:  j,
				Col:  i,
				X:    (float64(i) + 0.5*float64(j%2)) * l0,
				Y:    float64(j) * l0 * math.Sqrt(3) / 2,
				Type: nodeType,
			})
		}
	}

	rng := rand.New(rand.NewSource(p.Seed))
	seen := make(map[[2]int]bool)
	breakableType := 2

	for id := 0; id < n*n; id++ {
		for _, nb := range neighbors(id, n) {
			key := [2]int{id, nb}
			if key[0] > key[1] {
				key[0], key[1] = key[1], key[0]
			}
			if seen[key] {
				continue
			}
			seen[key] = true

			if isUnbreakable(id, nb, n, p.Matrix) {
				net.Bonds = append(net.Bonds, Bond{Type: 1, A: id, B: nb})
				continue
			}
			net.Bonds = append(net.Bonds, Bond{Type: breakableType, A: id, B: nb})
			net.Thresholds = append(net.Thresholds, Threshold{
				Type:   breakableType,
				Length: l0 * (1 + rng.Float64()),
			})
			breakableType++
		}
	}

	return net, nil
}

// nodeIndices converts a node ID to (row, col).
func nodeIndices(id, n int) (j, i int) {
	return id / n, id % n
}

// nodeID converts (row, col) to a node ID, wrapping the column around the
// periodic x boundary.
func nodeID(j, i, n int) int {
	if i == -1 {
		i = n - 1
	}
	if i == n {
		i = 0
	}
	return j*n + i
}

// neighbors returns the forward neighbors of a node in the triangular
// lattice, sorted for deterministic bond ordering.
func neighbors(id, n int) []int {
	j, i := nodeIndices(id, n)
	set := make(map[int]bool)
	if j < n-1 {
		set[nodeID(j+1, i, n)] = true
		if j%2 == 0 {
			set[nodeID(j+1, i-1, n)] = true
		} else {
			set[nodeID(j+1, i+1, n)] = true
		}
	}
	set[nodeID(j, i+1, n)] = true
	delete(set, id)

	out := make([]int, 0, len(set))
	for nb := range set {
		out = append(out, nb)
	}
	sort.Ints(out)
	return out
}

// isUnbreakable reports whether the bond between two nodes belongs to the
// reinforcing skeleton: horizontal springs on every matrix-th row, and
// vertical zigzag springs on every matrix-th column.
func isUnbreakable(id1, id2, n, matrix int) bool {
	if matrix <= 0 {
		return false
	}

	j1, i1 := nodeIndices(id1, n)
	j2, i2 := nodeIndices(id2, n)
	if j1 > j2 {
		j1, j2 = j2, j1
		i1, i2 = i2, i1
	}

	if j1 == j2 && j1%matrix == 0 {
		d := i1 - i2
		if d < 0 {
			d = -d
		}
		if d == 1 || d == n-1 {
			return true
		}
	}

	if i1%matrix == 0 && i2 == i1 {
		return true
	}

	return false
}
