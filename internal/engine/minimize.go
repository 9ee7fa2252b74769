package engine

import "math"

// maxMove caps the per-iteration displacement of any coordinate, keeping
// the descent stable when a bond is far from its rest length.
const maxMove = 0.1

// evalForces computes the total harmonic bond energy and per-atom forces.
// Bonds with type <= 0 are broken and contribute nothing. Atoms in pinned
// groups get zero force. The z component is ignored in 2D runs.
func (e *Engine) evalForces(pinned map[int]bool, forces [][3]float64) float64 {
	for i := range forces {
		forces[i] = [3]float64{}
	}

	xPeriod := e.hi[0] - e.lo[0]
	wrap := e.xPeriodic() && xPeriod > 0

	var energy float64
	for _, b := range e.bonds {
		if b.Type <= 0 {
			continue
		}
		coeff := e.coeffs[b.Type]

		i := e.tagIndex[b.A]
		j := e.tagIndex[b.B]

		dx := e.atoms[i].Pos[0] - e.atoms[j].Pos[0]
		dy := e.atoms[i].Pos[1] - e.atoms[j].Pos[1]
		var dz float64
		if e.dimension == 3 {
			dz = e.atoms[i].Pos[2] - e.atoms[j].Pos[2]
		}
		if wrap {
			dx -= xPeriod * math.Round(dx/xPeriod)
		}

		r := math.Sqrt(dx*dx + dy*dy + dz*dz)
		dr := r - coeff.R0
		energy += coeff.K * dr * dr

		if r == 0 {
			continue
		}
		// F = -dE/dr = -2K(r - r0), directed along the bond.
		fmag := -2 * coeff.K * dr / r
		forces[i][0] += fmag * dx
		forces[i][1] += fmag * dy
		forces[j][0] -= fmag * dx
		forces[j][1] -= fmag * dy
		if e.dimension == 3 {
			forces[i][2] += fmag * dz
			forces[j][2] -= fmag * dz
		}
	}

	for i := range pinned {
		forces[i] = [3]float64{}
	}
	return energy
}

// minimize relaxes the network with damped steepest descent: adaptive step
// along the force with backtracking on uphill moves. It stops when the
// maximum force component drops below ftol, when the relative energy change
// of an accepted move drops below etol, or when the iteration/evaluation
// caps are exhausted. The caps are the only bound on a relaxation and are
// always honored.
func (e *Engine) minimize(etol, ftol float64, maxIter, maxEval int) {
	pinned := e.pinnedSet()
	forces := make([][3]float64, len(e.atoms))
	trial := make([][3]float64, len(e.atoms))

	energy := e.evalForces(pinned, forces)
	evals := 1
	alpha := 0.05

	for iter := 0; iter < maxIter && evals < maxEval; iter++ {
		fmax := maxForceComponent(forces)
		if fmax < ftol {
			return
		}

		step := alpha
		if step*fmax > maxMove {
			step = maxMove / fmax
		}

		for i := range e.atoms {
			trial[i] = e.atoms[i].Pos
			e.atoms[i].Pos[0] += step * forces[i][0]
			e.atoms[i].Pos[1] += step * forces[i][1]
			if e.dimension == 3 {
				e.atoms[i].Pos[2] += step * forces[i][2]
			}
		}

		next := e.evalForces(pinned, forces)
		evals++

		if next <= energy {
			converged := math.Abs(energy-next) < etol*(math.Abs(energy)+math.Abs(next)+1e-10)/2
			energy = next
			alpha *= 1.1
			if converged {
				return
			}
			continue
		}

		// Uphill move: restore positions, refresh forces, shrink the step.
		for i := range e.atoms {
			e.atoms[i].Pos = trial[i]
		}
		energy = e.evalForces(pinned, forces)
		evals++
		alpha *= 0.5
		if alpha < 1e-12 {
			return
		}
	}
}

func maxForceComponent(forces [][3]float64) float64 {
	var fmax float64
	for _, f := range forces {
		for _, c := range f {
			if a := math.Abs(c); a > fmax {
				fmax = a
			}
		}
	}
	return fmax
}
