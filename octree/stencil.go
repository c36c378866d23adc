package octree

import "github.com/soypat/poissonrecon/bspline"

// stencilWidth is the side length of a same-depth 5x5x5 stencil
// neighborhood (radius 2), the widest cross-integral support the
// degree-2 basis needs (spec.md §4.1's maxOverlap).
const stencilWidth = 5
const stencilRadius = 2

// LaplacianStencil caches ⟨∇φ_i,∇φ_j⟩ = Σ_axis ⟨φ_i',φ_j'⟩_axis · Π_{other axes} ⟨φ_i,φ_j⟩_other
// for every same-depth offset pair within radius 2, at a fixed depth
// d (spec.md §4.5's Laplacian matrix assembly). It depends only on d,
// so it is built once per depth and reused across every node.
type LaplacianStencil struct {
	// values[dz+2][dy+2][dx+2] is ⟨∇φ_{d,0,0,0}, ∇φ_{d,dx,dy,dz}⟩.
	values [stencilWidth][stencilWidth][stencilWidth]float64
}

// NewLaplacianStencil builds the depth-d Laplacian stencil from table.
// Below minStencilDepth it returns the zero-value stencil: callers must
// use the boundary-aware per-node fallback instead (see minStencilDepth).
func NewLaplacianStencil(table *bspline.Table, d int) *LaplacianStencil {
	var s LaplacianStencil
	if d < minStencilDepth {
		return &s
	}
	for dz := -stencilRadius; dz <= stencilRadius; dz++ {
		for dy := -stencilRadius; dy <= stencilRadius; dy++ {
			for dx := -stencilRadius; dx <= stencilRadius; dx++ {
				vx := table.SameDepth(bspline.ValueValue, d, 0, dx)
				vy := table.SameDepth(bspline.ValueValue, d, 0, dy)
				vz := table.SameDepth(bspline.ValueValue, d, 0, dz)
				dxx := table.SameDepth(bspline.DerivDeriv, d, 0, dx)
				dyy := table.SameDepth(bspline.DerivDeriv, d, 0, dy)
				dzz := table.SameDepth(bspline.DerivDeriv, d, 0, dz)
				lap := dxx*vy*vz + vx*dyy*vz + vx*vy*dzz
				s.values[dz+stencilRadius][dy+stencilRadius][dx+stencilRadius] = lap
			}
		}
	}
	return &s
}

// At returns the cached Laplacian entry for a same-depth offset
// (dx,dy,dz), each constrained to [-2,2]; out-of-range offsets
// contribute zero (support doesn't reach that far).
func (s *LaplacianStencil) At(dx, dy, dz int) float64 {
	if dx < -stencilRadius || dx > stencilRadius || dy < -stencilRadius || dy > stencilRadius || dz < -stencilRadius || dz > stencilRadius {
		return 0
	}
	return s.values[dz+stencilRadius][dy+stencilRadius][dx+stencilRadius]
}

// DivergenceStencil caches the per-axis divergence coupling
// ⟨φ_i, ∂_axis φ_j⟩ · Π_{other axes} ⟨φ_i,φ_j⟩_other (bspline.DerivValue,
// i the centre node and j the neighbor), used to scatter a
// splatted normal into the constraint vector (spec.md §4.5's
// "divergence stencil").
type DivergenceStencil struct {
	values [3][stencilWidth][stencilWidth][stencilWidth]float64
}

// NewDivergenceStencil builds the depth-d divergence stencil. Below
// minStencilDepth it returns the zero-value stencil: callers must use
// the boundary-aware per-node fallback instead (see minStencilDepth).
func NewDivergenceStencil(table *bspline.Table, d int) *DivergenceStencil {
	var s DivergenceStencil
	if d < minStencilDepth {
		return &s
	}
	// Sample around a mid-domain index so no neighbor offset is mirrored
	// by the boundary mode: the stencil describes an interior node.
	ref := 1 << (d - 1)
	for dz := -stencilRadius; dz <= stencilRadius; dz++ {
		for dy := -stencilRadius; dy <= stencilRadius; dy++ {
			for dx := -stencilRadius; dx <= stencilRadius; dx++ {
				vx := table.SameDepth(bspline.ValueValue, d, ref, ref+dx)
				vy := table.SameDepth(bspline.ValueValue, d, ref, ref+dy)
				vz := table.SameDepth(bspline.ValueValue, d, ref, ref+dz)
				dvx := table.SameDepth(bspline.DerivValue, d, ref, ref+dx)
				dvy := table.SameDepth(bspline.DerivValue, d, ref, ref+dy)
				dvz := table.SameDepth(bspline.DerivValue, d, ref, ref+dz)
				i, j, k := dz+stencilRadius, dy+stencilRadius, dx+stencilRadius
				s.values[0][i][j][k] = dvx * vy * vz
				s.values[1][i][j][k] = vx * dvy * vz
				s.values[2][i][j][k] = vx * vy * dvz
			}
		}
	}
	return &s
}

// At returns the divergence coupling along axis (0=x,1=y,2=z) for a
// same-depth offset.
func (s *DivergenceStencil) At(axis, dx, dy, dz int) float64 {
	if dx < -stencilRadius || dx > stencilRadius || dy < -stencilRadius || dy > stencilRadius || dz < -stencilRadius || dz > stencilRadius {
		return 0
	}
	return s.values[axis][dz+stencilRadius][dy+stencilRadius][dx+stencilRadius]
}

// minStencilDepth is the shallowest depth at which the Laplacian and
// divergence stencils are assembled directly; below it (near the
// root) cross-depth coupling dominates and callers should fall back
// to boundary-aware Table queries per node instead of the cached
// stencil (spec.md §4.5's "stencils apply away from the boundary").
const minStencilDepth = 2

// MinStencilDepth reports minStencilDepth.
func MinStencilDepth() int { return minStencilDepth }
