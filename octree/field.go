package octree

import (
	"math"

	"github.com/soypat/poissonrecon/bspline"
)

// EvaluateField sums the screened Poisson indicator's value and
// gradient at pos (normalized [0,1]^3 domain) across every depth from
// 0 through maxDepth: the implicit function is Σ_{n over ALL depths}
// c_n·φ_n(x) (spec.md §4.7/§4.8's "child-parent variant"), not just
// the contribution of the depth-maxDepth leaf covering pos. Each
// node's Solution is written per-depth by solver.Cascade, so every
// covering depth's same-depth radius-2 neighborhood around pos is
// summed independently and the depths are added together.
func EvaluateField(tree *Tree, table *bspline.Table, pos [3]float64, maxDepth int) (value float64, grad [3]float64) {
	nk := NewNeighborKey(tree, 2)
	for d := 0; d <= maxDepth; d++ {
		size := 1 << d
		off := [3]int{
			clampFieldOffset(int(math.Floor(pos[0]*float64(size))), size),
			clampFieldOffset(int(math.Floor(pos[1]*float64(size))), size),
			clampFieldOffset(int(math.Floor(pos[2]*float64(size))), size),
		}
		idx := tree.Lookup(d, off)
		if idx == NoIndex {
			continue
		}
		for _, nb := range nk.Neighbors(idx) {
			if nb == NoIndex {
				continue
			}
			n := &tree.Nodes[nb]
			if n.Solution == 0 {
				continue
			}
			vx, dvx := table.Evaluate(d, n.Offset[0], pos[0])
			vy, dvy := table.Evaluate(d, n.Offset[1], pos[1])
			vz, dvz := table.Evaluate(d, n.Offset[2], pos[2])
			c := n.Solution
			value += vx * vy * vz * c
			grad[0] += dvx * vy * vz * c
			grad[1] += vx * dvy * vz * c
			grad[2] += vx * vy * dvz * c
		}
	}
	return value, grad
}

func clampFieldOffset(o, size int) int {
	if o < 0 {
		return 0
	}
	if o >= size {
		return size - 1
	}
	return o
}
