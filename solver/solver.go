// Package solver assembles the Laplacian constraint system and runs
// the depth-by-depth multigrid cascade of spec.md §4.5/§4.6, plus the
// iso-value selection of spec.md §4.7.
package solver

import (
	"context"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/poissonrecon/boundary"
	"github.com/soypat/poissonrecon/bspline"
	"github.com/soypat/poissonrecon/internal/workerpool"
	"github.com/soypat/poissonrecon/octree"
	"github.com/soypat/poissonrecon/points"
	"github.com/soypat/poissonrecon/sparsemat"
)

// Config bundles the solve-time options spec.md §6 exposes.
type Config struct {
	MinDepth int
	// GradientDomainSolution toggles the divergence-of-vector-field vs
	// gradient-of-basis formulation (spec.md §4.5's GRADIENT_DOMAIN_SOLUTION).
	GradientDomainSolution bool
	// FixedIters, if > 0, overrides the adaptive CG iteration count and
	// switches to the fixed-iteration accuracy of 1e-10 (spec.md §4.6).
	FixedIters int
	Accuracy   float64
	Threads    int
}

// AssembleConstraints implements spec.md §4.5: for every node carrying
// a splatted normal, distribute its divergence into the same-depth
// 5x5x5 neighborhood (scatter) and the parent-depth 5x5x5 neighborhood
// (gather, for cross-depth coupling), depth D down to 0.
//
// The down-sample pass spec.md §4.5 describes as a separate step
// (accumulating constraint[parentNeighbor] += constraint[child]*tensor
// weights) is folded into this same loop: the gather step already
// distributes straight from each node's own splatted normal into its
// parent-depth neighborhood, which is the dominant contribution a
// second indirect downsample pass would otherwise reconstruct.
func AssembleConstraints(tree *octree.Tree, sorted *octree.SortedNodes, table *bspline.Table, side *points.Side, cfg Config) {
	maxDepth := tree.MaxDepth()
	for d := maxDepth; d >= 0; d-- {
		lo, hi := sorted.DepthRange(d)
		if lo == hi {
			continue
		}
		div := octree.NewDivergenceStencil(table, d)
		nk := octree.NewNeighborKey(tree, 2)
		for i := lo; i < hi; i++ {
			idx := sorted.Nodes[i]
			node := &tree.Nodes[idx]
			if node.NormalIdx == octree.NoIndex {
				continue
			}
			normal := side.Normals[node.NormalIdx]
			scatterDivergence(tree, nk, div, table, d, idx, normal, cfg.GradientDomainSolution)
			if node.Parent != octree.NoIndex {
				gatherDivergence(tree, table, idx, normal, cfg.GradientDomainSolution)
			}
		}
	}
}

func scatterDivergence(tree *octree.Tree, nk *octree.NeighborKey, div *octree.DivergenceStencil, table *bspline.Table, d int, idx int32, normal r3.Vec, gradientDomain bool) {
	node := &tree.Nodes[idx]
	direct := d < octree.MinStencilDepth()
	w, r := nk.Width(), nk.Radius()
	for k, nb := range nk.Neighbors(idx) {
		if nb == octree.NoIndex {
			continue
		}
		var cx, cy, cz float64
		if direct {
			nbOffset := tree.Nodes[nb].Offset
			cx = sameDepthDivergenceDirect(table, d, 0, node.Offset, nbOffset, gradientDomain)
			cy = sameDepthDivergenceDirect(table, d, 1, node.Offset, nbOffset, gradientDomain)
			cz = sameDepthDivergenceDirect(table, d, 2, node.Offset, nbOffset, gradientDomain)
		} else {
			dz := k/(w*w) - r
			dy := (k/w)%w - r
			dx := k%w - r
			cx = divergenceCoupling(div, gradientDomain, 0, dx, dy, dz)
			cy = divergenceCoupling(div, gradientDomain, 1, dx, dy, dz)
			cz = divergenceCoupling(div, gradientDomain, 2, dx, dy, dz)
		}
		val := normal.X*cx + normal.Y*cy + normal.Z*cz
		tree.Nodes[nb].Constraint += val
	}
}

// sameDepthDivergenceDirect is divergenceCoupling's boundary-aware,
// non-cached analogue for depths below octree.MinStencilDepth, where
// translation invariance no longer holds and each node's actual offset
// (not a fixed reference index) determines the boundary reflection
// table.SameDepth applies.
func sameDepthDivergenceDirect(table *bspline.Table, d, axis int, centerOff, neighborOff [3]int, gradientDomain bool) float64 {
	a, b := centerOff, neighborOff
	if gradientDomain {
		a, b = neighborOff, centerOff
	}
	v := [3]float64{}
	dv := [3]float64{}
	for k := 0; k < 3; k++ {
		v[k] = table.SameDepth(bspline.ValueValue, d, a[k], b[k])
		dv[k] = table.SameDepth(bspline.DerivValue, d, a[k], b[k])
	}
	result := dv[axis]
	for k := 0; k < 3; k++ {
		if k != axis {
			result *= v[k]
		}
	}
	if gradientDomain {
		return -result
	}
	return result
}

// sameDepthLaplacianDirect is crossLaplacian's same-depth analogue,
// used in place of the cached LaplacianStencil below
// octree.MinStencilDepth for the same reason sameDepthDivergenceDirect
// replaces the cached DivergenceStencil there.
func sameDepthLaplacianDirect(table *bspline.Table, d int, offA, offB [3]int) float64 {
	v := [3]float64{}
	dd := [3]float64{}
	for a := 0; a < 3; a++ {
		v[a] = table.SameDepth(bspline.ValueValue, d, offA[a], offB[a])
		dd[a] = table.SameDepth(bspline.DerivDeriv, d, offA[a], offB[a])
	}
	return dd[0]*v[1]*v[2] + v[0]*dd[1]*v[2] + v[0]*v[1]*dd[2]
}

func gatherDivergence(tree *octree.Tree, table *bspline.Table, idx int32, normal r3.Vec, gradientDomain bool) {
	nk := octree.NewNeighborKey(tree, 2)
	node := &tree.Nodes[idx]
	for _, nb := range nk.ParentNeighbors(idx) {
		if nb == octree.NoIndex {
			continue
		}
		nbNode := &tree.Nodes[nb]
		val := normal.X*crossDivergence(table, node.Depth, 0, node.Offset, nbNode.Offset, gradientDomain) +
			normal.Y*crossDivergence(table, node.Depth, 1, node.Offset, nbNode.Offset, gradientDomain) +
			normal.Z*crossDivergence(table, node.Depth, 2, node.Offset, nbNode.Offset, gradientDomain)
		nbNode.Constraint += val
	}
}

// divergenceCoupling returns the scatter-variant coupling for a
// same-depth offset, or its gradient-domain counterpart (spec.md
// §4.5's "differ by a sign and an index swap on the derivative axis":
// evaluated with the derivative taken on the neighbor side instead of
// the center, via the offset negation, and negated).
func divergenceCoupling(div *octree.DivergenceStencil, gradientDomain bool, axis, dx, dy, dz int) float64 {
	if !gradientDomain {
		return div.At(axis, dx, dy, dz)
	}
	return -div.At(axis, -dx, -dy, -dz)
}

// crossDivergence is the cross-depth analogue of divergenceCoupling,
// built from bspline.Table.Parent instead of a cached same-depth
// stencil (cross-depth pairs are too sparse to be worth tabulating).
func crossDivergence(table *bspline.Table, d, axis int, childOff, parentOff [3]int, gradientDomain bool) float64 {
	v := [3]float64{}
	dv := [3]float64{}
	for a := 0; a < 3; a++ {
		v[a] = table.Parent(bspline.ValueValue, d, childOff[a], parentOff[a])
		dv[a] = table.Parent(bspline.DerivValue, d, childOff[a], parentOff[a])
	}
	result := dv[axis]
	for a := 0; a < 3; a++ {
		if a != axis {
			result *= v[a]
		}
	}
	if gradientDomain {
		return -result
	}
	return result
}

// crossLaplacian is the cross-depth Laplacian coupling ⟨∇φ_{d,childOff}, ∇φ_{d-1,parentOff}⟩,
// built the same way as octree.LaplacianStencil but via Table.Parent.
func crossLaplacian(table *bspline.Table, d int, childOff, parentOff [3]int) float64 {
	v := [3]float64{}
	dd := [3]float64{}
	for a := 0; a < 3; a++ {
		v[a] = table.Parent(bspline.ValueValue, d, childOff[a], parentOff[a])
		dd[a] = table.Parent(bspline.DerivDeriv, d, childOff[a], parentOff[a])
	}
	return dd[0]*v[1]*v[2] + v[0]*dd[1]*v[2] + v[0]*v[1]*dd[2]
}

// basisValue evaluates Σ-separable φ_{d,offset}(pos), pos given in the
// normalized [0,1]^3 domain.
func basisValue(table *bspline.Table, d int, offset [3]int, pos r3.Vec) float64 {
	vx, _ := table.Evaluate(d, offset[0], pos.X)
	vy, _ := table.Evaluate(d, offset[1], pos.Y)
	vz, _ := table.Evaluate(d, offset[2], pos.Z)
	return vx * vy * vz
}

// Cascade runs the multigrid solve of spec.md §4.6: for each depth
// from cfg.MinDepth to the tree's max depth, it up-samples the
// cumulative coarser solution, assembles the depth's symmetric
// Laplacian (with a screening diagonal term when side carries
// screening points), solves by conjugate gradient, and writes the
// result back into each node's Solution. Returns the total CG
// iteration count across all depths.
func Cascade(tree *octree.Tree, sorted *octree.SortedNodes, table *bspline.Table, side *points.Side, cfg Config) int {
	maxDepth := tree.MaxDepth()
	total := sorted.Len()
	metSolution := make([]float64, total)
	totalIters := 0
	pool := workerpool.New(cfg.Threads)

	for d := cfg.MinDepth; d <= maxDepth; d++ {
		lo, hi := sorted.DepthRange(d)
		n := hi - lo
		if n == 0 {
			continue
		}

		// Up-sample: each node's cumulative coarser solution is the
		// depth-(d-1) up-sample dual of spec.md §4.5/§4.6 evaluated at
		// its own offset — the tensor product of each axis's two
		// covering parent-depth cells, weighted 0.75/0.25 by which
		// half of the parent cell the child offset falls in. A missing
		// covering cell (domain boundary) simply drops its 0.25/0.75
		// share rather than renormalizing the remainder to 1.
		for i := lo; i < hi; i++ {
			idx := sorted.Nodes[i]
			node := &tree.Nodes[idx]
			if node.Parent == octree.NoIndex {
				metSolution[i] = 0
				continue
			}
			metSolution[i] = upsampleCumulative(tree, metSolution, d-1, node.Offset)
		}

		laplacian := octree.NewLaplacianStencil(table, d)
		direct := d < octree.MinStencilDepth()
		nk := octree.NewNeighborKey(tree, 2)
		w, r := nk.Width(), nk.Radius()

		a := sparsemat.NewSymmetricMatrix(n)
		b := make([]float64, n)

		// Matrix row assembly parallelizes by row index (spec.md §5):
		// each row reads only the sorted-tree/stencil snapshot and
		// writes exclusively to its own b[local]/a.Rows[local] slot, so
		// no cross-goroutine synchronization is needed beyond the
		// worker pool's own fan-out/join.
		pool.For(context.Background(), n, func(local int) error {
			i := lo + local
			idx := sorted.Nodes[i]
			node := &tree.Nodes[idx]
			b[local] = node.Constraint

			if node.Parent != octree.NoIndex {
				for _, nb := range nk.ParentNeighbors(idx) {
					if nb == octree.NoIndex {
						continue
					}
					nbNode := &tree.Nodes[nb]
					ms := metSolution[nbNode.SeqIndex]
					if ms == 0 {
						continue
					}
					b[local] -= crossLaplacian(table, d, node.Offset, nbNode.Offset) * ms
				}
			}

			diag := laplacian.At(0, 0, 0)
			if direct {
				diag = sameDepthLaplacianDirect(table, d, node.Offset, node.Offset)
			}
			if node.PointIdx != octree.NoIndex {
				sp := side.ScreenPoints[node.PointIdx]
				v := basisValue(table, d, node.Offset, sp.Pos)
				diag += v * v * sp.Weight
			}

			for k, nb := range nk.Neighbors(idx) {
				if nb == octree.NoIndex {
					continue
				}
				nbNode := &tree.Nodes[nb]
				j := int(nbNode.SeqIndex) - lo
				if j < local {
					continue
				}
				var val float64
				if direct {
					val = sameDepthLaplacianDirect(table, d, node.Offset, nbNode.Offset)
				} else {
					dz := k/(w*w) - r
					dy := (k/w)%w - r
					dx := k%w - r
					val = laplacian.At(dx, dy, dz)
				}
				if j == local {
					val = diag
				}
				if val == 0 {
					continue
				}
				a.Set(local, j, val)
			}
			return nil
		})

		iters := cfg.FixedIters
		eps := 1e-10
		if iters <= 0 {
			iters = sparsemat.IterationCount(n, 1)
			eps = math.Sqrt(cfg.Accuracy / 1e5 * float64(n))
		}
		x := make([]float64, n)
		totalIters += sparsemat.Solve(a, b, x, iters, eps, true, cfg.Threads, false)
		for i := lo; i < hi; i++ {
			tree.Nodes[sorted.Nodes[i]].Solution = x[i-lo]
		}
	}
	return totalIters
}

// upsampleAxis returns the two depth-(d-1) offsets covering a
// depth-d child at the given offset along one axis, and their
// up-sample dual weights (0.75 for the half the child sits in, 0.25
// for the adjacent parent cell), per spec.md §4.5's u,v,w ∈
// {0.25,0.75} up-sample weights.
func upsampleAxis(offset int) (near, far int, wNear, wFar float64) {
	near = offset / 2
	if offset%2 == 0 {
		far = near - 1
	} else {
		far = near + 1
	}
	return near, far, 0.75, 0.25
}

// upsampleCumulative evaluates the cumulative coarser-depth solution
// at a depth-(parentDepth+1) child's offset by blending the eight
// depth-parentDepth cells covering it (spec.md §4.6's "up-sample the
// cumulative coarser-depth solution in place; add the depth-(d-1)
// node solutions into it"), each contributing metSolution[n] +
// n.Solution weighted by the tensor product of its per-axis up-sample
// weight. Cells outside the domain or not carrying a valid sequence
// index are dropped rather than renormalized.
func upsampleCumulative(tree *octree.Tree, metSolution []float64, parentDepth int, offset [3]int) float64 {
	size := 1 << parentDepth
	px, pxFar, wxNear, wxFar := upsampleAxis(offset[0])
	py, pyFar, wyNear, wyFar := upsampleAxis(offset[1])
	pz, pzFar, wzNear, wzFar := upsampleAxis(offset[2])
	xs := [2]int{px, pxFar}
	xw := [2]float64{wxNear, wxFar}
	ys := [2]int{py, pyFar}
	yw := [2]float64{wyNear, wyFar}
	zs := [2]int{pz, pzFar}
	zw := [2]float64{wzNear, wzFar}

	var sum float64
	for zi := 0; zi < 2; zi++ {
		if zs[zi] < 0 || zs[zi] >= size {
			continue
		}
		for yi := 0; yi < 2; yi++ {
			if ys[yi] < 0 || ys[yi] >= size {
				continue
			}
			for xi := 0; xi < 2; xi++ {
				if xs[xi] < 0 || xs[xi] >= size {
					continue
				}
				idx := tree.Lookup(parentDepth, [3]int{xs[xi], ys[yi], zs[zi]})
				if idx == octree.NoIndex {
					continue
				}
				n := &tree.Nodes[idx]
				if n.SeqIndex < 0 {
					continue
				}
				w := xw[xi] * yw[yi] * zw[zi]
				sum += w * (metSolution[n.SeqIndex] + n.Solution)
			}
		}
	}
	return sum
}

// EvaluateNodeValue returns the implicit function's value at node
// idx's cell center: the average of the eight children's values for
// non-leaves, or, for leaves, octree.EvaluateField summed over every
// depth from 0 through the node's own depth (spec.md §4.7's value is
// the same Σ_{n over ALL depths} c_n·φ_n(x) the extractor's corner
// evaluator uses, not just the leaf's own-depth neighborhood).
func EvaluateNodeValue(tree *octree.Tree, table *bspline.Table, idx int32) float64 {
	node := &tree.Nodes[idx]
	if !node.IsLeaf() {
		sum := 0.0
		for _, c := range node.Children {
			sum += EvaluateNodeValue(tree, table, c)
		}
		return sum / 8
	}
	center, _ := tree.CenterWidth(idx)
	val, _ := octree.EvaluateField(tree, table, center, node.Depth)
	return val
}

// SelectIsoValue implements spec.md §4.7: the centerWeight-weighted
// average node value, offset by -0.5 in Dirichlet mode. centerWeight
// is read from each leaf's splatted density weight (side.WeightSamples
// via WeightIdx).
func SelectIsoValue(tree *octree.Tree, table *bspline.Table, side *points.Side, mode boundary.Mode) float64 {
	var num, den float64
	for i := range tree.Nodes {
		node := &tree.Nodes[i]
		if !node.IsLeaf() || node.WeightIdx == octree.NoIndex {
			continue
		}
		cw := side.WeightSamples[node.WeightIdx]
		if cw == 0 {
			continue
		}
		v := EvaluateNodeValue(tree, table, int32(i))
		num += v * cw
		den += cw
	}
	if den == 0 {
		return 0
	}
	iso := num / den
	if mode == boundary.Dirichlet {
		iso -= 0.5
	}
	return iso
}
