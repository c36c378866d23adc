// Package isosurface extracts a triangulated mesh from a solved
// octree at a chosen iso-value (spec.md §4.8): a balancing
// pre-refinement that equalizes depth across every face-adjacent leaf
// pair, per-leaf corner values and gradients, edge-root finding by
// Hermite-quadratic inversion, canonical-edge-key loop closure, and
// triangulation.
package isosurface

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/poissonrecon/bspline"
	"github.com/soypat/poissonrecon/octree"
)

// evaluateField returns the implicit function's value and gradient at
// pos (normalized [0,1]^3 domain): the sum of every covering depth's
// basis contribution from 0 through d (spec.md §4.7/§4.8's "child-
// parent variant"), not just the querying leaf's own depth d, since
// each node's Solution is a per-depth coefficient rather than a
// cumulative one.
func evaluateField(tree *octree.Tree, table *bspline.Table, d int, pos r3.Vec) (value float64, grad r3.Vec) {
	v, g := octree.EvaluateField(tree, table, [3]float64{pos.X, pos.Y, pos.Z}, d)
	return v, r3.Vec{X: g[0], Y: g[1], Z: g[2]}
}
