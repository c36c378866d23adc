package isosurface

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/poissonrecon/bspline"
	"github.com/soypat/poissonrecon/octree"
)

// cornerValue is one corner's cached field sample.
type cornerValue struct {
	pos    r3.Vec
	value  float64
	grad   r3.Vec
	inside bool
}

// cornerCache memoizes corner evaluations by their canonical key
// (spec.md §4.8 step 2: "a corner shared by several leaves is
// computed once"), and edge roots by their canonical edge key.
type cornerCache struct {
	tree     *octree.Tree
	table    *bspline.Table
	corners  *octree.CornerTable
	edges    *octree.EdgeTable
	isoValue float64

	cornerVals map[uint64]cornerValue
	edgeRoots  map[[2]uint64]r3.Vec
}

func newCornerCache(tree *octree.Tree, table *bspline.Table, isoValue float64) *cornerCache {
	return &cornerCache{
		tree:       tree,
		table:      table,
		corners:    octree.NewCornerTable(tree),
		edges:      octree.NewEdgeTable(tree),
		isoValue:   isoValue,
		cornerVals: make(map[uint64]cornerValue),
		edgeRoots:  make(map[[2]uint64]r3.Vec),
	}
}

// corner returns (and caches) the field sample at corner c of node idx.
func (cc *cornerCache) corner(idx int32, c int) cornerValue {
	key := cc.corners.Key(idx, c)
	if v, ok := cc.cornerVals[key]; ok {
		return v
	}
	n := &cc.tree.Nodes[idx]
	center, width := cc.tree.CenterWidth(idx)
	cx, cy, cz := octree.CornerOffset(c)
	pos := r3.Vec{
		X: center[0] + (float64(cx)-0.5)*width,
		Y: center[1] + (float64(cy)-0.5)*width,
		Z: center[2] + (float64(cz)-0.5)*width,
	}
	value, grad := evaluateField(cc.tree, cc.table, n.Depth, pos)
	v := cornerValue{pos: pos, value: value, grad: grad, inside: value < cc.isoValue}
	cc.cornerVals[key] = v
	return v
}

// edgeRoot returns (and caches) the iso-crossing point on edge e of
// node idx, given the edge's two corner samples already cross the
// iso-value.
func (cc *cornerCache) edgeRoot(idx int32, e int, a, b cornerValue, nonLinearFit bool) r3.Vec {
	key := cc.edges.Key(idx, e)
	if p, ok := cc.edgeRoots[key]; ok {
		return p
	}
	_, width := cc.tree.CenterWidth(idx)
	axis := octree.EdgeAxis(e)
	length := r3.Sub(b.pos, a.pos)
	axisLen := elem(length, axis)
	if axisLen == 0 {
		axisLen = width
	}
	dx0 := elem(a.grad, axis) * axisLen
	dx1 := elem(b.grad, axis) * axisLen
	t := hermiteRoot(a.value, b.value, dx0, dx1, cc.isoValue, nonLinearFit)
	p := r3.Add(a.pos, r3.Scale(t, length))
	cc.edgeRoots[key] = p
	return p
}

// edgeRootByKey looks up an already-cached edge root by its canonical
// key; callers only ever pass keys returned by edges.Key for an edge
// that leafCrossing found to cross the iso-value, so edgeRoot has
// already cached it.
func (cc *cornerCache) edgeRootByKey(key [2]uint64) r3.Vec {
	return cc.edgeRoots[key]
}

func elem(v r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
