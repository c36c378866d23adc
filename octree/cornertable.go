package octree

// CornerTable and EdgeTable give every octree corner and edge a
// canonical, depth-independent key, so that geometry shared by
// several cells — same-depth neighbors sharing a face, or
// differently-sized cells meeting at a single point — resolves to
// the same key and is computed exactly once by the iso-surface
// extractor's root cache (spec.md §4.8 step 2: "a corner or edge
// shared by several leaves is computed once, by whichever leaf is
// visited first").
//
// Corners are numbered the standard marching-cubes way: corner c has
// bit0=x, bit1=y, bit2=z (matching childOffset). A corner's canonical
// coordinate is its position expressed as an integer numerator over
// the common denominator 2^refDepth, where refDepth is the deepest
// depth in the tree; two corners at different depths that sit at the
// same physical point collapse to the same integer triple, which
// this package packs into one uint64 key.

// cornerEdgeEndpoints[e] gives the two corner indices edge e connects.
var cornerEdgeEndpoints = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7}, // edges along x
	{0, 2}, {1, 3}, {4, 6}, {5, 7}, // edges along y
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // edges along z
}

// EdgeAxis reports which axis (0=x,1=y,2=z) edge e runs along.
func EdgeAxis(e int) int { return e / 4 }

// EdgeEndpoints returns the two corner indices edge e connects.
func EdgeEndpoints(e int) (c0, c1 int) {
	ends := cornerEdgeEndpoints[e]
	return ends[0], ends[1]
}

// CornerOffset returns the (x,y,z) unit offset of corner c (0 or 1 on
// each axis) within a cell, matching childOffset's bit convention.
func CornerOffset(c int) (x, y, z int) {
	return c & 1, (c >> 1) & 1, (c >> 2) & 1
}

// CornerTable computes canonical corner keys relative to a tree's
// deepest depth.
type CornerTable struct {
	tree     *Tree
	refDepth int
}

// NewCornerTable returns a CornerTable for tree, using tree's current
// MaxDepth as the common key denominator. Splitting the tree deeper
// after construction invalidates previously computed keys, so callers
// build a fresh table once the tree is final.
func NewCornerTable(tree *Tree) *CornerTable {
	return &CornerTable{tree: tree, refDepth: tree.MaxDepth()}
}

// cornerCoord returns the canonical (x,y,z) integer coordinate of
// corner c of node idx, on the common [0, 2^refDepth]^3 grid.
func (t *CornerTable) cornerCoord(idx int32, c int) (x, y, z int) {
	n := &t.tree.Nodes[idx]
	shift := t.refDepth - n.Depth
	x = (n.Offset[0] + (c & 1)) << shift
	y = (n.Offset[1] + (c>>1)&1) << shift
	z = (n.Offset[2] + (c>>2)&1) << shift
	return x, y, z
}

// Key returns the canonical key for corner c of node idx: equal keys
// mean the same physical point, regardless of which node or depth
// produced them.
func (t *CornerTable) Key(idx int32, c int) uint64 {
	x, y, z := t.cornerCoord(idx, c)
	return packCoord(x, y, z)
}

// packCoord packs three coordinates, each guaranteed to fit in 21
// bits for any realistic refDepth (<=19), into one uint64.
func packCoord(x, y, z int) uint64 {
	return uint64(x)<<42 | uint64(y)<<21 | uint64(z)
}

// EdgeTable computes canonical edge keys the same way, as the
// unordered pair of their two corners' keys.
type EdgeTable struct {
	corners *CornerTable
}

// NewEdgeTable returns an EdgeTable backed by a fresh CornerTable
// over tree.
func NewEdgeTable(tree *Tree) *EdgeTable {
	return &EdgeTable{corners: NewCornerTable(tree)}
}

// Key returns the canonical key for edge e of node idx.
func (t *EdgeTable) Key(idx int32, e int) [2]uint64 {
	ends := cornerEdgeEndpoints[e]
	a := t.corners.Key(idx, ends[0])
	b := t.corners.Key(idx, ends[1])
	if a > b {
		a, b = b, a
	}
	return [2]uint64{a, b}
}
