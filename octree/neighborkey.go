package octree

// NeighborKey answers same-depth neighborhood queries of radius r
// (spec.md §4.3): 3x3x3 (r=1) for splatting/evaluation, 5x5x5 (r=2)
// for the Laplacian/divergence stencils. A missing neighbor, or one
// that exists but isn't indexed (SeqIndex < 0), is reported as
// NoIndex — "a neighbor is considered present iff it exists and
// carries a valid node sequence index" (spec.md §4.3).
//
// The original amortizes neighbor lookups across nearby queries in
// the same subtree by caching the parent path. This implementation
// instead keys every node by (depth,offset) in a tree-wide hash map
// (octree.Tree.byKey) and answers each query with O((2r+1)^3) map
// lookups; it is the same O(1)-per-neighbor contract with a simpler,
// allocation-free cache (a hash map rather than a parent-path stack).
type NeighborKey struct {
	tree   *Tree
	radius int
}

// NewNeighborKey returns a NeighborKey of the given radius over tree.
func NewNeighborKey(tree *Tree, radius int) *NeighborKey {
	return &NeighborKey{tree: tree, radius: radius}
}

// Width returns 2*radius+1, the neighborhood's side length.
func (k *NeighborKey) Width() int { return 2*k.radius + 1 }

// Radius returns the neighborhood radius this key was built with.
func (k *NeighborKey) Radius() int { return k.radius }

// Neighbors returns the same-depth neighborhood of idx as a flat
// slice of arena indices (NoIndex where absent), ordered x-fastest,
// then y, then z, i.e. index (dz+r)*w*w + (dy+r)*w + (dx+r).
func (k *NeighborKey) Neighbors(idx int32) []int32 {
	n := &k.tree.Nodes[idx]
	w := k.Width()
	out := make([]int32, w*w*w)
	r := k.radius
	d := n.Depth
	i := 0
	for dz := -r; dz <= r; dz++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				off := [3]int{n.Offset[0] + dx, n.Offset[1] + dy, n.Offset[2] + dz}
				out[i] = k.lookupIndexed(d, off)
				i++
			}
		}
	}
	return out
}

// ParentNeighbors returns the depth-(d-1) neighborhood around idx's
// parent, used by the multigrid cascade's cross-depth coupling
// (spec.md §4.5/§4.6).
func (k *NeighborKey) ParentNeighbors(idx int32) []int32 {
	n := &k.tree.Nodes[idx]
	if n.Parent == NoIndex {
		w := k.Width()
		return make([]int32, w*w*w)
	}
	return k.Neighbors(n.Parent)
}

func (k *NeighborKey) lookupIndexed(depth int, off [3]int) int32 {
	size := 1 << depth
	if off[0] < 0 || off[1] < 0 || off[2] < 0 || off[0] >= size || off[1] >= size || off[2] >= size {
		return NoIndex
	}
	idx := k.tree.Lookup(depth, off)
	if idx == NoIndex {
		return NoIndex
	}
	if k.tree.Nodes[idx].SeqIndex < 0 {
		return NoIndex
	}
	return idx
}

// At returns the arena index of the same-depth neighbor offset by
// (dx,dy,dz) from idx, or NoIndex if absent/unindexed.
func (k *NeighborKey) At(idx int32, dx, dy, dz int) int32 {
	n := &k.tree.Nodes[idx]
	off := [3]int{n.Offset[0] + dx, n.Offset[1] + dy, n.Offset[2] + dz}
	return k.lookupIndexed(n.Depth, off)
}
