package octree

// FaceNeighborLeaves returns the leaf or leaves lying across node
// idx's face along (axis, sign): sign -1 is the low-offset face,
// +1 the high-offset face. It reports nil at a domain boundary, a
// single leaf when the far side was split no deeper than idx (same
// depth or coarser), or several leaves when the far side was split
// deeper than idx. Balance uses this to find leaves whose face
// neighbor is coarser than they are.
func FaceNeighborLeaves(tree *Tree, idx int32, axis, sign int) []int32 {
	n := &tree.Nodes[idx]
	off := n.Offset
	off[axis] += sign
	size := 1 << n.Depth
	if off[axis] < 0 || off[axis] >= size {
		return nil
	}
	near := 0
	if sign < 0 {
		near = 1
	}
	for d := n.Depth; ; {
		if nb := tree.Lookup(d, off); nb != NoIndex {
			return faceLeavesAt(tree, nb, axis, near)
		}
		if d == 0 {
			return nil
		}
		d--
		for a := 0; a < 3; a++ {
			off[a] >>= 1
		}
	}
}

// faceLeavesAt collects every leaf beneath idx whose bit along axis
// equals near, i.e. every leaf touching the face of idx facing back
// toward the node FaceNeighborLeaves started from.
func faceLeavesAt(tree *Tree, idx int32, axis, near int) []int32 {
	n := &tree.Nodes[idx]
	if n.IsLeaf() {
		return []int32{idx}
	}
	var leaves []int32
	for c := 0; c < 8; c++ {
		if (c>>uint(axis))&1 != near {
			continue
		}
		leaves = append(leaves, faceLeavesAt(tree, n.Children[c], axis, near)...)
	}
	return leaves
}
