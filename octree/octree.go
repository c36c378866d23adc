// Package octree implements the arena-indexed adaptive octree of
// spec.md §3/§4.3: nodes carry depth/offset and per-node solver data,
// children are all-or-nothing, and a NeighborKey answers 3x3x3/5x5x5
// same-depth neighborhoods. Per spec.md §9's design note, nodes are
// referenced by arena index rather than pointer, so the arena can
// safely outlive individual node mutations and neighbor keys never
// hold a raw reference.
package octree

// NoIndex marks an absent child, parent, or node-sequence slot.
const NoIndex int32 = -1

// Node is one cubical cell: depth d, integer offset in [0,2^d)^3, a
// parent back-link, up to eight children (all present or none per
// spec.md §3's invariant), and the solver-facing per-node fields of
// spec.md §3's "Per-node data".
type Node struct {
	Depth    int
	Offset   [3]int
	Parent   int32
	Children [8]int32

	// SeqIndex is the depth-bucketed, offset-ordered sequence index
	// assigned by BuildSortedNodes; -1 until indexed.
	SeqIndex int32
	// NormalIdx indexes into a side array of splatted normals; -1 if
	// this node never received a splat.
	NormalIdx int32
	// PointIdx indexes into a side array of accumulated screening
	// points; -1 if screening is disabled or this node has none.
	PointIdx int32
	// WeightIdx indexes into a side array of splat density weights.
	WeightIdx int32

	Solution   float64 // c
	Constraint float64 // b
	MCIndex    uint8

	// CenterWeight holds the 1-2 center-weight scalars of spec.md §3
	// (density-normalization weight, and optionally a second weight
	// used by the --density output path).
	CenterWeight [2]float64
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return n.Children[0] == NoIndex }

// childOffset returns the offset of child c (0..7, bit0=x,bit1=y,bit2=z)
// of a node at offset o.
func childOffset(o [3]int, c int) [3]int {
	return [3]int{
		2*o[0] + (c & 1),
		2*o[1] + (c >> 1 & 1),
		2*o[2] + (c >> 2 & 1),
	}
}

// key packs (depth, offset) into a single lookup key; depth <= 15 and
// offsets < 2^15 fit comfortably, well beyond any realistic --depth.
type key uint64

func makeKey(depth int, o [3]int) key {
	return key(uint64(depth)<<60 | uint64(o[0])<<40 | uint64(o[1])<<20 | uint64(o[2]))
}

// Tree is the arena of nodes. Index 0 is always the root.
type Tree struct {
	Nodes   []Node
	byKey   map[key]int32
	maxSeen int
}

// NewTree creates a tree containing only the root at depth 0, offset (0,0,0).
func NewTree() *Tree {
	t := &Tree{byKey: make(map[key]int32, 1024)}
	t.Nodes = append(t.Nodes, Node{Parent: NoIndex, Children: [8]int32{NoIndex, NoIndex, NoIndex, NoIndex, NoIndex, NoIndex, NoIndex, NoIndex}, SeqIndex: NoIndex, NormalIdx: NoIndex, PointIdx: NoIndex, WeightIdx: NoIndex})
	t.byKey[makeKey(0, [3]int{0, 0, 0})] = 0
	return t
}

// Root returns the root node's arena index (always 0).
func (t *Tree) Root() int32 { return 0 }

// Split gives node idx eight children, if it doesn't already have
// them, and returns their arena indices. Splitting an already-split
// node is a no-op that returns the existing children.
func (t *Tree) Split(idx int32) [8]int32 {
	n := &t.Nodes[idx]
	if !n.IsLeaf() {
		return n.Children
	}
	var children [8]int32
	for c := 0; c < 8; c++ {
		off := childOffset(n.Offset, c)
		child := Node{
			Depth: n.Depth + 1, Offset: off, Parent: idx,
			Children: [8]int32{NoIndex, NoIndex, NoIndex, NoIndex, NoIndex, NoIndex, NoIndex, NoIndex},
			SeqIndex: NoIndex, NormalIdx: NoIndex, PointIdx: NoIndex, WeightIdx: NoIndex,
		}
		idxChild := int32(len(t.Nodes))
		t.Nodes = append(t.Nodes, child)
		t.byKey[makeKey(child.Depth, off)] = idxChild
		children[c] = idxChild
	}
	// Re-fetch n: append above may have invalidated the pointer if
	// Nodes' backing array grew.
	t.Nodes[idx].Children = children
	if n.Depth+1 > t.maxSeen {
		t.maxSeen = n.Depth + 1
	}
	return children
}

// Collapse removes node idx's children. Per spec.md §9's arena design,
// orphaned child slots are left in the arena (never compacted mid-run;
// the tree is only mutated single-threaded during setTree/finalize per
// spec.md §5, so dangling arena slots never race a reader) and simply
// drop out of byKey so they're no longer reachable by lookup.
func (t *Tree) Collapse(idx int32) {
	n := &t.Nodes[idx]
	if n.IsLeaf() {
		return
	}
	for _, c := range n.Children {
		delete(t.byKey, makeKey(t.Nodes[c].Depth, t.Nodes[c].Offset))
	}
	n.Children = [8]int32{NoIndex, NoIndex, NoIndex, NoIndex, NoIndex, NoIndex, NoIndex, NoIndex}
}

// MaxDepth returns the deepest depth Split has produced; Collapse does
// not lower it.
func (t *Tree) MaxDepth() int { return t.maxSeen }

// Lookup returns the arena index of the node at (depth, offset), or
// NoIndex if no such node exists.
func (t *Tree) Lookup(depth int, offset [3]int) int32 {
	if idx, ok := t.byKey[makeKey(depth, offset)]; ok {
		return idx
	}
	return NoIndex
}

// DescendToDepth splits nodes along the path from idx down to depth,
// following the corner that contains p (p given in the same [0,1]^3
// normalized offset-units as Node.Offset/2^Depth), and returns the
// arena index of the resulting descendant.
func (t *Tree) DescendToDepth(idx int32, p [3]float64, depth int) int32 {
	for t.Nodes[idx].Depth < depth {
		children := t.Split(idx)
		d := t.Nodes[idx].Depth + 1
		n := 1 << d
		c := 0
		for axis := 0; axis < 3; axis++ {
			childOff := t.Nodes[idx].Offset[axis] * 2
			if p[axis]*float64(n) >= float64(childOff+1) {
				c |= 1 << axis
			}
		}
		idx = children[c]
	}
	return idx
}

// NextNode performs a depth-first pre-order traversal step starting
// from idx (NoIndex to start from the root); it plays the role of the
// original's nextNode/nextLeaf pair by letting the caller choose
// whether to descend.
func (t *Tree) NextNode(idx int32, descend bool) int32 {
	if idx == NoIndex {
		return t.Root()
	}
	n := &t.Nodes[idx]
	if descend && !n.IsLeaf() {
		return n.Children[0]
	}
	// climb until we find an unvisited sibling
	cur := idx
	for {
		p := t.Nodes[cur].Parent
		if p == NoIndex {
			return NoIndex
		}
		siblings := t.Nodes[p].Children
		for i, s := range siblings {
			if s == cur && i < 7 {
				return siblings[i+1]
			}
		}
		cur = p
	}
}

// NextLeaf returns the next leaf in pre-order after idx (NoIndex to
// start from the first leaf).
func (t *Tree) NextLeaf(idx int32) int32 {
	next := t.NextNode(idx, idx == NoIndex)
	for next != NoIndex && !t.Nodes[next].IsLeaf() {
		next = t.NextNode(next, true)
	}
	return next
}

// CenterWidth returns the physical center (in the normalized [0,1]^3
// domain) and width of node idx.
func (t *Tree) CenterWidth(idx int32) (center [3]float64, width float64) {
	n := &t.Nodes[idx]
	width = 1.0 / float64(int(1)<<n.Depth)
	for axis := 0; axis < 3; axis++ {
		center[axis] = (float64(n.Offset[axis]) + 0.5) * width
	}
	return center, width
}
