package octree

import "testing"

func buildSampleTree() *Tree {
	t := NewTree()
	t.Split(t.Root())
	// split the child at offset (0,0,0) depth 1 again
	child := t.Lookup(1, [3]int{0, 0, 0})
	t.Split(child)
	return t
}

func TestSplitCreatesEightChildren(t *testing.T) {
	tr := NewTree()
	children := tr.Split(tr.Root())
	for c, idx := range children {
		n := tr.Nodes[idx]
		if n.Depth != 1 {
			t.Fatalf("child %d depth = %d, want 1", c, n.Depth)
		}
		if n.Parent != tr.Root() {
			t.Fatalf("child %d parent = %d, want root", c, n.Parent)
		}
	}
	if tr.MaxDepth() != 1 {
		t.Fatalf("MaxDepth() = %d, want 1", tr.MaxDepth())
	}
}

func TestLookupRoundTrip(t *testing.T) {
	tr := buildSampleTree()
	idx := tr.Lookup(2, [3]int{0, 0, 0})
	if idx == NoIndex {
		t.Fatal("expected node at depth 2 offset (0,0,0)")
	}
	if tr.Lookup(2, [3]int{3, 3, 3}) != NoIndex {
		t.Fatal("expected no node at unsplit offset")
	}
}

func TestCollapseRemovesFromIndex(t *testing.T) {
	tr := NewTree()
	children := tr.Split(tr.Root())
	tr.Collapse(tr.Root())
	if !tr.Nodes[tr.Root()].IsLeaf() {
		t.Fatal("expected root to be a leaf after collapse")
	}
	for _, c := range children {
		off := tr.Nodes[c].Offset
		if tr.Lookup(1, off) != NoIndex {
			t.Fatalf("expected collapsed child at %v to be unreachable", off)
		}
	}
}

func TestNextLeafVisitsAllLeaves(t *testing.T) {
	tr := buildSampleTree()
	count := 0
	for idx := tr.NextLeaf(NoIndex); idx != NoIndex; idx = tr.NextLeaf(idx) {
		if !tr.Nodes[idx].IsLeaf() {
			t.Fatalf("NextLeaf returned non-leaf %d", idx)
		}
		count++
	}
	// root split into 8, one child split again into 8: 7 + 8 = 15 leaves.
	if count != 15 {
		t.Fatalf("got %d leaves, want 15", count)
	}
}

func TestCenterWidthMatchesDepth(t *testing.T) {
	tr := NewTree()
	center, width := tr.CenterWidth(tr.Root())
	if width != 1 {
		t.Fatalf("root width = %v, want 1", width)
	}
	if center != [3]float64{0.5, 0.5, 0.5} {
		t.Fatalf("root center = %v, want (0.5,0.5,0.5)", center)
	}
}

func TestNeighborsSameDepth(t *testing.T) {
	tr := buildSampleTree()
	children := tr.Nodes[tr.Root()].Children
	sn := BuildSortedNodes(tr, func(idx int32) bool { return tr.Nodes[idx].IsLeaf() })
	_ = sn
	nk := NewNeighborKey(tr, 1)
	neighbors := nk.Neighbors(children[7])
	if len(neighbors) != 27 {
		t.Fatalf("got %d neighbors, want 27", len(neighbors))
	}
	center := neighbors[13] // (0,0,0) offset, the node itself
	if center != children[7] {
		t.Fatalf("center neighbor = %d, want self %d", center, children[7])
	}
}

func TestBuildSortedNodesOrdersByDepth(t *testing.T) {
	tr := buildSampleTree()
	sn := BuildSortedNodes(tr, func(idx int32) bool { return true })
	for d := 0; d <= tr.MaxDepth(); d++ {
		lo, hi := sn.DepthRange(d)
		for i := lo; i < hi; i++ {
			if tr.Nodes[sn.Nodes[i]].Depth != d {
				t.Fatalf("node at sorted index %d has depth %d, want %d", i, tr.Nodes[sn.Nodes[i]].Depth, d)
			}
		}
	}
	if sn.Len() != len(sn.Nodes) {
		t.Fatalf("Len() = %d, want %d", sn.Len(), len(sn.Nodes))
	}
}
