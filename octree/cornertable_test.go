package octree

import "testing"

func TestCornerKeyMatchesAcrossDepths(t *testing.T) {
	tr := NewTree()
	children := tr.Split(tr.Root())
	tr.Split(children[7])
	grand := tr.Nodes[children[7]].Children[0]

	ct := NewCornerTable(tr)
	// children[7]'s corner 0 sits at the global center (0.5,0.5,0.5);
	// grand (its own child 0) has its own corner 0 at the exact same
	// physical point, despite being one depth deeper.
	if ct.Key(children[7], 0) != ct.Key(grand, 0) {
		t.Fatal("expected coincident corners at different depths to share a key")
	}
}

func TestCornerKeyDistinguishesDistinctCorners(t *testing.T) {
	tr := NewTree()
	children := tr.Split(tr.Root())
	ct := NewCornerTable(tr)
	if ct.Key(children[0], 0) == ct.Key(children[7], 7) {
		t.Fatal("expected distinct physical corners to have distinct keys")
	}
}

func TestCornerKeySharedAcrossNeighbors(t *testing.T) {
	tr := NewTree()
	children := tr.Split(tr.Root())
	ct := NewCornerTable(tr)
	// child 0 ([0,0.5]^3) and child 1 ([0.5,1]x[0,0.5]x[0,0.5]) share
	// the face at x=0.5; child 0's corner 1 (x=1,y=0,z=0 locally) and
	// child 1's corner 0 (x=0,y=0,z=0 locally) are the same point.
	if ct.Key(children[0], 1) != ct.Key(children[1], 0) {
		t.Fatal("expected shared face corner to have the same key from both sides")
	}
}

func TestEdgeKeySharedAcrossNeighbors(t *testing.T) {
	tr := NewTree()
	children := tr.Split(tr.Root())
	et := NewEdgeTable(tr)
	// Child 0's z-axis edge {1,5} (x=1 side) is the same physical edge
	// as child 1's z-axis edge {0,4} (x=0 side): both run along the
	// shared face at x=0.5.
	if et.Key(children[0], 9) != et.Key(children[1], 8) {
		t.Fatal("expected shared face edge to have the same key from both sides")
	}
}

func TestEdgeAxis(t *testing.T) {
	for e := 0; e < 4; e++ {
		if EdgeAxis(e) != 0 {
			t.Fatalf("edge %d expected axis 0 (x)", e)
		}
	}
	for e := 4; e < 8; e++ {
		if EdgeAxis(e) != 1 {
			t.Fatalf("edge %d expected axis 1 (y)", e)
		}
	}
	for e := 8; e < 12; e++ {
		if EdgeAxis(e) != 2 {
			t.Fatalf("edge %d expected axis 2 (z)", e)
		}
	}
}
