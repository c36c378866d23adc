package isosurface

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/poissonrecon/meshio"
	"github.com/soypat/poissonrecon/octree"
)

// cubeFaces lists the 4 corners of each of the cube's 6 faces in
// cyclic order (consecutive corners always differ by exactly one
// bit, i.e. share a cube edge), used to walk a face's 4 edges in
// spec.md §4.8 step 5's "collect directed edges" pass.
var cubeFaces = [6][4]int{
	{0, 4, 6, 2}, // x=0
	{1, 3, 7, 5}, // x=1
	{0, 1, 5, 4}, // y=0
	{2, 6, 7, 3}, // y=1
	{0, 2, 3, 1}, // z=0
	{4, 5, 7, 6}, // z=1
}

// edgeIndexForCorners finds the canonical edge index (0..11)
// connecting corners a and b.
func edgeIndexForCorners(a, b int) int {
	for e := 0; e < 12; e++ {
		c0, c1 := octree.EdgeEndpoints(e)
		if (c0 == a && c1 == b) || (c0 == b && c1 == a) {
			return e
		}
	}
	return -1
}

// edgeKey is a canonical, leaf-independent edge identifier (see
// octree.EdgeTable): two edges belonging to different leaves but
// sitting at the same physical location share a key, which is what
// lets closeLoops chain segments contributed by different leaves at a
// shared face into one loop. octree.Balance guarantees every pair of
// face-adjacent leaves shares a depth before extraction runs, so a
// shared edge's two contributing leaves always describe it with the
// same key.
type edgeKey = [2]uint64

// directedSegment is one face's contour crossing, directed so that
// "inside" stays on a consistent side as the contour is traced
// (spec.md §4.8 step 5's directed-edge collection). Edges are
// identified by their canonical key rather than a leaf-local index so
// segments contributed by different leaves at a shared face can be
// chained together.
type directedSegment struct {
	startEdge, endEdge edgeKey
}

// localSegment is one face's contour crossing expressed in a single
// leaf's own 0..11 edge numbering, before edgeIndexForCorners's result
// is turned into a canonical, cross-depth-comparable edgeKey.
type localSegment struct {
	startEdge, endEdge int
}

// faceSegments returns the 0 or 1 local segment a cube face
// contributes, given which of its 4 edges cross the iso-value and
// which corners are inside. A face with 4 crossings (the ambiguous
// saddle case) is resolved by taking the first two transitions found
// in cyclic order; spec.md §7 treats this as a diagnostic-worthy but
// non-fatal case.
func faceSegments(face [4]int, inside [8]bool, crossing [12]bool) []localSegment {
	var exitEdge, entryEdge int = -1, -1
	for i := 0; i < 4; i++ {
		c0, c1 := face[i], face[(i+1)%4]
		e := edgeIndexForCorners(c0, c1)
		if e < 0 || !crossing[e] {
			continue
		}
		if inside[c0] && !inside[c1] {
			if exitEdge < 0 {
				exitEdge = e
			}
		} else if !inside[c0] && inside[c1] {
			if entryEdge < 0 {
				entryEdge = e
			}
		}
	}
	if exitEdge < 0 || entryEdge < 0 {
		return nil
	}
	return []localSegment{{startEdge: exitEdge, endEdge: entryEdge}}
}

// closeLoops chains directed segments (by matching the edge a segment
// ends on to the edge another starts on) into closed vertex loops. A
// chain that does not close into a loop of at least 3 edges is dropped
// and counted in the returned unresolved total, per spec.md §7's
// "unresolved loop closures print a diagnostic but continue".
func closeLoops(segs []directedSegment) (loops [][]edgeKey, unresolved int) {
	used := make([]bool, len(segs))
	byStart := make(map[edgeKey]int, len(segs))
	for i, s := range segs {
		byStart[s.startEdge] = i
	}
	for i := range segs {
		if used[i] {
			continue
		}
		loop := []edgeKey{segs[i].startEdge}
		cur := i
		used[cur] = true
		closed := false
		for steps := 0; steps < len(segs)+1; steps++ {
			next := segs[cur].endEdge
			if next == loop[0] {
				closed = true
				break
			}
			ni, ok := byStart[next]
			if !ok || used[ni] {
				break
			}
			loop = append(loop, next)
			cur = ni
			used[cur] = true
		}
		if closed && len(loop) >= 3 {
			loops = append(loops, loop)
		} else {
			unresolved++
		}
	}
	return loops, unresolved
}

// emitLoop triangulates one closed loop of edge-root vertices and
// writes the resulting polygon(s) into sink (spec.md §4.8 step 5).
func emitLoop(sink meshio.MeshSink, verts []r3.Vec, polygonMesh bool) {
	k := len(verts)
	switch {
	case polygonMesh:
		addPolygon(sink, verts)
	case k == 3:
		addPolygon(sink, verts)
	case coplanarDegenerate(verts):
		fanTriangulate(sink, verts)
	default:
		minAreaTriangulate(sink, verts)
	}
}

func addPolygon(sink meshio.MeshSink, verts []r3.Vec) {
	refs := make([]meshio.PolygonVertex, len(verts))
	for i, v := range verts {
		idx := sink.AddInCorePoint(meshio.Vertex{Position: v})
		refs[i] = meshio.PolygonVertex{Index: idx, InCore: true}
	}
	sink.AddPolygon(refs)
}

// coplanarDegenerate reports spec.md §4.8 step 5's "any two
// non-adjacent vertices sharing a coordinate" detection.
func coplanarDegenerate(verts []r3.Vec) bool {
	k := len(verts)
	for i := 0; i < k; i++ {
		for j := i + 2; j < k; j++ {
			if j == k-1 && i == 0 {
				continue // adjacent via wraparound
			}
			a, b := verts[i], verts[j]
			if a.X == b.X || a.Y == b.Y || a.Z == b.Z {
				return true
			}
		}
	}
	return false
}

func centroid(verts []r3.Vec) r3.Vec {
	var c r3.Vec
	for _, v := range verts {
		c = r3.Add(c, v)
	}
	return r3.Scale(1/float64(len(verts)), c)
}

func fanTriangulate(sink meshio.MeshSink, verts []r3.Vec) {
	c := centroid(verts)
	k := len(verts)
	for i := 0; i < k; i++ {
		addPolygon(sink, []r3.Vec{verts[i], verts[(i+1)%k], c})
	}
}

// minAreaTriangulate fans a convex k-gon via the classic O(k^3)
// dynamic-program over triangle-area cost, minimizing total
// triangulated area (spec.md §4.8 step 5's "minimum-area
// triangulation (DP over a k-gon)").
func minAreaTriangulate(sink meshio.MeshSink, verts []r3.Vec) {
	k := len(verts)
	cost := make([][]float64, k)
	split := make([][]int, k)
	for i := range cost {
		cost[i] = make([]float64, k)
		split[i] = make([]int, k)
	}
	area := func(a, b, c int) float64 {
		return 0.5 * r3.Norm(r3.Cross(r3.Sub(verts[b], verts[a]), r3.Sub(verts[c], verts[a])))
	}
	for gap := 2; gap < k; gap++ {
		for i := 0; i+gap < k; i++ {
			j := i + gap
			best := -1.0
			bestM := -1
			for m := i + 1; m < j; m++ {
				c := cost[i][m] + cost[m][j] + area(i, m, j)
				if best < 0 || c < best {
					best = c
					bestM = m
				}
			}
			cost[i][j] = best
			split[i][j] = bestM
		}
	}
	var emit func(i, j int)
	emit = func(i, j int) {
		if j-i < 2 {
			return
		}
		m := split[i][j]
		addPolygon(sink, []r3.Vec{verts[i], verts[m], verts[j]})
		emit(i, m)
		emit(m, j)
	}
	emit(0, k-1)
}
