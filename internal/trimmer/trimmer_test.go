package trimmer

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/poissonrecon/internal/meshtext"
	"github.com/soypat/poissonrecon/meshio"
)

// twoTriangleMesh builds two disjoint triangles (two components): one
// with high density, one with low density.
func twoTriangleMesh() *meshtext.Mesh {
	return &meshtext.Mesh{
		Vertices: []meshio.Vertex{
			{Position: r3.Vec{X: 0, Y: 0, Z: 0}, Density: 10, HasDensity: true},
			{Position: r3.Vec{X: 1, Y: 0, Z: 0}, Density: 10, HasDensity: true},
			{Position: r3.Vec{X: 0, Y: 1, Z: 0}, Density: 10, HasDensity: true},
			{Position: r3.Vec{X: 10, Y: 10, Z: 10}, Density: 1, HasDensity: true},
			{Position: r3.Vec{X: 11, Y: 10, Z: 10}, Density: 1, HasDensity: true},
			{Position: r3.Vec{X: 10, Y: 11, Z: 10}, Density: 1, HasDensity: true},
		},
		Faces: [][]int{
			{0, 1, 2},
			{3, 4, 5},
		},
	}
}

func TestTrimDropsLowDensityComponent(t *testing.T) {
	m := twoTriangleMesh()
	out, res := Trim(m, Config{Trim: 5})

	if res.ComponentsTotal != 2 {
		t.Fatalf("ComponentsTotal = %d, want 2", res.ComponentsTotal)
	}
	if res.ComponentsDropped != 1 {
		t.Fatalf("ComponentsDropped = %d, want 1", res.ComponentsDropped)
	}
	if res.TrianglesAfter >= res.TrianglesBefore {
		t.Fatalf("triangle count did not strictly decrease: before=%d after=%d", res.TrianglesBefore, res.TrianglesAfter)
	}
	if len(out.Faces) != 1 {
		t.Fatalf("len(out.Faces) = %d, want 1", len(out.Faces))
	}
	if len(out.Vertices) != 3 {
		t.Fatalf("len(out.Vertices) = %d, want 3", len(out.Vertices))
	}
	for _, face := range out.Faces {
		for _, vi := range face {
			if vi < 0 || vi >= len(out.Vertices) {
				t.Fatalf("face references out-of-range vertex %d (have %d vertices)", vi, len(out.Vertices))
			}
		}
	}
}

func TestTrimKeepsEverythingBelowThresholdZero(t *testing.T) {
	m := twoTriangleMesh()
	out, res := Trim(m, Config{Trim: 0})
	if res.ComponentsDropped != 0 {
		t.Fatalf("ComponentsDropped = %d, want 0 with a zero threshold", res.ComponentsDropped)
	}
	if len(out.Faces) != len(m.Faces) {
		t.Fatalf("len(out.Faces) = %d, want %d", len(out.Faces), len(m.Faces))
	}
}

func TestTrimARatioScalesThresholdByMeshAverage(t *testing.T) {
	m := twoTriangleMesh() // average density (10*3+1*3)/6 = 5.5
	out, res := Trim(m, Config{ARatio: 1.0})
	if res.ComponentsDropped != 1 {
		t.Fatalf("ComponentsDropped = %d, want 1 (low-density component below the mesh average)", res.ComponentsDropped)
	}
	if len(out.Vertices) != 3 {
		t.Fatalf("len(out.Vertices) = %d, want 3", len(out.Vertices))
	}
}
