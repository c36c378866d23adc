// Package trimmer implements a simplified stand-in for the
// SurfaceTrimmer post-processor spec.md §1 lists as an external
// collaborator ("the surface-trimmer post-processor ... referenced
// only through the interfaces listed in §6"): cmd/surfacetrimmer
// needs something to actually run, but the original's internals
// (half-edge mesh traversal, precise hole-filling by boundary-loop
// retriangulation) are out of scope here. This package implements
// only the density-threshold component removal spec.md §8's E4
// scenario describes ("removes low-density components; total
// triangle count strictly decreases; remaining components are each
// watertight") and does not attempt E5's hole-filling mode.
package trimmer

import (
	"github.com/soypat/poissonrecon/internal/meshtext"
)

// Config bundles the --trim/--aRatio flags of spec.md §6's trim
// command.
type Config struct {
	// Trim is the density threshold (in the same units as the
	// reconstruction's --density output): components whose average
	// per-vertex density falls below Trim are dropped.
	Trim float64
	// ARatio scales Trim by the mesh's own average density
	// (threshold = Trim, unless ARatio > 0, in which case threshold =
	// ARatio * meshAverageDensity), matching the original's aRatio
	// knob for scale-independent trimming.
	ARatio float64
}

// Result reports what Trim removed.
type Result struct {
	ComponentsTotal   int
	ComponentsDropped int
	TrianglesBefore   int
	TrianglesAfter    int
}

// Trim removes every connected component of m whose average vertex
// density is below the effective threshold, returning a new Mesh with
// only the kept components' vertices/faces (renumbered) and a Result
// summarizing what was dropped.
func Trim(m *meshtext.Mesh, cfg Config) (*meshtext.Mesh, Result) {
	comps := componentsOf(m)
	threshold := cfg.Trim
	if cfg.ARatio > 0 {
		threshold = cfg.ARatio * averageDensity(m)
	}

	res := Result{ComponentsTotal: len(comps), TrianglesBefore: len(m.Faces)}
	out := &meshtext.Mesh{}
	remap := make([]int, len(m.Vertices))
	for i := range remap {
		remap[i] = -1
	}

	for _, comp := range comps {
		if componentAverageDensity(m, comp) < threshold {
			res.ComponentsDropped++
			continue
		}
		for _, vi := range comp.vertices {
			remap[vi] = len(out.Vertices)
			out.Vertices = append(out.Vertices, m.Vertices[vi])
		}
		for _, fi := range comp.faces {
			face := m.Faces[fi]
			newFace := make([]int, len(face))
			for k, vi := range face {
				newFace[k] = remap[vi]
			}
			out.Faces = append(out.Faces, newFace)
		}
	}
	res.TrianglesAfter = len(out.Faces)
	return out, res
}

type component struct {
	vertices []int
	faces    []int
}

// componentsOf groups the mesh's faces (and the vertices they
// reference) into connected components under face-adjacency-by-shared-
// vertex, via a union-find over vertex indices.
func componentsOf(m *meshtext.Mesh) []component {
	parent := make([]int, len(m.Vertices))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	for _, face := range m.Faces {
		for i := 1; i < len(face); i++ {
			union(face[0], face[i])
		}
	}

	byRoot := make(map[int]*component)
	order := []int{}
	for vi := range m.Vertices {
		r := find(vi)
		c, ok := byRoot[r]
		if !ok {
			c = &component{}
			byRoot[r] = c
			order = append(order, r)
		}
		c.vertices = append(c.vertices, vi)
	}
	for fi, face := range m.Faces {
		r := find(face[0])
		byRoot[r].faces = append(byRoot[r].faces, fi)
	}

	comps := make([]component, 0, len(order))
	for _, r := range order {
		comps = append(comps, *byRoot[r])
	}
	return comps
}

func averageDensity(m *meshtext.Mesh) float64 {
	if len(m.Vertices) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range m.Vertices {
		sum += v.Density
	}
	return sum / float64(len(m.Vertices))
}

func componentAverageDensity(m *meshtext.Mesh, c component) float64 {
	if len(c.vertices) == 0 {
		return 0
	}
	sum := 0.0
	for _, vi := range c.vertices {
		sum += m.Vertices[vi].Density
	}
	return sum / float64(len(c.vertices))
}
