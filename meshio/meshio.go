// Package meshio defines the external point-stream and mesh-sink
// contracts of spec.md §6, plus an in-memory mesh sink that satisfies
// them without touching disk. PLY-format readers/writers are
// explicitly out of scope (spec.md §1's "external collaborators");
// callers wire their own PointSource/MeshSink to this package's
// consumers.
package meshio

import (
	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/spatial/r3"
)

// Sample is one oriented point read from a PointSource.
type Sample struct {
	Position r3.Vec
	Normal   r3.Vec
}

// PointSource is the reset-able input cursor of spec.md §6: the
// pipeline calls Reset then Next exactly twice in full (the bounds
// pass, then the splat+screen pass) and never persists cursor state
// across calls.
type PointSource interface {
	Reset() error
	// Next reads the next sample. It returns ok=false (with a nil
	// error) at end of stream.
	Next() (s Sample, ok bool, err error)
}

// Vertex is one mesh vertex, with an optional density scalar attached
// when --density is requested (spec.md §6's E3 scenario).
type Vertex struct {
	Position   r3.Vec
	Density    float64
	HasDensity bool
}

// PolygonVertex references a vertex already stored in a MeshSink,
// either in-core (deduplicated, boundary) or out-of-core (interior).
type PolygonVertex struct {
	Index  int
	InCore bool
}

// MeshSink is the output contract of spec.md §6: boundary vertices
// are deduplicated through the in-core table, interior vertices are
// appended out-of-core, and polygons reference either by index.
type MeshSink interface {
	AddInCorePoint(v Vertex) int
	AddOutOfCorePoint(v Vertex) int
	InCorePoint(i int) Vertex
	AddPolygon(vs []PolygonVertex)
	OutOfCorePointCount() int
}

// MemorySink is a MeshSink that keeps everything resident, for
// callers that don't need an out-of-core file format (this module's
// own tests and the cmd/poissonrecon CLI use it).
type MemorySink struct {
	inCore    []Vertex
	outOfCore []Vertex
	Polygons  [][]PolygonVertex

	// dedup maps a quantized in-core position to its index, so that
	// boundary vertices shared by several subtrees collapse to one
	// entry (spec.md §4.8 step 4's "global boundary-key map").
	dedup map[[3]int64]int

	// DroppedTriangles counts triangle polygons rejected by
	// badTriangle (NaN/Inf or degenerate), the same triangle-level
	// check render/stl.go runs before writing an STL triangle.
	DroppedTriangles int
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{dedup: make(map[[3]int64]int)}
}

const dedupScale = 1 << 20

func quantize(p r3.Vec) [3]int64 {
	return [3]int64{
		int64(p.X * dedupScale),
		int64(p.Y * dedupScale),
		int64(p.Z * dedupScale),
	}
}

// AddInCorePoint stores v, returning the index of an existing entry
// at (quantized) the same position if one exists.
func (s *MemorySink) AddInCorePoint(v Vertex) int {
	key := quantize(v.Position)
	if i, ok := s.dedup[key]; ok {
		return i
	}
	i := len(s.inCore)
	s.inCore = append(s.inCore, v)
	s.dedup[key] = i
	return i
}

// AddOutOfCorePoint appends v unconditionally and returns its index.
func (s *MemorySink) AddOutOfCorePoint(v Vertex) int {
	i := len(s.outOfCore)
	s.outOfCore = append(s.outOfCore, v)
	return i
}

// InCorePoint reads back an in-core vertex by index.
func (s *MemorySink) InCorePoint(i int) Vertex { return s.inCore[i] }

// InCorePointCount returns the number of deduplicated in-core vertices
// stored so far.
func (s *MemorySink) InCorePointCount() int { return len(s.inCore) }

// OutOfCorePoint reads back an out-of-core vertex by index.
func (s *MemorySink) OutOfCorePoint(i int) Vertex { return s.outOfCore[i] }

// OutOfCorePointCount returns the number of out-of-core vertices
// stored so far, used by the extractor to partition interior vertex
// indices per subtree.
func (s *MemorySink) OutOfCorePointCount() int { return len(s.outOfCore) }

// AddPolygon records a face referencing already-stored vertices. A
// 3-vertex face is validated the way render/stl.go validates an STL
// triangle before writing it (finite coordinates, not degenerate); a
// face that fails is dropped and counted in DroppedTriangles instead of
// aborting the extraction (spec.md §7's topological errors are
// diagnostics, not aborts).
func (s *MemorySink) AddPolygon(vs []PolygonVertex) {
	if len(vs) == 3 {
		a, b, c := s.Resolve(vs[0]).Position, s.Resolve(vs[1]).Position, s.Resolve(vs[2]).Position
		if badTriangle(a, b, c) {
			s.DroppedTriangles++
			return
		}
	}
	s.Polygons = append(s.Polygons, vs)
}

const degenerateTol float32 = 1e-6

// badTriangle reports whether any vertex has a non-finite coordinate or
// any two vertices coincide within tolerance, mirroring
// render/stl.go's bad3F32/degenerate pair.
func badTriangle(a, b, c r3.Vec) bool {
	return badVec32(a) || badVec32(b) || badVec32(c) ||
		equalWithin32(a, b, degenerateTol) ||
		equalWithin32(b, c, degenerateTol) ||
		equalWithin32(c, a, degenerateTol)
}

func badVec32(v r3.Vec) bool {
	x, y, z := float32(v.X), float32(v.Y), float32(v.Z)
	return math32.IsNaN(x) || math32.IsInf(x, 0) ||
		math32.IsNaN(y) || math32.IsInf(y, 0) ||
		math32.IsNaN(z) || math32.IsInf(z, 0)
}

func equalWithin32(a, b r3.Vec, tol float32) bool {
	return math32.Abs(float32(a.X-b.X)) <= tol &&
		math32.Abs(float32(a.Y-b.Y)) <= tol &&
		math32.Abs(float32(a.Z-b.Z)) <= tol
}

// Resolve returns the world-space position of a polygon vertex
// reference, looking it up in whichever table it points into.
func (s *MemorySink) Resolve(pv PolygonVertex) Vertex {
	if pv.InCore {
		return s.inCore[pv.Index]
	}
	return s.outOfCore[pv.Index]
}

// TriangleCount returns the number of 3-vertex polygons recorded.
func (s *MemorySink) TriangleCount() int {
	n := 0
	for _, p := range s.Polygons {
		if len(p) == 3 {
			n++
		}
	}
	return n
}

// SliceSource adapts an in-memory sample slice to PointSource, for
// tests and for callers that already hold every sample in RAM.
type SliceSource struct {
	samples []Sample
	pos     int
}

// NewSliceSource returns a PointSource over samples.
func NewSliceSource(samples []Sample) *SliceSource {
	return &SliceSource{samples: samples}
}

func (s *SliceSource) Reset() error { s.pos = 0; return nil }

func (s *SliceSource) Next() (Sample, bool, error) {
	if s.pos >= len(s.samples) {
		return Sample{}, false, nil
	}
	sample := s.samples[s.pos]
	s.pos++
	return sample, true, nil
}
