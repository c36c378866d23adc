// Package meshtext implements a minimal ASCII point-cloud and mesh
// format for the CLI front ends in cmd/poissonrecon and
// cmd/surfacetrimmer. It is deliberately not a PLY codec: PLY-format
// point stream and mesh I/O are listed as external collaborators out
// of scope per spec.md §1, consumed only through meshio's
// PointSource/MeshSink interfaces. This format exists so the CLI
// binaries have something real to read and write end to end; callers
// that need PLY wire their own meshio.PointSource/meshio.MeshSink.
package meshtext

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/poissonrecon/meshio"
)

// pointsMagic/meshMagic tag the first line of each format, mirroring
// the header-line convention of simple line-oriented geometry formats
// (OBJ's leading comment, PLY's "ply" magic) without adopting either.
const (
	pointsMagic = "# poissonrecon points v1"
	meshMagic   = "# poissonrecon mesh v1"
)

// PointFile is a meshio.PointSource reading "x y z nx ny nz" lines
// from a file on disk, re-opening the file on every Reset so it
// satisfies the "called exactly twice in full, cursor state never
// persisted across calls" contract of spec.md §6.
type PointFile struct {
	path string
	f    *os.File
	sc   *bufio.Scanner
	line int
}

// OpenPoints opens path for reading as a point stream.
func OpenPoints(path string) (*PointFile, error) {
	pf := &PointFile{path: path}
	if err := pf.Reset(); err != nil {
		return nil, err
	}
	return pf, nil
}

// Reset rewinds the stream by reopening the underlying file.
func (p *PointFile) Reset() error {
	if p.f != nil {
		p.f.Close()
	}
	f, err := os.Open(p.path)
	if err != nil {
		return errors.Wrapf(err, "open %s", p.path)
	}
	p.f = f
	p.sc = bufio.NewScanner(f)
	p.sc.Buffer(make([]byte, 64*1024), 16<<20)
	p.line = 0
	return nil
}

// Close releases the underlying file handle.
func (p *PointFile) Close() error {
	if p.f == nil {
		return nil
	}
	return p.f.Close()
}

// Next reads the next sample, skipping blank lines and '#' comments.
func (p *PointFile) Next() (meshio.Sample, bool, error) {
	for p.sc.Scan() {
		p.line++
		line := strings.TrimSpace(p.sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 6 {
			return meshio.Sample{}, false, errors.Errorf("%s:%d: expected 6 fields (x y z nx ny nz), got %d", p.path, p.line, len(fields))
		}
		var v [6]float64
		for i, f := range fields {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return meshio.Sample{}, false, errors.Wrapf(err, "%s:%d: field %d", p.path, p.line, i)
			}
			v[i] = x
		}
		return meshio.Sample{
			Position: r3.Vec{X: v[0], Y: v[1], Z: v[2]},
			Normal:   r3.Vec{X: v[3], Y: v[4], Z: v[5]},
		}, true, nil
	}
	if err := p.sc.Err(); err != nil {
		return meshio.Sample{}, false, errors.Wrapf(err, "%s: read", p.path)
	}
	return meshio.Sample{}, false, nil
}

// WritePoints writes samples to w in the format PointFile reads.
func WritePoints(w io.Writer, samples []meshio.Sample) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, pointsMagic); err != nil {
		return err
	}
	for _, s := range samples {
		if _, err := fmt.Fprintf(bw, "%.9g %.9g %.9g %.9g %.9g %.9g\n",
			s.Position.X, s.Position.Y, s.Position.Z, s.Normal.X, s.Normal.Y, s.Normal.Z); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteMesh writes sink's in-core vertices, then its out-of-core
// vertices, then its polygons (referencing the concatenated vertex
// order by 0-based index) as "v x y z [density]" / "f i0 i1 ... "
// lines.
func WriteMesh(w io.Writer, sink *meshio.MemorySink) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, meshMagic); err != nil {
		return err
	}
	nIn := sink.InCorePointCount()
	for i := 0; i < nIn; i++ {
		if err := writeVertex(bw, sink.InCorePoint(i)); err != nil {
			return err
		}
	}
	nOut := sink.OutOfCorePointCount()
	for i := 0; i < nOut; i++ {
		if err := writeVertex(bw, sink.OutOfCorePoint(i)); err != nil {
			return err
		}
	}
	for _, poly := range sink.Polygons {
		if _, err := bw.WriteString("f"); err != nil {
			return err
		}
		for _, pv := range poly {
			idx := pv.Index
			if !pv.InCore {
				idx += nIn
			}
			if _, err := fmt.Fprintf(bw, " %d", idx); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeVertex(bw *bufio.Writer, v meshio.Vertex) error {
	var err error
	if v.HasDensity {
		_, err = fmt.Fprintf(bw, "v %.9g %.9g %.9g %.9g\n", v.Position.X, v.Position.Y, v.Position.Z, v.Density)
	} else {
		_, err = fmt.Fprintf(bw, "v %.9g %.9g %.9g\n", v.Position.X, v.Position.Y, v.Position.Z)
	}
	return err
}

// Mesh is the in-memory result of reading a meshtext mesh file, the
// shape cmd/surfacetrimmer operates on (it post-processes a mesh, not
// a point cloud, so it doesn't reuse meshio.PointSource).
type Mesh struct {
	Vertices []meshio.Vertex
	Faces    [][]int
}

// ReadMesh parses the format WriteMesh produces.
func ReadMesh(r io.Reader) (*Mesh, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16<<20)
	m := &Mesh{}
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			if len(fields) != 4 && len(fields) != 5 {
				return nil, errors.Errorf("line %d: malformed vertex %q", lineNo, line)
			}
			var v meshio.Vertex
			coords := make([]float64, len(fields)-1)
			for i, f := range fields[1:] {
				x, err := strconv.ParseFloat(f, 64)
				if err != nil {
					return nil, errors.Wrapf(err, "line %d: vertex field %d", lineNo, i)
				}
				coords[i] = x
			}
			v.Position = r3.Vec{X: coords[0], Y: coords[1], Z: coords[2]}
			if len(coords) == 4 {
				v.Density = coords[3]
				v.HasDensity = true
			}
			m.Vertices = append(m.Vertices, v)
		case "f":
			face := make([]int, 0, len(fields)-1)
			for _, f := range fields[1:] {
				idx, err := strconv.Atoi(f)
				if err != nil {
					return nil, errors.Wrapf(err, "line %d: face index %q", lineNo, f)
				}
				face = append(face, idx)
			}
			if len(face) < 3 {
				return nil, errors.Errorf("line %d: face needs >= 3 vertices, got %d", lineNo, len(face))
			}
			m.Faces = append(m.Faces, face)
		default:
			return nil, errors.Errorf("line %d: unknown record %q", lineNo, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteMeshRaw writes a Mesh (as produced by ReadMesh or by
// internal/trimmer) back out in the same format, for
// cmd/surfacetrimmer's output path.
func WriteMeshRaw(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, meshMagic); err != nil {
		return err
	}
	for _, v := range m.Vertices {
		if err := writeVertex(bw, v); err != nil {
			return err
		}
	}
	for _, face := range m.Faces {
		if _, err := bw.WriteString("f"); err != nil {
			return err
		}
		for _, idx := range face {
			if _, err := fmt.Fprintf(bw, " %d", idx); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
