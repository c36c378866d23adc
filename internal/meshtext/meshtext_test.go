package meshtext

import (
	"bufio"
	"bytes"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/poissonrecon/meshio"
)

func TestWriteReadMeshRoundTrip(t *testing.T) {
	sink := meshio.NewMemorySink()
	a := sink.AddInCorePoint(meshio.Vertex{Position: r3.Vec{X: 0, Y: 0, Z: 0}, Density: 1.5, HasDensity: true})
	b := sink.AddInCorePoint(meshio.Vertex{Position: r3.Vec{X: 1, Y: 0, Z: 0}, Density: 2.5, HasDensity: true})
	c := sink.AddOutOfCorePoint(meshio.Vertex{Position: r3.Vec{X: 0, Y: 1, Z: 0}, Density: 3.5, HasDensity: true})
	sink.AddPolygon([]meshio.PolygonVertex{
		{Index: a, InCore: true},
		{Index: b, InCore: true},
		{Index: c, InCore: false},
	})

	var buf bytes.Buffer
	if err := WriteMesh(&buf, sink); err != nil {
		t.Fatalf("WriteMesh: %v", err)
	}

	m, err := ReadMesh(&buf)
	if err != nil {
		t.Fatalf("ReadMesh: %v", err)
	}
	if len(m.Vertices) != 3 {
		t.Fatalf("len(Vertices) = %d, want 3", len(m.Vertices))
	}
	if len(m.Faces) != 1 || len(m.Faces[0]) != 3 {
		t.Fatalf("Faces = %v, want one triangle", m.Faces)
	}
	want := []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}
	for i, v := range m.Vertices {
		if v.Position != want[i] {
			t.Errorf("vertex %d position = %v, want %v", i, v.Position, want[i])
		}
		if !v.HasDensity {
			t.Errorf("vertex %d missing density", i)
		}
	}
}

func TestWritePointsFormat(t *testing.T) {
	samples := []meshio.Sample{
		{Position: r3.Vec{X: 1, Y: 2, Z: 3}, Normal: r3.Vec{X: 0, Y: 0, Z: 1}},
		{Position: r3.Vec{X: 4, Y: 5, Z: 6}, Normal: r3.Vec{X: 1, Y: 0, Z: 0}},
	}
	var buf bytes.Buffer
	if err := WritePoints(&buf, samples); err != nil {
		t.Fatalf("WritePoints: %v", err)
	}

	pf := &PointFile{path: "<in-memory>"}
	pf.sc = bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	var got []meshio.Sample
	for {
		s, ok, err := pf.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, s)
	}
	if len(got) != len(samples) {
		t.Fatalf("read %d samples, want %d", len(got), len(samples))
	}
	for i, s := range got {
		if s.Position != samples[i].Position || s.Normal != samples[i].Normal {
			t.Errorf("sample %d = %+v, want %+v", i, s, samples[i])
		}
	}
}

func TestReadMeshRejectsMalformedFace(t *testing.T) {
	_, err := ReadMesh(bytes.NewBufferString(meshMagic + "\nv 0 0 0\nf notanumber\n"))
	if err == nil {
		t.Fatal("expected an error for a malformed face index")
	}
}
