package octree

import (
	"math"
	"testing"

	"github.com/soypat/poissonrecon/boundary"
	"github.com/soypat/poissonrecon/bspline"
)

func TestLaplacianStencilSymmetric(t *testing.T) {
	table := bspline.NewTable(boundary.Free, 6)
	s := NewLaplacianStencil(table, 4)
	for dz := -2; dz <= 2; dz++ {
		for dy := -2; dy <= 2; dy++ {
			for dx := -2; dx <= 2; dx++ {
				a := s.At(dx, dy, dz)
				b := s.At(-dx, -dy, -dz)
				if math.Abs(a-b) > 1e-9 {
					t.Fatalf("Laplacian(%d,%d,%d)=%v != Laplacian(%d,%d,%d)=%v", dx, dy, dz, a, -dx, -dy, -dz, b)
				}
			}
		}
	}
}

func TestLaplacianStencilDiagonalPositive(t *testing.T) {
	table := bspline.NewTable(boundary.Free, 6)
	s := NewLaplacianStencil(table, 4)
	if s.At(0, 0, 0) <= 0 {
		t.Fatalf("expected positive self-Laplacian, got %v", s.At(0, 0, 0))
	}
}

func TestLaplacianStencilOutOfRangeZero(t *testing.T) {
	table := bspline.NewTable(boundary.Free, 6)
	s := NewLaplacianStencil(table, 4)
	if got := s.At(3, 0, 0); got != 0 {
		t.Fatalf("expected zero beyond support, got %v", got)
	}
}

func TestDivergenceStencilAntisymmetricAlongAxis(t *testing.T) {
	table := bspline.NewTable(boundary.Free, 6)
	s := NewDivergenceStencil(table, 4)
	// DerivValue is antisymmetric about offset 0, so the x-axis
	// divergence term should flip sign under dx -> -dx.
	a := s.At(0, 1, 0, 0)
	b := s.At(0, -1, 0, 0)
	if math.Abs(a+b) > 1e-9 {
		t.Fatalf("expected antisymmetry, got %v and %v", a, b)
	}
}
