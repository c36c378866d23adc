package sparsemat

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// buildRandomSPD returns a sparse SymmetricMatrix and its dense
// gonum/mat.Dense mirror, diagonally dominant so CG is guaranteed to
// converge.
func buildRandomSPD(n int, seed int64) (*SymmetricMatrix, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	m := NewSymmetricMatrix(n)
	dense := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		rowSum := 0.0
		for j := i + 1; j < n; j++ {
			if rng.Float64() < 0.3 {
				v := rng.NormFloat64()
				m.Set(i, j, v)
				dense.Set(i, j, v)
				dense.Set(j, i, v)
				rowSum += math.Abs(v)
			}
		}
		diag := rowSum + float64(n) // diagonally dominant
		m.Set(i, i, diag)
		dense.Set(i, i, diag)
	}
	return m, dense
}

func denseMulVec(d *mat.Dense, x []float64) []float64 {
	n := len(x)
	xv := mat.NewVecDense(n, x)
	var yv mat.VecDense
	yv.MulVec(d, xv)
	out := make([]float64, n)
	for i := range out {
		out[i] = yv.AtVec(i)
	}
	return out
}

func TestMulVecMatchesDenseReference(t *testing.T) {
	const n = 20
	m, dense := buildRandomSPD(n, 1)
	x := make([]float64, n)
	rng := rand.New(rand.NewSource(2))
	for i := range x {
		x[i] = rng.NormFloat64()
	}
	got := make([]float64, n)
	m.MulVec(got, x)
	want := denseMulVec(dense, x)
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("row %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestMulVecParallelMatchesSequential(t *testing.T) {
	const n = 37
	m, _ := buildRandomSPD(n, 3)
	x := make([]float64, n)
	rng := rand.New(rand.NewSource(4))
	for i := range x {
		x[i] = rng.NormFloat64()
	}
	seq := make([]float64, n)
	par := make([]float64, n)
	m.MulVec(seq, x)
	m.MulVecParallel(par, x, 4)
	for i := range seq {
		if math.Abs(seq[i]-par[i]) > 1e-9 {
			t.Fatalf("row %d: seq %v par %v", i, seq[i], par[i])
		}
	}
}

func TestSolveConverges(t *testing.T) {
	const n = 30
	m, dense := buildRandomSPD(n, 5)
	rng := rand.New(rand.NewSource(6))
	b := make([]float64, n)
	for i := range b {
		b[i] = rng.NormFloat64()
	}
	x := make([]float64, n)
	iters := Solve(m, b, x, 200, 1e-10, true, 1, false)
	if iters == 0 {
		t.Fatal("expected at least one CG iteration")
	}
	got := denseMulVec(dense, x)
	for i := range got {
		if math.Abs(got[i]-b[i]) > 1e-4 {
			t.Fatalf("residual too large at %d: Ax=%v b=%v", i, got[i], b[i])
		}
	}
}

func TestSolveMonotoneResidual(t *testing.T) {
	const n = 25
	m, _ := buildRandomSPD(n, 7)
	rng := rand.New(rand.NewSource(8))
	b := make([]float64, n)
	for i := range b {
		b[i] = rng.NormFloat64()
	}
	var prevResidual float64 = math.MaxFloat64
	for _, iters := range []int{1, ResidualRefreshInterval, 2 * ResidualRefreshInterval} {
		x := make([]float64, n)
		Solve(m, b, x, iters, 1e-14, true, 1, false)
		ax := make([]float64, n)
		m.MulVec(ax, x)
		res := 0.0
		for i := range ax {
			d := ax[i] - b[i]
			res += d * d
		}
		if res > prevResidual+1e-9 {
			t.Fatalf("residual increased: %v -> %v across refresh boundary", prevResidual, res)
		}
		prevResidual = res
	}
}

func TestIterationCountFloor(t *testing.T) {
	if got := IterationCount(8, 5); got != 5 {
		t.Fatalf("got %d want 5 (floor)", got)
	}
	if got := IterationCount(1000, 1); got != 10 {
		t.Fatalf("got %d want 10 (cube root)", got)
	}
}
