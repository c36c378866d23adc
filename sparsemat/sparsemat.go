// Package sparsemat implements the row-stored upper-triangular
// symmetric matrix and conjugate-gradient solver of spec.md §4.2.
package sparsemat

import "math"

// Entry is one (column, value) pair in a matrix row.
type Entry struct {
	Col   int
	Value float64
}

// SymmetricMatrix stores only the upper-triangular half of a symmetric
// matrix (including the diagonal): row i holds entries for columns
// j >= i. MulVec reconstructs the symmetric contribution from the
// lower half implicitly.
type SymmetricMatrix struct {
	Rows [][]Entry
}

// NewSymmetricMatrix allocates a matrix with n empty rows.
func NewSymmetricMatrix(n int) *SymmetricMatrix {
	return &SymmetricMatrix{Rows: make([][]Entry, n)}
}

// N returns the matrix dimension.
func (m *SymmetricMatrix) N() int { return len(m.Rows) }

// Set appends an entry (col, value) to row, used during assembly when
// the caller has already deduplicated columns within a row (spec.md
// §5's "matrix row assembly" is expected to build each row once).
func (m *SymmetricMatrix) Set(row, col int, value float64) {
	m.Rows[row] = append(m.Rows[row], Entry{Col: col, Value: value})
}

// MulVec computes dst = A*x, applying the symmetric complement of the
// upper-triangular storage: each stored entry (i,j,v) contributes
// v*x[j] to dst[i] and, for j != i, v*x[i] to dst[j].
func (m *SymmetricMatrix) MulVec(dst, x []float64) {
	for i := range dst {
		dst[i] = 0
	}
	for i, row := range m.Rows {
		xi := x[i]
		for _, e := range row {
			dst[i] += e.Value * x[e.Col]
			if e.Col != i {
				dst[e.Col] += e.Value * xi
			}
		}
	}
}

// MulVecParallel is the row-parallel variant of MulVec described in
// spec.md §5 ("CG inner loops ... vector ops and mat-vec parallelize
// by row index; per-thread scratch vectors are used for the mat-vec
// accumulation, then reduced"). threads <= 1 behaves like MulVec.
func (m *SymmetricMatrix) MulVecParallel(dst, x []float64, threads int) {
	if threads <= 1 {
		m.MulVec(dst, x)
		return
	}
	n := len(dst)
	scratch := make([][]float64, threads)
	for t := range scratch {
		scratch[t] = make([]float64, n)
	}
	done := make(chan int, threads)
	chunk := (n + threads - 1) / threads
	for t := 0; t < threads; t++ {
		go func(t int) {
			lo, hi := t*chunk, min((t+1)*chunk, n)
			acc := scratch[t]
			for i := lo; i < hi; i++ {
				xi := x[i]
				for _, e := range m.Rows[i] {
					acc[i] += e.Value * x[e.Col]
					if e.Col != i {
						acc[e.Col] += e.Value * xi
					}
				}
			}
			done <- t
		}(t)
	}
	for t := 0; t < threads; t++ {
		<-done
	}
	for i := range dst {
		dst[i] = 0
	}
	for t := 0; t < threads; t++ {
		for i := range dst {
			dst[i] += scratch[t][i]
		}
	}
}

// ResidualRefreshInterval is the CG iteration count after which the
// true residual b-Ax is recomputed from scratch rather than updated
// incrementally, bounding floating-point drift (spec.md §4.2).
const ResidualRefreshInterval = 50

// Solve runs conjugate-gradient on (A + addDC*(1/n)*ones*ones^T)x = b
// for up to iters iterations, writing the result into x (spec.md
// §4.2). If reset is true, x is zeroed before starting; otherwise the
// existing contents of x seed the iteration. The refreshed residual is
// recomputed every ResidualRefreshInterval iterations. Returns the
// number of iterations performed.
func Solve(a *SymmetricMatrix, b, x []float64, iters int, eps float64, reset bool, threads int, addDCTerm bool) int {
	n := a.N()
	if reset {
		for i := range x {
			x[i] = 0
		}
	}
	applyA := func(dst, v []float64) {
		a.MulVecParallel(dst, v, threads)
		if addDCTerm && n > 0 {
			mean := 0.0
			for _, vi := range v {
				mean += vi
			}
			mean /= float64(n)
			for i := range dst {
				dst[i] += mean
			}
		}
	}

	r := make([]float64, n)
	ax := make([]float64, n)
	applyA(ax, x)
	for i := range r {
		r[i] = b[i] - ax[i]
	}
	p := make([]float64, n)
	copy(p, r)

	rr := dot(r, r)
	initRR := rr
	if initRR == 0 {
		return 0
	}

	ap := make([]float64, n)
	it := 0
	for ; it < iters; it++ {
		if rr <= eps*eps*initRR {
			break
		}
		applyA(ap, p)
		pap := dot(p, ap)
		if pap == 0 {
			break
		}
		alpha := rr / pap
		for i := range x {
			x[i] += alpha * p[i]
		}
		if (it+1)%ResidualRefreshInterval == 0 {
			applyA(ax, x)
			for i := range r {
				r[i] = b[i] - ax[i]
			}
		} else {
			for i := range r {
				r[i] -= alpha * ap[i]
			}
		}
		newRR := dot(r, r)
		beta := newRR / rr
		for i := range p {
			p[i] = r[i] + beta*p[i]
		}
		rr = newRR
	}
	return it
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// IterationCount returns the default CG iteration count for a solve
// of the given row count, max(rows^(1/3), minIters), per spec.md §6.
func IterationCount(rows, minIters int) int {
	n := int(math.Ceil(math.Cbrt(float64(rows))))
	if n < minIters {
		return minIters
	}
	return n
}
