// Package matrix implements the small dense linear algebra used by the
// regression engine: products, transposition and the Cholesky path
// (factorization plus triangular solves).
package matrix

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gpviz/gpviz/pkg/math/vector"
)

// ErrNotPositiveDefinite is returned by Cholesky when a pivot is not
// positive. The factorization is recoverable: callers are expected to keep
// their previous state and surface the condition.
var ErrNotPositiveDefinite = errors.New("matrix: not positive definite")

// M is a dense row-major matrix.
type M struct {
	rows, cols int
	data       []float64
}

// New returns a zero matrix of the given size.
func New(rows, cols int) M {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("matrix: invalid size %dx%d", rows, cols))
	}
	return M{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

func (m M) Rows() int {
	return m.rows
}

func (m M) Cols() int {
	return m.cols
}

func (m M) At(i, j int) float64 {
	return m.data[i*m.cols+j]
}

func (m M) Set(i, j int, value float64) {
	m.data[i*m.cols+j] = value
}

// Row returns a copy of the i-th row.
func (m M) Row(i int) vector.V {
	row := make(vector.V, m.cols)
	copy(row, m.data[i*m.cols:(i+1)*m.cols])
	return row
}

// T returns the transposed copy of the matrix.
func (m M) T() M {
	t := New(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			t.data[j*t.cols+i] = m.data[i*m.cols+j]
		}
	}
	return t
}

// Mul returns the product m * m1. The inner dimensions must agree.
func (m M) Mul(m1 M) M {
	if m.cols != m1.rows {
		panic(fmt.Sprintf("matrix: mul dimension mismatch %dx%d * %dx%d", m.rows, m.cols, m1.rows, m1.cols))
	}
	out := New(m.rows, m1.cols)
	for i := 0; i < m.rows; i++ {
		for k := 0; k < m.cols; k++ {
			a := m.data[i*m.cols+k]
			if a == 0 {
				continue
			}
			for j := 0; j < m1.cols; j++ {
				out.data[i*out.cols+j] += a * m1.data[k*m1.cols+j]
			}
		}
	}
	return out
}

// MulVec returns the product m * v.
func (m M) MulVec(v vector.V) vector.V {
	if m.cols != len(v) {
		panic(fmt.Sprintf("matrix: mulvec dimension mismatch %dx%d * %d", m.rows, m.cols, len(v)))
	}
	out := make(vector.V, m.rows)
	for i := 0; i < m.rows; i++ {
		var s float64
		for j := 0; j < m.cols; j++ {
			s += m.data[i*m.cols+j] * v[j]
		}
		out[i] = s
	}
	return out
}

// Cholesky factorizes a symmetric positive definite matrix as A = L * Lt
// and returns the lower triangular L. A non-positive pivot yields
// ErrNotPositiveDefinite.
func Cholesky(a M) (M, error) {
	if a.rows != a.cols {
		panic(fmt.Sprintf("matrix: cholesky of non-square %dx%d", a.rows, a.cols))
	}
	n := a.rows
	l := New(n, n)
	for j := 0; j < n; j++ {
		sum := a.At(j, j)
		for k := 0; k < j; k++ {
			sum -= l.At(j, k) * l.At(j, k)
		}
		if sum <= 0 || math.IsNaN(sum) {
			return M{}, fmt.Errorf("unable to factorize at pivot %d: %w", j, ErrNotPositiveDefinite)
		}
		l.Set(j, j, math.Sqrt(sum))
		for i := j + 1; i < n; i++ {
			sum := a.At(i, j)
			for k := 0; k < j; k++ {
				sum -= l.At(i, k) * l.At(j, k)
			}
			l.Set(i, j, sum/l.At(j, j))
		}
	}
	return l, nil
}

// SolveL solves L * x = b by forward substitution where L is lower
// triangular with a non-zero diagonal.
func SolveL(l M, b vector.V) vector.V {
	if l.rows != l.cols || l.rows != len(b) {
		panic(fmt.Sprintf("matrix: solve dimension mismatch %dx%d with %d", l.rows, l.cols, len(b)))
	}
	n := l.rows
	x := make(vector.V, n)
	for i := 0; i < n; i++ {
		s := b[i]
		for k := 0; k < i; k++ {
			s -= l.At(i, k) * x[k]
		}
		x[i] = s / l.At(i, i)
	}
	return x
}

// SolveLt solves Lt * x = b by back substitution where L is lower
// triangular with a non-zero diagonal.
func SolveLt(l M, b vector.V) vector.V {
	if l.rows != l.cols || l.rows != len(b) {
		panic(fmt.Sprintf("matrix: solve dimension mismatch %dx%d with %d", l.rows, l.cols, len(b)))
	}
	n := l.rows
	x := make(vector.V, n)
	for i := n - 1; i >= 0; i-- {
		s := b[i]
		for k := i + 1; k < n; k++ {
			s -= l.At(k, i) * x[k]
		}
		x[i] = s / l.At(i, i)
	}
	return x
}

// CholSolve solves A * x = b given the Cholesky factor L of A.
func CholSolve(l M, b vector.V) vector.V {
	return SolveLt(l, SolveL(l, b))
}
