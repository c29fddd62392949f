package transform

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

const prec = 128

// Matrix is a dense row-major matrix. Transforms use it in homogeneous form:
// a transform from n source dimensions to m target dimensions is represented
// by a (m+1) x (n+1) matrix whose last row is [0 ... 0 1].
type Matrix struct {
	rows, cols int
	m          []float64
}

// NewMatrix creates a zero matrix of the given size.
func NewMatrix(rows, cols int) *Matrix {
	if rows < 1 || cols < 1 {
		panic(fmt.Sprintf("invalid matrix size %dx%d", rows, cols))
	}
	return &Matrix{rows: rows, cols: cols, m: make([]float64, rows*cols)}
}

// IdentityMatrix creates an identity matrix of the given size.
func IdentityMatrix(size int) *Matrix {
	m := NewMatrix(size, size)
	for i := 0; i < size; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

func (m *Matrix) At(i, j int) float64 {
	return m.m[i*m.cols+j]
}

func (m *Matrix) Set(i, j int, v float64) {
	m.m[i*m.cols+j] = v
}

// Clone returns a deep copy of the matrix.
func (m *Matrix) Clone() *Matrix {
	c := NewMatrix(m.rows, m.cols)
	copy(c.m, m.m)
	return c
}

// Mul computes m x o with high-precision accumulation, so that concatenating
// transforms with large offsets does not lose pixel-level accuracy.
func (m *Matrix) Mul(o *Matrix) *Matrix {
	if m.cols != o.rows {
		panic(fmt.Sprintf("matrix size mismatch: %dx%d x %dx%d", m.rows, m.cols, o.rows, o.cols))
	}
	r := NewMatrix(m.rows, o.cols)
	acc := new(big.Float).SetPrec(prec)
	t := new(big.Float).SetPrec(prec)
	f := new(big.Float).SetPrec(prec)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < o.cols; j++ {
			acc.SetFloat64(0)
			for k := 0; k < m.cols; k++ {
				a, b := m.At(i, k), o.At(k, j)
				if a == 0 || b == 0 {
					continue // Avoid 0*Inf producing NaN in degenerate inputs.
				}
				t.SetFloat64(a)
				f.SetFloat64(b)
				acc.Add(acc, t.Mul(t, f))
			}
			v, _ := acc.Float64()
			r.Set(i, j, v)
		}
	}
	return r
}

// Inverse computes the inverse by Gauss-Jordan elimination with partial pivoting.
// Returns an error if the matrix is not square or is singular.
func (m *Matrix) Inverse() (*Matrix, error) {
	if m.rows != m.cols {
		return nil, fmt.Errorf("cannot invert %dx%d matrix", m.rows, m.cols)
	}
	n := m.rows
	a := m.Clone()
	inv := IdentityMatrix(n)
	for col := 0; col < n; col++ {
		pivot := col
		max := math.Abs(a.At(col, col))
		for i := col + 1; i < n; i++ {
			if v := math.Abs(a.At(i, col)); v > max {
				max, pivot = v, i
			}
		}
		if max == 0 {
			return nil, fmt.Errorf("singular matrix")
		}
		if pivot != col {
			a.swapRows(pivot, col)
			inv.swapRows(pivot, col)
		}
		d := a.At(col, col)
		for j := 0; j < n; j++ {
			a.Set(col, j, a.At(col, j)/d)
			inv.Set(col, j, inv.At(col, j)/d)
		}
		for i := 0; i < n; i++ {
			if i == col {
				continue
			}
			f := a.At(i, col)
			if f == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				a.Set(i, j, a.At(i, j)-f*a.At(col, j))
				inv.Set(i, j, inv.At(i, j)-f*inv.At(col, j))
			}
		}
	}
	return inv, nil
}

func (m *Matrix) swapRows(i, j int) {
	for k := 0; k < m.cols; k++ {
		m.m[i*m.cols+k], m.m[j*m.cols+k] = m.m[j*m.cols+k], m.m[i*m.cols+k]
	}
}

// IsAffine reports whether the last row is [0 ... 0 1].
func (m *Matrix) IsAffine() bool {
	last := m.rows - 1
	for j := 0; j < m.cols-1; j++ {
		if m.At(last, j) != 0 {
			return false
		}
	}
	return m.At(last, m.cols-1) == 1
}

// IsIdentity reports whether the matrix is the identity within tol.
func (m *Matrix) IsIdentity(tol float64) bool {
	if m.rows != m.cols {
		return false
	}
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(m.At(i, j)-want) > tol {
				return false
			}
		}
	}
	return true
}

// IsTranslation reports whether the matrix is an identity with arbitrary
// translation terms, within tol.
func (m *Matrix) IsTranslation(tol float64) bool {
	if m.rows != m.cols {
		return false
	}
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols-1; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(m.At(i, j)-want) > tol {
				return false
			}
		}
	}
	return math.Abs(m.At(m.rows-1, m.cols-1)-1) <= tol
}

// IsSignedPermutation reports whether the linear part is a permutation matrix
// with entries of ±1 and all translation terms are integers, within tol.
// Such transforms only reorder, flip and shift grid cells: they can be applied
// as a view over existing pixels without resampling.
func (m *Matrix) IsSignedPermutation(tol float64) bool {
	if m.rows != m.cols || !m.IsAffine() {
		return false
	}
	n := m.rows - 1
	usedCols := make([]bool, n)
	for i := 0; i < n; i++ {
		found := -1
		for j := 0; j < n; j++ {
			v := math.Abs(m.At(i, j))
			if v <= tol {
				continue
			}
			if math.Abs(v-1) > tol || found >= 0 || usedCols[j] {
				return false
			}
			found = j
		}
		if found < 0 {
			return false
		}
		usedCols[found] = true
		off := m.At(i, n)
		if math.Abs(off-math.Round(off)) > tol {
			return false
		}
	}
	return true
}

// Equal reports element-wise equality within tol.
func (m *Matrix) Equal(o *Matrix, tol float64) bool {
	if m.rows != o.rows || m.cols != o.cols {
		return false
	}
	for i := range m.m {
		if math.Abs(m.m[i]-o.m[i]) > tol {
			return false
		}
	}
	return true
}

func (m *Matrix) String() string {
	var sb strings.Builder
	for i := 0; i < m.rows; i++ {
		sb.WriteByte('[')
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%g", m.At(i, j))
		}
		sb.WriteString("]\n")
	}
	return sb.String()
}
