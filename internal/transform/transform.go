// Package transform provides composition, inversion and separation of
// multi-dimensional coordinate transforms. Linear (affine) transforms are
// simplified algebraically; arbitrary transforms are supported through the
// Transform interface.
package transform

import (
	"fmt"
	"math"
)

// Transform maps coordinate tuples from a source space to a target space.
// Implementations must be immutable and safe for concurrent use.
type Transform interface {
	SourceDim() int
	TargetDim() int
	// Transform converts the given source coordinates. len(src) must equal SourceDim().
	Transform(src []float64) ([]float64, error)
	// Inverse returns the reverse transform, or an error if it does not exist.
	Inverse() (Transform, error)
}

// LinearTransform is implemented by transforms that can expose their
// homogeneous matrix.
type LinearTransform interface {
	Transform
	Matrix() *Matrix
}

// Linear is an affine transform backed by a homogeneous matrix.
type Linear struct {
	mat *Matrix // (targetDim+1) x (sourceDim+1), last row [0...0 1]
}

// NewLinear creates a linear transform from a homogeneous matrix.
func NewLinear(mat *Matrix) (*Linear, error) {
	if !mat.IsAffine() {
		return nil, fmt.Errorf("matrix last row must be [0 ... 0 1]:\n%v", mat)
	}
	return &Linear{mat: mat.Clone()}, nil
}

// MustLinear is NewLinear for matrices known to be affine. It panics on error.
func MustLinear(mat *Matrix) *Linear {
	l, err := NewLinear(mat)
	if err != nil {
		panic(err)
	}
	return l
}

// Identity creates the identity transform of the given dimension.
func Identity(dim int) *Linear {
	return &Linear{mat: IdentityMatrix(dim + 1)}
}

// Translation creates a transform adding the given offsets.
func Translation(offsets ...float64) *Linear {
	n := len(offsets)
	mat := IdentityMatrix(n + 1)
	for i, o := range offsets {
		mat.Set(i, n, o)
	}
	return &Linear{mat: mat}
}

// Scale creates a transform multiplying each coordinate by the given factor.
func Scale(factors ...float64) *Linear {
	n := len(factors)
	mat := IdentityMatrix(n + 1)
	for i, f := range factors {
		mat.Set(i, i, f)
	}
	return &Linear{mat: mat}
}

func (l *Linear) SourceDim() int { return l.mat.Cols() - 1 }
func (l *Linear) TargetDim() int { return l.mat.Rows() - 1 }

// Matrix returns a copy of the homogeneous matrix.
func (l *Linear) Matrix() *Matrix { return l.mat.Clone() }

func (l *Linear) Transform(src []float64) ([]float64, error) {
	if len(src) != l.SourceDim() {
		return nil, fmt.Errorf("expected %d coordinates, got %d", l.SourceDim(), len(src))
	}
	dst := make([]float64, l.TargetDim())
	cols := l.mat.Cols()
	for i := range dst {
		s := l.mat.At(i, cols-1)
		for j, v := range src {
			s += l.mat.At(i, j) * v
		}
		dst[i] = s
	}
	return dst, nil
}

func (l *Linear) Inverse() (Transform, error) {
	inv, err := l.mat.Inverse()
	if err != nil {
		return nil, fmt.Errorf("transform is not invertible: %w", err)
	}
	return &Linear{mat: inv}, nil
}

// concatenated applies steps in order. Adjacent linear steps have already
// been merged by Concatenate.
type concatenated struct {
	steps []Transform
}

func (c *concatenated) SourceDim() int { return c.steps[0].SourceDim() }
func (c *concatenated) TargetDim() int { return c.steps[len(c.steps)-1].TargetDim() }

func (c *concatenated) Transform(src []float64) ([]float64, error) {
	var err error
	for _, s := range c.steps {
		if src, err = s.Transform(src); err != nil {
			return nil, err
		}
	}
	return src, nil
}

func (c *concatenated) Inverse() (Transform, error) {
	inv := make([]Transform, len(c.steps))
	for i, s := range c.steps {
		t, err := s.Inverse()
		if err != nil {
			return nil, err
		}
		inv[len(c.steps)-1-i] = t
	}
	return Concatenate(inv...), nil
}

// Concatenate builds the transform applying the given steps in order.
// Identity steps are elided and adjacent linear steps are merged by matrix
// multiplication, so chains of affine transforms collapse to a single one.
func Concatenate(steps ...Transform) Transform {
	var flat []Transform
	for _, s := range steps {
		if s == nil {
			continue
		}
		if c, ok := s.(*concatenated); ok {
			flat = append(flat, c.steps...)
			continue
		}
		flat = append(flat, s)
	}
	var out []Transform
	for _, s := range flat {
		if l, ok := s.(LinearTransform); ok {
			if l.SourceDim() == l.TargetDim() && l.Matrix().IsIdentity(0) {
				continue
			}
			if len(out) > 0 {
				if prev, ok := out[len(out)-1].(LinearTransform); ok {
					// Applying prev then s is (matrix of s) x (matrix of prev).
					merged := l.Matrix().Mul(prev.Matrix())
					out[len(out)-1] = &Linear{mat: merged}
					continue
				}
			}
		}
		out = append(out, s)
	}
	switch len(out) {
	case 0:
		dim := 2
		if len(flat) > 0 {
			dim = flat[0].SourceDim()
		}
		return Identity(dim)
	case 1:
		return out[0]
	default:
		return &concatenated{steps: out}
	}
}

// IsIdentity reports whether the transform is the identity within tol.
// Non-linear transforms are conservatively reported as non-identity.
func IsIdentity(t Transform, tol float64) bool {
	if t.SourceDim() != t.TargetDim() {
		return false
	}
	if l, ok := t.(LinearTransform); ok {
		return l.Matrix().IsIdentity(tol)
	}
	return false
}

// Derivative returns the Jacobian of the transform at the given point as a
// TargetDim x SourceDim matrix. For linear transforms this is the exact linear
// part; otherwise it is approximated by central finite differences.
func Derivative(t Transform, point []float64) (*Matrix, error) {
	srcDim, tgtDim := t.SourceDim(), t.TargetDim()
	if l, ok := t.(LinearTransform); ok {
		mat := l.Matrix()
		d := NewMatrix(tgtDim, srcDim)
		for i := 0; i < tgtDim; i++ {
			for j := 0; j < srcDim; j++ {
				d.Set(i, j, mat.At(i, j))
			}
		}
		return d, nil
	}
	const eps = 1e-5
	d := NewMatrix(tgtDim, srcDim)
	p := make([]float64, srcDim)
	for j := 0; j < srcDim; j++ {
		h := eps * math.Max(1, math.Abs(point[j]))
		copy(p, point)
		p[j] = point[j] + h
		fwd, err := t.Transform(p)
		if err != nil {
			return nil, err
		}
		p[j] = point[j] - h
		bwd, err := t.Transform(p)
		if err != nil {
			return nil, err
		}
		for i := 0; i < tgtDim; i++ {
			d.Set(i, j, (fwd[i]-bwd[i])/(2*h))
		}
	}
	return d, nil
}
