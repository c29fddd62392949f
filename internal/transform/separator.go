package transform

import (
	"fmt"
	"math"
)

// ErrNonSeparable is returned by Separate when the requested target dimensions
// depend on source dimensions that were not selected. Callers are expected to
// fall back to evaluating the full transform (separation is an optimization,
// not a requirement).
type ErrNonSeparable struct {
	TargetDim, SourceDim int
}

func (e *ErrNonSeparable) Error() string {
	return fmt.Sprintf("target dimension %d depends on unselected source dimension %d", e.TargetDim, e.SourceDim)
}

// Separate extracts the sub-transform mapping the given source dimensions to
// the given target dimensions. The transform must be linear and the selected
// target dimensions must not depend on unselected source dimensions (within
// tol), otherwise an error is returned.
func Separate(t Transform, srcDims, tgtDims []int, tol float64) (*Linear, error) {
	l, ok := t.(LinearTransform)
	if !ok {
		return nil, fmt.Errorf("cannot separate a non-linear transform")
	}
	mat := l.Matrix()
	srcDim := t.SourceDim()
	selected := make([]bool, srcDim)
	for _, j := range srcDims {
		selected[j] = true
	}
	for _, i := range tgtDims {
		for j := 0; j < srcDim; j++ {
			if !selected[j] && math.Abs(mat.At(i, j)) > tol {
				return nil, &ErrNonSeparable{TargetDim: i, SourceDim: j}
			}
		}
	}
	sub := NewMatrix(len(tgtDims)+1, len(srcDims)+1)
	for si, i := range tgtDims {
		for sj, j := range srcDims {
			sub.Set(si, sj, mat.At(i, j))
		}
		sub.Set(si, len(srcDims), mat.At(i, srcDim))
	}
	sub.Set(len(tgtDims), len(srcDims), 1)
	return &Linear{mat: sub}, nil
}

// FixSourceDims pins the source dimensions not listed in keep to the values
// given in fixed (expressed in full source coordinates), producing a transform
// of len(keep) source dimensions and unchanged target dimensions. For linear
// transforms the pinned coordinates are folded into the translation terms;
// other transforms are wrapped and evaluated on the full coordinate tuple.
func FixSourceDims(t Transform, keep []int, fixed []float64) Transform {
	if l, ok := t.(LinearTransform); ok {
		mat := l.Matrix()
		srcDim, tgtDim := t.SourceDim(), t.TargetDim()
		kept := make([]bool, srcDim)
		for _, j := range keep {
			kept[j] = true
		}
		sub := NewMatrix(tgtDim+1, len(keep)+1)
		for i := 0; i < tgtDim; i++ {
			off := mat.At(i, srcDim)
			for j := 0; j < srcDim; j++ {
				if !kept[j] {
					off += mat.At(i, j) * fixed[j]
				}
			}
			for sj, j := range keep {
				sub.Set(i, sj, mat.At(i, j))
			}
			sub.Set(i, len(keep), off)
		}
		sub.Set(tgtDim, len(keep), 1)
		return &Linear{mat: sub}
	}
	return &fixedSource{base: t, keep: append([]int(nil), keep...), fixed: append([]float64(nil), fixed...)}
}

type fixedSource struct {
	base  Transform
	keep  []int
	fixed []float64
}

func (f *fixedSource) SourceDim() int { return len(f.keep) }
func (f *fixedSource) TargetDim() int { return f.base.TargetDim() }

func (f *fixedSource) Transform(src []float64) ([]float64, error) {
	if len(src) != len(f.keep) {
		return nil, fmt.Errorf("expected %d coordinates, got %d", len(f.keep), len(src))
	}
	full := append([]float64(nil), f.fixed...)
	for i, j := range f.keep {
		full[j] = src[i]
	}
	return f.base.Transform(full)
}

func (f *fixedSource) Inverse() (Transform, error) {
	return nil, fmt.Errorf("transform with pinned dimensions is not invertible")
}

// SelectTargetDims drops the target dimensions not listed in dims.
func SelectTargetDims(t Transform, dims []int) Transform {
	if l, ok := t.(LinearTransform); ok {
		mat := l.Matrix()
		srcDim := t.SourceDim()
		sub := NewMatrix(len(dims)+1, srcDim+1)
		for si, i := range dims {
			for j := 0; j <= srcDim; j++ {
				sub.Set(si, j, mat.At(i, j))
			}
		}
		sub.Set(len(dims), srcDim, 1)
		return &Linear{mat: sub}
	}
	return &selectedTarget{base: t, dims: append([]int(nil), dims...)}
}

type selectedTarget struct {
	base Transform
	dims []int
}

func (s *selectedTarget) SourceDim() int { return s.base.SourceDim() }
func (s *selectedTarget) TargetDim() int { return len(s.dims) }

func (s *selectedTarget) Transform(src []float64) ([]float64, error) {
	full, err := s.base.Transform(src)
	if err != nil {
		return nil, err
	}
	dst := make([]float64, len(s.dims))
	for i, j := range s.dims {
		dst[i] = full[j]
	}
	return dst, nil
}

func (s *selectedTarget) Inverse() (Transform, error) {
	return nil, fmt.Errorf("transform with dropped target dimensions is not invertible")
}
