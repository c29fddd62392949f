package transform

import (
	"fmt"
	"math"
	"math/big"
)

// Affine is a 2D affine transform following the GDAL coefficient convention:
//
//	x' = a[0] + a[1]*x + a[2]*y
//	y' = a[3] + a[4]*x + a[5]*y
//
// It is the working transform of the 2D image machinery: the n-dimensional
// grid-to-grid chain is reduced to an Affine before per-pixel evaluation.
type Affine [6]float64

// NewAffine creates an affine transform from the GDAL coefficients
func NewAffine(a, b, c, d, e, f float64) *Affine {
	res := Affine([6]float64{a, b, c, d, e, f})
	return &res
}

// AffineTranslation creates a translation transform from (offx, offy)
func AffineTranslation(offx, offy float64) *Affine {
	return NewAffine(offx, 1.0, 0, offy, 0, 1.0)
}

// AffineScale creates a scale transform from (scalex, scaley)
func AffineScale(scalex, scaley float64) *Affine {
	return NewAffine(0, scalex, 0, 0, 0, scaley)
}

// AffineFromLinear extracts the 2D affine coefficients of a linear transform
// with two source and two target dimensions.
func AffineFromLinear(l LinearTransform) (*Affine, error) {
	if l.SourceDim() != 2 || l.TargetDim() != 2 {
		return nil, fmt.Errorf("expected a 2D transform, got %dD -> %dD", l.SourceDim(), l.TargetDim())
	}
	m := l.Matrix()
	return NewAffine(m.At(0, 2), m.At(0, 0), m.At(0, 1), m.At(1, 2), m.At(1, 0), m.At(1, 1)), nil
}

// ToLinear converts the affine transform to its homogeneous matrix form.
func (a *Affine) ToLinear() *Linear {
	m := NewMatrix(3, 3)
	m.Set(0, 0, a[1])
	m.Set(0, 1, a[2])
	m.Set(0, 2, a[0])
	m.Set(1, 0, a[4])
	m.Set(1, 1, a[5])
	m.Set(1, 2, a[3])
	m.Set(2, 2, 1)
	return &Linear{mat: m}
}

// IsInvertible returns true if the transformation is invertible
func (a *Affine) IsInvertible() bool {
	return a[1]*a[5] != a[2]*a[4] // det != 0
}

// Inverse creates the inverse of the affine transform.
// Inverse panics if it is not invertible.
func (a *Affine) Inverse() *Affine {
	idet := 1.0 / (a[1]*a[5] - a[2]*a[4])
	res := Affine([6]float64{0, a[5] * idet, -a[2] * idet, 0, -a[4] * idet, a[1] * idet})
	res[0], res[3] = res.Transform(-a[0], -a[3])
	return &res
}

// IsIdentity reports whether the transform is the identity within tol,
// expressed in grid cell units.
func (a *Affine) IsIdentity(tol float64) bool {
	return math.Abs(a[0]) <= tol && math.Abs(a[1]-1) <= tol && math.Abs(a[2]) <= tol &&
		math.Abs(a[3]) <= tol && math.Abs(a[4]) <= tol && math.Abs(a[5]-1) <= tol
}

// highPrecisionTransform, such as highPrecisionTransform(xs, x+1, sy, y+1, o) = highPrecisionTransform(xs, x, sy, y, o) + highPrecisionTransform(xs, 1, sy, 1, 0)
func highPrecisionTransform(sx, x, sy, y, o float64) float64 {
	sX := big.NewFloat(sx).SetPrec(prec)
	sY := big.NewFloat(sy).SetPrec(prec)
	X := big.NewFloat(x).SetPrec(prec)
	Y := big.NewFloat(y).SetPrec(prec)
	O := big.NewFloat(o).SetPrec(prec)
	r, _ := O.Add(O, sX.Mul(sX, X)).Add(O, sY.Mul(sY, Y)).Float64() // o + sx*x + sy*y
	return r
}

// Multiply merges the two affine transforms into one.
func (a *Affine) Multiply(b *Affine) *Affine {
	return NewAffine(
		highPrecisionTransform(a[1], b[0], a[2], b[3], a[0]),
		highPrecisionTransform(a[1], b[1], a[2], b[4], 0),
		highPrecisionTransform(a[1], b[2], a[2], b[5], 0),
		highPrecisionTransform(a[4], b[0], a[5], b[3], a[3]),
		highPrecisionTransform(a[4], b[1], a[5], b[4], 0),
		highPrecisionTransform(a[4], b[2], a[5], b[5], 0),
	)
}

// Transform applies the affine transform to the point (x, y) with
// high-precision accumulation.
func (a *Affine) Transform(x float64, y float64) (float64, float64) {
	return highPrecisionTransform(a[1], x, a[2], y, a[0]), highPrecisionTransform(a[4], x, a[5], y, a[3])
}

// Apply is the fast path of Transform, used in per-pixel loops where the
// accumulation error of plain float64 arithmetic is acceptable.
func (a *Affine) Apply(x, y float64) (float64, float64) {
	return a[0] + a[1]*x + a[2]*y, a[3] + a[4]*x + a[5]*y
}
