package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcatenateMergesLinears(t *testing.T) {
	c := Concatenate(Translation(10, 20), Scale(2, 3), Translation(-10, -20))
	l, ok := c.(LinearTransform)
	require.True(t, ok, "a chain of affine steps should collapse to one linear transform")

	out, err := l.Transform([]float64{1, 1})
	require.NoError(t, err)
	// (1+10)*2-10, (1+20)*3-20
	assert.Equal(t, []float64{12, 43}, out)
}

func TestConcatenateElidesIdentity(t *testing.T) {
	s := Scale(2, 2)
	c := Concatenate(Identity(2), s, Identity(2))
	l, ok := c.(LinearTransform)
	require.True(t, ok)
	assert.True(t, l.Matrix().Equal(s.Matrix(), 0))
}

func TestInverseRoundtrip(t *testing.T) {
	l := Concatenate(Translation(5, -3), Scale(0.25, 4))
	inv, err := l.Inverse()
	require.NoError(t, err)
	p := []float64{123.5, -42.25}
	fwd, err := l.Transform(p)
	require.NoError(t, err)
	back, err := inv.Transform(fwd)
	require.NoError(t, err)
	assert.InDelta(t, p[0], back[0], 1e-9)
	assert.InDelta(t, p[1], back[1], 1e-9)
}

type polar struct{}

func (polar) SourceDim() int { return 2 }
func (polar) TargetDim() int { return 2 }

func (polar) Transform(src []float64) ([]float64, error) {
	r, theta := src[0], src[1]
	return []float64{r * math.Cos(theta), r * math.Sin(theta)}, nil
}

func (p polar) Inverse() (Transform, error) {
	return nil, assert.AnError
}

func TestDerivative(t *testing.T) {
	// Exact for linear transforms.
	l := Concatenate(Scale(2, -3), Translation(1, 1))
	d, err := Derivative(l, []float64{10, 10})
	require.NoError(t, err)
	assert.Equal(t, 2.0, d.At(0, 0))
	assert.Equal(t, -3.0, d.At(1, 1))
	assert.Equal(t, 0.0, d.At(0, 1))

	// Finite differences for the rest.
	d, err = Derivative(polar{}, []float64{2, math.Pi / 3})
	require.NoError(t, err)
	assert.InDelta(t, math.Cos(math.Pi/3), d.At(0, 0), 1e-6)
	assert.InDelta(t, -2*math.Sin(math.Pi/3), d.At(0, 1), 1e-6)
	assert.InDelta(t, math.Sin(math.Pi/3), d.At(1, 0), 1e-6)
	assert.InDelta(t, 2*math.Cos(math.Pi/3), d.At(1, 1), 1e-6)
}

func TestSeparate(t *testing.T) {
	// 3D transform where X, Y depend only on grid dims 0 and 1.
	m := IdentityMatrix(4)
	m.Set(0, 1, 1)
	m.Set(0, 0, 0)
	m.Set(1, 0, 1)
	m.Set(1, 1, 0)
	m.Set(2, 3, 42)
	l := MustLinear(m)

	sub, err := Separate(l, []int{0, 1}, []int{0, 1}, 1e-12)
	require.NoError(t, err)
	out, err := sub.Transform([]float64{3, 4})
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 3}, out)

	// Make Y depend on the elevation axis: no longer separable.
	m.Set(1, 2, 0.5)
	_, err = Separate(MustLinear(m), []int{0, 1}, []int{0, 1}, 1e-12)
	var nonSep *ErrNonSeparable
	require.ErrorAs(t, err, &nonSep)
	assert.Equal(t, 1, nonSep.TargetDim)
	assert.Equal(t, 2, nonSep.SourceDim)
}

func TestFixAndSelectDims(t *testing.T) {
	// 3D -> 3D, then pin the elevation to 7 and keep the XY outputs.
	m := IdentityMatrix(4)
	m.Set(0, 2, 10) // x' = x + 10*z
	l := MustLinear(m)

	fixed := FixSourceDims(l, []int{0, 1}, []float64{0, 0, 7})
	assert.Equal(t, 2, fixed.SourceDim())
	assert.Equal(t, 3, fixed.TargetDim())

	sel := SelectTargetDims(fixed, []int{0, 1})
	assert.Equal(t, 2, sel.TargetDim())
	out, err := sel.Transform([]float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{71, 2}, out)
}

func TestIsIdentityTolerance(t *testing.T) {
	nearly := Concatenate(Scale(1+1e-9, 1), Translation(1e-9, 0))
	assert.False(t, IsIdentity(nearly, 0))
	assert.True(t, IsIdentity(nearly, 1e-6))
	assert.False(t, IsIdentity(polar{}, 1), "non-linear transforms are never identity")
}
