package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrixMulInverse(t *testing.T) {
	m := IdentityMatrix(4)
	m.Set(0, 0, 2)
	m.Set(0, 3, 100)
	m.Set(1, 1, -0.5)
	m.Set(1, 3, 7)
	m.Set(2, 2, 4)

	inv, err := m.Inverse()
	require.NoError(t, err)
	assert.True(t, m.Mul(inv).IsIdentity(1e-12), "m * m^-1 should be identity")
	assert.True(t, inv.Mul(m).IsIdentity(1e-12), "m^-1 * m should be identity")
}

func TestMatrixSingular(t *testing.T) {
	m := NewMatrix(3, 3)
	m.Set(0, 0, 1)
	m.Set(1, 0, 1) // rank 1
	m.Set(2, 2, 1)
	_, err := m.Inverse()
	assert.Error(t, err)
}

func TestMatrixClassification(t *testing.T) {
	id := IdentityMatrix(3)
	assert.True(t, id.IsIdentity(0))
	assert.True(t, id.IsTranslation(0))
	assert.True(t, id.IsSignedPermutation(0))

	tr := IdentityMatrix(3)
	tr.Set(0, 2, 5)
	tr.Set(1, 2, -3)
	assert.False(t, tr.IsIdentity(0))
	assert.True(t, tr.IsTranslation(0))
	assert.True(t, tr.IsSignedPermutation(0), "integer translation is a signed permutation")

	swap := NewMatrix(3, 3)
	swap.Set(0, 1, 1)
	swap.Set(1, 0, -1)
	swap.Set(1, 2, 6)
	swap.Set(2, 2, 1)
	assert.False(t, swap.IsTranslation(0))
	assert.True(t, swap.IsSignedPermutation(0))

	scaled := IdentityMatrix(3)
	scaled.Set(0, 0, 2)
	assert.False(t, scaled.IsSignedPermutation(1e-9))

	frac := IdentityMatrix(3)
	frac.Set(0, 2, 0.5) // half-pixel offset
	assert.False(t, frac.IsSignedPermutation(1e-9))
}

func TestMatrixIdentityTolerance(t *testing.T) {
	almost := IdentityMatrix(3)
	almost.Set(0, 2, 1e-9)
	almost.Set(1, 1, 1+1e-9)
	assert.False(t, almost.IsIdentity(0))
	assert.True(t, almost.IsIdentity(1e-6))
}

func TestMatrixMulAvoidsInfTimesZero(t *testing.T) {
	// A zero coefficient must annihilate Inf instead of producing NaN.
	a := IdentityMatrix(3)
	a.Set(0, 0, 0)
	b := IdentityMatrix(3)
	b.Set(0, 0, 1e308)
	b.Set(0, 2, 1e308)
	p := a.Mul(b.Mul(b)) // b*b overflows to Inf in (0, 2)
	assert.False(t, math.IsNaN(p.At(0, 2)), "expected no NaN in product")
}
