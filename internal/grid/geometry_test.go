package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoforge/gridwarp/internal/gridwarp"
	"github.com/geoforge/gridwarp/internal/referencing"
	"github.com/geoforge/gridwarp/internal/transform"
)

func wgs84() referencing.CRS {
	return referencing.New("WGS 84", "WGS_1984", referencing.East, referencing.North)
}

func TestGeometryAnchors(t *testing.T) {
	// One-degree cells anchored at the corner of cell (0, 0).
	corner := transform.Concatenate(transform.Scale(1, -1), transform.Translation(-180, 90))
	g, err := NewGeometry(MustExtent([]int64{0, 0}, []int64{360, 180}), CellCorner, corner, wgs84())
	require.NoError(t, err)

	tr, err := g.GridToCRS(CellCorner)
	require.NoError(t, err)
	p, err := tr.Transform([]float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{-180, 90}, p)

	tr, err = g.GridToCRS(CellCenter)
	require.NoError(t, err)
	p, err = tr.Transform([]float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{-179.5, 89.5}, p, "cell centers sit half a cell in")
}

func TestGeometryEnvelope(t *testing.T) {
	corner := transform.Concatenate(transform.Scale(0.5, -0.5), transform.Translation(10, 20))
	g, err := NewGeometry(MustExtent([]int64{0, 0}, []int64{10, 10}), CellCorner, corner, wgs84())
	require.NoError(t, err)

	env, err := g.Envelope()
	require.NoError(t, err)
	assert.Equal(t, 10.0, env.Min(0))
	assert.Equal(t, 15.0, env.Max(0))
	assert.Equal(t, 15.0, env.Min(1))
	assert.Equal(t, 20.0, env.Max(1))

	// Cached: same instance on second call.
	again, err := g.Envelope()
	require.NoError(t, err)
	assert.Same(t, env, again)
}

func TestGeometryIncomplete(t *testing.T) {
	g, err := NewGeometry(MustExtent([]int64{0}, []int64{1}), CellCenter, nil, nil)
	require.NoError(t, err)
	_, err = g.GridToCRS(CellCenter)
	e, ok := gridwarp.AsError(err, gridwarp.IncompleteGeometry)
	require.True(t, ok)
	assert.Equal(t, "gridToCRS", e.Aspect())

	_, err = g.Envelope()
	assert.True(t, gridwarp.IsError(err, gridwarp.IncompleteGeometry))

	_, err = NewGeometry(nil, CellCenter, nil, nil)
	assert.Error(t, err)
}

func TestGeometryEquals(t *testing.T) {
	corner := transform.Scale(2, 2)
	a, err := NewGeometry(MustExtent([]int64{0, 0}, []int64{4, 4}), CellCorner, corner, wgs84())
	require.NoError(t, err)
	b, err := NewGeometry(MustExtent([]int64{0, 0}, []int64{4, 4}), CellCorner, transform.Scale(2, 2), wgs84())
	require.NoError(t, err)
	assert.True(t, a.Equals(b, 1e-12))

	c, err := NewGeometry(MustExtent([]int64{0, 0}, []int64{4, 4}), CellCenter, transform.Scale(2, 2), wgs84())
	require.NoError(t, err)
	assert.False(t, a.Equals(c, 1e-12), "different anchors describe different grids")
}
