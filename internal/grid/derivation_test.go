package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/geoforge/gridwarp/internal/gridwarp"
	"github.com/geoforge/gridwarp/internal/transform"
)

func TestDerivationSubgrid(t *testing.T) {
	base, err := NewGeometry(
		MustExtent([]int64{0, 0}, []int64{100, 100}),
		CellCorner,
		transform.Concatenate(transform.Scale(10, 10), transform.Translation(1000, 2000)),
		wgs84(),
	)
	require.NoError(t, err)

	sub, err := NewDerivation(base).
		Subgrid(MustExtent([]int64{20, 30}, []int64{40, 50})).
		Build()
	require.NoError(t, err)

	ext, err := sub.Extent()
	require.NoError(t, err)
	assert.True(t, ext.Equals(MustExtent([]int64{20, 30}, []int64{40, 50})))

	// The grid-to-CRS mapping is unchanged by a pure sub-grid.
	tr, err := sub.GridToCRS(CellCorner)
	require.NoError(t, err)
	p, err := tr.Transform([]float64{20, 30})
	require.NoError(t, err)
	assert.Equal(t, []float64{1200, 2300}, p)
}

func TestDerivationSubgridFromEnvelope(t *testing.T) {
	base, err := NewGeometry(
		MustExtent([]int64{0, 0}, []int64{100, 100}),
		CellCorner,
		transform.Scale(10, 10),
		wgs84(),
	)
	require.NoError(t, err)

	env := geom.NewBounds(geom.XY)
	env.SetCoords([]float64{155, 230}, []float64{450, 510})
	sub, err := NewDerivation(base).SubgridFromEnvelope(env).Build()
	require.NoError(t, err)

	// Cells are 10 units wide, so the envelope rounds outward to whole cells.
	ext, err := sub.Extent()
	require.NoError(t, err)
	assert.True(t, ext.Equals(MustExtent([]int64{15, 23}, []int64{45, 51})), "got %v", ext)

	_, err = NewDerivation(base).SubgridFromEnvelope(nil).Build()
	assert.True(t, gridwarp.IsError(err, gridwarp.ValidationError))

	env3 := geom.NewBounds(geom.XYZ)
	env3.SetCoords([]float64{0, 0, 0}, []float64{1, 1, 1})
	_, err = NewDerivation(base).SubgridFromEnvelope(env3).Build()
	assert.True(t, gridwarp.IsError(err, gridwarp.ValidationError))
}

func TestDerivationSubsample(t *testing.T) {
	base, err := NewGeometry(
		MustExtent([]int64{0, 0}, []int64{100, 99}),
		CellCorner,
		transform.Scale(10, 10),
		wgs84(),
	)
	require.NoError(t, err)

	sub, err := NewDerivation(base).Subsample(4, 4).Build()
	require.NoError(t, err)

	ext, err := sub.Extent()
	require.NoError(t, err)
	assert.Equal(t, int64(25), ext.Size(0))
	assert.Equal(t, int64(25), ext.Size(1), "partial trailing cells round outward")

	// One derived cell covers four base cells, so the resolution coarsens.
	tr, err := sub.GridToCRS(CellCorner)
	require.NoError(t, err)
	p, err := tr.Transform([]float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{40, 40}, p)
}

func TestDerivationDisjoint(t *testing.T) {
	base, err := NewGeometry(MustExtent([]int64{0, 0}, []int64{10, 10}), CellCorner, transform.Scale(1, 1), nil)
	require.NoError(t, err)
	_, err = NewDerivation(base).Subgrid(MustExtent([]int64{50, 50}, []int64{60, 60})).Build()
	assert.True(t, gridwarp.IsError(err, gridwarp.DisjointExtent))
}

func TestDerivationValidation(t *testing.T) {
	base, err := NewGeometry(MustExtent([]int64{0, 0}, []int64{10, 10}), CellCorner, transform.Scale(1, 1), nil)
	require.NoError(t, err)
	_, err = NewDerivation(base).Subsample(0, 1).Build()
	assert.True(t, gridwarp.IsError(err, gridwarp.ValidationError))
	_, err = NewDerivation(base).Subsample(2).Build()
	assert.True(t, gridwarp.IsError(err, gridwarp.ValidationError))
	_, err = NewDerivation(nil).Build()
	assert.Error(t, err)
}
