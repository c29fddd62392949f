package gridwarp

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDType(t *testing.T) {
	assert.Equal(t, 2, DTypeINT16.Size())
	assert.Equal(t, 8, DTypeFLOAT64.Size())
	assert.Equal(t, 0, DTypeUNDEFINED.Size())
	assert.Equal(t, "FLOAT32", DTypeFLOAT32.String())
	assert.True(t, DTypeFLOAT32.IsFloatingPointFormat())
	assert.False(t, DTypeINT32.IsFloatingPointFormat())

	assert.True(t, DTypeUINT8.CanCastTo(DTypeINT16))
	assert.True(t, DTypeINT16.CanCastTo(DTypeFLOAT32))
	assert.False(t, DTypeINT16.CanCastTo(DTypeUINT16), "negative values do not fit")
	assert.False(t, DTypeUNDEFINED.CanCastTo(DTypeFLOAT64))
}

func TestErrorTaxonomy(t *testing.T) {
	err := NewIncompleteGeometry("extent", "")
	require.Error(t, err)
	assert.True(t, IsError(err, IncompleteGeometry))
	assert.False(t, IsError(err, TransformFailure))

	gwerr, ok := AsError(err, IncompleteGeometry)
	require.True(t, ok)
	assert.Equal(t, "extent", gwerr.Aspect())
	assert.Contains(t, gwerr.Desc(), "does not define extent")

	wrapped := fmt.Errorf("building coverage: %w", NewDisjointExtent("no overlap"))
	assert.True(t, IsError(wrapped, DisjointExtent), "codes survive wrapping")
	assert.False(t, IsError(fmt.Errorf("plain"), ValidationError))
}

func TestPalette(t *testing.T) {
	_, err := NewPalette("broken", struct {
		Val        float32
		R, G, B, A uint8
	}{Val: 0.5})
	assert.True(t, IsError(err, ValidationError), "a palette needs endpoints at 0 and 1")

	p, err := NewPalette("heat",
		struct {
			Val        float32
			R, G, B, A uint8
		}{Val: 1, R: 255, A: 255},
		struct {
			Val        float32
			R, G, B, A uint8
		}{Val: 0, A: 255},
	)
	require.NoError(t, err)

	colors := p.PaletteN(3)
	require.Len(t, colors, 3)
	r, _, _, a := colors[1].RGBA()
	assert.Equal(t, uint32(127*257), r, "midpoint interpolates linearly")
	assert.Equal(t, uint32(255*257), a)

	gray := GrayscalePalette()
	assert.NoError(t, gray.Validate())
}

func TestSampleDimensionFill(t *testing.T) {
	sd := NewSampleDimension("reflectance")
	assert.True(t, math.IsNaN(sd.FillValue(DTypeFLOAT32)))
	assert.Equal(t, 0.0, sd.FillValue(DTypeUINT8))

	sd = sd.WithBackground(-9999)
	assert.Equal(t, -9999.0, sd.FillValue(DTypeFLOAT32))
}
