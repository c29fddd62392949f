package raster

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoforge/gridwarp/internal/gridwarp"
	"github.com/geoforge/gridwarp/internal/transform"
)

func TestRasterSamples(t *testing.T) {
	r := NewRaster(image.Rect(10, 20, 14, 24), gridwarp.DTypeUINT8, 2)
	r.SetSample(10, 20, 0, 42)
	r.SetSample(13, 23, 1, 7)
	assert.Equal(t, 42.0, r.Sample(10, 20, 0))
	assert.Equal(t, 7.0, r.Sample(13, 23, 1))
	assert.Equal(t, 0.0, r.Sample(10, 20, 1))
}

func TestRasterSetSampleClamps(t *testing.T) {
	r := NewRaster(image.Rect(0, 0, 2, 1), gridwarp.DTypeUINT8, 1)
	r.SetSample(0, 0, 0, 300)
	r.SetSample(1, 0, 0, -5)
	assert.Equal(t, 255.0, r.Sample(0, 0, 0))
	assert.Equal(t, 0.0, r.Sample(1, 0, 0))

	f := NewRaster(image.Rect(0, 0, 1, 1), gridwarp.DTypeFLOAT32, 1)
	f.SetSample(0, 0, 0, math.NaN())
	assert.True(t, math.IsNaN(f.Sample(0, 0, 0)))
}

func TestRasterView(t *testing.T) {
	r := NewRaster(image.Rect(0, 0, 8, 8), gridwarp.DTypeINT16, 1)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			r.SetSample(x, y, 0, float64(y*8+x))
		}
	}
	v, err := r.View(image.Rect(2, 3, 6, 7))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(2, 3, 6, 7), v.Rect)
	assert.Equal(t, 26.0, v.Sample(2, 3, 0))

	// A view aliases the backing buffer.
	v.SetSample(2, 3, 0, -1)
	assert.Equal(t, -1.0, r.Sample(2, 3, 0))

	_, err = r.View(image.Rect(7, 7, 12, 12))
	assert.Error(t, err, "views must stay inside the raster")
}

func TestTilingMath(t *testing.T) {
	ti := Tiling{TileWidth: 4, TileHeight: 3, OriginX: 0, OriginY: 0}
	tx, ty := ti.TileIndex(-1, -1)
	assert.Equal(t, -1, tx)
	assert.Equal(t, -1, ty)
	assert.Equal(t, image.Rect(4, 3, 8, 6), ti.TileRect(1, 1))

	tx0, ty0, tx1, ty1 := ti.TileRange(image.Rect(2, 2, 9, 4))
	assert.Equal(t, [4]int{0, 0, 3, 2}, [4]int{tx0, ty0, tx1, ty1})

	assert.Equal(t, 2, ti.AlignmentX(6))
	assert.Equal(t, 2, ti.AlignmentX(-2))
}

func TestWindowReorigin(t *testing.T) {
	src, err := NewMemImage(image.Rect(0, 0, 8, 8), gridwarp.DTypeUINT8, 1, 4, 4)
	require.NoError(t, err)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.SetSample(x, y, 0, float64(y*8+x))
		}
	}
	w, err := NewWindow(src, image.Rect(2, 2, 6, 6), image.Point{})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), w.Bounds())
	v, err := At(w, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 18.0, v)
	assert.Same(t, Image(src), Unwrap(w))
}

func TestReshapedImageFlip(t *testing.T) {
	src, err := NewMemImage(image.Rect(0, 0, 4, 2), gridwarp.DTypeUINT8, 1, 4, 2)
	require.NoError(t, err)
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			src.SetSample(x, y, 0, float64(y*4+x))
		}
	}
	// Horizontal flip: view pixel (x, y) reads source (3-x, y).
	flip, err := NewReshapedImage(src, PixelPermutation{XX: -1, XT: 3, YY: 1})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 2), flip.Bounds())
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			v, err := At(flip, x, y, 0)
			require.NoError(t, err)
			assert.Equal(t, float64(y*4+(3-x)), v)
		}
	}

	_, err = NewReshapedImage(src, PixelPermutation{XX: 2, YY: 1})
	assert.Error(t, err, "scaling is not a permutation")
}

func TestResampledImageFill(t *testing.T) {
	src, err := NewMemImage(image.Rect(0, 0, 4, 4), gridwarp.DTypeFLOAT64, 1, 4, 4)
	require.NoError(t, err)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.SetSample(x, y, 0, float64(y*4+x))
		}
	}
	// Target pixel (x, y) reads source (x+2, y); the right half of the
	// target falls outside the source and takes the fill value.
	img, err := NewResampledImage(src, image.Rect(0, 0, 4, 4), transform.Translation(2, 0), Nearest, []float64{99})
	require.NoError(t, err)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			v, err := At(img, x, y, 0)
			require.NoError(t, err)
			if x < 2 {
				assert.Equal(t, float64(y*4+x+2), v, "(%d, %d)", x, y)
			} else {
				assert.Equal(t, 99.0, v, "(%d, %d)", x, y)
			}
		}
	}

	_, err = NewResampledImage(src, image.Rect(0, 0, 4, 4), transform.Translation(0, 0, 0), Nearest, []float64{0})
	assert.Error(t, err, "pixel transform must be two-dimensional")
}
