// Package raster provides the 2D image model of the resampling engine:
// banded rasters, tiled images, zero-copy views, lazily resampled images and
// the tile-parallel statistics executor.
package raster

import (
	"image"
	"math"

	"github.com/geoforge/gridwarp/internal/gridwarp"
	"github.com/geoforge/gridwarp/internal/utils"
)

// Raster is a rectangular array of sample values with a banded layout:
// one buffer per band, pixel stride 1. A Raster may be a view sharing the
// buffers of a larger raster, in which case Stride exceeds Rect.Dx().
type Raster struct {
	// Rect locates the raster in image coordinates.
	Rect image.Rectangle
	// DType is the data type of every band.
	DType gridwarp.DType
	// Bands holds one buffer per band.
	Bands [][]byte
	// Stride is the number of samples per scanline in each buffer.
	Stride int
	// Off is the sample index of Rect.Min in each buffer.
	Off int
}

// NewRaster allocates a raster covering rect.
func NewRaster(rect image.Rectangle, dtype gridwarp.DType, nbands int) *Raster {
	bands := make([][]byte, nbands)
	n := rect.Dx() * rect.Dy() * dtype.Size()
	for i := range bands {
		bands[i] = make([]byte, n)
	}
	return &Raster{Rect: rect, DType: dtype, Bands: bands, Stride: rect.Dx()}
}

// NumBands returns the number of bands.
func (r *Raster) NumBands() int { return len(r.Bands) }

func (r *Raster) index(x, y int) int {
	return r.Off + (y-r.Rect.Min.Y)*r.Stride + (x - r.Rect.Min.X)
}

// Sample returns the value of the given band at pixel (x, y).
// (x, y) must be inside Rect.
func (r *Raster) Sample(x, y, band int) float64 {
	i := r.index(x, y)
	switch r.DType {
	case gridwarp.DTypeUINT8:
		return float64(r.Bands[band][i])
	case gridwarp.DTypeUINT16:
		return float64(utils.SliceByteToGeneric[uint16](r.Bands[band])[i])
	case gridwarp.DTypeUINT32:
		return float64(utils.SliceByteToGeneric[uint32](r.Bands[band])[i])
	case gridwarp.DTypeINT8:
		return float64(utils.SliceByteToGeneric[int8](r.Bands[band])[i])
	case gridwarp.DTypeINT16:
		return float64(utils.SliceByteToGeneric[int16](r.Bands[band])[i])
	case gridwarp.DTypeINT32:
		return float64(utils.SliceByteToGeneric[int32](r.Bands[band])[i])
	case gridwarp.DTypeFLOAT32:
		return float64(utils.SliceByteToGeneric[float32](r.Bands[band])[i])
	case gridwarp.DTypeFLOAT64:
		return utils.SliceByteToGeneric[float64](r.Bands[band])[i]
	}
	return math.NaN()
}

// SetSample stores the value of the given band at pixel (x, y), rounding and
// clamping to the data type range for integer types.
func (r *Raster) SetSample(x, y, band int, v float64) {
	i := r.index(x, y)
	if !r.DType.IsFloatingPointFormat() {
		if math.IsNaN(v) {
			v = 0
		} else {
			v = math.Round(v)
			v = math.Max(r.DType.MinValue(), math.Min(r.DType.MaxValue(), v))
		}
	}
	switch r.DType {
	case gridwarp.DTypeUINT8:
		r.Bands[band][i] = uint8(v)
	case gridwarp.DTypeUINT16:
		utils.SliceByteToGeneric[uint16](r.Bands[band])[i] = uint16(v)
	case gridwarp.DTypeUINT32:
		utils.SliceByteToGeneric[uint32](r.Bands[band])[i] = uint32(v)
	case gridwarp.DTypeINT8:
		utils.SliceByteToGeneric[int8](r.Bands[band])[i] = int8(v)
	case gridwarp.DTypeINT16:
		utils.SliceByteToGeneric[int16](r.Bands[band])[i] = int16(v)
	case gridwarp.DTypeINT32:
		utils.SliceByteToGeneric[int32](r.Bands[band])[i] = int32(v)
	case gridwarp.DTypeFLOAT32:
		utils.SliceByteToGeneric[float32](r.Bands[band])[i] = float32(v)
	case gridwarp.DTypeFLOAT64:
		utils.SliceByteToGeneric[float64](r.Bands[band])[i] = v
	}
}

// View returns a raster sharing the buffers of r, restricted to region.
// The region must be inside Rect.
func (r *Raster) View(region image.Rectangle) (*Raster, error) {
	if !region.In(r.Rect) {
		return nil, gridwarp.NewValidationError("view %v outside raster %v", region, r.Rect)
	}
	return &Raster{
		Rect:   region,
		DType:  r.DType,
		Bands:  r.Bands,
		Stride: r.Stride,
		Off:    r.index(region.Min.X, region.Min.Y),
	}, nil
}

// Translated returns a raster sharing the buffers of r with coordinates
// shifted by (dx, dy).
func (r *Raster) Translated(dx, dy int) *Raster {
	return &Raster{
		Rect:   r.Rect.Add(image.Pt(dx, dy)),
		DType:  r.DType,
		Bands:  r.Bands,
		Stride: r.Stride,
		Off:    r.Off,
	}
}
