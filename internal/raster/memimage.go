package raster

import (
	"image"

	"github.com/geoforge/gridwarp/internal/gridwarp"
)

// MemImage is an in-memory tiled image backed by a single banded raster.
// Tiles are zero-copy views of the backing buffers.
type MemImage struct {
	backing     *Raster
	tiling      Tiling
	visibleBand int
}

// NewMemImage allocates an image covering rect with the given tile size.
// The tile grid is anchored at rect.Min.
func NewMemImage(rect image.Rectangle, dtype gridwarp.DType, nbands, tileWidth, tileHeight int) (*MemImage, error) {
	if rect.Empty() {
		return nil, gridwarp.NewValidationError("empty image bounds %v", rect)
	}
	if nbands < 1 {
		return nil, gridwarp.NewValidationError("unsupported band count %d", nbands)
	}
	if tileWidth < 1 || tileHeight < 1 {
		return nil, gridwarp.NewValidationError("invalid tile size %dx%d", tileWidth, tileHeight)
	}
	if dtype.Size() == 0 {
		return nil, gridwarp.NewValidationError("unsupported data type %s", dtype)
	}
	return &MemImage{
		backing:     NewRaster(rect, dtype, nbands),
		tiling:      Tiling{TileWidth: tileWidth, TileHeight: tileHeight, OriginX: rect.Min.X, OriginY: rect.Min.Y},
		visibleBand: -1,
	}, nil
}

// NewMemImageOf wraps an existing raster as a single-tile image.
func NewMemImageOf(r *Raster) *MemImage {
	return &MemImage{
		backing:     r,
		tiling:      Tiling{TileWidth: r.Rect.Dx(), TileHeight: r.Rect.Dy(), OriginX: r.Rect.Min.X, OriginY: r.Rect.Min.Y},
		visibleBand: -1,
	}
}

// SetTileGridOrigin anchors the tile grid at (x, y) instead of the image
// corner. Tiles at the image border are clipped.
func (m *MemImage) SetTileGridOrigin(x, y int) {
	m.tiling.OriginX, m.tiling.OriginY = x, y
}

// SetVisibleBand declares which band drives the display color.
func (m *MemImage) SetVisibleBand(band int) {
	m.visibleBand = band
}

func (m *MemImage) Bounds() image.Rectangle    { return m.backing.Rect }
func (m *MemImage) DataType() gridwarp.DType   { return m.backing.DType }
func (m *MemImage) NumBands() int              { return m.backing.NumBands() }
func (m *MemImage) Tiling() Tiling             { return m.tiling }
func (m *MemImage) VisibleBand() int           { return m.visibleBand }
func (m *MemImage) ScanlineStride() int        { return m.backing.Stride }
func (m *MemImage) BandBuffer(band int) []byte { return m.backing.Bands[band] }

func (m *MemImage) ReadTile(tx, ty int) (*Raster, error) {
	rect := m.tiling.TileRect(tx, ty).Intersect(m.backing.Rect)
	if rect.Empty() {
		return nil, gridwarp.NewValidationError("tile (%d, %d) outside image bounds %v", tx, ty, m.backing.Rect)
	}
	return m.backing.View(rect)
}

// RasterView returns a zero-copy view of the given region.
func (m *MemImage) RasterView(region image.Rectangle) (*Raster, error) {
	return m.backing.View(region)
}

// SetSample stores a value in the backing raster.
func (m *MemImage) SetSample(x, y, band int, v float64) {
	m.backing.SetSample(x, y, band, v)
}

// Sample reads a value from the backing raster.
func (m *MemImage) Sample(x, y, band int) float64 {
	return m.backing.Sample(x, y, band)
}

// Fill sets every sample of the given band.
func (m *MemImage) Fill(band int, v float64) {
	b := m.backing.Rect
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			m.backing.SetSample(x, y, band, v)
		}
	}
}

// FillRect sets every sample of the given band inside rect.
func (m *MemImage) FillRect(rect image.Rectangle, band int, v float64) {
	rect = rect.Intersect(m.backing.Rect)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			m.backing.SetSample(x, y, band, v)
		}
	}
}
