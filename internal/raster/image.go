package raster

import (
	"image"

	"github.com/geoforge/gridwarp/internal/gridwarp"
)

// DefaultTileSize is the tile width and height used when no source tiling is
// usable.
const DefaultTileSize = 256

// Tiling describes the tile grid of an image. Tile (0, 0) has its upper-left
// pixel at (OriginX, OriginY); tile indices may be negative.
type Tiling struct {
	TileWidth, TileHeight int
	OriginX, OriginY      int
}

// TileIndex returns the indices of the tile containing pixel (x, y).
func (t Tiling) TileIndex(x, y int) (int, int) {
	return floorDiv(x-t.OriginX, t.TileWidth), floorDiv(y-t.OriginY, t.TileHeight)
}

// TileRect returns the rectangle covered by tile (tx, ty), not clipped.
func (t Tiling) TileRect(tx, ty int) image.Rectangle {
	x := t.OriginX + tx*t.TileWidth
	y := t.OriginY + ty*t.TileHeight
	return image.Rect(x, y, x+t.TileWidth, y+t.TileHeight)
}

// TileRange returns the inclusive-exclusive range of tile indices
// intersecting bounds.
func (t Tiling) TileRange(bounds image.Rectangle) (tx0, ty0, tx1, ty1 int) {
	tx0, ty0 = t.TileIndex(bounds.Min.X, bounds.Min.Y)
	tx1, ty1 = t.TileIndex(bounds.Max.X-1, bounds.Max.Y-1)
	return tx0, ty0, tx1 + 1, ty1 + 1
}

// AlignmentX returns the offset of the given x coordinate within the tile
// grid, in [0, TileWidth).
func (t Tiling) AlignmentX(x int) int {
	return floorMod(x-t.OriginX, t.TileWidth)
}

// AlignmentY returns the offset of the given y coordinate within the tile
// grid, in [0, TileHeight).
func (t Tiling) AlignmentY(y int) int {
	return floorMod(y-t.OriginY, t.TileHeight)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	m := a % b
	if m != 0 && (a < 0) != (b < 0) {
		m += b
	}
	return m
}

// Image is a tiled, read-only view of sample values. Implementations must be
// safe for concurrent ReadTile calls on distinct tiles.
type Image interface {
	Bounds() image.Rectangle
	DataType() gridwarp.DType
	NumBands() int
	Tiling() Tiling
	// ReadTile returns the raster of tile (tx, ty), clipped to the image
	// bounds. The tile may be computed lazily on first access.
	ReadTile(tx, ty int) (*Raster, error)
}

// RasterImage is implemented by images able to expose a zero-copy raster view
// of an arbitrary region.
type RasterImage interface {
	Image
	RasterView(region image.Rectangle) (*Raster, error)
}

// BandedImage is implemented by images whose bands are stored in plain banded
// buffers (pixel stride 1). It is the requirement for buffer sharing in band
// aggregations.
type BandedImage interface {
	Image
	ScanlineStride() int
	BandBuffer(band int) []byte
}

// VisibleBander is implemented by images declaring which band drives the
// display color.
type VisibleBander interface {
	VisibleBand() int
}

// Wrapper is implemented by image views, giving access to the image they
// decorate.
type Wrapper interface {
	Source() Image
}

// Unwrap strips view layers and returns the innermost image.
func Unwrap(img Image) Image {
	for {
		w, ok := img.(Wrapper)
		if !ok {
			return img
		}
		img = w.Source()
	}
}

// At reads through the image tiles and returns the value of the given band at
// pixel (x, y).
func At(img Image, x, y, band int) (float64, error) {
	r, err := img.ReadTile(img.Tiling().TileIndex(x, y))
	if err != nil {
		return 0, err
	}
	return r.Sample(x, y, band), nil
}

// Materialize reads a region of the image into a single raster. Images
// exposing a zero-copy view are not copied.
func Materialize(img Image, region image.Rectangle) (*Raster, error) {
	region = region.Intersect(img.Bounds())
	if region.Empty() {
		return nil, gridwarp.NewDisjointExtent("region does not intersect image bounds %v", img.Bounds())
	}
	if ri, ok := img.(RasterImage); ok {
		return ri.RasterView(region)
	}
	return CopyRegion(img, region)
}

// CopyRegion reads the given region of the image into a newly allocated
// raster.
func CopyRegion(img Image, region image.Rectangle) (*Raster, error) {
	region = region.Intersect(img.Bounds())
	if region.Empty() {
		return nil, gridwarp.NewDisjointExtent("region does not intersect image bounds %v", img.Bounds())
	}
	dst := NewRaster(region, img.DataType(), img.NumBands())
	tiling := img.Tiling()
	tx0, ty0, tx1, ty1 := tiling.TileRange(region)
	for ty := ty0; ty < ty1; ty++ {
		for tx := tx0; tx < tx1; tx++ {
			src, err := img.ReadTile(tx, ty)
			if err != nil {
				return nil, err
			}
			overlap := src.Rect.Intersect(region)
			for y := overlap.Min.Y; y < overlap.Max.Y; y++ {
				for x := overlap.Min.X; x < overlap.Max.X; x++ {
					for b := 0; b < dst.NumBands(); b++ {
						dst.SetSample(x, y, b, src.Sample(x, y, b))
					}
				}
			}
		}
	}
	return dst, nil
}
