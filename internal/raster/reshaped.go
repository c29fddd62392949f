package raster

import (
	"image"

	"github.com/geoforge/gridwarp/internal/gridwarp"
)

// PixelPermutation maps a pixel of a reshaped view to the pixel of the
// source image, using integer coefficients. The linear part must be a
// signed permutation (axis swap and/or flips).
//
//	sourceX = XX*x + XY*y + XT
//	sourceY = YX*x + YY*y + YT
type PixelPermutation struct {
	XX, XY, XT int
	YX, YY, YT int
}

// Apply maps view coordinates to source coordinates.
func (p PixelPermutation) Apply(x, y int) (int, int) {
	return p.XX*x + p.XY*y + p.XT, p.YX*x + p.YY*y + p.YT
}

// Inverse returns the permutation mapping source coordinates back to view
// coordinates. Defined because the linear part is a signed permutation, so
// its determinant is ±1.
func (p PixelPermutation) Inverse() PixelPermutation {
	det := p.XX*p.YY - p.XY*p.YX
	inv := PixelPermutation{
		XX: p.YY / det, XY: -p.XY / det,
		YX: -p.YX / det, YY: p.XX / det,
	}
	inv.XT = -(inv.XX*p.XT + inv.XY*p.YT)
	inv.YT = -(inv.YX*p.XT + inv.YY*p.YT)
	return inv
}

func (p PixelPermutation) mapRect(r image.Rectangle) image.Rectangle {
	// The corners of a half-open rectangle map to corners of the image of
	// the rectangle; flips move the inclusive bound to the other side.
	x0, y0 := p.Apply(r.Min.X, r.Min.Y)
	x1, y1 := p.Apply(r.Max.X-1, r.Max.Y-1)
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return image.Rect(x0, y0, x1+1, y1+1)
}

// ReshapedImage presents a source image under an axis swap and/or flips
// without copying pixels. Tiles are computed by permuting samples of the
// corresponding source region.
type ReshapedImage struct {
	source Image
	toSrc  PixelPermutation
	rect   image.Rectangle
	tiling Tiling
}

// NewReshapedImage builds a view of src whose pixel (x, y) is the source
// pixel toSource.Apply(x, y). The view bounds are the pre-image of the
// source bounds.
func NewReshapedImage(src Image, toSource PixelPermutation) (*ReshapedImage, error) {
	ax, ay := abs(toSource.XX)+abs(toSource.XY), abs(toSource.YX)+abs(toSource.YY)
	if ax != 1 || ay != 1 || toSource.XX*toSource.YY-toSource.XY*toSource.YX == 0 {
		return nil, gridwarp.NewValidationError("pixel mapping is not a signed permutation")
	}
	fromSource := toSource.Inverse()
	rect := fromSource.mapRect(src.Bounds())
	st := src.Tiling()
	// Swap tile dimensions when the axes are exchanged so tiles of the
	// view cover whole tiles of the source.
	tw, th := st.TileWidth, st.TileHeight
	if toSource.XX == 0 {
		tw, th = th, tw
	}
	return &ReshapedImage{
		source: src,
		toSrc:  toSource,
		rect:   rect,
		tiling: Tiling{TileWidth: tw, TileHeight: th, OriginX: rect.Min.X, OriginY: rect.Min.Y},
	}, nil
}

func (r *ReshapedImage) Bounds() image.Rectangle  { return r.rect }
func (r *ReshapedImage) DataType() gridwarp.DType { return r.source.DataType() }
func (r *ReshapedImage) NumBands() int            { return r.source.NumBands() }
func (r *ReshapedImage) Tiling() Tiling           { return r.tiling }
func (r *ReshapedImage) Source() Image            { return r.source }

func (r *ReshapedImage) ReadTile(tx, ty int) (*Raster, error) {
	rect := r.tiling.TileRect(tx, ty).Intersect(r.rect)
	if rect.Empty() {
		return nil, gridwarp.NewValidationError("tile (%d, %d) outside image bounds %v", tx, ty, r.rect)
	}
	src, err := Materialize(r.source, r.toSrc.mapRect(rect))
	if err != nil {
		return nil, err
	}
	out := NewRaster(rect, r.source.DataType(), r.source.NumBands())
	nbands := out.NumBands()
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			sx, sy := r.toSrc.Apply(x, y)
			for b := 0; b < nbands; b++ {
				out.SetSample(x, y, b, src.Sample(sx, sy, b))
			}
		}
	}
	return out, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
