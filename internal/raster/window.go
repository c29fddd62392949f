package raster

import (
	"image"

	"github.com/geoforge/gridwarp/internal/gridwarp"
)

// Window is a translated view of a region of another image. Pixel (x, y)
// of the window maps to (x+dx, y+dy) of the source. Tiles are views of the
// source data when the source exposes zero-copy access.
type Window struct {
	source Image
	rect   image.Rectangle
	dx, dy int
	tiling Tiling
}

// NewWindow exposes region of src re-origined at origin.
func NewWindow(src Image, region image.Rectangle, origin image.Point) (*Window, error) {
	region = region.Intersect(src.Bounds())
	if region.Empty() {
		return nil, gridwarp.NewDisjointExtent("window region outside source bounds %v", src.Bounds())
	}
	dx := region.Min.X - origin.X
	dy := region.Min.Y - origin.Y
	st := src.Tiling()
	return &Window{
		source: src,
		rect:   region.Sub(image.Pt(dx, dy)),
		dx:     dx,
		dy:     dy,
		tiling: Tiling{
			TileWidth:  st.TileWidth,
			TileHeight: st.TileHeight,
			OriginX:    st.OriginX - dx,
			OriginY:    st.OriginY - dy,
		},
	}, nil
}

func (w *Window) Bounds() image.Rectangle  { return w.rect }
func (w *Window) DataType() gridwarp.DType { return w.source.DataType() }
func (w *Window) NumBands() int            { return w.source.NumBands() }
func (w *Window) Tiling() Tiling           { return w.tiling }
func (w *Window) Source() Image            { return w.source }

func (w *Window) ReadTile(tx, ty int) (*Raster, error) {
	rect := w.tiling.TileRect(tx, ty).Intersect(w.rect)
	if rect.Empty() {
		return nil, gridwarp.NewValidationError("tile (%d, %d) outside window bounds %v", tx, ty, w.rect)
	}
	r, err := Materialize(w.source, rect.Add(image.Pt(w.dx, w.dy)))
	if err != nil {
		return nil, err
	}
	return r.Translated(-w.dx, -w.dy), nil
}

// RasterView returns the region as a raster, zero-copy when the source
// allows it.
func (w *Window) RasterView(region image.Rectangle) (*Raster, error) {
	region = region.Intersect(w.rect)
	if region.Empty() {
		return nil, gridwarp.NewValidationError("region outside window bounds %v", w.rect)
	}
	r, err := Materialize(w.source, region.Add(image.Pt(w.dx, w.dy)))
	if err != nil {
		return nil, err
	}
	return r.Translated(-w.dx, -w.dy), nil
}
