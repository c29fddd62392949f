package raster

import (
	"image"
	"math"
	"sync"

	"github.com/geoforge/gridwarp/internal/gridwarp"
	"github.com/geoforge/gridwarp/internal/transform"
)

// ResampledImage computes pixels of a target grid from a source image
// through a pixel-to-pixel transform. Tiles are computed lazily on first
// read and cached, so concurrent readers of distinct tiles never block
// each other.
type ResampledImage struct {
	source Image
	// toSource maps target pixel indices to source pixel indices, both in
	// cell-center convention.
	toSource transform.Transform
	// affine is the fast path when toSource is linear.
	affine *transform.Affine
	interp Interpolation
	fill   []float64
	rect   image.Rectangle
	tiling Tiling
	mu     sync.Mutex
	tiles  map[image.Point]*resampledTile
}

type resampledTile struct {
	once   sync.Once
	raster *Raster
	err    error
}

// NewResampledImage builds a lazy resampled view of src over bounds.
// toSource maps target pixel indices to source pixel indices. fill holds
// one value per band, used outside the source image.
func NewResampledImage(src Image, bounds image.Rectangle, toSource transform.Transform, interp Interpolation, fill []float64) (*ResampledImage, error) {
	if bounds.Empty() {
		return nil, gridwarp.NewValidationError("empty resampled bounds %v", bounds)
	}
	if toSource.SourceDim() != 2 || toSource.TargetDim() != 2 {
		return nil, gridwarp.NewValidationError("pixel transform must be two-dimensional, got %d -> %d", toSource.SourceDim(), toSource.TargetDim())
	}
	if len(fill) != src.NumBands() {
		return nil, gridwarp.NewValidationError("got %d fill values for %d bands", len(fill), src.NumBands())
	}
	img := &ResampledImage{
		source:   src,
		toSource: toSource,
		interp:   interp,
		fill:     append([]float64(nil), fill...),
		rect:     bounds,
		tiling:   Tiling{TileWidth: DefaultTileSize, TileHeight: DefaultTileSize, OriginX: bounds.Min.X, OriginY: bounds.Min.Y},
		tiles:    map[image.Point]*resampledTile{},
	}
	if lin, ok := toSource.(transform.LinearTransform); ok {
		if aff, err := transform.AffineFromLinear(lin); err == nil {
			img.affine = aff
		}
	}
	return img, nil
}

func (r *ResampledImage) Bounds() image.Rectangle  { return r.rect }
func (r *ResampledImage) DataType() gridwarp.DType { return r.source.DataType() }
func (r *ResampledImage) NumBands() int            { return r.source.NumBands() }
func (r *ResampledImage) Tiling() Tiling           { return r.tiling }
func (r *ResampledImage) Source() Image            { return r.source }

func (r *ResampledImage) ReadTile(tx, ty int) (*Raster, error) {
	rect := r.tiling.TileRect(tx, ty).Intersect(r.rect)
	if rect.Empty() {
		return nil, gridwarp.NewValidationError("tile (%d, %d) outside image bounds %v", tx, ty, r.rect)
	}
	r.mu.Lock()
	entry, ok := r.tiles[image.Pt(tx, ty)]
	if !ok {
		entry = &resampledTile{}
		r.tiles[image.Pt(tx, ty)] = entry
	}
	r.mu.Unlock()
	entry.once.Do(func() {
		entry.raster, entry.err = r.computeTile(rect)
	})
	return entry.raster, entry.err
}

func (r *ResampledImage) computeTile(rect image.Rectangle) (*Raster, error) {
	out := NewRaster(rect, r.source.DataType(), r.source.NumBands())
	srcRegion, err := r.sourceRegion(rect)
	if err != nil {
		return nil, err
	}
	srcRegion = srcRegion.Intersect(r.source.Bounds())
	if srcRegion.Empty() {
		fillRaster(out, r.fill)
		return out, nil
	}
	src, err := Materialize(r.source, srcRegion)
	if err != nil {
		return nil, err
	}
	smp := &sampler{raster: src, interp: r.interp, fill: r.fill}
	values := make([]float64, out.NumBands())
	if r.affine != nil {
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			for x := rect.Min.X; x < rect.Max.X; x++ {
				sx, sy := r.affine.Apply(float64(x), float64(y))
				smp.valuesAt(sx+0.5, sy+0.5, values)
				for b, v := range values {
					out.SetSample(x, y, b, v)
				}
			}
		}
		return out, nil
	}
	pt := make([]float64, 2)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			pt[0], pt[1] = float64(x), float64(y)
			spt, err := r.toSource.Transform(pt)
			if err != nil {
				copy(values, r.fill)
			} else {
				smp.valuesAt(spt[0]+0.5, spt[1]+0.5, values)
			}
			for b, v := range values {
				out.SetSample(x, y, b, v)
			}
		}
	}
	return out, nil
}

// sourceRegion bounds the source pixels needed to resample rect, with a
// margin covering the interpolation support.
func (r *ResampledImage) sourceRegion(rect image.Rectangle) (image.Rectangle, error) {
	corners := [][2]float64{
		{float64(rect.Min.X), float64(rect.Min.Y)},
		{float64(rect.Max.X - 1), float64(rect.Min.Y)},
		{float64(rect.Min.X), float64(rect.Max.Y - 1)},
		{float64(rect.Max.X - 1), float64(rect.Max.Y - 1)},
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		var sx, sy float64
		if r.affine != nil {
			sx, sy = r.affine.Apply(c[0], c[1])
		} else {
			out, err := r.toSource.Transform(c[:])
			if err != nil {
				return image.Rectangle{}, gridwarp.NewTransformFailure("cannot locate source region of %v: %v", rect, err)
			}
			sx, sy = out[0], out[1]
		}
		minX, minY = math.Min(minX, sx), math.Min(minY, sy)
		maxX, maxY = math.Max(maxX, sx), math.Max(maxY, sy)
	}
	const margin = 2 // interpolation support plus rounding
	return image.Rect(
		int(math.Floor(minX))-margin, int(math.Floor(minY))-margin,
		int(math.Ceil(maxX))+margin+1, int(math.Ceil(maxY))+margin+1,
	), nil
}

func fillRaster(r *Raster, fill []float64) {
	for y := r.Rect.Min.Y; y < r.Rect.Max.Y; y++ {
		for x := r.Rect.Min.X; x < r.Rect.Max.X; x++ {
			for b, v := range fill {
				r.SetSample(x, y, b, v)
			}
		}
	}
}
