package grid

import (
	"context"
	"image"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geoforge/gridwarp/internal/gridwarp"
	"github.com/geoforge/gridwarp/internal/log"
	"github.com/geoforge/gridwarp/internal/raster"
	"github.com/geoforge/gridwarp/internal/referencing"
	"github.com/geoforge/gridwarp/internal/transform"
)

// DefaultIdentityTolerance is the tolerance, in pixel units of the grid
// space, under which a grid-to-grid transform is treated as the identity.
// It absorbs the floating-point error accumulated by transform
// concatenation; callers with unusually long chains can widen it through
// Processor.Tolerance.
const DefaultIdentityTolerance = 1e-6

// Processor resamples grid coverages. The zero value uses nearest-neighbor
// interpolation, the axis-order operation finder and the default identity
// tolerance.
type Processor struct {
	Interpolation raster.Interpolation
	// Finder locates coordinate operations between reference systems.
	// Nil defaults to referencing.AxisOrderFinder.
	Finder referencing.OperationFinder
	// Tolerance in grid pixel units; zero means DefaultIdentityTolerance.
	Tolerance float64
}

func (p *Processor) tolerance() float64 {
	if p.Tolerance > 0 {
		return p.Tolerance
	}
	return DefaultIdentityTolerance
}

// Resample computes a coverage over the target grid geometry from the
// source coverage. The target geometry may be partial: a missing extent is
// computed by transforming the source extent corners, a missing transform
// is inferred from the source resolution around the source extent center.
//
// Cheap paths are preferred over pixel recomputation: when the grid-to-grid
// transform is the identity and the target extent covers the source, the
// source coverage itself is returned; when it is an axis permutation
// and/or flip at exact integer offsets, the result wraps a reshaped view
// of the source pixels. Otherwise the result renders lazily through pixel
// interpolation.
func (p *Processor) Resample(ctx context.Context, source Coverage, target *Geometry) (Coverage, error) {
	if source == nil {
		return nil, gridwarp.NewValidationError("no source coverage")
	}
	if target == nil {
		return nil, gridwarp.NewValidationError("no target geometry")
	}
	srcGG := source.GridGeometry()
	srcExtent, err := srcGG.Extent()
	if err != nil {
		return nil, err
	}
	if !srcGG.HasGridToCRS() {
		return nil, gridwarp.NewIncompleteGeometry("gridToCRS", "source coverage has no grid-to-CRS transform")
	}
	tol := p.tolerance()
	tgt, op, err := p.completeTarget(srcGG, srcExtent, target)
	if err != nil {
		return nil, err
	}
	chain, err := cornerChain(srcGG, tgt, op)
	if err != nil {
		return nil, err
	}
	tgtExtent, err := tgt.Extent()
	if err != nil {
		return nil, err
	}

	sameCRS := srcGG.CRS() == nil || tgt.CRS() == nil || srcGG.CRS().Equals(tgt.CRS())
	if sameCRS && transform.IsIdentity(chain, tol) && tgtExtent.Contains(srcExtent) {
		log.Logger(ctx).Debug("resample is a no-op, returning the source coverage",
			zap.String("coverage", source.ID().String()))
		return source, nil
	}

	if lin, ok := chain.(transform.LinearTransform); ok && lin.Matrix().IsSignedPermutation(tol) {
		c, ok, err := p.reshape(ctx, source, srcExtent, tgt, tgtExtent, chain)
		if err != nil {
			return nil, err
		}
		if ok {
			return c, nil
		}
	}

	return p.fullResample(ctx, source, srcGG, srcExtent, tgt, chain)
}

// completeTarget fills the missing parts of the target geometry and
// returns it with the coordinate operation between source and target
// reference systems (nil when none is needed).
func (p *Processor) completeTarget(srcGG *Geometry, srcExtent *Extent, target *Geometry) (*Geometry, transform.Transform, error) {
	op, err := changeOfCRS(srcGG.CRS(), target.CRS(), p.Finder)
	if err != nil {
		return nil, nil, err
	}
	crs := target.CRS()
	if crs == nil {
		crs = srcGG.CRS()
	}
	var center transform.Transform
	switch {
	case target.HasGridToCRS():
		center, err = target.GridToCRS(CellCenter)
	case op == nil:
		// Same reference system: the target grid reuses the source mapping,
		// so an extent-only target selects a sub-grid of the source.
		center, err = srcGG.GridToCRS(CellCenter)
	default:
		center, err = deriveGridToCRS(srcGG, srcExtent, op)
	}
	if err != nil {
		return nil, nil, err
	}
	extent := target.extent
	if extent == nil {
		// Enclose the source data: transform the 2^n source extent corners
		// and round outward.
		tmp, err := NewGeometry(nil, CellCenter, center, crs)
		if err != nil {
			return nil, nil, err
		}
		chain, err := cornerChain(srcGG, tmp, op)
		if err != nil {
			return nil, nil, err
		}
		extent, err = TransformExtent(srcExtent, chain, RoundEnclosing)
		if err != nil {
			return nil, nil, err
		}
	}
	tgt, err := NewGeometry(extent, CellCenter, center, crs)
	if err != nil {
		return nil, nil, err
	}
	return tgt, op, nil
}

// cornerChain composes source grid corners to target grid corners through
// the given coordinate operation.
func cornerChain(source, target *Geometry, op transform.Transform) (transform.Transform, error) {
	srcCorner, err := source.GridToCRS(CellCorner)
	if err != nil {
		return nil, err
	}
	tgtCorner, err := target.GridToCRS(CellCorner)
	if err != nil {
		return nil, err
	}
	crsToGrid, err := tgtCorner.Inverse()
	if err != nil {
		return nil, gridwarp.NewTransformFailure("target grid-to-CRS transform is not invertible: %v", err)
	}
	return transform.Concatenate(srcCorner, op, crsToGrid), nil
}

// centerSandwich converts a transform between cell-corner coordinate
// spaces into the equivalent transform between cell-center spaces.
func centerSandwich(t transform.Transform) transform.Transform {
	toCorner := make([]float64, t.SourceDim())
	toCenter := make([]float64, t.TargetDim())
	for d := range toCorner {
		toCorner[d] = 0.5
	}
	for d := range toCenter {
		toCenter[d] = -0.5
	}
	return transform.Concatenate(transform.Translation(toCorner...), t, transform.Translation(toCenter...))
}

// deriveGridToCRS infers a target cell-center grid-to-CRS transform when
// the target geometry only declares a reference system. The source
// resolution is preserved around the center of the source extent: the
// Jacobian of the source-grid-to-target-CRS chain at that point is reduced
// to one dominant grid axis per CRS axis, each axis matched greedily by
// decreasing magnitude, and the translation pins the extent center.
func deriveGridToCRS(srcGG *Geometry, srcExtent *Extent, op transform.Transform) (transform.Transform, error) {
	srcCenter, err := srcGG.GridToCRS(CellCenter)
	if err != nil {
		return nil, err
	}
	fwd := transform.Concatenate(srcCenter, op)
	poi := srcExtent.Centroid()
	poiCRS, err := fwd.Transform(poi)
	if err != nil {
		return nil, gridwarp.NewTransformFailure("cannot transform the source extent center %v: %v", poi, err)
	}
	jac, err := transform.Derivative(fwd, poi)
	if err != nil {
		return nil, gridwarp.NewTransformFailure("cannot differentiate the coordinate operation at %v: %v", poi, err)
	}
	crsDim, gridDim := jac.Rows(), jac.Cols()
	mat := transform.NewMatrix(crsDim+1, gridDim+1)
	mat.Set(crsDim, gridDim, 1)
	used := make([]bool, gridDim)
	for i := 0; i < crsDim; i++ {
		best, bestMag := -1, 0.0
		for j := 0; j < gridDim; j++ {
			if m := math.Abs(jac.At(i, j)); !used[j] && m > bestMag {
				best, bestMag = j, m
			}
		}
		if best < 0 {
			return nil, gridwarp.NewTransformFailure("cannot match a grid axis to CRS axis %d", i)
		}
		used[best] = true
		mat.Set(i, best, jac.At(i, best))
	}
	// The extent center keeps its CRS position.
	for i := 0; i < crsDim; i++ {
		s := 0.0
		for j := 0; j < gridDim; j++ {
			s += mat.At(i, j) * poi[j]
		}
		mat.Set(i, gridDim, poiCRS[i]-s)
	}
	return transform.NewLinear(mat)
}

// reshape handles the signed-permutation shortcut: the target pixels are
// the source pixels under an axis swap and/or flip at integer offsets, so
// the result wraps a view of the rendered source instead of recomputing
// samples. It reports false when the permutation does not reduce to the
// two image axes.
func (p *Processor) reshape(ctx context.Context, source Coverage, srcExtent *Extent, tgt *Geometry, tgtExtent *Extent, chain transform.Transform) (Coverage, bool, error) {
	chainInv, err := chain.Inverse()
	if err != nil {
		return nil, false, gridwarp.NewTransformFailure("grid-to-grid transform is not invertible: %v", err)
	}
	centerInv, ok := centerSandwich(chainInv).(transform.LinearTransform)
	if !ok {
		return nil, false, nil
	}
	mat := centerInv.Matrix()
	srcXY, err := srcExtent.SubspaceDimensions(2)
	if err != nil {
		return nil, false, err
	}
	tgtXY, err := tgtExtent.SubspaceDimensions(2)
	if err != nil {
		return nil, false, err
	}
	n := tgtExtent.Dimension()
	if mat.Cols()-1 != n {
		return nil, false, nil
	}
	perm := raster.PixelPermutation{}
	for k, sd := range srcXY {
		// The single non-zero coefficient of this source axis must come
		// from a target image axis, otherwise a 2D view cannot express the
		// permutation.
		var lin, cst float64
		var onX bool
		cst = mat.At(sd, n)
		for j := 0; j < n; j++ {
			v := mat.At(sd, j)
			if v == 0 {
				continue
			}
			switch j {
			case tgtXY[0]:
				lin, onX = v, true
			case tgtXY[1]:
				lin, onX = v, false
			default:
				if tgtExtent.Size(j) != 1 {
					return nil, false, nil
				}
			}
			cst += v * float64(tgtExtent.Low(j))
		}
		if lin == 0 {
			return nil, false, nil
		}
		li, ci := int(math.Round(lin)), int(math.Round(cst))-int(srcExtent.Low(sd))
		if k == 0 {
			if onX {
				perm.XX, perm.XT = li, ci
			} else {
				perm.XY, perm.XT = li, ci
			}
		} else {
			if onX {
				perm.YX, perm.YT = li, ci
			} else {
				perm.YY, perm.YT = li, ci
			}
		}
	}
	srcImg, err := source.Render(nil)
	if err != nil {
		return nil, false, err
	}
	var img raster.Image
	if perm == (raster.PixelPermutation{XX: 1, YY: 1}) {
		// Pure metadata change: the backing image is shared as-is.
		img = srcImg
	} else {
		img, err = raster.NewReshapedImage(srcImg, perm)
		if err != nil {
			return nil, false, err
		}
	}
	want := image.Rect(0, 0, int(tgtExtent.Size(tgtXY[0])), int(tgtExtent.Size(tgtXY[1])))
	if img.Bounds() != want {
		// The target extent does not map exactly onto the source pixels;
		// the general path handles clipping and fill values.
		return nil, false, nil
	}
	log.Logger(ctx).Debug("resample reduces to an axis permutation",
		zap.String("coverage", source.ID().String()))
	c, err := NewCoverage2D(tgt, source.SampleDimensions(), img)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// fullResample builds a coverage whose rendering interpolates source
// pixels through the inverse grid-to-grid transform.
func (p *Processor) fullResample(ctx context.Context, source Coverage, srcGG *Geometry, srcExtent *Extent, tgt *Geometry, chain transform.Transform) (Coverage, error) {
	chainInv, err := chain.Inverse()
	if err != nil {
		return nil, gridwarp.NewTransformFailure("grid-to-grid transform is not invertible: %v", err)
	}
	srcXY, err := srcExtent.SubspaceDimensions(2)
	if err != nil {
		return nil, err
	}
	tgtExtent, err := tgt.Extent()
	if err != nil {
		return nil, err
	}
	tgtXY, err := tgtExtent.SubspaceDimensions(2)
	if err != nil {
		return nil, err
	}
	log.Logger(ctx).Debug("resampling through pixel interpolation",
		zap.String("coverage", source.ID().String()),
		zap.String("interpolation", p.Interpolation.String()),
		zap.String("extent", tgtExtent.String()))
	return &resampledCoverage{
		id:        uuid.New(),
		source:    source,
		geometry:  tgt,
		srcExtent: srcExtent,
		toSource:  centerSandwich(chainInv),
		cornerInv: chainInv,
		srcXY:     [2]int{srcXY[0], srcXY[1]},
		tgtXY:     [2]int{tgtXY[0], tgtXY[1]},
		interp:    p.Interpolation,
		tol:       p.tolerance(),
	}, nil
}

// resampledCoverage renders lazily: tiles of the returned image compute
// their pixels on first access. The configuration is immutable after
// construction, so one instance may serve concurrent renders.
type resampledCoverage struct {
	id        uuid.UUID
	source    Coverage
	geometry  *Geometry
	srcExtent *Extent
	// toSource maps target grid cell centers to source grid cell centers.
	toSource transform.Transform
	// cornerInv is the same mapping between cell-corner spaces, used for
	// extent arithmetic.
	cornerInv transform.Transform
	srcXY     [2]int
	tgtXY     [2]int
	interp    raster.Interpolation
	tol       float64
}

func (c *resampledCoverage) ID() uuid.UUID           { return c.id }
func (c *resampledCoverage) GridGeometry() *Geometry { return c.geometry }

func (c *resampledCoverage) SampleDimensions() []gridwarp.SampleDimension {
	return c.source.SampleDimensions()
}

func (c *resampledCoverage) Render(sliceExtent *Extent) (raster.Image, error) {
	tgtExtent := c.geometry.extent
	slice := tgtExtent
	if sliceExtent != nil {
		var err error
		slice, err = tgtExtent.Intersect(sliceExtent)
		if err != nil {
			return nil, err
		}
	}
	for d := 0; d < slice.Dimension(); d++ {
		if d != c.tgtXY[0] && d != c.tgtXY[1] && slice.Size(d) != 1 {
			return nil, gridwarp.NewValidationError("slice extent has size %d in dimension %d, rendering needs a two-dimensional slice", slice.Size(d), d)
		}
	}
	// Source pixels feeding the slice.
	srcRegion, err := TransformExtent(slice, c.cornerInv, RoundEnclosing)
	if err != nil {
		return nil, err
	}
	srcSlice, err := c.srcExtent.Intersect(srcRegion)
	if err != nil {
		if gridwarp.IsError(err, gridwarp.DisjointExtent) {
			return nil, gridwarp.NewIncompatibleResource("extent", "the target slice %v does not intersect the source data: %v", slice, err)
		}
		return nil, err
	}
	srcImg, err := c.source.Render(srcSlice)
	if err != nil {
		return nil, err
	}
	toPixels, err := c.pixelTransform(slice, srcSlice)
	if err != nil {
		return nil, err
	}
	fill := make([]float64, srcImg.NumBands())
	for b, sd := range c.source.SampleDimensions() {
		fill[b] = sd.FillValue(srcImg.DataType())
	}
	bounds := image.Rect(0, 0, int(slice.Size(c.tgtXY[0])), int(slice.Size(c.tgtXY[1])))
	return raster.NewResampledImage(srcImg, bounds, toPixels, c.interp, fill)
}

// pixelTransform composes the 2D transform from target image pixels to
// source image pixels: pixel to target grid, grid-to-grid, then source
// grid to pixel. The grid-to-grid part is separated into an exact 2D
// transform when possible; non-separable transforms are evaluated on the
// full dimensionality with the remaining target dimensions pinned to the
// slice position.
func (c *resampledCoverage) pixelTransform(slice, srcSlice *Extent) (transform.Transform, error) {
	tx, ty := c.tgtXY[0], c.tgtXY[1]
	sx, sy := c.srcXY[0], c.srcXY[1]
	mid, err := transform.Separate(c.toSource, []int{tx, ty}, []int{sx, sy}, c.tol)
	var mid2D transform.Transform = mid
	if err != nil {
		fixed := make([]float64, slice.Dimension())
		for d := range fixed {
			fixed[d] = float64(slice.Low(d))
		}
		mid2D = transform.SelectTargetDims(transform.FixSourceDims(c.toSource, []int{tx, ty}, fixed), []int{sx, sy})
	}
	return transform.Concatenate(
		transform.Translation(float64(slice.Low(tx)), float64(slice.Low(ty))),
		mid2D,
		transform.Translation(-float64(srcSlice.Low(sx)), -float64(srcSlice.Low(sy))),
	), nil
}
