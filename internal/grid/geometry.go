package grid

import (
	"math"
	"sync"

	"github.com/twpayne/go-geom"

	"github.com/geoforge/gridwarp/internal/gridwarp"
	"github.com/geoforge/gridwarp/internal/referencing"
	"github.com/geoforge/gridwarp/internal/transform"
)

// PixelInCell declares which point of a cell a grid-to-CRS transform maps:
// the cell center or its lower corner. The two anchors differ by a
// half-cell translation on the grid side.
type PixelInCell int

const (
	CellCenter PixelInCell = iota
	CellCorner
)

func (p PixelInCell) String() string {
	if p == CellCorner {
		return "cell corner"
	}
	return "cell center"
}

// Geometry ties a grid extent to a coordinate reference system through a
// grid-to-CRS transform. Any of the three parts may be absent, as long as
// at least one is present; accessors report which aspect is missing.
// Instances are immutable: derived geometries are new instances.
type Geometry struct {
	extent   *Extent
	corner   transform.Transform // grid cell corners to CRS, nil if unknown
	center   transform.Transform
	crs      referencing.CRS
	envOnce  sync.Once
	envelope *geom.Bounds
	envErr   error
}

// NewGeometry builds a grid geometry. gridToCRS is interpreted at the
// given anchor; the other anchor is derived. extent, gridToCRS and crs are
// each optional but at least one must be given.
func NewGeometry(extent *Extent, anchor PixelInCell, gridToCRS transform.Transform, crs referencing.CRS) (*Geometry, error) {
	if extent == nil && gridToCRS == nil && crs == nil {
		return nil, gridwarp.NewIncompleteGeometry("geometry", "a grid geometry needs an extent, a transform or a reference system")
	}
	g := &Geometry{extent: extent, crs: crs}
	if gridToCRS != nil {
		if extent != nil && gridToCRS.SourceDim() != extent.Dimension() {
			return nil, gridwarp.NewValidationError("transform expects %d grid dimensions, extent has %d", gridToCRS.SourceDim(), extent.Dimension())
		}
		if crs != nil && gridToCRS.TargetDim() != crs.Dimension() {
			return nil, gridwarp.NewValidationError("transform produces %d coordinates, reference system has %d axes", gridToCRS.TargetDim(), crs.Dimension())
		}
		switch anchor {
		case CellCorner:
			g.corner = gridToCRS
			// Cell centers sit half a cell above the corner coordinates.
			g.center = shiftAnchor(gridToCRS, +0.5)
		default:
			g.center = gridToCRS
			g.corner = shiftAnchor(gridToCRS, -0.5)
		}
	}
	return g, nil
}

// shiftAnchor composes a half-cell grid-side translation with the given
// transform.
func shiftAnchor(t transform.Transform, offset float64) transform.Transform {
	off := make([]float64, t.SourceDim())
	for d := range off {
		off[d] = offset
	}
	return transform.Concatenate(transform.Translation(off...), t)
}

// Dimension returns the number of grid dimensions.
func (g *Geometry) Dimension() int {
	if g.extent != nil {
		return g.extent.Dimension()
	}
	if g.corner != nil {
		return g.corner.SourceDim()
	}
	return g.crs.Dimension()
}

// HasExtent reports whether the grid extent is known.
func (g *Geometry) HasExtent() bool { return g.extent != nil }

// HasGridToCRS reports whether the grid-to-CRS transform is known.
func (g *Geometry) HasGridToCRS() bool { return g.corner != nil }

// Extent returns the grid extent, or an incomplete-geometry error.
func (g *Geometry) Extent() (*Extent, error) {
	if g.extent == nil {
		return nil, gridwarp.NewIncompleteGeometry("extent", "grid geometry has no extent")
	}
	return g.extent, nil
}

// GridToCRS returns the transform from grid coordinates at the given
// anchor to CRS coordinates, or an incomplete-geometry error.
func (g *Geometry) GridToCRS(anchor PixelInCell) (transform.Transform, error) {
	if g.corner == nil {
		return nil, gridwarp.NewIncompleteGeometry("gridToCRS", "grid geometry has no transform")
	}
	if anchor == CellCorner {
		return g.corner, nil
	}
	return g.center, nil
}

// CRS returns the coordinate reference system, which may be nil.
func (g *Geometry) CRS() referencing.CRS { return g.crs }

// Envelope returns the bounding box of the extent in CRS coordinates.
// It is computed on first call by transforming the extent corners, then
// cached.
func (g *Geometry) Envelope() (*geom.Bounds, error) {
	g.envOnce.Do(func() {
		g.envelope, g.envErr = g.computeEnvelope()
	})
	return g.envelope, g.envErr
}

func (g *Geometry) computeEnvelope() (*geom.Bounds, error) {
	if g.extent == nil {
		return nil, gridwarp.NewIncompleteGeometry("extent", "cannot compute the envelope without an extent")
	}
	if g.corner == nil {
		return nil, gridwarp.NewIncompleteGeometry("gridToCRS", "cannot compute the envelope without a transform")
	}
	layout, err := layoutFor(g.corner.TargetDim())
	if err != nil {
		return nil, err
	}
	min := make(geom.Coord, g.corner.TargetDim())
	max := make(geom.Coord, g.corner.TargetDim())
	for d := range min {
		min[d], max[d] = math.Inf(1), math.Inf(-1)
	}
	for _, c := range g.extent.Corners() {
		p, err := g.corner.Transform(c)
		if err != nil {
			return nil, gridwarp.NewTransformFailure("cannot transform extent corner %v: %v", c, err)
		}
		for d, v := range p {
			if v < min[d] {
				min[d] = v
			}
			if v > max[d] {
				max[d] = v
			}
		}
	}
	return geom.NewBounds(layout).SetCoords(min, max), nil
}

func layoutFor(dim int) (geom.Layout, error) {
	switch dim {
	case 2:
		return geom.XY, nil
	case 3:
		return geom.XYZ, nil
	case 4:
		return geom.XYZM, nil
	}
	return geom.NoLayout, gridwarp.NewValidationError("no envelope layout for %d dimensions", dim)
}

// Equals reports whether both geometries describe the same grid: equal
// extents, equal reference systems and grid-to-CRS transforms equal
// within the given tolerance.
func (g *Geometry) Equals(o *Geometry, tol float64) bool {
	if o == nil {
		return false
	}
	if (g.extent == nil) != (o.extent == nil) || (g.extent != nil && !g.extent.Equals(o.extent)) {
		return false
	}
	if (g.crs == nil) != (o.crs == nil) || (g.crs != nil && !g.crs.Equals(o.crs)) {
		return false
	}
	if (g.corner == nil) != (o.corner == nil) {
		return false
	}
	if g.corner != nil {
		return transformsEqual(g.corner, o.corner, tol)
	}
	return true
}

func transformsEqual(a, b transform.Transform, tol float64) bool {
	la, aok := a.(transform.LinearTransform)
	lb, bok := b.(transform.LinearTransform)
	if aok && bok {
		return la.Matrix().Equal(lb.Matrix(), tol)
	}
	return a == b
}
