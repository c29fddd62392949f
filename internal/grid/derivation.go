package grid

import (
	"github.com/twpayne/go-geom"

	"github.com/geoforge/gridwarp/internal/gridwarp"
	"github.com/geoforge/gridwarp/internal/referencing"
	"github.com/geoforge/gridwarp/internal/transform"
)

// Derivation builds a grid geometry derived from a base one: restricted to
// an area of interest, read at a sparser resolution, or both. Intermediate
// state stays in the builder; Build produces the immutable result.
type Derivation struct {
	base        *Geometry
	extent      *Extent
	subsampling []int64
	err         error
}

// NewDerivation starts a derivation from the given base geometry.
func NewDerivation(base *Geometry) *Derivation {
	d := &Derivation{base: base}
	if base == nil {
		d.err = gridwarp.NewValidationError("no base geometry to derive from")
		return d
	}
	d.extent, d.err = base.Extent()
	if d.err == nil {
		d.subsampling = make([]int64, d.extent.Dimension())
		for i := range d.subsampling {
			d.subsampling[i] = 1
		}
	}
	return d
}

// Subgrid restricts the derived geometry to the cells of the base extent
// intersecting the area of interest.
func (d *Derivation) Subgrid(areaOfInterest *Extent) *Derivation {
	if d.err != nil {
		return d
	}
	d.extent, d.err = d.extent.Intersect(areaOfInterest)
	return d
}

// SubgridFromEnvelope restricts the derived geometry to the cells whose
// CRS footprint intersects the envelope. The envelope axes follow the base
// geometry CRS.
func (d *Derivation) SubgridFromEnvelope(env *geom.Bounds) *Derivation {
	if d.err != nil {
		return d
	}
	if env == nil {
		d.err = gridwarp.NewValidationError("no envelope to derive a subgrid from")
		return d
	}
	n := d.extent.Dimension()
	if env.Layout().Stride() != n {
		d.err = gridwarp.NewValidationError("envelope has %d dimensions, grid has %d", env.Layout().Stride(), n)
		return d
	}
	corner, err := d.base.GridToCRS(CellCorner)
	if err != nil {
		d.err = err
		return d
	}
	crsToGrid, err := corner.Inverse()
	if err != nil {
		d.err = gridwarp.NewTransformFailure("grid-to-CRS transform is not invertible: %v", err)
		return d
	}
	corners := make([][]float64, 0, 1<<uint(n))
	for mask := 0; mask < 1<<uint(n); mask++ {
		c := make([]float64, n)
		for dim := 0; dim < n; dim++ {
			if mask&(1<<uint(dim)) != 0 {
				c[dim] = env.Max(dim)
			} else {
				c[dim] = env.Min(dim)
			}
		}
		g, err := crsToGrid.Transform(c)
		if err != nil {
			d.err = gridwarp.NewTransformFailure("cannot locate envelope corner %v on the grid: %v", c, err)
			return d
		}
		corners = append(corners, g)
	}
	area, err := ExtentFromCorners(corners, RoundEnclosing)
	if err != nil {
		d.err = err
		return d
	}
	return d.Subgrid(area)
}

// Subsample reads every factor-th cell along each dimension. A requested
// domain permitting sparser reading translates into factors greater than
// one; derived grid coordinate k covers base cells [k*f, (k+1)*f).
func (d *Derivation) Subsample(factors ...int64) *Derivation {
	if d.err != nil {
		return d
	}
	if len(factors) != d.extent.Dimension() {
		d.err = gridwarp.NewValidationError("got %d subsampling factors for %d dimensions", len(factors), d.extent.Dimension())
		return d
	}
	for i, f := range factors {
		if f < 1 {
			d.err = gridwarp.NewValidationError("invalid subsampling factor %d in dimension %d", f, i)
			return d
		}
		d.subsampling[i] *= f
	}
	return d
}

// Build returns the derived geometry. The derived extent covers the
// selected cells at the subsampled resolution and the grid-to-CRS
// transform absorbs the scale change, so the derived geometry maps to the
// same CRS region as the selection.
func (d *Derivation) Build() (*Geometry, error) {
	if d.err != nil {
		return nil, d.err
	}
	n := d.extent.Dimension()
	low := make([]int64, n)
	high := make([]int64, n)
	scale := make([]float64, n)
	subsampled := false
	for i := 0; i < n; i++ {
		f := d.subsampling[i]
		low[i] = floorDivI64(d.extent.Low(i), f)
		high[i] = ceilDivI64(d.extent.High(i), f)
		scale[i] = float64(f)
		subsampled = subsampled || f != 1
	}
	extent, err := NewExtent(low, high)
	if err != nil {
		return nil, err
	}
	if !d.base.HasGridToCRS() {
		return NewGeometry(extent, CellCenter, nil, d.base.CRS())
	}
	corner, err := d.base.GridToCRS(CellCorner)
	if err != nil {
		return nil, err
	}
	if subsampled {
		corner = transform.Concatenate(transform.Scale(scale...), corner)
	}
	return NewGeometry(extent, CellCorner, corner, d.base.CRS())
}

// changeOfCRS returns the coordinate operation between both reference
// systems, nil when none is needed.
func changeOfCRS(source, target referencing.CRS, finder referencing.OperationFinder) (transform.Transform, error) {
	if source == nil || target == nil || source.Equals(target) {
		return nil, nil
	}
	if finder == nil {
		finder = referencing.AxisOrderFinder{}
	}
	op, err := finder.FindOperation(source, target)
	if err != nil {
		return nil, gridwarp.NewTransformFailure("no operation from %q to %q: %v", source.Name(), target.Name(), err)
	}
	return op, nil
}

func floorDivI64(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func ceilDivI64(a, b int64) int64 {
	return -floorDivI64(-a, b)
}
