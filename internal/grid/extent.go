// Package grid implements grid geometries, grid coverages and the
// resampling engine operating on them. Grid coordinates are integer cell
// indices; a grid-to-CRS transform anchored at a pixel-in-cell convention
// maps them to real-world coordinates.
package grid

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/geoforge/gridwarp/internal/gridwarp"
	"github.com/geoforge/gridwarp/internal/transform"
)

// Extent is an n-dimensional half-open integer box: cell indices of
// dimension d range over [Low(d), High(d)). Immutable once constructed.
type Extent struct {
	low  []int64
	high []int64
}

// NewExtent builds an extent from per-dimension bounds. Every dimension
// must satisfy low < high.
func NewExtent(low, high []int64) (*Extent, error) {
	if len(low) == 0 || len(low) != len(high) {
		return nil, gridwarp.NewValidationError("mismatched extent bounds: %d low, %d high", len(low), len(high))
	}
	for d := range low {
		if low[d] >= high[d] {
			return nil, gridwarp.NewValidationError("empty extent in dimension %d: [%d, %d)", d, low[d], high[d])
		}
	}
	return &Extent{
		low:  append([]int64(nil), low...),
		high: append([]int64(nil), high...),
	}, nil
}

// NewExtent2D builds a two-dimensional extent.
func NewExtent2D(lowX, lowY, highX, highY int64) (*Extent, error) {
	return NewExtent([]int64{lowX, lowY}, []int64{highX, highY})
}

// MustExtent is NewExtent for statically known bounds.
func MustExtent(low, high []int64) *Extent {
	e, err := NewExtent(low, high)
	if err != nil {
		panic(err)
	}
	return e
}

// Dimension returns the number of grid dimensions.
func (e *Extent) Dimension() int { return len(e.low) }

// Low returns the inclusive lower bound of dimension d.
func (e *Extent) Low(d int) int64 { return e.low[d] }

// High returns the exclusive upper bound of dimension d.
func (e *Extent) High(d int) int64 { return e.high[d] }

// Size returns the number of cells along dimension d.
func (e *Extent) Size(d int) int64 { return e.high[d] - e.low[d] }

// Equals reports whether both extents cover the same cells.
func (e *Extent) Equals(o *Extent) bool {
	if o == nil || len(e.low) != len(o.low) {
		return false
	}
	for d := range e.low {
		if e.low[d] != o.low[d] || e.high[d] != o.high[d] {
			return false
		}
	}
	return true
}

// Contains reports whether every cell of o is also a cell of e.
func (e *Extent) Contains(o *Extent) bool {
	if o == nil || len(e.low) != len(o.low) {
		return false
	}
	for d := range e.low {
		if o.low[d] < e.low[d] || o.high[d] > e.high[d] {
			return false
		}
	}
	return true
}

// Intersect returns the extent of the cells common to both. It fails with
// a disjoint-extent error when there is none.
func (e *Extent) Intersect(o *Extent) (*Extent, error) {
	if o == nil || len(e.low) != len(o.low) {
		return nil, gridwarp.NewValidationError("cannot intersect extents of dimensions %d and %d", e.Dimension(), o.Dimension())
	}
	low := make([]int64, len(e.low))
	high := make([]int64, len(e.high))
	for d := range e.low {
		low[d] = maxI64(e.low[d], o.low[d])
		high[d] = minI64(e.high[d], o.high[d])
		if low[d] >= high[d] {
			return nil, gridwarp.NewDisjointExtent("extents %v and %v do not overlap in dimension %d", e, o, d)
		}
	}
	return &Extent{low: low, high: high}, nil
}

// Translated returns the extent shifted by the given per-dimension offsets.
func (e *Extent) Translated(offsets []int64) *Extent {
	low := make([]int64, len(e.low))
	high := make([]int64, len(e.high))
	for d := range e.low {
		low[d] = e.low[d] + offsets[d]
		high[d] = e.high[d] + offsets[d]
	}
	return &Extent{low: low, high: high}
}

// Corners returns the 2^n exterior corners of the extent in cell-corner
// coordinates, each as a coordinate tuple.
func (e *Extent) Corners() [][]float64 {
	n := e.Dimension()
	corners := make([][]float64, 0, 1<<uint(n))
	for mask := 0; mask < 1<<uint(n); mask++ {
		c := make([]float64, n)
		for d := 0; d < n; d++ {
			if mask&(1<<uint(d)) != 0 {
				c[d] = float64(e.high[d])
			} else {
				c[d] = float64(e.low[d])
			}
		}
		corners = append(corners, c)
	}
	return corners
}

// Centroid returns the center of the extent in cell-center coordinates.
func (e *Extent) Centroid() []float64 {
	c := make([]float64, e.Dimension())
	for d := range c {
		c[d] = float64(e.low[d]+e.high[d])/2 - 0.5
	}
	return c
}

// SubspaceDimensions returns the indices of the n dimensions with the
// largest sizes, in increasing index order. It selects the two dimensions
// mapped to image axes when the grid has more than two dimensions.
func (e *Extent) SubspaceDimensions(n int) ([]int, error) {
	if n > e.Dimension() {
		return nil, gridwarp.NewValidationError("cannot select %d dimensions out of %d", n, e.Dimension())
	}
	dims := make([]int, e.Dimension())
	for d := range dims {
		dims[d] = d
	}
	// Stable: ties keep the lowest dimension indices.
	sort.SliceStable(dims, func(i, j int) bool {
		return e.Size(dims[i]) > e.Size(dims[j])
	})
	dims = dims[:n]
	sort.Ints(dims)
	return dims, nil
}

func (e *Extent) String() string {
	var sb strings.Builder
	for d := range e.low {
		if d > 0 {
			sb.WriteString(" x ")
		}
		fmt.Fprintf(&sb, "[%d, %d)", e.low[d], e.high[d])
	}
	return sb.String()
}

// RoundingMode controls how fractional bounds become integer extents.
type RoundingMode int

const (
	// RoundEnclosing expands outward so the extent covers the whole box.
	RoundEnclosing RoundingMode = iota
	// RoundNearest snaps each bound to the closest integer.
	RoundNearest
	// RoundContained shrinks inward to the cells fully inside the box.
	RoundContained
)

// ExtentFromCorners builds the integer extent enclosing points expressed
// in cell-corner coordinates. Dimensions collapsed by rounding keep a
// minimum size of one cell.
func ExtentFromCorners(corners [][]float64, rounding RoundingMode) (*Extent, error) {
	if len(corners) == 0 {
		return nil, gridwarp.NewValidationError("no corner to build an extent from")
	}
	n := len(corners[0])
	min := make([]float64, n)
	max := make([]float64, n)
	for d := 0; d < n; d++ {
		min[d], max[d] = math.Inf(1), math.Inf(-1)
	}
	for _, c := range corners {
		for d, v := range c {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, gridwarp.NewTransformFailure("non-finite corner coordinate in dimension %d", d)
			}
			min[d] = math.Min(min[d], v)
			max[d] = math.Max(max[d], v)
		}
	}
	low := make([]int64, n)
	high := make([]int64, n)
	for d := 0; d < n; d++ {
		switch rounding {
		case RoundNearest:
			low[d] = int64(math.Round(min[d]))
			high[d] = int64(math.Round(max[d]))
		case RoundContained:
			low[d] = int64(math.Ceil(min[d]))
			high[d] = int64(math.Floor(max[d]))
		default:
			low[d] = int64(math.Floor(min[d]))
			high[d] = int64(math.Ceil(max[d]))
		}
		if high[d] <= low[d] {
			// Collapsed row or column: 2D image machinery needs at least
			// one cell along each axis.
			high[d] = low[d] + 1
		}
	}
	return &Extent{low: low, high: high}, nil
}

// TransformExtent maps an extent through a transform taking cell-corner
// coordinates, returning the integer extent enclosing the images of its
// corners.
func TransformExtent(e *Extent, t transform.Transform, rounding RoundingMode) (*Extent, error) {
	corners := e.Corners()
	out := make([][]float64, 0, len(corners))
	for _, c := range corners {
		r, err := t.Transform(c)
		if err != nil {
			return nil, gridwarp.NewTransformFailure("cannot transform corner %v: %v", c, err)
		}
		out = append(out, r)
	}
	return ExtentFromCorners(out, rounding)
}

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
