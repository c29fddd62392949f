package raster

import (
	"math"

	"github.com/geoforge/gridwarp/internal/utils"
)

// Interpolation selects how sample values are read at fractional source
// coordinates.
type Interpolation int

const (
	// Nearest picks the sample whose cell contains the coordinate.
	Nearest Interpolation = iota
	// Bilinear blends the four surrounding samples, weighted by distance.
	Bilinear
)

func (i Interpolation) String() string {
	switch i {
	case Nearest:
		return "nearest"
	case Bilinear:
		return "bilinear"
	}
	return "unknown"
}

// sampler reads interpolated band values from a raster. Coordinates use
// cell-center convention: (0.5, 0.5) is the center of the first pixel of
// a raster anchored at the origin.
type sampler struct {
	raster *Raster
	interp Interpolation
	fill   []float64
}

// valuesAt writes one value per band into dst. Coordinates outside the
// raster produce the fill values.
func (s *sampler) valuesAt(x, y float64, dst []float64) {
	switch s.interp {
	case Bilinear:
		s.bilinear(x, y, dst)
	default:
		s.nearest(x, y, dst)
	}
}

func (s *sampler) nearest(x, y float64, dst []float64) {
	px, py := int(math.Floor(x)), int(math.Floor(y))
	r := s.raster.Rect
	if px < r.Min.X || px >= r.Max.X || py < r.Min.Y || py >= r.Max.Y {
		copy(dst, s.fill)
		return
	}
	for b := range dst {
		dst[b] = s.raster.Sample(px, py, b)
	}
}

func (s *sampler) bilinear(x, y float64, dst []float64) {
	// Shift from cell-center to sample-grid coordinates.
	x -= 0.5
	y -= 0.5
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	fx, fy := x-float64(x0), y-float64(y0)
	r := s.raster.Rect
	if x0+1 < r.Min.X || x0 >= r.Max.X || y0+1 < r.Min.Y || y0 >= r.Max.Y {
		copy(dst, s.fill)
		return
	}
	// Clamp the 2x2 support at the raster edge instead of bleeding fill
	// values into valid pixels.
	cx0, cx1 := utils.ClampI(x0, r.Min.X, r.Max.X-1), utils.ClampI(x0+1, r.Min.X, r.Max.X-1)
	cy0, cy1 := utils.ClampI(y0, r.Min.Y, r.Max.Y-1), utils.ClampI(y0+1, r.Min.Y, r.Max.Y-1)
	for b := range dst {
		v00 := s.raster.Sample(cx0, cy0, b)
		v10 := s.raster.Sample(cx1, cy0, b)
		v01 := s.raster.Sample(cx0, cy1, b)
		v11 := s.raster.Sample(cx1, cy1, b)
		top := v00 + (v10-v00)*fx
		bot := v01 + (v11-v01)*fx
		dst[b] = top + (bot-top)*fy
	}
}
