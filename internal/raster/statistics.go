package raster

import (
	"context"
	"math"
)

// Statistics accumulates sample statistics for one band. The zero value is
// an empty accumulator. NaN samples are ignored.
type Statistics struct {
	Count      int64
	Min, Max   float64
	Sum        float64
	SumSquares float64
}

// Accept adds one sample value.
func (s *Statistics) Accept(v float64) {
	if math.IsNaN(v) {
		return
	}
	if s.Count == 0 || v < s.Min {
		s.Min = v
	}
	if s.Count == 0 || v > s.Max {
		s.Max = v
	}
	s.Count++
	s.Sum += v
	s.SumSquares += v * v
}

// Merge folds another accumulator into s. Merging is commutative and
// associative, so partial results can be combined in any order.
func (s *Statistics) Merge(o Statistics) {
	if o.Count == 0 {
		return
	}
	if s.Count == 0 || o.Min < s.Min {
		s.Min = o.Min
	}
	if s.Count == 0 || o.Max > s.Max {
		s.Max = o.Max
	}
	s.Count += o.Count
	s.Sum += o.Sum
	s.SumSquares += o.SumSquares
}

// Mean returns the average of the accepted samples, NaN when empty.
func (s Statistics) Mean() float64 {
	if s.Count == 0 {
		return math.NaN()
	}
	return s.Sum / float64(s.Count)
}

// StandardDeviation returns the population standard deviation, NaN when
// empty.
func (s Statistics) StandardDeviation() float64 {
	if s.Count == 0 {
		return math.NaN()
	}
	m := s.Mean()
	return math.Sqrt(s.SumSquares/float64(s.Count) - m*m)
}

// ComputeStatistics computes per-band statistics over every pixel of img.
// Tiles are processed by a TileExecutor: sequentially or on a worker pool
// depending on mode, with failing tiles handled per errorAction. Partial
// results are merged in tile order in both modes, so a run is reproducible
// whatever the scheduling; bands whose every tile failed report a count of
// zero in Log mode.
func ComputeStatistics(ctx context.Context, img Image, mode ExecutionMode, errorAction ErrorAction) ([]Statistics, error) {
	nbands := img.NumBands()
	tx0, ty0, tx1, ty1 := img.Tiling().TileRange(img.Bounds())
	partials := make([][]Statistics, (tx1-tx0)*(ty1-ty0))
	exec := TileExecutor{Mode: mode, ErrorAction: errorAction}
	err := exec.Run(ctx, img, func(_ context.Context, unit int, tile *Raster) error {
		p := make([]Statistics, nbands)
		rect := tile.Rect.Intersect(img.Bounds())
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			for x := rect.Min.X; x < rect.Max.X; x++ {
				for b := 0; b < nbands; b++ {
					p[b].Accept(tile.Sample(x, y, b))
				}
			}
		}
		partials[unit] = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	result := make([]Statistics, nbands)
	for _, p := range partials {
		if p == nil {
			continue // failed unit, excluded per the Log policy
		}
		for b := range result {
			result[b].Merge(p[b])
		}
	}
	return result, nil
}
