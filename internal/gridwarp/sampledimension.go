package gridwarp

import "math"

// SampleDimension describes one band of a coverage.
type SampleDimension struct {
	Name string
	// Background is the fill value for cells with no data, if any.
	Background *float64
	Units      string
}

// NewSampleDimension creates a band description without background value.
func NewSampleDimension(name string) SampleDimension {
	return SampleDimension{Name: name}
}

// WithBackground returns a copy of the sample dimension with the given
// background value.
func (sd SampleDimension) WithBackground(v float64) SampleDimension {
	sd.Background = &v
	return sd
}

// FillValue returns the background value if declared, else the default for
// the data type: NaN for floating point data, 0 otherwise.
func (sd SampleDimension) FillValue(dtype DType) float64 {
	if sd.Background != nil {
		return *sd.Background
	}
	if dtype.IsFloatingPointFormat() {
		return math.NaN()
	}
	return 0
}
