package grid

import (
	"image"

	"github.com/google/uuid"

	"github.com/geoforge/gridwarp/internal/gridwarp"
	"github.com/geoforge/gridwarp/internal/raster"
)

// Coverage ties a grid geometry to sample values. Render produces a 2D
// image view of a slice of the (possibly higher-dimensional) grid: with a
// nil slice extent, pixel (0, 0) of the returned image is the lower corner
// of the full grid extent; with a sub-extent, pixel (0, 0) is the lower
// corner of that sub-extent.
type Coverage interface {
	ID() uuid.UUID
	GridGeometry() *Geometry
	SampleDimensions() []gridwarp.SampleDimension
	Render(sliceExtent *Extent) (raster.Image, error)
}

// MetadataFetcher supplies the citation, lineage and instrument strings
// used to annotate coverages. It is consumed, never produced, here.
type MetadataFetcher interface {
	Citation() string
	Lineage() string
	Instrument() string
}

// Coverage2D is a coverage backed by an in-memory image. The grid may have
// more than two dimensions as long as all but the two largest ones have a
// size of one cell.
type Coverage2D struct {
	id       uuid.UUID
	geometry *Geometry
	bands    []gridwarp.SampleDimension
	img      raster.Image
	xDim     int
	yDim     int
	metadata MetadataFetcher
}

// Coverage2DOption tunes the construction of a Coverage2D.
type Coverage2DOption func(*Coverage2D)

// WithMetadata annotates the coverage with the given fetcher.
func WithMetadata(m MetadataFetcher) Coverage2DOption {
	return func(c *Coverage2D) { c.metadata = m }
}

// NewCoverage2D wraps an image as a coverage over the given geometry. The
// image must be anchored at the origin with each pixel (x, y) holding the
// sample of grid cell (extent.Low(xDim)+x, extent.Low(yDim)+y), where xDim
// and yDim are the two grid dimensions with the largest sizes.
func NewCoverage2D(geometry *Geometry, bands []gridwarp.SampleDimension, img raster.Image, opts ...Coverage2DOption) (*Coverage2D, error) {
	if geometry == nil {
		return nil, gridwarp.NewValidationError("no grid geometry")
	}
	extent, err := geometry.Extent()
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, gridwarp.NewValidationError("no backing image")
	}
	if len(bands) != img.NumBands() {
		return nil, gridwarp.NewValidationError("got %d sample dimensions for an image with %d bands", len(bands), img.NumBands())
	}
	xy, err := extent.SubspaceDimensions(2)
	if err != nil {
		return nil, err
	}
	for d := 0; d < extent.Dimension(); d++ {
		if d != xy[0] && d != xy[1] && extent.Size(d) != 1 {
			return nil, gridwarp.NewValidationError("dimension %d has size %d, a two-dimensional coverage needs size 1 outside its image axes", d, extent.Size(d))
		}
	}
	b := img.Bounds()
	if b.Min != (image.Point{}) {
		return nil, gridwarp.NewValidationError("backing image must be anchored at the origin, got %v", b.Min)
	}
	if int64(b.Dx()) != extent.Size(xy[0]) || int64(b.Dy()) != extent.Size(xy[1]) {
		return nil, gridwarp.NewValidationError("image is %dx%d pixels, extent is %dx%d cells", b.Dx(), b.Dy(), extent.Size(xy[0]), extent.Size(xy[1]))
	}
	c := &Coverage2D{
		id:       uuid.New(),
		geometry: geometry,
		bands:    append([]gridwarp.SampleDimension(nil), bands...),
		img:      img,
		xDim:     xy[0],
		yDim:     xy[1],
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Coverage2D) ID() uuid.UUID           { return c.id }
func (c *Coverage2D) GridGeometry() *Geometry { return c.geometry }

func (c *Coverage2D) SampleDimensions() []gridwarp.SampleDimension {
	return append([]gridwarp.SampleDimension(nil), c.bands...)
}

// Metadata returns the annotation fetcher, which may be nil.
func (c *Coverage2D) Metadata() MetadataFetcher { return c.metadata }

// Image returns the backing image.
func (c *Coverage2D) Image() raster.Image { return c.img }

func (c *Coverage2D) Render(sliceExtent *Extent) (raster.Image, error) {
	extent := c.geometry.extent
	if sliceExtent == nil {
		return c.img, nil
	}
	slice, err := extent.Intersect(sliceExtent)
	if err != nil {
		return nil, err
	}
	region := image.Rect(
		int(slice.Low(c.xDim)-extent.Low(c.xDim)),
		int(slice.Low(c.yDim)-extent.Low(c.yDim)),
		int(slice.High(c.xDim)-extent.Low(c.xDim)),
		int(slice.High(c.yDim)-extent.Low(c.yDim)),
	)
	// slice is inside the extent, so region is inside the image bounds.
	w, err := raster.NewWindow(c.img, region, image.Point{})
	if err != nil {
		return nil, gridwarp.NewShouldNeverHappen("render window %v escapes the backing image: %v", region, err)
	}
	return w, nil
}
