package raster

import (
	"image"
	"math"

	"github.com/geoforge/gridwarp/internal/gridwarp"
	"github.com/geoforge/gridwarp/internal/utils"
)

// BandSource selects bands from one source image for aggregation. A nil
// Bands slice selects all bands in order.
type BandSource struct {
	Image Image
	Bands []int
}

// AggregateOption tunes the construction of an aggregate image.
type AggregateOption func(*aggregateConfig)

type aggregateConfig struct {
	palette     *gridwarp.Palette
	visibleBand int
	hasVisible  bool
}

// WithPalette attaches a caller-supplied color palette. It takes
// precedence over the visible band inferred from the sources.
func WithPalette(p *gridwarp.Palette) AggregateOption {
	return func(c *aggregateConfig) { c.palette = p }
}

// WithVisibleBand forces the visible band of the aggregate.
func WithVisibleBand(band int) AggregateOption {
	return func(c *aggregateConfig) {
		c.visibleBand = band
		c.hasVisible = true
	}
}

// bandRef locates one aggregate band in the merged source list.
type bandRef struct {
	source int
	band   int
}

// aggregateLayout is the construction-time description of an aggregate:
// merged sources, combined domain, chosen tiling and sharing decision. It
// is consumed by newAggregateImage and discarded.
type aggregateLayout struct {
	sources []BandSource // merged, duplicate images folded together
	bandMap []bandRef
	domain  image.Rectangle
	tiling  Tiling
	dtype   gridwarp.DType
	sharing bool
}

// AggregateImage presents the selected bands of several images over their
// intersection domain as one multi-band image.
type AggregateImage struct {
	layout      aggregateLayout
	shared      *Raster // non-nil when source buffers are shared
	palette     *gridwarp.Palette
	visibleBand int
}

// NewAggregateImage combines bands of several source images. The combined
// domain is the intersection of the source bounds. When allowSharing is
// true and every source exposes compatible buffers, the aggregate aliases
// the source band buffers instead of copying; any mismatch disables
// sharing for all sources.
func NewAggregateImage(sources []BandSource, allowSharing bool, opts ...AggregateOption) (*AggregateImage, error) {
	layout, err := newAggregateLayout(sources, allowSharing)
	if err != nil {
		return nil, err
	}
	cfg := aggregateConfig{visibleBand: -1}
	for _, opt := range opts {
		opt(&cfg)
	}
	img := &AggregateImage{layout: layout, palette: cfg.palette, visibleBand: -1}
	if cfg.hasVisible {
		img.visibleBand = cfg.visibleBand
	} else {
		// First visible band among the contributing sources, mapped to its
		// position in the aggregate.
		for i, ref := range layout.bandMap {
			vb, ok := layout.sources[ref.source].Image.(VisibleBander)
			if ok && vb.VisibleBand() == ref.band {
				img.visibleBand = i
				break
			}
		}
	}
	if layout.sharing {
		img.shared = shareBuffers(layout)
	}
	return img, nil
}

func newAggregateLayout(sources []BandSource, allowSharing bool) (aggregateLayout, error) {
	var layout aggregateLayout
	if len(sources) == 0 {
		return layout, gridwarp.NewValidationError("no source image to aggregate")
	}
	layout.dtype = sources[0].Image.DataType()
	for i, s := range sources {
		if s.Image == nil {
			return layout, gridwarp.NewValidationError("source %d is nil", i)
		}
		if dt := s.Image.DataType(); dt != layout.dtype {
			return layout, gridwarp.NewIncompatibleResource("data type", "source %d has type %s, expected %s", i, dt, layout.dtype)
		}
	}
	// Fold duplicated image references so each image is read once.
	index := map[Image]int{}
	for i, s := range sources {
		bands := s.Bands
		if bands == nil {
			bands = make([]int, s.Image.NumBands())
			for b := range bands {
				bands[b] = b
			}
		}
		if len(bands) == 0 {
			return layout, gridwarp.NewValidationError("empty band selection for source %d", i)
		}
		seen := map[int]bool{}
		for _, b := range bands {
			if b < 0 || b >= s.Image.NumBands() {
				return layout, gridwarp.NewValidationError("band %d out of range for source %d with %d bands", b, i, s.Image.NumBands())
			}
			if seen[b] {
				return layout, gridwarp.NewValidationError("band %d selected twice for source %d", b, i)
			}
			seen[b] = true
		}
		j, ok := index[s.Image]
		if !ok {
			j = len(layout.sources)
			index[s.Image] = j
			layout.sources = append(layout.sources, BandSource{Image: s.Image})
		}
		for _, b := range bands {
			layout.bandMap = append(layout.bandMap, bandRef{source: j, band: b})
			layout.sources[j].Bands = append(layout.sources[j].Bands, b)
		}
	}
	// Combined domain is the intersection of all source bounds.
	layout.domain = layout.sources[0].Image.Bounds()
	for _, s := range layout.sources[1:] {
		layout.domain = layout.domain.Intersect(s.Image.Bounds())
	}
	if layout.domain.Empty() {
		return layout, gridwarp.NewDisjointExtent("source images have no common region")
	}
	layout.tiling = chooseTiling(layout.sources, layout.domain)
	layout.sharing = allowSharing && canShareBuffers(layout)
	return layout, nil
}

// chooseTiling picks the destination tile size and grid anchor. Each axis
// is handled independently: candidates are the source tile sizes plus the
// default; each candidate is ranked by a sortable key packing its
// alignment distance (number of misaligned sources, penalized further
// when the candidate does not divide the domain span) above the tile size
// itself, and the smallest key wins.
func chooseTiling(sources []BandSource, domain image.Rectangle) Tiling {
	t := Tiling{
		TileWidth:  chooseTileSize(sources, domain.Dx(), func(t Tiling) int { return t.TileWidth }),
		TileHeight: chooseTileSize(sources, domain.Dy(), func(t Tiling) int { return t.TileHeight }),
	}
	t.OriginX = domain.Min.X - chooseMinTile(sources, t.TileWidth, func(s BandSource) int {
		st := s.Image.Tiling()
		return st.AlignmentX(domain.Min.X)
	})
	t.OriginY = domain.Min.Y - chooseMinTile(sources, t.TileHeight, func(s BandSource) int {
		st := s.Image.Tiling()
		return st.AlignmentY(domain.Min.Y)
	})
	// Re-normalize: the anchor only matters modulo the tile size, and the
	// grid must cover the domain corner.
	t.OriginX = domain.Min.X - floorMod(domain.Min.X-t.OriginX, t.TileWidth)
	t.OriginY = domain.Min.Y - floorMod(domain.Min.Y-t.OriginY, t.TileHeight)
	return t
}

func chooseTileSize(sources []BandSource, span int, axis func(Tiling) int) int {
	candidates := map[int]bool{}
	for _, s := range sources {
		if c := axis(s.Image.Tiling()); c > 0 && c <= span {
			candidates[c] = true
		}
	}
	if def := minInt(DefaultTileSize, span); def > 0 {
		candidates[def] = true
	}
	best, bestKey := span, uint64(math.MaxUint64)
	for c := range candidates {
		var distance uint64
		if span%c != 0 {
			distance += uint64(len(sources) + 1)
		}
		for _, s := range sources {
			if sc := axis(s.Image.Tiling()); sc <= 0 || c%sc != 0 && sc%c != 0 {
				distance++
			}
		}
		key := distance<<32 | uint64(c)
		if key < bestKey {
			best, bestKey = c, key
		}
	}
	return best
}

// chooseMinTile returns the most frequent tile-grid offset among sources,
// reduced modulo the chosen tile size.
func chooseMinTile(sources []BandSource, tileSize int, offset func(BandSource) int) int {
	votes := map[int]int{}
	best, bestVotes := 0, 0
	for _, s := range sources {
		o := floorMod(offset(s), tileSize)
		votes[o]++
		if votes[o] > bestVotes {
			best, bestVotes = o, votes[o]
		}
	}
	return best
}

// canShareBuffers reports whether every source exposes band buffers the
// aggregate can alias: banded layout with pixel stride 1, identical
// scanline stride and bounds, and tile grids matching the chosen tiling.
func canShareBuffers(layout aggregateLayout) bool {
	stride := -1
	for _, s := range layout.sources {
		banded, ok := s.Image.(BandedImage)
		if !ok {
			return false
		}
		if s.Image.Bounds() != layout.domain {
			return false
		}
		if stride == -1 {
			stride = banded.ScanlineStride()
		} else if banded.ScanlineStride() != stride {
			return false
		}
		st := s.Image.Tiling()
		if st.TileWidth != layout.tiling.TileWidth || st.TileHeight != layout.tiling.TileHeight {
			return false
		}
		if st.AlignmentX(layout.tiling.OriginX) != 0 || st.AlignmentY(layout.tiling.OriginY) != 0 {
			return false
		}
	}
	return true
}

// shareBuffers assembles a raster whose band slices alias the source
// buffers, in aggregate band order.
func shareBuffers(layout aggregateLayout) *Raster {
	bands := make([][]byte, 0, len(layout.bandMap))
	stride := layout.sources[0].Image.(BandedImage).ScanlineStride()
	for _, ref := range layout.bandMap {
		banded := layout.sources[ref.source].Image.(BandedImage)
		bands = append(bands, banded.BandBuffer(ref.band))
	}
	return &Raster{
		Rect:   layout.domain,
		DType:  layout.dtype,
		Bands:  bands,
		Stride: stride,
	}
}

func (a *AggregateImage) Bounds() image.Rectangle  { return a.layout.domain }
func (a *AggregateImage) DataType() gridwarp.DType { return a.layout.dtype }
func (a *AggregateImage) NumBands() int            { return len(a.layout.bandMap) }
func (a *AggregateImage) Tiling() Tiling           { return a.layout.tiling }
func (a *AggregateImage) VisibleBand() int         { return a.visibleBand }

// Palette returns the caller-supplied palette, if any.
func (a *AggregateImage) Palette() *gridwarp.Palette { return a.palette }

// Shared reports whether the aggregate aliases the source band buffers.
func (a *AggregateImage) Shared() bool { return a.shared != nil }

func (a *AggregateImage) ScanlineStride() int {
	if a.shared != nil {
		return a.shared.Stride
	}
	return a.layout.domain.Dx()
}

func (a *AggregateImage) ReadTile(tx, ty int) (*Raster, error) {
	rect := a.layout.tiling.TileRect(tx, ty).Intersect(a.layout.domain)
	if rect.Empty() {
		return nil, gridwarp.NewValidationError("tile (%d, %d) outside image bounds %v", tx, ty, a.layout.domain)
	}
	if a.shared != nil {
		return a.shared.View(rect)
	}
	// Each source may fetch its tiles from an I/O-bound collaborator, so
	// sources are read concurrently. Bands write to disjoint buffers of the
	// output raster.
	out := NewRaster(rect, a.layout.dtype, len(a.layout.bandMap))
	wg := utils.ErrWaitGroup{}
	for i, src := range a.layout.sources {
		i, src := i, src
		wg.Go(func() error {
			r, err := Materialize(src.Image, rect)
			if err != nil {
				return err
			}
			for dst, ref := range a.layout.bandMap {
				if ref.source == i {
					copyBand(out, dst, r, ref.band, rect)
				}
			}
			return nil
		})
	}
	if errs := wg.Wait(); len(errs) > 0 {
		return nil, utils.MergeErrors(true, errs[0], errs[1:]...)
	}
	return out, nil
}

// RasterView satisfies RasterImage when the buffers are shared.
func (a *AggregateImage) RasterView(region image.Rectangle) (*Raster, error) {
	if a.shared != nil {
		return a.shared.View(region)
	}
	return nil, gridwarp.NewValidationError("aggregate image does not expose raster views without buffer sharing")
}

func copyBand(dst *Raster, dstBand int, src *Raster, srcBand int, rect image.Rectangle) {
	size := dst.DType.Size()
	w := rect.Dx() * size
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		di := dst.index(rect.Min.X, y) * size
		si := src.index(rect.Min.X, y) * size
		copy(dst.Bands[dstBand][di:di+w], src.Bands[srcBand][si:si+w])
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
