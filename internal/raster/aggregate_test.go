package raster_test

import (
	"image"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/geoforge/gridwarp/internal/gridwarp"
	"github.com/geoforge/gridwarp/internal/raster"
)

func TestAggregate(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Aggregate Suite")
}

// newImage allocates a filled image whose sample at (x, y, b) is
// base + b*1000 + y*100 + x.
func newImage(rect image.Rectangle, dtype gridwarp.DType, nbands, tileW, tileH int, base float64) *raster.MemImage {
	img, err := raster.NewMemImage(rect, dtype, nbands, tileW, tileH)
	Expect(err).NotTo(HaveOccurred())
	for b := 0; b < nbands; b++ {
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			for x := rect.Min.X; x < rect.Max.X; x++ {
				img.SetSample(x, y, b, base+float64(b*1000+y*100+x))
			}
		}
	}
	return img
}

func aggregateSample(a *raster.AggregateImage, x, y, band int) float64 {
	v, err := raster.At(a, x, y, band)
	Expect(err).NotTo(HaveOccurred())
	return v
}

var _ = Describe("NewAggregateImage", func() {
	var (
		sources      []raster.BandSource
		allowSharing bool
		opts         []raster.AggregateOption
		agg          *raster.AggregateImage
		err          error
	)

	BeforeEach(func() {
		sources = nil
		allowSharing = false
		opts = nil
	})

	JustBeforeEach(func() {
		agg, err = raster.NewAggregateImage(sources, allowSharing, opts...)
	})

	var (
		itShouldSucceed = func() {
			It("should build the aggregate", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(agg).NotTo(BeNil())
			})
		}
		itShouldFailWith = func(code gridwarp.ErrorCode) {
			It("should fail", func() {
				Expect(err).To(HaveOccurred())
				Expect(gridwarp.IsError(err, code)).To(BeTrue())
			})
		}
	)

	Describe("combined domain", func() {
		Context("with overlapping sources", func() {
			BeforeEach(func() {
				sources = []raster.BandSource{
					{Image: newImage(image.Rect(0, 0, 10, 8), gridwarp.DTypeFLOAT32, 1, 5, 4, 0)},
					{Image: newImage(image.Rect(4, 2, 14, 12), gridwarp.DTypeFLOAT32, 2, 5, 5, 50000)},
				}
			})
			itShouldSucceed()
			It("covers the intersection of the source bounds", func() {
				Expect(agg.Bounds()).To(Equal(image.Rect(4, 2, 10, 8)))
			})
			It("stacks the selected bands in order", func() {
				Expect(agg.NumBands()).To(Equal(3))
				Expect(aggregateSample(agg, 6, 3, 0)).To(Equal(306.0))
				Expect(aggregateSample(agg, 6, 3, 1)).To(Equal(50306.0))
				Expect(aggregateSample(agg, 6, 3, 2)).To(Equal(51306.0))
			})
		})

		Context("with disjoint sources", func() {
			BeforeEach(func() {
				sources = []raster.BandSource{
					{Image: newImage(image.Rect(0, 0, 4, 4), gridwarp.DTypeUINT8, 1, 4, 4, 0)},
					{Image: newImage(image.Rect(10, 10, 14, 14), gridwarp.DTypeUINT8, 1, 4, 4, 0)},
				}
			})
			itShouldFailWith(gridwarp.DisjointExtent)
		})

		Context("without any source", func() {
			itShouldFailWith(gridwarp.ValidationError)
		})
	})

	Describe("band selection", func() {
		var img *raster.MemImage
		BeforeEach(func() {
			img = newImage(image.Rect(0, 0, 6, 6), gridwarp.DTypeINT16, 3, 6, 6, 0)
		})

		Context("reordering the bands of one image", func() {
			BeforeEach(func() {
				sources = []raster.BandSource{{Image: img, Bands: []int{2, 0}}}
			})
			itShouldSucceed()
			It("maps aggregate bands to the selection", func() {
				Expect(agg.NumBands()).To(Equal(2))
				Expect(aggregateSample(agg, 1, 2, 0)).To(Equal(2201.0))
				Expect(aggregateSample(agg, 1, 2, 1)).To(Equal(201.0))
			})
		})

		Context("listing the same image twice", func() {
			BeforeEach(func() {
				sources = []raster.BandSource{
					{Image: img, Bands: []int{1}},
					{Image: img, Bands: []int{0}},
				}
			})
			itShouldSucceed()
			It("reads the image once and keeps the band order", func() {
				Expect(agg.NumBands()).To(Equal(2))
				Expect(aggregateSample(agg, 3, 0, 0)).To(Equal(1003.0))
				Expect(aggregateSample(agg, 3, 0, 1)).To(Equal(3.0))
			})
		})

		Context("with an empty selection", func() {
			BeforeEach(func() {
				sources = []raster.BandSource{{Image: img, Bands: []int{}}}
			})
			itShouldFailWith(gridwarp.ValidationError)
		})

		Context("with a band selected twice in one source", func() {
			BeforeEach(func() {
				sources = []raster.BandSource{{Image: img, Bands: []int{0, 0}}}
			})
			itShouldFailWith(gridwarp.ValidationError)
		})

		Context("with a band out of range", func() {
			BeforeEach(func() {
				sources = []raster.BandSource{{Image: img, Bands: []int{3}}}
			})
			itShouldFailWith(gridwarp.ValidationError)
		})

		Context("with mismatched data types", func() {
			BeforeEach(func() {
				sources = []raster.BandSource{
					{Image: img},
					{Image: newImage(image.Rect(0, 0, 6, 6), gridwarp.DTypeFLOAT64, 1, 6, 6, 0)},
				}
			})
			itShouldFailWith(gridwarp.IncompatibleResource)
		})
	})

	Describe("tile size choice", func() {
		Context("when a common multiple of the source tile sizes divides the span", func() {
			BeforeEach(func() {
				sources = []raster.BandSource{
					{Image: newImage(image.Rect(0, 0, 12, 12), gridwarp.DTypeUINT8, 1, 4, 4, 0)},
					{Image: newImage(image.Rect(0, 0, 12, 12), gridwarp.DTypeUINT8, 1, 6, 6, 0)},
				}
			})
			itShouldSucceed()
			It("prefers the candidate aligned with every source", func() {
				Expect(agg.Tiling().TileWidth).To(Equal(12))
				Expect(agg.Tiling().TileHeight).To(Equal(12))
			})
		})

		Context("when the sources share one tile size", func() {
			BeforeEach(func() {
				sources = []raster.BandSource{
					{Image: newImage(image.Rect(0, 0, 20, 20), gridwarp.DTypeUINT8, 1, 5, 5, 0)},
					{Image: newImage(image.Rect(0, 0, 20, 20), gridwarp.DTypeUINT8, 1, 5, 5, 0)},
				}
			})
			itShouldSucceed()
			It("keeps it", func() {
				Expect(agg.Tiling().TileWidth).To(Equal(5))
				Expect(agg.Tiling().TileHeight).To(Equal(5))
			})
		})
	})

	Describe("buffer sharing", func() {
		var src1, src2 *raster.MemImage
		BeforeEach(func() {
			src1 = newImage(image.Rect(0, 0, 8, 8), gridwarp.DTypeFLOAT32, 1, 8, 8, 0)
			src2 = newImage(image.Rect(0, 0, 8, 8), gridwarp.DTypeFLOAT32, 1, 8, 8, 9000)
			sources = []raster.BandSource{{Image: src1}, {Image: src2}}
		})

		Context("with compatible sources", func() {
			BeforeEach(func() { allowSharing = true })
			itShouldSucceed()
			It("aliases the source buffers", func() {
				Expect(agg.Shared()).To(BeTrue())
				src1.SetSample(2, 3, 0, -42)
				Expect(aggregateSample(agg, 2, 3, 0)).To(Equal(-42.0))
			})
		})

		Context("when sharing is not requested", func() {
			It("copies instead", func() {
				Expect(agg.Shared()).To(BeFalse())
				Expect(aggregateSample(agg, 2, 3, 1)).To(Equal(9302.0))
			})
		})

		Context("when one source does not match the chosen tiling", func() {
			BeforeEach(func() {
				allowSharing = true
				sources[1].Image = newImage(image.Rect(0, 0, 8, 8), gridwarp.DTypeFLOAT32, 1, 4, 8, 9000)
			})
			itShouldSucceed()
			It("disables sharing for every source", func() {
				Expect(agg.Shared()).To(BeFalse())
				Expect(aggregateSample(agg, 2, 3, 0)).To(Equal(302.0))
				Expect(aggregateSample(agg, 2, 3, 1)).To(Equal(9302.0))
			})
		})

		Context("when a source bounds exceed the domain", func() {
			BeforeEach(func() {
				allowSharing = true
				sources[1].Image = newImage(image.Rect(0, 0, 9, 8), gridwarp.DTypeFLOAT32, 1, 9, 8, 9000)
			})
			itShouldSucceed()
			It("disables sharing", func() {
				Expect(agg.Shared()).To(BeFalse())
			})
		})
	})

	Describe("display properties", func() {
		var img *raster.MemImage
		BeforeEach(func() {
			img = newImage(image.Rect(0, 0, 4, 4), gridwarp.DTypeUINT8, 2, 4, 4, 0)
			img.SetVisibleBand(1)
			sources = []raster.BandSource{
				{Image: newImage(image.Rect(0, 0, 4, 4), gridwarp.DTypeUINT8, 1, 4, 4, 0)},
				{Image: img},
			}
		})

		Context("by default", func() {
			itShouldSucceed()
			It("inherits the first visible band, mapped to the aggregate", func() {
				Expect(agg.VisibleBand()).To(Equal(2))
				Expect(agg.Palette()).To(BeNil())
			})
		})

		Context("with explicit options", func() {
			var palette gridwarp.Palette
			BeforeEach(func() {
				palette = gridwarp.GrayscalePalette()
				opts = []raster.AggregateOption{
					raster.WithVisibleBand(0),
					raster.WithPalette(&palette),
				}
			})
			itShouldSucceed()
			It("takes precedence over the sources", func() {
				Expect(agg.VisibleBand()).To(Equal(0))
				Expect(agg.Palette()).To(Equal(&palette))
			})
		})
	})
})
