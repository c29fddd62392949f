package gridwarp

import (
	"image/color"
	"sort"
)

type colorPoint struct {
	Val        float32
	R, G, B, A uint8
}

// Palette is a mapping between [0, 1] to RGBA color
type Palette struct {
	Name   string
	Points []colorPoint
}

// NewPalette creates a palette from (value, color) pairs. Values are sorted;
// the first and last must be 0 and 1.
func NewPalette(name string, points ...struct {
	Val        float32
	R, G, B, A uint8
}) (Palette, error) {
	p := Palette{Name: name}
	for _, cpt := range points {
		p.Points = append(p.Points, colorPoint(cpt))
	}
	sort.Slice(p.Points, func(i, j int) bool { return p.Points[i].Val < p.Points[j].Val })
	return p, p.Validate()
}

// GrayscalePalette maps 0 to black and 1 to white.
func GrayscalePalette() Palette {
	return Palette{
		Name: "grayscale",
		Points: []colorPoint{
			{Val: 0, R: 0, G: 0, B: 0, A: 255},
			{Val: 1, R: 255, G: 255, B: 255, A: 255},
		},
	}
}

// PaletteN returns the color.Palette mapping [0, N] to colors
func (p Palette) PaletteN(n int) color.Palette {
	colors := make([]color.Color, n)
	for i, j := 0, 0; i < n; i++ {
		val := float32(i) / float32(n-1)
		for ; p.Points[j+1].Val < val; j++ {
		}
		f := (val - p.Points[j].Val) / (p.Points[j+1].Val - p.Points[j].Val)
		colors[i] = color.RGBA{
			R: uint8(float32(p.Points[j].R)*(1-f) + float32(p.Points[j+1].R)*f),
			G: uint8(float32(p.Points[j].G)*(1-f) + float32(p.Points[j+1].G)*f),
			B: uint8(float32(p.Points[j].B)*(1-f) + float32(p.Points[j+1].B)*f),
			A: uint8(float32(p.Points[j].A)*(1-f) + float32(p.Points[j+1].A)*f),
		}
	}
	return color.Palette(colors)
}

// Validate valids the Palette
func (p Palette) Validate() error {
	if len(p.Points) < 2 {
		return NewValidationError("Invalid Palette Points: Not enough points (%v)", p.Points)
	}
	if p.Points[0].Val != 0 || p.Points[len(p.Points)-1].Val != 1 {
		return NewValidationError("Invalid Palette Points: first and last values must be 0 and 1 (found %f and %f)", p.Points[0].Val, p.Points[len(p.Points)-1].Val)
	}
	for i := 1; i < len(p.Points); i++ {
		if p.Points[i].Val <= p.Points[i-1].Val {
			return NewValidationError("Invalid Palette Points: values must be strictly increasing (found %f then %f)", p.Points[i-1].Val, p.Points[i].Val)
		}
	}
	return nil
}
