package veneer

import (
	"fmt"
	"math"
	"slices"

	"github.com/tanaylab/mcbrowse/pkg/errors"
)

// DefaultPalette is the default color scale.
const DefaultPalette = "viridis"

// Palette is a continuous color scale given by evenly spaced #rrggbb stops.
type Palette struct {
	Name  string
	stops []string
	lo    float64 // lowest position Sample uses; sequential scales start near white
}

var palettes = map[string]Palette{
	"viridis": {Name: "viridis", stops: []string{
		"#440154", "#472d7b", "#3b528b", "#2c728e", "#21918c", "#28ae80", "#5ec962", "#addc30", "#fde725",
	}},
	"plasma": {Name: "plasma", stops: []string{
		"#0d0887", "#4c02a1", "#7e03a8", "#a92395", "#cc4778", "#e56b5d", "#f89540", "#fdc527", "#f0f921",
	}},
	"inferno": {Name: "inferno", stops: []string{
		"#000004", "#1b0c41", "#4a0c6b", "#781c6d", "#a52c60", "#cf4446", "#ed6925", "#fb9b06", "#f7d13d", "#fcffa4",
	}},
	"magma": {Name: "magma", stops: []string{
		"#000004", "#180f3d", "#440f76", "#721f81", "#9e2f7f", "#cd4071", "#f1605d", "#fd9668", "#feca8d", "#fcfdbf",
	}},
	"cividis": {Name: "cividis", stops: []string{
		"#00204d", "#31446b", "#666970", "#958f78", "#cbba69", "#ffea46",
	}},
	"greys": {Name: "greys", lo: 0.25, stops: []string{
		"#ffffff", "#f0f0f0", "#d9d9d9", "#bdbdbd", "#969696", "#737373", "#525252", "#252525", "#000000",
	}},
	"blues": {Name: "blues", lo: 0.25, stops: []string{
		"#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6", "#4292c6", "#2171b5", "#08519c", "#08306b",
	}},
	"reds": {Name: "reds", lo: 0.25, stops: []string{
		"#fff5f0", "#fee0d2", "#fcbba1", "#fc9272", "#fb6a4a", "#ef3b2c", "#cb181d", "#a50f15", "#67000d",
	}},
	"greens": {Name: "greens", lo: 0.25, stops: []string{
		"#f7fcf5", "#e5f5e0", "#c7e9c0", "#a1d99b", "#74c476", "#41ab5d", "#238b45", "#006d2c", "#00441b",
	}},
}

// PaletteNames returns the palette names in sorted order.
func PaletteNames() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// LookupPalette returns the named palette.
func LookupPalette(name string) (Palette, error) {
	p, ok := palettes[name]
	if !ok {
		return Palette{}, errors.New(errors.ErrCodeInvalidInput, "unknown color scale %q", name)
	}
	return p, nil
}

// At returns the color at position t in [0, 1], interpolating linearly
// between stops. t is clamped.
func (p Palette) At(t float64) string {
	if math.IsNaN(t) || t <= 0 {
		return p.stops[0]
	}
	if t >= 1 {
		return p.stops[len(p.stops)-1]
	}
	pos := t * float64(len(p.stops)-1)
	i := int(pos)
	frac := pos - float64(i)
	r0, g0, b0, _ := RGB(p.stops[i])
	r1, g1, b1, _ := RGB(p.stops[i+1])
	return fmt.Sprintf("#%02x%02x%02x", lerp(r0, r1, frac), lerp(g0, g1, frac), lerp(b0, b1, frac))
}

// Sample returns n colors spread evenly over the palette.
func (p Palette) Sample(n int) []string {
	out := make([]string, n)
	for i := range out {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		out[i] = p.At(p.lo + t*(1-p.lo))
	}
	return out
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}
