package chart

import (
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	lightenAmount   = 0.3
	darkenAmount    = 0.2
	hueRotationStep = 37.0

	// greys have no hue to rotate
	minRotatedSaturation = 0.45
)

var baseColors = []string{"#245A83", "#808080", "#A04EC9", "#C6B38A"}

// Palette returns n colors: the base colors, then the lightened ones, then the darkened ones. Larger sets
// repeat the three blocks with the hue rotated.
func Palette(n int) []string {
	colors := make([]string, 0, n)
	blockSize := len(baseColors) * 3
	for i := 0; i < n; i++ {
		colors = append(colors, paletteColor(i, blockSize))
	}

	return colors
}

func paletteColor(index int, blockSize int) string {
	base := baseColors[index%len(baseColors)]
	variant := (index % blockSize) / len(baseColors)
	rotation := index / blockSize
	if variant == 0 && rotation == 0 {
		return base
	}

	c, err := colorful.Hex(base)
	if err != nil {
		return base
	}

	h, s, l := c.Hsl()
	switch variant {
	case 1:
		l = math.Min(1, l+lightenAmount)
	case 2:
		l = math.Max(0, l-darkenAmount)
	}
	if rotation > 0 {
		h = math.Mod(h+float64(rotation)*hueRotationStep, 360)
		s = math.Max(s, minRotatedSaturation)
	}

	return strings.ToUpper(colorful.Hsl(h, s, l).Clamped().Hex())
}
