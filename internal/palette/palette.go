// Package palette provides the layered colors the instance stream stamps
// into node, port, flag and button records. Colors are stored as linear
// float RGBA ready for upload; derivation goes through go-colorful.
package palette

import (
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBA is a color with components in [0, 1], laid out as the GPU expects.
type RGBA [4]float32

// Transparent is fully transparent black.
var Transparent = RGBA{}

// RGB255 returns an opaque color from 8-bit components.
func RGB255(r, g, b uint8) RGBA {
	return RGBA{float32(r) / 255, float32(g) / 255, float32(b) / 255, 1}
}

func fromColorful(c colorful.Color, alpha float32) RGBA {
	c = c.Clamped()
	return RGBA{float32(c.R), float32(c.G), float32(c.B), alpha}
}

func (c RGBA) colorful() colorful.Color {
	return colorful.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2])}
}

// Hex returns the color as #rrggbb, ignoring alpha.
func (c RGBA) Hex() string { return c.colorful().Hex() }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Shade shifts the HSV value of c by dv, keeping hue and saturation.
func Shade(c RGBA, dv float64) RGBA {
	h, s, v := c.colorful().Hsv()
	return fromColorful(colorful.Hsv(h, s, clamp(v+dv, 0, 1)), c[3])
}

// Blend mixes a and b in Lab space; t=0 is a, t=1 is b.
func Blend(a, b RGBA, t float64) RGBA {
	alpha := a[3] + (b[3]-a[3])*float32(t)
	return fromColorful(a.colorful().BlendLab(b.colorful(), t), alpha)
}

// ButtonColors is the two-tone fill of a radial button.
type ButtonColors struct {
	Center RGBA
	Outer  RGBA
}

// Theme holds every color and radius the stream needs.
type Theme struct {
	NodeBevelTop      RGBA
	NodeBevelBottom   RGBA
	NodeBackTop       RGBA
	NodeBackBottom    RGBA
	NodeBorder        RGBA
	NodeBorderSelect  RGBA
	PortBorder        RGBA
	PortBorderConnect RGBA
	PortBevel         RGBA
	PortInputFill     RGBA
	PortOutputFill    RGBA
	FlagOn            RGBA
	FlagOff           RGBA

	// Buttons is indexed by [side][active], side 0 left (green) and 1 right
	// (red).
	Buttons [2][2]ButtonColors

	CornerRadius float32
	PortRadius   float32
	FlagRadius   float32
	ButtonRadius float32
}

// Default returns the stock grey theme with a blue highlight.
func Default() Theme {
	highlight := RGB255(100, 150, 255)
	border := RGB255(64, 64, 64)
	bevel := RGB255(38, 38, 38)
	return Theme{
		NodeBevelTop:      RGB255(166, 166, 166),
		NodeBevelBottom:   bevel,
		NodeBackTop:       RGB255(127, 127, 127),
		NodeBackBottom:    border,
		NodeBorder:        border,
		NodeBorderSelect:  highlight,
		PortBorder:        border,
		PortBorderConnect: highlight,
		PortBevel:         bevel,
		PortInputFill:     RGB255(90, 160, 120),
		PortOutputFill:    RGB255(160, 90, 90),
		FlagOn:            highlight,
		FlagOff:           border,
		Buttons: [2][2]ButtonColors{
			{
				{Center: RGB255(90, 160, 90), Outer: RGB255(45, 90, 45)},
				{Center: RGB255(120, 200, 120), Outer: RGB255(60, 120, 60)},
			},
			{
				{Center: RGB255(160, 90, 90), Outer: RGB255(90, 45, 45)},
				{Center: RGB255(200, 120, 120), Outer: RGB255(120, 60, 60)},
			},
		},
		CornerRadius: 5,
		PortRadius:   5,
		FlagRadius:   5,
		ButtonRadius: 10,
	}
}

// Tinted returns t with the highlight color replaced by a random hue of the
// same saturation and value, and the node backgrounds nudged toward it. The
// demo uses it to make per-seed themes distinguishable.
func Tinted(t Theme, r *rand.Rand) Theme {
	_, s, v := t.NodeBorderSelect.colorful().Hsv()
	hue := r.Float64() * 360
	accent := fromColorful(colorful.Hsv(hue, s, v), 1)

	t.NodeBorderSelect = accent
	t.PortBorderConnect = accent
	t.FlagOn = accent
	t.NodeBackTop = Blend(t.NodeBackTop, accent, 0.1)
	t.NodeBackBottom = Blend(t.NodeBackBottom, accent, 0.1)
	return t
}
