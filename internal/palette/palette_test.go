package palette

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRGB255(t *testing.T) {
	c := RGB255(255, 0, 51)
	assert.Equal(t, RGBA{1, 0, 0.2, 1}, c)
	assert.Equal(t, "#ff0033", c.Hex())
}

func TestShadeKeepsAlphaAndBounds(t *testing.T) {
	c := RGBA{0.5, 0.5, 0.5, 0.25}
	lighter := Shade(c, 0.2)
	assert.Greater(t, lighter[0], c[0])
	assert.Equal(t, float32(0.25), lighter[3])

	white := Shade(RGBA{1, 1, 1, 1}, 0.5)
	assert.InDelta(t, 1, white[0], 1e-6)
}

func TestBlendEndpoints(t *testing.T) {
	a, b := RGB255(10, 20, 30), RGB255(200, 100, 50)
	assert.Equal(t, a.Hex(), Blend(a, b, 0).Hex())
	assert.Equal(t, b.Hex(), Blend(a, b, 1).Hex())
}

func TestDefaultTheme(t *testing.T) {
	th := Default()
	assert.Equal(t, th.FlagOn, th.NodeBorderSelect)
	assert.NotEqual(t, th.Buttons[0][0], th.Buttons[0][1])
	assert.Equal(t, float32(10), th.ButtonRadius)
}

func TestTintedDeterministic(t *testing.T) {
	a := Tinted(Default(), rand.New(rand.NewSource(3)))
	b := Tinted(Default(), rand.New(rand.NewSource(3)))
	assert.Equal(t, a, b)
	assert.Equal(t, a.NodeBorderSelect, a.PortBorderConnect)
}
