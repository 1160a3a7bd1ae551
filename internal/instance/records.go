// Package instance flattens the node graph into fixed-size instance records
// for instanced GPU draws: one NodeInstance and one FlagInstance per visible
// node, one PortInstance per port, and two ButtonInstances per viewport
// node.
package instance

import (
	"math"
	"time"

	"github.com/bsundman/nodle/internal/geom"
	"github.com/bsundman/nodle/internal/palette"
)

// Record layouts are uploaded verbatim; fields are float32 only and padded
// to 16-byte multiples.

type NodeInstance struct {
	Position     [2]float32
	Size         [2]float32
	BevelTop     palette.RGBA
	BevelBottom  palette.RGBA
	BackTop      palette.RGBA
	BackBottom   palette.RGBA
	Border       palette.RGBA
	CornerRadius float32
	Selected     float32
	_            [2]float32
}

type PortInstance struct {
	Position   [2]float32
	Radius     float32
	Connecting float32
	Border     palette.RGBA
	Bevel      palette.RGBA
	Fill       palette.RGBA
	IsInput    float32
	_          [3]float32
}

type FlagInstance struct {
	Position [2]float32
	Radius   float32
	Visible  float32
	Border   palette.RGBA
	Bevel    palette.RGBA
	Fill     palette.RGBA
}

type ButtonInstance struct {
	Position [2]float32
	Radius   float32
	Active   float32
	Center   palette.RGBA
	Outer    palette.RGBA
}

// Uniforms is the frame-global block shared by every draw.
type Uniforms struct {
	PanOffset  [2]float32
	Zoom       float32
	Time       float32 // seconds, wrapped at TimeWrap
	ScreenSize [2]float32
	_          [2]float32
}

// TimeWrap bounds the time uniform so that float32 precision holds up in
// long sessions.
const TimeWrap = 1000 * time.Second

func NewUniforms(pan geom.Point, zoom float64, width, height int, elapsed time.Duration) Uniforms {
	return Uniforms{
		PanOffset:  [2]float32{float32(pan.X), float32(pan.Y)},
		Zoom:       float32(zoom),
		Time:       float32(math.Mod(elapsed.Seconds(), TimeWrap.Seconds())),
		ScreenSize: [2]float32{float32(width), float32(height)},
	}
}

func flag(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

func point(p geom.Point) [2]float32 { return [2]float32{float32(p.X), float32(p.Y)} }
