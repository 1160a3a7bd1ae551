package app

import (
	"time"

	"github.com/bsundman/nodle/internal/geom"
	"github.com/bsundman/nodle/internal/instance"
)

const (
	minZoom = 0.1
	maxZoom = 8.0
)

// View manages the current view state including zoom, pan, and viewport.
// A canvas point p is drawn at screen position p*Zoom + (PanX, PanY).
type View struct {
	Zoom          float64
	PanX, PanY    float64
	Width, Height int
}

// NewView creates a new view state with default values.
func NewView(width, height int) *View {
	return &View{
		Zoom:   1.0,
		Width:  width,
		Height: height,
	}
}

// SetZoom sets the zoom level, clamping to valid range.
func (vs *View) SetZoom(zoom float64) {
	vs.Zoom = min(max(zoom, minZoom), maxZoom)
}

// ZoomAt scales the zoom by factor while keeping the canvas point under the
// screen position fixed.
func (vs *View) ZoomAt(factor float64, screen geom.Point) {
	anchor := vs.ScreenToCanvas(screen)
	vs.SetZoom(vs.Zoom * factor)
	vs.PanX = screen.X - anchor.X*vs.Zoom
	vs.PanY = screen.Y - anchor.Y*vs.Zoom
}

// SetPan sets the pan position to the given coordinates.
func (vs *View) SetPan(x, y float64) {
	vs.PanX = x
	vs.PanY = y
}

// Pan moves the view by a screen-space delta.
func (vs *View) Pan(dx, dy float64) {
	vs.PanX += dx
	vs.PanY += dy
}

// SetViewport updates the viewport dimensions.
func (vs *View) SetViewport(width, height int) {
	vs.Width = width
	vs.Height = height
}

// ResetTo resets zoom to 1.0 and pans to center the given point in the
// viewport.
func (vs *View) ResetTo(pos geom.Point) {
	vs.Zoom = 1.0
	viewportCenterX := float64(vs.Width) / 2.0
	viewportCenterY := float64(vs.Height) / 2.0
	vs.PanX = viewportCenterX - pos.X
	vs.PanY = viewportCenterY - pos.Y
}

// CanvasToScreen is the affine map from canvas to screen coordinates.
func (vs *View) CanvasToScreen() geom.Affine {
	return geom.Translation(vs.PanX, vs.PanY).Mul(geom.Scaling(vs.Zoom))
}

// ScreenToCanvas maps a screen position (e.g. the cursor) to the canvas.
func (vs *View) ScreenToCanvas(p geom.Point) geom.Point {
	inv, err := vs.CanvasToScreen().Inv()
	if err != nil {
		// Zoom is clamped away from zero, so the map is always invertible.
		return p
	}
	return inv.MulPoint(p)
}

// Uniforms returns the frame-global uniform block for the current view.
func (vs *View) Uniforms(elapsed time.Duration) instance.Uniforms {
	return instance.NewUniforms(geom.MakePoint(vs.PanX, vs.PanY), vs.Zoom, vs.Width, vs.Height, elapsed)
}
