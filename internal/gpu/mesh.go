package gpu

import (
	"math"

	"github.com/rclancey/earcut"
	"go.trai.ch/zerr"

	"github.com/bsundman/nodle/internal/geom"
)

var ErrDegeneratePolygon = zerr.New("degenerate polygon")

// DiscSegments is the number of edges of the base disc. Ports, flags and
// buttons are shaded as circles in the fragment shader; the polygon only
// needs to cover the circle.
const DiscSegments = 24

// Triangulate triangulates a simple polygon using the earcut algorithm and
// returns the triangles as a flat list of (x, y) pairs, three vertices per
// triangle.
func Triangulate(polygon []geom.Point) ([]float32, error) {
	if len(polygon) < 3 {
		return nil, zerr.With(zerr.Wrap(ErrDegeneratePolygon, "triangulate"), "vertices", len(polygon))
	}

	// Flat coordinate array required by earcut: [x0, y0, x1, y1, ...].
	coords := make([]float64, len(polygon)*2)
	for i, p := range polygon {
		coords[i*2] = p.X
		coords[i*2+1] = p.Y
	}

	indices, err := earcut.Earcut(coords, nil /* holeIndices */, 2 /* dim */)
	if err != nil {
		return nil, zerr.Wrap(err, "triangulation failed")
	}
	if len(indices) == 0 || len(indices)%3 != 0 {
		return nil, zerr.With(zerr.Wrap(ErrDegeneratePolygon, "triangulate"), "indices", len(indices))
	}

	out := make([]float32, 0, len(indices)*2)
	for _, idx := range indices {
		out = append(out, float32(coords[idx*2]), float32(coords[idx*2+1]))
	}
	return out, nil
}

// UnitQuad returns the base mesh for rectangular instances: the square
// [0,1]x[0,1], scaled per instance by its size.
func UnitQuad() ([]float32, error) {
	return Triangulate([]geom.Point{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
	})
}

// UnitDisc returns the base mesh for circular instances: a regular polygon
// circumscribing the unit circle, scaled per instance by its radius.
func UnitDisc(segments int) ([]float32, error) {
	if segments < 3 {
		segments = 3
	}
	// Circumradius so that the polygon's edges touch the unit circle.
	r := 1 / math.Cos(math.Pi/float64(segments))
	pts := make([]geom.Point, segments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(segments)
		pts[i] = geom.MakePoint(r*math.Cos(a), r*math.Sin(a))
	}
	return Triangulate(pts)
}
