package gpu

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsundman/nodle/internal/geom"
	"github.com/bsundman/nodle/internal/instance"
)

type recorder struct {
	uniforms []instance.Uniforms
	nodes    int
	draws    []Counts
	released bool
	drawErr  error
}

func (r *recorder) UploadUniforms(u instance.Uniforms) error {
	r.uniforms = append(r.uniforms, u)
	return nil
}
func (r *recorder) UploadNodes(n []instance.NodeInstance) error   { r.nodes = len(n); return nil }
func (r *recorder) UploadPorts([]instance.PortInstance) error     { return nil }
func (r *recorder) UploadButtons([]instance.ButtonInstance) error { return nil }
func (r *recorder) UploadFlags([]instance.FlagInstance) error     { return nil }
func (r *recorder) Release()                                      { r.released = true }
func (r *recorder) Grows() int                                    { return 2 }
func (r *recorder) Draw(c Counts) error {
	if r.drawErr != nil {
		return r.drawErr
	}
	r.draws = append(r.draws, c)
	return nil
}

func testFrame() instance.Frame {
	return instance.Frame{
		Nodes: make([]instance.NodeInstance, 3),
		Ports: make([]instance.PortInstance, 5),
		Flags: make([]instance.FlagInstance, 3),
	}
}

func TestPaintBeforePrepareIsNoop(t *testing.T) {
	rc := NewRendererContext(func() (Backend, error) { return &recorder{}, nil })
	assert.False(t, rc.Paint())
	assert.False(t, rc.Ready())
	assert.Equal(t, uint64(1), rc.Stats().Skipped)
}

func TestLazyInitAndDraw(t *testing.T) {
	var created int
	rec := &recorder{}
	rc := NewRendererContext(func() (Backend, error) {
		created++
		return rec, nil
	})

	require.True(t, rc.Prepare(testFrame(), instance.Uniforms{Zoom: 2}))
	require.True(t, rc.Prepare(testFrame(), instance.Uniforms{Zoom: 3}))
	assert.Equal(t, 1, created)
	assert.True(t, rc.Ready())
	assert.Equal(t, 3, rec.nodes)
	require.Len(t, rec.uniforms, 2)

	require.True(t, rc.Paint())
	assert.Equal(t, []Counts{{Nodes: 3, Ports: 5, Flags: 3}}, rec.draws)
	assert.Equal(t, 2, rc.Stats().BufferGrows)

	rc.Close()
	assert.True(t, rec.released)
	assert.False(t, rc.Ready())
}

func TestInitFailureSkipsFrame(t *testing.T) {
	fail := true
	rc := NewRendererContext(func() (Backend, error) {
		if fail {
			return nil, errors.New("no context")
		}
		return &recorder{}, nil
	})
	assert.False(t, rc.Prepare(testFrame(), instance.Uniforms{}))
	assert.False(t, rc.Paint())
	st := rc.Stats()
	assert.Equal(t, uint64(1), st.InitFailures)

	fail = false
	assert.True(t, rc.Prepare(testFrame(), instance.Uniforms{}))
	assert.True(t, rc.Paint())
}

func TestNilFactory(t *testing.T) {
	rc := NewRendererContext(nil)
	assert.False(t, rc.Prepare(testFrame(), instance.Uniforms{}))
}

func TestContendedFrameIsSkipped(t *testing.T) {
	rc := NewRendererContext(func() (Backend, error) { return &recorder{}, nil })
	require.True(t, rc.Prepare(testFrame(), instance.Uniforms{}))

	rc.mu.Lock()
	assert.False(t, rc.Prepare(testFrame(), instance.Uniforms{}))
	assert.False(t, rc.Paint())
	rc.mu.Unlock()

	assert.Equal(t, uint64(2), rc.Stats().Contended)
	assert.True(t, rc.Paint())
}

func TestDrawErrorSkips(t *testing.T) {
	rc := NewRendererContext(func() (Backend, error) {
		return &recorder{drawErr: errors.New("lost context")}, nil
	})
	require.True(t, rc.Prepare(testFrame(), instance.Uniforms{}))
	assert.False(t, rc.Paint())
	assert.Zero(t, rc.Stats().Painted)
}

func TestCapacityGrowth(t *testing.T) {
	c := NewCapacity(BufferConfig{InitialInstances: 4, MaxInstances: 32})

	capacity, realloc, err := c.Fit(3)
	require.NoError(t, err)
	assert.True(t, realloc)
	assert.Equal(t, 4, capacity)

	_, realloc, _ = c.Fit(4)
	assert.False(t, realloc)

	capacity, realloc, err = c.Fit(9)
	require.NoError(t, err)
	assert.True(t, realloc)
	assert.Equal(t, 16, capacity)
	assert.Equal(t, 1, c.Grows())

	capacity, _, err = c.Fit(100)
	assert.ErrorContains(t, err, ErrCapacityExceeded.Error())
	assert.Equal(t, 32, capacity)

	capacity, realloc, err = c.Fit(200)
	assert.Error(t, err)
	assert.False(t, realloc)
	assert.Equal(t, 32, capacity)
	assert.Equal(t, 32, c.Current())
}

func TestUnitQuad(t *testing.T) {
	verts, err := UnitQuad()
	require.NoError(t, err)
	assert.Len(t, verts, 2*3*2)
	assert.InDelta(t, 1.0, triangleArea(verts), 1e-6)
}

func TestUnitDiscCoversCircle(t *testing.T) {
	verts, err := UnitDisc(DiscSegments)
	require.NoError(t, err)
	assert.Len(t, verts, (DiscSegments-2)*3*2)
	assert.Greater(t, triangleArea(verts), math.Pi)
}

func TestTriangulateDegenerate(t *testing.T) {
	_, err := Triangulate([]geom.Point{{X: 0, Y: 0}, {X: 1, Y: 1}})
	assert.ErrorContains(t, err, ErrDegeneratePolygon.Error())
}

func triangleArea(verts []float32) float64 {
	var area float64
	for i := 0; i+5 < len(verts); i += 6 {
		ax, ay := float64(verts[i]), float64(verts[i+1])
		bx, by := float64(verts[i+2]), float64(verts[i+3])
		cx, cy := float64(verts[i+4]), float64(verts[i+5])
		area += math.Abs((bx-ax)*(cy-ay)-(cx-ax)*(by-ay)) / 2
	}
	return area
}
