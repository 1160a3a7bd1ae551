package instance

import (
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsundman/nodle/internal/geom"
	"github.com/bsundman/nodle/internal/graph"
	"github.com/bsundman/nodle/internal/palette"
)

type fixture struct {
	g   *graph.Graph
	sel *graph.Selection
	ia  *graph.Interaction
	a   *graph.Node // 0 in, 1 out
	b   *graph.Node // 2 in, 1 out
	v   *graph.Node // viewport, 1 in, 0 out
}

func newFixture() *fixture {
	g := graph.New()
	f := &fixture{g: g, sel: graph.NewSelection(), ia: &graph.Interaction{}}
	f.a = g.AddNode("a", graph.KindGeneric, geom.MakePoint(0, 0), 0, 1)
	f.b = g.AddNode("b", graph.KindGeneric, geom.MakePoint(0, 100), 2, 1)
	f.v = g.AddNode("view", graph.KindViewport, geom.MakePoint(0, 200), 1, 0)
	return f
}

func TestRecordLayout(t *testing.T) {
	for name, size := range map[string]uintptr{
		"node":     unsafe.Sizeof(NodeInstance{}),
		"port":     unsafe.Sizeof(PortInstance{}),
		"flag":     unsafe.Sizeof(FlagInstance{}),
		"button":   unsafe.Sizeof(ButtonInstance{}),
		"uniforms": unsafe.Sizeof(Uniforms{}),
	} {
		assert.Zero(t, size%16, name)
	}
}

func TestInstanceCounts(t *testing.T) {
	f := newFixture()
	s := New(Config{}, palette.Default())
	fr := s.Rebuild(f.g, f.sel, f.ia)

	assert.Len(t, fr.Nodes, 3)
	assert.Len(t, fr.Flags, 3)
	assert.Len(t, fr.Ports, 5)
	assert.Len(t, fr.Buttons, 2)

	require.NoError(t, f.g.SetHidden(f.b.ID, true))
	fr = s.Rebuild(f.g, f.sel, f.ia)
	assert.Len(t, fr.Nodes, 2)
	assert.Len(t, fr.Flags, 2)
	assert.Len(t, fr.Ports, 2)

	st := s.Stats()
	assert.Equal(t, uint64(2), st.Rebuilds)
	assert.Equal(t, 2, st.Nodes)
}

func TestSelectionBorder(t *testing.T) {
	f := newFixture()
	th := palette.Default()
	s := New(Config{}, th)
	f.sel.Select(f.b.ID)
	fr := s.Rebuild(f.g, f.sel, f.ia)

	assert.Equal(t, th.NodeBorder, fr.Nodes[0].Border)
	assert.Equal(t, th.NodeBorderSelect, fr.Nodes[1].Border)
	assert.Equal(t, float32(1), fr.Nodes[1].Selected)
	assert.Equal(t, th.NodeBorder, fr.Nodes[2].Border)
}

func connecting(fr Frame) []int {
	var out []int
	for i, p := range fr.Ports {
		if p.Connecting == 1 {
			out = append(out, i)
		}
	}
	return out
}

func TestClickAnchorHighlight(t *testing.T) {
	f := newFixture()
	th := palette.Default()
	s := New(Config{}, th)
	f.ia.Click.Begin(graph.PortRef{Node: f.a.ID, Index: 0, Dir: graph.Output})
	fr := s.Rebuild(f.g, f.sel, f.ia)

	// Node a has no inputs, so its output is the first port record.
	assert.Equal(t, []int{0}, connecting(fr))
	assert.Equal(t, th.PortBorderConnect, fr.Ports[0].Border)
	assert.Equal(t, th.PortOutputFill, fr.Ports[0].Fill)
	for _, p := range fr.Ports[1:] {
		assert.Equal(t, th.PortBorder, p.Border)
	}
}

func TestDragHighlight(t *testing.T) {
	f := newFixture()
	s := New(Config{}, palette.Default())
	start := graph.PortRef{Node: f.a.ID, Index: 0, Dir: graph.Output}
	end := graph.PortRef{Node: f.b.ID, Index: 1, Dir: graph.Input}

	f.ia.Drag.Begin(start, geom.Point{})
	assert.Equal(t, []int{0}, connecting(s.Rebuild(f.g, f.sel, f.ia)))

	f.ia.Drag.Hover(geom.Point{}, end, true)
	// Ports in order: a.out, b.in0, b.in1, b.out, v.in0.
	assert.Equal(t, []int{0, 2}, connecting(s.Rebuild(f.g, f.sel, f.ia)))

	f.ia.Drag.Cancel()
	assert.Empty(t, connecting(s.Rebuild(f.g, f.sel, f.ia)))
}

func TestFlagsAndButtons(t *testing.T) {
	f := newFixture()
	th := palette.Default()
	s := New(Config{}, th)
	require.NoError(t, f.g.SetFlag(f.a.ID, false))
	require.NoError(t, f.g.SetButton(f.v.ID, 1, true))
	fr := s.Rebuild(f.g, f.sel, f.ia)

	assert.Equal(t, th.FlagOff, fr.Flags[0].Border)
	assert.Equal(t, palette.Transparent, fr.Flags[0].Fill)
	assert.Equal(t, th.FlagOn, fr.Flags[1].Fill)
	assert.Equal(t, [2]float32{135, 115}, fr.Flags[1].Position)

	require.Len(t, fr.Buttons, 2)
	assert.Equal(t, [2]float32{20, 230}, fr.Buttons[0].Position)
	assert.Equal(t, [2]float32{130, 230}, fr.Buttons[1].Position)
	assert.Equal(t, th.Buttons[0][0].Center, fr.Buttons[0].Center)
	assert.Equal(t, th.Buttons[1][1].Center, fr.Buttons[1].Center)
}

func TestDifferential(t *testing.T) {
	f := newFixture()
	s := New(Config{Differential: true}, palette.Default())
	s.Rebuild(f.g, f.sel, f.ia)
	s.Rebuild(f.g, f.sel, f.ia)
	assert.Equal(t, uint64(1), s.Stats().Skipped)

	t.Run("selection change rebuilds", func(t *testing.T) {
		f.sel.Select(f.a.ID)
		fr := s.Rebuild(f.g, f.sel, f.ia)
		assert.Equal(t, float32(1), fr.Nodes[0].Selected)
	})

	t.Run("mark dirty rebuilds", func(t *testing.T) {
		before := s.Stats().Rebuilds
		s.MarkDirty()
		s.Rebuild(f.g, f.sel, f.ia)
		assert.Equal(t, before+1, s.Stats().Rebuilds)
	})

	t.Run("highlight is never stale", func(t *testing.T) {
		f.ia.Drag.Begin(graph.PortRef{Node: f.a.ID, Index: 0, Dir: graph.Output}, geom.Point{})
		assert.Equal(t, []int{0}, connecting(s.Rebuild(f.g, f.sel, f.ia)))

		f.ia.Drag.Hover(geom.Point{}, graph.PortRef{Node: f.b.ID, Index: 0, Dir: graph.Input}, true)
		assert.Equal(t, []int{0, 1}, connecting(s.Rebuild(f.g, f.sel, f.ia)))

		// The frame after the gesture ends must clear the highlight.
		f.ia.Drag.Cancel()
		assert.Empty(t, connecting(s.Rebuild(f.g, f.sel, f.ia)))

		before := s.Stats().Skipped
		s.Rebuild(f.g, f.sel, f.ia)
		assert.Equal(t, before+1, s.Stats().Skipped)
	})
}

func TestFullRebuildByDefault(t *testing.T) {
	f := newFixture()
	s := New(Config{}, palette.Default())
	for i := 0; i < 3; i++ {
		s.Rebuild(f.g, f.sel, f.ia)
	}
	assert.Equal(t, uint64(3), s.Stats().Rebuilds)
	assert.Zero(t, s.Stats().Skipped)
}

func TestUniforms(t *testing.T) {
	u := NewUniforms(geom.MakePoint(10, -5), 1.5, 800, 600, 1234500*time.Millisecond)
	assert.Equal(t, [2]float32{10, -5}, u.PanOffset)
	assert.Equal(t, float32(1.5), u.Zoom)
	assert.InDelta(t, 234.5, u.Time, 1e-3)
	assert.Equal(t, [2]float32{800, 600}, u.ScreenSize)
}

func TestRadiusOverrides(t *testing.T) {
	f := newFixture()
	th := palette.Default()
	s := New(Config{PortRadius: 7, ButtonRadius: 12}, th)
	fr := s.Rebuild(f.g, f.sel, f.ia)

	assert.Equal(t, float32(7), fr.Ports[0].Radius)
	assert.Equal(t, th.FlagRadius, fr.Flags[0].Radius)
	assert.Equal(t, float32(12), fr.Buttons[0].Radius)
	assert.Equal(t, [2]float32{24, 230}, fr.Buttons[0].Position)

	s.SetTheme(palette.Default())
	fr = s.Rebuild(f.g, f.sel, f.ia)
	assert.Equal(t, float32(7), fr.Ports[0].Radius)
}

func TestHitTest(t *testing.T) {
	f := newFixture()
	s := New(Config{}, palette.Default())
	fr := s.Rebuild(f.g, f.sel, f.ia)
	at := func(p [2]float32) geom.Point { return geom.MakePoint(float64(p[0]), float64(p[1])) }

	assert.Equal(t, HitFlag, s.HitTest(f.a, at(fr.Flags[0].Position)))
	assert.Equal(t, HitLeftButton, s.HitTest(f.v, at(fr.Buttons[0].Position)))
	assert.Equal(t, HitRightButton, s.HitTest(f.v, at(fr.Buttons[1].Position)))
	assert.Equal(t, HitNone, s.HitTest(f.a, f.a.Bounds.Min()))
	assert.Equal(t, HitNone, s.HitTest(f.b, at(fr.Buttons[0].Position)))

	require.NoError(t, f.g.SetHidden(f.a.ID, true))
	assert.Equal(t, HitNone, s.HitTest(f.a, at(fr.Flags[0].Position)))
}
