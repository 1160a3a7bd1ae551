package instance

import (
	"io"
	"log"
	"os"

	"github.com/bsundman/nodle/internal/geom"
	"github.com/bsundman/nodle/internal/graph"
	"github.com/bsundman/nodle/internal/palette"
)

var streamLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("NODLE_DEBUG_STREAM") == "1" {
		streamLogger = log.New(os.Stdout, "[stream] ", log.Ltime|log.Lmsgprefix)
	}
}

// FlagInset is the distance of the flag center from the node's right edge.
const FlagInset = 15

// Config selects the rebuild policy.
type Config struct {
	// Differential skips a rebuild when nothing that feeds the records has
	// changed. Off by default: every frame rebuilds.
	Differential bool `yaml:"differential"`

	// Radius overrides; zero keeps the theme's value.
	PortRadius   float32 `yaml:"port_radius"`
	FlagRadius   float32 `yaml:"flag_radius"`
	ButtonRadius float32 `yaml:"button_radius"`
	CornerRadius float32 `yaml:"corner_radius"`
}

func (c Config) apply(th palette.Theme) palette.Theme {
	for _, o := range []struct {
		dst *float32
		v   float32
	}{
		{&th.PortRadius, c.PortRadius},
		{&th.FlagRadius, c.FlagRadius},
		{&th.ButtonRadius, c.ButtonRadius},
		{&th.CornerRadius, c.CornerRadius},
	} {
		if o.v > 0 {
			*o.dst = o.v
		}
	}
	return th
}

// Frame is a view of the stream's arrays. It is valid until the next
// Rebuild and must not be modified.
type Frame struct {
	Nodes   []NodeInstance
	Ports   []PortInstance
	Buttons []ButtonInstance
	Flags   []FlagInstance
}

// Stats describes the most recent Rebuild.
type Stats struct {
	Rebuilds uint64
	Skipped  uint64
	Nodes    int
	Ports    int
	Buttons  int
	Flags    int
}

// Stream owns the instance arrays and reuses their storage across frames.
type Stream struct {
	cfg   Config
	theme palette.Theme
	frame Frame
	stats Stats

	// Inputs of the last rebuild, for differential mode.
	built             bool
	dirty             bool
	graphVersion      uint64
	selectionVersion  uint64
	nodeCount         int
	interactionActive bool
}

func New(cfg Config, theme palette.Theme) *Stream {
	return &Stream{cfg: cfg, theme: cfg.apply(theme), dirty: true}
}

// SetTheme swaps the theme and forces the next rebuild.
func (s *Stream) SetTheme(theme palette.Theme) {
	s.theme = s.cfg.apply(theme)
	s.dirty = true
}

// MarkDirty forces the next Rebuild, even in differential mode.
func (s *Stream) MarkDirty() { s.dirty = true }

// Frame returns the arrays produced by the last Rebuild.
func (s *Stream) Frame() Frame { return s.frame }

func (s *Stream) Stats() Stats { return s.stats }

// upToDate reports whether the previous frame's arrays can be reused. An
// interaction that is active now or was active last frame always forces a
// rebuild, so highlight state is never a frame behind.
func (s *Stream) upToDate(g *graph.Graph, sel *graph.Selection, ia *graph.Interaction) bool {
	if !s.cfg.Differential || !s.built || s.dirty {
		return false
	}
	if ia.Active() || s.interactionActive {
		return false
	}
	return g.Version() == s.graphVersion &&
		sel.Version() == s.selectionVersion &&
		g.Len() == s.nodeCount
}

// Rebuild regenerates the instance arrays from the graph, the selection and
// the in-progress connection gestures.
func (s *Stream) Rebuild(g *graph.Graph, sel *graph.Selection, ia *graph.Interaction) Frame {
	if s.upToDate(g, sel, ia) {
		s.stats.Skipped++
		return s.frame
	}

	f := &s.frame
	f.Nodes = f.Nodes[:0]
	f.Ports = f.Ports[:0]
	f.Buttons = f.Buttons[:0]
	f.Flags = f.Flags[:0]

	th := &s.theme
	for _, n := range g.Nodes() {
		if n.Hidden {
			continue
		}
		selected := sel.Contains(n.ID)
		border := th.NodeBorder
		if selected {
			border = th.NodeBorderSelect
		}
		f.Nodes = append(f.Nodes, NodeInstance{
			Position:     point(n.Bounds.Min()),
			Size:         [2]float32{float32(n.Bounds.W), float32(n.Bounds.H)},
			BevelTop:     th.NodeBevelTop,
			BevelBottom:  th.NodeBevelBottom,
			BackTop:      th.NodeBackTop,
			BackBottom:   th.NodeBackBottom,
			Border:       border,
			CornerRadius: th.CornerRadius,
			Selected:     flag(selected),
		})

		fl := FlagInstance{
			Position: point(flagCenter(n)),
			Radius:   th.FlagRadius,
			Visible:  flag(n.Flag),
			Border:   th.FlagOff,
			Bevel:    th.PortBevel,
			Fill:     palette.Transparent,
		}
		if n.Flag {
			fl.Border, fl.Fill = th.FlagOn, th.FlagOn
		}
		f.Flags = append(f.Flags, fl)

		for _, dir := range [2]graph.PortDir{graph.Input, graph.Output} {
			fill := th.PortOutputFill
			if dir == graph.Input {
				fill = th.PortInputFill
			}
			for i, port := range n.Ports(dir) {
				connecting := ia.Highlights(graph.PortRef{Node: n.ID, Index: i, Dir: dir})
				pb := th.PortBorder
				if connecting {
					pb = th.PortBorderConnect
				}
				f.Ports = append(f.Ports, PortInstance{
					Position:   point(port.Position),
					Radius:     th.PortRadius,
					Connecting: flag(connecting),
					Border:     pb,
					Bevel:      th.PortBevel,
					Fill:       fill,
					IsInput:    flag(dir == graph.Input),
				})
			}
		}

		if n.Kind == graph.KindViewport {
			for side, c := range buttonCenters(n, float64(th.ButtonRadius)) {
				active := n.Buttons[side]
				colors := th.Buttons[side][btoi(active)]
				f.Buttons = append(f.Buttons, ButtonInstance{
					Position: point(c),
					Radius:   th.ButtonRadius,
					Active:   flag(active),
					Center:   colors.Center,
					Outer:    colors.Outer,
				})
			}
		}
	}

	s.built = true
	s.dirty = false
	s.graphVersion = g.Version()
	s.selectionVersion = sel.Version()
	s.nodeCount = g.Len()
	s.interactionActive = ia.Active()

	s.stats.Rebuilds++
	s.stats.Nodes = len(f.Nodes)
	s.stats.Ports = len(f.Ports)
	s.stats.Buttons = len(f.Buttons)
	s.stats.Flags = len(f.Flags)
	if s.stats.Rebuilds%600 == 1 {
		streamLogger.Printf("rebuild #%d: %d nodes, %d ports, %d buttons, %d flags",
			s.stats.Rebuilds, s.stats.Nodes, s.stats.Ports, s.stats.Buttons, s.stats.Flags)
	}
	return s.frame
}

func flagCenter(n *graph.Node) geom.Point {
	return geom.MakePoint(n.Bounds.X+n.Bounds.W-FlagInset, n.Bounds.Y+n.Bounds.H/2)
}

// buttonCenters places the left and right buttons of a viewport node one
// diameter in from its sides.
func buttonCenters(n *graph.Node, r float64) [2]geom.Point {
	y := n.Bounds.Y + n.Bounds.H/2
	return [2]geom.Point{
		geom.MakePoint(n.Bounds.X+2*r, y),
		geom.MakePoint(n.Bounds.X+n.Bounds.W-2*r, y),
	}
}

// Hit names the clickable decoration under a point.
type Hit uint8

const (
	HitNone Hit = iota
	HitFlag
	HitLeftButton
	HitRightButton
)

// HitTest reports which decoration of n lies under p, using the radii the
// stream draws with. Buttons win over the flag where they overlap.
func (s *Stream) HitTest(n *graph.Node, p geom.Point) Hit {
	if n.Hidden {
		return HitNone
	}
	if n.Kind == graph.KindViewport {
		for side, c := range buttonCenters(n, float64(s.theme.ButtonRadius)) {
			if geom.Dist(p, c) <= float64(s.theme.ButtonRadius) {
				return HitLeftButton + Hit(side)
			}
		}
	}
	if geom.Dist(p, flagCenter(n)) <= float64(s.theme.FlagRadius) {
		return HitFlag
	}
	return HitNone
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
