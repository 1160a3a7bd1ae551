// Package graph is the node-graph model the instance stream draws: nodes
// with input and output ports, the connections between them, the current
// selection, and the in-progress connection gestures.
package graph

import (
	"math"
	"sort"

	"go.trai.ch/zerr"

	"github.com/bsundman/nodle/internal/geom"
)

var (
	ErrUnknownNode       = zerr.New("unknown node")
	ErrUnknownPort       = zerr.New("unknown port")
	ErrInvalidConnection = zerr.New("invalid connection")
	ErrNotConnecting     = zerr.New("no connection in progress")
)

// unknownNode wraps ErrUnknownNode so that errors.Is still matches after
// metadata is attached.
func unknownNode(id NodeID) error {
	return zerr.With(zerr.Wrap(ErrUnknownNode, "graph"), "node", id)
}

// Layout constants, in canvas units.
const (
	PortSpacing     = 30.0
	DefaultNodeSize = 150.0
	DefaultNodeH    = 30.0
)

type NodeID uint64

type ConnectionID uint64

// PortDir distinguishes inputs from outputs.
type PortDir uint8

const (
	Input PortDir = iota
	Output
)

func (d PortDir) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// PortRef names one port: a (node, index, direction) triple.
type PortRef struct {
	Node  NodeID
	Index int
	Dir   PortDir
}

// Kind selects how a node is decorated.
type Kind uint8

const (
	KindGeneric Kind = iota
	KindViewport     // carries the two radial buttons
)

type Port struct {
	Name     string
	Position geom.Point // canvas position, kept in step with the node
}

// Node is a graph node. Fields are mutated through Graph so that the graph
// version stays accurate.
type Node struct {
	ID      NodeID
	Title   string
	Kind    Kind
	Bounds  geom.Box
	Inputs  []Port
	Outputs []Port

	// Hidden nodes are not drawn at all.
	Hidden bool
	// Flag is the node's visibility toggle (the small square drawn on it).
	Flag bool
	// Buttons holds the active state of the left and right radial buttons
	// of viewport nodes.
	Buttons [2]bool
}

// Ports returns the port list for a direction.
func (n *Node) Ports(dir PortDir) []Port {
	if dir == Input {
		return n.Inputs
	}
	return n.Outputs
}

// layoutPorts places inputs along the top edge and outputs along the bottom
// edge, centered and PortSpacing apart.
func (n *Node) layoutPorts() {
	place := func(ports []Port, y float64) {
		startX := n.Bounds.W / 2
		if len(ports) > 1 {
			startX = (n.Bounds.W - float64(len(ports)-1)*PortSpacing) / 2
		}
		for i := range ports {
			ports[i].Position = geom.MakePoint(n.Bounds.X+startX+float64(i)*PortSpacing, y)
		}
	}
	place(n.Inputs, n.Bounds.Y)
	place(n.Outputs, n.Bounds.Y+n.Bounds.H)
}

// Connection joins an output port to an input port.
type Connection struct {
	ID   ConnectionID
	From PortRef // output
	To   PortRef // input
}

// Graph holds nodes and connections. Every mutation bumps Version.
type Graph struct {
	nodes       map[NodeID]*Node
	order       []*Node // sorted by ID; nil when stale
	connections map[ConnectionID]Connection
	nextNode    NodeID
	nextConn    ConnectionID
	version     uint64
}

func New() *Graph {
	return &Graph{
		nodes:       make(map[NodeID]*Node),
		connections: make(map[ConnectionID]Connection),
		nextNode:    1,
		nextConn:    1,
	}
}

// Version increases on every mutation.
func (g *Graph) Version() uint64 { return g.version }

func (g *Graph) touch() {
	g.version++
	g.order = nil
}

// AddNode adds a node with the given number of ports, top-left corner at
// pos.
func (g *Graph) AddNode(title string, kind Kind, pos geom.Point, inputs, outputs int) *Node {
	n := &Node{
		ID:      g.nextNode,
		Title:   title,
		Kind:    kind,
		Bounds:  geom.MakeBox(pos.X, pos.Y, DefaultNodeSize, DefaultNodeH),
		Inputs:  make([]Port, inputs),
		Outputs: make([]Port, outputs),
		Flag:    true,
	}
	if kind == KindViewport {
		n.Bounds.H = 2 * DefaultNodeH
	}
	for i := range n.Inputs {
		n.Inputs[i].Name = "in"
	}
	for i := range n.Outputs {
		n.Outputs[i].Name = "out"
	}
	n.layoutPorts()
	g.nodes[n.ID] = n
	g.nextNode++
	g.touch()
	return n
}

// RemoveNode deletes a node and every connection touching it.
func (g *Graph) RemoveNode(id NodeID) error {
	if _, ok := g.nodes[id]; !ok {
		return unknownNode(id)
	}
	delete(g.nodes, id)
	for cid, c := range g.connections {
		if c.From.Node == id || c.To.Node == id {
			delete(g.connections, cid)
		}
	}
	g.touch()
	return nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns all nodes sorted by ID (ascending). The slice is shared and
// valid until the next mutation.
func (g *Graph) Nodes() []*Node {
	if g.order == nil {
		g.order = make([]*Node, 0, len(g.nodes))
		for _, n := range g.nodes {
			g.order = append(g.order, n)
		}
		sort.Slice(g.order, func(i, j int) bool { return g.order[i].ID < g.order[j].ID })
	}
	return g.order
}

// MoveNode translates a node and its ports.
func (g *Graph) MoveNode(id NodeID, delta geom.Point) error {
	n, ok := g.nodes[id]
	if !ok {
		return unknownNode(id)
	}
	n.Bounds = n.Bounds.Translate(delta)
	n.layoutPorts()
	g.version++
	return nil
}

// SetFlag sets a node's visibility toggle.
func (g *Graph) SetFlag(id NodeID, on bool) error {
	n, ok := g.nodes[id]
	if !ok {
		return unknownNode(id)
	}
	n.Flag = on
	g.version++
	return nil
}

// SetHidden hides or shows a node.
func (g *Graph) SetHidden(id NodeID, hidden bool) error {
	n, ok := g.nodes[id]
	if !ok {
		return unknownNode(id)
	}
	n.Hidden = hidden
	g.version++
	return nil
}

// SetButton sets the active state of a viewport node's button (0 left, 1
// right).
func (g *Graph) SetButton(id NodeID, button int, active bool) error {
	n, ok := g.nodes[id]
	if !ok {
		return unknownNode(id)
	}
	if button < 0 || button >= len(n.Buttons) {
		return zerr.With(zerr.Wrap(ErrUnknownPort, "graph"), "button", button)
	}
	n.Buttons[button] = active
	g.version++
	return nil
}

// PortPosition returns the canvas position of a port.
func (g *Graph) PortPosition(ref PortRef) (geom.Point, error) {
	n, ok := g.nodes[ref.Node]
	if !ok {
		return geom.Point{}, unknownNode(ref.Node)
	}
	ports := n.Ports(ref.Dir)
	if ref.Index < 0 || ref.Index >= len(ports) {
		return geom.Point{}, zerr.With(zerr.Wrap(ErrUnknownPort, "graph"), "index", ref.Index)
	}
	return ports[ref.Index].Position, nil
}

// Connect joins two ports. The pair may be given in either order, but it
// must be one output and one input on different nodes.
func (g *Graph) Connect(a, b PortRef) (ConnectionID, error) {
	if _, err := g.PortPosition(a); err != nil {
		return 0, err
	}
	if _, err := g.PortPosition(b); err != nil {
		return 0, err
	}
	if a.Dir == b.Dir || a.Node == b.Node {
		return 0, zerr.With(zerr.With(zerr.Wrap(ErrInvalidConnection, "graph"), "from", a), "to", b)
	}
	if a.Dir == Input {
		a, b = b, a
	}
	for _, c := range g.connections {
		if c.From == a && c.To == b {
			return c.ID, nil
		}
	}
	id := g.nextConn
	g.nextConn++
	g.connections[id] = Connection{ID: id, From: a, To: b}
	g.version++
	return id, nil
}

// Disconnect removes a connection. It reports whether one was removed.
func (g *Graph) Disconnect(id ConnectionID) bool {
	if _, ok := g.connections[id]; !ok {
		return false
	}
	delete(g.connections, id)
	g.version++
	return true
}

// Connections returns all connections sorted by ID.
func (g *Graph) Connections() []Connection {
	out := make([]Connection, 0, len(g.connections))
	for _, c := range g.connections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Upstream returns the nodes feeding id's inputs, in connection order.
func (g *Graph) Upstream(id NodeID) []NodeID {
	var out []NodeID
	for _, c := range g.Connections() {
		if c.To.Node == id {
			out = append(out, c.From.Node)
		}
	}
	return out
}

// NodeAt returns the topmost visible node containing p. Later nodes draw on
// top, so ties go to the highest ID.
func (g *Graph) NodeAt(p geom.Point) (*Node, bool) {
	nodes := g.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		if !nodes[i].Hidden && nodes[i].Bounds.Contains(p) {
			return nodes[i], true
		}
	}
	return nil, false
}

// PortAt returns the port closest to p within radius.
func (g *Graph) PortAt(p geom.Point, radius float64) (PortRef, bool) {
	best, bestDist := PortRef{}, math.Inf(1)
	for _, n := range g.Nodes() {
		if n.Hidden {
			continue
		}
		for _, dir := range [2]PortDir{Input, Output} {
			for i, port := range n.Ports(dir) {
				if d := geom.Dist(p, port.Position); d <= radius && d < bestDist {
					best, bestDist = PortRef{Node: n.ID, Index: i, Dir: dir}, d
				}
			}
		}
	}
	return best, !math.IsInf(bestDist, 1)
}
