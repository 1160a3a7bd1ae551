package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsundman/nodle/internal/geom"
)

func TestPortLayout(t *testing.T) {
	g := New()
	n := g.AddNode("add", KindGeneric, geom.MakePoint(0, 0), 2, 1)

	require.Len(t, n.Inputs, 2)
	assert.Equal(t, geom.MakePoint(60, 0), n.Inputs[0].Position)
	assert.Equal(t, geom.MakePoint(90, 0), n.Inputs[1].Position)
	assert.Equal(t, geom.MakePoint(75, DefaultNodeH), n.Outputs[0].Position)

	require.NoError(t, g.MoveNode(n.ID, geom.MakePoint(10, 5)))
	assert.Equal(t, geom.MakePoint(70, 5), n.Inputs[0].Position)
}

func TestVersionBumps(t *testing.T) {
	g := New()
	v := g.Version()
	a := g.AddNode("a", KindGeneric, geom.Point{}, 0, 1)
	assert.Greater(t, g.Version(), v)

	v = g.Version()
	require.NoError(t, g.SetFlag(a.ID, false))
	assert.Greater(t, g.Version(), v)
	assert.False(t, a.Flag)
}

func TestUnknownNode(t *testing.T) {
	g := New()
	assert.ErrorIs(t, g.RemoveNode(99), ErrUnknownNode)
	assert.ErrorIs(t, g.MoveNode(99, geom.Point{}), ErrUnknownNode)
	_, err := g.PortPosition(PortRef{Node: 99})
	assert.ErrorIs(t, err, ErrUnknownNode)

	n := g.AddNode("a", KindGeneric, geom.Point{}, 1, 0)
	_, err = g.PortPosition(PortRef{Node: n.ID, Index: 3, Dir: Input})
	assert.ErrorIs(t, err, ErrUnknownPort)
	assert.ErrorIs(t, g.SetButton(n.ID, 2, true), ErrUnknownPort)
}

func TestConnect(t *testing.T) {
	g := New()
	a := g.AddNode("a", KindGeneric, geom.Point{}, 0, 1)
	b := g.AddNode("b", KindGeneric, geom.MakePoint(0, 100), 1, 0)
	out := PortRef{Node: a.ID, Index: 0, Dir: Output}
	in := PortRef{Node: b.ID, Index: 0, Dir: Input}

	id, err := g.Connect(in, out)
	require.NoError(t, err)
	conns := g.Connections()
	require.Len(t, conns, 1)
	assert.Equal(t, out, conns[0].From)
	assert.Equal(t, in, conns[0].To)

	again, err := g.Connect(out, in)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	_, err = g.Connect(out, out)
	assert.ErrorIs(t, err, ErrInvalidConnection)

	assert.Equal(t, []NodeID{a.ID}, g.Upstream(b.ID))

	require.NoError(t, g.RemoveNode(a.ID))
	assert.Empty(t, g.Connections())
	assert.False(t, g.Disconnect(id))
}

func TestHitTesting(t *testing.T) {
	g := New()
	a := g.AddNode("a", KindGeneric, geom.MakePoint(0, 0), 1, 1)
	b := g.AddNode("b", KindGeneric, geom.MakePoint(50, 10), 0, 0)

	n, ok := g.NodeAt(geom.MakePoint(60, 15))
	require.True(t, ok)
	assert.Equal(t, b.ID, n.ID)

	require.NoError(t, g.SetHidden(b.ID, true))
	n, ok = g.NodeAt(geom.MakePoint(60, 15))
	require.True(t, ok)
	assert.Equal(t, a.ID, n.ID)

	ref, ok := g.PortAt(geom.MakePoint(74, 2), 5)
	require.True(t, ok)
	assert.Equal(t, PortRef{Node: a.ID, Index: 0, Dir: Input}, ref)

	_, ok = g.PortAt(geom.MakePoint(500, 500), 5)
	assert.False(t, ok)
}

func TestNodesSorted(t *testing.T) {
	g := New()
	for i := 0; i < 5; i++ {
		g.AddNode("n", KindGeneric, geom.Point{}, 0, 0)
	}
	require.NoError(t, g.RemoveNode(3))
	var ids []NodeID
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []NodeID{1, 2, 4, 5}, ids)
}

func TestSelection(t *testing.T) {
	s := NewSelection()
	v := s.Version()
	s.Select(1)
	s.Toggle(2)
	assert.True(t, s.Contains(1))
	assert.True(t, s.Contains(2))
	assert.Equal(t, 2, s.Len())
	assert.Greater(t, s.Version(), v)

	s.Toggle(1)
	assert.False(t, s.Contains(1))

	s.SelectConnection(7)
	assert.True(t, s.ContainsConnection(7))
	assert.Zero(t, s.Len())

	v = s.Version()
	s.Clear()
	s.Clear()
	assert.Equal(t, v+1, s.Version())
}
