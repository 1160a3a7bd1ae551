package demo

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsundman/nodle/internal/scene"
)

func small() Features {
	f := DefaultFeatures()
	f.Nodes = 12
	f.MeshesPerScene = 5
	f.MaxVertices = 50
	return f
}

func TestGenerateRoles(t *testing.T) {
	w := Generate(small(), 1)
	assert.Equal(t, 12, w.Graph.Len())
	assert.Len(t, w.Sources, 3)
	assert.Len(t, w.Viewports, 3)

	for i, v := range w.Viewports {
		up := w.Graph.Upstream(v)
		require.Len(t, up, 1)
		assert.Equal(t, w.Sources[i], up[0])
	}
	for _, src := range w.Sources {
		s, ok := w.Store.Snapshot(scene.EntityID(src))
		require.True(t, ok)
		assert.Len(t, s.Meshes, 5)
		assert.Len(t, s.Lights, 6)
		assert.Len(t, s.Materials, 12)
		for _, m := range s.Meshes {
			assert.Equal(t, len(m.Vertices)-2, m.TriangleCount())
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a, b := Generate(small(), 7), Generate(small(), 7)
	for _, src := range a.Sources {
		sa, _ := a.Store.Snapshot(scene.EntityID(src))
		sb, _ := b.Store.Snapshot(scene.EntityID(src))
		assert.Equal(t, sa, sb)
	}
	assert.Equal(t, a.Graph.Connections(), b.Graph.Connections())
}

func TestEditCopiesOnWrite(t *testing.T) {
	w := Generate(small(), 3)
	src := w.Sources[0]
	before, _ := w.Store.Snapshot(scene.EntityID(src))
	v0 := make([][]scene.Vec3, len(before.Meshes))
	for i, m := range before.Meshes {
		v0[i] = append([]scene.Vec3(nil), m.Vertices...)
	}

	require.True(t, w.Edit(src))
	after, _ := w.Store.Snapshot(scene.EntityID(src))
	assert.Greater(t, after.Version, before.Version)

	changed := 0
	for i := range after.Meshes {
		assert.Equal(t, v0[i], before.Meshes[i].Vertices)
		if after.Meshes[i].Path != before.Meshes[i].Path {
			changed++
		}
	}
	assert.Equal(t, 1, changed)
}

func TestStepAndDisconnect(t *testing.T) {
	f := small()
	f.Churn = 1
	w := Generate(f, 5)
	src, ok := w.Step()
	assert.True(t, ok)
	assert.Contains(t, w.Sources, src)

	w.Disconnect(src)
	_, ok = w.Store.Snapshot(scene.EntityID(src))
	assert.False(t, ok)
	assert.False(t, w.Edit(src))

	f.Churn = 0
	w = Generate(f, 5)
	_, ok = w.Step()
	assert.False(t, ok)
}

func TestConnectFailureLogged(t *testing.T) {
	w := Generate(small(), 1)
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	assert.False(t, w.connect(999, w.Viewports[0], 0))
	assert.Contains(t, buf.String(), "WARNING: connect 999 -> ")
}
