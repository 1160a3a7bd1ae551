// Package demo generates a synthetic node graph and scene data for the
// viewer. Everything is derived from a seed, so a given seed and feature
// set always produce the same workload.
//
// The graph is a grid of nodes in three roles:
//   - scene sources publish a snapshot to the store;
//   - viewports display the scene of the source wired into their input;
//   - filler nodes pad the graph with ports and connections.
package demo

import (
	"fmt"
	"log"
	"math/rand"

	"github.com/bsundman/nodle/internal/geom"
	"github.com/bsundman/nodle/internal/graph"
	"github.com/bsundman/nodle/internal/scene"
)

// Features configures the generated workload.
type Features struct {
	Nodes          int     // total node count
	MeshesPerScene int     // meshes in each source's snapshot
	MaxVertices    int     // upper bound on vertices per mesh
	Lights         int     // lights per snapshot
	Materials      int     // materials per snapshot
	Churn          float64 // per-frame probability that one source republishes
}

func DefaultFeatures() Features {
	return Features{
		Nodes:          48,
		MeshesPerScene: 200,
		MaxVertices:    4000,
		Lights:         6,
		Materials:      12,
		Churn:          0.05,
	}
}

// Layout of the node grid, in canvas units.
const (
	columns  = 8
	spacingX = 220
	spacingY = 140
)

var lightTypes = []string{"distant", "point", "spot", "rect", "disk", "sphere", "cylinder", "dome"}

// Workload is a generated graph and the store its sources publish to.
type Workload struct {
	Graph     *graph.Graph
	Store     *scene.Store
	Sources   []graph.NodeID
	Viewports []graph.NodeID

	features Features
	rng      *rand.Rand
	edits    int
}

// Generate builds a workload. Roles cycle source, viewport, filler, filler
// along the grid; each viewport is wired to the nearest preceding source.
func Generate(f Features, seed int64) *Workload {
	if f.Nodes < 2 {
		f.Nodes = 2
	}
	w := &Workload{
		Graph:    graph.New(),
		Store:    scene.NewStore(),
		features: f,
		rng:      rand.New(rand.NewSource(seed)),
	}

	var prev *graph.Node
	var source graph.NodeID
	for i := 0; i < f.Nodes; i++ {
		pos := geom.MakePoint(float64(i%columns)*spacingX, float64(i/columns)*spacingY)
		switch i % 4 {
		case 0:
			n := w.Graph.AddNode(fmt.Sprintf("Stage %d", i/4), graph.KindGeneric, pos, 0, 1)
			source = n.ID
			w.Sources = append(w.Sources, n.ID)
			w.Store.Publish(scene.EntityID(n.ID), w.snapshot(i/4))
			prev = n
		case 1:
			n := w.Graph.AddNode(fmt.Sprintf("Viewport %d", i/4), graph.KindViewport, pos, 1, 0)
			w.Viewports = append(w.Viewports, n.ID)
			w.connect(source, n.ID, 0)
		default:
			n := w.Graph.AddNode(fmt.Sprintf("Node %d", i), graph.KindGeneric, pos, 1+w.rng.Intn(3), 1+w.rng.Intn(2))
			if prev != nil && w.rng.Intn(2) == 0 {
				w.connect(prev.ID, n.ID, w.rng.Intn(len(n.Inputs)))
			}
			prev = n
		}
	}
	return w
}

func (w *Workload) connect(from, to graph.NodeID, input int) bool {
	_, err := w.Graph.Connect(
		graph.PortRef{Node: from, Index: 0, Dir: graph.Output},
		graph.PortRef{Node: to, Index: input, Dir: graph.Input},
	)
	if err != nil {
		log.Printf("WARNING: connect %d -> %d.%d: %v", from, to, input, err)
		return false
	}
	return true
}

func (w *Workload) snapshot(stage int) *scene.Snapshot {
	f := w.features
	s := &scene.Snapshot{
		StageID: fmt.Sprintf("/stages/stage_%02d.usda", stage),
		UpAxis:  []string{"Y", "Z"}[w.rng.Intn(2)],
	}
	for i := 0; i < f.Materials; i++ {
		s.Materials = append(s.Materials, scene.Material{
			Path:                 fmt.Sprintf("/World/Looks/Material_%d", i),
			HasDiffuseTexture:    w.rng.Intn(2) == 0,
			HasNormalTexture:     w.rng.Intn(3) == 0,
			HasMetallicRoughness: w.rng.Intn(2) == 0,
		})
	}
	for i := 0; i < f.MeshesPerScene; i++ {
		s.Meshes = append(s.Meshes, w.mesh(i))
	}
	for i := 0; i < f.Lights; i++ {
		s.Lights = append(s.Lights, scene.Light{
			Path:      fmt.Sprintf("/World/Lights/Light_%d", i),
			Type:      lightTypes[w.rng.Intn(len(lightTypes))],
			Intensity: float32(w.rng.Intn(5000)) / 10,
		})
	}
	return s
}

func (w *Workload) mesh(i int) scene.Mesh {
	f := w.features
	nv := 3 + w.rng.Intn(max(1, f.MaxVertices-2))
	m := scene.Mesh{
		Path:       fmt.Sprintf("/World/Geometry/Mesh_%d", i),
		Vertices:   make([]scene.Vec3, nv),
		Indices:    make([]uint32, 0, (nv-2)*3),
		HasNormals: w.rng.Intn(4) != 0,
		HasUVs:     w.rng.Intn(2) == 0,
		HasColors:  w.rng.Intn(5) == 0,
	}
	for v := range m.Vertices {
		m.Vertices[v] = scene.Vec3{w.rng.Float32(), w.rng.Float32(), w.rng.Float32()}
	}
	// Fan triangulation.
	for v := 1; v+1 < nv; v++ {
		m.Indices = append(m.Indices, 0, uint32(v), uint32(v+1))
	}
	if f.Materials > 0 {
		m.MaterialBinding = fmt.Sprintf("/World/Looks/Material_%d", w.rng.Intn(f.Materials))
	}
	return m
}

// Step advances the workload by one frame. With probability Churn one
// source republishes a copy of its snapshot with a single mesh edited; it
// returns the source that changed.
func (w *Workload) Step() (graph.NodeID, bool) {
	if len(w.Sources) == 0 || w.rng.Float64() >= w.features.Churn {
		return 0, false
	}
	src := w.Sources[w.rng.Intn(len(w.Sources))]
	return src, w.Edit(src)
}

// Edit republishes src's snapshot with one mesh changed. Published
// snapshots are never mutated; the edit copies what it touches.
func (w *Workload) Edit(src graph.NodeID) bool {
	cur, ok := w.Store.Snapshot(scene.EntityID(src))
	if !ok || len(cur.Meshes) == 0 {
		return false
	}
	next := *cur
	next.Meshes = append([]scene.Mesh(nil), cur.Meshes...)

	i := w.rng.Intn(len(next.Meshes))
	m := &next.Meshes[i]
	m.Vertices = append([]scene.Vec3(nil), m.Vertices...)
	m.Vertices[0][1] += 0.25
	w.edits++
	m.Path = fmt.Sprintf("/World/Geometry/Mesh_%d_rev%d", i, w.edits)

	w.Store.Publish(scene.EntityID(src), &next)
	return true
}

// Disconnect removes src's snapshot from the store, as if the source node
// lost its data.
func (w *Workload) Disconnect(src graph.NodeID) {
	w.Store.Remove(scene.EntityID(src))
}
