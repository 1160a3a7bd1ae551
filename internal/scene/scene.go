// Package scene defines the read-only scene snapshots consumed by the render
// cache. A snapshot carries the stage identifier, ordered mesh, light and
// material records, and a version counter that increases on every publish.
package scene

import "sync"

// EntityID identifies the owner of a snapshot, typically the id of the
// graph node that sources the scene.
type EntityID uint64

// Vec3 is a single vertex position.
type Vec3 [3]float32

// Mesh is a geometry record. Vertices and Indices may be very large; the
// change detector samples them rather than hashing them in full.
type Mesh struct {
	Path            string
	Vertices        []Vec3
	Indices         []uint32
	HasNormals      bool
	HasUVs          bool
	HasColors       bool
	MaterialBinding string
}

// TriangleCount returns the number of triangles described by the index
// buffer.
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// Light is a light record.
type Light struct {
	Path      string
	Type      string // distant, point, spot, rect, disk, sphere, cylinder, dome
	Intensity float32
}

// Material is a material record.
type Material struct {
	Path                 string
	HasDiffuseTexture    bool
	HasNormalTexture     bool
	HasMetallicRoughness bool
}

// Snapshot is an immutable view of one entity's scene data. Callers must not
// mutate a snapshot after it has been published.
type Snapshot struct {
	StageID   string
	UpAxis    string
	Version   uint64
	Meshes    []Mesh
	Lights    []Light
	Materials []Material
}

// TotalVertices sums the vertex counts of all meshes.
func (s *Snapshot) TotalVertices() int {
	n := 0
	for i := range s.Meshes {
		n += len(s.Meshes[i].Vertices)
	}
	return n
}

// TotalTriangles sums the triangle counts of all meshes.
func (s *Snapshot) TotalTriangles() int {
	n := 0
	for i := range s.Meshes {
		n += s.Meshes[i].TriangleCount()
	}
	return n
}

// Provider hands out the current snapshot for an entity. The second return
// value is false when the entity has no upstream data (e.g. the source node
// was disconnected).
type Provider interface {
	Snapshot(id EntityID) (*Snapshot, bool)
}

// Store is an in-memory Provider. Publish replaces an entity's snapshot and
// stamps it with the next version.
type Store struct {
	mu        sync.RWMutex
	snapshots map[EntityID]*Snapshot
	version   uint64
}

var _ Provider = (*Store)(nil)

func NewStore() *Store {
	return &Store{snapshots: make(map[EntityID]*Snapshot)}
}

// Publish stores s for id and returns the version it was stamped with.
func (st *Store) Publish(id EntityID, s *Snapshot) uint64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.version++
	s.Version = st.version
	st.snapshots[id] = s
	return s.Version
}

// Remove drops the snapshot for id, simulating a disconnected source.
func (st *Store) Remove(id EntityID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.snapshots, id)
}

func (st *Store) Snapshot(id EntityID) (*Snapshot, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.snapshots[id]
	return s, ok
}
