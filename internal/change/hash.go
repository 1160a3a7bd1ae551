// Package change computes content hashes over scene snapshots and tracks,
// per entity, the hashes the cached display data was last built from.
//
// Sampling policy: mesh payloads are not hashed in full. Each mesh
// contributes its path, vertex and index counts, attribute flags, material
// binding, the first SampleVertices vertices, the first SampleIndices
// indices and the last vertex. An edit confined to the unsampled middle of a
// large buffer that leaves every count unchanged goes unnoticed until some
// other sampled field moves. The sample stays bounded regardless of buffer
// size.
//
// Identical input always produces identical hashes, so unchanged data never
// reports a change.
package change

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/bsundman/nodle/internal/scene"
)

const (
	SampleVertices = 64
	SampleIndices  = 192
)

// Field names one tracked part of a snapshot.
type Field uint8

const (
	Topology Field = iota // stage id, up axis, collection lengths
	Meshes
	Lights
	Materials

	NumFields
)

func (f Field) String() string {
	switch f {
	case Topology:
		return "topology"
	case Meshes:
		return "meshes"
	case Lights:
		return "lights"
	case Materials:
		return "materials"
	default:
		return "unknown"
	}
}

// FieldSet is a bitset of fields.
type FieldSet uint8

// AllFields has every tracked field set.
const AllFields FieldSet = 1<<NumFields - 1

func (s FieldSet) Has(f Field) bool         { return s&(1<<f) != 0 }
func (s FieldSet) With(f Field) FieldSet    { return s | 1<<f }
func (s FieldSet) Without(f Field) FieldSet { return s &^ (1 << f) }
func (s FieldSet) Empty() bool              { return s == 0 }

// Digest is the hash of one field. For collection fields Items holds one
// hash per element, in order, and Sum folds the count and all item hashes.
type Digest struct {
	Sum   uint64
	Items []uint64
}

// Hashes holds a digest per field.
type Hashes [NumFields]Digest

// Hasher computes Hashes. It owns a reusable xxhash state, so it is not
// safe for concurrent use.
type Hasher struct {
	d   *xxhash.Digest
	buf [8]byte
}

func NewHasher() *Hasher {
	return &Hasher{d: xxhash.New()}
}

// Compute fills into with the digests of s. Item slices already held by into
// are reused, so a steady-state caller does not allocate.
func (h *Hasher) Compute(s *scene.Snapshot, into *Hashes) {
	h.d.Reset()
	h.d.WriteString(s.StageID)
	h.sep()
	h.d.WriteString(s.UpAxis)
	h.sep()
	h.u64(uint64(len(s.Meshes)))
	h.u64(uint64(len(s.Lights)))
	h.u64(uint64(len(s.Materials)))
	into[Topology].Sum = h.d.Sum64()
	into[Topology].Items = into[Topology].Items[:0]

	items := into[Meshes].Items[:0]
	for i := range s.Meshes {
		items = append(items, h.mesh(&s.Meshes[i]))
	}
	into[Meshes] = Digest{Sum: h.fold(items), Items: items}

	items = into[Lights].Items[:0]
	for i := range s.Lights {
		items = append(items, h.light(&s.Lights[i]))
	}
	into[Lights] = Digest{Sum: h.fold(items), Items: items}

	items = into[Materials].Items[:0]
	for i := range s.Materials {
		items = append(items, h.material(&s.Materials[i]))
	}
	into[Materials] = Digest{Sum: h.fold(items), Items: items}
}

func (h *Hasher) mesh(m *scene.Mesh) uint64 {
	h.d.Reset()
	h.d.WriteString(m.Path)
	h.sep()
	h.u64(uint64(len(m.Vertices)))
	h.u64(uint64(len(m.Indices)))
	h.flags(m.HasNormals, m.HasUVs, m.HasColors)
	h.d.WriteString(m.MaterialBinding)
	h.sep()

	n := min(len(m.Vertices), SampleVertices)
	for i := 0; i < n; i++ {
		h.vec3(m.Vertices[i])
	}
	if len(m.Vertices) > 0 {
		h.vec3(m.Vertices[len(m.Vertices)-1])
	}
	n = min(len(m.Indices), SampleIndices)
	for i := 0; i < n; i++ {
		h.u32(m.Indices[i])
	}
	return h.d.Sum64()
}

func (h *Hasher) light(l *scene.Light) uint64 {
	h.d.Reset()
	h.d.WriteString(l.Path)
	h.sep()
	h.d.WriteString(l.Type)
	h.sep()
	h.u32(math.Float32bits(l.Intensity))
	return h.d.Sum64()
}

func (h *Hasher) material(m *scene.Material) uint64 {
	h.d.Reset()
	h.d.WriteString(m.Path)
	h.sep()
	h.flags(m.HasDiffuseTexture, m.HasNormalTexture, m.HasMetallicRoughness)
	return h.d.Sum64()
}

// fold hashes the item count followed by every item hash, so reordering
// items changes the sum.
func (h *Hasher) fold(items []uint64) uint64 {
	h.d.Reset()
	h.u64(uint64(len(items)))
	for _, it := range items {
		h.u64(it)
	}
	return h.d.Sum64()
}

// sep terminates a variable-length string so that ("ab","c") and ("a","bc")
// hash differently.
func (h *Hasher) sep() {
	h.buf[0] = 0
	h.d.Write(h.buf[:1])
}

func (h *Hasher) flags(a, b, c bool) {
	var v byte
	if a {
		v |= 1
	}
	if b {
		v |= 2
	}
	if c {
		v |= 4
	}
	h.buf[0] = v
	h.d.Write(h.buf[:1])
}

func (h *Hasher) u32(v uint32) {
	binary.LittleEndian.PutUint32(h.buf[:4], v)
	h.d.Write(h.buf[:4])
}

func (h *Hasher) u64(v uint64) {
	binary.LittleEndian.PutUint64(h.buf[:], v)
	h.d.Write(h.buf[:])
}

func (h *Hasher) vec3(v scene.Vec3) {
	h.u32(math.Float32bits(v[0]))
	h.u32(math.Float32bits(v[1]))
	h.u32(math.Float32bits(v[2]))
}
