package rendercache

import (
	"strings"

	"github.com/bsundman/nodle/internal/change"
	"github.com/bsundman/nodle/internal/intern"
	"github.com/bsundman/nodle/internal/scene"
)

// FragmentKind is the closed set of cached per-item summaries.
type FragmentKind uint8

const (
	MeshSummary FragmentKind = iota
	LightSummary
	MaterialSummary
)

func (k FragmentKind) String() string {
	switch k {
	case MeshSummary:
		return "mesh"
	case LightSummary:
		return "light"
	case MaterialSummary:
		return "material"
	default:
		return "unknown"
	}
}

// Category is a paginated collection of an entry.
type Category uint8

const (
	Meshes Category = iota
	Lights
	Materials

	NumCategories
)

// field maps a category onto the change field it is built from.
func (c Category) field() change.Field {
	switch c {
	case Lights:
		return change.Lights
	case Materials:
		return change.Materials
	default:
		return change.Meshes
	}
}

func (c Category) String() string { return c.field().String() }

// Fragment is one pre-formatted line of display data. All strings are
// interned.
type Fragment struct {
	Kind   FragmentKind
	Name   string // last path segment
	Path   string
	Icon   string // light glyph, or attribute tags for meshes
	Detail string
	Extra  string // material binding for meshes, texture tags for materials
	Cost   int64  // pagination cost; vertex count for meshes
}

var lightIcons = map[string]string{
	"distant":     "\u2600\ufe0f",
	"directional": "\u2600\ufe0f",
	"point":       "\U0001f4a1",
	"spot":        "\U0001f526",
	"rect":        "\u2b1c",
	"disk":        "\u2b55",
	"sphere":      "\U0001f52e",
	"cylinder":    "\U0001f6e2\ufe0f",
	"dome":        "\U0001f310",
}

// LightIcon returns the glyph for a light type; unknown types get the point
// light glyph.
func LightIcon(lightType string) string {
	if icon, ok := lightIcons[lightType]; ok {
		return icon
	}
	return lightIcons["point"]
}

// Tag tables indexed by a three-bit flag mask. Precomputed so that building
// a fragment only formats the numeric detail.
var (
	meshTags     = tagTable("N", "UV", "C")
	materialTags = tagTable("diffuse", "normal", "metal/rough")
)

func tagTable(a, b, c string) [8]string {
	var out [8]string
	names := [3]string{a, b, c}
	for mask := range out {
		var parts []string
		for bit, name := range names {
			if mask&(1<<bit) != 0 {
				parts = append(parts, name)
			}
		}
		out[mask] = strings.Join(parts, " ")
	}
	return out
}

func mask(a, b, c bool) int {
	m := 0
	if a {
		m |= 1
	}
	if b {
		m |= 2
	}
	if c {
		m |= 4
	}
	return m
}

// ShortName returns the last segment of a scene path, or fallback when the
// path has none.
func ShortName(path, fallback string) string {
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}
	if path == "" {
		return fallback
	}
	return path
}

func meshFragment(in *intern.Interner, m *scene.Mesh) Fragment {
	return Fragment{
		Kind:   MeshSummary,
		Name:   in.Intern(ShortName(m.Path, "Mesh")),
		Path:   in.Intern(m.Path),
		Icon:   meshTags[mask(m.HasNormals, m.HasUVs, m.HasColors)],
		Detail: in.Sprintf("%d vertices, %d triangles", len(m.Vertices), m.TriangleCount()),
		Extra:  in.Intern(m.MaterialBinding),
		Cost:   int64(len(m.Vertices)),
	}
}

func lightFragment(in *intern.Interner, l *scene.Light) Fragment {
	return Fragment{
		Kind:   LightSummary,
		Name:   in.Intern(ShortName(l.Path, "Light")),
		Path:   in.Intern(l.Path),
		Icon:   LightIcon(l.Type),
		Detail: in.Sprintf("Type: %s, Intensity: %.2f", l.Type, l.Intensity),
		Cost:   1,
	}
}

func materialFragment(in *intern.Interner, m *scene.Material) Fragment {
	return Fragment{
		Kind:  MaterialSummary,
		Name:  in.Intern(ShortName(m.Path, "Material")),
		Path:  in.Intern(m.Path),
		Extra: materialTags[mask(m.HasDiffuseTexture, m.HasNormalTexture, m.HasMetallicRoughness)],
		Cost:  1,
	}
}
