// Package glrender is the OpenGL implementation of gpu.Backend. Each record
// kind is one instanced draw: a small base mesh (unit quad or disc) in one
// buffer, the instance records in a second buffer with attribute divisor 1.
//
// All calls must happen on the thread that owns the GL context.
package glrender

import (
	"io"
	"log"
	"os"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.trai.ch/zerr"

	"github.com/bsundman/nodle/internal/gpu"
	"github.com/bsundman/nodle/internal/instance"
)

var glLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("NODLE_DEBUG_GL") == "1" {
		glLogger = log.New(os.Stdout, "[gl] ", log.Ltime|log.Lmsgprefix)
	}
}

// attrib describes one per-instance vertex attribute.
type attrib struct {
	location   uint32
	components int32
	offset     uintptr
}

var (
	nodeAttribs = []attrib{
		{1, 2, unsafe.Offsetof(instance.NodeInstance{}.Position)},
		{2, 2, unsafe.Offsetof(instance.NodeInstance{}.Size)},
		{3, 4, unsafe.Offsetof(instance.NodeInstance{}.BevelTop)},
		{4, 4, unsafe.Offsetof(instance.NodeInstance{}.BevelBottom)},
		{5, 4, unsafe.Offsetof(instance.NodeInstance{}.BackTop)},
		{6, 4, unsafe.Offsetof(instance.NodeInstance{}.BackBottom)},
		{7, 4, unsafe.Offsetof(instance.NodeInstance{}.Border)},
		{8, 1, unsafe.Offsetof(instance.NodeInstance{}.CornerRadius)},
		{9, 1, unsafe.Offsetof(instance.NodeInstance{}.Selected)},
	}
	portAttribs = []attrib{
		{1, 2, unsafe.Offsetof(instance.PortInstance{}.Position)},
		{2, 1, unsafe.Offsetof(instance.PortInstance{}.Radius)},
		{3, 1, unsafe.Offsetof(instance.PortInstance{}.Connecting)},
		{4, 4, unsafe.Offsetof(instance.PortInstance{}.Border)},
		{5, 4, unsafe.Offsetof(instance.PortInstance{}.Bevel)},
		{6, 4, unsafe.Offsetof(instance.PortInstance{}.Fill)},
	}
	flagAttribs = []attrib{
		{1, 2, unsafe.Offsetof(instance.FlagInstance{}.Position)},
		{2, 1, unsafe.Offsetof(instance.FlagInstance{}.Radius)},
		{3, 1, unsafe.Offsetof(instance.FlagInstance{}.Visible)},
		{4, 4, unsafe.Offsetof(instance.FlagInstance{}.Border)},
		{5, 4, unsafe.Offsetof(instance.FlagInstance{}.Bevel)},
		{6, 4, unsafe.Offsetof(instance.FlagInstance{}.Fill)},
	}
	buttonAttribs = []attrib{
		{1, 2, unsafe.Offsetof(instance.ButtonInstance{}.Position)},
		{2, 1, unsafe.Offsetof(instance.ButtonInstance{}.Radius)},
		{3, 1, unsafe.Offsetof(instance.ButtonInstance{}.Active)},
		{4, 4, unsafe.Offsetof(instance.ButtonInstance{}.Center)},
		{5, 4, unsafe.Offsetof(instance.ButtonInstance{}.Outer)},
	}
)

// layer is the GPU state of one instanced draw.
type layer struct {
	name     string
	prog     *program
	vao      uint32
	mesh     uint32 // base mesh VBO
	vbo      uint32 // instance VBO
	verts    int32
	stride   int32
	attribs  []attrib
	capacity gpu.Capacity
	count    int
}

type uniformValues struct {
	pan    [2]float32
	zoom   float32
	time   float32
	screen [2]float32
}

// Backend draws nodes, then ports, flags and buttons on top.
type Backend struct {
	cfg      gpu.BufferConfig
	programs []*program
	nodes    *layer
	ports    *layer
	flags    *layer
	buttons  *layer
	uniforms uniformValues
}

var _ gpu.Backend = (*Backend)(nil)

// New compiles the shaders and creates the vertex arrays. It requires a
// current GL context.
func New(cfg gpu.BufferConfig) (*Backend, error) {
	quad, err := gpu.UnitQuad()
	if err != nil {
		return nil, err
	}
	disc, err := gpu.UnitDisc(gpu.DiscSegments)
	if err != nil {
		return nil, err
	}

	b := &Backend{cfg: cfg}
	nodeProg, err := b.program(nodeVertexSource, nodeFragmentSource)
	if err != nil {
		b.Release()
		return nil, zerr.With(err, "kind", "node")
	}
	ringProg, err := b.program(ringVertexSource, ringFragmentSource)
	if err != nil {
		b.Release()
		return nil, zerr.With(err, "kind", "ring")
	}
	buttonProg, err := b.program(buttonVertexSource, buttonFragmentSource)
	if err != nil {
		b.Release()
		return nil, zerr.With(err, "kind", "button")
	}

	b.nodes = b.newLayer("nodes", nodeProg, quad, nodeAttribs, unsafe.Sizeof(instance.NodeInstance{}))
	b.ports = b.newLayer("ports", ringProg, disc, portAttribs, unsafe.Sizeof(instance.PortInstance{}))
	b.flags = b.newLayer("flags", ringProg, disc, flagAttribs, unsafe.Sizeof(instance.FlagInstance{}))
	b.buttons = b.newLayer("buttons", buttonProg, disc, buttonAttribs, unsafe.Sizeof(instance.ButtonInstance{}))
	glLogger.Printf("backend ready: quad=%d disc=%d vertices", len(quad)/2, len(disc)/2)
	return b, nil
}

func (b *Backend) program(vs, fs string) (*program, error) {
	p, err := newProgram(vs, fs)
	if err != nil {
		return nil, err
	}
	b.programs = append(b.programs, p)
	return p, nil
}

func (b *Backend) newLayer(name string, prog *program, mesh []float32, attribs []attrib, stride uintptr) *layer {
	l := &layer{
		name:     name,
		prog:     prog,
		verts:    int32(len(mesh) / 2),
		stride:   int32(stride),
		attribs:  attribs,
		capacity: gpu.NewCapacity(b.cfg),
	}
	gl.GenVertexArrays(1, &l.vao)
	gl.GenBuffers(1, &l.mesh)
	gl.GenBuffers(1, &l.vbo)

	gl.BindVertexArray(l.vao)

	gl.BindBuffer(gl.ARRAY_BUFFER, l.mesh)
	gl.BufferData(gl.ARRAY_BUFFER, len(mesh)*4, gl.Ptr(mesh), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 8, gl.PtrOffset(0))

	gl.BindBuffer(gl.ARRAY_BUFFER, l.vbo)
	l.bindInstanceAttribs()

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
	return l
}

// bindInstanceAttribs points the instance attributes at the bound
// instance VBO. It is called again after the VBO is reallocated.
func (l *layer) bindInstanceAttribs() {
	for _, a := range l.attribs {
		gl.EnableVertexAttribArray(a.location)
		gl.VertexAttribPointer(a.location, a.components, gl.FLOAT, false, l.stride, gl.PtrOffset(int(a.offset)))
		gl.VertexAttribDivisor(a.location, 1)
	}
}

// upload copies records into the layer's instance VBO, growing it first if
// needed. Records past the buffer limit are dropped and reported.
func upload[T any](l *layer, records []T) error {
	n, realloc, err := l.capacity.Fit(len(records))
	if realloc {
		gl.BindVertexArray(l.vao)
		gl.BindBuffer(gl.ARRAY_BUFFER, l.vbo)
		gl.BufferData(gl.ARRAY_BUFFER, n*int(l.stride), nil, gl.DYNAMIC_DRAW)
		l.bindInstanceAttribs()
		gl.BindVertexArray(0)
		glLogger.Printf("%s: instance buffer sized to %d records", l.name, n)
	} else {
		gl.BindBuffer(gl.ARRAY_BUFFER, l.vbo)
	}

	count := min(len(records), n)
	if count > 0 {
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, count*int(l.stride), gl.Ptr(&records[0]))
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	l.count = count
	if err != nil {
		return zerr.With(err, "kind", l.name)
	}
	return nil
}

func (b *Backend) UploadUniforms(u instance.Uniforms) error {
	b.uniforms = uniformValues{pan: u.PanOffset, zoom: u.Zoom, time: u.Time, screen: u.ScreenSize}
	return nil
}

func (b *Backend) UploadNodes(nodes []instance.NodeInstance) error {
	return upload(b.nodes, nodes)
}

func (b *Backend) UploadPorts(ports []instance.PortInstance) error {
	return upload(b.ports, ports)
}

func (b *Backend) UploadButtons(buttons []instance.ButtonInstance) error {
	return upload(b.buttons, buttons)
}

func (b *Backend) UploadFlags(flags []instance.FlagInstance) error {
	return upload(b.flags, flags)
}

// Draw issues one instanced draw per kind. Counts above what was uploaded
// are clamped.
func (b *Backend) Draw(c gpu.Counts) error {
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	for _, d := range []struct {
		l *layer
		n int
	}{
		{b.nodes, c.Nodes},
		{b.ports, c.Ports},
		{b.flags, c.Flags},
		{b.buttons, c.Buttons},
	} {
		n := min(d.n, d.l.count)
		if n == 0 {
			continue
		}
		d.l.prog.use(&b.uniforms)
		gl.BindVertexArray(d.l.vao)
		gl.DrawArraysInstanced(gl.TRIANGLES, 0, d.l.verts, int32(n))
	}
	gl.BindVertexArray(0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		return zerr.With(zerr.New("gl error"), "code", code)
	}
	return nil
}

// Grows returns the number of instance buffer reallocations across kinds.
func (b *Backend) Grows() int {
	var n int
	for _, l := range []*layer{b.nodes, b.ports, b.flags, b.buttons} {
		if l != nil {
			n += l.capacity.Grows()
		}
	}
	return n
}

// Release deletes every GL object owned by the backend.
func (b *Backend) Release() {
	for _, l := range []*layer{b.nodes, b.ports, b.flags, b.buttons} {
		if l == nil {
			continue
		}
		gl.DeleteVertexArrays(1, &l.vao)
		gl.DeleteBuffers(1, &l.mesh)
		gl.DeleteBuffers(1, &l.vbo)
	}
	for _, p := range b.programs {
		p.delete()
	}
	b.programs = nil
	b.nodes, b.ports, b.flags, b.buttons = nil, nil, nil, nil
}

// Factory returns a gpu.Factory creating a Backend on the current context.
func Factory(cfg gpu.BufferConfig) gpu.Factory {
	return func() (gpu.Backend, error) {
		b, err := New(cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}
