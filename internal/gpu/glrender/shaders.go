package glrender

import (
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.trai.ch/zerr"
)

var (
	ErrShaderCompile = zerr.New("shader compilation failed")
	ErrShaderLink    = zerr.New("shader linking failed")
)

// Canvas to clip space, shared by every vertex shader. Screen position is
// canvas*zoom + pan, in pixels with y pointing down.
const viewTransform = `
uniform vec2 uPan;
uniform float uZoom;
uniform float uTime;
uniform vec2 uScreen;

vec4 toClip(vec2 canvas) {
    vec2 screen = canvas * uZoom + uPan;
    vec2 ndc = screen / uScreen * 2.0 - 1.0;
    return vec4(ndc.x, -ndc.y, 0.0, 1.0);
}
`

// Nodes: the unit quad is stretched over the node bounds. The fragment
// shader draws a rounded rectangle with a one pixel border (three when
// selected), a bevel ring and a vertical background gradient.
const nodeVertexSource = `
#version 330 core
layout (location = 0) in vec2 aUnit;
layout (location = 1) in vec2 aPosition;
layout (location = 2) in vec2 aSize;
layout (location = 3) in vec4 aBevelTop;
layout (location = 4) in vec4 aBevelBottom;
layout (location = 5) in vec4 aBackTop;
layout (location = 6) in vec4 aBackBottom;
layout (location = 7) in vec4 aBorder;
layout (location = 8) in float aCornerRadius;
layout (location = 9) in float aSelected;
` + viewTransform + `
out vec2 vLocal;
flat out vec2 vSize;
flat out vec4 vBevelTop;
flat out vec4 vBevelBottom;
flat out vec4 vBackTop;
flat out vec4 vBackBottom;
flat out vec4 vBorder;
flat out float vRadius;
flat out float vSelected;

void main() {
    vLocal = aUnit * aSize;
    vSize = aSize;
    vBevelTop = aBevelTop;
    vBevelBottom = aBevelBottom;
    vBackTop = aBackTop;
    vBackBottom = aBackBottom;
    vBorder = aBorder;
    vRadius = aCornerRadius;
    vSelected = aSelected;
    gl_Position = toClip(aPosition + vLocal);
}
` + "\x00"

const nodeFragmentSource = `
#version 330 core
in vec2 vLocal;
flat in vec2 vSize;
flat in vec4 vBevelTop;
flat in vec4 vBevelBottom;
flat in vec4 vBackTop;
flat in vec4 vBackBottom;
flat in vec4 vBorder;
flat in float vRadius;
flat in float vSelected;
out vec4 FragColor;

float roundedBox(vec2 p, vec2 halfSize, float r) {
    vec2 q = abs(p) - halfSize + vec2(r);
    return length(max(q, 0.0)) + min(max(q.x, q.y), 0.0) - r;
}

void main() {
    float d = roundedBox(vLocal - vSize * 0.5, vSize * 0.5, vRadius);
    if (d > 0.0) {
        discard;
    }
    float border = mix(1.0, 3.0, vSelected);
    float t = vLocal.y / vSize.y;
    if (d > -border) {
        FragColor = vBorder;
    } else if (d > -border - 2.0) {
        FragColor = mix(vBevelTop, vBevelBottom, t);
    } else {
        FragColor = mix(vBackTop, vBackBottom, t);
    }
}
` + "\x00"

// Ports and flags share a record prefix: position, radius, a state flag and
// three colors. Ports pulse while connecting; flags draw only their border
// ring when off.
const ringVertexSource = `
#version 330 core
layout (location = 0) in vec2 aUnit;
layout (location = 1) in vec2 aPosition;
layout (location = 2) in float aRadius;
layout (location = 3) in float aState;
layout (location = 4) in vec4 aBorder;
layout (location = 5) in vec4 aBevel;
layout (location = 6) in vec4 aFill;
` + viewTransform + `
out vec2 vUnit;
flat out float vState;
flat out vec4 vBorder;
flat out vec4 vBevel;
flat out vec4 vFill;

void main() {
    vUnit = aUnit;
    vState = aState;
    vBorder = aBorder;
    vBevel = aBevel;
    vFill = aFill;
    gl_Position = toClip(aPosition + aUnit * aRadius);
}
` + "\x00"

const ringFragmentSource = `
#version 330 core
in vec2 vUnit;
flat in float vState;
flat in vec4 vBorder;
flat in vec4 vBevel;
flat in vec4 vFill;
out vec4 FragColor;

uniform float uTime;

void main() {
    float r = length(vUnit);
    if (r > 1.0) {
        discard;
    }
    vec4 border = vBorder;
    border.rgb *= mix(1.0, 0.75 + 0.25 * sin(uTime * 6.0), vState);
    if (r > 0.8) {
        FragColor = border;
    } else if (r > 0.65) {
        FragColor = vBevel;
    } else {
        FragColor = vFill;
    }
}
` + "\x00"

// Buttons: radial blend from the center color to the outer color.
const buttonVertexSource = `
#version 330 core
layout (location = 0) in vec2 aUnit;
layout (location = 1) in vec2 aPosition;
layout (location = 2) in float aRadius;
layout (location = 3) in float aActive;
layout (location = 4) in vec4 aCenter;
layout (location = 5) in vec4 aOuter;
` + viewTransform + `
out vec2 vUnit;
flat out vec4 vCenter;
flat out vec4 vOuter;

void main() {
    vUnit = aUnit;
    vCenter = aCenter;
    vOuter = aOuter;
    gl_Position = toClip(aPosition + aUnit * aRadius);
}
` + "\x00"

const buttonFragmentSource = `
#version 330 core
in vec2 vUnit;
flat in vec4 vCenter;
flat in vec4 vOuter;
out vec4 FragColor;

void main() {
    float r = length(vUnit);
    if (r > 1.0) {
        discard;
    }
    FragColor = mix(vCenter, vOuter, smoothstep(0.0, 1.0, r));
}
` + "\x00"

// program is a linked shader program and its frame uniform locations.
type program struct {
	id      uint32
	uPan    int32
	uZoom   int32
	uTime   int32
	uScreen int32
}

func newProgram(vertexSource, fragmentSource string) (*program, error) {
	vertexShader, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(vertexShader)

	fragmentShader, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(fragmentShader)

	p := &program{id: gl.CreateProgram()}
	gl.AttachShader(p.id, vertexShader)
	gl.AttachShader(p.id, fragmentShader)
	gl.LinkProgram(p.id)

	var status int32
	gl.GetProgramiv(p.id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(p.id, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(p.id, logLength, nil, gl.Str(logText))
		gl.DeleteProgram(p.id)
		return nil, zerr.With(zerr.Wrap(ErrShaderLink, "glrender"), "log", strings.TrimRight(logText, "\x00"))
	}

	p.uPan = gl.GetUniformLocation(p.id, gl.Str("uPan\x00"))
	p.uZoom = gl.GetUniformLocation(p.id, gl.Str("uZoom\x00"))
	p.uTime = gl.GetUniformLocation(p.id, gl.Str("uTime\x00"))
	p.uScreen = gl.GetUniformLocation(p.id, gl.Str("uScreen\x00"))
	return p, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, zerr.With(zerr.Wrap(ErrShaderCompile, "glrender"), "log", strings.TrimRight(logText, "\x00"))
	}
	return shader, nil
}

func (p *program) use(u *uniformValues) {
	gl.UseProgram(p.id)
	gl.Uniform2f(p.uPan, u.pan[0], u.pan[1])
	gl.Uniform1f(p.uZoom, u.zoom)
	gl.Uniform1f(p.uTime, u.time)
	gl.Uniform2f(p.uScreen, u.screen[0], u.screen[1])
}

func (p *program) delete() {
	if p != nil && p.id != 0 {
		gl.DeleteProgram(p.id)
		p.id = 0
	}
}
