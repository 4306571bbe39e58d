package bridge

import (
	"maps"
	"strconv"

	"github.com/wippyai/wasm-gl/gl"
)

// Stage is a shader pipeline stage as encoded on the guest boundary.
type Stage uint32

const (
	StageVertex Stage = iota
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	}
	return "stage(" + strconv.FormatUint(uint64(s), 10) + ")"
}

func (s Stage) glKind() (gl.Enum, bool) {
	switch s {
	case StageVertex:
		return gl.VertexShader, true
	case StageFragment:
		return gl.FragmentShader, true
	}
	return 0, false
}

// ElementType is a vertex attribute component type.
type ElementType uint32

const (
	ElementFloat32 ElementType = iota
)

func (t ElementType) String() string {
	if t == ElementFloat32 {
		return "f32"
	}
	return "type(" + strconv.FormatUint(uint64(t), 10) + ")"
}

func (t ElementType) glType() (gl.Enum, bool) {
	if t == ElementFloat32 {
		return gl.Float, true
	}
	return 0, false
}

// DrawMode is a primitive assembly mode.
type DrawMode uint32

const (
	DrawTriangles DrawMode = iota
)

func (m DrawMode) String() string {
	if m == DrawTriangles {
		return "triangles"
	}
	return "mode(" + strconv.FormatUint(uint64(m), 10) + ")"
}

func (m DrawMode) glMode() (gl.Enum, bool) {
	if m == DrawTriangles {
		return gl.Triangles, true
	}
	return 0, false
}

// Attribute is a reflected active vertex attribute.
type Attribute struct {
	Name string
	// Index is the position in the backend's active attribute list.
	Index uint32
	// Location is the slot the backend reports for the name. SetVertexAttribute
	// enables Location rather than Index; the two differ only when the
	// backend assigns locations out of active-list order.
	Location uint32
	Size     int32
	Type     gl.Enum
}

// Uniform is a reflected active uniform.
type Uniform struct {
	Name  string
	Index uint32
	Size  int32
	Type  gl.Enum
}

// Shader is a compiled shader object.
type Shader struct {
	backend gl.Backend
	object  gl.Shader
	stage   Stage
}

func (s *Shader) Stage() Stage      { return s.stage }
func (s *Shader) Object() gl.Shader { return s.object }

// Drop deletes the backend shader object.
func (s *Shader) Drop() {
	s.backend.DeleteShader(s.object)
}

// Program is a linked program with its reflection snapshot. The
// attribute and uniform sets are fixed at link time.
type Program struct {
	backend    gl.Backend
	attributes map[string]Attribute
	uniforms   map[string]Uniform
	object     gl.Program
}

func (p *Program) Object() gl.Program { return p.object }

// Attribute looks up a reflected attribute by name.
func (p *Program) Attribute(name string) (Attribute, bool) {
	a, ok := p.attributes[name]
	return a, ok
}

// Uniform looks up a reflected uniform by name.
func (p *Program) Uniform(name string) (Uniform, bool) {
	u, ok := p.uniforms[name]
	return u, ok
}

// Attributes returns a copy of the attribute map.
func (p *Program) Attributes() map[string]Attribute {
	return maps.Clone(p.attributes)
}

// Uniforms returns a copy of the uniform map.
func (p *Program) Uniforms() map[string]Uniform {
	return maps.Clone(p.uniforms)
}

// Drop deletes the backend program object.
func (p *Program) Drop() {
	p.backend.DeleteProgram(p.object)
}

// Buffer is a static vertex buffer.
type Buffer struct {
	backend gl.Backend
	object  gl.Buffer
	size    int
}

func (b *Buffer) Object() gl.Buffer { return b.object }

// Size returns the byte length uploaded at creation.
func (b *Buffer) Size() int { return b.size }

// Drop deletes the backend buffer object.
func (b *Buffer) Drop() {
	b.backend.DeleteBuffer(b.object)
}
