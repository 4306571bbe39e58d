// Package gl defines the graphics backend the bridge drives.
//
// The interface follows WebGL 1 call-for-call so that a browser backend is a
// thin wrapper and the software backend can mirror its semantics. Object
// names are small integers; 0 is the null object.
package gl

// Shader, Program and Buffer are backend object names. Zero is null.
type (
	Shader  uint32
	Program uint32
	Buffer  uint32
)

// ActiveInfo describes an active attribute or uniform after linking.
type ActiveInfo struct {
	Name string
	Size int32
	Type Enum
}

// Backend is a WebGL-1 shaped rendering context.
type Backend interface {
	ClearColor(r, g, b, a float32)
	Clear(mask Enum)

	CreateShader(kind Enum) Shader
	ShaderSource(s Shader, source string)
	CompileShader(s Shader)
	GetShaderParameter(s Shader, pname Enum) int32
	GetShaderInfoLog(s Shader) string
	DeleteShader(s Shader)

	CreateProgram() Program
	AttachShader(p Program, s Shader)
	LinkProgram(p Program)
	GetProgramParameter(p Program, pname Enum) int32
	GetProgramInfoLog(p Program) string
	// GetActiveAttrib and GetActiveUniform report false where WebGL
	// would return null.
	GetActiveAttrib(p Program, index uint32) (ActiveInfo, bool)
	GetActiveUniform(p Program, index uint32) (ActiveInfo, bool)
	GetAttribLocation(p Program, name string) int32
	UseProgram(p Program)
	DeleteProgram(p Program)

	CreateBuffer() Buffer
	BindBuffer(target Enum, b Buffer)
	BufferData(target Enum, data []byte, usage Enum)
	DeleteBuffer(b Buffer)

	EnableVertexAttribArray(index uint32)
	VertexAttribPointer(index uint32, size int32, typ Enum, normalized bool, stride, offset int32)
	DrawArrays(mode Enum, first, count int32)

	GetError() Enum
}

// Surface is implemented by backends that must create their drawing
// surface before first use. Init must be idempotent.
type Surface interface {
	Init() error
}

// BufferReader is implemented by backends that can read buffer contents
// back (WebGL 2 getBufferSubData).
type BufferReader interface {
	GetBufferSubData(target Enum, offset int, dst []byte) bool
}
