package gl

// Enum is a WebGL enumerant.
type Enum uint32

const (
	// ColorBufferBit is a mask used with Clear to clear the color buffer.
	ColorBufferBit Enum = 0x00004000

	// Triangles is a primitive type for drawing independent triangles.
	Triangles Enum = 0x0004

	// Float is a data type indicating 32-bit floating point values.
	Float Enum = 0x1406
	Int   Enum = 0x1404
	Bool  Enum = 0x8B56

	FloatVec2   Enum = 0x8B50
	FloatVec3   Enum = 0x8B51
	FloatVec4   Enum = 0x8B52
	IntVec2     Enum = 0x8B53
	IntVec3     Enum = 0x8B54
	IntVec4     Enum = 0x8B55
	BoolVec2    Enum = 0x8B57
	BoolVec3    Enum = 0x8B58
	BoolVec4    Enum = 0x8B59
	FloatMat2   Enum = 0x8B5A
	FloatMat3   Enum = 0x8B5B
	FloatMat4   Enum = 0x8B5C
	Sampler2D   Enum = 0x8B5E
	SamplerCube Enum = 0x8B60

	// ArrayBuffer is the target for vertex buffer objects.
	ArrayBuffer Enum = 0x8892
	// StaticDraw indicates that buffer data will be specified once and used many times.
	StaticDraw Enum = 0x88E4

	// Shader types
	VertexShader   Enum = 0x8B31
	FragmentShader Enum = 0x8B30

	// Shader/Program status
	CompileStatus    Enum = 0x8B81
	LinkStatus       Enum = 0x8B82
	ActiveUniforms   Enum = 0x8B86
	ActiveAttributes Enum = 0x8B89

	// Error flags
	NoError          Enum = 0
	InvalidEnum      Enum = 0x0500
	InvalidValue     Enum = 0x0501
	InvalidOperation Enum = 0x0502
)

// TypeName returns the GLSL spelling of a variable type enum.
func TypeName(t Enum) string {
	switch t {
	case Float:
		return "float"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case FloatVec2:
		return "vec2"
	case FloatVec3:
		return "vec3"
	case FloatVec4:
		return "vec4"
	case IntVec2:
		return "ivec2"
	case IntVec3:
		return "ivec3"
	case IntVec4:
		return "ivec4"
	case BoolVec2:
		return "bvec2"
	case BoolVec3:
		return "bvec3"
	case BoolVec4:
		return "bvec4"
	case FloatMat2:
		return "mat2"
	case FloatMat3:
		return "mat3"
	case FloatMat4:
		return "mat4"
	case Sampler2D:
		return "sampler2D"
	case SamplerCube:
		return "samplerCube"
	}
	return ""
}

// TypeByName is the inverse of TypeName.
func TypeByName(name string) (Enum, bool) {
	t, ok := typesByName[name]
	return t, ok
}

var typesByName = map[string]Enum{
	"float":       Float,
	"int":         Int,
	"bool":        Bool,
	"vec2":        FloatVec2,
	"vec3":        FloatVec3,
	"vec4":        FloatVec4,
	"ivec2":       IntVec2,
	"ivec3":       IntVec3,
	"ivec4":       IntVec4,
	"bvec2":       BoolVec2,
	"bvec3":       BoolVec3,
	"bvec4":       BoolVec4,
	"mat2":        FloatMat2,
	"mat3":        FloatMat3,
	"mat4":        FloatMat4,
	"sampler2D":   Sampler2D,
	"samplerCube": SamplerCube,
}
