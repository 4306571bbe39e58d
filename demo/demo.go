// Package demo builds guest modules that drive the GL imports. They need
// no external toolchain and back the CLI's -demo flag and the end-to-end
// tests.
package demo

import (
	"encoding/binary"
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-gl/wasmgen"
)

var (
	i32 = api.ValueTypeI32
	f32 = api.ValueTypeF32
	f64 = api.ValueTypeF64
)

// Imports holds the function indices of the GL imports in a module.
type Imports struct {
	Clear         uint32
	InitContext   uint32
	Run           uint32
	CurrentTime   uint32
	Log           uint32
	CompileShader uint32
	DeinitShader  uint32
	LinkProgram   uint32
	UseProgram    uint32
	DeinitProgram uint32
	CreateBuffer  uint32
	BindBuffer    uint32
	DeinitBuffer  uint32
	SetAttribute  uint32
	Draw          uint32
}

// Import declares every GL import of namespace ns on m. It must be called
// before any function is defined.
func Import(m *wasmgen.Module, ns string) Imports {
	imp := func(name string, params, results []api.ValueType) uint32 {
		return m.ImportFunc(ns, name, params, results)
	}
	return Imports{
		Clear:         imp("clear", []api.ValueType{f32, f32, f32, f32}, nil),
		InitContext:   imp("init-context", nil, nil),
		Run:           imp("run", []api.ValueType{i32, i32}, nil),
		CurrentTime:   imp("current-time", nil, []api.ValueType{f64}),
		Log:           imp("log", []api.ValueType{i32, i32}, nil),
		CompileShader: imp("compile-shader", []api.ValueType{i32, i32, i32}, []api.ValueType{i32}),
		DeinitShader:  imp("deinit-shader", []api.ValueType{i32}, nil),
		LinkProgram:   imp("link-program", []api.ValueType{i32, i32}, []api.ValueType{i32}),
		UseProgram:    imp("use-program", []api.ValueType{i32}, nil),
		DeinitProgram: imp("deinit-program", []api.ValueType{i32}, nil),
		CreateBuffer:  imp("create-buffer", []api.ValueType{i32, i32}, []api.ValueType{i32}),
		BindBuffer:    imp("bind-buffer", []api.ValueType{i32}, nil),
		DeinitBuffer:  imp("deinit-buffer", []api.ValueType{i32}, nil),
		SetAttribute:  imp("set-attribute", []api.ValueType{i32, i32, i32, i32, i32, i32, i32, i32}, nil),
		Draw:          imp("draw", []api.ValueType{i32, i32, i32}, nil),
	}
}

// Region is a byte range placed in a module's data segment.
type Region struct {
	Ptr uint32
	Len uint32
}

// Push appends the region's pointer and length to c.
func (r Region) Push(c *wasmgen.Code) *wasmgen.Code {
	return c.I32Const(int32(r.Ptr)).I32Const(int32(r.Len))
}

// Data lays out constant data in linear memory.
type Data struct {
	m    *wasmgen.Module
	next uint32
}

// NewData places data in m starting at base.
func NewData(m *wasmgen.Module, base uint32) *Data {
	return &Data{m: m, next: base}
}

// Put adds b as a data segment aligned to 4 bytes.
func (d *Data) Put(b []byte) Region {
	r := Region{Ptr: d.next, Len: uint32(len(b))}
	if len(b) > 0 {
		d.m.Data(r.Ptr, b)
	}
	d.next = (d.next + r.Len + 3) &^ 3
	return r
}

// String adds s as a data segment.
func (d *Data) String(s string) Region {
	return d.Put([]byte(s))
}

// Floats encodes v as little-endian f32 values.
func Floats(v ...float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

// Default shader sources used by Triangle.
const (
	VertexSource = `attribute vec2 position;
void main() {
    gl_Position = vec4(position, 0.0, 1.0);
}
`
	FragmentSource = `void main() {
    gl_FragColor = vec4(1.0, 0.4, 0.0, 1.0);
}
`
)

// FrameSlot is the function-table slot of the triangle guest's frame
// callback.
const FrameSlot = 1

// Triangle describes a guest that compiles two shaders, uploads a vertex
// buffer and then draws it once per frame.
type Triangle struct {
	// Namespace of the GL imports. Empty selects "env".
	Namespace string
	Vertex    string
	Fragment  string
	// Vertices are xy pairs in clip space.
	Vertices []float32
	// Background is the clear color.
	Background [4]float32
	// Context is the value run passes back on every frame.
	Context uint32
	// Message is logged once after setup.
	Message string
}

// DefaultTriangle returns a triangle covering the lower-left half of the
// viewport on a dark background.
func DefaultTriangle() Triangle {
	return Triangle{
		Vertex:     VertexSource,
		Fragment:   FragmentSource,
		Vertices:   []float32{-1, -1, 1, -1, -1, 1},
		Background: [4]float32{0.1, 0.1, 0.12, 1},
		Context:    42,
		Message:    "triangle ready",
	}
}

// Build encodes the guest. It exports _start, frame, memory, the function
// table, and the globals frames (ticks seen) and context (last value
// received).
func (t Triangle) Build() []byte {
	ns := t.Namespace
	if ns == "" {
		ns = "env"
	}
	m := wasmgen.New()
	gl := Import(m, ns)
	m.Memory(1)
	m.ExportMemory("memory")

	data := NewData(m, 64)
	vs := data.String(t.Vertex)
	fs := data.String(t.Fragment)
	attr := data.String("position")
	verts := data.Put(Floats(t.Vertices...))
	msg := data.String(t.Message)

	prog := m.Global(i32, true, 0)
	buf := m.Global(i32, true, 0)
	frames := m.Global(i32, true, 0)
	seen := m.Global(i32, true, 0)
	m.ExportGlobal("frames", frames)
	m.ExportGlobal("context", seen)

	start := wasmgen.NewCode().Call(gl.InitContext)
	vs.Push(start.I32Const(0)).Call(gl.CompileShader).LocalSet(0)
	fs.Push(start.I32Const(1)).Call(gl.CompileShader).LocalSet(1)
	start.LocalGet(0).LocalGet(1).Call(gl.LinkProgram).GlobalSet(prog)
	start.LocalGet(0).Call(gl.DeinitShader)
	start.LocalGet(1).Call(gl.DeinitShader)
	verts.Push(start).Call(gl.CreateBuffer).GlobalSet(buf)
	if t.Message != "" {
		msg.Push(start).Call(gl.Log)
	}
	start.I32Const(int32(t.Context)).I32Const(FrameSlot).Call(gl.Run)
	startFn := m.Func(nil, nil, []api.ValueType{i32, i32}, start)

	bg := t.Background
	frame := wasmgen.NewCode().
		LocalGet(0).GlobalSet(seen).
		GlobalGet(frames).I32Const(1).I32Add().GlobalSet(frames).
		F32Const(bg[0]).F32Const(bg[1]).F32Const(bg[2]).F32Const(bg[3]).Call(gl.Clear).
		GlobalGet(prog).Call(gl.UseProgram).
		GlobalGet(buf).Call(gl.BindBuffer).
		GlobalGet(prog)
	attr.Push(frame).
		I32Const(2). // size
		I32Const(0). // f32
		I32Const(0). // normalized
		I32Const(0). // stride
		I32Const(0). // offset
		Call(gl.SetAttribute).
		I32Const(0).I32Const(0).I32Const(int32(len(t.Vertices) / 2)).Call(gl.Draw)
	frameFn := m.Func([]api.ValueType{i32}, nil, nil, frame)

	m.ExportFunc("_start", startFn)
	m.ExportFunc("frame", frameFn)
	m.Table(FrameSlot + 1)
	m.Elem(FrameSlot, frameFn)
	m.ExportTable("__indirect_function_table")
	return m.Bytes()
}
