// Package soft is a headless software implementation of gl.Backend.
//
// It models WebGL 1 at the object and state level: shader objects compile
// through a GLSL ES declaration scanner, programs link with varying and
// uniform interface checks and report active attributes and uniforms, and
// buffers hold their bytes in host memory. Draws are recorded and
// triangle lists are rasterized into an RGBA framebuffer. The fragment
// stage is not executed: coverage is filled with the constant
// gl_FragColor the fragment shader assigns, or opaque white.
package soft

import (
	"image"
	"image/color"

	"github.com/wippyai/wasm-gl/gl"
)

// MaxVertexAttribs is the number of vertex attribute slots.
const MaxVertexAttribs = 16

// Config configures a software context.
type Config struct {
	// Width and Height size the framebuffer. Zero selects 300x150, the
	// default canvas size.
	Width  int
	Height int
	// MaxObjects limits the number of live objects. Create calls past the
	// limit return the null object. Zero means unlimited.
	MaxObjects int
}

// DrawCall records one accepted DrawArrays call.
type DrawCall struct {
	Program gl.Program
	Mode    gl.Enum
	First   int32
	Count   int32
}

// AttribState is the configuration of one vertex attribute slot.
type AttribState struct {
	Buffer     gl.Buffer
	Size       int32
	Type       gl.Enum
	Stride     int32
	Offset     int32
	Enabled    bool
	Normalized bool
}

type shaderObject struct {
	translation *translation
	source      string
	log         string
	kind        gl.Enum
	compiled    bool
}

type programObject struct {
	fragColor color.RGBA
	log       string
	attached  []*shaderObject
	attribs   []gl.ActiveInfo
	uniforms  []gl.ActiveInfo
	linked    bool
}

type bufferObject struct {
	data  []byte
	usage gl.Enum
}

// Context is a software rendering context. It is not safe for concurrent
// use.
type Context struct {
	shaders  map[gl.Shader]*shaderObject
	programs map[gl.Program]*programObject
	buffers  map[gl.Buffer]*bufferObject
	fb       *image.RGBA
	draws    []DrawCall
	cfg      Config
	attribs  [MaxVertexAttribs]AttribState
	clear    [4]float32
	next     uint32
	clears   int
	err      gl.Enum
	current  gl.Program
	array    gl.Buffer
}

var (
	_ gl.Backend      = (*Context)(nil)
	_ gl.Surface      = (*Context)(nil)
	_ gl.BufferReader = (*Context)(nil)
)

// New creates a context. The framebuffer is allocated by Init.
func New(cfg Config) *Context {
	if cfg.Width <= 0 {
		cfg.Width = 300
	}
	if cfg.Height <= 0 {
		cfg.Height = 150
	}
	return &Context{
		cfg:      cfg,
		shaders:  make(map[gl.Shader]*shaderObject),
		programs: make(map[gl.Program]*programObject),
		buffers:  make(map[gl.Buffer]*bufferObject),
	}
}

// Init allocates the framebuffer. Repeated calls keep the existing one.
func (c *Context) Init() error {
	if c.fb == nil {
		c.fb = image.NewRGBA(image.Rect(0, 0, c.cfg.Width, c.cfg.Height))
	}
	return nil
}

// Image returns the framebuffer, or nil before Init.
func (c *Context) Image() *image.RGBA {
	return c.fb
}

// Draws returns the accepted draw calls in issue order.
func (c *Context) Draws() []DrawCall {
	return c.draws
}

// Clears returns how many color clears were performed.
func (c *Context) Clears() int {
	return c.clears
}

// Attrib returns the state of a vertex attribute slot.
func (c *Context) Attrib(index uint32) AttribState {
	if index >= MaxVertexAttribs {
		return AttribState{}
	}
	return c.attribs[index]
}

// CurrentProgram returns the program installed by UseProgram.
func (c *Context) CurrentProgram() gl.Program {
	return c.current
}

// ArrayBuffer returns the buffer bound to ARRAY_BUFFER.
func (c *Context) ArrayBuffer() gl.Buffer {
	return c.array
}

// Live returns the number of live shader, program and buffer objects.
func (c *Context) Live() int {
	return len(c.shaders) + len(c.programs) + len(c.buffers)
}

func (c *Context) record(e gl.Enum) {
	if c.err == gl.NoError {
		c.err = e
	}
}

// GetError returns and clears the first recorded error.
func (c *Context) GetError() gl.Enum {
	e := c.err
	c.err = gl.NoError
	return e
}

func (c *Context) alloc() (uint32, bool) {
	if c.cfg.MaxObjects > 0 && c.Live() >= c.cfg.MaxObjects {
		return 0, false
	}
	c.next++
	return c.next, true
}

func (c *Context) ClearColor(r, g, b, a float32) {
	c.clear = [4]float32{clamp(r), clamp(g), clamp(b), clamp(a)}
}

func (c *Context) Clear(mask gl.Enum) {
	// DEPTH_BUFFER_BIT and STENCIL_BUFFER_BIT are accepted; there are no
	// such buffers to clear.
	if mask&^(gl.ColorBufferBit|0x100|0x400) != 0 {
		c.record(gl.InvalidValue)
		return
	}
	if mask&gl.ColorBufferBit == 0 {
		return
	}
	c.clears++
	if c.fb == nil {
		return
	}
	fill := color.RGBA{
		R: unit(float64(c.clear[0])),
		G: unit(float64(c.clear[1])),
		B: unit(float64(c.clear[2])),
		A: unit(float64(c.clear[3])),
	}
	pix := c.fb.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = fill.R, fill.G, fill.B, fill.A
	}
}

func clamp(f float32) float32 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func (c *Context) CreateShader(kind gl.Enum) gl.Shader {
	if kind != gl.VertexShader && kind != gl.FragmentShader {
		c.record(gl.InvalidEnum)
		return 0
	}
	id, ok := c.alloc()
	if !ok {
		return 0
	}
	c.shaders[gl.Shader(id)] = &shaderObject{kind: kind}
	return gl.Shader(id)
}

func (c *Context) shader(s gl.Shader) *shaderObject {
	obj, ok := c.shaders[s]
	if !ok {
		c.record(gl.InvalidValue)
		return nil
	}
	return obj
}

func (c *Context) ShaderSource(s gl.Shader, source string) {
	if obj := c.shader(s); obj != nil {
		obj.source = source
	}
}

func (c *Context) CompileShader(s gl.Shader) {
	obj := c.shader(s)
	if obj == nil {
		return
	}
	obj.translation, obj.log = translate(obj.kind, obj.source)
	obj.compiled = obj.translation != nil
}

func (c *Context) GetShaderParameter(s gl.Shader, pname gl.Enum) int32 {
	obj := c.shader(s)
	if obj == nil {
		return 0
	}
	switch pname {
	case gl.CompileStatus:
		return boolParam(obj.compiled)
	case 0x8B4F: // SHADER_TYPE
		return int32(obj.kind)
	}
	c.record(gl.InvalidEnum)
	return 0
}

func (c *Context) GetShaderInfoLog(s gl.Shader) string {
	if obj := c.shader(s); obj != nil {
		return obj.log
	}
	return ""
}

func (c *Context) DeleteShader(s gl.Shader) {
	if s == 0 {
		return
	}
	// Programs keep their attached shader objects alive.
	delete(c.shaders, s)
}

func (c *Context) CreateProgram() gl.Program {
	id, ok := c.alloc()
	if !ok {
		return 0
	}
	c.programs[gl.Program(id)] = &programObject{}
	return gl.Program(id)
}

func (c *Context) program(p gl.Program) *programObject {
	obj, ok := c.programs[p]
	if !ok {
		c.record(gl.InvalidValue)
		return nil
	}
	return obj
}

func (c *Context) AttachShader(p gl.Program, s gl.Shader) {
	prog := c.program(p)
	sh := c.shader(s)
	if prog == nil || sh == nil {
		return
	}
	for _, a := range prog.attached {
		if a == sh || a.kind == sh.kind {
			c.record(gl.InvalidOperation)
			return
		}
	}
	prog.attached = append(prog.attached, sh)
}

func (c *Context) LinkProgram(p gl.Program) {
	prog := c.program(p)
	if prog == nil {
		return
	}
	link(prog)
}

func (c *Context) GetProgramParameter(p gl.Program, pname gl.Enum) int32 {
	prog := c.program(p)
	if prog == nil {
		return 0
	}
	switch pname {
	case gl.LinkStatus:
		return boolParam(prog.linked)
	case gl.ActiveAttributes:
		return int32(len(prog.attribs))
	case gl.ActiveUniforms:
		return int32(len(prog.uniforms))
	}
	c.record(gl.InvalidEnum)
	return 0
}

func (c *Context) GetProgramInfoLog(p gl.Program) string {
	if prog := c.program(p); prog != nil {
		return prog.log
	}
	return ""
}

func (c *Context) GetActiveAttrib(p gl.Program, index uint32) (gl.ActiveInfo, bool) {
	prog := c.program(p)
	if prog == nil {
		return gl.ActiveInfo{}, false
	}
	if int(index) >= len(prog.attribs) {
		c.record(gl.InvalidValue)
		return gl.ActiveInfo{}, false
	}
	return prog.attribs[index], true
}

func (c *Context) GetActiveUniform(p gl.Program, index uint32) (gl.ActiveInfo, bool) {
	prog := c.program(p)
	if prog == nil {
		return gl.ActiveInfo{}, false
	}
	if int(index) >= len(prog.uniforms) {
		c.record(gl.InvalidValue)
		return gl.ActiveInfo{}, false
	}
	return prog.uniforms[index], true
}

func (c *Context) GetAttribLocation(p gl.Program, name string) int32 {
	prog := c.program(p)
	if prog == nil {
		return -1
	}
	if !prog.linked {
		c.record(gl.InvalidOperation)
		return -1
	}
	// Locations are assigned in active-attribute order.
	for i, a := range prog.attribs {
		if a.Name == name {
			return int32(i)
		}
	}
	return -1
}

func (c *Context) UseProgram(p gl.Program) {
	if p == 0 {
		c.current = 0
		return
	}
	prog := c.program(p)
	if prog == nil {
		return
	}
	if !prog.linked {
		c.record(gl.InvalidOperation)
		return
	}
	c.current = p
}

func (c *Context) DeleteProgram(p gl.Program) {
	if p == 0 {
		return
	}
	delete(c.programs, p)
	if c.current == p {
		c.current = 0
	}
}

func (c *Context) CreateBuffer() gl.Buffer {
	id, ok := c.alloc()
	if !ok {
		return 0
	}
	c.buffers[gl.Buffer(id)] = &bufferObject{}
	return gl.Buffer(id)
}

func (c *Context) BindBuffer(target gl.Enum, b gl.Buffer) {
	if target != gl.ArrayBuffer {
		c.record(gl.InvalidEnum)
		return
	}
	if b != 0 {
		if _, ok := c.buffers[b]; !ok {
			c.record(gl.InvalidOperation)
			return
		}
	}
	c.array = b
}

func (c *Context) BufferData(target gl.Enum, data []byte, usage gl.Enum) {
	if target != gl.ArrayBuffer {
		c.record(gl.InvalidEnum)
		return
	}
	buf, ok := c.buffers[c.array]
	if !ok {
		c.record(gl.InvalidOperation)
		return
	}
	buf.data = append([]byte(nil), data...)
	buf.usage = usage
}

// GetBufferSubData copies bytes from the buffer bound to target.
func (c *Context) GetBufferSubData(target gl.Enum, offset int, dst []byte) bool {
	if target != gl.ArrayBuffer {
		c.record(gl.InvalidEnum)
		return false
	}
	buf, ok := c.buffers[c.array]
	if !ok || offset < 0 || offset+len(dst) > len(buf.data) {
		c.record(gl.InvalidValue)
		return false
	}
	copy(dst, buf.data[offset:])
	return true
}

// BufferSize returns the byte size of a buffer's data store.
func (c *Context) BufferSize(b gl.Buffer) int {
	if buf, ok := c.buffers[b]; ok {
		return len(buf.data)
	}
	return -1
}

func (c *Context) DeleteBuffer(b gl.Buffer) {
	if b == 0 {
		return
	}
	delete(c.buffers, b)
	if c.array == b {
		c.array = 0
	}
	for i := range c.attribs {
		if c.attribs[i].Buffer == b {
			c.attribs[i].Buffer = 0
		}
	}
}

func (c *Context) EnableVertexAttribArray(index uint32) {
	if index >= MaxVertexAttribs {
		c.record(gl.InvalidValue)
		return
	}
	c.attribs[index].Enabled = true
}

func (c *Context) VertexAttribPointer(index uint32, size int32, typ gl.Enum, normalized bool, stride, offset int32) {
	if index >= MaxVertexAttribs || size < 1 || size > 4 || stride < 0 || stride > 255 || offset < 0 {
		c.record(gl.InvalidValue)
		return
	}
	if typ != gl.Float {
		c.record(gl.InvalidEnum)
		return
	}
	if c.array == 0 {
		c.record(gl.InvalidOperation)
		return
	}
	a := &c.attribs[index]
	a.Buffer = c.array
	a.Size = size
	a.Type = typ
	a.Normalized = normalized
	a.Stride = stride
	a.Offset = offset
}

func (c *Context) DrawArrays(mode gl.Enum, first, count int32) {
	if mode != gl.Triangles {
		c.record(gl.InvalidEnum)
		return
	}
	if first < 0 || count < 0 {
		c.record(gl.InvalidValue)
		return
	}
	prog, ok := c.programs[c.current]
	if !ok {
		c.record(gl.InvalidOperation)
		return
	}
	if count > 0 && !c.attribsInRange(first, count) {
		c.record(gl.InvalidOperation)
		return
	}
	c.draws = append(c.draws, DrawCall{Program: c.current, Mode: mode, First: first, Count: count})
	if c.fb != nil && count >= 3 {
		c.rasterize(prog, first, count)
	}
}

// attribsInRange checks that every enabled attribute can be fetched for
// the vertex range.
func (c *Context) attribsInRange(first, count int32) bool {
	for i := range c.attribs {
		a := &c.attribs[i]
		if !a.Enabled {
			continue
		}
		buf, ok := c.buffers[a.Buffer]
		if !ok {
			return false
		}
		need := int64(a.Offset) + int64(a.stride())*(int64(first)+int64(count)-1) + int64(a.Size)*4
		if need > int64(len(buf.data)) {
			return false
		}
	}
	return true
}

func (a *AttribState) stride() int32 {
	if a.Stride != 0 {
		return a.Stride
	}
	return a.Size * 4
}

func boolParam(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
