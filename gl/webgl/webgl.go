//go:build js && wasm

// Package webgl implements gl.Backend over a browser WebGL 1 context.
package webgl

import (
	"errors"
	"syscall/js"

	"github.com/wippyai/wasm-gl/gl"
)

// Context wraps a WebGL rendering context. Objects are exposed to callers
// as small integer names mapped to their JS values.
type Context struct {
	ctx        js.Value
	canvas     js.Value
	uint8Array js.Value
	objects    map[uint32]js.Value
	canvasID   string
	next       uint32
}

var (
	_ gl.Backend = (*Context)(nil)
	_ gl.Surface = (*Context)(nil)
)

// New returns a context that creates a canvas with the given element id
// on Init. An empty id leaves the canvas anonymous.
func New(canvasID string) *Context {
	return &Context{
		canvasID:   canvasID,
		uint8Array: js.Global().Get("Uint8Array"),
		objects:    make(map[uint32]js.Value),
	}
}

// Init creates the canvas, appends it to the document body and obtains
// its webgl context. Repeated calls keep the existing context.
func (c *Context) Init() error {
	if c.ctx.Truthy() {
		return nil
	}
	doc := js.Global().Get("document")
	if !doc.Truthy() {
		return errors.New("webgl: no document")
	}
	canvas := doc.Call("createElement", "canvas")
	if c.canvasID != "" {
		canvas.Set("id", c.canvasID)
	}
	doc.Get("body").Call("appendChild", canvas)
	ctx := canvas.Call("getContext", "webgl")
	if !ctx.Truthy() {
		return errors.New("webgl: context not supported")
	}
	c.canvas = canvas
	c.ctx = ctx
	return nil
}

// Canvas returns the canvas element created by Init.
func (c *Context) Canvas() js.Value {
	return c.canvas
}

func (c *Context) put(v js.Value) uint32 {
	if v.IsNull() || v.IsUndefined() {
		return 0
	}
	c.next++
	c.objects[c.next] = v
	return c.next
}

func (c *Context) get(id uint32) js.Value {
	if v, ok := c.objects[id]; ok {
		return v
	}
	return js.Null()
}

func (c *Context) drop(id uint32) js.Value {
	v := c.get(id)
	delete(c.objects, id)
	return v
}

func (c *Context) bytes(data []byte) js.Value {
	ba := c.uint8Array.New(len(data))
	js.CopyBytesToJS(ba, data)
	return ba
}

func paramVal(v js.Value) int32 {
	switch v.Type() {
	case js.TypeBoolean:
		if v.Bool() {
			return 1
		}
		return 0
	case js.TypeNumber:
		return int32(v.Int())
	default:
		return 0
	}
}

func activeInfo(v js.Value) (gl.ActiveInfo, bool) {
	if v.IsNull() || v.IsUndefined() {
		return gl.ActiveInfo{}, false
	}
	return gl.ActiveInfo{
		Name: v.Get("name").String(),
		Size: int32(v.Get("size").Int()),
		Type: gl.Enum(v.Get("type").Int()),
	}, true
}

func (c *Context) ClearColor(r, g, b, a float32) {
	c.ctx.Call("clearColor", r, g, b, a)
}

func (c *Context) Clear(mask gl.Enum) {
	c.ctx.Call("clear", int(mask))
}

func (c *Context) CreateShader(kind gl.Enum) gl.Shader {
	return gl.Shader(c.put(c.ctx.Call("createShader", int(kind))))
}

func (c *Context) ShaderSource(s gl.Shader, source string) {
	c.ctx.Call("shaderSource", c.get(uint32(s)), source)
}

func (c *Context) CompileShader(s gl.Shader) {
	c.ctx.Call("compileShader", c.get(uint32(s)))
}

func (c *Context) GetShaderParameter(s gl.Shader, pname gl.Enum) int32 {
	return paramVal(c.ctx.Call("getShaderParameter", c.get(uint32(s)), int(pname)))
}

func (c *Context) GetShaderInfoLog(s gl.Shader) string {
	v := c.ctx.Call("getShaderInfoLog", c.get(uint32(s)))
	if v.IsNull() {
		return ""
	}
	return v.String()
}

func (c *Context) DeleteShader(s gl.Shader) {
	c.ctx.Call("deleteShader", c.drop(uint32(s)))
}

func (c *Context) CreateProgram() gl.Program {
	return gl.Program(c.put(c.ctx.Call("createProgram")))
}

func (c *Context) AttachShader(p gl.Program, s gl.Shader) {
	c.ctx.Call("attachShader", c.get(uint32(p)), c.get(uint32(s)))
}

func (c *Context) LinkProgram(p gl.Program) {
	c.ctx.Call("linkProgram", c.get(uint32(p)))
}

func (c *Context) GetProgramParameter(p gl.Program, pname gl.Enum) int32 {
	return paramVal(c.ctx.Call("getProgramParameter", c.get(uint32(p)), int(pname)))
}

func (c *Context) GetProgramInfoLog(p gl.Program) string {
	v := c.ctx.Call("getProgramInfoLog", c.get(uint32(p)))
	if v.IsNull() {
		return ""
	}
	return v.String()
}

func (c *Context) GetActiveAttrib(p gl.Program, index uint32) (gl.ActiveInfo, bool) {
	return activeInfo(c.ctx.Call("getActiveAttrib", c.get(uint32(p)), index))
}

func (c *Context) GetActiveUniform(p gl.Program, index uint32) (gl.ActiveInfo, bool) {
	return activeInfo(c.ctx.Call("getActiveUniform", c.get(uint32(p)), index))
}

func (c *Context) GetAttribLocation(p gl.Program, name string) int32 {
	return int32(c.ctx.Call("getAttribLocation", c.get(uint32(p)), name).Int())
}

func (c *Context) UseProgram(p gl.Program) {
	c.ctx.Call("useProgram", c.get(uint32(p)))
}

func (c *Context) DeleteProgram(p gl.Program) {
	c.ctx.Call("deleteProgram", c.drop(uint32(p)))
}

func (c *Context) CreateBuffer() gl.Buffer {
	return gl.Buffer(c.put(c.ctx.Call("createBuffer")))
}

func (c *Context) BindBuffer(target gl.Enum, b gl.Buffer) {
	c.ctx.Call("bindBuffer", int(target), c.get(uint32(b)))
}

func (c *Context) BufferData(target gl.Enum, data []byte, usage gl.Enum) {
	c.ctx.Call("bufferData", int(target), c.bytes(data), int(usage))
}

func (c *Context) DeleteBuffer(b gl.Buffer) {
	c.ctx.Call("deleteBuffer", c.drop(uint32(b)))
}

func (c *Context) EnableVertexAttribArray(index uint32) {
	c.ctx.Call("enableVertexAttribArray", index)
}

func (c *Context) VertexAttribPointer(index uint32, size int32, typ gl.Enum, normalized bool, stride, offset int32) {
	c.ctx.Call("vertexAttribPointer", index, size, int(typ), normalized, stride, offset)
}

func (c *Context) DrawArrays(mode gl.Enum, first, count int32) {
	c.ctx.Call("drawArrays", int(mode), first, count)
}

func (c *Context) GetError() gl.Enum {
	return gl.Enum(c.ctx.Call("getError").Int())
}
