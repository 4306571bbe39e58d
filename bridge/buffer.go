package bridge

import (
	"github.com/wippyai/wasm-gl/errors"
	"github.com/wippyai/wasm-gl/gl"
	"github.com/wippyai/wasm-gl/resource"
)

// CreateVertexBuffer uploads data as a static array buffer and leaves it
// bound. The caller's slice is not retained.
func (c *Context) CreateVertexBuffer(data []byte) (resource.Handle, error) {
	obj := c.backend.CreateBuffer()
	if obj == 0 {
		return 0, errors.AllocationFailed(errors.PhaseBuffer, "buffer")
	}
	c.backend.BindBuffer(gl.ArrayBuffer, obj)
	c.backend.BufferData(gl.ArrayBuffer, data, gl.StaticDraw)

	b := &Buffer{backend: c.backend, object: obj, size: len(data)}
	h, err := c.buffers.Insert(b)
	if err != nil {
		c.backend.BindBuffer(gl.ArrayBuffer, 0)
		b.Drop()
		return 0, closedError(errors.PhaseBuffer, err)
	}
	c.bound.Buffer = h
	c.bound.HasBuffer = true
	return h, nil
}

// BindVertexBuffer binds a buffer as the array buffer. An absent handle
// binds none.
func (c *Context) BindVertexBuffer(h resource.Handle) {
	b, ok := c.buffers.Get(h)
	if !ok {
		c.backend.BindBuffer(gl.ArrayBuffer, 0)
		c.bound.Buffer = 0
		c.bound.HasBuffer = false
		return
	}
	c.backend.BindBuffer(gl.ArrayBuffer, b.object)
	c.bound.Buffer = h
	c.bound.HasBuffer = true
}

// DeinitVertexBuffer releases a buffer. An absent handle is ignored.
func (c *Context) DeinitVertexBuffer(h resource.Handle) {
	b, ok := c.buffers.Remove(h)
	if !ok {
		return
	}
	if c.bound.HasBuffer && c.bound.Buffer == h {
		c.bound.Buffer = 0
		c.bound.HasBuffer = false
	}
	b.Drop()
}

// ReadBuffer reads a buffer's contents back when the backend supports it.
func (c *Context) ReadBuffer(h resource.Handle) ([]byte, bool) {
	b, ok := c.buffers.Get(h)
	if !ok {
		return nil, false
	}
	r, ok := c.backend.(gl.BufferReader)
	if !ok {
		return nil, false
	}
	c.backend.BindBuffer(gl.ArrayBuffer, b.object)
	out := make([]byte, b.size)
	ok = r.GetBufferSubData(gl.ArrayBuffer, 0, out)
	c.restoreArrayBuffer()
	if !ok {
		return nil, false
	}
	return out, true
}

func (c *Context) restoreArrayBuffer() {
	var obj gl.Buffer
	if b, ok := c.buffers.Get(c.bound.Buffer); ok && c.bound.HasBuffer {
		obj = b.object
	}
	c.backend.BindBuffer(gl.ArrayBuffer, obj)
}
