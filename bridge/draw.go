package bridge

import (
	"github.com/wippyai/wasm-gl/errors"
	"github.com/wippyai/wasm-gl/resource"
)

// VertexLayout describes how an attribute reads the bound array buffer.
type VertexLayout struct {
	Size       int32
	Type       ElementType
	Normalized bool
	Stride     int32
	Offset     int32
}

// SetVertexAttribute enables a program attribute by name and points it
// at the bound array buffer. The layout overrides the reflected size and
// type. A missing program or attribute name is ignored; an unknown
// element type is an error.
func (c *Context) SetVertexAttribute(program resource.Handle, name string, layout VertexLayout) error {
	typ, ok := layout.Type.glType()
	if !ok {
		return errors.InvalidEnum(errors.PhaseAttribute, uint32(layout.Type), "element type")
	}
	p, ok := c.programs.Get(program)
	if !ok {
		return nil
	}
	attr, ok := p.attributes[name]
	if !ok {
		return nil
	}
	c.backend.EnableVertexAttribArray(attr.Location)
	c.backend.VertexAttribPointer(attr.Location, layout.Size, typ, layout.Normalized, layout.Stride, layout.Offset)
	c.enabled[attr.Location] = true
	return nil
}

// DrawArrays draws count vertices starting at first using whatever
// program, buffer and attributes are bound. Bound state is not checked.
func (c *Context) DrawArrays(mode DrawMode, first, count int32) error {
	glMode, ok := mode.glMode()
	if !ok {
		return errors.InvalidEnum(errors.PhaseDraw, uint32(mode), "draw mode")
	}
	c.backend.DrawArrays(glMode, first, count)
	c.draws++
	return nil
}
