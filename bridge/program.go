package bridge

import (
	"github.com/wippyai/wasm-gl/errors"
	"github.com/wippyai/wasm-gl/gl"
	"github.com/wippyai/wasm-gl/resource"
)

// LinkProgram links two shaders into a program and reflects its active
// attributes and uniforms.
func (c *Context) LinkProgram(first, second resource.Handle) (resource.Handle, error) {
	a, ok := c.shaders.Get(first)
	if !ok {
		return 0, errors.MissingResource(errors.PhaseLink, "first shader", uint32(first))
	}
	b, ok := c.shaders.Get(second)
	if !ok {
		return 0, errors.MissingResource(errors.PhaseLink, "second shader", uint32(second))
	}

	obj := c.backend.CreateProgram()
	if obj == 0 {
		return 0, errors.AllocationFailed(errors.PhaseLink, "program")
	}
	c.backend.AttachShader(obj, a.object)
	c.backend.AttachShader(obj, b.object)
	c.backend.LinkProgram(obj)
	if c.backend.GetProgramParameter(obj, gl.LinkStatus) == 0 {
		log := c.backend.GetProgramInfoLog(obj)
		c.backend.DeleteProgram(obj)
		return 0, errors.LinkFailed(log)
	}

	p := &Program{backend: c.backend, object: obj}
	c.reflect(p)
	h, err := c.programs.Insert(p)
	if err != nil {
		p.Drop()
		return 0, closedError(errors.PhaseLink, err)
	}
	return h, nil
}

// reflect snapshots the active attribute and uniform sets. Indices the
// backend reports as unavailable are skipped.
func (c *Context) reflect(p *Program) {
	nattr := c.backend.GetProgramParameter(p.object, gl.ActiveAttributes)
	p.attributes = make(map[string]Attribute, max(nattr, 0))
	for i := uint32(0); int64(i) < int64(nattr); i++ {
		info, ok := c.backend.GetActiveAttrib(p.object, i)
		if !ok {
			continue
		}
		loc := c.backend.GetAttribLocation(p.object, info.Name)
		if loc < 0 {
			loc = int32(i)
		}
		p.attributes[info.Name] = Attribute{
			Name:     info.Name,
			Index:    i,
			Location: uint32(loc),
			Size:     info.Size,
			Type:     info.Type,
		}
	}

	nuni := c.backend.GetProgramParameter(p.object, gl.ActiveUniforms)
	p.uniforms = make(map[string]Uniform, max(nuni, 0))
	for i := uint32(0); int64(i) < int64(nuni); i++ {
		info, ok := c.backend.GetActiveUniform(p.object, i)
		if !ok {
			continue
		}
		p.uniforms[info.Name] = Uniform{Name: info.Name, Index: i, Size: info.Size, Type: info.Type}
	}
}

// UseProgram makes a program current. An absent handle leaves the
// current program in place.
func (c *Context) UseProgram(h resource.Handle) {
	p, ok := c.programs.Get(h)
	if !ok {
		return
	}
	c.backend.UseProgram(p.object)
	c.bound.Program = h
	c.bound.HasProgram = true
}

// DeinitProgram releases a program. An absent handle is ignored.
func (c *Context) DeinitProgram(h resource.Handle) {
	p, ok := c.programs.Remove(h)
	if !ok {
		return
	}
	if c.bound.HasProgram && c.bound.Program == h {
		c.bound.Program = 0
		c.bound.HasProgram = false
	}
	p.Drop()
}
