package bridge

import (
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-gl/errors"
	"github.com/wippyai/wasm-gl/gl"
	"github.com/wippyai/wasm-gl/resource"
)

// Options configures a Context.
type Options struct {
	// Logger receives compile traces and resource lifecycle events.
	// Nil selects the package logger.
	Logger *zap.Logger
}

// Context owns the three handle tables and the bound pipeline state for
// one guest. It is driven from a single goroutine and is not safe for
// concurrent use.
type Context struct {
	backend  gl.Backend
	log      *zap.Logger
	shaders  *resource.Table[*Shader]
	programs *resource.Table[*Program]
	buffers  *resource.Table[*Buffer]
	enabled  map[uint32]bool
	bound    Bound
	draws    uint64
	closed   bool
}

// Bound is the currently selected program and array buffer plus the
// enabled vertex attribute slots.
type Bound struct {
	Enabled    []uint32
	Program    resource.Handle
	Buffer     resource.Handle
	HasProgram bool
	HasBuffer  bool
}

// Stats summarizes registry occupancy.
type Stats struct {
	Shaders  TableStats
	Programs TableStats
	Buffers  TableStats
	Draws    uint64
}

// TableStats reports one table's live count and next handle.
type TableStats struct {
	Live int
	Next resource.Handle
}

// New creates a context over backend.
func New(backend gl.Backend, opts Options) *Context {
	log := opts.Logger
	if log == nil {
		log = Logger()
	}
	c := &Context{
		backend:  backend,
		log:      log,
		shaders:  resource.NewTable[*Shader](resource.KindShader),
		programs: resource.NewTable[*Program](resource.KindProgram),
		buffers:  resource.NewTable[*Buffer](resource.KindBuffer),
		enabled:  make(map[uint32]bool),
	}
	obs := resource.ObserverFunc(c.onResourceEvent)
	c.shaders.Subscribe(obs)
	c.programs.Subscribe(obs)
	c.buffers.Subscribe(obs)
	return c
}

func (c *Context) onResourceEvent(e resource.Event) {
	c.log.Debug("resource "+e.Type.String(),
		zap.Stringer("kind", e.Kind),
		zap.Uint32("handle", uint32(e.Handle)))
}

// Backend returns the graphics backend.
func (c *Context) Backend() gl.Backend {
	return c.backend
}

// InitContext prepares the drawing surface for backends that need one.
func (c *Context) InitContext() error {
	if s, ok := c.backend.(gl.Surface); ok {
		if err := s.Init(); err != nil {
			return errors.New(errors.PhaseRuntime, errors.KindAllocation).
				Detail("create drawing surface").
				Cause(err).
				Build()
		}
	}
	return nil
}

// Clear fills the color buffer.
func (c *Context) Clear(r, g, b, a float32) {
	c.backend.ClearColor(r, g, b, a)
	c.backend.Clear(gl.ColorBufferBit)
}

// Shader looks up a shader handle.
func (c *Context) Shader(h resource.Handle) (*Shader, bool) {
	return c.shaders.Get(h)
}

// Program looks up a program handle.
func (c *Context) Program(h resource.Handle) (*Program, bool) {
	return c.programs.Get(h)
}

// Buffer looks up a buffer handle.
func (c *Context) Buffer(h resource.Handle) (*Buffer, bool) {
	return c.buffers.Get(h)
}

// Bound returns a snapshot of the bound state.
func (c *Context) Bound() Bound {
	b := c.bound
	b.Enabled = slices.Sorted(maps.Keys(c.enabled))
	return b
}

// Stats reports table occupancy and the number of dispatched draws.
func (c *Context) Stats() Stats {
	return Stats{
		Shaders:  TableStats{Live: c.shaders.Len(), Next: c.shaders.Next()},
		Programs: TableStats{Live: c.programs.Len(), Next: c.programs.Next()},
		Buffers:  TableStats{Live: c.buffers.Len(), Next: c.buffers.Next()},
		Draws:    c.draws,
	}
}

// Close releases every live resource through the backend. Further
// creation calls fail.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.bound.HasProgram {
		c.backend.UseProgram(0)
	}
	if c.bound.HasBuffer {
		c.backend.BindBuffer(gl.ArrayBuffer, 0)
	}
	c.bound = Bound{}
	clear(c.enabled)
	// Programs go first: they may still reference attached shaders.
	c.programs.Close()
	c.shaders.Close()
	c.buffers.Close()
	return nil
}
