package runtime

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-gl/bridge"
	"github.com/wippyai/wasm-gl/engine"
	"github.com/wippyai/wasm-gl/errors"
	"github.com/wippyai/wasm-gl/memory"
	"github.com/wippyai/wasm-gl/resource"
)

// frameLoop is raised by run to unwind the guest's start call.
type frameLoop struct{}

func (frameLoop) Error() string { return "guest entered its frame loop" }

var errFrameLoop error = frameLoop{}

// glHost is the GL import module. Each exported method is one import,
// named in kebab-case: CompileShader is imported as compile-shader.
//
// Errors abort the calling guest by panicking; wazero turns the panic into
// the error returned from the guest call.
type glHost struct {
	rt *Runtime
}

func (h *glHost) Namespace() string { return h.rt.opts.Namespace }

// guest resolves the instance that issued a call.
func (h *glHost) guest(m api.Module) *Instance {
	inst, ok := h.rt.instance(m.Name())
	if !ok {
		panic(errors.NotInitialized(errors.PhaseHost, "instance "+m.Name()))
	}
	return inst
}

// view reads from the calling module's memory.
func (h *glHost) view(m api.Module) memory.View {
	mem := m.ExportedMemory(h.rt.engine.Config().MemoryExport)
	if mem == nil {
		mem = m.Memory()
	}
	return memory.New(engine.NewWazeroMemory(mem))
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func (h *glHost) Clear(_ context.Context, m api.Module, r, g, b, a float32) {
	h.guest(m).gl.Clear(r, g, b, a)
}

func (h *glHost) InitContext(_ context.Context, m api.Module) {
	check(h.guest(m).gl.InitContext())
}

// Run registers the frame entry and never returns to the guest.
func (h *glHost) Run(_ context.Context, m api.Module, value, entry uint32) {
	h.guest(m).register(Entry{Context: value, Slot: entry})
	panic(errFrameLoop)
}

func (h *glHost) CurrentTime(_ context.Context, m api.Module) float64 {
	return h.guest(m).clock()
}

func (h *glHost) Log(_ context.Context, m api.Module, ptr, length uint32) {
	inst := h.guest(m)
	text, err := h.view(m).Text(ptr, length)
	check(err)
	inst.log.Info("module log", zap.String("source", "module"), zap.String("text", text))
	if sink := h.rt.opts.LogSink; sink != nil {
		sink(text)
	}
}

func (h *glHost) CompileShader(_ context.Context, m api.Module, stage, ptr, length uint32) uint32 {
	inst := h.guest(m)
	src, err := h.view(m).String(ptr, length)
	check(err)
	hd, err := inst.gl.CompileShader(bridge.Stage(stage), src)
	check(err)
	return uint32(hd)
}

func (h *glHost) DeinitShader(_ context.Context, m api.Module, handle uint32) {
	h.guest(m).gl.DeinitShader(resource.Handle(handle))
}

func (h *glHost) LinkProgram(_ context.Context, m api.Module, first, second uint32) uint32 {
	hd, err := h.guest(m).gl.LinkProgram(resource.Handle(first), resource.Handle(second))
	check(err)
	return uint32(hd)
}

func (h *glHost) UseProgram(_ context.Context, m api.Module, handle uint32) {
	h.guest(m).gl.UseProgram(resource.Handle(handle))
}

func (h *glHost) DeinitProgram(_ context.Context, m api.Module, handle uint32) {
	h.guest(m).gl.DeinitProgram(resource.Handle(handle))
}

func (h *glHost) CreateBuffer(_ context.Context, m api.Module, ptr, length uint32) uint32 {
	inst := h.guest(m)
	data, err := h.view(m).Bytes(ptr, length)
	check(err)
	hd, err := inst.gl.CreateVertexBuffer(data)
	check(err)
	return uint32(hd)
}

func (h *glHost) BindBuffer(_ context.Context, m api.Module, handle uint32) {
	h.guest(m).gl.BindVertexBuffer(resource.Handle(handle))
}

func (h *glHost) DeinitBuffer(_ context.Context, m api.Module, handle uint32) {
	h.guest(m).gl.DeinitVertexBuffer(resource.Handle(handle))
}

func (h *glHost) SetAttribute(_ context.Context, m api.Module, program, namePtr, nameLen uint32, size int32, typ, normalized uint32, stride, offset int32) {
	inst := h.guest(m)
	name, err := h.view(m).String(namePtr, nameLen)
	check(err)
	check(inst.gl.SetVertexAttribute(resource.Handle(program), name, bridge.VertexLayout{
		Size:       size,
		Type:       bridge.ElementType(typ),
		Normalized: normalized != 0,
		Stride:     stride,
		Offset:     offset,
	}))
}

func (h *glHost) Draw(_ context.Context, m api.Module, mode uint32, first, count int32) {
	check(h.guest(m).gl.DrawArrays(bridge.DrawMode(mode), first, count))
}
