package runtime

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-gl/demo"
	"github.com/wippyai/wasm-gl/engine"
	wglerrors "github.com/wippyai/wasm-gl/errors"
	"github.com/wippyai/wasm-gl/gl"
	"github.com/wippyai/wasm-gl/gl/soft"
	"github.com/wippyai/wasm-gl/wasmgen"
)

var i32 = api.ValueTypeI32

type harness struct {
	rt       *Runtime
	backends []*soft.Context
	logs     []string
}

func newHarness(t *testing.T, opts Options) (*harness, context.Context) {
	t.Helper()
	ctx := context.Background()
	h := &harness{}
	opts.Backend = func() gl.Backend {
		b := soft.New(soft.Config{Width: 32, Height: 32})
		h.backends = append(h.backends, b)
		return b
	}
	if opts.LogSink == nil {
		opts.LogSink = func(s string) { h.logs = append(h.logs, s) }
	}
	rt, err := New(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { rt.Close(ctx) })
	h.rt = rt
	return h, ctx
}

func (h *harness) load(t *testing.T, ctx context.Context, wasm []byte) *Instance {
	t.Helper()
	inst, err := h.rt.Load(ctx, wasm)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { inst.Close(ctx) })
	return inst
}

func global(t *testing.T, inst *Instance, name string) uint32 {
	t.Helper()
	g := inst.Wasm().Module().ExportedGlobal(name)
	if g == nil {
		t.Fatalf("global %q not exported", name)
	}
	return api.DecodeU32(g.Get())
}

func TestRuntime_Imports(t *testing.T) {
	h, _ := newHarness(t, Options{})
	want := []string{
		"bind-buffer", "clear", "compile-shader", "create-buffer", "current-time",
		"deinit-buffer", "deinit-program", "deinit-shader", "draw", "init-context",
		"link-program", "log", "run", "set-attribute", "use-program",
	}
	got := h.rt.Imports()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Imports = %v", got)
	}
}

func TestTriangle_StartAndTick(t *testing.T) {
	h, ctx := newHarness(t, Options{})
	inst := h.load(t, ctx, demo.DefaultTriangle().Build())

	if err := inst.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	entry, ok := inst.Entry()
	if !ok || entry != (Entry{Context: 42, Slot: demo.FrameSlot}) {
		t.Fatalf("Entry = %+v, %v", entry, ok)
	}
	if len(h.logs) != 1 || h.logs[0] != "triangle ready" {
		t.Errorf("logs = %q", h.logs)
	}

	stats := inst.GL().Stats()
	if stats.Shaders.Live != 0 || stats.Shaders.Next != 2 {
		t.Errorf("shader stats = %+v", stats.Shaders)
	}
	if stats.Programs.Live != 1 || stats.Buffers.Live != 1 {
		t.Errorf("stats = %+v", stats)
	}

	for range 3 {
		if err := inst.Tick(ctx); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	if inst.Frames() != 3 {
		t.Errorf("Frames = %d", inst.Frames())
	}
	if got := global(t, inst, "frames"); got != 3 {
		t.Errorf("guest frames = %d", got)
	}
	if got := global(t, inst, "context"); got != 42 {
		t.Errorf("guest context = %d, want 42", got)
	}

	b := h.backends[0]
	if len(b.Draws()) != 3 || inst.GL().Stats().Draws != 3 {
		t.Errorf("draws = %d backend, %d bridge", len(b.Draws()), inst.GL().Stats().Draws)
	}
	if b.Clears() != 3 {
		t.Errorf("clears = %d", b.Clears())
	}
	if px := b.Image().RGBAAt(4, 28); px.R != 255 || px.B != 0 {
		t.Errorf("triangle pixel = %v", px)
	}
	if bg := b.Image().RGBAAt(28, 4); bg.R > 64 || bg.A != 255 {
		t.Errorf("background pixel = %v", bg)
	}
}

func TestTriangle_CompileErrorAbortsStart(t *testing.T) {
	h, ctx := newHarness(t, Options{})
	tri := demo.DefaultTriangle()
	tri.Fragment = "attribute vec2 a; void main(){}"
	inst := h.load(t, ctx, tri.Build())

	err := inst.Start(ctx)
	if !errors.Is(err, wglerrors.ErrCompile) {
		t.Fatalf("Start = %v, want compile error", err)
	}
	var we *wglerrors.Error
	if !errors.As(err, &we) || !strings.Contains(we.Log, "supported in vertex shaders only") {
		t.Errorf("compile log not surfaced: %+v", we)
	}
	if _, ok := inst.Entry(); ok {
		t.Error("entry registered after failed start")
	}
	if s := inst.GL().Stats().Shaders; s.Live != 1 || s.Next != 1 {
		t.Errorf("shader stats = %+v, want the vertex shader only", s)
	}

	if err := inst.Tick(ctx); !errors.Is(err, &wglerrors.Error{Kind: wglerrors.KindNotInitialized}) {
		t.Errorf("Tick before run = %v", err)
	}
}

// probeGuest enters its frame loop from main. Each frame logs "tick" and
// issues an empty draw with mode.
func probeGuest(mode int32) []byte {
	m := wasmgen.New()
	run := m.ImportFunc("env", "run", []api.ValueType{i32, i32}, nil)
	logFn := m.ImportFunc("env", "log", []api.ValueType{i32, i32}, nil)
	draw := m.ImportFunc("env", "draw", []api.ValueType{i32, i32, i32}, nil)
	m.Memory(1)
	m.ExportMemory("memory")
	data := demo.NewData(m, 16)
	tick := data.String("tick")

	start := m.Func(nil, nil, nil, wasmgen.NewCode().I32Const(7).I32Const(1).Call(run))
	frame := tick.Push(wasmgen.NewCode()).Call(logFn).
		I32Const(mode).I32Const(0).I32Const(0).Call(draw)
	frameFn := m.Func([]api.ValueType{i32}, nil, nil, frame)
	m.ExportFunc("main", start)
	m.Table(2)
	m.Elem(1, frameFn)
	m.ExportTable(engine.DefaultTableExport)
	return m.Bytes()
}

func TestTick_Reentrant(t *testing.T) {
	var inst *Instance
	var inner error
	h, ctx := newHarness(t, Options{
		LogSink: func(string) {
			if inner == nil {
				inner = inst.Tick(context.Background())
			}
		},
	})
	inst = h.load(t, ctx, probeGuest(0))
	if err := inst.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := inst.Tick(ctx); err != nil {
		t.Fatalf("outer Tick: %v", err)
	}
	if !errors.Is(inner, wglerrors.ErrReentrant) {
		t.Errorf("nested Tick = %v, want reentrant error", inner)
	}
	if inst.Frames() != 1 {
		t.Errorf("Frames = %d, want 1", inst.Frames())
	}
}

func TestTick_FailureKeepsEntry(t *testing.T) {
	h, ctx := newHarness(t, Options{})
	inst := h.load(t, ctx, probeGuest(2))
	if err := inst.Start(ctx); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := inst.Tick(ctx); !errors.Is(err, wglerrors.ErrInvalidEnum) {
			t.Fatalf("Tick = %v, want invalid enum", err)
		}
	}
	if entry, ok := inst.Entry(); !ok || entry.Context != 7 {
		t.Errorf("entry lost: %+v, %v", entry, ok)
	}
	if len(h.logs) != 2 {
		t.Errorf("logs = %q, want one per tick", h.logs)
	}
	if inst.Frames() != 0 {
		t.Errorf("failed ticks counted: %d", inst.Frames())
	}
}

func TestHost_CurrentTimeAndBadMemory(t *testing.T) {
	h, ctx := newHarness(t, Options{Clock: func() float64 { return 1.5 }})

	m := wasmgen.New()
	now := m.ImportFunc("env", "current-time", nil, []api.ValueType{api.ValueTypeF64})
	logFn := m.ImportFunc("env", "log", []api.ValueType{i32, i32}, nil)
	m.Memory(1)
	m.ExportMemory("memory")
	m.ExportFunc("now", m.Func(nil, []api.ValueType{api.ValueTypeF64}, nil, wasmgen.NewCode().Call(now)))
	m.ExportFunc("bad-log", m.Func(nil, nil, nil, wasmgen.NewCode().
		I32Const(65530).I32Const(64).Call(logFn)))

	inst := h.load(t, ctx, m.Bytes())
	res, err := inst.Wasm().Call(ctx, "now")
	if err != nil {
		t.Fatal(err)
	}
	if got := api.DecodeF64(res[0]); got != 1.5 {
		t.Errorf("current-time = %v, want 1.5", got)
	}

	_, err = inst.Wasm().Call(ctx, "bad-log")
	if !errors.Is(err, wglerrors.ErrOutOfBounds) {
		t.Errorf("log out of bounds = %v", err)
	}

	if err := inst.Start(ctx); !errors.Is(err, wglerrors.ErrNotFound) {
		t.Errorf("Start without start export = %v", err)
	}
}

func TestInstances_AreIndependent(t *testing.T) {
	h, ctx := newHarness(t, Options{})
	a := h.load(t, ctx, demo.DefaultTriangle().Build())
	b := h.load(t, ctx, demo.DefaultTriangle().Build())
	if a.Name() == b.Name() {
		t.Fatalf("shared name %q", a.Name())
	}
	for _, inst := range []*Instance{a, b} {
		if err := inst.Start(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.Tick(ctx); err != nil {
		t.Fatal(err)
	}
	if len(h.backends) != 2 {
		t.Fatalf("backends = %d", len(h.backends))
	}
	if len(h.backends[0].Draws()) != 1 || len(h.backends[1].Draws()) != 0 {
		t.Errorf("draws leaked across instances: %d, %d",
			len(h.backends[0].Draws()), len(h.backends[1].Draws()))
	}
	if a.GL().Stats().Programs.Next != b.GL().Stats().Programs.Next {
		t.Error("program handles are not per instance")
	}
}

func TestInstance_CloseReleasesResources(t *testing.T) {
	h, ctx := newHarness(t, Options{})
	inst, err := h.rt.Load(ctx, demo.DefaultTriangle().Build())
	if err != nil {
		t.Fatal(err)
	}
	if err := inst.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if h.backends[0].Live() == 0 {
		t.Fatal("no live backend objects after start")
	}
	if err := inst.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if n := h.backends[0].Live(); n != 0 {
		t.Errorf("live backend objects after Close = %d", n)
	}
	if err := inst.Close(ctx); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := inst.Tick(ctx); err == nil {
		t.Error("Tick after Close should fail")
	}
}

func TestLoad_Rejects(t *testing.T) {
	h, ctx := newHarness(t, Options{})
	if _, err := h.rt.Load(ctx, []byte("not wasm")); err == nil {
		t.Error("invalid binary accepted")
	}
	component := []byte{0x00, 'a', 's', 'm', 0x0d, 0x00, 0x01, 0x00}
	if _, err := h.rt.Load(ctx, component); !errors.Is(err, &wglerrors.Error{Kind: wglerrors.KindInvalidInput}) {
		t.Errorf("component = %v", err)
	}
}

func TestLoad_CustomNamespace(t *testing.T) {
	h, ctx := newHarness(t, Options{Namespace: "gl"})
	tri := demo.DefaultTriangle()
	tri.Namespace = "gl"
	inst := h.load(t, ctx, tri.Build())
	if err := inst.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := h.rt.Load(ctx, demo.DefaultTriangle().Build()); err == nil {
		t.Error("guest importing env should not link against gl")
	}
}

func TestLoad_WASI(t *testing.T) {
	h, ctx := newHarness(t, Options{Engine: engine.Config{WASI: true}})
	m := wasmgen.New()
	sizes := m.ImportFunc("wasi_snapshot_preview1", "args_sizes_get", []api.ValueType{i32, i32}, []api.ValueType{i32})
	m.Memory(1)
	m.ExportMemory("memory")
	m.ExportFunc("probe", m.Func(nil, []api.ValueType{i32}, nil, wasmgen.NewCode().
		I32Const(0).I32Const(4).Call(sizes)))

	inst := h.load(t, ctx, m.Bytes())
	res, err := inst.Wasm().Call(ctx, "probe")
	if err != nil {
		t.Fatal(err)
	}
	if errno := api.DecodeU32(res[0]); errno != 0 {
		t.Errorf("args_sizes_get errno = %d", errno)
	}
}
