package engine

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	wasmgl "github.com/wippyai/wasm-gl"
	"github.com/wippyai/wasm-gl/errors"
)

// Defaults for Config fields left empty.
const (
	DefaultTableExport  = "__indirect_function_table"
	DefaultMemoryExport = "memory"
)

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// TableExport is the guest export holding its function table.
	// Empty selects DefaultTableExport.
	TableExport string

	// MemoryExport is the guest export holding its linear memory.
	// Empty selects DefaultMemoryExport.
	MemoryExport string

	// WASI binds wasi_snapshot_preview1 next to the registered hosts, for
	// guests built by toolchains that import it.
	WASI bool
}

func (c Config) withDefaults() Config {
	if c.TableExport == "" {
		c.TableExport = DefaultTableExport
	}
	if c.MemoryExport == "" {
		c.MemoryExport = DefaultMemoryExport
	}
	return c
}

// WazeroEngine owns a wazero runtime and the host modules bound into it.
type WazeroEngine struct {
	runtime wazero.Runtime
	hosts   *HostRegistry
	cfg     Config
	bindMu  sync.Mutex
	bound   bool
	seq     atomic.Uint64
}

// NewWazeroEngine creates a new wazero-based engine
func NewWazeroEngine(ctx context.Context) (*WazeroEngine, error) {
	return NewWazeroEngineWithConfig(ctx, nil)
}

// NewWazeroEngineWithConfig creates a new engine with custom configuration
func NewWazeroEngineWithConfig(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()

	var c Config
	if cfg != nil {
		c = *cfg
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
	}

	return &WazeroEngine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		hosts:   NewHostRegistry(),
		cfg:     c.withDefaults(),
	}, nil
}

// Runtime returns the underlying wazero runtime.
func (e *WazeroEngine) Runtime() wazero.Runtime {
	return e.runtime
}

// Config returns the effective configuration.
func (e *WazeroEngine) Config() Config {
	return e.cfg
}

// Hosts returns the host registry. Registrations must happen before the
// first instantiation.
func (e *WazeroEngine) Hosts() *HostRegistry {
	return e.hosts
}

// bindHosts instantiates the registered host modules once.
func (e *WazeroEngine) bindHosts(ctx context.Context) error {
	e.bindMu.Lock()
	defer e.bindMu.Unlock()
	if e.bound {
		return nil
	}
	if err := e.hosts.Bind(ctx, e.runtime); err != nil {
		return err
	}
	if e.cfg.WASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, e.runtime); err != nil {
			return errors.Registration(errors.PhaseHost, wasi_snapshot_preview1.ModuleName, "*", err)
		}
	}
	e.bound = true
	return nil
}

// LoadModule compiles a core wasm binary.
func (e *WazeroEngine) LoadModule(ctx context.Context, wasmBytes []byte) (*WazeroModule, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("compile failed: %w", err)
	}
	return &WazeroModule{engine: e, compiled: compiled}, nil
}

func (e *WazeroEngine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// WazeroModule is a compiled guest module.
type WazeroModule struct {
	engine   *WazeroEngine
	compiled wazero.CompiledModule
}

// InstanceConfig holds configuration for module instantiation
type InstanceConfig struct {
	// Name is the instance name. Empty generates a unique one.
	Name string
	// StartFunctions are exported functions called at instantiation.
	// None are called by default.
	StartFunctions []string
	// Stdout and Stderr receive WASI output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// Imports lists the module's function imports as "module.name".
func (m *WazeroModule) Imports() []string {
	defs := m.compiled.ImportedFunctions()
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		mod, name, _ := d.Import()
		out = append(out, mod+"."+name)
	}
	return out
}

// ExportNames returns the names of all exported functions.
func (m *WazeroModule) ExportNames() []string {
	defs := m.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	return names
}

func (m *WazeroModule) Instantiate(ctx context.Context) (*WazeroInstance, error) {
	return m.InstantiateWithConfig(ctx, nil)
}

// InstantiateWithConfig binds host modules if needed and instantiates the
// guest. ctx is passed to start functions.
func (m *WazeroModule) InstantiateWithConfig(ctx context.Context, cfg *InstanceConfig) (*WazeroInstance, error) {
	if err := m.engine.bindHosts(ctx); err != nil {
		return nil, err
	}

	var c InstanceConfig
	if cfg != nil {
		c = *cfg
	}
	name := c.Name
	if name == "" {
		name = "guest-" + strconv.FormatUint(m.engine.seq.Add(1), 10)
	}

	modCfg := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions(c.StartFunctions...)
	if c.Stdout != nil {
		modCfg = modCfg.WithStdout(c.Stdout)
	}
	if c.Stderr != nil {
		modCfg = modCfg.WithStderr(c.Stderr)
	}

	mod, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, modCfg)
	if err != nil {
		return nil, errors.Instantiation(err)
	}
	Logger().Debug("instantiated guest", zap.String("name", name))

	inst := &WazeroInstance{engine: m.engine, instance: mod, name: name}
	if mem := mod.ExportedMemory(m.engine.cfg.MemoryExport); mem != nil {
		inst.memory = &WazeroMemory{mem: mem}
	} else if mem := mod.Memory(); mem != nil {
		inst.memory = &WazeroMemory{mem: mem}
	}
	return inst, nil
}

// Close releases the compiled module.
func (m *WazeroModule) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// WazeroInstance is an instantiated guest.
type WazeroInstance struct {
	engine     *WazeroEngine
	instance   api.Module
	memory     *WazeroMemory
	dispatcher *Dispatcher
	name       string
}

// Name returns the instance name other modules import it by.
func (i *WazeroInstance) Name() string {
	return i.name
}

// Module returns the wazero module.
func (i *WazeroInstance) Module() api.Module {
	return i.instance
}

// Memory returns the guest memory, or nil if it has none.
func (i *WazeroInstance) Memory() *WazeroMemory {
	return i.memory
}

// GetExportedFunction returns an export or nil.
func (i *WazeroInstance) GetExportedFunction(name string) api.Function {
	if i.instance == nil {
		return nil
	}
	return i.instance.ExportedFunction(name)
}

// Call invokes an exported function with raw parameters.
func (i *WazeroInstance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn := i.GetExportedFunction(name)
	if fn == nil {
		return nil, errors.New(errors.PhaseRuntime, errors.KindNotFound).
			Detail("export %q not found", name).
			Build()
	}
	return fn.Call(ctx, params...)
}

// Dispatcher returns the indirect-call dispatcher for this instance,
// synthesizing it on first use.
func (i *WazeroInstance) Dispatcher(ctx context.Context) (*Dispatcher, error) {
	if i.dispatcher != nil {
		return i.dispatcher, nil
	}
	if i.instance == nil {
		return nil, errors.NotInitialized(errors.PhaseFrame, "instance")
	}
	d, err := newDispatcher(ctx, i.engine, i.name)
	if err != nil {
		return nil, err
	}
	i.dispatcher = d
	return d, nil
}

func (i *WazeroInstance) Close(ctx context.Context) error {
	var firstErr error
	if i.dispatcher != nil {
		if err := i.dispatcher.Close(ctx); err != nil {
			firstErr = err
		}
		i.dispatcher = nil
	}
	if i.instance != nil {
		if err := i.instance.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		i.instance = nil
	}
	i.memory = nil
	return firstErr
}

// WazeroMemory wraps wazero memory to implement wasmgl.Memory
type WazeroMemory struct {
	mem api.Memory
}

// NewWazeroMemory wraps a wazero memory.
func NewWazeroMemory(mem api.Memory) *WazeroMemory {
	return &WazeroMemory{mem: mem}
}

func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	if m == nil || m.mem == nil {
		return nil, errors.NotInitialized(errors.PhaseMemory, "guest memory")
	}
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(offset, length, m.mem.Size())
	}
	return data, nil
}

func (m *WazeroMemory) Size() uint32 {
	if m == nil || m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

var (
	_ wasmgl.Memory      = (*WazeroMemory)(nil)
	_ wasmgl.MemorySizer = (*WazeroMemory)(nil)
)
