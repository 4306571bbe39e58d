package runtime

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-gl/engine"
	"github.com/wippyai/wasm-gl/errors"
	"github.com/wippyai/wasm-gl/gl"
	"github.com/wippyai/wasm-gl/gl/soft"
)

// DefaultNamespace is the import module the GL host functions are bound under.
const DefaultNamespace = "env"

// DefaultStartFunctions are the exports Start looks for, in order.
var DefaultStartFunctions = []string{"_start", "main"}

// Options configures a Runtime.
type Options struct {
	// Backend creates the graphics backend for each loaded guest.
	// Nil selects a 300x150 software backend.
	Backend func() gl.Backend

	// Logger receives runtime, bridge and module log records.
	// Nil selects the package logger.
	Logger *zap.Logger

	// Clock answers current-time in seconds. Nil selects the time elapsed
	// since the guest was loaded.
	Clock func() float64

	// LogSink additionally receives every line the guest passes to log.
	LogSink func(string)

	// StartFunctions overrides DefaultStartFunctions. Start calls the
	// first one the guest exports.
	StartFunctions []string

	// Namespace overrides DefaultNamespace.
	Namespace string

	// Engine configures the underlying wazero engine.
	Engine engine.Config

	// Stdout and Stderr receive WASI output when Engine.WASI is set.
	Stdout io.Writer
	Stderr io.Writer
}

// Runtime loads guests into a shared engine.
type Runtime struct {
	engine    *engine.WazeroEngine
	opts      Options
	log       *zap.Logger
	mu        sync.RWMutex
	instances map[string]*Instance
	seq       atomic.Uint64
}

// New creates a runtime and registers the GL host module.
func New(ctx context.Context, opts Options) (*Runtime, error) {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if len(opts.StartFunctions) == 0 {
		opts.StartFunctions = DefaultStartFunctions
	}
	if opts.Backend == nil {
		opts.Backend = func() gl.Backend { return soft.New(soft.Config{}) }
	}
	log := opts.Logger
	if log == nil {
		log = Logger()
	}

	cfg := opts.Engine
	eng, err := engine.NewWazeroEngineWithConfig(ctx, &cfg)
	if err != nil {
		return nil, errors.Load("create engine", err)
	}
	r := &Runtime{
		engine:    eng,
		opts:      opts,
		log:       log,
		instances: make(map[string]*Instance),
	}
	if err := eng.Hosts().RegisterHost(&glHost{rt: r}); err != nil {
		eng.Close(ctx)
		return nil, err
	}
	return r, nil
}

// Engine returns the underlying engine.
func (r *Runtime) Engine() *engine.WazeroEngine {
	return r.engine
}

// Imports lists the GL import names guests may use.
func (r *Runtime) Imports() []string {
	return r.engine.Hosts().Names(r.opts.Namespace)
}

// Load compiles and instantiates a core wasm guest. The guest's start
// section, if any, runs during Load; its start export runs in Start.
func (r *Runtime) Load(ctx context.Context, wasm []byte) (*Instance, error) {
	if isComponent(wasm) {
		return nil, errors.InvalidInput(errors.PhaseLoad, "component binaries are not supported; provide a core module")
	}

	mod, err := r.engine.LoadModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("load module", err)
	}

	name := "gl-guest-" + strconv.FormatUint(r.seq.Add(1), 10)
	inst := newInstance(r, mod, name)
	r.track(inst)
	w, err := mod.InstantiateWithConfig(ctx, &engine.InstanceConfig{
		Name:   name,
		Stdout: r.opts.Stdout,
		Stderr: r.opts.Stderr,
	})
	if err != nil {
		r.untrack(name)
		inst.gl.Close()
		mod.Close(ctx)
		return nil, err
	}
	inst.wasm = w
	r.log.Debug("guest loaded",
		zap.String("instance", w.Name()),
		zap.Strings("imports", mod.Imports()))
	return inst, nil
}

func (r *Runtime) track(inst *Instance) {
	r.mu.Lock()
	r.instances[inst.name] = inst
	r.mu.Unlock()
}

func (r *Runtime) untrack(name string) {
	r.mu.Lock()
	delete(r.instances, name)
	r.mu.Unlock()
}

// instance returns the loaded guest instantiated under name.
func (r *Runtime) instance(name string) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[name]
	return inst, ok
}

// Close releases the engine. Instances must be closed first.
func (r *Runtime) Close(ctx context.Context) error {
	return r.engine.Close(ctx)
}

var componentHeader = []byte{0x00, 'a', 's', 'm', 0x0d, 0x00, 0x01, 0x00}

func isComponent(wasm []byte) bool {
	return bytes.HasPrefix(wasm, componentHeader)
}
