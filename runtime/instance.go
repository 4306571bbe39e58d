package runtime

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-gl/bridge"
	"github.com/wippyai/wasm-gl/engine"
	"github.com/wippyai/wasm-gl/errors"
)

// Entry is the per-frame callback a guest registers with run: the slot of
// a (func (param i32)) in its function table and the value passed to it.
type Entry struct {
	Context uint32
	Slot    uint32
}

// Instance is a loaded guest with its own bridge context.
type Instance struct {
	rt       *Runtime
	module   *engine.WazeroModule
	wasm     *engine.WazeroInstance
	gl       *bridge.Context
	log      *zap.Logger
	clock    func() float64
	name     string
	entry    Entry
	hasEntry bool
	ticking  atomic.Bool
	frames   atomic.Uint64
	closed   bool
}

func newInstance(r *Runtime, mod *engine.WazeroModule, name string) *Instance {
	log := r.log.With(zap.String("instance", name))
	clock := r.opts.Clock
	if clock == nil {
		loaded := time.Now()
		clock = func() float64 { return time.Since(loaded).Seconds() }
	}
	return &Instance{
		rt:     r,
		module: mod,
		gl:     bridge.New(r.opts.Backend(), bridge.Options{Logger: log}),
		log:    log,
		clock:  clock,
		name:   name,
	}
}

// Name returns the wazero module name of the guest.
func (i *Instance) Name() string {
	return i.name
}

// GL returns the guest's bridge context.
func (i *Instance) GL() *bridge.Context {
	return i.gl
}

// Wasm returns the engine instance.
func (i *Instance) Wasm() *engine.WazeroInstance {
	return i.wasm
}

// Entry returns the callback registered by run, if any.
func (i *Instance) Entry() (Entry, bool) {
	return i.entry, i.hasEntry
}

// Frames returns the number of ticks that completed without error.
func (i *Instance) Frames() uint64 {
	return i.frames.Load()
}

// Start calls the first start export the guest has. A guest that enters
// its frame loop through run returns from Start normally with its entry
// recorded.
func (i *Instance) Start(ctx context.Context) error {
	if i.closed || i.wasm == nil {
		return errors.NotInitialized(errors.PhaseRuntime, "instance")
	}
	for _, name := range i.rt.opts.StartFunctions {
		if i.wasm.GetExportedFunction(name) == nil {
			continue
		}
		i.log.Debug("starting guest", zap.String("export", name))
		_, err := i.wasm.Call(ctx, name)
		return i.settle(err)
	}
	return errors.New(errors.PhaseRuntime, errors.KindNotFound).
		Value(i.rt.opts.StartFunctions).
		Detail("guest exports none of the start functions").
		Build()
}

// Tick runs one frame: the registered entry is called once with its
// context value. Ticks never overlap; a Tick issued while another is
// executing returns a reentrant error without calling the guest. A failed
// tick leaves the entry in place.
func (i *Instance) Tick(ctx context.Context) error {
	if !i.ticking.CompareAndSwap(false, true) {
		return errors.Reentrant()
	}
	defer i.ticking.Store(false)

	if i.closed || i.wasm == nil {
		return errors.NotInitialized(errors.PhaseFrame, "instance")
	}
	if !i.hasEntry {
		return errors.NotInitialized(errors.PhaseFrame, "frame entry (guest has not called run)")
	}
	d, err := i.wasm.Dispatcher(ctx)
	if err != nil {
		return err
	}
	entry := i.entry
	if err := i.settle(d.Call(ctx, entry.Slot, entry.Context)); err != nil {
		return err
	}
	i.frames.Add(1)
	return nil
}

// settle maps the outcome of a guest call. Entering the frame loop and a
// clean WASI exit count as success; GL errors are unwrapped from the trap.
func (i *Instance) settle(err error) error {
	if err == nil || stderrors.Is(err, errFrameLoop) {
		return nil
	}
	var exit *sys.ExitError
	if stderrors.As(err, &exit) && exit.ExitCode() == 0 {
		return nil
	}
	var gerr *errors.Error
	if stderrors.As(err, &gerr) {
		return gerr
	}
	return err
}

// register records the entry passed to run. A later run replaces it.
func (i *Instance) register(e Entry) {
	if i.hasEntry && i.entry == e {
		return
	}
	i.entry = e
	i.hasEntry = true
	i.log.Debug("frame entry registered",
		zap.Uint32("slot", e.Slot),
		zap.Uint32("context", e.Context))
}

// Close releases every GL resource the guest still holds and the guest
// itself. It is idempotent.
func (i *Instance) Close(ctx context.Context) error {
	if i.closed {
		return nil
	}
	i.closed = true
	i.rt.untrack(i.name)

	firstErr := i.gl.Close()
	if i.wasm != nil {
		if err := i.wasm.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := i.module.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
