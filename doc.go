// Package wasmgl lets WebAssembly guests render through a WebGL-shaped
// graphics API provided by the host.
//
// A guest imports a small set of functions (compile-shader, link-program,
// create-buffer, set-attribute, draw and a few more) and refers to every
// GPU object by a handle. The host keeps the handle tables, talks to the
// graphics backend and calls the guest back once per frame through an
// entry registered with run.
//
// # Architecture Overview
//
//	wasmgl/           Root package with the guest Memory interface
//	├── runtime/      High-level API: GL host module, guest start and ticks
//	├── engine/       wazero integration, host registry, indirect-call dispatcher
//	├── bridge/       Shader compile, program link and reflection, buffers, draws
//	├── resource/     Handle tables
//	├── memory/       Bounded, copying reads of guest memory
//	├── gl/           Backend interface and enums
//	│   ├── soft/     Headless software backend with a framebuffer
//	│   └── webgl/    Browser backend (js/wasm)
//	├── frame/        Frame drivers: stepper and fixed-rate ticker
//	├── present/      Desktop window presenting the software framebuffer
//	├── wasmgen/      Minimal wasm binary builder
//	├── demo/         Built-in guest modules
//	└── errors/       Structured error types
//
// # Quick Start
//
//	rt, err := runtime.New(ctx, runtime.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	inst, err := rt.Load(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	if err := inst.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	ticker := &frame.Ticker{TPS: 60, MaxFrames: 600}
//	if err := ticker.Run(ctx, inst); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// A Runtime may load guests from several goroutines. An Instance and its
// bridge context belong to one goroutine; ticks never overlap and a tick
// issued during another returns a reentrant error.
package wasmgl
