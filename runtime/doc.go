// Package runtime hosts wasm guests that render through the GL bridge.
//
// A Runtime owns one wazero engine with the GL host module bound under the
// "env" namespace. Load instantiates a guest with its own bridge context
// and backend. Start calls the guest's start export; the guest calls
// init-context, builds its pipeline and finally calls run(context, entry)
// to hand over its per-frame callback. Each Tick then calls that callback
// once through the guest's function table.
//
// Errors from GL calls abort the guest call that issued them and surface
// from Start or Tick as *errors.Error values.
package runtime
