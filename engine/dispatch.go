package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-gl/errors"
	"github.com/wippyai/wasm-gl/wasmgen"
)

// Dispatcher calls entries of a guest's exported function table.
//
// wazero has no host API for tables, so the dispatcher is a synthesized
// module that imports the guest table and exposes
// dispatch(arg i32, slot i32) running `call_indirect (type (func (param i32)))`.
// A slot that is empty, out of range or holds a function of another type
// traps.
type Dispatcher struct {
	module api.Module
	fn     api.Function
}

// EntrySignature is the function type every dispatched entry must have.
var EntrySignature = wasmgen.FuncType{Params: []api.ValueType{api.ValueTypeI32}}

// buildDispatcher encodes the dispatcher module importing guest.table.
func buildDispatcher(guest, table string) []byte {
	m := wasmgen.New()
	m.ImportTable(guest, table, 0)
	entry := m.Type(EntrySignature.Params, EntrySignature.Results)
	fn := m.Func([]api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, nil, nil, wasmgen.NewCode().
		LocalGet(0).
		LocalGet(1).
		CallIndirect(entry))
	m.ExportFunc("dispatch", fn)
	return m.Bytes()
}

func newDispatcher(ctx context.Context, e *WazeroEngine, guest string) (*Dispatcher, error) {
	bin := buildDispatcher(guest, e.cfg.TableExport)
	mod, err := e.runtime.InstantiateWithConfig(ctx, bin,
		wazero.NewModuleConfig().WithName(guest+"$dispatch").WithStartFunctions())
	if err != nil {
		return nil, errors.New(errors.PhaseFrame, errors.KindInstantiation).
			Detail("guest %q does not export function table %q", guest, e.cfg.TableExport).
			Cause(err).
			Build()
	}
	return &Dispatcher{module: mod, fn: mod.ExportedFunction("dispatch")}, nil
}

// Call invokes table[slot](arg).
func (d *Dispatcher) Call(ctx context.Context, slot, arg uint32) error {
	_, err := d.fn.Call(ctx, api.EncodeU32(arg), api.EncodeU32(slot))
	return err
}

// Close releases the dispatcher module.
func (d *Dispatcher) Close(ctx context.Context) error {
	return d.module.Close(ctx)
}
