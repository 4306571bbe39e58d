// Package wasmgen builds small core WebAssembly binaries.
//
// It covers what the host needs to synthesize: function imports, a
// funcref table (local or imported), one memory, mutable globals, exports,
// element and data segments, and function bodies written with Code.
//
//	m := wasmgen.New()
//	log := m.ImportFunc("env", "log", []api.ValueType{i32, i32}, nil)
//	m.Memory(1)
//	m.Data(0, []byte("hi"))
//	main := m.Func(nil, nil, nil, wasmgen.NewCode().I32Const(0).I32Const(2).Call(log))
//	m.ExportFunc("main", main)
//	bin := m.Bytes()
//
// Imports must be declared before any function is defined so function
// indices stay stable.
package wasmgen

import (
	"math"
	"slices"

	"github.com/tetratelabs/wazero/api"
)

// Export kinds.
const (
	kindFunc   byte = 0x00
	kindTable  byte = 0x01
	kindMemory byte = 0x02
	kindGlobal byte = 0x03
)

const funcref byte = 0x70

// FuncType is a function signature.
type FuncType struct {
	Params  []api.ValueType
	Results []api.ValueType
}

func (t FuncType) equal(o FuncType) bool {
	return slices.Equal(t.Params, o.Params) && slices.Equal(t.Results, o.Results)
}

type funcImport struct {
	module string
	name   string
	typ    uint32
}

type tableImport struct {
	module string
	name   string
	min    uint32
}

type function struct {
	locals []api.ValueType
	body   []byte
	typ    uint32
}

type global struct {
	typ     api.ValueType
	init    uint64
	mutable bool
}

type export struct {
	name  string
	index uint32
	kind  byte
}

type elem struct {
	funcs  []uint32
	offset uint32
}

type data struct {
	bytes  []byte
	offset uint32
}

// Module accumulates sections for one binary.
type Module struct {
	tableImport *tableImport
	start       *uint32
	types       []FuncType
	imports     []funcImport
	funcs       []function
	globals     []global
	exports     []export
	elems       []elem
	data        []data
	tableMin    uint32
	memMin      uint32
	hasTable    bool
	hasMemory   bool
}

// New creates an empty module.
func New() *Module {
	return &Module{}
}

// Type returns the index of a signature, adding it if needed.
func (m *Module) Type(params, results []api.ValueType) uint32 {
	ft := FuncType{Params: params, Results: results}
	for i, t := range m.types {
		if t.equal(ft) {
			return uint32(i)
		}
	}
	m.types = append(m.types, ft)
	return uint32(len(m.types) - 1)
}

// ImportFunc declares a function import and returns its function index.
// It panics if a function has already been defined.
func (m *Module) ImportFunc(module, name string, params, results []api.ValueType) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmgen: function import after function definition")
	}
	m.imports = append(m.imports, funcImport{module: module, name: name, typ: m.Type(params, results)})
	return uint32(len(m.imports) - 1)
}

// ImportTable imports a funcref table with at least min elements. The
// module may have either an imported or a local table, not both.
func (m *Module) ImportTable(module, name string, min uint32) {
	m.tableImport = &tableImport{module: module, name: name, min: min}
	m.hasTable = false
}

// Table defines a local funcref table of exactly size elements.
func (m *Module) Table(size uint32) {
	m.tableMin = size
	m.hasTable = true
	m.tableImport = nil
}

// Memory defines a local memory with min pages and no maximum.
func (m *Module) Memory(minPages uint32) {
	m.memMin = minPages
	m.hasMemory = true
}

// Global defines a global with an initial value and returns its index.
// init holds the raw bits for float types.
func (m *Module) Global(typ api.ValueType, mutable bool, init uint64) uint32 {
	m.globals = append(m.globals, global{typ: typ, mutable: mutable, init: init})
	return uint32(len(m.globals) - 1)
}

// Func defines a function and returns its index in the function space.
func (m *Module) Func(params, results, locals []api.ValueType, body *Code) uint32 {
	m.funcs = append(m.funcs, function{
		typ:    m.Type(params, results),
		locals: locals,
		body:   body.Bytes(),
	})
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

// ExportFunc exports a function index.
func (m *Module) ExportFunc(name string, index uint32) {
	m.exports = append(m.exports, export{name: name, kind: kindFunc, index: index})
}

// ExportTable exports table 0.
func (m *Module) ExportTable(name string) {
	m.exports = append(m.exports, export{name: name, kind: kindTable})
}

// ExportMemory exports memory 0.
func (m *Module) ExportMemory(name string) {
	m.exports = append(m.exports, export{name: name, kind: kindMemory})
}

// ExportGlobal exports a global index.
func (m *Module) ExportGlobal(name string, index uint32) {
	m.exports = append(m.exports, export{name: name, kind: kindGlobal, index: index})
}

// Elem places function indices into table 0 starting at offset.
func (m *Module) Elem(offset uint32, funcs ...uint32) {
	m.elems = append(m.elems, elem{offset: offset, funcs: funcs})
}

// Data places bytes into memory 0 at offset.
func (m *Module) Data(offset uint32, b []byte) {
	m.data = append(m.data, data{offset: offset, bytes: slices.Clone(b)})
}

// Start marks a function to run at instantiation.
func (m *Module) Start(index uint32) {
	m.start = &index
}

// Bytes encodes the module.
func (m *Module) Bytes() []byte {
	wasm := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	if len(m.types) > 0 {
		wasm = append(wasm, section(0x01, m.typeSection())...)
	}
	if n := len(m.imports); n > 0 || m.tableImport != nil {
		wasm = append(wasm, section(0x02, m.importSection())...)
	}
	if len(m.funcs) > 0 {
		var body []byte
		for _, f := range m.funcs {
			body = append(body, EncodeULEB128(f.typ)...)
		}
		wasm = append(wasm, section(0x03, vector(len(m.funcs), body))...)
	}
	if m.hasTable {
		body := []byte{funcref, 0x01}
		body = append(body, EncodeULEB128(m.tableMin)...)
		body = append(body, EncodeULEB128(m.tableMin)...)
		wasm = append(wasm, section(0x04, vector(1, body))...)
	}
	if m.hasMemory {
		body := []byte{0x00}
		body = append(body, EncodeULEB128(m.memMin)...)
		wasm = append(wasm, section(0x05, vector(1, body))...)
	}
	if len(m.globals) > 0 {
		wasm = append(wasm, section(0x06, m.globalSection())...)
	}
	if len(m.exports) > 0 {
		var body []byte
		for _, e := range m.exports {
			body = append(body, encodeName(e.name)...)
			body = append(body, e.kind)
			body = append(body, EncodeULEB128(e.index)...)
		}
		wasm = append(wasm, section(0x07, vector(len(m.exports), body))...)
	}
	if m.start != nil {
		wasm = append(wasm, section(0x08, EncodeULEB128(*m.start))...)
	}
	if len(m.elems) > 0 {
		var body []byte
		for _, e := range m.elems {
			// Active segment for table 0 with an i32.const offset.
			body = append(body, 0x00, 0x41)
			body = append(body, EncodeSLEB128(int32(e.offset))...)
			body = append(body, 0x0b)
			body = append(body, EncodeULEB128(uint32(len(e.funcs)))...)
			for _, f := range e.funcs {
				body = append(body, EncodeULEB128(f)...)
			}
		}
		wasm = append(wasm, section(0x09, vector(len(m.elems), body))...)
	}
	if len(m.funcs) > 0 {
		wasm = append(wasm, section(0x0a, m.codeSection())...)
	}
	if len(m.data) > 0 {
		var body []byte
		for _, d := range m.data {
			body = append(body, 0x00, 0x41)
			body = append(body, EncodeSLEB128(int32(d.offset))...)
			body = append(body, 0x0b)
			body = append(body, EncodeULEB128(uint32(len(d.bytes)))...)
			body = append(body, d.bytes...)
		}
		wasm = append(wasm, section(0x0b, vector(len(m.data), body))...)
	}
	return wasm
}

func (m *Module) typeSection() []byte {
	var body []byte
	for _, t := range m.types {
		body = append(body, 0x60)
		body = append(body, EncodeULEB128(uint32(len(t.Params)))...)
		for _, p := range t.Params {
			body = append(body, ValType(p))
		}
		body = append(body, EncodeULEB128(uint32(len(t.Results)))...)
		for _, r := range t.Results {
			body = append(body, ValType(r))
		}
	}
	return vector(len(m.types), body)
}

func (m *Module) importSection() []byte {
	var body []byte
	n := len(m.imports)
	for _, imp := range m.imports {
		body = append(body, encodeName(imp.module)...)
		body = append(body, encodeName(imp.name)...)
		body = append(body, kindFunc)
		body = append(body, EncodeULEB128(imp.typ)...)
	}
	if t := m.tableImport; t != nil {
		body = append(body, encodeName(t.module)...)
		body = append(body, encodeName(t.name)...)
		body = append(body, kindTable, funcref, 0x00)
		body = append(body, EncodeULEB128(t.min)...)
		n++
	}
	return vector(n, body)
}

func (m *Module) globalSection() []byte {
	var body []byte
	for _, g := range m.globals {
		body = append(body, ValType(g.typ))
		if g.mutable {
			body = append(body, 0x01)
		} else {
			body = append(body, 0x00)
		}
		switch g.typ {
		case api.ValueTypeI64:
			body = append(body, 0x42)
			body = append(body, EncodeSLEB128(int64(g.init))...)
		case api.ValueTypeF32:
			body = append(body, 0x43)
			body = appendU32(body, uint32(g.init))
		case api.ValueTypeF64:
			body = append(body, 0x44)
			body = appendU64(body, g.init)
		default:
			body = append(body, 0x41)
			body = append(body, EncodeSLEB128(int32(uint32(g.init)))...)
		}
		body = append(body, 0x0b)
	}
	return vector(len(m.globals), body)
}

func (m *Module) codeSection() []byte {
	var body []byte
	for _, f := range m.funcs {
		var fn []byte
		// Locals are encoded one entry per local.
		fn = append(fn, EncodeULEB128(uint32(len(f.locals)))...)
		for _, l := range f.locals {
			fn = append(fn, 0x01, ValType(l))
		}
		fn = append(fn, f.body...)
		fn = append(fn, 0x0b)
		body = append(body, EncodeULEB128(uint32(len(fn)))...)
		body = append(body, fn...)
	}
	return vector(len(m.funcs), body)
}

func appendU32(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func appendU64(b []byte, v uint64) []byte {
	return appendU32(appendU32(b, uint32(v)), uint32(v>>32))
}

// F32Bits returns the raw bits of f for Global initializers.
func F32Bits(f float32) uint64 {
	return uint64(math.Float32bits(f))
}
