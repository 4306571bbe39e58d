package wasmgen

import "math"

// Code is a function body under construction. The final end opcode is
// added by Module.Func.
type Code struct {
	b []byte
}

// NewCode starts an empty body.
func NewCode() *Code {
	return &Code{}
}

// Bytes returns the encoded instructions.
func (c *Code) Bytes() []byte {
	if c == nil {
		return nil
	}
	return c.b
}

func (c *Code) op(b ...byte) *Code {
	c.b = append(c.b, b...)
	return c
}

func (c *Code) Unreachable() *Code { return c.op(0x00) }
func (c *Code) Nop() *Code         { return c.op(0x01) }
func (c *Code) Return() *Code      { return c.op(0x0f) }
func (c *Code) Drop() *Code        { return c.op(0x1a) }

// Block opens a block with no result.
func (c *Code) Block() *Code { return c.op(0x02, 0x40) }

// Loop opens a loop with no result.
func (c *Code) Loop() *Code { return c.op(0x03, 0x40) }

// If opens an if with no result.
func (c *Code) If() *Code   { return c.op(0x04, 0x40) }
func (c *Code) Else() *Code { return c.op(0x05) }
func (c *Code) End() *Code  { return c.op(0x0b) }

func (c *Code) Br(depth uint32) *Code {
	return c.op(0x0c).op(EncodeULEB128(depth)...)
}

func (c *Code) BrIf(depth uint32) *Code {
	return c.op(0x0d).op(EncodeULEB128(depth)...)
}

func (c *Code) Call(fn uint32) *Code {
	return c.op(0x10).op(EncodeULEB128(fn)...)
}

// CallIndirect calls through table 0 with the given type index. The
// element index is taken from the stack.
func (c *Code) CallIndirect(typ uint32) *Code {
	return c.op(0x11).op(EncodeULEB128(typ)...).op(0x00)
}

func (c *Code) LocalGet(i uint32) *Code {
	return c.op(0x20).op(EncodeULEB128(i)...)
}

func (c *Code) LocalSet(i uint32) *Code {
	return c.op(0x21).op(EncodeULEB128(i)...)
}

func (c *Code) LocalTee(i uint32) *Code {
	return c.op(0x22).op(EncodeULEB128(i)...)
}

func (c *Code) GlobalGet(i uint32) *Code {
	return c.op(0x23).op(EncodeULEB128(i)...)
}

func (c *Code) GlobalSet(i uint32) *Code {
	return c.op(0x24).op(EncodeULEB128(i)...)
}

// I32Load loads from memory 0 with a 4-byte alignment hint.
func (c *Code) I32Load(offset uint32) *Code {
	return c.op(0x28, 0x02).op(EncodeULEB128(offset)...)
}

// I32Store stores to memory 0 with a 4-byte alignment hint.
func (c *Code) I32Store(offset uint32) *Code {
	return c.op(0x36, 0x02).op(EncodeULEB128(offset)...)
}

func (c *Code) I32Const(v int32) *Code {
	return c.op(0x41).op(EncodeSLEB128(v)...)
}

func (c *Code) I64Const(v int64) *Code {
	return c.op(0x42).op(EncodeSLEB128(v)...)
}

func (c *Code) F32Const(v float32) *Code {
	return c.op(appendU32([]byte{0x43}, math.Float32bits(v))...)
}

func (c *Code) F64Const(v float64) *Code {
	return c.op(appendU64([]byte{0x44}, math.Float64bits(v))...)
}

func (c *Code) I32Eqz() *Code { return c.op(0x45) }
func (c *Code) I32Eq() *Code  { return c.op(0x46) }
func (c *Code) I32LtU() *Code { return c.op(0x49) }
func (c *Code) I32Add() *Code { return c.op(0x6a) }
func (c *Code) I32Sub() *Code { return c.op(0x6b) }
func (c *Code) I32Mul() *Code { return c.op(0x6c) }
func (c *Code) F32Add() *Code { return c.op(0x92) }
func (c *Code) F32Mul() *Code { return c.op(0x94) }

// F32DemoteF64 converts an f64 on the stack to f32.
func (c *Code) F32DemoteF64() *Code { return c.op(0xb6) }
