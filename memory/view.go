// Package memory reads argument data out of a guest's linear memory.
//
// Every byte-range argument the guest passes is a (pointer, length) pair.
// The view copies what it reads: the guest may reuse the region as soon as
// the host call returns.
package memory

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	wasmgl "github.com/wippyai/wasm-gl"
	"github.com/wippyai/wasm-gl/errors"
)

// View is a read-only window onto guest memory.
type View struct {
	mem wasmgl.Memory
}

// New wraps mem.
func New(mem wasmgl.Memory) View {
	return View{mem: mem}
}

// Bytes returns a copy of length bytes starting at ptr.
func (v View) Bytes(ptr, length uint32) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}
	if v.mem == nil {
		return nil, errors.NotInitialized(errors.PhaseMemory, "guest memory")
	}
	data, err := v.mem.Read(ptr, length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// String decodes length bytes at ptr as strict UTF-8. Shader sources and
// attribute names go through here.
func (v View) String(ptr, length uint32) (string, error) {
	data, err := v.Bytes(ptr, length)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.InvalidUTF8(data)
	}
	return string(data), nil
}

// Text decodes length bytes at ptr leniently: a leading BOM is stripped and
// invalid sequences become U+FFFD. Used for diagnostic log text.
func (v View) Text(ptr, length uint32) (string, error) {
	data, err := v.Bytes(ptr, length)
	if err != nil {
		return "", err
	}
	out, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
	if err != nil {
		return "", errors.New(errors.PhaseMemory, errors.KindInvalidUTF8).Cause(err).Build()
	}
	return string(out), nil
}

// Slice is a Memory backed by a plain byte slice.
type Slice []byte

// Read implements wasmgl.Memory.
func (s Slice) Read(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(s)) {
		return nil, errors.OutOfBounds(offset, length, uint32(len(s)))
	}
	return s[offset:end], nil
}

// Size implements wasmgl.MemorySizer.
func (s Slice) Size() uint32 {
	return uint32(len(s))
}
