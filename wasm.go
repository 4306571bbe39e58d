package wasmgl

// Memory is a read-only view of a guest module's linear memory.
// Implementations must not retain slices across calls; the guest may
// reuse a region as soon as the host call that received it returns.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
}

// MemorySizer provides the current size of guest linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}
