// Package errors provides structured error types for the wasm-gl bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// Compile and link failures carry the graphics backend's info log verbatim in Log.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDraw, errors.KindInvalidEnum).
//		Value(mode).
//		Detail("unknown draw mode %d", mode).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.CompileFailed("vertex", infoLog)
//	err := errors.MissingResource(errors.PhaseLink, "first shader", h)
//
// The Err* values are match targets that compare on Kind only:
//
//	if errors.Is(err, wglerrors.ErrCompile) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
