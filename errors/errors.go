package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseCompile   Phase = "compile"   // shader compilation
	PhaseLink      Phase = "link"      // program linking and reflection
	PhaseBuffer    Phase = "buffer"    // vertex buffer upload
	PhaseAttribute Phase = "attribute" // vertex attribute binding
	PhaseDraw      Phase = "draw"      // draw dispatch
	PhaseMemory    Phase = "memory"    // guest memory access
	PhaseFrame     Phase = "frame"     // per-tick entry dispatch
	PhaseHost      Phase = "host"      // host function registration
	PhaseLoad      Phase = "load"      // module loading
	PhaseRuntime   Phase = "runtime"   // runtime operations
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidEnum     Kind = "invalid_enum"
	KindCompile         Kind = "compile"
	KindLink            Kind = "link"
	KindMissingResource Kind = "missing_resource"
	KindAllocation      Kind = "allocation"
	KindNotFound        Kind = "not_found"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindInvalidUTF8     Kind = "invalid_utf8"
	KindInvalidInput    Kind = "invalid_input"
	KindNotInitialized  Kind = "not_initialized"
	KindRegistration    Kind = "registration"
	KindInstantiation   Kind = "instantiation"
	KindReentrant       Kind = "reentrant"
	KindTypeMismatch    Kind = "type_mismatch"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	// Log is the backend diagnostic text, kept verbatim.
	Log string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Log != "" {
		b.WriteString("\n")
		b.WriteString(e.Log)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Fatal reports whether the error belongs to a class that aborts the
// current call chain. Soft not-found errors are the only non-fatal kind.
func (e *Error) Fatal() bool {
	return e.Kind != KindNotFound
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Log attaches backend diagnostic output
func (b *Builder) Log(log string) *Builder {
	b.err.Log = log
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Match targets for errors.Is. They match on Kind regardless of Phase.
var (
	ErrInvalidEnum     = &Error{Kind: KindInvalidEnum}
	ErrCompile         = &Error{Kind: KindCompile}
	ErrLink            = &Error{Kind: KindLink}
	ErrMissingResource = &Error{Kind: KindMissingResource}
	ErrAllocation      = &Error{Kind: KindAllocation}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrOutOfBounds     = &Error{Kind: KindOutOfBounds}
	ErrReentrant       = &Error{Kind: KindReentrant}
)

// Convenience constructors for common error patterns

// InvalidEnum creates an error for a value outside a closed enumeration
func InvalidEnum(phase Phase, value any, enumType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidEnum,
		Detail: fmt.Sprintf("unknown %s %v", enumType, value),
		Value:  value,
	}
}

// CompileFailed creates a shader compile error carrying the backend log
func CompileFailed(stage string, log string) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindCompile,
		Detail: fmt.Sprintf("%s shader failed to compile", stage),
		Log:    log,
	}
}

// LinkFailed creates a program link error carrying the backend log
func LinkFailed(log string) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindLink,
		Detail: "program failed to link",
		Log:    log,
	}
}

// MissingResource creates an error for a required handle that is absent
func MissingResource(phase Phase, what string, handle uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMissingResource,
		Detail: fmt.Sprintf("%s %d not found", what, handle),
		Value:  handle,
	}
}

// AllocationFailed creates an error for a backend that refused to create an object
func AllocationFailed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("backend could not create %s", what),
	}
}

// NotFound creates a soft not-found error
func NotFound(phase Phase, what string, handle uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %d not found", what, handle),
		Value:  handle,
	}
}

// OutOfBounds creates an error for a guest memory range past the end of memory
func OutOfBounds(offset, length, size uint32) *Error {
	return &Error{
		Phase:  PhaseMemory,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("range [%d, %d) out of bounds (memory size %d)", offset, uint64(offset)+uint64(length), size),
		Value:  offset,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  PhaseMemory,
		Kind:   KindInvalidUTF8,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// NotInitialized creates a not-initialized error for missing module/instance
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(phase Phase, namespace, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s#%s", namespace, name),
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}

// Reentrant creates an error for a tick issued while another is running
func Reentrant() *Error {
	return &Error{
		Phase:  PhaseFrame,
		Kind:   KindReentrant,
		Detail: "tick issued while a previous tick is still executing",
	}
}
