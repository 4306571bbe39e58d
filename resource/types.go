package resource

import "strconv"

// Handle is an opaque reference to a resource in a table.
// Handles start at 0 and are never reused within a table.
type Handle uint32

// Kind names the table a handle belongs to. Handles from different
// kinds live in independent namespaces.
type Kind uint8

const (
	KindShader Kind = iota
	KindProgram
	KindBuffer
)

func (k Kind) String() string {
	switch k {
	case KindShader:
		return "shader"
	case KindProgram:
		return "program"
	case KindBuffer:
		return "buffer"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Event types for resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	if t == EventCreated {
		return "created"
	}
	return "dropped"
}

// Event represents a resource lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Kind   Kind
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Dropper is optionally implemented by resource values that need cleanup
// when a table is cleared or closed.
type Dropper interface {
	Drop()
}
