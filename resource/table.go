package resource

import (
	"errors"
	"reflect"
)

var ErrClosed = errors.New("resource table closed")

// Table maps handles to live values of one kind.
//
// Tables are not synchronized. All access happens on the goroutine that
// drives guest ticks.
type Table[T any] struct {
	store     arena[T]
	observers []Observer
	kind      Kind
	closed    bool
}

// NewTable creates an empty table whose first handle is 0.
func NewTable[T any](kind Kind) *Table[T] {
	return &Table[T]{kind: kind}
}

// Kind returns the table's namespace.
func (t *Table[T]) Kind() Kind {
	return t.kind
}

// Insert stores value under a freshly issued handle.
func (t *Table[T]) Insert(value T) (Handle, error) {
	if t.closed {
		return 0, ErrClosed
	}
	h := t.store.put(value)
	t.notify(Event{Type: EventCreated, Kind: t.kind, Handle: h, Value: value})
	return h, nil
}

// Get retrieves a value by handle.
func (t *Table[T]) Get(h Handle) (T, bool) {
	return t.store.get(h)
}

// Remove releases a handle and returns its value so the caller can dispose
// of it. Removing an absent handle is a no-op.
func (t *Table[T]) Remove(h Handle) (T, bool) {
	value, ok := t.store.take(h)
	if !ok {
		return value, false
	}
	t.notify(Event{Type: EventDropped, Kind: t.kind, Handle: h, Value: value})
	return value, true
}

// Len returns the number of live resources.
func (t *Table[T]) Len() int {
	return t.store.live
}

// Next returns the handle the next Insert will issue.
func (t *Table[T]) Next() Handle {
	return t.store.next()
}

// Each iterates over live resources in handle order.
func (t *Table[T]) Each(fn func(Handle, T) bool) {
	t.store.each(fn)
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer) {
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer. Uncomparable observers such as
// ObserverFunc values are never matched.
func (t *Table[T]) Unsubscribe(o Observer) {
	if o == nil || !reflect.TypeOf(o).Comparable() {
		return
	}
	for i, obs := range t.observers {
		if reflect.TypeOf(obs).Comparable() && obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Clear removes every live resource, calling Drop on values that
// implement Dropper. The handle counter is not reset.
func (t *Table[T]) Clear() {
	var handles []Handle
	t.store.each(func(h Handle, _ T) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		value, ok := t.Remove(h)
		if !ok {
			continue
		}
		if d, ok := any(value).(Dropper); ok {
			d.Drop()
		}
	}
}

// Close clears the table and rejects further inserts.
func (t *Table[T]) Close() error {
	if t.closed {
		return nil
	}
	t.Clear()
	t.closed = true
	return nil
}

func (t *Table[T]) notify(e Event) {
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
