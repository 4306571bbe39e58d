package resource

// arena is dense handle-indexed storage. Released slots keep a tombstone
// so a handle can never alias a later resource.
type arena[T any] struct {
	slots []slot[T]
	live  int
}

type slot[T any] struct {
	value T
	live  bool
}

func (a *arena[T]) put(value T) Handle {
	h := Handle(len(a.slots))
	a.slots = append(a.slots, slot[T]{value: value, live: true})
	a.live++
	return h
}

func (a *arena[T]) get(h Handle) (T, bool) {
	var zero T
	if int(h) >= len(a.slots) {
		return zero, false
	}
	s := a.slots[h]
	if !s.live {
		return zero, false
	}
	return s.value, true
}

func (a *arena[T]) take(h Handle) (T, bool) {
	var zero T
	if int(h) >= len(a.slots) {
		return zero, false
	}
	s := &a.slots[h]
	if !s.live {
		return zero, false
	}
	value := s.value
	s.value = zero
	s.live = false
	a.live--
	return value, true
}

func (a *arena[T]) next() Handle {
	return Handle(len(a.slots))
}

func (a *arena[T]) each(fn func(Handle, T) bool) {
	for i := range a.slots {
		if a.slots[i].live {
			if !fn(Handle(i), a.slots[i].value) {
				return
			}
		}
	}
}
