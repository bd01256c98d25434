package resource

// arena stores entries in reusable slots. Slot 0 is never used so that the
// zero Handle stays invalid.
type arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

type slot[T any] struct {
	value T
	gen   uint32
	used  bool
}

func newArena[T any]() *arena[T] {
	return &arena[T]{slots: make([]slot[T], 1, 64)}
}

func (a *arena[T]) insert(value T) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[T]{})
		idx = uint32(len(a.slots) - 1)
	}
	s := &a.slots[idx]
	s.value = value
	s.used = true
	a.live++
	return makeHandle(idx, s.gen)
}

func (a *arena[T]) lookup(h Handle) *slot[T] {
	idx := h.slot()
	if idx == 0 || int(idx) >= len(a.slots) {
		return nil
	}
	s := &a.slots[idx]
	if !s.used || s.gen != h.generation() {
		return nil
	}
	return s
}

// take empties the slot behind h and bumps its generation.
func (a *arena[T]) take(h Handle) (T, bool) {
	s := a.lookup(h)
	if s == nil {
		var zero T
		return zero, false
	}
	value := s.value
	var zero T
	s.value = zero
	s.used = false
	s.gen++
	a.free = append(a.free, h.slot())
	a.live--
	return value, true
}

// handles returns the live handles in slot order.
func (a *arena[T]) handles() []Handle {
	out := make([]Handle, 0, a.live)
	for i := 1; i < len(a.slots); i++ {
		if s := &a.slots[i]; s.used {
			out = append(out, makeHandle(uint32(i), s.gen))
		}
	}
	return out
}
