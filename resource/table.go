package resource

import (
	"iter"
	"sync"
)

// Table records owned entries and reports their lifecycle to observers.
// Every entry leaves the table exactly once, by Release or by Detach.
type Table[T any] struct {
	mu        sync.Mutex
	entries   *arena[T]
	closed    bool
	obsMu     sync.RWMutex
	observers []Observer
}

func NewTable[T any]() *Table[T] {
	return &Table[T]{entries: newArena[T]()}
}

// Insert takes ownership of value.
func (t *Table[T]) Insert(value T) (Handle, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrClosed
	}
	h := t.entries.insert(value)
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: h, Value: value})
	return h, nil
}

func (t *Table[T]) Get(h Handle) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s := t.entries.lookup(h); s != nil {
		return s.value, true
	}
	var zero T
	return zero, false
}

func (t *Table[T]) Contains(h Handle) bool {
	_, ok := t.Get(h)
	return ok
}

// Release removes and destroys an entry, calling Drop when the value is a
// Dropper. It reports false for unknown, stale or already removed handles.
func (t *Table[T]) Release(h Handle) (T, bool) {
	return t.remove(h, EventReleased)
}

// Detach removes an entry without destroying it; the caller now owns it.
func (t *Table[T]) Detach(h Handle) (T, bool) {
	return t.remove(h, EventDetached)
}

func (t *Table[T]) remove(h Handle, typ EventType) (T, bool) {
	t.mu.Lock()
	value, ok := t.entries.take(h)
	t.mu.Unlock()
	if !ok {
		return value, false
	}

	if typ == EventReleased {
		if d, ok := any(value).(Dropper); ok {
			d.Drop()
		}
	}
	t.notify(Event{Type: typ, Handle: h, Value: value})
	return value, true
}

func (t *Table[T]) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes o. ObserverFunc values are not comparable and cannot
// be removed.
func (t *Table[T]) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries.live
}

// All yields a snapshot of the live entries in slot order.
func (t *Table[T]) All() iter.Seq2[Handle, T] {
	return func(yield func(Handle, T) bool) {
		for _, h := range t.snapshot() {
			v, ok := t.Get(h)
			if !ok {
				continue
			}
			if !yield(h, v) {
				return
			}
		}
	}
}

func (t *Table[T]) snapshot() []Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries.handles()
}

// Clear releases every live entry.
func (t *Table[T]) Clear() {
	for _, h := range t.snapshot() {
		t.Release(h)
	}
}

// Close rejects further inserts and releases what is left. Observers see
// a released event for each leftover entry.
func (t *Table[T]) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	t.Clear()
	return nil
}

func (t *Table[T]) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
