package resource

import (
	"errors"
	"strconv"
)

// ErrClosed is returned by Insert once the table is closed.
var ErrClosed = errors.New("resource table closed")

// Handle names a table entry. The low 32 bits are the slot, the high 32
// bits the generation the slot had when the entry was inserted, so a
// handle kept past its release never matches a later occupant of the
// same slot. The zero Handle is never issued.
type Handle uint64

func makeHandle(slot, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(slot))
}

func (h Handle) slot() uint32       { return uint32(h) }
func (h Handle) generation() uint32 { return uint32(h >> 32) }

func (h Handle) String() string {
	return strconv.FormatUint(uint64(h.slot()), 10) + "#" + strconv.FormatUint(uint64(h.generation()), 10)
}

// EventType identifies a lifecycle transition of a table entry.
type EventType uint8

const (
	EventCreated  EventType = iota
	EventReleased           // entry destroyed by its owner
	EventDetached           // ownership moved out of the table without destruction
)

var eventNames = [...]string{
	EventCreated:  "created",
	EventReleased: "released",
	EventDetached: "detached",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event is one lifecycle transition.
type Event struct {
	Value  any
	Handle Handle
	Type   EventType
}

// Observer receives lifecycle events, in order, outside the table lock.
type Observer interface {
	OnResourceEvent(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Dropper is implemented by entries that free something when released.
type Dropper interface {
	Drop()
}
