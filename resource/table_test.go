package resource

import (
	"errors"
	"testing"
)

type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) OnResourceEvent(e Event) {
	r.events = append(r.events, e)
}

func (r *eventRecorder) types() []EventType {
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type dropCounter struct {
	count int
}

func (d *dropCounter) Drop() {
	d.count++
}

func mustInsert[T any](t *testing.T, table *Table[T], v T) Handle {
	t.Helper()
	h, err := table.Insert(v)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if h == 0 {
		t.Fatal("Insert returned the zero handle")
	}
	return h
}

func TestTable_InsertGetRelease(t *testing.T) {
	table := NewTable[string]()
	h := mustInsert(t, table, "cell")

	if v, ok := table.Get(h); !ok || v != "cell" {
		t.Fatalf("Get = %q, %v", v, ok)
	}
	if !table.Contains(h) || table.Len() != 1 {
		t.Fatalf("Contains=%v Len=%d", table.Contains(h), table.Len())
	}

	if v, ok := table.Release(h); !ok || v != "cell" {
		t.Fatalf("Release = %q, %v", v, ok)
	}
	if table.Len() != 0 || table.Contains(h) {
		t.Fatal("entry still live after Release")
	}

	if _, ok := table.Release(h); ok {
		t.Fatal("second Release of the same handle succeeded")
	}
	if _, ok := table.Detach(h); ok {
		t.Fatal("Detach after Release succeeded")
	}
	if _, ok := table.Get(0); ok {
		t.Fatal("zero handle resolved")
	}
}

func TestTable_StaleHandle(t *testing.T) {
	table := NewTable[string]()
	old := mustInsert(t, table, "a")
	table.Release(old)

	reused := mustInsert(t, table, "b")
	if reused.slot() != old.slot() {
		t.Fatalf("slot not reused: %s then %s", old, reused)
	}
	if reused == old {
		t.Fatal("reused slot kept its generation")
	}

	if _, ok := table.Get(old); ok {
		t.Fatal("stale handle resolved to the new occupant")
	}
	if _, ok := table.Release(old); ok {
		t.Fatal("stale handle released the new occupant")
	}
	if v, ok := table.Get(reused); !ok || v != "b" {
		t.Fatalf("Get(reused) = %q, %v", v, ok)
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable[*dropCounter]()
	rec := &eventRecorder{}
	table.Subscribe(rec)

	d := &dropCounter{}
	h := mustInsert(t, table, d)
	if got, ok := table.Detach(h); !ok || got != d {
		t.Fatal("Detach failed")
	}
	if d.count != 0 {
		t.Fatalf("Detach dropped the value %d times", d.count)
	}

	h = mustInsert(t, table, d)
	table.Release(h)
	if d.count != 1 {
		t.Fatalf("Release dropped %d times, want 1", d.count)
	}

	want := []EventType{EventCreated, EventDetached, EventCreated, EventReleased}
	got := rec.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
	if last := rec.events[3]; last.Handle != h || last.Value != d {
		t.Errorf("released event = %+v", last)
	}

	table.Unsubscribe(rec)
	mustInsert(t, table, &dropCounter{})
	if len(rec.events) != 4 {
		t.Fatal("observer notified after Unsubscribe")
	}
}

func TestTable_All(t *testing.T) {
	table := NewTable[string]()
	var handles []Handle
	for _, s := range []string{"a", "b", "c"} {
		handles = append(handles, mustInsert(t, table, s))
	}
	table.Release(handles[1])

	var seen []string
	for h, v := range table.All() {
		if !table.Contains(h) {
			t.Errorf("All yielded dead handle %s", h)
		}
		seen = append(seen, v)
	}
	if len(seen) != 2 || seen[0] != "a" || seen[1] != "c" {
		t.Fatalf("All = %v", seen)
	}

	n := 0
	for range table.All() {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("All ignored early stop, yielded %d", n)
	}
}

func TestTable_ClearAndClose(t *testing.T) {
	table := NewTable[*dropCounter]()
	rec := &eventRecorder{}
	table.Subscribe(rec)

	a, b := &dropCounter{}, &dropCounter{}
	mustInsert(t, table, a)
	table.Clear()
	if a.count != 1 || table.Len() != 0 {
		t.Fatalf("Clear: dropped %d, Len %d", a.count, table.Len())
	}

	mustInsert(t, table, b)
	if err := table.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if b.count != 1 {
		t.Fatalf("Close dropped %d times, want 1", b.count)
	}
	if got := rec.types(); got[len(got)-1] != EventReleased {
		t.Errorf("Close did not report the leftover entry: %v", got)
	}

	if _, err := table.Insert(&dropCounter{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Insert after Close = %v, want ErrClosed", err)
	}
}

func TestHandle_String(t *testing.T) {
	if s := makeHandle(3, 2).String(); s != "3#2" {
		t.Errorf("String = %q", s)
	}
}

func TestEventType_String(t *testing.T) {
	if EventDetached.String() != "detached" {
		t.Errorf("got %q", EventDetached.String())
	}
	if EventType(99).String() != "unknown" {
		t.Errorf("got %q", EventType(99).String())
	}
}
