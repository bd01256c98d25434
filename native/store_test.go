package native

import (
	"errors"
	"slices"
	"testing"
	"unsafe"

	gverrors "github.com/wippyai/genvalue/errors"
	"github.com/wippyai/genvalue/resource"
	"github.com/wippyai/genvalue/types"
)

func expectFatal(t *testing.T, kind gverrors.Kind, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected fatal %s, got none", kind)
		}
		e, ok := r.(*gverrors.Error)
		if !ok {
			t.Fatalf("expected *errors.Error panic, got %T: %v", r, r)
		}
		if e.Kind != kind {
			t.Fatalf("expected kind %s, got %s (%v)", kind, e.Kind, e)
		}
	}()
	fn()
}

type eventLog struct {
	events []resource.Event
}

func (l *eventLog) OnResourceEvent(e resource.Event) {
	l.events = append(l.events, e)
}

func (l *eventLog) count(typ resource.EventType) int {
	n := 0
	for _, e := range l.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func TestStore_CreateOfInt(t *testing.T) {
	s := NewStore()

	c := s.CreateOfInt(types.Int8, 0x1ff, false)
	ap := s.ToInt(c)
	if ap.Bits != 8 || len(ap.Words) != 1 || ap.Words[0] != 0xff {
		t.Fatalf("i8 payload = %+v", ap)
	}
	if s.IntWidth(c) != 8 {
		t.Fatalf("IntWidth = %d", s.IntWidth(c))
	}

	neg := s.CreateOfInt(types.Int128, ^uint64(0), true)
	ap = s.ToInt(neg)
	if len(ap.Words) != 2 || ap.Words[0] != ^uint64(0) || ap.Words[1] != ^uint64(0) {
		t.Fatalf("sign-extended i128 = %+v", ap)
	}

	pos := s.CreateOfInt(types.Int128, ^uint64(0), false)
	if ap := s.ToInt(pos); !slices.Equal(ap.Words, hostWords([]uint64{^uint64(0), 0})) {
		t.Fatalf("zero-extended i128 = %+v", ap)
	}
}

func TestStore_CreateOfData(t *testing.T) {
	s := NewStore()

	c := s.CreateOfData([]byte{0x01, 0x02, 0x03})
	ap := s.ToInt(c)
	if ap.Bits != 24 || ap.Words[0] != 0x030201 {
		t.Fatalf("data payload = %+v", ap)
	}

	s.SetDataValue(c, []byte{1, 0, 0, 0, 0, 0, 0, 0, 2})
	ap = s.ToInt(c)
	if ap.Bits != 72 || !slices.Equal(ap.Words, hostWords([]uint64{1, 2})) {
		t.Fatalf("after SetDataValue = %+v", ap)
	}
}

func TestStore_HostWordOrder(t *testing.T) {
	s := NewStore()
	it := types.Int(96)

	c := s.CreateOfWords(it, hostWords([]uint64{^uint64(0), ^uint64(0)}))
	ap := s.ToInt(c)
	if ap.Bits != 96 || !slices.Equal(ap.Words, hostWords([]uint64{^uint64(0), 0xffff_ffff})) {
		t.Fatalf("i96 payload = %+v", ap)
	}

	s.SetIntValue(c, hostWords([]uint64{3, 4}), 16)
	data := s.CreateOfData([]byte{3, 0, 0, 0, 0, 0, 0, 0, 4, 0, 0, 0, 0, 0, 0, 0})
	if a, b := s.ToInt(c), s.ToInt(data); !slices.Equal(a.Words, b.Words) {
		t.Errorf("SetIntValue words %v, CreateOfData words %v", a.Words, b.Words)
	}
}

func TestStore_SetIntValueTruncates(t *testing.T) {
	s := NewStore()
	c := s.CreateOfData([]byte{0})

	s.SetIntValue(c, hostWords([]uint64{0xffff_ffff, 0}), 2)
	ap := s.ToInt(c)
	if ap.Bits != 16 || len(ap.Words) != 1 || ap.Words[0] != 0xffff {
		t.Fatalf("payload = %+v", ap)
	}
}

func TestStore_Floats(t *testing.T) {
	s := NewStore()

	f := s.CreateOfFloat(types.Float, 1.5)
	if s.ToFloatSingle(f) != 1.5 || s.ToFloat(types.Float, f) != 1.5 {
		t.Fatal("single slot not populated")
	}

	d := s.CreateOfFloat(types.Double, 2.25)
	if s.ToFloatDouble(d) != 2.25 || s.ToFloat(types.Double, d) != 2.25 {
		t.Fatal("double slot not populated")
	}

	s.SetFloatValue(f, -3)
	s.SetDoubleValue(d, 8)
	if s.ToFloatSingle(f) != -3 || s.ToFloatDouble(d) != 8 {
		t.Fatal("setters did not overwrite")
	}

	expectFatal(t, gverrors.KindUnsupported, func() {
		s.CreateOfFloat(types.FP128, 1)
	})
}

func TestStore_Pointers(t *testing.T) {
	s := NewStore()

	x := 42
	c := s.CreateOfPointer(unsafe.Pointer(&x))
	if (*int)(s.ToPointer(c)) != &x {
		t.Fatal("pointer slot mismatch")
	}

	mp := MiriPointer{Addr: 0x1000, Prov: Provenance{AllocID: 7, Tag: 3}}
	m := s.CreateOfMiriPointer(mp)
	if s.ToMiriPointer(m) != mp {
		t.Fatal("miri pointer mismatch")
	}
	s.SetMiriPointerValue(m, MiriPointer{Addr: 1})
	if s.ToMiriPointer(m).Addr != 1 {
		t.Fatal("SetMiriPointerValue did not overwrite")
	}
}

func TestStore_Aggregate(t *testing.T) {
	s := NewStore()
	log := &eventLog{}
	s.Subscribe(log)

	agg := s.CreateAggregate(2)
	a := s.CreateOfFloatDouble(1)
	b := s.CreateOfFloatDouble(2)
	s.AppendAggregate(agg, a)
	s.AppendAggregate(agg, b)

	if s.AggregateLength(agg) != 2 {
		t.Fatalf("AggregateLength = %d", s.AggregateLength(agg))
	}
	if s.Live() != 1 {
		t.Fatalf("only the aggregate should be top-level, Live = %d", s.Live())
	}
	if log.count(resource.EventDetached) != 2 {
		t.Fatalf("expected two adoption events, got %d", log.count(resource.EventDetached))
	}

	member := s.PointerToAggregate(agg, 1)
	if member != b {
		t.Fatal("PointerToAggregate must return the member itself")
	}
	s.SetDoubleValue(member, 9)
	if s.ToFloatDouble(s.PointerToAggregate(agg, 1)) != 9 {
		t.Fatal("write through member not visible through parent")
	}

	expectFatal(t, gverrors.KindOutOfBounds, func() {
		s.PointerToAggregate(agg, 2)
	})
	expectFatal(t, gverrors.KindNotOwned, func() {
		s.Dispose(member)
	})

	s.Dispose(agg)
	if s.Live() != 0 {
		t.Fatalf("Live after dispose = %d", s.Live())
	}
	expectFatal(t, gverrors.KindUseAfterRelease, func() {
		s.ToFloatDouble(member)
	})
}

func TestStore_AppendRejectsForeignAndCycles(t *testing.T) {
	s := NewStore()
	other := NewStore()

	agg := s.CreateAggregate(1)
	expectFatal(t, gverrors.KindNotOwned, func() {
		s.AppendAggregate(agg, other.CreateOfFloatSingle(1))
	})
	expectFatal(t, gverrors.KindInvalidInput, func() {
		s.AppendAggregate(agg, agg)
	})

	inner := s.CreateAggregate(0)
	s.AppendAggregate(agg, inner)
	expectFatal(t, gverrors.KindNotOwned, func() {
		s.AppendAggregate(agg, inner)
	})
}

func TestStore_EnsureCapacity(t *testing.T) {
	s := NewStore()
	agg := s.CreateAggregate(0)
	s.EnsureCapacity(agg, 16)
	if cap(agg.aggregate) < 16 {
		t.Fatalf("cap = %d", cap(agg.aggregate))
	}
	if s.AggregateLength(agg) != 0 {
		t.Fatal("EnsureCapacity must not change length")
	}
}

func TestStore_DisposeExactlyOnce(t *testing.T) {
	s := NewStore()
	log := &eventLog{}
	s.Subscribe(log)

	c := s.CreateOfFloatSingle(1)
	if !s.Owns(c) {
		t.Fatal("store should own new cell")
	}
	s.Dispose(c)
	if log.count(resource.EventReleased) != 1 {
		t.Fatalf("released %d times", log.count(resource.EventReleased))
	}
	if s.Owns(c) {
		t.Fatal("released cell still owned")
	}

	expectFatal(t, gverrors.KindDoubleRelease, func() {
		s.Dispose(c)
	})
	expectFatal(t, gverrors.KindNilPointer, func() {
		s.Dispose(nil)
	})
	expectFatal(t, gverrors.KindNotOwned, func() {
		NewStore().Dispose(s.CreateOfFloatSingle(2))
	})
}

func TestStore_TypeTag(t *testing.T) {
	s := NewStore()
	c := s.CreateAggregate(0)
	if s.TypeTag(c) != nil {
		t.Fatal("new cells are untagged")
	}
	tag := types.Struct(types.Int8)
	s.SetTypeTag(c, tag)
	if s.TypeTag(c) != tag {
		t.Fatal("tag not recorded")
	}
}

func TestStore_Close(t *testing.T) {
	s := NewStore()
	log := &eventLog{}
	s.Subscribe(log)

	s.CreateOfFloatSingle(1)
	s.CreateAggregate(0)

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if s.Live() != 0 {
		t.Fatalf("Live after Close = %d", s.Live())
	}
	if n := log.count(resource.EventReleased); n != 2 {
		t.Fatalf("Close reported %d releases, want 2", n)
	}

	defer func() {
		r := recover()
		var e *gverrors.Error
		if err, ok := r.(error); !ok || !errors.As(err, &e) {
			t.Fatalf("expected structured panic, got %v", r)
		}
	}()
	s.CreateOfFloatSingle(2)
}

func TestGlobal(t *testing.T) {
	if Global() == nil || Global() != Global() {
		t.Fatal("Global must return a stable store")
	}
}
