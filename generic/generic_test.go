package generic

import (
	"math"
	"testing"
	"unsafe"

	gverrors "github.com/wippyai/genvalue/errors"
	"github.com/wippyai/genvalue/native"
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

type releaseCounter struct {
	released map[resource.Handle]int
}

func (c *releaseCounter) OnResourceEvent(e resource.Event) {
	if e.Type == resource.EventReleased {
		c.released[e.Handle]++
	}
}

func newFactory(t *testing.T) (Factory, *releaseCounter) {
	t.Helper()
	s := native.NewStore()
	rc := &releaseCounter{released: map[resource.Handle]int{}}
	s.Subscribe(rc)
	t.Cleanup(func() { _ = s.Close() })
	return For(s), rc
}

func TestValue_Int(t *testing.T) {
	f, _ := newFactory(t)

	tests := []struct {
		name   string
		typ    *types.IntType
		in     uint64
		signed bool
		want   Uint128
	}{
		{"i8 truncates", types.Int8, 0x1ff, false, Uint128From64(0xff)},
		{"i32", types.Int32, 42, false, Uint128From64(42)},
		{"i64 max", types.Int64, math.MaxUint64, false, Uint128From64(math.MaxUint64)},
		{"i128 unsigned", types.Int128, 5, false, Uint128From64(5)},
		{"i128 sign extended", types.Int128, math.MaxUint64, true, Uint128{Lo: math.MaxUint64, Hi: math.MaxUint64}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := f.NewInt(tt.in, tt.typ, tt.signed)
			defer v.Release()
			r := v.Ref()
			r.SetTypeTag(tt.typ)
			if got := r.Int(); got != tt.want {
				t.Errorf("Int() = %+v, want %+v", got, tt.want)
			}
			if got := r.IntWidth(); got != tt.typ.BitWidth() {
				t.Errorf("IntWidth() = %d", got)
			}
		})
	}
}

func TestValue_IntTooWide(t *testing.T) {
	f, _ := newFactory(t)
	v := f.NewInt(1, types.Int(256), false)
	defer v.Release()
	expectFatal(t, gverrors.KindOverflow, func() { v.Ref().Int() })
}

func TestValue_NewWideInt(t *testing.T) {
	f, _ := newFactory(t)
	ones := Uint128{Lo: ^uint64(0), Hi: ^uint64(0)}

	tests := []struct {
		bits uint32
		want Uint128
	}{
		{8, Uint128{Lo: 0xff}},
		{64, Uint128{Lo: ^uint64(0)}},
		{65, Uint128{Lo: ^uint64(0), Hi: 1}},
		{96, Uint128{Lo: ^uint64(0), Hi: 0xffff_ffff}},
		{128, ones},
	}

	for _, tt := range tests {
		v := f.NewWideInt(ones, types.Int(tt.bits))
		r := v.Ref()
		if got := r.Int(); got != tt.want {
			t.Errorf("i%d: Int() = %s, want %s", tt.bits, got, tt.want)
		}
		if got := r.IntWidth(); got != tt.bits {
			t.Errorf("i%d: IntWidth() = %d", tt.bits, got)
		}
		v.Release()
	}
}

func TestValue_SetIntValue(t *testing.T) {
	f, _ := newFactory(t)
	v := f.NewInt(0, types.Int128, false)
	defer v.Release()

	r := v.Ref()
	want := Uint128{Lo: 0x1122334455667788, Hi: 0x99}
	r.SetIntValue(want, 16)
	if got := r.Int(); got != want {
		t.Errorf("Int() = %+v, want %+v", got, want)
	}
	if r.IntWidthBytes() != 16 {
		t.Errorf("IntWidthBytes() = %d", r.IntWidthBytes())
	}
}

func TestValue_FromBytes(t *testing.T) {
	f, _ := newFactory(t)
	v := f.FromBytes([]byte{0x01, 0x02, 0x03})
	defer v.Release()

	r := v.Ref()
	if r.IntWidth() != 24 || r.IntWidthBytes() != 3 {
		t.Fatalf("width = %d bits", r.IntWidth())
	}
	if got := r.Int().Uint64(); got != 0x030201 {
		t.Errorf("Int() = %#x", got)
	}

	r.SetBytes([]byte{0xff})
	if got := r.Int().Uint64(); got != 0xff {
		t.Errorf("after SetBytes Int() = %#x", got)
	}

	// Two-word payloads agree with SetIntValue whatever the host order.
	r.SetBytes([]byte{1, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0})
	want := Uint128{Lo: 1, Hi: 2}
	if got := r.Int(); got != want {
		t.Errorf("16-byte payload Int() = %+v, want %+v", got, want)
	}
	r.SetIntValue(want, 16)
	if got := r.Int(); got != want {
		t.Errorf("after SetIntValue Int() = %+v, want %+v", got, want)
	}
}

func TestValue_Void(t *testing.T) {
	f, _ := newFactory(t)
	v := f.NewVoid()
	defer v.Release()
	if got := v.Ref().Int().Uint64(); got != 0 {
		t.Errorf("void payload = %d", got)
	}
}

func TestValue_Floats(t *testing.T) {
	f, _ := newFactory(t)

	f32s := []float32{0, -0, 1.5, math.MaxFloat32, math.SmallestNonzeroFloat32, float32(math.Inf(-1))}
	for _, in := range f32s {
		v := f.NewF32(in)
		if got := v.Ref().F32(); math.Float32bits(got) != math.Float32bits(in) {
			t.Errorf("F32 round trip %v = %v", in, got)
		}
		v.Release()
	}

	f64s := []float64{0, 2.5, math.Pi, math.MaxFloat64, math.Copysign(0, -1)}
	for _, in := range f64s {
		v := f.NewF64(in)
		if got := v.Ref().F64(); math.Float64bits(got) != math.Float64bits(in) {
			t.Errorf("F64 round trip %v = %v", in, got)
		}
		v.Release()
	}

	nan := f.NewF64(math.NaN())
	defer nan.Release()
	if !math.IsNaN(nan.Ref().F64()) {
		t.Error("NaN lost")
	}

	single := f.NewFloat(1.25, types.Float)
	defer single.Release()
	if got := single.Ref().Float(types.Float); got != 1.25 {
		t.Errorf("Float(float) = %v", got)
	}
	double := f.NewFloat(3.75, types.Double)
	defer double.Release()
	if got := double.Ref().Float(types.Double); got != 3.75 {
		t.Errorf("Float(double) = %v", got)
	}
}

func TestValue_FloatWritesAndTagCheck(t *testing.T) {
	f, _ := newFactory(t)
	v := f.NewF64(1)
	defer v.Release()

	r := v.Ref()
	r.SetDoubleValue(9.5)
	r.SetFloatValue(0.5)
	if r.F64() != 9.5 || r.F32() != 0.5 {
		t.Errorf("payloads = %v / %v", r.F64(), r.F32())
	}

	r.SetTypeTag(types.Int32)
	expectFatal(t, gverrors.KindTypeMismatch, func() { r.F64() })
}

func TestValue_Pointers(t *testing.T) {
	f, _ := newFactory(t)

	x := 17
	p := PointerTo(f, &x)
	defer p.Release()
	r := p.Ref()
	r.SetTypeTag(types.Ptr)
	*IntoPointer[int](r) = 18
	if x != 18 {
		t.Errorf("x = %d", x)
	}
	if r.UnsafePointer() != unsafe.Pointer(&x) {
		t.Error("pointer changed")
	}

	mp := MiriPointer{Addr: 0x1000, Prov: native.Provenance{AllocID: 3, Tag: 9}}
	m := f.FromMiriPointer(mp)
	defer m.Release()
	if got := m.Ref().MiriPointer(); got != mp {
		t.Errorf("MiriPointer() = %+v", got)
	}
	m.Ref().SetMiriPointerValue(MiriPointer{Addr: 8})
	if got := m.Ref().MiriPointer(); got.Addr != 8 || got.Prov.AllocID != 0 {
		t.Errorf("after set MiriPointer() = %+v", got)
	}
}

func TestRef_TypeTag(t *testing.T) {
	f, _ := newFactory(t)
	v := f.NewF32(1)
	defer v.Release()

	r := v.Ref()
	if _, ok := r.TypeTag(); ok {
		t.Fatal("fresh value has a tag")
	}
	expectFatal(t, gverrors.KindTagMissing, func() { r.MustTypeTag() })

	r.SetTypeTag(types.Float)
	if tag := r.MustTypeTag(); tag != types.Float {
		t.Errorf("tag = %v", tag)
	}
}

func TestAggregate_RoundTrip(t *testing.T) {
	f, rc := newFactory(t)
	const n = 4

	agg := f.NewAggregate(n)
	r := agg.Ref()
	for i := range n {
		r.Append(f.NewInt(uint64(i*10), types.Int32, false))
	}
	r.SetTypeTag(types.Array(types.Int32, n))

	if got := r.AggregateSize(); got != n {
		t.Fatalf("AggregateSize() = %d", got)
	}
	for i := range uint64(n) {
		field, ok := r.Field(i)
		if !ok {
			t.Fatalf("Field(%d) missing", i)
		}
		if got := field.Int().Uint64(); got != i*10 {
			t.Errorf("Field(%d) = %d", i, got)
		}
		if tag := field.MustTypeTag(); tag != types.Int32 {
			t.Errorf("Field(%d) tag = %v", i, tag)
		}
	}
	if _, ok := r.Field(n); ok {
		t.Error("Field(n) should be absent")
	}
	expectFatal(t, gverrors.KindOutOfBounds, func() { r.MustField(n) })

	live := f.Store().Live()
	agg.Release()
	if f.Store().Live() != live-1 {
		t.Errorf("live after release = %d", f.Store().Live())
	}
	total := 0
	for _, c := range rc.released {
		total += c
	}
	if total != 1 {
		t.Errorf("release events = %d, want 1 (members go with the aggregate)", total)
	}
}

func TestAggregate_Fields(t *testing.T) {
	f, _ := newFactory(t)
	agg := f.NewAggregate(2)
	defer agg.Release()

	r := agg.Ref()
	r.Append(f.NewInt(1, types.Int8, false))
	r.Append(f.NewF64(2.5))

	if _, ok := r.Fields(); ok {
		t.Fatal("Fields on untagged aggregate should fail")
	}
	if _, ok := r.Field(0); ok {
		t.Fatal("Field on untagged aggregate should fail")
	}

	r.SetTypeTag(types.Struct(types.Int8))
	if fields, ok := r.Fields(); ok || fields != nil {
		t.Fatal("Fields with a short struct tag must return nothing")
	}

	r.SetTypeTag(types.Int32)
	if _, ok := r.Field(0); ok {
		t.Fatal("scalar tag is not aggregate-capable")
	}

	r.SetTypeTag(types.Struct(types.Int8, types.Double))
	fields := r.MustFields()
	if len(fields) != 2 {
		t.Fatalf("len(fields) = %d", len(fields))
	}
	if fields[0].Int().Uint64() != 1 || fields[1].F64() != 2.5 {
		t.Errorf("fields = %s", Format(r))
	}
	if got := Format(r); got != "{ i8 1, double 2.5 }" {
		t.Errorf("Format = %q", got)
	}
}

func TestAggregate_FieldAliasing(t *testing.T) {
	f, _ := newFactory(t)
	agg := f.NewAggregate(1)
	defer agg.Release()

	r := agg.Ref()
	r.Append(f.NewF64(1))
	r.SetTypeTag(types.Vector(types.Double, 1))

	a := r.MustField(0)
	b := r.MustField(0)
	a.SetDoubleValue(7)
	if b.F64() != 7 {
		t.Errorf("write through one field view not visible through another: %v", b.F64())
	}
	if got := Format(r); got != "< double 7 >" {
		t.Errorf("Format = %q", got)
	}
}

func TestAggregate_Nested(t *testing.T) {
	f, _ := newFactory(t)
	inner := f.NewAggregate(2)
	inner.Ref().Append(f.NewInt(1, types.Int16, false))
	inner.Ref().Append(f.NewInt(2, types.Int16, false))

	outer := f.NewAggregate(2)
	defer outer.Release()
	r := outer.Ref()
	r.Append(inner)
	r.Append(f.NewF32(0.5))

	pair := types.Array(types.Int16, 2)
	r.SetTypeTag(types.Struct(pair, types.Float))
	if got := Format(r); got != "{ [ i16 1, i16 2 ], float 0.5 }" {
		t.Errorf("Format = %q", got)
	}
	if !inner.Released() {
		t.Error("appended value should be consumed")
	}
	expectFatal(t, gverrors.KindUseAfterRelease, func() { inner.Ref() })
}

func TestAppend_ForeignStore(t *testing.T) {
	f, _ := newFactory(t)
	g, _ := newFactory(t)

	agg := f.NewAggregate(1)
	defer agg.Release()
	v := g.NewF32(1)
	defer v.Release()

	expectFatal(t, gverrors.KindNotOwned, func() { agg.Ref().Append(v) })
	if v.Released() {
		t.Error("rejected append must leave the value owned")
	}
}

func TestAppend_Cycle(t *testing.T) {
	f, _ := newFactory(t)

	outer := f.NewAggregate(1)
	inner := f.NewAggregate(1)
	outer.Ref().Append(inner)
	outer.Ref().SetTypeTag(types.Struct(types.Struct()))
	member := outer.Ref().MustField(0)

	tests := []struct {
		name string
		into Ref
	}{
		{"self", outer.Ref()},
		{"own member", member},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectFatal(t, gverrors.KindInvalidInput, func() { tt.into.Append(outer) })
			if outer.Released() {
				t.Fatal("rejected append must leave the value owned")
			}
			if n := f.Store().Live(); n != 1 {
				t.Fatalf("live = %d, want 1", n)
			}
		})
	}

	outer.Release()
	if n := f.Store().Live(); n != 0 {
		t.Errorf("live after release = %d, want 0", n)
	}
}

func TestValue_IntoRawFromRaw(t *testing.T) {
	f, rc := newFactory(t)

	v := f.NewInt(9, types.Int64, false)
	view := v.Ref()
	cell := v.IntoRaw()
	h := rc.released

	v.Release()
	if len(h) != 0 {
		t.Fatalf("Release after IntoRaw released the handle: %v", h)
	}
	expectFatal(t, gverrors.KindUseAfterRelease, func() { view.Int() })

	back := FromRaw(f.Store(), cell)
	if back.Ref().Int().Uint64() != 9 {
		t.Fatal("payload lost across IntoRaw/FromRaw")
	}
	back.Release()
	back.Release()

	total := 0
	for _, c := range rc.released {
		total += c
	}
	if total != 1 {
		t.Errorf("release events = %d, want 1", total)
	}
}

func TestFromRaw_Rejects(t *testing.T) {
	f, _ := newFactory(t)

	expectFatal(t, gverrors.KindNilPointer, func() { FromRaw(f.Store(), nil) })

	agg := f.NewAggregate(1)
	defer agg.Release()
	member := f.NewF32(1)
	cell := member.Ref().Raw()
	agg.Ref().Append(member)
	expectFatal(t, gverrors.KindNotOwned, func() { FromRaw(f.Store(), cell) })

	other := native.NewStore()
	defer other.Close()
	loose := f.NewF32(2)
	defer loose.Release()
	expectFatal(t, gverrors.KindNotOwned, func() { FromRaw(other, loose.Ref().Raw()) })
}

func TestRef_UseAfterRelease(t *testing.T) {
	f, _ := newFactory(t)
	v := f.NewF64(1)
	r := v.Ref()
	v.Release()

	if r.Valid() {
		t.Error("view still valid after release")
	}
	expectFatal(t, gverrors.KindUseAfterRelease, func() { r.F64() })
	expectFatal(t, gverrors.KindUseAfterRelease, func() { r.SetDoubleValue(2) })
	expectFatal(t, gverrors.KindUseAfterRelease, func() { v.Ref() })
}

func TestNewRef(t *testing.T) {
	s := native.NewStore()
	defer s.Close()
	cell := s.CreateOfFloatDouble(4)

	r := NewRef(s, cell)
	if r.F64() != 4 || !r.Valid() {
		t.Fatal("unbounded view unusable")
	}
	expectFatal(t, gverrors.KindNilPointer, func() { NewRef(s, nil) })

	arr := NewArrayRef(s, []*native.Cell{cell})
	if arr.Len() != 1 {
		t.Fatalf("Len() = %d", arr.Len())
	}
	if _, ok := arr.At(1); ok {
		t.Error("At(1) should be absent")
	}
	s.Dispose(cell)
}

func TestArrayOf(t *testing.T) {
	f, _ := newFactory(t)
	a := f.NewF32(1)
	b := f.NewF32(2)
	defer b.Release()

	arr := ArrayOf(a, b)
	first, _ := arr.At(0)
	a.Release()
	expectFatal(t, gverrors.KindUseAfterRelease, func() { first.F32() })
	second, _ := arr.At(1)
	if second.F32() != 2 {
		t.Error("second element")
	}
}

func TestGlobalConstructors(t *testing.T) {
	before := native.Global().Live()
	vals := []*Value{
		NewVoid(), NewAggregate(0), NewFloat(1, types.Double), NewF32(1), NewF64(1),
		NewInt(1, types.Bool, false), FromBytes([]byte{1}), FromPointer(nil),
		FromMiriPointer(MiriPointer{}),
	}
	if native.Global().Live() != before+len(vals) {
		t.Fatalf("live = %d", native.Global().Live())
	}
	for _, v := range vals {
		v.Release()
	}
	if native.Global().Live() != before {
		t.Errorf("leaked %d values", native.Global().Live()-before)
	}
}
