package generic

import (
	"strconv"
	"unsafe"

	"github.com/wippyai/genvalue/errors"
	"github.com/wippyai/genvalue/native"
	"github.com/wippyai/genvalue/types"
)

// MiriPointer is the checker's pointer representation.
type MiriPointer = native.MiriPointer

// Ref is a non-owning view of a generic value. Copies of a Ref alias the
// same cell, and field views alias memory inside their parent: a write
// through any of them is visible through all of them.
//
// A Ref obtained from a Value is valid only while that Value owns its cell.
// Using it afterwards panics.
type Ref struct {
	cell  *native.Cell
	store *native.Store
	lease *lease
}

// NewRef wraps a raw handle without taking ownership. The caller vouches
// that the cell stays alive for as long as the view is used. A nil store
// means the global store.
func NewRef(store *native.Store, cell *native.Cell) Ref {
	if cell == nil {
		errors.Fatal(errors.NilPointer(errors.PhaseConstruct, "*native.Cell"))
	}
	if store == nil {
		store = native.Global()
	}
	return Ref{cell: cell, store: store}
}

func (r Ref) use(op string) *native.Cell {
	if r.cell == nil {
		errors.Fatal(errors.NilPointer(errors.PhaseAccess, "generic.Ref"))
	}
	r.lease.check(op)
	return r.cell
}

// Valid reports whether the view can still be used.
func (r Ref) Valid() bool {
	return r.cell != nil && (r.lease == nil || !r.lease.ended)
}

// Raw returns the underlying handle.
func (r Ref) Raw() *native.Cell {
	return r.use("Raw")
}

// Store returns the store the value lives in.
func (r Ref) Store() *native.Store {
	return r.store
}

// TypeTag returns the attached tag, if any.
func (r Ref) TypeTag() (types.Type, bool) {
	t := r.store.TypeTag(r.use("TypeTag"))
	return t, t != nil
}

// MustTypeTag returns the attached tag and panics when there is none.
func (r Ref) MustTypeTag() types.Type {
	t, ok := r.TypeTag()
	if !ok {
		errors.Fatal(errors.TagMissing(errors.PhaseAccess, "MustTypeTag"))
	}
	return t
}

// SetTypeTag records the value's shape. Shape-dependent operations need it.
func (r Ref) SetTypeTag(t types.Type) {
	r.store.SetTypeTag(r.use("SetTypeTag"), t)
}

// expect panics when a tag is set and does not have the given kind. An
// untagged value passes: its shape is whatever it was constructed as.
func (r Ref) expect(kind types.Kind, op string) *native.Cell {
	c := r.use(op)
	if t := r.store.TypeTag(c); t != nil && t.Kind() != kind {
		errors.Fatal(errors.TypeMismatch(errors.PhaseAccess, nil, kind.String(), t.String()))
	}
	return c
}

// AggregateSize returns the number of members the aggregate holds.
func (r Ref) AggregateSize() uint64 {
	return r.store.AggregateLength(r.use("AggregateSize"))
}

func (r Ref) fieldType(i uint64) (types.Type, bool) {
	tag, ok := r.TypeTag()
	if !ok {
		return nil, false
	}
	return types.FieldType(tag, i)
}

func (r Ref) field(i uint64, t types.Type) Ref {
	cell := r.store.PointerToAggregate(r.cell, i)
	r.store.SetTypeTag(cell, t)
	return Ref{cell: cell, store: r.store, lease: r.lease}
}

// Field returns a view of member i tagged with its declared type. It
// reports false when the value is untagged, the tag is not a struct, array
// or vector, or i is out of range.
func (r Ref) Field(i uint64) (Ref, bool) {
	ft, ok := r.fieldType(i)
	if !ok || i >= r.AggregateSize() {
		return Ref{}, false
	}
	return r.field(i, ft), true
}

// MustField is Field for call sites that have already established the
// index is valid.
func (r Ref) MustField(i uint64) Ref {
	f, ok := r.Field(i)
	if !ok {
		errors.New(errors.PhaseAggregate, errors.KindOutOfBounds).
			Path(strconv.FormatUint(i, 10)).
			Detail("field index out of bounds").
			Panic()
	}
	return f
}

// Fields returns a view of every member in order. If the type of any member
// cannot be determined it reports false and returns nothing.
func (r Ref) Fields() ([]Ref, bool) {
	n := r.AggregateSize()
	fts := make([]types.Type, n)
	for i := range n {
		ft, ok := r.fieldType(i)
		if !ok {
			return nil, false
		}
		fts[i] = ft
	}

	fields := make([]Ref, n)
	for i, ft := range fts {
		fields[i] = r.field(uint64(i), ft)
	}
	return fields, true
}

// MustFields is Fields for call sites that know the value is a fully
// tagged aggregate.
func (r Ref) MustFields() []Ref {
	fields, ok := r.Fields()
	if !ok {
		errors.Fatal(errors.TagMissing(errors.PhaseAggregate, "MustFields"))
	}
	return fields
}

// IntWidth returns the integer width in bits.
func (r Ref) IntWidth() uint32 {
	return r.store.IntWidth(r.expect(types.KindInt, "IntWidth"))
}

// IntWidthBytes returns the integer width rounded up to whole bytes.
func (r Ref) IntWidthBytes() uint32 {
	return (r.IntWidth() + 7) / 8
}

// Int returns the integer payload. Integers wider than 128 bits are fatal.
func (r Ref) Int() Uint128 {
	ap := r.store.ToInt(r.expect(types.KindInt, "Int"))
	if len(ap.Words) > 2 {
		errors.Fatal(errors.Overflow(errors.PhaseAccess, nil, ap.Bits, "i128"))
	}
	return DecodeWideInt(ap.Words)
}

// Float reads the payload as the given precision.
func (r Ref) Float(ft *types.FloatType) float64 {
	return r.store.ToFloat(ft, r.expect(types.KindFloat, "Float"))
}

// F32 reads the single precision payload.
func (r Ref) F32() float32 {
	return r.store.ToFloatSingle(r.expect(types.KindFloat, "F32"))
}

// F64 reads the double precision payload.
func (r Ref) F64() float64 {
	return r.store.ToFloatDouble(r.expect(types.KindFloat, "F64"))
}

// MiriPointer reads the checker pointer payload.
func (r Ref) MiriPointer() MiriPointer {
	return r.store.ToMiriPointer(r.expect(types.KindPointer, "MiriPointer"))
}

// UnsafePointer reads the host pointer payload.
func (r Ref) UnsafePointer() unsafe.Pointer {
	return r.store.ToPointer(r.expect(types.KindPointer, "UnsafePointer"))
}

// IntoPointer reinterprets the host pointer payload as *T. Nothing checks
// that the pointee is a T.
func IntoPointer[T any](r Ref) *T {
	return (*T)(r.UnsafePointer())
}

// The setters below overwrite raw content without consulting the tag. The
// cell was sized by whoever created it; keeping content and tag consistent
// is the caller's responsibility.

// SetIntValue stores v with a recorded width of nbytes bytes.
func (r Ref) SetIntValue(v Uint128, nbytes uint64) {
	r.store.SetIntValue(r.use("SetIntValue"), EncodeWideInt(v), nbytes)
}

// SetFloatValue stores a single precision payload.
func (r Ref) SetFloatValue(v float32) {
	r.store.SetFloatValue(r.use("SetFloatValue"), v)
}

// SetDoubleValue stores a double precision payload.
func (r Ref) SetDoubleValue(v float64) {
	r.store.SetDoubleValue(r.use("SetDoubleValue"), v)
}

// SetBytes stores raw bytes as the integer payload.
func (r Ref) SetBytes(b []byte) {
	r.store.SetDataValue(r.use("SetBytes"), b)
}

// SetMiriPointerValue stores a checker pointer payload.
func (r Ref) SetMiriPointerValue(p MiriPointer) {
	r.store.SetMiriPointerValue(r.use("SetMiriPointerValue"), p)
}

// Append moves v into this aggregate. v is consumed: it no longer owns
// anything and its views become unusable; the aggregate releases the
// appended value. A rejected append leaves v owned.
func (r Ref) Append(v *Value) {
	agg := r.use("Append")
	if v == nil {
		errors.Fatal(errors.NilPointer(errors.PhaseAggregate, "*generic.Value"))
	}
	if v.ref.store != r.store {
		errors.New(errors.PhaseAggregate, errors.KindNotOwned).
			Detail("appended value belongs to a different store").
			Panic()
	}
	v.active("Append")
	r.store.AppendAggregate(agg, v.ref.cell)
	v.IntoRaw()
}

// EnsureCapacity reserves room for n members.
func (r Ref) EnsureCapacity(n uint64) {
	r.store.EnsureCapacity(r.use("EnsureCapacity"), n)
}
