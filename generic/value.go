package generic

import (
	"unsafe"

	"github.com/wippyai/genvalue/errors"
	"github.com/wippyai/genvalue/native"
	"github.com/wippyai/genvalue/types"
)

// Value owns one native generic value and releases it exactly once.
//
// A Value must not be copied after first use; pass *Value. Views returned by
// Ref stop working once the Value is released or gives up its handle.
type Value struct {
	ref  Ref
	done bool
}

func own(store *native.Store, cell *native.Cell) *Value {
	return &Value{ref: Ref{cell: cell, store: store, lease: &lease{}}}
}

// FromRaw takes ownership of a handle produced outside this package, for
// example one returned by IntoRaw or by the engine. The handle must be a
// live top-level value of store; a nil store means the global store.
func FromRaw(store *native.Store, cell *native.Cell) *Value {
	if cell == nil {
		errors.Fatal(errors.NilPointer(errors.PhaseConstruct, "*native.Cell"))
	}
	if store == nil {
		store = native.Global()
	}
	if !store.Owns(cell) {
		errors.New(errors.PhaseConstruct, errors.KindNotOwned).
			Detail("handle is not an independent live value of this store").
			Panic()
	}
	return own(store, cell)
}

func (v *Value) active(op string) {
	if v.done {
		errors.New(errors.PhaseAccess, errors.KindUseAfterRelease).
			Detail("%s on a value that no longer owns its handle", op).
			Panic()
	}
}

// Ref returns a view of the value bound to its ownership.
func (v *Value) Ref() Ref {
	v.active("Ref")
	return v.ref
}

// IntoRaw gives up ownership and returns the handle. The Value will not
// release it; whoever receives the handle must, usually via FromRaw.
func (v *Value) IntoRaw() *native.Cell {
	v.active("IntoRaw")
	v.done = true
	v.ref.lease.end()
	return v.ref.cell
}

// Release frees the native value. Calling it again is a no-op.
func (v *Value) Release() {
	if v == nil || v.done {
		return
	}
	v.done = true
	v.ref.lease.end()
	v.ref.store.Dispose(v.ref.cell)
}

// Released reports whether the value has been released or handed off.
func (v *Value) Released() bool {
	return v.done
}

// Factory constructs values in one store.
type Factory struct {
	store *native.Store
}

// For returns a factory for store; nil means the global store.
func For(store *native.Store) Factory {
	if store == nil {
		store = native.Global()
	}
	return Factory{store: store}
}

// Store returns the factory's store.
func (f Factory) Store() *native.Store {
	return f.store
}

// NewVoid creates a value with a one-byte zero payload.
func (f Factory) NewVoid() *Value {
	return own(f.store, f.store.CreateOfData([]byte{0}))
}

// NewAggregate creates an empty aggregate with room for n members.
func (f Factory) NewAggregate(n uint64) *Value {
	return own(f.store, f.store.CreateAggregate(n))
}

// NewFloat creates a float of the declared precision.
func (f Factory) NewFloat(v float64, ft *types.FloatType) *Value {
	return own(f.store, f.store.CreateOfFloat(ft, v))
}

// NewF32 creates a single precision float.
func (f Factory) NewF32(v float32) *Value {
	return own(f.store, f.store.CreateOfFloatSingle(v))
}

// NewF64 creates a double precision float.
func (f Factory) NewF64(v float64) *Value {
	return own(f.store, f.store.CreateOfFloatDouble(v))
}

// NewInt creates an integer of the declared width.
func (f Factory) NewInt(v uint64, it *types.IntType, signed bool) *Value {
	return own(f.store, f.store.CreateOfInt(it, v, signed))
}

// NewWideInt creates an integer of the declared width from up to 128 bits.
// Bits above the width are cleared.
func (f Factory) NewWideInt(v Uint128, it *types.IntType) *Value {
	return own(f.store, f.store.CreateOfWords(it, EncodeWideInt(v)))
}

// FromBytes creates an integer whose payload is b.
func (f Factory) FromBytes(b []byte) *Value {
	return own(f.store, f.store.CreateOfData(b))
}

// FromPointer creates a value holding a host pointer. The pointee is not
// retained.
func (f Factory) FromPointer(p unsafe.Pointer) *Value {
	return own(f.store, f.store.CreateOfPointer(p))
}

// FromMiriPointer creates a value holding a checker pointer.
func (f Factory) FromMiriPointer(p MiriPointer) *Value {
	return own(f.store, f.store.CreateOfMiriPointer(p))
}

// PointerTo creates a value holding a pointer to x in f's store.
func PointerTo[T any](f Factory, x *T) *Value {
	return f.FromPointer(unsafe.Pointer(x))
}

var global = For(nil)

// NewVoid creates a void value in the global store.
func NewVoid() *Value { return global.NewVoid() }

// NewAggregate creates an aggregate in the global store.
func NewAggregate(n uint64) *Value { return global.NewAggregate(n) }

// NewFloat creates a float in the global store.
func NewFloat(v float64, ft *types.FloatType) *Value { return global.NewFloat(v, ft) }

// NewF32 creates a single precision float in the global store.
func NewF32(v float32) *Value { return global.NewF32(v) }

// NewF64 creates a double precision float in the global store.
func NewF64(v float64) *Value { return global.NewF64(v) }

// NewInt creates an integer in the global store.
func NewInt(v uint64, it *types.IntType, signed bool) *Value { return global.NewInt(v, it, signed) }

// NewWideInt creates an integer of up to 128 bits in the global store.
func NewWideInt(v Uint128, it *types.IntType) *Value { return global.NewWideInt(v, it) }

// FromBytes creates an integer from raw bytes in the global store.
func FromBytes(b []byte) *Value { return global.FromBytes(b) }

// FromPointer creates a host pointer value in the global store.
func FromPointer(p unsafe.Pointer) *Value { return global.FromPointer(p) }

// FromMiriPointer creates a checker pointer value in the global store.
func FromMiriPointer(p MiriPointer) *Value { return global.FromMiriPointer(p) }
