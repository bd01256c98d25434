package types

import (
	"strconv"
	"strings"
)

// Type is a type tag: the description of a value's shape. Tags are owned by
// whoever built them; values only hold references.
type Type interface {
	Kind() Kind
	String() string
	isType()
}

// IntType is an integer of arbitrary bit width.
type IntType struct {
	bits uint32
}

// Int returns an integer type of the given width. Zero width panics.
func Int(bits uint32) *IntType {
	if bits == 0 {
		panic("types: integer width must be positive")
	}
	return &IntType{bits: bits}
}

var (
	Bool   = Int(1)
	Int8   = Int(8)
	Int16  = Int(16)
	Int32  = Int(32)
	Int64  = Int(64)
	Int128 = Int(128)
)

func (*IntType) isType()            {}
func (*IntType) Kind() Kind         { return KindInt }
func (t *IntType) BitWidth() uint32 { return t.bits }
func (t *IntType) String() string   { return "i" + strconv.FormatUint(uint64(t.bits), 10) }

// FloatType is a floating point type of a fixed precision.
type FloatType struct {
	kind FloatKind
}

var (
	Half     = &FloatType{kind: FloatHalf}
	Float    = &FloatType{kind: FloatSingle}
	Double   = &FloatType{kind: FloatDouble}
	X86FP80  = &FloatType{kind: FloatX86FP80}
	FP128    = &FloatType{kind: FloatFP128}
	PPCFP128 = &FloatType{kind: FloatPPCFP128}
)

func (*FloatType) isType()                {}
func (*FloatType) Kind() Kind             { return KindFloat }
func (t *FloatType) Precision() FloatKind { return t.kind }
func (t *FloatType) BitWidth() uint32     { return floatBits[t.kind] }
func (t *FloatType) String() string       { return t.kind.String() }

// PointerType is an opaque pointer in an address space.
type PointerType struct {
	addressSpace uint32
}

// Pointer returns a pointer type in the given address space.
func Pointer(addressSpace uint32) *PointerType {
	return &PointerType{addressSpace: addressSpace}
}

// Ptr is a pointer in the default address space.
var Ptr = Pointer(0)

func (*PointerType) isType()                {}
func (*PointerType) Kind() Kind             { return KindPointer }
func (t *PointerType) AddressSpace() uint32 { return t.addressSpace }

func (t *PointerType) String() string {
	if t.addressSpace == 0 {
		return "ptr"
	}
	return "ptr addrspace(" + strconv.FormatUint(uint64(t.addressSpace), 10) + ")"
}

// StructType is a sequence of heterogeneous fields.
type StructType struct {
	name   string
	fields []Type
	packed bool
}

// Struct returns an unnamed, unpacked struct type.
func Struct(fields ...Type) *StructType {
	return &StructType{fields: append([]Type(nil), fields...)}
}

// NamedStruct returns a struct type with a name and packing flag.
func NamedStruct(name string, packed bool, fields ...Type) *StructType {
	return &StructType{name: name, packed: packed, fields: append([]Type(nil), fields...)}
}

func (*StructType) isType()          {}
func (*StructType) Kind() Kind       { return KindStruct }
func (t *StructType) Name() string   { return t.name }
func (t *StructType) IsPacked() bool { return t.packed }

// CountFields returns the number of fields.
func (t *StructType) CountFields() uint32 { return uint32(len(t.fields)) }

// FieldTypes returns a copy of the field types.
func (t *StructType) FieldTypes() []Type {
	return append([]Type(nil), t.fields...)
}

// FieldTypeAt returns the type of field i.
func (t *StructType) FieldTypeAt(i uint64) (Type, bool) {
	if i >= uint64(len(t.fields)) {
		return nil, false
	}
	return t.fields[i], true
}

func (t *StructType) String() string {
	if t.name != "" {
		return "%" + t.name
	}
	return t.body()
}

func (t *StructType) body() string {
	var b strings.Builder
	if t.packed {
		b.WriteByte('<')
	}
	b.WriteString("{ ")
	for i, f := range t.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.String())
	}
	b.WriteString(" }")
	if t.packed {
		b.WriteByte('>')
	}
	return b.String()
}

// ArrayType is a fixed-length homogeneous sequence.
type ArrayType struct {
	elem Type
	n    uint32
}

// Array returns an array type of n elements.
func Array(elem Type, n uint32) *ArrayType {
	return &ArrayType{elem: elem, n: n}
}

func (*ArrayType) isType()             {}
func (*ArrayType) Kind() Kind          { return KindArray }
func (t *ArrayType) ElementType() Type { return t.elem }
func (t *ArrayType) Len() uint32       { return t.n }

func (t *ArrayType) String() string {
	return "[" + strconv.FormatUint(uint64(t.n), 10) + " x " + t.elem.String() + "]"
}

// VectorType is a fixed-length SIMD vector of scalars.
type VectorType struct {
	elem Type
	n    uint32
}

// Vector returns a vector type of n scalar elements.
func Vector(elem Type, n uint32) *VectorType {
	if !elem.Kind().IsScalar() {
		panic("types: vector elements must be scalar")
	}
	return &VectorType{elem: elem, n: n}
}

func (*VectorType) isType()             {}
func (*VectorType) Kind() Kind          { return KindVector }
func (t *VectorType) ElementType() Type { return t.elem }
func (t *VectorType) Len() uint32       { return t.n }

func (t *VectorType) String() string {
	return "<" + strconv.FormatUint(uint64(t.n), 10) + " x " + t.elem.String() + ">"
}

// IsAggregate reports whether t decomposes into indexed fields.
func IsAggregate(t Type) bool {
	return t != nil && t.Kind().IsAggregate()
}

// FieldType returns the type of field i of an aggregate tag: the struct
// field at i, or the element type of an array or vector. Array and vector
// element types do not depend on i; bounds are the caller's concern.
func FieldType(t Type, i uint64) (Type, bool) {
	switch tt := t.(type) {
	case *StructType:
		return tt.FieldTypeAt(i)
	case *ArrayType:
		return tt.elem, true
	case *VectorType:
		return tt.elem, true
	default:
		return nil, false
	}
}

// Equal reports whether a and b describe the same shape.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}
	switch at := a.(type) {
	case *IntType:
		bt, ok := b.(*IntType)
		return ok && at.bits == bt.bits
	case *FloatType:
		bt, ok := b.(*FloatType)
		return ok && at.kind == bt.kind
	case *PointerType:
		bt, ok := b.(*PointerType)
		return ok && at.addressSpace == bt.addressSpace
	case *StructType:
		bt, ok := b.(*StructType)
		if !ok || at.name != bt.name || at.packed != bt.packed || len(at.fields) != len(bt.fields) {
			return false
		}
		for i := range at.fields {
			if !Equal(at.fields[i], bt.fields[i]) {
				return false
			}
		}
		return true
	case *ArrayType:
		bt, ok := b.(*ArrayType)
		return ok && at.n == bt.n && Equal(at.elem, bt.elem)
	case *VectorType:
		bt, ok := b.(*VectorType)
		return ok && at.n == bt.n && Equal(at.elem, bt.elem)
	}
	return false
}
