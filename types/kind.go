package types

// Kind is the shape family of a type tag.
type Kind uint8

const (
	KindInt Kind = iota
	KindFloat
	KindPointer
	KindStruct
	KindArray
	KindVector
)

var kindNames = [...]string{
	KindInt:     "int",
	KindFloat:   "float",
	KindPointer: "pointer",
	KindStruct:  "struct",
	KindArray:   "array",
	KindVector:  "vector",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsScalar reports whether values of this kind occupy a single payload.
func (k Kind) IsScalar() bool {
	return k <= KindPointer
}

// IsAggregate reports whether values of this kind decompose into fields.
func (k Kind) IsAggregate() bool {
	return k == KindStruct || k == KindArray || k == KindVector
}

// FloatKind selects a floating point precision.
type FloatKind uint8

const (
	FloatHalf FloatKind = iota
	FloatSingle
	FloatDouble
	FloatX86FP80
	FloatFP128
	FloatPPCFP128
)

var floatNames = [...]string{
	FloatHalf:     "half",
	FloatSingle:   "float",
	FloatDouble:   "double",
	FloatX86FP80:  "x86_fp80",
	FloatFP128:    "fp128",
	FloatPPCFP128: "ppc_fp128",
}

var floatBits = [...]uint32{
	FloatHalf:     16,
	FloatSingle:   32,
	FloatDouble:   64,
	FloatX86FP80:  80,
	FloatFP128:    128,
	FloatPPCFP128: 128,
}

func (k FloatKind) String() string {
	if int(k) < len(floatNames) {
		return floatNames[k]
	}
	return "unknown"
}
