package types

import "math/bits"

// Info is the in-memory placement of a type.
type Info struct {
	FieldOffs []uint32 // struct field offsets, nil for other kinds
	Size      uint32
	Align     uint32
}

// Layout computes sizes and alignments of tags for a target with the given
// pointer width. Results for struct tags are cached; a Layout is not safe
// for concurrent use.
type Layout struct {
	cache       map[*StructType]Info
	pointerSize uint32
}

// NewLayout creates a layout for pointerSize-byte pointers (4 on wasm32).
func NewLayout(pointerSize uint32) *Layout {
	return &Layout{
		cache:       make(map[*StructType]Info),
		pointerSize: pointerSize,
	}
}

// AlignTo rounds offset up to a multiple of align (a power of two).
func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

func nextPow2(n uint32) uint32 {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len32(n-1)
}

// PointerSize returns the pointer width in bytes.
func (l *Layout) PointerSize() uint32 {
	return l.pointerSize
}

// Calculate returns the placement of t.
func (l *Layout) Calculate(t Type) Info {
	switch typ := t.(type) {
	case *IntType:
		size := nextPow2((typ.bits + 7) / 8)
		return Info{Size: size, Align: min(size, 16)}
	case *FloatType:
		switch typ.kind {
		case FloatHalf:
			return Info{Size: 2, Align: 2}
		case FloatSingle:
			return Info{Size: 4, Align: 4}
		case FloatDouble:
			return Info{Size: 8, Align: 8}
		default:
			return Info{Size: 16, Align: 16}
		}
	case *PointerType:
		return Info{Size: l.pointerSize, Align: l.pointerSize}
	case *StructType:
		return l.calculateStruct(typ)
	case *ArrayType:
		elem := l.Calculate(typ.elem)
		return Info{Size: elem.Size * typ.n, Align: elem.Align}
	case *VectorType:
		elem := l.Calculate(typ.elem)
		align := min(nextPow2(elem.Size*typ.n), 16)
		return Info{Size: AlignTo(elem.Size*typ.n, align), Align: align}
	default:
		return Info{Size: 0, Align: 1}
	}
}

func (l *Layout) calculateStruct(s *StructType) Info {
	if cached, ok := l.cache[s]; ok {
		return cached
	}

	offs := make([]uint32, len(s.fields))
	maxAlign := uint32(1)
	offset := uint32(0)

	for i, field := range s.fields {
		fieldLayout := l.Calculate(field)
		if !s.packed {
			offset = AlignTo(offset, fieldLayout.Align)
			maxAlign = max(maxAlign, fieldLayout.Align)
		}
		offs[i] = offset
		offset += fieldLayout.Size
	}

	info := Info{
		Size:      AlignTo(offset, maxAlign),
		Align:     maxAlign,
		FieldOffs: offs,
	}
	l.cache[s] = info
	return info
}

// FieldOffset returns the byte offset of field i within an aggregate tag.
func (l *Layout) FieldOffset(t Type, i uint64) (uint32, bool) {
	switch typ := t.(type) {
	case *StructType:
		info := l.calculateStruct(typ)
		if i >= uint64(len(info.FieldOffs)) {
			return 0, false
		}
		return info.FieldOffs[i], true
	case *ArrayType:
		if i >= uint64(typ.n) {
			return 0, false
		}
		return l.Calculate(typ.elem).Size * uint32(i), true
	case *VectorType:
		if i >= uint64(typ.n) {
			return 0, false
		}
		return l.Calculate(typ.elem).Size * uint32(i), true
	default:
		return 0, false
	}
}
