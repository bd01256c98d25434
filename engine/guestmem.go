package engine

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/wippyai/genvalue"
	"github.com/wippyai/genvalue/errors"
	"github.com/wippyai/genvalue/generic"
	"github.com/wippyai/genvalue/native"
	"github.com/wippyai/genvalue/types"
)

// marshaler moves tagged value trees between guest memory and a store
// using a target layout. Failures are fatal *errors.Error panics; the
// exported entry points recover them.
type marshaler struct {
	mem     genvalue.Memory
	layout  *types.Layout
	factory generic.Factory
}

func (m *marshaler) read(ptr, size uint32, path []string) []byte {
	b, err := m.mem.Read(ptr, size)
	if err != nil {
		errors.New(errors.PhaseRuntime, errors.KindOutOfBounds).
			Path(path...).
			Cause(err).
			Detail("read %d bytes at %#x", size, ptr).
			Panic()
	}
	return b
}

func (m *marshaler) write(ptr uint32, data []byte, path []string) {
	if err := m.mem.Write(ptr, data); err != nil {
		errors.New(errors.PhaseRuntime, errors.KindOutOfBounds).
			Path(path...).
			Cause(err).
			Detail("write %d bytes at %#x", len(data), ptr).
			Panic()
	}
}

// load builds an owned value of type t from the bytes at ptr.
func (m *marshaler) load(ptr uint32, t types.Type, path []string) *generic.Value {
	info := m.layout.Calculate(t)

	var v *generic.Value
	switch typ := t.(type) {
	case *types.IntType:
		if typ.BitWidth() > 128 {
			errors.Fatal(errors.Overflow(errors.PhaseRuntime, path, typ.BitWidth(), "i128"))
		}
		b := m.read(ptr, info.Size, path)
		var buf [16]byte
		copy(buf[:], b)
		v = m.factory.NewWideInt(generic.Uint128{
			Lo: binary.LittleEndian.Uint64(buf[:8]),
			Hi: binary.LittleEndian.Uint64(buf[8:]),
		}, typ)
	case *types.FloatType:
		b := m.read(ptr, info.Size, path)
		switch typ.Precision() {
		case types.FloatSingle:
			v = m.factory.NewF32(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		case types.FloatDouble:
			v = m.factory.NewF64(math.Float64frombits(binary.LittleEndian.Uint64(b)))
		default:
			errors.Fatal(errors.Unsupported(errors.PhaseRuntime, "no payload slot for "+typ.String()))
		}
	case *types.PointerType:
		v = m.factory.FromMiriPointer(native.MiriPointer{Addr: m.readPointer(ptr, path)})
	case *types.StructType, *types.ArrayType, *types.VectorType:
		v = m.loadAggregate(ptr, t, path)
	default:
		errors.Fatal(errors.Unsupported(errors.PhaseRuntime, "cannot load "+t.String()))
	}
	v.Ref().SetTypeTag(t)
	return v
}

func (m *marshaler) readPointer(ptr uint32, path []string) uint64 {
	b := m.read(ptr, m.layout.PointerSize(), path)
	if len(b) == 8 {
		return binary.LittleEndian.Uint64(b)
	}
	return uint64(binary.LittleEndian.Uint32(b))
}

func (m *marshaler) loadAggregate(ptr uint32, t types.Type, path []string) *generic.Value {
	n := memberCount(t)
	agg := m.factory.NewAggregate(n)
	for i := range n {
		ft, _ := types.FieldType(t, i)
		off, _ := m.layout.FieldOffset(t, i)
		member := m.loadMember(ptr+off, ft, append(path, strconv.FormatUint(i, 10)), agg)
		agg.Ref().Append(member)
	}
	return agg
}

// loadMember loads one member and releases the partially built parent if
// that fails.
func (m *marshaler) loadMember(ptr uint32, t types.Type, path []string, parent *generic.Value) (v *generic.Value) {
	ok := false
	defer func() {
		if !ok {
			parent.Release()
		}
	}()
	v = m.load(ptr, t, path)
	ok = true
	return v
}

func memberCount(t types.Type) uint64 {
	switch typ := t.(type) {
	case *types.StructType:
		return uint64(typ.CountFields())
	case *types.ArrayType:
		return uint64(typ.Len())
	case *types.VectorType:
		return uint64(typ.Len())
	default:
		return 0
	}
}

// store writes the tagged tree r at ptr.
func (m *marshaler) store(ptr uint32, r generic.Ref, path []string) {
	t := r.MustTypeTag()
	info := m.layout.Calculate(t)

	switch typ := t.(type) {
	case *types.IntType:
		v := r.Int()
		var buf [16]byte
		binary.LittleEndian.PutUint64(buf[:8], v.Lo)
		binary.LittleEndian.PutUint64(buf[8:], v.Hi)
		m.write(ptr, buf[:min(info.Size, 16)], path)
	case *types.FloatType:
		switch typ.Precision() {
		case types.FloatSingle:
			m.write(ptr, binary.LittleEndian.AppendUint32(nil, math.Float32bits(r.F32())), path)
		case types.FloatDouble:
			m.write(ptr, binary.LittleEndian.AppendUint64(nil, math.Float64bits(r.F64())), path)
		default:
			errors.Fatal(errors.Unsupported(errors.PhaseRuntime, "no payload slot for "+typ.String()))
		}
	case *types.PointerType:
		addr := r.MiriPointer().Addr
		if m.layout.PointerSize() == 8 {
			m.write(ptr, binary.LittleEndian.AppendUint64(nil, addr), path)
		} else {
			m.write(ptr, binary.LittleEndian.AppendUint32(nil, uint32(addr)), path)
		}
	case *types.StructType, *types.ArrayType, *types.VectorType:
		fields := r.MustFields()
		if uint64(len(fields)) != memberCount(t) {
			errors.New(errors.PhaseRuntime, errors.KindInvalidData).
				Path(path...).
				Tag(t.String()).
				Detail("aggregate holds %d members, tag declares %d", len(fields), memberCount(t)).
				Panic()
		}
		for i, f := range fields {
			off, _ := m.layout.FieldOffset(t, uint64(i))
			m.store(ptr+off, f, append(path, strconv.Itoa(i)))
		}
	default:
		errors.Fatal(errors.Unsupported(errors.PhaseRuntime, "cannot store "+t.String()))
	}
}
