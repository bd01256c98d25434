package engine

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/genvalue/errors"
	"github.com/wippyai/genvalue/generic"
	"github.com/wippyai/genvalue/native"
	"github.com/wippyai/genvalue/types"
)

// valueType maps a scalar tag to the core wasm type that carries it.
// Pointers are guest addresses and travel as i32 or i64 by pointer size.
func valueType(t types.Type, ptrSize uint32) (api.ValueType, error) {
	switch typ := t.(type) {
	case *types.IntType:
		switch {
		case typ.BitWidth() <= 32:
			return api.ValueTypeI32, nil
		case typ.BitWidth() <= 64:
			return api.ValueTypeI64, nil
		}
	case *types.FloatType:
		switch typ.Precision() {
		case types.FloatSingle:
			return api.ValueTypeF32, nil
		case types.FloatDouble:
			return api.ValueTypeF64, nil
		}
	case *types.PointerType:
		if ptrSize == 8 {
			return api.ValueTypeI64, nil
		}
		return api.ValueTypeI32, nil
	case nil:
		return 0, errors.NilPointer(errors.PhaseHost, "types.Type")
	}
	return 0, errors.Unsupported(errors.PhaseHost, "no core wasm type carries "+t.String())
}

func valueTypes(ts []types.Type, ptrSize uint32) ([]api.ValueType, error) {
	out := make([]api.ValueType, len(ts))
	for i, t := range ts {
		vt, err := valueType(t, ptrSize)
		if err != nil {
			return nil, err
		}
		out[i] = vt
	}
	return out, nil
}

// tagFor is the default tag of a core wasm value.
func tagFor(vt api.ValueType) (types.Type, bool) {
	switch vt {
	case api.ValueTypeI32:
		return types.Int32, true
	case api.ValueTypeI64:
		return types.Int64, true
	case api.ValueTypeF32:
		return types.Float, true
	case api.ValueTypeF64:
		return types.Double, true
	default:
		return nil, false
	}
}

// liftCell creates a tagged cell in store holding the raw stack word.
func liftCell(store *native.Store, t types.Type, raw uint64) *native.Cell {
	var c *native.Cell
	switch typ := t.(type) {
	case *types.IntType:
		c = store.CreateOfInt(typ, raw, false)
	case *types.FloatType:
		if typ.Precision() == types.FloatSingle {
			c = store.CreateOfFloatSingle(api.DecodeF32(raw))
		} else {
			c = store.CreateOfFloatDouble(api.DecodeF64(raw))
		}
	case *types.PointerType:
		c = store.CreateOfMiriPointer(native.MiriPointer{Addr: raw})
	default:
		errors.Fatal(errors.Unsupported(errors.PhaseRuntime, "cannot lift "+t.String()))
	}
	store.SetTypeTag(c, t)
	return c
}

// lower reads r as t and encodes it as a stack word. Integers are
// truncated to the width of t.
func lower(r generic.Ref, t types.Type) uint64 {
	switch typ := t.(type) {
	case *types.IntType:
		v := r.Int().Lo
		if w := typ.BitWidth(); w < 64 {
			v &= 1<<w - 1
		}
		return v
	case *types.FloatType:
		if typ.Precision() == types.FloatSingle {
			return api.EncodeF32(r.F32())
		}
		return api.EncodeF64(r.F64())
	case *types.PointerType:
		return r.MiriPointer().Addr
	default:
		errors.Fatal(errors.Unsupported(errors.PhaseRuntime, "cannot lower "+t.String()))
		return 0
	}
}

// compatible reports whether a value tagged have can be passed where the
// guest expects vt.
func compatible(have types.Type, vt api.ValueType, ptrSize uint32) bool {
	want, err := valueType(have, ptrSize)
	return err == nil && want == vt
}
