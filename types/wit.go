package types

import (
	"strconv"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/genvalue/errors"
)

// WITMapper converts component-model WIT types into type tags. Mapped
// typedefs are cached so repeated lookups return the same tag.
type WITMapper struct {
	cache map[*wit.TypeDef]Type
}

// NewWITMapper creates an empty mapper.
func NewWITMapper() *WITMapper {
	return &WITMapper{cache: make(map[*wit.TypeDef]Type)}
}

// FromWIT maps a single WIT type without caching across calls.
func FromWIT(t wit.Type) (Type, error) {
	return NewWITMapper().Map(t)
}

// Map returns the type tag for t. Types whose representation lives behind a
// pointer (string, list) or that need a discriminated payload (option,
// result, variant) and resource handles have no tag and are rejected.
func (m *WITMapper) Map(t wit.Type) (Type, error) {
	return m.mapType(t, nil)
}

func (m *WITMapper) mapType(t wit.Type, path []string) (Type, error) {
	switch typ := t.(type) {
	case wit.Bool:
		return Bool, nil
	case wit.U8, wit.S8:
		return Int8, nil
	case wit.U16, wit.S16:
		return Int16, nil
	case wit.U32, wit.S32, wit.Char:
		return Int32, nil
	case wit.U64, wit.S64:
		return Int64, nil
	case wit.F32:
		return Float, nil
	case wit.F64:
		return Double, nil
	case *wit.TypeDef:
		return m.mapTypeDef(typ, path)
	default:
		return nil, errors.New(errors.PhaseTypes, errors.KindUnsupported).
			Path(path...).
			Detail("WIT type %T has no type tag", t).
			Build()
	}
}

func (m *WITMapper) mapTypeDef(td *wit.TypeDef, path []string) (Type, error) {
	if cached, ok := m.cache[td]; ok {
		return cached, nil
	}

	var (
		out Type
		err error
	)

	switch kind := td.Kind.(type) {
	case *wit.Record:
		fields := make([]Type, len(kind.Fields))
		for i, f := range kind.Fields {
			if fields[i], err = m.mapType(f.Type, append(path, f.Name)); err != nil {
				return nil, err
			}
		}
		name := ""
		if td.Name != nil {
			name = *td.Name
		}
		out = NamedStruct(name, false, fields...)
	case *wit.Tuple:
		fields := make([]Type, len(kind.Types))
		for i, ft := range kind.Types {
			if fields[i], err = m.mapType(ft, append(path, strconv.Itoa(i))); err != nil {
				return nil, err
			}
		}
		out = Struct(fields...)
	case *wit.Enum:
		out = discriminant(len(kind.Cases))
	case *wit.Flags:
		out = flagsType(len(kind.Flags))
	case wit.Type:
		if out, err = m.mapType(kind, path); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New(errors.PhaseTypes, errors.KindUnsupported).
			Path(path...).
			Detail("WIT %T has no type tag", td.Kind).
			Build()
	}

	m.cache[td] = out
	return out, nil
}

func discriminant(cases int) Type {
	switch {
	case cases <= 1<<8:
		return Int8
	case cases <= 1<<16:
		return Int16
	default:
		return Int32
	}
}

func flagsType(n int) Type {
	switch {
	case n <= 8:
		return Int8
	case n <= 16:
		return Int16
	case n <= 32:
		return Int32
	case n <= 64:
		return Int64
	default:
		return Array(Int32, uint32((n+31)/32))
	}
}
