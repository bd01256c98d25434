package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/genvalue/generic"
	"github.com/wippyai/genvalue/native"
	"github.com/wippyai/genvalue/types"
)

// parseTag parses a scalar tag name: iN, float/f32, double/f64, ptr.
func parseTag(name string) (types.Type, error) {
	switch name {
	case "float", "f32":
		return types.Float, nil
	case "double", "f64":
		return types.Double, nil
	case "ptr":
		return types.Ptr, nil
	case "bool":
		return types.Bool, nil
	}
	if bits, ok := strings.CutPrefix(name, "i"); ok {
		n, err := strconv.ParseUint(bits, 10, 32)
		if err == nil && n > 0 && n <= 64 {
			return types.Int(uint32(n)), nil
		}
	}
	return nil, fmt.Errorf("unknown type %q (want i1..i64, f32, f64 or ptr)", name)
}

// parseValue creates a tagged value of type t from its text form.
func parseValue(f generic.Factory, t types.Type, text string) (*generic.Value, error) {
	text = strings.TrimSpace(text)

	var v *generic.Value
	switch typ := t.(type) {
	case *types.IntType:
		if typ.BitWidth() == 1 {
			switch text {
			case "true":
				text = "1"
			case "false":
				text = "0"
			}
		}
		if strings.HasPrefix(text, "-") {
			n, err := strconv.ParseInt(text, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("parse %s %q: %w", t, text, err)
			}
			v = f.NewInt(uint64(n), typ, true)
		} else {
			n, err := strconv.ParseUint(text, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("parse %s %q: %w", t, text, err)
			}
			v = f.NewInt(n, typ, false)
		}
	case *types.FloatType:
		bits := 64
		if typ.Precision() == types.FloatSingle {
			bits = 32
		}
		x, err := strconv.ParseFloat(text, bits)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", t, text, err)
		}
		v = f.NewFloat(x, typ)
	case *types.PointerType:
		addr, err := strconv.ParseUint(text, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", t, text, err)
		}
		v = f.FromMiriPointer(native.MiriPointer{Addr: addr})
	default:
		return nil, fmt.Errorf("cannot parse %s arguments", t)
	}
	v.Ref().SetTypeTag(t)
	return v, nil
}

// parseArgs parses a comma-separated "type:value" list, e.g.
// "i32:1,f64:2.5". On error nothing is left allocated.
func parseArgs(f generic.Factory, s string) ([]*generic.Value, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var args []*generic.Value
	for _, item := range strings.Split(s, ",") {
		name, text, ok := strings.Cut(item, ":")
		if !ok {
			releaseAll(args)
			return nil, fmt.Errorf("argument %q: want type:value", item)
		}
		t, err := parseTag(strings.TrimSpace(name))
		if err != nil {
			releaseAll(args)
			return nil, err
		}
		v, err := parseValue(f, t, text)
		if err != nil {
			releaseAll(args)
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

func refs(values []*generic.Value) []generic.Ref {
	out := make([]generic.Ref, len(values))
	for i, v := range values {
		out[i] = v.Ref()
	}
	return out
}

func releaseAll(values []*generic.Value) {
	for _, v := range values {
		v.Release()
	}
}
