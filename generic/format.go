package generic

import (
	"fmt"
	"strings"

	"github.com/wippyai/genvalue/types"
)

// Format renders a tagged value in IR-like syntax, e.g. "i32 42" or
// "{ i8 1, double 2.5 }". Untagged values and members render as
// "<untagged>", integers wider than 128 bits as "<too wide>".
func Format(r Ref) string {
	var sb strings.Builder
	format(&sb, r)
	return sb.String()
}

func format(sb *strings.Builder, r Ref) {
	tag, ok := r.TypeTag()
	if !ok {
		sb.WriteString("<untagged>")
		return
	}

	switch t := tag.(type) {
	case *types.IntType:
		if r.IntWidth() > 128 {
			fmt.Fprintf(sb, "%s <too wide>", t)
			return
		}
		fmt.Fprintf(sb, "%s %s", t, r.Int())
	case *types.FloatType:
		switch t.Precision() {
		case types.FloatSingle:
			fmt.Fprintf(sb, "%s %g", t, r.F32())
		case types.FloatDouble:
			fmt.Fprintf(sb, "%s %g", t, r.F64())
		default:
			fmt.Fprintf(sb, "%s ?", t)
		}
	case *types.PointerType:
		if p := r.UnsafePointer(); p != nil {
			fmt.Fprintf(sb, "%s %p", t, p)
		} else {
			fmt.Fprintf(sb, "%s %#x", t, r.MiriPointer().Addr)
		}
	case *types.StructType:
		lhs, rhs := "{ ", " }"
		if t.IsPacked() {
			lhs, rhs = "<{ ", " }>"
		}
		formatMembers(sb, r, lhs, rhs)
	case *types.ArrayType:
		formatMembers(sb, r, "[ ", " ]")
	case *types.VectorType:
		formatMembers(sb, r, "< ", " >")
	default:
		sb.WriteString(tag.String())
	}
}

func formatMembers(sb *strings.Builder, r Ref, lhs, rhs string) {
	fields, ok := r.Fields()
	if !ok {
		sb.WriteString("<untagged>")
		return
	}
	if len(fields) == 0 {
		sb.WriteString(strings.TrimSpace(lhs) + strings.TrimSpace(rhs))
		return
	}
	sb.WriteString(lhs)
	for i, f := range fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		format(sb, f)
	}
	sb.WriteString(rhs)
}
