// Package generic provides owned and borrowed access to generic values.
//
// A Value owns one native value and releases it exactly once. A Ref is a
// view that never releases; refs obtained from a Value are bound to it and
// panic if used after the Value is released or hands off its handle with
// IntoRaw.
//
// Native values carry no shape. A type tag, attached with SetTypeTag,
// tells shape-dependent operations how to read the payload and how to
// decompose aggregates:
//
//	agg := generic.NewAggregate(2)
//	defer agg.Release()
//	r := agg.Ref()
//	r.Append(generic.NewInt(7, types.Int32, false))
//	r.Append(generic.NewF64(2.5))
//	r.SetTypeTag(types.Struct(types.Int32, types.Double))
//	f, _ := r.Field(1) // double 2.5
//
// Field views alias the parent: writes through either are visible through
// both.
//
// Reads check the tag when one is set: reading an int as a float is fatal.
// Writes do not. SetIntValue, SetFloatValue, SetDoubleValue, SetBytes and
// SetMiriPointerValue overwrite the payload whatever the tag says, so a
// caller can leave a value whose content disagrees with its tag.
//
// Recoverable lookups return (T, bool). Precondition violations panic with
// *errors.Error; errors.Recover converts them back to an error.
package generic
