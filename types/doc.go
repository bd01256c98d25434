// Package types describes the shapes of generic values.
//
// Generic values carry no shape information of their own; a type tag from
// this package is attached to them to make their bytes interpretable. Tags
// are plain immutable descriptions:
//
//	pair := types.Struct(types.Int32, types.Double)
//	vec := types.Vector(types.Float, 4)
//	buf := types.Array(types.Int8, 16)
//
// Aggregate tags answer the questions field navigation needs: FieldType
// returns the struct field type at an index, or the element type of an array
// or vector.
//
// Layout places tags in linear memory (natural alignment, packed structs
// aligned to one byte) and WITMapper derives tags from component-model
// WIT types.
package types
