// Package native is the execution engine's value store: the untyped,
// handle-based API that generic values are built on.
//
// A *Cell is a resource handle. It carries every payload slot a generic
// value can use (integer words, single and double floats, a host pointer,
// a checker pointer, aggregate members) and an optional type tag, but no
// record of which slot is meaningful. Interpreting a cell is the caller's
// job, normally done through package generic.
//
// Every top-level cell is registered in its Store, which acts as the
// ownership ledger:
//
//	s := native.NewStore()
//	c := s.CreateOfFloatDouble(1.5)
//	s.Dispose(c) // exactly once; a second Dispose panics
//
// Appending a cell to an aggregate moves it out of the ledger; the
// aggregate releases it. PointerToAggregate returns member cells
// themselves, so writes through a member are visible through the parent.
//
// Precondition violations (nil cells, released cells, out-of-range member
// indices) panic with an *errors.Error.
package native
