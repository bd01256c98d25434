package generic

import "github.com/wippyai/genvalue/native"

// ArrayRef is a read-only sequence of views, used for argument lists
// passed to host functions.
type ArrayRef struct {
	refs []Ref
}

// NewArrayRef views raw handles without taking ownership of them.
func NewArrayRef(store *native.Store, cells []*native.Cell) ArrayRef {
	refs := make([]Ref, len(cells))
	for i, c := range cells {
		refs[i] = NewRef(store, c)
	}
	return ArrayRef{refs: refs}
}

// ArrayOf views owned values. Each element stays bound to its owner.
func ArrayOf(values ...*Value) ArrayRef {
	refs := make([]Ref, len(values))
	for i, v := range values {
		refs[i] = v.Ref()
	}
	return ArrayRef{refs: refs}
}

// Len returns the number of elements.
func (a ArrayRef) Len() int {
	return len(a.refs)
}

// At returns element i.
func (a ArrayRef) At(i int) (Ref, bool) {
	if i < 0 || i >= len(a.refs) {
		return Ref{}, false
	}
	return a.refs[i], true
}

// All returns the elements in order.
func (a ArrayRef) All() []Ref {
	return a.refs
}
