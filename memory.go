package genvalue

// Memory is the view of a guest's linear memory that the value marshaler
// and the stack trace reader work against. Accesses past Size fail.
type Memory interface {
	Read(offset, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	Size() uint32
}

// Allocator hands out guest memory for values stored from the host. Free
// is best effort and reports nothing.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}
