package engine

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/genvalue"
	"github.com/wippyai/genvalue/errors"
)

// Memory exposes a guest's linear memory as genvalue.Memory. Accesses
// outside the current size fail with an out_of_bounds *errors.Error.
// Slices returned by Read alias guest memory until the guest grows it.
type Memory struct {
	mem api.Memory
}

func wrapMemory(mem api.Memory) *Memory {
	if mem == nil {
		return nil
	}
	return &Memory{mem: mem}
}

func (m *Memory) check(ok bool, op string, offset, n uint32) error {
	if ok {
		return nil
	}
	return errors.New(errors.PhaseRuntime, errors.KindOutOfBounds).
		Value(offset).
		Detail("guest memory %s of %d bytes at %#x (size %d)", op, n, offset, m.mem.Size()).
		Build()
}

func (m *Memory) Read(offset, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	return data, m.check(ok, "read", offset, length)
}

func (m *Memory) Write(offset uint32, data []byte) error {
	return m.check(m.mem.Write(offset, data), "write", offset, uint32(len(data)))
}

func (m *Memory) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.mem.ReadByte(offset)
	return v, m.check(ok, "read", offset, 1)
}

func (m *Memory) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.mem.ReadUint16Le(offset)
	return v, m.check(ok, "read", offset, 2)
}

func (m *Memory) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	return v, m.check(ok, "read", offset, 4)
}

func (m *Memory) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.mem.ReadUint64Le(offset)
	return v, m.check(ok, "read", offset, 8)
}

func (m *Memory) WriteU8(offset uint32, v uint8) error {
	return m.check(m.mem.WriteByte(offset, v), "write", offset, 1)
}

func (m *Memory) WriteU16(offset uint32, v uint16) error {
	return m.check(m.mem.WriteUint16Le(offset, v), "write", offset, 2)
}

func (m *Memory) WriteU32(offset uint32, v uint32) error {
	return m.check(m.mem.WriteUint32Le(offset, v), "write", offset, 4)
}

func (m *Memory) WriteU64(offset uint32, v uint64) error {
	return m.check(m.mem.WriteUint64Le(offset, v), "write", offset, 8)
}

// Size is the current memory size in bytes.
func (m *Memory) Size() uint32 {
	return m.mem.Size()
}

// Names of the guest allocator export, in lookup order.
const (
	CabiRealloc = "cabi_realloc"
	simpleAlloc = "alloc"
	simpleFree  = "dealloc"
)

// allocator calls the guest's allocator export. With cabi_realloc the
// signature is (old_ptr, old_size, align, new_size) -> ptr and freeing is a
// realloc to size zero; the simple form is alloc(size) -> ptr with an
// optional dealloc(ptr, size).
type allocator struct {
	ctx     context.Context
	allocFn api.Function
	freeFn  api.Function
	realloc bool
}

func newAllocator(mod api.Module) *allocator {
	if fn := mod.ExportedFunction(CabiRealloc); fn != nil && len(fn.Definition().ParamTypes()) == 4 {
		return &allocator{allocFn: fn, realloc: true}
	}
	if fn := mod.ExportedFunction(simpleAlloc); fn != nil && len(fn.Definition().ParamTypes()) == 1 {
		return &allocator{allocFn: fn, freeFn: mod.ExportedFunction(simpleFree)}
	}
	return nil
}

func (a *allocator) context() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

// Alloc allocates size bytes aligned to align.
func (a *allocator) Alloc(size, align uint32) (uint32, error) {
	var (
		results []uint64
		err     error
	)
	if a.realloc {
		results, err = a.allocFn.Call(a.context(), 0, 0, uint64(align), uint64(size))
	} else {
		results, err = a.allocFn.Call(a.context(), uint64(size))
	}
	if err != nil {
		return 0, errors.Wrap(errors.PhaseRuntime, errors.KindInvalidData, err, "guest allocator trapped")
	}
	if len(results) == 0 || results[0] == 0 {
		return 0, errors.New(errors.PhaseRuntime, errors.KindInvalidData).
			Subject(a.allocFn.Definition().Name()).
			Detail("guest allocator returned no memory for %d bytes", size).
			Build()
	}
	return uint32(results[0]), nil
}

// Free releases a block obtained from Alloc.
func (a *allocator) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}
	var err error
	switch {
	case a.realloc:
		_, err = a.allocFn.Call(a.context(), uint64(ptr), uint64(size), uint64(align), 0)
	case a.freeFn != nil:
		_, err = a.freeFn.Call(a.context(), uint64(ptr), uint64(size))
	}
	if err != nil {
		Logger().Warn("guest free failed",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}

var (
	_ genvalue.Memory    = (*Memory)(nil)
	_ genvalue.Allocator = (*allocator)(nil)
)
