package native

import (
	"encoding/binary"
	"slices"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/genvalue/errors"
	"github.com/wippyai/genvalue/resource"
	"github.com/wippyai/genvalue/types"
)

// Store is the native context cells are allocated in. It records every
// top-level cell so that each one is released exactly once.
//
// Cell payloads are not synchronized: a cell and the views onto it belong
// to one flow of control at a time.
type Store struct {
	cells *resource.Table[*Cell]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{cells: resource.NewTable[*Cell]()}
}

var global = NewStore()

// Global returns the process-wide store.
func Global() *Store {
	return global
}

func (s *Store) register(c *Cell) *Cell {
	h, err := s.cells.Insert(c)
	if err != nil {
		errors.New(errors.PhaseConstruct, errors.KindInvalidInput).
			Cause(err).
			Detail("store is closed").
			Panic()
	}
	c.state = stateOwned
	c.handle = h
	return c
}

func live(c *Cell, op string) *Cell {
	if c == nil {
		errors.Fatal(errors.NilPointer(errors.PhaseAccess, "*native.Cell"))
	}
	if c.state == stateReleased {
		errors.New(errors.PhaseAccess, errors.KindUseAfterRelease).
			Detail("%s on a released value", op).
			Panic()
	}
	return c
}

// CreateOfData creates an integer cell whose width is 8*len(data) bits and
// whose words are data read as little-endian 64-bit chunks.
func (s *Store) CreateOfData(data []byte) *Cell {
	c := &Cell{}
	c.setInt(packWords(data), uint32(len(data))*8)
	return s.register(c)
}

// CreateAggregate creates an empty aggregate with room for members values.
func (s *Store) CreateAggregate(members uint64) *Cell {
	return s.register(&Cell{aggregate: make([]*Cell, 0, members)})
}

// CreateOfFloat creates a float cell of the declared precision. Only single
// and double precision have a payload slot.
func (s *Store) CreateOfFloat(ft *types.FloatType, v float64) *Cell {
	c := &Cell{}
	storeFloat(c, ft, v)
	return s.register(c)
}

// CreateOfFloatSingle creates a single precision float cell.
func (s *Store) CreateOfFloatSingle(v float32) *Cell {
	return s.register(&Cell{floatVal: v})
}

// CreateOfFloatDouble creates a double precision float cell.
func (s *Store) CreateOfFloatDouble(v float64) *Cell {
	return s.register(&Cell{doubleVal: v})
}

// CreateOfInt creates an integer cell of the declared width. v is sign
// extended when signed is set and the width exceeds 64 bits.
func (s *Store) CreateOfInt(it *types.IntType, v uint64, signed bool) *Cell {
	if it == nil {
		errors.Fatal(errors.NilPointer(errors.PhaseConstruct, "*types.IntType"))
	}
	bits := it.BitWidth()
	words := make([]uint64, wordsFor(bits))
	words[0] = v
	if signed && int64(v) < 0 {
		for i := 1; i < len(words); i++ {
			words[i] = ^uint64(0)
		}
	}
	c := &Cell{}
	c.setInt(words, bits)
	return s.register(c)
}

// CreateOfWords creates an integer cell of the declared width from words
// in host word order. Bits above the width are cleared.
func (s *Store) CreateOfWords(it *types.IntType, words []uint64) *Cell {
	if it == nil {
		errors.Fatal(errors.NilPointer(errors.PhaseConstruct, "*types.IntType"))
	}
	c := &Cell{}
	c.setInt(hostWords(words), it.BitWidth())
	return s.register(c)
}

// CreateOfPointer creates a cell holding a raw host pointer.
func (s *Store) CreateOfPointer(p unsafe.Pointer) *Cell {
	return s.register(&Cell{pointer: p})
}

// CreateOfMiriPointer creates a cell holding a checker pointer.
func (s *Store) CreateOfMiriPointer(p MiriPointer) *Cell {
	return s.register(&Cell{miri: p})
}

// Dispose releases a top-level cell and all members it adopted.
func (s *Store) Dispose(c *Cell) {
	if c == nil {
		errors.Fatal(errors.NilPointer(errors.PhaseConstruct, "*native.Cell"))
	}
	switch c.state {
	case stateReleased:
		errors.New(errors.PhaseConstruct, errors.KindDoubleRelease).
			Detail("value released twice").
			Panic()
	case stateMember:
		errors.New(errors.PhaseConstruct, errors.KindNotOwned).
			Detail("value is owned by an aggregate").
			Panic()
	}

	handle := c.handle
	owned, ok := s.cells.Get(handle)
	if !ok || owned != c {
		errors.New(errors.PhaseConstruct, errors.KindNotOwned).
			Detail("value does not belong to this store").
			Panic()
	}
	s.cells.Release(handle)
	Logger().Debug("generic value released", zap.Stringer("handle", handle))
}

// Owns reports whether c is a live top-level cell of this store.
func (s *Store) Owns(c *Cell) bool {
	if c == nil || c.state != stateOwned {
		return false
	}
	owned, ok := s.cells.Get(c.handle)
	return ok && owned == c
}

// Live returns the number of top-level cells not yet released.
func (s *Store) Live() int {
	return s.cells.Len()
}

// Subscribe registers an observer for created, released and adopted cells.
// Adoption into an aggregate is reported as resource.EventDetached.
func (s *Store) Subscribe(o resource.Observer) {
	s.cells.Subscribe(o)
}

// Close releases every cell still live and rejects further allocation.
func (s *Store) Close() error {
	if n := s.cells.Len(); n > 0 {
		Logger().Warn("store closed with live generic values", zap.Int("live", n))
	}
	return s.cells.Close()
}

// TypeTag returns the cell's tag, or nil when none was set.
func (s *Store) TypeTag(c *Cell) types.Type {
	return live(c, "TypeTag").tag
}

// SetTypeTag attaches a tag to the cell.
func (s *Store) SetTypeTag(c *Cell, t types.Type) {
	live(c, "SetTypeTag").tag = t
}

// IntWidth returns the integer payload width in bits.
func (s *Store) IntWidth(c *Cell) uint32 {
	return live(c, "IntWidth").intWidth
}

// ToInt returns a copy of the integer payload in host word order.
func (s *Store) ToInt(c *Cell) APInt {
	live(c, "ToInt")
	words := c.intVal
	if len(words) == 0 {
		words = []uint64{0}
	}
	return APInt{Words: hostWords(words), Bits: c.intWidth}
}

// SetIntValue overwrites the integer payload with words given in host word
// order, recording a width of 8*nbytes bits.
func (s *Store) SetIntValue(c *Cell, words []uint64, nbytes uint64) {
	live(c, "SetIntValue").setInt(hostWords(words), uint32(nbytes)*8)
}

// SetDataValue overwrites the integer payload with raw bytes.
func (s *Store) SetDataValue(c *Cell, data []byte) {
	live(c, "SetDataValue").setInt(packWords(data), uint32(len(data))*8)
}

// ToFloat reads the float payload of the declared precision.
func (s *Store) ToFloat(ft *types.FloatType, c *Cell) float64 {
	live(c, "ToFloat")
	switch precision(ft) {
	case types.FloatSingle:
		return float64(c.floatVal)
	default:
		return c.doubleVal
	}
}

// ToFloatSingle reads the single precision slot.
func (s *Store) ToFloatSingle(c *Cell) float32 {
	return live(c, "ToFloatSingle").floatVal
}

// ToFloatDouble reads the double precision slot.
func (s *Store) ToFloatDouble(c *Cell) float64 {
	return live(c, "ToFloatDouble").doubleVal
}

// SetFloatValue overwrites the single precision slot.
func (s *Store) SetFloatValue(c *Cell, v float32) {
	live(c, "SetFloatValue").floatVal = v
}

// SetDoubleValue overwrites the double precision slot.
func (s *Store) SetDoubleValue(c *Cell, v float64) {
	live(c, "SetDoubleValue").doubleVal = v
}

// ToPointer returns the raw host pointer slot.
func (s *Store) ToPointer(c *Cell) unsafe.Pointer {
	return live(c, "ToPointer").pointer
}

// ToMiriPointer returns the checker pointer slot.
func (s *Store) ToMiriPointer(c *Cell) MiriPointer {
	return live(c, "ToMiriPointer").miri
}

// SetMiriPointerValue overwrites the checker pointer slot.
func (s *Store) SetMiriPointerValue(c *Cell, p MiriPointer) {
	live(c, "SetMiriPointerValue").miri = p
}

// AppendAggregate moves v into agg. v must be a top-level cell of this
// store; afterwards it is released together with agg and never on its own.
func (s *Store) AppendAggregate(agg, v *Cell) {
	live(agg, "AppendAggregate")
	live(v, "AppendAggregate")
	if !s.Owns(v) {
		errors.New(errors.PhaseAggregate, errors.KindNotOwned).
			Detail("appended value is not an independent value of this store").
			Panic()
	}
	if v.contains(agg) {
		errors.New(errors.PhaseAggregate, errors.KindInvalidInput).
			Detail("value cannot be appended into itself").
			Panic()
	}

	handle := v.handle
	s.cells.Detach(handle)
	v.handle = 0
	v.state = stateMember
	agg.aggregate = append(agg.aggregate, v)
	Logger().Debug("generic value adopted by aggregate",
		zap.Stringer("handle", handle),
		zap.Int("index", len(agg.aggregate)-1))
}

// EnsureCapacity grows the aggregate's capacity to at least n members.
func (s *Store) EnsureCapacity(agg *Cell, n uint64) {
	live(agg, "EnsureCapacity")
	if extra := int(n) - len(agg.aggregate); extra > 0 {
		agg.aggregate = slices.Grow(agg.aggregate, extra)
	}
}

// AggregateLength returns the number of members appended so far.
func (s *Store) AggregateLength(agg *Cell) uint64 {
	return uint64(len(live(agg, "AggregateLength").aggregate))
}

// PointerToAggregate returns member idx itself, not a copy: writes through
// the result are visible through agg.
func (s *Store) PointerToAggregate(agg *Cell, idx uint64) *Cell {
	live(agg, "PointerToAggregate")
	if idx >= uint64(len(agg.aggregate)) {
		errors.Fatal(errors.OutOfBounds(errors.PhaseAggregate, nil, idx, uint64(len(agg.aggregate))))
	}
	return agg.aggregate[idx]
}

func precision(ft *types.FloatType) types.FloatKind {
	if ft == nil {
		errors.Fatal(errors.NilPointer(errors.PhaseAccess, "*types.FloatType"))
	}
	switch p := ft.Precision(); p {
	case types.FloatSingle, types.FloatDouble:
		return p
	default:
		errors.Fatal(errors.Unsupported(errors.PhaseAccess, "no payload slot for "+ft.String()))
		return p
	}
}

func storeFloat(c *Cell, ft *types.FloatType, v float64) {
	if precision(ft) == types.FloatSingle {
		c.floatVal = float32(v)
	} else {
		c.doubleVal = v
	}
}

func packWords(data []byte) []uint64 {
	words := make([]uint64, wordsFor(uint32(len(data))*8))
	var chunk [8]byte
	for i := range words {
		clear(chunk[:])
		copy(chunk[:], data[min(i*8, len(data)):])
		words[i] = binary.LittleEndian.Uint64(chunk[:])
	}
	return words
}
