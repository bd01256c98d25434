package native

import (
	"encoding/binary"
	"slices"
	"unsafe"

	"github.com/wippyai/genvalue/resource"
	"github.com/wippyai/genvalue/types"
)

// Provenance identifies the allocation a checker pointer was derived from.
type Provenance struct {
	AllocID uint64
	Tag     uint64
}

// MiriPointer is the memory-safety checker's pointer representation: an
// address plus the provenance the checker tracks for it.
type MiriPointer struct {
	Addr uint64
	Prov Provenance
}

// APInt is a view of an arbitrary-width integer payload as 64-bit words in
// host word order: least significant word first on little-endian hosts,
// most significant first on big-endian ones.
type APInt struct {
	Words []uint64
	Bits  uint32
}

type cellState uint8

const (
	stateOwned    cellState = iota // top-level, registered in its store
	stateMember                    // adopted by an aggregate
	stateReleased                  // disposed; any further use is fatal
)

// Cell is one generic value. It holds every payload slot at once and no
// record of which one is meaningful; the attached tag (if any) is the only
// shape information.
type Cell struct {
	tag       types.Type
	pointer   unsafe.Pointer
	intVal    []uint64
	aggregate []*Cell
	doubleVal float64
	miri      MiriPointer
	handle    resource.Handle
	intWidth  uint32
	floatVal  float32
	state     cellState
}

func wordsFor(bits uint32) int {
	if bits == 0 {
		return 1
	}
	return int((bits + 63) / 64)
}

var littleEndianHost = func() bool {
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], 1)
	return b[0] == 1
}()

// hostWords converts between the cell's least significant first layout and
// host word order. It is its own inverse and always returns a copy.
func hostWords(words []uint64) []uint64 {
	out := slices.Clone(words)
	if !littleEndianHost {
		slices.Reverse(out)
	}
	return out
}

// setInt stores words, least significant first, truncated to bits.
func (c *Cell) setInt(words []uint64, bits uint32) {
	n := wordsFor(bits)
	out := make([]uint64, n)
	copy(out, words)
	if rem := bits % 64; rem != 0 {
		out[n-1] &= (uint64(1) << rem) - 1
	}
	c.intVal = out
	c.intWidth = bits
}

// Drop releases the cell and every member it adopted. Called by the
// store's table exactly once per top-level cell.
func (c *Cell) Drop() {
	for _, m := range c.aggregate {
		m.Drop()
	}
	*c = Cell{state: stateReleased}
}

// contains reports whether target is c or one of its transitive members.
func (c *Cell) contains(target *Cell) bool {
	if c == target {
		return true
	}
	for _, m := range c.aggregate {
		if m.contains(target) {
			return true
		}
	}
	return false
}
