package generic

import (
	"encoding/binary"
	"math/big"
	"strconv"

	"github.com/wippyai/genvalue/errors"
)

// Uint128 is an unsigned 128-bit integer.
type Uint128 struct {
	Lo, Hi uint64
}

// Uint128From64 widens v to 128 bits.
func Uint128From64(v uint64) Uint128 {
	return Uint128{Lo: v}
}

// IsUint64 reports whether u fits in 64 bits.
func (u Uint128) IsUint64() bool {
	return u.Hi == 0
}

// Uint64 returns the low 64 bits.
func (u Uint128) Uint64() uint64 {
	return u.Lo
}

// Big returns u as a big.Int.
func (u Uint128) Big() *big.Int {
	b := new(big.Int).SetUint64(u.Hi)
	b.Lsh(b, 64)
	return b.Or(b, new(big.Int).SetUint64(u.Lo))
}

func (u Uint128) String() string {
	if u.Hi == 0 {
		return strconv.FormatUint(u.Lo, 10)
	}
	return u.Big().String()
}

var littleEndianHost = func() bool {
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], 1)
	return b[0] == 1
}()

// DecodeWideInt interprets one or two 64-bit words as an unsigned integer.
// Two words are concatenated in host byte order. More than two words
// cannot be represented and are fatal.
func DecodeWideInt(words []uint64) Uint128 {
	switch len(words) {
	case 1:
		return Uint128{Lo: words[0]}
	case 2:
		if littleEndianHost {
			return Uint128{Lo: words[0], Hi: words[1]}
		}
		return Uint128{Hi: words[0], Lo: words[1]}
	default:
		errors.New(errors.PhaseCodec, errors.KindOverflow).
			Value(len(words)).
			Detail("wide integers are limited to 128 bits, got %d words", len(words)).
			Panic()
		return Uint128{}
	}
}

// EncodeWideInt splits v into exactly two 64-bit words in host byte order,
// regardless of how many bits are significant.
func EncodeWideInt(v Uint128) []uint64 {
	if littleEndianHost {
		return []uint64{v.Lo, v.Hi}
	}
	return []uint64{v.Hi, v.Lo}
}
