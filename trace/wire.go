package trace

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Canonical mode keeps encodings of equal traces byte-identical.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a trace to CBOR. Paths are stored as decoded, not
// canonicalized; the receiver resolves them against its own filesystem.
func Marshal(st *StackTrace) ([]byte, error) {
	return cborEncMode.Marshal(st)
}

// Unmarshal deserializes a trace from CBOR bytes.
func Unmarshal(data []byte) (*StackTrace, error) {
	var st StackTrace
	if err := cbor.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("trace: unmarshal stack trace: %w", err)
	}
	return &st, nil
}
