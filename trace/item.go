package trace

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/text/encoding/unicode"
)

// RawFrame is one location record as the checker hands it over: two
// byte buffers with explicit lengths, neither guaranteed to be NUL
// terminated or valid UTF-8.
type RawFrame struct {
	Directory    *byte
	DirectoryLen uint64
	File         *byte
	FileLen      uint64
	Line         uint32
	Column       uint32
}

// Item is one decoded source location. Line and Column are passed through
// as reported, including zero.
type Item struct {
	File   string `cbor:"1,keyasint"`
	Line   uint32 `cbor:"2,keyasint"`
	Column uint32 `cbor:"3,keyasint"`
}

// FromRaw decodes a raw frame. The buffers are copied; the frame may be
// freed afterwards.
func FromRaw(f *RawFrame) Item {
	return NewItem(rawBytes(f.Directory, f.DirectoryLen), rawBytes(f.File, f.FileLen), f.Line, f.Column)
}

// NewItem decodes directory and file names and joins them.
func NewItem(dir, file []byte, line, column uint32) Item {
	return Item{
		File:   joinPath(decode(dir), decode(file)),
		Line:   line,
		Column: column,
	}
}

func rawBytes(p *byte, n uint64) []byte {
	if p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice(p, n)
}

// decode converts b to a string, replacing invalid UTF-8 with U+FFFD.
func decode(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}

// joinPath appends file to dir. An absolute file replaces dir entirely.
// The result is not cleaned.
func joinPath(dir, file string) string {
	switch {
	case dir == "":
		return file
	case file == "":
		return dir
	case filepath.IsAbs(file):
		return file
	case os.IsPathSeparator(dir[len(dir)-1]):
		return dir + file
	default:
		return dir + string(filepath.Separator) + file
	}
}

// canonicalize resolves p to an absolute path with symlinks evaluated. It
// returns p unchanged when that fails, e.g. for a file that no longer
// exists.
func canonicalize(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return p
	}
	return resolved
}

// String renders the item as path:line:column.
func (it Item) String() string {
	return canonicalize(it.File) + ":" +
		strconv.FormatUint(uint64(it.Line), 10) + ":" +
		strconv.FormatUint(uint64(it.Column), 10)
}
