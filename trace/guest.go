package trace

import (
	"encoding/binary"
	"strconv"

	"github.com/wippyai/genvalue"
	"github.com/wippyai/genvalue/errors"
)

// FrameRecordSize is the size of one frame record in guest memory:
// dir_ptr, dir_len, file_ptr, file_len, line, column, each a
// little-endian u32.
const FrameRecordSize = 24

// MaxFrames bounds the number of records a single report may carry.
const MaxFrames = 4096

// ReadFrames decodes count frame records starting at ptr.
func ReadFrames(mem genvalue.Memory, ptr, count uint32) ([]Item, error) {
	if count == 0 {
		return nil, nil
	}
	if count > MaxFrames {
		return nil, errors.New(errors.PhaseTrace, errors.KindOverflow).
			Value(count).
			Detail("%d frames exceeds the limit of %d", count, MaxFrames).
			Build()
	}

	size := uint64(count) * FrameRecordSize
	if uint64(ptr)+size > 1<<32 {
		return nil, errors.OutOfBounds(errors.PhaseTrace, []string{"frames"}, uint64(ptr)+size, 1<<32)
	}
	if limit := uint64(mem.Size()); uint64(ptr)+size > limit {
		return nil, errors.OutOfBounds(errors.PhaseTrace, []string{"frames"}, uint64(ptr)+size, limit)
	}
	records, err := mem.Read(ptr, uint32(size))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseTrace, errors.KindOutOfBounds, err, "read frame records")
	}

	items := make([]Item, count)
	for i := range items {
		rec := records[i*FrameRecordSize : (i+1)*FrameRecordSize]
		dir, err := readBytes(mem, binary.LittleEndian.Uint32(rec[0:]), binary.LittleEndian.Uint32(rec[4:]))
		if err != nil {
			return nil, framePathError(i, "directory", err)
		}
		file, err := readBytes(mem, binary.LittleEndian.Uint32(rec[8:]), binary.LittleEndian.Uint32(rec[12:]))
		if err != nil {
			return nil, framePathError(i, "file", err)
		}
		items[i] = NewItem(dir, file,
			binary.LittleEndian.Uint32(rec[16:]),
			binary.LittleEndian.Uint32(rec[20:]))
	}
	return items, nil
}

// ReadLabel reads the instruction label. A zero length means no label.
func ReadLabel(mem genvalue.Memory, ptr, length uint32) (*string, error) {
	if length == 0 {
		return nil, nil
	}
	b, err := readBytes(mem, ptr, length)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseTrace, errors.KindOutOfBounds, err, "read label")
	}
	label := decode(b)
	return &label, nil
}

// ReadStackTrace reads a label and its frames in one step.
func ReadStackTrace(mem genvalue.Memory, labelPtr, labelLen, framesPtr, count uint32) (*StackTrace, error) {
	label, err := ReadLabel(mem, labelPtr, labelLen)
	if err != nil {
		return nil, err
	}
	items, err := ReadFrames(mem, framesPtr, count)
	if err != nil {
		return nil, err
	}
	return FromItems(label, items), nil
}

func readBytes(mem genvalue.Memory, ptr, length uint32) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	b, err := mem.Read(ptr, length)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func framePathError(i int, part string, cause error) error {
	return errors.New(errors.PhaseTrace, errors.KindOutOfBounds).
		Path("frames", strconv.Itoa(i), part).
		Cause(cause).
		Detail("read %s name", part).
		Build()
}
