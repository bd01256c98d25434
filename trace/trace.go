package trace

import (
	"slices"
	"strings"
)

// StackTrace is a checker fault location: an optional label naming the
// faulting instruction and the frames, innermost first.
type StackTrace struct {
	Label  *string `cbor:"1,keyasint,omitempty"`
	Frames []Item  `cbor:"2,keyasint"`
}

// New decodes every raw frame. Frame order is preserved.
func New(label *string, frames []RawFrame) *StackTrace {
	items := make([]Item, len(frames))
	for i := range frames {
		items[i] = FromRaw(&frames[i])
	}
	return &StackTrace{Label: label, Frames: items}
}

// FromItems builds a trace from already decoded frames.
func FromItems(label *string, items []Item) *StackTrace {
	return &StackTrace{Label: label, Frames: items}
}

// Innermost returns the frame where the fault was detected.
func (st *StackTrace) Innermost() (Item, bool) {
	if len(st.Frames) == 0 {
		return Item{}, false
	}
	return st.Frames[0], true
}

// String renders the frames outermost first, one per line. A label is
// printed first as "@ label" between blank lines.
func (st *StackTrace) String() string {
	var sb strings.Builder
	if st.Label != nil {
		sb.WriteString("\n@ ")
		sb.WriteString(strings.TrimSpace(*st.Label))
		sb.WriteString("\n\n")
	}
	for i, it := range slices.Backward(st.Frames) {
		sb.WriteString(it.String())
		if i > 0 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
