package generic

import "github.com/wippyai/genvalue/errors"

// lease bounds the lifetime of views onto an owned value. Views share the
// owner's lease; once the owner is released or surrenders its handle, every
// view becomes unusable.
type lease struct {
	ended bool
}

func (l *lease) end() {
	if l != nil {
		l.ended = true
	}
}

func (l *lease) check(op string) {
	if l != nil && l.ended {
		errors.New(errors.PhaseAccess, errors.KindUseAfterRelease).
			Detail("%s through a view whose owner was released", op).
			Panic()
	}
}
