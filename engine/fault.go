package engine

import (
	"context"
	"fmt"

	"github.com/wippyai/genvalue/trace"
)

// FaultError is returned by Instance.Call when the guest reported a
// memory-safety fault through the checker.
type FaultError struct {
	Trace    *trace.StackTrace
	Function string
}

func (e *FaultError) Error() string {
	msg := "memory fault"
	if e.Function != "" {
		msg += " in " + e.Function
	}
	if loc, ok := e.Trace.Innermost(); ok {
		msg += " at " + loc.String()
	}
	if e.Trace.Label != nil {
		msg += ": " + *e.Trace.Label
	}
	return msg
}

// callState collects what host functions report during one guest call.
// Host functions abort the guest by panicking; the state tells Call why.
type callState struct {
	fault   *trace.StackTrace
	hostErr error
}

type callStateKey struct{}

func withCallState(ctx context.Context) (context.Context, *callState) {
	st := &callState{}
	return context.WithValue(ctx, callStateKey{}, st), st
}

func callStateFrom(ctx context.Context) *callState {
	st, _ := ctx.Value(callStateKey{}).(*callState)
	return st
}

// abort records err for the current call and unwinds the guest.
func abort(ctx context.Context, err error) {
	if st := callStateFrom(ctx); st != nil {
		if fe, ok := err.(*FaultError); ok {
			st.fault = fe.Trace
		} else if st.hostErr == nil {
			st.hostErr = err
		}
	}
	panic(err)
}

// result turns the outcome of a guest call into the error Call returns.
func (st *callState) result(function string, err error) error {
	switch {
	case st.fault != nil:
		return &FaultError{Function: function, Trace: st.fault}
	case st.hostErr != nil:
		return st.hostErr
	case err != nil:
		return fmt.Errorf("call %s: %w", function, err)
	default:
		return nil
	}
}
