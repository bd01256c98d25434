package engine

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/genvalue/errors"
	"github.com/wippyai/genvalue/trace"
)

// CheckerReport is the checker function guests call when they detect a
// memory-safety violation:
//
//	report(label_ptr, label_len, frames_ptr, frames_count i32)
//
// label_len 0 means no label. frames_ptr points at frames_count records of
// trace.FrameRecordSize bytes, innermost frame first. The call never
// returns to the guest.
const CheckerReport = "report"

func (e *Engine) buildChecker(ctx context.Context) error {
	i32 := api.ValueTypeI32
	_, err := e.runtime.NewHostModuleBuilder(e.cfg.CheckerModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.report), []api.ValueType{i32, i32, i32, i32}, nil).
		WithParameterNames("label_ptr", "label_len", "frames_ptr", "frames_count").
		Export(CheckerReport).
		Instantiate(ctx)
	if err != nil {
		return errors.Registration(errors.PhaseHost, e.cfg.CheckerModule, CheckerReport, err)
	}
	return nil
}

func (e *Engine) report(ctx context.Context, mod api.Module, stack []uint64) {
	mem := wrapMemory(mod.Memory())
	if mem == nil {
		abort(ctx, errors.New(errors.PhaseTrace, errors.KindNotFound).
			Detail("checker report from a module without memory").
			Build())
	}

	st, err := trace.ReadStackTrace(mem,
		api.DecodeU32(stack[0]), api.DecodeU32(stack[1]),
		api.DecodeU32(stack[2]), api.DecodeU32(stack[3]))
	if err != nil {
		abort(ctx, err)
	}

	fields := []zap.Field{zap.Int("frames", len(st.Frames))}
	if st.Label != nil {
		fields = append(fields, zap.String("label", *st.Label))
	}
	if loc, ok := st.Innermost(); ok {
		fields = append(fields, zap.String("at", loc.File))
	}
	Logger().Info("guest reported memory fault", fields...)

	abort(ctx, &FaultError{Trace: st})
}

