package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/genvalue/errors"
	"github.com/wippyai/genvalue/generic"
	"github.com/wippyai/genvalue/native"
	"github.com/wippyai/genvalue/types"
)

// HostFunc implements a guest import. args are views of engine-owned
// values, tagged with the declared parameter types and released when the
// function returns. The returned Value passes to the engine, which
// releases it; return nil for functions without results.
type HostFunc func(ctx context.Context, args generic.ArrayRef) (*generic.Value, error)

type hostFunc struct {
	fn       HostFunc
	module   string
	name     string
	params   []types.Type
	results  []types.Type
	paramVT  []api.ValueType
	resultVT []api.ValueType
}

// RegisterHostFunc makes fn available to guests as module.name. Parameter
// and result types must be scalars carried by a core wasm type; at most
// one result is supported. Registration must happen before the first
// Instantiate.
func (e *Engine) RegisterHostFunc(module, name string, params, results []types.Type, fn HostFunc) error {
	if fn == nil {
		return errors.Registration(errors.PhaseHost, module, name, fmt.Errorf("nil handler"))
	}
	if len(results) > 1 {
		return errors.Registration(errors.PhaseHost, module, name, fmt.Errorf("%d results, at most 1 supported", len(results)))
	}
	if !e.cfg.DisableChecker && module == e.cfg.CheckerModule {
		return errors.Registration(errors.PhaseHost, module, name, fmt.Errorf("module name is reserved for the checker"))
	}
	paramVT, err := valueTypes(params, e.cfg.PointerSize)
	if err != nil {
		return errors.Registration(errors.PhaseHost, module, name, err)
	}
	resultVT, err := valueTypes(results, e.cfg.PointerSize)
	if err != nil {
		return errors.Registration(errors.PhaseHost, module, name, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.hostsReady {
		return errors.Registration(errors.PhaseHost, module, name, fmt.Errorf("host modules are already instantiated"))
	}
	key := module + "#" + name
	if _, dup := e.hostFuncs[key]; dup {
		return errors.Registration(errors.PhaseHost, module, name, fmt.Errorf("already registered"))
	}
	if _, seen := e.hostModules[module]; !seen {
		e.hostOrder = append(e.hostOrder, module)
		e.hostModules[module] = nil
	}
	e.hostFuncs[key] = &hostFunc{
		fn:       fn,
		module:   module,
		name:     name,
		params:   params,
		results:  results,
		paramVT:  paramVT,
		resultVT: resultVT,
	}
	e.hostModules[module] = append(e.hostModules[module], key)
	return nil
}

// goFunc adapts hf to the wazero stack calling convention.
func (hf *hostFunc) goFunc(store *native.Store) api.GoModuleFunc {
	return func(ctx context.Context, _ api.Module, stack []uint64) {
		cells := make([]*native.Cell, len(hf.params))
		for i, t := range hf.params {
			cells[i] = liftCell(store, t, stack[i])
		}
		defer func() {
			for _, c := range cells {
				store.Dispose(c)
			}
		}()

		res, err := hf.call(ctx, generic.NewArrayRef(store, cells))
		if err != nil {
			abort(ctx, err)
		}
		if len(hf.results) == 0 {
			res.Release()
			return
		}
		if res == nil {
			abort(ctx, errors.New(errors.PhaseHost, errors.KindNilPointer).
				Path(hf.module, hf.name).
				Detail("host function returned no value for declared result %s", hf.results[0]).
				Build())
		}
		defer res.Release()
		if err := lowerResult(res.Ref(), hf.results[0], stack); err != nil {
			abort(ctx, err)
		}
	}
}

// call runs the handler, turning a fatal *errors.Error panic into an error.
func (hf *hostFunc) call(ctx context.Context, args generic.ArrayRef) (res *generic.Value, err error) {
	defer errors.Recover(&err)
	res, err = hf.fn(ctx, args)
	if err != nil {
		res.Release()
		return nil, err
	}
	return res, nil
}

func lowerResult(r generic.Ref, t types.Type, stack []uint64) (err error) {
	defer errors.Recover(&err)
	stack[0] = lower(r, t)
	return nil
}
