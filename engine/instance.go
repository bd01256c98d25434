package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/genvalue"
	"github.com/wippyai/genvalue/errors"
	"github.com/wippyai/genvalue/generic"
	"github.com/wippyai/genvalue/types"
)

// Instance is an instantiated guest module. It is not safe for concurrent
// use.
type Instance struct {
	engine   *Engine
	compiled wazero.CompiledModule
	module   api.Module
	memory   *Memory
	alloc    *allocator
	layout   *types.Layout
}

// Function describes an exported function with the default tags of its
// core wasm signature.
type Function struct {
	Name    string
	Params  []types.Type
	Results []types.Type
}

func (f Function) String() string {
	return fmt.Sprintf("%s(%s) -> (%s)", f.Name, joinTypes(f.Params), joinTypes(f.Results))
}

func joinTypes(ts []types.Type) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}

func tagsFor(vts []api.ValueType) ([]types.Type, bool) {
	out := make([]types.Type, len(vts))
	for i, vt := range vts {
		t, ok := tagFor(vt)
		if !ok {
			return nil, false
		}
		out[i] = t
	}
	return out, true
}

// Exports lists the exported functions whose signatures use only numeric
// core types, sorted by name.
func (i *Instance) Exports() []Function {
	var fns []Function
	for name, def := range i.compiled.ExportedFunctions() {
		params, ok := tagsFor(def.ParamTypes())
		if !ok {
			continue
		}
		results, ok := tagsFor(def.ResultTypes())
		if !ok {
			continue
		}
		fns = append(fns, Function{Name: name, Params: params, Results: results})
	}
	slices.SortFunc(fns, func(a, b Function) int {
		return strings.Compare(a.Name, b.Name)
	})
	return fns
}

// Call invokes an exported function. Arguments are borrowed and must be
// tagged with a type the corresponding parameter can carry. Results are
// owned by the caller and tagged with the default tag of their core type.
//
// A checker report during the call aborts it with *FaultError. An error
// returned by a host function is returned unchanged.
func (i *Instance) Call(ctx context.Context, name string, args ...generic.Ref) ([]*generic.Value, error) {
	fn := i.module.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "function", name)
	}
	def := fn.Definition()

	params, err := i.lowerArgs(name, def.ParamTypes(), args)
	if err != nil {
		return nil, err
	}

	ctx, st := withCallState(ctx)
	raw, err := fn.Call(ctx, params...)
	if err := st.result(name, err); err != nil {
		Logger().Debug("guest call failed", zap.String("function", name), zap.Error(err))
		return nil, err
	}

	return i.liftResults(def.ResultTypes(), raw), nil
}

func (i *Instance) lowerArgs(name string, vts []api.ValueType, args []generic.Ref) (params []uint64, err error) {
	if len(args) != len(vts) {
		return nil, errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Path(name).
			Detail("expected %d arguments, got %d", len(vts), len(args)).
			Build()
	}
	defer errors.Recover(&err)

	params = make([]uint64, len(args))
	for n, arg := range args {
		tag, ok := arg.TypeTag()
		if !ok {
			return nil, errors.TagMissing(errors.PhaseRuntime, fmt.Sprintf("argument %d of %s", n, name))
		}
		if !compatible(tag, vts[n], i.engine.cfg.PointerSize) {
			return nil, errors.TypeMismatch(errors.PhaseRuntime, []string{name, fmt.Sprint(n)}, api.ValueTypeName(vts[n]), tag.String())
		}
		params[n] = lower(arg, tag)
	}
	return params, nil
}

func (i *Instance) liftResults(vts []api.ValueType, raw []uint64) []*generic.Value {
	store := i.engine.cfg.Store
	out := make([]*generic.Value, len(vts))
	for n, vt := range vts {
		tag, _ := tagFor(vt)
		out[n] = generic.FromRaw(store, liftCell(store, tag, raw[n]))
	}
	return out
}

// Memory returns the guest's linear memory, or nil if it exports none.
func (i *Instance) Memory() *Memory {
	return i.memory
}

// Allocator returns the guest's allocator export, if it has one.
func (i *Instance) Allocator() (genvalue.Allocator, bool) {
	if i.alloc == nil {
		return nil, false
	}
	return i.alloc, true
}

func (i *Instance) marshaler() (*marshaler, error) {
	if i.memory == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "memory", "memory")
	}
	return &marshaler{
		mem:     i.memory,
		layout:  i.layout,
		factory: generic.For(i.engine.cfg.Store),
	}, nil
}

// Load reads a value of type t from guest memory at ptr. Aggregates are
// rebuilt member by member using the engine's data layout; pointers become
// checker pointers holding the guest address.
func (i *Instance) Load(ptr uint32, t types.Type) (v *generic.Value, err error) {
	m, err := i.marshaler()
	if err != nil {
		return nil, err
	}
	defer errors.Recover(&err)
	return m.load(ptr, t, nil), nil
}

// Write stores the tagged value tree r into guest memory at ptr.
func (i *Instance) Write(ptr uint32, r generic.Ref) (err error) {
	m, err := i.marshaler()
	if err != nil {
		return err
	}
	defer errors.Recover(&err)
	m.store(ptr, r, nil)
	return nil
}

// Store allocates guest memory for r with the guest allocator and writes
// it there, returning the address.
func (i *Instance) Store(ctx context.Context, r generic.Ref) (ptr uint32, err error) {
	if i.alloc == nil {
		return 0, errors.NotFound(errors.PhaseRuntime, "allocator export", CabiRealloc)
	}
	defer errors.Recover(&err)

	tag, ok := r.TypeTag()
	if !ok {
		return 0, errors.TagMissing(errors.PhaseRuntime, "Store")
	}
	info := i.layout.Calculate(tag)

	i.alloc.ctx = ctx
	defer func() { i.alloc.ctx = nil }()
	ptr, err = i.alloc.Alloc(info.Size, info.Align)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseRuntime, errors.KindInvalidData, err, "allocate guest memory")
	}
	if err := i.Write(ptr, r); err != nil {
		i.alloc.Free(ptr, info.Size, info.Align)
		return 0, err
	}
	return ptr, nil
}

// Close closes the guest module.
func (i *Instance) Close(ctx context.Context) error {
	var firstErr error
	if i.module != nil {
		if err := i.module.Close(ctx); err != nil {
			firstErr = err
		}
		i.module = nil
	}
	if i.compiled != nil {
		if err := i.compiled.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		i.compiled = nil
	}
	i.memory = nil
	i.alloc = nil
	return firstErr
}
