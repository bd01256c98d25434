package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/genvalue/errors"
	"github.com/wippyai/genvalue/native"
	"github.com/wippyai/genvalue/types"
)

// Engine runs core wasm modules whose host boundary exchanges generic
// values. Host functions are registered on the engine and instantiated
// once, before the first guest.
type Engine struct {
	runtime     wazero.Runtime
	hostFuncs   map[string]*hostFunc
	hostModules map[string][]string
	hostOrder   []string
	cfg         Config
	mu          sync.Mutex
	hostsReady  bool
}

// New creates an engine. A nil cfg uses defaults.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	c := cfg.withDefaults()
	if c.PointerSize != 4 && c.PointerSize != 8 {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(c.PointerSize).
			Detail("pointer size must be 4 or 8").
			Build()
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if c.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(c.MemoryLimitPages)
	}

	return &Engine{
		runtime:     wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		hostFuncs:   make(map[string]*hostFunc),
		hostModules: make(map[string][]string),
		cfg:         c,
	}, nil
}

// Store returns the store engine-created values live in.
func (e *Engine) Store() *native.Store {
	return e.cfg.Store
}

// Layout returns a fresh data layout for the engine's pointer size.
func (e *Engine) Layout() *types.Layout {
	return types.NewLayout(e.cfg.PointerSize)
}

// initHostModules instantiates the checker and every registered host
// module. It runs once; later registrations are rejected.
func (e *Engine) initHostModules(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.hostsReady {
		return nil
	}

	if !e.cfg.DisableChecker {
		if err := e.buildChecker(ctx); err != nil {
			return err
		}
	}

	for _, module := range e.hostOrder {
		builder := e.runtime.NewHostModuleBuilder(module)
		for _, key := range e.hostModules[module] {
			hf := e.hostFuncs[key]
			builder.NewFunctionBuilder().
				WithGoModuleFunction(hf.goFunc(e.cfg.Store), hf.paramVT, hf.resultVT).
				Export(hf.name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return errors.Registration(errors.PhaseHost, module, "", err)
		}
		Logger().Debug("host module instantiated",
			zap.String("module", module),
			zap.Int("functions", len(e.hostModules[module])))
	}

	e.hostsReady = true
	return nil
}

// missingImports lists function imports of compiled that no instantiated
// module provides, as "module#name".
func (e *Engine) missingImports(compiled wazero.CompiledModule) []string {
	var missing []string
	for _, def := range compiled.ImportedFunctions() {
		module, name, _ := def.Import()
		mod := e.runtime.Module(module)
		if mod == nil || mod.ExportedFunction(name) == nil {
			missing = append(missing, module+"#"+name)
		}
	}
	return missing
}

// Instantiate compiles and instantiates a core wasm module. Unresolved
// function imports are reported together as *errors.MissingImportsError.
func (e *Engine) Instantiate(ctx context.Context, wasm []byte) (*Instance, error) {
	if err := e.initHostModules(ctx); err != nil {
		return nil, err
	}

	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile failed", err)
	}

	if missing := e.missingImports(compiled); len(missing) > 0 {
		_ = compiled.Close(ctx)
		return nil, errors.NewMissingImportsError(missing)
	}

	// Anonymous, so one module can be instantiated any number of times.
	mod, err := e.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, errors.Instantiation(err)
	}

	inst := &Instance{
		engine:   e,
		compiled: compiled,
		module:   mod,
		memory:   wrapMemory(mod.Memory()),
		alloc:    newAllocator(mod),
		layout:   e.Layout(),
	}
	Logger().Debug("module instantiated",
		zap.Int("exports", len(compiled.ExportedFunctions())),
		zap.Bool("memory", inst.memory != nil),
		zap.Bool("allocator", inst.alloc != nil))
	return inst, nil
}

// Close closes every instance and host module of the engine.
func (e *Engine) Close(ctx context.Context) error {
	if err := e.runtime.Close(ctx); err != nil {
		return fmt.Errorf("close runtime: %w", err)
	}
	return nil
}
