// Command gvrun instantiates a core wasm module, calls one of its exports
// with typed arguments and prints the results. Memory faults reported by the
// guest through the checker import are printed as stack traces.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/genvalue/engine"
	"github.com/wippyai/genvalue/generic"
	"github.com/wippyai/genvalue/native"
	"github.com/wippyai/genvalue/trace"
)

// buildLogger is replaced in tests.
var buildLogger = newLogger

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain runs the command and returns its exit code, so that deferred
// cleanup such as flushing the logger happens before the process exits.
func realMain(args []string) int {
	fs := flag.NewFlagSet("gvrun", flag.ContinueOnError)
	var (
		wasmFile    = fs.String("wasm", "", "Path to core wasm module")
		funcName    = fs.String("func", "", "Function to call")
		argList     = fs.String("args", "", "Arguments as type:value pairs (i32:1,f64:2.5)")
		configFile  = fs.String("config", "", "Path to TOML configuration")
		report      = fs.String("report", "", "Write the fault trace as CBOR to this file")
		list        = fs.Bool("list", false, "List exported functions and exit")
		verbose     = fs.Bool("v", false, "Verbose logging")
		interactive = fs.Bool("i", false, "Interactive mode with TUI")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: gvrun -wasm <file.wasm> -func name [-args i32:1,f64:2.5] [-config file.toml]")
		fmt.Fprintln(os.Stderr, "       gvrun -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       gvrun -wasm <file.wasm> -i  (interactive mode)")
		return 1
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if *report != "" {
		cfg.Report = *report
	}

	logger, err := buildLogger(cfg.LogLevel, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()
	engine.SetLogger(logger)
	native.SetLogger(logger)

	if *interactive {
		// The TUI owns the terminal; keep log lines off it.
		engine.SetLogger(zap.NewNop())
		native.SetLogger(zap.NewNop())
		if err := runInteractive(*wasmFile, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if err := run(*wasmFile, *funcName, *argList, *list, cfg); err != nil {
		return 1
	}
	return 0
}

// session is an engine with one instantiated module.
type session struct {
	store    *native.Store
	engine   *engine.Engine
	instance *engine.Instance
}

func openSession(ctx context.Context, wasmFile string, cfg *fileConfig) (*session, error) {
	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	store := native.NewStore()
	eng, err := engine.New(ctx, cfg.engineConfig(store))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create engine: %w", err)
	}

	inst, err := eng.Instantiate(ctx, data)
	if err != nil {
		_ = eng.Close(ctx)
		_ = store.Close()
		return nil, fmt.Errorf("instantiate: %w", err)
	}
	return &session{store: store, engine: eng, instance: inst}, nil
}

func (s *session) close(ctx context.Context) {
	_ = s.instance.Close(ctx)
	_ = s.engine.Close(ctx)
	if n := s.store.Live(); n > 0 {
		native.Logger().Warn("values still live at exit", zap.Int("count", n))
	}
	_ = s.store.Close()
}

// call parses args, calls fn and writes the fault report when the guest
// faults and a report path is configured.
func (s *session) call(ctx context.Context, fn, args, reportPath string) ([]*generic.Value, error) {
	values, err := parseArgs(generic.For(s.store), args)
	if err != nil {
		return nil, err
	}
	defer releaseAll(values)

	results, err := s.instance.Call(ctx, fn, refs(values)...)
	if err != nil {
		var fault *engine.FaultError
		if reportPath != "" && errors.As(err, &fault) {
			if werr := writeReport(reportPath, fault.Trace); werr != nil {
				return nil, errors.Join(err, werr)
			}
		}
		return nil, err
	}
	return results, nil
}

func writeReport(path string, st *trace.StackTrace) error {
	data, err := trace.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func run(wasmFile, funcName, args string, listOnly bool, cfg *fileConfig) error {
	ctx := context.Background()
	out := newPrinter(os.Stdout)
	errOut := newPrinter(os.Stderr)

	s, err := openSession(ctx, wasmFile, cfg)
	if err != nil {
		errOut.failure(err)
		return err
	}
	defer s.close(ctx)

	if listOnly || funcName == "" {
		out.exports(s.instance.Exports())
		if !listOnly {
			fmt.Fprintln(os.Stderr, "\nUse -func to specify a function to call.")
		}
		return nil
	}

	results, err := s.call(ctx, funcName, args, cfg.Report)
	if err != nil {
		errOut.failure(err)
		return err
	}
	defer releaseAll(results)

	out.results(results)
	return nil
}
