// Package genvalue marshals runtime values between a host program and an
// execution engine that represents every value as an opaque native handle.
//
// # Architecture Overview
//
//	genvalue/         Root package with the guest Memory and Allocator interfaces
//	├── native/       Native value store: handles, payload slots, release ledger
//	├── generic/      Owned values, borrowed views, aggregate navigation
//	├── types/        Type tags, data layout, WIT type mapping
//	├── trace/        Memory-checker stack trace reconstruction
//	├── engine/       wazero execution engine exchanging generic values
//	├── resource/     Handle table with lifecycle observers
//	├── errors/       Structured error types for debugging
//	└── cmd/gvrun/    Command line runner
//
// # Quick Start
//
// Build a value and read it back through a view:
//
//	v := generic.NewInt(42, types.Int32, true)
//	defer v.Release()
//
//	r := v.Ref()
//	r.SetTypeTag(types.Int32)
//	fmt.Println(generic.Format(r)) // i32 42
//
// Call a guest function:
//
//	eng, err := engine.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	inst, err := eng.Instantiate(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	results, err := inst.Call(ctx, "add", a, b)
//
// # Ownership
//
// A generic.Value owns its native handle and releases it exactly once.
// generic.Ref never releases. Views derived from a Value panic when used
// after the Value is released. Appending a Value into an aggregate
// consumes it.
//
// # Faults
//
// Guests report memory-safety faults through the checker host module.
// The call is aborted and returns *engine.FaultError, whose Trace renders
// as a conventional backtrace with the faulting call last.
package genvalue
