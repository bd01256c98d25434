// Package engine runs core WebAssembly modules on wazero and exchanges
// values with them as generic values.
//
// # Architecture
//
//	Engine   - owns the wazero runtime, host functions and the checker
//	Instance - an instantiated guest with typed calls and memory access
//
// Host functions are registered on the Engine with scalar parameter and
// result tags and are instantiated together on the first Instantiate:
//
//	eng.RegisterHostFunc("env", "double", []types.Type{types.Int32}, []types.Type{types.Int32},
//	    func(ctx context.Context, args generic.ArrayRef) (*generic.Value, error) {
//	        x, _ := args.At(0)
//	        return generic.NewInt(x.Int().Uint64()*2, types.Int32, false), nil
//	    })
//
// # Type mapping
//
//	Tag                 Core type
//	──────────────────────────────
//	i1 .. i32           i32
//	i33 .. i64          i64
//	float               f32
//	double              f64
//	ptr                 i32 (i64 with 8-byte pointers)
//
// Results come back tagged i32, i64, float or double.
//
// # Guest memory
//
// Instance.Load and Instance.Write move whole value trees between guest
// memory and the store using a C-like data layout (types.Layout). Pointer
// members are guest addresses, represented as checker pointers.
//
// # Checker
//
// Unless disabled, the engine provides the "checker" host module with a
// single function, report. A guest calls it with a label and an array of
// frame records when it detects a memory-safety violation; the current
// Call is aborted and returns *FaultError carrying the decoded
// trace.StackTrace.
package engine
