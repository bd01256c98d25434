// Package errors provides the structured error type shared by genvalue's
// packages.
//
// An Error carries the Phase it was raised in, a Kind, and optionally the
// member path inside an aggregate, the type tag involved and a cause. Errors
// match with errors.Is by kind (and phase when the target names one):
//
//	errors.Is(err, &errors.Error{Kind: errors.KindUseAfterRelease})
//
// Two severities exist. Recoverable conditions (no tag set, field type not
// determinable) are reported by the caller as an explicit absence. Fatal
// conditions (nil handle, integers wider than 128 bits, double release) are
// logic errors at the call site and abort with a panic carrying an *Error:
//
//	errors.New(errors.PhaseAccess, errors.KindOverflow).
//		Detail("integer of %d bits exceeds 128", bits).
//		Panic()
//
// Boundaries that must not crash convert them back with Recover:
//
//	func call() (err error) {
//		defer errors.Recover(&err)
//		...
//	}
package errors
