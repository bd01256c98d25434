package errors

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Phase names the layer an error was raised in.
type Phase string

const (
	PhaseConstruct Phase = "construct" // value construction and ownership
	PhaseAccess    Phase = "access"    // scalar reads and writes
	PhaseAggregate Phase = "aggregate" // field navigation and append
	PhaseCodec     Phase = "codec"     // word and float conversion
	PhaseTypes     Phase = "types"     // type tag mapping
	PhaseTrace     Phase = "trace"     // checker trace decoding
	PhaseLoad      Phase = "load"      // module loading
	PhaseRuntime   Phase = "runtime"   // engine calls
	PhaseHost      Phase = "host"      // host function registration
	PhaseConfig    Phase = "config"    // configuration
)

// Kind categorizes the error.
type Kind string

const (
	KindTypeMismatch    Kind = "type_mismatch"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindInvalidData     Kind = "invalid_data"
	KindUnsupported     Kind = "unsupported"
	KindOverflow        Kind = "overflow"
	KindNilPointer      Kind = "nil_pointer"
	KindTagMissing      Kind = "tag_missing"
	KindDoubleRelease   Kind = "double_release"
	KindUseAfterRelease Kind = "use_after_release"
	KindNotOwned        Kind = "not_owned"
	KindMissingImport   Kind = "missing_import"
	KindNotFound        Kind = "not_found"
	KindInvalidInput    Kind = "invalid_input"
	KindRegistration    Kind = "registration"
	KindInstantiation   Kind = "instantiation"
	KindFault           Kind = "fault"
)

// Error is the structured error raised by every package of the module.
//
// Path locates the offending member inside an aggregate ("2.0" is field 0
// of field 2). Tag is the rendered type tag involved, Subject the Go-side
// thing the operation was applied to (a handle type, a host function name).
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	Subject string
	Tag     string
	Detail  string
	Path    []string
}

// Error renders "phase/kind at path (subject, tag): detail: cause".
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Phase))
	b.WriteByte('/')
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	var about []string
	if e.Subject != "" {
		about = append(about, e.Subject)
	}
	if e.Tag != "" {
		about = append(about, "tag "+e.Tag)
	}
	if len(about) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(about, ", "))
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by kind, and by phase when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Phase == "" || e.Phase == t.Phase)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

// Builder assembles an *Error field by field.
type Builder struct {
	err Error
}

func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: Error{Phase: phase, Kind: kind}}
}

func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

func (b *Builder) Subject(s string) *Builder {
	b.err.Subject = s
	return b
}

func (b *Builder) Tag(t string) *Builder {
	b.err.Tag = t
	return b
}

func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the message; args are applied with fmt.Sprintf when present.
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	b.err.Detail = msg
	return b
}

func (b *Builder) Build() *Error {
	e := b.err
	return &e
}

// Panic raises the built error as a fatal condition.
func (b *Builder) Panic() {
	Fatal(b.Build())
}

// Fatal aborts the current operation. Used for precondition violations that
// indicate a logic error at the call site; they are never returned.
func Fatal(err *Error) {
	panic(err)
}

// Recover converts a fatal panic raised by this module back into an error.
// Panics carrying anything other than *Error are re-raised.
//
//	defer errors.Recover(&err)
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(*Error); ok {
		*errp = e
		return
	}
	panic(r)
}

func TypeMismatch(phase Phase, path []string, want, tag string) *Error {
	return New(phase, KindTypeMismatch).Path(path...).Tag(tag).
		Detail("expected %s", want).Build()
}

// TagMissing reports a shape-dependent operation on an untagged value.
func TagMissing(phase Phase, op string) *Error {
	return New(phase, KindTagMissing).Detail("%s requires a type tag", op).Build()
}

func Unsupported(phase Phase, what string) *Error {
	return New(phase, KindUnsupported).Detail(what).Build()
}

func OutOfBounds(phase Phase, path []string, index, length uint64) *Error {
	return New(phase, KindOutOfBounds).Path(path...).Value(index).
		Detail("index %d out of bounds (length %d)", index, length).Build()
}

// NilPointer reports a nil handle; what names its Go type.
func NilPointer(phase Phase, what string) *Error {
	return New(phase, KindNilPointer).Subject(what).Detail("nil handle").Build()
}

func Overflow(phase Phase, path []string, value any, target string) *Error {
	return New(phase, KindOverflow).Path(path...).Tag(target).Value(value).
		Detail("value %v overflows %s", value, target).Build()
}

func InvalidData(phase Phase, path []string, detail string) *Error {
	return New(phase, KindInvalidData).Path(path...).Detail(detail).Build()
}

// Wrap attaches phase, kind and detail to an error from a dependency.
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return New(phase, kind).Cause(cause).Detail(detail).Build()
}

func NotFound(phase Phase, what, name string) *Error {
	return New(phase, KindNotFound).Subject(name).Detail("%s %q not found", what, name).Build()
}

func InvalidInput(phase Phase, detail string) *Error {
	return New(phase, KindInvalidInput).Detail(detail).Build()
}

// Registration reports a rejected host function; the subject is
// "namespace#name".
func Registration(phase Phase, namespace, name string, cause error) *Error {
	return New(phase, KindRegistration).Subject(namespace + "#" + name).Cause(cause).
		Detail("cannot register host function").Build()
}

func Instantiation(cause error) *Error {
	return New(PhaseRuntime, KindInstantiation).Cause(cause).Detail("instantiate module").Build()
}

// Load reports a module that failed to decode or compile.
func Load(detail string, cause error) *Error {
	return New(PhaseLoad, KindInvalidData).Cause(cause).Detail(detail).Build()
}

// MissingImport is one host function a module imports but nobody provides.
type MissingImport struct {
	Namespace string
	Function  string
}

func (m MissingImport) String() string {
	return m.Namespace + "#" + m.Function
}

// MissingImportsError lists every unresolved import of a module, sorted.
type MissingImportsError struct {
	Imports []MissingImport
}

// NewMissingImportsError parses "namespace#function" entries. An entry
// without '#' is taken as a function of the empty namespace.
func NewMissingImportsError(imports []string) *MissingImportsError {
	out := &MissingImportsError{Imports: make([]MissingImport, 0, len(imports))}
	for _, imp := range imports {
		ns, fn, ok := strings.Cut(imp, "#")
		if !ok {
			ns, fn = "", imp
		}
		out.Imports = append(out.Imports, MissingImport{Namespace: ns, Function: fn})
	}
	slices.SortFunc(out.Imports, func(a, b MissingImport) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}

func (e *MissingImportsError) Error() string {
	names := make([]string, len(e.Imports))
	for i, imp := range e.Imports {
		names[i] = imp.String()
	}
	return fmt.Sprintf("%s/%s: %d unresolved: %s",
		PhaseLoad, KindMissingImport, len(names), strings.Join(names, ", "))
}

// Is matches any *MissingImportsError and a *Error of kind missing_import.
func (e *MissingImportsError) Is(target error) bool {
	switch t := target.(type) {
	case *MissingImportsError:
		return true
	case *Error:
		return t.Kind == KindMissingImport
	}
	return false
}
