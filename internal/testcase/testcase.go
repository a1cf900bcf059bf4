// Package testcase holds test case declarations and their per-API
// implementations.
//
// A declaration is a name, a help line and a factory for its typed argument
// set. Implementations register against a declaration, one per Api. The
// Registry is an explicit value built in main (or in a test) and handed to
// the driver; nothing here is global.
package testcase

import (
	"context"
	"fmt"
	"sort"

	"github.com/23skdu/longbow-bench/internal/api"
	"github.com/23skdu/longbow-bench/internal/argument"
	"github.com/23skdu/longbow-bench/internal/result"
	"github.com/23skdu/longbow-bench/internal/stats"
)

// Arguments is satisfied by every test argument struct. Embedding an
// argument.Container is enough.
type Arguments interface {
	ArgumentContainer() *argument.Container
}

// Base is embedded by argument structs to satisfy Arguments.
type Base struct {
	argument.Container
}

func (b *Base) ArgumentContainer() *argument.Container { return &b.Container }

// Env carries the per-run settings an implementation may consult. It
// replaces reads of global configuration from deep call sites.
type Env struct {
	Api                 api.Api
	Iterations          int
	Noop                bool
	NoIntelExtensions   bool
	MarkTimers          bool
	SubDeviceSelection  string
	IsSingleTestMode    bool
	DoNotPrintBandwidth bool
}

// SkipIfNoop pushes the no-op marker when no-op mode is on. Bodies call it
// first and return result.Nooped when it reports true.
func (e Env) SkipIfNoop(sink stats.Sink, unit stats.Unit, typ stats.Type) bool {
	if !e.Noop {
		return false
	}
	sink.PushUnitAndType(unit, typ)
	return true
}

// Func is a benchmark body for arguments of type T.
type Func[T Arguments] func(ctx context.Context, env Env, args T, sink stats.Sink) result.Result

// Implementation is a resolved, type-erased body.
type Implementation interface {
	Run(ctx context.Context, env Env, args Arguments, sink stats.Sink) result.Result
	RequiresVendorExtensions() bool
}

// Declaration is the type-erased view of a TestCase kept by the Registry.
type Declaration interface {
	Name() string
	Help() string
	NewArguments() Arguments
	// Configurations is the default argument matrix used in all-tests mode.
	Configurations() []Arguments
	Apis() []api.Api
	Implementation(a api.Api) (Implementation, bool)
}

type implementation[T Arguments] struct {
	fn                 Func[T]
	requiresExtensions bool
}

func (i *implementation[T]) Run(ctx context.Context, env Env, args Arguments, sink stats.Sink) result.Result {
	typed, ok := args.(T)
	if !ok {
		panic(fmt.Sprintf("implementation called with %T", args))
	}
	return i.fn(ctx, env, typed, sink)
}

func (i *implementation[T]) RequiresVendorExtensions() bool { return i.requiresExtensions }

// TestCase declares a test with argument type T.
type TestCase[T Arguments] struct {
	name    string
	help    string
	newArgs func() T
	matrix  func() []T
	impls   map[api.Api]*implementation[T]
}

// Declare creates a test case. newArgs must return a fresh, unparsed
// argument set each call.
func Declare[T Arguments](name, help string, newArgs func() T) *TestCase[T] {
	return &TestCase[T]{
		name:    name,
		help:    help,
		newArgs: newArgs,
		impls:   make(map[api.Api]*implementation[T]),
	}
}

// WithMatrix sets the argument combinations run in all-tests mode.
func (tc *TestCase[T]) WithMatrix(matrix func() []T) *TestCase[T] {
	tc.matrix = matrix
	return tc
}

// Implement registers fn for a. A second registration for the same Api
// panics.
func (tc *TestCase[T]) Implement(a api.Api, fn Func[T]) *TestCase[T] {
	return tc.register(a, fn, false)
}

// ImplementWithExtensions registers a body that needs vendor extensions;
// it is not resolved when extensions are disabled.
func (tc *TestCase[T]) ImplementWithExtensions(a api.Api, fn Func[T]) *TestCase[T] {
	return tc.register(a, fn, true)
}

func (tc *TestCase[T]) register(a api.Api, fn Func[T], requiresExtensions bool) *TestCase[T] {
	if a == api.All {
		panic(fmt.Sprintf("%s: cannot implement for api %s", tc.name, a))
	}
	if fn == nil {
		panic(fmt.Sprintf("%s: nil implementation for api %s", tc.name, a))
	}
	if _, exists := tc.impls[a]; exists {
		panic(fmt.Sprintf("%s: implementation for api %s registered twice", tc.name, a))
	}
	tc.impls[a] = &implementation[T]{fn: fn, requiresExtensions: requiresExtensions}
	return tc
}

func (tc *TestCase[T]) Name() string { return tc.name }
func (tc *TestCase[T]) Help() string { return tc.help }

func (tc *TestCase[T]) NewArguments() Arguments { return tc.newArgs() }

func (tc *TestCase[T]) Configurations() []Arguments {
	if tc.matrix == nil {
		return nil
	}
	typed := tc.matrix()
	out := make([]Arguments, len(typed))
	for i, args := range typed {
		out[i] = args
	}
	return out
}

// Apis lists the implemented APIs in declaration order.
func (tc *TestCase[T]) Apis() []api.Api {
	var out []api.Api
	for _, a := range api.Concrete() {
		if _, ok := tc.impls[a]; ok {
			out = append(out, a)
		}
	}
	return out
}

func (tc *TestCase[T]) Implementation(a api.Api) (Implementation, bool) {
	impl, ok := tc.impls[a]
	if !ok {
		return nil, false
	}
	return impl, true
}

// sorted returns declarations ordered by name.
func sorted(m map[string]Declaration) []Declaration {
	out := make([]Declaration, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
