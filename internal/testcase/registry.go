package testcase

import (
	"fmt"
	"strings"

	"github.com/23skdu/longbow-bench/internal/api"
	"github.com/23skdu/longbow-bench/internal/result"
)

// IllegalNameCharacters may not appear in test names or argument keys: they
// would break the rendered name, the command line and the docs format.
const IllegalNameCharacters = " -:='\"<>|{}[]/.,?\\+$"

// Registry maps test names to declarations and records which APIs are
// compiled into the binary. It is filled once in main and read-only after.
type Registry struct {
	tests     map[string]Declaration
	supported map[api.Api]bool
}

// NewRegistry creates an empty registry that supports the given APIs.
func NewRegistry(supported ...api.Api) *Registry {
	r := &Registry{
		tests:     make(map[string]Declaration),
		supported: make(map[api.Api]bool),
	}
	for _, a := range supported {
		r.supported[a] = true
	}
	return r
}

// Register adds a declaration. Empty, illegal and duplicate names are
// programmer errors and panic.
func (r *Registry) Register(d Declaration) {
	name := d.Name()
	if name == "" {
		panic("test case registered with an empty name")
	}
	if strings.ContainsAny(name, IllegalNameCharacters) {
		panic(fmt.Sprintf("test case name %q contains illegal characters", name))
	}
	if _, exists := r.tests[name]; exists {
		panic(fmt.Sprintf("test case %q registered twice", name))
	}
	for _, a := range d.NewArguments().ArgumentContainer().Arguments() {
		if strings.ContainsAny(a.Key(), IllegalNameCharacters) {
			panic(fmt.Sprintf("argument %q of test case %q contains illegal characters", a.Key(), name))
		}
	}
	r.tests[name] = d
}

// Lookup finds a declaration by exact name.
func (r *Registry) Lookup(name string) (Declaration, bool) {
	d, ok := r.tests[name]
	return d, ok
}

// Declarations returns every registered test ordered by name.
func (r *Registry) Declarations() []Declaration {
	return sorted(r.tests)
}

// Supports reports whether a is compiled into this binary.
func (r *Registry) Supports(a api.Api) bool {
	return r.supported[a]
}

// Resolve finds the body for (name, a). It returns NoImplementation when
// either lookup misses, and also when the body needs vendor extensions but
// noExtensions is set.
func (r *Registry) Resolve(name string, a api.Api, noExtensions bool) (Implementation, result.Result) {
	d, ok := r.tests[name]
	if !ok {
		return nil, result.NoImplementation
	}
	impl, ok := d.Implementation(a)
	if !ok {
		return nil, result.NoImplementation
	}
	if noExtensions && impl.RequiresVendorExtensions() {
		return nil, result.NoImplementation
	}
	return impl, result.Success
}
