// Package argument implements typed, self-validating benchmark parameters
// bound to `--key=value` command line tokens.
//
// Every argument type satisfies pflag.Value, so a Container can be rendered
// as a pflag.FlagSet for usage output. Parsing itself is done against a
// CommandLine, which enforces the harness' stricter token rules.
package argument

import (
	"github.com/spf13/pflag"
)

// Argument is a single named parameter. It starts unset, becomes parsed
// after Set succeeds or a value is assigned, and is read-only afterwards.
type Argument interface {
	pflag.Value

	Key() string
	Help() string
	Parsed() bool

	// Validate reports whether the current value is inside the argument's
	// domain.
	Validate() bool
}

type base struct {
	key    string
	help   string
	parsed bool
}

func (b *base) Key() string { return b.key }
func (b *base) Help() string { return b.help }
func (b *base) Parsed() bool { return b.parsed }

func (b *base) markParsed() { b.parsed = true }

// Render formats an argument as `key=value`, the form used by test names and
// --argFilter matching.
func Render(a Argument) string {
	return a.Key() + "=" + a.String()
}
