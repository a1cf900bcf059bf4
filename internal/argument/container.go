package argument

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// Container is an ordered set of arguments with unique keys. Declaration
// order is preserved for help output and rendered names.
type Container struct {
	args []Argument

	// Extra is an optional relational check run after every argument
	// validated on its own.
	Extra func() bool
}

// Push appends an argument. A duplicate key is a declaration bug.
func (c *Container) Push(a Argument) {
	for _, existing := range c.args {
		if existing.Key() == a.Key() {
			panic(fmt.Sprintf("argument %q declared twice", a.Key()))
		}
	}
	c.args = append(c.args, a)
}

func (c *Container) Arguments() []Argument {
	return c.args
}

// Lookup returns the argument with the given key, or nil.
func (c *Container) Lookup(key string) Argument {
	for _, a := range c.args {
		if a.Key() == key {
			return a
		}
	}
	return nil
}

// Parse applies every matching token to its argument and marks the token as
// processed. Tokens for other containers are left alone.
func (c *Container) Parse(cl *CommandLine) error {
	for _, tok := range cl.Tokens {
		a := c.Lookup(tok.Key)
		if a == nil {
			continue
		}
		if err := a.Set(tok.Value); err != nil {
			return fmt.Errorf("argument --%s: %w", tok.Key, err)
		}
		tok.Processed = true
	}
	return nil
}

// Validate checks each argument, then the container-level relation.
func (c *Container) Validate() bool {
	for _, a := range c.args {
		if !a.Validate() {
			return false
		}
	}
	if c.Extra != nil && !c.Extra() {
		return false
	}
	return true
}

// Unparsed lists arguments that never received a value.
func (c *Container) Unparsed() []Argument {
	var out []Argument
	for _, a := range c.args {
		if !a.Parsed() {
			out = append(out, a)
		}
	}
	return out
}

// Help renders one line per argument, indented with tabs.
func (c *Container) Help(indent int) string {
	var b strings.Builder
	prefix := strings.Repeat("\t", indent)
	for _, a := range c.args {
		b.WriteString(prefix)
		b.WriteString(a.Key())
		if a.Help() != "" {
			b.WriteString(": ")
			b.WriteString(a.Help())
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// String renders the arguments as space separated key=value pairs.
func (c *Container) String() string {
	parts := make([]string, 0, len(c.args))
	for _, a := range c.args {
		parts = append(parts, Render(a))
	}
	return strings.Join(parts, " ")
}

// CommandLine renders the arguments as tokens that reproduce this
// configuration when passed back to the binary.
func (c *Container) CommandLine() string {
	parts := make([]string, 0, len(c.args))
	for _, a := range c.args {
		parts = append(parts, "--"+Render(a))
	}
	return strings.Join(parts, " ")
}

// Tokens renders the arguments as separate --key=value strings, suitable
// for a child process argument list.
func (c *Container) Tokens() []string {
	out := make([]string, 0, len(c.args))
	for _, a := range c.args {
		out = append(out, "--"+Render(a))
	}
	return out
}

// FlagSet exposes the container through pflag, used for usage output.
func (c *Container) FlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	for _, a := range c.args {
		fs.Var(a, a.Key(), a.Help())
	}
	return fs
}
