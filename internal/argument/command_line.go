package argument

import (
	"fmt"
	"strings"
)

// Token is one `--key[=value]` command line argument.
type Token struct {
	Raw       string
	Key       string
	Value     string
	HasValue  bool
	Processed bool
}

// CommandLine is the ordered list of tokens given to a binary. Containers
// mark the tokens they consume; anything left unprocessed after all
// containers have parsed is an error.
type CommandLine struct {
	Tokens []*Token
}

// ParseCommandLine splits args (without the program name) into tokens. Every
// argument must have the form --key or --key=value and keys must be unique.
func ParseCommandLine(args []string) (*CommandLine, error) {
	cl := &CommandLine{}
	seen := make(map[string]struct{}, len(args))
	for _, raw := range args {
		tok, ok := parseToken(raw)
		if !ok {
			return nil, fmt.Errorf("argument %q is ill-formed. All arguments have to follow syntax: --<key>[=value]", raw)
		}
		if _, dup := seen[tok.Key]; dup {
			return nil, fmt.Errorf("argument with a key %q is provided more than once", tok.Key)
		}
		seen[tok.Key] = struct{}{}
		cl.Tokens = append(cl.Tokens, tok)
	}
	return cl, nil
}

func parseToken(raw string) (*Token, bool) {
	if !strings.HasPrefix(raw, "--") || raw == "--" {
		return nil, false
	}
	body := raw[2:]
	key, value, hasValue := strings.Cut(body, "=")
	if key == "" {
		return nil, false
	}
	return &Token{Raw: raw, Key: key, Value: value, HasValue: hasValue}, true
}

// Lookup returns the token with the given key, or nil.
func (cl *CommandLine) Lookup(key string) *Token {
	for _, tok := range cl.Tokens {
		if tok.Key == key {
			return tok
		}
	}
	return nil
}

// Unprocessed returns the tokens no container consumed.
func (cl *CommandLine) Unprocessed() []*Token {
	var out []*Token
	for _, tok := range cl.Tokens {
		if !tok.Processed {
			out = append(out, tok)
		}
	}
	return out
}

// UnprocessedKeys is a convenience for error messages.
func (cl *CommandLine) UnprocessedKeys() []string {
	var keys []string
	for _, tok := range cl.Unprocessed() {
		keys = append(keys, tok.Key)
	}
	return keys
}
