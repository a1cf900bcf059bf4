// Package suite loads YAML files listing test configurations to run as a
// batch, in addition to the matrices compiled into a benchmark.
package suite

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/23skdu/longbow-bench/internal/api"
	"github.com/23skdu/longbow-bench/internal/config"
	"github.com/23skdu/longbow-bench/internal/testcase"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	mustRegister(validate, "api", validateApi)
	mustRegister(validate, "testname", validateTestName)
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %q validation: %v", tag, err))
	}
}

func validateApi(fl validator.FieldLevel) bool {
	_, err := api.Parse(fl.Field().String())
	return err == nil
}

func validateTestName(fl validator.FieldLevel) bool {
	return !strings.ContainsAny(fl.Field().String(), testcase.IllegalNameCharacters)
}

// Entry is one test with the argument sets to run it with. Each map in
// Arguments is one configuration.
type Entry struct {
	Test      string                   `yaml:"test" validate:"required,testname"`
	Api       string                   `yaml:"api" validate:"required,api"`
	Arguments []map[string]interface{} `yaml:"arguments" validate:"min=1,dive,min=1"`
}

type Suite struct {
	Name    string  `yaml:"name"`
	Entries []Entry `yaml:"entries" validate:"required,min=1,dive"`
}

// Invocation is one expanded single-test run.
type Invocation struct {
	Test string
	Api  api.Api
	// Args are "--key=value" tokens sorted by key.
	Args []string
}

// Load reads and validates a suite file.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("suite %s: %w", path, err)
	}
	return s, nil
}

func Parse(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Suite) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid suite: %w", err)
	}
	return nil
}

// Invocations expands every entry in file order.
func (s *Suite) Invocations() []Invocation {
	var out []Invocation
	for _, e := range s.Entries {
		selected, _ := api.Parse(e.Api)
		for _, set := range e.Arguments {
			keys := make([]string, 0, len(set))
			for k := range set {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			args := make([]string, len(keys))
			for i, k := range keys {
				args[i] = "--" + k + "=" + config.YAMLValue(set[k])
			}
			out = append(out, Invocation{Test: e.Test, Api: selected, Args: args})
		}
	}
	return out
}
