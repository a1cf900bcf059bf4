package api

import (
	"fmt"
	"strings"

	"github.com/23skdu/longbow-bench/internal/argument"
)

// Api identifies a compute API backend a benchmark body targets.
type Api int

const (
	L0 Api = iota
	OpenCL
	SYCL
	UR
	OpenMP
	SYCLPreview

	// All is only a selector value; no implementation is registered for it.
	All
)

var names = [...]string{
	L0:          "l0",
	OpenCL:      "ocl",
	SYCL:        "sycl",
	UR:          "ur",
	OpenMP:      "omp",
	SYCLPreview: "syclpreview",
	All:         "all",
}

// Concrete lists every real API in declaration order.
func Concrete() []Api {
	return []Api{L0, OpenCL, SYCL, UR, OpenMP, SYCLPreview}
}

func (a Api) String() string {
	if a < 0 || int(a) >= len(names) {
		return fmt.Sprintf("Api(%d)", int(a))
	}
	return names[a]
}

// Parse resolves a case-insensitive API name.
func Parse(s string) (Api, error) {
	for i, n := range names {
		if strings.EqualFold(n, s) {
			return Api(i), nil
		}
	}
	return 0, fmt.Errorf("unknown api %q", s)
}

// NewArgument declares the --api selector in c.
func NewArgument(c *argument.Container, key, help string) *argument.Enum[Api] {
	values := append(Concrete(), All)
	apiNames := make([]string, len(values))
	for i, v := range values {
		apiNames[i] = v.String()
	}
	return argument.NewEnum(c, key, help, values, apiNames)
}
