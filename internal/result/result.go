// Package result defines the closed set of outcomes returned by benchmark
// bodies and every stage of the driver. The integer value of a Result is also
// the exit code of a standalone workload binary.
package result

import (
	"errors"
	"fmt"
)

type Result int

const (
	Success                 Result = iota // run completed and produced samples
	Error                                 // a compute API call failed
	DriverFunctionNotFound                // extension entry point missing
	DeviceNotCapable                      // device lacks a required feature
	ApiNotCapable                         // API cannot express the requested parameters
	KernelNotFound                        // precompiled kernel missing
	SkippedApi                            // API deselected on the command line
	UnsupportedApi                        // API not built into this binary
	NoImplementation                      // test has no body for the API
	IntelExtensionsRequired               // body needs vendor extensions but they are disabled
	InvalidArgs                           // argument validation failed
	Nooped                                // no-op mode, only the name is printed
	FilteredOut                           // removed by --testFilter/--argFilter
	VerificationFail                      // self-check produced wrong values
	KernelBuildError                      // kernel failed to compile
)

// Info describes how a non-success result is reported.
type Info struct {
	Message        string
	PrintInSingle  bool
	PrintInAll     bool
	WasTestSkipped bool
}

var infos = map[Result]Info{
	Error:                   {"ERROR", true, true, false},
	DriverFunctionNotFound:  {"NO_SUPPORT", true, true, true},
	DeviceNotCapable:        {"NO_SUPPORT", true, false, true},
	ApiNotCapable:           {"NO_SUPPORT (API)", true, false, true},
	KernelNotFound:          {"MISSING_KERNEL", true, true, true},
	SkippedApi:              {"SKIPPED", false, false, true},
	UnsupportedApi:          {"SKIPPED", false, false, true},
	NoImplementation:        {"NO_IMPLEMENT", true, false, true},
	IntelExtensionsRequired: {"NO_SUPPORT", true, false, true},
	InvalidArgs:             {"INVALID_ARGS", true, true, true},
	Nooped:                  {"NOOP", true, true, true},
	FilteredOut:             {"FILTERED_OUT", true, false, true},
	VerificationFail:        {"VERIF_FAIL", true, true, false},
	KernelBuildError:        {"KERNEL_BUILD_ERROR", true, true, false},
}

var names = [...]string{
	"Success",
	"Error",
	"DriverFunctionNotFound",
	"DeviceNotCapable",
	"ApiNotCapable",
	"KernelNotFound",
	"SkippedApi",
	"UnsupportedApi",
	"NoImplementation",
	"IntelExtensionsRequired",
	"InvalidArgs",
	"Nooped",
	"FilteredOut",
	"VerificationFail",
	"KernelBuildError",
}

func (r Result) String() string {
	if r < 0 || int(r) >= len(names) {
		return fmt.Sprintf("Result(%d)", int(r))
	}
	return names[r]
}

// Info returns the reporting metadata of r. Success has no metadata and
// querying it is a harness bug.
func (r Result) Info() Info {
	info, ok := infos[r]
	if !ok {
		panic(fmt.Sprintf("no metadata for result %v", r))
	}
	return info
}

// ExitCode is the process exit status a workload reports for r.
func (r Result) ExitCode() int {
	return int(r)
}

// FromExitCode maps a child's exit status back to a Result. Codes outside
// the enumeration are reported as Error.
func FromExitCode(code int) Result {
	if code < 0 || code >= len(names) {
		return Error
	}
	return Result(code)
}

// Sentinel errors a benchmark body can return instead of a Result.
var (
	ErrDeviceNotCapable = errors.New("device not capable")
	ErrApiNotCapable    = errors.New("api not capable")
	ErrKernelNotFound   = errors.New("kernel not found")
	ErrVerification     = errors.New("verification failed")
	ErrKernelBuild      = errors.New("kernel build failed")
)

// FromError converts an error from a workload body into a Result. A nil
// error is Success and unknown errors collapse to Error.
func FromError(err error) Result {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrDeviceNotCapable):
		return DeviceNotCapable
	case errors.Is(err, ErrApiNotCapable):
		return ApiNotCapable
	case errors.Is(err, ErrKernelNotFound):
		return KernelNotFound
	case errors.Is(err, ErrVerification):
		return VerificationFail
	case errors.Is(err, ErrKernelBuild):
		return KernelBuildError
	default:
		return Error
	}
}

// First returns the first non-Success result, or Success.
func First(results ...Result) Result {
	for _, r := range results {
		if r != Success {
			return r
		}
	}
	return Success
}
