package driver

import (
	"fmt"
	"strings"

	"github.com/23skdu/longbow-bench/internal/api"
	"github.com/23skdu/longbow-bench/internal/testcase"
)

func (d *Driver) printHwInfo() {
	if d.info.HwInfo == nil {
		fmt.Fprintln(d.out, "No device information available")
		return
	}
	d.info.HwInfo(d.out)
}

// printVersion prints prefix and the version. An unknown version is an
// error only when the user asked for it.
func (d *Driver) printVersion(warn bool, prefix string) int {
	if d.info.Version != "" {
		fmt.Fprintln(d.out, prefix+d.info.Version)
		return 0
	}
	if warn {
		fmt.Fprintln(d.errOut, "Unknown version. Build with -ldflags \"-X main.version=<version>\" to include it in the binary.")
		return 1
	}
	return 0
}

// GenerateDocs prints "name;description", then " test;help" for every
// implemented test followed by "  key;help" for each of its arguments.
func (d *Driver) GenerateDocs() int {
	if strings.ContainsAny(d.info.Name, testcase.IllegalNameCharacters) {
		fmt.Fprintln(d.errOut, "ERROR: benchmark name contains invalid characters.")
		return 1
	}
	if strings.Contains(d.info.Description, ";") {
		fmt.Fprintln(d.errOut, "ERROR: benchmark description contains invalid characters.")
		return 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s;%s\n", d.info.Name, d.info.Description)
	for _, decl := range d.registry.Declarations() {
		if len(decl.Apis()) == 0 {
			continue
		}
		if strings.Contains(decl.Help(), ";") {
			fmt.Fprintf(d.errOut, "ERROR: help message of test case %q contains illegal characters.\n", decl.Name())
			return 1
		}
		fmt.Fprintf(&b, " %s;%s\n", decl.Name(), decl.Help())
		for _, a := range decl.NewArguments().ArgumentContainer().Arguments() {
			if strings.Contains(a.Help(), ";") {
				fmt.Fprintf(d.errOut, "ERROR: help message of argument %q in test case %q contains illegal characters.\n", a.Key(), decl.Name())
				return 1
			}
			fmt.Fprintf(&b, "  %s;%s\n", a.Key(), a.Help())
		}
	}
	fmt.Fprint(d.out, b.String())
	return 0
}

// PrintHelp describes both run modes, the global flags and every test.
func (d *Driver) PrintHelp() {
	file := d.info.Filename
	if file == "" {
		file = d.info.Name
	}
	examples := []struct{ args, what string }{
		{"", "runs all possible tests"},
		{"--api=ocl", "runs all possible OpenCL tests"},
		{"--iterations=100 --csv", "runs all possible tests with 100 iterations and dumps results as CSV"},
		{"--testFilter=TestName", "runs a test named \"TestName\" in all predefined configurations"},
		{"--test=TestName --someParam=1 --otherParam=30", "runs a test named \"TestName\" with specified parameters"},
		{"--suite=nightly.yaml", "runs every configuration listed in a suite file"},
	}

	var b strings.Builder
	b.WriteString(d.info.Description)
	b.WriteString("\n\nThe benchmark works in two modes - all-tests mode and single-test mode. ")
	b.WriteString("Global parameters applicable for both modes:\n")
	b.WriteString(d.cfg.Args.FlagSet(d.info.Name).FlagUsages())
	b.WriteString("\nFirst mode is the default and it runs all available benchmarks in many predefined configurations.\n\n")
	b.WriteString("Second mode runs one specific benchmark with custom parameter values. Running benchmarks in this fashion requires ")
	b.WriteString("using --test argument, along with benchmark-specific parameters. All parameters have to be specified, there are no ")
	b.WriteString("default values.\n\nExample invocations:\n")
	for _, ex := range examples {
		fmt.Fprintf(&b, "\t%-60s %s\n", strings.TrimSpace(file+" "+ex.args), ex.what)
	}
	b.WriteString("\nAll available test cases with their parameters:\n")

	for _, decl := range d.registry.Declarations() {
		apis := decl.Apis()
		if len(apis) == 0 {
			continue
		}
		names := make([]string, len(apis))
		for i, a := range apis {
			names[i] = apiDisplayName(a)
		}
		fmt.Fprintf(&b, "\t%s - %s Supported compute APIs: %s.", decl.Name(), decl.Help(), strings.Join(names, ", "))
		if params := decl.NewArguments().ArgumentContainer().Help(2); params != "" {
			b.WriteString(" Parameters:\n")
			b.WriteString(params)
		} else {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	fmt.Fprint(d.out, b.String())
}

func apiDisplayName(a api.Api) string {
	switch a {
	case api.L0:
		return "Level Zero"
	case api.OpenCL:
		return "OpenCL"
	case api.SYCL:
		return "SYCL"
	case api.UR:
		return "Unified Runtime"
	case api.OpenMP:
		return "OpenMP"
	case api.SYCLPreview:
		return "SYCL Preview"
	default:
		return a.String()
	}
}
