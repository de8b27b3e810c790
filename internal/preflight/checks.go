// Package preflight provides startup validation checks.
package preflight

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"syscall"

	"github.com/randomizedcoder/go-demo-viewer/internal/process"
	"github.com/randomizedcoder/go-demo-viewer/internal/registry"
)

// Note: syscall.RLIMIT_NPROC is not exported in Go's syscall package,
// so we read process limits from /proc/self/limits instead.

const (
	// minFileDescriptors covers the listener, keep-alive connections and
	// three pipes per concurrent run.
	minFileDescriptors = 256

	// minProcesses leaves room for interpreters that fork helpers,
	// e.g. `go run` spawning the compiler and the built binary.
	minProcesses = 64
)

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
	Fix      string // Remedy printed under the check, if any
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// Options selects what RunAll inspects.
type Options struct {
	Runner   *process.InterpreterRunner
	Registry *registry.Registry
	Addr     string
}

// degraded reports a problem that limits the viewer without stopping it.
// The server still starts; affected requests fail with their own errors.
func degraded(name, message string) Check {
	return Check{Name: name, Passed: true, Warning: true, Message: message, Fix: suggestFix(name)}
}

// RunAll executes all preflight checks. Only a check that predicts a bind
// failure fails the result.
func RunAll(ctx context.Context, opts Options) *Result {
	result := &Result{
		Checks: make([]Check, 0, 5),
		Passed: true,
	}
	add := func(c Check) {
		result.Checks = append(result.Checks, c)
		if !c.Passed {
			result.Passed = false
		}
	}

	add(checkRunner(ctx, opts.Runner))
	add(checkDemoDir(opts.Registry))
	add(checkFileDescriptors())
	add(checkProcessLimit())
	add(checkListenAddr(opts.Addr))

	return result
}

// checkRunner verifies the interpreter is on PATH and answers a version probe.
func checkRunner(ctx context.Context, runner *process.InterpreterRunner) Check {
	if runner == nil {
		return degraded("runner", "no runner configured; runs will fail")
	}

	path, err := runner.LookupBinary()
	if err != nil {
		return degraded("runner", err.Error()+"; runs will fail")
	}

	version, err := runner.Probe(ctx, VersionArgs(runner.Name())...)
	if err != nil || version == "" {
		// Some interpreters have no version flag; finding them is enough.
		return Check{
			Name:    "runner",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("found at %s (version unknown)", path),
		}
	}

	return Check{
		Name:    "runner",
		Passed:  true,
		Message: fmt.Sprintf("found at %s (%s)", path, version),
	}
}

// VersionArgs returns the arguments that make an interpreter print its version.
func VersionArgs(name string) []string {
	switch name {
	case "go":
		return []string{"version"}
	default:
		return []string{"--version"}
	}
}

// checkDemoDir verifies the demo directory is readable and lists demos.
func checkDemoDir(reg *registry.Registry) Check {
	if reg == nil {
		return degraded("demo_dir", "no demo directory configured; the list will be empty")
	}

	units, err := reg.Scan()
	if err != nil {
		return degraded("demo_dir", err.Error()+"; the list will be empty")
	}
	if len(units) == 0 {
		return Check{
			Name:    "demo_dir",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("%s has no matching demo files", reg.Dir()),
		}
	}
	return Check{
		Name:    "demo_dir",
		Passed:  true,
		Message: fmt.Sprintf("%s (%d demos)", reg.Dir(), len(units)),
	}
}

// checkFileDescriptors verifies sufficient file descriptors are available.
func checkFileDescriptors() Check {
	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		return Check{
			Name:    "file_descriptors",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("unable to check: %v", err),
		}
	}

	return checkLimit("file_descriptors", int(limit.Cur), minFileDescriptors)
}

// checkProcessLimit verifies sufficient process slots are available.
func checkProcessLimit() Check {
	data, err := os.ReadFile("/proc/self/limits")
	if err != nil {
		// Non-Linux or restricted access, assume OK
		return Check{
			Name:    "process_limit",
			Passed:  true,
			Warning: true,
			Message: "unable to check (non-Linux or restricted)",
		}
	}

	actual := parseMaxProcesses(string(data))
	if actual == 0 {
		return Check{
			Name:    "process_limit",
			Passed:  true,
			Warning: true,
			Message: "unable to determine (assuming OK)",
		}
	}

	return checkLimit("process_limit", actual, minProcesses)
}

// checkLimit compares a resource limit against its recommended minimum.
// A low limit only warns: concurrent runs may fail to spawn.
func checkLimit(name string, actual, required int) Check {
	c := Check{Name: name, Required: required, Actual: actual, Passed: true}
	if actual < required {
		c.Warning = true
		c.Message = fmt.Sprintf("%d is below the recommended %d", actual, required)
		c.Fix = suggestFix(name)
	}
	return c
}

// parseMaxProcesses reads the soft "Max processes" limit from the
// contents of /proc/self/limits. Returns 0 if absent.
func parseMaxProcesses(limits string) int {
	actual := 0
	for _, line := range strings.Split(limits, "\n") {
		if strings.HasPrefix(line, "Max processes") {
			fields := strings.Fields(line)
			if len(fields) >= 4 {
				if fields[2] == "unlimited" {
					actual = 1000000
				} else {
					fmt.Sscanf(fields[2], "%d", &actual)
				}
			}
			break
		}
	}
	return actual
}

// checkListenAddr warns when the viewer would accept connections from
// other hosts. Runs execute local files, so loopback is expected.
func checkListenAddr(addr string) Check {
	if addr == "" {
		return Check{Name: "listen_addr", Passed: true, Warning: true, Message: "not serving"}
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return Check{Name: "listen_addr", Passed: false, Message: err.Error()}
	}

	if host == "localhost" {
		return Check{Name: "listen_addr", Passed: true, Message: addr + " (loopback)"}
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return Check{Name: "listen_addr", Passed: true, Message: addr + " (loopback)"}
	}
	return Check{
		Name:    "listen_addr",
		Passed:  true,
		Warning: true,
		Message: addr + " is reachable from other hosts; anyone who can connect can run demos",
	}
}

// PrintResults writes the preflight check results to w.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		switch {
		case check.Fix != "":
			fmt.Fprintf(w, "    Fix: %s\n", check.Fix)
		case !check.Passed:
			fmt.Fprintf(w, "    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed or degraded check.
func suggestFix(name string) string {
	switch name {
	case "file_descriptors":
		return "ulimit -n 8192 (or edit /etc/security/limits.conf)"
	case "process_limit":
		return "ulimit -u 4096 (or edit /etc/security/limits.conf)"
	case "runner":
		return "install the interpreter or set --runner (e.g. --runner \"go run\")"
	case "demo_dir":
		return "create the directory or set --demo-dir"
	case "listen_addr":
		return "use host:port, e.g. --addr 127.0.0.1:3000"
	default:
		return "see documentation"
	}
}
