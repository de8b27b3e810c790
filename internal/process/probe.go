package process

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// probeTimeout bounds the version probe. `go version` is fast but a cold
// toolchain download can stall.
const probeTimeout = 5 * time.Second

// LookupBinary resolves the interpreter binary on PATH.
func (r *InterpreterRunner) LookupBinary() (string, error) {
	if len(r.args) == 0 {
		return "", ErrNoRunner
	}
	path, err := exec.LookPath(r.args[0])
	if err != nil {
		return "", fmt.Errorf("runner %q not found in PATH: %w", r.args[0], err)
	}
	return path, nil
}

// Probe runs the interpreter with versionArgs and returns the first line of
// its output. Used for the startup banner and preflight checks.
func (r *InterpreterRunner) Probe(ctx context.Context, versionArgs ...string) (string, error) {
	binary, err := r.LookupBinary()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, binary, versionArgs...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("probe %s failed: %w", r.args[0], err)
	}

	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	return line, nil
}
