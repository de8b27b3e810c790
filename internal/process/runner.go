// Package process provides abstractions for running external processes.
package process

import (
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Runner creates executable commands for demo source files.
// This interface keeps the gateway independent of the interpreter.
type Runner interface {
	// BuildCommand returns a ready-to-start command for the given source
	// path. The command should NOT be started yet.
	BuildCommand(ctx context.Context, sourcePath string) (*exec.Cmd, error)

	// Name returns a human-readable name for this runner.
	Name() string
}

// ErrNoRunner is returned when an InterpreterRunner has no command.
var ErrNoRunner = errors.New("runner command is empty")

// InterpreterRunner runs a source file with a fixed interpreter command,
// e.g. "go run" or "tsx". The source path is appended as the last argument.
type InterpreterRunner struct {
	args    []string
	workDir string
}

// NewInterpreterRunner creates a runner. workDir pins the working directory
// of every spawned process.
func NewInterpreterRunner(args []string, workDir string) *InterpreterRunner {
	return &InterpreterRunner{
		args:    append([]string(nil), args...),
		workDir: workDir,
	}
}

// Name returns the interpreter binary.
func (r *InterpreterRunner) Name() string {
	if len(r.args) == 0 {
		return ""
	}
	return r.args[0]
}

// BuildCommand creates an exec.Cmd for the interpreter and source path.
func (r *InterpreterRunner) BuildCommand(ctx context.Context, sourcePath string) (*exec.Cmd, error) {
	if len(r.args) == 0 {
		return nil, ErrNoRunner
	}
	args := append(append([]string(nil), r.args[1:]...), sourcePath)
	cmd := exec.CommandContext(ctx, r.args[0], args...)
	cmd.Dir = r.workDir
	return cmd, nil
}

// CommandString returns the command that would be executed (for debugging).
func (r *InterpreterRunner) CommandString(sourcePath string) string {
	return strings.Join(append(append([]string(nil), r.args...), sourcePath), " ")
}
