package process

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"
)

// waitDelay bounds how long Wait keeps reading pipes after the process
// group was killed.
const waitDelay = 2 * time.Second

// Outcome captures the result of one process execution.
type Outcome struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration

	// TimedOut is set when the process was killed because ctx hit its
	// deadline. A clean exit racing the deadline is not a timeout.
	TimedOut bool

	// Signaled is set when the process was terminated by a signal.
	Signaled bool

	// Started is false when the process could not be spawned.
	Started bool

	// Err is nil only for a clean zero exit.
	Err error
}

// Success reports whether the process started and exited zero.
func (o Outcome) Success() bool {
	return o.Started && o.Err == nil && o.ExitCode == 0
}

// Execute starts cmd in its own process group, captures stdout and stderr
// in full and waits for it. When ctx is done the whole group is killed, so
// grandchildren spawned by the interpreter die too. cmd must have been
// built with exec.CommandContext(ctx, ...).
func Execute(ctx context.Context, cmd *exec.Cmd) Outcome {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Set process group for clean shutdown
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	var killed atomic.Bool
	cmd.Cancel = func() error {
		killed.Store(true)
		return killGroup(cmd)
	}
	cmd.WaitDelay = waitDelay

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Outcome{
			ExitCode: -1,
			Duration: time.Since(start),
			Err:      err,
		}
	}

	waitErr := cmd.Wait()
	code, signaled := extractExitCode(waitErr)
	return Outcome{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: code,
		Duration: time.Since(start),
		TimedOut: timedOut(waitErr, killed.Load(), ctx.Err()),
		Signaled: signaled,
		Started:  true,
		Err:      waitErr,
	}
}

// timedOut reports whether a run failed because its deadline fired and the
// group was killed for it. A process that exited on its own is never a
// timeout, even if the deadline passed before Wait returned.
func timedOut(waitErr error, killed bool, ctxErr error) bool {
	return waitErr != nil && killed && errors.Is(ctxErr, context.DeadlineExceeded)
}

// killGroup sends SIGKILL to the process group of cmd, falling back to the
// process itself.
func killGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if pgid, err := syscall.Getpgid(cmd.Process.Pid); err == nil {
		return syscall.Kill(-pgid, syscall.SIGKILL)
	}
	return cmd.Process.Kill()
}

// extractExitCode extracts the exit code from a Wait() error and reports
// whether the process was terminated by a signal.
func extractExitCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				// Signal exit: 128 + signal number
				return 128 + int(status.Signal()), true
			}
			return status.ExitStatus(), false
		}
	}

	// Unknown error, assume exit code 1
	return 1, false
}
