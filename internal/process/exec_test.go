package process

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func shell(ctx context.Context, script string) *exec.Cmd {
	return exec.CommandContext(ctx, "sh", "-c", script)
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name       string
		script     string
		success    bool
		exitCode   int
		wantStdout string
		wantStderr string
	}{
		{"stdout_only", "echo hello", true, 0, "hello\n", ""},
		{"stderr_warning", "echo out; echo warn >&2", true, 0, "out\n", "warn\n"},
		{"exit_1", "echo partial; echo boom >&2; exit 1", false, 1, "partial\n", "boom\n"},
		{"exit_42_silent", "exit 42", false, 42, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			out := Execute(ctx, shell(ctx, tt.script))

			if out.Success() != tt.success {
				t.Errorf("Success() = %v, want %v (err=%v)", out.Success(), tt.success, out.Err)
			}
			if out.ExitCode != tt.exitCode {
				t.Errorf("ExitCode = %d, want %d", out.ExitCode, tt.exitCode)
			}
			if out.Stdout != tt.wantStdout {
				t.Errorf("Stdout = %q, want %q", out.Stdout, tt.wantStdout)
			}
			if out.Stderr != tt.wantStderr {
				t.Errorf("Stderr = %q, want %q", out.Stderr, tt.wantStderr)
			}
			if !out.Started {
				t.Error("Started = false")
			}
			if out.TimedOut {
				t.Error("TimedOut = true")
			}
		})
	}
}

func TestExecute_LargeOutputNotTruncated(t *testing.T) {
	ctx := context.Background()
	out := Execute(ctx, shell(ctx, "i=0; while [ $i -lt 20000 ]; do echo line$i; i=$((i+1)); done"))

	if !out.Success() {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	if got := strings.Count(out.Stdout, "\n"); got != 20000 {
		t.Errorf("captured %d lines, want 20000", got)
	}
}

func TestExecute_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	out := Execute(ctx, shell(ctx, "echo before; sleep 30"))
	elapsed := time.Since(start)

	if out.Success() {
		t.Fatal("expected failure on timeout")
	}
	if !out.TimedOut {
		t.Error("TimedOut = false")
	}
	if elapsed > 200*time.Millisecond+waitDelay+time.Second {
		t.Errorf("Execute took %v, process group not killed", elapsed)
	}
	if out.Stdout != "before\n" {
		t.Errorf("partial stdout = %q, want %q", out.Stdout, "before\n")
	}
	if out.ExitCode != 137 {
		t.Errorf("ExitCode = %d, want 137 (SIGKILL)", out.ExitCode)
	}
}

func TestExecute_TimeoutKillsGrandchildren(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// The background sleep holds stdout open; only a group kill releases it.
	start := time.Now()
	out := Execute(ctx, shell(ctx, "sleep 30 & wait"))

	if !out.TimedOut {
		t.Error("TimedOut = false")
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond+waitDelay+time.Second {
		t.Errorf("Execute took %v", elapsed)
	}
}

func TestExecute_SpawnError(t *testing.T) {
	ctx := context.Background()
	out := Execute(ctx, exec.CommandContext(ctx, "definitely-not-a-real-binary-xyz"))

	if out.Started {
		t.Error("Started = true for missing binary")
	}
	if out.Success() {
		t.Error("Success() = true for missing binary")
	}
	if out.Err == nil {
		t.Fatal("Err = nil")
	}
	if out.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", out.ExitCode)
	}
}

func TestExtractExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     int
		signaled bool
	}{
		{"nil", nil, 0, false},
		{"exit_3", exec.Command("sh", "-c", "exit 3").Run(), 3, false},
		{"exit_130_not_signal", exec.Command("sh", "-c", "exit 130").Run(), 130, false},
		{"exit_143_not_signal", exec.Command("sh", "-c", "exit 143").Run(), 143, false},
		{"sigterm", exec.Command("sh", "-c", "kill -TERM $$").Run(), 128 + 15, true},
		{"unknown", context.Canceled, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, signaled := extractExitCode(tt.err)
			if code != tt.code {
				t.Errorf("code = %d, want %d", code, tt.code)
			}
			if signaled != tt.signaled {
				t.Errorf("signaled = %v, want %v", signaled, tt.signaled)
			}
		})
	}
}

func TestExecute_HighExitCodeIsNotSignal(t *testing.T) {
	ctx := context.Background()
	out := Execute(ctx, shell(ctx, "exit 130"))

	if out.ExitCode != 130 {
		t.Errorf("ExitCode = %d, want 130", out.ExitCode)
	}
	if out.Signaled {
		t.Error("Signaled = true for plain exit 130")
	}
}

func TestExecute_SignalDeath(t *testing.T) {
	ctx := context.Background()
	out := Execute(ctx, shell(ctx, "kill -TERM $$"))

	if !out.Signaled {
		t.Error("Signaled = false for SIGTERM death")
	}
	if out.ExitCode != 143 {
		t.Errorf("ExitCode = %d, want 143", out.ExitCode)
	}
	if out.TimedOut {
		t.Error("TimedOut = true without a deadline")
	}
}

func TestExecute_CleanExitBeforeDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := Execute(ctx, shell(ctx, "echo done"))

	if !out.Success() || out.TimedOut {
		t.Errorf("Success() = %v, TimedOut = %v, want true, false", out.Success(), out.TimedOut)
	}
}

func TestTimedOut(t *testing.T) {
	exitErr := exec.Command("sh", "-c", "exit 2").Run()

	tests := []struct {
		name    string
		waitErr error
		killed  bool
		ctxErr  error
		want    bool
	}{
		// Deadline passed between the process exiting 0 and Wait returning.
		{"clean_exit_deadline_passed", nil, false, context.DeadlineExceeded, false},
		{"clean_exit_cancel_raced", nil, true, context.DeadlineExceeded, false},
		{"own_failure_deadline_passed", exitErr, false, context.DeadlineExceeded, false},
		{"killed_on_deadline", exitErr, true, context.DeadlineExceeded, true},
		{"killed_on_cancel", exitErr, true, context.Canceled, false},
		{"no_deadline", exitErr, false, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := timedOut(tt.waitErr, tt.killed, tt.ctxErr); got != tt.want {
				t.Errorf("timedOut() = %v, want %v", got, tt.want)
			}
		})
	}
}
