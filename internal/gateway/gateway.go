// Package gateway runs demo units as isolated child processes.
//
// Every failure of the child process maps to a Result with Success=false.
// The only error Run returns is registry.ErrNotFound for an unknown id.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/randomizedcoder/go-demo-viewer/internal/logging"
	"github.com/randomizedcoder/go-demo-viewer/internal/metrics"
	"github.com/randomizedcoder/go-demo-viewer/internal/process"
	"github.com/randomizedcoder/go-demo-viewer/internal/registry"
)

// DefaultTimeout bounds a single run.
const DefaultTimeout = 10 * time.Second

// Result is the outcome of one run. Error is empty when absent.
type Result struct {
	Success    bool   `json:"success"`
	Output     string `json:"output"`
	Error      string `json:"error,omitempty"`
	RunID      string `json:"run_id"`
	DemoID     string `json:"demo_id"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
	TimedOut   bool   `json:"timed_out"`
}

// Config configures a Gateway.
type Config struct {
	Registry *registry.Registry
	Runner   process.Runner

	// WorkDir is the directory runs start in. Source paths are passed to
	// the runner relative to it.
	WorkDir string
	Timeout time.Duration

	Metrics *metrics.Collector // optional
	Logger  *slog.Logger
	Verbose bool
}

// Gateway resolves demo ids and executes them.
type Gateway struct {
	registry *registry.Registry
	runner   process.Runner
	workDir  string
	timeout  time.Duration
	metrics  *metrics.Collector
	logger   *slog.Logger
	verbose  bool
}

// New creates a Gateway.
func New(cfg Config) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		registry: cfg.Registry,
		runner:   cfg.Runner,
		workDir:  cfg.WorkDir,
		timeout:  timeout,
		metrics:  cfg.Metrics,
		logger:   logger,
		verbose:  cfg.Verbose,
	}
}

// Timeout returns the per-run time bound.
func (g *Gateway) Timeout() time.Duration {
	return g.timeout
}

// Run resolves id and executes the unit. Concurrent calls, even for the
// same id, spawn independent processes.
func (g *Gateway) Run(ctx context.Context, id string) (Result, error) {
	unit, err := g.registry.Resolve(id)
	if err != nil {
		return Result{}, err
	}

	runID := uuid.NewString()
	source := g.sourcePath(unit)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	g.logger.Info("demo_run_started",
		"demo_id", unit.ID,
		"run_id", runID,
		"file", source,
	)
	if g.metrics != nil {
		g.metrics.RunStarted()
	}

	var outcome process.Outcome
	cmd, err := g.runner.BuildCommand(ctx, source)
	if err != nil {
		outcome = process.Outcome{ExitCode: -1, Err: err}
	} else {
		outcome = process.Execute(ctx, cmd)
	}

	result := g.buildResult(unit.ID, runID, outcome)
	g.record(unit.ID, runID, outcome, result)
	return result, nil
}

// sourcePath returns the unit path relative to the working directory.
func (g *Gateway) sourcePath(unit registry.Unit) string {
	if g.workDir == "" {
		return unit.Path
	}
	if rel, err := filepath.Rel(g.workDir, unit.Path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	if abs, err := filepath.Abs(unit.Path); err == nil {
		return abs
	}
	return unit.Path
}

func (g *Gateway) buildResult(demoID, runID string, o process.Outcome) Result {
	r := Result{
		Success:    o.Success(),
		Output:     o.Stdout,
		Error:      o.Stderr,
		RunID:      runID,
		DemoID:     demoID,
		ExitCode:   o.ExitCode,
		DurationMs: o.Duration.Milliseconds(),
		TimedOut:   o.TimedOut,
	}
	if r.Success {
		return r
	}

	// A failed run always carries diagnostic text.
	switch {
	case o.TimedOut:
		msg := fmt.Sprintf("timed out after %s", g.timeout)
		if r.Error != "" {
			msg = strings.TrimRight(r.Error, "\n") + "\n" + msg
		}
		r.Error = msg
	case r.Error != "":
		// stderr is the diagnostic
	case !o.Started && o.Err != nil:
		r.Error = fmt.Sprintf("failed to start: %v", o.Err)
	case o.Err != nil:
		r.Error = o.Err.Error()
	default:
		r.Error = fmt.Sprintf("exit status %d", o.ExitCode)
	}
	return r
}

func (g *Gateway) record(demoID, runID string, o process.Outcome, r Result) {
	outcome := metrics.RunOutcome(o.Started, o.TimedOut, o.Signaled, o.ExitCode)
	if g.metrics != nil {
		g.metrics.RunFinished(metrics.RunRecord{
			DemoID:      demoID,
			Outcome:     outcome,
			Duration:    o.Duration,
			StdoutBytes: len(o.Stdout),
			StderrBytes: len(o.Stderr),
		})
	}

	stderr := logging.NewStderrHandler(demoID, runID, g.logger, g.verbose)
	stderr.HandleReader(strings.NewReader(o.Stderr))

	if r.Success {
		g.logger.Info("demo_run_completed",
			"demo_id", demoID,
			"run_id", runID,
			"duration_ms", r.DurationMs,
			"stdout_bytes", len(o.Stdout),
			"stderr_bytes", len(o.Stderr),
		)
		return
	}

	g.logger.Warn("demo_run_failed",
		"demo_id", demoID,
		"run_id", runID,
		"outcome", outcome,
		"exit_code", r.ExitCode,
		"timed_out", r.TimedOut,
		"duration_ms", r.DurationMs,
		"error_counts", stderr.CountErrors(),
		"last_lines", stderr.RecentLines(5),
	)
}
