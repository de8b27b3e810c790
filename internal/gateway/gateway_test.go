package gateway

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/randomizedcoder/go-demo-viewer/internal/logging"
	"github.com/randomizedcoder/go-demo-viewer/internal/metrics"
	"github.com/randomizedcoder/go-demo-viewer/internal/process"
	"github.com/randomizedcoder/go-demo-viewer/internal/registry"
)

// =============================================================================
// Test Helpers
// =============================================================================

// testScripts are shell demo units run with "sh".
var testScripts = map[string]string{
	"01-hello-demo.sh":   "echo hello\n",
	"02-warn-demo.sh":    "echo out\necho 'deprecated: x' >&2\n",
	"03-fail-demo.sh":    "echo partial\necho 'panic: boom' >&2\nexit 1\n",
	"04-silent-demo.sh":  "exit 3\n",
	"05-hang-demo.sh":    "echo started\nsleep 30\n",
	"06-pwd-demo.sh":     "pwd\n",
	"07-args-demo.sh":    "echo \"$0\"\n",
	"08-noisy-demo.sh":   "echo 'still going' >&2\nsleep 30\n",
	"09-exit130-demo.sh": "exit 130\n",
	"10-killed-demo.sh":  "kill -TERM $$\n",
}

type testEnv struct {
	root    string
	gateway *Gateway
	logs    *bytes.Buffer
	reg     *prometheus.Registry
}

func newTestEnv(t *testing.T, timeout time.Duration) *testEnv {
	t.Helper()
	root := t.TempDir()
	demoDir := filepath.Join(root, "demo")
	if err := os.Mkdir(demoDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, body := range testScripts {
		if err := os.WriteFile(filepath.Join(demoDir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var logs bytes.Buffer
	logger := logging.NewLoggerWithWriter(&logs, "text", "debug")
	promReg := prometheus.NewRegistry()

	g := New(Config{
		Registry: registry.New(registry.Config{Dir: demoDir, Suffix: "demo", Extension: ".sh", Logger: logger}),
		Runner:   process.NewInterpreterRunner([]string{"sh"}, root),
		WorkDir:  root,
		Timeout:  timeout,
		Metrics:  metrics.NewCollectorWithRegistry(metrics.CollectorConfig{}, promReg),
		Logger:   logger,
	})
	return &testEnv{root: root, gateway: g, logs: &logs, reg: promReg}
}

func (e *testEnv) run(t *testing.T, id string) Result {
	t.Helper()
	r, err := e.gateway.Run(context.Background(), id)
	if err != nil {
		t.Fatalf("Run(%s): %v", id, err)
	}
	return r
}

// =============================================================================
// Tests
// =============================================================================

func TestRun_Success(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	r := env.run(t, "01")

	if !r.Success {
		t.Fatalf("Success = false, error = %q", r.Error)
	}
	if !strings.Contains(r.Output, "hello") {
		t.Errorf("Output = %q, want hello", r.Output)
	}
	if r.Error != "" {
		t.Errorf("Error = %q, want absent", r.Error)
	}
	if r.DemoID != "01" || r.RunID == "" || r.ExitCode != 0 || r.TimedOut {
		t.Errorf("metadata = %+v", r)
	}
	if !strings.Contains(env.logs.String(), "demo_run_completed") {
		t.Error("missing demo_run_completed log")
	}
}

func TestRun_SuccessWithWarnings(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	r := env.run(t, "02")

	if !r.Success {
		t.Fatal("stderr output alone must not fail a run")
	}
	if !strings.Contains(r.Error, "deprecated") {
		t.Errorf("Error = %q, want the warning text", r.Error)
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	r := env.run(t, "03")

	if r.Success {
		t.Fatal("Success = true for exit 1")
	}
	if r.Output != "partial\n" {
		t.Errorf("Output = %q, want partial stdout", r.Output)
	}
	if !strings.Contains(r.Error, "panic: boom") {
		t.Errorf("Error = %q, want captured stderr", r.Error)
	}
	if r.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", r.ExitCode)
	}

	logs := env.logs.String()
	if !strings.Contains(logs, "demo_run_failed") || !strings.Contains(logs, "demo_stderr") {
		t.Errorf("expected failure and stderr logs, got:\n%s", logs)
	}
}

func TestRun_NonZeroExitWithoutStderr(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	r := env.run(t, "04")

	if r.Success {
		t.Fatal("Success = true for exit 3")
	}
	if r.Error == "" {
		t.Fatal("failed run must carry diagnostic text")
	}
	if !strings.Contains(r.Error, "exit status 3") {
		t.Errorf("Error = %q, want exit status", r.Error)
	}
}

func TestRun_Timeout(t *testing.T) {
	const timeout = 300 * time.Millisecond
	env := newTestEnv(t, timeout)

	start := time.Now()
	r := env.run(t, "05")
	elapsed := time.Since(start)

	if r.Success {
		t.Fatal("Success = true for hung run")
	}
	if !r.TimedOut {
		t.Error("TimedOut = false")
	}
	if elapsed > timeout+3*time.Second {
		t.Errorf("Run took %v, want about %v", elapsed, timeout)
	}
	if r.Output != "started\n" {
		t.Errorf("Output = %q, want partial output", r.Output)
	}
	if !strings.Contains(r.Error, "timed out after 300ms") {
		t.Errorf("Error = %q, want timeout message", r.Error)
	}
}

func TestRun_TimeoutKeepsStderr(t *testing.T) {
	env := newTestEnv(t, 300*time.Millisecond)
	r := env.run(t, "08")

	if !strings.Contains(r.Error, "still going") || !strings.Contains(r.Error, "timed out") {
		t.Errorf("Error = %q, want stderr followed by timeout message", r.Error)
	}
}

func TestRun_NotFound(t *testing.T) {
	env := newTestEnv(t, time.Second)

	_, err := env.gateway.Run(context.Background(), "99")
	if !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRun_WorkDirAndRelativePath(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)

	r := env.run(t, "06")
	wantDir, _ := filepath.EvalSymlinks(env.root)
	gotDir, _ := filepath.EvalSymlinks(strings.TrimSpace(r.Output))
	if gotDir != wantDir {
		t.Errorf("pwd = %q, want %q", gotDir, wantDir)
	}

	r = env.run(t, "07")
	if strings.TrimSpace(r.Output) != filepath.Join("demo", "07-args-demo.sh") {
		t.Errorf("source argument = %q, want relative path", r.Output)
	}
}

func TestRun_SpawnError(t *testing.T) {
	env := newTestEnv(t, time.Second)
	env.gateway.runner = process.NewInterpreterRunner([]string{"definitely-not-a-real-binary-xyz"}, env.root)

	r := env.run(t, "01")
	if r.Success {
		t.Fatal("Success = true for missing runner")
	}
	if !strings.Contains(r.Error, "failed to start") {
		t.Errorf("Error = %q, want spawn error", r.Error)
	}
}

func TestRun_EmptyRunner(t *testing.T) {
	env := newTestEnv(t, time.Second)
	env.gateway.runner = process.NewInterpreterRunner(nil, env.root)

	r := env.run(t, "01")
	if r.Success || r.Error == "" {
		t.Errorf("result = %+v, want failure with error", r)
	}
}

func TestRun_ConcurrentSameID(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)

	const n = 5
	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := env.gateway.Run(context.Background(), "01")
			if err != nil || !r.Success {
				t.Errorf("concurrent run failed: %v %+v", err, r)
				return
			}
			ids <- r.RunID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate run id %s", id)
		}
		seen[id] = true
	}
}

func TestRun_RecordsMetrics(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	env.run(t, "01")
	env.run(t, "03")

	families, err := env.reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	byName := make(map[string]*dto.MetricFamily)
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	if v := metrics.Sum(byName, "demo_viewer_runs_total", map[string]string{"demo": "01", "outcome": metrics.OutcomeSuccess}); v != 1 {
		t.Errorf("runs_total{01,success} = %v, want 1", v)
	}
	if v := metrics.Sum(byName, "demo_viewer_runs_total", map[string]string{"demo": "03", "outcome": metrics.OutcomeError}); v != 1 {
		t.Errorf("runs_total{03,error} = %v, want 1", v)
	}
	if v := metrics.Sum(byName, "demo_viewer_active_runs", nil); v != 0 {
		t.Errorf("active_runs = %v, want 0", v)
	}
}

func TestRun_OutcomeSignalOnlyForSignalDeath(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	plain := env.run(t, "09")
	killed := env.run(t, "10")

	if plain.ExitCode != 130 || killed.ExitCode != 143 {
		t.Fatalf("exit codes = %d, %d, want 130, 143", plain.ExitCode, killed.ExitCode)
	}

	families, err := env.reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	byName := make(map[string]*dto.MetricFamily)
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	if v := metrics.Sum(byName, "demo_viewer_runs_total", map[string]string{"demo": "09", "outcome": metrics.OutcomeError}); v != 1 {
		t.Errorf("runs_total{09,error} = %v, want 1", v)
	}
	if v := metrics.Sum(byName, "demo_viewer_runs_total", map[string]string{"demo": "09", "outcome": metrics.OutcomeSignal}); v != 0 {
		t.Errorf("runs_total{09,signal} = %v, want 0", v)
	}
	if v := metrics.Sum(byName, "demo_viewer_runs_total", map[string]string{"demo": "10", "outcome": metrics.OutcomeSignal}); v != 1 {
		t.Errorf("runs_total{10,signal} = %v, want 1", v)
	}
}

func TestNew_Defaults(t *testing.T) {
	g := New(Config{})
	if g.Timeout() != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", g.Timeout(), DefaultTimeout)
	}
	if g.logger == nil {
		t.Error("logger should default to slog.Default")
	}
}
