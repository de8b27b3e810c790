// Package viewer wires the demo registry, execution gateway, change
// oracle and HTTP server into the `serve` application.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-demo-viewer/internal/changes"
	"github.com/randomizedcoder/go-demo-viewer/internal/config"
	"github.com/randomizedcoder/go-demo-viewer/internal/gateway"
	"github.com/randomizedcoder/go-demo-viewer/internal/metrics"
	"github.com/randomizedcoder/go-demo-viewer/internal/preflight"
	"github.com/randomizedcoder/go-demo-viewer/internal/process"
	"github.com/randomizedcoder/go-demo-viewer/internal/registry"
	"github.com/randomizedcoder/go-demo-viewer/internal/server"
)

// ShutdownTimeout bounds the graceful stop of the HTTP server.
const ShutdownTimeout = 10 * time.Second

// ErrPreflightFailed is returned by Start when a check predicts the server
// cannot bind. Degraded checks only warn.
var ErrPreflightFailed = errors.New("preflight checks failed (use --skip-preflight to override)")

// Options carries what the config file does not.
type Options struct {
	Version string
	Out     io.Writer // banner and summary; defaults to os.Stdout

	// Registry isolates metrics; defaults to a fresh registry.
	Registry *prometheus.Registry
}

// App coordinates all components of a running viewer.
type App struct {
	config *config.Config
	logger *slog.Logger
	out    io.Writer

	registry *registry.Registry
	runner   *process.InterpreterRunner
	gateway  *gateway.Gateway
	oracle   *changes.Oracle
	metrics  *metrics.Collector
	server   *server.Server

	startTime time.Time
}

// New builds the component graph. Nothing is started.
func New(cfg *config.Config, logger *slog.Logger, opts Options) *App {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	promReg := opts.Registry
	if promReg == nil {
		promReg = prometheus.NewRegistry()
	}

	reg := registry.New(registry.Config{
		Dir:       cfg.DemoPath(),
		Suffix:    cfg.Suffix,
		Extension: cfg.Extension,
		Logger:    logger,
	})
	runner := process.NewInterpreterRunner(cfg.RunnerArgs(), cfg.Root)

	collector := metrics.NewCollectorWithRegistry(metrics.CollectorConfig{
		Version: opts.Version,
		Runner:  cfg.Runner,
		DemoDir: cfg.DemoPath(),
	}, promReg)

	gw := gateway.New(gateway.Config{
		Registry: reg,
		Runner:   runner,
		WorkDir:  cfg.Root,
		Timeout:  cfg.Timeout,
		Metrics:  collector,
		Logger:   logger,
		Verbose:  cfg.Verbose,
	})
	oracle := changes.NewOracle(reg)

	srv := server.New(server.Config{
		Addr:     cfg.Addr,
		Registry: reg,
		Gateway:  gw,
		Oracle:   oracle,
		Metrics:  collector,
		Gatherer: promReg,
		Logger:   logger,
	})

	return &App{
		config:   cfg,
		logger:   logger,
		out:      out,
		registry: reg,
		runner:   runner,
		gateway:  gw,
		oracle:   oracle,
		metrics:  collector,
		server:   srv,
	}
}

// Start runs preflight checks, binds the server and prints the banner.
func (a *App) Start(ctx context.Context) error {
	a.startTime = time.Now()

	if !a.config.SkipPreflight {
		result := preflight.RunAll(ctx, preflight.Options{
			Runner:   a.runner,
			Registry: a.registry,
			Addr:     a.config.Addr,
		})
		preflight.PrintResults(a.out, result)
		if !result.Passed {
			return ErrPreflightFailed
		}
	}

	if err := a.server.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	a.metrics.SetDemoCount(len(a.registry.List()))
	a.printBanner()
	return nil
}

// Run starts the viewer and blocks until SIGINT, SIGTERM or ctx is done,
// then shuts down and prints the exit summary.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.logger.Info("received_signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context_cancelled")
	}

	a.Shutdown()
	a.printExitSummary()
	return nil
}

// Shutdown stops the server, waiting up to ShutdownTimeout for in-flight
// runs to answer.
func (a *App) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Warn("shutdown_incomplete", "error", err)
	}
}

// URL returns the server URL once started.
func (a *App) URL() string {
	return a.server.URL()
}

// Metrics returns the metrics collector for external access.
func (a *App) Metrics() *metrics.Collector {
	return a.metrics
}

// =============================================================================
// Console Output
// =============================================================================

const rule = "════════════════════════════════════════════════════════════"

func (a *App) printBanner() {
	local, network := bannerURLs(a.server.Addr())

	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, rule)
	fmt.Fprintln(a.out, "  go-demo-viewer")
	fmt.Fprintln(a.out, rule)
	fmt.Fprintf(a.out, "  → Local:   %s\n", local)
	for _, u := range network {
		fmt.Fprintf(a.out, "  → Network: %s\n", u)
	}
	fmt.Fprintf(a.out, "  → Demos:   %s (%s)\n", a.registry.Dir(), a.runner.CommandString("<file>"))
	fmt.Fprintln(a.out, rule)
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "  Press Ctrl+C to stop")
	fmt.Fprintln(a.out)
}

// bannerURLs derives the browser URLs for a bound address. Wildcard
// binds list every non-loopback IPv4 interface address as a network URL.
func bannerURLs(addr string) (string, []string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr, nil
	}

	ip := net.ParseIP(host)
	switch {
	case host == "" || (ip != nil && ip.IsUnspecified()):
		return "http://localhost:" + port, interfaceURLs(port)
	case ip != nil && ip.IsLoopback():
		return "http://localhost:" + port, []string{"http://" + net.JoinHostPort(host, port)}
	default:
		u := "http://" + net.JoinHostPort(host, port)
		return u, []string{u}
	}
}

func interfaceURLs(port string) []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	var urls []string
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() || ipNet.IP.To4() == nil {
			continue
		}
		urls = append(urls, "http://"+net.JoinHostPort(ipNet.IP.String(), port))
	}
	return urls
}

// printExitSummary prints a summary of the session.
func (a *App) printExitSummary() {
	summary := a.metrics.GenerateSummary()

	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, rule)
	fmt.Fprintln(a.out, "                go-demo-viewer Exit Summary")
	fmt.Fprintln(a.out, rule)
	fmt.Fprintf(a.out, "Uptime:                 %s\n", formatDuration(summary.Uptime))
	fmt.Fprintf(a.out, "Total Runs:             %d\n", summary.TotalRuns)
	fmt.Fprintf(a.out, "Peak Concurrent Runs:   %d\n", summary.PeakActive)
	fmt.Fprintln(a.out)

	if summary.TotalRuns > 0 {
		fmt.Fprintln(a.out, "Run Duration:")
		fmt.Fprintf(a.out, "  P50 (median):         %s\n", formatMs(summary.RunP50))
		fmt.Fprintf(a.out, "  P95:                  %s\n", formatMs(summary.RunP95))
		fmt.Fprintf(a.out, "  P99:                  %s\n", formatMs(summary.RunP99))
		fmt.Fprintf(a.out, "  Max:                  %s\n", formatMs(summary.RunMax))
		fmt.Fprintln(a.out)
	}

	if len(summary.Outcomes) > 0 {
		fmt.Fprintln(a.out, "Outcomes:")
		for _, outcome := range outcomeOrder {
			if n, ok := summary.Outcomes[outcome]; ok {
				fmt.Fprintf(a.out, "  %-20s %d\n", outcome, n)
			}
		}
		fmt.Fprintln(a.out)
	}

	fmt.Fprintf(a.out, "Metrics endpoint was: %s/metrics\n", strings.TrimRight(a.URL(), "/"))
	fmt.Fprintln(a.out, rule)
}

var outcomeOrder = []string{
	metrics.OutcomeSuccess,
	metrics.OutcomeError,
	metrics.OutcomeSignal,
	metrics.OutcomeTimeout,
	metrics.OutcomeSpawnError,
}

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatMs(d time.Duration) string {
	return fmt.Sprintf("%d ms", d.Milliseconds())
}
