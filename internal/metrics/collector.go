// Package metrics provides Prometheus metrics for go-demo-viewer.
//
// The Collector records demo runs, API requests and change polls and
// keeps a t-digest of run durations for the exit summary. The Scraper
// reads a running viewer's /metrics endpoint back for the terminal client.
package metrics

import (
	"sync"
	"time"

	"github.com/influxdata/tdigest"
	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes used as the "outcome" label of demo_viewer_runs_total.
const (
	OutcomeSuccess    = "success"
	OutcomeError      = "error"
	OutcomeSignal     = "signal"
	OutcomeTimeout    = "timeout"
	OutcomeSpawnError = "spawn_error"
)

// Poll results used as the "result" label of demo_viewer_mtime_polls_total.
const (
	PollOK       = "ok"
	PollNotFound = "not_found"
	PollError    = "error"
)

// RunOutcome categorizes a finished run. A high exit code alone is not a
// signal: only signaled reports a signal death.
func RunOutcome(started, timedOut, signaled bool, exitCode int) string {
	switch {
	case !started:
		return OutcomeSpawnError
	case timedOut:
		return OutcomeTimeout
	case signaled:
		return OutcomeSignal
	case exitCode == 0:
		return OutcomeSuccess
	default:
		return OutcomeError
	}
}

// RunRecord describes one finished run.
type RunRecord struct {
	DemoID      string
	Outcome     string
	Duration    time.Duration
	StdoutBytes int
	StderrBytes int
}

// Collector manages all Prometheus metrics for the viewer.
type Collector struct {
	info           *prometheus.GaugeVec
	demos          prometheus.Gauge
	activeRuns     prometheus.Gauge
	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	outputBytes    *prometheus.CounterVec
	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	pollsTotal     *prometheus.CounterVec

	startTime time.Time

	// For summary generation
	mu         sync.Mutex
	active     int
	peakActive int
	totalRuns  int64
	outcomes   map[string]int64
	digest     *tdigest.TDigest
	maxRun     time.Duration
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Version string
	Runner  string
	DemoDir string
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "demo_viewer_info",
				Help: "Information about the viewer (value always 1)",
			},
			[]string{"version", "runner", "demo_dir"},
		),
		demos: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "demo_viewer_demos",
				Help: "Number of demos found by the last listing",
			},
		),
		activeRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "demo_viewer_active_runs",
				Help: "Demo processes currently running",
			},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demo_viewer_runs_total",
				Help: "Demo runs by demo id and outcome",
			},
			[]string{"demo", "outcome"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "demo_viewer_run_duration_seconds",
				Help:    "Wall-clock duration of demo runs",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
			},
		),
		outputBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demo_viewer_run_output_bytes_total",
				Help: "Bytes captured from demo runs by stream",
			},
			[]string{"stream"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demo_viewer_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "demo_viewer_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		pollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demo_viewer_mtime_polls_total",
				Help: "Change polls by result",
			},
			[]string{"result"},
		),
		startTime: time.Now(),
		outcomes:  make(map[string]int64),
		digest:    tdigest.NewWithCompression(100),
	}

	registry.MustRegister(
		c.info,
		c.demos,
		c.activeRuns,
		c.runsTotal,
		c.runDuration,
		c.outputBytes,
		c.requestsTotal,
		c.requestLatency,
		c.pollsTotal,
	)

	c.info.WithLabelValues(cfg.Version, cfg.Runner, cfg.DemoDir).Set(1)
	return c
}

// RunStarted records a demo process being spawned.
func (c *Collector) RunStarted() {
	c.activeRuns.Inc()

	c.mu.Lock()
	c.active++
	if c.active > c.peakActive {
		c.peakActive = c.active
	}
	c.mu.Unlock()
}

// RunFinished records the end of a run started with RunStarted.
func (c *Collector) RunFinished(r RunRecord) {
	c.activeRuns.Dec()
	c.runsTotal.WithLabelValues(r.DemoID, r.Outcome).Inc()
	c.runDuration.Observe(r.Duration.Seconds())
	c.outputBytes.WithLabelValues("stdout").Add(float64(r.StdoutBytes))
	c.outputBytes.WithLabelValues("stderr").Add(float64(r.StderrBytes))

	c.mu.Lock()
	c.active--
	c.totalRuns++
	c.outcomes[r.Outcome]++
	c.digest.Add(float64(r.Duration.Nanoseconds()), 1)
	if r.Duration > c.maxRun {
		c.maxRun = r.Duration
	}
	c.mu.Unlock()
}

// SetDemoCount records the size of the latest listing.
func (c *Collector) SetDemoCount(n int) {
	c.demos.Set(float64(n))
}

// RecordRequest records one served HTTP request.
func (c *Collector) RecordRequest(route, code string, d time.Duration) {
	c.requestsTotal.WithLabelValues(route, code).Inc()
	c.requestLatency.WithLabelValues(route).Observe(d.Seconds())
}

// RecordPoll records one change poll.
func (c *Collector) RecordPoll(result string) {
	c.pollsTotal.WithLabelValues(result).Inc()
}

// =============================================================================
// Summary Generation
// =============================================================================

// Summary holds the data for generating an exit summary.
type Summary struct {
	Uptime     time.Duration
	TotalRuns  int64
	PeakActive int
	Outcomes   map[string]int64
	RunP50     time.Duration
	RunP95     time.Duration
	RunP99     time.Duration
	RunMax     time.Duration
}

// GenerateSummary creates a summary of the session.
func (c *Collector) GenerateSummary() *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &Summary{
		Uptime:     time.Since(c.startTime),
		TotalRuns:  c.totalRuns,
		PeakActive: c.peakActive,
		Outcomes:   make(map[string]int64, len(c.outcomes)),
		RunMax:     c.maxRun,
	}
	for k, v := range c.outcomes {
		s.Outcomes[k] = v
	}

	if c.totalRuns > 0 {
		s.RunP50 = time.Duration(c.digest.Quantile(0.50))
		s.RunP95 = time.Duration(c.digest.Quantile(0.95))
		s.RunP99 = time.Duration(c.digest.Quantile(0.99))
	}
	return s
}

// PeakActive returns the peak number of concurrent runs.
func (c *Collector) PeakActive() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peakActive
}

// TotalRuns returns the number of finished runs.
func (c *Collector) TotalRuns() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalRuns
}
