package metrics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// ViewerMetrics is a snapshot of a running viewer's /metrics endpoint.
type ViewerMetrics struct {
	Demos      int64
	ActiveRuns int64
	Runs       map[string]float64 // by outcome, summed over demos
	TotalRuns  float64
	AvgRun     time.Duration
	Requests   float64
	Polls      float64

	// Metadata
	LastUpdate time.Time
	Healthy    bool
	Error      string
}

// Scraper periodically reads the viewer's Prometheus endpoint.
// Uses atomic.Value for lock-free metric reads.
type Scraper struct {
	url        string
	interval   time.Duration
	logger     *slog.Logger
	httpClient *http.Client

	metrics atomic.Value // *ViewerMetrics
}

// NewScraper creates a scraper for serverURL + "/metrics".
// Returns nil if serverURL is empty (feature disabled).
func NewScraper(serverURL string, interval time.Duration, logger *slog.Logger) *Scraper {
	if serverURL == "" {
		return nil
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}

	s := &Scraper{
		url:      strings.TrimRight(serverURL, "/") + "/metrics",
		interval: interval,
		logger:   logger,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
	s.metrics.Store(&ViewerMetrics{
		Healthy: false,
		Error:   "Not yet scraped",
	})
	return s
}

// Run scrapes until ctx is done.
func (s *Scraper) Run(ctx context.Context) {
	if s == nil {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Scrape(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Scrape(ctx)
		}
	}
}

// GetMetrics returns the latest snapshot (thread-safe, lock-free).
func (s *Scraper) GetMetrics() *ViewerMetrics {
	if s == nil {
		return nil
	}
	ptr, _ := s.metrics.Load().(*ViewerMetrics)
	return ptr
}

// Scrape performs one scrape and stores the result. On failure the last
// values are kept and the snapshot is marked unhealthy.
func (s *Scraper) Scrape(ctx context.Context) {
	now := time.Now()
	families, err := s.fetch(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("viewer_scrape_error", "url", s.url, "error", err)
		}
		last := *s.GetMetrics()
		last.Healthy = false
		last.Error = err.Error()
		last.LastUpdate = now
		s.metrics.Store(&last)
		return
	}

	m := Extract(families)
	m.LastUpdate = now
	m.Healthy = true
	s.metrics.Store(m)
}

func (s *Scraper) fetch(ctx context.Context) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	return ParseText(resp.Body)
}

// ParseText decodes the Prometheus text exposition format.
func ParseText(r io.Reader) (map[string]*dto.MetricFamily, error) {
	decoder := expfmt.NewDecoder(r, expfmt.FmtText)
	parsed := make(map[string]*dto.MetricFamily)

	for {
		var mf dto.MetricFamily
		if err := decoder.Decode(&mf); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("decode error: %w", err)
		}
		parsed[mf.GetName()] = &mf
	}
	return parsed, nil
}

// Extract builds a snapshot from parsed metric families.
func Extract(families map[string]*dto.MetricFamily) *ViewerMetrics {
	m := &ViewerMetrics{
		Demos:      int64(Sum(families, "demo_viewer_demos", nil)),
		ActiveRuns: int64(Sum(families, "demo_viewer_active_runs", nil)),
		Runs:       make(map[string]float64),
		Requests:   Sum(families, "demo_viewer_http_requests_total", nil),
		Polls:      Sum(families, "demo_viewer_mtime_polls_total", nil),
	}

	if mf, ok := families["demo_viewer_runs_total"]; ok {
		for _, metric := range mf.GetMetric() {
			outcome := labelValue(metric, "outcome")
			m.Runs[outcome] += metric.GetCounter().GetValue()
			m.TotalRuns += metric.GetCounter().GetValue()
		}
	}

	if mf, ok := families["demo_viewer_run_duration_seconds"]; ok && len(mf.GetMetric()) > 0 {
		h := mf.GetMetric()[0].GetHistogram()
		if h.GetSampleCount() > 0 {
			avg := h.GetSampleSum() / float64(h.GetSampleCount())
			m.AvgRun = time.Duration(avg * float64(time.Second))
		}
	}
	return m
}

// Sum adds the counter, gauge or untyped values of every series in the
// family whose labels include all of match.
func Sum(families map[string]*dto.MetricFamily, name string, match map[string]string) float64 {
	mf, ok := families[name]
	if !ok {
		return 0
	}

	var total float64
	for _, metric := range mf.GetMetric() {
		if !labelsMatch(metric, match) {
			continue
		}
		switch mf.GetType() {
		case dto.MetricType_COUNTER:
			total += metric.GetCounter().GetValue()
		case dto.MetricType_GAUGE:
			total += metric.GetGauge().GetValue()
		case dto.MetricType_UNTYPED:
			total += metric.GetUntyped().GetValue()
		}
	}
	return total
}

func labelsMatch(metric *dto.Metric, match map[string]string) bool {
	for k, v := range match {
		if labelValue(metric, k) != v {
			return false
		}
	}
	return true
}

func labelValue(metric *dto.Metric, name string) string {
	for _, label := range metric.GetLabel() {
		if label.GetName() == name {
			return label.GetValue()
		}
	}
	return ""
}
