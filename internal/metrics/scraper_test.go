package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// mockPrometheusServer creates an HTTP server that serves Prometheus metrics.
func mockPrometheusServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metrics" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

const sampleViewerMetrics = `# HELP demo_viewer_demos Number of demos found by the last listing
# TYPE demo_viewer_demos gauge
demo_viewer_demos 10
# HELP demo_viewer_active_runs Demo processes currently running
# TYPE demo_viewer_active_runs gauge
demo_viewer_active_runs 1
# HELP demo_viewer_runs_total Demo runs by demo id and outcome
# TYPE demo_viewer_runs_total counter
demo_viewer_runs_total{demo="01",outcome="success"} 3
demo_viewer_runs_total{demo="02",outcome="success"} 2
demo_viewer_runs_total{demo="02",outcome="error"} 1
# HELP demo_viewer_run_duration_seconds Wall-clock duration of demo runs
# TYPE demo_viewer_run_duration_seconds histogram
demo_viewer_run_duration_seconds_bucket{le="1"} 6
demo_viewer_run_duration_seconds_bucket{le="+Inf"} 6
demo_viewer_run_duration_seconds_sum 3
demo_viewer_run_duration_seconds_count 6
# HELP demo_viewer_http_requests_total HTTP requests by route and status code
# TYPE demo_viewer_http_requests_total counter
demo_viewer_http_requests_total{code="200",route="/api/demos"} 4
demo_viewer_http_requests_total{code="404",route="/api/run/{id}"} 1
`

func TestParseTextAndExtract(t *testing.T) {
	families, err := ParseText(strings.NewReader(sampleViewerMetrics))
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}

	m := Extract(families)
	if m.Demos != 10 {
		t.Errorf("Demos = %d, want 10", m.Demos)
	}
	if m.ActiveRuns != 1 {
		t.Errorf("ActiveRuns = %d, want 1", m.ActiveRuns)
	}
	if m.TotalRuns != 6 {
		t.Errorf("TotalRuns = %v, want 6", m.TotalRuns)
	}
	if m.Runs[OutcomeSuccess] != 5 || m.Runs[OutcomeError] != 1 {
		t.Errorf("Runs = %v", m.Runs)
	}
	if m.AvgRun != 500*time.Millisecond {
		t.Errorf("AvgRun = %v, want 500ms", m.AvgRun)
	}
	if m.Requests != 5 {
		t.Errorf("Requests = %v, want 5", m.Requests)
	}
}

func TestParseText_Invalid(t *testing.T) {
	if _, err := ParseText(strings.NewReader("not { valid")); err == nil {
		t.Error("expected decode error")
	}
}

func TestNewScraper_Disabled(t *testing.T) {
	s := NewScraper("", time.Second, nil)
	if s != nil {
		t.Fatal("empty URL should disable the scraper")
	}
	// Methods are nil-safe.
	if s.GetMetrics() != nil {
		t.Error("GetMetrics on nil scraper should return nil")
	}
	s.Run(context.Background())
}

func TestScraper_InitialState(t *testing.T) {
	s := NewScraper("http://127.0.0.1:1", time.Second, nil)
	m := s.GetMetrics()
	if m == nil || m.Healthy || m.Error == "" {
		t.Errorf("initial metrics = %+v, want unhealthy with error", m)
	}
}

func TestScraper_Scrape(t *testing.T) {
	srv := mockPrometheusServer(t, sampleViewerMetrics, http.StatusOK)
	s := NewScraper(srv.URL+"/", time.Second, nil)

	s.Scrape(context.Background())

	m := s.GetMetrics()
	if !m.Healthy {
		t.Fatalf("Healthy = false, error = %s", m.Error)
	}
	if m.TotalRuns != 6 {
		t.Errorf("TotalRuns = %v, want 6", m.TotalRuns)
	}
	if m.LastUpdate.IsZero() {
		t.Error("LastUpdate not set")
	}
}

func TestScraper_FailureKeepsLastValues(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		w.Write([]byte(sampleViewerMetrics))
	}))
	defer srv.Close()

	s := NewScraper(srv.URL, time.Second, nil)
	s.Scrape(context.Background())

	status.Store(http.StatusInternalServerError)
	s.Scrape(context.Background())

	m := s.GetMetrics()
	if m.Healthy {
		t.Error("Healthy = true after failed scrape")
	}
	if !strings.Contains(m.Error, "500") {
		t.Errorf("Error = %q, want http status", m.Error)
	}
	if m.Demos != 10 {
		t.Errorf("Demos = %d, last values should be kept", m.Demos)
	}
}

func TestScraper_AgainstCollector(t *testing.T) {
	c, registry := newTestCollector()
	c.SetDemoCount(3)
	c.RunStarted()
	c.RunFinished(RunRecord{DemoID: "01", Outcome: OutcomeSuccess, Duration: time.Second})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewScraper(srv.URL, time.Second, nil)
	s.Scrape(context.Background())

	m := s.GetMetrics()
	if !m.Healthy {
		t.Fatalf("scrape failed: %s", m.Error)
	}
	if m.Demos != 3 || m.TotalRuns != 1 || m.Runs[OutcomeSuccess] != 1 {
		t.Errorf("snapshot = %+v", m)
	}
	if m.AvgRun != time.Second {
		t.Errorf("AvgRun = %v, want 1s", m.AvgRun)
	}
}

func TestScraper_RunStopsOnCancel(t *testing.T) {
	srv := mockPrometheusServer(t, sampleViewerMetrics, http.StatusOK)
	s := NewScraper(srv.URL, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if !s.GetMetrics().Healthy {
		t.Error("expected at least one successful scrape")
	}
}
