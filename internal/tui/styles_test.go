package tui

import (
	"errors"
	"strings"
	"testing"

	"github.com/randomizedcoder/go-demo-viewer/internal/gateway"
	"github.com/randomizedcoder/go-demo-viewer/internal/metrics"
	"github.com/randomizedcoder/go-demo-viewer/internal/poller"
	"github.com/randomizedcoder/go-demo-viewer/internal/registry"
)

func TestStateLabel(t *testing.T) {
	tests := []struct {
		state poller.State
		want  string
	}{
		{poller.Idle, "IDLE"},
		{poller.Running, "RUNNING"},
		{poller.Displaying, "READY"},
	}
	for _, tt := range tests {
		if got := StateLabel(tt.state); !strings.Contains(got, tt.want) {
			t.Errorf("StateLabel(%v) = %q, want to contain %q", tt.state, got, tt.want)
		}
	}
}

func TestLiveReloadLabel(t *testing.T) {
	if !strings.Contains(LiveReloadLabel(true), "on") {
		t.Error("expected on label")
	}
	if !strings.Contains(LiveReloadLabel(false), "off") {
		t.Error("expected off label")
	}
}

func TestRenderKeyValue(t *testing.T) {
	got := RenderKeyValue("Demos", "10")
	if !strings.Contains(got, "Demos:") || !strings.Contains(got, "10") {
		t.Errorf("RenderKeyValue = %q", got)
	}
}

// =============================================================================
// Tests: View
// =============================================================================

func TestView_Quitting(t *testing.T) {
	m := newTestModel(&fakeAPI{})
	m.quitting = true
	if m.View() != "" {
		t.Error("View() should be empty when quitting")
	}
}

func TestView_Loading(t *testing.T) {
	m := New(Config{API: &fakeAPI{}})
	if !strings.Contains(m.View(), "Loading") {
		t.Error("View() should show loading state before the listing arrives")
	}
}

func TestView_ListsDemos(t *testing.T) {
	m := newTestModel(&fakeAPI{})
	view := m.View()

	for _, want := range []string{"go-demo-viewer", "Syntax Demo", "Functions Demo", "Interfaces Demo", "enter: run", "Select a demo"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestView_NoDemos(t *testing.T) {
	m := newTestModel(&fakeAPI{demos: []registry.Unit{}})
	if !strings.Contains(m.View(), "No demos found") {
		t.Error("View() should report an empty listing")
	}
}

func TestView_ShowsResult(t *testing.T) {
	m := newTestModel(&fakeAPI{})
	m = update(m, key("enter"))
	m.result = &gateway.Result{Success: true, Output: "line one\nline two\n", ExitCode: 0, DurationMs: 42}

	view := m.View()
	for _, want := range []string{"Output: Syntax Demo", "line one", "line two", "exit 0", "42 ms"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestView_ShowsFailure(t *testing.T) {
	m := newTestModel(&fakeAPI{})
	m = update(m, key("enter"))
	m.result = &gateway.Result{Error: "panic: boom", ExitCode: 2}

	view := m.View()
	if !strings.Contains(view, "panic: boom") || !strings.Contains(view, "exit 2") {
		t.Errorf("View() should show stderr and exit code:\n%s", view)
	}
}

func TestView_ShowsTimeout(t *testing.T) {
	m := newTestModel(&fakeAPI{})
	m = update(m, key("enter"))
	m.result = &gateway.Result{Error: "timed out after 10s", ExitCode: 137, TimedOut: true}

	if !strings.Contains(m.View(), "timed out") {
		t.Error("View() should flag timed out runs")
	}
}

func TestView_ShowsTransportError(t *testing.T) {
	m := newTestModel(&fakeAPI{})
	m.runErr = errors.New("connection refused")

	if !strings.Contains(m.View(), "connection refused") {
		t.Error("View() should show transport errors")
	}
}

func TestView_TailsLongOutput(t *testing.T) {
	m := newTestModel(&fakeAPI{})
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("row\n")
	}
	b.WriteString("last row\n")

	lines := m.tail(b.String())
	if len(lines) > m.height {
		t.Errorf("tail returned %d lines for height %d", len(lines), m.height)
	}
	if !strings.Contains(lines[0], "lines above") {
		t.Errorf("first line = %q, want elision marker", lines[0])
	}
	if !strings.Contains(lines[len(lines)-1], "last row") {
		t.Errorf("last line = %q", lines[len(lines)-1])
	}
}

func TestView_ServerPanel(t *testing.T) {
	m := newTestModel(&fakeAPI{})
	m.scraper = metrics.NewScraper("http://127.0.0.1:1", 0, nil)

	if !strings.Contains(m.View(), "Not yet scraped") {
		t.Error("server panel should wait for the first scrape")
	}
}
