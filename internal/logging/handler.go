package logging

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

const (
	// MaxLineLength is the maximum length of a logged line before truncation.
	// The run result itself is never truncated.
	MaxLineLength = 4096

	// MaxBufferedLines is the number of recent lines kept per run.
	MaxBufferedLines = 50
)

// StderrHandler logs the diagnostic output of one demo run line by line
// and keeps the most recent lines for failure summaries.
type StderrHandler struct {
	demoID  string
	runID   string
	logger  *slog.Logger
	verbose bool

	// Circular buffer for recent lines
	buffer []string
	bufIdx int
	mu     sync.Mutex
}

// NewStderrHandler creates a handler for a single run.
func NewStderrHandler(demoID, runID string, logger *slog.Logger, verbose bool) *StderrHandler {
	return &StderrHandler{
		demoID:  demoID,
		runID:   runID,
		logger:  logger,
		verbose: verbose,
		buffer:  make([]string, MaxBufferedLines),
	}
}

// HandleReader reads r to EOF and processes each line.
func (h *StderrHandler) HandleReader(r io.Reader) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, MaxLineLength)
	scanner.Buffer(buf, MaxLineLength*4)

	for scanner.Scan() {
		h.HandleLine(scanner.Text())
	}
}

// HandleLine processes a single line of stderr output.
func (h *StderrHandler) HandleLine(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength] + "...(truncated)"
	}

	h.mu.Lock()
	h.buffer[h.bufIdx] = line
	h.bufIdx = (h.bufIdx + 1) % MaxBufferedLines
	h.mu.Unlock()

	h.logLine(line)
}

func (h *StderrHandler) logLine(line string) {
	level := h.classifyLine(line)

	// In non-verbose mode, only log warnings and errors
	if !h.verbose && level == slog.LevelDebug {
		return
	}

	h.logger.Log(context.Background(), level, "demo_stderr",
		"demo_id", h.demoID,
		"run_id", h.runID,
		"line", line,
	)
}

// classifyLine maps a line to a log level. Demo diagnostics are never
// errors of the viewer itself, so the highest level used is Warn.
func (h *StderrHandler) classifyLine(line string) slog.Level {
	lower := strings.ToLower(line)

	switch {
	case strings.HasPrefix(lower, "panic:"),
		strings.Contains(lower, "error"),
		strings.Contains(lower, "exception"),
		strings.Contains(lower, "timed out"),
		strings.HasPrefix(lower, "exit status"):
		return slog.LevelWarn
	case strings.Contains(lower, "warning"),
		strings.Contains(lower, "deprecated"):
		return slog.LevelWarn
	default:
		return slog.LevelDebug
	}
}

// RecentLines returns up to n of the most recent lines, oldest first.
func (h *StderrHandler) RecentLines(n int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n > MaxBufferedLines {
		n = MaxBufferedLines
	}

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := (h.bufIdx - n + i + MaxBufferedLines) % MaxBufferedLines
		if h.buffer[idx] != "" {
			lines = append(lines, h.buffer[idx])
		}
	}
	return lines
}

// ErrorPatterns are counted for the run failure log.
var ErrorPatterns = []string{
	"panic:",
	"error",
	"undefined",
	"cannot",
	"timed out",
	"exit status",
}

// CountErrors counts occurrences of ErrorPatterns in the buffered lines.
// Matching is case-insensitive.
func (h *StderrHandler) CountErrors() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()

	counts := make(map[string]int)
	for _, line := range h.buffer {
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		for _, pattern := range ErrorPatterns {
			if strings.Contains(lower, pattern) {
				counts[pattern]++
			}
		}
	}
	return counts
}
