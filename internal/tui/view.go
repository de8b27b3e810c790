package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-demo-viewer/internal/poller"
)

// =============================================================================
// Main View Rendering
// =============================================================================

func (m Model) renderView() string {
	snap := m.poller.Snapshot()

	sections := []string{
		m.renderHeader(snap),
		m.renderDemoList(snap),
		m.renderOutput(snap),
	}
	if m.scraper != nil {
		sections = append(sections, m.renderServerStats())
	}
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader(snap poller.Snapshot) string {
	state := "idle"
	if snap.State != poller.Idle {
		state = fmt.Sprintf("%s %s", snap.State, snap.UnitID)
	}
	reload := "off"
	if snap.LiveReload {
		reload = "on"
	}
	header := fmt.Sprintf(" go-demo-viewer │ %s │ Live reload: %s │ Reloads: %d ", state, reload, m.reloads)
	return headerStyle.Width(m.width).Render(header)
}

// =============================================================================
// Demo List
// =============================================================================

func (m Model) renderDemoList(snap poller.Snapshot) string {
	lines := []string{sectionHeaderStyle.Render("Demos")}

	switch {
	case !m.loaded:
		lines = append(lines, dimStyle.Render("Loading..."))
	case m.demosErr != nil:
		lines = append(lines, errorTextStyle.Render("Failed to load demos: "+m.demosErr.Error()))
	case len(m.demos) == 0:
		lines = append(lines, dimStyle.Render("No demos found"))
	}

	for i, d := range m.demos {
		label := fmt.Sprintf("%s  %s", d.ID, d.Name)
		style := itemStyle
		if snap.State != poller.Idle && d.ID == snap.UnitID {
			style = activeItemStyle.PaddingLeft(2)
		}
		if i == m.cursor {
			lines = append(lines, cursorStyle.Render("› ")+style.PaddingLeft(0).Render(label))
			continue
		}
		lines = append(lines, style.Render(label))
	}

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// =============================================================================
// Output Panel
// =============================================================================

func (m Model) renderOutput(snap poller.Snapshot) string {
	title := "Output"
	if snap.UnitID != "" {
		for _, d := range m.demos {
			if d.ID == snap.UnitID {
				title = "Output: " + d.Name
				break
			}
		}
	}
	lines := []string{
		sectionHeaderStyle.Render(title),
		StateLabel(snap.State) + "  " + LiveReloadLabel(snap.LiveReload),
	}

	if m.result != nil {
		r := m.result
		status := ExitStyle(r.ExitCode).Render(fmt.Sprintf("exit %d", r.ExitCode))
		if r.TimedOut {
			status = statusError.Render("timed out")
		}
		lines = append(lines, fmt.Sprintf("%s  %s  %s",
			status,
			mutedStyle.Render(formatMs(r.DurationMs)),
			dimStyle.Render(m.lastRunAge()),
		))
		lines = append(lines, m.tail(r.Output)...)
		if r.Error != "" {
			for _, l := range m.tail(r.Error) {
				lines = append(lines, errorTextStyle.Render(l))
			}
		}
	} else if snap.State == poller.Idle && m.runErr == nil {
		lines = append(lines, dimStyle.Render("Select a demo and press enter"))
	}

	// Transport and poll failures are shown without hiding the last result.
	if snap.Err != nil {
		lines = append(lines, errorTextStyle.Render("Error: "+snap.Err.Error()))
	} else if m.runErr != nil {
		lines = append(lines, errorTextStyle.Render("Error: "+m.runErr.Error()))
	}

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) lastRunAge() string {
	if m.lastRunAt.IsZero() {
		return ""
	}
	return "ran " + formatDuration(time.Since(m.lastRunAt)) + " ago"
}

// tail returns the last lines of s that fit the terminal.
func (m Model) tail(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")

	limit := m.height - len(m.demos) - 14
	if limit < 5 {
		limit = 5
	}
	if len(lines) > limit {
		skipped := len(lines) - limit
		lines = append([]string{dimStyle.Render(fmt.Sprintf("... %d lines above", skipped))}, lines[skipped:]...)
	}
	for i, l := range lines {
		lines[i] = outputStyle.Render(l)
	}
	return lines
}

// =============================================================================
// Server Statistics
// =============================================================================

func (m Model) renderServerStats() string {
	vm := m.scraper.GetMetrics()
	lines := []string{sectionHeaderStyle.Render("Server")}

	if vm == nil || !vm.Healthy {
		msg := "waiting for metrics"
		if vm != nil && vm.Error != "" {
			msg = vm.Error
		}
		lines = append(lines, statusWarning.Render("● "+msg))
		return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	}

	left := []string{
		RenderKeyValue("Demos", fmt.Sprintf("%d", vm.Demos)),
		RenderKeyValue("Active runs", fmt.Sprintf("%d", vm.ActiveRuns)),
		RenderKeyValue("Total runs", formatCount(vm.TotalRuns)),
	}
	right := []string{
		RenderKeyValue("Avg run", formatMs(vm.AvgRun.Milliseconds())),
		RenderKeyValue("Requests", formatCount(vm.Requests)),
		RenderKeyValue("Polls", formatCount(vm.Polls)),
	}
	cols := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.JoinVertical(lipgloss.Left, left...),
		mutedStyle.Render(" │ "),
		lipgloss.JoinVertical(lipgloss.Left, right...),
	)
	lines = append(lines, cols)

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	shortcuts := []string{
		"↑/↓: select",
		"enter: run",
		"l: live reload",
		"r: refresh",
		"q: quit",
	}

	url := m.serverURL
	maxURLLen := m.width - 70
	if len(url) > maxURLLen && maxURLLen > 10 {
		url = url[:maxURLLen-3] + "..."
	}

	left := dimStyle.Render(strings.Join(shortcuts, " │ "))
	right := dimStyle.Render(url)

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return footerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Left,
			left,
			strings.Repeat(" ", padding),
			right,
		),
	)
}
