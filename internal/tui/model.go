package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-demo-viewer/internal/changes"
	"github.com/randomizedcoder/go-demo-viewer/internal/gateway"
	"github.com/randomizedcoder/go-demo-viewer/internal/metrics"
	"github.com/randomizedcoder/go-demo-viewer/internal/poller"
	"github.com/randomizedcoder/go-demo-viewer/internal/registry"
)

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent every poll interval.
type TickMsg time.Time

// demosMsg carries the listing fetched at startup.
type demosMsg struct {
	demos []registry.Unit
	err   error
}

// runDoneMsg carries a finished run tagged with the command that started it.
type runDoneMsg struct {
	cmd    poller.Command
	result gateway.Result
	err    error
}

// pollDoneMsg carries an mtime poll result.
type pollDoneMsg struct {
	id     string
	record changes.Record
	err    error
}

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// =============================================================================
// Model
// =============================================================================

// API is the server surface the dashboard needs. *apiclient.Client
// satisfies it.
type API interface {
	Demos(ctx context.Context) ([]registry.Unit, error)
	Run(ctx context.Context, id string) (gateway.Result, error)
	ModTime(ctx context.Context, id string) (changes.Record, error)
}

// Config holds TUI configuration.
type Config struct {
	Context    context.Context
	API        API
	ServerURL  string
	Interval   time.Duration
	LiveReload bool
	InitialID  string           // selected once the listing arrives
	Scraper    *metrics.Scraper // optional; nil hides the server panel
}

// Model is the Bubble Tea model for the demo viewer.
type Model struct {
	ctx       context.Context
	api       API
	poller    *poller.Poller
	scraper   *metrics.Scraper
	serverURL string
	interval  time.Duration
	initialID string

	demos     []registry.Unit
	demosErr  error
	loaded    bool
	cursor    int
	result    *gateway.Result
	runErr    error
	lastRunAt time.Time
	reloads   int

	// Display state
	width    int
	height   int
	quitting bool
}

// New creates a new TUI model.
func New(cfg Config) Model {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = poller.DefaultInterval
	}
	return Model{
		ctx:       ctx,
		api:       cfg.API,
		poller:    poller.New(cfg.LiveReload),
		scraper:   cfg.Scraper,
		serverURL: cfg.ServerURL,
		interval:  interval,
		initialID: cfg.InitialID,
		width:     80,
		height:    24,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadDemos(), tickCmd(m.interval))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		return m, tea.Batch(m.perform(m.poller.Tick()), tickCmd(m.interval))

	case demosMsg:
		m.loaded = true
		m.demos = msg.demos
		m.demosErr = msg.err
		if m.cursor >= len(m.demos) {
			m.cursor = 0
		}
		if m.initialID == "" {
			return m, nil
		}
		id := m.initialID
		m.initialID = ""
		for i, d := range m.demos {
			if d.ID == id {
				m.cursor = i
				return m, m.perform(m.poller.Select(id))
			}
		}
		m.runErr = fmt.Errorf("demo %s not found", id)
		return m, nil

	case runDoneMsg:
		return m.handleRun(msg)

	case pollDoneMsg:
		if msg.err != nil {
			m.poller.PollFailed(msg.id, msg.err)
			return m, nil
		}
		cmd := m.poller.Observe(msg.id, msg.record.MTime)
		if cmd.Action == poller.RunUnit {
			m.reloads++
		}
		return m, m.perform(cmd)

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if n := len(m.demos); n > 0 {
			m.cursor = (m.cursor - 1 + n) % n
		}
	case "down", "j":
		if n := len(m.demos); n > 0 {
			m.cursor = (m.cursor + 1) % n
		}
	case "enter":
		if len(m.demos) == 0 {
			return m, nil
		}
		m.runErr = nil
		return m, m.perform(m.poller.Select(m.demos[m.cursor].ID))
	case "l":
		return m, m.perform(m.poller.ToggleLiveReload())
	case "r":
		return m, m.loadDemos()
	}
	return m, nil
}

func (m Model) handleRun(msg runDoneMsg) (tea.Model, tea.Cmd) {
	var (
		next     poller.Command
		accepted bool
	)
	if msg.err != nil {
		next, accepted = m.poller.Failed(msg.cmd.UnitID, msg.cmd.Seq, msg.err)
	} else {
		next, accepted = m.poller.Completed(msg.cmd.UnitID, msg.cmd.Seq)
	}
	if !accepted {
		return m, nil
	}

	m.lastRunAt = time.Now()
	if msg.err != nil {
		m.result = nil
		m.runErr = msg.err
	} else {
		r := msg.result
		m.result = &r
		m.runErr = nil
	}
	return m, m.perform(next)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderView()
}

// =============================================================================
// Commands
// =============================================================================

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) loadDemos() tea.Cmd {
	ctx, api := m.ctx, m.api
	return func() tea.Msg {
		demos, err := api.Demos(ctx)
		return demosMsg{demos: demos, err: err}
	}
}

// perform turns a poller command into a tea.Cmd. None yields nil.
func (m Model) perform(cmd poller.Command) tea.Cmd {
	ctx, api := m.ctx, m.api
	switch cmd.Action {
	case poller.RunUnit:
		return func() tea.Msg {
			result, err := api.Run(ctx, cmd.UnitID)
			return runDoneMsg{cmd: cmd, result: result, err: err}
		}
	case poller.PollMTime:
		return func() tea.Msg {
			record, err := api.ModTime(ctx, cmd.UnitID)
			return pollDoneMsg{id: cmd.UnitID, record: record, err: err}
		}
	default:
		return nil
	}
}

// =============================================================================
// Accessors
// =============================================================================

// Selected returns the demo under the cursor.
func (m Model) Selected() (registry.Unit, bool) {
	if len(m.demos) == 0 {
		return registry.Unit{}, false
	}
	return m.demos[m.cursor], true
}

// State returns the poller snapshot.
func (m Model) State() poller.Snapshot {
	return m.poller.Snapshot()
}

// SendQuit sends a quit signal to the TUI program.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}

// =============================================================================
// Formatting Helpers
// =============================================================================

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatMs(ms int64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.2f s", float64(ms)/1000)
	}
	return fmt.Sprintf("%d ms", ms)
}

func formatCount(n float64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", n/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", n/1_000)
	default:
		return fmt.Sprintf("%.0f", n)
	}
}
