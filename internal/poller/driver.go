package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/randomizedcoder/go-demo-viewer/internal/changes"
	"github.com/randomizedcoder/go-demo-viewer/internal/gateway"
)

// DefaultInterval is the live reload poll period.
const DefaultInterval = 2 * time.Second

// API is the server surface the driver talks to.
type API interface {
	Run(ctx context.Context, id string) (gateway.Result, error)
	ModTime(ctx context.Context, id string) (changes.Record, error)
}

// DriverConfig configures a Driver.
type DriverConfig struct {
	API        API
	Interval   time.Duration
	LiveReload bool
	Logger     *slog.Logger

	// OnResult is called for every accepted run, from the driver goroutine.
	OnResult func(id string, r gateway.Result, err error)
}

// Driver runs a Poller against an API with a ticker. It is the headless
// front-end used by `watch --plain`.
type Driver struct {
	api      API
	interval time.Duration
	logger   *slog.Logger
	onResult func(string, gateway.Result, error)

	poller *Poller
	runs   chan runDone
	polls  chan pollDone
}

type runDone struct {
	cmd    Command
	result gateway.Result
	err    error
}

type pollDone struct {
	id     string
	record changes.Record
	err    error
}

// NewDriver creates a Driver.
func NewDriver(cfg DriverConfig) *Driver {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		api:      cfg.API,
		interval: interval,
		logger:   logger,
		onResult: cfg.OnResult,
		poller:   New(cfg.LiveReload),
		runs:     make(chan runDone, 4),
		polls:    make(chan pollDone, 4),
	}
}

// Poller exposes the underlying state machine.
func (d *Driver) Poller() *Poller {
	return d.poller
}

// Watch selects id and loops until ctx is done.
func (d *Driver) Watch(ctx context.Context, id string) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.dispatch(ctx, d.poller.Select(id))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			d.dispatch(ctx, d.poller.Tick())

		case done := <-d.runs:
			d.handleRun(ctx, done)

		case done := <-d.polls:
			if done.err != nil {
				d.logger.Warn("mtime_poll_failed", "demo_id", done.id, "error", done.err)
				d.poller.PollFailed(done.id, done.err)
				continue
			}
			cmd := d.poller.Observe(done.id, done.record.MTime)
			if cmd.Action == RunUnit {
				d.logger.Info("demo_changed", "demo_id", done.id, "mtime", done.record.MTime)
			}
			d.dispatch(ctx, cmd)
		}
	}
}

func (d *Driver) handleRun(ctx context.Context, done runDone) {
	var (
		next     Command
		accepted bool
	)
	if done.err != nil {
		next, accepted = d.poller.Failed(done.cmd.UnitID, done.cmd.Seq, done.err)
	} else {
		next, accepted = d.poller.Completed(done.cmd.UnitID, done.cmd.Seq)
	}
	if !accepted {
		d.logger.Debug("stale_run_discarded", "demo_id", done.cmd.UnitID, "seq", done.cmd.Seq)
		return
	}
	if d.onResult != nil {
		d.onResult(done.cmd.UnitID, done.result, done.err)
	}
	d.dispatch(ctx, next)
}

// dispatch performs cmd in a goroutine and posts the result back to the
// loop. Nothing is posted once ctx is done.
func (d *Driver) dispatch(ctx context.Context, cmd Command) {
	switch cmd.Action {
	case RunUnit:
		go func() {
			result, err := d.api.Run(ctx, cmd.UnitID)
			select {
			case d.runs <- runDone{cmd: cmd, result: result, err: err}:
			case <-ctx.Done():
			}
		}()
	case PollMTime:
		go func() {
			record, err := d.api.ModTime(ctx, cmd.UnitID)
			select {
			case d.polls <- pollDone{id: cmd.UnitID, record: record, err: err}:
			case <-ctx.Done():
			}
		}()
	}
}
