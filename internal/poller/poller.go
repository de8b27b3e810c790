// Package poller implements the client-side live reload loop.
//
// The Poller is a pure state machine: it never performs I/O. Each method
// returns a Command telling the front-end what to fetch next, and results
// are fed back with Completed, Failed and Observe. Runs are tagged with a
// sequence number so that a late response for a unit that is no longer
// selected, or for a superseded run, is discarded.
package poller

import (
	"fmt"
	"sync"
)

// State is the poller's position in the live reload loop.
type State int

const (
	// Idle means no unit is selected.
	Idle State = iota
	// Running means a run of the current unit is in flight.
	Running
	// Displaying means the latest run result is shown.
	Displaying
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Displaying:
		return "displaying"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Action is what the front-end should do next.
type Action int

const (
	None Action = iota
	// RunUnit asks for a run of UnitID tagged with Seq.
	RunUnit
	// PollMTime asks for the current mtime of UnitID.
	PollMTime
)

func (a Action) String() string {
	switch a {
	case None:
		return "none"
	case RunUnit:
		return "run"
	case PollMTime:
		return "poll"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Command is returned by every transition.
type Command struct {
	Action Action
	UnitID string
	Seq    uint64
}

// Snapshot is a copy of the poller state.
type Snapshot struct {
	State      State
	UnitID     string
	Baseline   *float64 // nil until the first observation after a run
	LiveReload bool
	Seq        uint64
	Err        error // last run or transport failure, cleared on success
}

// Poller tracks the selected unit and its last known mtime.
type Poller struct {
	mu         sync.Mutex
	state      State
	unitID     string
	baseline   *float64
	liveReload bool
	seq        uint64
	err        error
}

// New creates an idle Poller.
func New(liveReload bool) *Poller {
	return &Poller{liveReload: liveReload}
}

// Select starts a run of id. Any stored baseline is dropped so the first
// observation after the run is never treated as a change.
func (p *Poller) Select(id string) Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selectLocked(id)
}

func (p *Poller) selectLocked(id string) Command {
	p.seq++
	p.state = Running
	p.unitID = id
	p.baseline = nil
	return Command{Action: RunUnit, UnitID: id, Seq: p.seq}
}

// Completed reports a finished run. It returns false when the response is
// stale and must not be displayed. On acceptance the returned command asks
// for an immediate mtime fetch to establish the baseline.
func (p *Poller) Completed(id string, seq uint64) (Command, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.currentRunLocked(id, seq) {
		return Command{}, false
	}
	p.state = Displaying
	p.baseline = nil
	p.err = nil
	return Command{Action: PollMTime, UnitID: id}, true
}

// Failed reports a run that could not be fetched. The error is shown and
// polling continues. Returns false for stale responses.
func (p *Poller) Failed(id string, seq uint64, err error) (Command, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.currentRunLocked(id, seq) {
		return Command{}, false
	}
	p.state = Displaying
	p.baseline = nil
	p.err = err
	return Command{Action: PollMTime, UnitID: id}, true
}

func (p *Poller) currentRunLocked(id string, seq uint64) bool {
	return p.state != Idle && id == p.unitID && seq == p.seq
}

// Tick is called on every timer fire. It asks for an mtime poll while a
// unit is selected and live reload is on.
func (p *Poller) Tick() Command {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Idle || !p.liveReload {
		return Command{}
	}
	return Command{Action: PollMTime, UnitID: p.unitID}
}

// Observe feeds an mtime poll result. A value strictly greater than the
// baseline triggers a re-run; anything else becomes the new baseline.
// Observations for a unit that is no longer selected are ignored.
func (p *Poller) Observe(id string, mtime float64) Command {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Idle || id != p.unitID {
		return Command{}
	}
	if p.baseline != nil && mtime > *p.baseline && p.liveReload {
		return p.selectLocked(id)
	}
	p.baseline = &mtime
	return Command{}
}

// PollFailed records a transport failure of an mtime poll. State and
// baseline are kept.
func (p *Poller) PollFailed(id string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Idle || id != p.unitID {
		return
	}
	p.err = err
}

// SetLiveReload suspends or resumes polling. Resuming with a unit
// selected asks for an immediate poll.
func (p *Poller) SetLiveReload(on bool) Command {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.liveReload = on
	if !on || p.state == Idle {
		return Command{}
	}
	return Command{Action: PollMTime, UnitID: p.unitID}
}

// ToggleLiveReload flips live reload and returns the resulting command.
func (p *Poller) ToggleLiveReload() Command {
	p.mu.Lock()
	on := !p.liveReload
	p.mu.Unlock()
	return p.SetLiveReload(on)
}

// Reset returns to Idle. In-flight responses become stale.
func (p *Poller) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	p.state = Idle
	p.unitID = ""
	p.baseline = nil
	p.err = nil
}

// Snapshot returns a copy of the current state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Snapshot{
		State:      p.state,
		UnitID:     p.unitID,
		LiveReload: p.liveReload,
		Seq:        p.seq,
		Err:        p.err,
	}
	if p.baseline != nil {
		b := *p.baseline
		s.Baseline = &b
	}
	return s
}
