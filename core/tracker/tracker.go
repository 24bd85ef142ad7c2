// Package tracker derives a believed door state from the statuses the
// bridge announces and from optional sensor edges. The bridge itself holds
// no door state, so the tracker is the one place that knows whether the
// door is believed open, closed, or in motion.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kilianp07/doorbridge/core/door"
	"github.com/kilianp07/doorbridge/core/events"
	"github.com/kilianp07/doorbridge/core/logger"
	"github.com/kilianp07/doorbridge/core/stats"
	"github.com/kilianp07/doorbridge/internal/eventbus"
)

var errNegativeTimeout = errors.New("tracker: travel timeout must not be negative")

// Tracker folds observed statuses into a guarded door machine. Reported
// statuses are authoritative: when the machine disagrees with a report the
// tracker resets to the report instead of arguing with the device.
type Tracker struct {
	mu          sync.Mutex
	machine     *door.Machine
	log         logger.Logger
	bus         *eventbus.Bus[events.Event]
	window      *stats.Window
	sigma       float64
	timeout     time.Duration
	timer       *time.Timer
	movingSince time.Time
	lastChange  time.Time
	closed      bool
}

// New returns a tracker starting at StateUnknown.
func New(cfg Config, log logger.Logger) *Tracker {
	cfg.SetDefaults()
	return &Tracker{
		machine:    door.NewMachine(door.StateUnknown),
		log:        log,
		window:     stats.NewWindow(cfg.StatsWindowSize),
		sigma:      cfg.OutlierSigma,
		timeout:    cfg.TravelTimeout(),
		lastChange: time.Now(),
	}
}

// SetEventBus wires an optional bus receiving a StateEvent on every change
// of the believed state.
func (t *Tracker) SetEventBus(bus *eventbus.Bus[events.Event]) {
	t.mu.Lock()
	t.bus = bus
	t.mu.Unlock()
}

// State returns the believed door state.
func (t *Tracker) State() door.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.machine.State()
}

// LastChange returns when the believed state last changed.
func (t *Tracker) LastChange() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastChange
}

// TravelStats summarizes the travel durations observed so far.
func (t *Tracker) TravelStats() stats.Summary {
	return t.window.Summary()
}

// ObserveStatus folds one status payload from the status topic into the
// believed state. Payloads that are not door states are ignored.
func (t *Tracker) ObserveStatus(ctx context.Context, payload string) {
	reported, ok := door.ParseState(payload)
	if !ok {
		t.log.Debugf("tracker: ignoring status payload %q", payload)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	prev := t.machine.State()
	event := t.statusEvent(prev, reported)
	if event != "" {
		t.machine.Apply(ctx, event)
	}
	if got := t.machine.State(); got != reported && reported != door.StateUnknown {
		t.log.Warnf("tracker: machine at %s but device reports %s, resetting", got, reported)
		t.machine.Reset(reported)
	}
	t.settle(prev, true)
}

// ObserveSensor folds a position sensor edge into the believed state.
func (t *Tracker) ObserveSensor(ctx context.Context, closedEdge bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	prev := t.machine.State()
	event := door.EventSensorOpen
	if closedEdge {
		event = door.EventSensorClosed
	}
	t.machine.Apply(ctx, event)
	t.settle(prev, true)
}

// Close stops the travel timer. Further observations are ignored.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.stopTimer()
}

// statusEvent maps a reported status to the machine event that would
// produce it. An "open" report against a moving-up door is the travel
// timeout edge, everything else has a direct counterpart.
func (t *Tracker) statusEvent(current, reported door.State) string {
	switch reported {
	case door.StateOpening:
		return door.EventCommandOpen
	case door.StateClosing:
		return door.EventCommandClose
	case door.StateClosed:
		return door.EventSensorClosed
	case door.StateOpen:
		if current == door.StateOpening {
			return door.EventTravelTimeout
		}
		return door.EventSensorOpen
	default:
		return ""
	}
}

// settle records the consequences of a state change made under t.mu: travel
// timing, the watchdog timer, and the bus notification. Watchdog-resolved
// changes pass confirmed=false so the synthetic duration stays out of the
// travel statistics.
func (t *Tracker) settle(prev door.State, confirmed bool) {
	now := time.Now()
	cur := t.machine.State()
	if cur == prev {
		return
	}
	if prev.Moving() && !cur.Moving() {
		if confirmed && !t.movingSince.IsZero() {
			travel := now.Sub(t.movingSince)
			if t.window.Outlier(travel, t.sigma) {
				t.log.Warnf("tracker: travel took %s, outside the usual range", travel)
			}
			t.window.Add(travel)
			if t.bus != nil {
				sum := t.window.Summary()
				t.bus.Publish(events.TravelStatsEvent{Samples: sum.Count, Mean: sum.Mean, StdDev: sum.StdDev, At: now})
			}
		}
		t.movingSince = time.Time{}
	}
	t.stopTimer()
	if cur.Moving() {
		t.movingSince = now
		t.timer = time.AfterFunc(t.timeout, t.onTravelTimeout)
	}
	t.lastChange = now
	if t.bus != nil {
		t.bus.Publish(events.StateEvent{Previous: prev, State: cur, At: now})
	}
	t.log.Debugf("tracker: door %s -> %s", prev, cur)
}

// onTravelTimeout fires when a moving door produced no settled status
// within the travel timeout.
func (t *Tracker) onTravelTimeout() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	prev := t.machine.State()
	if !prev.Moving() {
		return
	}
	t.log.Warnf("tracker: no settled status within %s while %s", t.timeout, prev)
	t.machine.Apply(context.Background(), door.EventTravelTimeout)
	t.settle(prev, false)
}

func (t *Tracker) stopTimer() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
