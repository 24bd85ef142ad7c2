package events

import (
	"time"

	"github.com/kilianp07/doorbridge/core/door"
)

// Event is implemented by every event emitted on the bridge bus.
type Event interface {
	When() time.Time
}

// CommandEvent is emitted when a recognized command is accepted for
// handling. CycleID correlates the command with its status publishes.
type CommandEvent struct {
	CycleID string
	Command door.Command
	At      time.Time
}

func (e CommandEvent) When() time.Time { return e.At }

// StatusEvent is emitted for each status published on the status topic.
type StatusEvent struct {
	CycleID string
	Status  door.State
	At      time.Time
}

func (e StatusEvent) When() time.Time { return e.At }

// IgnoredEvent is emitted when a payload on the command topic is not a
// recognized command. No status is published for it.
type IgnoredEvent struct {
	Payload string
	At      time.Time
}

func (e IgnoredEvent) When() time.Time { return e.At }

// StateEvent is emitted by the tracker whenever its believed door state
// changes. Previous carries the state being left.
type StateEvent struct {
	Previous door.State
	State    door.State
	At       time.Time
}

func (e StateEvent) When() time.Time { return e.At }

// CycleEvent is emitted when the two-phase announcement for a command
// completes, settled status included.
type CycleEvent struct {
	CycleID  string
	Command  door.Command
	Started  time.Time
	Finished time.Time
}

func (e CycleEvent) When() time.Time { return e.Finished }

// Duration returns the time between the transitional and settled publishes.
func (e CycleEvent) Duration() time.Duration { return e.Finished.Sub(e.Started) }

// TravelStatsEvent carries the travel duration statistics after a new
// sample lands in the window.
type TravelStatsEvent struct {
	Samples int
	Mean    time.Duration
	StdDev  time.Duration
	At      time.Time
}

func (e TravelStatsEvent) When() time.Time { return e.At }

// PublishErrorEvent is emitted when a status publish fails.
type PublishErrorEvent struct {
	Stage string
	Topic string
	At    time.Time
}

func (e PublishErrorEvent) When() time.Time { return e.At }
