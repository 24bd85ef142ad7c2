package metrics

import (
	"time"

	"github.com/kilianp07/doorbridge/core/door"
)

// CommandRecord represents an accepted command to be recorded.
type CommandRecord struct {
	CycleID string
	Command door.Command
	Time    time.Time
}

// StatusRecord represents a status published on the status topic.
type StatusRecord struct {
	CycleID string
	Status  door.State
	Time    time.Time
}

// MetricsSink records door activity for observability purposes.
type MetricsSink interface {
	RecordCommand(CommandRecord) error
	RecordStatus(StatusRecord) error
}

// IgnoredRecord captures a payload that was not a recognized command.
type IgnoredRecord struct {
	Payload string
	Time    time.Time
}

// IgnoredRecorder records dropped payloads.
type IgnoredRecorder interface {
	RecordIgnored(IgnoredRecord) error
}

// CycleRecord captures a completed two-phase announcement.
type CycleRecord struct {
	CycleID  string
	Command  door.Command
	Started  time.Time
	Finished time.Time
}

// CycleRecorder records completed cycles.
type CycleRecorder interface {
	RecordCycle(CycleRecord) error
}

// StateRecord is a snapshot of the tracked door state.
type StateRecord struct {
	State door.State
	Time  time.Time
}

// StateRecorder records believed door state changes.
type StateRecorder interface {
	RecordState(StateRecord) error
}

// TravelStatsRecord summarizes observed travel durations.
type TravelStatsRecord struct {
	Samples int
	Mean    time.Duration
	StdDev  time.Duration
	Time    time.Time
}

// TravelStatsRecorder records travel duration statistics.
type TravelStatsRecorder interface {
	RecordTravelStats(TravelStatsRecord) error
}

// ErrorRecord captures a failure in the publish path.
type ErrorRecord struct {
	Stage string
	Topic string
	Time  time.Time
}

// ErrorRecorder records publish path failures.
type ErrorRecorder interface {
	RecordError(ErrorRecord) error
}

// NopSink implements MetricsSink and every optional recorder with no-ops.
type NopSink struct{}

func (NopSink) RecordCommand(CommandRecord) error         { return nil }
func (NopSink) RecordStatus(StatusRecord) error           { return nil }
func (NopSink) RecordIgnored(IgnoredRecord) error         { return nil }
func (NopSink) RecordCycle(CycleRecord) error             { return nil }
func (NopSink) RecordState(StateRecord) error             { return nil }
func (NopSink) RecordTravelStats(TravelStatsRecord) error { return nil }
func (NopSink) RecordError(ErrorRecord) error             { return nil }
