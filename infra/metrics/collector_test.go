package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kilianp07/doorbridge/core/door"
	"github.com/kilianp07/doorbridge/core/events"
	coremetrics "github.com/kilianp07/doorbridge/core/metrics"
	"github.com/kilianp07/doorbridge/internal/eventbus"
)

// fullSink records every kind the collector can translate.
type fullSink struct {
	mu       sync.Mutex
	commands []coremetrics.CommandRecord
	statuses []coremetrics.StatusRecord
	ignored  []coremetrics.IgnoredRecord
	cycles   []coremetrics.CycleRecord
	states   []coremetrics.StateRecord
	stats    []coremetrics.TravelStatsRecord
	errs     []coremetrics.ErrorRecord
}

func (s *fullSink) RecordCommand(r coremetrics.CommandRecord) error {
	s.mu.Lock()
	s.commands = append(s.commands, r)
	s.mu.Unlock()
	return nil
}

func (s *fullSink) RecordStatus(r coremetrics.StatusRecord) error {
	s.mu.Lock()
	s.statuses = append(s.statuses, r)
	s.mu.Unlock()
	return nil
}

func (s *fullSink) RecordIgnored(r coremetrics.IgnoredRecord) error {
	s.mu.Lock()
	s.ignored = append(s.ignored, r)
	s.mu.Unlock()
	return nil
}

func (s *fullSink) RecordCycle(r coremetrics.CycleRecord) error {
	s.mu.Lock()
	s.cycles = append(s.cycles, r)
	s.mu.Unlock()
	return nil
}

func (s *fullSink) RecordState(r coremetrics.StateRecord) error {
	s.mu.Lock()
	s.states = append(s.states, r)
	s.mu.Unlock()
	return nil
}

func (s *fullSink) RecordTravelStats(r coremetrics.TravelStatsRecord) error {
	s.mu.Lock()
	s.stats = append(s.stats, r)
	s.mu.Unlock()
	return nil
}

func (s *fullSink) RecordError(r coremetrics.ErrorRecord) error {
	s.mu.Lock()
	s.errs = append(s.errs, r)
	s.mu.Unlock()
	return nil
}

func (s *fullSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.commands) + len(s.statuses) + len(s.ignored) + len(s.cycles) + len(s.states) + len(s.stats) + len(s.errs)
}

// requiredOnlySink implements just the MetricsSink interface.
type requiredOnlySink struct {
	mu       sync.Mutex
	commands int
	statuses int
}

func (s *requiredOnlySink) RecordCommand(coremetrics.CommandRecord) error {
	s.mu.Lock()
	s.commands++
	s.mu.Unlock()
	return nil
}

func (s *requiredOnlySink) RecordStatus(coremetrics.StatusRecord) error {
	s.mu.Lock()
	s.statuses++
	s.mu.Unlock()
	return nil
}

func publishAll(bus *eventbus.Bus[events.Event]) {
	now := time.Now()
	bus.Publish(events.CommandEvent{CycleID: "c1", Command: door.CommandOpen, At: now})
	bus.Publish(events.StatusEvent{CycleID: "c1", Status: door.StateOpening, At: now})
	bus.Publish(events.IgnoredEvent{Payload: "HELLO", At: now})
	bus.Publish(events.CycleEvent{CycleID: "c1", Command: door.CommandOpen, Started: now, Finished: now.Add(5 * time.Second)})
	bus.Publish(events.StateEvent{Previous: door.StateUnknown, State: door.StateOpening, At: now})
	bus.Publish(events.TravelStatsEvent{Samples: 1, Mean: 5 * time.Second, At: now})
	bus.Publish(events.PublishErrorEvent{Stage: "status", Topic: "garage_door/status", At: now})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestCollectorTranslatesAllEvents(t *testing.T) {
	bus := eventbus.New[events.Event]()
	sink := &fullSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, sink)

	publishAll(bus)
	waitFor(t, func() bool { return sink.total() == 7 })

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.commands) != 1 || sink.commands[0].Command != door.CommandOpen {
		t.Fatalf("commands %+v", sink.commands)
	}
	if len(sink.statuses) != 1 || sink.statuses[0].Status != door.StateOpening {
		t.Fatalf("statuses %+v", sink.statuses)
	}
	if len(sink.cycles) != 1 || sink.cycles[0].Finished.Sub(sink.cycles[0].Started) != 5*time.Second {
		t.Fatalf("cycles %+v", sink.cycles)
	}
	if len(sink.states) != 1 || len(sink.stats) != 1 || len(sink.errs) != 1 || len(sink.ignored) != 1 {
		t.Fatalf("missing optional records: %+v", sink)
	}
}

func TestCollectorSkipsUnimplementedRecorders(t *testing.T) {
	bus := eventbus.New[events.Event]()
	sink := &requiredOnlySink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, sink)

	publishAll(bus)
	waitFor(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return sink.commands == 1 && sink.statuses == 1
	})
}

func TestCollectorNilArgs(t *testing.T) {
	StartEventCollector(context.Background(), nil, &fullSink{})
	StartEventCollector(context.Background(), eventbus.New[events.Event](), nil)
}
