package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kilianp07/doorbridge/core/door"
	"github.com/kilianp07/doorbridge/core/events"
	"github.com/kilianp07/doorbridge/core/history"
	"github.com/kilianp07/doorbridge/infra/logger"
	"github.com/kilianp07/doorbridge/internal/eventbus"
)

type pubEntry struct {
	topic   string
	payload string
	at      time.Time
}

// recordingPub records publishes and can be told to fail from the nth call.
type recordingPub struct {
	mu        sync.Mutex
	entries   []pubEntry
	failAfter int
	err       error
}

func newRecordingPub() *recordingPub { return &recordingPub{failAfter: -1} }

func (p *recordingPub) Publish(topic, payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAfter >= 0 && len(p.entries) >= p.failAfter {
		return p.err
	}
	p.entries = append(p.entries, pubEntry{topic: topic, payload: payload, at: time.Now()})
	return nil
}

func (p *recordingPub) all() []pubEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]pubEntry, len(p.entries))
	copy(out, p.entries)
	return out
}

// memStore collects appended events in memory.
type memStore struct {
	mu     sync.Mutex
	events []history.Event
}

func (s *memStore) Append(_ context.Context, ev history.Event) error {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	return nil
}

func (s *memStore) Query(context.Context, history.Query) ([]history.Event, error) { return nil, nil }
func (s *memStore) Close() error                                                  { return nil }

const travel = 30 * time.Millisecond

func newTestBridge(pub *recordingPub) *Bridge {
	return New(pub, "garage_door/status", travel, logger.NopLogger{})
}

func TestHandleOpenSequence(t *testing.T) {
	pub := newRecordingPub()
	b := newTestBridge(pub)
	if err := b.Handle(context.Background(), door.CommandOpen); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got := pub.all()
	if len(got) != 2 {
		t.Fatalf("expected 2 publishes got %d", len(got))
	}
	if got[0].payload != "opening" || got[1].payload != "open" {
		t.Fatalf("sequence %q %q", got[0].payload, got[1].payload)
	}
	if got[0].topic != "garage_door/status" || got[1].topic != "garage_door/status" {
		t.Fatalf("wrong topic %q %q", got[0].topic, got[1].topic)
	}
	if gap := got[1].at.Sub(got[0].at); gap < travel {
		t.Fatalf("settled published after %v, want at least %v", gap, travel)
	}
}

func TestHandleCloseSequence(t *testing.T) {
	pub := newRecordingPub()
	b := newTestBridge(pub)
	if err := b.Handle(context.Background(), door.CommandClose); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got := pub.all()
	if len(got) != 2 || got[0].payload != "closing" || got[1].payload != "closed" {
		t.Fatalf("unexpected publishes %+v", got)
	}
	if gap := got[1].at.Sub(got[0].at); gap < travel {
		t.Fatalf("settled published after %v, want at least %v", gap, travel)
	}
}

func TestHandleMessageIgnoresUnknownPayloads(t *testing.T) {
	pub := newRecordingPub()
	b := newTestBridge(pub)
	bus := eventbus.New[events.Event]()
	sub := bus.Subscribe()
	b.SetEventBus(bus)
	store := &memStore{}
	b.SetHistoryStore(store)

	for _, payload := range []string{"HELLO", "open", "OPEN ", ""} {
		b.HandleMessage(context.Background(), "garage_door/buttonpress", payload)
	}
	if got := pub.all(); len(got) != 0 {
		t.Fatalf("expected no publishes got %+v", got)
	}
	ev := <-sub
	ig, ok := ev.(events.IgnoredEvent)
	if !ok || ig.Payload != "HELLO" {
		t.Fatalf("expected IgnoredEvent for HELLO got %+v", ev)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.events) != 4 {
		t.Fatalf("expected 4 ignored rows got %d", len(store.events))
	}
	for _, ev := range store.events {
		if ev.Kind != history.KindIgnored {
			t.Fatalf("unexpected kind %s", ev.Kind)
		}
	}
}

func TestHandleMessageBlocksUntilSettled(t *testing.T) {
	pub := newRecordingPub()
	b := newTestBridge(pub)
	start := time.Now()
	b.HandleMessage(context.Background(), "garage_door/buttonpress", "OPEN")
	elapsed := time.Since(start)
	if elapsed < travel {
		t.Fatalf("returned after %v, want at least %v", elapsed, travel)
	}
	if got := pub.all(); len(got) != 2 {
		t.Fatalf("expected both publishes before return, got %d", len(got))
	}
}

func TestHandleAbortsOnCancel(t *testing.T) {
	pub := newRecordingPub()
	b := New(pub, "garage_door/status", 200*time.Millisecond, logger.NopLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	err := b.Handle(ctx, door.CommandOpen)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled got %v", err)
	}
	if got := pub.all(); len(got) != 1 || got[0].payload != "opening" {
		t.Fatalf("expected only the transitional publish, got %+v", got)
	}
}

func TestHandlePublishFailure(t *testing.T) {
	pub := newRecordingPub()
	pub.failAfter = 0
	pub.err = errors.New("broker gone")
	b := newTestBridge(pub)
	err := b.Handle(context.Background(), door.CommandClose)
	if err == nil || !errors.Is(err, pub.err) {
		t.Fatalf("expected wrapped publish error got %v", err)
	}

	pub = newRecordingPub()
	pub.failAfter = 1
	pub.err = errors.New("broker gone")
	b = newTestBridge(pub)
	err = b.Handle(context.Background(), door.CommandClose)
	if err == nil || !errors.Is(err, pub.err) {
		t.Fatalf("expected settled publish error got %v", err)
	}
	if got := pub.all(); len(got) != 1 || got[0].payload != "closing" {
		t.Fatalf("expected only transitional publish, got %+v", got)
	}
}

func TestHandleEmitsEventsAndHistory(t *testing.T) {
	pub := newRecordingPub()
	b := newTestBridge(pub)
	bus := eventbus.New[events.Event]()
	sub := bus.Subscribe()
	b.SetEventBus(bus)
	store := &memStore{}
	b.SetHistoryStore(store)

	if err := b.Handle(context.Background(), door.CommandOpen); err != nil {
		t.Fatalf("handle: %v", err)
	}

	var cmdEv events.CommandEvent
	var statuses []events.StatusEvent
	var cycleEv events.CycleEvent
	for i := 0; i < 4; i++ {
		switch e := (<-sub).(type) {
		case events.CommandEvent:
			cmdEv = e
		case events.StatusEvent:
			statuses = append(statuses, e)
		case events.CycleEvent:
			cycleEv = e
		}
	}
	if cmdEv.Command != door.CommandOpen || cmdEv.CycleID == "" {
		t.Fatalf("command event %+v", cmdEv)
	}
	if len(statuses) != 2 || statuses[0].Status != door.StateOpening || statuses[1].Status != door.StateOpen {
		t.Fatalf("status events %+v", statuses)
	}
	if cycleEv.CycleID != cmdEv.CycleID {
		t.Fatalf("cycle id mismatch %q %q", cycleEv.CycleID, cmdEv.CycleID)
	}
	if cycleEv.Duration() < travel {
		t.Fatalf("cycle duration %v below travel interval", cycleEv.Duration())
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.events) != 4 {
		t.Fatalf("expected 4 history rows got %d", len(store.events))
	}
	for _, ev := range store.events {
		if ev.CycleID != cmdEv.CycleID {
			t.Fatalf("history row not correlated: %+v", ev)
		}
	}
}
