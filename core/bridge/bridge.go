// Package bridge translates button-press commands into two-phase door
// status announcements.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/doorbridge/core/door"
	"github.com/kilianp07/doorbridge/core/events"
	"github.com/kilianp07/doorbridge/core/history"
	"github.com/kilianp07/doorbridge/core/logger"
	"github.com/kilianp07/doorbridge/core/monitoring"
	"github.com/kilianp07/doorbridge/core/mqtt"
	"github.com/kilianp07/doorbridge/internal/eventbus"
)

// Bridge announces a door cycle for every recognized command: the
// transitional status immediately, the settled status after the travel
// interval. The status is optimistic and time based, never sensor
// confirmed. The bridge holds no state between commands.
type Bridge struct {
	pub         mqtt.Publisher
	statusTopic string
	travel      time.Duration
	log         logger.Logger
	bus         *eventbus.Bus[events.Event]
	store       history.Store
}

// New creates a Bridge publishing on statusTopic with the given travel
// interval. The event bus and history store are optional collaborators.
func New(pub mqtt.Publisher, statusTopic string, travel time.Duration, log logger.Logger) *Bridge {
	return &Bridge{pub: pub, statusTopic: statusTopic, travel: travel, log: log}
}

// SetEventBus configures the bus door events are emitted on.
func (b *Bridge) SetEventBus(bus *eventbus.Bus[events.Event]) { b.bus = bus }

// SetHistoryStore configures the store door events are appended to.
func (b *Bridge) SetHistoryStore(store history.Store) { b.store = store }

// HandleMessage is the command-topic handler. It runs the full two-phase
// announcement before returning, so a client delivering messages in order
// hands over the next command only after this one settles. Payloads that
// are not commands are dropped without publishing anything.
func (b *Bridge) HandleMessage(ctx context.Context, topic, payload string) {
	cmd, ok := door.ParseCommand(payload)
	if !ok {
		b.log.Debugf("ignoring payload %q on %s", payload, topic)
		b.dropped(ctx, payload)
		return
	}
	if err := b.Handle(ctx, cmd); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			b.log.Infof("cycle aborted during travel wait: %v", err)
			return
		}
		b.log.Errorf("command %s failed: %v", cmd, err)
		b.emit(events.PublishErrorEvent{Stage: "status", Topic: b.statusTopic, At: time.Now()})
		monitoring.CaptureException(err, map[string]string{
			"component": "bridge",
			"command":   cmd.String(),
		})
	}
}

// Handle announces one command cycle. It blocks for the travel interval
// between the two publishes and returns the first publish failure
// unretried.
func (b *Bridge) Handle(ctx context.Context, cmd door.Command) error {
	cycleID := uuid.NewString()
	moving, settled := cmd.Cycle()
	b.log.Infof("command %s accepted, cycle %s", cmd, cycleID)
	b.accepted(ctx, cycleID, cmd)

	started, err := b.announce(ctx, cycleID, moving)
	if err != nil {
		return err
	}

	select {
	case <-time.After(b.travel):
	case <-ctx.Done():
		return ctx.Err()
	}

	finished, err := b.announce(ctx, cycleID, settled)
	if err != nil {
		return err
	}
	b.completed(ctx, cycleID, cmd, started, finished)
	return nil
}

// announce publishes one status and records it.
func (b *Bridge) announce(ctx context.Context, cycleID string, st door.State) (time.Time, error) {
	if err := b.pub.Publish(b.statusTopic, st.String()); err != nil {
		return time.Time{}, fmt.Errorf("publish %s: %w", st, err)
	}
	now := time.Now()
	b.log.Debugf("published status %s on %s", st, b.statusTopic)
	b.emit(events.StatusEvent{CycleID: cycleID, Status: st, At: now})
	b.append(ctx, history.Event{
		ID:        uuid.NewString(),
		Kind:      history.KindStatus,
		Status:    st.String(),
		CycleID:   cycleID,
		Timestamp: now,
	})
	return now, nil
}

func (b *Bridge) accepted(ctx context.Context, cycleID string, cmd door.Command) {
	now := time.Now()
	b.emit(events.CommandEvent{CycleID: cycleID, Command: cmd, At: now})
	b.append(ctx, history.Event{
		ID:        uuid.NewString(),
		Kind:      history.KindCommand,
		Command:   cmd.String(),
		CycleID:   cycleID,
		Timestamp: now,
	})
}

func (b *Bridge) completed(ctx context.Context, cycleID string, cmd door.Command, started, finished time.Time) {
	b.emit(events.CycleEvent{CycleID: cycleID, Command: cmd, Started: started, Finished: finished})
	b.append(ctx, history.Event{
		ID:         uuid.NewString(),
		Kind:       history.KindCycle,
		Command:    cmd.String(),
		CycleID:    cycleID,
		DurationMS: finished.Sub(started).Milliseconds(),
		Timestamp:  finished,
	})
}

func (b *Bridge) dropped(ctx context.Context, payload string) {
	now := time.Now()
	b.emit(events.IgnoredEvent{Payload: payload, At: now})
	b.append(ctx, history.Event{
		ID:        uuid.NewString(),
		Kind:      history.KindIgnored,
		Payload:   payload,
		Timestamp: now,
	})
}

func (b *Bridge) emit(ev events.Event) {
	if b.bus != nil {
		b.bus.Publish(ev)
	}
}

func (b *Bridge) append(ctx context.Context, ev history.Event) {
	if b.store == nil {
		return
	}
	if err := b.store.Append(ctx, ev); err != nil {
		b.log.Warnf("history append: %v", err)
	}
}
