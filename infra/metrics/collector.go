package metrics

import (
	"context"

	"github.com/kilianp07/doorbridge/core/events"
	coremetrics "github.com/kilianp07/doorbridge/core/metrics"
	"github.com/kilianp07/doorbridge/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// door events. It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.Event], sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				record(sink, ev)
			}
		}
	}()
}

func record(sink coremetrics.MetricsSink, ev events.Event) {
	switch e := ev.(type) {
	case events.CommandEvent:
		_ = sink.RecordCommand(coremetrics.CommandRecord{CycleID: e.CycleID, Command: e.Command, Time: e.At})
	case events.StatusEvent:
		_ = sink.RecordStatus(coremetrics.StatusRecord{CycleID: e.CycleID, Status: e.Status, Time: e.At})
	case events.IgnoredEvent:
		if r, ok := sink.(coremetrics.IgnoredRecorder); ok {
			_ = r.RecordIgnored(coremetrics.IgnoredRecord{Payload: e.Payload, Time: e.At})
		}
	case events.CycleEvent:
		if r, ok := sink.(coremetrics.CycleRecorder); ok {
			_ = r.RecordCycle(coremetrics.CycleRecord{CycleID: e.CycleID, Command: e.Command, Started: e.Started, Finished: e.Finished})
		}
	case events.StateEvent:
		if r, ok := sink.(coremetrics.StateRecorder); ok {
			_ = r.RecordState(coremetrics.StateRecord{State: e.State, Time: e.At})
		}
	case events.TravelStatsEvent:
		if r, ok := sink.(coremetrics.TravelStatsRecorder); ok {
			_ = r.RecordTravelStats(coremetrics.TravelStatsRecord{Samples: e.Samples, Mean: e.Mean, StdDev: e.StdDev, Time: e.At})
		}
	case events.PublishErrorEvent:
		if r, ok := sink.(coremetrics.ErrorRecorder); ok {
			_ = r.RecordError(coremetrics.ErrorRecord{Stage: e.Stage, Topic: e.Topic, Time: e.At})
		}
	}
}
