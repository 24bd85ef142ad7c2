package scenarios

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/doorbridge/core/bridge"
	"github.com/kilianp07/doorbridge/core/events"
	"github.com/kilianp07/doorbridge/infra/logger"
	"github.com/kilianp07/doorbridge/infra/metrics"
	"github.com/kilianp07/doorbridge/infra/mqtt"
	"github.com/kilianp07/doorbridge/internal/eventbus"
)

const (
	commandTopic = "garage_door/buttonpress"
	statusTopic  = "garage_door/status"
)

// RunScenario executes one scripted press sequence against an in-memory
// bridge and checks the announced statuses and the ignored count.
func RunScenario(t *testing.T, sc *Scenario) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(nil, reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	pub := mqtt.NewMockClient()
	if err := pub.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := eventbus.New[events.Event]()
	metrics.StartEventCollector(ctx, bus, sink)

	// Count ignored payloads while the run is in flight so the lossy bus
	// never backs up.
	sub := bus.Subscribe()
	var mu sync.Mutex
	ignored := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range sub {
			if _, ok := ev.(events.IgnoredEvent); ok {
				mu.Lock()
				ignored++
				mu.Unlock()
			}
		}
	}()

	br := bridge.New(pub, statusTopic, sc.Travel(), logger.NopLogger{})
	br.SetEventBus(bus)

	for _, step := range sc.Steps {
		br.HandleMessage(ctx, commandTopic, step.Payload)
		if step.WaitMs > 0 {
			time.Sleep(step.Wait())
		}
	}

	bus.Close()
	<-done

	var statuses []string
	for _, m := range pub.PublishedOn(statusTopic) {
		statuses = append(statuses, m.Payload)
	}
	if len(statuses) != len(sc.Expected.Statuses) {
		t.Fatalf("scenario %s: statuses %v, want %v", sc.Name, statuses, sc.Expected.Statuses)
	}
	for i, want := range sc.Expected.Statuses {
		if statuses[i] != want {
			t.Errorf("scenario %s: status %d is %q, want %q", sc.Name, i, statuses[i], want)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if ignored != sc.Expected.Ignored {
		t.Errorf("scenario %s: ignored %d, want %d", sc.Name, ignored, sc.Expected.Ignored)
	}
}
