package test

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/doorbridge/config"
	"github.com/kilianp07/doorbridge/core/bridge"
	"github.com/kilianp07/doorbridge/core/door"
	"github.com/kilianp07/doorbridge/core/events"
	corehistory "github.com/kilianp07/doorbridge/core/history"
	"github.com/kilianp07/doorbridge/core/tracker"
	"github.com/kilianp07/doorbridge/infra/logger"
	"github.com/kilianp07/doorbridge/infra/metrics"
	"github.com/kilianp07/doorbridge/infra/mqtt"
	"github.com/kilianp07/doorbridge/internal/eventbus"
)

func TestCriticalScenariosIntegration(t *testing.T) {
	scenarios := []struct {
		name     string
		scenario func(t *testing.T)
	}{
		{"HighLoad_Presses", testHighLoadPresses},
		{"Junk_Flood", testJunkFlood},
		{"MQTT_Resilience", testMQTTResilience},
		{"Metrics_Accuracy", testMetricsAccuracy},
		{"Configuration_Validation", testConfigurationValidation},
		{"Memory_Leaks", testMemoryLeaks},
		{"Concurrent_Access", testConcurrentAccess},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, scenario.scenario)
	}
}

func testHighLoadPresses(t *testing.T) {
	store, err := corehistory.NewSQLiteStore("file:highload.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer func() { _ = store.Close() }()

	client := mqtt.NewMockClient()
	br := bridge.New(client, integStatusTopic, time.Millisecond, logger.NopLogger{})
	br.SetHistoryStore(store)
	client.SetHandler(br.HandleMessage)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	const presses = 100
	cmds := []door.Command{door.CommandOpen, door.CommandClose}
	for i := 0; i < presses; i++ {
		client.Receive(integCommandTopic, cmds[i%2].String())
	}

	msgs := client.PublishedOn(integStatusTopic)
	if len(msgs) != 2*presses {
		t.Fatalf("published %d statuses, want %d", len(msgs), 2*presses)
	}
	for i := 0; i < presses; i++ {
		moving, settled := cmds[i%2].Cycle()
		if msgs[2*i].Payload != moving.String() || msgs[2*i+1].Payload != settled.String() {
			t.Fatalf("press %d: got %q %q, want %q %q",
				i, msgs[2*i].Payload, msgs[2*i+1].Payload, moving, settled)
		}
	}

	cycles, err := store.Query(context.Background(), corehistory.Query{Kind: corehistory.KindCycle})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(cycles) != presses {
		t.Errorf("recorded %d cycles, want %d", len(cycles), presses)
	}
}

func testJunkFlood(t *testing.T) {
	store, err := corehistory.NewSQLiteStore("file:junkflood.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer func() { _ = store.Close() }()

	client := mqtt.NewMockClient()
	br := bridge.New(client, integStatusTopic, time.Millisecond, logger.NopLogger{})
	br.SetHistoryStore(store)
	client.SetHandler(br.HandleMessage)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	junk := []string{"open", "close", "OPEN ", " CLOSE", "", "TOGGLE", "stop", "{}"}
	const floods = 300
	for i := 0; i < floods; i++ {
		client.Receive(integCommandTopic, junk[i%len(junk)])
	}

	if msgs := client.PublishedOn(integStatusTopic); len(msgs) != 0 {
		t.Fatalf("junk produced %d status publishes", len(msgs))
	}
	ignored, err := store.Query(context.Background(), corehistory.Query{Kind: corehistory.KindIgnored})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(ignored) != floods {
		t.Errorf("recorded %d ignored payloads, want %d", len(ignored), floods)
	}
}

func testMQTTResilience(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(nil, reg)
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := eventbus.New[events.Event]()
	defer bus.Close()
	metrics.StartEventCollector(ctx, bus, sink)

	client := mqtt.NewMockClient()
	br := bridge.New(client, integStatusTopic, time.Millisecond, logger.NopLogger{})
	br.SetEventBus(bus)
	client.SetHandler(br.HandleMessage)
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}

	// Broker rejects the status publish. The command is lost but the
	// bridge must survive and report the failure.
	client.FailTopics[integStatusTopic] = true
	client.Receive(integCommandTopic, "OPEN")
	if msgs := client.PublishedOn(integStatusTopic); len(msgs) != 0 {
		t.Fatalf("published %d statuses during outage", len(msgs))
	}

	client.FailTopics[integStatusTopic] = false
	client.Receive(integCommandTopic, "CLOSE")
	msgs := client.PublishedOn(integStatusTopic)
	if len(msgs) != 2 || msgs[0].Payload != "closing" || msgs[1].Payload != "closed" {
		t.Fatalf("unexpected statuses after recovery: %+v", msgs)
	}

	waitForCounter(t, reg, "door_publish_errors_total", 1)
	waitForCounter(t, reg, "door_commands_total", 2)
}

func testMetricsAccuracy(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(nil, reg)
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := eventbus.New[events.Event]()
	defer bus.Close()
	metrics.StartEventCollector(ctx, bus, sink)

	client := mqtt.NewMockClient()
	br := bridge.New(client, integStatusTopic, time.Millisecond, logger.NopLogger{})
	br.SetEventBus(bus)
	client.SetHandler(br.HandleMessage)
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}

	cmds := []door.Command{door.CommandOpen, door.CommandClose}
	for i := 0; i < 5; i++ {
		client.Receive(integCommandTopic, cmds[i%2].String())
		// Let the collector drain between presses so the lossy bus
		// never drops an event.
		time.Sleep(10 * time.Millisecond)
	}
	client.Receive(integCommandTopic, "noise")

	waitForCounter(t, reg, "door_commands_total", 5)
	waitForCounter(t, reg, "door_status_published_total", 10)
	waitForCounter(t, reg, "door_ignored_payloads_total", 1)
}

func testConfigurationValidation(t *testing.T) {
	valid := []struct {
		name  string
		check func() error
	}{
		{"mqtt_defaults", func() error {
			c := mqtt.Config{}
			c.SetDefaults()
			return c.Validate()
		}},
		{"bridge_defaults", func() error {
			c := bridge.Config{}
			c.SetDefaults()
			return c.Validate()
		}},
		{"tracker_defaults", func() error {
			c := tracker.Config{}
			c.SetDefaults()
			return c.Validate()
		}},
		{"history_sqlite", func() error {
			c := config.HistoryConfig{Backend: "sqlite", Path: "door.db"}
			c.SetDefaults()
			return c.Validate()
		}},
	}
	invalid := []struct {
		name  string
		check func() error
	}{
		{"mqtt_tls_without_certs", func() error {
			c := mqtt.Config{UseTLS: true}
			c.SetDefaults()
			return c.Validate()
		}},
		{"bridge_negative_travel", func() error {
			c := bridge.Config{TravelTimeSeconds: -1}
			c.SetDefaults()
			return c.Validate()
		}},
		{"tracker_negative_timeout", func() error {
			c := tracker.Config{TravelTimeoutSeconds: -1}
			c.SetDefaults()
			return c.Validate()
		}},
		{"history_unknown_backend", func() error {
			c := config.HistoryConfig{Backend: "csv"}
			c.SetDefaults()
			return c.Validate()
		}},
	}

	for _, tc := range valid {
		if err := tc.check(); err != nil {
			t.Errorf("valid config %s rejected: %v", tc.name, err)
		}
	}
	for _, tc := range invalid {
		if err := tc.check(); err == nil {
			t.Errorf("invalid config %s accepted", tc.name)
		}
	}
}

func testMemoryLeaks(t *testing.T) {
	client := mqtt.NewMockClient()
	br := bridge.New(client, integStatusTopic, 0, logger.NopLogger{})
	client.SetHandler(br.HandleMessage)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	before := runtime.NumGoroutine()
	for i := 0; i < 1000; i++ {
		client.Receive(integCommandTopic, "OPEN")
		if i%100 == 0 {
			runtime.GC()
		}
	}
	runtime.GC()
	after := runtime.NumGoroutine()
	if after > before+5 {
		t.Errorf("goroutines grew from %d to %d", before, after)
	}
}

func testConcurrentAccess(t *testing.T) {
	client := mqtt.NewMockClient()
	br := bridge.New(client, integStatusTopic, time.Millisecond, logger.NopLogger{})
	client.SetHandler(br.HandleMessage)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	numGoroutines := 20
	var wg sync.WaitGroup
	errs := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs <- fmt.Errorf("panic in goroutine %d: %v", id, r)
				}
			}()
			if id%2 == 0 {
				client.Receive(integCommandTopic, "OPEN")
			} else {
				client.Receive(integCommandTopic, "CLOSE")
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	// Interleaving is allowed when deliveries are concurrent, but every
	// press must still produce both of its statuses.
	if msgs := client.PublishedOn(integStatusTopic); len(msgs) != 2*numGoroutines {
		t.Errorf("published %d statuses, want %d", len(msgs), 2*numGoroutines)
	}
}
