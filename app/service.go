package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/doorbridge/api/history"
	"github.com/kilianp07/doorbridge/app/plugins"
	"github.com/kilianp07/doorbridge/config"
	"github.com/kilianp07/doorbridge/core/bridge"
	"github.com/kilianp07/doorbridge/core/events"
	corehistory "github.com/kilianp07/doorbridge/core/history"
	coremetrics "github.com/kilianp07/doorbridge/core/metrics"
	coremon "github.com/kilianp07/doorbridge/core/monitoring"
	"github.com/kilianp07/doorbridge/core/tracker"
	"github.com/kilianp07/doorbridge/infra/logger"
	"github.com/kilianp07/doorbridge/infra/metrics"
	"github.com/kilianp07/doorbridge/infra/monitoring"
	"github.com/kilianp07/doorbridge/infra/mqtt"
	"github.com/kilianp07/doorbridge/internal/eventbus"
)

// Service orchestrates the bridge, the door tracker and the MQTT client.
type Service struct {
	Bridge  *bridge.Bridge
	Tracker *tracker.Tracker
	client  *mqtt.PahoClient
	bus     *eventbus.Bus[events.Event]
	store   corehistory.Store
	sink    coremetrics.MetricsSink
	log     logger.Logger
	cfg     *config.Config
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	cfg.Bridge.SetDefaults()
	if err := cfg.Bridge.Validate(); err != nil {
		return nil, fmt.Errorf("bridge config: %w", err)
	}
	cfg.Tracker.SetDefaults()
	if err := cfg.Tracker.Validate(); err != nil {
		return nil, fmt.Errorf("tracker config: %w", err)
	}

	store, err := newHistoryStore(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("history store: %w", err)
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	bus := eventbus.New[events.Event]()

	// The client dispatches inbound presses to the bridge. The bridge in
	// turn publishes through the client, so the handler closes over a
	// pointer assigned right after construction. No message can arrive
	// before Connect is called in Run.
	var br *bridge.Bridge
	handler := func(ctx context.Context, topic, payload string) {
		br.HandleMessage(ctx, topic, payload)
	}
	client, err := mqtt.NewPahoClient(cfg.MQTT, handler)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}

	br = bridge.New(client, cfg.MQTT.StatusTopicName(), cfg.Bridge.TravelTime(), logger.New("bridge"))
	br.SetEventBus(bus)
	br.SetHistoryStore(store)

	trk := tracker.New(cfg.Tracker, logger.New("tracker"))
	trk.SetEventBus(bus)

	return &Service{
		Bridge:  br,
		Tracker: trk,
		client:  client,
		bus:     bus,
		store:   store,
		sink:    sink,
		log:     logg,
		cfg:     cfg,
	}, nil
}

func newHistoryStore(cfg config.HistoryConfig) (corehistory.Store, error) {
	f, ok := plugins.Stores[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
	return f(cfg)
}

// Run connects to the broker and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.client.Connect(ctx); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	go s.feedTracker(ctx)
	if s.cfg.Metrics.PrometheusAddr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.cfg.API.Enabled {
		go func() {
			if err := s.serveAPI(ctx); err != nil {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}
	<-ctx.Done()
	return nil
}

// feedTracker mirrors published statuses into the door tracker so its
// state follows what the bridge announced.
func (s *Service) feedTracker(ctx context.Context) {
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if st, ok := ev.(events.StatusEvent); ok {
				s.Tracker.ObserveStatus(ctx, st.Status.String())
			}
		}
	}
}

func (s *Service) serveAPI(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/api/door/events", history.NewEventHandler(s.store, s.cfg.API.Token))
	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
	}()
	s.log.Infof("api listening on %s", s.cfg.API.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.client.Disconnect()
	s.Tracker.Close()
	s.bus.Close()
	err := s.store.Close()
	coremon.Flush(2 * time.Second)
	return err
}
