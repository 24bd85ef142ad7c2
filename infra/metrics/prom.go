package metrics

import (
	coremetrics "github.com/kilianp07/doorbridge/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records door activity in Prometheus metrics.
type PromSink struct {
	commands *prometheus.CounterVec
	statuses *prometheus.CounterVec
	ignored  prometheus.Counter
	cycles   *prometheus.HistogramVec
	state    prometheus.Gauge
	travelN  prometheus.Gauge
	travelMu prometheus.Gauge
	travelSd prometheus.Gauge
	pubErrs  *prometheus.CounterVec
}

// NewPromSink registers door metrics on the default Prometheus registerer.
// The Prometheus server is started separately.
func NewPromSink(cycleBuckets []float64) (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(cycleBuckets, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer, nil buckets
// to the Prometheus defaults.
func NewPromSinkWithRegistry(cycleBuckets []float64, reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(cycleBuckets) == 0 {
		cycleBuckets = prometheus.DefBuckets
	}
	s := &PromSink{}
	var err error
	s.commands, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "door_commands_total",
		Help: "Total number of accepted door commands",
	}, []string{"command"}))
	if err != nil {
		return nil, err
	}
	s.statuses, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "door_status_published_total",
		Help: "Total number of statuses published on the status topic",
	}, []string{"status"}))
	if err != nil {
		return nil, err
	}
	s.ignored, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "door_ignored_payloads_total",
		Help: "Total number of command topic payloads that were not commands",
	}))
	if err != nil {
		return nil, err
	}
	s.cycles, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "door_cycle_duration_seconds",
		Help:    "Time between the transitional and settled status publishes",
		Buckets: cycleBuckets,
	}, []string{"command"}))
	if err != nil {
		return nil, err
	}
	s.state, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "door_state",
		Help: "Believed door state (0 unknown, 1 closed, 2 open, 3 closing, 4 opening)",
	}))
	if err != nil {
		return nil, err
	}
	s.travelN, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "door_travel_samples",
		Help: "Number of travel durations in the statistics window",
	}))
	if err != nil {
		return nil, err
	}
	s.travelMu, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "door_travel_mean_seconds",
		Help: "Mean observed travel duration",
	}))
	if err != nil {
		return nil, err
	}
	s.travelSd, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "door_travel_stddev_seconds",
		Help: "Standard deviation of observed travel durations",
	}))
	if err != nil {
		return nil, err
	}
	s.pubErrs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "door_publish_errors_total",
		Help: "Total number of failed status publishes",
	}, []string{"stage"}))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg, reusing the existing collector when one with the
// same descriptor is already present.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(C), nil
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// RecordCommand increments the command counter.
func (s *PromSink) RecordCommand(rec coremetrics.CommandRecord) error {
	s.commands.WithLabelValues(rec.Command.String()).Inc()
	return nil
}

// RecordStatus increments the published status counter.
func (s *PromSink) RecordStatus(rec coremetrics.StatusRecord) error {
	s.statuses.WithLabelValues(rec.Status.String()).Inc()
	return nil
}

// RecordIgnored increments the ignored payload counter.
func (s *PromSink) RecordIgnored(coremetrics.IgnoredRecord) error {
	s.ignored.Inc()
	return nil
}

// RecordCycle observes the cycle duration histogram.
func (s *PromSink) RecordCycle(rec coremetrics.CycleRecord) error {
	s.cycles.WithLabelValues(rec.Command.String()).Observe(rec.Finished.Sub(rec.Started).Seconds())
	return nil
}

// RecordState sets the door state gauge.
func (s *PromSink) RecordState(rec coremetrics.StateRecord) error {
	s.state.Set(float64(rec.State))
	return nil
}

// RecordTravelStats sets the travel statistics gauges.
func (s *PromSink) RecordTravelStats(rec coremetrics.TravelStatsRecord) error {
	s.travelN.Set(float64(rec.Samples))
	s.travelMu.Set(rec.Mean.Seconds())
	s.travelSd.Set(rec.StdDev.Seconds())
	return nil
}

// RecordError increments the publish error counter.
func (s *PromSink) RecordError(rec coremetrics.ErrorRecord) error {
	s.pubErrs.WithLabelValues(rec.Stage).Inc()
	return nil
}
