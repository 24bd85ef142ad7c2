package metrics

// MultiSink fans door records out to multiple sinks. Required methods reach
// every sink; optional recorders only the sinks that implement them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordCommand forwards the record to all sinks, returning the first error.
func (m *MultiSink) RecordCommand(rec CommandRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordCommand(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordStatus forwards the record to all sinks, returning the first error.
func (m *MultiSink) RecordStatus(rec StatusRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordStatus(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordIgnored forwards dropped payloads when supported by the sink.
func (m *MultiSink) RecordIgnored(rec IgnoredRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(IgnoredRecorder); ok {
			if err := r.RecordIgnored(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordCycle forwards completed cycles when supported by the sink.
func (m *MultiSink) RecordCycle(rec CycleRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(CycleRecorder); ok {
			if err := r.RecordCycle(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordState forwards state snapshots when supported by the sink.
func (m *MultiSink) RecordState(rec StateRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(StateRecorder); ok {
			if err := r.RecordState(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordTravelStats forwards travel statistics when supported by the sink.
func (m *MultiSink) RecordTravelStats(rec TravelStatsRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(TravelStatsRecorder); ok {
			if err := r.RecordTravelStats(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordError forwards publish path failures when supported by the sink.
func (m *MultiSink) RecordError(rec ErrorRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(ErrorRecorder); ok {
			if err := r.RecordError(rec); err != nil {
				return err
			}
		}
	}
	return nil
}
