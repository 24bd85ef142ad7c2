package metrics

// Package metrics defines interfaces for recording door activity. Sinks like
// PromSink and InfluxSink record commands, statuses and cycles and can be
// combined with NewMultiSink. The factory helpers return a MultiSink
// automatically when multiple sinks are configured.
