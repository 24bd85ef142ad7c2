package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/doorbridge/core/metrics"
	"github.com/kilianp07/doorbridge/infra/logger"
)

// InfluxSink writes door activity to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close shuts down the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

// RecordCommand writes an accepted command point.
func (s *InfluxSink) RecordCommand(rec coremetrics.CommandRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("door_command").
		AddTag("command", rec.Command.String()).
		AddTag("cycle_id", rec.CycleID).
		AddTag("component", "bridge").
		AddField("count", 1).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordStatus writes a published status point.
func (s *InfluxSink) RecordStatus(rec coremetrics.StatusRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("door_status").
		AddTag("status", rec.Status.String()).
		AddTag("cycle_id", rec.CycleID).
		AddTag("component", "bridge").
		AddField("count", 1).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordIgnored writes a dropped payload point.
func (s *InfluxSink) RecordIgnored(rec coremetrics.IgnoredRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("door_ignored_payload").
		AddTag("component", "bridge").
		AddField("payload", rec.Payload).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCycle writes a completed announcement cycle.
func (s *InfluxSink) RecordCycle(rec coremetrics.CycleRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("door_cycle").
		AddTag("command", rec.Command.String()).
		AddTag("cycle_id", rec.CycleID).
		AddTag("component", "bridge").
		AddField("duration_seconds", round3(rec.Finished.Sub(rec.Started).Seconds())).
		SetTime(rec.Finished)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordState writes a believed state snapshot.
func (s *InfluxSink) RecordState(rec coremetrics.StateRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("door_state").
		AddTag("state", rec.State.String()).
		AddTag("component", "tracker").
		AddField("value", int(rec.State)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTravelStats writes the travel statistics snapshot.
func (s *InfluxSink) RecordTravelStats(rec coremetrics.TravelStatsRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("door_travel_stats").
		AddTag("component", "tracker").
		AddField("samples", rec.Samples).
		AddField("mean_seconds", round3(rec.Mean.Seconds())).
		AddField("stddev_seconds", round3(rec.StdDev.Seconds())).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordError writes a publish failure point.
func (s *InfluxSink) RecordError(rec coremetrics.ErrorRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("door_publish_error").
		AddTag("stage", rec.Stage).
		AddTag("topic", rec.Topic).
		AddTag("component", "bridge").
		AddField("count", 1).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
