package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/doorbridge/core/door"
	coremetrics "github.com/kilianp07/doorbridge/core/metrics"
)

func captureServer(t *testing.T, bodies *[]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		*bodies = append(*bodies, strings.TrimSpace(string(data)))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInfluxSinkRecordCommand(t *testing.T) {
	var bodies []string
	srv := captureServer(t, &bodies)

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	rec := coremetrics.CommandRecord{CycleID: "cycle-1", Command: door.CommandClose, Time: now}
	if err := sink.RecordCommand(rec); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("door_command").
		AddTag("command", "CLOSE").
		AddTag("cycle_id", "cycle-1").
		AddTag("component", "bridge").
		AddField("count", 1).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(bodies) != 1 || bodies[0] != expected {
		t.Errorf("unexpected bodies: %#v", bodies)
	}
}

func TestInfluxSinkRecordCycle(t *testing.T) {
	var bodies []string
	srv := captureServer(t, &bodies)

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	rec := coremetrics.CycleRecord{CycleID: "cycle-1", Command: door.CommandOpen, Started: now, Finished: now.Add(5 * time.Second)}
	if err := sink.RecordCycle(rec); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("door_cycle").
		AddTag("command", "OPEN").
		AddTag("cycle_id", "cycle-1").
		AddTag("component", "bridge").
		AddField("duration_seconds", 5.0).
		SetTime(now.Add(5 * time.Second))
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(bodies) != 1 || bodies[0] != expected {
		t.Errorf("unexpected bodies: %#v", bodies)
	}
}

func TestInfluxSinkRecordState(t *testing.T) {
	var bodies []string
	srv := captureServer(t, &bodies)

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	if err := sink.RecordState(coremetrics.StateRecord{State: door.StateClosed, Time: now}); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("door_state").
		AddTag("state", "closed").
		AddTag("component", "tracker").
		AddField("value", int(door.StateClosed)).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(bodies) != 1 || bodies[0] != expected {
		t.Errorf("unexpected bodies: %#v", bodies)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
