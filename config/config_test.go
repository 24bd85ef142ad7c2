package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `mqtt:
  broker: "tcp://broker.lan:1883"
  client_id: "doorbridge"
  username: "door"
  password: "secret"
  command_topic: "garage_door/buttonpress"
  status_topic: "garage_door/status"
  topic_suffix: "_TEST"
  retain_status: true
  qos:
    command: 1
    status: 1
bridge:
  travel_time_seconds: 5
tracker:
  travel_timeout_seconds: 15
metrics:
  prometheus_addr: ":2112"
  sinks:
    - type: "nop"
history:
  backend: "sqlite"
  path: "events.db"
api:
  enabled: true
  token: "tok"
sentry:
  dsn: ""
  environment: "test"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"broker", cfg.MQTT.Broker, "tcp://broker.lan:1883"},
		{"client_id", cfg.MQTT.ClientID, "doorbridge"},
		{"username", cfg.MQTT.Username, "door"},
		{"password", cfg.MQTT.Password, "secret"},
		{"command_topic", cfg.MQTT.CommandTopicName(), "garage_door/buttonpress_TEST"},
		{"status_topic", cfg.MQTT.StatusTopicName(), "garage_door/status_TEST"},
		{"retain_status", cfg.MQTT.RetainStatus, true},
		{"qos_command", cfg.MQTT.QoS["command"], byte(1)},
		{"travel_time_seconds", cfg.Bridge.TravelTimeSeconds, 5.0},
		{"travel_timeout_seconds", cfg.Tracker.TravelTimeoutSeconds, 15.0},
		{"prometheus_addr", cfg.Metrics.PrometheusAddr, ":2112"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"history_backend", cfg.History.Backend, "sqlite"},
		{"history_path", cfg.History.Path, "events.db"},
		{"api_enabled", cfg.API.Enabled, true},
		{"api_addr", cfg.API.Addr, ":8080"},
		{"api_token", cfg.API.Token, "tok"},
		{"sentry_env", cfg.Sentry.Environment, "test"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("mqtt:\n  broker: \"tcp://localhost:1883\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.History.Backend != "jsonl" || cfg.History.Path != "door_events.jsonl" {
		t.Errorf("history defaults: %+v", cfg.History)
	}
	if cfg.API.Addr != ":8080" {
		t.Errorf("api defaults: %+v", cfg.API)
	}
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestLoadRejectsBadHistoryBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("history:\n  backend: \"csv\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected backend error")
	}
}

func TestEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("mqtt:\n  broker: \"tcp://localhost:1883\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DOOR_MQTT__USERNAME", "envuser")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.MQTT.Username != "envuser" {
		t.Errorf("env override not applied: %q", cfg.MQTT.Username)
	}
}
