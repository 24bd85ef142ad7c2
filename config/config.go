package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/doorbridge/core/bridge"
	"github.com/kilianp07/doorbridge/core/factory"
	"github.com/kilianp07/doorbridge/core/tracker"
	"github.com/kilianp07/doorbridge/infra/mqtt"
)

type Config struct {
	MQTT    mqtt.Config    `json:"mqtt"`
	Bridge  bridge.Config  `json:"bridge"`
	Tracker tracker.Config `json:"tracker"`
	Metrics MetricsConfig  `json:"metrics"`
	History HistoryConfig  `json:"history"`
	API     APIConfig      `json:"api"`
	Sentry  SentryConfig   `json:"sentry"`
}

// MetricsConfig selects the metric sinks and the Prometheus scrape address.
type MetricsConfig struct {
	Sinks          []factory.ModuleConfig `json:"sinks"`
	PrometheusAddr string                 `json:"prometheus_addr"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("DOOR_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "door_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.History.SetDefaults()
	cfg.API.SetDefaults()
	if err := cfg.History.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.API.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
