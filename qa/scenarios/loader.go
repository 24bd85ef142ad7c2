package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Step is one payload sent to the command topic, with an optional pause
// afterwards.
type Step struct {
	Payload string `yaml:"payload"`
	WaitMs  int    `yaml:"wait_ms,omitempty"`
}

// Wait returns the pause after the step.
func (s Step) Wait() time.Duration { return time.Duration(s.WaitMs) * time.Millisecond }

// Expected describes what a scenario must produce.
type Expected struct {
	Statuses []string `yaml:"statuses"`
	Ignored  int      `yaml:"ignored"`
}

// Scenario is a scripted press sequence executed against an in-memory
// bridge.
type Scenario struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	TravelMs    int      `yaml:"travel_ms,omitempty"`
	Steps       []Step   `yaml:"steps"`
	Expected    Expected `yaml:"expected"`
}

// Travel returns the travel interval for the run, defaulted for tests.
func (s *Scenario) Travel() time.Duration {
	if s.TravelMs <= 0 {
		return 20 * time.Millisecond
	}
	return time.Duration(s.TravelMs) * time.Millisecond
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("scenario %s has no name", path)
	}
	return &sc, nil
}
