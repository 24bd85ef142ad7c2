package bridge

import (
	"fmt"
	"time"
)

// Config defines bridge timing settings.
type Config struct {
	// TravelTimeSeconds is the fixed interval between the transitional and
	// settled status publishes.
	TravelTimeSeconds float64 `json:"travel_time_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TravelTimeSeconds == 0 {
		c.TravelTimeSeconds = 5
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.TravelTimeSeconds <= 0 {
		return fmt.Errorf("travel_time_seconds must be positive")
	}
	return nil
}

// TravelTime returns the configured interval as a duration.
func (c Config) TravelTime() time.Duration {
	return time.Duration(c.TravelTimeSeconds * float64(time.Second))
}
