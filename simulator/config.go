package main

import (
	"fmt"
	"time"
)

// Config holds parameters for the press soak tool.
type Config struct {
	Broker      string
	Presses     int
	Interval    time.Duration
	Settle      time.Duration
	Strategy    string
	TopicSuffix string
	ChaosRate   float64
	Verbose     bool
}

// Validate checks the soak parameters.
func (c *Config) Validate() error {
	if c.Presses <= 0 {
		return fmt.Errorf("presses must be positive, got %d", c.Presses)
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	if c.ChaosRate < 0 || c.ChaosRate > 1 {
		return fmt.Errorf("chaos-rate must be within [0,1], got %v", c.ChaosRate)
	}
	switch c.Strategy {
	case "alternating", "random", "chaos":
		return nil
	default:
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}
}
