package tracker

import "time"

// Config holds the tracker settings.
type Config struct {
	// TravelTimeoutSeconds bounds how long a door may stay in a moving
	// state before the tracker resolves it on its own.
	TravelTimeoutSeconds float64 `json:"travel_timeout_seconds"`
	// StatsWindowSize is the number of travel durations retained for
	// outlier detection.
	StatsWindowSize int `json:"stats_window_size"`
	// OutlierSigma is the z-score above which a travel duration is
	// reported as anomalous.
	OutlierSigma float64 `json:"outlier_sigma"`
}

// SetDefaults fills zero values with production defaults.
func (c *Config) SetDefaults() {
	if c.TravelTimeoutSeconds == 0 {
		c.TravelTimeoutSeconds = 15
	}
	if c.StatsWindowSize == 0 {
		c.StatsWindowSize = 32
	}
	if c.OutlierSigma == 0 {
		c.OutlierSigma = 3
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.TravelTimeoutSeconds < 0 {
		return errNegativeTimeout
	}
	return nil
}

// TravelTimeout returns the timeout as a duration.
func (c Config) TravelTimeout() time.Duration {
	return time.Duration(c.TravelTimeoutSeconds * float64(time.Second))
}
