package config

import "fmt"

// APIConfig defines settings for the HTTP history API.
type APIConfig struct {
	// Enabled starts the HTTP server when true.
	Enabled bool `json:"enabled"`
	// Addr is the listen address of the server.
	Addr string `json:"addr"`
	// Token protects the API with bearer authentication when non-empty.
	Token string `json:"token"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// Validate checks mandatory fields.
func (c APIConfig) Validate() error {
	if c.Enabled && c.Addr == "" {
		return fmt.Errorf("api addr is required")
	}
	return nil
}
