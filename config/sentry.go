package config

import "fmt"

// SentryConfig enables error reporting for failed detections, publisher
// outages and HTTP 5xx answers. An empty DSN keeps reporting off.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Release          string  `json:"release"`
	// IgnoreCanceled drops errors caused by a canceled request context,
	// which are client disconnects rather than engine failures.
	IgnoreCanceled *bool `json:"ignore_canceled"`
}

func (c *SentryConfig) SetDefaults() {
	if c.Environment == "" {
		c.Environment = "production"
	}
	if c.IgnoreCanceled == nil {
		v := true
		c.IgnoreCanceled = &v
	}
}

func (c SentryConfig) Validate() error {
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return fmt.Errorf("sentry: traces_sample_rate %v outside [0, 1]", c.TracesSampleRate)
	}
	return nil
}
