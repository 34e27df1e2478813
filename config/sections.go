package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/coldchain/core/model"
)

// DefaultCargoValue is the shipment value used when none is configured.
const DefaultCargoValue = 10000

// DefaultFacilities are the destinations evaluated when the source does not
// supply its own.
func DefaultFacilities() []model.Facility {
	return []model.Facility{
		{Name: "Center_A", DistanceKm: 45, CapacityPercent: 75, Road: model.RoadGood},
		{Name: "Center_B", DistanceKm: 60, CapacityPercent: 85, Road: model.RoadGood},
		{Name: "Original", DistanceKm: 30, CapacityPercent: 60, Road: model.RoadGood},
	}
}

// ForecastConfig shapes the decay curve served by the status endpoint.
type ForecastConfig struct {
	CurveHours  float64 `json:"curve_hours"`
	CurvePoints int     `json:"curve_points"`
}

// SetDefaults covers one day in hourly steps.
func (c *ForecastConfig) SetDefaults() {
	if c.CurveHours == 0 {
		c.CurveHours = 24
	}
	if c.CurvePoints == 0 {
		c.CurvePoints = 24
	}
}

// Validate checks the curve shape.
func (c ForecastConfig) Validate() error {
	if c.CurveHours <= 0 || c.CurvePoints < 1 {
		return fmt.Errorf("%w: forecast curve needs positive hours and points", model.ErrConfiguration)
	}
	return nil
}

// LiabilityConfig names the parties of the shipment by role.
type LiabilityConfig struct {
	// Parties maps a party name to CARRIER, SHIPPER or REFRIGERATION.
	Parties map[string]string `json:"parties"`
}

// SetDefaults installs a placeholder party per role.
func (c *LiabilityConfig) SetDefaults() {
	if len(c.Parties) == 0 {
		c.Parties = map[string]string{
			"CoolTemp Logistics":  "CARRIER",
			"FreshFarm Shippers":  "SHIPPER",
			"Arctic Cool Systems": "REFRIGERATION",
		}
	}
}

// PredictorConfig locates the exported shelf-life model. An empty path runs
// physics only.
type PredictorConfig struct {
	ModelPath string `json:"model_path"`
}

// Source modes.
const (
	SourceSim  = "sim"
	SourceMQTT = "mqtt"
	SourceNone = "none"
)

// SourceConfig selects where telemetry comes from.
type SourceConfig struct {
	Mode     string        `json:"mode"`
	Interval time.Duration `json:"interval"`
	// Seed makes the simulator reproducible. Zero seeds from the clock.
	Seed int64 `json:"seed"`
	// BlockedRate is the simulated chance of a blocked road.
	BlockedRate float64 `json:"blocked_rate"`
}

// SetDefaults runs the simulator every five seconds.
func (c *SourceConfig) SetDefaults() {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode == "" {
		c.Mode = SourceSim
	}
	if c.Interval == 0 {
		c.Interval = 5 * time.Second
	}
	if c.BlockedRate == 0 {
		c.BlockedRate = 0.1
	}
}

// Validate checks the mode and interval.
func (c SourceConfig) Validate() error {
	switch c.Mode {
	case SourceSim, SourceMQTT, SourceNone:
	default:
		return fmt.Errorf("%w: unknown source mode %q", model.ErrConfiguration, c.Mode)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: source interval must be positive", model.ErrConfiguration)
	}
	if c.BlockedRate < 0 || c.BlockedRate > 1 {
		return fmt.Errorf("%w: blocked_rate must be within [0,1]", model.ErrConfiguration)
	}
	return nil
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Address string `json:"address"`
	// Token, when set, is required as a bearer token on mutating and audit routes.
	Token string `json:"token"`
}

// SetDefaults listens on :8080.
func (c *APIConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
}

// SentryConfig configures error reporting. An empty DSN disables it.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	Release          string  `json:"release"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
}

func (c SentryConfig) Validate() error {
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return fmt.Errorf("%w: sentry.traces_sample_rate must be within [0,1]", model.ErrConfiguration)
	}
	return nil
}
