// Package config loads the service configuration from a YAML or JSON file
// with CC_ environment overrides.
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

	"github.com/kilianp07/coldchain/core/decisionlog"
	"github.com/kilianp07/coldchain/core/history"
	"github.com/kilianp07/coldchain/core/metrics"
	"github.com/kilianp07/coldchain/core/model"
	"github.com/kilianp07/coldchain/core/pipeline"
	"github.com/kilianp07/coldchain/core/routing"
	"github.com/kilianp07/coldchain/core/shelflife"
	"github.com/kilianp07/coldchain/core/trust"
	"github.com/kilianp07/coldchain/core/valuation"
	"github.com/kilianp07/coldchain/infra/mqtt"
)

// EnvPrefix prefixes environment overrides. CC_MQTT__BROKER sets mqtt.broker.
const EnvPrefix = "CC_"

// Config is the full service configuration.
type Config struct {
	ShelfLife   shelflife.Config       `json:"shelf_life"`
	Forecast    ForecastConfig         `json:"forecast"`
	Routing     routing.Config         `json:"routing"`
	Pivot       pipeline.PivotConfig   `json:"pivot"`
	Trust       trust.Config           `json:"trust"`
	Liability   LiabilityConfig        `json:"liability"`
	Advisor     pipeline.AdvisorConfig `json:"advisor"`
	Valuation   valuation.Config       `json:"valuation"`
	History     history.Config         `json:"history"`
	Facilities  []model.Facility       `json:"facilities"`
	CargoValue  float64                `json:"cargo_value"`
	Predictor   PredictorConfig        `json:"predictor"`
	Metrics     metrics.Config         `json:"metrics"`
	DecisionLog decisionlog.Config     `json:"decision_log"`
	MQTT        mqtt.Config            `json:"mqtt"`
	Source      SourceConfig           `json:"source"`
	API         APIConfig              `json:"api"`
	Sentry      SentryConfig           `json:"sentry"`
}

// Load reads path and applies environment overrides. An empty path loads
// defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
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
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.ShelfLife.SetDefaults()
	c.Forecast.SetDefaults()
	c.Routing.SetDefaults()
	c.Pivot.SetDefaults()
	c.Trust.SetDefaults()
	c.Liability.SetDefaults()
	c.Valuation.SetDefaults()
	c.History.SetDefaults()
	if len(c.Facilities) == 0 {
		c.Facilities = DefaultFacilities()
	}
	if c.CargoValue == 0 {
		c.CargoValue = DefaultCargoValue
	}
	c.DecisionLog.SetDefaults()
	c.Source.SetDefaults()
	c.API.SetDefaults()
	if c.Source.Mode == SourceMQTT || c.MQTT.Broker != "" {
		c.MQTT.SetDefaults()
	}
}

// Validate checks every section. Engine settings are validated again when
// the pipeline is built.
func (c Config) Validate() error {
	if err := c.ShelfLife.Validate(); err != nil {
		return err
	}
	if err := c.Routing.Validate(); err != nil {
		return err
	}
	if err := c.Trust.Validate(); err != nil {
		return err
	}
	if err := c.Valuation.Validate(); err != nil {
		return err
	}
	if err := c.Forecast.Validate(); err != nil {
		return err
	}
	if c.CargoValue < 0 {
		return fmt.Errorf("%w: cargo_value must not be negative", model.ErrConfiguration)
	}
	for _, f := range c.Facilities {
		if f.Name == "" {
			return fmt.Errorf("%w: facility name is required", model.ErrConfiguration)
		}
	}
	if err := c.DecisionLog.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if c.Source.Mode == SourceMQTT {
		if err := c.MQTT.Validate(); err != nil {
			return err
		}
	}
	return c.Sentry.Validate()
}

// Pipeline extracts the engine settings.
func (c Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		ShelfLife: c.ShelfLife,
		Routing:   c.Routing,
		Pivot:     c.Pivot,
		Trust:     c.Trust,
		Advisor:   c.Advisor,
		Valuation: c.Valuation,
	}
}
