package shelflife

import (
	"fmt"
	"math"

	"github.com/kilianp07/coldchain/core/model"
)

// ErrConfiguration is returned for invalid estimator settings.
var ErrConfiguration = model.ErrConfiguration

// Config tunes the hybrid estimator. VibrationThreshold and ReferenceTempC
// are pointers because zero is a meaningful setting for both.
type Config struct {
	PhysicsWeight      float64  `json:"physics_weight"`
	ModelWeight        float64  `json:"model_weight"`
	BaseDecayRate      float64  `json:"base_decay_rate"`
	BaseShelfLifeDays  float64  `json:"base_shelf_life_days"`
	VibrationThreshold *float64 `json:"vibration_threshold_g,omitempty"`
	VibrationPenalty   float64  `json:"vibration_penalty"`
	ReferenceTempC     *float64 `json:"reference_temp_c,omitempty"`
}

// Default thresholds of the strawberry profile.
const (
	DefaultVibrationThreshold = 0.5
	DefaultReferenceTempC     = 4.0
)

// DefaultConfig returns the calibrated strawberry profile.
func DefaultConfig() Config {
	return Config{
		PhysicsWeight:      0.4,
		ModelWeight:        0.6,
		BaseDecayRate:      1.0,
		BaseShelfLifeDays:  14,
		VibrationThreshold: float64Ptr(DefaultVibrationThreshold),
		VibrationPenalty:   1.5,
		ReferenceTempC:     float64Ptr(DefaultReferenceTempC),
	}
}

// SetDefaults fills zero values. Both weights zero means unset, and the
// pointer fields are unset only when nil.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.PhysicsWeight == 0 && c.ModelWeight == 0 {
		c.PhysicsWeight, c.ModelWeight = d.PhysicsWeight, d.ModelWeight
	}
	if c.BaseDecayRate == 0 {
		c.BaseDecayRate = d.BaseDecayRate
	}
	if c.BaseShelfLifeDays == 0 {
		c.BaseShelfLifeDays = d.BaseShelfLifeDays
	}
	if c.VibrationThreshold == nil {
		c.VibrationThreshold = d.VibrationThreshold
	}
	if c.VibrationPenalty == 0 {
		c.VibrationPenalty = d.VibrationPenalty
	}
	if c.ReferenceTempC == nil {
		c.ReferenceTempC = d.ReferenceTempC
	}
}

// Validate rejects settings the estimator cannot work with.
func (c Config) Validate() error {
	if _, _, err := normalize(c.PhysicsWeight, c.ModelWeight); err != nil {
		return err
	}
	if c.BaseDecayRate <= 0 {
		return fmt.Errorf("%w: base_decay_rate must be positive", ErrConfiguration)
	}
	if c.BaseShelfLifeDays <= 0 {
		return fmt.Errorf("%w: base_shelf_life_days must be positive", ErrConfiguration)
	}
	if c.VibrationPenalty < 0 {
		return fmt.Errorf("%w: vibration_penalty must not be negative", ErrConfiguration)
	}
	if v := c.VibrationThreshold; v != nil && (*v < 0 || math.IsNaN(*v)) {
		return fmt.Errorf("%w: vibration_threshold_g must not be negative", ErrConfiguration)
	}
	if v := c.ReferenceTempC; v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
		return fmt.Errorf("%w: reference_temp_c must be finite", ErrConfiguration)
	}
	return nil
}

func float64Ptr(v float64) *float64 { return &v }

func valueOr(p *float64, d float64) float64 {
	if p == nil {
		return d
	}
	return *p
}

func normalize(p, m float64) (float64, float64, error) {
	if p < 0 || m < 0 {
		return 0, 0, fmt.Errorf("%w: blend weights must not be negative (physics=%g model=%g)", ErrConfiguration, p, m)
	}
	sum := p + m
	if sum == 0 {
		return 0, 0, fmt.Errorf("%w: blend weights sum to zero", ErrConfiguration)
	}
	return p / sum, m / sum, nil
}
