// Package trust grades how well transport conditions were held within the
// ideal cold-chain bands.
package trust

import (
	"fmt"
	"math"

	"github.com/kilianp07/coldchain/core/history"
	"github.com/kilianp07/coldchain/core/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Penalty categories.
const (
	PenaltyTemperature  = "TEMPERATURE"
	PenaltyVibration    = "VIBRATION"
	PenaltyHumidity     = "HUMIDITY"
	PenaltyTempVariance = "TEMP_VARIANCE"
	PenaltyChaos        = "CHAOS_EVENTS"
)

// Trend values returned by Trend.
const (
	TrendImproving    = "IMPROVING"
	TrendDegrading    = "DEGRADING"
	TrendStable       = "STABLE"
	TrendInsufficient = "INSUFFICIENT_DATA"
)

const (
	totalPenaltyBudget = 100
	trendWindow        = 10
)

// Config holds the ideal bands and penalty rates.
type Config struct {
	TempMin           float64 `json:"temp_min_c"`
	TempMax           float64 `json:"temp_max_c"`
	TempRateAbove     float64 `json:"temp_rate_above"`
	TempRateBelow     float64 `json:"temp_rate_below"`
	TempCap           float64 `json:"temp_cap"`
	VibrationMax      float64 `json:"vibration_max_g"`
	VibrationRate     float64 `json:"vibration_rate"`
	VibrationCap      float64 `json:"vibration_cap"`
	HumidityMin       float64 `json:"humidity_min"`
	HumidityMax       float64 `json:"humidity_max"`
	HumidityRate      float64 `json:"humidity_rate"`
	HumidityCap       float64 `json:"humidity_cap"`
	VarianceThreshold float64 `json:"variance_threshold"`
	VarianceRate      float64 `json:"variance_rate"`
	VarianceCap       float64 `json:"variance_cap"`
	VarianceWindow    int     `json:"variance_window"`
	ChaosPerEvent     float64 `json:"chaos_per_event"`
	ChaosCap          float64 `json:"chaos_cap"`
	ExposureThreshold float64 `json:"exposure_threshold_g"`
}

// DefaultConfig returns the standard bands.
func DefaultConfig() Config {
	return Config{
		TempMin: 2, TempMax: 4, TempRateAbove: 10, TempRateBelow: 5, TempCap: 30,
		VibrationMax: 0.3, VibrationRate: 150, VibrationCap: 40,
		HumidityMin: 40, HumidityMax: 60, HumidityRate: 0.2, HumidityCap: 15,
		VarianceThreshold: 2, VarianceRate: 5, VarianceCap: 20, VarianceWindow: 20,
		ChaosPerEvent: 20, ChaosCap: 40,
		ExposureThreshold: 0.5,
	}
}

// SetDefaults fills a zero config with the defaults.
func (c *Config) SetDefaults() {
	if *c == (Config{}) {
		*c = DefaultConfig()
		return
	}
	if c.VarianceWindow == 0 {
		c.VarianceWindow = DefaultConfig().VarianceWindow
	}
}

// Validate checks band ordering.
func (c Config) Validate() error {
	if c.TempMin > c.TempMax {
		return fmt.Errorf("%w: trust temp_min_c above temp_max_c", model.ErrConfiguration)
	}
	if c.HumidityMin > c.HumidityMax {
		return fmt.Errorf("%w: trust humidity_min above humidity_max", model.ErrConfiguration)
	}
	if c.VarianceWindow < 2 {
		return fmt.Errorf("%w: trust variance_window must be at least 2", model.ErrConfiguration)
	}
	return nil
}

// Penalty is one deduction from the score.
type Penalty struct {
	Type    string  `json:"type"`
	Raw     float64 `json:"raw"`
	Applied float64 `json:"applied"`
}

// Score is the trust assessment of a shipment.
type Score struct {
	Value             float64   `json:"value"`
	Grade             string    `json:"grade"`
	Penalties         []Penalty `json:"penalties"`
	TotalPenalty      float64   `json:"total_penalty"`
	IsHealthy         bool      `json:"is_healthy"`
	RequiresAttention bool      `json:"requires_attention"`
}

// Engine computes trust scores.
type Engine struct {
	cfg Config
}

// New returns an Engine.
func New(cfg Config) (*Engine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Score evaluates the current sample against the session history.
func (e *Engine) Score(s model.TelemetrySample, view history.View) Score {
	c := e.cfg
	raw := []Penalty{
		{Type: PenaltyTemperature, Raw: e.temperature(s.Temperature)},
		{Type: PenaltyVibration, Raw: capped(math.Max(0, s.Vibration-c.VibrationMax)*c.VibrationRate, c.VibrationCap)},
		{Type: PenaltyHumidity, Raw: capped(outside(s.Humidity, c.HumidityMin, c.HumidityMax)*c.HumidityRate, c.HumidityCap)},
	}
	if v, ok := e.variance(view.Telemetry); ok && v >= c.VarianceThreshold {
		raw = append(raw, Penalty{Type: PenaltyTempVariance, Raw: capped((v-c.VarianceThreshold)*c.VarianceRate, c.VarianceCap)})
	}
	// The event log outlives chaos mode; it only costs trust while active.
	if n := len(view.Chaos); n > 0 && view.ChaosMode {
		raw = append(raw, Penalty{Type: PenaltyChaos, Raw: capped(float64(n)*c.ChaosPerEvent, c.ChaosCap)})
	}

	budget := float64(totalPenaltyBudget)
	out := Score{Penalties: []Penalty{}}
	for _, p := range raw {
		if p.Raw <= 0 {
			continue
		}
		p.Applied = math.Min(p.Raw, budget)
		budget -= p.Applied
		out.TotalPenalty += p.Applied
		out.Penalties = append(out.Penalties, p)
	}
	out.Value = model.Clamp(100-out.TotalPenalty, 0, 100)
	out.Grade = Grade(out.Value)
	out.IsHealthy = out.Value >= 70
	out.RequiresAttention = out.Value < 50
	return out
}

func (e *Engine) temperature(t float64) float64 {
	c := e.cfg
	switch {
	case t > c.TempMax:
		return capped((t-c.TempMax)*c.TempRateAbove, c.TempCap)
	case t < c.TempMin:
		return capped((c.TempMin-t)*c.TempRateBelow, c.TempCap)
	default:
		return 0
	}
}

func (e *Engine) variance(samples []model.TelemetrySample) (float64, bool) {
	if len(samples) > e.cfg.VarianceWindow {
		samples = samples[len(samples)-e.cfg.VarianceWindow:]
	}
	if len(samples) < 2 {
		return 0, false
	}
	return stat.PopVariance(temperatures(samples), nil), true
}

func outside(v, lo, hi float64) float64 {
	switch {
	case v > hi:
		return v - hi
	case v < lo:
		return lo - v
	default:
		return 0
	}
}

func capped(v, limit float64) float64 {
	return math.Min(math.Max(0, v), limit)
}

// Grade maps a score to a letter.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}

// Stats summarizes the telemetry history.
type Stats struct {
	Readings    int       `json:"readings"`
	Temperature TempStats `json:"temperature"`
	Vibration   VibStats  `json:"vibration"`
	Humidity    HumStats  `json:"humidity"`
	ChaosEvents int       `json:"chaos_events"`
}

// TempStats describes the temperature distribution.
type TempStats struct {
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Variance float64 `json:"variance"`
}

// VibStats describes vibration exposure.
type VibStats struct {
	Mean     float64 `json:"mean"`
	Max      float64 `json:"max"`
	Exposure int     `json:"exposure"`
}

// HumStats describes the humidity range.
type HumStats struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Statistics summarizes the session history. ok is false without readings.
func (e *Engine) Statistics(view history.View) (Stats, bool) {
	n := len(view.Telemetry)
	st := Stats{Readings: n, ChaosEvents: len(view.Chaos)}
	if n == 0 {
		return st, false
	}
	temps := temperatures(view.Telemetry)
	vibes := make([]float64, n)
	hums := make([]float64, n)
	for i, s := range view.Telemetry {
		vibes[i] = s.Vibration
		hums[i] = s.Humidity
		if s.Vibration > e.cfg.ExposureThreshold {
			st.Vibration.Exposure++
		}
	}
	st.Temperature.Mean, st.Temperature.Variance = stat.PopMeanVariance(temps, nil)
	st.Temperature.Std = math.Sqrt(st.Temperature.Variance)
	st.Temperature.Min, st.Temperature.Max = floats.Min(temps), floats.Max(temps)
	st.Vibration.Mean, st.Vibration.Max = stat.Mean(vibes, nil), floats.Max(vibes)
	st.Humidity.Mean = stat.Mean(hums, nil)
	st.Humidity.Min, st.Humidity.Max = floats.Min(hums), floats.Max(hums)
	return st, true
}

// Trend compares the mean temperature of the last readings with the ones
// before. A cooler recent window is an improvement.
func (e *Engine) Trend(view history.View) string {
	h := view.Telemetry
	if len(h) < trendWindow {
		return TrendInsufficient
	}
	recent := temperatures(h[len(h)-trendWindow:])
	var earlier []float64
	if len(h) >= 2*trendWindow {
		earlier = temperatures(h[len(h)-2*trendWindow : len(h)-trendWindow])
	} else {
		earlier = temperatures(h[:trendWindow])
	}
	r, p := stat.Mean(recent, nil), stat.Mean(earlier, nil)
	switch {
	case r < p-1:
		return TrendImproving
	case r > p+1:
		return TrendDegrading
	default:
		return TrendStable
	}
}

func temperatures(samples []model.TelemetrySample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Temperature
	}
	return out
}
