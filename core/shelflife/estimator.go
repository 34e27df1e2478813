// Package shelflife estimates the remaining shelf life of a perishable cargo
// by blending a temperature-driven decay model with an optional learned model.
package shelflife

import (
	"math"
	"sync"

	"github.com/kilianp07/coldchain/core/logger"
	"github.com/kilianp07/coldchain/core/model"
	"github.com/kilianp07/coldchain/core/prediction"
)

// Health statuses derived from the remaining days.
const (
	StatusNormal   = "NORMAL"
	StatusWarning  = "WARNING"
	StatusCritical = "CRITICAL"
)

// Weights are the normalized blend weights.
type Weights struct {
	Physics float64 `json:"physics"`
	Model   float64 `json:"model"`
}

// Multipliers are the factors applied to the base decay rate.
type Multipliers struct {
	Temperature float64 `json:"temperature"`
	Vibration   float64 `json:"vibration"`
	Humidity    float64 `json:"humidity"`
}

// Estimate is the outcome of one estimation.
type Estimate struct {
	PhysicsDays        float64     `json:"physics_days"`
	ModelDays          float64     `json:"model_days"`
	BlendedDays        float64     `json:"blended_days"`
	DecayRatePerDay    float64     `json:"decay_rate_per_day"`
	Weights            Weights     `json:"weights"`
	Multipliers        Multipliers `json:"multipliers"`
	PredictorAvailable bool        `json:"predictor_available"`
	Status             string      `json:"status"`
}

// Estimator computes Estimates. It is safe for concurrent use.
type Estimator struct {
	cfg       Config
	refTemp   float64
	vibLimit  float64
	predictor prediction.ShelfLifePredictor
	log       logger.Logger

	mu sync.RWMutex
	w  Weights
}

// New creates an Estimator. predictor may be nil.
func New(cfg Config, predictor prediction.ShelfLifePredictor, log logger.Logger) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, m, _ := normalize(cfg.PhysicsWeight, cfg.ModelWeight)
	return &Estimator{
		cfg:       cfg,
		refTemp:   valueOr(cfg.ReferenceTempC, DefaultReferenceTempC),
		vibLimit:  valueOr(cfg.VibrationThreshold, DefaultVibrationThreshold),
		predictor: predictor,
		log:       logger.OrNop(log),
		w:         Weights{Physics: p, Model: m},
	}, nil
}

// Weights returns the current normalized weights.
func (e *Estimator) Weights() Weights {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.w
}

// UpdateWeights replaces the blend weights after normalizing them.
func (e *Estimator) UpdateWeights(physics, model float64) error {
	p, m, err := normalize(physics, model)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.w = Weights{Physics: p, Model: m}
	e.mu.Unlock()
	e.log.Infof("shelf-life weights updated: physics=%.3f model=%.3f", p, m)
	return nil
}

// maxMultiplier keeps the decay rate finite for any finite temperature.
const maxMultiplier = 1e100

// DecayRate returns the daily decay rate and the multipliers behind it.
func (e *Estimator) DecayRate(temp, humidity, vibration float64) (float64, Multipliers) {
	mult := Multipliers{
		Temperature: math.Pow(2, (temp-e.refTemp)/10),
		Vibration:   1,
		Humidity:    1 + math.Max(0, humidity-50)/100,
	}
	if vibration > e.vibLimit {
		mult.Vibration = e.cfg.VibrationPenalty
	}
	mult.Temperature = model.Clamp(mult.Temperature, 0, maxMultiplier)
	mult.Vibration = math.Max(0, mult.Vibration)
	mult.Humidity = math.Max(0, mult.Humidity)
	return e.cfg.BaseDecayRate * mult.Temperature * mult.Vibration * mult.Humidity, mult
}

// PhysicsDays returns the shelf life predicted by the decay model alone.
func (e *Estimator) PhysicsDays(rate float64) float64 {
	if rate <= 0 || math.IsNaN(rate) {
		return e.cfg.BaseShelfLifeDays
	}
	if math.IsInf(rate, 1) {
		return 0
	}
	return math.Max(0, e.cfg.BaseShelfLifeDays/rate)
}

// Estimate blends the physics and learned predictions for one sample.
func (e *Estimator) Estimate(s model.TelemetrySample, road model.RoadCondition) Estimate {
	rate, mult := e.DecayRate(s.Temperature, s.Humidity, s.Vibration)
	physics := e.PhysicsDays(rate)

	modelDays, ok := e.predict(prediction.Features{
		Temperature: s.Temperature,
		Humidity:    s.Humidity,
		Vibration:   s.Vibration,
		RoadCode:    road.Code(),
	})
	if !ok {
		modelDays = physics
	}

	w := e.Weights()
	blended := math.Max(0, w.Physics*physics+w.Model*modelDays)
	return Estimate{
		PhysicsDays:        physics,
		ModelDays:          modelDays,
		BlendedDays:        blended,
		DecayRatePerDay:    rate,
		Weights:            w,
		Multipliers:        mult,
		PredictorAvailable: ok,
		Status:             HealthStatus(blended),
	}
}

func (e *Estimator) predict(f prediction.Features) (float64, bool) {
	if e.predictor == nil {
		return 0, false
	}
	v, err := e.predictor.PredictShelfLife(f)
	if err != nil {
		e.log.Warnf("shelf-life predictor failed, using physics model: %v", err)
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		e.log.Warnf("shelf-life predictor returned %v, using physics model", v)
		return 0, false
	}
	return math.Max(0, v), true
}

// HealthStatus classifies remaining days.
func HealthStatus(days float64) string {
	switch {
	case days < 2:
		return StatusCritical
	case days < 5:
		return StatusWarning
	default:
		return StatusNormal
	}
}
