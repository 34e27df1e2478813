package model

import (
	"errors"
	"math"
)

// ErrConfiguration marks invalid engine settings. It is fatal and never retried.
var ErrConfiguration = errors.New("configuration error")

// Neutral values substituted for non-finite sensor readings.
const (
	NeutralTemperature = 4.0
	NeutralHumidity    = 50.0
	NeutralVibration   = 0.0
)

// Physical band for temperature readings. Anything outside is a sensor fault.
const (
	MinTemperature = -80.0
	MaxTemperature = 150.0
)

// TelemetrySample is one reading from the cold-chain sensors of a shipment.
type TelemetrySample struct {
	Temperature float64 `json:"temperature"` // °C
	Humidity    float64 `json:"humidity"`    // relative humidity in %
	Vibration   float64 `json:"vibration"`   // G
	Timestamp   int64   `json:"timestamp"`   // epoch seconds
}

// Sanitize returns a copy of the sample that every engine can process.
// Non-finite values are replaced by neutral readings. Temperature is clamped
// to [MinTemperature,MaxTemperature], humidity to [0,100] and vibration to >= 0. The boolean reports whether anything changed.
// Out of range readings are never rejected: operational data is noisy.
func (s TelemetrySample) Sanitize() (TelemetrySample, bool) {
	out := s
	changed := false
	if !finite(out.Temperature) {
		out.Temperature = NeutralTemperature
		changed = true
	}
	if !finite(out.Humidity) {
		out.Humidity = NeutralHumidity
		changed = true
	}
	if !finite(out.Vibration) {
		out.Vibration = NeutralVibration
		changed = true
	}
	if t := Clamp(out.Temperature, MinTemperature, MaxTemperature); t != out.Temperature {
		out.Temperature = t
		changed = true
	}
	if out.Humidity < 0 {
		out.Humidity = 0
		changed = true
	}
	if out.Humidity > 100 {
		out.Humidity = 100
		changed = true
	}
	if out.Vibration < 0 {
		out.Vibration = 0
		changed = true
	}
	return out, changed
}

// ChaosEvent records an operator-triggered disturbance such as a cooling failure drill.
type ChaosEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clamp bounds v to [lo, hi]. NaN is mapped to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
