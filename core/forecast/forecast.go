// Package forecast projects the remaining shelf life over the next hours and
// summarizes how the estimate has been moving.
package forecast

import (
	"math"

	"github.com/kilianp07/coldchain/core/history"
	"github.com/kilianp07/coldchain/core/model"
	"gonum.org/v1/gonum/stat"
)

// Horizons are the projection points, in hours.
var Horizons = [...]float64{1, 2, 4}

// Projection describes the expected shelf life over the next hours.
type Projection struct {
	CurrentDays      float64        `json:"current_days"`
	After1h          float64        `json:"after_1h"`
	After2h          float64        `json:"after_2h"`
	After4h          float64        `json:"after_4h"`
	HourlyRate       float64        `json:"hourly_rate"`
	DeclinePerHour   float64        `json:"decline_per_hour"`
	Decline4hPercent float64        `json:"decline_4h_percent"`
	Severity         model.Severity `json:"severity"`
}

// CurvePoint is one sample of a dense projection.
type CurvePoint struct {
	Hour float64 `json:"hour"`
	Days float64 `json:"days"`
}

// Diagnostics summarizes the trend log.
type Diagnostics struct {
	AverageRate  float64 `json:"average_rate"`
	DaysVariance float64 `json:"days_variance"`
	Readings     int     `json:"readings"`
	Direction    string  `json:"direction"`
}

// Trend directions reported by Diagnose.
const (
	DirectionDecreasing   = "DECREASING"
	DirectionStable       = "STABLE"
	DirectionInsufficient = "INSUFFICIENT_DATA"
)

// Warning is a human-readable alert derived from a projection.
type Warning struct {
	Level   model.Severity `json:"level"`
	Message string         `json:"message"`
}

// HourlyRate converts a daily decay rate into days lost per hour.
func HourlyRate(days, ratePerDay float64) float64 {
	if days <= 0 || ratePerDay <= 0 || math.IsNaN(ratePerDay) {
		return 0
	}
	return ratePerDay / 24
}

// At returns the remaining days after the given number of hours.
func At(days, ratePerDay, hours float64) float64 {
	return math.Max(0, days-HourlyRate(days, ratePerDay)*hours)
}

// Project computes the 1, 2 and 4 hour projections.
func Project(days, ratePerDay float64) Projection {
	days = math.Max(0, days)
	p := Projection{
		CurrentDays: days,
		After1h:     At(days, ratePerDay, Horizons[0]),
		After2h:     At(days, ratePerDay, Horizons[1]),
		After4h:     At(days, ratePerDay, Horizons[2]),
		HourlyRate:  HourlyRate(days, ratePerDay),
		Severity:    model.SeverityNormal,
	}
	decline := days - p.After4h
	p.DeclinePerHour = decline / Horizons[2]
	if days > 0 {
		p.Decline4hPercent = decline / days * 100
	}
	switch {
	case decline > days*0.5:
		p.Severity = model.SeverityCritical
	case decline > days*0.25:
		p.Severity = model.SeverityWarning
	}
	return p
}

// Curve samples the projection over hours with points+1 evenly spaced samples.
// Zero arguments default to 24 hours and 100 points.
func Curve(days, ratePerDay, hours float64, points int) []CurvePoint {
	if hours <= 0 {
		hours = 24
	}
	if points <= 0 {
		points = 100
	}
	out := make([]CurvePoint, points+1)
	step := hours / float64(points)
	for i := range out {
		h := float64(i) * step
		out[i] = CurvePoint{Hour: h, Days: At(days, ratePerDay, h)}
	}
	return out
}

// Warnings lists the alerts raised by a projection.
func Warnings(p Projection) []Warning {
	var out []Warning
	if p.After1h < 2 {
		out = append(out, Warning{Level: model.SeverityCritical, Message: "shelf life drops below 2 days within 1 hour"})
	}
	if p.After2h < 1 {
		out = append(out, Warning{Level: model.SeverityCritical, Message: "shelf life drops below 1 day within 2 hours"})
	}
	if p.Severity == model.SeverityCritical {
		out = append(out, Warning{Level: model.SeverityCritical, Message: "rapid decay: more than half of the shelf life lost within 4 hours"})
	}
	return out
}

// Diagnose summarizes the trend log.
func Diagnose(points []history.TrendPoint) Diagnostics {
	d := Diagnostics{Readings: len(points), Direction: DirectionInsufficient}
	if len(points) < 2 {
		return d
	}
	days := make([]float64, len(points))
	rates := make([]float64, len(points))
	for i, p := range points {
		days[i] = p.Days
		rates[i] = p.Rate
	}
	d.AverageRate = stat.Mean(rates, nil)
	_, d.DaysVariance = stat.PopMeanVariance(days, nil)
	d.Direction = DirectionStable
	if days[len(days)-1] < days[0] {
		d.Direction = DirectionDecreasing
	}
	return d
}
