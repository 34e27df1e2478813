// Package liability attributes spoilage to temperature, vibration and delay
// and maps the attribution onto the parties of a shipment.
package liability

import (
	"fmt"
	"math"
	"sort"

	"github.com/kilianp07/coldchain/core/model"
)

// Damage thresholds.
const (
	TempDamageThreshold      = 8.0
	TempCritical             = 15.0
	VibrationDamageThreshold = 0.5
	VibrationCritical        = 0.8
	delayLongHours           = 4.0
)

// Cause names used in reports.
const (
	CauseTemperature = "Temperature"
	CauseVibration   = "Vibration"
	CauseDelay       = "Delay"
)

// Party roles understood by Report.
const (
	RoleCarrier       = "CARRIER"
	RoleShipper       = "SHIPPER"
	RoleRefrigeration = "REFRIGERATION"
)

// Factor is the contribution of one cause.
type Factor struct {
	RawDamage float64 `json:"raw_damage"`
	Percent   float64 `json:"percent"`
	Exposure  int     `json:"exposure"`
}

// Attribution splits the accumulated damage across causes.
type Attribution struct {
	Temperature        Factor  `json:"temperature"`
	Vibration          Factor  `json:"vibration"`
	Delay              Factor  `json:"delay"`
	DelayHours         float64 `json:"delay_hours"`
	TotalDamagePercent float64 `json:"total_damage_percent"`
}

// Attribute computes the damage attribution over the telemetry history plus
// the transit delay.
func Attribute(samples []model.TelemetrySample, delayHours float64) Attribution {
	a := Attribution{DelayHours: delayHours}
	for _, s := range samples {
		if d := TemperatureDamage(s.Temperature); d > 0 {
			a.Temperature.RawDamage = accumulate(a.Temperature.RawDamage, d)
			a.Temperature.Exposure++
		}
		if d := VibrationDamage(s.Vibration); d > 0 {
			a.Vibration.RawDamage = accumulate(a.Vibration.RawDamage, d)
			a.Vibration.Exposure++
		}
	}
	a.Delay.RawDamage = accumulate(0, DelayDamage(delayHours))

	total := a.Temperature.RawDamage + a.Vibration.RawDamage + a.Delay.RawDamage
	if total > 0 {
		a.Temperature.Percent = a.Temperature.RawDamage / total * 100
		a.Vibration.Percent = a.Vibration.RawDamage / total * 100
		a.Delay.Percent = a.Delay.RawDamage / total * 100
	}
	a.TotalDamagePercent = math.Min(100, total)
	return a
}

// damageCeiling bounds each raw damage so the sum of all causes stays finite.
const damageCeiling = 1e300

func accumulate(sum, d float64) float64 {
	return math.Min(damageCeiling, sum+d)
}

// TemperatureDamage is the damage of one reading.
func TemperatureDamage(t float64) float64 {
	switch {
	case t > TempCritical:
		return (t-TempCritical)*5 + (TempCritical-TempDamageThreshold)*2
	case t > TempDamageThreshold:
		return (t - TempDamageThreshold) * 2
	default:
		return 0
	}
}

// VibrationDamage is the damage of one reading.
func VibrationDamage(v float64) float64 {
	switch {
	case v > VibrationCritical:
		return (v-VibrationCritical)*50 + 15
	case v > VibrationDamageThreshold:
		return (v - VibrationDamageThreshold) * 30
	default:
		return 0
	}
}

// DelayDamage grows linearly with an extra rate beyond four hours.
func DelayDamage(hours float64) float64 {
	if hours <= 0 || math.IsNaN(hours) {
		return 0
	}
	d := hours * 2
	if hours > delayLongHours {
		d += (hours - delayLongHours) * 3
	}
	return d
}

// Recommendation is a corrective action derived from the attribution.
type Recommendation struct {
	Cause    string         `json:"cause"`
	Action   string         `json:"action"`
	Priority model.Severity `json:"priority"`
}

// PartyShare is the liability of one party.
type PartyShare struct {
	Party   string   `json:"party"`
	Role    string   `json:"role"`
	Percent float64  `json:"percent"`
	Factors []string `json:"factors"`
}

// Report is the spoilage responsibility report.
type Report struct {
	TotalDamagePercent  float64           `json:"total_damage_percent"`
	PrimaryCause        string            `json:"primary_cause"`
	PrimaryCausePercent float64           `json:"primary_cause_percent"`
	Attribution         Attribution       `json:"attribution"`
	Descriptions        map[string]string `json:"descriptions"`
	Recommendations     []Recommendation  `json:"recommendations"`
	Parties             []PartyShare      `json:"parties,omitempty"`
}

// NewReport builds the responsibility report. parties maps a party name to
// its role; unknown roles are ignored.
func NewReport(a Attribution, parties map[string]string) Report {
	causes := []struct {
		name string
		pct  float64
	}{
		{CauseTemperature, a.Temperature.Percent},
		{CauseVibration, a.Vibration.Percent},
		{CauseDelay, a.Delay.Percent},
	}
	primary := causes[0]
	for _, c := range causes[1:] {
		if c.pct > primary.pct {
			primary = c
		}
	}

	r := Report{
		TotalDamagePercent:  a.TotalDamagePercent,
		PrimaryCause:        primary.name,
		PrimaryCausePercent: primary.pct,
		Attribution:         a,
		Descriptions: map[string]string{
			CauseTemperature: fmt.Sprintf("Temperature excursions above %g°C", TempDamageThreshold),
			CauseVibration:   fmt.Sprintf("Vibration above %gG", VibrationDamageThreshold),
			CauseDelay:       "Transit delays and extended travel time",
		},
		Recommendations: []Recommendation{},
	}
	if a.Temperature.Percent > 30 {
		r.Recommendations = append(r.Recommendations, Recommendation{
			Cause: CauseTemperature, Action: "Investigate refrigeration system",
			Priority: pick(a.Temperature.Percent > 50),
		})
	}
	if a.Vibration.Percent > 20 {
		r.Recommendations = append(r.Recommendations, Recommendation{
			Cause: CauseVibration, Action: "Review loading procedures and vehicle suspension",
			Priority: pick(a.Vibration.Percent > 40),
		})
	}
	if a.Delay.Percent > 15 {
		r.Recommendations = append(r.Recommendations, Recommendation{
			Cause: CauseDelay, Action: "Review route planning and scheduling",
			Priority: model.SeverityMedium,
		})
	}
	r.Parties = Responsibility(a, parties)
	return r
}

func pick(high bool) model.Severity {
	if high {
		return model.SeverityHigh
	}
	return model.SeverityMedium
}

// Responsibility maps the attribution onto the parties, sorted by name.
// Shares overlap: each role is a separate liability lens.
func Responsibility(a Attribution, parties map[string]string) []PartyShare {
	var out []PartyShare
	for name, role := range parties {
		s := PartyShare{Party: name, Role: role}
		switch role {
		case RoleCarrier:
			s.Percent = a.Vibration.Percent + a.Delay.Percent
			s.Factors = []string{"Vibration", "Transit Delays"}
		case RoleShipper:
			s.Percent = a.Temperature.Percent * 0.5
			s.Factors = []string{"Pre-transit Temperature"}
		case RoleRefrigeration:
			s.Percent = a.Temperature.Percent
			s.Factors = []string{"Temperature Control"}
		default:
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Party < out[j].Party })
	return out
}

// Exposure summarizes damaging readings in the history.
type Exposure struct {
	Readings         int     `json:"readings"`
	HighTempReadings int     `json:"high_temp_readings"`
	HighVibReadings  int     `json:"high_vibration_readings"`
	HighTempPercent  float64 `json:"high_temp_percent"`
	HighVibPercent   float64 `json:"high_vibration_percent"`
	MaxTemperature   float64 `json:"max_temperature"`
	MaxVibration     float64 `json:"max_vibration"`
}

// ExposureSummary counts damaging readings. ok is false without readings.
func ExposureSummary(samples []model.TelemetrySample) (Exposure, bool) {
	e := Exposure{Readings: len(samples)}
	if len(samples) == 0 {
		return e, false
	}
	e.MaxTemperature, e.MaxVibration = math.Inf(-1), math.Inf(-1)
	for _, s := range samples {
		if s.Temperature > TempDamageThreshold {
			e.HighTempReadings++
		}
		if s.Vibration > VibrationDamageThreshold {
			e.HighVibReadings++
		}
		e.MaxTemperature = math.Max(e.MaxTemperature, s.Temperature)
		e.MaxVibration = math.Max(e.MaxVibration, s.Vibration)
	}
	n := float64(len(samples))
	e.HighTempPercent = float64(e.HighTempReadings) / n * 100
	e.HighVibPercent = float64(e.HighVibReadings) / n * 100
	return e, true
}
