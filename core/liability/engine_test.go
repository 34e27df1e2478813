package liability

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/kilianp07/coldchain/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDamageFunctions(t *testing.T) {
	assert.Equal(t, 0.0, TemperatureDamage(8))
	assert.InDelta(t, 4, TemperatureDamage(10), 1e-9)
	assert.InDelta(t, 5*5+14, TemperatureDamage(20), 1e-9)

	assert.Equal(t, 0.0, VibrationDamage(0.5))
	assert.InDelta(t, 6, VibrationDamage(0.7), 1e-9)
	assert.InDelta(t, 10+15, VibrationDamage(1.0), 1e-9)

	assert.Equal(t, 0.0, DelayDamage(0))
	assert.InDelta(t, 6, DelayDamage(3), 1e-9)
	assert.InDelta(t, 12+6, DelayDamage(6), 1e-9)
}

func TestAttribute(t *testing.T) {
	h := []model.TelemetrySample{
		{Temperature: 10, Vibration: 0.1},
		{Temperature: 4, Vibration: 0.7},
	}
	a := Attribute(h, 1)
	// raw: temperature 4, vibration 6, delay 2
	assert.InDelta(t, 100.0*4/12, a.Temperature.Percent, 1e-9)
	assert.InDelta(t, 50, a.Vibration.Percent, 1e-9)
	assert.InDelta(t, 100.0*2/12, a.Delay.Percent, 1e-9)
	assert.InDelta(t, 12, a.TotalDamagePercent, 1e-9)
	assert.Equal(t, 1, a.Temperature.Exposure)
	assert.Equal(t, 1, a.Vibration.Exposure)
}

func TestAttribute_NoDamage(t *testing.T) {
	a := Attribute([]model.TelemetrySample{{Temperature: 4}}, 0)
	assert.Zero(t, a.Temperature.Percent)
	assert.Zero(t, a.Vibration.Percent)
	assert.Zero(t, a.Delay.Percent)
	assert.Zero(t, a.TotalDamagePercent)
}

func TestAttribute_TotalCapped(t *testing.T) {
	h := make([]model.TelemetrySample, 10)
	for i := range h {
		h[i] = model.TelemetrySample{Temperature: 40}
	}
	a := Attribute(h, 0)
	assert.Equal(t, 100.0, a.TotalDamagePercent)
	assert.InDelta(t, 100, a.Temperature.Percent, 1e-9)
}

func TestAttribute_ExtremeReadingsStayFinite(t *testing.T) {
	h := []model.TelemetrySample{
		{Temperature: 1e308, Vibration: 1e308},
		{Temperature: math.Inf(1)},
	}
	a := Attribute(h, math.MaxFloat64)
	for _, f := range []Factor{a.Temperature, a.Vibration, a.Delay} {
		assert.False(t, math.IsNaN(f.Percent) || math.IsInf(f.Percent, 0), "percent %v", f.Percent)
		assert.False(t, math.IsInf(f.RawDamage, 0))
	}
	assert.InDelta(t, 100, a.Temperature.Percent+a.Vibration.Percent+a.Delay.Percent, 1e-6)
	assert.Equal(t, 100.0, a.TotalDamagePercent)

	r := NewReport(a, map[string]string{"FastFreight": RoleCarrier, "FarmCo": RoleShipper, "CoolBox": RoleRefrigeration})
	require.Len(t, r.Parties, 3)
	for _, p := range r.Parties {
		assert.False(t, math.IsNaN(p.Percent))
		assert.LessOrEqual(t, p.Percent, 100.0001)
	}
	_, err := json.Marshal(r)
	require.NoError(t, err)
}

func TestNewReport(t *testing.T) {
	a := Attribute([]model.TelemetrySample{{Temperature: 20}}, 0)
	r := NewReport(a, map[string]string{
		"FreshFarms": RoleShipper,
		"CoolTrucks": RoleCarrier,
		"IceBox":     RoleRefrigeration,
		"Bystander":  "AUDITOR",
	})
	assert.Equal(t, CauseTemperature, r.PrimaryCause)
	require.Len(t, r.Recommendations, 1)
	assert.Equal(t, model.SeverityHigh, r.Recommendations[0].Priority)

	require.Len(t, r.Parties, 3)
	assert.Equal(t, "CoolTrucks", r.Parties[0].Party)
	assert.Equal(t, 0.0, r.Parties[0].Percent)
	assert.Equal(t, "FreshFarms", r.Parties[1].Party)
	assert.InDelta(t, 50, r.Parties[1].Percent, 1e-9)
	assert.Equal(t, "IceBox", r.Parties[2].Party)
	assert.InDelta(t, 100, r.Parties[2].Percent, 1e-9)
}

func TestNewReport_DelayAndVibration(t *testing.T) {
	// vibration 25, delay 13
	a := Attribute([]model.TelemetrySample{{Temperature: 4, Vibration: 1.0}}, 5)
	r := NewReport(a, nil)
	assert.Equal(t, CauseVibration, r.PrimaryCause)
	require.Len(t, r.Recommendations, 2)
	assert.Equal(t, CauseVibration, r.Recommendations[0].Cause)
	assert.Equal(t, model.SeverityHigh, r.Recommendations[0].Priority)
	assert.Equal(t, CauseDelay, r.Recommendations[1].Cause)
	assert.Empty(t, r.Parties)
}

func TestNewReport_TieGoesToTemperature(t *testing.T) {
	r := NewReport(Attribution{}, nil)
	assert.Equal(t, CauseTemperature, r.PrimaryCause)
}

func TestExposureSummary(t *testing.T) {
	_, ok := ExposureSummary(nil)
	assert.False(t, ok)
	e, ok := ExposureSummary([]model.TelemetrySample{
		{Temperature: 9, Vibration: 0.1},
		{Temperature: 3, Vibration: 0.9},
		{Temperature: 2, Vibration: 0.2},
		{Temperature: 12, Vibration: 0.6},
	})
	require.True(t, ok)
	assert.Equal(t, 2, e.HighTempReadings)
	assert.Equal(t, 2, e.HighVibReadings)
	assert.Equal(t, 50.0, e.HighTempPercent)
	assert.Equal(t, 12.0, e.MaxTemperature)
	assert.Equal(t, 0.9, e.MaxVibration)
}
