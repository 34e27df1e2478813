package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize_ClampsWithoutRejecting(t *testing.T) {
	in := TelemetrySample{Temperature: math.NaN(), Humidity: -12, Vibration: -0.4, Timestamp: 42}
	out, changed := in.Sanitize()
	assert.True(t, changed)
	assert.Equal(t, NeutralTemperature, out.Temperature)
	assert.Equal(t, 0.0, out.Humidity)
	assert.Equal(t, 0.0, out.Vibration)
	assert.Equal(t, int64(42), out.Timestamp)

	ok := TelemetrySample{Temperature: 35, Humidity: 80, Vibration: 1.2}
	same, changed := ok.Sanitize()
	assert.False(t, changed)
	assert.Equal(t, ok, same)
}

func TestSanitize_HumidityAboveRange(t *testing.T) {
	out, changed := TelemetrySample{Humidity: 140}.Sanitize()
	assert.True(t, changed)
	assert.Equal(t, 100.0, out.Humidity)
}

func TestSanitize_TemperatureBand(t *testing.T) {
	hot, changed := TelemetrySample{Temperature: 1e5, Humidity: 50}.Sanitize()
	assert.True(t, changed)
	assert.Equal(t, MaxTemperature, hot.Temperature)

	cold, changed := TelemetrySample{Temperature: -1e300, Humidity: 50}.Sanitize()
	assert.True(t, changed)
	assert.Equal(t, MinTemperature, cold.Temperature)

	edge, changed := TelemetrySample{Temperature: MaxTemperature, Humidity: 50}.Sanitize()
	assert.False(t, changed)
	assert.Equal(t, MaxTemperature, edge.Temperature)
}

func TestRoadCondition_JSON(t *testing.T) {
	f := Facility{Name: "Center_A", DistanceKm: 45, CapacityPercent: 75, Road: RoadBlocked}
	b, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"road_condition":"Blocked"`)

	var back Facility
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, f, back)

	var coded Facility
	require.NoError(t, json.Unmarshal([]byte(`{"name":"x","road_condition":2}`), &coded))
	assert.Equal(t, RoadPoor, coded.Road)

	var bad Facility
	assert.Error(t, json.Unmarshal([]byte(`{"road_condition":"flooded"}`), &bad))
}

func TestRoadCondition_Code(t *testing.T) {
	assert.Equal(t, 0, RoadGood.Code())
	assert.Equal(t, 1, RoadModerate.Code())
	assert.Equal(t, 2, RoadPoor.Code())
	assert.Equal(t, 3, RoadBlocked.Code())
	assert.Equal(t, 0, RoadCondition(9).Code())
}

func TestPriority_Order(t *testing.T) {
	assert.Greater(t, PriorityCritical, PriorityWarning)
	assert.Greater(t, PriorityWarning, PriorityInfo)
	assert.Equal(t, PriorityWarning, ParsePriority("warning"))
	assert.Equal(t, PriorityInfo, ParsePriority("bogus"))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(math.NaN(), 0, 1))
	assert.Equal(t, 1.0, Clamp(3, 0, 1))
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
}
