package trust

import (
	"testing"

	"github.com/kilianp07/coldchain/core/history"
	"github.com/kilianp07/coldchain/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(DefaultConfig())
	require.NoError(t, err)
	return e
}

func samples(temps ...float64) []model.TelemetrySample {
	out := make([]model.TelemetrySample, len(temps))
	for i, v := range temps {
		out[i] = model.TelemetrySample{Temperature: v, Humidity: 50, Vibration: 0.1}
	}
	return out
}

func TestScore_Perfect(t *testing.T) {
	s := model.TelemetrySample{Temperature: 3.5, Humidity: 50, Vibration: 0.1}
	sc := newEngine(t).Score(s, history.View{Telemetry: samples(3.5)})
	assert.Equal(t, 100.0, sc.Value)
	assert.Equal(t, "A", sc.Grade)
	assert.Empty(t, sc.Penalties)
	assert.True(t, sc.IsHealthy)
	assert.False(t, sc.RequiresAttention)
}

func TestScore_HighTemperature(t *testing.T) {
	s := model.TelemetrySample{Temperature: 15, Humidity: 55, Vibration: 0.2}
	sc := newEngine(t).Score(s, history.View{})
	require.Len(t, sc.Penalties, 1)
	assert.Equal(t, PenaltyTemperature, sc.Penalties[0].Type)
	assert.Equal(t, 30.0, sc.Penalties[0].Applied)
	assert.Equal(t, 70.0, sc.Value)
	assert.Equal(t, "C", sc.Grade)
	assert.True(t, sc.IsHealthy)
}

func TestScore_ColdIsPenalizedLess(t *testing.T) {
	e := newEngine(t)
	cold := e.Score(model.TelemetrySample{Temperature: 0, Humidity: 50}, history.View{})
	hot := e.Score(model.TelemetrySample{Temperature: 6, Humidity: 50}, history.View{})
	assert.Equal(t, 90.0, cold.Value)
	assert.Equal(t, 80.0, hot.Value)
}

func TestScore_VibrationHumidityChaos(t *testing.T) {
	s := model.TelemetrySample{Temperature: 3, Humidity: 80, Vibration: 0.5}
	view := history.View{Chaos: []model.ChaosEvent{{Type: "x"}, {Type: "y"}, {Type: "z"}}, ChaosMode: true}
	sc := newEngine(t).Score(s, view)
	byType := map[string]Penalty{}
	for _, p := range sc.Penalties {
		byType[p.Type] = p
	}
	assert.InDelta(t, 30, byType[PenaltyVibration].Applied, 1e-9)
	assert.InDelta(t, 4, byType[PenaltyHumidity].Applied, 1e-9)
	assert.InDelta(t, 60, byType[PenaltyChaos].Raw, 1e-9)
	assert.InDelta(t, 40, byType[PenaltyChaos].Applied, 1e-9)
	assert.InDelta(t, 26, sc.Value, 1e-9)
	assert.Equal(t, "F", sc.Grade)
	assert.True(t, sc.RequiresAttention)
}

func TestScore_ChaosEndsWithChaosMode(t *testing.T) {
	session, err := history.NewSession(history.Config{})
	require.NoError(t, err)
	s := model.TelemetrySample{Temperature: 3, Humidity: 50, Vibration: 0.1}
	e := newEngine(t)

	require.True(t, session.SetChaos(true, 1))
	on := e.Score(s, session.View())
	require.Len(t, on.Penalties, 1)
	assert.Equal(t, PenaltyChaos, on.Penalties[0].Type)
	assert.Equal(t, 80.0, on.Value)

	require.True(t, session.SetChaos(false, 2))
	off := e.Score(s, session.View())
	assert.Empty(t, off.Penalties)
	assert.Equal(t, 100.0, off.Value)
	assert.Equal(t, "A", off.Grade)

	st, _ := e.Statistics(session.View())
	assert.Equal(t, 1, st.ChaosEvents)
}

func TestScore_Variance(t *testing.T) {
	// population variance of {0, 4, 0, 4} is 4
	view := history.View{Telemetry: samples(0, 4, 0, 4)}
	sc := newEngine(t).Score(model.TelemetrySample{Temperature: 3, Humidity: 50}, view)
	require.Len(t, sc.Penalties, 1)
	assert.Equal(t, PenaltyTempVariance, sc.Penalties[0].Type)
	assert.InDelta(t, 10, sc.Penalties[0].Applied, 1e-9)
}

func TestScore_VarianceNeedsTwoReadings(t *testing.T) {
	sc := newEngine(t).Score(model.TelemetrySample{Temperature: 3, Humidity: 50}, history.View{Telemetry: samples(40)})
	assert.Empty(t, sc.Penalties)
}

func TestScore_BudgetLimitsTotal(t *testing.T) {
	s := model.TelemetrySample{Temperature: 40, Humidity: 100, Vibration: 2}
	view := history.View{
		Telemetry: samples(-10, 30, -10, 30),
		Chaos:     []model.ChaosEvent{{}, {}},
		ChaosMode: true,
	}
	sc := newEngine(t).Score(s, view)
	assert.Equal(t, 0.0, sc.Value)
	assert.LessOrEqual(t, sc.TotalPenalty, 100.0)
	last := sc.Penalties[len(sc.Penalties)-1]
	assert.Less(t, last.Applied, last.Raw)
}

func TestStatistics(t *testing.T) {
	e := newEngine(t)
	_, ok := e.Statistics(history.View{})
	assert.False(t, ok)

	view := history.View{Telemetry: []model.TelemetrySample{
		{Temperature: 2, Humidity: 40, Vibration: 0.6},
		{Temperature: 4, Humidity: 60, Vibration: 0.2},
	}}
	st, ok := e.Statistics(view)
	require.True(t, ok)
	assert.Equal(t, 2, st.Readings)
	assert.InDelta(t, 3, st.Temperature.Mean, 1e-9)
	assert.InDelta(t, 1, st.Temperature.Variance, 1e-9)
	assert.InDelta(t, 1, st.Temperature.Std, 1e-9)
	assert.Equal(t, 1, st.Vibration.Exposure)
	assert.Equal(t, 40.0, st.Humidity.Min)
	assert.Equal(t, 60.0, st.Humidity.Max)
}

func TestTrend(t *testing.T) {
	e := newEngine(t)
	assert.Equal(t, TrendInsufficient, e.Trend(history.View{Telemetry: samples(1, 2, 3)}))

	var warming []float64
	for i := 0; i < 10; i++ {
		warming = append(warming, 3)
	}
	for i := 0; i < 10; i++ {
		warming = append(warming, 6)
	}
	assert.Equal(t, TrendDegrading, e.Trend(history.View{Telemetry: samples(warming...)}))

	cooling := make([]float64, 0, 20)
	for i := 0; i < 10; i++ {
		cooling = append(cooling, 8)
	}
	for i := 0; i < 10; i++ {
		cooling = append(cooling, 3)
	}
	assert.Equal(t, TrendImproving, e.Trend(history.View{Telemetry: samples(cooling...)}))
	assert.Equal(t, TrendStable, e.Trend(history.View{Telemetry: samples(warming[:10]...)}))
}

func TestGrade(t *testing.T) {
	assert.Equal(t, "A", Grade(90))
	assert.Equal(t, "B", Grade(80))
	assert.Equal(t, "C", Grade(70))
	assert.Equal(t, "D", Grade(50))
	assert.Equal(t, "F", Grade(49.9))
}
