package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	coremetrics "github.com/kilianp07/coldchain/core/metrics"
	"github.com/kilianp07/coldchain/core/model"
	"github.com/kilianp07/coldchain/core/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineRecorder) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		l.mu.Lock()
		l.lines = append(l.lines, strings.TrimSpace(string(b)))
		l.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (l *lineRecorder) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

func lineProtocol(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordDecision(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "b", Shipment: "TRK-1"})
	defer sink.Close()

	now := time.Unix(1700000000, 0)
	ev := coremetrics.DecisionEvent{
		ID: "d1", Kind: pipeline.KindProceed, Target: "Original",
		BlendedDays: 8.12345, PhysicsDays: 14, ModelDays: 4, DecayRatePerDay: 1,
		MarginHours: 194.5, ViableFacilities: 3, TrustScore: 100,
		CargoValue: 1000, PreservedValue: 580, PredictorAvailable: true, Time: now,
	}
	require.NoError(t, sink.RecordDecision(ev))

	want := write.NewPointWithMeasurement("decision").
		AddTag("shipment", "TRK-1").
		SetTime(now).
		AddTag("kind", "PROCEED").
		AddTag("predictor", "true").
		AddField("id", "d1").
		AddField("target", "Original").
		AddField("blended_days", 8.123).
		AddField("physics_days", 14.0).
		AddField("model_days", 4.0).
		AddField("decay_rate", 1.0).
		AddField("margin_hours", 194.5).
		AddField("viable", 3).
		AddField("trust_score", 100.0).
		AddField("cargo_value", 1000.0).
		AddField("preserved_value", 580.0).
		AddField("recoverable_value", 0.0).
		AddField("clamped", false)
	lines := rec.all()
	require.Len(t, lines, 1)
	assert.Equal(t, lineProtocol(want), lines[0])
}

func TestInfluxSink_RecordTelemetry(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Org: "org", Bucket: "b"})
	defer sink.Close()

	now := time.Unix(1700000100, 0)
	require.NoError(t, sink.RecordTelemetry(coremetrics.TelemetryEvent{
		Sample:    model.TelemetrySample{Temperature: 35.25, Humidity: 80, Vibration: 1.1},
		ChaosMode: true,
		Time:      now,
	}))
	want := write.NewPointWithMeasurement("telemetry").
		SetTime(now).
		AddTag("chaos", "true").
		AddField("temperature", 35.25).
		AddField("humidity", 80.0).
		AddField("vibration", 1.1)
	assert.Equal(t, []string{lineProtocol(want)}, rec.all())
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL, Org: "org", Bucket: "b"})
	assert.IsType(t, coremetrics.NopSink{}, sink)
	assert.True(t, called)
}
