package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/coldchain/core/metrics"
	"github.com/kilianp07/coldchain/infra/logger"
)

// InfluxConfig addresses an InfluxDB v2 bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	// Shipment tags every point, useful when several trucks share a bucket.
	Shipment string `json:"shipment"`
}

// InfluxSink writes decisions and telemetry as InfluxDB points.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	shipment string
	log      logger.Logger
}

// NewInfluxSink creates a sink for cfg. The URL may include the write path.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		shipment: cfg.Shipment,
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback checks the server health and returns a NopSink
// when it is not reachable, so a missing database never stops the service.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.DecisionSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func (s *InfluxSink) point(measurement string, t time.Time) *write.Point {
	p := write.NewPointWithMeasurement(measurement)
	if s.shipment != "" {
		p = p.AddTag("shipment", s.shipment)
	}
	return p.SetTime(t)
}

// RecordDecision writes a "decision" point.
func (s *InfluxSink) RecordDecision(ev coremetrics.DecisionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := s.point("decision", ev.Time).
		AddTag("kind", string(ev.Kind)).
		AddTag("predictor", strconv.FormatBool(ev.PredictorAvailable)).
		AddField("id", ev.ID).
		AddField("target", ev.Target).
		AddField("blended_days", round3(ev.BlendedDays)).
		AddField("physics_days", round3(ev.PhysicsDays)).
		AddField("model_days", round3(ev.ModelDays)).
		AddField("decay_rate", round3(ev.DecayRatePerDay)).
		AddField("margin_hours", round3(ev.MarginHours)).
		AddField("viable", ev.ViableFacilities).
		AddField("trust_score", round3(ev.TrustScore)).
		AddField("cargo_value", round3(ev.CargoValue)).
		AddField("preserved_value", round3(ev.PreservedValue)).
		AddField("recoverable_value", round3(ev.RecoverableValue)).
		AddField("clamped", ev.Clamped)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTelemetry writes a "telemetry" point.
func (s *InfluxSink) RecordTelemetry(ev coremetrics.TelemetryEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := s.point("telemetry", ev.Time).
		AddTag("chaos", strconv.FormatBool(ev.ChaosMode)).
		AddField("temperature", round3(ev.Sample.Temperature)).
		AddField("humidity", round3(ev.Sample.Humidity)).
		AddField("vibration", round3(ev.Sample.Vibration))
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPivot writes a "pivot" point.
func (s *InfluxSink) RecordPivot(ev coremetrics.PivotEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := s.point("pivot", ev.Time).
		AddTag("status", ev.Status).
		AddField("market", ev.Market).
		AddField("cargo_value", round3(ev.CargoValue)).
		AddField("recoverable_value", round3(ev.RecoverableValue)).
		AddField("remaining_hours", round3(ev.RemainingHours))
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
