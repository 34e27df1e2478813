package metrics

import (
	"errors"
	"strconv"

	coremetrics "github.com/kilianp07/coldchain/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "coldchain"

// PromSink exposes decisions and telemetry as Prometheus metrics.
type PromSink struct {
	decisions   *prometheus.CounterVec
	shelfLife   prometheus.Gauge
	trust       prometheus.Gauge
	margin      prometheus.Histogram
	preserved   prometheus.Counter
	recoverable prometheus.Counter
	degraded    *prometheus.CounterVec
	telemetry   *prometheus.GaugeVec
	pivots      *prometheus.CounterVec
}

// NewPromSink registers the collectors on the default registerer.
func NewPromSink(namespace string) (*PromSink, error) {
	return NewPromSinkWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers the collectors on reg. Collectors that are
// already registered, for instance by an earlier sink, are reused.
func NewPromSinkWithRegistry(namespace string, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	s := &PromSink{}
	var err error
	if s.decisions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "decisions_total",
		Help: "Evaluations by decision kind",
	}, []string{"kind", "predictor"})); err != nil {
		return nil, err
	}
	if s.shelfLife, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "shelf_life_days",
		Help: "Blended remaining shelf life of the last evaluation",
	})); err != nil {
		return nil, err
	}
	if s.trust, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "trust_score",
		Help: "Cargo trust score of the last evaluation",
	})); err != nil {
		return nil, err
	}
	if s.margin, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "survival_margin_hours",
		Help:    "Survival margin of the selected route",
		Buckets: []float64{0, 2, 6, 12, 24, 48, 96, 168, 336},
	})); err != nil {
		return nil, err
	}
	if s.preserved, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "value_preserved_total",
		Help: "Cumulative cargo value preserved by proceed decisions",
	})); err != nil {
		return nil, err
	}
	if s.recoverable, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "value_recovered_total",
		Help: "Cumulative cargo value recovered through secondary markets",
	})); err != nil {
		return nil, err
	}
	if s.degraded, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "degraded_inputs_total",
		Help: "Evaluations that ran on degraded inputs",
	}, []string{"reason"})); err != nil {
		return nil, err
	}
	if s.telemetry, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Name: "telemetry",
		Help: "Last sensor reading",
	}, []string{"sensor"})); err != nil {
		return nil, err
	}
	if s.pivots, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "pivot_requests_total",
		Help: "Standalone triage requests by status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordDecision updates the decision metrics.
func (s *PromSink) RecordDecision(ev coremetrics.DecisionEvent) error {
	s.decisions.WithLabelValues(string(ev.Kind), strconv.FormatBool(ev.PredictorAvailable)).Inc()
	s.shelfLife.Set(ev.BlendedDays)
	s.trust.Set(ev.TrustScore)
	if ev.ViableFacilities > 0 {
		s.margin.Observe(ev.MarginHours)
	}
	if ev.PreservedValue > 0 && ev.RecoverableValue == 0 {
		s.preserved.Add(ev.PreservedValue)
	}
	if ev.RecoverableValue > 0 {
		s.recoverable.Add(ev.RecoverableValue)
	}
	if !ev.PredictorAvailable {
		s.degraded.WithLabelValues("predictor_unavailable").Inc()
	}
	if ev.Clamped {
		s.degraded.WithLabelValues("telemetry_clamped").Inc()
	}
	return nil
}

// RecordTelemetry sets the sensor gauges.
func (s *PromSink) RecordTelemetry(ev coremetrics.TelemetryEvent) error {
	s.telemetry.WithLabelValues("temperature_c").Set(ev.Sample.Temperature)
	s.telemetry.WithLabelValues("humidity_percent").Set(ev.Sample.Humidity)
	s.telemetry.WithLabelValues("vibration_g").Set(ev.Sample.Vibration)
	return nil
}

// RecordPivot counts triage requests.
func (s *PromSink) RecordPivot(ev coremetrics.PivotEvent) error {
	s.pivots.WithLabelValues(ev.Status).Inc()
	return nil
}
