package metrics

import (
	"errors"
	"time"

	"github.com/kilianp07/coldchain/core/model"
	"github.com/kilianp07/coldchain/core/pipeline"
)

// DecisionEvent is the observable summary of one evaluation.
type DecisionEvent struct {
	ID                 string
	Kind               pipeline.Kind
	Target             string
	BlendedDays        float64
	PhysicsDays        float64
	ModelDays          float64
	DecayRatePerDay    float64
	MarginHours        float64
	ViableFacilities   int
	TrustScore         float64
	CargoValue         float64
	PreservedValue     float64
	RecoverableValue   float64
	PredictorAvailable bool
	Clamped            bool
	Time               time.Time
}

// EventFromBundle flattens an evaluation result.
func EventFromBundle(b pipeline.Bundle) DecisionEvent {
	ev := DecisionEvent{
		ID:                 b.ID,
		Kind:               b.Decision.Kind(),
		Target:             b.Decision.Target(),
		BlendedDays:        b.Estimate.BlendedDays,
		PhysicsDays:        b.Estimate.PhysicsDays,
		ModelDays:          b.Estimate.ModelDays,
		DecayRatePerDay:    b.Estimate.DecayRatePerDay,
		ViableFacilities:   b.Route.Viable,
		TrustScore:         b.Trust.Value,
		CargoValue:         b.Value.CargoValue,
		PreservedValue:     b.Value.ProfitSaved,
		PredictorAvailable: b.Estimate.PredictorAvailable,
		Clamped:            b.Clamped,
		Time:               b.Timestamp,
	}
	if best, ok := b.Route.BestViable(); ok {
		ev.MarginHours = best.MarginHours
	}
	if b.Pivot != nil {
		ev.RecoverableValue = b.Pivot.RecoverableValue
	}
	return ev
}

// DecisionSink records evaluation outcomes.
type DecisionSink interface {
	RecordDecision(ev DecisionEvent) error
}

// TelemetryEvent is one sensor reading with the session state at that time.
type TelemetryEvent struct {
	Sample    model.TelemetrySample
	ChaosMode bool
	Time      time.Time
}

// TelemetryRecorder is implemented by sinks that also store raw readings.
type TelemetryRecorder interface {
	RecordTelemetry(ev TelemetryEvent) error
}

// PivotEvent records a standalone triage request.
type PivotEvent struct {
	Status           string
	Market           string
	CargoValue       float64
	RecoverableValue float64
	RemainingHours   float64
	Time             time.Time
}

// PivotRecorder is implemented by sinks that track triage requests.
type PivotRecorder interface {
	RecordPivot(ev PivotEvent) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordDecision(DecisionEvent) error   { return nil }
func (NopSink) RecordTelemetry(TelemetryEvent) error { return nil }
func (NopSink) RecordPivot(PivotEvent) error         { return nil }

// MultiSink fans events out to several sinks. Every sink is called even when
// an earlier one fails; the errors are joined.
type MultiSink struct {
	Sinks []DecisionSink
}

// NewMultiSink combines sinks.
func NewMultiSink(sinks ...DecisionSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordDecision(ev DecisionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordDecision(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordTelemetry forwards to the sinks implementing TelemetryRecorder.
func (m *MultiSink) RecordTelemetry(ev TelemetryEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(TelemetryRecorder); ok {
			if err := r.RecordTelemetry(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordPivot forwards to the sinks implementing PivotRecorder.
func (m *MultiSink) RecordPivot(ev PivotEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(PivotRecorder); ok {
			if err := r.RecordPivot(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Closer is implemented by sinks holding connections.
type Closer interface {
	Close()
}

// Close releases sink when it holds a connection.
func Close(sink DecisionSink) {
	if c, ok := sink.(Closer); ok {
		c.Close()
	}
}

// Close releases every wrapped sink.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		Close(s)
	}
}
