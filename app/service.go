// Package app wires the configuration into a running decision service.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/coldchain/api/decisions"
	"github.com/kilianp07/coldchain/config"
	"github.com/kilianp07/coldchain/core/decisionlog"
	"github.com/kilianp07/coldchain/core/forecast"
	"github.com/kilianp07/coldchain/core/history"
	"github.com/kilianp07/coldchain/core/liability"
	corelogger "github.com/kilianp07/coldchain/core/logger"
	coremetrics "github.com/kilianp07/coldchain/core/metrics"
	"github.com/kilianp07/coldchain/core/metrics/kpi"
	"github.com/kilianp07/coldchain/core/model"
	coremon "github.com/kilianp07/coldchain/core/monitoring"
	"github.com/kilianp07/coldchain/core/pipeline"
	"github.com/kilianp07/coldchain/core/pivot"
	"github.com/kilianp07/coldchain/core/prediction"
	"github.com/kilianp07/coldchain/infra/logger"
	"github.com/kilianp07/coldchain/infra/metrics"
	"github.com/kilianp07/coldchain/infra/monitoring"
	"github.com/kilianp07/coldchain/infra/mqtt"
	"github.com/kilianp07/coldchain/internal/eventbus"
	"github.com/kilianp07/coldchain/simulator"
)

// Service owns the pipeline, the shipment session and every collaborator
// fed by the decision bus.
type Service struct {
	cfg       *config.Config
	pipeline  *pipeline.Pipeline
	session   *history.Session
	bus       *eventbus.TypedBus[pipeline.Bundle]
	sink      coremetrics.DecisionSink
	kpis      *kpi.MemoryStore
	store     decisionlog.Store
	mqtt      *mqtt.Client
	sim       *simulator.Generator
	api       *decisions.Server
	monitor   coremon.Monitor
	log       corelogger.Logger
	predictor bool
	now       func() time.Time

	mu     sync.RWMutex
	latest *pipeline.Bundle
}

// New builds the service. A missing predictor model degrades to physics only.
func New(cfg *config.Config) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	log := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	predictor, err := LoadPredictor(cfg.Predictor.ModelPath, log)
	if err != nil {
		return nil, err
	}

	pl, err := pipeline.New(cfg.Pipeline(), predictor, logger.New("pipeline"))
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	session, err := history.NewSession(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	exported, err := coremetrics.NewDecisionSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	kpis := kpi.NewMemoryStore()
	sink := coremetrics.NewMultiSink(exported, kpis)
	store, err := decisionlog.Open(cfg.DecisionLog)
	if err != nil {
		coremetrics.Close(sink)
		return nil, fmt.Errorf("decision log: %w", err)
	}

	s := &Service{
		cfg:       cfg,
		pipeline:  pl,
		session:   session,
		bus:       eventbus.NewTyped[pipeline.Bundle](eventbus.DefaultBuffer),
		sink:      sink,
		kpis:      kpis,
		store:     store,
		sim:       simulator.New(cfg.Source.Seed).WithBlockedRate(cfg.Source.BlockedRate),
		monitor:   mon,
		log:       log,
		predictor: predictor != nil,
		now:       time.Now,
	}
	if cfg.Source.Mode == config.SourceMQTT || cfg.MQTT.Broker != "" {
		cli, err := mqtt.NewClient(cfg.MQTT, logger.New("mqtt"))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.mqtt = cli
	}
	s.api = decisions.NewServer(s, cfg.API.Token, logger.New("api"))
	return s, nil
}

// LoadPredictor loads the exported model at path. An empty path or a missing
// file yields a nil predictor and the pipeline runs on physics only.
func LoadPredictor(path string, log corelogger.Logger) (prediction.ShelfLifePredictor, error) {
	if path == "" {
		return nil, nil
	}
	m, err := prediction.LoadLinearModel(path)
	switch {
	case errors.Is(err, prediction.ErrPredictorUnavailable):
		corelogger.OrNop(log).Warnf("predictor model not found, running physics only: %v", err)
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("predictor: %w", err)
	}
	return m, nil
}

// Handler returns the HTTP API.
func (s *Service) Handler() *decisions.Server { return s.api }

// Run starts the collaborators, the HTTP API and the telemetry loop, and
// blocks until ctx is canceled or the API fails.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := []<-chan struct{}{
		metrics.StartCollector(ctx, s.bus, s.sink, logger.New("collector")),
		decisionlog.StartRecorder(ctx, s.bus, s.store, logger.New("decisionlog")),
	}
	if s.mqtt != nil {
		done = append(done, mqtt.StartPublisher(ctx, s.bus, s.mqtt, logger.New("publisher")))
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	apiErr := make(chan error, 1)
	go func() {
		s.log.Infof("api listening on %s", s.cfg.API.Address)
		apiErr <- s.api.ListenAndServe(ctx, s.cfg.API.Address)
	}()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		s.consume(ctx, s.samples(ctx))
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-apiErr:
		if err != nil {
			err = fmt.Errorf("api: %w", err)
			s.monitor.CaptureException(err, map[string]string{"component": "api"})
		}
	}
	cancel()
	<-loopDone
	for _, d := range done {
		<-d
	}
	return err
}

func (s *Service) samples(ctx context.Context) <-chan model.TelemetrySample {
	switch s.cfg.Source.Mode {
	case config.SourceMQTT:
		return s.mqtt.Samples()
	case config.SourceSim:
		return s.sim.Stream(ctx, s.cfg.Source.Interval, s.session.ChaosMode)
	default:
		return nil
	}
}

// consume evaluates every sample until ctx is canceled or src closes.
func (s *Service) consume(ctx context.Context, src <-chan model.TelemetrySample) {
	for {
		select {
		case <-ctx.Done():
			return
		case sample, ok := <-src:
			if !ok {
				return
			}
			req := pipeline.Request{Sample: sample}
			if s.cfg.Source.Mode == config.SourceSim {
				req.Facilities = s.sim.Facilities()
			}
			s.evaluateSample(ctx, req)
		}
	}
}

// evaluateSample reports failures and panics of one evaluation so a bad
// reading never stops the loop.
func (s *Service) evaluateSample(ctx context.Context, req pipeline.Request) {
	tags := map[string]string{"component": "source", "source": s.cfg.Source.Mode}
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("evaluate panic: %v", r)
			s.monitor.CapturePanic(r, tags)
		}
	}()
	if _, err := s.Evaluate(ctx, req); err != nil {
		s.log.Errorf("evaluate: %v", err)
		s.monitor.CaptureException(err, tags)
	}
}

// Evaluate runs the pipeline on the service session and publishes the bundle.
// Empty facilities, a zero cargo value and missing parties take the
// configured values.
func (s *Service) Evaluate(_ context.Context, req pipeline.Request) (pipeline.Bundle, error) {
	if len(req.Facilities) == 0 {
		req.Facilities = s.cfg.Facilities
	}
	if req.CargoValue == 0 {
		req.CargoValue = s.cfg.CargoValue
	}
	if len(req.Parties) == 0 {
		req.Parties = s.cfg.Liability.Parties
	}
	b, err := s.pipeline.Evaluate(s.session, req)
	if err != nil {
		return pipeline.Bundle{}, err
	}
	s.mu.Lock()
	s.latest = &b
	s.mu.Unlock()
	s.bus.Publish(b)
	return b, nil
}

// Latest returns the most recent bundle.
func (s *Service) Latest() (pipeline.Bundle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return pipeline.Bundle{}, false
	}
	return *s.latest, true
}

// Decisions queries the audit log.
func (s *Service) Decisions(ctx context.Context, q decisionlog.Query) ([]decisionlog.Record, error) {
	return s.store.Query(ctx, q)
}

// KPIs returns the daily decision aggregates between since and until.
func (s *Service) KPIs(since, until time.Time) ([]kpi.Record, error) {
	return s.kpis.Query(since, until)
}

// Markets lists the salvage catalog.
func (s *Service) Markets() []model.SecondaryMarket { return s.pipeline.Markets() }

// Triage runs the market pivot with explicit values and records it.
func (s *Service) Triage(cargoValue, remainingHours, primaryETAHours float64, travelTimes map[string]float64) (pivot.Result, error) {
	res, err := s.pipeline.Triage(cargoValue, remainingHours, primaryETAHours, travelTimes)
	if err != nil {
		return res, err
	}
	if r, ok := s.sink.(coremetrics.PivotRecorder); ok {
		ev := coremetrics.PivotEvent{
			Status:           res.Status,
			CargoValue:       res.CargoValue,
			RecoverableValue: res.RecoverableValue,
			RemainingHours:   res.RemainingHours,
			Time:             s.now(),
		}
		if res.Destination != nil {
			ev.Market = res.Destination.Market.ID
		}
		if err := r.RecordPivot(ev); err != nil {
			s.log.Warnf("record pivot: %v", err)
		}
	}
	return res, nil
}

// SetChaos switches chaos mode and reports whether it changed.
func (s *Service) SetChaos(on bool) bool {
	changed := s.session.SetChaos(on, s.now().Unix())
	if changed {
		s.log.Warnf("chaos mode set to %t", on)
	}
	return changed
}

// ChaosMode reports whether chaos mode is active.
func (s *Service) ChaosMode() bool { return s.session.ChaosMode() }

// Status summarizes the service and projects the latest estimate.
func (s *Service) Status() decisions.Status {
	st := decisions.Status{
		ChaosMode:          s.session.ChaosMode(),
		Readings:           len(s.session.View().Telemetry),
		Weights:            s.pipeline.Weights(),
		PredictorAvailable: s.predictor,
		Source:             s.cfg.Source.Mode,
		DroppedEvents:      s.bus.Dropped(),
	}
	if b, ok := s.Latest(); ok {
		ts := b.Timestamp
		st.LastDecision = &ts
		st.Curve = forecast.Curve(b.Estimate.BlendedDays, b.Estimate.DecayRatePerDay, s.cfg.Forecast.CurveHours, s.cfg.Forecast.CurvePoints)
	}
	return st
}

// TrustStatistics summarizes the session telemetry.
func (s *Service) TrustStatistics() decisions.TrustStats {
	stats, trend, ok := s.pipeline.TrustStatistics(s.session)
	return decisions.TrustStats{Available: ok, Statistics: stats, Trend: trend}
}

// LiabilityReport attributes damage over the session history.
func (s *Service) LiabilityReport(delayHours float64) liability.Report {
	return s.pipeline.LiabilityReport(s.session, delayHours, s.cfg.Liability.Parties)
}

// Close releases the bus, the audit log, the broker connection and the sinks.
func (s *Service) Close() error {
	s.bus.Close()
	var err error
	if s.store != nil {
		err = s.store.Close()
	}
	if s.mqtt != nil {
		s.mqtt.Close()
	}
	coremetrics.Close(s.sink)
	s.monitor.Flush(2 * time.Second)
	return err
}
