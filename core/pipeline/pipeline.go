// Package pipeline chains the decision engines into one evaluation: shelf
// life, trend, routing, rescue, trust, liability, advice, value and the
// explanation of the result.
package pipeline

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/kilianp07/coldchain/core/advisor"
	"github.com/kilianp07/coldchain/core/explain"
	"github.com/kilianp07/coldchain/core/forecast"
	"github.com/kilianp07/coldchain/core/history"
	"github.com/kilianp07/coldchain/core/liability"
	"github.com/kilianp07/coldchain/core/logger"
	"github.com/kilianp07/coldchain/core/model"
	"github.com/kilianp07/coldchain/core/pivot"
	"github.com/kilianp07/coldchain/core/prediction"
	"github.com/kilianp07/coldchain/core/routing"
	"github.com/kilianp07/coldchain/core/shelflife"
	"github.com/kilianp07/coldchain/core/trust"
	"github.com/kilianp07/coldchain/core/valuation"
)

// PivotConfig configures the secondary market search.
type PivotConfig struct {
	Markets []model.SecondaryMarket `json:"markets"`
	// Disabled turns route failures into plain dumps.
	Disabled bool `json:"disabled"`
}

// SetDefaults installs the default catalog.
func (c *PivotConfig) SetDefaults() {
	if len(c.Markets) == 0 {
		c.Markets = pivot.DefaultMarkets()
	}
}

// AdvisorConfig holds operator rules.
type AdvisorConfig struct {
	Rules []advisor.Rule `json:"rules"`
}

// Config groups the engine settings.
type Config struct {
	ShelfLife shelflife.Config `json:"shelf_life"`
	Routing   routing.Config   `json:"routing"`
	Pivot     PivotConfig      `json:"pivot"`
	Trust     trust.Config     `json:"trust"`
	Advisor   AdvisorConfig    `json:"advisor"`
	Valuation valuation.Config `json:"valuation"`
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.ShelfLife.SetDefaults()
	c.Routing.SetDefaults()
	c.Pivot.SetDefaults()
	c.Trust.SetDefaults()
	c.Valuation.SetDefaults()
}

// Request is one evaluation input.
type Request struct {
	Sample     model.TelemetrySample   `json:"sample"`
	Facilities []model.Facility        `json:"facilities"`
	Markets    []model.SecondaryMarket `json:"markets,omitempty"`
	CargoValue float64                 `json:"cargo_value"`
	// TransitDelayHours defaults to the travel time of the selected route.
	TransitDelayHours *float64            `json:"transit_delay_hours,omitempty"`
	RoadCondition     model.RoadCondition `json:"road_condition"`
	Parties           map[string]string   `json:"parties,omitempty"`
}

// Bundle is the complete result of an evaluation.
type Bundle struct {
	ID                    string                   `json:"id"`
	Timestamp             time.Time                `json:"timestamp"`
	Sample                model.TelemetrySample    `json:"sample"`
	Clamped               bool                     `json:"clamped"`
	ChaosMode             bool                     `json:"chaos_mode"`
	Estimate              shelflife.Estimate       `json:"estimate"`
	Trend                 forecast.Projection      `json:"trend"`
	TrendWarnings         []forecast.Warning       `json:"trend_warnings"`
	TrendDiagnostics      forecast.Diagnostics     `json:"trend_diagnostics"`
	Route                 routing.Result           `json:"route"`
	Decision              Decision                 `json:"decision"`
	Pivot                 *pivot.Result            `json:"pivot,omitempty"`
	Trust                 trust.Score              `json:"trust"`
	Liability             liability.Attribution    `json:"liability"`
	LiabilityReport       liability.Report         `json:"liability_report"`
	Recommendations       []advisor.Recommendation `json:"recommendations"`
	RecommendationSummary advisor.Summary          `json:"recommendation_summary"`
	Value                 valuation.Value          `json:"value"`
	Explanation           explain.Report           `json:"explanation"`
}

// Pipeline owns the engines. It is safe for concurrent use; per-shipment
// state lives in the history.Session passed to Evaluate.
type Pipeline struct {
	cfg       Config
	estimator *shelflife.Estimator
	router    *routing.Optimizer
	pivot     *pivot.Engine
	trust     *trust.Engine
	advisor   *advisor.Advisor
	value     *valuation.Engine
	log       logger.Logger

	now   func() time.Time
	newID func() string
}

// New builds every engine. Invalid settings surface as model.ErrConfiguration.
// predictor may be nil.
func New(cfg Config, predictor prediction.ShelfLifePredictor, log logger.Logger) (*Pipeline, error) {
	cfg.SetDefaults()
	log = logger.OrNop(log)
	est, err := shelflife.New(cfg.ShelfLife, predictor, log)
	if err != nil {
		return nil, fmt.Errorf("shelf life: %w", err)
	}
	router, err := routing.New(cfg.Routing)
	if err != nil {
		return nil, fmt.Errorf("routing: %w", err)
	}
	pv, err := pivot.New(cfg.Pivot.Markets)
	if err != nil {
		return nil, fmt.Errorf("pivot: %w", err)
	}
	tr, err := trust.New(cfg.Trust)
	if err != nil {
		return nil, fmt.Errorf("trust: %w", err)
	}
	adv, err := advisor.New(cfg.Advisor.Rules, log)
	if err != nil {
		return nil, fmt.Errorf("advisor: %w", err)
	}
	val, err := valuation.New(cfg.Valuation)
	if err != nil {
		return nil, fmt.Errorf("valuation: %w", err)
	}
	return &Pipeline{
		cfg:       cfg,
		estimator: est,
		router:    router,
		pivot:     pv,
		trust:     tr,
		advisor:   adv,
		value:     val,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

// ErrNilSession is returned when Evaluate is called without a session.
var ErrNilSession = errors.New("pipeline: nil session")

// Evaluate runs every engine for one telemetry sample. Terminal states such as
// DUMP or EMERGENCY_DUMP are results, not errors.
func (p *Pipeline) Evaluate(s *history.Session, req Request) (Bundle, error) {
	if s == nil {
		return Bundle{}, ErrNilSession
	}
	pv := p.pivot
	if len(req.Markets) > 0 {
		var err error
		if pv, err = pivot.New(req.Markets); err != nil {
			return Bundle{}, fmt.Errorf("request markets: %w", err)
		}
	}
	cargo := model.Clamp(req.CargoValue, 0, math.MaxFloat64)

	sample, clamped := req.Sample.Sanitize()
	if clamped {
		p.log.Warnf("telemetry clamped: %+v -> %+v", req.Sample, sample)
	}
	view := s.Observe(sample)

	est := p.estimator.Estimate(sample, req.RoadCondition)
	proj := forecast.Project(est.BlendedDays, est.DecayRatePerDay)
	trendLog := s.RecordTrend(history.TrendPoint{Days: est.BlendedDays, Rate: est.DecayRatePerDay, Timestamp: sample.Timestamp})

	route := p.router.Optimize(req.Facilities, est.BlendedDays)
	decision, rescue := p.decide(pv, route, cargo, est.BlendedDays*24)

	delay := 0.0
	switch {
	case req.TransitDelayHours != nil:
		delay = math.Max(0, *req.TransitDelayHours)
	case route.Selected != nil:
		delay = route.Selected.TravelTimeHours
	}
	attr := liability.Attribute(view.Telemetry, delay)
	report := liability.NewReport(attr, req.Parties)

	var margin *float64
	if best, ok := route.BestViable(); ok {
		m := best.MarginHours
		margin = &m
	}
	recs := p.advisor.Recommend(advisor.Input{Sample: sample, MarginHours: margin, Outcome: string(decision.Kind())})

	score := p.trust.Score(sample, view)
	value := p.value.Preserve(cargo, est.BlendedDays)

	b := Bundle{
		ID:                    p.newID(),
		Timestamp:             p.now().UTC(),
		Sample:                sample,
		Clamped:               clamped,
		ChaosMode:             view.ChaosMode,
		Estimate:              est,
		Trend:                 proj,
		TrendWarnings:         forecast.Warnings(proj),
		TrendDiagnostics:      forecast.Diagnose(trendLog),
		Route:                 route,
		Decision:              decision,
		Pivot:                 rescue,
		Trust:                 score,
		Liability:             attr,
		LiabilityReport:       report,
		Recommendations:       recs,
		RecommendationSummary: advisor.Summarize(recs),
		Value:                 value,
	}
	b.Explanation = explain.Compose(explain.Input{
		DecisionType:       explanationType(decision.Kind()),
		Sample:             sample,
		BlendedDays:        est.BlendedDays,
		Route:              route,
		Pivot:              rescue,
		Recommendations:    recs,
		Trust:              score,
		Liability:          report,
		Value:              value,
		PredictorAvailable: est.PredictorAvailable,
		Clamped:            clamped,
		HighRiskCapacity:   p.cfg.Routing.HighRiskCapacity,
	})

	switch d := decision.(type) {
	case Proceed:
		p.log.Debugw("route selected", map[string]any{"destination": d.Destination, "margin_hours": d.MarginHours, "urgent": d.Urgent})
	case Rescue:
		p.log.Warnf("rescue: diverting to %s, recovering %.2f", d.Market, d.RecoverableValue)
	case EmergencyDump:
		p.log.Warnf("emergency dump at %s: %s", d.Market, d.Reason)
	case Dump:
		p.log.Warnf("cargo dumped: %s", d.Reason)
	}
	return b, nil
}

func (p *Pipeline) decide(pv *pivot.Engine, route routing.Result, cargo, remainingHours float64) (Decision, *pivot.Result) {
	if route.Outcome == routing.OutcomeProceed && route.Selected != nil {
		sel := route.Selected
		return Proceed{
			Destination:     sel.Facility.Name,
			MarginHours:     sel.MarginHours,
			TravelTimeHours: sel.TravelTimeHours,
			Urgent:          route.Urgent,
		}, nil
	}
	if p.cfg.Pivot.Disabled {
		return Dump{Reason: route.Reason}, nil
	}
	res := pv.FindRescue(cargo, remainingHours)
	dest := res.Destination
	if res.Status == pivot.StatusEmergencyDump {
		return EmergencyDump{
			MarketID:         dest.Market.ID,
			Market:           dest.Market.Name,
			RecoverableValue: res.RecoverableValue,
			Reason:           res.Reason,
		}, &res
	}
	return Rescue{
		MarketID:         dest.Market.ID,
		Market:           dest.Market.Name,
		RecoverableValue: res.RecoverableValue,
		TotalLoss:        res.TotalLoss,
		Severity:         res.Severity,
	}, &res
}

func explanationType(k Kind) string {
	switch k {
	case KindProceed:
		return explain.TypeReroute
	case KindRescue:
		return explain.TypeRescue
	case KindEmergencyDump:
		return explain.TypeEmergencyDump
	default:
		return explain.TypeDump
	}
}

// Triage runs the market pivot with explicit values. travelTimes overrides
// catalog travel times by market id.
func (p *Pipeline) Triage(cargoValue, remainingHours, primaryETAHours float64, travelTimes map[string]float64) (pivot.Result, error) {
	pv := p.pivot
	if len(travelTimes) > 0 {
		var err error
		if pv, err = pv.WithTravelTimes(travelTimes); err != nil {
			return pivot.Result{}, err
		}
	}
	return pv.Triage(cargoValue, remainingHours, primaryETAHours), nil
}

// Markets lists the configured salvage catalog.
func (p *Pipeline) Markets() []model.SecondaryMarket { return p.pivot.Markets() }

// UpdateWeights changes the shelf-life blend weights at runtime.
func (p *Pipeline) UpdateWeights(physics, learned float64) error {
	return p.estimator.UpdateWeights(physics, learned)
}

// Weights returns the current blend weights.
func (p *Pipeline) Weights() shelflife.Weights { return p.estimator.Weights() }

// TrustStatistics summarizes the session telemetry.
func (p *Pipeline) TrustStatistics(s *history.Session) (trust.Stats, string, bool) {
	v := s.View()
	st, ok := p.trust.Statistics(v)
	return st, p.trust.Trend(v), ok
}

// LiabilityReport attributes damage over the session history.
func (p *Pipeline) LiabilityReport(s *history.Session, delayHours float64, parties map[string]string) liability.Report {
	return liability.NewReport(liability.Attribute(s.View().Telemetry, delayHours), parties)
}
