// Package explain assembles a structured, operator-facing account of why a
// decision was taken.
package explain

import (
	"fmt"
	"sort"

	"github.com/kilianp07/coldchain/core/advisor"
	"github.com/kilianp07/coldchain/core/liability"
	"github.com/kilianp07/coldchain/core/model"
	"github.com/kilianp07/coldchain/core/pivot"
	"github.com/kilianp07/coldchain/core/routing"
	"github.com/kilianp07/coldchain/core/trust"
	"github.com/kilianp07/coldchain/core/valuation"
)

// Decision types.
const (
	TypeReroute       = "REROUTE"
	TypeDump          = "DUMP"
	TypeRescue        = "RESCUE"
	TypeEmergencyDump = "EMERGENCY_DUMP"
)

// Factor impacts.
const (
	ImpactPositive = "POSITIVE"
	ImpactNegative = "NEGATIVE"
	ImpactCritical = "CRITICAL"
)

// Alternative statuses.
const (
	StatusBlocked          = "BLOCKED"
	StatusOverCapacity     = "OVER_CAPACITY"
	StatusInsufficientTime = "INSUFFICIENT_TIME"
	StatusLowerMargin      = "LOWER_MARGIN"
	StatusLowerRecovery    = "LOWER_RECOVERY"
)

// Confidence levels.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// Reason is one entry of the "why" list. Lower priority values come first.
type Reason struct {
	Text     string `json:"text"`
	Priority int    `json:"priority"`
	Category string `json:"category,omitempty"`
}

// Factor is an input that weighed on the decision.
type Factor struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Impact string `json:"impact"`
}

// Alternative is a destination that was considered and not chosen.
type Alternative struct {
	Name        string   `json:"name"`
	MarginHours *float64 `json:"margin_hours,omitempty"`
	Status      string   `json:"status"`
}

// Economics is the money side of the decision.
type Economics struct {
	CargoValue float64 `json:"cargo_value"`
	Preserved  float64 `json:"preserved"`
	Lost       float64 `json:"lost"`
	Summary    string  `json:"summary"`
}

// Action is an immediate operator action.
type Action struct {
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
}

// Report is the full explanation.
type Report struct {
	DecisionType     string        `json:"decision_type"`
	Decision         string        `json:"decision"`
	Timestamp        int64         `json:"timestamp"`
	Confidence       string        `json:"confidence"`
	Why              []Reason      `json:"why"`
	Factors          []Factor      `json:"factors"`
	Alternatives     []Alternative `json:"alternatives"`
	Economics        Economics     `json:"economics"`
	Summary          string        `json:"summary"`
	ImmediateActions []Action      `json:"immediate_actions"`
	Trust            string        `json:"trust"`
	Liability        string        `json:"liability"`
	Notes            []string      `json:"notes,omitempty"`
}

// Input gathers the engine outputs of one evaluation.
type Input struct {
	DecisionType       string
	Sample             model.TelemetrySample
	BlendedDays        float64
	Route              routing.Result
	Pivot              *pivot.Result
	Recommendations    []advisor.Recommendation
	Trust              trust.Score
	Liability          liability.Report
	Value              valuation.Value
	PredictorAvailable bool
	Clamped            bool
	// HighRiskCapacity is the capacity above which a facility is rejected.
	HighRiskCapacity float64
}

// Compose builds the report.
func Compose(in Input) Report {
	r := Report{
		DecisionType:     in.DecisionType,
		Timestamp:        in.Sample.Timestamp,
		Why:              []Reason{},
		Factors:          []Factor{},
		Alternatives:     []Alternative{},
		ImmediateActions: []Action{},
	}
	switch in.DecisionType {
	case TypeReroute:
		reroute(&r, in)
	case TypeRescue, TypeEmergencyDump:
		rescue(&r, in)
	default:
		dump(&r, in)
	}
	conditions(&r, in)
	sort.SliceStable(r.Why, func(i, j int) bool { return r.Why[i].Priority < r.Why[j].Priority })

	r.Summary, r.ImmediateActions = recommendations(in.Recommendations)
	r.Trust = fmt.Sprintf("trust score %.1f (grade %s)", in.Trust.Value, in.Trust.Grade)
	r.Liability = fmt.Sprintf("primary cause %s (%.1f%%), total damage %.1f%%",
		in.Liability.PrimaryCause, in.Liability.PrimaryCausePercent, in.Liability.TotalDamagePercent)

	r.Confidence = ConfidenceHigh
	if !in.PredictorAvailable {
		r.Notes = append(r.Notes, "learned model unavailable: shelf life from the physics model only")
		r.Confidence = ConfidenceMedium
	}
	if in.Clamped {
		r.Notes = append(r.Notes, "telemetry contained out-of-range values that were clamped")
		r.Confidence = ConfidenceMedium
	}
	if in.Trust.RequiresAttention {
		r.Confidence = ConfidenceLow
	}
	return r
}

func reroute(r *Report, in Input) {
	best := in.Route.Selected
	if best == nil {
		return
	}
	r.Decision = best.Facility.Name
	r.Why = append(r.Why, Reason{
		Text:     fmt.Sprintf("selected %s with a survival margin of %.2f hours", best.Facility.Name, best.MarginHours),
		Priority: 1, Category: "ROUTING",
	})
	impact := ImpactPositive
	if best.MarginHours < 0 {
		impact = ImpactNegative
	}
	r.Factors = append(r.Factors, Factor{Name: "Survival Margin", Value: fmt.Sprintf("%.2f hours", best.MarginHours), Impact: impact})
	for _, c := range in.Route.Candidates {
		if c.Facility.Name == best.Facility.Name {
			continue
		}
		r.Alternatives = append(r.Alternatives, alternative(c, in.HighRiskCapacity))
	}
	r.Economics = Economics{
		CargoValue: in.Value.CargoValue,
		Preserved:  in.Value.ProfitSaved,
		Lost:       in.Value.WastedValue,
		Summary:    fmt.Sprintf("%s of value preserved (grade %s)", in.Value.Formatted, in.Value.Grade),
	}
}

func dump(r *Report, in Input) {
	r.Decision = TypeDump
	attempted(r, in)
	r.Economics = Economics{
		CargoValue: in.Value.CargoValue,
		Lost:       in.Value.CargoValue,
		Summary:    "spoilage inevitable: shelf life insufficient for any route, contact dispatch for disposal",
	}
}

func rescue(r *Report, in Input) {
	attempted(r, in)
	if in.Pivot == nil || in.Pivot.Destination == nil {
		r.Decision = in.DecisionType
		return
	}
	p := in.Pivot
	r.Decision = p.Destination.Market.Name
	prio := 2
	if in.DecisionType == TypeEmergencyDump {
		prio = 1
	}
	r.Why = append(r.Why, Reason{
		Text: fmt.Sprintf("%s recovers %.0f%% of the cargo value with %.2f hours to spare",
			p.Destination.Market.Name, p.Destination.RecoveryPercent, p.Destination.TimeBufferHours),
		Priority: prio, Category: "MARKET",
	})
	if in.DecisionType == TypeEmergencyDump {
		r.Why = append(r.Why, Reason{Text: p.Reason, Priority: 1, Category: "MARKET"})
	}
	r.Factors = append(r.Factors, Factor{
		Name: "Recovery", Value: fmt.Sprintf("%.0f%%", p.Destination.RecoveryPercent), Impact: ImpactCritical,
	})
	for _, alt := range p.Alternatives {
		r.Alternatives = append(r.Alternatives, Alternative{Name: alt.Market.Name, Status: StatusLowerRecovery})
	}
	r.Economics = Economics{
		CargoValue: p.CargoValue,
		Preserved:  p.RecoverableValue,
		Lost:       p.TotalLoss,
		Summary:    p.Message,
	}
}

// attempted lists every primary destination and why it failed.
func attempted(r *Report, in Input) {
	for _, c := range in.Route.Candidates {
		a := alternative(c, in.HighRiskCapacity)
		r.Alternatives = append(r.Alternatives, a)
		switch a.Status {
		case StatusBlocked:
			r.Why = append(r.Why, Reason{Text: fmt.Sprintf("road to %s is blocked", c.Facility.Name), Priority: 1, Category: "INFRASTRUCTURE"})
		case StatusOverCapacity:
			r.Why = append(r.Why, Reason{Text: fmt.Sprintf("%s is at %.0f%% capacity", c.Facility.Name, c.Facility.CapacityPercent), Priority: 1, Category: "CAPACITY"})
		case StatusInsufficientTime:
			if c.MarginHours < 0 {
				r.Why = append(r.Why, Reason{Text: fmt.Sprintf("travel time to %s exceeds shelf life by %.2f hours", c.Facility.Name, -c.MarginHours), Priority: 1, Category: "TIME"})
			}
		}
	}
}

func alternative(c routing.Candidate, highRisk float64) Alternative {
	a := Alternative{Name: c.Facility.Name}
	if c.Reachable {
		m := c.MarginHours
		a.MarginHours = &m
	}
	switch {
	case !c.Reachable:
		a.Status = StatusBlocked
	case c.Facility.CapacityPercent > highRisk:
		a.Status = StatusOverCapacity
	case c.MarginHours < 0:
		a.Status = StatusInsufficientTime
	default:
		a.Status = StatusLowerMargin
	}
	return a
}

func conditions(r *Report, in Input) {
	s := in.Sample
	if s.Temperature > 8 {
		r.Why = append(r.Why, Reason{Text: fmt.Sprintf("temperature %.1f°C is dangerously high and accelerates spoilage", s.Temperature), Priority: 1, Category: "TEMPERATURE"})
		r.Factors = append(r.Factors, Factor{Name: "Temperature", Value: fmt.Sprintf("%.1f°C", s.Temperature), Impact: ImpactNegative})
	}
	if s.Vibration > 0.5 {
		r.Why = append(r.Why, Reason{Text: fmt.Sprintf("vibration %.2fG is causing mechanical damage", s.Vibration), Priority: 2, Category: "VIBRATION"})
		r.Factors = append(r.Factors, Factor{Name: "Vibration", Value: fmt.Sprintf("%.2fG", s.Vibration), Impact: ImpactNegative})
	}
	if in.BlendedDays < 5 {
		r.Why = append(r.Why, Reason{Text: fmt.Sprintf("time pressure: only %.2f days of shelf life remaining", in.BlendedDays), Priority: 1, Category: "TIME"})
		r.Factors = append(r.Factors, Factor{Name: "Time Pressure", Value: fmt.Sprintf("%.2f days", in.BlendedDays), Impact: ImpactCritical})
	}
}

func recommendations(recs []advisor.Recommendation) (string, []Action) {
	sum := advisor.Summarize(recs)
	actions := []Action{}
	for _, rec := range recs {
		if rec.Priority == model.PriorityCritical {
			actions = append(actions, Action{Action: rec.Action, Reason: rec.Reason})
		}
	}
	switch {
	case sum.Critical > 0:
		return fmt.Sprintf("%d CRITICAL action(s) required immediately", sum.Critical), actions
	case sum.Warning > 0:
		return fmt.Sprintf("%d warning(s), monitor closely", sum.Warning), actions
	default:
		return "all conditions normal, no action required", actions
	}
}
