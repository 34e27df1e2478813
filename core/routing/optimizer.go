// Package routing compares the remaining shelf life against the travel time
// to each candidate facility and selects a destination or declares a loss.
package routing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kilianp07/coldchain/core/model"
)

// Risk levels derived from facility capacity.
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// Outcome is the routing verdict.
type Outcome string

const (
	OutcomeProceed Outcome = "PROCEED"
	OutcomeDump    Outcome = "DUMP"
)

// ReasonNoViable is the dump reason when no facility can take the cargo.
const ReasonNoViable = "no viable destination"

// Config holds the routing thresholds.
type Config struct {
	// Speeds in km/h per road condition name. Missing entries use DefaultSpeed.
	Speeds              map[string]float64 `json:"speeds_kmh"`
	DefaultSpeed        float64            `json:"default_speed_kmh"`
	HighRiskCapacity    float64            `json:"high_risk_capacity"`
	MediumRiskCapacity  float64            `json:"medium_risk_capacity"`
	CriticalMarginHours float64            `json:"critical_margin_hours"`
}

// DefaultConfig returns the standard road speeds and thresholds.
func DefaultConfig() Config {
	return Config{
		Speeds: map[string]float64{
			model.RoadGood.String():     60,
			model.RoadModerate.String(): 45,
			model.RoadPoor.String():     30,
		},
		DefaultSpeed:        60,
		HighRiskCapacity:    90,
		MediumRiskCapacity:  70,
		CriticalMarginHours: 2,
	}
}

// SetDefaults fills unset thresholds.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.Speeds == nil {
		c.Speeds = d.Speeds
	}
	if c.DefaultSpeed == 0 {
		c.DefaultSpeed = d.DefaultSpeed
	}
	if c.HighRiskCapacity == 0 {
		c.HighRiskCapacity = d.HighRiskCapacity
	}
	if c.MediumRiskCapacity == 0 {
		c.MediumRiskCapacity = d.MediumRiskCapacity
	}
	if c.CriticalMarginHours == 0 {
		c.CriticalMarginHours = d.CriticalMarginHours
	}
}

// Validate checks speeds and thresholds.
func (c Config) Validate() error {
	if c.DefaultSpeed <= 0 {
		return fmt.Errorf("%w: default_speed_kmh must be positive", model.ErrConfiguration)
	}
	for name, s := range c.Speeds {
		if s <= 0 {
			return fmt.Errorf("%w: speed for %s must be positive", model.ErrConfiguration, name)
		}
	}
	if c.MediumRiskCapacity > c.HighRiskCapacity {
		return fmt.Errorf("%w: medium_risk_capacity exceeds high_risk_capacity", model.ErrConfiguration)
	}
	return nil
}

// Candidate is the assessment of one facility.
type Candidate struct {
	Facility        model.Facility `json:"facility"`
	Reachable       bool           `json:"reachable"`
	TravelTimeHours float64        `json:"travel_time_hours"`
	MarginDays      float64        `json:"margin_days"`
	MarginHours     float64        `json:"margin_hours"`
	Risk            string         `json:"risk"`
	Viable          bool           `json:"viable"`
	Rank            int            `json:"rank"`
}

// OverallRisk summarizes the transport risk across all facilities.
type OverallRisk struct {
	Level   model.Severity `json:"level"`
	Message string         `json:"message"`
}

// Result is the outcome of Optimize.
type Result struct {
	Outcome     Outcome     `json:"outcome"`
	Reason      string      `json:"reason"`
	Explanation string      `json:"explanation"`
	Selected    *Candidate  `json:"selected,omitempty"`
	Urgent      bool        `json:"urgent"`
	Candidates  []Candidate `json:"candidates"`
	Viable      int         `json:"viable"`
	Risk        OverallRisk `json:"overall_risk"`
}

// Action returns the operator action matching the result.
func (r Result) Action() string {
	switch {
	case r.Outcome == OutcomeDump && r.Viable == 0:
		return "CONTACT_DISPATCH"
	case r.Outcome == OutcomeDump:
		return "DUMP_PRODUCT"
	case r.Urgent:
		return "URGENT_DELIVERY"
	default:
		return "PROCEED_AS_PLANNED"
	}
}

// BestViable returns the highest margin viable candidate, if any.
func (r Result) BestViable() (Candidate, bool) {
	for _, c := range r.Candidates {
		if c.Viable {
			return c, true
		}
	}
	return Candidate{}, false
}

// Optimizer scores facilities. It holds no state between calls.
type Optimizer struct {
	cfg Config
}

// New validates cfg and returns an Optimizer.
func New(cfg Config) (*Optimizer, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer{cfg: cfg}, nil
}

// TravelTime returns the hours needed to cover distanceKm. Blocked roads are
// unreachable.
func (o *Optimizer) TravelTime(distanceKm float64, road model.RoadCondition) (float64, bool) {
	if road == model.RoadBlocked {
		return 0, false
	}
	speed, ok := o.cfg.Speeds[road.String()]
	if !ok {
		speed = o.cfg.DefaultSpeed
	}
	if distanceKm < 0 {
		distanceKm = 0
	}
	return distanceKm / speed, true
}

// RiskLevel classifies a capacity percentage.
func (o *Optimizer) RiskLevel(capacity float64) string {
	switch {
	case capacity > o.cfg.HighRiskCapacity:
		return RiskHigh
	case capacity > o.cfg.MediumRiskCapacity:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Assess scores one facility against the remaining shelf life.
func (o *Optimizer) Assess(f model.Facility, daysLeft float64) Candidate {
	c := Candidate{Facility: f, Risk: o.RiskLevel(f.CapacityPercent)}
	c.TravelTimeHours, c.Reachable = o.TravelTime(f.DistanceKm, f.Road)
	if c.Reachable {
		c.MarginDays = daysLeft - c.TravelTimeHours/24
		c.MarginHours = c.MarginDays * 24
	}
	c.Viable = c.Reachable && f.CapacityPercent <= o.cfg.HighRiskCapacity
	return c
}

// Optimize assesses every facility and picks a destination.
func (o *Optimizer) Optimize(facilities []model.Facility, daysLeft float64) Result {
	cands := make([]Candidate, len(facilities))
	for i, f := range facilities {
		cands[i] = o.Assess(f, daysLeft)
	}
	// Stable sort keeps input order for equal margins and for non-viable entries.
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Viable != b.Viable {
			return a.Viable
		}
		if a.Viable {
			return a.MarginDays > b.MarginDays
		}
		return false
	})

	res := Result{Candidates: cands, Risk: o.overallRisk(cands)}
	for i := range cands {
		cands[i].Rank = i + 1
		if cands[i].Viable {
			res.Viable++
		}
	}

	if res.Viable == 0 {
		res.Outcome = OutcomeDump
		res.Reason = ReasonNoViable
		res.Explanation = "No viable routes available: every destination is blocked or over capacity."
		return res
	}
	best := cands[0]
	if best.MarginDays < 0 {
		res.Outcome = OutcomeDump
		res.Reason = fmt.Sprintf("best survival margin is negative: %.2f hours", best.MarginHours)
		res.Explanation = fmt.Sprintf("Even the best route (%s) would spoil en route. Survival margin: %.2f hours.", best.Facility.Name, best.MarginHours)
		return res
	}
	res.Outcome = OutcomeProceed
	res.Selected = &best
	res.Urgent = best.MarginHours < o.cfg.CriticalMarginHours
	res.Reason = fmt.Sprintf("highest survival margin: %.2f hours", best.MarginHours)
	res.Explanation = explainProceed(best, Alternatives(res))
	return res
}

func explainProceed(best Candidate, others []Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rerouted to %s because survival margin is %+.2f hrs", best.Facility.Name, best.MarginHours)
	if len(others) > 0 {
		parts := make([]string, len(others))
		for i, c := range others {
			parts[i] = fmt.Sprintf("%s (%+.2f hrs)", c.Facility.Name, c.MarginHours)
		}
		fmt.Fprintf(&b, " vs %s at other centers", strings.Join(parts, ", "))
	}
	return b.String()
}

func (o *Optimizer) overallRisk(cands []Candidate) OverallRisk {
	blocked, high := 0, 0
	for _, c := range cands {
		if c.Facility.Road == model.RoadBlocked {
			blocked++
		}
		if c.Risk == RiskHigh {
			high++
		}
	}
	switch {
	case blocked >= len(cands):
		return OverallRisk{Level: model.SeverityCritical, Message: "all routes blocked: emergency protocol required"}
	case high > 0:
		return OverallRisk{Level: model.SeverityHigh, Message: fmt.Sprintf("%d destination(s) at high capacity", high)}
	default:
		return OverallRisk{Level: model.SeverityNormal, Message: "routes available with acceptable margins"}
	}
}

// Alternatives returns the viable candidates other than the selected one,
// best margin first.
func Alternatives(r Result) []Candidate {
	var out []Candidate
	for _, c := range r.Candidates {
		if !c.Viable {
			continue
		}
		if r.Selected != nil && c.Facility.Name == r.Selected.Facility.Name {
			continue
		}
		out = append(out, c)
	}
	return out
}
