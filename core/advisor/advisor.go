// Package advisor turns the current readings and routing outcome into a
// prioritized list of actions for the driver and the dispatcher.
package advisor

import (
	"fmt"
	"sort"

	"github.com/kilianp07/coldchain/core/logger"
	"github.com/kilianp07/coldchain/core/model"
)

// Recommendation categories.
const (
	TypeTemperature = "TEMPERATURE"
	TypeVibration   = "VIBRATION"
	TypeHumidity    = "HUMIDITY"
	TypeRouting     = "ROUTING"
	TypeOperator    = "OPERATOR"
)

// Routing outcomes that trigger rescue advice.
const (
	OutcomeRescue        = "RESCUE"
	OutcomeEmergencyDump = "EMERGENCY_DUMP"
)

// Recommendation is one action item.
type Recommendation struct {
	Type     string         `json:"type"`
	Priority model.Priority `json:"priority"`
	Action   string         `json:"action"`
	Message  string         `json:"message"`
	Current  string         `json:"current,omitempty"`
	Target   string         `json:"target,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}

// Input is what the advisor looks at.
type Input struct {
	Sample model.TelemetrySample
	// MarginHours is the best survival margin, nil when nothing is viable.
	MarginHours *float64
	// Outcome is the decision kind, used for rescue advice.
	Outcome string
}

// Summary counts recommendations by priority.
type Summary struct {
	Total          int  `json:"total"`
	Critical       int  `json:"critical"`
	Warning        int  `json:"warning"`
	Info           int  `json:"info"`
	HasCritical    bool `json:"has_critical"`
	ActionRequired bool `json:"action_required"`
}

// Advisor evaluates the built-in rule table plus operator rules.
type Advisor struct {
	rules []compiledRule
	log   logger.Logger
}

// New compiles the operator rules. A rule that does not compile is a
// configuration error.
func New(rules []Rule, log logger.Logger) (*Advisor, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	return &Advisor{rules: compiled, log: logger.OrNop(log)}, nil
}

// Recommend returns the recommendations sorted by priority, highest first.
func (a *Advisor) Recommend(in Input) []Recommendation {
	var recs []Recommendation
	recs = append(recs, temperature(in.Sample.Temperature)...)
	recs = append(recs, vibration(in.Sample.Vibration)...)
	recs = append(recs, humidity(in.Sample.Humidity)...)
	if in.MarginHours != nil {
		recs = append(recs, margin(*in.MarginHours)...)
	}
	recs = append(recs, outcome(in.Outcome)...)
	recs = append(recs, a.operator(in)...)
	if recs == nil {
		recs = []Recommendation{}
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Priority > recs[j].Priority })
	return recs
}

func temperature(t float64) []Recommendation {
	cur := fmt.Sprintf("%.1f°C", t)
	switch {
	case t > 8:
		return []Recommendation{{
			Type: TypeTemperature, Priority: model.PriorityCritical, Action: "REDUCE_TEMPERATURE",
			Message: "CRITICAL: reduce temperature to 3°C immediately", Current: cur, Target: "3°C",
			Reason: fmt.Sprintf("temperature %s is dangerously high, rapid spoilage occurring", cur),
		}}
	case t > 6:
		return []Recommendation{{
			Type: TypeTemperature, Priority: model.PriorityWarning, Action: "ADJUST_TEMPERATURE",
			Message: fmt.Sprintf("temperature at %s, aim for the 2-4°C range", cur), Current: cur, Target: "2-4°C",
			Reason: "temperature above optimal range increases the decay rate",
		}}
	case t < 0:
		return []Recommendation{{
			Type: TypeTemperature, Priority: model.PriorityWarning, Action: "INCREASE_TEMPERATURE",
			Message: "temperature near freezing, prevent product freezing", Current: cur, Target: ">0°C",
			Reason: "risk of freezing damage to produce",
		}}
	}
	return nil
}

func vibration(v float64) []Recommendation {
	cur := fmt.Sprintf("%.2fG", v)
	switch {
	case v > 0.5:
		return []Recommendation{{
			Type: TypeVibration, Priority: model.PriorityCritical, Action: "REDUCE_SPEED",
			Message: "CRITICAL: reduce speed immediately, vibration is causing mechanical damage", Current: cur, Target: "<0.3G",
			Reason: fmt.Sprintf("vibration %s exceeds the damage threshold", cur),
		}}
	case v > 0.3:
		return []Recommendation{{
			Type: TypeVibration, Priority: model.PriorityWarning, Action: "REDUCE_SPEED",
			Message: fmt.Sprintf("high vibration detected (%s), reduce speed", cur), Current: cur, Target: "<0.3G",
			Reason: "elevated vibration increases mechanical stress on produce",
		}}
	}
	return nil
}

func humidity(h float64) []Recommendation {
	cur := fmt.Sprintf("%.0f%%", h)
	switch {
	case h > 70:
		return []Recommendation{{
			Type: TypeHumidity, Priority: model.PriorityInfo, Action: "MONITOR",
			Message: fmt.Sprintf("high humidity (%s), monitor for mold growth", cur), Current: cur, Target: "40-60%",
			Reason: "high humidity can promote bacterial growth",
		}}
	case h < 40:
		return []Recommendation{{
			Type: TypeHumidity, Priority: model.PriorityInfo, Action: "MONITOR",
			Message: fmt.Sprintf("low humidity (%s), produce may dry out", cur), Current: cur, Target: "40-60%",
			Reason: "low humidity can dehydrate fresh produce",
		}}
	}
	return nil
}

func margin(m float64) []Recommendation {
	cur := fmt.Sprintf("%.1f hrs", m)
	switch {
	case m < 0:
		return []Recommendation{{
			Type: TypeRouting, Priority: model.PriorityCritical, Action: "DUMP_OR_REROUTE",
			Message: "product will spoil before reaching its destination", Current: cur, Target: ">0 hrs",
			Reason: fmt.Sprintf("negative survival margin of %s", cur),
		}}
	case m < 2:
		return []Recommendation{{
			Type: TypeRouting, Priority: model.PriorityCritical, Action: "REROUTE",
			Message: "immediate rerouting required: less than 2 hours of margin", Current: cur, Target: ">2 hrs",
			Reason: fmt.Sprintf("survival margin of %s is critically low", cur),
		}}
	case m < 5:
		return []Recommendation{{
			Type: TypeRouting, Priority: model.PriorityWarning, Action: "CONSIDER_REROUTE",
			Message: fmt.Sprintf("survival margin low (%s), consider a faster route", cur), Current: cur, Target: ">5 hrs",
			Reason: "limited buffer for delays",
		}}
	}
	return nil
}

func outcome(kind string) []Recommendation {
	switch kind {
	case OutcomeRescue:
		return []Recommendation{{
			Type: TypeRouting, Priority: model.PriorityCritical, Action: "DIVERT_TO_SECONDARY_MARKET",
			Message: "divert to the selected secondary market to recover value",
		}}
	case OutcomeEmergencyDump:
		return []Recommendation{{
			Type: TypeRouting, Priority: model.PriorityCritical, Action: "EMERGENCY_SALVAGE",
			Message: "no market reachable in time, salvage at the fallback market",
		}}
	}
	return nil
}

// Summarize counts recommendations by priority.
func Summarize(recs []Recommendation) Summary {
	s := Summary{Total: len(recs)}
	for _, r := range recs {
		switch r.Priority {
		case model.PriorityCritical:
			s.Critical++
		case model.PriorityWarning:
			s.Warning++
		default:
			s.Info++
		}
	}
	s.HasCritical = s.Critical > 0
	s.ActionRequired = s.Critical > 0 || s.Warning > 0
	return s
}
