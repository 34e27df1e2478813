// Package pivot finds a secondary market that can still absorb a shipment
// that will not reach its primary destination before spoiling.
package pivot

import (
	"fmt"
	"math"
	"sort"

	"github.com/kilianp07/coldchain/core/model"
)

// Triage statuses.
const (
	StatusOnTrack        = "ON_TRACK"
	StatusRescueRequired = "RESCUE_REQUIRED"
	StatusEmergencyDump  = "EMERGENCY_DUMP"
)

// DefaultMarkets is the built-in salvage catalog.
func DefaultMarkets() []model.SecondaryMarket {
	return []model.SecondaryMarket{
		{ID: "Plant_Alpha", Name: "Plant Alpha", Type: "Juice Processor", Description: "Juice extraction plant, premium recovery", RecoveryMultiplier: 0.65, TravelTimeHours: 2.5},
		{ID: "Market_Beta", Name: "Market Beta", Type: "Wholesale", Description: "Wholesale market, moderate recovery", RecoveryMultiplier: 0.40, TravelTimeHours: 1.5},
		{ID: "BioFuel_Gamma", Name: "Bio-Fuel Gamma", Type: "Ethanol", Description: "Bio-fuel plant, minimum recovery", RecoveryMultiplier: 0.15, TravelTimeHours: 1.0, Fallback: true},
	}
}

// Option is the valuation of one reachable market.
type Option struct {
	Market           model.SecondaryMarket `json:"market"`
	RecoverableValue float64               `json:"recoverable_value"`
	RecoveryPercent  float64               `json:"recovery_percent"`
	TimeBufferHours  float64               `json:"time_buffer_hours"`
}

// Result is the outcome of a triage or rescue search.
type Result struct {
	Status            string         `json:"status"`
	Message           string         `json:"message"`
	RescueNeeded      bool           `json:"rescue_needed"`
	Severity          model.Severity `json:"severity,omitempty"`
	CargoValue        float64        `json:"cargo_value"`
	RemainingHours    float64        `json:"remaining_hours"`
	PrimaryETAHours   float64        `json:"primary_eta_hours,omitempty"`
	SafetyMarginHours float64        `json:"safety_margin_hours,omitempty"`
	Destination       *Option        `json:"destination,omitempty"`
	RecoverableValue  float64        `json:"recoverable_value"`
	LossPrevented     float64        `json:"loss_prevented"`
	TotalLoss         float64        `json:"total_loss"`
	Alternatives      []Option       `json:"alternatives,omitempty"`
	Reason            string         `json:"reason,omitempty"`
}

// Engine evaluates rescue options against a fixed catalog.
type Engine struct {
	markets []model.SecondaryMarket
}

// New validates and copies the catalog. Multipliers are clamped to [0,1].
func New(markets []model.SecondaryMarket) (*Engine, error) {
	if len(markets) == 0 {
		return nil, fmt.Errorf("%w: secondary market catalog is empty", model.ErrConfiguration)
	}
	cp := make([]model.SecondaryMarket, len(markets))
	for i, m := range markets {
		if m.TravelTimeHours < 0 || math.IsNaN(m.TravelTimeHours) {
			return nil, fmt.Errorf("%w: market %s has invalid travel time %v", model.ErrConfiguration, m.ID, m.TravelTimeHours)
		}
		m.RecoveryMultiplier = model.Clamp(m.RecoveryMultiplier, 0, 1)
		if m.ID == "" {
			m.ID = m.Name
		}
		cp[i] = m
	}
	return &Engine{markets: cp}, nil
}

// Markets returns a copy of the catalog.
func (e *Engine) Markets() []model.SecondaryMarket {
	cp := make([]model.SecondaryMarket, len(e.markets))
	copy(cp, e.markets)
	return cp
}

// WithTravelTimes returns an engine whose travel times are overridden by id.
// Unknown ids are ignored.
func (e *Engine) WithTravelTimes(times map[string]float64) (*Engine, error) {
	ms := e.Markets()
	for i := range ms {
		if t, ok := times[ms[i].ID]; ok {
			ms[i].TravelTimeHours = t
		}
	}
	return New(ms)
}

// Triage decides whether a rescue is needed at all.
func (e *Engine) Triage(cargoValue, remainingHours, primaryETAHours float64) Result {
	cargoValue = math.Max(0, cargoValue)
	if remainingHours >= primaryETAHours {
		return Result{
			Status:            StatusOnTrack,
			Message:           "cargo will reach the primary destination in time",
			CargoValue:        cargoValue,
			RemainingHours:    remainingHours,
			PrimaryETAHours:   primaryETAHours,
			SafetyMarginHours: remainingHours - primaryETAHours,
			RecoverableValue:  cargoValue,
		}
	}
	res := e.FindRescue(cargoValue, remainingHours)
	res.PrimaryETAHours = primaryETAHours
	return res
}

// FindRescue picks the reachable market with the highest recovery multiplier.
// When nothing is reachable the fallback market is returned as an emergency dump.
func (e *Engine) FindRescue(cargoValue, remainingHours float64) Result {
	cargoValue = math.Max(0, cargoValue)
	var reachable []Option
	for _, m := range e.markets {
		if m.TravelTimeHours < remainingHours {
			reachable = append(reachable, option(m, cargoValue, remainingHours))
		}
	}

	if len(reachable) == 0 {
		fb := option(e.fallback(), cargoValue, remainingHours)
		return Result{
			Status:           StatusEmergencyDump,
			Message:          fmt.Sprintf("shelf life too short: emergency salvage to %s", fb.Market.Name),
			RescueNeeded:     true,
			Severity:         model.SeverityCritical,
			CargoValue:       cargoValue,
			RemainingHours:   remainingHours,
			Destination:      &fb,
			RecoverableValue: fb.RecoverableValue,
			LossPrevented:    fb.RecoverableValue,
			TotalLoss:        cargoValue - fb.RecoverableValue,
			Reason:           fmt.Sprintf("no secondary market reachable within %.2f hours", remainingHours),
		}
	}

	sort.SliceStable(reachable, func(i, j int) bool {
		return reachable[i].Market.RecoveryMultiplier > reachable[j].Market.RecoveryMultiplier
	})
	best := reachable[0]
	res := Result{
		Status:           StatusRescueRequired,
		Message:          fmt.Sprintf("emergency pivot to %s", best.Market.Name),
		RescueNeeded:     true,
		Severity:         severity(remainingHours, best.Market.TravelTimeHours),
		CargoValue:       cargoValue,
		RemainingHours:   remainingHours,
		Destination:      &best,
		RecoverableValue: best.RecoverableValue,
		LossPrevented:    best.RecoverableValue,
		TotalLoss:        cargoValue - best.RecoverableValue,
	}
	if len(reachable) > 1 {
		res.Alternatives = reachable[1:]
	}
	return res
}

func option(m model.SecondaryMarket, cargo, remaining float64) Option {
	return Option{
		Market:           m,
		RecoverableValue: cargo * m.RecoveryMultiplier,
		RecoveryPercent:  m.RecoveryMultiplier * 100,
		TimeBufferHours:  remaining - m.TravelTimeHours,
	}
}

// fallback returns the flagged fallback market, else the lowest multiplier.
func (e *Engine) fallback() model.SecondaryMarket {
	for _, m := range e.markets {
		if m.Fallback {
			return m
		}
	}
	low := e.markets[0]
	for _, m := range e.markets[1:] {
		if m.RecoveryMultiplier < low.RecoveryMultiplier {
			low = m
		}
	}
	return low
}

func severity(remaining, travel float64) model.Severity {
	switch {
	case remaining < 2:
		return model.SeverityCritical
	case remaining < travel*1.5:
		return model.SeverityHigh
	default:
		return model.SeverityMedium
	}
}
