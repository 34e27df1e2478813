package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RoadCondition describes the state of the road leading to a facility.
type RoadCondition int

const (
	RoadGood RoadCondition = iota
	RoadModerate
	RoadPoor
	RoadBlocked
)

// String returns a human-readable representation of the road condition.
func (r RoadCondition) String() string {
	switch r {
	case RoadGood:
		return "Good"
	case RoadModerate:
		return "Moderate"
	case RoadPoor:
		return "Poor"
	case RoadBlocked:
		return "Blocked"
	default:
		return "unknown"
	}
}

// Code is the integer encoding expected by the external shelf-life predictor.
func (r RoadCondition) Code() int {
	if r < RoadGood || r > RoadBlocked {
		return int(RoadGood)
	}
	return int(r)
}

// ParseRoadCondition converts a case-insensitive name into a RoadCondition.
func ParseRoadCondition(s string) (RoadCondition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "good":
		return RoadGood, nil
	case "moderate":
		return RoadModerate, nil
	case "poor":
		return RoadPoor, nil
	case "blocked":
		return RoadBlocked, nil
	default:
		return RoadGood, fmt.Errorf("unknown road condition %q", s)
	}
}

func (r RoadCondition) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *RoadCondition) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var code int
		if cerr := json.Unmarshal(b, &code); cerr != nil {
			return err
		}
		*r = RoadCondition(code)
		return nil
	}
	parsed, err := ParseRoadCondition(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// UnmarshalText lets config decoders read road conditions from plain strings.
func (r *RoadCondition) UnmarshalText(b []byte) error {
	parsed, err := ParseRoadCondition(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Facility is a candidate destination for the shipment.
type Facility struct {
	Name            string        `json:"name"`
	DistanceKm      float64       `json:"distance_km"`
	CapacityPercent float64       `json:"capacity_percent"`
	Road            RoadCondition `json:"road_condition"`
}

// SecondaryMarket is a salvage destination used when the primary route fails.
type SecondaryMarket struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Type               string  `json:"type"`
	Description        string  `json:"description,omitempty"`
	RecoveryMultiplier float64 `json:"recovery_multiplier"`
	TravelTimeHours    float64 `json:"travel_time_hours"`
	// Fallback marks the terminal salvage market used when nothing is reachable.
	Fallback bool `json:"fallback,omitempty"`
}
