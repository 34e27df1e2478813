package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kilianp07/coldchain/core/model"
)

// Kind names a decision variant.
type Kind string

const (
	KindProceed       Kind = "PROCEED"
	KindDump          Kind = "DUMP"
	KindRescue        Kind = "RESCUE"
	KindEmergencyDump Kind = "EMERGENCY_DUMP"
)

// ParseKind accepts a kind name in any case.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(s))); k {
	case KindProceed, KindDump, KindRescue, KindEmergencyDump:
		return k, nil
	default:
		return "", fmt.Errorf("unknown decision kind %q", s)
	}
}

// Decision is the terminal verdict of an evaluation. The set of variants is
// closed: Proceed, Dump, Rescue and EmergencyDump.
type Decision interface {
	Kind() Kind
	// Target names the destination or market, empty for Dump.
	Target() string
	sealed()
}

// Proceed sends the cargo to a primary facility.
type Proceed struct {
	Destination     string  `json:"destination"`
	MarginHours     float64 `json:"margin_hours"`
	TravelTimeHours float64 `json:"travel_time_hours"`
	Urgent          bool    `json:"urgent"`
}

// Dump declares the cargo lost with no salvage attempt.
type Dump struct {
	Reason string `json:"reason"`
}

// Rescue diverts the cargo to a secondary market.
type Rescue struct {
	MarketID         string         `json:"market_id"`
	Market           string         `json:"market"`
	RecoverableValue float64        `json:"recoverable_value"`
	TotalLoss        float64        `json:"total_loss"`
	Severity         model.Severity `json:"severity"`
}

// EmergencyDump salvages the cargo at the fallback market.
type EmergencyDump struct {
	MarketID         string  `json:"market_id"`
	Market           string  `json:"market"`
	RecoverableValue float64 `json:"recoverable_value"`
	Reason           string  `json:"reason"`
}

func (Proceed) Kind() Kind       { return KindProceed }
func (Dump) Kind() Kind          { return KindDump }
func (Rescue) Kind() Kind        { return KindRescue }
func (EmergencyDump) Kind() Kind { return KindEmergencyDump }

func (d Proceed) Target() string       { return d.Destination }
func (Dump) Target() string            { return "" }
func (d Rescue) Target() string        { return d.Market }
func (d EmergencyDump) Target() string { return d.Market }

func (Proceed) sealed()       {}
func (Dump) sealed()          {}
func (Rescue) sealed()        {}
func (EmergencyDump) sealed() {}

func (d Proceed) MarshalJSON() ([]byte, error) {
	type alias Proceed
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		alias
	}{KindProceed, alias(d)})
}

func (d Dump) MarshalJSON() ([]byte, error) {
	type alias Dump
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		alias
	}{KindDump, alias(d)})
}

func (d Rescue) MarshalJSON() ([]byte, error) {
	type alias Rescue
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		alias
	}{KindRescue, alias(d)})
}

func (d EmergencyDump) MarshalJSON() ([]byte, error) {
	type alias EmergencyDump
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		alias
	}{KindEmergencyDump, alias(d)})
}

// UnmarshalDecision decodes a decision produced by one of the MarshalJSON
// methods above.
func UnmarshalDecision(b []byte) (Decision, error) {
	var head struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return nil, err
	}
	switch head.Kind {
	case KindProceed:
		var d Proceed
		err := json.Unmarshal(b, &d)
		return d, err
	case KindDump:
		var d Dump
		err := json.Unmarshal(b, &d)
		return d, err
	case KindRescue:
		var d Rescue
		err := json.Unmarshal(b, &d)
		return d, err
	case KindEmergencyDump:
		var d EmergencyDump
		err := json.Unmarshal(b, &d)
		return d, err
	default:
		return nil, fmt.Errorf("unknown decision kind %q", head.Kind)
	}
}
