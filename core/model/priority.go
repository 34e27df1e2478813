package model

import "encoding/json"

// Priority orders operator action items.
type Priority int

const (
	PriorityInfo Priority = iota + 1
	PriorityWarning
	PriorityCritical
)

// String returns the upper-case label used in reports.
func (p Priority) String() string {
	switch p {
	case PriorityInfo:
		return "INFO"
	case PriorityWarning:
		return "WARNING"
	case PriorityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParsePriority maps a label to a Priority. Unknown labels map to PriorityInfo.
func ParsePriority(s string) Priority {
	switch s {
	case "CRITICAL", "critical":
		return PriorityCritical
	case "WARNING", "warning":
		return PriorityWarning
	default:
		return PriorityInfo
	}
}

func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Priority) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*p = ParsePriority(s)
	return nil
}

// UnmarshalText lets config decoders read priorities from plain strings.
func (p *Priority) UnmarshalText(b []byte) error {
	*p = ParsePriority(string(b))
	return nil
}

// Severity grades how urgently a situation needs handling.
type Severity string

const (
	SeverityNormal   Severity = "NORMAL"
	SeverityMedium   Severity = "MEDIUM"
	SeverityWarning  Severity = "WARNING"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)
