// Package kpi aggregates decision outcomes per day.
package kpi

import (
	"math"
	"time"

	"github.com/kilianp07/coldchain/core/pipeline"
)

// Record aggregates the decisions of one UTC day.
type Record struct {
	Date            time.Time             `json:"date"`
	Decisions       int                   `json:"decisions"`
	Kinds           map[pipeline.Kind]int `json:"kinds"`
	MeanBlendedDays float64               `json:"mean_blended_days"`
	MinBlendedDays  float64               `json:"min_blended_days"`
	MeanTrustScore  float64               `json:"mean_trust_score"`
	// RecoverableValue is the largest rescue value offered that day.
	RecoverableValue float64 `json:"recoverable_value"`
}

// DiversionRate is the share of decisions that left the primary route.
func (r Record) DiversionRate() float64 {
	if r.Decisions == 0 {
		return 0
	}
	diverted := r.Kinds[pipeline.KindRescue] + r.Kinds[pipeline.KindEmergencyDump] + r.Kinds[pipeline.KindDump]
	return float64(diverted) / float64(r.Decisions)
}

// Day aligns t to the start of its UTC day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type bucket struct {
	date        time.Time
	count       int
	kinds       map[pipeline.Kind]int
	sumDays     float64
	minDays     float64
	sumTrust    float64
	recoverable float64
}

func newBucket(d time.Time) *bucket {
	return &bucket{date: d, kinds: map[pipeline.Kind]int{}, minDays: math.Inf(1)}
}

func (b *bucket) record() Record {
	r := Record{Date: b.date, Decisions: b.count, Kinds: make(map[pipeline.Kind]int, len(b.kinds)), RecoverableValue: b.recoverable}
	for k, v := range b.kinds {
		r.Kinds[k] = v
	}
	if b.count > 0 {
		r.MeanBlendedDays = b.sumDays / float64(b.count)
		r.MinBlendedDays = b.minDays
		r.MeanTrustScore = b.sumTrust / float64(b.count)
	}
	return r
}
