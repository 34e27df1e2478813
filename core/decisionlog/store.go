// Package decisionlog keeps an append-only audit trail of evaluated
// decisions. Backends store one Record per evaluation: a JSON lines file
// (optionally rotated), a SQLite database, or an in-memory ring for tests and
// short-lived runs.
package decisionlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kilianp07/coldchain/core/pipeline"
)

// Record is one audited evaluation. Bundle holds the full evaluation result
// as produced by the pipeline.
type Record struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Kind        pipeline.Kind   `json:"kind"`
	Target      string          `json:"target,omitempty"`
	BlendedDays float64         `json:"blended_days"`
	TrustScore  float64         `json:"trust_score"`
	CargoValue  float64         `json:"cargo_value"`
	Bundle      json.RawMessage `json:"bundle"`
}

// NewRecord flattens a bundle.
func NewRecord(b pipeline.Bundle) (Record, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return Record{}, fmt.Errorf("encode bundle %s: %w", b.ID, err)
	}
	r := Record{
		ID:          b.ID,
		Timestamp:   b.Timestamp,
		BlendedDays: b.Estimate.BlendedDays,
		TrustScore:  b.Trust.Value,
		CargoValue:  b.Value.CargoValue,
		Bundle:      raw,
	}
	if b.Decision != nil {
		r.Kind = b.Decision.Kind()
		r.Target = b.Decision.Target()
	}
	return r, nil
}

// Decision decodes the decision stored in the bundle.
func (r Record) Decision() (pipeline.Decision, error) {
	var probe struct {
		Decision json.RawMessage `json:"decision"`
	}
	if err := json.Unmarshal(r.Bundle, &probe); err != nil {
		return nil, err
	}
	return pipeline.UnmarshalDecision(probe.Decision)
}

// Query filters records. Zero fields match everything. Limit keeps the most
// recent records.
type Query struct {
	Since time.Time
	Until time.Time
	Kind  pipeline.Kind
	Limit int
}

// Match reports whether r passes the time and kind filters.
func (q Query) Match(r Record) bool {
	if !q.Since.IsZero() && r.Timestamp.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && r.Timestamp.After(q.Until) {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	return true
}

func (q Query) limit(recs []Record) []Record {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}

// Store persists records. Query returns records in append order.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}
