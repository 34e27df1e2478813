package kpi

import (
	"sort"
	"sync"
	"time"

	coremetrics "github.com/kilianp07/coldchain/core/metrics"
)

// Store aggregates decision events by day.
type Store interface {
	RecordDecision(ev coremetrics.DecisionEvent) error
	Query(start, end time.Time) ([]Record, error)
}

// MemoryStore keeps the daily buckets in memory. It is also a
// coremetrics.DecisionSink so it can sit next to the exporting sinks.
type MemoryStore struct {
	mu   sync.Mutex
	data map[time.Time]*bucket
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[time.Time]*bucket{}}
}

// RecordDecision folds ev into the bucket of its day.
func (s *MemoryStore) RecordDecision(ev coremetrics.DecisionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := Day(ev.Time)
	b := s.data[d]
	if b == nil {
		b = newBucket(d)
		s.data[d] = b
	}
	b.count++
	b.kinds[ev.Kind]++
	b.sumDays += ev.BlendedDays
	if ev.BlendedDays < b.minDays {
		b.minDays = ev.BlendedDays
	}
	b.sumTrust += ev.TrustScore
	if ev.RecoverableValue > b.recoverable {
		b.recoverable = ev.RecoverableValue
	}
	return nil
}

// Query returns the days between start and end inclusive, oldest first.
// A zero bound is open.
func (s *MemoryStore) Query(start, end time.Time) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := []Record{}
	for d, b := range s.data {
		if !start.IsZero() && d.Before(Day(start)) {
			continue
		}
		if !end.IsZero() && d.After(Day(end)) {
			continue
		}
		res = append(res, b.record())
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date.Before(res[j].Date) })
	return res, nil
}
