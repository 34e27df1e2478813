package decisionlog

import (
	"context"
	"sync"

	"github.com/kilianp07/coldchain/core/history"
)

// MemoryStore keeps the most recent records in memory.
type MemoryStore struct {
	mu   sync.Mutex
	ring *history.Ring[Record]
}

// NewMemoryStore keeps at most capacity records.
func NewMemoryStore(capacity int) (*MemoryStore, error) {
	r, err := history.NewRing[Record](capacity)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{ring: r}, nil
}

func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	s.ring.Push(rec)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Query(_ context.Context, q Query) ([]Record, error) {
	s.mu.Lock()
	recs := s.ring.Snapshot()
	s.mu.Unlock()
	var res []Record
	for _, r := range recs {
		if q.Match(r) {
			res = append(res, r)
		}
	}
	return q.limit(res), nil
}

func (s *MemoryStore) Close() error { return nil }
