package prediction

import "sync"

// MockPredictor returns a fixed value or error and counts calls.
type MockPredictor struct {
	Days float64
	Err  error

	mu    sync.Mutex
	calls []Features
}

// PredictShelfLife returns the configured value or error.
func (m *MockPredictor) PredictShelfLife(f Features) (float64, error) {
	m.mu.Lock()
	m.calls = append(m.calls, f)
	m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Days, nil
}

// Calls returns a copy of the features seen so far.
func (m *MockPredictor) Calls() []Features {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Features, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// PredictorFunc adapts a function to ShelfLifePredictor.
type PredictorFunc func(Features) (float64, error)

func (fn PredictorFunc) PredictShelfLife(f Features) (float64, error) { return fn(f) }
