package history

import (
	"sync"

	"github.com/kilianp07/coldchain/core/model"
)

// Default capacities of the session logs.
const (
	DefaultTelemetryCapacity = 1000
	DefaultChaosCapacity     = 100
	DefaultTrendCapacity     = 100
)

// Config sizes the session logs.
type Config struct {
	TelemetryCapacity int `json:"telemetry_capacity"`
	ChaosCapacity     int `json:"chaos_capacity"`
	TrendCapacity     int `json:"trend_capacity"`
}

// SetDefaults fills zero capacities.
func (c *Config) SetDefaults() {
	if c.TelemetryCapacity == 0 {
		c.TelemetryCapacity = DefaultTelemetryCapacity
	}
	if c.ChaosCapacity == 0 {
		c.ChaosCapacity = DefaultChaosCapacity
	}
	if c.TrendCapacity == 0 {
		c.TrendCapacity = DefaultTrendCapacity
	}
}

// TrendPoint is one (remaining days, decay rate) observation.
type TrendPoint struct {
	Days      float64 `json:"days"`
	Rate      float64 `json:"rate"`
	Timestamp int64   `json:"timestamp"`
}

// View is an immutable snapshot of the session taken under its lock.
type View struct {
	Telemetry []model.TelemetrySample
	Chaos     []model.ChaosEvent
	ChaosMode bool
}

// Session is the per-shipment context passed to every evaluation. It owns
// the rolling logs and the mutex that serializes observe-and-snapshot.
type Session struct {
	mu        sync.Mutex
	telemetry *Ring[model.TelemetrySample]
	chaos     *Ring[model.ChaosEvent]
	trend     *Ring[TrendPoint]
	chaosMode bool
}

// NewSession builds a session. Zero capacities take the defaults.
func NewSession(cfg Config) (*Session, error) {
	cfg.SetDefaults()
	tel, err := NewRing[model.TelemetrySample](cfg.TelemetryCapacity)
	if err != nil {
		return nil, err
	}
	ch, err := NewRing[model.ChaosEvent](cfg.ChaosCapacity)
	if err != nil {
		return nil, err
	}
	tr, err := NewRing[TrendPoint](cfg.TrendCapacity)
	if err != nil {
		return nil, err
	}
	return &Session{telemetry: tel, chaos: ch, trend: tr}, nil
}

// Observe appends the sample and returns a snapshot that includes it.
func (s *Session) Observe(sample model.TelemetrySample) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.telemetry.Push(sample)
	return s.viewLocked()
}

// View returns a snapshot without recording anything.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	return View{
		Telemetry: s.telemetry.Snapshot(),
		Chaos:     s.chaos.Snapshot(),
		ChaosMode: s.chaosMode,
	}
}

// RecordChaos logs an operator-triggered chaos event.
func (s *Session) RecordChaos(ev model.ChaosEvent) {
	s.mu.Lock()
	s.chaos.Push(ev)
	s.mu.Unlock()
}

// ToggleChaos flips chaos mode and returns the new state. Turning it on
// records a chaos event stamped with ts.
func (s *Session) ToggleChaos(ts int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chaosMode = !s.chaosMode
	if s.chaosMode {
		s.chaos.Push(model.ChaosEvent{Type: "chaos_mode_activated", Timestamp: ts})
	}
	return s.chaosMode
}

// SetChaos sets chaos mode and returns whether it changed. Switching it on
// records a chaos event stamped with ts.
func (s *Session) SetChaos(on bool, ts int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chaosMode == on {
		return false
	}
	s.chaosMode = on
	if on {
		s.chaos.Push(model.ChaosEvent{Type: "chaos_mode_activated", Timestamp: ts})
	}
	return true
}

// ChaosMode reports whether chaos mode is active.
func (s *Session) ChaosMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chaosMode
}

// RecordTrend appends a trend point and returns the trend log.
func (s *Session) RecordTrend(p TrendPoint) []TrendPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trend.Push(p)
	return s.trend.Snapshot()
}

// Trend returns the trend log, oldest first.
func (s *Session) Trend() []TrendPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trend.Snapshot()
}

// Reset clears every log and disables chaos mode.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.telemetry.Reset()
	s.chaos.Reset()
	s.trend.Reset()
	s.chaosMode = false
}
