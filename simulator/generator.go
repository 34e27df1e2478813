// Package simulator produces synthetic shipment telemetry and facility
// snapshots for demos and tests.
package simulator

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/kilianp07/coldchain/core/model"
)

// Range is an inclusive [Min, Max] interval sampled uniformly.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Profile holds the sensor ranges of one operating mode.
type Profile struct {
	Temperature Range `json:"temperature"`
	Humidity    Range `json:"humidity"`
	Vibration   Range `json:"vibration"`
}

var (
	// Normal is a healthy reefer.
	Normal = Profile{
		Temperature: Range{2, 8},
		Humidity:    Range{40, 60},
		Vibration:   Range{0.1, 0.3},
	}
	// Chaos is a cooling failure on a rough road.
	Chaos = Profile{
		Temperature: Range{30, 45},
		Humidity:    Range{70, 95},
		Vibration:   Range{0.8, 1.5},
	}
)

// DefaultBlockedRate is the probability that a road to a redistribution
// center is blocked.
const DefaultBlockedRate = 0.1

type facilityTemplate struct {
	name      string
	distance  [2]int
	mayBlock  bool
	capacityR [2]int
}

var facilityTemplates = []facilityTemplate{
	{"Center_A", [2]int{30, 80}, true, [2]int{40, 95}},
	{"Center_B", [2]int{40, 100}, true, [2]int{40, 95}},
	{"Original", [2]int{20, 50}, false, [2]int{40, 95}},
}

// Generator draws telemetry and facilities. It is safe for concurrent use.
type Generator struct {
	mu          sync.Mutex
	rng         *rand.Rand
	blockedRate float64
	now         func() time.Time
}

// New returns a generator seeded with seed. A zero seed uses the clock.
func New(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		rng:         rand.New(rand.NewSource(seed)),
		blockedRate: DefaultBlockedRate,
		now:         time.Now,
	}
}

// WithBlockedRate overrides the blocked road probability.
func (g *Generator) WithBlockedRate(rate float64) *Generator {
	g.mu.Lock()
	g.blockedRate = model.Clamp(rate, 0, 1)
	g.mu.Unlock()
	return g
}

// Sample draws one reading from the normal or chaos profile.
func (g *Generator) Sample(chaos bool) model.TelemetrySample {
	p := Normal
	if chaos {
		p = Chaos
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return model.TelemetrySample{
		Temperature: round(g.uniform(p.Temperature), 1),
		Humidity:    round(g.uniform(p.Humidity), 1),
		Vibration:   round(g.uniform(p.Vibration), 2),
		Timestamp:   g.now().Unix(),
	}
}

// Facilities draws the three candidate destinations. Only the redistribution
// centers can have blocked roads.
func (g *Generator) Facilities() []model.Facility {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]model.Facility, 0, len(facilityTemplates))
	for _, t := range facilityTemplates {
		f := model.Facility{
			Name:            t.name,
			DistanceKm:      float64(g.between(t.distance)),
			CapacityPercent: float64(g.between(t.capacityR)),
			Road:            model.RoadGood,
		}
		if t.mayBlock && g.rng.Float64() < g.blockedRate {
			f.Road = model.RoadBlocked
		}
		out = append(out, f)
	}
	return out
}

// Stream emits one sample per interval until ctx is canceled. chaos is
// consulted on every tick and may be nil.
func (g *Generator) Stream(ctx context.Context, interval time.Duration, chaos func() bool) <-chan model.TelemetrySample {
	out := make(chan model.TelemetrySample)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s := g.Sample(chaos != nil && chaos())
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (g *Generator) uniform(r Range) float64 {
	return r.Min + g.rng.Float64()*(r.Max-r.Min)
}

func (g *Generator) between(r [2]int) int {
	return r[0] + g.rng.Intn(r[1]-r[0]+1)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
