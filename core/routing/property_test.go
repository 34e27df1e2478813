package routing

import (
	"testing"

	"github.com/kilianp07/coldchain/core/model"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestTravelTimeStrictlyIncreasingInDistance(t *testing.T) {
	o, _ := New(DefaultConfig())
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("longer distance means longer travel", prop.ForAll(
		func(d, extra float64, road int) bool {
			r := model.RoadCondition(road)
			t1, _ := o.TravelTime(d, r)
			t2, _ := o.TravelTime(d+extra, r)
			return t2 > t1
		},
		gen.Float64Range(0, 1000),
		gen.Float64Range(0.001, 500),
		gen.IntRange(0, 2),
	))

	properties.TestingRun(t)
}

func TestAllBlockedAlwaysDumps(t *testing.T) {
	o, _ := New(DefaultConfig())
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("blocked roads never yield a destination", prop.ForAll(
		func(dists []float64, days float64) bool {
			fs := make([]model.Facility, len(dists))
			for i, d := range dists {
				fs[i] = model.Facility{Name: "f", DistanceKm: d, Road: model.RoadBlocked}
			}
			res := o.Optimize(fs, days)
			return res.Outcome == OutcomeDump && res.Viable == 0 && res.Selected == nil
		},
		gen.SliceOf(gen.Float64Range(0, 500)),
		gen.Float64Range(0, 30),
	))

	properties.TestingRun(t)
}
