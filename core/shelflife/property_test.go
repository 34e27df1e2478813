package shelflife

import (
	"testing"

	"github.com/kilianp07/coldchain/core/model"
	"github.com/kilianp07/coldchain/core/prediction"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestPhysicsDecayMonotonicInTemperature(t *testing.T) {
	e, _ := New(DefaultConfig(), nil, nil)
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("warmer cargo never lasts longer", prop.ForAll(
		func(t1, dt, h, v float64) bool {
			t2 := t1 + dt
			r1, _ := e.DecayRate(t1, h, v)
			r2, _ := e.DecayRate(t2, h, v)
			return e.PhysicsDays(r2) <= e.PhysicsDays(r1)
		},
		gen.Float64Range(4, 60),
		gen.Float64Range(0, 30),
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 2),
	))

	properties.TestingRun(t)
}

func TestBlendedDaysNeverNegative(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("blended days are non-negative for any prediction", prop.ForAll(
		func(pred, temp, hum, vib float64) bool {
			e, err := New(DefaultConfig(), &prediction.MockPredictor{Days: pred}, nil)
			if err != nil {
				return false
			}
			est := e.Estimate(model.TelemetrySample{Temperature: temp, Humidity: hum, Vibration: vib}, model.RoadGood)
			return est.BlendedDays >= 0 && est.PhysicsDays >= 0
		},
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(-40, 80),
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 5),
	))

	properties.TestingRun(t)
}
