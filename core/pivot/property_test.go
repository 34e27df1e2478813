package pivot

import (
	"testing"

	"github.com/kilianp07/coldchain/core/model"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestRecoverableNeverExceedsCargo(t *testing.T) {
	e, _ := New(DefaultMarkets())
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("recoverable value is bounded by cargo value", prop.ForAll(
		func(cargo, remaining float64) bool {
			res := e.FindRescue(cargo, remaining)
			return res.RecoverableValue <= cargo && res.RecoverableValue >= 0 && res.Destination != nil
		},
		gen.Float64Range(0, 1e7),
		gen.Float64Range(0, 48),
	))

	properties.Property("nothing reachable means critical emergency dump", prop.ForAll(
		func(cargo, remaining float64) bool {
			res := e.FindRescue(cargo, remaining)
			return res.Status == StatusEmergencyDump && res.Severity == model.SeverityCritical && res.Destination.Market.Fallback
		},
		gen.Float64Range(0, 1e7),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}
