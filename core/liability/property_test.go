package liability

import (
	"testing"

	"github.com/kilianp07/coldchain/core/model"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestSharesSumToAtMostHundred(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("attribution percentages sum to at most 100", prop.ForAll(
		func(temps, vibes []float64, delay float64) bool {
			n := len(temps)
			if len(vibes) < n {
				n = len(vibes)
			}
			h := make([]model.TelemetrySample, n)
			for i := 0; i < n; i++ {
				h[i] = model.TelemetrySample{Temperature: temps[i], Vibration: vibes[i]}
			}
			a := Attribute(h, delay)
			sum := a.Temperature.Percent + a.Vibration.Percent + a.Delay.Percent
			return sum <= 100.0001 && sum >= 0 && a.TotalDamagePercent <= 100
		},
		gen.SliceOf(gen.Float64Range(-20, 60)),
		gen.SliceOf(gen.Float64Range(0, 3)),
		gen.Float64Range(0, 48),
	))

	properties.TestingRun(t)
}
