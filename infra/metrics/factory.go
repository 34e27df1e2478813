package metrics

import (
	"github.com/kilianp07/coldchain/core/factory"
	coremetrics "github.com/kilianp07/coldchain/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// init registers the built-in sinks: "nop", "prometheus" and "influx".
func init() {
	_ = coremetrics.RegisterDecisionSink("nop", func(map[string]any) (coremetrics.DecisionSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterDecisionSink("prometheus", func(conf map[string]any) (coremetrics.DecisionSink, error) {
		var c struct {
			Namespace string `json:"namespace"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewPromSinkWithRegistry(c.Namespace, prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterDecisionSink("influx", func(conf map[string]any) (coremetrics.DecisionSink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c), nil
	})
}
