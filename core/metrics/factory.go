package metrics

import "github.com/kilianp07/coldchain/core/factory"

var sinkRegistry = factory.NewRegistry[DecisionSink]()

// RegisterDecisionSink adds a sink factory under name.
func RegisterDecisionSink(name string, f factory.Factory[DecisionSink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes lists the registered sink types.
func SinkTypes() []string { return sinkRegistry.Types() }

// NewDecisionSink builds the configured sinks. No configuration yields a
// NopSink and several yield a MultiSink.
func NewDecisionSink(cfgs []factory.ModuleConfig) (DecisionSink, error) {
	switch len(cfgs) {
	case 0:
		return NopSink{}, nil
	case 1:
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]DecisionSink, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}
