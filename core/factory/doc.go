// Package factory instantiates pluggable modules, such as decision sinks, from
// configuration. A module is named by a type string and carries a raw settings
// map that the registered constructor decodes into its own typed struct.
//
//	reg := factory.NewRegistry[metrics.DecisionSink]()
//	_ = reg.Register("prometheus", func(conf map[string]any) (metrics.DecisionSink, error) {
//	    var c struct{ Namespace string `json:"namespace"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newPromSink(c.Namespace)
//	})
//	sink, err := reg.Create(factory.ModuleConfig{Type: "prometheus"})
package factory
