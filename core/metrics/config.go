package metrics

import "github.com/kilianp07/coldchain/core/factory"

// Config lists the sinks to build and where Prometheus is served.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr serves /metrics when set, for example ":9090".
	PrometheusAddr string `json:"prometheus_addr"`
}
