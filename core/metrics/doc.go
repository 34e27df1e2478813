// Package metrics defines the observability contract of the decision
// pipeline. Sinks such as the Prometheus and InfluxDB implementations in
// infra/metrics record one DecisionEvent per evaluated telemetry sample and,
// when they implement TelemetryRecorder, the raw sensor readings as well.
// Several sinks are combined with NewMultiSink; NewDecisionSink does this
// automatically when more than one sink is configured. Package kpi keeps
// daily aggregates of the same events.
package metrics
