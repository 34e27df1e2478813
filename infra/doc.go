// Package infra holds the adapters around the decision engines: the MQTT
// telemetry client, the metrics sinks, Sentry reporting and logging. These
// packages depend on the contracts defined under core and never the reverse.
package infra
