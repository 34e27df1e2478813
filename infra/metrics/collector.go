package metrics

import (
	"context"

	"github.com/kilianp07/coldchain/core/logger"
	coremetrics "github.com/kilianp07/coldchain/core/metrics"
	"github.com/kilianp07/coldchain/core/pipeline"
	"github.com/kilianp07/coldchain/internal/eventbus"
)

// StartCollector records every bundle published on bus into sink until ctx is
// canceled or the bus is closed. The returned channel is closed when the
// collector stops. Sink errors are logged and never stop the collector.
func StartCollector(ctx context.Context, bus *eventbus.TypedBus[pipeline.Bundle], sink coremetrics.DecisionSink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log = logger.OrNop(log)
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case b, ok := <-sub:
				if !ok {
					return
				}
				Record(sink, b, log)
			}
		}
	}()
	return done
}

// Record writes one bundle to sink.
func Record(sink coremetrics.DecisionSink, b pipeline.Bundle, log logger.Logger) {
	log = logger.OrNop(log)
	if r, ok := sink.(coremetrics.TelemetryRecorder); ok {
		if err := r.RecordTelemetry(coremetrics.TelemetryEvent{Sample: b.Sample, ChaosMode: b.ChaosMode, Time: b.Timestamp}); err != nil {
			log.Warnf("record telemetry: %v", err)
		}
	}
	if err := sink.RecordDecision(coremetrics.EventFromBundle(b)); err != nil {
		log.Warnf("record decision %s: %v", b.ID, err)
	}
}
