package decisionlog

import (
	"context"
	"time"

	"github.com/kilianp07/coldchain/core/logger"
	"github.com/kilianp07/coldchain/core/pipeline"
	"github.com/kilianp07/coldchain/internal/eventbus"
)

// Append stores one bundle. Failures are logged: the audit trail never
// blocks a decision.
func Append(ctx context.Context, store Store, b pipeline.Bundle, log logger.Logger) {
	log = logger.OrNop(log)
	rec, err := NewRecord(b)
	if err != nil {
		log.Errorf("decision log: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Append(ctx, rec); err != nil {
		log.Errorf("decision log append %s: %v", rec.ID, err)
	}
}

// StartRecorder appends every bundle published on bus until ctx is canceled or
// the bus closes. The returned channel closes when the recorder stops.
func StartRecorder(ctx context.Context, bus *eventbus.TypedBus[pipeline.Bundle], store Store, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || store == nil {
		close(done)
		return done
	}
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
				Append(context.WithoutCancel(ctx), store, b, log)
			}
		}
	}()
	return done
}
