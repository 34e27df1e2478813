package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kilianp07/coldchain/core/logger"
	"github.com/kilianp07/coldchain/core/pipeline"
	"github.com/kilianp07/coldchain/internal/eventbus"
)

// DecisionSummary is the payload published for every evaluation.
type DecisionSummary struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Decision    pipeline.Decision `json:"decision"`
	BlendedDays float64           `json:"blended_days"`
	Status      string            `json:"status"`
	TrustScore  float64           `json:"trust_score"`
	TrustGrade  string            `json:"trust_grade"`
	Summary     string            `json:"summary"`
	Confidence  string            `json:"confidence"`
}

// Summarize extracts the published fields of a bundle.
func Summarize(b pipeline.Bundle) DecisionSummary {
	return DecisionSummary{
		ID:          b.ID,
		Timestamp:   b.Timestamp,
		Decision:    b.Decision,
		BlendedDays: b.Estimate.BlendedDays,
		Status:      b.Estimate.Status,
		TrustScore:  b.Trust.Value,
		TrustGrade:  b.Trust.Grade,
		Summary:     b.Explanation.Summary,
		Confidence:  b.Explanation.Confidence,
	}
}

// PublishDecision publishes the summary of b on the decision topic.
func (c *Client) PublishDecision(b pipeline.Bundle) error {
	payload, err := json.Marshal(Summarize(b))
	if err != nil {
		return err
	}
	return c.Publish(c.cfg.DecisionTopic, c.cfg.qos("decision"), false, payload)
}

// DecisionPublisher publishes decision summaries.
type DecisionPublisher interface {
	PublishDecision(b pipeline.Bundle) error
}

// StartPublisher publishes every bundle on bus until ctx is canceled or the
// bus closes. The returned channel closes when it stops.
func StartPublisher(ctx context.Context, bus *eventbus.TypedBus[pipeline.Bundle], pub DecisionPublisher, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || pub == nil {
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
				if err := pub.PublishDecision(b); err != nil {
					log.Errorf("publish decision %s: %v", b.ID, err)
				}
			}
		}
	}()
	return done
}
