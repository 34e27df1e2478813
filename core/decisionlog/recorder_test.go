package decisionlog

import (
	"context"
	"testing"
	"time"

	"github.com/kilianp07/coldchain/core/pipeline"
	"github.com/kilianp07/coldchain/internal/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRecorder(t *testing.T) {
	store, err := NewMemoryStore(10)
	require.NoError(t, err)
	bus := eventbus.NewTyped[pipeline.Bundle](0)
	ctx, cancel := context.WithCancel(context.Background())
	done := StartRecorder(ctx, bus, store, nil)

	bus.Publish(pipeline.Bundle{ID: "x", Timestamp: time.Now(), Decision: pipeline.Proceed{Destination: "Hub"}})
	require.Eventually(t, func() bool {
		recs, _ := store.Query(context.Background(), Query{})
		return len(recs) == 1
	}, time.Second, 5*time.Millisecond)

	recs, err := store.Query(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, "Hub", recs[0].Target)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("recorder did not stop")
	}
}
