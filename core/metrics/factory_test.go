package metrics_test

import (
	"errors"
	"testing"

	"github.com/kilianp07/coldchain/core/factory"
	"github.com/kilianp07/coldchain/core/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countSink struct {
	decisions int
	telemetry int
	err       error
}

func (c *countSink) RecordDecision(metrics.DecisionEvent) error {
	c.decisions++
	return c.err
}

func (c *countSink) RecordTelemetry(metrics.TelemetryEvent) error {
	c.telemetry++
	return nil
}

type decisionsOnly struct{ n int }

func (d *decisionsOnly) RecordDecision(metrics.DecisionEvent) error {
	d.n++
	return nil
}

func init() {
	_ = metrics.RegisterDecisionSink("counting", func(map[string]any) (metrics.DecisionSink, error) {
		return &countSink{}, nil
	})
}

func TestNewDecisionSink(t *testing.T) {
	s, err := metrics.NewDecisionSink(nil)
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	s, err = metrics.NewDecisionSink([]factory.ModuleConfig{{Type: "counting"}})
	require.NoError(t, err)
	assert.IsType(t, &countSink{}, s)

	s, err = metrics.NewDecisionSink([]factory.ModuleConfig{{Type: "counting"}, {Type: "counting"}})
	require.NoError(t, err)
	m, ok := s.(*metrics.MultiSink)
	require.True(t, ok)
	assert.Len(t, m.Sinks, 2)

	_, err = metrics.NewDecisionSink([]factory.ModuleConfig{{Type: "missing"}})
	assert.Error(t, err)
}

func TestMultiSink_ForwardsAndJoinsErrors(t *testing.T) {
	failing := &countSink{err: errors.New("down")}
	ok := &countSink{}
	plain := &decisionsOnly{}
	m := metrics.NewMultiSink(failing, ok, plain)

	err := m.RecordDecision(metrics.DecisionEvent{ID: "1"})
	assert.ErrorContains(t, err, "down")
	assert.Equal(t, 1, failing.decisions)
	assert.Equal(t, 1, ok.decisions)
	assert.Equal(t, 1, plain.n)

	require.NoError(t, m.RecordTelemetry(metrics.TelemetryEvent{}))
	assert.Equal(t, 1, failing.telemetry)
	assert.Equal(t, 1, ok.telemetry)
}

type closingSink struct {
	decisionsOnly
	closed bool
}

func (c *closingSink) Close() { c.closed = true }

func TestClose(t *testing.T) {
	a, b := &closingSink{}, &closingSink{}
	m := metrics.NewMultiSink(a, &decisionsOnly{}, b)
	metrics.Close(m)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.NotPanics(t, func() { metrics.Close(metrics.NopSink{}) })
}
