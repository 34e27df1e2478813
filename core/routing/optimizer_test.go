package routing

import (
	"encoding/json"
	"testing"

	"github.com/kilianp07/coldchain/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultFacilities() []model.Facility {
	return []model.Facility{
		{Name: "Center_A", DistanceKm: 45, CapacityPercent: 75, Road: model.RoadGood},
		{Name: "Center_B", DistanceKm: 60, CapacityPercent: 85, Road: model.RoadGood},
		{Name: "Original", DistanceKm: 30, CapacityPercent: 60, Road: model.RoadGood},
	}
}

func newOptimizer(t *testing.T) *Optimizer {
	t.Helper()
	o, err := New(DefaultConfig())
	require.NoError(t, err)
	return o
}

func TestOptimize_ProceedsToOriginal(t *testing.T) {
	res := newOptimizer(t).Optimize(defaultFacilities(), 8)
	require.Equal(t, OutcomeProceed, res.Outcome)
	require.NotNil(t, res.Selected)
	assert.Equal(t, "Original", res.Selected.Facility.Name)
	assert.Equal(t, 3, res.Viable)
	assert.False(t, res.Urgent)
	assert.Equal(t, "PROCEED_AS_PLANNED", res.Action())
	assert.InDelta(t, 0.5, res.Selected.TravelTimeHours, 1e-9)
	assert.InDelta(t, 8*24-0.5, res.Selected.MarginHours, 1e-9)
	assert.Equal(t, model.SeverityNormal, res.Risk.Level)

	alts := Alternatives(res)
	require.Len(t, alts, 2)
	assert.Equal(t, "Center_A", alts[0].Facility.Name)
	assert.Equal(t, "Center_B", alts[1].Facility.Name)
	assert.Contains(t, res.Explanation, "Rerouted to Original")
}

func TestOptimize_AllBlocked(t *testing.T) {
	fs := defaultFacilities()
	for i := range fs {
		fs[i].Road = model.RoadBlocked
	}
	res := newOptimizer(t).Optimize(fs, 8)
	assert.Equal(t, OutcomeDump, res.Outcome)
	assert.Equal(t, ReasonNoViable, res.Reason)
	assert.Zero(t, res.Viable)
	assert.Nil(t, res.Selected)
	assert.Equal(t, model.SeverityCritical, res.Risk.Level)
	assert.Equal(t, "CONTACT_DISPATCH", res.Action())
	for i, c := range res.Candidates {
		assert.False(t, c.Reachable)
		assert.Equal(t, fs[i].Name, c.Facility.Name)
	}
}

func TestOptimize_NegativeMargin(t *testing.T) {
	fs := []model.Facility{{Name: "Far", DistanceKm: 600, CapacityPercent: 10, Road: model.RoadPoor}}
	res := newOptimizer(t).Optimize(fs, 0.5)
	assert.Equal(t, OutcomeDump, res.Outcome)
	assert.Contains(t, res.Reason, "negative")
	assert.Equal(t, 1, res.Viable)
	assert.Equal(t, "DUMP_PRODUCT", res.Action())
}

func TestOptimize_OverCapacityNotViable(t *testing.T) {
	fs := []model.Facility{
		{Name: "Full", DistanceKm: 10, CapacityPercent: 95, Road: model.RoadGood},
		{Name: "Ok", DistanceKm: 90, CapacityPercent: 90, Road: model.RoadModerate},
	}
	res := newOptimizer(t).Optimize(fs, 3)
	require.Equal(t, OutcomeProceed, res.Outcome)
	assert.Equal(t, "Ok", res.Selected.Facility.Name)
	assert.Equal(t, RiskHigh, res.Candidates[1].Risk)
	assert.Equal(t, model.SeverityHigh, res.Risk.Level)
	assert.InDelta(t, 2.0, res.Selected.TravelTimeHours, 1e-9)
}

func TestOptimize_UrgentBelowCriticalMargin(t *testing.T) {
	fs := []model.Facility{{Name: "Near", DistanceKm: 60, CapacityPercent: 10, Road: model.RoadGood}}
	res := newOptimizer(t).Optimize(fs, 2.5/24)
	require.Equal(t, OutcomeProceed, res.Outcome)
	assert.True(t, res.Urgent)
	assert.Equal(t, "URGENT_DELIVERY", res.Action())
}

func TestOptimize_TieBreakFirstInInput(t *testing.T) {
	fs := []model.Facility{
		{Name: "First", DistanceKm: 30, CapacityPercent: 20, Road: model.RoadGood},
		{Name: "Second", DistanceKm: 30, CapacityPercent: 20, Road: model.RoadGood},
	}
	res := newOptimizer(t).Optimize(fs, 4)
	assert.Equal(t, "First", res.Selected.Facility.Name)
}

func TestOptimize_Idempotent(t *testing.T) {
	o := newOptimizer(t)
	a, _ := json.Marshal(o.Optimize(defaultFacilities(), 6))
	b, _ := json.Marshal(o.Optimize(defaultFacilities(), 6))
	assert.JSONEq(t, string(a), string(b))
}

func TestTravelTime_Speeds(t *testing.T) {
	o := newOptimizer(t)
	h, ok := o.TravelTime(90, model.RoadModerate)
	assert.True(t, ok)
	assert.InDelta(t, 2.0, h, 1e-9)
	h, _ = o.TravelTime(90, model.RoadPoor)
	assert.InDelta(t, 3.0, h, 1e-9)
	_, ok = o.TravelTime(90, model.RoadBlocked)
	assert.False(t, ok)
}

func TestNew_RejectsBadSpeeds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Speeds["Good"] = 0
	_, err := New(cfg)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
