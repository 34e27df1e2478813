package decisions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/coldchain/core/decisionlog"
	"github.com/kilianp07/coldchain/core/liability"
	"github.com/kilianp07/coldchain/core/metrics/kpi"
	"github.com/kilianp07/coldchain/core/model"
	"github.com/kilianp07/coldchain/core/pipeline"
	"github.com/kilianp07/coldchain/core/pivot"
)

type fakeService struct {
	latest    *pipeline.Bundle
	evalErr   error
	lastReq   pipeline.Request
	lastQuery decisionlog.Query
	records   []decisionlog.Record
	chaos     bool
	triageIn  []float64
	travel    map[string]float64
	delay     float64
	kpiRange  [2]time.Time
}

func (f *fakeService) KPIs(since, until time.Time) ([]kpi.Record, error) {
	f.kpiRange = [2]time.Time{since, until}
	return []kpi.Record{{Date: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), Decisions: 3, Kinds: map[pipeline.Kind]int{pipeline.KindProceed: 3}}}, nil
}

func (f *fakeService) Evaluate(_ context.Context, req pipeline.Request) (pipeline.Bundle, error) {
	f.lastReq = req
	if f.evalErr != nil {
		return pipeline.Bundle{}, f.evalErr
	}
	b := pipeline.Bundle{ID: "b1", Sample: req.Sample, Decision: pipeline.Proceed{Destination: "Original"}}
	f.latest = &b
	return b, nil
}

func (f *fakeService) Latest() (pipeline.Bundle, bool) {
	if f.latest == nil {
		return pipeline.Bundle{}, false
	}
	return *f.latest, true
}

func (f *fakeService) Decisions(_ context.Context, q decisionlog.Query) ([]decisionlog.Record, error) {
	f.lastQuery = q
	return f.records, nil
}

func (f *fakeService) Markets() []model.SecondaryMarket { return pivot.DefaultMarkets() }

func (f *fakeService) Triage(cargo, remaining, eta float64, travel map[string]float64) (pivot.Result, error) {
	f.triageIn = []float64{cargo, remaining, eta}
	f.travel = travel
	if travel["Unknown"] > 0 {
		return pivot.Result{}, errors.New("unknown market Unknown")
	}
	return pivot.Result{Status: "RESCUE", CargoValue: cargo}, nil
}

func (f *fakeService) SetChaos(on bool) bool {
	changed := f.chaos != on
	f.chaos = on
	return changed
}

func (f *fakeService) ChaosMode() bool { return f.chaos }

func (f *fakeService) Status() Status { return Status{ChaosMode: f.chaos, Readings: 3, Source: "sim"} }

func (f *fakeService) TrustStatistics() TrustStats {
	return TrustStats{Available: true, Trend: "STABLE"}
}

func (f *fakeService) LiabilityReport(delay float64) liability.Report {
	f.delay = delay
	return liability.Report{}
}

func do(t *testing.T, h http.Handler, method, target, body string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := do(t, NewServer(&fakeService{}, "", nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestEvaluateAndLatest(t *testing.T) {
	svc := &fakeService{}
	srv := NewServer(svc, "", nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/decisions/latest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/v1/evaluate", `{"sample":{"temperature":4,"humidity":50,"vibration":0.1},"cargo_value":1000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, 4.0, svc.lastReq.Sample.Temperature)
	assert.Equal(t, 1000.0, svc.lastReq.CargoValue)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "b1", body["id"])
	assert.Equal(t, "PROCEED", body["decision"].(map[string]any)["kind"])

	rec = do(t, srv, http.MethodGet, "/api/v1/decisions/latest", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEvaluate_Errors(t *testing.T) {
	svc := &fakeService{}
	srv := NewServer(svc, "", nil)
	rec := do(t, srv, http.MethodPost, "/api/v1/evaluate", `{bad`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.evalErr = fmt.Errorf("weights: %w", model.ErrConfiguration)
	rec = do(t, srv, http.MethodPost, "/api/v1/evaluate", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.evalErr = errors.New("boom")
	rec = do(t, srv, http.MethodPost, "/api/v1/evaluate", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"boom"}`, rec.Body.String())
}

func TestEvaluate_MethodNotAllowed(t *testing.T) {
	rec := do(t, NewServer(&fakeService{}, "", nil), http.MethodGet, "/api/v1/evaluate", "")
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestDecisions_Query(t *testing.T) {
	svc := &fakeService{}
	srv := NewServer(svc, "secret", nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/decisions", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/decisions?since=2026-01-02T00:00:00Z&until=2026-01-03T00:00:00Z&kind=rescue&limit=5", "", "Authorization", "Bearer secret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), svc.lastQuery.Since)
	assert.Equal(t, time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC), svc.lastQuery.Until)
	assert.Equal(t, pipeline.KindRescue, svc.lastQuery.Kind)
	assert.Equal(t, 5, svc.lastQuery.Limit)

	for _, q := range []string{"since=yesterday", "until=1", "kind=reroute", "limit=-1"} {
		rec = do(t, srv, http.MethodGet, "/api/v1/decisions?"+q, "", "Authorization", "Bearer secret")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestDecisions_CSVExport(t *testing.T) {
	svc := &fakeService{records: []decisionlog.Record{
		{ID: "r1", Timestamp: time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC), Kind: pipeline.KindRescue, Target: "Plant Alpha", BlendedDays: 0.5, CargoValue: 700000},
	}}
	srv := NewServer(svc, "", nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/decisions?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "id,timestamp,kind,target,blended_days,trust_score,cargo_value\nr1,2026-01-02T08:00:00Z,RESCUE,Plant Alpha,0.5,0,700000\n", rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/v1/decisions?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKPIs(t *testing.T) {
	svc := &fakeService{}
	srv := NewServer(svc, "secret", nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/kpi?since=2026-01-01T00:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var recs []kpi.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, 3, recs[0].Kinds[pipeline.KindProceed])
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), svc.kpiRange[0])
	assert.True(t, svc.kpiRange[1].IsZero())

	rec = do(t, srv, http.MethodGet, "/api/v1/kpi?until=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkets(t *testing.T) {
	rec := do(t, NewServer(&fakeService{}, "", nil), http.MethodGet, "/api/v1/markets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ms []model.SecondaryMarket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ms))
	assert.Len(t, ms, len(pivot.DefaultMarkets()))
}

func TestPivot(t *testing.T) {
	svc := &fakeService{}
	srv := NewServer(svc, "", nil)

	rec := do(t, srv, http.MethodPost, "/api/v1/pivot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []float64{DefaultPivotCargoValue, DefaultPivotRemaining, DefaultPivotETA}, svc.triageIn)

	rec = do(t, srv, http.MethodPost, "/api/v1/pivot", `{"cargo_value":1000,"remaining_shelf_life_hrs":1.5,"travel_times":{"Market_Beta":1}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []float64{1000, 1.5, DefaultPivotETA}, svc.triageIn)
	assert.Equal(t, map[string]float64{"Market_Beta": 1}, svc.travel)

	var resp PivotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "RESCUE", resp.Triage.Status)
	assert.Equal(t, 1000.0, resp.Input.CargoValue)
	assert.NotEmpty(t, resp.Markets)

	rec = do(t, srv, http.MethodPost, "/api/v1/pivot", `{"travel_times":{"Unknown":2}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChaos(t *testing.T) {
	svc := &fakeService{}
	srv := NewServer(svc, "", nil)

	rec := do(t, srv, http.MethodPost, "/api/v1/chaos", "")
	assert.JSONEq(t, `{"chaos_mode":true}`, rec.Body.String())
	rec = do(t, srv, http.MethodPost, "/api/v1/chaos", `{"enabled":true}`)
	assert.JSONEq(t, `{"chaos_mode":true}`, rec.Body.String())
	rec = do(t, srv, http.MethodPost, "/api/v1/chaos", `{"enabled":false}`)
	assert.JSONEq(t, `{"chaos_mode":false}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.False(t, st.ChaosMode)
	assert.Equal(t, 3, st.Readings)
}

func TestTrustAndLiability(t *testing.T) {
	svc := &fakeService{}
	srv := NewServer(svc, "", nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/trust/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"trend":"STABLE"`)

	rec = do(t, srv, http.MethodGet, "/api/v1/liability/report?delay_hours=6", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6.0, svc.delay)

	rec = do(t, srv, http.MethodGet, "/api/v1/liability/report?delay_hours=-2", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
