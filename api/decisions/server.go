// Package decisions exposes the decision service over HTTP.
package decisions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/kilianp07/coldchain/core/decisionlog"
	"github.com/kilianp07/coldchain/core/forecast"
	"github.com/kilianp07/coldchain/core/liability"
	"github.com/kilianp07/coldchain/core/logger"
	"github.com/kilianp07/coldchain/core/metrics/kpi"
	"github.com/kilianp07/coldchain/core/model"
	"github.com/kilianp07/coldchain/core/pipeline"
	"github.com/kilianp07/coldchain/core/pivot"
	"github.com/kilianp07/coldchain/core/shelflife"
	"github.com/kilianp07/coldchain/core/trust"
	"github.com/kilianp07/coldchain/pkg/export"
)

// Status summarizes the running service.
type Status struct {
	ChaosMode          bool                  `json:"chaos_mode"`
	Readings           int                   `json:"readings"`
	Weights            shelflife.Weights     `json:"weights"`
	PredictorAvailable bool                  `json:"predictor_available"`
	Source             string                `json:"source"`
	LastDecision       *time.Time            `json:"last_decision,omitempty"`
	DroppedEvents      uint64                `json:"dropped_events"`
	Curve              []forecast.CurvePoint `json:"curve,omitempty"`
}

// TrustStats is the body of GET /api/v1/trust/stats.
type TrustStats struct {
	Available  bool        `json:"available"`
	Statistics trust.Stats `json:"statistics"`
	Trend      string      `json:"trend"`
}

// Service is what the handlers need from the running application.
type Service interface {
	Evaluate(ctx context.Context, req pipeline.Request) (pipeline.Bundle, error)
	Latest() (pipeline.Bundle, bool)
	Decisions(ctx context.Context, q decisionlog.Query) ([]decisionlog.Record, error)
	Markets() []model.SecondaryMarket
	Triage(cargoValue, remainingHours, primaryETAHours float64, travelTimes map[string]float64) (pivot.Result, error)
	SetChaos(on bool) bool
	ChaosMode() bool
	Status() Status
	TrustStatistics() TrustStats
	LiabilityReport(delayHours float64) liability.Report
	KPIs(since, until time.Time) ([]kpi.Record, error)
}

// Server routes /api/v1 requests to a Service.
type Server struct {
	svc    Service
	token  string
	log    logger.Logger
	router *mux.Router
}

// NewServer builds the router. A non-empty token protects the mutating and
// audit routes with a bearer token.
func NewServer(svc Service, token string, log logger.Logger) *Server {
	s := &Server{svc: svc, token: token, log: logger.OrNop(log), router: mux.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(jsonMiddleware)
	api.HandleFunc("/decisions/latest", s.handleLatest).Methods(http.MethodGet)
	api.HandleFunc("/markets", s.handleMarkets).Methods(http.MethodGet)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/trust/stats", s.handleTrustStats).Methods(http.MethodGet)
	api.HandleFunc("/liability/report", s.handleLiability).Methods(http.MethodGet)
	api.HandleFunc("/kpi", s.handleKPIs).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(s.authMiddleware)
	protected.HandleFunc("/evaluate", s.handleEvaluate).Methods(http.MethodPost)
	protected.HandleFunc("/decisions", s.handleDecisions).Methods(http.MethodGet)
	protected.HandleFunc("/pivot", s.handlePivot).Methods(http.MethodPost)
	protected.HandleFunc("/chaos", s.handleChaos).Methods(http.MethodPost)

	s.router.Use(s.loggingMiddleware)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// Router returns the configured router.
func (s *Server) Router() *mux.Router { return s.router }

// ListenAndServe serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debugf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorBody{Error: message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	b, err := s.svc.Evaluate(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, model.ErrConfiguration) {
			status = http.StatusBadRequest
		}
		respondError(w, status, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	b, ok := s.svc.Latest()
	if !ok {
		respondError(w, http.StatusNotFound, "no decision yet")
		return
	}
	respondJSON(w, http.StatusOK, b)
}

// decisionQuery parses since, until (RFC3339), kind and limit.
func decisionQuery(r *http.Request) (decisionlog.Query, error) {
	var q decisionlog.Query
	var err error
	if q.Since, q.Until, err = timeRange(r); err != nil {
		return q, err
	}
	v := r.URL.Query()
	if s := v.Get("kind"); s != "" {
		k, err := pipeline.ParseKind(s)
		if err != nil {
			return q, err
		}
		q.Kind = k
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, errors.New("limit must be a non-negative integer")
		}
		q.Limit = n
	}
	return q, nil
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	q, err := decisionQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	recs, err := s.svc.Decisions(r.Context(), q)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, format, recs); err != nil {
		s.log.Errorf("export decisions: %v", err)
	}
}

// timeRange parses the optional since and until parameters (RFC3339).
func timeRange(r *http.Request) (since, until time.Time, err error) {
	v := r.URL.Query()
	if s := v.Get("since"); s != "" {
		if since, err = time.Parse(time.RFC3339, s); err != nil {
			return since, until, errors.New("since must be RFC3339")
		}
	}
	if s := v.Get("until"); s != "" {
		if until, err = time.Parse(time.RFC3339, s); err != nil {
			return since, until, errors.New("until must be RFC3339")
		}
	}
	return since, until, nil
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	since, until, err := timeRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	recs, err := s.svc.KPIs(since, until)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

func (s *Server) handleMarkets(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.svc.Markets())
}

// PivotRequest is the body of POST /api/v1/pivot. Missing values take the
// defaults of a typical urgent shipment.
type PivotRequest struct {
	CargoValue      *float64           `json:"cargo_value"`
	RemainingHours  *float64           `json:"remaining_shelf_life_hrs"`
	PrimaryETAHours *float64           `json:"original_eta_hrs"`
	TravelTimes     map[string]float64 `json:"travel_times"`
}

// Defaults of POST /api/v1/pivot.
const (
	DefaultPivotCargoValue = 700000
	DefaultPivotRemaining  = 3.0
	DefaultPivotETA        = 4.0
)

// PivotResponse echoes the effective inputs next to the triage.
type PivotResponse struct {
	Triage  pivot.Result            `json:"triage"`
	Markets []model.SecondaryMarket `json:"available_markets"`
	Input   PivotInput              `json:"input_values"`
}

// PivotInput is the effective triage input.
type PivotInput struct {
	CargoValue      float64            `json:"cargo_value"`
	RemainingHours  float64            `json:"remaining_shelf_life_hrs"`
	PrimaryETAHours float64            `json:"original_eta_hrs"`
	TravelTimes     map[string]float64 `json:"travel_times,omitempty"`
}

func orDefault(v *float64, d float64) float64 {
	if v == nil {
		return d
	}
	return *v
}

func (s *Server) handlePivot(w http.ResponseWriter, r *http.Request) {
	var req PivotRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
	}
	in := PivotInput{
		CargoValue:      orDefault(req.CargoValue, DefaultPivotCargoValue),
		RemainingHours:  orDefault(req.RemainingHours, DefaultPivotRemaining),
		PrimaryETAHours: orDefault(req.PrimaryETAHours, DefaultPivotETA),
		TravelTimes:     req.TravelTimes,
	}
	res, err := s.svc.Triage(in.CargoValue, in.RemainingHours, in.PrimaryETAHours, in.TravelTimes)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, PivotResponse{Triage: res, Markets: s.svc.Markets(), Input: in})
}

type chaosBody struct {
	Enabled *bool `json:"enabled"`
}

type chaosState struct {
	ChaosMode bool `json:"chaos_mode"`
}

// handleChaos sets chaos mode from {"enabled": bool} or toggles it when the
// field is absent.
func (s *Server) handleChaos(w http.ResponseWriter, r *http.Request) {
	var body chaosBody
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
	}
	on := !s.svc.ChaosMode()
	if body.Enabled != nil {
		on = *body.Enabled
	}
	s.svc.SetChaos(on)
	respondJSON(w, http.StatusOK, chaosState{ChaosMode: s.svc.ChaosMode()})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.svc.Status())
}

func (s *Server) handleTrustStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.svc.TrustStatistics())
}

func (s *Server) handleLiability(w http.ResponseWriter, r *http.Request) {
	delay := 0.0
	if v := r.URL.Query().Get("delay_hours"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil || d < 0 {
			respondError(w, http.StatusBadRequest, "delay_hours must be a non-negative number")
			return
		}
		delay = d
	}
	respondJSON(w, http.StatusOK, s.svc.LiabilityReport(delay))
}
