// Package server exposes the read-only query API over the engine's snapshot
// store: current parameter estimates, on-demand fair values and the latest
// quotes, plus liveness and readiness probes.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"MertonQuote/internal/engine"
	"MertonQuote/internal/observability"

	"github.com/rs/zerolog"
)

// QueryServer serves HTTP/JSON queries against the snapshot store. It never
// touches the engine's calibrators directly, so slow or abusive clients
// cannot stall the tick path.
type QueryServer struct {
	store   *engine.SnapshotStore
	health  *observability.HealthChecker
	metrics *observability.Metrics
	logger  zerolog.Logger
}

func NewQueryServer(
	store *engine.SnapshotStore,
	health *observability.HealthChecker,
	metrics *observability.Metrics,
) *QueryServer {
	return &QueryServer{
		store:   store,
		health:  health,
		metrics: metrics,
		logger:  observability.NewLogger("query_server"),
	}
}

// Handler builds the route table.
func (s *QueryServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/markets", s.instrument("markets", s.handleMarkets))
	mux.HandleFunc("/v1/params", s.instrument("params", s.handleParams))
	mux.HandleFunc("/v1/quote", s.instrument("quote", s.handleQuote))
	mux.HandleFunc("/v1/samples", s.instrument("samples", s.handleSamples))
	mux.HandleFunc("/v1/fairvalue", s.instrument("fairvalue", s.handleFairValue))
	mux.HandleFunc("/healthz", s.health.LivenessHandler)
	mux.HandleFunc("/readyz", s.health.ReadinessHandler)
	return mux
}

// instrument wraps a handler with request counting and latency observation.
func (s *QueryServer) instrument(endpoint string, h func(http.ResponseWriter, *http.Request) int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := h(w, r)
		s.metrics.QueryRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
		s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

func (s *QueryServer) handleMarkets(w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodGet {
		return writeError(w, http.StatusMethodNotAllowed, "GET only")
	}
	return writeJSON(w, http.StatusOK, map[string]interface{}{
		"markets": s.store.Markets(),
	})
}

func (s *QueryServer) handleParams(w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodGet {
		return writeError(w, http.StatusMethodNotAllowed, "GET only")
	}
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		return writeError(w, http.StatusBadRequest, "missing symbol")
	}
	snap, ok := s.store.Get(symbol)
	if !ok {
		return writeError(w, http.StatusNotFound, "unknown symbol")
	}

	return writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":            symbol,
		"sigma":             snap.Params.Sigma,
		"lambda":            snap.Params.Lambda,
		"mu_j":              snap.Params.MuJ,
		"delta_j":           snap.Params.DeltaJ,
		"samples":           snap.SampleCount,
		"funding_rate_8h":   snap.FundingRatePer8h,
		"last_timestamp_us": snap.LastTimestampUs,
	})
}

func (s *QueryServer) handleSamples(w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodGet {
		return writeError(w, http.StatusMethodNotAllowed, "GET only")
	}
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		return writeError(w, http.StatusBadRequest, "missing symbol")
	}
	snap, ok := s.store.Get(symbol)
	if !ok {
		return writeError(w, http.StatusNotFound, "unknown symbol")
	}

	return writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  symbol,
		"samples": snap.SampleCount,
	})
}

func (s *QueryServer) handleQuote(w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodGet {
		return writeError(w, http.StatusMethodNotAllowed, "GET only")
	}
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		return writeError(w, http.StatusBadRequest, "missing symbol")
	}
	snap, ok := s.store.Get(symbol)
	if !ok {
		return writeError(w, http.StatusNotFound, "unknown symbol")
	}
	if !snap.HasQuote {
		return writeError(w, http.StatusNotFound, "no quote yet")
	}

	return writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":       symbol,
		"theo":         snap.LastQuote.Theo,
		"mid":          snap.LastQuote.Mid,
		"bid":          snap.LastQuote.Bid,
		"ask":          snap.LastQuote.Ask,
		"half_spread":  snap.LastQuote.HalfSpread,
		"diff_bps":     snap.LastQuote.DiffBps,
		"timestamp_us": snap.LastTimestampUs,
	})
}

// handleFairValue prices an arbitrary (s0, q, t, r) through the symbol's
// current parameters. curve=1 switches to the flat-forward curve variant.
func (s *QueryServer) handleFairValue(w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodGet {
		return writeError(w, http.StatusMethodNotAllowed, "GET only")
	}
	qp := r.URL.Query()

	symbol := qp.Get("symbol")
	if symbol == "" {
		return writeError(w, http.StatusBadRequest, "missing symbol")
	}
	snap, ok := s.store.Get(symbol)
	if !ok {
		return writeError(w, http.StatusNotFound, "unknown symbol")
	}

	s0, err := parseFloat(qp.Get("s0"))
	if err != nil || s0 <= 0 {
		return writeError(w, http.StatusBadRequest, "s0 must be a positive number")
	}
	t, err := parseFloat(qp.Get("t"))
	if err != nil || t <= 0 {
		return writeError(w, http.StatusBadRequest, "t must be a positive number")
	}
	carry, err := parseFloatDefault(qp.Get("q"), 0)
	if err != nil {
		return writeError(w, http.StatusBadRequest, "q must be a number")
	}
	rate, err := parseFloatDefault(qp.Get("r"), 0)
	if err != nil {
		return writeError(w, http.StatusBadRequest, "r must be a number")
	}

	useCurve := qp.Get("curve") == "1"

	var fv float64
	if useCurve {
		fv = snap.Params.FairValueCurve(s0, carry, t, rate)
	} else {
		fv = snap.Params.FairValue(s0, carry, t, rate)
	}

	return writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":     symbol,
		"fair_value": fv,
		"s0":         s0,
		"q":          carry,
		"t":          t,
		"r":          rate,
		"curve":      useCurve,
	})
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func parseFloatDefault(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseFloat(s, 64)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
	return status
}

func writeError(w http.ResponseWriter, status int, msg string) int {
	return writeJSON(w, status, map[string]string{"error": msg})
}
