package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the quote service.
type Metrics struct {
	// --- Tick ingestion ---
	TicksAccepted *prometheus.CounterVec
	TicksRejected *prometheus.CounterVec
	WindowSize    *prometheus.GaugeVec

	// --- Calibration ---
	CalibrationRuns     *prometheus.CounterVec
	CalibrationDuration *prometheus.HistogramVec
	ParamSigma          *prometheus.GaugeVec
	ParamLambda         *prometheus.GaugeVec
	ParamMuJ            *prometheus.GaugeVec
	ParamDeltaJ         *prometheus.GaugeVec

	// --- Quoting ---
	QuotesComputed     *prometheus.CounterVec
	QuoteDiffBps       *prometheus.GaugeVec
	FundingRateAnnual  *prometheus.GaugeVec
	CurveDivergenceBps *prometheus.GaugeVec
	PublishDrops       prometheus.Counter

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	calibrationBuckets := []float64{
		0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0,
	}

	return &Metrics{
		TicksAccepted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "merton_ticks_accepted_total",
			Help: "Ticks that produced a valid log-return",
		}, []string{"market"}),

		TicksRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "merton_ticks_rejected_total",
			Help: "Ticks rejected (bad price, stale timestamp, first tick, out-of-order sequence)",
		}, []string{"market", "reason"}),

		WindowSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "merton_window_size",
			Help: "Current rolling-window occupancy",
		}, []string{"market"}),

		CalibrationRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "merton_calibration_runs_total",
			Help: "Gated recalibration invocations by outcome (changed/unchanged)",
		}, []string{"market", "outcome"}),

		CalibrationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "merton_calibration_duration_seconds",
			Help:    "Wall time of one coordinate-search pass",
			Buckets: calibrationBuckets,
		}, []string{"market"}),

		ParamSigma: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "merton_param_sigma",
			Help: "Current diffusion volatility estimate",
		}, []string{"market"}),

		ParamLambda: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "merton_param_lambda",
			Help: "Current jump intensity estimate (jumps/year)",
		}, []string{"market"}),

		ParamMuJ: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "merton_param_mu_j",
			Help: "Current mean log-jump estimate",
		}, []string{"market"}),

		ParamDeltaJ: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "merton_param_delta_j",
			Help: "Current log-jump standard deviation estimate",
		}, []string{"market"}),

		QuotesComputed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "merton_quotes_computed_total",
			Help: "Quotes computed from accepted ticks",
		}, []string{"market"}),

		QuoteDiffBps: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "merton_quote_diff_bps",
			Help: "Theoretical minus market mid, basis points",
		}, []string{"market"}),

		FundingRateAnnual: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "merton_funding_rate_annual",
			Help: "Annualized funding carry in use",
		}, []string{"market"}),

		CurveDivergenceBps: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "merton_curve_divergence_bps",
			Help: "Curve-based fair value minus analytic fair value, basis points",
		}, []string{"market"}),

		PublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "merton_publish_drops_total",
			Help: "Signals dropped because the publish channel was full",
		}),

		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "merton_query_requests_total",
			Help: "Query API requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "merton_query_duration_seconds",
			Help:    "Query API latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),
	}
}

// ObserveParams publishes a parameter estimate as gauges.
func (m *Metrics) ObserveParams(market string, sigma, lambda, muJ, deltaJ float64) {
	m.ParamSigma.WithLabelValues(market).Set(sigma)
	m.ParamLambda.WithLabelValues(market).Set(lambda)
	m.ParamMuJ.WithLabelValues(market).Set(muJ)
	m.ParamDeltaJ.WithLabelValues(market).Set(deltaJ)
}
