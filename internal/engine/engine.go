package engine

import (
	"fmt"
	"time"

	"MertonQuote/internal/event"
	"MertonQuote/internal/ingestion"
	"MertonQuote/internal/merton"
	"MertonQuote/internal/observability"
	"MertonQuote/internal/quote"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options configure the quoting engine. Zero values fall back to sensible
// production defaults in New.
type Options struct {
	InitialParams    merton.Params
	CalibratorConfig merton.Config

	// HorizonYears is the pricing horizon; defaults to the next 8h funding
	// window.
	HorizonYears float64

	// RiskFreeRate is the continuously compounded rate r used by the pricer.
	RiskFreeRate float64

	// MinHalfSpreadBps floors the quoted half-spread in basis points of theo.
	MinHalfSpreadBps float64

	// CurveMonitorEveryN compares the flat-forward curve price against the
	// analytic price every N quotes per market. 0 disables the monitor.
	CurveMonitorEveryN int
}

// book is the per-market state owned by the engine goroutine.
type book struct {
	cal          *merton.Calibrator
	fundingRate  float64 // per 8h, as received from the feed
	lastSequence int64
	quoteCount   int64
	quote        quote.Quote
	hasQuote     bool
}

// Engine is the single-threaded event processor: one calibrator per market,
// fed in arrival order by exactly one goroutine. All concurrency lives at the
// edges (NATS consumers, the publisher, the query API); the engine itself
// never locks.
type Engine struct {
	instanceID uuid.UUID
	opts       Options
	books      map[string]*book
	store      *SnapshotStore
	metrics    *observability.Metrics
	logger     zerolog.Logger

	// publishChan carries quote and parameter signals to the outbound
	// publisher. Sends never block; a full channel drops the signal.
	publishChan chan<- ingestion.PublishableEvent
}

func New(
	opts Options,
	store *SnapshotStore,
	metrics *observability.Metrics,
	publishChan chan<- ingestion.PublishableEvent,
) *Engine {
	if opts.HorizonYears <= 0 {
		opts.HorizonYears = quote.DefaultHorizonYears()
	}
	if opts.MinHalfSpreadBps <= 0 {
		opts.MinHalfSpreadBps = 2.0
	}

	return &Engine{
		instanceID:  uuid.New(),
		opts:        opts,
		books:       make(map[string]*book),
		store:       store,
		metrics:     metrics,
		logger:      observability.NewLogger("engine"),
		publishChan: publishChan,
	}
}

// InstanceID identifies this engine instance in published signals.
func (e *Engine) InstanceID() uuid.UUID { return e.instanceID }

// ProcessEvent is the main processing pipeline. It must only be called from
// the engine goroutine.
func (e *Engine) ProcessEvent(evt event.Event) error {
	switch ev := evt.(type) {
	case *event.TickUpdate:
		return e.handleTick(ev)
	case *event.FundingRateSnapshot:
		return e.handleFunding(ev)
	default:
		return fmt.Errorf("unhandled event type: %s", evt.EventType())
	}
}

func (e *Engine) book(market string) *book {
	b, ok := e.books[market]
	if !ok {
		b = &book{
			cal: merton.NewCalibrator(e.opts.InitialParams, e.opts.CalibratorConfig),
		}
		e.books[market] = b
		e.logger.Info().
			Str("market", market).
			Float64("sigma0", b.cal.Params().Sigma).
			Float64("lambda0", b.cal.Params().Lambda).
			Msg("opened market book")
	}
	return b
}

func (e *Engine) handleTick(t *event.TickUpdate) error {
	b := e.book(t.Market)

	// Sequenced feeds: gaps are tolerated, regressions are dropped. An
	// unsequenced feed (Sequence == 0) skips the check entirely.
	if t.Sequence > 0 {
		if t.Sequence <= b.lastSequence {
			e.metrics.TicksRejected.WithLabelValues(t.Market, "sequence_regression").Inc()
			return nil
		}
		b.lastSequence = t.Sequence
	}

	accepted := b.cal.UpdateTick(t.Price, t.TimestampUs)
	if accepted {
		e.metrics.TicksAccepted.WithLabelValues(t.Market).Inc()
	} else {
		e.metrics.TicksRejected.WithLabelValues(t.Market, "invalid_tick").Inc()
	}
	e.metrics.WindowSize.WithLabelValues(t.Market).Set(float64(b.cal.SampleCount()))

	e.maybeRecalibrate(t.Market, b, t.TimestampUs)

	if t.Price > 0 {
		e.computeQuote(t, b)
	}

	e.commitSnapshot(t.Market, b, t.Price, t.TimestampUs)
	return nil
}

// maybeRecalibrate runs the gated coordinate search and, on a parameter
// change, publishes the new estimate and refreshes the gauges.
func (e *Engine) maybeRecalibrate(market string, b *book, tsUs int64) {
	cfg := b.cal.Config()
	gated := b.cal.SampleCount() >= cfg.MinPointsForUpdate &&
		b.cal.PendingReturns() >= cfg.UpdateEveryNReturns
	if !gated {
		return
	}

	start := time.Now()
	changed := b.cal.MaybeUpdateParams()
	elapsed := time.Since(start)

	outcome := "unchanged"
	if changed {
		outcome = "changed"
	}
	e.metrics.CalibrationRuns.WithLabelValues(market, outcome).Inc()
	e.metrics.CalibrationDuration.WithLabelValues(market).Observe(elapsed.Seconds())

	p := b.cal.Params()
	e.metrics.ObserveParams(market, p.Sigma, p.Lambda, p.MuJ, p.DeltaJ)

	if !changed {
		return
	}

	e.logger.Info().
		Str("market", market).
		Float64("sigma", p.Sigma).
		Float64("lambda", p.Lambda).
		Float64("mu_j", p.MuJ).
		Float64("delta_j", p.DeltaJ).
		Int("samples", b.cal.SampleCount()).
		Dur("took", elapsed).
		Msg("recalibrated")

	e.publish(ingestion.PublishableEvent{
		Kind:        "params",
		Symbol:      market,
		TimestampUs: tsUs,
		Payload: map[string]interface{}{
			"sigma":    p.Sigma,
			"lambda":   p.Lambda,
			"mu_j":     p.MuJ,
			"delta_j":  p.DeltaJ,
			"samples":  b.cal.SampleCount(),
			"instance": e.instanceID.String(),
		},
	})
}

// computeQuote prices the market to the configured horizon and builds a
// two-sided quote around it. Runs on every tick with a positive price, so
// quotes stay fresh even while the calibration gate holds.
func (e *Engine) computeQuote(t *event.TickUpdate, b *book) {
	p := b.cal.Params()
	qAnnual := quote.FundingAnnual(b.fundingRate)

	theo := p.FairValue(t.Price, qAnnual, e.opts.HorizonYears, e.opts.RiskFreeRate)

	mid := t.Price
	if t.Bid > 0 && t.Ask > 0 {
		mid = (t.Bid + t.Ask) / 2.0
	}

	q := quote.Compute(theo, mid, t.Bid, t.Ask, e.opts.MinHalfSpreadBps)
	b.quote = q
	b.hasQuote = true
	b.quoteCount++

	e.metrics.QuotesComputed.WithLabelValues(t.Market).Inc()
	e.metrics.QuoteDiffBps.WithLabelValues(t.Market).Set(q.DiffBps)
	e.metrics.FundingRateAnnual.WithLabelValues(t.Market).Set(qAnnual)

	if n := e.opts.CurveMonitorEveryN; n > 0 && b.quoteCount%int64(n) == 0 {
		e.monitorCurve(t.Market, p, mid, qAnnual, theo)
	}

	e.publish(ingestion.PublishableEvent{
		Kind:        "quote",
		Symbol:      t.Market,
		TimestampUs: t.TimestampUs,
		Payload:     q,
	})
}

// monitorCurve reprices through the flat-forward discount curve and records
// the gap against the analytic price. For sub-day horizons the curve rounds
// the maturity up to one day, so a small persistent gap is expected.
func (e *Engine) monitorCurve(market string, p merton.Params, mid, qAnnual, theoFast float64) {
	theoCurve := p.FairValueCurve(mid, qAnnual, e.opts.HorizonYears, e.opts.RiskFreeRate)

	var gapBps float64
	if mid != 0 {
		gapBps = (theoCurve - theoFast) / mid * 10000.0
	}
	e.metrics.CurveDivergenceBps.WithLabelValues(market).Set(gapBps)

	e.logger.Debug().
		Str("market", market).
		Float64("theo_fast", theoFast).
		Float64("theo_curve", theoCurve).
		Float64("gap_bps", gapBps).
		Msg("curve cross-check")
}

func (e *Engine) handleFunding(f *event.FundingRateSnapshot) error {
	b := e.book(f.Market)
	b.fundingRate = f.Rate

	e.metrics.FundingRateAnnual.WithLabelValues(f.Market).Set(quote.FundingAnnual(f.Rate))
	e.logger.Info().
		Str("market", f.Market).
		Float64("rate_8h", f.Rate).
		Msg("funding rate updated")

	e.commitSnapshot(f.Market, b, 0, f.TimestampUs)
	return nil
}

// publish sends a signal without blocking the engine loop. Quote signals are
// stale within seconds, so dropping on a full channel is the right tradeoff.
func (e *Engine) publish(evt ingestion.PublishableEvent) {
	if e.publishChan == nil {
		return
	}
	select {
	case e.publishChan <- evt:
	default:
		e.metrics.PublishDrops.Inc()
	}
}

func (e *Engine) commitSnapshot(market string, b *book, price float64, tsUs int64) {
	snap := MarketSnapshot{
		Market:           market,
		Params:           b.cal.Params(),
		SampleCount:      b.cal.SampleCount(),
		FundingRatePer8h: b.fundingRate,
		LastTimestampUs:  tsUs,
	}
	if price > 0 {
		snap.LastPrice = price
	} else if prev, ok := e.store.Get(market); ok {
		snap.LastPrice = prev.LastPrice
	}
	if b.hasQuote {
		snap.LastQuote = b.quote
		snap.HasQuote = true
	}
	e.store.Set(snap)
}
