package merton

import "math"

// Calibrator ingests a live price feed, maintains a rolling window of
// log-returns and inter-arrival times, and periodically re-fits the four
// Merton parameters by maximum likelihood.
//
// A calibrator is owned by exactly one goroutine; no method locks. Callers
// that calibrate several instruments run one calibrator per instrument.
type Calibrator struct {
	params Params
	cfg    Config

	lastPrice float64
	lastTsUs  int64
	hasLast   bool

	window                 *Window
	returnsSinceLastUpdate int
}

// NewCalibrator clamps the initial guess and prepares an empty window.
// Zero-valued config fields fall back to their defaults.
func NewCalibrator(initial Params, cfg Config) *Calibrator {
	cfg = cfg.withDefaults()
	return &Calibrator{
		params: initial.Clamp(),
		cfg:    cfg,
		window: NewWindow(cfg.WindowSize),
	}
}

// Params returns the current parameter estimate by value.
func (c *Calibrator) Params() Params { return c.params }

// Config returns the calibrator configuration.
func (c *Calibrator) Config() Config { return c.cfg }

// SampleCount returns the number of (return, interval) pairs in the window.
func (c *Calibrator) SampleCount() int { return c.window.Len() }

// PendingReturns returns how many returns were accepted since the last
// recalibration attempt (the gating counter C).
func (c *Calibrator) PendingReturns() int { return c.returnsSinceLastUpdate }

// Window exposes the rolling window for inspection.
func (c *Calibrator) Window() *Window { return c.window }

// UpdateTick ingests one (price, epoch-microsecond) observation and reports
// whether a return was appended to the window.
//
// Rejections:
//   - non-positive price: state untouched;
//   - first tick: last price/timestamp recorded, nothing appended;
//   - dt <= 0 (duplicate or backwards time): the interval is discarded but
//     last price/timestamp advance, so the next valid tick measures against
//     the freshest price;
//   - non-finite log-return: same refresh-and-reject treatment.
func (c *Calibrator) UpdateTick(price float64, tsMicros int64) bool {
	if !(price > 0) {
		return false
	}
	if !c.hasLast {
		c.lastPrice = price
		c.lastTsUs = tsMicros
		c.hasLast = true
		return false
	}

	dtUs := tsMicros - c.lastTsUs
	if dtUs <= 0 {
		c.lastPrice = price
		c.lastTsUs = tsMicros
		return false
	}

	r := math.Log(price / c.lastPrice)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		c.lastPrice = price
		c.lastTsUs = tsMicros
		return false
	}

	c.window.Push(r, dtUs)
	c.returnsSinceLastUpdate++
	c.lastPrice = price
	c.lastTsUs = tsMicros
	return true
}

// medianDtYears converts the window's median interval to a year fraction.
func (c *Calibrator) medianDtYears() float64 {
	return float64(c.window.MedianDtMicros()) / 1e6 / secsPerYear
}

// MaybeUpdateParams runs one gated recalibration pass and reports whether
// any parameter changed by more than 1e-12.
//
// Gate: at least MinPointsForUpdate samples AND at least UpdateEveryNReturns
// returns accepted since the last invocation. Once both gates pass the
// cadence counter resets, even if the median interval turns out degenerate.
//
// The optimizer is a derivative-free coordinate search: each round tries
// +/-step on each parameter (every trial taken from the current best, in the
// fixed order sigma+, sigma-, lambda+, lambda-, muJ+, muJ-, deltaJ+,
// deltaJ-), accepting a trial iff its NLL is finite and beats the best by
// more than ImprovementTol. A round without improvement halves all steps.
// After CoordinateSteps rounds the best candidate is clamped and committed
// as a single struct store, so an aborted caller never observes a torn
// parameter set.
func (c *Calibrator) MaybeUpdateParams() bool {
	if c.window.Len() < c.cfg.MinPointsForUpdate {
		return false
	}
	if c.returnsSinceLastUpdate < c.cfg.UpdateEveryNReturns {
		return false
	}
	c.returnsSinceLastUpdate = 0

	dt := c.medianDtYears()
	if !(dt > 0) {
		return false
	}

	best := c.params
	bestNLL := c.negLogLikelihood(best, dt)

	// Adaptive steps: a percentage of the current estimate with floors so a
	// near-zero parameter still gets a meaningful perturbation.
	step := Params{
		Sigma:  math.Max(0.02, 0.08*best.Sigma),
		Lambda: math.Max(0.10, 0.10*best.Lambda),
		MuJ:    math.Max(0.002, 0.25*math.Abs(best.MuJ)),
		DeltaJ: math.Max(0.002, 0.20*best.DeltaJ),
	}

	for round := 0; round < c.cfg.CoordinateSteps; round++ {
		improved := false

		try := func(candidate Params) {
			cand := candidate.Clamp()
			nll := c.negLogLikelihood(cand, dt)
			if !math.IsInf(nll, 0) && !math.IsNaN(nll) && bestNLL-nll > c.cfg.ImprovementTol {
				best = cand
				bestNLL = nll
				improved = true
			}
		}

		t := best
		t.Sigma += step.Sigma
		try(t)
		t = best
		t.Sigma -= step.Sigma
		try(t)

		t = best
		t.Lambda += step.Lambda
		try(t)
		t = best
		t.Lambda -= step.Lambda
		try(t)

		t = best
		t.MuJ += step.MuJ
		try(t)
		t = best
		t.MuJ -= step.MuJ
		try(t)

		t = best
		t.DeltaJ += step.DeltaJ
		try(t)
		t = best
		t.DeltaJ -= step.DeltaJ
		try(t)

		if !improved {
			step.Sigma *= 0.5
			step.Lambda *= 0.5
			step.MuJ *= 0.5
			step.DeltaJ *= 0.5
		}
	}

	changed := math.Abs(best.Sigma-c.params.Sigma) > 1e-12 ||
		math.Abs(best.Lambda-c.params.Lambda) > 1e-12 ||
		math.Abs(best.MuJ-c.params.MuJ) > 1e-12 ||
		math.Abs(best.DeltaJ-c.params.DeltaJ) > 1e-12

	c.params = best
	return changed
}
