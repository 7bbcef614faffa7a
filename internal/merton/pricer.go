package merton

import "math"

// FairValue returns the expected terminal spot under the current parameters:
//
//	E[S_T] = s0 * exp((r - q - lambda*k) * T)
//
// Pure function of its inputs and the parameter set; the window and ingest
// state are not consulted.
func (p Params) FairValue(s0, qAnnual, tYears, r float64) float64 {
	k := jumpCompensator(p.MuJ, p.DeltaJ)
	drift := r - qAnnual - p.Lambda*k
	return s0 * math.Exp(drift*tYears)
}

// DiscountProvider supplies discount factors from an external term
// structure. The curve-based pricer composes with any provider meeting this
// capability; FlatForwardCurve is the built-in one.
type DiscountProvider interface {
	Discount(tYears float64) float64
}

// FairValueForward prices the no-jump forward off discount curves,
// F = s0 * Dq(t)/Dr(t), then applies the Merton jump correction
// F * exp(-lambda*k*t). Defensive no-op: non-positive spot or horizon
// returns s0 unchanged.
func (p Params) FairValueForward(s0, tYears float64, rCurve, qCurve DiscountProvider) float64 {
	if !(s0 > 0) || !(tYears > 0) {
		return s0
	}
	forward := s0 * qCurve.Discount(tYears) / rCurve.Discount(tYears)
	k := jumpCompensator(p.MuJ, p.DeltaJ)
	return forward * math.Exp(-p.Lambda*k*tYears)
}

// FairValueCurve is the curve-based validation variant of FairValue: flat
// r and q curves, horizon rounded to whole days per CurveYearFraction. It is
// not on the hot path; the quote engine samples it periodically to monitor
// divergence from the analytic pricer.
func (p Params) FairValueCurve(s0, qAnnual, tYears, r float64) float64 {
	if !(s0 > 0) {
		return s0
	}
	t := CurveYearFraction(tYears)
	if !(t > 0) {
		return s0
	}
	return p.FairValueForward(s0, t, FlatForwardCurve{Rate: r}, FlatForwardCurve{Rate: qAnnual})
}

// FairValue delegates to the current parameters. See Params.FairValue.
func (c *Calibrator) FairValue(s0, qAnnual, tYears, r float64) float64 {
	return c.params.FairValue(s0, qAnnual, tYears, r)
}

// FairValueCurve delegates to the current parameters. See
// Params.FairValueCurve.
func (c *Calibrator) FairValueCurve(s0, qAnnual, tYears, r float64) float64 {
	return c.params.FairValueCurve(s0, qAnnual, tYears, r)
}
