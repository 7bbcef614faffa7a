package merton

import "math"

// FlatForwardCurve is a constant-rate term structure with continuous
// compounding: D(t) = exp(-Rate * t).
type FlatForwardCurve struct {
	Rate float64
}

func (f FlatForwardCurve) Discount(tYears float64) float64 {
	return math.Exp(-f.Rate * tYears)
}

// CurveYearFraction maps a horizon in years to the year fraction the curve
// pricer actually uses: the maturity is rounded to whole days on a
// 365.25-day year (never less than one day) and the result is measured with
// an Act/365 day count. For sub-day horizons the curve horizon is therefore
// a full day, which is why FairValueCurve is a validation variant rather
// than a replacement for the analytic pricer.
func CurveYearFraction(tYears float64) float64 {
	if tYears < 1e-8 {
		tYears = 1e-8
	}
	days := math.Round(tYears * 365.25)
	if days < 1 {
		days = 1
	}
	return days / 365.0
}
