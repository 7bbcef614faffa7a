package merton_test

import (
	"math"
	"testing"

	"MertonQuote/internal/merton"
)

func TestFairValueClosedForm(t *testing.T) {
	p := merton.DefaultParams() // sigma 0.44, lambda 20, muJ 0.003, deltaJ 0.01

	got := p.FairValue(100.0, 0.02, 0.25, 0.05)

	k := math.Exp(p.MuJ+0.5*p.DeltaJ*p.DeltaJ) - 1.0
	want := 100.0 * math.Exp((0.05-0.02-p.Lambda*k)*0.25)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("fair value: got %v, want %v", got, want)
	}
	// Pin the number itself so a drift in the compensator shows up here.
	if math.Abs(got-99.2257) > 5e-4 {
		t.Errorf("fair value: got %v, want about 99.2257", got)
	}
}

func TestFairValueIgnoresDiffusionVolatility(t *testing.T) {
	a := merton.Params{Sigma: 0.1, Lambda: 5, MuJ: 0.01, DeltaJ: 0.05}
	b := a
	b.Sigma = 2.5

	if a.FairValue(100, 0.01, 0.5, 0.03) != b.FairValue(100, 0.01, 0.5, 0.03) {
		t.Errorf("fair value depends on sigma; E[S_T] must not")
	}
}

func TestFairValueIdentityWhenDriftCancels(t *testing.T) {
	// r - q - lambda*k = 0 must return the spot exactly.
	p := merton.Params{Sigma: 0.44, Lambda: 0, MuJ: 0.003, DeltaJ: 0.01}
	if got := p.FairValue(1234.5, 0.03, 0.7, 0.03); got != 1234.5 {
		t.Errorf("zero-drift fair value: got %v, want 1234.5", got)
	}
}

func TestFairValueNoJumpsIsCostOfCarry(t *testing.T) {
	p := merton.Params{Sigma: 0.44, Lambda: 0, MuJ: 0.003, DeltaJ: 0.01}

	got := p.FairValue(250.0, 0.02, 1.0, 0.05)
	want := 250.0 * math.Exp(0.05-0.02)
	if math.Abs(got-want)/want > 1e-15 {
		t.Errorf("no-jump fair value: got %v, want %v", got, want)
	}
}

func TestCurveYearFraction(t *testing.T) {
	cases := []struct {
		tYears float64
		want   float64
	}{
		{8.0 / (365.25 * 24.0), 1.0 / 365.0},  // 8h floors to one day
		{0, 1.0 / 365.0},                      // degenerate horizon floors too
		{30.0 / 365.25, 30.0 / 365.0},         // whole days pass through
		{1.0, 365.0 / 365.0},                  // one year = 365.25 days -> 365
	}
	for _, tc := range cases {
		if got := merton.CurveYearFraction(tc.tYears); math.Abs(got-tc.want) > 1e-15 {
			t.Errorf("CurveYearFraction(%v): got %v, want %v", tc.tYears, got, tc.want)
		}
	}
}

func TestFairValueCurveMatchesAnalyticOnCurveHorizon(t *testing.T) {
	// With flat curves the only difference between the curve pricer and the
	// analytic pricer is the day-count rounding of the horizon.
	p := merton.DefaultParams()
	tYears := 30.0 / 365.25

	got := p.FairValueCurve(100.0, 0.02, tYears, 0.05)
	want := p.FairValue(100.0, 0.02, merton.CurveYearFraction(tYears), 0.05)
	if math.Abs(got-want)/want > 1e-14 {
		t.Errorf("curve fair value: got %v, want %v", got, want)
	}
}

func TestFairValueCurveSubDayHorizonDiverges(t *testing.T) {
	// An 8h horizon rounds up to a full day on the curve, so the curve price
	// must not equal the analytic price whenever the drift is nonzero.
	p := merton.DefaultParams()
	tYears := 8.0 / (365.25 * 24.0)

	analytic := p.FairValue(100.0, 0.0, tYears, 0.0)
	curve := p.FairValueCurve(100.0, 0.0, tYears, 0.0)
	if analytic == curve {
		t.Errorf("expected day-rounding divergence, both %v", analytic)
	}
}

func TestFairValueForwardNoOpOnBadInputs(t *testing.T) {
	p := merton.DefaultParams()
	r := merton.FlatForwardCurve{Rate: 0.05}
	q := merton.FlatForwardCurve{Rate: 0.02}

	if got := p.FairValueForward(0, 1.0, r, q); got != 0 {
		t.Errorf("zero spot: got %v, want 0", got)
	}
	if got := p.FairValueForward(-10, 1.0, r, q); got != -10 {
		t.Errorf("negative spot passthrough: got %v, want -10", got)
	}
	if got := p.FairValueForward(100, 0, r, q); got != 100 {
		t.Errorf("zero horizon: got %v, want 100", got)
	}
}

// steppedCurve discounts with a different flat rate before and after a kink.
type steppedCurve struct {
	nearRate, farRate float64
	kink              float64
}

func (s steppedCurve) Discount(tYears float64) float64 {
	if tYears <= s.kink {
		return math.Exp(-s.nearRate * tYears)
	}
	return math.Exp(-s.nearRate*s.kink - s.farRate*(tYears-s.kink))
}

func TestFairValueForwardWithExternalCurves(t *testing.T) {
	p := merton.Params{Sigma: 0.3, Lambda: 0, MuJ: 0, DeltaJ: 0.01}
	rc := steppedCurve{nearRate: 0.05, farRate: 0.03, kink: 0.5}
	qc := merton.FlatForwardCurve{Rate: 0.01}

	tYears := 1.0
	got := p.FairValueForward(100.0, tYears, rc, qc)
	want := 100.0 * qc.Discount(tYears) / rc.Discount(tYears)
	if math.Abs(got-want)/want > 1e-15 {
		t.Errorf("forward off stepped curve: got %v, want %v", got, want)
	}
}

func TestCalibratorFairValueDelegates(t *testing.T) {
	c := merton.NewCalibrator(merton.DefaultParams(), merton.Config{})
	p := c.Params()

	if c.FairValue(100, 0.02, 0.25, 0.05) != p.FairValue(100, 0.02, 0.25, 0.05) {
		t.Errorf("calibrator fair value differs from params fair value")
	}
	if c.FairValueCurve(100, 0.02, 0.25, 0.05) != p.FairValueCurve(100, 0.02, 0.25, 0.05) {
		t.Errorf("calibrator curve fair value differs from params curve fair value")
	}
}
