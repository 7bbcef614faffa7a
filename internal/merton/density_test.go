package merton

import (
	"math"
	"testing"
)

const oneSecondYears = 1.0 / secsPerYear

func TestMixturePDFPositiveAndFinite(t *testing.T) {
	p := DefaultParams()
	xs := []float64{-0.5, -0.1, -0.01, -0.001, 0, 0.001, 0.01, 0.1, 0.5}
	for _, x := range xs {
		pdf := mixturePDF(x, p, oneSecondYears, 15)
		if math.IsNaN(pdf) || math.IsInf(pdf, 0) {
			t.Errorf("x=%v: pdf not finite: %v", x, pdf)
		}
		if pdf < pdfFloor {
			t.Errorf("x=%v: pdf %v below floor", x, pdf)
		}
	}
}

func TestMixturePDFFarTailHitsFloor(t *testing.T) {
	// A return hundreds of sigmas out has a true density far below float64
	// resolution; the floor keeps the log usable.
	p := Params{Sigma: 0.05, Lambda: 0.01, MuJ: 0, DeltaJ: 0.01}
	pdf := mixturePDF(50.0, p, oneSecondYears, 15)
	if pdf != pdfFloor {
		t.Errorf("tail pdf: got %v, want floor %v", pdf, pdfFloor)
	}
}

func TestMixtureCollapsesToGaussianWithoutJumps(t *testing.T) {
	// With lambda = 0 every n >= 1 weight vanishes and the mixture must agree
	// with the single diffusion Gaussian.
	p := Params{Sigma: 0.6, Lambda: 0, MuJ: 0.1, DeltaJ: 0.05}
	dt := oneSecondYears

	mu0 := -0.5 * p.Sigma * p.Sigma * dt
	sigma0 := p.Sigma * math.Sqrt(dt)

	for _, x := range []float64{-0.002, -0.0005, 0, 0.0005, 0.002} {
		got := mixturePDF(x, p, dt, 15)
		z := (x - mu0) / sigma0
		want := normPDF(z) / sigma0

		relErr := math.Abs(got-want) / want
		if relErr > 1e-12 {
			t.Errorf("x=%v: got %v, want %v (rel err %v)", x, got, want, relErr)
		}
	}
}

func TestMixturePDFIntegratesToOne(t *testing.T) {
	// Trapezoid over +/- 12 combined sigmas; truncation error at nMax=15 with
	// lambda*dt << 1 is negligible at this tolerance.
	p := DefaultParams()
	dt := oneSecondYears

	width := 12.0 * math.Sqrt(p.Sigma*p.Sigma*dt+14*p.DeltaJ*p.DeltaJ)
	n := 400000
	h := 2.0 * width / float64(n)

	sum := 0.0
	for i := 0; i <= n; i++ {
		x := -width + float64(i)*h
		f := mixturePDF(x, p, dt, 15)
		if i == 0 || i == n {
			sum += 0.5 * f
		} else {
			sum += f
		}
	}
	integral := sum * h
	if math.Abs(integral-1.0) > 1e-3 {
		t.Errorf("density integral: got %v, want 1", integral)
	}
}

func TestNegLogLikelihoodInfiniteOutsideDomain(t *testing.T) {
	c := NewCalibrator(DefaultParams(), Config{})
	c.UpdateTick(100.0, 0)
	c.UpdateTick(100.5, 1_000_000)
	c.UpdateTick(100.2, 2_000_000)

	bad := []Params{
		{Sigma: 0, Lambda: 1, MuJ: 0, DeltaJ: 0.1},
		{Sigma: -0.1, Lambda: 1, MuJ: 0, DeltaJ: 0.1},
		{Sigma: 0.5, Lambda: -1, MuJ: 0, DeltaJ: 0.1},
		{Sigma: 0.5, Lambda: 1, MuJ: 0, DeltaJ: 0},
	}
	for _, p := range bad {
		if nll := c.negLogLikelihood(p, oneSecondYears); !math.IsInf(nll, 1) {
			t.Errorf("params %+v: got %v, want +Inf", p, nll)
		}
	}
}

func TestNegLogLikelihoodPrefersTrueVolatility(t *testing.T) {
	// Returns drawn (deterministically spaced quantile draws) from a
	// sigma=0.5 diffusion should score better at the true sigma than far off.
	c := NewCalibrator(DefaultParams(), Config{})
	dt := oneSecondYears
	trueSigma := 0.5
	sd := trueSigma * math.Sqrt(dt)

	// Symmetric grid of standard normal quantile-ish points.
	zs := []float64{-2.3, -1.6, -1.1, -0.7, -0.35, 0, 0.35, 0.7, 1.1, 1.6, 2.3}
	ts := int64(0)
	price := 100.0
	for i := 0; i < 30; i++ {
		z := zs[i%len(zs)]
		price *= math.Exp(z * sd)
		ts += 1_000_000
		c.UpdateTick(price, ts)
	}

	base := Params{Sigma: trueSigma, Lambda: 0.01, MuJ: 0, DeltaJ: 0.01}
	low := base
	low.Sigma = 0.1
	high := base
	high.Sigma = 2.0

	nllTrue := c.negLogLikelihood(base, dt)
	if c.negLogLikelihood(low, dt) <= nllTrue {
		t.Errorf("NLL at sigma=0.1 should exceed NLL at true sigma")
	}
	if c.negLogLikelihood(high, dt) <= nllTrue {
		t.Errorf("NLL at sigma=2.0 should exceed NLL at true sigma")
	}
}
