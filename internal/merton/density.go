package merton

import "math"

// mixturePDF evaluates the truncated Merton jump-diffusion density at a
// log-return x:
//
//	f(x) = sum_{n=0}^{nMax-1} w_n(lambda*dt) * phi((x - mu_n)/sigma_n) / sigma_n
//	mu_n    = (-lambda*k - sigma^2/2)*dt + n*muJ
//	sigma_n = sqrt(sigma^2*dt + n*deltaJ^2)
//
// The Poisson weight is carried incrementally across components, which is
// bit-identical to recomputing it from n = 0 each time. Components are summed
// in ascending n so results are reproducible across runs. Components with
// non-positive variance are skipped; they cannot occur for clamped parameters
// but exploratory candidates may produce them. The result is floored at
// pdfFloor so the downstream log is finite.
func mixturePDF(x float64, p Params, dtYears float64, nMax int) float64 {
	lambdaDt := p.Lambda * dtYears
	k := jumpCompensator(p.MuJ, p.DeltaJ)
	drift := (-p.Lambda*k - 0.5*p.Sigma*p.Sigma) * dtYears

	w := math.Exp(-lambdaDt)
	pdf := 0.0
	for n := 0; n < nMax; n++ {
		if n > 0 {
			w *= lambdaDt / float64(n)
		}
		varN := p.Sigma*p.Sigma*dtYears + float64(n)*p.DeltaJ*p.DeltaJ
		if varN <= 0 {
			continue
		}
		muN := drift + float64(n)*p.MuJ
		sigmaN := math.Sqrt(varN)
		z := (x - muN) / sigmaN
		pdf += w * normPDF(z) / sigmaN
	}
	if pdf < pdfFloor {
		pdf = pdfFloor
	}
	return pdf
}

// negLogLikelihood sums -log f(r_i | p, dt) over the rolling window, in
// insertion order. Parameters outside the valid domain (sigma <= 0,
// lambda < 0, deltaJ <= 0) return +Inf so the optimizer's improvement test
// rejects them.
func (c *Calibrator) negLogLikelihood(p Params, dtYears float64) float64 {
	if p.Sigma <= 0 || p.Lambda < 0 || p.DeltaJ <= 0 {
		return math.Inf(1)
	}
	nll := 0.0
	c.window.EachReturn(func(r float64) {
		nll -= safeLog(mixturePDF(r, p, dtYears, c.cfg.NMax))
	})
	return nll
}
