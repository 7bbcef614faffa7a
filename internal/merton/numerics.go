package merton

import "math"

// secsPerYear converts microsecond tick intervals into year fractions.
const secsPerYear = 365.25 * 24.0 * 3600.0

// invSqrt2Pi is 1/sqrt(2*pi), used by the standard normal density.
const invSqrt2Pi = 0.39894228040143267794

// pdfFloor keeps mixture densities (and therefore their logs) finite.
const pdfFloor = 1e-300

// safeLog clamps to pdfFloor before taking the log so that log of a
// vanishing density cannot produce -Inf inside a likelihood sum.
func safeLog(x float64) float64 {
	if x < pdfFloor {
		x = pdfFloor
	}
	return math.Log(x)
}

// normPDF is the standard normal density phi(z) = exp(-z^2/2)/sqrt(2*pi).
func normPDF(z float64) float64 {
	return invSqrt2Pi * math.Exp(-0.5*z*z)
}

// jumpCompensator returns k = E[J-1] = exp(muJ + deltaJ^2/2) - 1.
// Subtracted from the drift so the jump process stays a martingale; also
// appears in the fair-value correction.
func jumpCompensator(muJ, deltaJ float64) float64 {
	return math.Exp(muJ+0.5*deltaJ*deltaJ) - 1.0
}

// poissonWeight returns w_n = exp(-x) * x^n / n! via the recurrence
// w_0 = exp(-x), w_n = w_{n-1} * x/n. The recurrence avoids computing n!
// directly, which overflows float64 past n = 170 and loses precision much
// earlier.
func poissonWeight(n int, x float64) float64 {
	w := math.Exp(-x)
	for i := 1; i <= n; i++ {
		w *= x / float64(i)
	}
	return w
}
