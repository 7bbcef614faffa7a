package merton

import (
	"math"
	"testing"
)

func TestPoissonWeightMatchesDirectFormula(t *testing.T) {
	x := 2.5
	for n := 0; n <= 12; n++ {
		got := poissonWeight(n, x)
		want := math.Exp(-x) * math.Pow(x, float64(n)) / math.Gamma(float64(n)+1)
		if math.Abs(got-want) > 1e-15 {
			t.Errorf("n=%d: got %v, want %v", n, got, want)
		}
	}
}

func TestPoissonWeightsSumToOne(t *testing.T) {
	x := 3.0
	sum := 0.0
	for n := 0; n <= 60; n++ {
		sum += poissonWeight(n, x)
	}
	if math.Abs(sum-1.0) > 1e-12 {
		t.Errorf("weights sum: got %v, want 1", sum)
	}
}

func TestPoissonWeightSurvivesLargeN(t *testing.T) {
	// Direct n! overflows float64 past n=170; the recurrence must not.
	w := poissonWeight(200, 5.0)
	if math.IsNaN(w) || math.IsInf(w, 0) {
		t.Fatalf("weight not finite: %v", w)
	}
	if w < 0 {
		t.Errorf("weight negative: %v", w)
	}
}

func TestSafeLogFloorsVanishingDensity(t *testing.T) {
	got := safeLog(0)
	want := math.Log(pdfFloor)
	if math.IsInf(got, 0) || math.IsNaN(got) {
		t.Fatalf("safeLog(0) not finite: %v", got)
	}
	if got != want {
		t.Errorf("safeLog(0): got %v, want %v", got, want)
	}
	// Values above the floor pass through untouched.
	if safeLog(2.0) != math.Log(2.0) {
		t.Errorf("safeLog(2) altered a value above the floor")
	}
}

func TestNormPDF(t *testing.T) {
	if got := normPDF(0); got != invSqrt2Pi {
		t.Errorf("normPDF(0): got %v, want %v", got, invSqrt2Pi)
	}
	if normPDF(1.5) != normPDF(-1.5) {
		t.Errorf("normPDF not symmetric")
	}
}

func TestJumpCompensator(t *testing.T) {
	if got := jumpCompensator(0, 0); got != 0 {
		t.Errorf("k(0,0): got %v, want 0", got)
	}

	got := jumpCompensator(0.003, 0.01)
	want := math.Exp(0.003+0.5*0.01*0.01) - 1.0
	if math.Abs(got-want) > 1e-16 {
		t.Errorf("k(0.003,0.01): got %v, want %v", got, want)
	}
}
