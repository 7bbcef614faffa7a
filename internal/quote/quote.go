// Package quote turns a Merton fair value into a two-sided market-making
// quote: theoretical price versus market mid, a half-spread floored in basis
// points, and funding-rate carry conversion.
package quote

import "math"

const hoursPerYear = 365.25 * 24.0

// fundingWindowHours is the exchange funding interval (BitMEX-style 8h).
const fundingWindowHours = 8.0

// HorizonYears converts a pricing horizon in hours to years on a 365.25-day
// year. The usual horizon is the next funding window.
func HorizonYears(hours float64) float64 {
	return hours / hoursPerYear
}

// DefaultHorizonYears prices to the next funding window.
func DefaultHorizonYears() float64 {
	return HorizonYears(fundingWindowHours)
}

// FundingAnnual converts a per-8h funding rate into an annualized carry,
// used as the q input to the fair-value pricer.
func FundingAnnual(ratePer8h float64) float64 {
	return ratePer8h * (hoursPerYear / fundingWindowHours)
}

// Quote is a symmetric two-sided quote around the theoretical fair value.
type Quote struct {
	Theo       float64 // fair value E[S_T]
	Mid        float64 // observed market mid (or last price)
	Bid        float64 // Theo - HalfSpread
	Ask        float64 // Theo + HalfSpread
	HalfSpread float64
	DiffBps    float64 // (Theo - Mid)/Mid in basis points
}

// Compute builds the quote. The half-spread is the wider of the configured
// floor (minHalfSpreadBps of theo) and half the observed market spread;
// marketBid/marketAsk may be zero when top-of-book is unavailable, in which
// case the floor alone applies.
func Compute(theo, mid, marketBid, marketAsk, minHalfSpreadBps float64) Quote {
	minHalf := theo * (minHalfSpreadBps / 10000.0)
	mktHalf := math.Max((marketAsk-marketBid)/2.0, 0.0)
	half := math.Max(minHalf, mktHalf)

	var diffBps float64
	if mid != 0 {
		diffBps = (theo - mid) / mid * 10000.0
	}

	return Quote{
		Theo:       theo,
		Mid:        mid,
		Bid:        theo - half,
		Ask:        theo + half,
		HalfSpread: half,
		DiffBps:    diffBps,
	}
}
