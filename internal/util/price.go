// Package util provides common utility functions for price calculations.
package util

import "math"

// quotientEpsilon absorbs float division error when x already sits on a
// tick boundary, so exact multiples survive Floor/Ceil unchanged.
const quotientEpsilon = 1e-12

// RoundToTick rounds x to the nearest tick increment.
// For example, with tick=0.01, 1.2345 becomes 1.23 or 1.24 depending on rounding.
func RoundToTick(x, tick float64) float64 {
	if tick == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	tick = math.Abs(tick)
	return math.Round(x/tick) * tick
}

// FloorToTick rounds x down to the nearest tick increment.
func FloorToTick(x, tick float64) float64 {
	if tick == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	tick = math.Abs(tick)
	return math.Floor(snapQuotient(x/tick)) * tick
}

// CeilToTick rounds x up to the nearest tick increment.
func CeilToTick(x, tick float64) float64 {
	if tick == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	tick = math.Abs(tick)
	return math.Ceil(snapQuotient(x/tick)) * tick
}

func snapQuotient(q float64) float64 {
	if r := math.Round(q); math.Abs(q-r) < quotientEpsilon {
		return r
	}
	return q
}

// MidPrice returns the midpoint of a bid/ask pair, or 0 when the quote
// is one-sided or crossed.
func MidPrice(bid, ask float64) float64 {
	if bid <= 0 || ask <= 0 || ask < bid {
		return 0
	}
	return (bid + ask) / 2
}

// BidAskSpread returns the ask-bid width, or 0 when the quote is
// one-sided or crossed.
func BidAskSpread(bid, ask float64) float64 {
	if bid <= 0 || ask <= 0 || ask < bid {
		return 0
	}
	return ask - bid
}
