package norm

import (
	"math"
)

// CorrectPrice snaps a raw wire price to the instrument tick size.
//
// The reference price (typically the paired close or mid value) is a sanity
// aid only: it substitutes for a non-finite raw value. It is never used to
// rescale an otherwise finite price, since feeds quoting in
// contract-multiplier units would then get spuriously downscaled.
func CorrectPrice(price, tickSize, reference float64) float64 {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		if math.IsNaN(reference) || math.IsInf(reference, 0) {
			return 0
		}
		price = reference
	}

	if tickSize <= 0 {
		return price
	}

	snapped := math.Round(price/tickSize) * tickSize
	return roundDecimals(snapped, tickDecimals(tickSize))
}

// tickDecimals returns the number of decimal places implied by a tick size:
// 0.25 -> 2, 0.001 -> 3, 1 -> 0. Capped at 10.
func tickDecimals(tickSize float64) int {
	for d := 0; d <= 10; d++ {
		scaled := tickSize * math.Pow10(d)
		if math.Abs(scaled-math.Round(scaled)) < 1e-9 {
			return d
		}
	}
	return 10
}

// roundDecimals rounds to a fixed number of decimal places, clearing the
// float dust left by the tick division.
func roundDecimals(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
