// Package stats computes the trailing volume baseline used for anomaly
// scoring. It is pure: no state, no I/O, deterministic for a given input.
package stats

import "math"

// Baseline is a trailing volume trend (EMA) and the dispersion of recent
// samples around that trend.
type Baseline struct {
	EMA    float64
	StdDev float64
}

// ComputeBaseline derives the baseline from the last period samples of
// window. It reports false when fewer than period samples are available: an
// EMA over a short window is unstable and must not be scored against.
//
// The EMA uses the standard smoothing factor k = 2/(period+1), seeded with
// the first sample of the window and iterated forward. The standard deviation
// is the population deviation of the samples around the EMA value, not around
// their own mean: it measures distance from the trailing trend.
func ComputeBaseline(window []float64, period int) (Baseline, bool) {
	if period <= 0 || len(window) < period {
		return Baseline{}, false
	}

	samples := window[len(window)-period:]

	k := 2.0 / (float64(period) + 1.0)
	ema := samples[0]
	for _, v := range samples[1:] {
		ema = v*k + ema*(1.0-k)
	}

	var sum float64
	for _, v := range samples {
		d := v - ema
		sum += d * d
	}

	return Baseline{EMA: ema, StdDev: math.Sqrt(sum / float64(period))}, true
}

// ZScore scores a candidate volume against the baseline. It reports false
// when StdDev is zero: no z-score is defined for a flat window.
func ZScore(volume float64, b Baseline) (float64, bool) {
	if b.StdDev == 0 {
		return 0, false
	}
	return (volume - b.EMA) / b.StdDev, true
}
