package features

import (
	"math"
	"sort"
)

// LogReturns computes r_t = ln(p_t / p_{t-1}) over a price series.
// It returns a slice of length len(prices)-1, or nil if insufficient data.
// Non-positive prices yield a zero return rather than NaN.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// Mean returns the arithmetic mean, zero for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the sample standard deviation, zero when fewer than two
// observations are available.
func StdDev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	mean := Mean(xs)
	sum2 := 0.0
	for _, x := range xs {
		d := x - mean
		sum2 += d * d
	}
	v := sum2 / float64(n-1)
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}

// PopStdDev returns the population standard deviation (n in the
// denominator), zero for an empty slice.
func PopStdDev(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	mean := Mean(xs)
	sum2 := 0.0
	for _, x := range xs {
		d := x - mean
		sum2 += d * d
	}
	return math.Sqrt(sum2 / float64(n))
}

// ZScore standardizes the last element of the series against the full window
// using the population standard deviation. The second return reports whether
// the window variance was usable; a zero-variance window yields (0, false)
// rather than a division by zero.
func ZScore(xs []float64) (float64, bool) {
	if len(xs) < 2 {
		return 0, false
	}
	sd := PopStdDev(xs)
	if sd <= 1e-12 {
		return 0, false
	}
	return (xs[len(xs)-1] - Mean(xs)) / sd, true
}

// Percentile returns the q-quantile (0..1) of xs by linear interpolation over
// a sorted copy. Zero for an empty slice.
func Percentile(xs []float64, q float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Momentum returns the fractional price change over the trailing lookback,
// zero when the series is too short.
func Momentum(prices []float64, lookback int) float64 {
	n := len(prices)
	if lookback < 1 || n < lookback+1 {
		return 0
	}
	base := prices[n-1-lookback]
	if base <= 0 {
		return 0
	}
	return (prices[n-1] - base) / base
}

// RollingVolatility is the sample stddev of log returns over the most recent
// window observations.
func RollingVolatility(prices []float64, window int) float64 {
	rets := LogReturns(prices)
	if window > 0 && len(rets) > window {
		rets = rets[len(rets)-window:]
	}
	return StdDev(rets)
}
