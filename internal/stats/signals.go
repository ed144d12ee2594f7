// Package stats provides the per-symbol summary calculations over a
// series of closing prices.
package stats

// Min returns the smallest value in the series.
// The second return value is false when the series is empty.
func Min(series []float64) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	min := series[0]
	for _, v := range series[1:] {
		if v < min {
			min = v
		}
	}
	return min, true
}

// Max returns the largest value in the series.
// The second return value is false when the series is empty.
func Max(series []float64) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	max := series[0]
	for _, v := range series[1:] {
		if v > max {
			max = v
		}
	}
	return max, true
}

// Difference returns the absolute and relative difference between the
// last and the first element of the series. The relative difference is
// (last - first) / first; a zero first element is treated as 1 to keep
// the result finite. The third return value is false when the series
// is empty.
func Difference(series []float64) (abs, rel float64, ok bool) {
	if len(series) == 0 {
		return 0, 0, false
	}
	first := series[0]
	last := series[len(series)-1]
	abs = last - first
	if first == 0 {
		first = 1
	}
	return abs, abs / first, true
}

// MovingAverage returns the trailing moving average of the series: for
// each position, the mean of the last `window` values seen so far.
// Positions earlier than the window use all values available up to that
// point, so the result always has the same length as the input.
// Returns nil for an empty series or a window below 1.
func MovingAverage(series []float64, window int) []float64 {
	if len(series) == 0 || window < 1 {
		return nil
	}
	out := make([]float64, len(series))
	for i := range series {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		sum := 0.0
		for _, v := range series[lo : i+1] {
			sum += v
		}
		out[i] = sum / float64(i+1-lo)
	}
	return out
}
